package realtime

import (
	"encoding/json"
	"fmt"
)

// EventType 行级变更类型
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// Event 变更事件。ID 为行主键；New 仅在负载未超过 NOTIFY 上限时附带
type Event struct {
	Type  EventType       `json:"type"`
	Table string          `json:"table"`
	ID    string          `json:"id,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`
	New   json.RawMessage `json:"new,omitempty"`
}

// Decode 解析 NOTIFY 负载
func Decode(payload string) (Event, error) {
	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		return Event{}, fmt.Errorf("解析实时事件失败: %w", err)
	}
	if ev.Table == "" || ev.Type == "" {
		return Event{}, fmt.Errorf("实时事件缺少 table/type: %s", payload)
	}
	return ev, nil
}

// DecodeNew 把新行解码到 v
func (e Event) DecodeNew(v any) error {
	if !e.HasNew() {
		return fmt.Errorf("%s %s 事件不含新行", e.Table, e.Type)
	}
	return json.Unmarshal(e.New, v)
}

// HasNew 负载是否附带新行
func (e Event) HasNew() bool {
	return len(e.New) > 0 && string(e.New) != "null"
}
