package model

import "time"

// ScheduleType 日程类型
type ScheduleType string

const (
	ScheduleAssigned      ScheduleType = "assigned"
	ScheduleDemo          ScheduleType = "demo"
	ScheduleProgressCheck ScheduleType = "progress_check"
	ScheduleLabDay        ScheduleType = "lab_day"
	ScheduleDue           ScheduleType = "due"
	ScheduleCritique      ScheduleType = "critique"
)

// Valid 是否为已知日程类型
func (t ScheduleType) Valid() bool {
	switch t {
	case ScheduleAssigned, ScheduleDemo, ScheduleProgressCheck, ScheduleLabDay, ScheduleDue, ScheduleCritique:
		return true
	}
	return false
}

// ScheduleItem 日程表 — 对应 schedule_items
type ScheduleItem struct {
	ID         string       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	SemesterID string       `gorm:"type:uuid;not null"                             json:"semester_id"`
	Title      string       `gorm:"type:varchar(200);not null"                     json:"title"`
	Date       Date         `gorm:"type:date;not null"                             json:"date"`
	Type       ScheduleType `gorm:"type:varchar(30);not null"                      json:"type"`
	CreatedAt  time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (ScheduleItem) TableName() string { return "schedule_items" }
