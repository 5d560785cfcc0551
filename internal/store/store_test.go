package store

import (
	"fmt"
	"sync"
	"testing"

	"project-tracker/internal/model"
)

func ptr(s string) *string { return &s }

func TestStore_ReplaceSemesters_PicksFirstActive(t *testing.T) {
	s := New()
	s.ReplaceSemesters([]model.Semester{
		{ID: "a", IsActive: false},
		{ID: "b", IsActive: true},
		{ID: "c", IsActive: true},
	})

	cur, ok := s.CurrentSemester()
	if !ok || cur.ID != "b" {
		t.Errorf("期望当前学期=b，实际=%v (ok=%v)", cur.ID, ok)
	}
}

func TestStore_ReplaceSemesters_FallsBackToFirstRow(t *testing.T) {
	s := New()
	s.ReplaceSemesters([]model.Semester{{ID: "x"}, {ID: "y"}})

	cur, ok := s.CurrentSemester()
	if !ok || cur.ID != "x" {
		t.Errorf("无激活学期时应选第一行，实际=%v", cur.ID)
	}
}

func TestStore_ReplaceSemesters_Empty(t *testing.T) {
	s := New()
	s.ReplaceSemesters(nil)

	if _, ok := s.CurrentSemester(); ok {
		t.Error("空集合不应有当前学期")
	}
}

func TestStore_AddSemester_SelectsWhenNoneCurrent(t *testing.T) {
	s := New()
	s.AddSemester(model.Semester{ID: "new"})
	if cur, _ := s.CurrentSemester(); cur.ID != "new" {
		t.Errorf("首个学期应被选中，实际=%s", cur.ID)
	}

	s.AddSemester(model.Semester{ID: "second", IsActive: true})
	if cur, _ := s.CurrentSemester(); cur.ID != "new" {
		t.Errorf("已有选中时不应切换，实际=%s", cur.ID)
	}
	if !s.SelectSemester("second") {
		t.Fatal("SelectSemester 应成功")
	}
	if s.SelectSemester("missing") {
		t.Error("不存在的学期不应被选中")
	}
}

func TestStore_ScheduleItems_StayDateOrdered(t *testing.T) {
	s := New()
	for _, d := range []string{"2026-02-03", "2026-01-08", "2026-02-01"} {
		s.AddScheduleItem(model.ScheduleItem{ID: d, Date: model.MustDate(d)})
	}

	got := s.ScheduleItems()
	want := []string{"2026-01-08", "2026-02-01", "2026-02-03"}
	if len(got) != len(want) {
		t.Fatalf("期望 %d 条，实际 %d 条", len(want), len(got))
	}
	for i := range want {
		if got[i].Date.String() != want[i] {
			t.Errorf("第 %d 条期望 %s，实际 %s", i, want[i], got[i].Date)
		}
	}

	if !s.RemoveScheduleItem("2026-02-01") || len(s.ScheduleItems()) != 2 {
		t.Error("RemoveScheduleItem 应删除一条")
	}
}

func TestStore_PrependCheckIn(t *testing.T) {
	s := New()
	s.ReplaceCheckIns([]model.CheckIn{{ID: "A"}, {ID: "B"}})
	s.PrependCheckIn(model.CheckIn{ID: "X"})

	got := s.CheckIns()
	if len(got) != 3 || got[0].ID != "X" || got[1].ID != "A" || got[2].ID != "B" {
		t.Errorf("期望 [X A B]，实际 %v", ids(got))
	}
}

func TestStore_PrependCheckIn_SameIDReplacesInPlace(t *testing.T) {
	s := New()
	s.ReplaceCheckIns([]model.CheckIn{{ID: "A", Content: "optimistic"}, {ID: "B"}})
	s.PrependCheckIn(model.CheckIn{ID: "A", Content: "from feed"})

	got := s.CheckIns()
	if len(got) != 2 || got[0].Content != "from feed" {
		t.Errorf("同 id 应原位替换，实际 %+v", got)
	}
}

func TestStore_UpsertProjectState_ByCompositeKey(t *testing.T) {
	s := New()
	s.UpsertProjectState(model.ProjectState{ID: "ps-1", ProjectID: "p", StudentID: "u", Status: model.StatusInProgress})
	s.UpsertProjectState(model.ProjectState{ID: "ps-1", ProjectID: "p", StudentID: "u", Status: model.StatusSubmitted})
	s.UpsertProjectState(model.ProjectState{ID: "ps-2", ProjectID: "p", StudentID: "u", Status: model.StatusReviewed})

	states := s.ProjectStates()
	if len(states) != 1 {
		t.Fatalf("同一复合键应只有一行，实际 %d 行", len(states))
	}
	if states[0].Status != model.StatusReviewed {
		t.Errorf("期望最后写入的状态 reviewed，实际 %s", states[0].Status)
	}
}

func TestStore_ReadsAreCopies(t *testing.T) {
	s := New()
	s.ReplaceEnrollments([]model.Enrollment{{ID: "e1", ProfileID: ptr("p1")}})

	got := s.Enrollments()
	*got[0].ProfileID = "tampered"
	got[0].Email = "tampered"

	again := s.Enrollments()
	if *again[0].ProfileID != "p1" || again[0].Email != "" {
		t.Error("外部修改不应影响缓存")
	}
}

func TestStore_Reset(t *testing.T) {
	s := New()
	s.ReplaceSemesters([]model.Semester{{ID: "a"}})
	s.ReplaceProjects([]model.Project{{ID: "p"}})
	s.Notify(model.NotifyInfo, "hello")
	s.SetLoading(true)

	s.Reset()

	snap := s.Snapshot()
	if len(snap.Semesters) != 0 || len(snap.Projects) != 0 || len(snap.Notifications) != 0 {
		t.Errorf("Reset 后所有集合应为空: %+v", snap)
	}
	if snap.CurrentSemesterID != "" || snap.Loading {
		t.Error("Reset 后不应有当前学期或加载标记")
	}
}

func TestStore_NotificationsCapped(t *testing.T) {
	s := New()
	for i := 0; i < maxNotifications+5; i++ {
		s.Notify(model.NotifyInfo, fmt.Sprintf("n-%d", i))
	}

	got := s.Notifications()
	if len(got) != maxNotifications {
		t.Fatalf("期望保留 %d 条，实际 %d", maxNotifications, len(got))
	}
	if got[0].Message != "n-5" {
		t.Errorf("最旧的 5 条应被丢弃，实际首条 %s", got[0].Message)
	}
	if !s.DismissNotification(got[0].ID) {
		t.Error("DismissNotification 应成功")
	}
}

func TestStore_ConcurrentWriters(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.PrependCheckIn(model.CheckIn{ID: fmt.Sprintf("c-%d", i)})
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
		}()
	}
	wg.Wait()

	if n := len(s.CheckIns()); n != 50 {
		t.Errorf("期望 50 条记录，实际 %d", n)
	}
}

func ids(rows []model.CheckIn) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.ID
	}
	return out
}
