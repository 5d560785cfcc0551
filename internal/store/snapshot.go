package store

import (
	"slices"

	"project-tracker/internal/model"
)

// Snapshot 某一时刻缓存的一致性只读副本，供展示层与报表使用
type Snapshot struct {
	Semesters         []model.Semester     `json:"semesters"`
	Projects          []model.Project      `json:"projects"`
	ScheduleItems     []model.ScheduleItem `json:"schedule_items"`
	Profiles          []model.Profile      `json:"profiles"`
	Enrollments       []model.Enrollment   `json:"enrollments"`
	CheckIns          []model.CheckIn      `json:"check_ins"`
	ProjectStates     []model.ProjectState `json:"project_states"`
	Notifications     []model.Notification `json:"notifications"`
	CurrentSemesterID string               `json:"current_semester_id,omitempty"`
	Loading           bool                 `json:"loading"`
}

// Snapshot 在同一把读锁下复制所有集合
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Semesters:         slices.Clone(s.semesters),
		Projects:          slices.Clone(s.projects),
		ScheduleItems:     slices.Clone(s.scheduleItems),
		Profiles:          slices.Clone(s.profiles),
		Enrollments:       cloneEnrollments(s.enrollments),
		CheckIns:          cloneCheckIns(s.checkIns),
		ProjectStates:     slices.Clone(s.projectStates),
		Notifications:     slices.Clone(s.notifications),
		CurrentSemesterID: s.currentSemesterID,
		Loading:           s.loading,
	}
}

// Semester 按 id 查找学期
func (snap *Snapshot) Semester(id string) (model.Semester, bool) {
	for _, s := range snap.Semesters {
		if s.ID == id {
			return s, true
		}
	}
	return model.Semester{}, false
}

// Profile 按 id 查找档案
func (snap *Snapshot) Profile(id string) (model.Profile, bool) {
	for _, p := range snap.Profiles {
		if p.ID == id {
			return p, true
		}
	}
	return model.Profile{}, false
}

// StateIndex 以复合键索引项目进度
func (snap *Snapshot) StateIndex() map[model.StateKey]model.ProjectState {
	idx := make(map[model.StateKey]model.ProjectState, len(snap.ProjectStates))
	for _, st := range snap.ProjectStates {
		idx[st.Key()] = st
	}
	return idx
}
