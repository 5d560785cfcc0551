// Package store 进程级实体缓存：七个集合 + 通知日志。
//
// 缓存只暴露按集合划分的类型化写入口（替换 / 追加 / 更新 / 删除），
// 读取一律返回副本。写入方仅限批量加载、写操作网关、实时同步与选课关联。
package store

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"project-tracker/internal/model"
)

// maxNotifications 通知日志仅保留最近 N 条
const maxNotifications = 50

// Collection 集合名
type Collection string

const (
	Semesters     Collection = "semesters"
	Projects      Collection = "projects"
	ScheduleItems Collection = "schedule_items"
	Profiles      Collection = "profiles"
	Enrollments   Collection = "enrollments"
	CheckIns      Collection = "check_ins"
	ProjectStates Collection = "project_states"
)

// AllCollections 七个持久化集合，顺序即批量加载顺序
func AllCollections() []Collection {
	return []Collection{Semesters, Projects, ScheduleItems, Profiles, Enrollments, CheckIns, ProjectStates}
}

// Store 实体缓存
type Store struct {
	mu sync.RWMutex

	semesters     []model.Semester
	projects      []model.Project
	scheduleItems []model.ScheduleItem
	profiles      []model.Profile
	enrollments   []model.Enrollment
	checkIns      []model.CheckIn
	projectStates []model.ProjectState
	notifications []model.Notification

	currentSemesterID string
	loading           bool
	now               func() time.Time
}

// New 创建空缓存
func New() *Store {
	return &Store{now: time.Now}
}

// Reset 清空所有集合与通知（登出时调用，防止上一身份的数据泄漏）
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.semesters = nil
	s.projects = nil
	s.scheduleItems = nil
	s.profiles = nil
	s.enrollments = nil
	s.checkIns = nil
	s.projectStates = nil
	s.notifications = nil
	s.currentSemesterID = ""
	s.loading = false
}

// ── 加载标记 ──

// SetLoading 设置加载中标记
func (s *Store) SetLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// Loading 是否正在批量加载
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// ────────────────────── Semesters ──────────────────────

// ReplaceSemesters 替换学期集合并重新选择当前学期：
// 第一个 is_active 行，否则第一行，否则无
func (s *Store) ReplaceSemesters(rows []model.Semester) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.semesters = slices.Clone(rows)
	s.currentSemesterID = pickCurrent(s.semesters)
}

func pickCurrent(rows []model.Semester) string {
	for _, r := range rows {
		if r.IsActive {
			return r.ID
		}
	}
	if len(rows) > 0 {
		return rows[0].ID
	}
	return ""
}

// AddSemester 追加学期；尚无当前学期时选中该行
func (s *Store) AddSemester(row model.Semester) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.semesters = append(s.semesters, row)
	if s.currentSemesterID == "" {
		s.currentSemesterID = row.ID
	}
}

// SelectSemester 切换当前学期；id 不在缓存中时返回 false
func (s *Store) SelectSemester(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.semesters {
		if r.ID == id {
			s.currentSemesterID = id
			return true
		}
	}
	return false
}

// CurrentSemester 当前选中的学期
func (s *Store) CurrentSemester() (model.Semester, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.semesters {
		if r.ID == s.currentSemesterID {
			return r, true
		}
	}
	return model.Semester{}, false
}

// Semesters 学期集合副本
func (s *Store) Semesters() []model.Semester {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.semesters)
}

// ────────────────────── Projects ──────────────────────

// ReplaceProjects 替换项目集合
func (s *Store) ReplaceProjects(rows []model.Project) {
	s.mu.Lock()
	s.projects = slices.Clone(rows)
	s.mu.Unlock()
}

// AddProject 追加项目
func (s *Store) AddProject(row model.Project) {
	s.mu.Lock()
	s.projects = append(s.projects, row)
	s.mu.Unlock()
}

// UpdateProject 按 id 替换项目行；不存在时返回 false
func (s *Store) UpdateProject(row model.Project) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := slices.IndexFunc(s.projects, func(p model.Project) bool { return p.ID == row.ID })
	if i < 0 {
		return false
	}
	s.projects[i] = row
	return true
}

// Projects 项目集合副本
func (s *Store) Projects() []model.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.projects)
}

// ────────────────────── ScheduleItems ──────────────────────
// 不变式：日程集合始终按日期升序。

// ReplaceScheduleItems 替换日程集合（按日期稳定排序）
func (s *Store) ReplaceScheduleItems(rows []model.ScheduleItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scheduleItems = slices.Clone(rows)
	sortByDate(s.scheduleItems)
}

// AddScheduleItem 追加日程后整体按日期重排
func (s *Store) AddScheduleItem(row model.ScheduleItem) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scheduleItems = append(s.scheduleItems, row)
	sortByDate(s.scheduleItems)
}

// RemoveScheduleItem 按 id 删除日程
func (s *Store) RemoveScheduleItem(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.scheduleItems)
	s.scheduleItems = slices.DeleteFunc(s.scheduleItems, func(it model.ScheduleItem) bool { return it.ID == id })
	return len(s.scheduleItems) != n
}

func sortByDate(items []model.ScheduleItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.Before(items[j].Date.Time)
	})
}

// ScheduleItems 日程集合副本
func (s *Store) ScheduleItems() []model.ScheduleItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.scheduleItems)
}

// ────────────────────── Profiles ──────────────────────

// ReplaceProfiles 替换档案集合
func (s *Store) ReplaceProfiles(rows []model.Profile) {
	s.mu.Lock()
	s.profiles = slices.Clone(rows)
	s.mu.Unlock()
}

// UpsertProfile 按 id 替换档案，不存在则追加
func (s *Store) UpsertProfile(row model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := slices.IndexFunc(s.profiles, func(p model.Profile) bool { return p.ID == row.ID }); i >= 0 {
		s.profiles[i] = row
		return
	}
	s.profiles = append(s.profiles, row)
}

// Profiles 档案集合副本
func (s *Store) Profiles() []model.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.profiles)
}

// ────────────────────── Enrollments ──────────────────────

// ReplaceEnrollments 替换选课集合
func (s *Store) ReplaceEnrollments(rows []model.Enrollment) {
	s.mu.Lock()
	s.enrollments = cloneEnrollments(rows)
	s.mu.Unlock()
}

// AddEnrollment 追加选课
func (s *Store) AddEnrollment(row model.Enrollment) {
	s.mu.Lock()
	s.enrollments = append(s.enrollments, cloneEnrollment(row))
	s.mu.Unlock()
}

// Enrollments 选课集合副本
func (s *Store) Enrollments() []model.Enrollment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneEnrollments(s.enrollments)
}

func cloneEnrollment(e model.Enrollment) model.Enrollment {
	if e.ProfileID != nil {
		id := *e.ProfileID
		e.ProfileID = &id
	}
	return e
}

func cloneEnrollments(rows []model.Enrollment) []model.Enrollment {
	if rows == nil {
		return nil
	}
	out := make([]model.Enrollment, len(rows))
	for i, e := range rows {
		out[i] = cloneEnrollment(e)
	}
	return out
}

// ────────────────────── CheckIns ──────────────────────
// 不变式：按创建时间倒序，新记录在前。

// ReplaceCheckIns 替换进度记录集合（调用方保证倒序）
func (s *Store) ReplaceCheckIns(rows []model.CheckIn) {
	s.mu.Lock()
	s.checkIns = cloneCheckIns(rows)
	s.mu.Unlock()
}

// PrependCheckIn 将新记录放到最前；同 id 已存在（乐观更新后又收到实时事件）时原位替换
func (s *Store) PrependCheckIn(row model.CheckIn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row = cloneCheckIn(row)
	if i := slices.IndexFunc(s.checkIns, func(c model.CheckIn) bool { return c.ID == row.ID }); i >= 0 {
		s.checkIns[i] = row
		return
	}
	s.checkIns = slices.Insert(s.checkIns, 0, row)
}

// CheckIns 进度记录集合副本
func (s *Store) CheckIns() []model.CheckIn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneCheckIns(s.checkIns)
}

func cloneCheckIn(c model.CheckIn) model.CheckIn {
	if c.AttachmentURL != nil {
		u := *c.AttachmentURL
		c.AttachmentURL = &u
	}
	return c
}

func cloneCheckIns(rows []model.CheckIn) []model.CheckIn {
	if rows == nil {
		return nil
	}
	out := make([]model.CheckIn, len(rows))
	for i, c := range rows {
		out[i] = cloneCheckIn(c)
	}
	return out
}

// ────────────────────── ProjectStates ──────────────────────

// ReplaceProjectStates 替换项目进度集合
func (s *Store) ReplaceProjectStates(rows []model.ProjectState) {
	s.mu.Lock()
	s.projectStates = slices.Clone(rows)
	s.mu.Unlock()
}

// UpsertProjectState 按 id 或复合键 (project, student) 替换，否则追加
func (s *Store) UpsertProjectState(row model.ProjectState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := row.Key()
	i := slices.IndexFunc(s.projectStates, func(p model.ProjectState) bool {
		return p.ID == row.ID || p.Key() == key
	})
	if i >= 0 {
		s.projectStates[i] = row
		return
	}
	s.projectStates = append(s.projectStates, row)
}

// ProjectState 按复合键查找
func (s *Store) ProjectState(key model.StateKey) (model.ProjectState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.projectStates {
		if p.Key() == key {
			return p, true
		}
	}
	return model.ProjectState{}, false
}

// ProjectStates 项目进度集合副本
func (s *Store) ProjectStates() []model.ProjectState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.projectStates)
}

// ────────────────────── Notifications ──────────────────────

// Notify 追加一条通知，超出上限时丢弃最旧的
func (s *Store) Notify(level model.NotificationLevel, message string) model.Notification {
	n := model.Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.notifications = append(s.notifications, n)
	if over := len(s.notifications) - maxNotifications; over > 0 {
		s.notifications = slices.Delete(s.notifications, 0, over)
	}
	return n
}

// DismissNotification 按 id 移除通知
func (s *Store) DismissNotification(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.notifications)
	s.notifications = slices.DeleteFunc(s.notifications, func(x model.Notification) bool { return x.ID == id })
	return len(s.notifications) != n
}

// ClearNotifications 清空通知日志
func (s *Store) ClearNotifications() {
	s.mu.Lock()
	s.notifications = nil
	s.mu.Unlock()
}

// Notifications 通知日志副本（旧 → 新）
func (s *Store) Notifications() []model.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.notifications)
}
