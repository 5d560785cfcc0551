package service

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"project-tracker/internal/model"
	"project-tracker/internal/repository"
	pkgerrors "project-tracker/pkg/errors"
)

// ── fakeBackend 内存后端，所有 Mock Repository 共享 ──

type fakeBackend struct {
	mu            sync.Mutex
	seq           int
	semesters     []model.Semester
	projects      []model.Project
	scheduleItems []model.ScheduleItem
	profiles      []model.Profile
	enrollments   []model.Enrollment
	checkIns      []model.CheckIn
	states        []model.ProjectState

	errs  map[string]error
	calls map[string]int

	// upsertHook 在 Upsert 读写之间调用（锁外），用于制造交错
	upsertHook func()
	inFlight   map[model.StateKey]int
	maxFlight  int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		errs:     map[string]error{},
		calls:    map[string]int{},
		inFlight: map[model.StateKey]int{},
	}
}

func (b *fakeBackend) repo() *repository.Repository {
	return &repository.Repository{
		Semester:     &mockSemesterRepo{b},
		Project:      &mockProjectRepo{b},
		ScheduleItem: &mockScheduleItemRepo{b},
		Profile:      &mockProfileRepo{b},
		Enrollment:   &mockEnrollmentRepo{b},
		CheckIn:      &mockCheckInRepo{b},
		ProjectState: &mockProjectStateRepo{b},
	}
}

// hit 记录调用并返回注入的错误，调用方需持有锁
func (b *fakeBackend) hit(op string) error {
	b.calls[op]++
	return b.errs[op]
}

func (b *fakeBackend) fail(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.errs[op] = err
}

func (b *fakeBackend) count(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

func (b *fakeBackend) nextID(prefix string) string {
	b.seq++
	return fmt.Sprintf("%s-%d", prefix, b.seq)
}

func uniqueErr(constraint, columns, values string) error {
	return &pkgerrors.BackendError{
		Code:       pkgerrors.CodeUniqueViolation,
		Message:    fmt.Sprintf("duplicate key value violates unique constraint %q", constraint),
		Detail:     fmt.Sprintf("Key (%s)=(%s) already exists.", columns, values),
		Constraint: constraint,
	}
}

func permissionErr() error {
	return &pkgerrors.BackendError{
		Code:    pkgerrors.CodePermissionDenied,
		Message: `new row violates row-level security policy for table "semesters"`,
	}
}

// ── Mock SemesterRepository ──

type mockSemesterRepo struct{ b *fakeBackend }

func (m *mockSemesterRepo) List(context.Context) ([]model.Semester, error) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("semester.list"); err != nil {
		return nil, err
	}
	return slices.Clone(m.b.semesters), nil
}

func (m *mockSemesterRepo) Create(_ context.Context, s *model.Semester) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("semester.create"); err != nil {
		return err
	}
	s.ID = m.b.nextID("sem")
	s.CreatedAt = time.Now()
	m.b.semesters = append(m.b.semesters, *s)
	return nil
}

func (m *mockSemesterRepo) GetActiveByCode(_ context.Context, code string) (*model.Semester, error) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("semester.by_code"); err != nil {
		return nil, err
	}
	for _, s := range m.b.semesters {
		if s.CourseCode == code && s.IsActive {
			cp := s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ── Mock ProjectRepository ──

type mockProjectRepo struct{ b *fakeBackend }

func (m *mockProjectRepo) List(context.Context) ([]model.Project, error) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("project.list"); err != nil {
		return nil, err
	}
	return slices.Clone(m.b.projects), nil
}

func (m *mockProjectRepo) Create(_ context.Context, p *model.Project) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("project.create"); err != nil {
		return err
	}
	p.ID = m.b.nextID("proj")
	p.CreatedAt = time.Now()
	m.b.projects = append(m.b.projects, *p)
	return nil
}

func (m *mockProjectRepo) SetPublished(_ context.Context, id string, published bool) (*model.Project, error) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("project.publish"); err != nil {
		return nil, err
	}
	for i := range m.b.projects {
		if m.b.projects[i].ID == id {
			m.b.projects[i].IsPublished = published
			cp := m.b.projects[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ── Mock ScheduleItemRepository ──

type mockScheduleItemRepo struct{ b *fakeBackend }

func (m *mockScheduleItemRepo) List(context.Context) ([]model.ScheduleItem, error) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("schedule.list"); err != nil {
		return nil, err
	}
	return slices.Clone(m.b.scheduleItems), nil
}

func (m *mockScheduleItemRepo) Create(_ context.Context, it *model.ScheduleItem) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("schedule.create"); err != nil {
		return err
	}
	it.ID = m.b.nextID("sched")
	it.CreatedAt = time.Now()
	m.b.scheduleItems = append(m.b.scheduleItems, *it)
	return nil
}

func (m *mockScheduleItemRepo) Delete(_ context.Context, id string) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("schedule.delete"); err != nil {
		return err
	}
	for i, it := range m.b.scheduleItems {
		if it.ID == id {
			m.b.scheduleItems = slices.Delete(m.b.scheduleItems, i, i+1)
			return nil
		}
	}
	return repository.ErrNotFound
}

// ── Mock ProfileRepository ──

type mockProfileRepo struct{ b *fakeBackend }

func (m *mockProfileRepo) List(context.Context) ([]model.Profile, error) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("profile.list"); err != nil {
		return nil, err
	}
	return slices.Clone(m.b.profiles), nil
}

func (m *mockProfileRepo) GetByID(_ context.Context, id string) (*model.Profile, error) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("profile.get"); err != nil {
		return nil, err
	}
	for _, p := range m.b.profiles {
		if p.ID == id {
			cp := p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockProfileRepo) UpdateRole(_ context.Context, id string, role model.Role) (*model.Profile, error) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("profile.role"); err != nil {
		return nil, err
	}
	for i := range m.b.profiles {
		if m.b.profiles[i].ID == id {
			m.b.profiles[i].Role = role
			cp := m.b.profiles[i]
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct{ b *fakeBackend }

func (m *mockEnrollmentRepo) List(context.Context) ([]model.Enrollment, error) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("enrollment.list"); err != nil {
		return nil, err
	}
	out := make([]model.Enrollment, len(m.b.enrollments))
	for i, e := range m.b.enrollments {
		out[i] = copyEnrollment(e)
	}
	return out, nil
}

func (m *mockEnrollmentRepo) Create(_ context.Context, e *model.Enrollment) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("enrollment.create"); err != nil {
		return err
	}
	for _, ex := range m.b.enrollments {
		if ex.SemesterID != e.SemesterID {
			continue
		}
		switch {
		case strings.EqualFold(ex.Email, e.Email):
			return uniqueErr("enrollments_semester_email_key", "semester_id, email", e.SemesterID+", "+e.Email)
		case ex.StudentNumber == e.StudentNumber:
			return uniqueErr("enrollments_semester_student_number_key", "semester_id, student_number", e.SemesterID+", "+e.StudentNumber)
		case ex.TagNumber == e.TagNumber:
			return uniqueErr("enrollments_semester_tag_number_key", "semester_id, tag_number", e.SemesterID+", "+e.TagNumber)
		}
	}
	e.ID = m.b.nextID("enr")
	e.CreatedAt = time.Now()
	if e.Status == "" {
		e.Status = model.EnrollmentActive
	}
	m.b.enrollments = append(m.b.enrollments, copyEnrollment(*e))
	return nil
}

func (m *mockEnrollmentRepo) GetByProfileAndSemester(_ context.Context, profileID, semesterID string) (*model.Enrollment, error) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("enrollment.by_profile"); err != nil {
		return nil, err
	}
	for _, e := range m.b.enrollments {
		if e.SemesterID == semesterID && e.ProfileID != nil && *e.ProfileID == profileID {
			cp := copyEnrollment(e)
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockEnrollmentRepo) ListPendingByEmail(_ context.Context, email string) ([]model.Enrollment, error) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("enrollment.pending"); err != nil {
		return nil, err
	}
	var out []model.Enrollment
	for _, e := range m.b.enrollments {
		if e.Pending() && strings.EqualFold(e.Email, email) {
			out = append(out, copyEnrollment(e))
		}
	}
	return out, nil
}

func (m *mockEnrollmentRepo) LinkProfile(_ context.Context, ids []string, profileID string) (int64, error) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("enrollment.link"); err != nil {
		return 0, err
	}
	var n int64
	for i := range m.b.enrollments {
		if slices.Contains(ids, m.b.enrollments[i].ID) && m.b.enrollments[i].Pending() {
			id := profileID
			m.b.enrollments[i].ProfileID = &id
			n++
		}
	}
	return n, nil
}

func copyEnrollment(e model.Enrollment) model.Enrollment {
	if e.ProfileID != nil {
		id := *e.ProfileID
		e.ProfileID = &id
	}
	return e
}

// ── Mock CheckInRepository ──

type mockCheckInRepo struct{ b *fakeBackend }

func (m *mockCheckInRepo) List(context.Context) ([]model.CheckIn, error) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("checkin.list"); err != nil {
		return nil, err
	}
	return slices.Clone(m.b.checkIns), nil
}

func (m *mockCheckInRepo) GetByID(_ context.Context, id string) (*model.CheckIn, error) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("checkin.get"); err != nil {
		return nil, err
	}
	for _, c := range m.b.checkIns {
		if c.ID == id {
			out := c
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockCheckInRepo) Create(_ context.Context, c *model.CheckIn) error {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("checkin.create"); err != nil {
		return err
	}
	c.ID = m.b.nextID("chk")
	c.CreatedAt = time.Now()
	m.b.checkIns = append([]model.CheckIn{*c}, m.b.checkIns...)
	return nil
}

// ── Mock ProjectStateRepository ──

type mockProjectStateRepo struct{ b *fakeBackend }

func (m *mockProjectStateRepo) List(context.Context) ([]model.ProjectState, error) {
	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	if err := m.b.hit("state.list"); err != nil {
		return nil, err
	}
	return slices.Clone(m.b.states), nil
}

// Upsert 与 ON CONFLICT 语义一致；upsertHook 在锁外执行以制造交错
func (m *mockProjectStateRepo) Upsert(_ context.Context, st *model.ProjectState, columns ...string) error {
	key := st.Key()

	m.b.mu.Lock()
	if err := m.b.hit("state.upsert"); err != nil {
		m.b.mu.Unlock()
		return err
	}
	m.b.inFlight[key]++
	if m.b.inFlight[key] > m.b.maxFlight {
		m.b.maxFlight = m.b.inFlight[key]
	}
	hook := m.b.upsertHook
	m.b.mu.Unlock()

	if hook != nil {
		hook()
	}

	m.b.mu.Lock()
	defer m.b.mu.Unlock()
	m.b.inFlight[key]--

	now := time.Now()
	for i := range m.b.states {
		if m.b.states[i].Key() == key {
			for _, c := range columns {
				switch c {
				case repository.ColumnStatus:
					m.b.states[i].Status = st.Status
				case repository.ColumnInstructorNotes:
					m.b.states[i].InstructorNotes = st.InstructorNotes
				}
			}
			m.b.states[i].LastActivityAt = now
			m.b.states[i].UpdatedAt = now
			*st = m.b.states[i]
			return nil
		}
	}

	row := *st
	row.ID = m.b.nextID("state")
	if row.Status == "" {
		row.Status = model.StatusNotStarted
	}
	row.LastActivityAt, row.UpdatedAt = now, now
	m.b.states = append(m.b.states, row)
	*st = row
	return nil
}

// ── fakeIdentity ──

type fakeIdentity struct {
	mu        sync.Mutex
	profile   *model.Profile
	refreshed int
	backend   *fakeBackend
}

func (f *fakeIdentity) Profile() (model.Profile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.profile == nil {
		return model.Profile{}, false
	}
	return *f.profile, true
}

func (f *fakeIdentity) RefreshProfile(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed++
	if f.backend != nil && f.profile != nil {
		p, err := (&mockProfileRepo{f.backend}).GetByID(ctx, f.profile.ID)
		if err != nil {
			return err
		}
		f.profile = p
	}
	return nil
}

// ── fakeUploader ──

type fakeUploader struct {
	mu   sync.Mutex
	keys []string
	body []byte
	err  error
}

func (f *fakeUploader) Upload(_ context.Context, key, _ string, body io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	f.body = data
	return "https://files.example/attachments/" + key, nil
}
