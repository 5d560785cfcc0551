package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"project-tracker/internal/dto"
	"project-tracker/internal/model"
	"project-tracker/internal/repository"
	"project-tracker/internal/store"
	"project-tracker/pkg/metrics"
	"project-tracker/pkg/storage"
)

// Gateway 写操作入口：一次远端写入，翻译错误，成功后把返回行写入缓存
type Gateway interface {
	CreateSemester(ctx context.Context, req *dto.CreateSemesterRequest) (*model.Semester, error)
	SelectSemester(id string) error
	CreateProject(ctx context.Context, req *dto.CreateProjectRequest) (*model.Project, error)
	SetProjectPublished(ctx context.Context, id string, published bool) (*model.Project, error)
	CreateScheduleItem(ctx context.Context, req *dto.CreateScheduleItemRequest) (*model.ScheduleItem, error)
	DeleteScheduleItem(ctx context.Context, id string) error

	EnrollStudent(ctx context.Context, req *dto.EnrollStudentRequest) (*model.Enrollment, error)
	JoinByCourseCode(ctx context.Context, req *dto.JoinByCourseCodeRequest) (*model.Enrollment, error)
	ChangeRole(ctx context.Context, profileID string, role model.Role) (*model.Profile, error)

	PostCheckIn(ctx context.Context, req *dto.PostCheckInRequest) (*model.CheckIn, error)
	UploadAttachment(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
	UpdateProjectStatus(ctx context.Context, projectID, studentID string, status model.ProjectStatus) (*model.ProjectState, error)
	UpdateInstructorNotes(ctx context.Context, projectID, studentID, notes string) (*model.ProjectState, error)

	DismissNotifications(ids ...string) int
}

type gateway struct {
	repo     *repository.Repository
	store    *store.Store
	identity Identity
	loader   *Loader
	uploader storage.Uploader
	locks    *keyedMutex
	logger   *zap.Logger
	now      func() time.Time
}

// NewGateway 创建 Gateway；repo 为 nil 时所有写操作返回 ErrNotConnected
func NewGateway(
	repo *repository.Repository,
	st *store.Store,
	identity Identity,
	loader *Loader,
	uploader storage.Uploader,
	logger *zap.Logger,
) Gateway {
	return &gateway{
		repo:     repo,
		store:    st,
		identity: identity,
		loader:   loader,
		uploader: uploader,
		locks:    newKeyedMutex(),
		logger:   logger,
		now:      time.Now,
	}
}

// 操作名（metrics 与日志）
const (
	opCreateSemester        = "create_semester"
	opCreateProject         = "create_project"
	opSetProjectPublished   = "set_project_published"
	opCreateScheduleItem    = "create_schedule_item"
	opDeleteScheduleItem    = "delete_schedule_item"
	opEnrollStudent         = "enroll_student"
	opJoinByCourseCode      = "join_by_course_code"
	opChangeRole            = "change_role"
	opPostCheckIn           = "post_check_in"
	opUploadAttachment      = "upload_attachment"
	opUpdateProjectStatus   = "update_project_status"
	opUpdateInstructorNotes = "update_instructor_notes"
)

// ────────────────────── 公共步骤 ──────────────────────

// connected 第一步：未连接直接失败
func (g *gateway) connected(op string) error {
	if g.repo == nil {
		return g.fail(op, ErrNotConnected, conflictValues{})
	}
	return nil
}

// fail 翻译错误、记录日志与通知
func (g *gateway) fail(op string, err error, vals conflictValues) error {
	merr := translateError(op, err, vals)

	fields := []zap.Field{zap.String("op", op), zap.String("kind", string(merr.Kind)), zap.Error(err)}
	if merr.Kind == KindUnknown {
		g.logger.Error("写操作失败", fields...)
	} else {
		g.logger.Warn("写操作被拒绝", fields...)
	}

	metrics.Mutations.WithLabelValues(op, string(merr.Kind)).Inc()
	g.store.Notify(model.NotifyError, merr.Message)
	return merr
}

// succeed 记录成功并追加通知；message 为空时不通知
func (g *gateway) succeed(op, message string) {
	metrics.Mutations.WithLabelValues(op, "success").Inc()
	if message != "" {
		g.store.Notify(model.NotifySuccess, message)
	}
}

// currentProfile 需要登录身份的操作使用
func (g *gateway) currentProfile() (model.Profile, error) {
	if g.identity == nil {
		return model.Profile{}, ErrNotSignedIn
	}
	p, ok := g.identity.Profile()
	if !ok {
		return model.Profile{}, ErrNotSignedIn
	}
	return p, nil
}

// semesterOrCurrent 请求未指定学期时取当前学期
func (g *gateway) semesterOrCurrent(id string) (string, error) {
	if id = strings.TrimSpace(id); id != "" {
		return id, nil
	}
	cur, ok := g.store.CurrentSemester()
	if !ok {
		return "", ErrNoSemester
	}
	return cur.ID, nil
}

// ────────────────────── Semester ──────────────────────

func (g *gateway) CreateSemester(ctx context.Context, req *dto.CreateSemesterRequest) (*model.Semester, error) {
	if err := g.connected(opCreateSemester); err != nil {
		return nil, err
	}

	start, err := model.ParseDate(req.StartDate)
	if err != nil {
		return nil, g.fail(opCreateSemester, invalid("Start date must be YYYY-MM-DD."), conflictValues{})
	}
	name := strings.TrimSpace(req.Name)
	code := strings.TrimSpace(req.CourseCode)
	if name == "" || code == "" {
		return nil, g.fail(opCreateSemester, invalid("Name and course code are required."), conflictValues{})
	}

	row := &model.Semester{Name: name, CourseCode: code, IsActive: req.IsActive, StartDate: start}
	if err := g.repo.Semester.Create(ctx, row); err != nil {
		return nil, g.fail(opCreateSemester, err, conflictValues{})
	}

	g.store.AddSemester(*row)
	g.succeed(opCreateSemester, fmt.Sprintf("Semester %q created.", row.Name))
	return row, nil
}

// SelectSemester 仅切换本地选择，不写后端
func (g *gateway) SelectSemester(id string) error {
	if !g.store.SelectSemester(id) {
		return &MutationError{Op: "select_semester", Kind: KindValidation, Message: ErrRecordGone.Error(), Err: repository.ErrNotFound}
	}
	return nil
}

// ────────────────────── Project ──────────────────────

func (g *gateway) CreateProject(ctx context.Context, req *dto.CreateProjectRequest) (*model.Project, error) {
	if err := g.connected(opCreateProject); err != nil {
		return nil, err
	}

	semesterID, err := g.semesterOrCurrent(req.SemesterID)
	if err != nil {
		return nil, g.fail(opCreateProject, err, conflictValues{})
	}
	code := strings.TrimSpace(req.Code)
	title := strings.TrimSpace(req.Title)
	if code == "" || title == "" {
		return nil, g.fail(opCreateProject, invalid("Project code and title are required."), conflictValues{})
	}

	row := &model.Project{
		SemesterID:    semesterID,
		Code:          code,
		Title:         title,
		Description:   req.Description,
		IsPublished:   req.IsPublished,
		SequenceOrder: req.SequenceOrder,
	}
	if err := g.repo.Project.Create(ctx, row); err != nil {
		return nil, g.fail(opCreateProject, err, conflictValues{})
	}

	g.store.AddProject(*row)
	g.succeed(opCreateProject, fmt.Sprintf("Project %s created.", row.Code))
	return row, nil
}

func (g *gateway) SetProjectPublished(ctx context.Context, id string, published bool) (*model.Project, error) {
	if err := g.connected(opSetProjectPublished); err != nil {
		return nil, err
	}

	row, err := g.repo.Project.SetPublished(ctx, id, published)
	if err != nil {
		return nil, g.fail(opSetProjectPublished, err, conflictValues{})
	}

	if !g.store.UpdateProject(*row) {
		g.store.AddProject(*row)
	}
	verb := "unpublished"
	if row.IsPublished {
		verb = "published"
	}
	g.succeed(opSetProjectPublished, fmt.Sprintf("Project %s %s.", row.Code, verb))
	return row, nil
}

// ────────────────────── Schedule ──────────────────────

func (g *gateway) CreateScheduleItem(ctx context.Context, req *dto.CreateScheduleItemRequest) (*model.ScheduleItem, error) {
	if err := g.connected(opCreateScheduleItem); err != nil {
		return nil, err
	}

	semesterID, err := g.semesterOrCurrent(req.SemesterID)
	if err != nil {
		return nil, g.fail(opCreateScheduleItem, err, conflictValues{})
	}
	date, err := model.ParseDate(req.Date)
	if err != nil {
		return nil, g.fail(opCreateScheduleItem, invalid("Date must be YYYY-MM-DD."), conflictValues{})
	}
	typ := model.ScheduleType(req.Type)
	if !typ.Valid() {
		return nil, g.fail(opCreateScheduleItem, invalid("Unknown schedule type %q.", req.Type), conflictValues{})
	}

	row := &model.ScheduleItem{SemesterID: semesterID, Title: strings.TrimSpace(req.Title), Date: date, Type: typ}
	if err := g.repo.ScheduleItem.Create(ctx, row); err != nil {
		return nil, g.fail(opCreateScheduleItem, err, conflictValues{})
	}

	g.store.AddScheduleItem(*row)
	g.succeed(opCreateScheduleItem, fmt.Sprintf("Schedule item %q added for %s.", row.Title, row.Date))
	return row, nil
}

func (g *gateway) DeleteScheduleItem(ctx context.Context, id string) error {
	if err := g.connected(opDeleteScheduleItem); err != nil {
		return err
	}

	if err := g.repo.ScheduleItem.Delete(ctx, id); err != nil {
		return g.fail(opDeleteScheduleItem, err, conflictValues{})
	}

	g.store.RemoveScheduleItem(id)
	g.succeed(opDeleteScheduleItem, "Schedule item removed.")
	return nil
}

// ────────────────────── Notifications ──────────────────────

// DismissNotifications 关闭指定通知；未指定时清空全部。返回关闭数量。
func (g *gateway) DismissNotifications(ids ...string) int {
	if len(ids) == 0 {
		n := len(g.store.Notifications())
		g.store.ClearNotifications()
		return n
	}
	n := 0
	for _, id := range ids {
		if g.store.DismissNotification(id) {
			n++
		}
	}
	return n
}
