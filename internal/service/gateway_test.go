package service

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"project-tracker/internal/dto"
	"project-tracker/internal/model"
	"project-tracker/internal/store"
)

// ── 测试辅助 ──

type gatewayFixture struct {
	gw       Gateway
	backend  *fakeBackend
	store    *store.Store
	identity *fakeIdentity
	uploader *fakeUploader
}

// setupTestGateway 以 admin_instructor 身份登录，当前学期为 sem-a
func setupTestGateway() *gatewayFixture {
	b := newFakeBackend()
	seedBackend(b)
	b.profiles = append(b.profiles, model.Profile{ID: "staff", Email: "prof@x.edu", DisplayName: "Prof", Role: model.RoleAdminInstructor})

	logger := zap.NewNop()
	repo := b.repo()
	st := store.New()
	_ = NewLoader(repo, st, logger).Load(context.Background())

	me, _ := (&mockProfileRepo{b}).GetByID(context.Background(), "staff")
	identity := &fakeIdentity{profile: me, backend: b}
	uploader := &fakeUploader{}

	gw := NewGateway(repo, st, identity, NewLoader(repo, st, logger), uploader, logger)
	gw.(*gateway).now = func() time.Time { return time.UnixMilli(1767225600000) }

	return &gatewayFixture{gw: gw, backend: b, store: st, identity: identity, uploader: uploader}
}

func (f *gatewayFixture) signInAs(p model.Profile) {
	f.identity.mu.Lock()
	f.identity.profile = &p
	f.identity.mu.Unlock()
}

func lastNotification(t *testing.T, st *store.Store) model.Notification {
	t.Helper()
	ns := st.Notifications()
	if len(ns) == 0 {
		t.Fatal("期望至少一条通知")
	}
	return ns[len(ns)-1]
}

func assertKind(t *testing.T, err error, kind ErrorKind) *MutationError {
	t.Helper()
	var me *MutationError
	if !errors.As(err, &me) {
		t.Fatalf("期望 *MutationError，得到 %T: %v", err, err)
	}
	if me.Kind != kind {
		t.Fatalf("期望 kind=%s，实际 %s (%s)", kind, me.Kind, me.Message)
	}
	return me
}

// ── 未连接 ──

func TestGateway_NotConnectedShortCircuits(t *testing.T) {
	st := store.New()
	gw := NewGateway(nil, st, &fakeIdentity{}, NewLoader(nil, st, zap.NewNop()), nil, zap.NewNop())
	ctx := context.Background()

	calls := map[string]func() error{
		"CreateSemester": func() error {
			_, err := gw.CreateSemester(ctx, &dto.CreateSemesterRequest{Name: "S", CourseCode: "C", StartDate: "2026-01-01"})
			return err
		},
		"CreateProject": func() error {
			_, err := gw.CreateProject(ctx, &dto.CreateProjectRequest{Code: "P", Title: "T"})
			return err
		},
		"CreateScheduleItem": func() error {
			_, err := gw.CreateScheduleItem(ctx, &dto.CreateScheduleItemRequest{Title: "T", Date: "2026-01-01", Type: "due"})
			return err
		},
		"EnrollStudent": func() error {
			_, err := gw.EnrollStudent(ctx, &dto.EnrollStudentRequest{Email: "a@x.edu"})
			return err
		},
		"JoinByCourseCode": func() error {
			_, err := gw.JoinByCourseCode(ctx, &dto.JoinByCourseCodeRequest{CourseCode: "X"})
			return err
		},
		"ChangeRole": func() error {
			_, err := gw.ChangeRole(ctx, "u", model.RoleStudent)
			return err
		},
		"PostCheckIn": func() error {
			_, err := gw.PostCheckIn(ctx, &dto.PostCheckInRequest{ProjectID: "p", Content: "c"})
			return err
		},
		"UploadAttachment": func() error {
			_, err := gw.UploadAttachment(ctx, "a.png", "image/png", strings.NewReader("x"))
			return err
		},
		"UpdateProjectStatus": func() error {
			_, err := gw.UpdateProjectStatus(ctx, "p", "u", model.StatusReviewed)
			return err
		},
		"UpdateInstructorNotes": func() error {
			_, err := gw.UpdateInstructorNotes(ctx, "p", "u", "n")
			return err
		},
		"SetProjectPublished": func() error {
			_, err := gw.SetProjectPublished(ctx, "p", true)
			return err
		},
		"DeleteScheduleItem": func() error {
			return gw.DeleteScheduleItem(ctx, "s")
		},
	}

	for name, call := range calls {
		err := call()
		me := assertKind(t, err, KindConnectivity)
		if !errors.Is(me, ErrNotConnected) {
			t.Errorf("%s: 应包装 ErrNotConnected", name)
		}
	}
	if n := len(st.Notifications()); n != len(calls) {
		t.Errorf("每次失败应追加一条错误通知，实际 %d", n)
	}
}

// ── Semester / Project / Schedule ──

func TestGateway_CreateSemester(t *testing.T) {
	f := setupTestGateway()

	row, err := f.gw.CreateSemester(context.Background(), &dto.CreateSemesterRequest{
		Name: "Fall 2026", CourseCode: "ART-400", StartDate: "2026-09-01", IsActive: true,
	})
	if err != nil {
		t.Fatalf("CreateSemester 应成功: %v", err)
	}
	if row.ID == "" {
		t.Error("应使用后端返回的行（含 id）")
	}

	found := false
	for _, s := range f.store.Semesters() {
		if s.ID == row.ID {
			found = true
		}
	}
	if !found {
		t.Error("新学期应追加到缓存")
	}
	if n := lastNotification(t, f.store); n.Level != model.NotifySuccess {
		t.Errorf("应追加成功通知: %+v", n)
	}
}

func TestGateway_CreateSemester_BadDate(t *testing.T) {
	f := setupTestGateway()
	_, err := f.gw.CreateSemester(context.Background(), &dto.CreateSemesterRequest{Name: "X", CourseCode: "Y", StartDate: "01/09/2026"})
	assertKind(t, err, KindValidation)
	if f.backend.count("semester.create") != 0 {
		t.Error("校验失败不应写入后端")
	}
}

func TestGateway_CreateProject_DefaultsToCurrentSemester(t *testing.T) {
	f := setupTestGateway()
	row, err := f.gw.CreateProject(context.Background(), &dto.CreateProjectRequest{Code: "P2", Title: "Stool", SequenceOrder: 2})
	if err != nil {
		t.Fatalf("CreateProject 应成功: %v", err)
	}
	if row.SemesterID != "sem-a" {
		t.Errorf("未指定学期时应使用当前学期，实际 %s", row.SemesterID)
	}
	if len(f.store.Projects()) != 2 {
		t.Error("新项目应追加到缓存")
	}
}

func TestGateway_SetProjectPublished(t *testing.T) {
	f := setupTestGateway()
	row, err := f.gw.SetProjectPublished(context.Background(), "p1", true)
	if err != nil {
		t.Fatalf("SetProjectPublished 失败: %v", err)
	}
	if !row.IsPublished || !f.store.Projects()[0].IsPublished {
		t.Error("缓存中的项目应替换为已发布")
	}

	_, err = f.gw.SetProjectPublished(context.Background(), "missing", true)
	assertKind(t, err, KindValidation)
}

func TestGateway_ScheduleStaysDateOrdered(t *testing.T) {
	f := setupTestGateway()
	f.store.ReplaceScheduleItems(nil)
	ctx := context.Background()

	for _, d := range []string{"2026-02-03", "2026-01-08", "2026-02-01"} {
		if _, err := f.gw.CreateScheduleItem(ctx, &dto.CreateScheduleItemRequest{Title: d, Date: d, Type: "due"}); err != nil {
			t.Fatalf("CreateScheduleItem(%s) 失败: %v", d, err)
		}
	}

	got := f.store.ScheduleItems()
	want := []string{"2026-01-08", "2026-02-01", "2026-02-03"}
	for i, w := range want {
		if got[i].Date.String() != w {
			t.Errorf("第 %d 项期望 %s，实际 %s", i, w, got[i].Date)
		}
	}

	if err := f.gw.DeleteScheduleItem(ctx, got[1].ID); err != nil {
		t.Fatalf("DeleteScheduleItem 失败: %v", err)
	}
	if len(f.store.ScheduleItems()) != 2 {
		t.Error("删除后缓存应移除该项")
	}
}

func TestGateway_SelectSemester(t *testing.T) {
	f := setupTestGateway()
	if err := f.gw.SelectSemester("sem-old"); err != nil {
		t.Fatalf("SelectSemester 失败: %v", err)
	}
	if cur, _ := f.store.CurrentSemester(); cur.ID != "sem-old" {
		t.Errorf("当前学期应为 sem-old，实际 %s", cur.ID)
	}
	assertKind(t, f.gw.SelectSemester("nope"), KindValidation)
}

// ── Enrollment ──

func TestGateway_EnrollStudent_PendingAndLinked(t *testing.T) {
	f := setupTestGateway()
	ctx := context.Background()

	pending, err := f.gw.EnrollStudent(ctx, &dto.EnrollStudentRequest{Email: "New@X.edu", FullName: "New", StudentNumber: "900", TagNumber: "09"})
	if err != nil {
		t.Fatalf("EnrollStudent 失败: %v", err)
	}
	if !pending.Pending() {
		t.Error("无对应档案时应为待关联")
	}

	linked, err := f.gw.EnrollStudent(ctx, &dto.EnrollStudentRequest{SemesterID: "sem-b", Email: "J@x.edu", FullName: "Jane", StudentNumber: "555", TagNumber: "02"})
	if err != nil {
		t.Fatalf("EnrollStudent 失败: %v", err)
	}
	if linked.ProfileID == nil || *linked.ProfileID != "u1" {
		t.Errorf("缓存中已有同邮箱档案时应直接关联: %+v", linked.ProfileID)
	}
	if len(f.store.Enrollments()) != 3 {
		t.Error("新选课应追加到缓存")
	}
}

func TestGateway_EnrollStudent_UniqueAxisMessages(t *testing.T) {
	f := setupTestGateway()
	ctx := context.Background()
	base := dto.EnrollStudentRequest{Email: "a@x.edu", FullName: "A", StudentNumber: "100", TagNumber: "05"}
	if _, err := f.gw.EnrollStudent(ctx, &base); err != nil {
		t.Fatalf("首次录入失败: %v", err)
	}

	cases := []struct {
		name string
		req  dto.EnrollStudentRequest
		want string
	}{
		{"tag", dto.EnrollStudentRequest{Email: "b@x.edu", StudentNumber: "101", TagNumber: "05"}, "Tag number 05 is already taken in this semester."},
		{"student_number", dto.EnrollStudentRequest{Email: "c@x.edu", StudentNumber: "100", TagNumber: "06"}, "Student number 100 is already enrolled in this semester."},
		{"email", dto.EnrollStudentRequest{Email: "A@x.edu", StudentNumber: "102", TagNumber: "07"}, "Email a@x.edu is already enrolled in this semester."},
	}
	for _, tc := range cases {
		_, err := f.gw.EnrollStudent(ctx, &tc.req)
		me := assertKind(t, err, KindConstraint)
		if me.Message != tc.want {
			t.Errorf("%s: 期望 %q，实际 %q", tc.name, tc.want, me.Message)
		}
		if n := lastNotification(t, f.store); n.Level != model.NotifyError || n.Message != tc.want {
			t.Errorf("%s: 应追加错误通知: %+v", tc.name, n)
		}
	}
	if len(f.store.Enrollments()) != 2 {
		t.Error("失败的录入不应写入缓存")
	}
}

func TestGateway_JoinByCourseCode_InvalidCode(t *testing.T) {
	f := setupTestGateway()
	f.signInAs(model.Profile{ID: "u1", Email: "j@x.edu", DisplayName: "Jane", Role: model.RoleStudent})

	for _, code := range []string{"NOPE-999", "ART-100"} { // ART-100 未激活
		_, err := f.gw.JoinByCourseCode(context.Background(), &dto.JoinByCourseCodeRequest{CourseCode: code, StudentNumber: "1", TagNumber: "1"})
		me := assertKind(t, err, KindValidation)
		if me.Message != "Invalid or inactive Course Code." {
			t.Errorf("期望 Invalid or inactive Course Code.，实际 %q", me.Message)
		}
	}
	if f.backend.count("enrollment.create") != 0 || f.backend.count("enrollment.by_profile") != 0 {
		t.Error("课程码无效时不应继续查询或插入")
	}
}

func TestGateway_JoinByCourseCode_Success(t *testing.T) {
	f := setupTestGateway()
	f.signInAs(model.Profile{ID: "u1", Email: "j@x.edu", DisplayName: "Jane", Role: model.RoleStudent})
	listsBefore := f.backend.count("semester.list")

	row, err := f.gw.JoinByCourseCode(context.Background(), &dto.JoinByCourseCodeRequest{CourseCode: "ART-300", StudentNumber: "555", TagNumber: "02"})
	if err != nil {
		t.Fatalf("JoinByCourseCode 失败: %v", err)
	}
	if row.SemesterID != "sem-b" || row.ProfileID == nil || *row.ProfileID != "u1" || row.FullName != "Jane" {
		t.Errorf("插入的选课不符: %+v", row)
	}
	if f.backend.count("semester.list") != listsBefore+1 || f.backend.count("project.list") != 2 || f.backend.count("schedule.list") != 2 {
		t.Error("加入后应重读学期、项目和日程")
	}
	if f.backend.count("checkin.list") != 1 {
		t.Error("加入后不应重读其他集合")
	}
	if cur, _ := f.store.CurrentSemester(); cur.ID != "sem-b" {
		t.Errorf("加入后应选中该学期，实际 %s", cur.ID)
	}

	_, err = f.gw.JoinByCourseCode(context.Background(), &dto.JoinByCourseCodeRequest{CourseCode: "ART-300", StudentNumber: "556", TagNumber: "03"})
	me := assertKind(t, err, KindValidation)
	if me.Message != ErrAlreadyEnrolled.Error() {
		t.Errorf("重复加入期望 already enrolled，实际 %q", me.Message)
	}
}

func TestGateway_JoinByCourseCode_RequiresSignIn(t *testing.T) {
	f := setupTestGateway()
	f.identity.mu.Lock()
	f.identity.profile = nil
	f.identity.mu.Unlock()

	_, err := f.gw.JoinByCourseCode(context.Background(), &dto.JoinByCourseCodeRequest{CourseCode: "ART-300"})
	assertKind(t, err, KindAuthorization)
}

// ── ChangeRole ──

func TestGateway_ChangeRole_OtherUser(t *testing.T) {
	f := setupTestGateway()
	row, err := f.gw.ChangeRole(context.Background(), "u1", model.RoleMonitor)
	if err != nil {
		t.Fatalf("ChangeRole 失败: %v", err)
	}
	if row.Role != model.RoleMonitor {
		t.Errorf("角色未更新: %s", row.Role)
	}
	if f.identity.refreshed != 0 {
		t.Error("修改他人角色不应刷新本人档案")
	}
}

func TestGateway_ChangeRole_SelfRefreshesAndReloads(t *testing.T) {
	f := setupTestGateway()
	before := f.backend.count("checkin.list")

	if _, err := f.gw.ChangeRole(context.Background(), "staff", model.RoleAdminTechnologist); err != nil {
		t.Fatalf("ChangeRole 失败: %v", err)
	}
	if f.identity.refreshed != 1 {
		t.Error("修改本人角色应刷新会话档案")
	}
	if p, _ := f.identity.Profile(); p.Role != model.RoleAdminTechnologist {
		t.Errorf("会话档案应为新角色，实际 %s", p.Role)
	}
	if f.backend.count("checkin.list") != before+1 {
		t.Error("修改本人角色应重读全部集合")
	}
}

func TestGateway_ChangeRole_PermissionDenied(t *testing.T) {
	f := setupTestGateway()
	f.backend.fail("profile.role", permissionErr())

	_, err := f.gw.ChangeRole(context.Background(), "u1", model.RoleAdminInstructor)
	me := assertKind(t, err, KindAuthorization)
	if me.Message != PermissionDeniedMessage {
		t.Errorf("期望固定提示，实际 %q", me.Message)
	}
}

// ── CheckIn / Upload ──

func TestGateway_PostCheckIn(t *testing.T) {
	f := setupTestGateway()

	row, err := f.gw.PostCheckIn(context.Background(), &dto.PostCheckInRequest{ProjectID: "p1", StudentID: "u1", Content: "Nice joints"})
	if err != nil {
		t.Fatalf("PostCheckIn 失败: %v", err)
	}
	if row.AuthorID != "staff" || row.Type != model.CheckInInstructorComment {
		t.Errorf("教职人员给学生的记录应为 instructor_comment: %+v", row)
	}
	if got := f.store.CheckIns(); got[0].ID != row.ID || len(got) != 3 {
		t.Error("新记录应置于最前")
	}
}

func TestGateway_UploadAttachment(t *testing.T) {
	f := setupTestGateway()

	url, err := f.gw.UploadAttachment(context.Background(), "my photo (1).png", "image/png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("UploadAttachment 失败: %v", err)
	}
	wantKey := "staff/1767225600000_my_photo__1_.png"
	if len(f.uploader.keys) != 1 || f.uploader.keys[0] != wantKey {
		t.Errorf("对象键期望 %s，实际 %v", wantKey, f.uploader.keys)
	}
	if !strings.HasSuffix(url, wantKey) {
		t.Errorf("应返回公开 URL，实际 %s", url)
	}
	if len(f.store.CheckIns()) != 2 {
		t.Error("上传不应修改缓存集合")
	}
}

func TestGateway_UploadAttachment_Failure(t *testing.T) {
	f := setupTestGateway()
	f.uploader.err = errors.New("bucket not found")

	_, err := f.gw.UploadAttachment(context.Background(), "a.txt", "", strings.NewReader("x"))
	me := assertKind(t, err, KindUnknown)
	if me.Message != "bucket not found" {
		t.Errorf("未映射错误应透传原始信息，实际 %q", me.Message)
	}
}

// ── Status / Notes ──

func TestGateway_UpdateProjectStatus_SequentialOneRow(t *testing.T) {
	f := setupTestGateway()
	f.store.ReplaceProjectStates(nil)
	f.backend.states = nil
	ctx := context.Background()

	if _, err := f.gw.UpdateProjectStatus(ctx, "p1", "u1", model.StatusInProgress); err != nil {
		t.Fatalf("第一次更新失败: %v", err)
	}
	if _, err := f.gw.UpdateProjectStatus(ctx, "p1", "u1", model.StatusSubmitted); err != nil {
		t.Fatalf("第二次更新失败: %v", err)
	}

	states := f.store.ProjectStates()
	if len(states) != 1 {
		t.Fatalf("同一复合键应只有 1 行，实际 %d", len(states))
	}
	if states[0].Status != model.StatusSubmitted {
		t.Errorf("应为第二次的状态 submitted，实际 %s", states[0].Status)
	}
	if len(f.backend.states) != 1 {
		t.Errorf("后端也应只有 1 行，实际 %d", len(f.backend.states))
	}
}

func TestGateway_UpdateProjectStatus_ConcurrentOneRow(t *testing.T) {
	f := setupTestGateway()
	f.store.ReplaceProjectStates(nil)
	f.backend.states = nil
	f.backend.upsertHook = func() {
		runtime.Gosched()
		time.Sleep(time.Millisecond)
	}

	statuses := []model.ProjectStatus{model.StatusInProgress, model.StatusSubmitted, model.StatusReviewed, model.StatusRevisionRequested}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(st model.ProjectStatus) {
			defer wg.Done()
			if _, err := f.gw.UpdateProjectStatus(context.Background(), "p1", "u1", st); err != nil {
				t.Errorf("并发更新失败: %v", err)
			}
		}(statuses[i%len(statuses)])
	}
	wg.Wait()

	if n := len(f.store.ProjectStates()); n != 1 {
		t.Errorf("并发写入后缓存应只有 1 行，实际 %d", n)
	}
	if n := len(f.backend.states); n != 1 {
		t.Errorf("并发写入后后端应只有 1 行，实际 %d", n)
	}
	if f.backend.maxFlight != 1 {
		t.Errorf("同一复合键的 upsert 应串行，最大并发 %d", f.backend.maxFlight)
	}
	if f.store.ProjectStates()[0].Status != f.backend.states[0].Status {
		t.Error("缓存与后端的最终状态应一致")
	}
	if f.gw.(*gateway).locks.size() != 0 {
		t.Error("键锁应在空闲后回收")
	}
}

func TestGateway_UpdateInstructorNotes_KeepsStatus(t *testing.T) {
	f := setupTestGateway()
	ctx := context.Background()

	row, err := f.gw.UpdateInstructorNotes(ctx, "p1", "u1", "Tighten the tenons")
	if err != nil {
		t.Fatalf("UpdateInstructorNotes 失败: %v", err)
	}
	if row.Status != model.StatusSubmitted || row.InstructorNotes != "Tighten the tenons" {
		t.Errorf("批注更新不应改变状态: %+v", row)
	}
	st, ok := f.store.ProjectState(model.StateKey{ProjectID: "p1", StudentID: "u1"})
	if !ok || st.ID != "ps1" || st.InstructorNotes != "Tighten the tenons" {
		t.Errorf("缓存应按复合键替换原行: %+v", st)
	}
}

func TestGateway_UpdateProjectStatus_InvalidStatus(t *testing.T) {
	f := setupTestGateway()
	_, err := f.gw.UpdateProjectStatus(context.Background(), "p1", "u1", "done")
	assertKind(t, err, KindValidation)
	if f.backend.count("state.upsert") != 0 {
		t.Error("非法状态不应写入后端")
	}
}

func TestGateway_StudentOwnProgressAllowed(t *testing.T) {
	f := setupTestGateway()
	f.signInAs(model.Profile{ID: "u1", Email: "j@x.edu", DisplayName: "Jane", Role: model.RoleStudent})
	ctx := context.Background()

	row, err := f.gw.PostCheckIn(ctx, &dto.PostCheckInRequest{ProjectID: "p1", Content: "Glued up"})
	if err != nil {
		t.Fatalf("学生给本人发布记录应成功: %v", err)
	}
	if row.StudentID != "u1" || row.Type != model.CheckInProgressUpdate {
		t.Errorf("应记在本人名下且为 progress_update: %+v", row)
	}
	if _, err := f.gw.UpdateProjectStatus(ctx, "p1", "u1", model.StatusSubmitted); err != nil {
		t.Errorf("学生提交本人进度应成功: %v", err)
	}
}

func TestGateway_StudentCannotWriteOthersProgress(t *testing.T) {
	f := setupTestGateway()
	f.signInAs(model.Profile{ID: "u1", Email: "j@x.edu", DisplayName: "Jane", Role: model.RoleStudent})
	ctx := context.Background()

	_, err := f.gw.UpdateProjectStatus(ctx, "p1", "someone-else", model.StatusReviewed)
	if me := assertKind(t, err, KindAuthorization); me.Message != PermissionDeniedMessage {
		t.Errorf("应返回权限拒绝提示，实际 %q", me.Message)
	}

	_, err = f.gw.PostCheckIn(ctx, &dto.PostCheckInRequest{ProjectID: "p1", StudentID: "someone-else", Content: "x"})
	assertKind(t, err, KindAuthorization)

	_, err = f.gw.PostCheckIn(ctx, &dto.PostCheckInRequest{ProjectID: "p1", Content: "x", Type: string(model.CheckInInstructorComment)})
	assertKind(t, err, KindAuthorization)

	_, err = f.gw.UpdateProjectStatus(ctx, "p1", "u1", model.StatusReviewed)
	assertKind(t, err, KindAuthorization)

	_, err = f.gw.UpdateInstructorNotes(ctx, "p1", "u1", "self-review")
	assertKind(t, err, KindAuthorization)

	if f.backend.count("state.upsert") != 0 || f.backend.count("checkin.create") != 0 {
		t.Error("越权写入不应到达后端")
	}
	if last := lastNotification(t, f.store); last.Level != model.NotifyError {
		t.Errorf("越权失败应记录错误通知: %+v", last)
	}
}

// ── Notifications ──

func TestGateway_DismissNotifications(t *testing.T) {
	f := setupTestGateway()
	a := f.store.Notify(model.NotifyInfo, "a")
	f.store.Notify(model.NotifyInfo, "b")

	if n := f.gw.DismissNotifications(a.ID, "missing"); n != 1 {
		t.Errorf("期望关闭 1 条，实际 %d", n)
	}
	if n := f.gw.DismissNotifications(); n != 1 || len(f.store.Notifications()) != 0 {
		t.Errorf("未指定 id 时应清空全部，关闭 %d 条", n)
	}
}
