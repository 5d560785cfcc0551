package service

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"project-tracker/internal/dto"
	"project-tracker/internal/model"
	"project-tracker/internal/repository"
)

// ────────────────────── PostCheckIn ──────────────────────

// PostCheckIn 发布进度记录；作者为本人，未指定学生时记在本人名下
func (g *gateway) PostCheckIn(ctx context.Context, req *dto.PostCheckInRequest) (*model.CheckIn, error) {
	if err := g.connected(opPostCheckIn); err != nil {
		return nil, err
	}

	author, err := g.currentProfile()
	if err != nil {
		return nil, g.fail(opPostCheckIn, err, conflictValues{})
	}
	content := strings.TrimSpace(req.Content)
	if req.ProjectID == "" || content == "" {
		return nil, g.fail(opPostCheckIn, invalid("Project and content are required."), conflictValues{})
	}

	studentID := req.StudentID
	if studentID == "" {
		studentID = author.ID
	}

	typ := model.CheckInType(req.Type)
	if typ == "" {
		typ = model.CheckInProgressUpdate
		if studentID != author.ID && author.Role.IsStaff() {
			typ = model.CheckInInstructorComment
		}
	}
	if !typ.Valid() {
		return nil, g.fail(opPostCheckIn, invalid("Unknown check-in type %q.", req.Type), conflictValues{})
	}
	if err := authorizeProgressWrite(author, studentID); err != nil {
		return nil, g.fail(opPostCheckIn, err, conflictValues{})
	}
	if typ == model.CheckInInstructorComment && !author.Role.IsStaff() {
		return nil, g.fail(opPostCheckIn, ErrPermissionDenied, conflictValues{})
	}

	row := &model.CheckIn{
		ProjectID: req.ProjectID,
		StudentID: studentID,
		AuthorID:  author.ID,
		Type:      typ,
		Content:   content,
	}
	if u := strings.TrimSpace(req.AttachmentURL); u != "" {
		row.AttachmentURL = &u
	}

	if err := g.repo.CheckIn.Create(ctx, row); err != nil {
		return nil, g.fail(opPostCheckIn, err, conflictValues{})
	}

	g.store.PrependCheckIn(*row)
	g.succeed(opPostCheckIn, "Check-in posted.")
	return row, nil
}

// ────────────────────── UploadAttachment ──────────────────────

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFilename 把 [A-Za-z0-9._-] 以外的字符替换为 _
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// AttachmentKey 对象键 {profileId}/{unixMillis}_{filename}
func AttachmentKey(profileID string, unixMillis int64, filename string) string {
	return fmt.Sprintf("%s/%d_%s", profileID, unixMillis, SanitizeFilename(filename))
}

// UploadAttachment 上传附件并返回公开 URL，不写缓存
func (g *gateway) UploadAttachment(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	if err := g.connected(opUploadAttachment); err != nil {
		return "", err
	}
	if g.uploader == nil {
		return "", g.fail(opUploadAttachment, ErrStorageDisabled, conflictValues{})
	}

	profile, err := g.currentProfile()
	if err != nil {
		return "", g.fail(opUploadAttachment, err, conflictValues{})
	}
	if strings.TrimSpace(filename) == "" {
		return "", g.fail(opUploadAttachment, invalid("File name is required."), conflictValues{})
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := AttachmentKey(profile.ID, g.now().UnixMilli(), filename)
	url, err := g.uploader.Upload(ctx, key, contentType, body)
	if err != nil {
		return "", g.fail(opUploadAttachment, err, conflictValues{})
	}

	g.succeed(opUploadAttachment, "")
	return url, nil
}

// ────────────────────── Status / Notes ──────────────────────

func (g *gateway) UpdateProjectStatus(ctx context.Context, projectID, studentID string, status model.ProjectStatus) (*model.ProjectState, error) {
	if err := g.connected(opUpdateProjectStatus); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, g.fail(opUpdateProjectStatus, invalid("Unknown status %q.", status), conflictValues{})
	}

	self, err := g.currentProfile()
	if err != nil {
		return nil, g.fail(opUpdateProjectStatus, err, conflictValues{})
	}
	if err := authorizeProgressWrite(self, studentID); err != nil {
		return nil, g.fail(opUpdateProjectStatus, err, conflictValues{})
	}
	if !self.Role.IsStaff() && status.StaffOnly() {
		return nil, g.fail(opUpdateProjectStatus, ErrPermissionDenied, conflictValues{})
	}

	state := model.ProjectState{ProjectID: projectID, StudentID: studentID, Status: status}
	row, err := g.upsertState(ctx, opUpdateProjectStatus, state, repository.ColumnStatus)
	if err != nil {
		return nil, err
	}
	g.succeed(opUpdateProjectStatus, fmt.Sprintf("Status set to %s.", row.Status))
	return row, nil
}

func (g *gateway) UpdateInstructorNotes(ctx context.Context, projectID, studentID, notes string) (*model.ProjectState, error) {
	if err := g.connected(opUpdateInstructorNotes); err != nil {
		return nil, err
	}

	self, err := g.currentProfile()
	if err != nil {
		return nil, g.fail(opUpdateInstructorNotes, err, conflictValues{})
	}
	if !self.Role.IsStaff() {
		return nil, g.fail(opUpdateInstructorNotes, ErrPermissionDenied, conflictValues{})
	}

	state := model.ProjectState{ProjectID: projectID, StudentID: studentID, InstructorNotes: notes}
	row, err := g.upsertState(ctx, opUpdateInstructorNotes, state, repository.ColumnInstructorNotes)
	if err != nil {
		return nil, err
	}
	g.succeed(opUpdateInstructorNotes, "Notes saved.")
	return row, nil
}

// authorizeProgressWrite 学生只能写本人名下的进度；空 studentID 交由后续校验
func authorizeProgressWrite(self model.Profile, studentID string) error {
	if self.Role.IsStaff() || studentID == "" || studentID == self.ID {
		return nil
	}
	return ErrPermissionDenied
}

// upsertState 同一复合键串行：后端原子 upsert，返回行按复合键写入缓存
func (g *gateway) upsertState(ctx context.Context, op string, state model.ProjectState, column string) (*model.ProjectState, error) {
	if state.ProjectID == "" || state.StudentID == "" {
		return nil, g.fail(op, invalid("Project and student are required."), conflictValues{})
	}

	unlock := g.locks.Lock(state.Key())
	defer unlock()

	if err := g.repo.ProjectState.Upsert(ctx, &state, column); err != nil {
		return nil, g.fail(op, err, conflictValues{})
	}
	g.store.UpsertProjectState(state)
	return &state, nil
}
