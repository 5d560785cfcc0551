package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"project-tracker/internal/dto"
	"project-tracker/internal/model"
	"project-tracker/internal/repository"
	"project-tracker/internal/store"
)

// ────────────────────── EnrollStudent ──────────────────────

// EnrollStudent 教职人员录入学生；缓存中已有同邮箱档案时直接关联，否则为待关联行
func (g *gateway) EnrollStudent(ctx context.Context, req *dto.EnrollStudentRequest) (*model.Enrollment, error) {
	if err := g.connected(opEnrollStudent); err != nil {
		return nil, err
	}

	vals := conflictValues{
		TagNumber:     strings.TrimSpace(req.TagNumber),
		StudentNumber: strings.TrimSpace(req.StudentNumber),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
	}

	semesterID, err := g.semesterOrCurrent(req.SemesterID)
	if err != nil {
		return nil, g.fail(opEnrollStudent, err, vals)
	}
	if vals.Email == "" || vals.StudentNumber == "" || vals.TagNumber == "" {
		return nil, g.fail(opEnrollStudent, invalid("Email, student number and tag number are required."), vals)
	}

	row := &model.Enrollment{
		SemesterID:    semesterID,
		Email:         vals.Email,
		FullName:      strings.TrimSpace(req.FullName),
		StudentNumber: vals.StudentNumber,
		TagNumber:     vals.TagNumber,
		Status:        model.EnrollmentActive,
	}
	for _, p := range g.store.Profiles() {
		if strings.EqualFold(p.Email, vals.Email) {
			id := p.ID
			row.ProfileID = &id
			break
		}
	}

	if err := g.repo.Enrollment.Create(ctx, row); err != nil {
		return nil, g.fail(opEnrollStudent, err, vals)
	}

	g.store.AddEnrollment(*row)
	msg := fmt.Sprintf("%s enrolled.", displayOr(row.FullName, row.Email))
	if row.Pending() {
		msg = fmt.Sprintf("%s enrolled; the enrollment will link when they sign up.", displayOr(row.FullName, row.Email))
	}
	g.succeed(opEnrollStudent, msg)
	return row, nil
}

// ────────────────────── JoinByCourseCode ──────────────────────

// JoinByCourseCode 三次往返：解析课程码、检查重复、插入
func (g *gateway) JoinByCourseCode(ctx context.Context, req *dto.JoinByCourseCodeRequest) (*model.Enrollment, error) {
	if err := g.connected(opJoinByCourseCode); err != nil {
		return nil, err
	}

	profile, err := g.currentProfile()
	if err != nil {
		return nil, g.fail(opJoinByCourseCode, err, conflictValues{})
	}
	vals := conflictValues{
		TagNumber:     strings.TrimSpace(req.TagNumber),
		StudentNumber: strings.TrimSpace(req.StudentNumber),
		Email:         profile.Email,
	}

	code := strings.TrimSpace(req.CourseCode)
	if code == "" {
		return nil, g.fail(opJoinByCourseCode, ErrInvalidCourseCode, vals)
	}

	// 1. 课程码 → 激活学期
	semester, err := g.repo.Semester.GetActiveByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			err = ErrInvalidCourseCode
		}
		return nil, g.fail(opJoinByCourseCode, err, vals)
	}

	// 2. 是否已加入
	_, err = g.repo.Enrollment.GetByProfileAndSemester(ctx, profile.ID, semester.ID)
	switch {
	case err == nil:
		return nil, g.fail(opJoinByCourseCode, ErrAlreadyEnrolled, vals)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, g.fail(opJoinByCourseCode, err, vals)
	}

	// 3. 插入
	profileID := profile.ID
	row := &model.Enrollment{
		SemesterID:    semester.ID,
		ProfileID:     &profileID,
		Email:         profile.Email,
		FullName:      profile.DisplayName,
		StudentNumber: vals.StudentNumber,
		TagNumber:     vals.TagNumber,
		Status:        model.EnrollmentActive,
	}
	if err := g.repo.Enrollment.Create(ctx, row); err != nil {
		return nil, g.fail(opJoinByCourseCode, err, vals)
	}

	g.store.AddEnrollment(*row)

	// 新学期的可见数据
	if err := g.loader.Reload(ctx, store.Semesters, store.Projects, store.ScheduleItems); err != nil {
		g.logger.Warn("加入学期后刷新失败", zap.Error(err))
	}
	g.store.SelectSemester(semester.ID)

	g.succeed(opJoinByCourseCode, fmt.Sprintf("Joined %s.", semester.Name))
	return row, nil
}

// ────────────────────── ChangeRole ──────────────────────

// ChangeRole 修改档案角色；修改本人时刷新会话档案并重读全部集合
func (g *gateway) ChangeRole(ctx context.Context, profileID string, role model.Role) (*model.Profile, error) {
	if err := g.connected(opChangeRole); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, g.fail(opChangeRole, invalid("Unknown role %q.", role), conflictValues{})
	}

	row, err := g.repo.Profile.UpdateRole(ctx, profileID, role)
	if err != nil {
		return nil, g.fail(opChangeRole, err, conflictValues{})
	}
	g.store.UpsertProfile(*row)

	if self, err := g.currentProfile(); err == nil && self.ID == row.ID {
		if err := g.identity.RefreshProfile(ctx); err != nil {
			g.logger.Warn("刷新会话档案失败", zap.Error(err))
		}
		if err := g.loader.Reload(ctx, store.AllCollections()...); err != nil {
			g.logger.Warn("角色变更后刷新失败", zap.Error(err))
		}
	}

	g.succeed(opChangeRole, fmt.Sprintf("%s is now %s.", displayOr(row.DisplayName, row.Email), row.Role))
	return row, nil
}

func displayOr(name, fallback string) string {
	if strings.TrimSpace(name) != "" {
		return name
	}
	return fallback
}
