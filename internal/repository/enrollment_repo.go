package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"project-tracker/internal/model"
)

// EnrollmentRepository 选课数据访问接口
type EnrollmentRepository interface {
	List(ctx context.Context) ([]model.Enrollment, error)
	Create(ctx context.Context, enrollment *model.Enrollment) error
	GetByProfileAndSemester(ctx context.Context, profileID, semesterID string) (*model.Enrollment, error)
	ListPendingByEmail(ctx context.Context, email string) ([]model.Enrollment, error)
	LinkProfile(ctx context.Context, ids []string, profileID string) (int64, error)
}

type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) List(ctx context.Context) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&enrollments).Error
	return enrollments, translate(err)
}

func (r *enrollmentRepo) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return translate(r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Create(enrollment).Error)
}

func (r *enrollmentRepo) GetByProfileAndSemester(ctx context.Context, profileID, semesterID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.WithContext(ctx).
		Where("profile_id = ? AND semester_id = ?", profileID, semesterID).
		First(&enrollment).Error
	if err != nil {
		return nil, translate(err)
	}
	return &enrollment, nil
}

// ListPendingByEmail 查找尚未关联档案、邮箱匹配（忽略大小写）的选课行
func (r *enrollmentRepo) ListPendingByEmail(ctx context.Context, email string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Where("lower(email) = ? AND profile_id IS NULL", strings.ToLower(strings.TrimSpace(email))).
		Find(&enrollments).Error
	return enrollments, translate(err)
}

// LinkProfile 一次批量更新把 ids 关联到 profileID，仅作用于仍待关联的行
func (r *enrollmentRepo) LinkProfile(ctx context.Context, ids []string, profileID string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("id IN ? AND profile_id IS NULL", ids).
		Update("profile_id", profileID)
	return res.RowsAffected, translate(res.Error)
}
