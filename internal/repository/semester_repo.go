package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"project-tracker/internal/model"
)

// SemesterRepository 学期数据访问接口
type SemesterRepository interface {
	List(ctx context.Context) ([]model.Semester, error)
	Create(ctx context.Context, semester *model.Semester) error
	GetActiveByCode(ctx context.Context, courseCode string) (*model.Semester, error)
}

type semesterRepo struct {
	db *gorm.DB
}

// NewSemesterRepo 创建 SemesterRepository 实例
func NewSemesterRepo(db *gorm.DB) SemesterRepository {
	return &semesterRepo{db: db}
}

func (r *semesterRepo) List(ctx context.Context) ([]model.Semester, error) {
	var semesters []model.Semester
	err := r.db.WithContext(ctx).
		Order("start_date DESC").
		Find(&semesters).Error
	return semesters, translate(err)
}

// Create 插入并回填后端生成的列
func (r *semesterRepo) Create(ctx context.Context, semester *model.Semester) error {
	return translate(r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Create(semester).Error)
}

// GetActiveByCode 按课程码查找激活中的学期，多行时取最早创建的一行
func (r *semesterRepo) GetActiveByCode(ctx context.Context, courseCode string) (*model.Semester, error) {
	var semester model.Semester
	err := r.db.WithContext(ctx).
		Where("course_code = ? AND is_active = ?", courseCode, true).
		Order("created_at ASC").
		First(&semester).Error
	if err != nil {
		return nil, translate(err)
	}
	return &semester, nil
}
