package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"project-tracker/internal/model"
)

// ProjectRepository 项目数据访问接口
type ProjectRepository interface {
	List(ctx context.Context) ([]model.Project, error)
	Create(ctx context.Context, project *model.Project) error
	SetPublished(ctx context.Context, id string, published bool) (*model.Project, error)
}

type projectRepo struct {
	db *gorm.DB
}

// NewProjectRepo 创建 ProjectRepository 实例
func NewProjectRepo(db *gorm.DB) ProjectRepository {
	return &projectRepo{db: db}
}

func (r *projectRepo) List(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	err := r.db.WithContext(ctx).
		Order("sequence_order ASC").
		Order("created_at ASC").
		Find(&projects).Error
	return projects, translate(err)
}

func (r *projectRepo) Create(ctx context.Context, project *model.Project) error {
	return translate(r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Create(project).Error)
}

// SetPublished 切换发布状态并返回更新后的行
func (r *projectRepo) SetPublished(ctx context.Context, id string, published bool) (*model.Project, error) {
	var project model.Project
	res := r.db.WithContext(ctx).
		Model(&project).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Update("is_published", published)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &project, nil
}
