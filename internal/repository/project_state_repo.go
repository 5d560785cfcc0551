package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"project-tracker/internal/model"
)

// 可通过 Upsert 覆盖的列
const (
	ColumnStatus          = "status"
	ColumnInstructorNotes = "instructor_notes"
)

// ProjectStateRepository 项目进度数据访问接口
type ProjectStateRepository interface {
	List(ctx context.Context) ([]model.ProjectState, error)
	// Upsert 按 (project_id, student_id) 原子地插入或更新 columns，并刷新活动时间
	Upsert(ctx context.Context, state *model.ProjectState, columns ...string) error
}

type projectStateRepo struct {
	db *gorm.DB
}

// NewProjectStateRepo 创建 ProjectStateRepository 实例
func NewProjectStateRepo(db *gorm.DB) ProjectStateRepository {
	return &projectStateRepo{db: db}
}

func (r *projectStateRepo) List(ctx context.Context) ([]model.ProjectState, error) {
	var states []model.ProjectState
	err := r.db.WithContext(ctx).Find(&states).Error
	return states, translate(err)
}

// Upsert INSERT ... ON CONFLICT (project_id, student_id) DO UPDATE ... RETURNING *
func (r *projectStateRepo) Upsert(ctx context.Context, state *model.ProjectState, columns ...string) error {
	if len(columns) == 0 {
		return fmt.Errorf("project state upsert: 未指定更新列")
	}
	for _, c := range columns {
		if c != ColumnStatus && c != ColumnInstructorNotes {
			return fmt.Errorf("project state upsert: 不支持的列 %q", c)
		}
	}

	set := clause.AssignmentColumns(columns)
	set = append(set,
		clause.Assignment{Column: clause.Column{Name: "last_activity_at"}, Value: gorm.Expr("now()")},
		clause.Assignment{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr("now()")},
	)

	return translate(r.db.WithContext(ctx).
		Clauses(
			clause.OnConflict{
				Columns:   []clause.Column{{Name: "project_id"}, {Name: "student_id"}},
				DoUpdates: set,
			},
			clause.Returning{},
		).
		Create(state).Error)
}
