package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"project-tracker/internal/model"
)

// ProfileRepository 用户档案数据访问接口
type ProfileRepository interface {
	List(ctx context.Context) ([]model.Profile, error)
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	UpdateRole(ctx context.Context, id string, role model.Role) (*model.Profile, error)
}

type profileRepo struct {
	db *gorm.DB
}

// NewProfileRepo 创建 ProfileRepository 实例
func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) List(ctx context.Context) ([]model.Profile, error) {
	var profiles []model.Profile
	err := r.db.WithContext(ctx).
		Order("display_name ASC").
		Find(&profiles).Error
	return profiles, translate(err)
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&profile).Error
	if err != nil {
		return nil, translate(err)
	}
	return &profile, nil
}

// UpdateRole 修改角色并返回更新后的行
func (r *profileRepo) UpdateRole(ctx context.Context, id string, role model.Role) (*model.Profile, error) {
	var profile model.Profile
	res := r.db.WithContext(ctx).
		Model(&profile).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Update("role", role)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &profile, nil
}
