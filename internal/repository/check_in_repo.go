package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"project-tracker/internal/model"
)

// CheckInRepository 进度记录数据访问接口（只追加）
type CheckInRepository interface {
	List(ctx context.Context) ([]model.CheckIn, error)
	GetByID(ctx context.Context, id string) (*model.CheckIn, error)
	Create(ctx context.Context, checkIn *model.CheckIn) error
}

type checkInRepo struct {
	db *gorm.DB
}

// NewCheckInRepo 创建 CheckInRepository 实例
func NewCheckInRepo(db *gorm.DB) CheckInRepository {
	return &checkInRepo{db: db}
}

func (r *checkInRepo) List(ctx context.Context) ([]model.CheckIn, error) {
	var checkIns []model.CheckIn
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&checkIns).Error
	return checkIns, translate(err)
}

func (r *checkInRepo) GetByID(ctx context.Context, id string) (*model.CheckIn, error) {
	var checkIn model.CheckIn
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&checkIn).Error
	if err != nil {
		return nil, translate(err)
	}
	return &checkIn, nil
}

func (r *checkInRepo) Create(ctx context.Context, checkIn *model.CheckIn) error {
	return translate(r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Create(checkIn).Error)
}
