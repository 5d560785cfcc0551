package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"project-tracker/internal/model"
)

// ScheduleItemRepository 日程数据访问接口
type ScheduleItemRepository interface {
	List(ctx context.Context) ([]model.ScheduleItem, error)
	Create(ctx context.Context, item *model.ScheduleItem) error
	Delete(ctx context.Context, id string) error
}

type scheduleItemRepo struct {
	db *gorm.DB
}

// NewScheduleItemRepo 创建 ScheduleItemRepository 实例
func NewScheduleItemRepo(db *gorm.DB) ScheduleItemRepository {
	return &scheduleItemRepo{db: db}
}

func (r *scheduleItemRepo) List(ctx context.Context) ([]model.ScheduleItem, error) {
	var items []model.ScheduleItem
	err := r.db.WithContext(ctx).
		Order("date ASC").
		Find(&items).Error
	return items, translate(err)
}

func (r *scheduleItemRepo) Create(ctx context.Context, item *model.ScheduleItem) error {
	return translate(r.db.WithContext(ctx).
		Clauses(clause.Returning{}).
		Create(item).Error)
}

func (r *scheduleItemRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.ScheduleItem{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
