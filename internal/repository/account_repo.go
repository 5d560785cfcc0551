package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"project-tracker/internal/model"
)

// AccountRepository 认证账号数据访问接口
type AccountRepository interface {
	// CreateWithProfile 在同一事务内创建账号及其默认档案
	CreateWithProfile(ctx context.Context, account *model.Account, profile *model.Profile) error
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	GetByID(ctx context.Context, id string) (*model.Account, error)
}

type accountRepo struct {
	db *gorm.DB
}

// NewAccountRepo 创建 AccountRepository 实例
func NewAccountRepo(db *gorm.DB) AccountRepository {
	return &accountRepo{db: db}
}

func (r *accountRepo) CreateWithProfile(ctx context.Context, account *model.Account, profile *model.Profile) error {
	return translate(r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Returning{}).Create(account).Error; err != nil {
			return err
		}
		profile.ID = account.ID
		if profile.Email == "" {
			profile.Email = account.Email
		}
		if profile.DisplayName == "" {
			profile.DisplayName = account.DisplayName
		}
		return tx.Clauses(clause.Returning{}).Create(profile).Error
	}))
}

func (r *accountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).
		Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&account).Error
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *accountRepo) GetByID(ctx context.Context, id string) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&account).Error
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}
