package model

import "time"

// Profile 用户档案 — 对应 profiles（与认证账号 1:1，id 相同）
type Profile struct {
	ID          string    `gorm:"type:uuid;primaryKey"               json:"id"`
	Email       string    `gorm:"type:varchar(255);not null"         json:"email"`
	DisplayName string    `gorm:"type:varchar(200);not null"         json:"display_name"`
	Role        Role      `gorm:"type:varchar(30);not null"          json:"role"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	// Synthesized 档案行缺失时由会话层临时合成，未写入后端
	Synthesized bool `gorm:"-" json:"synthesized,omitempty"`
}

// TableName 指定表名
func (Profile) TableName() string { return "profiles" }

// Account 认证账号 — 对应 auth_accounts（认证提供方私有表）
type Account struct {
	ID           string     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email        string     `gorm:"type:varchar(255);not null;uniqueIndex"         json:"email"`
	PasswordHash string     `gorm:"type:varchar(255);not null"                     json:"-"`
	DisplayName  string     `gorm:"type:varchar(200);not null"                     json:"display_name"`
	ConfirmedAt  *time.Time `json:"confirmed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"created_at"`
}

// TableName 指定表名
func (Account) TableName() string { return "auth_accounts" }
