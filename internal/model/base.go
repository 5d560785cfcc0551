package model

import (
	"strconv"
	"strings"
)

// Role 用户角色
type Role string

const (
	RoleAdminTechnologist Role = "admin_technologist"
	RoleAdminInstructor   Role = "admin_instructor"
	RoleMonitor           Role = "monitor"
	RoleStudent           Role = "student"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleAdminTechnologist, RoleAdminInstructor, RoleMonitor, RoleStudent:
		return true
	}
	return false
}

// IsStaff 管理员、教师与助教视为教职人员
func (r Role) IsStaff() bool {
	return r == RoleAdminTechnologist || r == RoleAdminInstructor || r == RoleMonitor
}

// IsAdmin 仅两类管理员
func (r Role) IsAdmin() bool {
	return r == RoleAdminTechnologist || r == RoleAdminInstructor
}

// StaffRoles 所有教职角色（路由鉴权使用）
func StaffRoles() []Role {
	return []Role{RoleAdminTechnologist, RoleAdminInstructor, RoleMonitor}
}

// AdminRoles 管理员角色
func AdminRoles() []Role {
	return []Role{RoleAdminTechnologist, RoleAdminInstructor}
}

// TagValue 将牌号解析为数字用于排序；非数字或为空时视为 0
func TagValue(tag string) int {
	n, err := strconv.Atoi(strings.TrimSpace(tag))
	if err != nil {
		return 0
	}
	return n
}
