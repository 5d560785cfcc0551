package repository

import (
	"errors"

	"gorm.io/gorm"

	pkgerrors "project-tracker/pkg/errors"
)

// ErrNotFound 目标行不存在（与 gorm.ErrRecordNotFound 等价，便于调用方统一判断）
var ErrNotFound = gorm.ErrRecordNotFound

// Repository 所有 Repository 的聚合入口
type Repository struct {
	Semester     SemesterRepository
	Project      ProjectRepository
	ScheduleItem ScheduleItemRepository
	Profile      ProfileRepository
	Enrollment   EnrollmentRepository
	CheckIn      CheckInRepository
	ProjectState ProjectStateRepository
	Account      AccountRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		Semester:     NewSemesterRepo(db),
		Project:      NewProjectRepo(db),
		ScheduleItem: NewScheduleItemRepo(db),
		Profile:      NewProfileRepo(db),
		Enrollment:   NewEnrollmentRepo(db),
		CheckIn:      NewCheckInRepo(db),
		ProjectState: NewProjectStateRepo(db),
		Account:      NewAccountRepo(db),
	}
}

// translate 把驱动错误转为 BackendError，记录不存在保持 gorm 哨兵错误
func translate(err error) error {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return pkgerrors.FromDriver(err)
}
