package service

import (
	"errors"
	"fmt"
	"strings"

	"project-tracker/internal/auth"
	"project-tracker/internal/repository"
	pkgerrors "project-tracker/pkg/errors"
)

// ErrorKind 写操作失败分类
type ErrorKind string

const (
	KindConnectivity  ErrorKind = "connectivity"
	KindConstraint    ErrorKind = "constraint"
	KindAuthorization ErrorKind = "authorization"
	KindValidation    ErrorKind = "validation"
	KindUnknown       ErrorKind = "unknown"
)

// 面向用户的错误文案
var (
	ErrNotConnected      = errors.New("Not connected to a backend. Configure the backend endpoint and credential, then restart.")
	ErrNotSignedIn       = errors.New("You must be signed in to do that.")
	ErrInvalidCourseCode = errors.New("Invalid or inactive Course Code.")
	ErrAlreadyEnrolled   = errors.New("You are already enrolled in this semester.")
	ErrNoSemester        = errors.New("No semester is selected.")
	ErrRecordGone        = errors.New("The record no longer exists. Refresh and try again.")
	ErrStorageDisabled   = errors.New("File storage is not configured.")
	ErrInvalidInput      = errors.New("Invalid input.")
)

// PermissionDeniedMessage 权限拒绝时的固定提示，指向角色修复流程
const PermissionDeniedMessage = "Permission denied. Your profile role does not allow this action. " +
	"Ask an administrator to repair your role, then sign out and back in."

// ErrPermissionDenied 本地角色校验失败，与后端 42501 同一分类
var ErrPermissionDenied = errors.New(PermissionDeniedMessage)

// MutationError 写操作的类型化失败结果
type MutationError struct {
	Op      string
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *MutationError) Error() string { return e.Message }

func (e *MutationError) Unwrap() error { return e.Err }

// KindOf 取错误分类；非 MutationError 视为 unknown
func KindOf(err error) ErrorKind {
	var me *MutationError
	if errors.As(err, &me) {
		return me.Kind
	}
	if errors.Is(err, ErrNotConnected) {
		return KindConnectivity
	}
	return KindUnknown
}

// invalid 构造校验失败
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w "+format, append([]any{ErrInvalidInput}, args...)...)
}

// conflictValues 唯一约束冲突时用于拼装提示的输入值
type conflictValues struct {
	TagNumber     string
	StudentNumber string
	Email         string
}

// translateError 把后端 / 业务错误映射为 MutationError
func translateError(op string, err error, vals conflictValues) *MutationError {
	var me *MutationError
	if errors.As(err, &me) {
		return me
	}

	out := &MutationError{Op: op, Err: err}

	switch {
	case errors.Is(err, ErrNotConnected):
		out.Kind, out.Message = KindConnectivity, ErrNotConnected.Error()
	case errors.Is(err, ErrStorageDisabled):
		out.Kind, out.Message = KindConnectivity, ErrStorageDisabled.Error()
	case errors.Is(err, ErrNotSignedIn), errors.Is(err, auth.ErrNoSession):
		out.Kind, out.Message = KindAuthorization, ErrNotSignedIn.Error()
	case errors.Is(err, ErrInvalidCourseCode),
		errors.Is(err, ErrAlreadyEnrolled),
		errors.Is(err, ErrNoSemester):
		out.Kind, out.Message = KindValidation, err.Error()
	case errors.Is(err, ErrInvalidInput):
		out.Kind, out.Message = KindValidation, err.Error()
	case errors.Is(err, repository.ErrNotFound):
		out.Kind, out.Message = KindValidation, ErrRecordGone.Error()
	case pkgerrors.HasCode(err, pkgerrors.CodeUniqueViolation):
		out.Kind, out.Message = KindConstraint, uniqueMessage(err, vals)
	case pkgerrors.HasCode(err, pkgerrors.CodeCheckViolation):
		out.Kind, out.Message = KindConstraint, "One of the values is not allowed: "+backendMessage(err)
	case errors.Is(err, ErrPermissionDenied),
		pkgerrors.HasCode(err, pkgerrors.CodePermissionDenied):
		out.Kind, out.Message = KindAuthorization, PermissionDeniedMessage
	default:
		out.Kind, out.Message = KindUnknown, backendMessage(err)
	}
	return out
}

// uniqueMessage 从错误详情中识别冲突的唯一轴
func uniqueMessage(err error, vals conflictValues) string {
	var be *pkgerrors.BackendError
	errors.As(err, &be)
	text := strings.ToLower(be.Detail + " " + be.Constraint + " " + be.Message)

	switch {
	case strings.Contains(text, "tag_number"):
		return fmt.Sprintf("Tag number %s is already taken in this semester.", orUnknown(vals.TagNumber, be.Detail))
	case strings.Contains(text, "student_number"):
		return fmt.Sprintf("Student number %s is already enrolled in this semester.", orUnknown(vals.StudentNumber, be.Detail))
	case strings.Contains(text, "email"):
		return fmt.Sprintf("Email %s is already enrolled in this semester.", orUnknown(vals.Email, be.Detail))
	}
	return "A record with these values already exists."
}

// orUnknown 输入值缺失时从详情 "Key (...)=(a, b) already exists." 中取最后一个值
func orUnknown(v, detail string) string {
	if v != "" {
		return v
	}
	start := strings.LastIndex(detail, "=(")
	end := strings.LastIndex(detail, ")")
	if start < 0 || end <= start+2 {
		return "(unknown)"
	}
	parts := strings.Split(detail[start+2:end], ",")
	return strings.TrimSpace(parts[len(parts)-1])
}

func backendMessage(err error) string {
	var be *pkgerrors.BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return err.Error()
}
