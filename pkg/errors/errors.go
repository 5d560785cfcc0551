package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// 后端（PostgreSQL SQLSTATE）错误码
const (
	CodeUniqueViolation  = "23505"
	CodeCheckViolation   = "23514"
	CodeForeignKey       = "23503"
	CodePermissionDenied = "42501"
)

// BackendError 远端数据服务返回的结构化错误：机器码 + 文本详情
type BackendError struct {
	Code       string
	Message    string
	Detail     string
	Constraint string
}

func (e *BackendError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s): %s", e.Message, e.Code, e.Detail)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Is 按错误码匹配，便于 errors.Is(err, &BackendError{Code: ...})
func (e *BackendError) Is(target error) bool {
	t, ok := target.(*BackendError)
	if !ok {
		return false
	}
	return t.Code != "" && t.Code == e.Code
}

// FromDriver 将驱动层错误（pgconn.PgError）转换为 BackendError；
// 非驱动错误原样返回，nil 返回 nil
func FromDriver(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &BackendError{
			Code:       pgErr.Code,
			Message:    pgErr.Message,
			Detail:     pgErr.Detail,
			Constraint: pgErr.ConstraintName,
		}
	}
	return err
}

// HasCode 判断 err 链中是否存在指定错误码的 BackendError
func HasCode(err error, code string) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Code == code
	}
	return false
}
