package service

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"project-tracker/internal/model"
	"project-tracker/internal/repository"
	pkgerrors "project-tracker/pkg/errors"
)

func TestTranslateError(t *testing.T) {
	vals := conflictValues{TagNumber: "02", StudentNumber: "555", Email: "j@x.edu"}

	cases := []struct {
		name string
		err  error
		kind ErrorKind
		msg  string
	}{
		{"not_connected", ErrNotConnected, KindConnectivity, ErrNotConnected.Error()},
		{"not_found", fmt.Errorf("wrap: %w", repository.ErrNotFound), KindValidation, ErrRecordGone.Error()},
		{"course_code", ErrInvalidCourseCode, KindValidation, "Invalid or inactive Course Code."},
		{"tag", uniqueErr("enrollments_semester_tag_number_key", "semester_id, tag_number", "s, 02"), KindConstraint, "Tag number 02 is already taken in this semester."},
		{"student_number", uniqueErr("enrollments_semester_student_number_key", "semester_id, student_number", "s, 555"), KindConstraint, "Student number 555 is already enrolled in this semester."},
		{"email", uniqueErr("enrollments_semester_email_key", "semester_id, email", "s, j@x.edu"), KindConstraint, "Email j@x.edu is already enrolled in this semester."},
		{"other_unique", uniqueErr("semesters_pkey", "id", "x"), KindConstraint, "A record with these values already exists."},
		{"check", &pkgerrors.BackendError{Code: pkgerrors.CodeCheckViolation, Message: "bad status"}, KindConstraint, "One of the values is not allowed: bad status"},
		{"permission", permissionErr(), KindAuthorization, PermissionDeniedMessage},
		{"local_permission", ErrPermissionDenied, KindAuthorization, PermissionDeniedMessage},
		{"unknown", errors.New("socket closed"), KindUnknown, "socket closed"},
	}

	for _, tc := range cases {
		got := translateError("op", tc.err, vals)
		if got.Kind != tc.kind || got.Message != tc.msg {
			t.Errorf("%s: 期望 (%s, %q)，实际 (%s, %q)", tc.name, tc.kind, tc.msg, got.Kind, got.Message)
		}
		if !errors.Is(got, tc.err) {
			t.Errorf("%s: 应保留原始错误链", tc.name)
		}
	}
}

func TestTranslateError_ValueFromDetail(t *testing.T) {
	err := uniqueErr("enrollments_semester_tag_number_key", "semester_id, tag_number", "s, 07")
	got := translateError("op", err, conflictValues{})
	if got.Message != "Tag number 07 is already taken in this semester." {
		t.Errorf("缺少输入值时应从详情中提取，实际 %q", got.Message)
	}
}

func TestTranslateError_PassesThroughMutationError(t *testing.T) {
	orig := &MutationError{Op: "x", Kind: KindValidation, Message: "m"}
	if got := translateError("y", orig, conflictValues{}); got != orig {
		t.Error("已是 MutationError 时应原样返回")
	}
}

func TestKindOf(t *testing.T) {
	if KindOf(translateError("op", permissionErr(), conflictValues{})) != KindAuthorization {
		t.Error("应识别 MutationError 的分类")
	}
	if KindOf(ErrNotConnected) != KindConnectivity {
		t.Error("裸 ErrNotConnected 应为 connectivity")
	}
	if KindOf(errors.New("x")) != KindUnknown {
		t.Error("其他错误应为 unknown")
	}
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	k := newKeyedMutex()
	key := model.StateKey{ProjectID: "p", StudentID: "u"}

	var mu sync.Mutex
	active, peak := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock(key)
			mu.Lock()
			active++
			if active > peak {
				peak = active
			}
			mu.Unlock()

			mu.Lock()
			active--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if peak != 1 {
		t.Errorf("同一键的临界区最大并发应为 1，实际 %d", peak)
	}
	if k.size() != 0 {
		t.Errorf("空闲后应回收全部键，剩余 %d", k.size())
	}
}

func TestKeyedMutex_DifferentKeysIndependent(t *testing.T) {
	k := newKeyedMutex()
	a := k.Lock(model.StateKey{ProjectID: "p", StudentID: "a"})
	done := make(chan struct{})
	go func() {
		unlock := k.Lock(model.StateKey{ProjectID: "p", StudentID: "b"})
		unlock()
		close(done)
	}()
	<-done
	a()
}
