// pkg/errors/errors_test.go
// TEST TYPE: Unit Test
// DEPENDENCIES: None
// PURPOSE: Test error creation, wrapping, details and code lookup

package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/yumet023/proplate/pkg/errors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    errors.ErrorCode
		message string
		wantStr string
	}{
		{
			name:    "template_not_found",
			code:    errors.ErrTemplateNotFound,
			message: "template missing",
			wantStr: "[TEMPLATE_NOT_FOUND] template missing",
		},
		{
			name:    "unsafe_path",
			code:    errors.ErrUnsafePath,
			message: "escapes target",
			wantStr: "[UNSAFE_PATH] escapes target",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := errors.New(tt.code, tt.message)

			if err.Code != tt.code {
				t.Errorf("New() code = %v, want %v", err.Code, tt.code)
			}
			if err.Details == nil {
				t.Error("New() details should be initialized")
			}
			if got := err.Error(); got != tt.wantStr {
				t.Errorf("Error() = %q, want %q", got, tt.wantStr)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := errors.Newf(errors.ErrHookFailed, "hook %d exited with %d", 2, 7)
	if err.Message != "hook 2 exited with 7" {
		t.Errorf("Newf() message = %q", err.Message)
	}
}

func TestWrap(t *testing.T) {
	baseErr := stderrors.New("base error")

	t.Run("wrap_non_nil_error", func(t *testing.T) {
		err := errors.Wrap(baseErr, errors.ErrInternal, "internal error")

		if err.Wrapped != baseErr {
			t.Error("Wrap() should preserve wrapped error")
		}
		wantStr := "[INTERNAL] internal error: base error"
		if got := err.Error(); got != wantStr {
			t.Errorf("Error() = %q, want %q", got, wantStr)
		}
	})

	t.Run("wrap_nil_error_returns_nil", func(t *testing.T) {
		if err := errors.Wrap(nil, errors.ErrInternal, "internal error"); err != nil {
			t.Error("Wrap(nil) should return nil")
		}
		if err := errors.Wrapf(nil, errors.ErrInternal, "x %d", 1); err != nil {
			t.Error("Wrapf(nil) should return nil")
		}
	})
}

func TestIO(t *testing.T) {
	base := stderrors.New("permission denied")
	err := errors.IO(base, "write", "/tmp/out/a.txt")

	if !errors.IsErrorCode(err, errors.ErrIOFailure) {
		t.Fatalf("IO() code = %v, want IO_FAILURE", errors.GetErrorCode(err))
	}
	if err.Details["path"] != "/tmp/out/a.txt" {
		t.Errorf("IO() path detail = %v", err.Details["path"])
	}
	if err.Details["action"] != "write" {
		t.Errorf("IO() action detail = %v", err.Details["action"])
	}
	if !stderrors.Is(err, base) {
		t.Error("IO() should keep the cause reachable")
	}
	if errors.IO(nil, "write", "x") != nil {
		t.Error("IO(nil) should return nil")
	}
}

func TestWithDetails(t *testing.T) {
	details := map[string]interface{}{
		"index":     1,
		"exit_code": 3,
	}

	err := errors.New(errors.ErrHookFailed, "hook failed").WithDetails(details)

	for k, v := range details {
		if err.Details[k] != v {
			t.Errorf("WithDetails() %s = %v, want %v", k, err.Details[k], v)
		}
	}

	got, ok := errors.GetDetail(err, "exit_code")
	if !ok || got != 3 {
		t.Errorf("GetDetail() = %v, %v", got, ok)
	}
	if _, ok := errors.GetDetail(stderrors.New("plain"), "exit_code"); ok {
		t.Error("GetDetail() on a plain error should report missing")
	}
}

func TestIs(t *testing.T) {
	err1 := errors.New(errors.ErrTargetNotEmpty, "error 1")
	err2 := errors.New(errors.ErrTargetNotEmpty, "error 2")
	err3 := errors.New(errors.ErrInternal, "error 3")

	if !stderrors.Is(err1, err2) {
		t.Error("errors.Is() should match on code")
	}
	if err1.Is(err3) {
		t.Error("Is() should return false for different codes")
	}
}

func TestIsErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     errors.ErrorCode
		expected bool
	}{
		{
			name:     "matching_code",
			err:      errors.New(errors.ErrManifestInvalid, "bad"),
			code:     errors.ErrManifestInvalid,
			expected: true,
		},
		{
			name:     "different_code",
			err:      errors.New(errors.ErrManifestInvalid, "bad"),
			code:     errors.ErrInternal,
			expected: false,
		},
		{
			name:     "behind_fmt_wrapping",
			err:      fmt.Errorf("stage failed: %w", errors.New(errors.ErrUnsafePath, "escape")),
			code:     errors.ErrUnsafePath,
			expected: true,
		},
		{
			name:     "standard_error",
			err:      stderrors.New("standard error"),
			code:     errors.ErrNotFound,
			expected: false,
		},
		{
			name:     "nil_error",
			err:      nil,
			code:     errors.ErrNotFound,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.IsErrorCode(tt.err, tt.code); got != tt.expected {
				t.Errorf("IsErrorCode() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGetErrorCode(t *testing.T) {
	if got := errors.GetErrorCode(errors.New(errors.ErrCancelled, "x")); got != errors.ErrCancelled {
		t.Errorf("GetErrorCode() = %v", got)
	}
	if got := errors.GetErrorCode(stderrors.New("x")); got != errors.ErrUnknown {
		t.Errorf("GetErrorCode() = %v, want UNKNOWN", got)
	}
	if got := errors.GetErrorCode(nil); got != errors.ErrUnknown {
		t.Errorf("GetErrorCode(nil) = %v, want UNKNOWN", got)
	}
}

func TestErrorChaining(t *testing.T) {
	rootCause := stderrors.New("root cause")
	ioErr := errors.IO(rootCause, "read", "meta.json")
	manifestErr := errors.Wrap(ioErr, errors.ErrManifestInvalid, "cannot load manifest")

	if !errors.IsErrorCode(manifestErr, errors.ErrManifestInvalid) {
		t.Error("top level should carry MANIFEST_INVALID")
	}

	var inner *errors.ProplateError
	if stderrors.As(manifestErr.Unwrap(), &inner) && inner.Code != errors.ErrIOFailure {
		t.Errorf("inner code = %v, want IO_FAILURE", inner.Code)
	}

	if !stderrors.Is(manifestErr, rootCause) {
		t.Error("should find root cause with errors.Is")
	}
}

func TestGetDetailString(t *testing.T) {
	err := errors.New(errors.ErrHookFailed, "hook failed").
		WithDetail("command", "npm install").
		WithDetail("exit_code", 2)

	tests := []struct {
		err  error
		key  string
		want string
	}{
		{err, "command", "npm install"},
		{err, "exit_code", "2"},
		{err, "missing", ""},
		{fmt.Errorf("plain"), "command", ""},
	}
	for _, tt := range tests {
		if got := errors.GetDetailString(tt.err, tt.key); got != tt.want {
			t.Errorf("GetDetailString(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}
