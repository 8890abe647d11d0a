package rdb

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorKind 错误分类
type ErrorKind string

const (
	KindUnsupported ErrorKind = "UNSUPPORTED"
	KindValidation  ErrorKind = "VALIDATION"
)

var (
	ErrUnsupportedOperation = errors.New("operation not supported")
	ErrValidation           = errors.New("validation failed")

	ErrModelNotFound         = errors.New("model not found")
	ErrInvalidIsolationLevel = errors.New("invalid isolation level")
	ErrInvalidModel          = errors.New("invalid model definition")

	ErrPartialBatchFailure = errors.New("partial batch failure")
	ErrTransactionDone     = errors.New("transaction has already been committed or rolled back")
	ErrNoRowsReturned      = errors.New("statement returned no rows")
)

// Error 客户端错误，Cause 为具体的哨兵错误
// 分类为 VALIDATION 的错误同时匹配 ErrValidation
type Error struct {
	Kind    ErrorKind
	Op      string
	Model   string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Cause.Error())
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Model != "" {
		fmt.Fprintf(&sb, " (model: %s)", e.Model)
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindValidation:
		return target == ErrValidation
	case KindUnsupported:
		return target == ErrUnsupportedOperation
	}
	return false
}

// NewUnsupportedError 不支持的操作，调用方应立即返回，不做任何 I/O
func NewUnsupportedError(op string) error {
	return &Error{Kind: KindUnsupported, Op: op, Cause: ErrUnsupportedOperation}
}

func NewModelNotFoundError(op, model string) error {
	return &Error{Kind: KindValidation, Op: op, Model: model, Cause: ErrModelNotFound}
}

func NewInvalidIsolationLevelError(level string) error {
	return &Error{Kind: KindValidation, Op: "BeginTransaction", Message: fmt.Sprintf("%q", level), Cause: ErrInvalidIsolationLevel}
}

func NewInvalidModelError(model, message string) error {
	return &Error{Kind: KindValidation, Op: "Define", Model: model, Message: message, Cause: ErrInvalidModel}
}

// NewValidationError 不属于具体哨兵的校验错误
func NewValidationError(op, model, message string) error {
	return &Error{Kind: KindValidation, Op: op, Model: model, Message: message, Cause: ErrValidation}
}

// IsClientError 校验失败或不支持的操作，由调用方的输入导致
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrUnsupportedOperation)
}

// ModelResult 批量操作中单个模型的结果
type ModelResult struct {
	Model string
	Err   error
}

// BatchResult 按请求顺序排列的每个模型的结果
type BatchResult []ModelResult

// Failed 失败的模型
func (r BatchResult) Failed() []ModelResult {
	var failed []ModelResult
	for _, result := range r {
		if result.Err != nil {
			failed = append(failed, result)
		}
	}
	return failed
}

// Err 全部成功时返回 nil，否则返回 *BatchError
func (r BatchResult) Err() error {
	if len(r.Failed()) == 0 {
		return nil
	}
	return &BatchError{Results: r}
}

// BatchError 批量操作部分失败，匹配 ErrPartialBatchFailure
// 同时通过 Unwrap 暴露每个失败模型的错误
type BatchError struct {
	Results BatchResult
}

func (e *BatchError) Error() string {
	failed := e.Results.Failed()
	parts := make([]string, 0, len(failed))
	for _, result := range failed {
		parts = append(parts, result.Model+": "+result.Err.Error())
	}
	return fmt.Sprintf("%d of %d models failed: %s", len(failed), len(e.Results), strings.Join(parts, "; "))
}

func (e *BatchError) Is(target error) bool {
	return target == ErrPartialBatchFailure
}

func (e *BatchError) Unwrap() []error {
	failed := e.Results.Failed()
	errs := make([]error, 0, len(failed))
	for _, result := range failed {
		errs = append(errs, result.Err)
	}
	return errs
}

// First 请求顺序中第一个失败模型的错误
func (e *BatchError) First() error {
	for _, result := range e.Results {
		if result.Err != nil {
			return result.Err
		}
	}
	return nil
}
