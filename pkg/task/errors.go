package task

import (
	"errors"
	"fmt"
)

// ErrTaskNotFound 表示任务未注册。
var ErrTaskNotFound = errors.New("task not found")

// FailedValidationError 表示输入未通过任务的校验。
type FailedValidationError struct {
	Task string
	Err  error
}

func (e *FailedValidationError) Error() string {
	return fmt.Sprintf("task %s: validation failed: %v", e.Task, e.Err)
}

func (e *FailedValidationError) Unwrap() error { return e.Err }

// InvalidInputError 由任务在输入不符合预期时返回。
type InvalidInputError struct {
	Msg string
	Err error
}

func (e *InvalidInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input: %s: %v", e.Msg, e.Err)
	}
	return "invalid input: " + e.Msg
}

func (e *InvalidInputError) Unwrap() error { return e.Err }

// ExecutionError 包装任务处理过程中的其他错误。
type ExecutionError struct {
	Task string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("task %s: execution failed: %v", e.Task, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
