package process

import (
	"errors"
	"fmt"
)

// ErrConfiguration 用于 errors.Is 判断配置类错误。
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError 表示 process 定义有误或自相矛盾，对整个批次是致命的。
type ConfigurationError struct {
	Field string
	Msg   string
	Err   error
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Field != "" {
		msg += ": " + e.Field
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func configErrorf(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
