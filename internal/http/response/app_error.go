package response

import (
	"errors"
	"net/http"

	"github.com/partnerhub/internal/service"
)

// AppError 携带业务码的错误
type AppError struct {
	Code    int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus 业务码对应的 HTTP 状态，未知码按 500
func (e *AppError) HTTPStatus() int {
	if e == nil {
		return http.StatusOK
	}
	if text := http.StatusText(e.Code); text != "" && e.Code >= 400 {
		return e.Code
	}
	return http.StatusInternalServerError
}

// WrapError 包装错误
func WrapError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// FromServiceError 按错误分类映射业务码，配置与系统错误不向调用方暴露细节
func FromServiceError(err error) *AppError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, service.ErrValidation):
		return WrapError(CodeBadRequest, err.Error(), err)
	case errors.Is(err, service.ErrNotFound):
		return WrapError(CodeNotFound, err.Error(), err)
	case errors.Is(err, service.ErrInvalidTransition):
		return WrapError(CodeConflict, err.Error(), err)
	case errors.Is(err, service.ErrConfiguration):
		return WrapError(CodeInternal, "service misconfigured", err)
	default:
		return WrapError(CodeInternal, "internal error", err)
	}
}

// FromBindError 请求体解析或字段校验失败
func FromBindError(err error) *AppError {
	if err == nil {
		return nil
	}
	return WrapError(CodeBadRequest, "bad request: "+service.DescribeValidationError(err), err)
}
