// Package errs defines the domain error taxonomy shared by the service layer.
// Handlers translate these sentinels to HTTP status codes; the services
// themselves never retry or swallow them.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 资源不存在（音乐、用户、收藏、评分）
	ErrNotFound = errors.New("not found")
	// ErrForbidden 角色或归属校验失败
	ErrForbidden = errors.New("forbidden")
	// ErrAlreadyExists 重复收藏、用户名/邮箱/手机号已被占用
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidState 非已发布音乐请求播放、不支持的状态流转
	ErrInvalidState = errors.New("invalid state")
	// ErrValidation 边界参数校验失败
	ErrValidation = errors.New("validation failed")
	// ErrStorage 底层存储或对象存储 I/O 失败
	ErrStorage = errors.New("storage failure")
)

// NotFound wraps ErrNotFound with a formatted message.
func NotFound(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// Forbidden wraps ErrForbidden with a formatted message.
func Forbidden(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrForbidden)...)
}

// AlreadyExists wraps ErrAlreadyExists with a formatted message.
func AlreadyExists(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrAlreadyExists)...)
}

// InvalidState wraps ErrInvalidState with a formatted message.
func InvalidState(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidState)...)
}

// Validation wraps ErrValidation with a formatted message.
func Validation(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// Storage wraps an underlying I/O error into the StorageFailure class.
func Storage(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, ErrStorage)
}
