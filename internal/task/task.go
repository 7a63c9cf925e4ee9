package task

import (
	stdErrors "errors"

	xerrors "taskdesk/internal/errors"
)

// UserID 是外部提供的用户标识，不做范围校验。
type UserID uint64

// TaskID 由注册表分配，从 1 开始单调递增且不复用。
type TaskID uint64

// UnknownOwner 是负责人不存在时列表中展示的占位名称。
const UnknownOwner = "Unknown"

// User 描述一个已注册的用户。
type User struct {
	ID   UserID `json:"id"`
	Name string `json:"name"`
}

// Task 描述一个待办任务。Owner 只是按标识回引用户，并不持有用户。
type Task struct {
	ID          TaskID `json:"id"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Owner       UserID `json:"owner"`
}

const (
	CodeUserNotFound xerrors.Code = "USER_NOT_FOUND"
	CodeTaskNotFound xerrors.Code = "TASK_NOT_FOUND"
)

var (
	// ErrUserNotFound 表示引用的用户不存在。
	ErrUserNotFound = xerrors.New(CodeUserNotFound, "User does not exist")
	// ErrTaskNotFound 表示指定的任务不存在。
	ErrTaskNotFound = xerrors.New(CodeTaskNotFound, "Task not found")
)

func init() {
	xerrors.Register(CodeUserNotFound, xerrors.Attributes{
		Message:  "User does not exist",
		Severity: xerrors.SeverityInfo,
	})
	xerrors.Register(CodeTaskNotFound, xerrors.Attributes{
		Message:  "Task not found",
		Severity: xerrors.SeverityInfo,
	})
}

// IsTaskError 判断错误是否为指定的注册表错误。
func IsTaskError(err error, target xerrors.Code) bool {
	if err == nil {
		return false
	}
	if stdErrors.Is(err, ErrUserNotFound) {
		return target == CodeUserNotFound
	}
	if stdErrors.Is(err, ErrTaskNotFound) {
		return target == CodeTaskNotFound
	}
	return false
}
