package task

import (
	"context"
	"fmt"
	"time"
)

// Notice 描述一次成功的任务转交。
type Notice struct {
	ID         string    `json:"id"`
	TaskID     TaskID    `json:"task_id"`
	FromOwner  UserID    `json:"from_owner"`
	ToOwner    UserID    `json:"to_owner"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (n Notice) String() string {
	return fmt.Sprintf("Task %d transferred from User %d to User %d.", n.TaskID, n.FromOwner, n.ToOwner)
}

// Notifier 负责把转交通知投递到外部渠道。
type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

// NotifierFunc 允许普通函数充当 Notifier。
type NotifierFunc func(ctx context.Context, notice Notice) error

// Notify 实现 Notifier 接口。
func (f NotifierFunc) Notify(ctx context.Context, notice Notice) error {
	return f(ctx, notice)
}

// Operation 标识注册表上的一次操作，用于指标与日志。
type Operation string

const (
	OpRegisterUser Operation = "register_user"
	OpCreateTask   Operation = "create_task"
	OpTransferTask Operation = "transfer_task"
	OpCompleteTask Operation = "complete_task"
	OpListTasks    Operation = "list_tasks"
)

// Observer 在每次操作结束后收到结果和最新统计。
type Observer interface {
	Observe(op Operation, err error, stats Stats)
}
