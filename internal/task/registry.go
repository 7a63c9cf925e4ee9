package task

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	xerrors "taskdesk/internal/errors"
	"taskdesk/pkg/logger"
)

// Registry 以内存方式保存用户与任务，是整个系统唯一的状态来源。
type Registry struct {
	mu        sync.RWMutex
	users     map[UserID]User
	tasks     map[TaskID]*Task
	nextID    TaskID
	completed int

	notifier Notifier
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

// Option 定义可选配置。
type Option func(*Registry)

// WithNotifier 配置转交通知的投递方式。
func WithNotifier(notifier Notifier) Option {
	return func(r *Registry) {
		r.notifier = notifier
	}
}

// WithObserver 配置操作观察者，通常是指标采集器。
func WithObserver(observer Observer) Option {
	return func(r *Registry) {
		r.observer = observer
	}
}

// WithLogger 指定日志输出。
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithClock 替换通知时间戳的来源。
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry 创建一个空的注册表。
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		users:  make(map[UserID]User),
		tasks:  make(map[TaskID]*Task),
		nextID: 1,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if r.logger == nil {
		r.logger = logger.Named("registry")
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// RegisterUser 新增或覆盖指定 ID 的用户，重复注册只更新名称。
func (r *Registry) RegisterUser(_ context.Context, id UserID, name string) {
	r.mu.Lock()
	_, existed := r.users[id]
	r.users[id] = User{ID: id, Name: name}
	stats := r.statsLocked()
	r.mu.Unlock()

	r.logger.Debug("用户已登记",
		slog.Uint64("user_id", uint64(id)),
		slog.Bool("overwritten", existed),
	)
	r.observe(OpRegisterUser, nil, stats)
}

// CreateTask 为已存在的用户创建任务并返回新分配的 ID。
// 负责人不存在时返回 ErrUserNotFound，且不会消耗 ID。
func (r *Registry) CreateTask(_ context.Context, ownerID UserID, description string) (TaskID, error) {
	r.mu.Lock()
	if _, ok := r.users[ownerID]; !ok {
		stats := r.statsLocked()
		r.mu.Unlock()
		r.observe(OpCreateTask, ErrUserNotFound, stats)
		return 0, ErrUserNotFound
	}
	id := r.nextID
	r.nextID++
	r.tasks[id] = &Task{
		ID:          id,
		Description: description,
		Owner:       ownerID,
	}
	stats := r.statsLocked()
	r.mu.Unlock()

	r.logger.Debug("任务已创建",
		slog.Uint64("task_id", uint64(id)),
		slog.Uint64("owner_id", uint64(ownerID)),
	)
	r.observe(OpCreateTask, nil, stats)
	return id, nil
}

// TransferTask 将任务转交给新的负责人。
// 先校验任务存在，再校验新负责人存在；成功后发出转交通知。
func (r *Registry) TransferTask(ctx context.Context, taskID TaskID, newOwnerID UserID) error {
	r.mu.Lock()
	task, ok := r.tasks[taskID]
	if !ok {
		stats := r.statsLocked()
		r.mu.Unlock()
		r.observe(OpTransferTask, ErrTaskNotFound, stats)
		return ErrTaskNotFound
	}
	if _, ok := r.users[newOwnerID]; !ok {
		stats := r.statsLocked()
		r.mu.Unlock()
		err := xerrors.New(CodeUserNotFound, "New owner does not exist")
		r.observe(OpTransferTask, err, stats)
		return err
	}
	previous := task.Owner
	task.Owner = newOwnerID
	stats := r.statsLocked()
	r.mu.Unlock()

	r.observe(OpTransferTask, nil, stats)
	r.emit(ctx, Notice{
		ID:         uuid.NewString(),
		TaskID:     taskID,
		FromOwner:  previous,
		ToOwner:    newOwnerID,
		OccurredAt: r.now(),
	})
	return nil
}

// CompleteTask 将任务标记为已完成，对已完成的任务重复调用不会报错。
func (r *Registry) CompleteTask(_ context.Context, taskID TaskID) error {
	r.mu.Lock()
	task, ok := r.tasks[taskID]
	if !ok {
		stats := r.statsLocked()
		r.mu.Unlock()
		r.observe(OpCompleteTask, ErrTaskNotFound, stats)
		return ErrTaskNotFound
	}
	if !task.Completed {
		task.Completed = true
		r.completed++
	}
	stats := r.statsLocked()
	r.mu.Unlock()

	r.logger.Debug("任务已完成", slog.Uint64("task_id", uint64(taskID)))
	r.observe(OpCompleteTask, nil, stats)
	return nil
}

// ListTasks 渲染当前全部任务，按任务 ID 升序返回。
// 负责人不存在时名称使用 UnknownOwner。
func (r *Registry) ListTasks(_ context.Context) []Record {
	r.mu.RLock()
	records := make([]Record, 0, len(r.tasks))
	for _, task := range r.tasks {
		name := UnknownOwner
		if owner, ok := r.users[task.Owner]; ok {
			name = owner.Name
		}
		records = append(records, Record{
			ID:          task.ID,
			Description: task.Description,
			OwnerID:     task.Owner,
			OwnerName:   name,
			Completed:   task.Completed,
		})
	}
	stats := r.statsLocked()
	r.mu.RUnlock()

	slices.SortFunc(records, func(a, b Record) int {
		return cmp.Compare(a.ID, b.ID)
	})
	r.observe(OpListTasks, nil, stats)
	return records
}

// User 按 ID 查询用户，用于解析任务的负责人。
func (r *Registry) User(_ context.Context, id UserID) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

// Task 返回任务的副本。
func (r *Registry) Task(_ context.Context, id TaskID) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	return *task, nil
}

// Users 返回全部用户，按 ID 升序。
func (r *Registry) Users(_ context.Context) []User {
	r.mu.RLock()
	users := make([]User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user)
	}
	r.mu.RUnlock()

	slices.SortFunc(users, func(a, b User) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return users
}

// Stats 返回当前的统计信息。
func (r *Registry) Stats(_ context.Context) Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statsLocked()
}

func (r *Registry) statsLocked() Stats {
	return Stats{
		Users:     len(r.users),
		Total:     len(r.tasks),
		Open:      len(r.tasks) - r.completed,
		Completed: r.completed,
	}
}

func (r *Registry) observe(op Operation, err error, stats Stats) {
	if r.observer != nil {
		r.observer.Observe(op, err, stats)
	}
}

// emit 投递转交通知；投递失败只记录日志，不影响已经生效的转交。
func (r *Registry) emit(ctx context.Context, notice Notice) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, notice); err != nil {
		level := slog.LevelWarn
		if xerrors.SeverityOf(err) == xerrors.SeverityCritical {
			level = slog.LevelError
		}
		r.logger.Log(ctx, level, "转交通知投递失败",
			slog.Any("error", err),
			slog.String("notice_id", notice.ID),
			slog.Uint64("task_id", uint64(notice.TaskID)),
		)
	}
}
