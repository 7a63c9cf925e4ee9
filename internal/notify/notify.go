package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	xerrors "taskdesk/internal/errors"
	"taskdesk/internal/task"
)

// Sink 是一个具名的通知渠道。
type Sink interface {
	task.Notifier
	Name() string
}

// Fanout 将通知广播给多个渠道，单个渠道失败不影响其他渠道。
type Fanout struct {
	sinks []Sink
}

// NewFanout 创建一个新的 Fanout，忽略 nil 渠道。
func NewFanout(sinks ...Sink) *Fanout {
	list := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			list = append(list, s)
		}
	}
	return &Fanout{sinks: list}
}

// Notify 将通知投递至所有渠道。全部渠道失败时错误升级为 critical。
func (f *Fanout) Notify(ctx context.Context, notice task.Notice) error {
	if f == nil {
		return nil
	}
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Notify(ctx, notice); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	var opts []xerrors.Option
	if len(errs) == len(f.sinks) {
		// 所有渠道都失败时通知彻底丢失。
		opts = append(opts, xerrors.WithSeverity(xerrors.SeverityCritical))
	}
	return xerrors.Wrap(xerrors.CodeNotifyFailure, errors.Join(errs...), "", opts...)
}

// Close 关闭所有实现了 io.Closer 的渠道。
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	var err error
	for _, sink := range f.sinks {
		if closer, ok := sink.(io.Closer); ok {
			err = errors.Join(err, closer.Close())
		}
	}
	return err
}

// Len 返回已注册的渠道数量。
func (f *Fanout) Len() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}

// WriterSink 把通知的可读文本逐行写入 io.Writer。
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterSink 创建 WriterSink。
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Name 返回渠道名称。
func (s *WriterSink) Name() string { return "writer" }

// Notify 写出一行通知文本。
func (s *WriterSink) Notify(_ context.Context, notice task.Notice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, notice.String())
	return err
}

// LogSink 将通知写入审计日志。
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink 创建 LogSink。
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Name 返回渠道名称。
func (s *LogSink) Name() string { return "log" }

// Notify 记录一条审计日志。
func (s *LogSink) Notify(ctx context.Context, notice task.Notice) error {
	s.logger.InfoContext(ctx, "任务已转交",
		slog.String("notice_id", notice.ID),
		slog.Uint64("task_id", uint64(notice.TaskID)),
		slog.Uint64("from_owner", uint64(notice.FromOwner)),
		slog.Uint64("to_owner", uint64(notice.ToOwner)),
	)
	return nil
}

func encode(notice task.Notice) ([]byte, error) {
	payload, err := json.Marshal(notice)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeNotifyFailure, err, "编码转交通知失败")
	}
	return payload, nil
}
