package notify

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	xerrors "taskdesk/internal/errors"
	"taskdesk/internal/task"
)

// RabbitMQConfig 描述 RabbitMQ 通知渠道的连接参数。
type RabbitMQConfig struct {
	URL     string
	Queue   string
	Durable bool
}

// RabbitMQSink 把通知发布到 RabbitMQ 队列。
type RabbitMQSink struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewRabbitMQSink 连接 RabbitMQ 并声明通知队列。
func NewRabbitMQSink(cfg RabbitMQConfig) (*RabbitMQSink, error) {
	if cfg.URL == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "RabbitMQ URL 不能为空")
	}
	queue := cfg.Queue
	if queue == "" {
		queue = "taskdesk.notices"
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "连接 RabbitMQ 失败")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "创建 RabbitMQ channel 失败")
	}
	if _, err := ch.QueueDeclare(queue, cfg.Durable, !cfg.Durable, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "声明 RabbitMQ 队列失败")
	}
	return &RabbitMQSink{conn: conn, ch: ch, queue: queue}, nil
}

// Name 返回渠道名称。
func (s *RabbitMQSink) Name() string { return "rabbitmq" }

// Notify 发布一条 JSON 通知。
func (s *RabbitMQSink) Notify(ctx context.Context, notice task.Notice) error {
	if s == nil || s.ch == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "RabbitMQ 渠道未初始化")
	}
	payload, err := encode(notice)
	if err != nil {
		return err
	}
	err = s.ch.PublishWithContext(ctx, "", s.queue, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   notice.ID,
		Timestamp:   notice.OccurredAt,
		Body:        payload,
	})
	if err != nil {
		return xerrors.Wrap(xerrors.CodeNotifyFailure, err, fmt.Sprintf("RabbitMQ 发布通知 %s 失败", notice.ID))
	}
	return nil
}

// Close 关闭 RabbitMQ 连接。
func (s *RabbitMQSink) Close() error {
	if s == nil {
		return nil
	}
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
