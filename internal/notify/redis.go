package notify

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	xerrors "taskdesk/internal/errors"
	"taskdesk/internal/task"
)

// RedisConfig 描述 Redis 通知渠道的连接参数。
type RedisConfig struct {
	Address  string
	Password string
	DB       int
	Key      string
}

// RedisSink 将通知以 JSON 形式 LPUSH 到 Redis list，供下游按 BRPOP 消费。
type RedisSink struct {
	client *redis.Client
	key    string
}

// NewRedisSink 创建 Redis 通知渠道并检查连通性。
func NewRedisSink(ctx context.Context, cfg RedisConfig) (*RedisSink, error) {
	if cfg.Address == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "Redis address 不能为空")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, xerrors.Wrap(xerrors.CodeInitializationFailure, err, "连接 Redis 失败")
	}
	return newRedisSink(client, cfg.Key), nil
}

func newRedisSink(client *redis.Client, key string) *RedisSink {
	if key == "" {
		key = "taskdesk:notices"
	}
	return &RedisSink{client: client, key: key}
}

// Name 返回渠道名称。
func (s *RedisSink) Name() string { return "redis" }

// Notify 将通知推入 Redis list。
func (s *RedisSink) Notify(ctx context.Context, notice task.Notice) error {
	payload, err := encode(notice)
	if err != nil {
		return err
	}
	if err := s.client.LPush(ctx, s.key, payload).Err(); err != nil {
		return xerrors.Wrap(xerrors.CodeNotifyFailure, err, fmt.Sprintf("Redis 推送通知 %s 失败", notice.ID))
	}
	return nil
}

// Close 关闭 Redis 连接。
func (s *RedisSink) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
