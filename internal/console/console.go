package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	xerrors "taskdesk/internal/errors"
	"taskdesk/internal/task"
	"taskdesk/pkg/logger"
)

// Registry 是控制台驱动所需的注册表能力。
type Registry interface {
	RegisterUser(ctx context.Context, id task.UserID, name string)
	CreateTask(ctx context.Context, ownerID task.UserID, description string) (task.TaskID, error)
	TransferTask(ctx context.Context, taskID task.TaskID, newOwnerID task.UserID) error
	CompleteTask(ctx context.Context, taskID task.TaskID) error
	ListTasks(ctx context.Context) []task.Record
	Users(ctx context.Context) []task.User
	Stats(ctx context.Context) task.Stats
}

// Session 从输入逐行读取命令并把结果写到输出。
type Session struct {
	id       string
	registry Registry
	reader   *bufio.Reader
	readErr  error
	out      io.Writer
	prompt   string
	logger   *slog.Logger
	commands *commandTable
}

// Option 定义可选配置。
type Option func(*Session)

// WithPrompt 设置交互模式下的提示符，为空时不输出提示符。
func WithPrompt(prompt string) Option {
	return func(s *Session) {
		s.prompt = prompt
	}
}

// WithLogger 指定日志输出。
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// NewSession 构造一个控制台会话。
func NewSession(registry Registry, in io.Reader, out io.Writer, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		registry: registry,
		reader:   bufio.NewReader(in),
		out:      out,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.logger == nil {
		s.logger = logger.Named("console")
	}
	s.logger = s.logger.With(slog.String("session_id", s.id))
	s.commands = s.buildCommands()
	return s
}

// ID 返回会话标识，日志中以 session_id 出现。
func (s *Session) ID() string {
	return s.id
}

// Run 逐行执行命令，直到输入结束、收到 quit/exit 或上下文取消。
// 命令失败只输出错误并继续。
func (s *Session) Run(ctx context.Context) error {
	if s.registry == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "注册表未初始化")
	}
	s.logger.Info("控制台会话开始")
	defer s.logger.Info("控制台会话结束")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.showPrompt(s.prompt)
		line, ok := s.readLine()
		if !ok {
			return s.scanErr()
		}
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		s.Execute(ctx, line)
	}
}

// Execute 执行单条命令并输出结果，返回命令的错误便于调用方判断。
func (s *Session) Execute(ctx context.Context, line string) error {
	name, handler, args, ok := s.commands.match(line)
	if !ok {
		err := xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("unknown command %q, type help for usage", firstField(line)))
		s.printError(err)
		return err
	}
	if err := handler(ctx, args); err != nil {
		s.logCommandError(name, err)
		s.printError(err)
		return err
	}
	s.logger.Debug("命令执行成功", slog.String("command", name))
	return nil
}

// readLine 读取一整行，不限制行长度；最后一行可以没有换行符。
func (s *Session) readLine() (string, bool) {
	if s.readErr != nil {
		return "", false
	}
	line, err := s.reader.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			s.readErr = err
			return "", false
		}
		s.readErr = io.EOF
		if line == "" {
			return "", false
		}
	}
	return strings.TrimSpace(line), true
}

func (s *Session) scanErr() error {
	if s.readErr != nil && s.readErr != io.EOF {
		return xerrors.Wrap(xerrors.CodeInvalidArgument, s.readErr, "读取命令失败")
	}
	return nil
}

func (s *Session) showPrompt(prompt string) {
	if prompt != "" {
		fmt.Fprint(s.out, prompt)
	}
}

func (s *Session) println(format string, args ...any) {
	fmt.Fprintf(s.out, format+"\n", args...)
}

func (s *Session) printError(err error) {
	s.println("Error: %s", xerrors.MessageOf(err))
}

func (s *Session) logCommandError(command string, err error) {
	level := slog.LevelInfo
	switch xerrors.SeverityOf(err) {
	case xerrors.SeverityWarning:
		level = slog.LevelWarn
	case xerrors.SeverityCritical:
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, "命令执行失败",
		slog.String("command", command),
		slog.String("error_code", string(xerrors.CodeOf(err))),
		slog.Any("error", err),
	)
}
