package console

import (
	"context"
	"io"
	"log/slog"

	xerrors "taskdesk/internal/errors"
	"taskdesk/internal/task"
)

// RunGuided 按固定流程逐步提示输入：登记用户、创建任务、列出任务、
// 转交一个任务、完成一个任务，每一步之后列出当前任务。
// 输入提前结束时返回 nil；数字格式错误会提示后重新询问。
func (s *Session) RunGuided(ctx context.Context) error {
	if s.registry == nil {
		return xerrors.New(xerrors.CodeInitializationFailure, "注册表未初始化")
	}
	s.logger.Info("引导式会话开始")

	err := s.guided(ctx)
	if err == io.EOF {
		s.logger.Info("输入提前结束，引导式会话停止")
		return s.scanErr()
	}
	return err
}

func (s *Session) guided(ctx context.Context) error {
	for {
		raw, err := s.ask(ctx, "Enter a user ID (or 'done' to stop): ")
		if err != nil {
			return err
		}
		if raw == "done" {
			break
		}
		id, err := parseID("user id", raw)
		if err != nil {
			s.printError(err)
			continue
		}
		name, err := s.ask(ctx, "Enter the user's name: ")
		if err != nil {
			return err
		}
		s.registry.RegisterUser(ctx, task.UserID(id), name)
	}

	for {
		description, err := s.ask(ctx, "\nEnter a task description (or 'done' to stop): ")
		if err != nil {
			return err
		}
		if description == "done" {
			break
		}
		owner, err := s.askID(ctx, "Enter owner ID: ", "owner id")
		if err != nil {
			return err
		}
		if _, err := s.registry.CreateTask(ctx, task.UserID(owner), description); err != nil {
			s.logCommandError("task add", err)
			s.printError(err)
		}
	}

	s.println("\nCurrent tasks:")
	s.printRecords(ctx)

	taskID, err := s.askID(ctx, "\nEnter task ID to transfer: ", "task id")
	if err != nil {
		return err
	}
	newOwner, err := s.askID(ctx, "Enter new owner ID: ", "new owner id")
	if err != nil {
		return err
	}
	if err := s.registry.TransferTask(ctx, task.TaskID(taskID), task.UserID(newOwner)); err != nil {
		s.logCommandError("task transfer", err)
		s.printError(err)
	}

	s.println("\nTasks after transfer:")
	s.printRecords(ctx)

	completeID, err := s.askID(ctx, "\nEnter task ID to complete: ", "task id")
	if err != nil {
		return err
	}
	if err := s.registry.CompleteTask(ctx, task.TaskID(completeID)); err != nil {
		s.logCommandError("task complete", err)
		s.printError(err)
	}

	s.println("\nTasks after completion:")
	s.printRecords(ctx)
	s.logger.Info("引导式会话结束", slog.Int("tasks", s.registry.Stats(ctx).Total))
	return nil
}

// ask 输出提示并读取一行，输入结束时返回 io.EOF。
func (s *Session) ask(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.println("%s", prompt)
	line, ok := s.readLine()
	if !ok {
		return "", io.EOF
	}
	return line, nil
}

func (s *Session) askID(ctx context.Context, prompt, label string) (uint64, error) {
	for {
		raw, err := s.ask(ctx, prompt)
		if err != nil {
			return 0, err
		}
		id, err := parseID(label, raw)
		if err == nil {
			return id, nil
		}
		s.printError(err)
	}
}
