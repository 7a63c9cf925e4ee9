package console

import (
	"context"
	"fmt"
	"strings"

	"taskdesk/internal/task"
)

type handler func(ctx context.Context, args string) error

type command struct {
	name    string
	usage   string
	summary string
	run     handler
}

// commandTable 按名称索引命令，名称可以由一个或两个单词组成。
type commandTable struct {
	commands map[string]command
	order    []string
}

func newCommandTable() *commandTable {
	return &commandTable{commands: make(map[string]command)}
}

func (t *commandTable) register(cmd command) {
	if _, exists := t.commands[cmd.name]; exists {
		panic(fmt.Sprintf("command %s already registered", cmd.name))
	}
	t.commands[cmd.name] = cmd
	t.order = append(t.order, cmd.name)
}

// match 优先匹配两个单词的命令名，再回退到单个单词。
func (t *commandTable) match(line string) (string, handler, string, bool) {
	first, rest := nextField(line)
	second, tail := nextField(rest)
	if second != "" {
		if cmd, ok := t.commands[first+" "+second]; ok {
			return cmd.name, cmd.run, tail, true
		}
	}
	if cmd, ok := t.commands[first]; ok {
		return cmd.name, cmd.run, rest, true
	}
	return "", nil, "", false
}

func (s *Session) buildCommands() *commandTable {
	table := newCommandTable()
	table.register(command{name: "user add", usage: "user add <id> <name>", summary: "register or rename a user", run: s.userAdd})
	table.register(command{name: "user list", usage: "user list", summary: "list registered users", run: s.userList})
	table.register(command{name: "task add", usage: "task add <owner-id> <description>", summary: "create a task", run: s.taskAdd})
	table.register(command{name: "task transfer", usage: "task transfer <task-id> <new-owner-id>", summary: "hand a task to another user", run: s.taskTransfer})
	table.register(command{name: "task complete", usage: "task complete <task-id>", summary: "mark a task as completed", run: s.taskComplete})
	table.register(command{name: "task list", usage: "task list", summary: "list all tasks", run: s.taskList})
	table.register(command{name: "stats", usage: "stats", summary: "show registry counters", run: s.stats})
	table.register(command{name: "help", usage: "help", summary: "show this help", run: s.help})
	return table
}

func (s *Session) userAdd(ctx context.Context, args string) error {
	raw, rest := nextField(args)
	id, err := parseID("user id", raw)
	if err != nil {
		return err
	}
	name, err := requireText("user name", rest)
	if err != nil {
		return err
	}
	s.registry.RegisterUser(ctx, task.UserID(id), name)
	s.println("User %d registered.", id)
	return nil
}

func (s *Session) userList(ctx context.Context, args string) error {
	if err := noArgs(args); err != nil {
		return err
	}
	users := s.registry.Users(ctx)
	if len(users) == 0 {
		s.println("No users.")
		return nil
	}
	for _, user := range users {
		s.println("User %d: %s", user.ID, user.Name)
	}
	return nil
}

func (s *Session) taskAdd(ctx context.Context, args string) error {
	raw, rest := nextField(args)
	owner, err := parseID("owner id", raw)
	if err != nil {
		return err
	}
	description, err := requireText("task description", rest)
	if err != nil {
		return err
	}
	id, err := s.registry.CreateTask(ctx, task.UserID(owner), description)
	if err != nil {
		return err
	}
	s.println("Task %d created.", id)
	return nil
}

// taskTransfer 成功时先由通知渠道输出转交通知，再输出 OK。
func (s *Session) taskTransfer(ctx context.Context, args string) error {
	rawTask, rest := nextField(args)
	taskID, err := parseID("task id", rawTask)
	if err != nil {
		return err
	}
	rawOwner, rest := nextField(rest)
	owner, err := parseID("new owner id", rawOwner)
	if err != nil {
		return err
	}
	if err := noArgs(rest); err != nil {
		return err
	}
	if err := s.registry.TransferTask(ctx, task.TaskID(taskID), task.UserID(owner)); err != nil {
		return err
	}
	s.println("OK")
	return nil
}

func (s *Session) taskComplete(ctx context.Context, args string) error {
	raw, rest := nextField(args)
	id, err := parseID("task id", raw)
	if err != nil {
		return err
	}
	if err := noArgs(rest); err != nil {
		return err
	}
	if err := s.registry.CompleteTask(ctx, task.TaskID(id)); err != nil {
		return err
	}
	s.println("Task %d completed.", id)
	return nil
}

func (s *Session) taskList(ctx context.Context, args string) error {
	if err := noArgs(args); err != nil {
		return err
	}
	s.printRecords(ctx)
	return nil
}

func (s *Session) printRecords(ctx context.Context) {
	records := s.registry.ListTasks(ctx)
	if len(records) == 0 {
		s.println("No tasks.")
		return
	}
	for _, record := range records {
		s.println("%s", record)
	}
}

func (s *Session) stats(ctx context.Context, args string) error {
	if err := noArgs(args); err != nil {
		return err
	}
	st := s.registry.Stats(ctx)
	s.println("Users: %d, Tasks: %d (open %d, completed %d)", st.Users, st.Total, st.Open, st.Completed)
	return nil
}

func (s *Session) help(_ context.Context, _ string) error {
	var b strings.Builder
	b.WriteString("Commands:\n")
	for _, name := range s.commands.order {
		cmd := s.commands.commands[name]
		fmt.Fprintf(&b, "  %-40s %s\n", cmd.usage, cmd.summary)
	}
	b.WriteString("  quit | exit")
	s.println("%s", b.String())
	return nil
}
