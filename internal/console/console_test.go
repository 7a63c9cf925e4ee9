package console

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	xerrors "taskdesk/internal/errors"
	"taskdesk/internal/task"
	"taskdesk/pkg/logger"
)

func newTestSession(t *testing.T, input string, opts ...Option) (*Session, *bytes.Buffer, *task.Registry) {
	t.Helper()
	out := &bytes.Buffer{}
	registry := task.NewRegistry(
		task.WithLogger(logger.New(io.Discard, "error")),
		task.WithNotifier(task.NotifierFunc(func(_ context.Context, n task.Notice) error {
			_, err := fmt.Fprintln(out, n.String())
			return err
		})),
	)
	opts = append([]Option{WithLogger(logger.New(io.Discard, "error"))}, opts...)
	return NewSession(registry, strings.NewReader(input), out, opts...), out, registry
}

func TestRunScenarioScript(t *testing.T) {
	script := `
# users
user add 1 Alice
user add 2 Bob
task add 1 Buy milk
task add 99 X
task transfer 1 2
task complete 1
task list
task transfer 5 1
task complete 5
stats
`
	session, out, _ := newTestSession(t, script)
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	want := strings.Join([]string{
		"User 1 registered.",
		"User 2 registered.",
		"Task 1 created.",
		"Error: User does not exist",
		"Task 1 transferred from User 1 to User 2.",
		"OK",
		"Task 1 completed.",
		"Task 1: Buy milk (Owner: Bob, Completed: true)",
		"Error: Task not found",
		"Error: Task not found",
		"Users: 2, Tasks: 1 (open 0, completed 1)",
	}, "\n") + "\n"
	if out.String() != want {
		t.Fatalf("unexpected output:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestTransferConfirmsWithoutNoticeSink(t *testing.T) {
	out := &bytes.Buffer{}
	registry := task.NewRegistry(task.WithLogger(logger.New(io.Discard, "error")))
	input := "user add 1 A\nuser add 2 B\ntask add 1 t\ntask transfer 1 2\n"
	session := NewSession(registry, strings.NewReader(input), out, WithLogger(logger.New(io.Discard, "error")))

	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "User 1 registered.\nUser 2 registered.\nTask 1 created.\nOK\n"
	if out.String() != want {
		t.Fatalf("unexpected output: %q", out.String())
	}
	got, err := registry.Task(context.Background(), 1)
	if err != nil || got.Owner != 2 {
		t.Fatalf("expected task 1 owned by user 2, got %+v (%v)", got, err)
	}
}

func TestRunAcceptsLinesLongerThanScannerBuffer(t *testing.T) {
	long := strings.Repeat("x", 70*1024)
	input := "user add 1 Alice\ntask add 1 " + long + "\ntask add 1 after\ntask list"
	session, out, registry := newTestSession(t, input)

	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	ctx := context.Background()
	first, err := registry.Task(ctx, 1)
	if err != nil {
		t.Fatalf("get task 1: %v", err)
	}
	if first.Description != long {
		t.Fatalf("long description was truncated to %d bytes", len(first.Description))
	}
	if _, err := registry.Task(ctx, 2); err != nil {
		t.Fatalf("command after the long line did not run: %v", err)
	}
	if !strings.HasSuffix(out.String(), "Task 2: after (Owner: Alice, Completed: false)\n") {
		t.Fatalf("final line without newline should still run, output tail %q", out.String()[len(out.String())-80:])
	}
}

func TestExecuteReportsInputErrors(t *testing.T) {
	cases := []struct {
		line string
		want string
	}{
		{"user add abc Alice", `Error: invalid user id "abc": please enter a valid number`},
		{"user add -1 Alice", `Error: invalid user id "-1": please enter a valid number`},
		{"user add 3", "Error: missing user name"},
		{"task add", "Error: missing owner id"},
		{"task transfer 1", "Error: missing new owner id"},
		{"task complete 1 2", `Error: unexpected arguments "2"`},
		{"task remove 1", `Error: unknown command "task", type help for usage`},
		{"frobnicate", `Error: unknown command "frobnicate", type help for usage`},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			session, out, registry := newTestSession(t, "")
			err := session.Execute(context.Background(), tc.line)
			if xerrors.CodeOf(err) != xerrors.CodeInvalidArgument {
				t.Fatalf("expected invalid argument, got %v", err)
			}
			if got := strings.TrimSpace(out.String()); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
			if stats := registry.Stats(context.Background()); stats.Users != 0 || stats.Total != 0 {
				t.Fatalf("malformed input must not mutate the registry: %+v", stats)
			}
		})
	}
}

func TestDescriptionsKeepInnerSpacing(t *testing.T) {
	session, out, registry := newTestSession(t, "user add 1   Ada  Lovelace  \ntask add 1  call   the bank \nuser list\n")
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	ctx := context.Background()
	got, err := registry.Task(ctx, 1)
	if err != nil {
		t.Fatalf("get task: %v", err)
	}
	if got.Description != "call   the bank" {
		t.Fatalf("unexpected description: %q", got.Description)
	}
	if !strings.Contains(out.String(), "User 1: Ada  Lovelace\n") {
		t.Fatalf("unexpected output: %q", out.String())
	}
}

func TestRunStopsOnQuitAndPrintsPrompt(t *testing.T) {
	session, out, registry := newTestSession(t, "user add 1 Alice\nquit\nuser add 2 Bob\n", WithPrompt("> "))
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.String() != "> User 1 registered.\n> " {
		t.Fatalf("unexpected output: %q", out.String())
	}
	if registry.Stats(context.Background()).Users != 1 {
		t.Fatalf("commands after quit must not run")
	}
}

func TestRunHonoursCancelledContext(t *testing.T) {
	session, out, _ := newTestSession(t, "user add 1 Alice\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := session.Run(ctx); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if out.Len() != 0 {
		t.Fatalf("no command should run after cancellation, got %q", out.String())
	}
}

func TestEmptyListingsAndHelp(t *testing.T) {
	session, out, _ := newTestSession(t, "task list\nuser list\nhelp\n")
	if err := session.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	text := out.String()
	if !strings.HasPrefix(text, "No tasks.\nNo users.\nCommands:\n") {
		t.Fatalf("unexpected output: %q", text)
	}
	for _, usage := range []string{"user add <id> <name>", "task transfer <task-id> <new-owner-id>", "quit | exit"} {
		if !strings.Contains(text, usage) {
			t.Fatalf("help should mention %q: %q", usage, text)
		}
	}
	if session.ID() == "" {
		t.Fatalf("expected session id")
	}
}

func TestRunGuidedFollowsPromptSequence(t *testing.T) {
	input := strings.Join([]string{
		"1", "Alice",
		"two",
		"2", "Bob",
		"done",
		"Buy milk", "1",
		"Orphan", "x", "99",
		"done",
		"1", "2",
		"1",
	}, "\n") + "\n"
	session, out, registry := newTestSession(t, input)
	if err := session.RunGuided(context.Background()); err != nil {
		t.Fatalf("run guided: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		`Error: invalid user id "two": please enter a valid number`,
		`Error: invalid owner id "x": please enter a valid number`,
		"Error: User does not exist",
		"Current tasks:\nTask 1: Buy milk (Owner: Alice, Completed: false)",
		"Task 1 transferred from User 1 to User 2.",
		"Tasks after transfer:\nTask 1: Buy milk (Owner: Bob, Completed: false)",
		"Tasks after completion:\nTask 1: Buy milk (Owner: Bob, Completed: true)",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in output:\n%s", want, text)
		}
	}
	stats := registry.Stats(context.Background())
	if stats.Users != 2 || stats.Total != 1 || stats.Completed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRunGuidedStopsAtEndOfInput(t *testing.T) {
	session, out, registry := newTestSession(t, "1\nAlice\n")
	if err := session.RunGuided(context.Background()); err != nil {
		t.Fatalf("early end of input should not be an error: %v", err)
	}
	if registry.Stats(context.Background()).Users != 1 {
		t.Fatalf("expected the user entered before EOF to be registered")
	}
	if strings.Contains(out.String(), "Current tasks:") {
		t.Fatalf("guided flow should stop at end of input: %q", out.String())
	}
}

func TestNextField(t *testing.T) {
	cases := []struct {
		in, head, tail string
	}{
		{"", "", ""},
		{"  list  ", "list", ""},
		{"add 1  Buy  milk ", "add", "1  Buy  milk"},
		{"a\tb", "a", "b"},
	}
	for _, tc := range cases {
		head, tail := nextField(tc.in)
		if head != tc.head || tail != tc.tail {
			t.Fatalf("nextField(%q) = %q, %q; want %q, %q", tc.in, head, tail, tc.head, tc.tail)
		}
	}
}
