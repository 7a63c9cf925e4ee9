package console

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	xerrors "taskdesk/internal/errors"
)

// nextField 切出第一个以空白分隔的字段，剩余部分保留内部空白并去掉首尾空白。
func nextField(s string) (string, string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx:])
}

func firstField(s string) string {
	field, _ := nextField(s)
	return field
}

// parseID 把非负十进制整数解析为标识。
func parseID(label, raw string) (uint64, error) {
	if raw == "" {
		return 0, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("missing %s", label),
			xerrors.WithMetadata("field", label))
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, xerrors.Wrap(xerrors.CodeInvalidArgument, err,
			fmt.Sprintf("invalid %s %q: please enter a valid number", label, raw),
			xerrors.WithMetadata("field", label))
	}
	return id, nil
}

func requireText(label, raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("missing %s", label),
			xerrors.WithMetadata("field", label))
	}
	return text, nil
}

func noArgs(rest string) error {
	if strings.TrimSpace(rest) != "" {
		return xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("unexpected arguments %q", rest))
	}
	return nil
}
