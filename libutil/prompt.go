package libutil

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrNoAnswer = errors.New("libutil: input ended before an answer was given")

// ParseBool maps the usual yes/no spellings to a bool.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "t", "true", "on", "1":
		return true, nil
	case "n", "no", "f", "false", "off", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid truth value %q", s)
}

// AskYesOrNo writes question to out and reads answers from in until one
// parses.
func AskYesOrNo(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [Yes/No] ", question)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if answer, err := ParseBool(scanner.Text()); err == nil {
			return answer, nil
		}
		fmt.Fprint(out, "Please respond with [yes|y] or [no|n]: ")
	}
	if err := scanner.Err(); err != nil {
		return false, err
	}
	return false, ErrNoAnswer
}
