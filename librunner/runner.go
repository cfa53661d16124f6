// Package librunner runs shell command strings and captures their output.
package librunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

var ErrEmptyCommand = errors.New("librunner: command is empty")

// Result is the outcome of one command. A non-zero Status is not an error.
type Result struct {
	Stdout  string
	Stderr  string
	Status  int
	Success bool
}

const waitDelay = 2 * time.Second

// RunShell runs command through /bin/sh -c. When input is non-empty it is
// written to the process stdin.
func RunShell(ctx context.Context, command string, input string) (*Result, error) {
	if strings.TrimSpace(command) == "" {
		return nil, ErrEmptyCommand
	}

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
	// Children of a killed shell may keep the output pipes open.
	cmd.WaitDelay = waitDelay
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) || ctx.Err() != nil {
			return result, fmt.Errorf("failed to run command: %w", err)
		}
		result.Status = exitErr.ExitCode()
	}
	result.Success = result.Status == 0
	return result, nil
}

// Quote wraps arg in single quotes so the shell passes it through as one
// literal word.
func Quote(arg string) string {
	if arg == "" {
		return "''"
	}
	return "'" + strings.ReplaceAll(arg, "'", `'"'"'`) + "'"
}

// Join quotes each argument and joins them with spaces.
func Join(args ...string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = Quote(a)
	}
	return strings.Join(quoted, " ")
}
