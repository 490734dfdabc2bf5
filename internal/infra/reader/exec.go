package reader

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/cockroachdb/errors"
)

// ExecReader runs a shell command once per poll and takes the first line of
// its output as the tag id. A command that exits non-zero without printing
// anything reports no tag.
type ExecReader struct {
	command string
}

// NewExecReader creates a reader around command.
func NewExecReader(command string) (*ExecReader, error) {
	if strings.TrimSpace(command) == "" {
		return nil, errors.New("reader command is required")
	}
	return &ExecReader{command: command}, nil
}

// Poll implements Reader.
func (r *ExecReader) Poll(ctx context.Context) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "sh", "-c", r.command)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	id := firstLine(stdout.String())

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && id == "" && ctx.Err() == nil {
			return "", nil
		}
		return "", errors.Wrapf(err, "reader command failed: %s", strings.TrimSpace(stderr.String()))
	}
	return id, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}
