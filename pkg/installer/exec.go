package installer

import (
	"bytes"
	"errors"
	"os/exec"

	"github.com/rs/zerolog/log"
)

// execCommander runs real processes and blocks until they terminate.
type execCommander struct{}

func (execCommander) Run(name string, args []string) (int, error) {
	cmd := exec.Command(name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			log.Debug().
				Str("command", name).
				Int("exit_code", exitErr.ExitCode()).
				Str("stderr", stderr.String()).
				Msg("Command exited non-zero")
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}
