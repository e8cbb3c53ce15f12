// Package vmrun drives VMs through the external vmrun control tool.
package vmrun

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/projecteru2/core/log"
)

// waitDelay bounds how long a cancelled invocation waits for the tool's
// output pipes after it has been killed.
const waitDelay = 5 * time.Second

// Verb is a VM lifecycle operation understood by the control tool.
type Verb string

const (
	VerbStart Verb = "start" // launch attached to the GUI console
	VerbStop  Verb = "stop"  // soft shutdown
	VerbPause Verb = "pause"
	VerbReset Verb = "reset" // soft reset
)

// Verbs lists the supported verbs in display order.
var Verbs = []Verb{VerbStart, VerbStop, VerbPause, VerbReset}

// ErrUnsupportedOperation is returned for a verb outside Verbs.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// Controller is the VM control port. Implementations must not start any
// process for an unsupported verb.
type Controller interface {
	Invoke(ctx context.Context, verb Verb, vmxPath string) error
	List(ctx context.Context) ([]string, error)
}

// ExitError reports that the control tool ran but exited non-zero.
type ExitError struct {
	Args   []string
	Code   int
	Output string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("vmrun %s: exit status %d", strings.Join(e.Args, " "), e.Code)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

// ParseVerb validates s as a Verb.
func ParseVerb(s string) (Verb, error) {
	v := Verb(s)
	if _, err := Args(v, ""); err != nil {
		return "", err
	}
	return v, nil
}

// Args builds the control tool arguments for verb against vmxPath.
func Args(verb Verb, vmxPath string) ([]string, error) {
	switch verb {
	case VerbStart:
		return []string{"start", vmxPath, "gui"}, nil
	case VerbStop:
		return []string{"stop", vmxPath, "soft"}, nil
	case VerbPause:
		return []string{"pause", vmxPath}, nil
	case VerbReset:
		return []string{"reset", vmxPath, "soft"}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedOperation, verb)
	}
}

// compile-time interface check.
var _ Controller = (*VMRun)(nil)

// VMRun is the Controller backed by the vmrun executable.
type VMRun struct {
	binary string
}

// New creates a VMRun that executes binary (a path or a name on PATH).
func New(binary string) *VMRun {
	return &VMRun{binary: binary}
}

// Invoke implements Controller. Cancelling ctx kills the tool process, but
// whatever the tool already asked the hypervisor to do is not undone.
func (v *VMRun) Invoke(ctx context.Context, verb Verb, vmxPath string) error {
	args, err := Args(verb, vmxPath)
	if err != nil {
		return err
	}
	out, err := v.run(ctx, args)
	if err != nil {
		return err
	}
	log.WithFunc("vmrun.Invoke").Debugf(ctx, "vmrun %s: %s", strings.Join(args, " "), strings.TrimSpace(out))
	return nil
}

// List implements Controller. It returns one entry per running VM.
func (v *VMRun) List(ctx context.Context) ([]string, error) {
	out, err := v.run(ctx, []string{"list"})
	if err != nil {
		return nil, err
	}
	return ParseList(out), nil
}

func (v *VMRun) run(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, v.binary, args...) //nolint:gosec
	cmd.WaitDelay = waitDelay
	out, err := cmd.CombinedOutput()
	if err == nil {
		return string(out), nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) && ctx.Err() == nil {
		return "", &ExitError{Args: args, Code: ee.ExitCode(), Output: string(out)}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", fmt.Errorf("vmrun %s: %w", args[0], ctxErr)
	}
	return "", fmt.Errorf("exec %s: %w", v.binary, err)
}

// ParseList parses `vmrun list` output: a header line followed by one
// running VM per line.
func ParseList(out string) []string {
	var vms []string
	sc := bufio.NewScanner(strings.NewReader(out))
	first := true
	for sc.Scan() {
		if first {
			first = false
			continue
		}
		if line := strings.TrimSpace(sc.Text()); line != "" {
			vms = append(vms, line)
		}
	}
	return vms
}
