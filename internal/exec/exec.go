// Package exec is the remote executor: one policy decision — local
// subprocess on the master host, shell-out to ssh/rsync otherwise — behind
// a single Run/Push/Pull contract. The package never decides whether a
// failure matters; callers (internal/executor) apply the already-exists
// downgrade and batch semantics.
package exec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	log "github.com/activeshadow/libminimega/minilog"

	"github.com/Bristol-Cyber-Security-Group/testbed-os-sub000/types"
)

// CommandFailed is returned when a command exits non-zero and AllowFail was
// not set.
type CommandFailed struct {
	Argv   []string
	Stderr string
}

func (e *CommandFailed) Error() string {
	return fmt.Sprintf("command %q failed: %s", strings.Join(e.Argv, " "), e.Stderr)
}

// backgroundSamplePrefix bounds how much of a background child's output is
// folded into the log stream, enough to catch early-failure banners like
// the AVD "Unknown AVD name" message.
const backgroundSamplePrefix = 4096

// Executor runs commands against cluster hosts, local or remote, and moves
// files to/from them.
type Executor struct {
	// Master is the name this executor itself runs on; Run treats it as the
	// local-dispatch case.
	Master string
	Hosts  map[string]types.TestbedHost
}

func New(master string, hosts map[string]types.TestbedHost) *Executor {
	return &Executor{Master: master, Hosts: hosts}
}

// Run executes argv on host, returning its stdout. On host == e.Master the
// process is spawned locally; otherwise it is run over ssh using the host's
// recorded user/address/private key, with batch-mode host-key checking
// disabled (acceptable: cluster members already exchanged keys at join).
func (e *Executor) Run(ctx context.Context, host string, argv []string, opts ...Option) (string, error) {
	o := newOptions(opts...)

	if o.background {
		go e.runBackground(host, argv, o)
		return "dispatched", nil
	}

	stdout, stderr, err := e.run(ctx, host, argv, o)
	if err != nil {
		if o.allowFail {
			log.Warn("command %v on %s failed (allowed): %v: %s", argv, host, err, stderr)
			return stdout, nil
		}
		return stdout, &CommandFailed{Argv: argv, Stderr: stderr}
	}

	return stdout, nil
}

func (e *Executor) runBackground(host string, argv []string, o options) {
	ctx := context.Background()
	stdout, stderr, err := e.run(ctx, host, argv, o)

	sample := stdout
	if len(sample) > backgroundSamplePrefix {
		sample = sample[:backgroundSamplePrefix]
	}
	log.Debug("background command %v on %s produced: %s", argv, host, sample)

	if err != nil {
		errSample := stderr
		if len(errSample) > backgroundSamplePrefix {
			errSample = errSample[:backgroundSamplePrefix]
		}
		log.Error("background command %v on %s failed: %v: %s", argv, host, err, errSample)
	}
}

func (e *Executor) run(ctx context.Context, host string, argv []string, o options) (string, string, error) {
	if len(argv) == 0 {
		return "", "", fmt.Errorf("empty command")
	}

	var cmd *exec.Cmd

	if host == e.Master || host == "" {
		cmd = exec.CommandContext(ctx, argv[0], argv[1:]...)
	} else {
		h, ok := e.Hosts[host]
		if !ok {
			return "", "", fmt.Errorf("unknown host %s", host)
		}

		sshArgs := []string{
			"-i", h.SSHPrivateKeyLocation,
			"-o", "StrictHostKeyChecking=no",
			"-o", "BatchMode=yes",
			fmt.Sprintf("%s@%s", h.Username, h.IP),
		}
		sshArgs = append(sshArgs, argv...)

		cmd = exec.CommandContext(ctx, "ssh", sshArgs...)
	}

	if o.workingDir != "" {
		cmd.Dir = o.workingDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Push copies src (on this process's host) to dst on the named host. It is
// a no-op when host is the master.
func (e *Executor) Push(ctx context.Context, host, src, dst string, overwrite bool) error {
	if host == e.Master || host == "" {
		return nil
	}

	h, ok := e.Hosts[host]
	if !ok {
		return fmt.Errorf("unknown host %s", host)
	}

	args := []string{"-az", "-e", fmt.Sprintf("ssh -i %s -o StrictHostKeyChecking=no -o BatchMode=yes", h.SSHPrivateKeyLocation)}
	if !overwrite {
		args = append(args, "--ignore-existing")
	}
	args = append(args, src, fmt.Sprintf("%s@%s:%s", h.Username, h.IP, dst))

	cmd := exec.CommandContext(ctx, "rsync", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &CommandFailed{Argv: cmd.Args, Stderr: stderr.String()}
	}
	return nil
}

// Pull copies src on the named host down to dst on this process's host.
func (e *Executor) Pull(ctx context.Context, host, dst, src string) error {
	if host == e.Master || host == "" {
		return nil
	}

	h, ok := e.Hosts[host]
	if !ok {
		return fmt.Errorf("unknown host %s", host)
	}

	args := []string{"-az", "-e", fmt.Sprintf("ssh -i %s -o StrictHostKeyChecking=no -o BatchMode=yes", h.SSHPrivateKeyLocation),
		fmt.Sprintf("%s@%s:%s", h.Username, h.IP, src), dst}

	cmd := exec.CommandContext(ctx, "rsync", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &CommandFailed{Argv: cmd.Args, Stderr: stderr.String()}
	}
	return nil
}

// CommandExists reports whether name is on PATH, matching util/shell's
// CommandExists check used before relying on an external binary.
func CommandExists(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
