// Package browser closes and launches the Firefox process.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	ps "github.com/mitchellh/go-ps"
)

// DefaultProcessName is the executable name looked up when closing.
const DefaultProcessName = "firefox"

// SettleDelay is the pause after killing so file locks are released.
const SettleDelay = 300 * time.Millisecond

// Controller stops and starts the browser around a user.js write.
type Controller interface {
	Close(ctx context.Context) error
	Launch(ctx context.Context) error
}

// CommandRunner is an interface for running external commands.
// This allows for mocking in tests.
type CommandRunner interface {
	Run(name string, args ...string) ([]byte, error)
	Start(name string, args ...string) error
}

// DefaultCommandRunner uses os/exec to run commands.
type DefaultCommandRunner struct{}

// Run waits for the command and returns its combined output.
func (r *DefaultCommandRunner) Run(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	return cmd.CombinedOutput()
}

// Start launches the command without waiting for it.
func (r *DefaultCommandRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return err
	}
	return cmd.Process.Release()
}

// Process controls Firefox through the OS process table.
type Process struct {
	name   string
	binary string
	goos   string
	settle time.Duration
	runner CommandRunner
	list   func() ([]ps.Process, error)
	signal func(pid int) error
	logger *log.Logger
}

// NewProcess creates a controller matching executables called name. An
// empty binary launches Firefox the platform's usual way.
func NewProcess(name, binary string) *Process {
	if name == "" {
		name = DefaultProcessName
	}
	return &Process{
		name:   name,
		binary: binary,
		goos:   runtime.GOOS,
		settle: SettleDelay,
		runner: &DefaultCommandRunner{},
		list:   ps.Processes,
		signal: terminate,
		logger: log.New(io.Discard),
	}
}

// WithRunner replaces the command runner.
func (p *Process) WithRunner(r CommandRunner) *Process {
	p.runner = r
	return p
}

// WithProcessList replaces the process table lookup.
func (p *Process) WithProcessList(list func() ([]ps.Process, error), signal func(pid int) error) *Process {
	p.list = list
	if signal != nil {
		p.signal = signal
	}
	return p
}

// WithSettle sets the pause after closing.
func (p *Process) WithSettle(d time.Duration) *Process {
	p.settle = d
	return p
}

// WithLogger sets the logger.
func (p *Process) WithLogger(l *log.Logger) *Process {
	if l != nil {
		p.logger = l
	}
	return p
}

// Matches reports whether an executable name belongs to the browser.
// Packaged variants such as firefox-bin and firefox-esr count.
func (p *Process) Matches(executable string) bool {
	exe := strings.ToLower(executable)
	exe = strings.TrimSuffix(exe, ".exe")
	want := strings.ToLower(p.name)
	if want == "" {
		return false
	}
	return exe == want || strings.HasPrefix(exe, want+"-")
}

// Running returns the pids of matching processes.
func (p *Process) Running() ([]int, error) {
	procs, err := p.list()
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}
	self := os.Getpid()

	var pids []int
	for _, proc := range procs {
		if proc.Pid() == self {
			continue
		}
		if p.Matches(proc.Executable()) {
			pids = append(pids, proc.Pid())
		}
	}
	return pids, nil
}

// Close terminates every matching process. Nothing running is not an error.
func (p *Process) Close(ctx context.Context) error {
	pids, err := p.Running()
	if err != nil {
		return err
	}
	if len(pids) == 0 {
		p.logger.Debug("browser not running", "name", p.name)
		return nil
	}

	var errs []error
	for _, pid := range pids {
		if err := p.signal(pid); err != nil && !errors.Is(err, os.ErrProcessDone) {
			errs = append(errs, fmt.Errorf("pid %d: %w", pid, err))
		}
	}
	p.logger.Debug("browser closed", "name", p.name, "pids", pids)

	timer := time.NewTimer(p.settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	if len(errs) > 0 {
		return fmt.Errorf("failed to close %s: %w", p.name, errors.Join(errs...))
	}
	return nil
}

// Launch starts the browser detached from this process.
func (p *Process) Launch(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, args := LaunchCommand(p.goos, p.binary)
	if err := p.runner.Start(name, args...); err != nil {
		return fmt.Errorf("failed to launch %s: %w", name, err)
	}
	p.logger.Debug("browser launched", "command", name, "args", args)
	return nil
}

// LaunchCommand returns the command used to start Firefox on goos.
func LaunchCommand(goos, binary string) (string, []string) {
	if binary != "" {
		return binary, nil
	}
	switch goos {
	case "windows":
		return "cmd", []string{"/c", "start", "", "firefox"}
	case "darwin":
		return "open", []string{"-a", "Firefox"}
	default:
		return "firefox", nil
	}
}

var versionRegex = regexp.MustCompile(`(\d+(?:\.\d+)+)`)

// Version asks the installed binary for its version ("Mozilla Firefox 128.0.3").
func (p *Process) Version(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	binary := p.binary
	if binary == "" {
		binary = DefaultProcessName
	}
	out, err := p.runner.Run(binary, "-v")
	if err != nil {
		return "", fmt.Errorf("failed to query %s version: %w", binary, err)
	}
	m := versionRegex.FindStringSubmatch(string(out))
	if m == nil {
		return "", fmt.Errorf("no version in %q", strings.TrimSpace(string(out)))
	}
	return m[1], nil
}

func terminate(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if runtime.GOOS == "windows" {
		return proc.Kill()
	}
	return proc.Signal(syscall.SIGTERM)
}
