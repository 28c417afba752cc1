// Package tracelog implements sx's --trace diagnostic observer
// (spec.md §9 Design Notes, §12.4): a best-effort tail of the unified
// system log for Seatbelt denial messages correlated to a single
// sandboxed child PID. It has no enforcement authority — it only
// explains, after the fact, why something the user ran was denied.
package tracelog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Violation is a single parsed Seatbelt denial line.
type Violation struct {
	Timestamp time.Time
	Operation string // e.g. "file-write-data", "network-outbound"
	Path      string // affected path, if present
	RawLine   string
}

// noiseProcesses lists system daemons whose own sandbox denials are not
// relevant to the user's command and are filtered out.
var noiseProcesses = []string{
	"mDNSResponder", "diagnosticd", "symptomsd", "syslogd",
	"logd", "opendirectoryd", "trustd", "securityd",
}

// logStreamCommand builds the `log stream` invocation filtered to pid.
func logStreamCommand(pid int) []string {
	return []string{
		"log", "stream",
		"--predicate", fmt.Sprintf("processID == %d OR eventMessage CONTAINS %q", pid, fmt.Sprintf("[%d]", pid)),
		"--style", "compact",
	}
}

// Tracer watches the unified system log for Seatbelt denials concerning a
// single sandboxed child process, for the lifetime of an --trace session.
type Tracer struct {
	mu         sync.Mutex
	pid        int
	violations []Violation
	cmd        *exec.Cmd
	cancel     context.CancelFunc
	done       chan struct{}

	// streamCmd overrides the log stream command; used by tests.
	streamCmd []string
}

// New returns a Tracer that will watch denials attributed to pid.
func New(pid int) *Tracer {
	return &Tracer{pid: pid}
}

// Start begins tailing the system log in the background.
func (t *Tracer) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()
		return errors.New("tracelog: already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})

	args := t.streamCmd
	if len(args) == 0 {
		args = logStreamCommand(t.pid)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	t.cmd = cmd

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.cancel = nil
		cancel()
		t.mu.Unlock()
		return fmt.Errorf("tracelog: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		t.cancel = nil
		cancel()
		t.mu.Unlock()
		return fmt.Errorf("tracelog: starting log stream: %w", err)
	}
	t.mu.Unlock()

	go func() {
		defer close(t.done)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if v := parseLine(scanner.Text()); v != nil {
				t.add(*v)
			}
		}
		_ = cmd.Wait()
	}()
	return nil
}

// Stop ends the tracer and waits for its background goroutine to exit.
func (t *Tracer) Stop() error {
	t.mu.Lock()
	cancel := t.cancel
	done := t.done
	t.cancel = nil
	t.mu.Unlock()

	if cancel == nil {
		return errors.New("tracelog: not started")
	}
	cancel()
	if done != nil {
		<-done
	}
	return nil
}

// Violations returns a snapshot of every denial observed so far.
func (t *Tracer) Violations() []Violation {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Violation, len(t.violations))
	copy(out, t.violations)
	return out
}

func (t *Tracer) add(v Violation) {
	t.mu.Lock()
	t.violations = append(t.violations, v)
	t.mu.Unlock()
}

// Render returns a human-readable, colorized summary of violations for the
// --trace output. Like the --explain rendering in cmd/sx, it keeps color
// well away from the machine-parseable "sx: <kind>: <detail>" line.
func Render(violations []Violation) string {
	if len(violations) == 0 {
		return color.New(color.FgGreen).Sprint("no sandbox denials observed")
	}
	var b strings.Builder
	deny := color.New(color.FgRed, color.Bold)
	op := color.New(color.FgYellow)
	for _, v := range violations {
		fmt.Fprintf(&b, "%s %s %s\n", deny.Sprint("deny"), op.Sprint(v.Operation), v.Path)
	}
	return b.String()
}

func parseLine(line string) *Violation {
	if !strings.Contains(line, "deny") {
		return nil
	}
	for _, proc := range noiseProcesses {
		if strings.Contains(line, proc) {
			return nil
		}
	}
	return &Violation{
		Timestamp: time.Now(),
		Operation: extractOperation(line),
		Path:      extractPath(line),
		RawLine:   line,
	}
}

func extractOperation(line string) string {
	if idx := strings.Index(line, "deny("); idx >= 0 {
		start := idx + len("deny(")
		if end := strings.Index(line[start:], ")"); end > 0 {
			return line[start : start+end]
		}
	}
	if idx := strings.Index(line, "deny "); idx >= 0 {
		rest := line[idx+len("deny "):]
		if end := strings.IndexAny(rest, " \t,;)"); end > 0 {
			return rest[:end]
		}
		return rest
	}
	return ""
}

func extractPath(line string) string {
	idx := 0
	for idx < len(line) {
		slash := strings.Index(line[idx:], "/")
		if slash < 0 {
			break
		}
		pos := idx + slash
		if pos > 0 {
			prev := line[pos-1]
			if prev != ' ' && prev != '(' && prev != '\t' && prev != '"' {
				idx = pos + 1
				continue
			}
		}
		end := strings.IndexAny(line[pos:], " \t)\"',;")
		if end > 0 {
			return line[pos : pos+end]
		}
		return line[pos:]
	}
	return ""
}

// pidFromLine is unused outside tests; kept to document the bracketed-PID
// convention `log stream --style compact` uses in its output.
func pidFromLine(line string) (int, bool) {
	fields := strings.Fields(line)
	for _, f := range fields {
		if open := strings.Index(f, "["); open > 0 {
			if closeIdx := strings.Index(f[open:], "]"); closeIdx > 0 {
				if n, err := strconv.Atoi(f[open+1 : open+closeIdx]); err == nil {
					return n, true
				}
			}
		}
	}
	return 0, false
}
