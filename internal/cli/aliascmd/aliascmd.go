// Package aliascmd resolves contact identifiers by invoking an external
// lookup command. The command receives a JSON request on stdin and must
// reply with a JSON response on stdout within the configured timeout.
package aliascmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/voiceweave/voice-weaver/pkg/weaver/alias"
)

const (
	// SchemaVersion is the lookup protocol version carried in every
	// request and expected in every response.
	SchemaVersion = "1.0"

	// DefaultTimeout bounds a single lookup invocation.
	DefaultTimeout = 5 * time.Second

	// maxOutputBytes caps stdout/stderr capture from the lookup command.
	maxOutputBytes = 1 << 20
	// maxLogOutputBytes limits command output echoed into log records.
	maxLogOutputBytes = 1024
)

// Request is the JSON document written to the lookup command's stdin.
type Request struct {
	SchemaVersion string `json:"schemaVersion"`
	Identifier    string `json:"identifier"`
}

// Response is the JSON document expected on the lookup command's stdout.
// An empty Name means the command has no answer for the identifier.
type Response struct {
	SchemaVersion string `json:"schemaVersion"`
	Name          string `json:"name"`
	Error         string `json:"error,omitempty"`
}

// CommandResolver implements alias.Resolver by shelling out to a lookup
// command once per distinct identifier. Results, including failures, are
// cached for the lifetime of the resolver so a misbehaving command is
// invoked at most once per identifier.
type CommandResolver struct {
	logger  *slog.Logger
	command []string
	timeout time.Duration

	mu    sync.Mutex
	cache map[string]string
}

var _ alias.Resolver = (*CommandResolver)(nil)

// NewCommandResolver creates a resolver around the given command line.
// The first element is the executable, the rest are arguments. A
// non-positive timeout falls back to DefaultTimeout.
func NewCommandResolver(loggerHandler slog.Handler, command []string, timeout time.Duration) *CommandResolver {
	if loggerHandler == nil {
		loggerHandler = slog.NewTextHandler(io.Discard, nil)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := slog.New(loggerHandler).With(slog.String("component", "aliasCommand"))
	return &CommandResolver{
		logger:  logger,
		command: command,
		timeout: timeout,
		cache:   make(map[string]string),
	}
}

// Resolve looks up a display name for identifier. Any failure (bad
// configuration, timeout, non-zero exit, malformed output) is logged and
// the identifier is returned unchanged.
func (r *CommandResolver) Resolve(identifier string) string {
	if identifier == "" || len(r.command) == 0 {
		return identifier
	}

	r.mu.Lock()
	if cached, ok := r.cache[identifier]; ok {
		r.mu.Unlock()
		return cached
	}
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	name, err := r.lookup(ctx, identifier)
	if err != nil {
		r.logger.Warn("Alias lookup failed, keeping identifier",
			slog.String("identifier", identifier),
			slog.Any("error", err))
		name = identifier
	} else if name == "" {
		name = identifier
	}

	r.mu.Lock()
	r.cache[identifier] = name
	r.mu.Unlock()
	return name
}

// lookup performs one command invocation for identifier.
func (r *CommandResolver) lookup(ctx context.Context, identifier string) (string, error) {
	inputJSON, err := json.Marshal(Request{SchemaVersion: SchemaVersion, Identifier: identifier})
	if err != nil {
		return "", fmt.Errorf("failed to marshal lookup request: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.command[0], r.command[1:]...)
	cmd.Stdin = bytes.NewReader(inputJSON)

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if startErr := cmd.Start(); startErr != nil {
		return "", fmt.Errorf("failed to start command %q: %w", r.command[0], startErr)
	}

	var wg sync.WaitGroup
	var stdoutData, stderrData []byte
	var stdoutTruncated bool

	wg.Add(1)
	go func() {
		defer wg.Done()
		var buf bytes.Buffer
		n, _ := io.Copy(&buf, io.LimitReader(stdoutPipe, maxOutputBytes))
		stdoutData = buf.Bytes()
		if n >= maxOutputBytes {
			stdoutTruncated = true
			_, _ = io.Copy(io.Discard, stdoutPipe)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, io.LimitReader(stderrPipe, maxOutputBytes))
		stderrData = buf.Bytes()
		_, _ = io.Copy(io.Discard, stderrPipe)
	}()

	waitErr := cmd.Wait()
	wg.Wait()
	stderrString := strings.TrimSpace(string(stderrData))
	if len(stderrString) > maxLogOutputBytes {
		stderrString = stderrString[:maxLogOutputBytes] + "... (truncated)"
	}

	if ctx.Err() != nil {
		return "", fmt.Errorf("lookup cancelled or timed out after %s: %w", r.timeout, ctx.Err())
	}

	if waitErr != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		if stderrString != "" {
			return "", fmt.Errorf("command exited with code %d: %s", exitCode, stderrString)
		}
		return "", fmt.Errorf("command exited with code %d: %w", exitCode, waitErr)
	}

	if stdoutTruncated {
		return "", fmt.Errorf("command stdout exceeded limit of %d bytes", maxOutputBytes)
	}
	if len(stdoutData) == 0 {
		return "", errors.New("command returned empty stdout")
	}

	var resp Response
	if unmarshalErr := json.Unmarshal(stdoutData, &resp); unmarshalErr != nil {
		logStdout := string(stdoutData)
		if len(logStdout) > maxLogOutputBytes {
			logStdout = logStdout[:maxLogOutputBytes] + "... (truncated)"
		}
		return "", fmt.Errorf("failed to unmarshal response %q: %w", logStdout, unmarshalErr)
	}

	if resp.SchemaVersion != SchemaVersion {
		return "", fmt.Errorf("incompatible response schema version %q, expected %q", resp.SchemaVersion, SchemaVersion)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("command reported error: %s", resp.Error)
	}

	if stderrString != "" {
		r.logger.Debug("Alias command produced stderr output",
			slog.String("identifier", identifier),
			slog.String("stderr", stderrString))
	}

	return strings.TrimSpace(resp.Name), nil
}
