// Package builder runs platform build toolchains against a workspace and
// extracts diagnostics from failed output.
package builder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"sort"
	"time"

	"github.com/forgeloop-io/forgeloop/internal/models"
)

// ErrUnknownPlatform is returned for a platform with no configured builder.
var ErrUnknownPlatform = errors.New("unknown platform")

// Result is the outcome of one build invocation.
type Result struct {
	Success  bool
	Output   string
	Err      string // diagnostic summary, non-empty on failure
	Duration time.Duration
}

// Builder builds one target platform in a workspace root. Implementations
// must be safe to invoke repeatedly and must respect context cancellation.
type Builder interface {
	Build(ctx context.Context, root string) Result
}

// CommandBuilder runs a configured build command with a timeout.
type CommandBuilder struct {
	Platform string
	Command  []string
	Timeout  time.Duration
}

// NewCommandBuilder creates a builder from platform settings.
func NewCommandBuilder(platform string, cfg *models.BuilderSettings) (*CommandBuilder, error) {
	if cfg == nil || len(cfg.Command) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = models.DefaultBuildTimeoutSecs * time.Second
	}
	return &CommandBuilder{Platform: platform, Command: cfg.Command, Timeout: timeout}, nil
}

// Build implements Builder. The combined output is captured; on failure
// the diagnostic summary is extracted from it.
func (b *CommandBuilder) Build(ctx context.Context, root string) Result {
	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	start := time.Now()
	log.Printf("[builder] %s: %v (in %s)", b.Platform, b.Command, root)

	cmd := exec.CommandContext(ctx, b.Command[0], b.Command[1:]...)
	cmd.Dir = root

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	res := Result{
		Success:  err == nil,
		Output:   buf.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			res.Err = fmt.Sprintf("build timed out after %s", b.Timeout)
		} else {
			res.Err = ExtractError(res.Output)
			if res.Err == "" {
				res.Err = err.Error()
			}
		}
		log.Printf("[builder] %s failed in %s", b.Platform, res.Duration.Round(time.Second))
	} else {
		log.Printf("[builder] %s succeeded in %s", b.Platform, res.Duration.Round(time.Second))
	}
	return res
}

// Registry maps platform names to builders, constructed from settings.
type Registry struct {
	builders map[string]Builder
}

// NewRegistry builds the platform registry from settings.
func NewRegistry(settings *models.Settings) *Registry {
	r := &Registry{builders: make(map[string]Builder)}
	for platform, cfg := range settings.Builders {
		b, err := NewCommandBuilder(platform, cfg)
		if err != nil {
			continue
		}
		r.builders[platform] = b
	}
	return r
}

// Get returns the builder for a platform.
func (r *Registry) Get(platform string) (Builder, error) {
	b, ok := r.builders[platform]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPlatform, platform)
	}
	return b, nil
}

// Platforms returns the configured platform names, sorted.
func (r *Registry) Platforms() []string {
	out := make([]string, 0, len(r.builders))
	for p := range r.builders {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
