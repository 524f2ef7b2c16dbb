package sandbox

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	api "github.com/agent-infra/sandbox-sdk-go"
	sandboxclient "github.com/agent-infra/sandbox-sdk-go/client"
	"github.com/agent-infra/sandbox-sdk-go/option"
	"github.com/rs/zerolog/log"

	"newsreel/internal/config"
	"newsreel/internal/pkg/retry"
)

const (
	workdirPrefix  = "/tmp/render_"
	probeMarker    = "newsreel-sandbox-ready"
	releaseTimeout = 30 * time.Second
)

// Manager hands out sandbox sessions, one per render. Sessions share the
// underlying SDK client but own disjoint working directories.
type Manager struct {
	cfg    *config.SandboxConfig
	client *sandboxclient.Client
}

// NewManager builds a manager for the configured sandbox endpoint.
func NewManager(cfg *config.SandboxConfig) (*Manager, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("sandbox base URL is required")
	}
	return &Manager{
		cfg:    cfg,
		client: sandboxclient.NewClient(option.WithBaseURL(cfg.BaseURL)),
	}, nil
}

// Acquire provisions a working directory for renderID and verifies the
// sandbox responds, retrying transient failures with backoff. The returned
// release func tears the directory down; calling it more than once is safe.
func (m *Manager) Acquire(ctx context.Context, renderID string) (*Session, func(), error) {
	workdir := workdirPrefix + sanitizeID(renderID)

	cfg := retry.Config{
		Attempts:  m.cfg.CreateAttempts,
		BaseDelay: m.cfg.RetryBaseDelay,
		MaxDelay:  m.cfg.RetryMaxDelay,
	}
	err := retry.Do(ctx, cfg, "sandbox_acquire", func(ctx context.Context) error {
		return retry.Transient(m.provision(ctx, workdir))
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire sandbox session: %w", err)
	}

	sess := &Session{
		client:         m.client,
		workdir:        workdir,
		execTimeout:    m.cfg.ExecTimeout,
		readChunkBytes: m.cfg.ReadChunkBytes,
	}

	var once sync.Once
	release := func() {
		once.Do(func() { sess.teardown() })
	}

	log.Debug().Str("render_id", renderID).Str("workdir", workdir).Msg("sandbox session acquired")
	return sess, release, nil
}

// provision creates the working directory and checks the shell round trip in
// one exec.
func (m *Manager) provision(ctx context.Context, workdir string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	command := fmt.Sprintf("mkdir -p %s && echo %s", shellQuote(workdir), probeMarker)
	resp, err := m.client.Shell.ExecCommand(ctx, &api.ShellExecRequest{Command: command})
	if err != nil {
		return fmt.Errorf("sandbox unreachable: %w", err)
	}
	data := resp.GetData()
	if data == nil {
		return fmt.Errorf("sandbox returned empty exec response")
	}
	if code := data.GetExitCode(); code != nil && *code != 0 {
		return fmt.Errorf("sandbox workdir setup exited with code %d", *code)
	}
	if out := data.GetOutput(); out == nil || !strings.Contains(*out, probeMarker) {
		return fmt.Errorf("unexpected sandbox probe output")
	}
	return nil
}

// sanitizeID keeps workdir names shell-safe regardless of where the render
// ID came from.
func sanitizeID(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, id)
}

// shellQuote single-quotes s for POSIX shells.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}
