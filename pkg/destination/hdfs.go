package destination

import (
	"context"
	"log/slog"
	"path"

	"mercator-hq/archivist/pkg/config"
	"mercator-hq/archivist/pkg/gateway"
	"mercator-hq/archivist/pkg/ledger"
	"mercator-hq/archivist/pkg/lifecycle"
)

// HDFS uploads with the hadoop CLI, running every command as the configured
// user through sudo.
type HDFS struct {
	cfg     config.HDFSConfig
	runner  gateway.Runner
	auth    gateway.Authenticator
	ensured bool
	logger  *slog.Logger
}

// NewHDFS creates an HDFS destination.
func NewHDFS(cfg config.HDFSConfig, deps Deps) (*HDFS, error) {
	if cfg.User == "" || cfg.Path == "" {
		return nil, lifecycle.NewConfigurationError("destination.hdfs", "user and path are required")
	}
	if deps.Runner == nil {
		return nil, lifecycle.NewConfigurationError("destination.hdfs", "no command runner available")
	}

	var auth gateway.Authenticator = gateway.NoAuth{}
	if cfg.Keytab != "" && cfg.Principal != "" {
		auth = &gateway.Kinit{Runner: deps.Runner, Keytab: cfg.Keytab, Principal: cfg.Principal, User: cfg.User}
	}

	return &HDFS{
		cfg:    cfg,
		runner: deps.Runner,
		auth:   auth,
		logger: deps.logger().With("component", "destination", "kind", config.KindHDFS),
	}, nil
}

// Kind implements Destination.
func (h *HDFS) Kind() string { return config.KindHDFS }

func (h *HDFS) hadoop(args ...string) gateway.Command {
	return gateway.SudoAs(h.cfg.User, gateway.Command{
		Program: "hadoop",
		Args:    append([]string{"fs"}, args...),
	})
}

// PutCommand returns the upload command for path.
func (h *HDFS) PutCommand(local string) gateway.Command {
	return h.hadoop("-put", local, h.cfg.Path)
}

// Spec implements Destination.
func (h *HDFS) Spec(local string) ledger.UploadSpec {
	return ledger.UploadSpec{
		Type:           config.KindHDFS,
		Command:        h.PutCommand(local).String(),
		UploadFilePath: local,
		HDFSPath:       h.cfg.Path,
		HDFSUser:       h.cfg.User,
		HDFSKeytab:     h.cfg.Keytab,
		HDFSPrincipal:  h.cfg.Principal,
	}
}

// EnsureDir creates the target directory once per process.
func (h *HDFS) EnsureDir(ctx context.Context) error {
	if h.ensured {
		return nil
	}
	if err := h.auth.Authenticate(ctx); err != nil {
		return err
	}
	if _, err := h.runner.Run(ctx, h.hadoop("-mkdir", "-p", h.cfg.Path)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return lifecycle.NewUploadError(config.KindHDFS, h.cfg.Path, err)
	}
	h.ensured = true
	return nil
}

// Upload implements Destination.
func (h *HDFS) Upload(ctx context.Context, local string) error {
	if err := h.EnsureDir(ctx); err != nil {
		return err
	}

	exists := func(ctx context.Context, name string) (bool, error) {
		if err := h.auth.Authenticate(ctx); err != nil {
			return false, err
		}
		return gateway.Succeeded(ctx, h.runner, h.hadoop("-test", "-e", path.Join(h.cfg.Path, name)))
	}
	send := func(ctx context.Context, local string) error {
		if err := h.auth.Authenticate(ctx); err != nil {
			return err
		}
		_, err := h.runner.Run(ctx, h.PutCommand(local))
		return err
	}

	return transfer(ctx, config.KindHDFS, local, exists, send, h.logger)
}
