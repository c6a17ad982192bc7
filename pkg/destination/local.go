package destination

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"mercator-hq/archivist/pkg/config"
	"mercator-hq/archivist/pkg/ledger"
	"mercator-hq/archivist/pkg/lifecycle"
)

// Local moves artifacts into a directory on a mounted filesystem.
type Local struct {
	cfg    config.LocalConfig
	logger *slog.Logger
}

// NewLocal creates a local directory destination.
func NewLocal(cfg config.LocalConfig, deps Deps) (*Local, error) {
	if cfg.Path == "" {
		return nil, lifecycle.NewConfigurationError("destination.local.path", "path is required")
	}
	return &Local{
		cfg:    cfg,
		logger: deps.logger().With("component", "destination", "kind", config.KindLocal),
	}, nil
}

// Kind implements Destination.
func (l *Local) Kind() string { return config.KindLocal }

// Spec implements Destination.
func (l *Local) Spec(path string) ledger.UploadSpec {
	return ledger.UploadSpec{
		Type:           config.KindLocal,
		Command:        fmt.Sprintf("mv %s %s", path, l.cfg.Path),
		UploadFilePath: path,
		LocalPath:      l.cfg.Path,
	}
}

// Upload implements Destination.
func (l *Local) Upload(ctx context.Context, path string) error {
	info, err := os.Stat(l.cfg.Path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(l.cfg.Path, 0o755); err != nil {
			return lifecycle.NewUploadError(config.KindLocal, path, err)
		}
	case err != nil:
		return lifecycle.NewUploadError(config.KindLocal, path, err)
	case !info.IsDir():
		return lifecycle.NewUploadError(config.KindLocal, path,
			fmt.Errorf("%s exists and is not a directory", l.cfg.Path))
	}

	exists := func(_ context.Context, name string) (bool, error) {
		_, err := os.Stat(filepath.Join(l.cfg.Path, name))
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return err == nil, err
	}
	send := func(_ context.Context, src string) error {
		return move(src, filepath.Join(l.cfg.Path, filepath.Base(src)))
	}

	return transfer(ctx, config.KindLocal, path, exists, send, l.logger)
}

// move renames src to dst, copying across filesystems. The copy goes through
// a temp name so dst never holds a partial file.
func move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil || !errors.Is(err, syscall.EXDEV) {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Remove(src)
}
