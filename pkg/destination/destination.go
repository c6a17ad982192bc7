// Package destination uploads batch artifacts to durable storage.
//
// Every backend follows the same rules so an upload can be replayed after a
// crash without duplicating or losing data:
//
//  1. If the destination already holds an object with the artifact's name,
//     the upload is considered done and only the local copy is removed.
//  2. If the local artifact is gone and the destination does not hold it,
//     the data is lost and the upload fails.
//  3. Otherwise the artifact is transferred and the local copy removed.
package destination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"mercator-hq/archivist/pkg/config"
	"mercator-hq/archivist/pkg/gateway"
	"mercator-hq/archivist/pkg/ledger"
	"mercator-hq/archivist/pkg/lifecycle"
	"mercator-hq/archivist/pkg/solr"
)

// Destination stores artifacts.
type Destination interface {
	// Kind returns the destination type recorded in the ledger.
	Kind() string

	// Upload stores the artifact at path and removes the local file.
	Upload(ctx context.Context, path string) error

	// Spec returns the ledger record needed to replay the upload of path.
	Spec(path string) ledger.UploadSpec
}

// Deps are the shared services destinations are built from.
type Deps struct {
	// Runner executes hadoop and kinit.
	Runner gateway.Runner

	// Solr is the client of the source Solr, used for collection targets.
	Solr *solr.Client

	Logger *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// ErrArtifactLost reports an artifact that is neither on disk nor at the
// destination.
var ErrArtifactLost = errors.New("artifact is missing locally and at the destination; rerun with --ignore-unfinished-uploading to skip it")

// New builds the destination configured in cfg.
func New(cfg config.DestinationConfig, deps Deps) (Destination, error) {
	switch kind := cfg.Kind(); kind {
	case config.KindSolr:
		return NewSolr(cfg.Solr, deps)
	case config.KindHDFS:
		return NewHDFS(cfg.HDFS, deps)
	case config.KindS3:
		return NewS3(cfg.S3, deps)
	case config.KindLocal:
		return NewLocal(cfg.Local, deps)
	case "":
		return nil, lifecycle.NewConfigurationError("destination", "exactly one destination must be configured")
	default:
		return nil, lifecycle.NewConfigurationError("destination", fmt.Sprintf("unknown destination %q", kind))
	}
}

// FromSpec rebuilds the destination recorded in a ledger entry.
func FromSpec(spec ledger.UploadSpec, deps Deps) (Destination, error) {
	var cfg config.DestinationConfig
	switch spec.Type {
	case config.KindSolr:
		cfg.Solr = config.SolrDestinationConfig{Collection: spec.SolrOutputCollection}
	case config.KindHDFS:
		cfg.HDFS = config.HDFSConfig{
			User:      spec.HDFSUser,
			Path:      spec.HDFSPath,
			Keytab:    spec.HDFSKeytab,
			Principal: spec.HDFSPrincipal,
		}
	case config.KindS3:
		cfg.S3 = config.S3Config{
			KeyFilePath: spec.KeyFilePath,
			Bucket:      spec.Bucket,
			KeyPrefix:   spec.KeyPrefix,
			Region:      spec.Region,
			Endpoint:    spec.Endpoint,
		}
	case config.KindLocal:
		cfg.Local = config.LocalConfig{Path: spec.LocalPath}
	default:
		return nil, lifecycle.NewConfigurationError("ledger",
			fmt.Sprintf("unknown upload type %q in pending ledger entry", spec.Type))
	}
	return New(cfg, deps)
}

// probe reports whether the destination already holds name.
type probe func(ctx context.Context, name string) (bool, error)

// put transfers the local artifact.
type put func(ctx context.Context, path string) error

// transfer applies the shared upload rules.
func transfer(ctx context.Context, kind, path string, exists probe, send put, logger *slog.Logger) error {
	name := filepath.Base(path)

	present, err := exists(ctx, name)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return lifecycle.NewUploadError(kind, path, fmt.Errorf("existence check failed: %w", err))
	}

	_, statErr := os.Stat(path)
	local := statErr == nil
	if statErr != nil && !errors.Is(statErr, os.ErrNotExist) {
		return lifecycle.NewUploadError(kind, path, statErr)
	}

	if present {
		logger.Info("artifact already at destination", "artifact", name)
		if local {
			if err := os.Remove(path); err != nil {
				return lifecycle.NewUploadError(kind, path, fmt.Errorf("failed to remove local artifact: %w", err))
			}
		}
		return nil
	}

	if !local {
		return lifecycle.NewUploadError(kind, path, ErrArtifactLost)
	}

	if err := send(ctx, path); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return lifecycle.NewUploadError(kind, path, err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return lifecycle.NewUploadError(kind, path, fmt.Errorf("failed to remove local artifact: %w", err))
	}
	logger.Info("artifact uploaded", "artifact", name)
	return nil
}
