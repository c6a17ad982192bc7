package destination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"mercator-hq/archivist/pkg/config"
	"mercator-hq/archivist/pkg/ledger"
	"mercator-hq/archivist/pkg/lifecycle"
)

// Solr posts artifacts into another collection of the source Solr. Solr
// overwrites documents by unique key, so reposting is harmless and there is
// no existence probe; a missing local artifact means the post already went
// through.
type Solr struct {
	cfg    config.SolrDestinationConfig
	deps   Deps
	logger *slog.Logger
}

// NewSolr creates a Solr collection destination.
func NewSolr(cfg config.SolrDestinationConfig, deps Deps) (*Solr, error) {
	if cfg.Collection == "" {
		return nil, lifecycle.NewConfigurationError("destination.solr.collection", "collection is required")
	}
	if deps.Solr == nil {
		return nil, lifecycle.NewConfigurationError("destination.solr", "no solr client available")
	}
	return &Solr{
		cfg:    cfg,
		deps:   deps,
		logger: deps.logger().With("component", "destination", "kind", config.KindSolr),
	}, nil
}

// Kind implements Destination.
func (s *Solr) Kind() string { return config.KindSolr }

// Spec implements Destination.
func (s *Solr) Spec(path string) ledger.UploadSpec {
	return ledger.UploadSpec{
		Type:                 config.KindSolr,
		Command:              fmt.Sprintf("POST %s @%s", s.deps.Solr.UpdateURL(s.cfg.Collection, "/json/docs"), path),
		UploadFilePath:       path,
		SolrOutputCollection: s.cfg.Collection,
	}
}

// Upload implements Destination. Unlike the file backends it has no
// existence probe: documents are keyed by the collection's unique key, so a
// repeated post overwrites instead of duplicating. The local artifact is
// removed only after a successful post, which makes a missing artifact
// mean the post already completed rather than a lost batch.
func (s *Solr) Upload(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Info("artifact already posted", "artifact", path)
		return nil
	}
	if err != nil {
		return lifecycle.NewUploadError(config.KindSolr, path, err)
	}

	err = s.deps.Solr.PostDocuments(ctx, s.cfg.Collection, f)
	f.Close()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return lifecycle.NewUploadError(config.KindSolr, path, err)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return lifecycle.NewUploadError(config.KindSolr, path, err)
	}
	s.logger.Info("artifact posted", "artifact", path, "collection", s.cfg.Collection)
	return nil
}
