// Package model provides the scoring backends behind domain.Scorer: linear
// artifacts evaluated in-process and remote model services over HTTP.
package model

import (
	"context"
	"fmt"
	"net/http"

	"github.com/growthlab/backend/internal/config"
	"github.com/growthlab/backend/internal/domain"
	"github.com/growthlab/backend/internal/logging"
	"github.com/growthlab/backend/internal/storage"
)

// Open builds the scorer described by cfg. A URL selects a remote service;
// otherwise the artifact is read from store and checked against names.
func Open(ctx context.Context, name string, cfg config.ModelConfig, store storage.Store, names []string) (domain.Scorer, error) {
	if cfg.URL != "" {
		logging.Info().Str("model", name).Str("url", cfg.URL).Msg("using remote scorer")
		return NewRemote(name, cfg.URL, names, &http.Client{}), nil
	}

	rc, err := store.Get(ctx, cfg.Artifact)
	if err != nil {
		return nil, fmt.Errorf("model: failed to open %s artifact: %w", name, err)
	}
	defer rc.Close()

	m, err := LoadLinear(rc, names)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("model", name).Str("artifact", m.Name()).Msg("loaded model artifact")
	return m, nil
}
