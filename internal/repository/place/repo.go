package place

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/db"
	"github.com/kailas-cloud/poisearch/internal/domain/place"
	"github.com/kailas-cloud/poisearch/internal/repository/keys"
)

// store is the consumer interface for place storage (ISP).
type store interface {
	HReplace(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// Repo stores place records behind the lexical index.
type Repo struct {
	store  store
	layout keys.Layout
	logger *zap.Logger
}

// New creates a place repository.
func New(s store, layout keys.Layout, logger *zap.Logger) *Repo {
	return &Repo{store: s, layout: layout, logger: logger}
}

// EnsureIndex creates the lexical index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	def, err := buildIndex(r.layout)
	if err != nil {
		return fmt.Errorf("build place index: %w", err)
	}
	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create place index: %w", err)
	}
	r.logger.Info("Created place index", zap.String("index", def.Name))
	return nil
}

// Upsert replaces the stored record atomically: readers see the old or the new version.
func (r *Repo) Upsert(ctx context.Context, p *place.Place) error {
	fields, err := toHash(p)
	if err != nil {
		return err
	}
	if err := r.store.HReplace(ctx, r.layout.PlaceKey(p.ID), fields); err != nil {
		return fmt.Errorf("upsert place %s: %w", p.ID, err)
	}
	return nil
}

// FetchVisible hydrates places by id, dropping missing ones and those the
// scope may not see. Unparseable records are logged and skipped.
func (r *Repo) FetchVisible(ctx context.Context, ids []string, scope place.Scope) (map[string]*place.Place, error) {
	out := make(map[string]*place.Place, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	hashKeys := make([]string, len(ids))
	for i, id := range ids {
		hashKeys[i] = r.layout.PlaceKey(id)
	}

	rows, err := r.store.HGetAllMulti(ctx, hashKeys)
	if err != nil {
		return nil, fmt.Errorf("fetch places: %w", err)
	}

	for i, fields := range rows {
		if len(fields) == 0 {
			continue
		}
		p, err := fromHash(fields)
		if err != nil {
			r.logger.Warn("Skipping corrupt place record", zap.String("id", ids[i]), zap.Error(err))
			continue
		}
		if p.ID == "" {
			p.ID = ids[i]
		}
		if !p.VisibleTo(scope) {
			continue
		}
		out[ids[i]] = p
	}
	return out, nil
}
