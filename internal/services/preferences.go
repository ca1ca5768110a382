package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/triage-backend/internal/criteria"
	"github.com/yungbote/triage-backend/internal/data/repos"
	types "github.com/yungbote/triage-backend/internal/domain/triage"
	"github.com/yungbote/triage-backend/internal/pkg/dbctx"
	"github.com/yungbote/triage-backend/internal/platform/apierr"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

type PreferenceInput struct {
	Criterion string `json:"criterion"`
	Factor    int    `json:"factor"`
}

// PreferenceService owns reviewer weighting. Scoring never reads preferences
// directly; callers take a Snapshot once per request and pass it along.
type PreferenceService interface {
	Catalog() *criteria.Catalog
	Snapshot(ctx context.Context) (criteria.Weights, error)
	List(ctx context.Context) ([]criteria.Preference, error)
	Save(ctx context.Context, in []PreferenceInput) ([]criteria.Preference, error)
	Reset(ctx context.Context) ([]criteria.Preference, error)
}

type preferenceService struct {
	db      *gorm.DB
	log     *logger.Logger
	prefs   repos.CriteriaPreferenceRepo
	catalog *criteria.Catalog
}

func NewPreferenceService(db *gorm.DB, baseLog *logger.Logger, prefs repos.CriteriaPreferenceRepo, catalog *criteria.Catalog) PreferenceService {
	return &preferenceService{
		db:      db,
		log:     baseLog.With("service", "PreferenceService"),
		prefs:   prefs,
		catalog: catalog,
	}
}

func (s *preferenceService) Catalog() *criteria.Catalog { return s.catalog }

func (s *preferenceService) Snapshot(ctx context.Context) (criteria.Weights, error) {
	rows, err := s.prefs.List(dbctx.New(ctx))
	if err != nil {
		return criteria.Weights{}, fmt.Errorf("load preferences: %w", err)
	}
	return criteria.NewWeights(rows), nil
}

func (s *preferenceService) List(ctx context.Context) ([]criteria.Preference, error) {
	w, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return criteria.Merge(s.catalog, w), nil
}

func (s *preferenceService) Save(ctx context.Context, in []PreferenceInput) ([]criteria.Preference, error) {
	if len(in) == 0 {
		return nil, apierr.Validation("missing_preferences", "at least one preference is required")
	}
	rows := make([]types.CriteriaPreference, 0, len(in))
	seen := map[string]int{}
	for _, p := range in {
		name := strings.TrimSpace(p.Criterion)
		if name == "" {
			return nil, apierr.Validation("missing_criterion", "criterion is required")
		}
		if !s.catalog.Has(name) {
			return nil, apierr.Validation("unknown_criterion", fmt.Sprintf("unknown criterion %q", name))
		}
		if p.Factor < types.MinFactor || p.Factor > types.MaxFactor {
			return nil, apierr.Validation("invalid_factor",
				fmt.Sprintf("factor for %q must be between %d and %d", name, types.MinFactor, types.MaxFactor))
		}
		// last one wins within a request
		if i, ok := seen[name]; ok {
			rows[i].Factor = p.Factor
			continue
		}
		seen[name] = len(rows)
		rows = append(rows, types.CriteriaPreference{Criterion: name, Factor: p.Factor})
	}
	if err := s.prefs.Upsert(dbctx.New(ctx), rows); err != nil {
		return nil, fmt.Errorf("save preferences: %w", err)
	}
	s.log.Info("preferences saved", "count", len(rows))
	return s.List(ctx)
}

func (s *preferenceService) Reset(ctx context.Context) ([]criteria.Preference, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if _, err := s.prefs.ResetAll(dbc, types.DefaultFactor); err != nil {
			return err
		}
		rows := make([]types.CriteriaPreference, 0, len(s.catalog.Criteria))
		for _, name := range s.catalog.Names() {
			rows = append(rows, types.CriteriaPreference{Criterion: name, Factor: types.DefaultFactor})
		}
		return s.prefs.Upsert(dbc, rows)
	})
	if err != nil {
		return nil, fmt.Errorf("reset preferences: %w", err)
	}
	s.log.Info("preferences reset", "factor", types.DefaultFactor)
	return s.List(ctx)
}
