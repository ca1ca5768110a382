package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/triage-backend/internal/data/repos"
	types "github.com/yungbote/triage-backend/internal/domain/triage"
	"github.com/yungbote/triage-backend/internal/pkg/dbctx"
	"github.com/yungbote/triage-backend/internal/platform/apierr"
	"github.com/yungbote/triage-backend/internal/platform/logger"
)

type PotentialView struct {
	*types.Potential
	Application *types.Application `json:"application,omitempty"`
}

type PotentialDetail struct {
	PotentialView
	Scores []*types.CriteriaScore `json:"criteria_scores"`
}

type PotentialCreate struct {
	ApplicationID *uuid.UUID            `json:"application_id"`
	Status        types.PotentialStatus `json:"status"`
	Notes         *string               `json:"notes"`
}

type PotentialPatch struct {
	Notes         *string                `json:"notes"`
	ProgressStage *int                   `json:"progress_stage"`
	Status        *types.PotentialStatus `json:"status"`
}

func (p PotentialPatch) updates() (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if p.Notes != nil {
		out["notes"] = *p.Notes
	}
	if p.ProgressStage != nil {
		if *p.ProgressStage < types.StageUploaded || *p.ProgressStage > types.StageEnrichment {
			return nil, apierr.Validation("invalid_progress_stage", "progress_stage must be between 0 and 2")
		}
		out["progress_stage"] = *p.ProgressStage
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return nil, apierr.Validation("invalid_status", fmt.Sprintf("unknown potential status %q", *p.Status))
		}
		out["status"] = *p.Status
	}
	return out, nil
}

type PotentialService interface {
	List(ctx context.Context, filter repos.PotentialFilter) ([]PotentialView, error)
	Get(ctx context.Context, id uuid.UUID) (*PotentialDetail, error)
	Create(ctx context.Context, in PotentialCreate) (*types.Potential, error)
	Update(ctx context.Context, id uuid.UUID, patch PotentialPatch) (*types.Potential, error)
}

type potentialService struct {
	log        *logger.Logger
	apps       repos.ApplicationRepo
	potentials repos.PotentialRepo
	scores     repos.CriteriaScoreRepo
}

func NewPotentialService(baseLog *logger.Logger, apps repos.ApplicationRepo, potentials repos.PotentialRepo, scores repos.CriteriaScoreRepo) PotentialService {
	return &potentialService{
		log:        baseLog.With("service", "PotentialService"),
		apps:       apps,
		potentials: potentials,
		scores:     scores,
	}
}

func (s *potentialService) List(ctx context.Context, filter repos.PotentialFilter) ([]PotentialView, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, apierr.Validation("invalid_status", fmt.Sprintf("unknown potential status %q", filter.Status))
	}
	dbc := dbctx.New(ctx)
	rows, err := s.potentials.List(dbc, filter)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(rows))
	for _, p := range rows {
		if p.ApplicationID != nil {
			ids = append(ids, *p.ApplicationID)
		}
	}
	byID := map[uuid.UUID]*types.Application{}
	if len(ids) > 0 {
		apps, err := s.apps.GetByIDs(dbc, ids)
		if err != nil {
			return nil, err
		}
		for _, a := range apps {
			byID[a.ID] = a
		}
	}

	out := make([]PotentialView, 0, len(rows))
	for _, p := range rows {
		v := PotentialView{Potential: p}
		if p.ApplicationID != nil {
			v.Application = byID[*p.ApplicationID]
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *potentialService) Get(ctx context.Context, id uuid.UUID) (*PotentialDetail, error) {
	dbc := dbctx.New(ctx)
	p, err := s.potentials.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apierr.NotFound("potential_not_found", nil)
	}
	detail := &PotentialDetail{PotentialView: PotentialView{Potential: p}}
	if p.ApplicationID != nil {
		if detail.Application, err = s.apps.GetByID(dbc, *p.ApplicationID); err != nil {
			return nil, err
		}
	}
	if detail.Scores, err = s.scores.ListByPotentialID(dbc, p.ID); err != nil {
		return nil, err
	}
	if detail.Scores == nil {
		detail.Scores = []*types.CriteriaScore{}
	}
	return detail, nil
}

func (s *potentialService) Create(ctx context.Context, in PotentialCreate) (*types.Potential, error) {
	if in.Status != "" && !in.Status.Valid() {
		return nil, apierr.Validation("invalid_status", fmt.Sprintf("unknown potential status %q", in.Status))
	}
	dbc := dbctx.New(ctx)
	if in.ApplicationID != nil {
		app, err := s.apps.GetByID(dbc, *in.ApplicationID)
		if err != nil {
			return nil, err
		}
		if app == nil {
			return nil, apierr.NotFound("application_not_found", nil)
		}
	}
	p, err := s.potentials.Create(dbc, &types.Potential{
		ApplicationID: in.ApplicationID,
		Status:        in.Status,
		Notes:         in.Notes,
	})
	if err != nil {
		if repos.IsUniqueViolation(err) {
			return nil, apierr.Conflict("potential_exists", fmt.Errorf("application already has a potential: %w", err))
		}
		return nil, err
	}
	s.log.Info("potential created", "potential_id", p.ID)
	return p, nil
}

func (s *potentialService) Update(ctx context.Context, id uuid.UUID, patch PotentialPatch) (*types.Potential, error) {
	updates, err := patch.updates()
	if err != nil {
		return nil, err
	}
	dbc := dbctx.New(ctx)
	p, err := s.potentials.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apierr.NotFound("potential_not_found", nil)
	}
	if len(updates) == 0 {
		return p, nil
	}
	if err := s.potentials.UpdateFields(dbc, id, updates); err != nil {
		return nil, err
	}
	return s.potentials.GetByID(dbc, id)
}
