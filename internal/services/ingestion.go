package services

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/triage-backend/internal/data/repos"
	types "github.com/yungbote/triage-backend/internal/domain/triage"
	"github.com/yungbote/triage-backend/internal/pkg/dbctx"
	"github.com/yungbote/triage-backend/internal/pkg/pointers"
	"github.com/yungbote/triage-backend/internal/platform/apierr"
	"github.com/yungbote/triage-backend/internal/platform/logger"
	"github.com/yungbote/triage-backend/internal/scoring"
)

//go:embed schemas/criteria_callback.schema.json
var callbackSchemaJSON string

const callbackSchemaURL = "https://triage.schemas.local/criteria_callback.schema.json"

var (
	callbackSchemaOnce sync.Once
	callbackSchema     *jsonschema.Schema
	callbackSchemaErr  error
)

func compiledCallbackSchema() (*jsonschema.Schema, error) {
	callbackSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(callbackSchemaURL, strings.NewReader(callbackSchemaJSON)); err != nil {
			callbackSchemaErr = fmt.Errorf("callback schema load failed: %w", err)
			return
		}
		callbackSchema, callbackSchemaErr = c.Compile(callbackSchemaURL)
	})
	return callbackSchema, callbackSchemaErr
}

type CriterionResult struct {
	Criterion   string          `json:"criterion"`
	CriterionID string          `json:"criterion_id"`
	Score       float64         `json:"score"`
	Confidence  float64         `json:"confidence"`
	Rationale   *string         `json:"rationale"`
	Evidence    *string         `json:"evidence"`
	MissingData *string         `json:"missing_data"`
	Raw         json.RawMessage `json:"raw"`
}

// Label prefers criterion and falls back to the criterion_id alias.
func (c CriterionResult) Label() string {
	if s := strings.TrimSpace(c.Criterion); s != "" {
		return s
	}
	return strings.TrimSpace(c.CriterionID)
}

type CallbackPayload struct {
	PotentialID   string            `json:"potential_id"`
	ApplicationID string            `json:"application_id"`
	Summary       string            `json:"summary"`
	Criteria      []CriterionResult `json:"criteria"`
}

type IngestResult struct {
	OK            bool                  `json:"ok"`
	PotentialID   uuid.UUID             `json:"potential_id"`
	AvgScore      float64               `json:"avg_score"`
	Status        types.PotentialStatus `json:"status"`
	CriteriaCount int                   `json:"criteria_count"`
	WeightedScore float64               `json:"weighted_score"`
}

type ScoreInput struct {
	PotentialID   string          `json:"potential_id"`
	ApplicationID string          `json:"application_id"`
	CriterionID   string          `json:"criterion_id"`
	Score         *float64        `json:"score"`
	Confidence    *float64        `json:"confidence"`
	Rationale     *string         `json:"rationale"`
	Evidence      *string         `json:"evidence"`
	MissingData   *string         `json:"missing_data"`
	Raw           json.RawMessage `json:"raw"`
}

type IngestionService interface {
	DecodeCallback(raw []byte) (*CallbackPayload, error)
	IngestBatch(ctx context.Context, payload *CallbackPayload, weights scoring.Weighter) (*IngestResult, error)
	InsertScore(ctx context.Context, in ScoreInput) (*types.CriteriaScore, error)
}

type ingestionService struct {
	db         *gorm.DB
	log        *logger.Logger
	apps       repos.ApplicationRepo
	potentials repos.PotentialRepo
	scores     repos.CriteriaScoreRepo
	notify     *StatusNotifier
}

func NewIngestionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	apps repos.ApplicationRepo,
	potentials repos.PotentialRepo,
	scores repos.CriteriaScoreRepo,
	notify *StatusNotifier,
) IngestionService {
	if notify == nil {
		notify = NewStatusNotifier(nil)
	}
	return &ingestionService{
		db:         db,
		log:        baseLog.With("service", "IngestionService"),
		apps:       apps,
		potentials: potentials,
		scores:     scores,
		notify:     notify,
	}
}

// DecodeCallback checks the raw body against the callback schema before decoding it.
func (s *ingestionService) DecodeCallback(raw []byte) (*CallbackPayload, error) {
	schema, err := compiledCallbackSchema()
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apierr.Validation("invalid_json", "request body is not valid JSON")
	}
	if err := schema.Validate(doc); err != nil {
		return nil, apierr.Validation("invalid_payload", "Invalid payload: "+err.Error())
	}
	var payload CallbackPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apierr.Validation("invalid_payload", err.Error())
	}
	return &payload, nil
}

func parseOptionalID(field, raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apierr.Validation("invalid_"+field, fmt.Sprintf("%s is not a valid id", field))
	}
	return id, nil
}

func parseTarget(potentialID, applicationID string) (uuid.UUID, uuid.UUID, error) {
	pid, err := parseOptionalID("potential_id", potentialID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	aid, err := parseOptionalID("application_id", applicationID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	if pid == uuid.Nil && aid == uuid.Nil {
		return uuid.Nil, uuid.Nil, apierr.Validation("missing_target", "Either potential_id or application_id is required")
	}
	return pid, aid, nil
}

// resolvePotential picks the potential a payload addresses. An explicit
// potential_id wins; otherwise the application must have exactly one.
func (s *ingestionService) resolvePotential(dbc dbctx.Context, potentialID, applicationID uuid.UUID) (uuid.UUID, error) {
	if potentialID != uuid.Nil {
		return potentialID, nil
	}
	found, err := s.potentials.ListByApplicationID(dbc, applicationID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve potential: %w", err)
	}
	switch len(found) {
	case 0:
		return uuid.Nil, apierr.NotFound("potential_not_found", errors.New("No potential found for provided application_id"))
	case 1:
		return found[0].ID, nil
	default:
		return uuid.Nil, apierr.Conflict("ambiguous_potential",
			fmt.Errorf("%w: %d potentials for application %s", apierr.ErrAmbiguous, len(found), applicationID))
	}
}

func rawJSON(raw json.RawMessage) datatypes.JSON {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	return datatypes.JSON(trimmed)
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func (s *ingestionService) IngestBatch(ctx context.Context, payload *CallbackPayload, weights scoring.Weighter) (*IngestResult, error) {
	if payload == nil || len(payload.Criteria) == 0 {
		return nil, apierr.Validation("invalid_payload", "Invalid payload: provide potential_id or application_id and a valid criteria array")
	}
	potentialID, applicationID, err := parseTarget(payload.PotentialID, payload.ApplicationID)
	if err != nil {
		return nil, err
	}
	entries := make([]scoring.Entry, 0, len(payload.Criteria))
	for i, c := range payload.Criteria {
		label := c.Label()
		if label == "" {
			return nil, apierr.Validation("invalid_payload", fmt.Sprintf("criteria[%d] has no criterion", i))
		}
		if c.Confidence < 0 || c.Confidence > 1 {
			return nil, apierr.Validation("invalid_payload", fmt.Sprintf("criteria[%d] confidence must be between 0 and 1", i))
		}
		missing := ""
		if c.MissingData != nil {
			missing = *c.MissingData
		}
		entries = append(entries, scoring.Entry{CriterionID: label, Score: c.Score, Confidence: c.Confidence, MissingData: missing})
	}
	agg, err := scoring.Aggregate(entries)
	if err != nil {
		return nil, apierr.Validation("invalid_payload", err.Error())
	}
	weighted, err := scoring.WeightedMean(entries, weights)
	if err != nil {
		return nil, apierr.Validation("invalid_payload", err.Error())
	}

	var (
		potential *types.Potential
		advanced  types.ApplicationStatus
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		pid, err := s.resolvePotential(dbc, potentialID, applicationID)
		if err != nil {
			return err
		}
		potential, err = s.potentials.LockByID(dbc, pid)
		if err != nil {
			return err
		}
		if potential == nil {
			return apierr.NotFound("potential_not_found", errors.New("Potential not found with provided ID"))
		}

		batchID := uuid.New()
		rows := make([]*types.CriteriaScore, 0, len(payload.Criteria))
		for i, c := range payload.Criteria {
			rows = append(rows, &types.CriteriaScore{
				PotentialID: potential.ID,
				CriterionID: entries[i].CriterionID,
				Score:       c.Score,
				Confidence:  c.Confidence,
				Rationale:   pointers.Deref(c.Rationale),
				Evidence:    pointers.Deref(c.Evidence),
				MissingData: nonEmpty(c.MissingData),
				Raw:         rawJSON(c.Raw),
				BatchID:     &batchID,
			})
		}
		if err := s.scores.ReplaceForPotential(dbc, potential.ID, rows); err != nil {
			return fmt.Errorf("replace criteria scores: %w", err)
		}

		// Each batch owns the notes; an empty summary clears the previous one.
		summary := payload.Summary
		updates := map[string]interface{}{
			"avg_score": agg.AvgScore,
			"status":    agg.Status,
			"notes":     summary,
		}
		potential.Notes = &summary
		if err := s.potentials.UpdateFields(dbc, potential.ID, updates); err != nil {
			return fmt.Errorf("update potential: %w", err)
		}
		avg := agg.AvgScore
		potential.AvgScore = &avg
		potential.Status = agg.Status

		if potential.ApplicationID == nil {
			return nil
		}
		outcome, ok := agg.Status.ApplicationOutcome()
		if !ok || !types.CanTransition(types.StatusUnderReview, outcome, types.ActorSystem) {
			return nil
		}
		changed, err := s.apps.UpdateStatusIfIn(dbc, *potential.ApplicationID,
			[]types.ApplicationStatus{types.StatusUnderReview}, outcome)
		if err != nil {
			return fmt.Errorf("advance application: %w", err)
		}
		if changed {
			advanced = outcome
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.PotentialScored(ctx, potential, len(entries))
	if advanced != "" {
		s.notify.ApplicationStatusChanged(ctx, *potential.ApplicationID, types.StatusUnderReview, advanced)
	}
	s.log.Info("criteria batch ingested",
		"potential_id", potential.ID,
		"avg_score", agg.AvgScore,
		"status", agg.Status,
		"criteria_count", len(entries),
	)
	return &IngestResult{
		OK:            true,
		PotentialID:   potential.ID,
		AvgScore:      agg.AvgScore,
		Status:        agg.Status,
		CriteriaCount: len(entries),
		WeightedScore: weighted,
	}, nil
}

// InsertScore appends one row without recomputing the aggregate.
func (s *ingestionService) InsertScore(ctx context.Context, in ScoreInput) (*types.CriteriaScore, error) {
	criterion := strings.TrimSpace(in.CriterionID)
	if criterion == "" || in.Score == nil || in.Confidence == nil {
		return nil, apierr.Validation("missing_fields", "Missing required fields: criterion_id, score, and confidence are required")
	}
	if *in.Score < 0 || *in.Score > 10 {
		return nil, apierr.Validation("invalid_score", "Score must be between 0 and 10")
	}
	if *in.Confidence < 0 || *in.Confidence > 1 {
		return nil, apierr.Validation("invalid_confidence", "Confidence must be between 0 and 1")
	}
	potentialID, applicationID, err := parseTarget(in.PotentialID, in.ApplicationID)
	if err != nil {
		return nil, err
	}

	dbc := dbctx.New(ctx)
	pid, err := s.resolvePotential(dbc, potentialID, applicationID)
	if err != nil {
		return nil, err
	}
	p, err := s.potentials.GetByID(dbc, pid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apierr.NotFound("potential_not_found", errors.New("Potential not found with provided ID"))
	}

	row, err := s.scores.Create(dbc, &types.CriteriaScore{
		PotentialID: p.ID,
		CriterionID: criterion,
		Score:       *in.Score,
		Confidence:  *in.Confidence,
		Rationale:   pointers.Deref(in.Rationale),
		Evidence:    pointers.Deref(in.Evidence),
		MissingData: nonEmpty(in.MissingData),
		Raw:         rawJSON(in.Raw),
	})
	if err != nil {
		return nil, fmt.Errorf("insert criteria score: %w", err)
	}
	s.log.Debug("criteria score inserted", "potential_id", p.ID, "criterion_id", criterion)
	return row, nil
}
