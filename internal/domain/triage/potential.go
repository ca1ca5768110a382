package triage

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PotentialStatus string

const (
	PotentialProcessing  PotentialStatus = "processing"
	PotentialEvaluated   PotentialStatus = "evaluated"
	PotentialNeedsReview PotentialStatus = "needs_review"
	PotentialDeclined    PotentialStatus = "declined"
	PotentialWon         PotentialStatus = "won"
	PotentialLost        PotentialStatus = "lost"
)

func (s PotentialStatus) Valid() bool {
	switch s {
	case PotentialProcessing, PotentialEvaluated, PotentialNeedsReview, PotentialDeclined, PotentialWon, PotentialLost:
		return true
	}
	return false
}

const (
	StageUploaded   = 0
	StageAnalysis   = 1
	StageEnrichment = 2
)

type Potential struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	// At most one potential per application.
	ApplicationID *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_potentials_application_id" json:"application_id,omitempty"`

	Status            PotentialStatus `gorm:"column:status;type:text;not null;index" json:"status"`
	AvgScore          *float64        `gorm:"column:avg_score" json:"avg_score"`
	Notes             *string         `gorm:"column:notes;type:text" json:"notes,omitempty"`
	ProgressStage     int             `gorm:"column:progress_stage;not null;default:0" json:"progress_stage"`
	OverallConfidence *string         `gorm:"column:overall_confidence;type:text" json:"overall_confidence,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Potential) TableName() string { return "potentials" }

func (p *Potential) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = PotentialProcessing
	}
	return nil
}
