package triage

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CriteriaScore struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	PotentialID uuid.UUID `gorm:"type:uuid;not null;index" json:"potential_id"`
	CriterionID string    `gorm:"column:criterion_id;type:text;not null" json:"criterion_id"`

	Score       float64 `gorm:"column:score;not null" json:"score"`
	Confidence  float64 `gorm:"column:confidence;not null" json:"confidence"`
	Rationale   string  `gorm:"column:rationale;type:text" json:"rationale,omitempty"`
	Evidence    string  `gorm:"column:evidence;type:text" json:"evidence,omitempty"`
	MissingData *string `gorm:"column:missing_data;type:text" json:"missing_data,omitempty"`

	Raw     datatypes.JSON `gorm:"column:raw;type:jsonb" json:"raw,omitempty"`
	BatchID *uuid.UUID     `gorm:"type:uuid;index" json:"batch_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (CriteriaScore) TableName() string { return "criteria_scores" }

func (c *CriteriaScore) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

const (
	MinFactor     = 1
	MaxFactor     = 5
	DefaultFactor = 3
)

type CriteriaPreference struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Criterion string    `gorm:"column:criterion;type:text;not null;uniqueIndex" json:"criterion"`
	Factor    int       `gorm:"column:factor;not null;default:3" json:"factor"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (CriteriaPreference) TableName() string { return "criteria_preferences" }

func (c *CriteriaPreference) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
