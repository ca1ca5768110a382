package triage

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DispatchKind string

const (
	DispatchProcessPaper DispatchKind = "process_paper"
	DispatchDeepAnalysis DispatchKind = "deep_analysis"
)

type DispatchStatus string

const (
	DispatchQueued  DispatchStatus = "queued"
	DispatchSending DispatchStatus = "sending"
	DispatchSent    DispatchStatus = "sent"
	DispatchFailed  DispatchStatus = "failed"
	DispatchDead    DispatchStatus = "dead"
)

// DispatchIntent is an outbox row: an outbound webhook call recorded in the same
// transaction as the status change that requires it.
type DispatchIntent struct {
	ID            uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Kind          DispatchKind `gorm:"column:kind;type:text;not null;index" json:"kind"`
	ApplicationID uuid.UUID    `gorm:"type:uuid;not null;index" json:"application_id"`

	TargetURL     string         `gorm:"column:target_url;type:text;not null" json:"target_url"`
	Params        datatypes.JSON `gorm:"column:params;type:jsonb" json:"params,omitempty"`
	BlobPath      string         `gorm:"column:blob_path;type:text" json:"blob_path,omitempty"`
	URLTTLSeconds int            `gorm:"column:url_ttl_seconds;not null;default:0" json:"url_ttl_seconds"`

	Status         DispatchStatus `gorm:"column:status;type:text;not null;index" json:"status"`
	Attempts       int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastError      string         `gorm:"column:last_error;type:text" json:"last_error,omitempty"`
	LastStatusCode int            `gorm:"column:last_status_code;not null;default:0" json:"last_status_code,omitempty"`
	NextAttemptAt  time.Time      `gorm:"column:next_attempt_at;not null;index" json:"next_attempt_at"`
	LockedAt       *time.Time     `gorm:"column:locked_at" json:"locked_at,omitempty"`
	SentAt         *time.Time     `gorm:"column:sent_at" json:"sent_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (DispatchIntent) TableName() string { return "dispatch_intents" }

func (d *DispatchIntent) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = DispatchQueued
	}
	if d.NextAttemptAt.IsZero() {
		d.NextAttemptAt = time.Now().UTC()
	}
	return nil
}
