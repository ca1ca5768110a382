package triage

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Application struct {
	ID     uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	Status ApplicationStatus `gorm:"column:status;type:text;not null;index" json:"status"`

	PdfStoragePath *string `gorm:"column:pdf_storage_path;type:text" json:"pdf_storage_path,omitempty"`

	ResearchTitle    string   `gorm:"column:research_title;type:text" json:"research_title"`
	Author           string   `gorm:"column:author;type:text" json:"author,omitempty"`
	Institution      string   `gorm:"column:institution;type:text" json:"institution,omitempty"`
	ResearchArea     string   `gorm:"column:research_area;type:text" json:"research_area,omitempty"`
	ResearchDomain   string   `gorm:"column:research_domain;type:text" json:"research_domain,omitempty"`
	PublicationDate  string   `gorm:"column:publication_date;type:text" json:"publication_date,omitempty"`
	Abstract         string   `gorm:"column:abstract;type:text" json:"abstract,omitempty"`
	ContactEmail     string   `gorm:"column:contact_email;type:text" json:"contact_email,omitempty"`
	TeamName         string   `gorm:"column:team_name;type:text" json:"team_name,omitempty"`
	FundingRequested *float64 `gorm:"column:funding_requested" json:"funding_requested,omitempty"`
	Source           string   `gorm:"column:source;type:text" json:"source,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (Application) TableName() string { return "applications" }

func (a *Application) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = StatusSubmitted
	}
	return nil
}

// ApplicationMeta is the descriptive part of an application supplied by the submitter.
type ApplicationMeta struct {
	ResearchTitle    string   `json:"research_title"`
	Author           string   `json:"author"`
	Institution      string   `json:"institution"`
	ResearchArea     string   `json:"research_area"`
	ResearchDomain   string   `json:"research_domain"`
	PublicationDate  string   `json:"publication_date"`
	Abstract         string   `json:"abstract"`
	ContactEmail     string   `json:"contact_email"`
	TeamName         string   `json:"team_name"`
	FundingRequested *float64 `json:"funding_requested"`
	Source           string   `json:"source"`
}

func (m ApplicationMeta) Apply(a *Application) {
	a.ResearchTitle = m.ResearchTitle
	a.Author = m.Author
	a.Institution = m.Institution
	a.ResearchArea = m.ResearchArea
	a.ResearchDomain = m.ResearchDomain
	a.PublicationDate = m.PublicationDate
	a.Abstract = m.Abstract
	a.ContactEmail = m.ContactEmail
	a.TeamName = m.TeamName
	a.FundingRequested = m.FundingRequested
	a.Source = m.Source
}
