package testutil

import (
	"context"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/triage-backend/internal/domain/triage"
)

func SeedApplication(tb testing.TB, ctx context.Context, tx *gorm.DB, status triage.ApplicationStatus, path string) *triage.Application {
	tb.Helper()
	app := &triage.Application{
		Status:        status,
		ResearchTitle: "Quantum widgets",
		Institution:   "TU Example",
		ContactEmail:  "lab@example.org",
	}
	if path != "" {
		app.PdfStoragePath = &path
	}
	if err := tx.WithContext(ctx).Create(app).Error; err != nil {
		tb.Fatalf("seed application: %v", err)
	}
	return app
}

func SeedPotential(tb testing.TB, ctx context.Context, tx *gorm.DB, app *triage.Application) *triage.Potential {
	tb.Helper()
	p := &triage.Potential{Status: triage.PotentialProcessing}
	if app != nil {
		id := app.ID
		p.ApplicationID = &id
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed potential: %v", err)
	}
	return p
}

func SeedScore(tb testing.TB, ctx context.Context, tx *gorm.DB, p *triage.Potential, criterion string, score float64) *triage.CriteriaScore {
	tb.Helper()
	cs := &triage.CriteriaScore{PotentialID: p.ID, CriterionID: criterion, Score: score, Confidence: 0.9}
	if err := tx.WithContext(ctx).Create(cs).Error; err != nil {
		tb.Fatalf("seed criteria score: %v", err)
	}
	return cs
}
