package triage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/triage-backend/internal/data/repos/testutil"
	types "github.com/yungbote/triage-backend/internal/domain/triage"
	"github.com/yungbote/triage-backend/internal/pkg/dbctx"
	"github.com/yungbote/triage-backend/internal/pkg/pointers"
)

func TestApplicationRepoStatusCompareAndSet(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	repo := NewApplicationRepo(db, testutil.Logger(t))

	app := testutil.SeedApplication(t, ctx, db, types.StatusProcessing, "")

	ok, err := repo.UpdateStatusIfIn(dbc, app.ID, []types.ApplicationStatus{types.StatusProcessed}, types.StatusUnderReview)
	if err != nil {
		t.Fatalf("UpdateStatusIfIn: %v", err)
	}
	if ok {
		t.Fatalf("expected no change from processing")
	}
	ok, err = repo.UpdateStatusIfIn(dbc, app.ID, []types.ApplicationStatus{types.StatusProcessing}, types.StatusProcessed)
	if err != nil || !ok {
		t.Fatalf("expected processing -> processed, ok=%v err=%v", ok, err)
	}
	got, err := repo.GetByID(dbc, app.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.StatusProcessed {
		t.Fatalf("status: want=%s got=%s", types.StatusProcessed, got.Status)
	}

	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil || missing != nil {
		t.Fatalf("missing application: got=%v err=%v", missing, err)
	}
}

func TestApplicationRepoPdfPathSetOnce(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	repo := NewApplicationRepo(db, testutil.Logger(t))

	app := testutil.SeedApplication(t, ctx, db, types.StatusUploaded, "")
	ok, err := repo.SetPdfPathIfEmpty(dbc, app.ID, "public/a/paper.pdf")
	if err != nil || !ok {
		t.Fatalf("first set: ok=%v err=%v", ok, err)
	}
	ok, err = repo.SetPdfPathIfEmpty(dbc, app.ID, "public/a/other.pdf")
	if err != nil {
		t.Fatalf("second set: %v", err)
	}
	if ok {
		t.Fatalf("second set must not overwrite")
	}
	got, _ := repo.GetByID(dbc, app.ID)
	if pointers.Deref(got.PdfStoragePath) != "public/a/paper.pdf" {
		t.Fatalf("path: got=%q", pointers.Deref(got.PdfStoragePath))
	}
}

func TestPotentialRepoListOrdering(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	repo := NewPotentialRepo(db, testutil.Logger(t))

	unscored := testutil.SeedPotential(t, ctx, db, nil)
	worse := testutil.SeedPotential(t, ctx, db, nil)
	better := testutil.SeedPotential(t, ctx, db, nil)
	if err := repo.UpdateFields(dbc, worse.ID, map[string]interface{}{"avg_score": 3.5, "status": types.PotentialEvaluated}); err != nil {
		t.Fatalf("update worse: %v", err)
	}
	if err := repo.UpdateFields(dbc, better.ID, map[string]interface{}{"avg_score": 1.2, "status": types.PotentialEvaluated}); err != nil {
		t.Fatalf("update better: %v", err)
	}

	list, err := repo.List(dbc, PotentialFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len: want=3 got=%d", len(list))
	}
	if list[0].ID != better.ID || list[1].ID != worse.ID || list[2].ID != unscored.ID {
		t.Fatalf("order: got=%v,%v,%v", list[0].ID, list[1].ID, list[2].ID)
	}

	filtered, err := repo.List(dbc, PotentialFilter{Status: types.PotentialProcessing})
	if err != nil || len(filtered) != 1 || filtered[0].ID != unscored.ID {
		t.Fatalf("filtered: got=%v err=%v", filtered, err)
	}
}

func TestPotentialRepoUniqueApplication(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	repo := NewPotentialRepo(db, testutil.Logger(t))

	app := testutil.SeedApplication(t, ctx, db, types.StatusProcessed, "")
	testutil.SeedPotential(t, ctx, db, app)

	id := app.ID
	_, err := repo.Create(dbctx.New(ctx), &types.Potential{ApplicationID: &id})
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got=%v", err)
	}
}

func TestCriteriaScoreRepoReplace(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	repo := NewCriteriaScoreRepo(db, testutil.Logger(t))

	p := testutil.SeedPotential(t, ctx, db, nil)
	testutil.SeedScore(t, ctx, db, p, "Scalability", 2)
	testutil.SeedScore(t, ctx, db, p, "Novelty / Originality of Idea", 3)
	other := testutil.SeedPotential(t, ctx, db, nil)
	testutil.SeedScore(t, ctx, db, other, "Scalability", 5)

	rows := []*types.CriteriaScore{{CriterionID: "Risk/Return Balance", Score: 1, Confidence: 0.7}}
	if err := repo.ReplaceForPotential(dbc, p.ID, rows); err != nil {
		t.Fatalf("ReplaceForPotential: %v", err)
	}
	got, err := repo.ListByPotentialID(dbc, p.ID)
	if err != nil {
		t.Fatalf("ListByPotentialID: %v", err)
	}
	if len(got) != 1 || got[0].CriterionID != "Risk/Return Balance" {
		t.Fatalf("replaced rows: got=%+v", got)
	}
	untouched, _ := repo.ListByPotentialID(dbc, other.ID)
	if len(untouched) != 1 {
		t.Fatalf("other potential rows: want=1 got=%d", len(untouched))
	}
}

func TestCriteriaScoreRepoRowOps(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.New(ctx)
	repo := NewCriteriaScoreRepo(db, testutil.Logger(t))

	p := testutil.SeedPotential(t, ctx, db, nil)
	keep := testutil.SeedScore(t, ctx, db, p, "Scalability", 2)
	drop := testutil.SeedScore(t, ctx, db, p, "Risk/Return Balance", 4)

	got, err := repo.GetByID(dbc, keep.ID)
	if err != nil || got == nil || got.Score != 2 {
		t.Fatalf("GetByID: got=%+v err=%v", got, err)
	}
	if missing, err := repo.GetByID(dbc, uuid.New()); err != nil || missing != nil {
		t.Fatalf("GetByID missing: got=%+v err=%v", missing, err)
	}

	if err := repo.UpdateFields(dbc, keep.ID, map[string]interface{}{"score": 7.5, "rationale": "revised"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, _ = repo.GetByID(dbc, keep.ID)
	if got.Score != 7.5 || got.Rationale != "revised" || got.CriterionID != "Scalability" {
		t.Fatalf("updated row: %+v", got)
	}

	if err := repo.Delete(dbc, drop.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	rows, _ := repo.ListByPotentialID(dbc, p.ID)
	if len(rows) != 1 || rows[0].ID != keep.ID {
		t.Fatalf("rows after delete: %+v", rows)
	}
}

func TestCriteriaPreferenceRepoUpsertAndReset(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.New(context.Background())
	repo := NewCriteriaPreferenceRepo(db, testutil.Logger(t))

	if err := repo.Upsert(dbc, []types.CriteriaPreference{{Criterion: "Scalability", Factor: 5}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := repo.Upsert(dbc, []types.CriteriaPreference{{Criterion: "Scalability", Factor: 2}, {Criterion: "Team / Research Excellence", Factor: 4}}); err != nil {
		t.Fatalf("Upsert again: %v", err)
	}
	prefs, err := repo.List(dbc)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(prefs) != 2 {
		t.Fatalf("len: want=2 got=%d", len(prefs))
	}
	if prefs[0].Criterion != "Scalability" || prefs[0].Factor != 2 {
		t.Fatalf("upserted: got=%+v", prefs[0])
	}

	n, err := repo.ResetAll(dbc, types.DefaultFactor)
	if err != nil || n != 2 {
		t.Fatalf("ResetAll: n=%d err=%v", n, err)
	}
	prefs, _ = repo.List(dbc)
	for _, p := range prefs {
		if p.Factor != types.DefaultFactor {
			t.Fatalf("reset: %s factor=%d", p.Criterion, p.Factor)
		}
	}
}

func TestDispatchIntentRepoClaimLifecycle(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.New(context.Background())
	repo := NewDispatchIntentRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	due, err := repo.Create(dbc, &types.DispatchIntent{
		Kind:          types.DispatchProcessPaper,
		ApplicationID: uuid.New(),
		TargetURL:     "http://hook.local/process",
		NextAttemptAt: now.Add(-time.Minute),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := repo.Create(dbc, &types.DispatchIntent{
		Kind:          types.DispatchDeepAnalysis,
		ApplicationID: uuid.New(),
		TargetURL:     "http://hook.local/deep",
		NextAttemptAt: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("Create future: %v", err)
	}

	claimed, err := repo.ClaimNextDue(dbc, now, 5*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextDue: %v", err)
	}
	if claimed == nil || claimed.ID != due.ID {
		t.Fatalf("claimed: want=%v got=%+v", due.ID, claimed)
	}
	if claimed.Attempts != 1 || claimed.Status != types.DispatchSending {
		t.Fatalf("claimed state: attempts=%d status=%s", claimed.Attempts, claimed.Status)
	}

	again, err := repo.ClaimNextDue(dbc, now, 5*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextDue again: %v", err)
	}
	if again != nil {
		t.Fatalf("expected nothing due, got=%v", again.ID)
	}

	if err := repo.MarkDead(dbc, due.ID, "status 500", 500); err != nil {
		t.Fatalf("MarkDead: %v", err)
	}
	dead, err := repo.ListByStatus(dbc, types.DispatchDead, 10)
	if err != nil || len(dead) != 1 || dead[0].LastStatusCode != 500 {
		t.Fatalf("dead list: got=%+v err=%v", dead, err)
	}

	ok, err := repo.Requeue(dbc, due.ID)
	if err != nil || !ok {
		t.Fatalf("Requeue: ok=%v err=%v", ok, err)
	}
	requeued, _ := repo.GetByID(dbc, due.ID)
	if requeued.Status != types.DispatchQueued || requeued.Attempts != 0 {
		t.Fatalf("requeued: status=%s attempts=%d", requeued.Status, requeued.Attempts)
	}
	ok, _ = repo.Requeue(dbc, due.ID)
	if ok {
		t.Fatalf("queued intent must not be requeued")
	}
}
