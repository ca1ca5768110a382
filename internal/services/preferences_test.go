package services

import (
	"context"
	"net/http"
	"testing"

	types "github.com/yungbote/triage-backend/internal/domain/triage"
)

func TestPreferencesListDefaultsToCatalog(t *testing.T) {
	env := newTestEnv(t)
	prefs, err := env.preferences.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(prefs) != len(env.preferences.Catalog().Criteria) {
		t.Fatalf("want one entry per catalog criterion, got %d", len(prefs))
	}
	for _, p := range prefs {
		if p.Factor != types.DefaultFactor {
			t.Fatalf("%s: default factor want=%d got=%d", p.Name, types.DefaultFactor, p.Factor)
		}
	}
}

func TestPreferencesSaveSnapshotAndReset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.preferences.Save(ctx, []PreferenceInput{{Criterion: "Scalability", Factor: 5}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snap, err := env.preferences.Snapshot(ctx)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.Factor("Scalability") != 5 || snap.Factor("Scalability (typo)") != types.DefaultFactor {
		t.Fatalf("snapshot factors wrong")
	}

	// later writes never reach an existing snapshot
	if _, err := env.preferences.Save(ctx, []PreferenceInput{{Criterion: "Scalability", Factor: 1}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if snap.Factor("Scalability") != 5 {
		t.Fatalf("snapshot mutated")
	}

	prefs, err := env.preferences.Reset(ctx)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	for _, p := range prefs {
		if p.Factor != types.DefaultFactor {
			t.Fatalf("%s not reset: %d", p.Name, p.Factor)
		}
	}
	stored, _ := env.prefs.List(env.dbc())
	if len(stored) != len(env.preferences.Catalog().Criteria) {
		t.Fatalf("reset should store every catalog criterion, got %d", len(stored))
	}
}

func TestPreferencesSaveValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := [][]PreferenceInput{
		nil,
		{{Criterion: "", Factor: 3}},
		{{Criterion: "Charisma", Factor: 3}},
		{{Criterion: "Scalability", Factor: 0}},
		{{Criterion: "Scalability", Factor: 6}},
	}
	for i, in := range cases {
		_, err := env.preferences.Save(ctx, in)
		if err == nil {
			t.Fatalf("case %d: expected error", i)
		}
		wantStatus(t, err, http.StatusBadRequest)
	}
}
