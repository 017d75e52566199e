package integration

import (
	"context"
	"errors"
	"testing"

	"github.com/medconnect/medconnect/internal/domain/symptomcheck"
	"github.com/medconnect/medconnect/internal/platform/db"
	"github.com/medconnect/medconnect/migrations"
)

func TestMigrations_Idempotent(t *testing.T) {
	pool := migratedSchema(t)
	ctx := context.Background()

	var schema string
	if err := pool.QueryRow(ctx, "SELECT current_schema()").Scan(&schema); err != nil {
		t.Fatalf("current_schema: %v", err)
	}

	m := db.NewMigrator(pool, migrations.FS)
	count, err := m.Up(ctx, schema)
	if err != nil {
		t.Fatalf("second Up: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no pending migrations, applied %d", count)
	}

	statuses, err := m.Status(ctx, schema)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	for _, s := range statuses {
		if !s.Applied || s.AppliedAt == nil {
			t.Errorf("expected %s to be applied", s.Name)
		}
	}
}

func TestKnowledgeBaseRepo_RoundTrip(t *testing.T) {
	pool := migratedSchema(t)
	ctx := context.Background()
	repo := symptomcheck.NewKnowledgeBaseRepoPG(pool)

	t.Run("EmptyTablesFail", func(t *testing.T) {
		if _, err := repo.Load(ctx); !errors.Is(err, symptomcheck.ErrInvalidCondition) {
			t.Errorf("expected ErrInvalidCondition on empty tables, got %v", err)
		}
	})

	want, err := symptomcheck.DefaultKnowledgeBase()
	if err != nil {
		t.Fatalf("DefaultKnowledgeBase: %v", err)
	}

	t.Run("ReplaceAndLoad", func(t *testing.T) {
		if err := repo.Replace(ctx, want); err != nil {
			t.Fatalf("Replace: %v", err)
		}
		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}

		wantConds, gotConds := want.Conditions(), got.Conditions()
		if len(gotConds) != len(wantConds) {
			t.Fatalf("expected %d conditions, got %d", len(wantConds), len(gotConds))
		}
		for i := range wantConds {
			if gotConds[i].Name != wantConds[i].Name {
				t.Errorf("position %d: expected %s, got %s", i, wantConds[i].Name, gotConds[i].Name)
			}
			if len(gotConds[i].Symptoms) != len(wantConds[i].Symptoms) {
				t.Errorf("%s: symptom count changed", wantConds[i].Name)
			}
			if gotConds[i].Severity != wantConds[i].Severity || gotConds[i].Urgency != wantConds[i].Urgency {
				t.Errorf("%s: severity/urgency changed", wantConds[i].Name)
			}
		}
		if len(got.Vocabulary()) != len(want.Vocabulary()) {
			t.Errorf("expected %d labels, got %d", len(want.Vocabulary()), len(got.Vocabulary()))
		}
	})

	t.Run("PredictionsMatchEmbedded", func(t *testing.T) {
		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		sel := []string{"Nausea", "Vomiting"}
		a, b := symptomcheck.Predict(sel, want), symptomcheck.Predict(sel, got)
		if len(a) != len(b) {
			t.Fatalf("expected %d predictions, got %d", len(a), len(b))
		}
		for i := range a {
			if a[i].Name != b[i].Name || a[i].Confidence != b[i].Confidence {
				t.Errorf("position %d: %s/%v vs %s/%v", i, a[i].Name, a[i].Confidence, b[i].Name, b[i].Confidence)
			}
		}
	})

	t.Run("ReplaceOverwrites", func(t *testing.T) {
		small, err := symptomcheck.NewKnowledgeBase([]symptomcheck.Condition{{
			Name:     "Sunburn",
			Symptoms: []string{"Red skin"},
			Severity: symptomcheck.SeverityMild,
			Urgency:  symptomcheck.UrgencyLow,
		}}, nil)
		if err != nil {
			t.Fatalf("NewKnowledgeBase: %v", err)
		}
		if err := repo.Replace(ctx, small); err != nil {
			t.Fatalf("Replace: %v", err)
		}
		got, err := repo.Load(ctx)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got.Len() != 1 || len(got.Vocabulary()) != 1 {
			t.Errorf("expected one condition and one label, got %d/%d", got.Len(), len(got.Vocabulary()))
		}
	})
}
