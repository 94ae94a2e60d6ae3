package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestAdjudicationRepository_RecordAndList(t *testing.T) {
	s := newTestStore(t)
	repo := s.Adjudications()

	events := []*Adjudication{
		{ID: "a1", GUID: "abc123", Frame: "5", Annotator: "20007"},
		{ID: "a2", GUID: "abc123", Frame: "10", Annotator: "20008"},
		{ID: "a3", GUID: "abc123", Frame: "5", Annotator: "20008"},
	}
	for _, ev := range events {
		if err := repo.Record(ev); err != nil {
			t.Fatalf("failed to record %s: %v", ev.ID, err)
		}
		if ev.CreatedAt.IsZero() {
			t.Errorf("expected CreatedAt to be set on %s", ev.ID)
		}
	}

	got, err := repo.ListByInstance("abc123", "5")
	if err != nil {
		t.Fatalf("failed to list by instance: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].ID != "a1" || got[1].ID != "a3" {
		t.Errorf("expected events [a1 a3] oldest first, got [%s %s]", got[0].ID, got[1].ID)
	}

	all, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 events, got %d", len(all))
	}
}

func TestAdjudicationRepository_ListByInstance_Empty(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Adjudications().ListByInstance("nope", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no events, got %d", len(got))
	}
}

func TestReplacementRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Replacements()

	rep := &Replacement{
		ID:              "r1",
		GUID:            "abc123",
		Frame:           "5",
		SourceAnnotator: "20007",
		TargetAnnotator: "20008",
		BackupPath:      "/tmp/backups/r1.json",
	}
	if err := repo.Create(rep); err != nil {
		t.Fatalf("failed to create replacement: %v", err)
	}

	got, err := repo.GetByID("r1")
	if err != nil {
		t.Fatalf("failed to get replacement: %v", err)
	}
	if got.SourceAnnotator != "20007" || got.TargetAnnotator != "20008" {
		t.Errorf("unexpected annotators: %s -> %s", got.SourceAnnotator, got.TargetAnnotator)
	}
	if got.BackupPath != rep.BackupPath {
		t.Errorf("expected backup path %q, got %q", rep.BackupPath, got.BackupPath)
	}
	if got.RestoredAt != nil {
		t.Error("new replacement should not be restored")
	}
}

func TestReplacementRepository_CreateKeepsTimestamp(t *testing.T) {
	s := newTestStore(t)
	repo := s.Replacements()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rep := &Replacement{ID: "r1", GUID: "abc123", Frame: "5", SourceAnnotator: "20007", TargetAnnotator: "20008", CreatedAt: created}
	if err := repo.Create(rep); err != nil {
		t.Fatalf("failed to create replacement: %v", err)
	}

	got, err := repo.GetByID("r1")
	if err != nil {
		t.Fatalf("failed to get replacement: %v", err)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("expected created_at %v, got %v", created, got.CreatedAt)
	}
}

func TestReplacementRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Replacements().GetByID("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestReplacementRepository_MarkRestored(t *testing.T) {
	s := newTestStore(t)
	repo := s.Replacements()

	if err := repo.Create(&Replacement{ID: "r1", GUID: "g", Frame: "1",
		SourceAnnotator: "a", TargetAnnotator: "b", BackupPath: "p"}); err != nil {
		t.Fatalf("failed to create replacement: %v", err)
	}

	if err := repo.MarkRestored("r1"); err != nil {
		t.Fatalf("first restore: %v", err)
	}

	got, err := repo.GetByID("r1")
	if err != nil {
		t.Fatalf("failed to get replacement: %v", err)
	}
	if got.RestoredAt == nil {
		t.Fatal("expected RestoredAt to be set")
	}

	if err := repo.MarkRestored("r1"); !errors.Is(err, ErrAlreadyRestored) {
		t.Errorf("second restore: expected ErrAlreadyRestored, got %v", err)
	}
	if err := repo.MarkRestored("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id: expected ErrNotFound, got %v", err)
	}
}

func TestReplacementRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Replacements()

	for _, id := range []string{"r1", "r2"} {
		if err := repo.Create(&Replacement{ID: id, GUID: "g", Frame: "1",
			SourceAnnotator: "a", TargetAnnotator: "b", BackupPath: id}); err != nil {
			t.Fatalf("failed to create %s: %v", id, err)
		}
	}

	got, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 replacements, got %d", len(got))
	}
	if got[0].ID != "r2" {
		t.Errorf("expected newest first, got %s", got[0].ID)
	}
}

func TestSettingsRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	if _, err := repo.Get(SettingAggregation); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unset key, got %v", err)
	}

	if err := repo.Set(SettingAggregation, "average"); err != nil {
		t.Fatalf("failed to set: %v", err)
	}
	if err := repo.Set(SettingAggregation, "product"); err != nil {
		t.Fatalf("failed to overwrite: %v", err)
	}

	got, err := repo.Get(SettingAggregation)
	if err != nil {
		t.Fatalf("failed to get: %v", err)
	}
	if got != "product" {
		t.Errorf("expected %q, got %q", "product", got)
	}
}
