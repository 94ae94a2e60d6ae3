package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrAlreadyRestored is returned when restoring a replacement twice.
var ErrAlreadyRestored = errors.New("replacement already restored")

// Replacement records an overwrite of one annotator's response by another's.
type Replacement struct {
	ID              string
	GUID            string
	Frame           string
	SourceAnnotator string
	TargetAnnotator string
	BackupPath      string
	CreatedAt       time.Time
	// RestoredAt is nil until the backup has been written back.
	RestoredAt *time.Time
}

// ReplacementRepository provides CRUD operations for replacements.
type ReplacementRepository struct {
	db *sql.DB
}

// Replacements returns the replacement repository for this store.
func (s *Store) Replacements() *ReplacementRepository {
	return &ReplacementRepository{db: s.db}
}

// Create inserts a new replacement record. A zero CreatedAt is set to now.
func (r *ReplacementRepository) Create(rep *Replacement) error {
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO replacements (id, guid, frame, source_annotator, target_annotator, backup_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.GUID, rep.Frame, rep.SourceAnnotator, rep.TargetAnnotator, rep.BackupPath, rep.CreatedAt,
	)
	return err
}

// GetByID retrieves a replacement by its ID.
func (r *ReplacementRepository) GetByID(id string) (*Replacement, error) {
	rep, err := scanReplacement(r.db.QueryRow(
		`SELECT id, guid, frame, source_annotator, target_annotator, backup_path, created_at, restored_at
		 FROM replacements WHERE id = ?`,
		id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return rep, nil
}

// List retrieves all replacements, newest first.
func (r *ReplacementRepository) List() ([]*Replacement, error) {
	rows, err := r.db.Query(
		`SELECT id, guid, frame, source_annotator, target_annotator, backup_path, created_at, restored_at
		 FROM replacements ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Replacement
	for rows.Next() {
		rep, err := scanReplacement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rep)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// MarkRestored stamps a replacement as restored.
// Returns ErrNotFound for unknown IDs and ErrAlreadyRestored if it was
// already stamped.
func (r *ReplacementRepository) MarkRestored(id string) error {
	result, err := r.db.Exec(
		`UPDATE replacements SET restored_at = ? WHERE id = ? AND restored_at IS NULL`,
		time.Now(), id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		if _, err := r.GetByID(id); err != nil {
			return err
		}
		return ErrAlreadyRestored
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReplacement(row rowScanner) (*Replacement, error) {
	rep := &Replacement{}
	var restored sql.NullTime

	err := row.Scan(&rep.ID, &rep.GUID, &rep.Frame, &rep.SourceAnnotator, &rep.TargetAnnotator,
		&rep.BackupPath, &rep.CreatedAt, &restored)
	if err != nil {
		return nil, err
	}

	if restored.Valid {
		t := restored.Time
		rep.RestoredAt = &t
	}
	return rep, nil
}
