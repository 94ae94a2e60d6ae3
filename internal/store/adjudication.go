package store

import (
	"database/sql"
	"time"
)

// Adjudication records one adjudication file written by the tool.
type Adjudication struct {
	ID        string
	GUID      string
	Frame     string
	Annotator string
	CreatedAt time.Time
}

// AdjudicationRepository provides access to the adjudication journal.
type AdjudicationRepository struct {
	db *sql.DB
}

// Adjudications returns the adjudication repository for this store.
func (s *Store) Adjudications() *AdjudicationRepository {
	return &AdjudicationRepository{db: s.db}
}

// Record inserts an adjudication event.
func (r *AdjudicationRepository) Record(a *Adjudication) error {
	a.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO adjudications (id, guid, frame, annotator, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.GUID, a.Frame, a.Annotator, a.CreatedAt,
	)
	return err
}

// ListByInstance returns the events for one instance, oldest first.
func (r *AdjudicationRepository) ListByInstance(guid, frame string) ([]*Adjudication, error) {
	return r.query(
		`SELECT id, guid, frame, annotator, created_at
		 FROM adjudications WHERE guid = ? AND frame = ?
		 ORDER BY created_at`,
		guid, frame,
	)
}

// List returns all events, newest first.
func (r *AdjudicationRepository) List() ([]*Adjudication, error) {
	return r.query(
		`SELECT id, guid, frame, annotator, created_at
		 FROM adjudications ORDER BY created_at DESC`,
	)
}

func (r *AdjudicationRepository) query(q string, args ...any) ([]*Adjudication, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Adjudication
	for rows.Next() {
		a := &Adjudication{}
		if err := rows.Scan(&a.ID, &a.GUID, &a.Frame, &a.Annotator, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}
