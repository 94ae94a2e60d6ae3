package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Adjudications table - one row per adjudication file written by the tool
		`CREATE TABLE IF NOT EXISTS adjudications (
			id TEXT PRIMARY KEY,
			guid TEXT NOT NULL,
			frame TEXT NOT NULL,
			annotator TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Replacements table - destructive annotation overwrites and their backups
		`CREATE TABLE IF NOT EXISTS replacements (
			id TEXT PRIMARY KEY,
			guid TEXT NOT NULL,
			frame TEXT NOT NULL,
			source_annotator TEXT NOT NULL,
			target_annotator TEXT NOT NULL,
			backup_path TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			restored_at DATETIME
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_adjudications_instance ON adjudications(guid, frame)`,
		`CREATE INDEX IF NOT EXISTS idx_replacements_instance ON replacements(guid, frame)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
