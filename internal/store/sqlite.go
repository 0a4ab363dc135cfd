package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/agchaparroh/noticias-pipeline/internal/model"
	"github.com/agchaparroh/noticias-pipeline/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite. It is the
// local backend: inserts run as a transaction instead of a server-side
// function, but the contract is the same as PostgresStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS units (
	id         TEXT PRIMARY KEY,
	unit_id    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS entities (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	norm_name  TEXT NOT NULL,
	type       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_units_unit_id ON units(unit_id);
CREATE INDEX IF NOT EXISTS idx_entities_norm ON entities(norm_name, type);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertArticle(ctx context.Context, payload *model.UnitPayload) (string, error) {
	return s.insert(ctx, model.UnitKindArticle, payload)
}

func (s *SQLiteStore) InsertFragment(ctx context.Context, payload *model.UnitPayload) (string, error) {
	return s.insert(ctx, model.UnitKindFragment, payload)
}

func (s *SQLiteStore) insert(ctx context.Context, kind model.UnitKind, payload *model.UnitPayload) (string, error) {
	if payload.UnitID == "" {
		return "", eris.New("sqlite: payload validation rejected: missing unit_id")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal payload")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", classifySQLiteError(eris.Wrap(err, "sqlite: begin"))
	}
	defer tx.Rollback()

	ref := uuid.New().String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO units (id, unit_id, kind, payload) VALUES (?, ?, ?, ?)`,
		ref, payload.UnitID, string(kind), string(body),
	); err != nil {
		return "", classifySQLiteError(eris.Wrap(err, "sqlite: insert unit"))
	}

	for _, e := range payload.Entities {
		if e.ExistingID != nil {
			continue
		}
		normName := e.NormName
		if normName == "" {
			normName = NormalizeEntityName(e.Name)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entities (name, norm_name, type) VALUES (?, ?, ?)`,
			e.Name, normName, string(e.Type),
		); err != nil {
			return "", classifySQLiteError(eris.Wrap(err, "sqlite: insert entity"))
		}
	}

	if err := tx.Commit(); err != nil {
		return "", classifySQLiteError(eris.Wrap(err, "sqlite: commit"))
	}
	return ref, nil
}

func (s *SQLiteStore) FindSimilarEntity(ctx context.Context, name string, entityType model.EntityType) (*EntityMatch, error) {
	normalized := NormalizeEntityName(name)

	var match EntityMatch
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name FROM entities WHERE norm_name = ? AND type = ? LIMIT 1`,
		normalized, string(entityType),
	).Scan(&match.ID, &match.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classifySQLiteError(eris.Wrap(err, "sqlite: find similar entity"))
	}
	return &match, nil
}

// classifySQLiteError mirrors classifyPgError for the local backend. A
// busy or locked database is worth one more attempt; constraint
// violations are not.
func classifySQLiteError(err error) error {
	if resilience.IsTransient(err) {
		return resilience.NewTransientError(err, 0)
	}
	return err
}
