package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/agchaparroh/noticias-pipeline/internal/model"
	"github.com/agchaparroh/noticias-pipeline/internal/resilience"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies
// it for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store against the persistence service's SQL
// functions: the two insert entry points and the similarity lookup each
// take one call.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) InsertArticle(ctx context.Context, payload *model.UnitPayload) (string, error) {
	return s.insert(ctx, "SELECT insert_article($1::jsonb)", payload)
}

func (s *PostgresStore) InsertFragment(ctx context.Context, payload *model.UnitPayload) (string, error) {
	return s.insert(ctx, "SELECT insert_fragment($1::jsonb)", payload)
}

func (s *PostgresStore) insert(ctx context.Context, sql string, payload *model.UnitPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", eris.Wrap(err, "postgres: marshal payload")
	}

	var ref string
	if err := s.pool.QueryRow(ctx, sql, body).Scan(&ref); err != nil {
		return "", classifyPgError(eris.Wrap(err, "postgres: insert"))
	}
	return ref, nil
}

func (s *PostgresStore) FindSimilarEntity(ctx context.Context, name string, entityType model.EntityType) (*EntityMatch, error) {
	normalized := NormalizeEntityName(name)

	var match EntityMatch
	err := s.pool.QueryRow(ctx,
		"SELECT id, name FROM entities WHERE norm_name = $1 AND type = $2 LIMIT 1",
		normalized, string(entityType),
	).Scan(&match.ID, &match.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classifyPgError(eris.Wrap(err, "postgres: find similar entity"))
	}
	return &match, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrap(err, "postgres: migrate")
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// classifyPgError separates connection-class failures (retryable once
// per the RPC policy) from validation-class rejections (never retried).
func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 is connection exceptions; 57 is operator intervention
		// (shutdown). Everything else, notably 22 (data) and 23
		// (integrity), is a payload problem retries cannot fix.
		if len(pgErr.Code) >= 2 {
			switch pgErr.Code[:2] {
			case "08", "57":
				return resilience.NewTransientError(err, 0)
			}
		}
		return err
	}
	if resilience.IsTransient(err) {
		return resilience.NewTransientError(err, 0)
	}
	return err
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS units (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	unit_id    TEXT NOT NULL,
	kind       TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS entities (
	id         BIGSERIAL PRIMARY KEY,
	name       TEXT NOT NULL,
	norm_name  TEXT NOT NULL,
	type       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_units_unit_id ON units(unit_id);
CREATE INDEX IF NOT EXISTS idx_entities_norm ON entities(norm_name, type);

CREATE OR REPLACE FUNCTION insert_article(p jsonb) RETURNS text AS $$
DECLARE
	ref text;
	e   jsonb;
BEGIN
	IF p->>'unit_id' IS NULL OR p->>'unit_id' = '' THEN
		RAISE EXCEPTION 'payload validation rejected: missing unit_id'
			USING ERRCODE = '22023';
	END IF;

	INSERT INTO units (unit_id, kind, payload)
	VALUES (p->>'unit_id', 'article', p)
	RETURNING id INTO ref;

	FOR e IN SELECT * FROM jsonb_array_elements(coalesce(p->'entities', '[]'::jsonb))
	LOOP
		IF e->>'existing_id' IS NULL THEN
			INSERT INTO entities (name, norm_name, type)
			VALUES (e->>'name', coalesce(e->>'norm_name', lower(e->>'name')), e->>'type');
		END IF;
	END LOOP;

	RETURN ref;
END;
$$ LANGUAGE plpgsql;

CREATE OR REPLACE FUNCTION insert_fragment(p jsonb) RETURNS text AS $$
DECLARE
	ref text;
BEGIN
	IF p->>'unit_id' IS NULL OR p->>'unit_id' = '' THEN
		RAISE EXCEPTION 'payload validation rejected: missing unit_id'
			USING ERRCODE = '22023';
	END IF;

	INSERT INTO units (unit_id, kind, payload)
	VALUES (p->>'unit_id', 'fragment', p)
	RETURNING id INTO ref;

	RETURN ref;
END;
$$ LANGUAGE plpgsql;
`
