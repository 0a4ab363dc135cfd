package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agchaparroh/noticias-pipeline/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func TestSQLite_InsertArticle(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	ref, err := st.InsertArticle(ctx, samplePayload())
	require.NoError(t, err)
	assert.NotEmpty(t, ref)
}

func TestSQLite_InsertFragment(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	p := samplePayload()
	p.Kind = model.UnitKindFragment
	ref, err := st.InsertFragment(ctx, p)
	require.NoError(t, err)
	assert.NotEmpty(t, ref)
}

func TestSQLite_Insert_MissingUnitID(t *testing.T) {
	st := newTestSQLiteStore(t)

	p := samplePayload()
	p.UnitID = ""
	_, err := st.InsertArticle(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing unit_id")
}

func TestSQLite_Insert_RegistersNewEntities(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	existing := int64(99)
	p := samplePayload()
	p.Entities = []model.EntityPayload{
		{TempID: "entity_1", Name: "María López", Type: model.EntityPerson, Confidence: 0.9},
		{TempID: "entity_2", Name: "Banco Central", Type: model.EntityOrganization, Confidence: 0.8, ExistingID: &existing},
	}

	_, err := st.InsertArticle(ctx, p)
	require.NoError(t, err)

	// The new entity becomes visible to the similarity lookup; the
	// linked one was not re-inserted.
	match, err := st.FindSimilarEntity(ctx, "maria lopez", model.EntityPerson)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "María López", match.Name)

	match, err = st.FindSimilarEntity(ctx, "Banco Central", model.EntityOrganization)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestSQLite_FindSimilarEntity_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	match, err := st.FindSimilarEntity(context.Background(), "Nadie Conocido", model.EntityPerson)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestSQLite_FindSimilarEntity_NormalizesAccentsAndCase(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	p := samplePayload()
	p.Entities = []model.EntityPayload{
		{TempID: "entity_1", Name: "Comisión Económica", Type: model.EntityInstitution, Confidence: 0.95},
	}
	_, err := st.InsertArticle(ctx, p)
	require.NoError(t, err)

	match, err := st.FindSimilarEntity(ctx, "COMISION   ECONOMICA", model.EntityInstitution)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "Comisión Económica", match.Name)
}
