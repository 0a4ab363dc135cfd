package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agchaparroh/noticias-pipeline/internal/model"
	"github.com/agchaparroh/noticias-pipeline/internal/resilience"
	"github.com/agchaparroh/noticias-pipeline/internal/store"
	"github.com/agchaparroh/noticias-pipeline/pkg/scoring"
)

func TestCoordinator_HappyPath(t *testing.T) {
	llmMock := scriptedLLM()
	st := &mockStore{}
	coord, agg := newTestCoordinator(t, llmMock, &mockScorer{}, st)

	ref, res, err := coord.Process(context.Background(), testUnit("unit-1"))
	require.NoError(t, err)
	assert.Equal(t, "ref-unit-1", ref)

	assert.Len(t, res.Facts, 2)
	assert.Len(t, res.Entities, 2)
	assert.Len(t, res.Quotes, 1)
	assert.Len(t, res.Data, 1)
	assert.Len(t, res.Relations, 1)
	assert.Equal(t, 7.0, res.Importance)
	assert.Empty(t, res.DegradedPhases)

	payloads := st.insertedPayloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, "entity_1", payloads[0].Quotes[0].SpeakerTempID)

	snap := agg.Snapshot()
	assert.Equal(t, int64(1), snap.TotalProcessed)
	assert.Equal(t, int64(0), snap.TotalFailed)
	assert.Equal(t, int64(0), snap.TotalDegraded)
}

func TestCoordinator_EmptyTextFailsValidationBeforeAnyCall(t *testing.T) {
	llmMock := scriptedLLM()
	st := &mockStore{}
	coord, agg := newTestCoordinator(t, llmMock, &mockScorer{}, st)

	unit := testUnit("unit-2")
	unit.Text = "   "

	_, _, err := coord.Run(context.Background(), unit)
	require.Error(t, err)

	pe, ok := resilience.AsPipelineError(err)
	require.True(t, ok)
	assert.Equal(t, resilience.KindValidation, pe.Kind)
	assert.Equal(t, PhaseTriage, pe.Phase)
	assert.NotEmpty(t, pe.SupportCode)

	assert.Zero(t, llmMock.callCount(), "no external calls on validation failure")
	assert.Empty(t, st.insertedPayloads())

	snap := agg.Snapshot()
	assert.Equal(t, int64(1), snap.TotalProcessed)
	assert.Equal(t, int64(1), snap.TotalFailed)
	assert.Equal(t, int64(1), snap.ErrorsByKind[string(resilience.KindValidation)])
}

func TestCoordinator_ExtractionTimeoutDegradesToSyntheticFact(t *testing.T) {
	llmMock := scriptedLLM()
	llmMock.fail(extractSystem, resilience.NewTransientError(errors.New("context deadline exceeded"), 0))
	st := &mockStore{}
	coord, agg := newTestCoordinator(t, llmMock, &mockScorer{}, st)

	ref, res, err := coord.Process(context.Background(), testUnit("unit-3"))
	require.NoError(t, err, "exhaustion degrades, never fails")
	assert.NotEmpty(t, ref)

	require.Len(t, res.Facts, 1)
	assert.True(t, res.Facts[0].Degraded)
	assert.True(t, hasDegradedPhase(res, PhaseExtract))

	payloads := st.insertedPayloads()
	require.Len(t, payloads, 1)
	require.Len(t, payloads[0].Facts, 1)
	assert.True(t, payloads[0].Facts[0].Degraded)

	snap := agg.Snapshot()
	assert.Equal(t, int64(1), snap.Phases[PhaseExtract].Fallback)
	assert.Equal(t, int64(1), snap.TotalDegraded)
	assert.Equal(t, int64(0), snap.TotalFailed)
}

func TestCoordinator_NoMatchAndFailedRelationsLeaveEntitiesNew(t *testing.T) {
	llmMock := scriptedLLM()
	llmMock.fail(relationsSystem, resilience.NewTransientError(errors.New("connection refused"), 0))
	st := &mockStore{
		findFn: func(string, model.EntityType) (*store.EntityMatch, error) { return nil, nil },
	}
	coord, _ := newTestCoordinator(t, llmMock, &mockScorer{}, st)

	_, res, err := coord.Process(context.Background(), testUnit("unit-4"))
	require.NoError(t, err)

	for _, e := range res.Entities {
		assert.Nil(t, e.ExistingID, "entity %s should be new", e.Name)
	}
	assert.Empty(t, res.Relations)
	assert.True(t, hasDegradedPhase(res, PhaseLink))
}

func TestCoordinator_SimilarityRetryRecovers(t *testing.T) {
	llmMock := scriptedLLM()
	var mu sync.Mutex
	calls := 0
	existingID := int64(7)
	st := &mockStore{
		findFn: func(name string, _ model.EntityType) (*store.EntityMatch, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls == 1 {
				return nil, resilience.NewTransientError(errors.New("connection refused"), 0)
			}
			if name == "María López" {
				return &store.EntityMatch{ID: existingID, Name: "María López"}, nil
			}
			return nil, nil
		},
	}
	coord, _ := newTestCoordinator(t, llmMock, &mockScorer{}, st)

	_, res, err := coord.Process(context.Background(), testUnit("unit-5"))
	require.NoError(t, err)

	require.NotNil(t, res.Entities[0].ExistingID)
	assert.Equal(t, existingID, *res.Entities[0].ExistingID)
	assert.False(t, hasDegradedPhase(res, PhaseLink))
}

func TestCoordinator_SimilarityValidationErrorDegradesWithoutRetry(t *testing.T) {
	llmMock := scriptedLLM()
	var mu sync.Mutex
	calls := 0
	st := &mockStore{
		findFn: func(string, model.EntityType) (*store.EntityMatch, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			return nil, errors.New("invalid entity type")
		},
	}
	coord, _ := newTestCoordinator(t, llmMock, &mockScorer{}, st)

	_, res, err := coord.Process(context.Background(), testUnit("unit-6"))
	require.NoError(t, err)
	assert.True(t, hasDegradedPhase(res, PhaseLink))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls, "validation-class errors are never retried")
}

func TestCoordinator_ScoringFailureAssignsNeutral(t *testing.T) {
	llmMock := scriptedLLM()
	scorer := &mockScorer{fn: func(scoring.ScoreRequest) (float64, error) {
		return 0, resilience.NewTransientError(errors.New("i/o timeout"), 0)
	}}
	st := &mockStore{}
	coord, _ := newTestCoordinator(t, llmMock, scorer, st)

	_, res, err := coord.Process(context.Background(), testUnit("unit-7"))
	require.NoError(t, err)
	assert.Equal(t, neutralImportance, res.Importance)
	assert.True(t, hasDegradedPhase(res, PhaseScore))
}

func TestCoordinator_QuotesExhaustionDoesNotDegradeRun(t *testing.T) {
	llmMock := scriptedLLM()
	llmMock.fail(quotesSystem, resilience.NewTransientError(errors.New("broken pipe"), 0))
	st := &mockStore{}
	coord, agg := newTestCoordinator(t, llmMock, &mockScorer{}, st)

	_, res, err := coord.Process(context.Background(), testUnit("unit-8"))
	require.NoError(t, err)

	assert.Empty(t, res.Quotes)
	assert.Empty(t, res.Data)
	assert.False(t, hasDegradedPhase(res, PhaseQuotes))

	snap := agg.Snapshot()
	assert.Equal(t, int64(1), snap.Phases[PhaseQuotes].Fallback)
	assert.Equal(t, int64(0), snap.TotalDegraded)
}

func TestCoordinator_MalformedLLMResponseDegradesAfterOneAttempt(t *testing.T) {
	llmMock := scriptedLLM()
	llmMock.respond(triageSystem, "I cannot answer that.")
	st := &mockStore{}
	coord, _ := newTestCoordinator(t, llmMock, &mockScorer{}, st)

	_, res, err := coord.Process(context.Background(), testUnit("unit-9"))
	require.NoError(t, err)
	assert.True(t, res.Triage.Degraded)
	assert.True(t, res.Triage.Relevant, "permissive triage fallback accepts the unit")
}

func TestCoordinator_FragmentUsesFragmentInsert(t *testing.T) {
	llmMock := scriptedLLM()
	st := &mockStore{}
	coord, _ := newTestCoordinator(t, llmMock, &mockScorer{}, st)

	unit := testUnit("unit-10")
	unit.Kind = model.UnitKindFragment

	_, res, err := coord.Process(context.Background(), unit)
	require.NoError(t, err)
	assert.Equal(t, model.UnitKindFragment, res.Unit.Kind)

	payloads := st.insertedPayloads()
	require.Len(t, payloads, 1)
	assert.Equal(t, model.UnitKindFragment, payloads[0].Kind)
}
