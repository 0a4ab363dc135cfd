package pipeline

import (
	"testing"

	"go.uber.org/zap"

	"github.com/agchaparroh/noticias-pipeline/internal/config"
	"github.com/agchaparroh/noticias-pipeline/internal/metrics"
	"github.com/agchaparroh/noticias-pipeline/internal/model"
	"github.com/agchaparroh/noticias-pipeline/internal/store"
	"github.com/agchaparroh/noticias-pipeline/pkg/llm"
	"github.com/agchaparroh/noticias-pipeline/pkg/scoring"
)

// testConfig keeps retry waits near zero so exhaustion paths run fast.
func testConfig() *config.Config {
	return &config.Config{
		Store: config.StoreConfig{TimeoutSecs: 1},
		Retry: config.RetryConfig{
			LLM: config.ServicePolicy{MaxAttempts: 3, WaitMs: 1, JitterMs: 1},
			RPC: config.ServicePolicy{MaxAttempts: 2, WaitMs: 1},
		},
	}
}

func newTestCoordinator(t *testing.T, llmClient llm.Client, scorer scoring.Client, st store.Store) (*Coordinator, *metrics.Aggregator) {
	t.Helper()
	zap.ReplaceGlobals(zap.NewNop())
	agg := metrics.New(false)
	return New(testConfig(), llmClient, scorer, st, agg), agg
}

func testUnit(id string) model.ProcessingUnit {
	return model.ProcessingUnit{
		ID:    id,
		Kind:  model.UnitKindArticle,
		Title: "El gobierno anuncia medidas",
		Text:  "El gobierno anunció hoy un paquete económico que afecta a tres provincias. \"Es una medida necesaria\", dijo María López.",
		Source: model.SourceMeta{
			Medium:   "diario-nacional",
			Language: "es",
		},
	}
}
