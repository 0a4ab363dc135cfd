package scoring

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agchaparroh/noticias-pipeline/internal/resilience"
)

func TestScore_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/score", r.URL.Path)

		var req ScoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "unit-1", req.UnitID)
		assert.Equal(t, 3, req.FactCount)

		json.NewEncoder(w).Encode(map[string]float64{"score": 7.5})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	score, err := c.Score(context.Background(), ScoreRequest{UnitID: "unit-1", FactCount: 3})
	require.NoError(t, err)
	assert.InDelta(t, 7.5, score, 0.001)
}

func TestScore_ServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Score(context.Background(), ScoreRequest{UnitID: "unit-1"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err), "503 should classify as transient")
}

func TestScore_ClientErrorIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad payload", http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Score(context.Background(), ScoreRequest{UnitID: "unit-1"})
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err), "422 should not classify as transient")
}

func TestScore_ConnectionFailureIsTransient(t *testing.T) {
	// Point at a closed port.
	c := NewClient("http://127.0.0.1:1", 200*time.Millisecond)
	_, err := c.Score(context.Background(), ScoreRequest{UnitID: "unit-1"})
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestScore_MalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Score(context.Background(), ScoreRequest{UnitID: "unit-1"})
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}
