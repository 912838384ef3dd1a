package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"color-snake/internal/config"
	"color-snake/internal/game"
)

func TestRecordEventCounters(t *testing.T) {
	at := time.Unix(0, 0)
	segmentsBefore := testutil.ToFloat64(eliminatedSegmentsTotal)
	redBefore := testutil.ToFloat64(eliminationsTotal.WithLabelValues("RED"))
	bombBefore := testutil.ToFloat64(specialItemsTotal.WithLabelValues("BOMB", "consumed"))
	lossBefore := testutil.ToFloat64(reconstructionLossTotal)
	overBefore := testutil.ToFloat64(gamesOverTotal)

	RecordEvent(game.NewEvent(game.EventTypeElimination, at, 1, "s", game.EliminationPayload{Color: "RED", Count: 4, Combo: 1}))
	RecordEvent(game.NewEvent(game.EventTypeSpecialEaten, at, 2, "s", game.SpecialPayload{Kind: "BOMB"}))
	RecordEvent(game.NewEvent(game.EventTypeReconstructionLoss, at, 3, "s", game.ReconstructionLossPayload{Requested: 5, Placed: 3, Dropped: 2}))
	RecordEvent(game.NewEvent(game.EventTypeGameOver, at, 4, "s", game.GameOverPayload{Score: 10}))
	// Payload-less events of a payload type are ignored
	RecordEvent(game.Event{Type: game.EventTypeElimination})

	if got := testutil.ToFloat64(eliminatedSegmentsTotal) - segmentsBefore; got != 4 {
		t.Errorf("Expected 4 eliminated segments, got %v", got)
	}
	if got := testutil.ToFloat64(eliminationsTotal.WithLabelValues("RED")) - redBefore; got != 1 {
		t.Errorf("Expected 1 RED elimination, got %v", got)
	}
	if got := testutil.ToFloat64(specialItemsTotal.WithLabelValues("BOMB", "consumed")) - bombBefore; got != 1 {
		t.Errorf("Expected 1 consumed bomb, got %v", got)
	}
	if got := testutil.ToFloat64(reconstructionLossTotal) - lossBefore; got != 2 {
		t.Errorf("Expected 2 dropped segments, got %v", got)
	}
	if got := testutil.ToFloat64(gamesOverTotal) - overBefore; got != 1 {
		t.Errorf("Expected 1 game over, got %v", got)
	}
}

func TestRecordSnapshotGauges(t *testing.T) {
	RecordSnapshot(&game.Snapshot{
		Score:     120,
		HighScore: 300,
		Combo:     2,
		Snake:     make([]game.Segment, 7),
	})

	if got := testutil.ToFloat64(scoreGauge); got != 120 {
		t.Errorf("Expected score 120, got %v", got)
	}
	if got := testutil.ToFloat64(lengthGauge); got != 7 {
		t.Errorf("Expected length 7, got %v", got)
	}
	if got := testutil.ToFloat64(comboGauge); got != 2 {
		t.Errorf("Expected combo 2, got %v", got)
	}

	RecordSnapshot(nil) // must not panic
}

func TestDebugHandlerAuth(t *testing.T) {
	h := debugHandler(config.ObservabilityConfig{BasicAuthUser: "ops", BasicAuthPass: "secret"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without credentials, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.SetBasicAuth("ops", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("Expected 200 OK, got %d %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("ops", "secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected metrics to be served, got %d", rec.Code)
	}
}
