package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhinavuser/reflectometry/internal/prediction"
)

type stubPredictor struct {
	got prediction.Input
	out prediction.Prediction
}

func (s *stubPredictor) Predict(_ context.Context, in prediction.Input) prediction.Prediction {
	s.got = in
	return s.out
}

func predictionRouter(p Predictor) chi.Router {
	r := chi.NewRouter()
	NewPredictionHandler(p, nil, nil).RegisterRoutes(r)
	return r
}

func TestHandlePredict(t *testing.T) {
	stub := &stubPredictor{out: prediction.Prediction{IsPositive: true, Confidence: 0.9, Method: prediction.MethodModel}}
	r := predictionRouter(stub)

	req := httptest.NewRequest(http.MethodPost, "/sas/ai-prediction", strings.NewReader(`{"voltage":230,"impedance":40}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, prediction.Input{Voltage: 230, Impedance: 40}, stub.got)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	p := body["prediction"].(map[string]any)
	assert.Equal(t, true, p["isFence"])
	assert.Equal(t, "model", p["method"])
}

func TestHandlePredict_WithRealServiceFallsBack(t *testing.T) {
	r := predictionRouter(prediction.NewService(nil, 0, nil, nil))

	req := httptest.NewRequest(http.MethodPost, "/sas/ai-prediction", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"method":"fallback_heuristic"`)
}

func TestHandlePredict_InvalidInput(t *testing.T) {
	r := predictionRouter(&stubPredictor{})

	req := httptest.NewRequest(http.MethodPost, "/sas/ai-prediction", strings.NewReader(`{"power_factor":1.5}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "power_factor")
}

func TestHandlePredict_MethodNotAllowed(t *testing.T) {
	r := predictionRouter(&stubPredictor{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sas/ai-prediction", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
