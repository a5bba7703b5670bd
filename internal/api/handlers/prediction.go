package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/abhinavuser/reflectometry/internal/core"
	"github.com/abhinavuser/reflectometry/internal/prediction"
)

// Predictor scores a sample for fence taps.
type Predictor interface {
	Predict(ctx context.Context, in prediction.Input) prediction.Prediction
}

// PredictionHandler serves POST /sas/ai-prediction.
type PredictionHandler struct {
	predictor Predictor
	validator *core.Validator
	logger    *slog.Logger
}

// NewPredictionHandler creates a PredictionHandler.
func NewPredictionHandler(p Predictor, val *core.Validator, logger *slog.Logger) *PredictionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if val == nil {
		val = core.NewValidator(logger)
	}
	return &PredictionHandler{predictor: p, validator: val, logger: logger}
}

// RegisterRoutes mounts the prediction endpoint.
func (h *PredictionHandler) RegisterRoutes(r chi.Router) {
	r.HandleFunc("/sas/ai-prediction", h.HandlePredict)
}

type predictionResponse struct {
	Success    bool                  `json:"success"`
	Prediction prediction.Prediction `json:"prediction"`
}

// HandlePredict scores the posted sample. Omitted fields take nominal line
// values.
func (h *PredictionHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		core.MethodNotAllowed(w, r)
		return
	}

	var in prediction.Input
	if err := core.DecodeJSON(w, r, &in); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(in); err != nil {
		core.Error(w, r, err)
		return
	}

	p := h.predictor.Predict(r.Context(), in)
	if p.IsPositive {
		h.logger.Warn("fence tap predicted",
			slog.Float64("confidence", p.Confidence),
			slog.String("method", string(p.Method)),
		)
	}
	core.JSON(w, r, http.StatusOK, predictionResponse{Success: true, Prediction: p})
}
