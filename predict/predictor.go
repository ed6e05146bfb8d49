// Package predict stands in for the ML/XGBoost collaborator spec §1/§9
// names as an out-of-scope optional enhancement: the training pipeline
// is a separate system, so this package ships only the capability
// interface and a no-op implementation.
package predict

import (
	"context"

	"signalengine/detect"
)

// Predictor produces a supplemental probability score for a candidate,
// e.g. from a pre-trained classifier. Never required for a scan to
// complete.
type Predictor interface {
	Predict(ctx context.Context, candidate detect.CandidateSignal) (probability float64, err error)
}

// NoopPredictor always reports "no opinion" via probability -1, letting
// callers distinguish "not run" from "predicted near-zero".
type NoopPredictor struct{}

func (NoopPredictor) Predict(_ context.Context, _ detect.CandidateSignal) (float64, error) {
	return -1, nil
}
