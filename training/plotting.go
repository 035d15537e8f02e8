package training

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Akalya1854/voice-traits/logging"
)

// CurveClient streams per-epoch metrics to a local plotting sidecar over
// HTTP. The sidecar is optional tooling: delivery failures are logged and
// never interrupt training.
type CurveClient struct {
	baseURL string
	client  *http.Client
	runID   string
	enabled bool
}

// NewCurveClient points at the sidecar service. An empty baseURL disables
// the client entirely.
func NewCurveClient(baseURL, runID string) *CurveClient {
	return &CurveClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		runID:   runID,
		enabled: baseURL != "",
	}
}

type curvePoint struct {
	RunID         string  `json:"run_id"`
	Epoch         int     `json:"epoch"`
	TrainLoss     float64 `json:"train_loss"`
	TrainAccuracy float64 `json:"train_accuracy"`
	ValLoss       float64 `json:"val_loss"`
	ValAccuracy   float64 `json:"val_accuracy"`
	LearningRate  float64 `json:"learning_rate"`
}

// RecordEpoch posts one epoch's metrics. Errors are swallowed after logging
// so a dead sidecar cannot take the run down with it.
func (cc *CurveClient) RecordEpoch(stats EpochStats) {
	if cc == nil || !cc.enabled {
		return
	}

	point := curvePoint{
		RunID:         cc.runID,
		Epoch:         stats.Epoch,
		TrainLoss:     stats.TrainLoss,
		TrainAccuracy: stats.TrainAccuracy,
		ValLoss:       stats.ValLoss,
		ValAccuracy:   stats.ValAccuracy,
		LearningRate:  stats.LearningRate,
	}

	body, err := json.Marshal(point)
	if err != nil {
		logging.Warn("failed to encode curve point: %v", err)
		return
	}

	resp, err := cc.client.Post(cc.baseURL+"/api/epoch", "application/json", bytes.NewReader(body))
	if err != nil {
		logging.Warn("plotting sidecar unreachable: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logging.Warn("plotting sidecar rejected epoch %d: %s", stats.Epoch, resp.Status)
	}
}

// CheckHealth reports whether the sidecar is up. Useful at startup so the
// operator learns early that curves will be missing.
func (cc *CurveClient) CheckHealth() error {
	if cc == nil || !cc.enabled {
		return nil
	}
	resp, err := cc.client.Get(cc.baseURL + "/api/health")
	if err != nil {
		return fmt.Errorf("plotting sidecar health check failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("plotting sidecar unhealthy: %s", resp.Status)
	}
	return nil
}
