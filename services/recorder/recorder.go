// File: services/recorder/recorder.go
//
// HTTP client for the external reservation recording endpoint. Approved
// bookings are mirrored there in addition to the local ledger; the caller
// owns retry bookkeeping.
package recorder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

var recorderClient = &http.Client{Timeout: 10 * time.Second}

// HTTPRecorder posts approved reservations to a remote endpoint,
// authenticated with a static x-api-token header.
type HTTPRecorder struct {
	Endpoint string
	APIToken string
}

// NewHTTPRecorder returns nil when no endpoint is configured, which disables
// the side channel entirely.
func NewHTTPRecorder(endpoint, apiToken string) *HTTPRecorder {
	if endpoint == "" {
		return nil
	}
	return &HTTPRecorder{Endpoint: endpoint, APIToken: apiToken}
}

type recordRequest struct {
	Name              string `json:"name"`
	CarNumber         string `json:"car_number"`
	ReservationPeriod string `json:"reservation_period"`
	ApprovalTime      string `json:"approval_time"`
}

type recordResponse struct {
	ID string `json:"id"`
}

// RecordReservation sends one approved reservation and returns the remote
// record id. Any transport or non-2xx failure is returned as an error so the
// caller can retry on a later turn.
func (r *HTTPRecorder) RecordReservation(ctx context.Context, name, carNumber, reservationPeriod, approvalTime string) (string, error) {
	body, err := json.Marshal(recordRequest{
		Name:              name,
		CarNumber:         carNumber,
		ReservationPeriod: reservationPeriod,
		ApprovalTime:      approvalTime,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode reservation: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build recorder request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.APIToken != "" {
		req.Header.Set("x-api-token", r.APIToken)
	}

	resp, err := recorderClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("recorder request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("recorder returned status %d: %s", resp.StatusCode, string(snippet))
	}

	var decoded recordResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		// A 2xx with an unexpected body still counts as recorded.
		return "", nil
	}
	return decoded.ID, nil
}
