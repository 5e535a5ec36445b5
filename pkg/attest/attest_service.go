package attest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// ServiceInterface defines the contract for route attestation. The actual
// oracle-network workflow (round submission, proof retrieval, on-chain
// commit) lives in an external service; this client only hands it an
// optimization payload and relays the verdict.
type ServiceInterface interface {
	VerifyRoute(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error)
}

// Service posts route payloads to the external verifier.
type Service struct {
	httpClient *http.Client
	verifyURL  string
}

// NewService creates the verification client.
func NewService(verifyURL string, timeout time.Duration) *Service {
	return &Service{
		httpClient: &http.Client{Timeout: timeout},
		verifyURL:  verifyURL,
	}
}

// VerifyRoute submits the payload for attestation. The verifier being down
// is an expected condition, not a failure: the route is then reported
// unverified with the payload echoed back, and the caller proceeds.
func (s *Service) VerifyRoute(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
	unverified := map[string]interface{}{
		"status":            "unverified",
		"verified_on_chain": false,
		"route_payload":     payload,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.verifyURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return unverified, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return unverified, nil
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return unverified, nil
	}
	return result, nil
}
