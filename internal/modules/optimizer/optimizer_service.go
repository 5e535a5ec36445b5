package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/samber/lo"

	"sky-trace/internal/models"
	"sky-trace/internal/session"
	"sky-trace/pkg/attest"
)

const defaultAircraftType = "B738"

// ServiceInterface drives the optimize action against a finalized session
// and proxies route verification to the attestation collaborator.
type ServiceInterface interface {
	Optimize(ctx context.Context, sessionID string, grid *models.GridConfig) (models.SessionView, error)
	VerifyRoute(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error)
}

// service implements ServiceInterface, talking to the external
// route-optimization endpoint over plain HTTP.
type service struct {
	store        *session.Store
	httpClient   *http.Client
	optimizerURL string
	attestSvc    attest.ServiceInterface
}

// NewService builds the optimize service. The timeout bounds the whole
// optimization call; the A* service can legitimately take a while on dense
// grids, so callers configure it generously.
func NewService(store *session.Store, optimizerURL string, timeout time.Duration, attestSvc attest.ServiceInterface) ServiceInterface {
	return &service{
		store:        store,
		httpClient:   &http.Client{Timeout: timeout},
		optimizerURL: optimizerURL,
		attestSvc:    attestSvc,
	}
}

// Optimize issues one route-optimization request for the session's
// finalized record and current lambda. Re-entry while a call is loading is
// rejected; a stale completion (an older call finishing after a newer one
// started) is discarded rather than committed.
func (s *service) Optimize(ctx context.Context, sessionID string, grid *models.GridConfig) (models.SessionView, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return models.SessionView{}, err
	}

	rec, lambda, seq, err := sess.BeginOptimize()
	if err != nil {
		return models.SessionView{}, err
	}

	req := buildRouteRequest(rec, lambda, grid)

	result, err := s.callOptimizer(ctx, req)
	if err != nil {
		_ = sess.CompleteOptimize(seq, nil, true)
		return sess.View(), err
	}

	// A nil result is the optimizer's valid "nothing usable" outcome.
	_ = sess.CompleteOptimize(seq, result, false)
	return sess.View(), nil
}

// VerifyRoute hands the route payload to the attestation collaborator.
func (s *service) VerifyRoute(ctx context.Context, payload map[string]interface{}) (map[string]interface{}, error) {
	return s.attestSvc.VerifyRoute(ctx, payload)
}

// buildRouteRequest turns a finalized record plus trade-off weight into the
// optimizer's wire payload. Pure, no I/O. An absent aircraft type falls
// back to B738; lambda is clamped into [0,2] as a second line behind the
// HTTP-layer validation; zero-valued grid fields take the defaults.
func buildRouteRequest(rec models.FlightRecord, lambda float64, grid *models.GridConfig) models.RouteRequest {
	aircraft := rec.AircraftType
	if aircraft == "" {
		aircraft = defaultAircraftType
	}
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 2 {
		lambda = 2
	}
	return models.RouteRequest{
		Start:         models.LatLon{Lat: *rec.StartLat, Lon: *rec.StartLon},
		End:           models.LatLon{Lat: *rec.EndLat, Lon: *rec.EndLon},
		DepartureTime: rec.DepartureTime,
		AircraftType:  aircraft,
		Lambda:        lambda,
		GridConfig:    mergeGrid(grid),
	}
}

// mergeGrid overlays any caller-provided grid fields on the defaults.
func mergeGrid(grid *models.GridConfig) models.GridConfig {
	g := models.DefaultGridConfig()
	if grid == nil {
		return g
	}
	if grid.LatStepDeg > 0 {
		g.LatStepDeg = grid.LatStepDeg
	}
	if grid.LonStepDeg > 0 {
		g.LonStepDeg = grid.LonStepDeg
	}
	if len(grid.AltitudesFt) > 0 {
		g.AltitudesFt = grid.AltitudesFt
	}
	if grid.MaxExpansions > 0 {
		g.MaxExpansions = grid.MaxExpansions
	}
	return g
}

// optimizeResponse covers both schemas the optimization service answers
// with: the edge-list shape (with optional totals) and the legacy
// point-list shape. Some deployments report failures in-band via "error".
type optimizeResponse struct {
	RouteEdges []routeEdge        `json:"route_edges"`
	Route      []models.LatLon    `json:"route"`
	Totals     *models.RouteStats `json:"totals"`
	Error      string             `json:"error"`
}

type routeEdge struct {
	From models.LatLon `json:"from"`
	To   models.LatLon `json:"to"`
}

// callOptimizer posts the request and normalizes whichever schema comes
// back. Transport and parse failures are typed so the handler can report
// them distinctly from the valid empty outcome.
func (s *service) callOptimizer(ctx context.Context, reqBody models.RouteRequest) (*models.RouteResult, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.optimizerURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &models.TransportError{Op: "optimize", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &models.TransportError{Op: "optimize", Err: fmt.Errorf("optimizer returned %s", resp.Status)}
	}

	var raw optimizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &models.MalformedResponseError{Op: "optimize", Err: err}
	}
	if raw.Error != "" {
		return nil, &models.TransportError{Op: "optimize", Err: fmt.Errorf("optimizer reported: %s", raw.Error)}
	}

	return normalize(raw), nil
}

// normalize reduces either response schema to one ordered waypoint path.
// Edge lists win over point lists; the path is the first edge's origin
// followed by every edge's destination, which rebuilds the continuous
// route without duplicating the shared joints. An empty response yields
// nil: no route to render, not an error.
func normalize(raw optimizeResponse) *models.RouteResult {
	if len(raw.RouteEdges) > 0 {
		waypoints := append(
			[]models.LatLon{raw.RouteEdges[0].From},
			lo.Map(raw.RouteEdges, func(e routeEdge, _ int) models.LatLon { return e.To })...,
		)
		return &models.RouteResult{Waypoints: waypoints, Stats: raw.Totals}
	}
	if len(raw.Route) > 0 {
		return &models.RouteResult{Waypoints: raw.Route}
	}
	return nil
}
