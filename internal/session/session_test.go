package session

import (
	"testing"
	"time"

	"sky-trace/internal/models"
)

func testRecord() models.FlightRecord {
	return models.FlightRecord{
		Departure:     "Shanghai Pudong (PVG)",
		Destination:   "London Heathrow (LHR)",
		DepartureTime: "2026-02-07T08:00:00.000Z",
		AircraftType:  "A380",
		Duration:      "15h",
		StartLat:      models.Float64Ptr(31.1443),
		StartLon:      models.Float64Ptr(121.8083),
		EndLat:        models.Float64Ptr(51.47),
		EndLon:        models.Float64Ptr(-0.4543),
	}
}

// awaiting drives a fresh session into AWAITING_CONFIRMATION.
func awaiting(t *testing.T) *Session {
	t.Helper()
	sess := newSession("s1")
	if _, err := sess.BeginTurn("PVG to LHR tomorrow at 8, A380, about 15 hours"); err != nil {
		t.Fatalf("BeginTurn error: %v", err)
	}
	sess.CompleteTurn("Please select Yes to confirm or No to continue the conversation.", true)
	return sess
}

func TestTurnSlotIsExclusive(t *testing.T) {
	sess := newSession("s1")
	if _, err := sess.BeginTurn("hello"); err != nil {
		t.Fatalf("first BeginTurn error: %v", err)
	}
	// A second turn while the first is outstanding must be rejected.
	if _, err := sess.BeginTurn("are you there?"); err != models.ErrTurnInFlight {
		t.Errorf("second BeginTurn error = %v; want ErrTurnInFlight", err)
	}
	sess.CompleteTurn("Hello! Where are you flying from?", false)
	if _, err := sess.BeginTurn("from Shanghai"); err != nil {
		t.Errorf("BeginTurn after CompleteTurn error: %v", err)
	}
}

func TestFailTurnKeepsUserTurnInHistory(t *testing.T) {
	sess := newSession("s1")
	if _, err := sess.BeginTurn("hello"); err != nil {
		t.Fatalf("BeginTurn error: %v", err)
	}
	sess.FailTurn("Sorry, I encountered an error. Please try again.")

	history := sess.History()
	if len(history) != 1 || history[0].Role != models.RoleUser {
		t.Fatalf("history after failed turn = %+v; want the single user turn", history)
	}
	view := sess.View()
	last := view.Messages[len(view.Messages)-1]
	if last.Role != models.RoleAssistant || last.Content == "" {
		t.Errorf("last display message = %+v; want the apology", last)
	}
}

func TestRejectReturnsToCollecting(t *testing.T) {
	sess := awaiting(t)
	before := len(sess.History())

	if err := sess.Reject("No problem! What would you like to change?"); err != nil {
		t.Fatalf("Reject error: %v", err)
	}
	if got := sess.State(); got != models.StateCollecting {
		t.Errorf("state after reject = %s; want COLLECTING", got)
	}
	// The rejection itself never touches the model-facing history.
	if got := len(sess.History()); got != before {
		t.Errorf("history length after reject = %d; want %d", got, before)
	}

	if err := sess.Reject("again?"); err != models.ErrNotAwaitingConfirmation {
		t.Errorf("Reject while collecting error = %v; want ErrNotAwaitingConfirmation", err)
	}
}

func TestFinalizeIsOneShot(t *testing.T) {
	sess := awaiting(t)
	_, seq, err := sess.BeginFinalize()
	if err != nil {
		t.Fatalf("BeginFinalize error: %v", err)
	}
	if err := sess.CommitFlight(testRecord(), seq); err != nil {
		t.Fatalf("CommitFlight error: %v", err)
	}
	if got := sess.State(); got != models.StateFinalized {
		t.Fatalf("state = %s; want FINALIZED", got)
	}

	if _, _, err := sess.BeginFinalize(); err != models.ErrSessionFinalized {
		t.Errorf("BeginFinalize after commit error = %v; want ErrSessionFinalized", err)
	}
	if _, err := sess.BeginTurn("one more thing"); err != models.ErrSessionFinalized {
		t.Errorf("BeginTurn after commit error = %v; want ErrSessionFinalized", err)
	}
}

func TestStaleExtractionIsDiscarded(t *testing.T) {
	sess := awaiting(t)

	_, oldSeq, err := sess.BeginFinalize()
	if err != nil {
		t.Fatalf("first BeginFinalize error: %v", err)
	}
	// The first attempt fails and the user confirms again.
	sess.AbortFinalize(oldSeq)
	_, newSeq, err := sess.BeginFinalize()
	if err != nil {
		t.Fatalf("second BeginFinalize error: %v", err)
	}

	// The slow first extraction arrives late; it must not clobber anything.
	stale := testRecord()
	stale.Departure = "STALE"
	if err := sess.CommitFlight(stale, oldSeq); err != models.ErrStaleResult {
		t.Fatalf("stale CommitFlight error = %v; want ErrStaleResult", err)
	}

	if err := sess.CommitFlight(testRecord(), newSeq); err != nil {
		t.Fatalf("fresh CommitFlight error: %v", err)
	}
	rec, ok := sess.Flight()
	if !ok || rec.Departure != "Shanghai Pudong (PVG)" {
		t.Errorf("flight = %+v, ok = %v; want the fresh record", rec, ok)
	}
}

func TestOptimizeGuards(t *testing.T) {
	sess := newSession("s1")
	if _, _, _, err := sess.BeginOptimize(); err != models.ErrRecordNotFinalized {
		t.Errorf("BeginOptimize before finalize error = %v; want ErrRecordNotFinalized", err)
	}

	sess = awaiting(t)
	_, seq, _ := sess.BeginFinalize()
	if err := sess.CommitFlight(testRecord(), seq); err != nil {
		t.Fatalf("CommitFlight error: %v", err)
	}

	rec, lambda, optSeq, err := sess.BeginOptimize()
	if err != nil {
		t.Fatalf("BeginOptimize error: %v", err)
	}
	if lambda != 1.0 {
		t.Errorf("default lambda = %v; want 1.0", lambda)
	}
	if rec.Departure != "Shanghai Pudong (PVG)" {
		t.Errorf("BeginOptimize record = %+v; want the finalized one", rec)
	}

	if _, _, _, err := sess.BeginOptimize(); err != models.ErrOptimizeInFlight {
		t.Errorf("re-entrant BeginOptimize error = %v; want ErrOptimizeInFlight", err)
	}

	route := &models.RouteResult{Waypoints: []models.LatLon{{Lat: 1, Lon: 2}, {Lat: 3, Lon: 4}}}
	if err := sess.CompleteOptimize(optSeq, route, false); err != nil {
		t.Fatalf("CompleteOptimize error: %v", err)
	}
	view := sess.View()
	if view.OptimizeStatus != models.OptimizeSucceeded {
		t.Errorf("optimize status = %s; want SUCCEEDED", view.OptimizeStatus)
	}
	if view.Route == nil || len(view.Route.Waypoints) != 2 {
		t.Errorf("view route = %+v; want the two-point route", view.Route)
	}
}

func TestSetLambdaRange(t *testing.T) {
	sess := newSession("s1")
	if err := sess.SetLambda(2.5); err != models.ErrLambdaOutOfRange {
		t.Errorf("SetLambda(2.5) error = %v; want ErrLambdaOutOfRange", err)
	}
	if err := sess.SetLambda(0); err != nil {
		t.Errorf("SetLambda(0) error: %v", err)
	}
	if err := sess.SetLambda(2); err != nil {
		t.Errorf("SetLambda(2) error: %v", err)
	}
	if got := sess.View().Lambda; got != 2 {
		t.Errorf("lambda = %v; want 2", got)
	}
}

func TestStoreExpiry(t *testing.T) {
	store := NewStore(20 * time.Millisecond)
	sess := store.Create()

	if _, err := store.Get(sess.ID); err != nil {
		t.Fatalf("Get right after Create error: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if _, err := store.Get(sess.ID); err != models.ErrSessionNotFound {
		t.Errorf("Get after expiry error = %v; want ErrSessionNotFound", err)
	}
}

func TestStoreUnknownID(t *testing.T) {
	store := NewStore(time.Minute)
	if _, err := store.Get("nope"); err != models.ErrSessionNotFound {
		t.Errorf("Get unknown id error = %v; want ErrSessionNotFound", err)
	}
}
