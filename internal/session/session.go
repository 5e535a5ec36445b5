package session

import (
	"sync"

	"sky-trace/internal/models"
)

// Session owns one user's dialogue and optimization state. Every field is
// guarded by mu; callers go through the transition methods below, which
// keep the state machine honest under concurrent HTTP requests:
//
//	COLLECTING -> AWAITING_CONFIRMATION -> FINALIZING -> FINALIZED
//	                     |                     |
//	                     +---- (No) ----> COLLECTING (on abort, back to
//	                                      AWAITING_CONFIRMATION)
//
// At most one dialogue turn and one optimize call may be outstanding at a
// time; each is guarded independently. Stale completions are discarded via
// monotonic per-operation sequence numbers (last request wins).
type Session struct {
	ID string

	mu             sync.Mutex
	state          string
	history        []models.ConversationTurn // model-facing, append-only
	display        []models.DisplayMessage   // UI-facing, may diverge from history
	flight         *models.FlightRecord      // set exactly once, on finalization
	lambda         float64
	turnBusy       bool
	extractSeq     uint64
	optimizeStatus string
	optimizeSeq    uint64
	route          *models.RouteResult
}

func newSession(id string) *Session {
	return &Session{
		ID:             id,
		state:          models.StateCollecting,
		lambda:         1.0,
		optimizeStatus: models.OptimizeIdle,
	}
}

// Greet seeds the opening assistant message. It is display-only: the
// model-facing history starts empty so the greeting never reaches the model.
func (s *Session) Greet(content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.display) == 0 {
		s.display = append(s.display, models.DisplayMessage{
			Role:    models.RoleAssistant,
			Content: content,
		})
	}
}

// BeginTurn registers the user's message and reserves the single dialogue
// slot. It returns a copy of the full model-facing history including the
// new user turn, ready to be sent to the language model.
func (s *Session) BeginTurn(userText string) ([]models.ConversationTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == models.StateFinalizing || s.state == models.StateFinalized {
		return nil, models.ErrSessionFinalized
	}
	if s.turnBusy {
		return nil, models.ErrTurnInFlight
	}
	s.turnBusy = true
	s.history = append(s.history, models.ConversationTurn{Role: models.RoleUser, Content: userText})
	s.display = append(s.display, models.DisplayMessage{Role: models.RoleUser, Content: userText})
	return append([]models.ConversationTurn(nil), s.history...), nil
}

// CompleteTurn appends the assistant reply to both histories and releases
// the dialogue slot. A reply recognized as a confirmation offer moves the
// session to AWAITING_CONFIRMATION; any other reply keeps (or returns) it
// to COLLECTING.
func (s *Session) CompleteTurn(reply string, confirmation bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, models.ConversationTurn{Role: models.RoleAssistant, Content: reply})
	s.display = append(s.display, models.DisplayMessage{
		Role:           models.RoleAssistant,
		Content:        reply,
		IsConfirmation: confirmation,
	})
	if confirmation {
		s.state = models.StateAwaitingConfirmation
	} else {
		s.state = models.StateCollecting
	}
	s.turnBusy = false
}

// FailTurn releases the dialogue slot after a failed model call. The
// apology goes to the display history only; the user turn already in the
// model-facing history stays, so the model sees it on the next attempt.
func (s *Session) FailTurn(apology string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.display = append(s.display, models.DisplayMessage{Role: models.RoleAssistant, Content: apology})
	s.turnBusy = false
}

// Reject handles the user's "No" on a confirmation offer: a fixed follow-up
// prompt is shown and collection resumes. The model-facing history is not
// touched by the rejection itself.
func (s *Session) Reject(followUp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == models.StateFinalized {
		return models.ErrSessionFinalized
	}
	if s.state != models.StateAwaitingConfirmation {
		return models.ErrNotAwaitingConfirmation
	}
	s.display = append(s.display, models.DisplayMessage{Role: models.RoleAssistant, Content: followUp})
	s.state = models.StateCollecting
	return nil
}

// BeginFinalize moves the session into FINALIZING and hands back the
// history for extraction together with the sequence number that a later
// CommitFlight/AbortFinalize must present.
func (s *Session) BeginFinalize() ([]models.ConversationTurn, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == models.StateFinalized {
		return nil, 0, models.ErrSessionFinalized
	}
	if s.state != models.StateAwaitingConfirmation {
		return nil, 0, models.ErrNotAwaitingConfirmation
	}
	s.state = models.StateFinalizing
	s.extractSeq++
	return append([]models.ConversationTurn(nil), s.history...), s.extractSeq, nil
}

// CommitFlight installs the finalized record. The commit is one-shot and
// discarded when a newer finalize attempt has been issued since.
func (s *Session) CommitFlight(rec models.FlightRecord, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.extractSeq {
		return models.ErrStaleResult
	}
	if s.state == models.StateFinalized {
		return models.ErrSessionFinalized
	}
	s.flight = &rec
	s.state = models.StateFinalized
	return nil
}

// AbortFinalize returns the session to AWAITING_CONFIRMATION after a failed
// extraction (error policy), so the user can answer Yes again.
func (s *Session) AbortFinalize(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq == s.extractSeq && s.state == models.StateFinalizing {
		s.state = models.StateAwaitingConfirmation
	}
}

// State returns the current dialogue state.
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Flight returns a copy of the finalized record, or false before
// finalization.
func (s *Session) Flight() (models.FlightRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flight == nil {
		return models.FlightRecord{}, false
	}
	return *s.flight, true
}

// SetLambda stores the trade-off weight. The HTTP layer validates the
// range; this is the last line of defense.
func (s *Session) SetLambda(v float64) error {
	if v < 0 || v > 2 {
		return models.ErrLambdaOutOfRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lambda = v
	return nil
}

// BeginOptimize reserves the single optimize slot and hands back the inputs
// for the request build plus the completion sequence number. It refuses to
// run before finalization and while another optimization is loading.
func (s *Session) BeginOptimize() (models.FlightRecord, float64, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.flight == nil {
		return models.FlightRecord{}, 0, 0, models.ErrRecordNotFinalized
	}
	if s.optimizeStatus == models.OptimizeLoading {
		return models.FlightRecord{}, 0, 0, models.ErrOptimizeInFlight
	}
	s.optimizeStatus = models.OptimizeLoading
	s.optimizeSeq++
	return *s.flight, s.lambda, s.optimizeSeq, nil
}

// CompleteOptimize records the outcome of an optimization call. A nil route
// with failed=false is the valid "optimizer found nothing usable" outcome.
// Stale completions are dropped.
func (s *Session) CompleteOptimize(seq uint64, route *models.RouteResult, failed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.optimizeSeq {
		return models.ErrStaleResult
	}
	if failed {
		s.optimizeStatus = models.OptimizeFailed
	} else {
		s.optimizeStatus = models.OptimizeSucceeded
		s.route = route
	}
	return nil
}

// View snapshots the session for the rendering layer.
func (s *Session) View() models.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := models.SessionView{
		ID:             s.ID,
		State:          s.state,
		Messages:       append([]models.DisplayMessage(nil), s.display...),
		Lambda:         s.lambda,
		OptimizeStatus: s.optimizeStatus,
	}
	if s.flight != nil {
		rec := *s.flight
		v.Flight = &rec
	}
	if s.route != nil {
		r := *s.route
		v.Route = &r
	}
	return v
}

// History returns a copy of the model-facing history.
func (s *Session) History() []models.ConversationTurn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ConversationTurn(nil), s.history...)
}
