package models

// Conversation roles as the language-model API expects them.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DialogueState values for the per-session slot-filling state machine.
const (
	StateCollecting           = "COLLECTING"
	StateAwaitingConfirmation = "AWAITING_CONFIRMATION"
	StateFinalizing           = "FINALIZING"
	StateFinalized            = "FINALIZED"
)

// Optimize action status values exposed to the rendering layer.
const (
	OptimizeIdle      = "IDLE"
	OptimizeLoading   = "LOADING"
	OptimizeSucceeded = "SUCCEEDED"
	OptimizeFailed    = "FAILED"
)

// ConversationTurn is one entry of the model-facing history. The history is
// append-only and sent in full on every language-model call.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// DisplayMessage is what the rendering layer shows. It may carry UI-only
// content (greetings, error text) that must not leak into the model-facing
// history, and is tagged when it carries a Yes/No decision point.
type DisplayMessage struct {
	Role           string `json:"role"`
	Content        string `json:"content"`
	IsConfirmation bool   `json:"isConfirmation,omitempty"`
}

// SendMessageRequest is the body of a dialogue turn.
type SendMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

// ConfirmRequest carries the user's Yes/No answer to a confirmation offer.
type ConfirmRequest struct {
	Confirmed *bool `json:"confirmed" validate:"required"`
}

// LambdaUpdateRequest adjusts the fuel-vs-contrail trade-off weight.
// A pointer so that an explicit 0 survives the required check.
type LambdaUpdateRequest struct {
	Lambda *float64 `json:"lambda" validate:"required,gte=0,lte=2"`
}

// SessionView is the snapshot of a session handed to the rendering layer.
type SessionView struct {
	ID             string           `json:"session_id"`
	State          string           `json:"state"`
	Messages       []DisplayMessage `json:"messages"`
	Lambda         float64          `json:"lambda"`
	Flight         *FlightRecord    `json:"flight,omitempty"`
	OptimizeStatus string           `json:"optimize_status"`
	Route          *RouteResult     `json:"route,omitempty"`
}

// CreateSessionResponse is returned when a new dialogue session is opened.
type CreateSessionResponse struct {
	SessionID string      `json:"session_id"`
	Token     string      `json:"token"`
	View      SessionView `json:"view"`
}
