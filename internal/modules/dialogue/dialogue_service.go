package dialogue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/samber/lo"

	"sky-trace/internal/config"
	"sky-trace/internal/models"
	"sky-trace/internal/session"
	"sky-trace/pkg/llm"
)

// slotFillingPrompt is the fixed system instruction for dialogue turns. It
// enumerates the five slots to collect and pins the exact confirmation
// wording the completion check keys on.
const slotFillingPrompt = `You are a helpful flight booking assistant. Your job is to collect the following information from the user:
1. Departure city/airport
2. Destination city/airport
3. Departure date and time
4. Aircraft type preference (e.g., A380, B738, A320)
5. Estimated flight duration

Ask for missing information naturally. Once you have ALL information, create a summary in this EXACT format:
"To confirm your request:
Departure Time: [time], Duration: [hours], Route: [origin] to [destination], and Aircraft Type: [type].
Please select Yes to confirm or No to continue the conversation."

Be conversational and helpful.`

// extractionPrompt is the system instruction for the second, independent
// extraction call. Coordinates are resolved from the model's own knowledge;
// the three airports are anchor examples, not a lookup table.
const extractionPrompt = `Based on the conversation, extract flight information in JSON format:
{
  "departure": "city name (AIRPORT_CODE)",
  "destination": "city name (AIRPORT_CODE)",
  "departureTime": "YYYY-MM-DDTHH:mm:ss.000Z",
  "aircraftType": "type",
  "duration": "Xh",
  "startLat": number,
  "startLon": number,
  "endLat": number,
  "endLon": number
}

Use common airport coordinates. For example:
- Shanghai Pudong: 31.1443, 121.8083
- London Heathrow: 51.4700, -0.4543
- New York JFK: 40.6413, -73.7781

Return ONLY the JSON, no other text.`

const greetingMessage = "Hi!! I'm here to help you plan your flight. Please tell me your departure city, destination, preferred departure time, and aircraft type."

const apologyMessage = "Sorry, I encountered an error. Please try again."

const changeFollowUp = "No problem! What would you like to change?"

// Max token budgets per logical call.
const (
	chatMaxTokens    = 500
	extractMaxTokens = 300
)

// ServiceInterface is the dialogue controller exposed to the HTTP layer.
// It drives the per-session slot-filling state machine end to end.
type ServiceInterface interface {
	CreateSession(ctx context.Context) *session.Session
	View(sessionID string) (models.SessionView, error)
	SendMessage(ctx context.Context, sessionID, text string) (models.SessionView, error)
	Confirm(ctx context.Context, sessionID string, confirmed bool) (models.SessionView, error)
	SetLambda(sessionID string, lambda float64) (models.SessionView, error)
}

type service struct {
	store         *session.Store
	chat          llm.Client
	failurePolicy string
}

// NewService wires the controller with its session store, the injected
// chat transport and the extraction failure policy
// (config.ExtractionPolicyFallback or config.ExtractionPolicyError).
func NewService(store *session.Store, chat llm.Client, failurePolicy string) ServiceInterface {
	if failurePolicy != config.ExtractionPolicyError {
		failurePolicy = config.ExtractionPolicyFallback
	}
	return &service{
		store:         store,
		chat:          chat,
		failurePolicy: failurePolicy,
	}
}

// CreateSession opens a session in the COLLECTING state with the greeting
// already on screen. The greeting is display-only and never sent upstream.
func (s *service) CreateSession(ctx context.Context) *session.Session {
	sess := s.store.Create()
	sess.Greet(greetingMessage)
	return sess
}

func (s *service) View(sessionID string) (models.SessionView, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return models.SessionView{}, err
	}
	return sess.View(), nil
}

// SendMessage runs one dialogue turn. A failed model call degrades to an
// apologetic display message and is not an error to the caller; the user
// retries by simply sending another message.
func (s *service) SendMessage(ctx context.Context, sessionID, text string) (models.SessionView, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return models.SessionView{}, err
	}

	history, err := sess.BeginTurn(text)
	if err != nil {
		return models.SessionView{}, err
	}

	reply, err := s.advance(ctx, history)
	if err != nil {
		log.Printf("dialogue turn failed for session %s: %v", sessionID, err)
		sess.FailTurn(apologyMessage)
		return sess.View(), nil
	}

	sess.CompleteTurn(reply, isConfirmationOffer(reply))
	return sess.View(), nil
}

// Confirm handles the Yes/No answer to a confirmation offer. No resumes
// collection; Yes finalizes the record through extraction, one-shot.
func (s *service) Confirm(ctx context.Context, sessionID string, confirmed bool) (models.SessionView, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return models.SessionView{}, err
	}

	if !confirmed {
		if err := sess.Reject(changeFollowUp); err != nil {
			return models.SessionView{}, err
		}
		return sess.View(), nil
	}

	history, seq, err := sess.BeginFinalize()
	if err != nil {
		return models.SessionView{}, err
	}

	rec, err := s.buildRecord(ctx, history)
	if err != nil {
		log.Printf("flight extraction failed for session %s: %v", sessionID, err)
		if s.failurePolicy == config.ExtractionPolicyError {
			sess.AbortFinalize(seq)
			return sess.View(), models.ErrExtractionFailed
		}
		rec = fallbackRecord()
	}

	if err := sess.CommitFlight(rec, seq); err != nil {
		// A newer finalize attempt owns the session now; drop this result.
		return sess.View(), nil
	}
	return sess.View(), nil
}

func (s *service) SetLambda(sessionID string, lambda float64) (models.SessionView, error) {
	sess, err := s.store.Get(sessionID)
	if err != nil {
		return models.SessionView{}, err
	}
	if err := sess.SetLambda(lambda); err != nil {
		return models.SessionView{}, err
	}
	return sess.View(), nil
}

// advance sends the whole history plus the slot-filling instruction to the
// model and returns its reply verbatim.
func (s *service) advance(ctx context.Context, history []models.ConversationTurn) (string, error) {
	reply, err := s.chat.Complete(ctx, slotFillingPrompt, toMessages(history), chatMaxTokens)
	if err != nil {
		return "", &models.TransportError{Op: "dialogue turn", Err: err}
	}
	return reply, nil
}

// buildRecord runs the extraction call and merges the result over an empty
// record. Any outcome that would leave a coordinate missing counts as a
// failed extraction, so the optimizer can rely on the record downstream.
func (s *service) buildRecord(ctx context.Context, history []models.ConversationTurn) (models.FlightRecord, error) {
	reply, err := s.chat.Complete(ctx, extractionPrompt, toMessages(history), extractMaxTokens)
	if err != nil {
		return models.FlightRecord{}, &models.TransportError{Op: "flight extraction", Err: err}
	}

	var patch models.FlightRecordPatch
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &patch); err != nil {
		return models.FlightRecord{}, &models.MalformedResponseError{Op: "flight extraction", Err: err}
	}

	rec := models.FlightRecord{}.Merge(patch)
	if !rec.HasCoordinates() {
		return models.FlightRecord{}, &models.MalformedResponseError{
			Op:  "flight extraction",
			Err: fmt.Errorf("extracted record is missing coordinates"),
		}
	}
	return rec, nil
}

// isConfirmationOffer is the completion signal: the reply offers a Yes/No
// decision when its lowercase text mentions "confirm". Known heuristic,
// kept in one place so a structured protocol can replace it wholesale.
func isConfirmationOffer(reply string) bool {
	return strings.Contains(strings.ToLower(reply), "confirm")
}

// fallbackRecord is the fixed substitute used when extraction fails under
// the fallback policy. It always carries a full coordinate set.
func fallbackRecord() models.FlightRecord {
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

func toMessages(history []models.ConversationTurn) []llm.Message {
	return lo.Map(history, func(t models.ConversationTurn, _ int) llm.Message {
		return llm.Message{Role: t.Role, Content: t.Content}
	})
}
