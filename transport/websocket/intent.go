package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/wricardo/mcp-training/concentration/game/service"
)

// Actions a client may send
const (
	ActionSelect    = "select"
	ActionNewGame   = "new_game"
	ActionReshuffle = "reshuffle"
	ActionState     = "state"
)

// ErrUnknownAction is returned for intents the hub does not understand
var ErrUnknownAction = errors.New("unknown action")

// Intent is a user action sent by a client, e.g.
//
//	{"action": "select", "position": 3}
type Intent struct {
	Action   string `json:"action"`
	Position *int   `json:"position,omitempty"`
}

// IntentHandler executes client intents for a session. The returned value
// is sent back to the requesting client only; state changes reach every
// client of the session through the engine's view.
type IntentHandler interface {
	HandleIntent(ctx context.Context, sessionID string, intent Intent) (interface{}, error)
}

// ServiceHandler routes intents to a GameService
type ServiceHandler struct {
	Service service.GameService
}

// NewServiceHandler creates an IntentHandler backed by svc
func NewServiceHandler(svc service.GameService) *ServiceHandler {
	return &ServiceHandler{Service: svc}
}

// HandleIntent implements IntentHandler
func (h *ServiceHandler) HandleIntent(ctx context.Context, sessionID string, intent Intent) (interface{}, error) {
	switch intent.Action {
	case ActionSelect:
		if intent.Position == nil {
			return nil, fmt.Errorf("select requires a position")
		}
		return h.Service.SelectCard(ctx, sessionID, *intent.Position)
	case ActionNewGame:
		return h.Service.NewGame(ctx, sessionID)
	case ActionReshuffle:
		return h.Service.Reshuffle(ctx, sessionID)
	case ActionState:
		return h.Service.GetGameState(ctx, sessionID)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, intent.Action)
	}
}
