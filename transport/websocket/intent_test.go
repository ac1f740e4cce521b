package websocket

import (
	"context"
	"errors"
	"testing"

	"github.com/wricardo/mcp-training/concentration/game/engine"
	"github.com/wricardo/mcp-training/concentration/game/service"
)

// fakeService implements the game operations an intent can reach. Other
// methods panic through the nil embedded interface.
type fakeService struct {
	service.GameService
	calls []string
}

func (f *fakeService) SelectCard(ctx context.Context, sessionID string, position int) (*service.SelectResult, error) {
	f.calls = append(f.calls, "select")
	return &service.SelectResult{Success: true, Selection: engine.Selection{Accepted: true}}, nil
}

func (f *fakeService) NewGame(ctx context.Context, sessionID string) (*engine.GameState, error) {
	f.calls = append(f.calls, "new_game")
	return &engine.GameState{}, nil
}

func (f *fakeService) Reshuffle(ctx context.Context, sessionID string) (*engine.GameState, error) {
	f.calls = append(f.calls, "reshuffle")
	return &engine.GameState{}, nil
}

func (f *fakeService) GetGameState(ctx context.Context, sessionID string) (*engine.GameState, error) {
	f.calls = append(f.calls, "state")
	return &engine.GameState{Moves: 1}, nil
}

func TestServiceHandler(t *testing.T) {
	position := 2
	tests := []struct {
		name     string
		intent   Intent
		wantCall string
		wantErr  error
	}{
		{name: "select", intent: Intent{Action: ActionSelect, Position: &position}, wantCall: "select"},
		{name: "new game", intent: Intent{Action: ActionNewGame}, wantCall: "new_game"},
		{name: "reshuffle", intent: Intent{Action: ActionReshuffle}, wantCall: "reshuffle"},
		{name: "state", intent: Intent{Action: ActionState}, wantCall: "state"},
		{name: "unknown action", intent: Intent{Action: "fly"}, wantErr: ErrUnknownAction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			handler := NewServiceHandler(svc)

			result, err := handler.HandleIntent(context.Background(), "abcd", tt.intent)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result == nil {
				t.Error("Expected a result")
			}
			if len(svc.calls) != 1 || svc.calls[0] != tt.wantCall {
				t.Errorf("Expected call %s, got %v", tt.wantCall, svc.calls)
			}
		})
	}

	t.Run("select without position", func(t *testing.T) {
		svc := &fakeService{}
		if _, err := NewServiceHandler(svc).HandleIntent(context.Background(), "abcd", Intent{Action: ActionSelect}); err == nil {
			t.Error("Expected error for select without position")
		}
		if len(svc.calls) != 0 {
			t.Errorf("Expected no service call, got %v", svc.calls)
		}
	})
}
