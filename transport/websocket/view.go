package websocket

import "github.com/wricardo/mcp-training/concentration/game/engine"

// sessionView forwards engine notifications to every client of a session
type sessionView struct {
	hub *Hub
	id  string
}

// SessionView returns an engine.View that broadcasts each notification to
// the clients watching sessionID
func (h *Hub) SessionView(sessionID string) engine.View {
	return sessionView{hub: h, id: sessionID}
}

func (v sessionView) RenderBoard(cards []engine.Card) {
	v.hub.BroadcastEvent(v.id, EventBoard, cards)
}

func (v sessionView) SetCardState(card engine.Card) {
	v.hub.BroadcastEvent(v.id, EventCard, card)
}

func (v sessionView) SetMoves(moves int) {
	v.hub.BroadcastEvent(v.id, EventMoves, moves)
}

func (v sessionView) SetTimer(display string) {
	v.hub.BroadcastEvent(v.id, EventTimer, display)
}

func (v sessionView) ShowWin(visible bool) {
	v.hub.BroadcastEvent(v.id, EventWin, visible)
}

func (v sessionView) SetBestScore(moves int) {
	v.hub.BroadcastEvent(v.id, EventBestScore, moves)
}

// SessionSounds returns sound hooks that ask the clients of sessionID to
// play the named effect
func (h *Hub) SessionSounds(sessionID string) engine.Sounds {
	sound := func(name string) func() {
		return func() { h.BroadcastEvent(sessionID, EventSound, name) }
	}
	return engine.Sounds{
		OnClick:    sound(SoundClick),
		OnMatch:    sound(SoundMatch),
		OnMismatch: sound(SoundMismatch),
		OnWin:      sound(SoundWin),
		OnStart:    sound(SoundStart),
	}
}
