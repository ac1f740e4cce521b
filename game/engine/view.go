package engine

// View is the presentation collaborator. The engine owns all card state and
// pushes every change through these setters; a View never mutates state, it
// only forwards selections back through SelectCard.
//
// Notifications are delivered in the order the state changed, after the
// engine releases its lock, so a View may call back into the engine.
type View interface {
	// RenderBoard rebuilds the whole board for a fresh or reshuffled deck
	RenderBoard(cards []Card)
	// SetCardState reflects a single card transition
	SetCardState(card Card)
	SetMoves(moves int)
	// SetTimer receives the elapsed time formatted as M:SS
	SetTimer(display string)
	// ShowWin toggles the end-of-game indicator
	ShowWin(visible bool)
	SetBestScore(moves int)
}

// NopView discards every notification. Embed it to implement only the
// setters you care about.
type NopView struct{}

func (NopView) RenderBoard([]Card) {}
func (NopView) SetCardState(Card) {}
func (NopView) SetMoves(int) {}
func (NopView) SetTimer(string) {}
func (NopView) ShowWin(bool) {}
func (NopView) SetBestScore(int) {}

// MultiView fans notifications out to several views in order
type MultiView []View

func (m MultiView) RenderBoard(cards []Card) {
	for _, v := range m {
		v.RenderBoard(cloneCards(cards))
	}
}

func (m MultiView) SetCardState(card Card) {
	for _, v := range m {
		v.SetCardState(card)
	}
}

func (m MultiView) SetMoves(moves int) {
	for _, v := range m {
		v.SetMoves(moves)
	}
}

func (m MultiView) SetTimer(display string) {
	for _, v := range m {
		v.SetTimer(display)
	}
}

func (m MultiView) ShowWin(visible bool) {
	for _, v := range m {
		v.ShowWin(visible)
	}
}

func (m MultiView) SetBestScore(moves int) {
	for _, v := range m {
		v.SetBestScore(moves)
	}
}

// Sounds holds the optional sound-effect hooks. Any nil hook is skipped.
type Sounds struct {
	OnClick    func()
	OnMatch    func()
	OnMismatch func()
	OnWin      func()
	OnStart    func()
}

// play invokes hook if it was supplied
func play(hook func()) {
	if hook != nil {
		hook()
	}
}
