// Package engine implements the werewolf rules core: role catalog, phase
// state machine, action validation, night resolution, event log with
// undo, and win evaluation. It is a pure in-memory package; persistence
// and transport live in the service layer on top of it.
package engine

// Engine evaluates game operations against a role catalog. It holds no
// per-game state; the Session is passed into every operation.
type Engine struct {
	catalog Catalog
}

// New returns an engine backed by the given role catalog.
func New(catalog Catalog) *Engine {
	return &Engine{catalog: catalog}
}

// Catalog exposes the engine's role catalog.
func (e *Engine) Catalog() Catalog {
	return e.catalog
}

// ListRoles returns the catalog's role metadata in night order.
func (e *Engine) ListRoles() []RoleMeta {
	return e.catalog.List()
}

// AdvancePhase moves the session to the next phase in the cycle and logs
// the transition. Entering night bumps the night counter. A finished
// game refuses to advance.
func (e *Engine) AdvancePhase(s *Session) (Phase, error) {
	if s.Phase == PhaseEnd {
		return s.Phase, newError(KindGameOver, "the game is over, no further phases")
	}
	from := s.Phase
	next := NextPhase(from)
	s.appendEvent(ActorSystem, nil, ActionAdvancePhase,
		"phase advanced from "+string(from)+" to "+string(next),
		map[string]any{"from": string(from), "to": string(next)})
	s.Phase = next
	if next == PhaseNight {
		s.Night++
	}
	e.applyWinCheck(s)
	return s.Phase, nil
}

// PerformAction validates and applies a single role action for the
// player at actorSeat, appends the resulting event, and runs the win
// check. The extra payload, if any, is stored on the event verbatim.
func (e *Engine) PerformAction(s *Session, actorSeat int, action string, targetSeat *int, payload map[string]any) error {
	if s.Phase == PhaseEnd {
		return newError(KindConflict, "the game is already over")
	}
	def, ctx, err := e.validateAction(s, actorSeat, action, targetSeat)
	if err != nil {
		return err
	}
	note := def.apply(ctx)
	s.appendEvent(ctx.actor.Role, targetSeat, action, note, payload)
	e.applyWinCheck(s)
	return nil
}
