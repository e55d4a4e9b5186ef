package engine

import "slices"

// validateAction runs the full pre-mutation check sequence for a single
// action. Each step fails with its own error kind, in this order:
// actor exists, actor alive, actor has a role, role supports the action,
// phase eligibility, target exists, role-specific rules. Nothing is
// mutated here.
func (e *Engine) validateAction(s *Session, actorSeat int, action string, targetSeat *int) (*RoleDef, *actionContext, error) {
	actor := s.Player(actorSeat)
	if actor == nil {
		return nil, nil, newError(KindNotFound, "seat %d not found", actorSeat)
	}
	if !actor.Alive {
		return nil, nil, newError(KindConflict, "seat %d is dead and cannot act", actorSeat)
	}
	if actor.Role == "" {
		return nil, nil, newError(KindConflict, "seat %d has no assigned role", actorSeat)
	}

	def, err := e.catalog.Lookup(actor.Role)
	if err != nil {
		return nil, nil, err
	}
	if !slices.Contains(def.Actions, action) {
		return nil, nil, newError(KindInvalidAction, "role %s does not support action %s", actor.Role, action)
	}
	if !def.phaseOK(s.Phase, action) {
		return nil, nil, newError(KindWrongPhase, "role %s cannot perform %s during the %s phase", actor.Role, action, s.Phase)
	}

	ctx := &actionContext{session: s, actor: actor, action: action}
	if targetSeat != nil {
		target := s.Player(*targetSeat)
		if target == nil {
			return nil, nil, newError(KindNotFound, "target seat %d not found", *targetSeat)
		}
		ctx.target = target
	}

	if err := def.validate(ctx); err != nil {
		return nil, nil, err
	}
	return def, ctx, nil
}
