package engine

import (
	"time"
)

// Action tags used in the event log.
const (
	ActionProtect      = "protect"
	ActionKill         = "kill"
	ActionCheck        = "check"
	ActionHeal         = "heal"
	ActionPoison       = "poison"
	ActionAssignRoles  = "assignRoles"
	ActionAdvancePhase = "advancePhase"
	ActionNightSummary = "nightSummary"
	ActionGameOver     = "gameOver"
)

// ActorSystem tags events produced by the engine itself rather than a role.
const ActorSystem = "system"

// Event is one entry of the append-only log. UndoOf is kept for the
// persisted layout but never set: undo pops the last event instead of
// appending a marker, so the log always replays to the live state.
type Event struct {
	ID      int64          `json:"id"`
	At      time.Time      `json:"at"`
	Phase   Phase          `json:"phase"`
	Actor   string         `json:"actor"`
	Target  *int           `json:"targetSeat,omitempty"`
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload,omitempty"`
	Note    string         `json:"note,omitempty"`
	UndoOf  int64          `json:"undoOf,omitempty"`
}

// appendEvent records an event tagged with the session's current phase.
// Event IDs stay monotonic even across undos.
func (s *Session) appendEvent(actor string, target *int, action, note string, payload map[string]any) *Event {
	s.NextEventID++
	s.Log = append(s.Log, Event{
		ID:      s.NextEventID,
		At:      time.Now(),
		Phase:   s.Phase,
		Actor:   actor,
		Target:  target,
		Action:  action,
		Payload: payload,
		Note:    note,
	})
	return &s.Log[len(s.Log)-1]
}

// lastEventBy returns the most recent event by the given actor, scanning
// the log backwards. Used for the guard's consecutive-protect rule.
func (s *Session) lastEventBy(actor string) *Event {
	for i := len(s.Log) - 1; i >= 0; i-- {
		if s.Log[i].Actor == actor {
			return &s.Log[i]
		}
	}
	return nil
}

// UndoLastEvent reverts exactly the most recently appended event and
// removes it from the log. Only the last event may be undone; anything
// else fails with a RuleViolation and leaves the session untouched.
func (e *Engine) UndoLastEvent(s *Session, eventID int64) error {
	if len(s.Log) == 0 {
		return newError(KindNotFound, "event log is empty")
	}
	last := s.Log[len(s.Log)-1]
	if last.ID != eventID {
		return newError(KindRuleViolation, "only the latest event can be undone")
	}

	switch last.Action {
	case ActionKill, ActionPoison:
		if p := eventTarget(s, last); p != nil {
			p.Alive = true
		}
	case ActionHeal:
		if p := eventTarget(s, last); p != nil {
			p.Alive = false
		}
	case ActionProtect:
		if p := eventTarget(s, last); p != nil {
			p.Guarded = false
		}
	case ActionAdvancePhase:
		from := payloadPhase(last.Payload, "from")
		if s.Phase == PhaseNight && from != PhaseNight {
			s.Night--
		}
		s.Phase = from
	case ActionGameOver:
		s.Phase = payloadPhase(last.Payload, "from")
	case ActionAssignRoles:
		for i := range s.Players {
			s.Players[i].Role = ""
		}
		s.Phase = PhaseInit
		s.Night = 0
	default:
		// check and nightSummary carry no state of their own
	}

	s.Log = s.Log[:len(s.Log)-1]
	return nil
}

func eventTarget(s *Session, ev Event) *Player {
	if ev.Target == nil {
		return nil
	}
	return s.Player(*ev.Target)
}

// payloadPhase reads a phase value out of an event payload. Payloads pass
// through JSON persistence, so the value is always a plain string.
func payloadPhase(payload map[string]any, key string) Phase {
	if payload == nil {
		return PhaseInit
	}
	v, ok := payload[key].(string)
	if !ok || !ValidPhase(Phase(v)) {
		return PhaseInit
	}
	return Phase(v)
}
