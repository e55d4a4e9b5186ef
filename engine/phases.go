package engine

// Phase is one of the fixed game phases. The cycle after init is
// night -> day -> vote -> night; end is reached only through the win
// evaluator.
type Phase string

const (
	PhaseInit  Phase = "init"
	PhaseNight Phase = "night"
	PhaseDay   Phase = "day"
	PhaseVote  Phase = "vote"
	PhaseEnd   Phase = "end"
)

// PhaseActors lists the actor categories permitted to act in each phase.
// "system" covers phase advances and night-batch resolution.
var PhaseActors = map[Phase][]string{
	PhaseInit:  {},
	PhaseNight: {"guard", "werewolves", "seer", "witch", "system"},
	PhaseDay:   {"system"},
	PhaseVote:  {"system"},
	PhaseEnd:   {},
}

// NextPhase returns the next phase in the fixed cycle. It never returns
// PhaseEnd; an unknown phase falls back to night, matching the original
// flow table.
func NextPhase(p Phase) Phase {
	switch p {
	case PhaseInit:
		return PhaseNight
	case PhaseNight:
		return PhaseDay
	case PhaseDay:
		return PhaseVote
	case PhaseVote:
		return PhaseNight
	default:
		return PhaseNight
	}
}

// ValidPhase reports whether p is one of the five known phases.
func ValidPhase(p Phase) bool {
	switch p {
	case PhaseInit, PhaseNight, PhaseDay, PhaseVote, PhaseEnd:
		return true
	}
	return false
}
