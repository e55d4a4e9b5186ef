package engine

// Verdict is the outcome of win evaluation. Winner is set only when Over
// is true.
type Verdict struct {
	Over   bool `json:"over"`
	Winner Team `json:"winner,omitempty"`
}

// EvaluateWinner decides whether the game has ended: no living werewolves
// means good wins, living werewolves reaching parity with everyone else
// means the werewolves win. Pure; callers that want the phase forced to
// end go through a mutating engine operation instead.
func EvaluateWinner(players []Player) Verdict {
	alive, wolves := 0, 0
	for i := range players {
		if !players[i].Alive {
			continue
		}
		alive++
		if players[i].Role == RoleWerewolf {
			wolves++
		}
	}
	if wolves == 0 {
		return Verdict{Over: true, Winner: TeamGood}
	}
	if wolves >= alive-wolves {
		return Verdict{Over: true, Winner: TeamWerewolf}
	}
	return Verdict{}
}

// applyWinCheck runs after every mutating operation. When the roster
// decides the game, a terminal event naming the winner is appended and
// the phase is forced to end. Skipped before roles are dealt, since an
// empty roster trivially has zero werewolves.
func (e *Engine) applyWinCheck(s *Session) Verdict {
	if s.Phase == PhaseEnd || !s.rolesAssigned() {
		return Verdict{Over: s.Phase == PhaseEnd}
	}
	verdict := EvaluateWinner(s.Players)
	if !verdict.Over {
		return verdict
	}
	from := s.Phase
	s.appendEvent(ActorSystem, nil, ActionGameOver,
		"game over: "+string(verdict.Winner)+" wins",
		map[string]any{"from": string(from), "winner": string(verdict.Winner)})
	s.Phase = PhaseEnd
	return verdict
}
