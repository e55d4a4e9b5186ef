package engine

import "fmt"

// NightActions bundles the simultaneous night submissions. Every field is
// optional; a nil target means that role sat the night out.
type NightActions struct {
	GuardTarget  *int `json:"guardTarget,omitempty"`
	WolvesTarget *int `json:"wolvesTarget,omitempty"`
	SeerTarget   *int `json:"seerTarget,omitempty"`
	WitchHeal    *int `json:"witchHealTarget,omitempty"`
	WitchPoison  *int `json:"witchPoisonTarget,omitempty"`
}

// Attempted echoes the targets each role went for, resolved or not.
type Attempted struct {
	WolvesKill   *int `json:"wolvesKill"`
	GuardProtect *int `json:"guardProtect"`
	WitchHeal    *int `json:"witchHeal"`
	WitchPoison  *int `json:"witchPoison"`
	SeerCheck    *int `json:"seerCheck"`
}

// Prevented records which protection stopped the wolf kill, if any.
type Prevented struct {
	ByGuard bool `json:"byGuard"`
	ByHeal  bool `json:"byHeal"`
}

// SeerResult is the seer's report for the night.
type SeerResult struct {
	Seat       int  `json:"seat"`
	IsWerewolf bool `json:"isWerewolf"`
}

// NightSummary is the structured outcome of one resolved night.
// DoubleProtected names the seat on which guard protection and witch heal
// cancelled each other out, when that special case fired.
type NightSummary struct {
	Attempted       Attempted   `json:"attempted"`
	Prevented       Prevented   `json:"prevented"`
	Killed          []int       `json:"killed"`
	Survived        []int       `json:"survived"`
	Seer            *SeerResult `json:"seer,omitempty"`
	DoubleProtected *int        `json:"doubleProtected,omitempty"`
}

// ResolveNight resolves a whole night as one atomic pass: all rule checks
// run before any mutation, then the wolf kill is weighed against guard
// and heal, poison lands unconditionally, and the seer's check is
// reported. One event per submitted action plus a summary event land in
// the log.
func (e *Engine) ResolveNight(s *Session, acts NightActions) (*NightSummary, error) {
	if s.Phase == PhaseEnd {
		return nil, newError(KindConflict, "the game is already over")
	}
	if s.Phase != PhaseNight {
		return nil, newError(KindWrongPhase, "night actions cannot be resolved during the %s phase", s.Phase)
	}

	// Step 1: every supplied seat must exist.
	for _, seat := range []*int{acts.GuardTarget, acts.WolvesTarget, acts.SeerTarget, acts.WitchHeal, acts.WitchPoison} {
		if seat != nil && s.Player(*seat) == nil {
			return nil, newError(KindNotFound, "target seat %d not found", *seat)
		}
	}

	// Step 2: consecutive-protect rule.
	if acts.GuardTarget != nil && !s.Rules.GuardConsecutiveProtectAllowed {
		if last := s.lastEventBy(RoleGuard); last != nil && last.Target != nil && *last.Target == *acts.GuardTarget {
			return nil, newError(KindRuleViolation, "cannot guard the same seat on consecutive nights")
		}
	}

	// Step 3: witch first-night self-save rule.
	if acts.WitchHeal != nil && s.Night == 1 && !s.Rules.WitchSelfSaveFirstNight {
		if witchSeat, ok := s.RoleSeat(RoleWitch); ok && witchSeat == *acts.WitchHeal {
			return nil, newError(KindRuleViolation, "witch cannot heal herself on the first night")
		}
	}

	// Step 4: recompute guard flags for this night.
	for i := range s.Players {
		s.Players[i].Guarded = false
	}
	if acts.GuardTarget != nil {
		s.Player(*acts.GuardTarget).Guarded = true
	}

	summary := &NightSummary{
		Attempted: Attempted{
			WolvesKill:   acts.WolvesTarget,
			GuardProtect: acts.GuardTarget,
			WitchHeal:    acts.WitchHeal,
			WitchPoison:  acts.WitchPoison,
			SeerCheck:    acts.SeerTarget,
		},
		Killed:   []int{},
		Survived: []int{},
	}

	// Step 5: wolf kill vs guard vs heal. Guard and heal on the exact
	// same victim cancel each other out and the victim still dies.
	killed := map[int]bool{}
	killNote := ""
	if acts.WolvesTarget != nil {
		victim := s.Player(*acts.WolvesTarget)
		healed := acts.WitchHeal != nil && *acts.WitchHeal == victim.Seat
		switch {
		case victim.Guarded && healed:
			seat := victim.Seat
			summary.DoubleProtected = &seat
			killed[victim.Seat] = true
			killNote = fmt.Sprintf("werewolves kill seat %d (guard and heal cancel out)", victim.Seat)
		case victim.Guarded:
			summary.Prevented.ByGuard = true
			killNote = fmt.Sprintf("werewolves attack seat %d, prevented by the guard", victim.Seat)
		case healed:
			summary.Prevented.ByHeal = true
			killNote = fmt.Sprintf("werewolves attack seat %d, healed by the witch", victim.Seat)
		default:
			killed[victim.Seat] = true
			killNote = fmt.Sprintf("werewolves kill seat %d", victim.Seat)
		}
	}

	// Step 6: poison ignores guard and heal entirely.
	if acts.WitchPoison != nil {
		killed[*acts.WitchPoison] = true
	}

	for seat := range killed {
		s.Player(seat).Alive = false
	}
	for _, p := range s.Players {
		if killed[p.Seat] {
			summary.Killed = append(summary.Killed, p.Seat)
		}
	}

	// Step 7: seer check, report only.
	if acts.SeerTarget != nil {
		target := s.Player(*acts.SeerTarget)
		summary.Seer = &SeerResult{
			Seat:       target.Seat,
			IsWerewolf: e.catalog.teamOf(target.Role) == TeamWerewolf,
		}
	}

	// Step 8: explicitly-surviving seats are the attempted kill and heal
	// targets that did not end up dead.
	for _, seat := range []*int{acts.WolvesTarget, acts.WitchHeal} {
		if seat != nil && !killed[*seat] && !contains(summary.Survived, *seat) {
			summary.Survived = append(summary.Survived, *seat)
		}
	}

	// Step 9: one event per submitted action, in night order, then the
	// summary.
	if acts.GuardTarget != nil {
		s.appendEvent(RoleGuard, acts.GuardTarget, ActionProtect,
			fmt.Sprintf("guard protects seat %d", *acts.GuardTarget), nil)
	}
	if acts.WolvesTarget != nil {
		s.appendEvent(RoleWerewolf, acts.WolvesTarget, ActionKill, killNote, nil)
	}
	if acts.SeerTarget != nil {
		note := fmt.Sprintf("seer checks seat %d: not a werewolf", *acts.SeerTarget)
		if summary.Seer.IsWerewolf {
			note = fmt.Sprintf("seer checks seat %d: werewolf", *acts.SeerTarget)
		}
		s.appendEvent(RoleSeer, acts.SeerTarget, ActionCheck, note, nil)
	}
	if acts.WitchHeal != nil {
		s.appendEvent(RoleWitch, acts.WitchHeal, ActionHeal,
			fmt.Sprintf("witch heals seat %d", *acts.WitchHeal), nil)
	}
	if acts.WitchPoison != nil {
		s.appendEvent(RoleWitch, acts.WitchPoison, ActionPoison,
			fmt.Sprintf("witch poisons seat %d", *acts.WitchPoison), nil)
	}
	s.appendEvent(ActorSystem, nil, ActionNightSummary,
		fmt.Sprintf("night %d resolved: %d dead", s.Night, len(summary.Killed)),
		map[string]any{
			"killed":   summary.Killed,
			"survived": summary.Survived,
		})

	e.applyWinCheck(s)
	return summary, nil
}

func contains(seats []int, seat int) bool {
	for _, s := range seats {
		if s == seat {
			return true
		}
	}
	return false
}
