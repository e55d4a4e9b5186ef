package engine

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

// AssignRoles shuffles the configured role bag and deals it to players in
// seat order; players beyond the bag become villagers. Only valid while
// the session is in init. The random source is injected so callers can
// make the deal deterministic.
func (e *Engine) AssignRoles(s *Session, counts RoleCounts, rng *rand.Rand) error {
	if s.Phase != PhaseInit {
		return newError(KindConflict, "roles can only be assigned while the session is in init")
	}
	if rng == nil {
		return newError(KindInvalidInput, "a random source is required to deal roles")
	}
	if counts.Total() == 0 {
		return newError(KindInvalidInput, "role configuration is empty")
	}
	for roleID := range counts {
		if _, err := e.catalog.Lookup(roleID); err != nil {
			return err
		}
	}
	if counts.Total() > len(s.Players) {
		return newError(KindRuleViolation, "role counts (%d) exceed player count (%d)", counts.Total(), len(s.Players))
	}

	// Flatten to a bag in a stable order, then Fisher-Yates with the
	// injected source.
	roleIDs := make([]string, 0, len(counts))
	for roleID := range counts {
		roleIDs = append(roleIDs, roleID)
	}
	sort.Strings(roleIDs)
	bag := make([]string, 0, counts.Total())
	for _, roleID := range roleIDs {
		for i := 0; i < counts[roleID]; i++ {
			bag = append(bag, roleID)
		}
	}
	for i := len(bag) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		bag[i], bag[j] = bag[j], bag[i]
	}

	seats := make([]*Player, 0, len(s.Players))
	for i := range s.Players {
		seats = append(seats, &s.Players[i])
	}
	sort.Slice(seats, func(i, j int) bool { return seats[i].Seat < seats[j].Seat })
	for i, p := range seats {
		if i < len(bag) {
			p.Role = bag[i]
		} else {
			p.Role = RoleVillager
		}
	}

	s.RoleConfig = counts
	s.appendEvent(ActorSystem, nil, ActionAssignRoles,
		fmt.Sprintf("roles dealt to %d players", len(s.Players)), nil)
	s.Phase = PhaseNight
	s.Night = 1
	e.applyWinCheck(s)
	return nil
}
