package engine

import "testing"

// TestNineSeatGame plays a full 9p-classic game from the lobby to a
// werewolf win, crossing every engine operation on the way.
func TestNineSeatGame(t *testing.T) {
	e := newTestEngine()
	s := lobbySession(9)

	if err := e.AssignRoles(s, Presets["9p-classic"], seededRand(11)); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if s.Phase != PhaseNight || s.Night != 1 {
		t.Fatalf("after deal phase = %s night = %d", s.Phase, s.Night)
	}

	wolfSeat, _ := s.RoleSeat(RoleWerewolf)
	guardSeat, _ := s.RoleSeat(RoleGuard)
	var villagers []int
	for _, p := range s.Players {
		if p.Role == RoleVillager {
			villagers = append(villagers, p.Seat)
		}
	}
	if len(villagers) != 3 {
		t.Fatalf("villagers = %v, want 3 seats", villagers)
	}

	// Night 1: the guard protects himself, the wolves take a villager,
	// the seer confirms a wolf.
	sum, err := e.ResolveNight(s, NightActions{
		GuardTarget:  seat(guardSeat),
		WolvesTarget: seat(villagers[0]),
		SeerTarget:   seat(wolfSeat),
	})
	if err != nil {
		t.Fatalf("night 1: %v", err)
	}
	if len(sum.Killed) != 1 || sum.Killed[0] != villagers[0] {
		t.Fatalf("night 1 killed = %v, want [%d]", sum.Killed, villagers[0])
	}
	if sum.Seer == nil || !sum.Seer.IsWerewolf {
		t.Fatalf("seer result = %+v, want confirmed werewolf", sum.Seer)
	}

	// Day and vote pass without eliminations; the table is back at night.
	for _, want := range []Phase{PhaseDay, PhaseVote, PhaseNight} {
		got, err := e.AdvancePhase(s)
		if err != nil {
			t.Fatalf("advance: %v", err)
		}
		if got != want {
			t.Fatalf("advanced to %s, want %s", got, want)
		}
	}
	if s.Night != 2 {
		t.Fatalf("night counter = %d, want 2", s.Night)
	}

	// Night 2: the moderator mis-enters the wolf target and takes it back.
	if err := e.PerformAction(s, wolfSeat, ActionKill, seat(guardSeat), nil); err != nil {
		t.Fatalf("mis-entered kill: %v", err)
	}
	if err := e.UndoLastEvent(s, lastEventID(s)); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !s.Player(guardSeat).Alive {
		t.Fatal("guard should be alive again after the undo")
	}

	// The real night 2: second villager to the wolves, third to poison.
	// Three wolves against three remaining good players is parity.
	sum, err = e.ResolveNight(s, NightActions{
		WolvesTarget: seat(villagers[1]),
		WitchPoison:  seat(villagers[2]),
	})
	if err != nil {
		t.Fatalf("night 2: %v", err)
	}
	if len(sum.Killed) != 2 {
		t.Fatalf("night 2 killed = %v, want two seats", sum.Killed)
	}
	if s.Phase != PhaseEnd {
		t.Fatalf("phase = %s, want end at wolf parity", s.Phase)
	}
	if v := EvaluateWinner(s.Players); !v.Over || v.Winner != TeamWerewolf {
		t.Fatalf("verdict = %+v, want werewolf win", v)
	}

	// The log replays the whole game: deal, night 1 actions and summary,
	// three phase advances, night 2 actions and summary, terminal event.
	last := s.Log[len(s.Log)-1]
	if last.Action != ActionGameOver {
		t.Fatalf("final event = %s, want gameOver", last.Action)
	}
	for i := 1; i < len(s.Log); i++ {
		if s.Log[i].ID <= s.Log[i-1].ID {
			t.Fatalf("event IDs not monotonic at index %d", i)
		}
	}
}
