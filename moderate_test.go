package main

import (
	"net/http"
	"testing"

	"godsbooklet/engine"
)

func seatPtr(n int) *int { return &n }

// setupNightRoom creates a 9-player room with roles dealt, returning the
// room ID and the seat of each special role.
func setupNightRoom(t *testing.T, tc *TestContext) (string, map[string]int) {
	t.Helper()
	room := tc.createRoom(createRoomRequest{
		Name:           "table",
		MaxSeats:       9,
		PresetKey:      "9p-classic",
		InitialPlayers: 9,
	})

	var view roomView
	resp := tc.doJSON("POST", "/rooms/"+room.ID+"/assign", assignRequest{}, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assign: status %d", resp.StatusCode)
	}
	if view.Session.Phase != engine.PhaseNight || view.Session.Night != 1 {
		t.Fatalf("after assign phase = %s night = %d", view.Session.Phase, view.Session.Night)
	}

	seats := map[string]int{}
	for _, p := range view.Session.Players {
		if _, ok := seats[p.Role]; !ok {
			seats[p.Role] = p.Seat
		}
	}
	return room.ID, seats
}

func TestAssignEndpoint(t *testing.T) {
	tc := newTestContext(t)
	tc.signup("god")
	roomID, seats := setupNightRoom(t, tc)

	for _, role := range []string{engine.RoleWerewolf, engine.RoleSeer, engine.RoleWitch, engine.RoleGuard, engine.RoleVillager} {
		if _, ok := seats[role]; !ok {
			t.Errorf("no seat holds role %s after the deal", role)
		}
	}

	// A second assign is refused: the room left init.
	resp := tc.doJSON("POST", "/rooms/"+roomID+"/assign", assignRequest{}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("re-assign: status %d, want 409", resp.StatusCode)
	}
}

func TestNightBatchEndpoint(t *testing.T) {
	tc := newTestContext(t)
	tc.signup("god")
	roomID, seats := setupNightRoom(t, tc)

	victim := seats[engine.RoleVillager]
	var out nightResponse
	resp := tc.doJSON("POST", "/rooms/"+roomID+"/night", engine.NightActions{
		GuardTarget:  seatPtr(seats[engine.RoleSeer]),
		WolvesTarget: seatPtr(victim),
		SeerTarget:   seatPtr(seats[engine.RoleWerewolf]),
	}, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("night: status %d", resp.StatusCode)
	}
	if len(out.Summary.Killed) != 1 || out.Summary.Killed[0] != victim {
		t.Fatalf("killed = %v, want [%d]", out.Summary.Killed, victim)
	}
	if out.Summary.Seer == nil || !out.Summary.Seer.IsWerewolf {
		t.Errorf("seer = %+v, want a confirmed werewolf", out.Summary.Seer)
	}

	// The death and events persisted.
	var view roomView
	tc.doJSON("GET", "/rooms/"+roomID, nil, &view)
	if view.Session.Player(victim).Alive {
		t.Error("victim still alive after reload")
	}
	if len(view.Session.Log) == 0 {
		t.Fatal("event log empty after reload")
	}
	last := view.Session.Log[len(view.Session.Log)-1]
	if last.Action != engine.ActionNightSummary {
		t.Errorf("last event = %s, want nightSummary", last.Action)
	}

	// A second batch in the same phase is still night, so the guard
	// consecutive rule fires through the API as a 409.
	resp = tc.doJSON("POST", "/rooms/"+roomID+"/night", engine.NightActions{
		GuardTarget: seatPtr(seats[engine.RoleSeer]),
	}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("repeat guard: status %d, want 409", resp.StatusCode)
	}
}

func TestActAndUndoEndpoints(t *testing.T) {
	tc := newTestContext(t)
	tc.signup("god")
	roomID, seats := setupNightRoom(t, tc)

	victim := seats[engine.RoleVillager]
	var view roomView
	resp := tc.doJSON("POST", "/rooms/"+roomID+"/act", actRequest{
		ActorSeat:  seats[engine.RoleWerewolf],
		Action:     engine.ActionKill,
		TargetSeat: seatPtr(victim),
	}, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("act: status %d", resp.StatusCode)
	}
	if view.Session.Player(victim).Alive {
		t.Error("victim should be dead after the kill")
	}

	// Undo the kill by its event ID.
	eventID := view.Session.Log[len(view.Session.Log)-1].ID
	resp = tc.doJSON("POST", "/rooms/"+roomID+"/undo", undoRequest{EventID: eventID}, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("undo: status %d", resp.StatusCode)
	}
	if !view.Session.Player(victim).Alive {
		t.Error("victim should be revived after undo")
	}

	// Undoing it again fails: the log no longer holds that event.
	resp = tc.doJSON("POST", "/rooms/"+roomID+"/undo", undoRequest{EventID: eventID}, nil)
	if resp.StatusCode != http.StatusConflict && resp.StatusCode != http.StatusNotFound {
		t.Errorf("double undo: status %d, want 409 or 404", resp.StatusCode)
	}
}

func TestActValidationStatuses(t *testing.T) {
	tc := newTestContext(t)
	tc.signup("god")
	roomID, seats := setupNightRoom(t, tc)

	tests := []struct {
		name string
		req  actRequest
		want int
	}{
		{"villager cannot kill", actRequest{ActorSeat: seats[engine.RoleVillager], Action: engine.ActionKill, TargetSeat: seatPtr(1)}, http.StatusBadRequest},
		{"missing target", actRequest{ActorSeat: seats[engine.RoleWerewolf], Action: engine.ActionKill}, http.StatusBadRequest},
		{"unknown actor seat", actRequest{ActorSeat: 42, Action: engine.ActionKill, TargetSeat: seatPtr(1)}, http.StatusNotFound},
		{"witch self heal night one", actRequest{ActorSeat: seats[engine.RoleWitch], Action: engine.ActionHeal, TargetSeat: seatPtr(seats[engine.RoleWitch])}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := tc.doJSON("POST", "/rooms/"+roomID+"/act", tt.req, nil)
			if resp.StatusCode != tt.want {
				t.Errorf("status %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestAdvanceAndWinnerEndpoints(t *testing.T) {
	tc := newTestContext(t)
	tc.signup("god")
	roomID, _ := setupNightRoom(t, tc)

	// Winner check on a fresh deal: game still running.
	var verdict engine.Verdict
	resp := tc.doJSON("GET", "/rooms/"+roomID+"/winner", nil, &verdict)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("winner: status %d", resp.StatusCode)
	}
	if verdict.Over {
		t.Fatalf("verdict = %+v, want ongoing", verdict)
	}

	// night -> day -> vote -> night.
	wantPhases := []engine.Phase{engine.PhaseDay, engine.PhaseVote, engine.PhaseNight}
	var view roomView
	for _, want := range wantPhases {
		resp := tc.doJSON("POST", "/rooms/"+roomID+"/advance", nil, &view)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("advance: status %d", resp.StatusCode)
		}
		if view.Session.Phase != want {
			t.Fatalf("phase = %s, want %s", view.Session.Phase, want)
		}
	}
	if view.Session.Night != 2 {
		t.Errorf("night = %d, want 2", view.Session.Night)
	}
}

func TestWerewolfParityEndsGameOverAPI(t *testing.T) {
	tc := newTestContext(t)
	tc.signup("god")

	room := tc.createRoom(createRoomRequest{
		Name:           "small",
		MaxSeats:       4,
		Roles:          engine.RoleCounts{engine.RoleWerewolf: 1, engine.RoleVillager: 3},
		InitialPlayers: 4,
	})
	var view roomView
	resp := tc.doJSON("POST", "/rooms/"+room.ID+"/assign", assignRequest{}, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assign: status %d", resp.StatusCode)
	}

	var villagers []int
	for _, p := range view.Session.Players {
		if p.Role == engine.RoleVillager {
			villagers = append(villagers, p.Seat)
		}
	}

	// Two kills across two nights bring the wolf to parity.
	var out nightResponse
	tc.doJSON("POST", "/rooms/"+room.ID+"/night", engine.NightActions{WolvesTarget: seatPtr(villagers[0])}, &out)
	for i := 0; i < 3; i++ {
		tc.doJSON("POST", "/rooms/"+room.ID+"/advance", nil, &view)
	}
	resp = tc.doJSON("POST", "/rooms/"+room.ID+"/night", engine.NightActions{WolvesTarget: seatPtr(villagers[1])}, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("night 2: status %d", resp.StatusCode)
	}
	if out.Room.Session.Phase != engine.PhaseEnd {
		t.Fatalf("phase = %s, want end at parity", out.Room.Session.Phase)
	}

	var verdict engine.Verdict
	tc.doJSON("GET", "/rooms/"+room.ID+"/winner", nil, &verdict)
	if !verdict.Over || verdict.Winner != engine.TeamWerewolf {
		t.Errorf("verdict = %+v, want werewolf win", verdict)
	}

	// Further mutations are refused.
	resp = tc.doJSON("POST", "/rooms/"+room.ID+"/advance", nil, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("advance after end: status %d, want 409", resp.StatusCode)
	}
}
