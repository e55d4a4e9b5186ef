package main

import (
	"fmt"
	"net/http"
	"testing"

	"godsbooklet/engine"
)

func TestCreateRoomWithPreset(t *testing.T) {
	tc := newTestContext(t)
	tc.signup("god")

	room := tc.createRoom(createRoomRequest{
		Name:           "friday game",
		MaxSeats:       9,
		PresetKey:      "9p-classic",
		InitialPlayers: 9,
	})
	if room.ID == "" {
		t.Fatal("room ID missing")
	}
	if room.Session.Phase != engine.PhaseInit {
		t.Errorf("phase = %s, want init", room.Session.Phase)
	}
	if len(room.Session.Players) != 9 {
		t.Fatalf("players = %d, want 9 auto-seated", len(room.Session.Players))
	}
	if room.Session.Players[0].Nickname != "Player 1" {
		t.Errorf("auto nickname = %q, want 'Player 1'", room.Session.Players[0].Nickname)
	}
	if !room.Lobby.Ready {
		t.Errorf("lobby not ready: %v", room.Lobby.Issues)
	}

	// The room round-trips through the database.
	var loaded roomView
	resp := tc.doJSON("GET", "/rooms/"+room.ID, nil, &loaded)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get room: status %d", resp.StatusCode)
	}
	if len(loaded.Session.Players) != 9 || loaded.Name != "friday game" {
		t.Errorf("reloaded room = %+v", loaded)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	tc := newTestContext(t)
	tc.signup("god")

	tests := []struct {
		name string
		req  createRoomRequest
		want int
	}{
		{"missing name", createRoomRequest{MaxSeats: 9}, http.StatusBadRequest},
		{"too few seats", createRoomRequest{Name: "x", MaxSeats: 3}, http.StatusBadRequest},
		{"unknown preset", createRoomRequest{Name: "x", MaxSeats: 9, PresetKey: "nope"}, http.StatusBadRequest},
		{"unknown role", createRoomRequest{Name: "x", MaxSeats: 9, Roles: engine.RoleCounts{"jester": 1}}, http.StatusBadRequest},
		{"players beyond seats", createRoomRequest{Name: "x", MaxSeats: 4, InitialPlayers: 5}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := tc.doJSON("POST", "/rooms", tt.req, nil)
			if resp.StatusCode != tt.want {
				t.Errorf("status %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestLobbyRosterManagement(t *testing.T) {
	tc := newTestContext(t)
	tc.signup("god")
	room := tc.createRoom(createRoomRequest{Name: "lobby", MaxSeats: 6, PresetKey: "9p-classic"})

	// Bulk-add into the lowest free seats.
	var view roomView
	resp := tc.doJSON("POST", "/rooms/"+room.ID+"/players", addPlayersRequest{Nicknames: []string{"anna", "ben"}}, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add players: status %d", resp.StatusCode)
	}
	if len(view.Session.Players) != 2 || view.Session.Players[0].Seat != 1 || view.Session.Players[1].Seat != 2 {
		t.Fatalf("players = %+v, want anna at 1, ben at 2", view.Session.Players)
	}

	// Rename and reseat.
	newSeat := 5
	name := "benjamin"
	resp = tc.doJSON("PATCH", "/rooms/"+room.ID+"/players/2", patchPlayerRequest{Nickname: &name, Seat: &newSeat}, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch player: status %d", resp.StatusCode)
	}
	p := view.Session.Player(5)
	if p == nil || p.Nickname != "benjamin" {
		t.Fatalf("after reseat player(5) = %+v", p)
	}

	// Reseat onto a taken seat is refused.
	taken := 1
	resp = tc.doJSON("PATCH", "/rooms/"+room.ID+"/players/5", patchPlayerRequest{Seat: &taken}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("reseat onto taken seat: status %d, want 409", resp.StatusCode)
	}

	// Filling a freed seat reuses it.
	resp = tc.doJSON("POST", "/rooms/"+room.ID+"/players", addPlayersRequest{Count: 1}, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add one more: status %d", resp.StatusCode)
	}
	if view.Session.Player(2) == nil {
		t.Error("seat 2 should be refilled by the next add")
	}

	// Remove a player.
	resp = tc.doJSON("DELETE", "/rooms/"+room.ID+"/players/5", nil, &view)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete player: status %d", resp.StatusCode)
	}
	if view.Session.Player(5) != nil {
		t.Error("seat 5 should be empty after delete")
	}

	// Beyond maxSeats is refused.
	resp = tc.doJSON("POST", "/rooms/"+room.ID+"/players", addPlayersRequest{Count: 10}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("overfill: status %d, want 409", resp.StatusCode)
	}
}

func TestLobbyLockFreezesRoster(t *testing.T) {
	tc := newTestContext(t)
	tc.signup("god")
	room := tc.createRoom(createRoomRequest{Name: "locked", MaxSeats: 9, InitialPlayers: 4})

	var view roomView
	resp := tc.doJSON("POST", "/rooms/"+room.ID+"/lock", nil, &view)
	if resp.StatusCode != http.StatusOK || !view.LobbyLocked {
		t.Fatalf("lock: status %d locked %v", resp.StatusCode, view.LobbyLocked)
	}

	resp = tc.doJSON("POST", "/rooms/"+room.ID+"/players", addPlayersRequest{Count: 1}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("add while locked: status %d, want 409", resp.StatusCode)
	}
	name := "zoe"
	resp = tc.doJSON("PATCH", "/rooms/"+room.ID+"/players/1", patchPlayerRequest{Nickname: &name}, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("rename while locked: status %d, want 409", resp.StatusCode)
	}
	resp = tc.doJSON("DELETE", "/rooms/"+room.ID+"/players/1", nil, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("delete while locked: status %d, want 409", resp.StatusCode)
	}

	// Unlock reopens the roster.
	resp = tc.doJSON("POST", "/rooms/"+room.ID+"/lock", nil, &view)
	if resp.StatusCode != http.StatusOK || view.LobbyLocked {
		t.Fatalf("unlock: status %d locked %v", resp.StatusCode, view.LobbyLocked)
	}
	resp = tc.doJSON("POST", "/rooms/"+room.ID+"/players", addPlayersRequest{Count: 1}, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("add after unlock: status %d, want 200", resp.StatusCode)
	}
}

func TestGetRoomNotFound(t *testing.T) {
	tc := newTestContext(t)
	tc.signup("god")

	resp := tc.doJSON("GET", "/rooms/no-such-room", nil, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status %d, want 404", resp.StatusCode)
	}
}

func TestListRoles(t *testing.T) {
	tc := newTestContext(t)

	var out struct {
		Roles   []engine.RoleMeta            `json:"roles"`
		Presets map[string]engine.RoleCounts `json:"presets"`
	}
	resp := tc.doJSON("GET", "/roles", nil, &out)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if len(out.Roles) != 5 {
		t.Errorf("roles = %d, want 5", len(out.Roles))
	}
	if out.Roles[0].ID != engine.RoleGuard {
		t.Errorf("first role = %s, want guard (night order)", out.Roles[0].ID)
	}
	if _, ok := out.Presets["12p-classic"]; !ok {
		t.Error("presets missing 12p-classic")
	}
}

func TestLobbyReadinessIssues(t *testing.T) {
	tc := newTestContext(t)
	tc.signup("god")
	room := tc.createRoom(createRoomRequest{Name: "unready", MaxSeats: 9, PresetKey: "9p-classic", InitialPlayers: 4})

	if room.Lobby.Ready {
		t.Fatal("a 4-player room with a 9-card config must not be ready")
	}
	want := fmt.Sprintf("role counts (%d) exceed player count (%d)", 9, 4)
	found := false
	for _, issue := range room.Lobby.Issues {
		if issue == want {
			found = true
		}
	}
	if !found {
		t.Errorf("issues = %v, want %q", room.Lobby.Issues, want)
	}
}
