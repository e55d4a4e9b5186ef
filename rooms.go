package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"godsbooklet/engine"
)

// roomLocks serializes mutations per room: one engine operation in
// flight per session document.
var roomLocks sync.Map

func lockRoom(roomID string) *sync.Mutex {
	mu, _ := roomLocks.LoadOrStore(roomID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// withRoom runs fn against a freshly loaded room document under the
// room's mutex, then persists and broadcasts if fn reports a mutation.
func withRoom(w http.ResponseWriter, r *http.Request, fn func(doc *RoomDoc) (mutated bool, err error)) {
	roomID := r.PathValue("id")
	mu := lockRoom(roomID)
	mu.Lock()
	defer mu.Unlock()

	doc, err := loadRoom(roomID)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "not_found", "room not found")
		return
	}
	if err != nil {
		logError("withRoom: loadRoom", err)
		writeError(w, http.StatusInternalServerError, "internal", "Something went wrong")
		return
	}

	mutated, err := fn(doc)
	if err != nil {
		writeEngineError(w, "withRoom: "+r.URL.Path, err)
		return
	}
	if !mutated {
		return
	}

	if err := saveRoom(doc); err != nil {
		logError("withRoom: saveRoom", err)
		writeError(w, http.StatusInternalServerError, "internal", "Something went wrong")
		return
	}
	LogDBState("after mutation: " + r.URL.Path)
	hub.notifyRoom(WSNotice{Type: "room_updated", RoomID: doc.ID})
}

type lobbyStatus struct {
	ExpectedPlayers int      `json:"expectedPlayers"`
	PlayerCount     int      `json:"playerCount"`
	Ready           bool     `json:"ready"`
	Issues          []string `json:"issues"`
}

type roomView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	LobbyLocked bool            `json:"lobbyLocked"`
	CreatedAt   time.Time       `json:"createdAt"`
	Session     *engine.Session `json:"session"`
	Lobby       lobbyStatus     `json:"lobby"`
}

func buildRoomView(doc *RoomDoc) roomView {
	s := doc.Session
	status := lobbyStatus{
		ExpectedPlayers: s.RoleConfig.Total(),
		PlayerCount:     len(s.Players),
		Issues:          []string{},
	}
	if s.Phase == engine.PhaseInit {
		if len(s.Players) == 0 {
			status.Issues = append(status.Issues, "no players seated")
		}
		if s.RoleConfig.Total() == 0 {
			status.Issues = append(status.Issues, "no roles configured")
		} else if s.RoleConfig.Total() > len(s.Players) {
			status.Issues = append(status.Issues,
				fmt.Sprintf("role counts (%d) exceed player count (%d)", s.RoleConfig.Total(), len(s.Players)))
		}
		status.Ready = len(status.Issues) == 0
	} else {
		status.Ready = true
	}
	return roomView{
		ID:          doc.ID,
		Name:        doc.Name,
		LobbyLocked: doc.LobbyLocked,
		CreatedAt:   doc.CreatedAt,
		Session:     s,
		Lobby:       status,
	}
}

type createRoomRequest struct {
	Name           string            `json:"name"`
	MaxSeats       int               `json:"maxSeats"`
	Rules          engine.Rules      `json:"rules"`
	PresetKey      string            `json:"presetKey,omitempty"`
	Roles          engine.RoleCounts `json:"roles,omitempty"`
	InitialPlayers int               `json:"initialPlayers,omitempty"`
}

func handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireModerator(w, r); !ok {
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "room name is required")
		return
	}
	if req.MaxSeats < 4 {
		writeError(w, http.StatusBadRequest, "invalid_input", "maxSeats must be at least 4")
		return
	}

	counts := req.Roles
	if req.PresetKey != "" {
		preset, ok := engine.Presets[req.PresetKey]
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_input", "unknown preset: "+req.PresetKey)
			return
		}
		counts = preset
	}
	for roleID := range counts {
		if _, err := gameEngine.Catalog().Lookup(roleID); err != nil {
			writeEngineError(w, "handleCreateRoom: role lookup", err)
			return
		}
	}
	if req.InitialPlayers < 0 || req.InitialPlayers > req.MaxSeats {
		writeError(w, http.StatusBadRequest, "invalid_input", "initialPlayers must fit within maxSeats")
		return
	}

	s := engine.NewSession(req.MaxSeats, req.Rules, counts)
	for i := 1; i <= req.InitialPlayers; i++ {
		s.Players = append(s.Players, engine.Player{
			Seat:     i,
			Nickname: fmt.Sprintf("Player %d", i),
			Alive:    true,
		})
	}

	doc := &RoomDoc{
		ID:        uuid.NewString(),
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
		Session:   s,
	}
	if err := insertRoom(doc); err != nil {
		logError("handleCreateRoom: insertRoom", err)
		writeError(w, http.StatusInternalServerError, "internal", "Something went wrong")
		return
	}

	log.Printf("Room created: id=%s name='%s' maxSeats=%d", doc.ID, doc.Name, req.MaxSeats)
	DebugLog("handleCreateRoom", "Room %s ('%s') created with %d initial players", doc.ID, doc.Name, req.InitialPlayers)
	LogDBState("after room created: " + doc.Name)

	writeJSON(w, http.StatusCreated, buildRoomView(doc))
}

func handleGetRoom(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireModerator(w, r); !ok {
		return
	}

	doc, err := loadRoom(r.PathValue("id"))
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "not_found", "room not found")
		return
	}
	if err != nil {
		logError("handleGetRoom: loadRoom", err)
		writeError(w, http.StatusInternalServerError, "internal", "Something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, buildRoomView(doc))
}

type addPlayersRequest struct {
	Count     int      `json:"count,omitempty"`
	Nicknames []string `json:"nicknames,omitempty"`
}

// handleAddPlayers seats new players at the lowest free seats. Only
// valid while the room is in init and the lobby is unlocked.
func handleAddPlayers(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireModerator(w, r); !ok {
		return
	}

	var req addPlayersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid JSON body")
		return
	}
	nicknames := req.Nicknames
	for i := len(nicknames); i < req.Count; i++ {
		nicknames = append(nicknames, "")
	}
	if len(nicknames) == 0 {
		writeError(w, http.StatusBadRequest, "invalid_input", "count or nicknames required")
		return
	}

	withRoom(w, r, func(doc *RoomDoc) (bool, error) {
		s := doc.Session
		if s.Phase != engine.PhaseInit {
			return false, &engine.Error{Kind: engine.KindConflict, Message: "players can only be added while the room is in init"}
		}
		if doc.LobbyLocked {
			return false, &engine.Error{Kind: engine.KindConflict, Message: "the lobby is locked"}
		}
		if len(s.Players)+len(nicknames) > s.MaxSeats {
			return false, &engine.Error{Kind: engine.KindRuleViolation,
				Message: fmt.Sprintf("room holds %d seats, %d requested", s.MaxSeats, len(s.Players)+len(nicknames))}
		}

		taken := make(map[int]bool, len(s.Players))
		for _, p := range s.Players {
			taken[p.Seat] = true
		}
		seat := 1
		for _, nick := range nicknames {
			for taken[seat] {
				seat++
			}
			if nick == "" {
				nick = fmt.Sprintf("Player %d", seat)
			}
			s.Players = append(s.Players, engine.Player{Seat: seat, Nickname: nick, Alive: true})
			taken[seat] = true
		}

		log.Printf("Room %s: %d players added (now %d)", doc.ID, len(nicknames), len(s.Players))
		writeJSON(w, http.StatusOK, buildRoomView(doc))
		return true, nil
	})
}

type patchPlayerRequest struct {
	Nickname *string `json:"nickname,omitempty"`
	Seat     *int    `json:"seat,omitempty"`
}

func handlePatchPlayer(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireModerator(w, r); !ok {
		return
	}

	seat, err := pathSeat(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid seat number")
		return
	}
	var req patchPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid JSON body")
		return
	}

	withRoom(w, r, func(doc *RoomDoc) (bool, error) {
		if doc.LobbyLocked {
			return false, &engine.Error{Kind: engine.KindConflict, Message: "the lobby is locked"}
		}
		s := doc.Session
		p := s.Player(seat)
		if p == nil {
			return false, &engine.Error{Kind: engine.KindNotFound, Message: fmt.Sprintf("seat %d not found", seat)}
		}
		if req.Nickname != nil {
			if *req.Nickname == "" {
				return false, &engine.Error{Kind: engine.KindInvalidInput, Message: "nickname cannot be empty"}
			}
			p.Nickname = *req.Nickname
		}
		if req.Seat != nil && *req.Seat != seat {
			if *req.Seat < 1 || *req.Seat > s.MaxSeats {
				return false, &engine.Error{Kind: engine.KindInvalidInput,
					Message: fmt.Sprintf("seat must be between 1 and %d", s.MaxSeats)}
			}
			if s.Player(*req.Seat) != nil {
				return false, &engine.Error{Kind: engine.KindConflict,
					Message: fmt.Sprintf("seat %d is already taken", *req.Seat)}
			}
			p.Seat = *req.Seat
		}

		DebugLog("handlePatchPlayer", "Room %s seat %d updated", doc.ID, seat)
		writeJSON(w, http.StatusOK, buildRoomView(doc))
		return true, nil
	})
}

func handleDeletePlayer(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireModerator(w, r); !ok {
		return
	}

	seat, err := pathSeat(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid seat number")
		return
	}

	withRoom(w, r, func(doc *RoomDoc) (bool, error) {
		if doc.LobbyLocked {
			return false, &engine.Error{Kind: engine.KindConflict, Message: "the lobby is locked"}
		}
		s := doc.Session
		if s.Phase != engine.PhaseInit {
			return false, &engine.Error{Kind: engine.KindConflict, Message: "players can only be removed while the room is in init"}
		}
		for i := range s.Players {
			if s.Players[i].Seat == seat {
				s.Players = append(s.Players[:i], s.Players[i+1:]...)
				DebugLog("handleDeletePlayer", "Room %s seat %d removed", doc.ID, seat)
				writeJSON(w, http.StatusOK, buildRoomView(doc))
				return true, nil
			}
		}
		return false, &engine.Error{Kind: engine.KindNotFound, Message: fmt.Sprintf("seat %d not found", seat)}
	})
}

// handleLockRoom toggles the lobby lock, freezing the roster.
func handleLockRoom(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireModerator(w, r); !ok {
		return
	}

	withRoom(w, r, func(doc *RoomDoc) (bool, error) {
		doc.LobbyLocked = !doc.LobbyLocked
		log.Printf("Room %s lobby lock toggled to %v", doc.ID, doc.LobbyLocked)
		writeJSON(w, http.StatusOK, buildRoomView(doc))
		return true, nil
	})
}

func handleListRoles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"roles":   gameEngine.ListRoles(),
		"presets": engine.Presets,
	})
}
