package main

import (
	cryptorand "crypto/rand"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"log"
	"math/rand/v2"
	"net/http"
	"strconv"

	"godsbooklet/engine"
)

// gameEngine is the shared rules engine. It is stateless; every request
// loads its room document and passes it in.
var gameEngine = engine.New(engine.NewCatalog())

func pathSeat(r *http.Request) (int, error) {
	return strconv.Atoi(r.PathValue("seat"))
}

// newDealRand returns a PCG source seeded from crypto/rand for role
// shuffles.
func newDealRand() *rand.Rand {
	var seed [16]byte
	cryptorand.Read(seed[:])
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
}

type assignRequest struct {
	PresetKey string            `json:"presetKey,omitempty"`
	Roles     engine.RoleCounts `json:"roles,omitempty"`
}

// handleAssign deals roles and moves the room into night 1. The role
// counts come from the request, falling back to the room's stored
// configuration.
func handleAssign(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireModerator(w, r); !ok {
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid JSON body")
		return
	}

	withRoom(w, r, func(doc *RoomDoc) (bool, error) {
		counts := req.Roles
		if req.PresetKey != "" {
			preset, ok := engine.Presets[req.PresetKey]
			if !ok {
				return false, &engine.Error{Kind: engine.KindInvalidInput, Message: "unknown preset: " + req.PresetKey}
			}
			counts = preset
		}
		if counts == nil {
			counts = doc.Session.RoleConfig
		}

		if err := gameEngine.AssignRoles(doc.Session, counts, newDealRand()); err != nil {
			return false, err
		}

		log.Printf("Room %s: roles dealt to %d players, night 1 begins", doc.ID, len(doc.Session.Players))
		DebugLog("handleAssign", "Room %s roles assigned", doc.ID)
		writeJSON(w, http.StatusOK, buildRoomView(doc))
		return true, nil
	})
}

type actRequest struct {
	ActorSeat  int            `json:"actorSeat"`
	Action     string         `json:"action"`
	TargetSeat *int           `json:"targetSeat,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// handleAct records one role action in single-action mode.
func handleAct(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireModerator(w, r); !ok {
		return
	}

	var req actRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Action == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "actorSeat and action are required")
		return
	}

	withRoom(w, r, func(doc *RoomDoc) (bool, error) {
		if err := gameEngine.PerformAction(doc.Session, req.ActorSeat, req.Action, req.TargetSeat, req.Payload); err != nil {
			return false, err
		}
		DebugLog("handleAct", "Room %s: seat %d performed %s", doc.ID, req.ActorSeat, req.Action)
		writeJSON(w, http.StatusOK, buildRoomView(doc))
		return true, nil
	})
}

type nightResponse struct {
	Summary *engine.NightSummary `json:"summary"`
	Room    roomView             `json:"room"`
}

// handleNight resolves a whole night batch and returns the summary the
// moderator reads out to the table.
func handleNight(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireModerator(w, r); !ok {
		return
	}

	var acts engine.NightActions
	if err := json.NewDecoder(r.Body).Decode(&acts); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid JSON body")
		return
	}

	withRoom(w, r, func(doc *RoomDoc) (bool, error) {
		night := doc.Session.Night
		summary, err := gameEngine.ResolveNight(doc.Session, acts)
		if err != nil {
			return false, err
		}

		log.Printf("Room %s: night %d resolved, %d dead", doc.ID, night, len(summary.Killed))
		DebugLog("handleNight", "Room %s night %d: killed=%v", doc.ID, night, summary.Killed)

		if len(summary.Killed) > 0 {
			maybeNarrateNight(doc)
		}
		writeJSON(w, http.StatusOK, nightResponse{Summary: summary, Room: buildRoomView(doc)})
		return true, nil
	})
}

func handleAdvance(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireModerator(w, r); !ok {
		return
	}

	withRoom(w, r, func(doc *RoomDoc) (bool, error) {
		phase, err := gameEngine.AdvancePhase(doc.Session)
		if err != nil {
			return false, err
		}
		DebugLog("handleAdvance", "Room %s advanced to %s", doc.ID, phase)
		writeJSON(w, http.StatusOK, buildRoomView(doc))
		return true, nil
	})
}

type undoRequest struct {
	EventID int64 `json:"eventId"`
}

func handleUndo(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireModerator(w, r); !ok {
		return
	}

	var req undoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid JSON body")
		return
	}

	withRoom(w, r, func(doc *RoomDoc) (bool, error) {
		if err := gameEngine.UndoLastEvent(doc.Session, req.EventID); err != nil {
			return false, err
		}
		log.Printf("Room %s: event %d undone", doc.ID, req.EventID)
		writeJSON(w, http.StatusOK, buildRoomView(doc))
		return true, nil
	})
}

// handleWinner evaluates the win condition without touching the room.
func handleWinner(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireModerator(w, r); !ok {
		return
	}

	doc, err := loadRoom(r.PathValue("id"))
	if err == sql.ErrNoRows {
		writeError(w, http.StatusNotFound, "not_found", "room not found")
		return
	}
	if err != nil {
		logError("handleWinner: loadRoom", err)
		writeError(w, http.StatusInternalServerError, "internal", "Something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, engine.EvaluateWinner(doc.Session.Players))
}
