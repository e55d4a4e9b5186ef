package main

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"godsbooklet/engine"
)

// Room is the persisted metadata of one game room. The engine session
// itself is materialized from this row plus room_player and room_event.
type Room struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Phase       string    `db:"phase"`
	MaxSeats    int       `db:"max_seats"`
	Night       int       `db:"night"`
	NextEventID int64     `db:"next_event_id"`
	LobbyLocked bool      `db:"lobby_locked"`
	Rules       string    `db:"rules"`       // JSON engine.Rules
	RoleConfig  string    `db:"role_config"` // JSON engine.RoleCounts
	CreatedAt   time.Time `db:"created_at"`
}

type roomPlayerRow struct {
	RoomID   string `db:"room_id"`
	Seat     int    `db:"seat"`
	Nickname string `db:"nickname"`
	Role     string `db:"role"`
	Alive    bool   `db:"alive"`
	Guarded  bool   `db:"guarded"`
}

type roomEventRow struct {
	RoomID     string    `db:"room_id"`
	EventID    int64     `db:"event_id"`
	At         time.Time `db:"at"`
	Phase      string    `db:"phase"`
	Actor      string    `db:"actor"`
	TargetSeat *int      `db:"target_seat"`
	Action     string    `db:"action"`
	Payload    []byte    `db:"payload"`
	Note       string    `db:"note"`
	UndoOf     int64     `db:"undo_of"`
}

// Moderator is an authenticated god account.
type Moderator struct {
	ID         int64  `db:"id"`
	Name       string `db:"name"`
	SecretCode string `db:"secret_code"`
}

// RoomDoc is a fully loaded room: persisted metadata plus the live
// engine session rebuilt from its rows.
type RoomDoc struct {
	ID          string
	Name        string
	LobbyLocked bool
	CreatedAt   time.Time
	Session     *engine.Session
}

func loadRoom(roomID string) (*RoomDoc, error) {
	var room Room
	err := db.Get(&room, `SELECT id, name, phase, max_seats, night, next_event_id,
			lobby_locked, rules, role_config, created_at
		FROM room WHERE id = ?`, roomID)
	if err != nil {
		return nil, err
	}

	s := &engine.Session{
		Phase:       engine.Phase(room.Phase),
		MaxSeats:    room.MaxSeats,
		Night:       room.Night,
		NextEventID: room.NextEventID,
	}
	if err := json.Unmarshal([]byte(room.Rules), &s.Rules); err != nil {
		return nil, fmt.Errorf("room %s: bad rules JSON: %w", roomID, err)
	}
	if room.RoleConfig != "" {
		if err := json.Unmarshal([]byte(room.RoleConfig), &s.RoleConfig); err != nil {
			return nil, fmt.Errorf("room %s: bad role config JSON: %w", roomID, err)
		}
	}

	var playerRows []roomPlayerRow
	err = db.Select(&playerRows, `SELECT room_id, seat, nickname, role, alive, guarded
		FROM room_player WHERE room_id = ? ORDER BY seat`, roomID)
	if err != nil {
		return nil, err
	}
	for _, row := range playerRows {
		s.Players = append(s.Players, engine.Player{
			Seat:     row.Seat,
			Nickname: row.Nickname,
			Role:     row.Role,
			Alive:    row.Alive,
			Guarded:  row.Guarded,
		})
	}

	var eventRows []roomEventRow
	err = db.Select(&eventRows, `SELECT room_id, event_id, at, phase, actor, target_seat,
			action, payload, note, undo_of
		FROM room_event WHERE room_id = ? ORDER BY event_id`, roomID)
	if err != nil {
		return nil, err
	}
	for _, row := range eventRows {
		ev := engine.Event{
			ID:     row.EventID,
			At:     row.At,
			Phase:  engine.Phase(row.Phase),
			Actor:  row.Actor,
			Target: row.TargetSeat,
			Action: row.Action,
			Note:   row.Note,
			UndoOf: row.UndoOf,
		}
		if len(row.Payload) > 0 {
			if err := json.Unmarshal(row.Payload, &ev.Payload); err != nil {
				return nil, fmt.Errorf("room %s event %d: bad payload JSON: %w", roomID, row.EventID, err)
			}
		}
		s.Log = append(s.Log, ev)
	}

	return &RoomDoc{
		ID:          room.ID,
		Name:        room.Name,
		LobbyLocked: room.LobbyLocked,
		CreatedAt:   room.CreatedAt,
		Session:     s,
	}, nil
}

// saveRoom rewrites the whole room document in one transaction. Player
// and event rows are replaced wholesale; the engine log is small enough
// that a rewrite beats tracking row-level diffs.
func saveRoom(doc *RoomDoc) error {
	s := doc.Session
	rulesJSON, err := json.Marshal(s.Rules)
	if err != nil {
		return err
	}
	roleConfigJSON, err := json.Marshal(s.RoleConfig)
	if err != nil {
		return err
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`UPDATE room SET name = ?, phase = ?, max_seats = ?, night = ?,
			next_event_id = ?, lobby_locked = ?, rules = ?, role_config = ?
		WHERE id = ?`,
		doc.Name, string(s.Phase), s.MaxSeats, s.Night,
		s.NextEventID, doc.LobbyLocked, string(rulesJSON), string(roleConfigJSON), doc.ID)
	if err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM room_player WHERE room_id = ?", doc.ID); err != nil {
		return err
	}
	for _, p := range s.Players {
		_, err := tx.Exec(`INSERT INTO room_player (room_id, seat, nickname, role, alive, guarded)
			VALUES (?, ?, ?, ?, ?, ?)`,
			doc.ID, p.Seat, p.Nickname, p.Role, p.Alive, p.Guarded)
		if err != nil {
			return err
		}
	}

	if _, err := tx.Exec("DELETE FROM room_event WHERE room_id = ?", doc.ID); err != nil {
		return err
	}
	for _, ev := range s.Log {
		var payload []byte
		if ev.Payload != nil {
			payload, err = json.Marshal(ev.Payload)
			if err != nil {
				return err
			}
		}
		_, err := tx.Exec(`INSERT INTO room_event (room_id, event_id, at, phase, actor,
				target_seat, action, payload, note, undo_of)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			doc.ID, ev.ID, ev.At, string(ev.Phase), ev.Actor,
			ev.Target, ev.Action, payload, ev.Note, ev.UndoOf)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertRoom(doc *RoomDoc) error {
	s := doc.Session
	rulesJSON, err := json.Marshal(s.Rules)
	if err != nil {
		return err
	}
	roleConfigJSON, err := json.Marshal(s.RoleConfig)
	if err != nil {
		return err
	}
	_, err = db.Exec(`INSERT INTO room (id, name, phase, max_seats, night, next_event_id,
			lobby_locked, rules, role_config, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Name, string(s.Phase), s.MaxSeats, s.Night, s.NextEventID,
		doc.LobbyLocked, string(rulesJSON), string(roleConfigJSON), doc.CreatedAt)
	if err != nil {
		return err
	}
	if len(s.Players) > 0 {
		return saveRoom(doc)
	}
	return nil
}

func getModeratorByName(name string) (Moderator, error) {
	var mod Moderator
	err := db.Get(&mod, "SELECT rowid as id, name, secret_code FROM moderator WHERE name = ?", name)
	return mod, err
}

func initDB() error {
	schema := `
	PRAGMA journal_mode=WAL;

	CREATE TABLE IF NOT EXISTS room (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phase TEXT NOT NULL DEFAULT 'init',
		max_seats INTEGER NOT NULL,
		night INTEGER NOT NULL DEFAULT 0,
		next_event_id INTEGER NOT NULL DEFAULT 0,
		lobby_locked INTEGER NOT NULL DEFAULT 0,
		rules TEXT NOT NULL DEFAULT '{}',
		role_config TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL
	);
	CREATE TABLE IF NOT EXISTS room_player (
		room_id TEXT NOT NULL,
		seat INTEGER NOT NULL,
		nickname TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT '',
		alive INTEGER NOT NULL DEFAULT 1,
		guarded INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (room_id) REFERENCES room(id),
		UNIQUE(room_id, seat)
	);
	CREATE TABLE IF NOT EXISTS room_event (
		room_id TEXT NOT NULL,
		event_id INTEGER NOT NULL,
		at TIMESTAMP NOT NULL,
		phase TEXT NOT NULL,
		actor TEXT NOT NULL,
		target_seat INTEGER,
		action TEXT NOT NULL,
		payload BLOB,
		note TEXT NOT NULL DEFAULT '',
		undo_of INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (room_id) REFERENCES room(id),
		UNIQUE(room_id, event_id)
	);
	CREATE INDEX IF NOT EXISTS idx_room_event_lookup ON room_event(room_id, event_id);

	CREATE TABLE IF NOT EXISTS moderator (
		name TEXT UNIQUE NOT NULL,
		secret_code TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS session (
		token INTEGER PRIMARY KEY,
		moderator_id INTEGER NOT NULL,
		FOREIGN KEY (moderator_id) REFERENCES moderator(rowid)
	);
	`
	_, err := db.Exec(schema)
	if err != nil {
		log.Printf("initDB error: %v", err)
		return err
	}
	log.Printf("Database initialized successfully")
	return nil
}
