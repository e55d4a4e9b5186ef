package main

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"log"
	"math/big"
	"net/http"
	"strconv"
)

const sessionCookieName = "godsbooklet_session"

func generateSecretCode() (string, error) {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

func setSessionCookie(w http.ResponseWriter, moderatorID int64) {
	tokenBig, _ := rand.Int(rand.Reader, big.NewInt(1<<62))
	token := tokenBig.Int64()

	db.Exec("INSERT INTO session (token, moderator_id) VALUES (?, ?)", token, moderatorID)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    strconv.FormatInt(token, 10),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func getModeratorIdFromSession(r *http.Request) (int64, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return -1, err
	}

	token, err := strconv.ParseInt(cookie.Value, 10, 64)
	if err != nil {
		return -1, err
	}

	var moderatorID int64
	err = db.Get(&moderatorID, "SELECT moderator_id FROM session WHERE token = ?", token)
	if err != nil {
		return -1, err
	}

	return moderatorID, nil
}

// requireModerator resolves the session cookie or writes a 401.
func requireModerator(w http.ResponseWriter, r *http.Request) (int64, bool) {
	moderatorID, err := getModeratorIdFromSession(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Not logged in")
		return 0, false
	}
	return moderatorID, true
}

type authRequest struct {
	Name       string `json:"name"`
	SecretCode string `json:"secretCode"`
}

type authResponse struct {
	Name       string `json:"name"`
	SecretCode string `json:"secretCode,omitempty"`
}

// handleSignup creates a moderator account and returns the generated
// secret code. The code is the only credential; there are no passwords.
func handleSignup(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "Name is required")
		return
	}

	_, err := getModeratorByName(req.Name)
	if err == nil {
		writeError(w, http.StatusConflict, "conflict", "Name already taken. Log in with your secret code if this is you.")
		return
	}
	if err != sql.ErrNoRows {
		logError("handleSignup: getModeratorByName", err)
		writeError(w, http.StatusInternalServerError, "internal", "Something went wrong")
		return
	}

	secretCode, err := generateSecretCode()
	if err != nil {
		logError("handleSignup: generateSecretCode", err)
		writeError(w, http.StatusInternalServerError, "internal", "Something went wrong")
		return
	}

	result, err := db.Exec("INSERT INTO moderator (name, secret_code) VALUES (?, ?)", req.Name, secretCode)
	if err != nil {
		logError("handleSignup: db.Exec insert moderator", err)
		writeError(w, http.StatusInternalServerError, "internal", "Something went wrong")
		return
	}

	moderatorID, _ := result.LastInsertId()
	log.Printf("New moderator created: name='%s', id=%d", req.Name, moderatorID)
	DebugLog("handleSignup", "Moderator '%s' signed up with ID %d", req.Name, moderatorID)
	LogDBState("after signup: " + req.Name)

	setSessionCookie(w, moderatorID)
	writeJSON(w, http.StatusCreated, authResponse{Name: req.Name, SecretCode: secretCode})
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.SecretCode == "" {
		writeError(w, http.StatusBadRequest, "invalid_input", "Name and secret code are required")
		return
	}

	mod, err := getModeratorByName(req.Name)
	if err == sql.ErrNoRows || (err == nil && mod.SecretCode != req.SecretCode) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid name or secret code")
		return
	}
	if err != nil {
		logError("handleLogin: getModeratorByName", err)
		writeError(w, http.StatusInternalServerError, "internal", "Something went wrong")
		return
	}

	log.Printf("Moderator logged in: name='%s', id=%d", req.Name, mod.ID)
	DebugLog("handleLogin", "Moderator '%s' logged in with ID %d", req.Name, mod.ID)
	setSessionCookie(w, mod.ID)
	writeJSON(w, http.StatusOK, authResponse{Name: mod.Name})
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	moderatorID, _ := getModeratorIdFromSession(r)

	cookie, err := r.Cookie(sessionCookieName)
	if err == nil {
		token, _ := strconv.ParseInt(cookie.Value, 10, 64)
		db.Exec("DELETE FROM session WHERE token = ?", token)
	}

	log.Printf("Moderator logged out: id=%d", moderatorID)
	DebugLog("handleLogout", "Moderator %d logged out", moderatorID)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	w.WriteHeader(http.StatusNoContent)
}
