package main

import (
	"encoding/json"
	"net/http"

	"godsbooklet/engine"
)

// apiError is the JSON error body: {"error": {"code": ..., "message": ...}}.
type apiError struct {
	Error apiErrorBody `json:"error"`
}

type apiErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: apiErrorBody{Code: code, Message: message}})
}

// engineStatus maps an engine error kind to its HTTP status.
func engineStatus(kind engine.Kind) int {
	switch kind {
	case engine.KindNotFound:
		return http.StatusNotFound
	case engine.KindConflict, engine.KindWrongPhase, engine.KindRuleViolation, engine.KindGameOver:
		return http.StatusConflict
	case engine.KindInvalidAction, engine.KindInvalidInput, engine.KindUnknownRole:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeEngineError converts an engine error into the JSON error body. Any
// non-engine error becomes a logged 500.
func writeEngineError(w http.ResponseWriter, context string, err error) {
	kind := engine.KindOf(err)
	if kind == engine.KindNone {
		logError(context, err)
		writeError(w, http.StatusInternalServerError, "internal", "Something went wrong")
		return
	}
	writeError(w, engineStatus(kind), kind.String(), err.Error())
}
