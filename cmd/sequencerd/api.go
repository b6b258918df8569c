package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/zkceremony/sequencer"
	"github.com/zkceremony/sequencer/ceremony"
	"github.com/zkceremony/sequencer/lobby"
)

// Request headers. The identity header is filled in by the fronting auth
// layer; the session header carries the lobby session id handed out by join.
const (
	headerIdentity = "X-Participant-Id"
	headerSession  = "X-Session-Id"
)

type api struct {
	seq     *sequencer.Sequencer
	maxBody int64
	log     zerolog.Logger
}

func newAPI(seq *sequencer.Sequencer, maxBody int64, log zerolog.Logger) http.Handler {
	a := &api{seq: seq, maxBody: maxBody, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /lobby/join", a.join)
	mux.HandleFunc("POST /lobby/try_contribute", a.tryContribute)
	mux.HandleFunc("POST /contribute", a.contribute)
	mux.HandleFunc("POST /contribute/abort", a.abort)
	mux.HandleFunc("GET /info/status", a.status)
	mux.HandleFunc("GET /info/current_state", a.currentState)
	return mux
}

func (a *api) join(w http.ResponseWriter, r *http.Request) {
	identity := r.Header.Get(headerIdentity)
	if identity == "" {
		writeError(w, http.StatusUnauthorized, "missing identity", nil)
		return
	}
	shard := 0
	if q := r.URL.Query().Get("shard"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid shard", err)
			return
		}
		shard = n
	}
	sess, err := a.seq.Join(identity, shard)
	if err != nil {
		writeError(w, joinStatus(err), "cannot join lobby", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessionId": sess.ID, "shard": sess.Shard})
}

func (a *api) tryContribute(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(headerSession)
	c, position, err := a.seq.TryContribute(sessionID)
	if err != nil {
		writeError(w, sessionStatus(err), "checkin failed", err)
		return
	}
	if c == nil {
		writeJSON(w, http.StatusOK, map[string]any{"inQueue": true, "position": position})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"inQueue": false, "contribution": c})
}

func (a *api) contribute(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(headerSession)
	// Contribution size scales with shard size and is attacker-controlled.
	r.Body = http.MaxBytesReader(w, r.Body, a.maxBody)
	var c ceremony.Contribution
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		writeError(w, http.StatusBadRequest, "invalid contribution payload", err)
		return
	}
	receipt, err := a.seq.Contribute(sessionID, &c)
	if err != nil {
		switch {
		case errors.Is(err, sequencer.ErrPersistFailed):
			writeError(w, http.StatusInternalServerError, "persistence failed", err)
		case errors.Is(err, lobby.ErrUnknownSession), errors.Is(err, lobby.ErrNotActive):
			writeError(w, sessionStatus(err), "no contribution slot", err)
		default:
			writeError(w, http.StatusBadRequest, "contribution rejected", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (a *api) abort(w http.ResponseWriter, r *http.Request) {
	sessionID := r.Header.Get(headerSession)
	if err := a.seq.Abort(sessionID); err != nil {
		writeError(w, sessionStatus(err), "abort failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"aborted": true})
}

func (a *api) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.seq.Status())
}

func (a *api) currentState(w http.ResponseWriter, r *http.Request) {
	data, err := a.seq.TranscriptJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "serialization failed", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func joinStatus(err error) int {
	switch {
	case errors.Is(err, sequencer.ErrAlreadyContributed):
		return http.StatusForbidden
	case errors.Is(err, lobby.ErrLobbyFull):
		return http.StatusServiceUnavailable
	case errors.Is(err, lobby.ErrAlreadyJoined):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func sessionStatus(err error) int {
	switch {
	case errors.Is(err, lobby.ErrUnknownSession):
		return http.StatusUnauthorized
	case errors.Is(err, lobby.ErrNotActive):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := map[string]any{"error": msg}
	if err != nil {
		body["detail"] = err.Error()
	}
	writeJSON(w, status, body)
}
