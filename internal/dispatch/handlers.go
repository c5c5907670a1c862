package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/neuroplastio/neio-remote/internal/clientsvc"
	"github.com/neuroplastio/neio-remote/internal/deck"
	"github.com/neuroplastio/neio-remote/internal/session"
)

const maxBodySize = 64 << 10

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeResult(w http.ResponseWriter, status int, success bool, message string) {
	writeJSON(w, status, Result{Success: success, Message: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeResult(w, http.StatusBadRequest, false, fmt.Sprintf("invalid request: %s", err))
		return false
	}
	return true
}

// loadConfig reads the configuration for a single request. On failure it
// writes the error response and returns false.
func (s *Server) loadConfig(w http.ResponseWriter) (deck.Config, bool) {
	cfg, err := s.config.Load()
	if err != nil {
		s.log.Error("failed to load config", zap.Error(err))
		writeResult(w, http.StatusInternalServerError, false, fmt.Sprintf("failed to load config: %s", err))
		return deck.Config{}, false
	}
	return cfg, true
}

func (s *Server) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cfg, ok := s.loadConfig(w)
	if !ok {
		return
	}
	if !session.Authorize(req.PIN, cfg.PIN) {
		s.log.Info("Rejected PIN", zap.String("remote", r.RemoteAddr))
		writeResult(w, http.StatusOK, false, MessageInvalidPIN)
		return
	}
	s.track(r, clientsvc.VisitAuth)
	writeResult(w, http.StatusOK, true, MessageAuthenticated)
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cfg, ok := s.loadConfig(w)
	if !ok {
		return
	}
	if !session.Authorize(req.PIN, cfg.PIN) {
		writeResult(w, http.StatusUnauthorized, false, MessageInvalidPIN)
		return
	}
	buttons := cfg.Buttons
	if buttons == nil {
		buttons = []deck.Button{}
	}
	writeJSON(w, http.StatusOK, ConfigResponse{Grid: cfg.Grid, Buttons: buttons})
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	cfg, ok := s.loadConfig(w)
	if !ok {
		return
	}
	if !session.Authorize(req.PIN, cfg.PIN) {
		writeResult(w, http.StatusOK, false, MessageInvalidPIN)
		return
	}
	action, err := deck.Resolve(req.ButtonID, cfg.Buttons)
	if err != nil {
		writeResult(w, http.StatusOK, false, err.Error())
		return
	}
	log := s.log.With(zap.String("button", req.ButtonID))
	if err := s.executor.Execute(r.Context(), action); err != nil {
		level := zap.WarnLevel
		if errors.Is(err, r.Context().Err()) {
			level = zap.DebugLevel
		}
		log.Log(level, "Action failed", zap.Error(err))
		writeResult(w, http.StatusOK, false, fmt.Sprintf("action failed: %s", err))
		return
	}
	log.Debug("Action executed")
	writeResult(w, http.StatusOK, true, MessageActionExecuted)
}
