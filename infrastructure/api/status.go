package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/slotbench/go-slot-capture/entities"
	"github.com/slotbench/go-slot-capture/infrastructure/store/pebbledb"
	"go.uber.org/zap"
)

type SessionProvider interface {
	GetLastSession() (string, error)
	GetSummaries(sessionID string) ([]entities.EndpointSummary, error)
}

type Response struct {
	LastSession string                     `json:"lastSession"`
	Summaries   []entities.EndpointSummary `json:"summaries"`
}

// StatusHandler serves the summaries of the last exported session.
type StatusHandler struct {
	sp     SessionProvider
	logger *zap.SugaredLogger
}

func NewStatusHandler(sp SessionProvider, logger *zap.SugaredLogger) *StatusHandler {
	return &StatusHandler{sp: sp, logger: logger}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	sessionID, err := h.sp.GetLastSession()
	if errors.Is(err, pebbledb.ErrNotFound) {
		http.Error(w, "no session exported yet", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "getting last session", http.StatusInternalServerError)
		h.logger.Errorw("Error getting last session.", "error", err)
		return
	}

	summaries, err := h.sp.GetSummaries(sessionID)
	if err != nil && !errors.Is(err, pebbledb.ErrNotFound) {
		http.Error(w, "getting session summaries", http.StatusInternalServerError)
		h.logger.Errorw("Error getting summaries.", "session", sessionID, "error", err)
		return
	}

	w.Header().Add("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(Response{LastSession: sessionID, Summaries: summaries})
	if err != nil {
		h.logger.Errorw("Error writing status response.", "error", err)
	}
}

func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Add("Content-Type", "application/json")
	_, _ = w.Write([]byte("{\"status\":\"UP\"}"))
}
