package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/AngelCh415/leadsync/internal/ingest"
	"github.com/AngelCh415/leadsync/internal/logger"
	"github.com/AngelCh415/leadsync/internal/models"
	"github.com/AngelCh415/leadsync/internal/utils"
)

const maxMessageBody = 16 << 10

// fail maps a pipeline error to a response. Fetch failures are the upstream's
// fault and become 502 with the route's message; anything else is ours.
func (h *handlers) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.WithRequest(h.log, r.Method, r.URL.Path, utils.RID(r.Context())).Error(msg, zap.Error(err))
	if errors.Is(err, ingest.ErrFetchFailed) || errors.Is(err, context.DeadlineExceeded) {
		writeError(w, http.StatusBadGateway, msg)
		return
	}
	writeError(w, http.StatusInternalServerError, msg)
}

func (h *handlers) crm(w http.ResponseWriter, r *http.Request) {
	payload, err := h.p.Build(r.Context())
	if err != nil {
		h.fail(w, r, "Unable to fetch CRM updates", err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *handlers) logs(w http.ResponseWriter, r *http.Request) {
	stream, err := h.p.LogStream(r.Context())
	if err != nil {
		h.fail(w, r, "Unable to stream logs", err)
		return
	}
	writeJSON(w, http.StatusOK, stream)
}

func (h *handlers) listAgents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"agents": h.p.Agents().All()})
}

func (h *handlers) agentDetail(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.p.Agents().BySlug(chi.URLParam(r, "name"))
	if !ok {
		writeError(w, http.StatusNotFound, "Agent not found")
		return
	}
	detail, err := h.p.AgentDetail(r.Context(), profile.Name)
	if err != nil {
		h.fail(w, r, "Unable to fetch agent detail", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (h *handlers) listMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"messages": h.inbox.List()})
}

func (h *handlers) postMessage(w http.ResponseWriter, r *http.Request) {
	var in models.Message
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBody)).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	_, all, err := h.inbox.Post(models.Message{From: in.From, To: in.To, Message: in.Message})
	if err != nil {
		h.log.Debug("message rejected", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "messages": all})
}

// ingestRun forces a fresh export into the cache.
func (h *handlers) ingestRun(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sync.Refresh(r.Context())
	if err != nil {
		h.fail(w, r, "Unable to fetch CRM updates", err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"version":   snap.Version,
		"fetchedAt": snap.FetchedAt.UTC().Format(time.RFC3339),
		"bytes":     len(snap.Raw),
	})
}

// ready reports 200 once an export has been cached, or when the source can be
// reached now.
func (h *handlers) ready(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.sync.Latest(); ok {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if _, err := h.sync.Refresh(ctx); err != nil {
		h.log.Warn("not ready", zap.Error(err))
		http.Error(w, "export source unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
