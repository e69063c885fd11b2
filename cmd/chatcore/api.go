package main

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"chat-core/contract"
	"chat-core/domain"
	"chat-core/errors"
	"chat-core/message"
	"chat-core/services"
	"chat-core/widget"
)

// newAPI exposes the facade as a small JSON surface. Production transports
// (websocket gateways, the dashboard backend) live in separate services and
// speak to the same facade; this is the reference wiring.
func newAPI(service services.IChatService, widgets *widget.Resolver, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /widgets", func(w http.ResponseWriter, r *http.Request) {
		var cfg domain.WidgetConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, log, http.StatusBadRequest, err)
			return
		}
		if err := widgets.Upsert(r.Context(), cfg); err != nil {
			writeError(w, log, statusFor(err), err)
			return
		}
		writeJSON(w, log, http.StatusOK, cfg)
	})

	mux.HandleFunc("POST /sessions", func(w http.ResponseWriter, r *http.Request) {
		var req services.CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, log, http.StatusBadRequest, err)
			return
		}
		sess, err := service.CreateSession(r.Context(), req)
		if err != nil {
			writeError(w, log, statusFor(err), err)
			return
		}
		writeJSON(w, log, http.StatusCreated, sess)
	})

	mux.HandleFunc("GET /sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, log, http.StatusBadRequest, err)
			return
		}
		sess, err := service.GetSession(r.Context(), id)
		if err != nil {
			writeError(w, log, statusFor(err), err)
			return
		}
		writeJSON(w, log, http.StatusOK, sess)
	})

	mux.HandleFunc("POST /sessions/{id}/end", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, log, http.StatusBadRequest, err)
			return
		}
		sess, err := service.EndSession(r.Context(), id)
		if err != nil {
			writeError(w, log, statusFor(err), err)
			return
		}
		writeJSON(w, log, http.StatusOK, sess)
	})

	mux.HandleFunc("POST /sessions/{id}/claim", func(w http.ResponseWriter, r *http.Request) {
		sessionID, agentID, ok := sessionAndAgent(w, r, log)
		if !ok {
			return
		}
		sess, err := service.ClaimSession(r.Context(), sessionID, agentID)
		if err != nil {
			writeError(w, log, statusFor(err), err)
			return
		}
		writeJSON(w, log, http.StatusOK, sess)
	})

	mux.HandleFunc("POST /sessions/{id}/release", func(w http.ResponseWriter, r *http.Request) {
		sessionID, agentID, ok := sessionAndAgent(w, r, log)
		if !ok {
			return
		}
		sess, err := service.ReleaseSession(r.Context(), sessionID, agentID)
		if err != nil {
			writeError(w, log, statusFor(err), err)
			return
		}
		writeJSON(w, log, http.StatusOK, sess)
	})

	mux.HandleFunc("POST /sessions/{id}/transfer", func(w http.ResponseWriter, r *http.Request) {
		sessionID, targetID, ok := sessionAndAgent(w, r, log)
		if !ok {
			return
		}
		sess, err := service.TransferSession(r.Context(), sessionID, targetID)
		if err != nil {
			writeError(w, log, statusFor(err), err)
			return
		}
		writeJSON(w, log, http.StatusOK, sess)
	})

	mux.HandleFunc("POST /sessions/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, log, http.StatusBadRequest, err)
			return
		}
		var req services.SubmitMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, log, http.StatusBadRequest, err)
			return
		}
		req.SessionID = sessionID
		msg, err := service.SubmitMessage(r.Context(), req)
		if err != nil {
			writeError(w, log, statusFor(err), err)
			return
		}
		writeJSON(w, log, http.StatusCreated, msg)
	})

	mux.HandleFunc("GET /sessions/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, log, http.StatusBadRequest, err)
			return
		}
		caller := message.Caller{Party: domain.PartyVisitor}
		if r.URL.Query().Get("party") == string(domain.PartyAgent) {
			caller.Party = domain.PartyAgent
		}
		msgs, err := service.GetTranscript(r.Context(), sessionID, caller)
		if err != nil {
			writeError(w, log, statusFor(err), err)
			return
		}
		writeJSON(w, log, http.StatusOK, msgs)
	})

	mux.HandleFunc("POST /sessions/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, log, http.StatusBadRequest, err)
			return
		}
		party := domain.Party(r.URL.Query().Get("party"))
		upTo, err := strconv.ParseUint(r.URL.Query().Get("up_to"), 10, 64)
		if err != nil {
			writeError(w, log, http.StatusBadRequest, err)
			return
		}
		marked, err := service.MarkMessagesRead(r.Context(), sessionID, party, upTo)
		if err != nil {
			writeError(w, log, statusFor(err), err)
			return
		}
		writeJSON(w, log, http.StatusOK, map[string]int{"marked": marked})
	})

	mux.HandleFunc("GET /agents/{id}/notifications", func(w http.ResponseWriter, r *http.Request) {
		agentID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, log, http.StatusBadRequest, err)
			return
		}
		tenantID, err := uuid.Parse(r.URL.Query().Get("tenant_id"))
		if err != nil {
			writeError(w, log, http.StatusBadRequest, err)
			return
		}
		filter := contract.NotificationFilter{
			UnreadOnly: r.URL.Query().Get("unread") == "true",
		}
		notifs, err := service.ListNotifications(r.Context(), tenantID, agentID, filter)
		if err != nil {
			writeError(w, log, statusFor(err), err)
			return
		}
		writeJSON(w, log, http.StatusOK, notifs)
	})

	mux.HandleFunc("POST /notifications/{id}/read", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, log, http.StatusBadRequest, err)
			return
		}
		if err := service.MarkNotificationRead(r.Context(), id); err != nil {
			writeError(w, log, statusFor(err), err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /search", func(w http.ResponseWriter, r *http.Request) {
		tenantID, err := uuid.Parse(r.URL.Query().Get("tenant_id"))
		if err != nil {
			writeError(w, log, http.StatusBadRequest, err)
			return
		}
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.Atoi(raw); err == nil {
				limit = parsed
			}
		}
		hits, err := service.SearchTranscripts(r.Context(), tenantID, nil, r.URL.Query().Get("q"), limit)
		if err != nil {
			writeError(w, log, statusFor(err), err)
			return
		}
		writeJSON(w, log, http.StatusOK, hits)
	})

	return mux
}

func sessionAndAgent(w http.ResponseWriter, r *http.Request, log *slog.Logger) (sessionID, agentID uuid.UUID, ok bool) {
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, log, http.StatusBadRequest, err)
		return uuid.Nil, uuid.Nil, false
	}
	agentID, err = uuid.Parse(r.URL.Query().Get("agent_id"))
	if err != nil {
		writeError(w, log, http.StatusBadRequest, err)
		return uuid.Nil, uuid.Nil, false
	}
	return sessionID, agentID, true
}

func statusFor(err error) int {
	var assigned errors.AlreadyAssignedError
	switch {
	case stderrors.As(err, &assigned):
		return http.StatusConflict
	case stderrors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, errors.ErrSessionClosed),
		stderrors.Is(err, errors.ErrInvalidTransition),
		stderrors.Is(err, errors.ErrNotOwner):
		return http.StatusConflict
	case stderrors.Is(err, errors.ErrConfigInactive):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn("response encoding failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, log *slog.Logger, status int, err error) {
	writeJSON(w, log, status, map[string]string{"error": err.Error()})
}
