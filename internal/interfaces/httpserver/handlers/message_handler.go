package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/harmix/assistant-api/internal/domain/conversation"
	"github.com/harmix/assistant-api/internal/domain/user"
	"github.com/harmix/assistant-api/internal/infrastructure/metrics"
	"github.com/harmix/assistant-api/internal/infrastructure/relay"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/middlewares"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/requests"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/responses"
	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

// MessageHandler streams assistant turns over SSE. Accounts with an assigned
// upstream host are relayed verbatim to that backend instead of running the
// local agent process.
type MessageHandler struct {
	conversations *conversation.Service
	users         *user.Service
	relay         *relay.Relay
	agentEnabled  bool
	log           zerolog.Logger
}

// NewMessageHandler constructs the handler.
func NewMessageHandler(
	conversations *conversation.Service,
	users *user.Service,
	rel *relay.Relay,
	agentEnabled bool,
	log zerolog.Logger,
) *MessageHandler {
	return &MessageHandler{
		conversations: conversations,
		users:         users,
		relay:         rel,
		agentEnabled:  agentEnabled,
		log:           log.With().Str("handler", "message").Logger(),
	}
}

// Send handles POST /v1/messages
func (h *MessageHandler) Send(c *gin.Context) {
	userID, _ := middlewares.UserIDFromContext(c)

	profile, err := h.users.Profile(c.Request.Context(), userID)
	if err != nil {
		responses.HandleError(c, err, "failed to resolve account")
		return
	}

	if profile.UpstreamHost != "" {
		h.relayTurn(c, profile)
		return
	}

	if !h.agentEnabled {
		responses.HandleNewError(c, apperrors.ErrorTypeUpstreamFailure, "no agent backend available for this account")
		return
	}

	var req requests.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		responses.HandleNewError(c, apperrors.ErrorTypeValidation, "prompt is required")
		return
	}

	// The observer sets the event-stream headers on its first write, so a
	// turn that fails before streaming still gets a plain JSON error.
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		responses.HandleNewError(c, apperrors.ErrorTypeInternal, "streaming unsupported by connection")
		return
	}

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()
	start := time.Now()

	observer := newSSEObserver(c.Writer, flusher)
	if _, err := h.conversations.Send(c.Request.Context(), userID, req.ConversationID, req.Prompt, observer); err != nil {
		// Pre-stream failures (bad conversation, blank prompt) still have a
		// clean response to write to.
		if !c.Writer.Written() {
			responses.HandleError(c, err, "failed to start turn")
			return
		}
		metrics.RecordTurn("agent", "error", time.Since(start))
		apperrors.Log(h.log, err)
		return
	}
	metrics.RecordTurn("agent", "ok", time.Since(start))
}

// relayTurn forwards the raw request to the account's upstream backend and
// streams the response bytes back unmodified.
func (h *MessageHandler) relayTurn(c *gin.Context, profile *user.User) {
	flusher, ok := middlewares.PrepareSSE(c)
	if !ok {
		responses.HandleNewError(c, apperrors.ErrorTypeInternal, "streaming unsupported by connection")
		return
	}

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()
	start := time.Now()

	target := strings.TrimSuffix(profile.UpstreamHost, "/") + c.Request.URL.RequestURI()
	err := h.relay.Forward(c.Request.Context(), relay.Request{
		Method: c.Request.Method,
		URL:    target,
		Header: c.Request.Header,
		Body:   c.Request.Body,
	}, ginStreamWriter{c.Writer, flusher})
	if err != nil {
		metrics.RecordTurn("relay", "error", time.Since(start))
		apperrors.Log(h.log, err)
		return
	}
	metrics.RecordTurn("relay", "ok", time.Since(start))
}

// ginStreamWriter adapts the gin response into a relay.StreamWriter.
type ginStreamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (g ginStreamWriter) Write(p []byte) (int, error) { return g.w.Write(p) }
func (g ginStreamWriter) Flush()                      { g.flusher.Flush() }
