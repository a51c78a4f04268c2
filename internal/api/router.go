// Package api serves conversation views over HTTP and drives playback highlighting over a
// WebSocket session.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/embano1/healthscribe-demo/internal/conversation"
)

// ConversationProvider returns the aligned view of a job.
type ConversationProvider interface {
	Conversation(ctx context.Context, jobName string) (*conversation.View, error)
}

// Options configures the router.
type Options struct {
	// SkipSmallTalk and SkipSilence are the initial skip settings of new sessions.
	SkipSmallTalk bool
	SkipSilence   bool
	// LoadTimeout bounds loading a conversation on first request.
	LoadTimeout time.Duration
}

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Handler holds the dependencies of the HTTP handlers.
type Handler struct {
	provider ConversationProvider
	log      logrus.FieldLogger
	opts     Options
}

// NewRouter sets up the HTTP routes.
func NewRouter(provider ConversationProvider, log logrus.FieldLogger, opts Options) *gin.Engine {
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = time.Minute
	}
	h := &Handler{provider: provider, log: log, opts: opts}

	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(log))

	r.GET("/health", h.Health)
	v1 := r.Group("/api/v1")
	{
		v1.GET("/conversations/:job", h.GetConversation)
		v1.GET("/conversations/:job/session", h.Session)
	}
	return r
}

// Health reports that the server is up.
func (h *Handler) Health(c *gin.Context) {
	success(c, gin.H{"status": "ok"})
}

// GetConversation returns the view of a job.
func (h *Handler) GetConversation(c *gin.Context) {
	v, ok := h.conversation(c)
	if !ok {
		return
	}
	success(c, v)
}

// conversation loads the view named by the :job parameter, writing an error response when
// that fails.
func (h *Handler) conversation(c *gin.Context) (*conversation.View, bool) {
	job := c.Param("job")
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.opts.LoadTimeout)
	defer cancel()

	v, err := h.provider.Conversation(ctx, job)
	if err == nil {
		return v, true
	}

	log := h.log.WithFields(logrus.Fields{"job": job, "request_id": requestID(c)})
	var fe *conversation.FetchError
	switch {
	case errors.Is(err, conversation.ErrNotFound):
		fail(c, http.StatusNotFound, "CONVERSATION_NOT_FOUND", err.Error())
	case errors.As(err, &fe):
		log.WithError(err).Warn("Fetching conversation failed")
		fail(c, http.StatusBadGateway, "FETCH_FAILED", err.Error())
	default:
		log.WithError(err).Error("Loading conversation failed")
		fail(c, http.StatusInternalServerError, "INTERNAL_ERROR", "unable to load conversation")
	}
	return nil, false
}

func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, &APIResponse{
		Success:   true,
		Data:      data,
		RequestID: requestID(c),
	})
}

func fail(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, &APIResponse{
		Error:     &APIError{Code: code, Message: message},
		RequestID: requestID(c),
	})
}
