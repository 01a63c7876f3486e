package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SetSSEHeaders marks the response as a Server Sent Events stream.
func SetSSEHeaders(h http.Header) {
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
}

// PrepareSSE configures the HTTP response for Server Sent Events responses.
func PrepareSSE(c *gin.Context) (http.Flusher, bool) {
	SetSSEHeaders(c.Writer.Header())
	flusher, ok := c.Writer.(http.Flusher)
	return flusher, ok
}
