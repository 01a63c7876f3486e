package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/harmix/assistant-api/internal/domain/conversation"
	"github.com/harmix/assistant-api/internal/interfaces/httpserver/middlewares"
)

// sseObserver adapts an HTTP response into a conversation.FrameWriter.
// Frames are rendered as `data: <json>` events and flushed one at a time so
// the client sees each message as it lands. The event-stream headers are set
// on the first write: a turn that fails before its first frame keeps an
// uncommitted response and can still answer with a plain JSON error.
type sseObserver struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	started bool
}

func newSSEObserver(w http.ResponseWriter, flusher http.Flusher) *sseObserver {
	return &sseObserver{w: w, flusher: flusher}
}

// begin is called under the mutex before every write.
func (o *sseObserver) begin() {
	if o.started {
		return
	}
	o.started = true
	middlewares.SetSSEHeaders(o.w.Header())
}

func (o *sseObserver) WriteFrame(frame conversation.Frame) error {
	payload, err := frame.MarshalPayload()
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.begin()
	if _, err := fmt.Fprintf(o.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	o.flusher.Flush()
	return nil
}

func (o *sseObserver) WriteError(message string) error {
	body, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.begin()
	if _, err := fmt.Fprintf(o.w, "event: error\ndata: %s\n\n", body); err != nil {
		return err
	}
	o.flusher.Flush()
	return nil
}
