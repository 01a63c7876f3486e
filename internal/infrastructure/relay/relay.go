package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"github.com/harmix/assistant-api/internal/utils/apperrors"
)

const (
	copyBufferSize   = 4096
	maxErrorBodySize = 64 << 10
)

// hopHeaders never cross the proxy boundary. Host and length/encoding
// headers are recomputed by the client; the rest are connection-scoped.
var hopHeaders = map[string]struct{}{
	"connection":          {},
	"keep-alive":          {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailer":             {},
	"transfer-encoding":   {},
	"upgrade":             {},
	"host":                {},
	"content-length":      {},
	"accept-encoding":     {},
}

// Request describes one upstream call to relay.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   io.Reader
}

// StreamWriter receives relayed bytes. Flush pushes what was written so far
// to the client, keeping upstream event framing intact.
type StreamWriter interface {
	io.Writer
	Flush()
}

// Relay forwards a request body to a remote per-user backend and streams the
// upstream bytes back unmodified: no re-parsing, no persistence. One shared
// client is reused across all requests.
type Relay struct {
	client *resty.Client
	log    zerolog.Logger
}

func New(log zerolog.Logger) *Relay {
	// No client timeout: the stream stays open for the whole turn and is
	// bounded by the request context instead.
	return &Relay{
		client: resty.New().SetTimeout(0),
		log:    log.With().Str("component", "relay").Logger(),
	}
}

// Forward relays req upstream and copies the response byte stream into w,
// flushing after every chunk. Upstream statuses >= 400 and mid-stream drops
// both surface as a single error event, after which the stream ends cleanly.
func (r *Relay) Forward(ctx context.Context, req Request, w StreamWriter) error {
	upstream := r.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		SetHeaderMultiValues(FilterHeaders(req.Header))
	if req.Body != nil {
		upstream.SetBody(req.Body)
	}

	resp, err := upstream.Execute(req.Method, req.URL)
	if err != nil {
		writeErrorEvent(w, "upstream request failed")
		return apperrors.New(ctx, apperrors.LayerInfrastructure, apperrors.ErrorTypeUpstreamFailure, "upstream request failed", err)
	}
	body := resp.RawResponse.Body
	defer body.Close()

	if resp.StatusCode() >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(body, maxErrorBodySize))
		writeErrorEvent(w, string(payload))
		r.log.Warn().Int("status", resp.StatusCode()).Str("url", req.URL).Msg("upstream returned error status")
		return nil
	}

	buf := make([]byte, copyBufferSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return apperrors.New(ctx, apperrors.LayerInfrastructure, apperrors.ErrorTypeInternal, "client write failed", err)
			}
			w.Flush()
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			writeErrorEvent(w, "upstream connection dropped")
			r.log.Warn().Err(readErr).Str("url", req.URL).Msg("upstream stream dropped")
			return nil
		}
	}
}

// FilterHeaders copies src without hop-by-hop headers, forcing event-stream
// accept headers so the upstream neither negotiates another content type nor
// compresses away the frame boundaries.
func FilterHeaders(src http.Header) http.Header {
	dst := http.Header{}
	for name, values := range src {
		if _, hop := hopHeaders[strings.ToLower(name)]; hop {
			continue
		}
		for _, v := range values {
			dst.Add(name, v)
		}
	}
	dst.Set("Accept", "text/event-stream")
	dst.Set("Accept-Encoding", "identity")
	return dst
}

func writeErrorEvent(w StreamWriter, body string) {
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", strings.ReplaceAll(body, "\n", " "))
	w.Flush()
}
