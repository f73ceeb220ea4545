package gateway

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/pxr-io/block-gateway/internal/config"
)

// ReverseDetailBuilder synthesizes the outbound call for the reverse
// direction: an already-certified inbound call dispatched to the co-located
// destination service listening on a statically mapped local port.
type ReverseDetailBuilder struct {
	cfg *config.GatewayConfig
}

// NewReverseDetailBuilder returns a builder over the immutable gateway config.
func NewReverseDetailBuilder(cfg *config.GatewayConfig) *ReverseDetailBuilder {
	return &ReverseDetailBuilder{cfg: cfg}
}

// IssueDetail resolves the destination port from the first path segment and
// rewrites the query string. A path segment absent from the port map is a
// routing failure, never a silent default.
func (b *ReverseDetailBuilder) IssueDetail(req *Request) (*RequestDetail, error) {
	toPath := req.ToPath

	segment := firstSegment(toPath)
	port, ok := b.cfg.Ports[segment]
	if !ok {
		return nil, newError(KindUnknownService, http.StatusBadRequest,
			fmt.Sprintf("no destination service is configured for %q", segment))
	}

	targetURL := fmt.Sprintf("http://localhost:%d%s", port, rewriteQuery(toPath))

	// Legacy destinations under /proposal/attach/ receive raw multi-byte
	// filenames in the path; the whole URL is escaped at the transport layer.
	if strings.Contains(targetURL, "/proposal/attach/") {
		targetURL = escapeURI(targetURL)
	}

	header := req.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Del(b.cfg.Headers.Token)
	header.Set("Content-Length", strconv.Itoa(len(req.Body)))

	binary := isBinaryRoute(toPath)
	if binary {
		header.Set("Accept", "application/octet-stream")
	}

	return &RequestDetail{
		Method: req.Method,
		URL:    targetURL,
		Header: header,
		Body:   req.Body,
		Binary: binary,
	}, nil
}

func firstSegment(path string) string {
	trimmed := strings.TrimPrefix(path, "/")
	if i := strings.IndexAny(trimmed, "/?"); i >= 0 {
		return trimmed[:i]
	}
	return trimmed
}

// rewriteQuery re-encodes the query portion of a destination path, if any,
// percent-encoding only the value of each key=value pair. Keys and the '&'
// separators pass through untouched, preserving already-valid path syntax
// while fixing improperly encoded values from legacy callers.
func rewriteQuery(path string) string {
	q := strings.IndexByte(path, '?')
	if q < 0 {
		return path
	}
	prefix, query := path[:q], path[q+1:]

	pairs := strings.Split(query, "&")
	for i, pair := range pairs {
		eq := strings.IndexByte(pair, '=')
		if eq < 0 {
			continue
		}
		pairs[i] = pair[:eq+1] + escapeComponent(pair[eq+1:])
	}
	return prefix + "?" + strings.Join(pairs, "&")
}
