package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/pxr-io/block-gateway/internal/config"
	"github.com/pxr-io/block-gateway/internal/model"
)

// ForwardDetailBuilder synthesizes the outbound call for the forward
// direction: the caller's request replayed against the destination block's
// reverse endpoint (or the local reverse endpoint when the same-host
// shortcut applies), with identity and token headers re-asserted.
type ForwardDetailBuilder struct {
	cfg *config.GatewayConfig
}

// NewForwardDetailBuilder returns a builder over the immutable gateway config.
func NewForwardDetailBuilder(cfg *config.GatewayConfig) *ForwardDetailBuilder {
	return &ForwardDetailBuilder{cfg: cfg}
}

// IssueDetail builds one outbound call for one issued token.
func (b *ForwardDetailBuilder) IssueDetail(req *Request, token model.Token, op *model.Operator, pctx *RequestContext) (*RequestDetail, error) {
	body := req.Body
	if !req.BinaryBody && len(body) > 0 {
		// Re-serialize JSON payloads so the downstream receives canonical text.
		var parsed any
		if err := json.Unmarshal(body, &parsed); err == nil {
			if reencoded, err := json.Marshal(parsed); err == nil {
				body = reencoded
			}
		}
	}

	baseURL, hostHeader := b.target(pctx.ToCatalog)
	targetURL := baseURL + "?path=" + escapeComponent(pctx.ToPath)

	header := req.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	header.Del("Cookie")
	header.Set("Content-Length", strconv.Itoa(len(body)))
	header.Set("Host", hostHeader)
	header.Set(b.cfg.Headers.Session, op.Encoded)
	header.Set(b.cfg.Headers.Token, token.APIToken)

	binary := isBinaryRoute(pctx.ToPath)
	if binary {
		header.Set("Accept", "application/octet-stream")
	}

	return &RequestDetail{
		Method: pctx.Method,
		URL:    targetURL,
		Header: header,
		Body:   body,
		Binary: binary,
	}, nil
}

// target decides between the cross-host route and the same-host shortcut.
// When the local host identifier up to the api marker equals the destination
// domain up to the service marker, caller and callee are co-located and the
// network hop is skipped.
func (b *ForwardDetailBuilder) target(to *model.Catalog) (baseURL, hostHeader string) {
	local, okLocal := prefixBefore(b.cfg.Shortcut.LocalHost, b.cfg.Shortcut.APIMarker)
	dest, okDest := prefixBefore(to.Domain, b.cfg.Shortcut.ServiceMarker)
	if okLocal && okDest && local == dest {
		host := fmt.Sprintf("localhost:%d", b.cfg.Shortcut.LocalPort)
		return "http://" + host + b.cfg.Shortcut.LocalPath, host
	}
	return "https://" + to.Domain + b.cfg.Proxy.ReversePath, to.Domain
}
