package handler

import (
	"io"
	"net/http"
	"strings"

	"github.com/pxr-io/block-gateway/internal/config"
	"github.com/pxr-io/block-gateway/internal/gateway"
	"github.com/pxr-io/block-gateway/internal/model"
)

// ProxyHandler adapts the HTTP surface to the orchestrator. One handler
// serves all four verbs on each of the three routes; the verb-specific logic
// lives entirely in the orchestrator.
type ProxyHandler struct {
	orch *gateway.Orchestrator
	cfg  *config.GatewayConfig
}

// NewProxyHandler returns the HTTP adapter over the orchestrator.
func NewProxyHandler(orch *gateway.Orchestrator, cfg *config.GatewayConfig) *ProxyHandler {
	return &ProxyHandler{orch: orch, cfg: cfg}
}

// General serves the general forward route, used by non-personal operators.
func (h *ProxyHandler) General(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, gateway.ProxyGeneral)
}

// Personal serves the personal forward route.
func (h *ProxyHandler) Personal(w http.ResponseWriter, r *http.Request) {
	h.forward(w, r, gateway.ProxyPersonal)
}

// Reverse serves inbound already-tokenized calls from peer gateways.
func (h *ProxyHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parse(w, r, gateway.ProxyGeneral)
	if !ok {
		return
	}
	res, err := h.orch.Reverse(r.Context(), req)
	h.respond(w, res, err)
}

func (h *ProxyHandler) forward(w http.ResponseWriter, r *http.Request, pt gateway.ProxyType) {
	req, ok := h.parse(w, r, pt)
	if !ok {
		return
	}
	res, err := h.orch.Forward(r.Context(), req)
	h.respond(w, res, err)
}

// parse builds the orchestrator input from query parameters and body. The
// request body is read verbatim; binary payloads are detected by content
// type and forwarded untouched.
func (h *ProxyHandler) parse(w http.ResponseWriter, r *http.Request, pt gateway.ProxyType) (*gateway.Request, bool) {
	toBlock, err := queryIntPtr(r, "block")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Status: http.StatusBadRequest,
			Reasons: []model.FieldReason{{
				Property: "block",
				Value:    r.URL.Query().Get("block"),
				Message:  "block must be an integer",
			}},
		})
		return nil, false
	}
	fromBlock, err := queryIntPtr(r, "from_block")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.ErrorResponse{
			Status: http.StatusBadRequest,
			Reasons: []model.FieldReason{{
				Property: "from_block",
				Value:    r.URL.Query().Get("from_block"),
				Message:  "from_block must be an integer",
			}},
		})
		return nil, false
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "request body could not be read")
		return nil, false
	}

	return &gateway.Request{
		Method:     r.Method,
		Header:     r.Header,
		Body:       body,
		BinaryBody: isBinaryContentType(r.Header.Get("Content-Type")),
		ToPath:     r.URL.Query().Get("path"),
		ToBlock:    toBlock,
		FromPath:   r.URL.Query().Get("from_path"),
		FromBlock:  fromBlock,
		ProxyType:  pt,
	}, true
}

// respond renders an orchestrator outcome: typed errors become the error
// envelope, downstream results pass through with their original status,
// headers, and body.
func (h *ProxyHandler) respond(w http.ResponseWriter, res *gateway.Result, err error) {
	if err != nil {
		if ge, ok := gateway.AsError(err); ok {
			writeJSON(w, ge.Status, ge.Envelope())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal gateway failure")
		return
	}

	for key, values := range res.Header {
		// The aggregate body may differ in length and framing from the last
		// downstream response; let the server recompute these.
		if key == "Content-Length" || key == "Transfer-Encoding" {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	if res.Binary {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.WriteHeader(res.Status)
	w.Write(res.Body)
}

func isBinaryContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	ct := strings.ToLower(contentType)
	return !strings.Contains(ct, "json") &&
		!strings.HasPrefix(ct, "text/") &&
		!strings.Contains(ct, "x-www-form-urlencoded")
}
