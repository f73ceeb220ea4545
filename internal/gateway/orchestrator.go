package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/pxr-io/block-gateway/internal/audit"
	"github.com/pxr-io/block-gateway/internal/config"
	"github.com/pxr-io/block-gateway/internal/model"
)

// ProxyType selects the inbound route flavor. Personal-type operators may
// only use the personal route; every other operator type uses the general
// route.
type ProxyType int

const (
	ProxyGeneral ProxyType = iota
	ProxyPersonal
)

// Request is the already-parsed inbound surface handed to the orchestrator
// by the HTTP layer.
type Request struct {
	Method     string
	Header     http.Header
	Body       []byte
	BinaryBody bool
	ToPath     string
	ToBlock    *int
	FromPath   string // empty when the caller did not supply from_path
	FromBlock  *int
	ProxyType  ProxyType
}

// RequestContext is the accumulated state of one forward-direction request.
// Each pipeline stage returns an updated context; nothing here is shared
// across requests.
type RequestContext struct {
	Method      string
	FromPath    string
	ToPath      string
	FromCatalog *model.Catalog
	ToCatalog   *model.Catalog
}

// Result is the aggregate response delivered to the inbound caller.
type Result struct {
	Status int
	Header http.Header
	Body   []byte
	Binary bool
}

// Orchestrator sequences the per-request pipeline: operator resolution,
// catalog resolution, permission evaluation, token acquisition, detail
// synthesis, the downstream call, and audit recording.
type Orchestrator struct {
	cfg         *config.GatewayConfig
	logger      *slog.Logger
	operators   *OperatorResolver
	catalogs    *CatalogResolver
	permissions *PermissionEvaluator
	gate        *AccessGate
	forward     *ForwardDetailBuilder
	reverse     *ReverseDetailBuilder
	recorder    *audit.Recorder
	client      *http.Client
}

// NewOrchestrator wires the pipeline components together.
func NewOrchestrator(
	cfg *config.GatewayConfig,
	logger *slog.Logger,
	operators *OperatorResolver,
	catalogs *CatalogResolver,
	permissions *PermissionEvaluator,
	gate *AccessGate,
	recorder *audit.Recorder,
	client *http.Client,
) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		logger:      logger,
		operators:   operators,
		catalogs:    catalogs,
		permissions: permissions,
		gate:        gate,
		forward:     NewForwardDetailBuilder(cfg),
		reverse:     NewReverseDetailBuilder(cfg),
		recorder:    recorder,
		client:      client,
	}
}

// Forward runs the forward-direction pipeline and aggregates the per-token
// call results.
func (o *Orchestrator) Forward(ctx context.Context, req *Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	op, err := o.operators.Resolve(ctx, asHTTPRequest(req))
	if err != nil {
		return nil, err
	}

	if err := o.checkProxyType(req, op); err != nil {
		return nil, err
	}

	fromBlock := op.BlockCode
	if req.FromBlock != nil {
		fromBlock = *req.FromBlock
	}
	toBlock := op.BlockCode
	if req.ToBlock != nil {
		toBlock = *req.ToBlock
	}
	fromPath := req.FromPath
	explicitFrom := fromPath != ""
	if !explicitFrom {
		fromPath = o.cfg.Proxy.DefaultFromPath
	}

	fromCatalog, err := o.catalogs.Get(ctx, fromBlock, op)
	if err != nil {
		return nil, err
	}
	toCatalog, err := o.catalogs.Get(ctx, toBlock, op)
	if err != nil {
		return nil, err
	}

	// Static authorization applies only to implicit self-originated calls;
	// an explicit from_path is authorized solely by the access-control
	// service below.
	if !explicitFrom {
		if err := o.permissions.Check(fromCatalog, toCatalog, req.Method, op.Type, req.ToPath); err != nil {
			return nil, err
		}
	}

	pctx := &RequestContext{
		Method:      req.Method,
		FromPath:    fromPath,
		ToPath:      req.ToPath,
		FromCatalog: fromCatalog,
		ToCatalog:   toCatalog,
	}

	tokens, err := o.gate.GetTokens(ctx, pctx, op,
		req.Header.Get(o.cfg.Headers.AccessToken), req.Body, targetCodes(req))
	if err != nil {
		return nil, err
	}

	// Fan-out is sequential: audit ordering and the last-wins aggregate
	// semantics depend on it.
	var (
		lastStatus int
		lastHeader http.Header
		lastBinary bool
		bodies     [][]byte
	)
	for _, token := range tokens {
		if token.BlockCode != 0 && token.BlockCode != pctx.ToCatalog.Code {
			reconciled, err := o.catalogs.Get(ctx, token.BlockCode, op)
			if err != nil {
				return nil, err
			}
			pctx.ToCatalog = reconciled
		}

		detail, err := o.forward.IssueDetail(req, token, op, pctx)
		if err != nil {
			return nil, err
		}

		res, err := o.call(ctx, detail)
		if err != nil {
			return nil, err
		}

		o.record(ctx, model.CallProxy, op, pctx, detail.URL)

		lastStatus, lastHeader, lastBinary = res.Status, res.Header, res.Binary
		bodies = append(bodies, res.Body)
	}

	aggregate := &Result{
		Status: lastStatus,
		Header: stripHopHeaders(lastHeader, o.cfg.Headers.Token),
		Binary: lastBinary,
	}
	if len(bodies) == 1 {
		aggregate.Body = bodies[0]
	} else {
		parts := make([]json.RawMessage, len(bodies))
		for i, b := range bodies {
			if json.Valid(b) {
				parts[i] = json.RawMessage(b)
			} else {
				quoted, _ := json.Marshal(string(b))
				parts[i] = quoted
			}
		}
		combined, err := json.Marshal(parts)
		if err != nil {
			return nil, wrapError(err, KindDownstreamUnreachable, http.StatusInternalServerError, "fan-out responses could not be aggregated")
		}
		aggregate.Body = combined
	}
	return aggregate, nil
}

// Reverse runs the reverse-direction pipeline: certify the inbound token,
// resolve the local destination, call it, and pass the response through.
func (o *Orchestrator) Reverse(ctx context.Context, req *Request) (*Result, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	op, err := o.operators.Resolve(ctx, asHTTPRequest(req))
	if err != nil {
		return nil, err
	}

	token := req.Header.Get(o.cfg.Headers.Token)
	if token == "" {
		return nil, newError(KindTokenCertification, http.StatusBadRequest, "api token header is missing")
	}

	fromPath := req.FromPath
	if fromPath == "" {
		fromPath = o.cfg.Proxy.DefaultFromPath
	}

	if err := o.gate.Certify(ctx, token, req.Method, req.ToPath, fromPath); err != nil {
		return nil, err
	}

	detail, err := o.reverse.IssueDetail(req)
	if err != nil {
		return nil, err
	}

	res, err := o.call(ctx, detail)
	if err != nil {
		return nil, err
	}

	pctx := &RequestContext{
		Method:   req.Method,
		FromPath: fromPath,
		ToPath:   req.ToPath,
		FromCatalog: &model.Catalog{
			Code: op.BlockCode,
		},
		ToCatalog: &model.Catalog{
			Code:   o.cfg.RootBlock.Code,
			Domain: o.cfg.RootBlock.Domain,
		},
	}
	o.record(ctx, model.CallReverseProxy, op, pctx, detail.URL)

	res.Header = stripHopHeaders(res.Header, o.cfg.Headers.Token)
	return res, nil
}

// call performs one downstream HTTP exchange. A response with an error
// status is still a result: downstream statuses and bodies pass through
// verbatim. Only transport failures become typed errors.
func (o *Orchestrator) call(ctx context.Context, detail *RequestDetail) (*Result, error) {
	var body io.Reader
	if len(detail.Body) > 0 {
		body = bytes.NewReader(detail.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, detail.Method, detail.URL, body)
	if err != nil {
		return nil, wrapError(err, KindDownstreamUnreachable, http.StatusInternalServerError, "downstream request could not be built")
	}
	httpReq.Header = detail.Header.Clone()
	if host := detail.Header.Get("Host"); host != "" {
		httpReq.Host = host
		httpReq.Header.Del("Host")
	}
	httpReq.ContentLength = int64(len(detail.Body))

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return nil, wrapError(err, KindDownstreamUnreachable, http.StatusInternalServerError, "destination service is unreachable")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapError(err, KindDownstreamUnreachable, http.StatusInternalServerError, "destination response could not be read")
	}

	return &Result{
		Status: resp.StatusCode,
		Header: resp.Header.Clone(),
		Body:   respBody,
		Binary: detail.Binary,
	}, nil
}

// record persists one audit entry. Persistence failures are logged and never
// alter the response already produced for the client.
func (o *Orchestrator) record(ctx context.Context, callType model.CallType, op *model.Operator, pctx *RequestContext, toURL string) {
	now := time.Now().UTC()
	entry := &model.AuditLog{
		Type:             callType,
		Method:           pctx.Method,
		FromBlockCode:    pctx.FromCatalog.Code,
		FromBlockVersion: pctx.FromCatalog.Version,
		FromURL:          callerURL(pctx.FromCatalog, pctx.FromPath),
		ToBlockCode:      pctx.ToCatalog.Code,
		ToBlockVersion:   pctx.ToCatalog.Version,
		ToURL:            toURL,
		Disabled:         false,
		CreatedBy:        op.LoginID,
		UpdatedBy:        op.LoginID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := o.recorder.Record(ctx, entry); err != nil {
		o.logger.Error("audit log write failed", "error", err, "method", pctx.Method, "to_url", toURL)
	}
}

func callerURL(from *model.Catalog, fromPath string) string {
	if from.Domain == "" {
		return fromPath
	}
	return "https://" + from.Domain + fromPath
}

// checkProxyType enforces the per-operator-type route gate. Requests already
// carrying a session header passed an equivalent check on the originating
// block and bypass it here.
func (o *Orchestrator) checkProxyType(req *Request, op *model.Operator) error {
	if req.Header.Get(o.cfg.Headers.Session) != "" {
		return nil
	}
	personal := op.Type == model.OperatorPersonal
	if personal && req.ProxyType != ProxyPersonal {
		return newError(KindPermissionDenied, http.StatusUnauthorized, "personal operators must use the personal route")
	}
	if !personal && req.ProxyType != ProxyGeneral {
		return newError(KindPermissionDenied, http.StatusUnauthorized, "non-personal operators must use the general route")
	}
	return nil
}

func validate(req *Request) error {
	if req.ToPath == "" {
		return validationError(model.FieldReason{
			Property: "toPath",
			Value:    nil,
			Message:  "path query parameter is required",
		})
	}
	if !strings.HasPrefix(req.ToPath, "/") {
		return newError(KindPathFormat, http.StatusBadRequest, "path must begin with '/'")
	}
	return nil
}

// targetCodes extracts the optional explicit destination code list from the
// caller's JSON request body.
func targetCodes(req *Request) []int {
	if req.BinaryBody || len(req.Body) == 0 {
		return nil
	}
	var probe struct {
		Codes []int `json:"codes"`
	}
	if err := json.Unmarshal(req.Body, &probe); err != nil {
		return nil
	}
	return probe.Codes
}

// asHTTPRequest adapts the parsed inbound surface back into the header/cookie
// view the operator resolver consumes.
func asHTTPRequest(req *Request) *http.Request {
	r := &http.Request{Header: req.Header}
	if r.Header == nil {
		r.Header = http.Header{}
	}
	return r
}

// stripHopHeaders removes the credential-bearing headers that must never be
// forwarded from a downstream response to the inbound caller.
func stripHopHeaders(h http.Header, tokenHeader string) http.Header {
	if h == nil {
		return http.Header{}
	}
	out := h.Clone()
	out.Del("Set-Cookie")
	out.Del("Cookie")
	out.Del(tokenHeader)
	return out
}
