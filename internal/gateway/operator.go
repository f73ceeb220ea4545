package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"

	"github.com/pxr-io/block-gateway/internal/config"
	"github.com/pxr-io/block-gateway/internal/model"
)

// OperatorResolver extracts and validates the caller identity from a session
// cookie or a propagated session header, and classifies the traffic origin
// for header-borne sessions.
type OperatorResolver struct {
	cfg      *config.GatewayConfig
	client   *http.Client
	external []compiledRule
	between  []compiledRule
	within   []compiledRule
}

type compiledRule struct {
	header  string
	pattern *regexp.Regexp
}

// NewOperatorResolver compiles the origin classification rules and returns a
// resolver. Rule compilation errors are configuration errors and fail startup.
func NewOperatorResolver(cfg *config.GatewayConfig, client *http.Client) (*OperatorResolver, error) {
	r := &OperatorResolver{cfg: cfg, client: client}
	var err error
	if r.external, err = compileRules(cfg.Origin.External); err != nil {
		return nil, fmt.Errorf("external origin rules: %w", err)
	}
	if r.between, err = compileRules(cfg.Origin.BetweenBlocks); err != nil {
		return nil, fmt.Errorf("between-blocks origin rules: %w", err)
	}
	if r.within, err = compileRules(cfg.Origin.WithinBlock); err != nil {
		return nil, fmt.Errorf("within-block origin rules: %w", err)
	}
	return r, nil
}

func compileRules(rules []config.HeaderRule) ([]compiledRule, error) {
	out := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		re, err := regexp.Compile(rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", rule.Pattern, err)
		}
		out = append(out, compiledRule{header: rule.Header, pattern: re})
	}
	return out, nil
}

// Resolve produces the Operator for an inbound request. Session cookies take
// priority over the session header; with neither present the request is
// unauthorized.
func (r *OperatorResolver) Resolve(ctx context.Context, req *http.Request) (*model.Operator, error) {
	if sessionID := r.sessionCookie(req); sessionID != "" {
		return r.resolveSession(ctx, sessionID)
	}
	if encoded := req.Header.Get(r.cfg.Headers.Session); encoded != "" {
		return r.resolveHeader(req, encoded)
	}
	return nil, newError(KindUnauthorized, http.StatusUnauthorized, "no session cookie or session header present")
}

// sessionCookie returns the session id from the first matching cookie,
// checked in fixed priority: personal key, application key, manager key.
func (r *OperatorResolver) sessionCookie(req *http.Request) string {
	for _, name := range []string{r.cfg.Headers.Cookies.Personal, r.cfg.Headers.Cookies.App, r.cfg.Headers.Cookies.Manager} {
		if name == "" {
			continue
		}
		if c, err := req.Cookie(name); err == nil && c.Value != "" {
			return c.Value
		}
	}
	return ""
}

// resolveSession validates a cookie-borne session id against the operator
// service and constructs the Operator from the response.
func (r *OperatorResolver) resolveSession(ctx context.Context, sessionID string) (*model.Operator, error) {
	payload, _ := json.Marshal(map[string]string{"sessionId": sessionID})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.Services.OperatorSessionURL, bytes.NewReader(payload))
	if err != nil {
		return nil, wrapError(err, KindOperatorServiceFailure, http.StatusInternalServerError, "operator service request could not be built")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, wrapError(err, KindOperatorServiceFailure, http.StatusInternalServerError, "operator service is unreachable")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent, http.StatusBadRequest:
		return nil, newError(KindUnauthorized, http.StatusUnauthorized, "session is not recognized")
	case http.StatusUnauthorized:
		return nil, newError(KindSessionInvalid, http.StatusUnauthorized, "session is invalid or expired")
	default:
		return nil, newError(KindOperatorServiceFailure, http.StatusInternalServerError,
			fmt.Sprintf("operator service returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapError(err, KindOperatorServiceFailure, http.StatusInternalServerError, "operator service response could not be read")
	}

	var op model.Operator
	if err := json.Unmarshal(body, &op); err != nil {
		return nil, wrapError(err, KindOperatorServiceFailure, http.StatusInternalServerError, "operator service returned a malformed record")
	}
	op.SessionID = sessionID

	// Re-encode the record so downstream services receive the same identity.
	session, err := op.MarshalSession()
	if err != nil {
		return nil, wrapError(err, KindOperatorServiceFailure, http.StatusInternalServerError, "operator record could not be re-encoded")
	}
	op.Encoded = url.QueryEscape(string(session))
	return &op, nil
}

// resolveHeader decodes a propagated session header. Requests classified as
// external that match neither internal origin list are rejected, preventing
// spoofed session headers from outside the trust boundary.
func (r *OperatorResolver) resolveHeader(req *http.Request, encoded string) (*model.Operator, error) {
	external := matchAny(r.external, req.Header)
	between := matchAny(r.between, req.Header)
	within := matchAny(r.within, req.Header)
	if external && !between && !within {
		return nil, newError(KindUnauthorized, http.StatusUnauthorized, "session header is not accepted from an external origin")
	}

	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return nil, wrapError(err, KindUnauthorized, http.StatusUnauthorized, "session header is not URL-decodable")
	}

	raw, err := unwrapJSON(decoded, r.cfg.Proxy.MaxSessionUnwrap)
	if err != nil {
		return nil, err
	}

	var op model.Operator
	if err := json.Unmarshal(raw, &op); err != nil {
		return nil, wrapError(err, KindUnauthorized, http.StatusUnauthorized, "session header does not decode to an operator record")
	}
	op.Encoded = encoded
	return &op, nil
}

// unwrapJSON parses a value that may be JSON-encoded multiple times,
// re-parsing while the result remains a string. The unwrap count is bounded
// so adversarial input cannot force unbounded work.
func unwrapJSON(value string, maxUnwrap int) (json.RawMessage, error) {
	if maxUnwrap <= 0 {
		maxUnwrap = 8
	}
	current := value
	for i := 0; i < maxUnwrap; i++ {
		var parsed any
		if err := json.Unmarshal([]byte(current), &parsed); err != nil {
			return nil, wrapError(err, KindUnauthorized, http.StatusUnauthorized, "session header payload is not valid JSON")
		}
		inner, stillString := parsed.(string)
		if !stillString {
			return json.RawMessage(current), nil
		}
		current = inner
	}
	return nil, newError(KindUnauthorized, http.StatusUnauthorized, "session header is nested beyond the unwrap limit")
}

func matchAny(rules []compiledRule, header http.Header) bool {
	for _, rule := range rules {
		if v := header.Get(rule.header); v != "" && rule.pattern.MatchString(v) {
			return true
		}
	}
	return false
}
