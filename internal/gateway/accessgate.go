package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pxr-io/block-gateway/internal/config"
	"github.com/pxr-io/block-gateway/internal/model"
)

// AccessGate talks to the access-control service: it acquires API tokens for
// outbound (forward) calls and certifies inbound (reverse) tokens.
type AccessGate struct {
	cfg    *config.GatewayConfig
	client *http.Client
}

// NewAccessGate returns a gate backed by the given HTTP client.
func NewAccessGate(cfg *config.GatewayConfig, client *http.Client) *AccessGate {
	return &AccessGate{cfg: cfg, client: client}
}

type tokenCaller struct {
	BlockCode   int             `json:"blockCode"`
	APIURL      string          `json:"apiUrl"`
	APIMethod   string          `json:"apiMethod"`
	UserID      string          `json:"userId"`
	Operator    map[string]any  `json:"operator"`
	RequestBody json.RawMessage `json:"requestBody,omitempty"`
}

type tokenTarget struct {
	Codes     []int  `json:"codes,omitempty"`
	BlockCode int    `json:"blockCode"`
	APIURL    string `json:"apiUrl"`
	APIMethod string `json:"apiMethod"`
}

type tokenRequest struct {
	Caller tokenCaller `json:"caller"`
	Target tokenTarget `json:"target"`
}

type collateRequest struct {
	Caller struct {
		APIURL string `json:"apiUrl"`
	} `json:"caller"`
	Target struct {
		APIURL    string `json:"apiUrl"`
		APIMethod string `json:"apiMethod"`
		APIToken  string `json:"apiToken"`
	} `json:"target"`
}

// GetTokens requests API tokens for the call described by pctx. The
// access-control service may resolve an ambiguous destination to several
// blocks, returning one token per destination; the caller replays the
// request once per token. accessToken is the optional inbound access-token
// header, forwarded when present. targetCodes is the optional explicit code
// list supplied in the caller's request body.
func (g *AccessGate) GetTokens(ctx context.Context, pctx *RequestContext, op *model.Operator, accessToken string, requestBody []byte, targetCodes []int) ([]model.Token, error) {
	caller := tokenCaller{
		BlockCode: pctx.FromCatalog.Code,
		APIURL:    pctx.FromPath,
		APIMethod: pctx.Method,
		UserID:    op.LoginID,
		Operator:  op.Summary(),
	}
	if json.Valid(requestBody) {
		caller.RequestBody = json.RawMessage(requestBody)
	}
	payload := []tokenRequest{{
		Caller: caller,
		Target: tokenTarget{
			Codes:     targetCodes,
			BlockCode: pctx.ToCatalog.Code,
			APIURL:    pctx.ToPath,
			APIMethod: pctx.Method,
		},
	}}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, wrapError(err, KindAccessControlFailure, http.StatusInternalServerError, "token request could not be encoded")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Services.AccessTokenURL, bytes.NewReader(body))
	if err != nil {
		return nil, wrapError(err, KindAccessControlFailure, http.StatusInternalServerError, "token request could not be built")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(g.cfg.Headers.Session, op.Encoded)
	if accessToken != "" {
		httpReq.Header.Set(g.cfg.Headers.AccessToken, accessToken)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, wrapError(err, KindAccessControlUnreachable, http.StatusInternalServerError, "access-control service is unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusInternalServerError || resp.StatusCode == http.StatusServiceUnavailable:
		return nil, newError(KindAccessControlFailure, http.StatusInternalServerError, "access-control service failed internally")
	default:
		return nil, newError(KindPermissionDenied, http.StatusUnauthorized,
			fmt.Sprintf("access-control service refused the call (%d)", resp.StatusCode))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrapError(err, KindAccessControlFailure, http.StatusInternalServerError, "token response could not be read")
	}

	var tokens []model.Token
	if err := json.Unmarshal(respBody, &tokens); err != nil {
		return nil, wrapError(err, KindAccessControlFailure, http.StatusInternalServerError, "token response is not a token array")
	}
	if len(tokens) == 0 {
		return nil, newError(KindPermissionDenied, http.StatusUnauthorized, "access-control service issued no tokens")
	}
	return tokens, nil
}

// Certify validates an inbound API token for a reverse-direction call. Any
// refusal by the access-control service is reported to the caller as a 400.
func (g *AccessGate) Certify(ctx context.Context, token, method, toPath, fromPath string) error {
	var payload collateRequest
	payload.Caller.APIURL = fromPath
	payload.Target.APIURL = toPath
	payload.Target.APIMethod = method
	payload.Target.APIToken = token

	body, err := json.Marshal(payload)
	if err != nil {
		return wrapError(err, KindAccessControlFailure, http.StatusInternalServerError, "collate request could not be encoded")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Services.CollateURL, bytes.NewReader(body))
	if err != nil {
		return wrapError(err, KindAccessControlFailure, http.StatusInternalServerError, "collate request could not be built")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return wrapError(err, KindAccessControlUnreachable, http.StatusInternalServerError, "access-control service is unreachable")
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return newError(KindTokenCertification, http.StatusBadRequest,
			fmt.Sprintf("api token was not certified (%d)", resp.StatusCode))
	}
	return nil
}
