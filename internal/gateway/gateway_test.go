package gateway

import (
	"encoding/json"
	"net/http"
	"net/url"
	"testing"

	"github.com/pxr-io/block-gateway/internal/config"
	"github.com/pxr-io/block-gateway/internal/model"
)

// testGatewayConfig returns a gateway configuration suitable for the core
// tests: collaborator URLs are filled in by each test as needed.
func testGatewayConfig() *config.GatewayConfig {
	cfg := &config.Default().Gateway
	cfg.RootBlock = config.RootBlockConfig{
		Code:   1000001,
		Name:   "pxr-root",
		Domain: "root.pxr.example.org",
	}
	cfg.Origin = config.OriginRules{
		External:      []config.HeaderRule{{Header: "X-Forwarded-For", Pattern: ".+"}},
		BetweenBlocks: []config.HeaderRule{{Header: "X-Block-Origin", Pattern: "^between$"}},
		WithinBlock:   []config.HeaderRule{{Header: "X-Block-Origin", Pattern: "^within$"}},
	}
	cfg.Ports = map[string]int{
		"info-manage":   3001,
		"binary-manage": 3002,
	}
	cfg.Shortcut = config.ShortcutConfig{
		LocalHost:     "blockx-api-01",
		APIMarker:     "-api",
		ServiceMarker: "-service",
		LocalPort:     3030,
		LocalPath:     "/gateway/reverse/api",
	}
	return cfg
}

// testOperator returns a resolved operator with its encoded session form, as
// a peer gateway would propagate it.
func testOperator(t *testing.T, opType model.OperatorType, blockCode int) *model.Operator {
	t.Helper()
	op := &model.Operator{
		OperatorID: "op-1",
		Type:       opType,
		LoginID:    "alice",
		BlockCode:  blockCode,
	}
	raw, err := json.Marshal(op)
	if err != nil {
		t.Fatalf("marshal operator: %v", err)
	}
	op.Encoded = url.QueryEscape(string(raw))
	return op
}

// sessionHeaderRequest builds an inbound request carrying an encoded session
// header classified as between-blocks traffic.
func sessionHeaderRequest(cfg *config.GatewayConfig, op *model.Operator) *http.Request {
	h := http.Header{}
	h.Set(cfg.Headers.Session, op.Encoded)
	h.Set("X-Block-Origin", "between")
	return &http.Request{Header: h}
}
