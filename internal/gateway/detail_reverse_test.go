package gateway

import (
	"net/http"
	"testing"
)

func reverseInput(method, toPath string) *Request {
	h := http.Header{}
	h.Set("token", "tok-1")
	h.Set("X-Custom", "kept")
	return &Request{Method: method, Header: h, ToPath: toPath}
}

func TestReverseDetailPortLookup(t *testing.T) {
	cfg := testGatewayConfig()
	b := NewReverseDetailBuilder(cfg)

	d, err := b.IssueDetail(reverseInput("GET", "/info-manage/list"))
	if err != nil {
		t.Fatalf("IssueDetail: %v", err)
	}
	if d.URL != "http://localhost:3001/info-manage/list" {
		t.Errorf("URL = %q", d.URL)
	}
	if d.Header.Get(cfg.Headers.Token) != "" {
		t.Error("api token must not reach the destination service")
	}
	if d.Header.Get("X-Custom") != "kept" {
		t.Error("unrelated headers must pass through")
	}
}

func TestReverseDetailUnknownService(t *testing.T) {
	cfg := testGatewayConfig()
	b := NewReverseDetailBuilder(cfg)

	_, err := b.IssueDetail(reverseInput("GET", "/nope-manage/x"))
	ge, ok := AsError(err)
	if !ok || ge.Kind != KindUnknownService || ge.Status != 400 {
		t.Fatalf("expected UnknownService 400, got %v", err)
	}
}

func TestReverseDetailBinaryRoute(t *testing.T) {
	cfg := testGatewayConfig()
	b := NewReverseDetailBuilder(cfg)

	d, err := b.IssueDetail(reverseInput("GET", "/binary-manage/download/u-1/7?width=10"))
	if err != nil {
		t.Fatalf("IssueDetail: %v", err)
	}
	if !d.Binary {
		t.Error("download route must be marked binary")
	}
	if d.Header.Get("Accept") != "application/octet-stream" {
		t.Errorf("Accept = %q", d.Header.Get("Accept"))
	}
}

func TestReverseDetailProposalAttachEscaped(t *testing.T) {
	cfg := testGatewayConfig()
	cfg.Ports["info-account-manage"] = 3003
	b := NewReverseDetailBuilder(cfg)

	d, err := b.IssueDetail(reverseInput("GET", "/info-account-manage/proposal/attach/報告書.pdf"))
	if err != nil {
		t.Fatalf("IssueDetail: %v", err)
	}
	want := "http://localhost:3003/info-account-manage/proposal/attach/%E5%A0%B1%E5%91%8A%E6%9B%B8.pdf"
	if d.URL != want {
		t.Errorf("URL = %q, want %q", d.URL, want)
	}
}

func TestRewriteQuery(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no query", "/info-manage/list", "/info-manage/list"},
		{"ascii value untouched", "/a?k=v", "/a?k=v"},
		{"multibyte value encoded", "/a?name=報告", "/a?name=%E5%A0%B1%E5%91%8A"},
		{"keys and separators untouched", "/a?第一=x&b=火", "/a?第一=x&b=%E7%81%AB"},
		{"pair without equals passes", "/a?flag&k=v", "/a?flag&k=v"},
		{"value keeps later equals", "/a?k=x=火", "/a?k=x%3D%E7%81%AB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rewriteQuery(tt.in); got != tt.want {
				t.Errorf("rewriteQuery(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFirstSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/info-manage/list", "info-manage"},
		{"/info-manage?x=1", "info-manage"},
		{"/info-manage", "info-manage"},
		{"/", ""},
	}
	for _, tt := range tests {
		if got := firstSegment(tt.in); got != tt.want {
			t.Errorf("firstSegment(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
