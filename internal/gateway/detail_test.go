package gateway

import "testing"

func TestEscapeComponent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "abc123", "abc123"},
		{"marks kept", "a-b_c.d!e~f*g'h(i)", "a-b_c.d!e~f*g'h(i)"},
		{"space", "a b", "a%20b"},
		{"reserved", "/path?x=1&y=2", "%2Fpath%3Fx%3D1%26y%3D2"},
		{"percent", "50%", "50%25"},
		{"multibyte", "報告書.pdf", "%E5%A0%B1%E5%91%8A%E6%9B%B8.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeComponent(tt.in); got != tt.want {
				t.Errorf("escapeComponent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEscapeURI(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"url untouched", "http://localhost:3001/a/b?x=1&y=2", "http://localhost:3001/a/b?x=1&y=2"},
		{"space escaped", "http://localhost/a b", "http://localhost/a%20b"},
		{"multibyte path", "http://localhost/attach/見積.pdf", "http://localhost/attach/%E8%A6%8B%E7%A9%8D.pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeURI(tt.in); got != tt.want {
				t.Errorf("escapeURI(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestIsBinaryRoute(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/binary-manage/download/550e8400-e29b-41d4-a716-446655440000/1", true},
		{"/binary-manage/download/abc/42", true},
		{"/info-account-manage/proposal/attach/7", true},
		{"/binary-manage/download/abc/42?x=1", true},
		{"/binary-manage/download/abc", false},
		{"/binary-manage/download/abc/notanumber", false},
		{"/info-account-manage/proposal", false},
		{"/info-manage/list", false},
	}
	for _, tt := range tests {
		if got := isBinaryRoute(tt.path); got != tt.want {
			t.Errorf("isBinaryRoute(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestPrefixBefore(t *testing.T) {
	if p, ok := prefixBefore("blockx-api-01", "-api"); !ok || p != "blockx" {
		t.Errorf("got (%q, %v), want (blockx, true)", p, ok)
	}
	if _, ok := prefixBefore("blockx", "-api"); ok {
		t.Error("expected no match when marker is absent")
	}
}
