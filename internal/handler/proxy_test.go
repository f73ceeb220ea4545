package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pxr-io/block-gateway/internal/config"
	"github.com/pxr-io/block-gateway/internal/gateway"
	"github.com/pxr-io/block-gateway/internal/model"
)

func TestParseRejectsBadBlockParam(t *testing.T) {
	h := NewProxyHandler(nil, &config.Default().Gateway)

	tests := []struct {
		name     string
		target   string
		property string
	}{
		{"block not an integer", "/gateway/api?path=/x&block=abc", "block"},
		{"from_block not an integer", "/gateway/api?path=/x&from_block=1.5", "from_block"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.General(rec, httptest.NewRequest("GET", tt.target, nil))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			var env model.ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
				t.Fatalf("unmarshal envelope: %v", err)
			}
			if len(env.Reasons) != 1 || env.Reasons[0].Property != tt.property {
				t.Errorf("unexpected reasons: %+v", env.Reasons)
			}
		})
	}
}

func TestRespondTypedError(t *testing.T) {
	h := NewProxyHandler(nil, &config.Default().Gateway)

	rec := httptest.NewRecorder()
	h.respond(rec, nil, &gateway.Error{
		Kind:    gateway.KindUnauthorized,
		Status:  http.StatusUnauthorized,
		Message: "unauthorized",
	})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	var env model.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Status != 401 || env.Message == "" {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestRespondUntypedError(t *testing.T) {
	h := NewProxyHandler(nil, &config.Default().Gateway)

	rec := httptest.NewRecorder()
	h.respond(rec, nil, errors.New("boom"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	var env model.ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &env)
	if env.Status != 500 {
		t.Errorf("unexpected envelope: %+v", env)
	}
}

func TestRespondPassthrough(t *testing.T) {
	h := NewProxyHandler(nil, &config.Default().Gateway)

	header := http.Header{}
	header.Set("X-Down", "1")
	header.Set("Content-Length", "9999")
	header.Set("Transfer-Encoding", "chunked")

	rec := httptest.NewRecorder()
	h.respond(rec, &gateway.Result{
		Status: http.StatusCreated,
		Header: header,
		Body:   []byte(`{"ok":true}`),
	}, nil)

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if rec.Body.String() != `{"ok":true}` {
		t.Errorf("body = %q", rec.Body.String())
	}
	if rec.Header().Get("X-Down") != "1" {
		t.Error("downstream headers must pass through")
	}
	if rec.Header().Get("Content-Length") == "9999" || rec.Header().Get("Transfer-Encoding") == "chunked" {
		t.Error("framing headers must be recomputed, not copied")
	}
}

func TestRespondBinary(t *testing.T) {
	h := NewProxyHandler(nil, &config.Default().Gateway)

	rec := httptest.NewRecorder()
	h.respond(rec, &gateway.Result{
		Status: http.StatusOK,
		Header: http.Header{},
		Body:   []byte{0x00, 0xFF},
		Binary: true,
	}, nil)

	if rec.Header().Get("Content-Type") != "application/octet-stream" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
}

func TestIsBinaryContentType(t *testing.T) {
	tests := []struct {
		ct   string
		want bool
	}{
		{"", false},
		{"application/json", false},
		{"application/json; charset=utf-8", false},
		{"text/plain", false},
		{"application/x-www-form-urlencoded", false},
		{"application/octet-stream", true},
		{"image/png", true},
		{"multipart/form-data; boundary=x", true},
	}
	for _, tt := range tests {
		if got := isBinaryContentType(tt.ct); got != tt.want {
			t.Errorf("isBinaryContentType(%q) = %v, want %v", tt.ct, got, tt.want)
		}
	}
}

func TestQueryIntPtr(t *testing.T) {
	r := httptest.NewRequest("GET", "/gateway/api?block=42", nil)
	n, err := queryIntPtr(r, "block")
	if err != nil || n == nil || *n != 42 {
		t.Errorf("got %v, %v", n, err)
	}

	r = httptest.NewRequest("GET", "/gateway/api", nil)
	n, err = queryIntPtr(r, "block")
	if err != nil || n != nil {
		t.Errorf("missing param must yield nil: %v, %v", n, err)
	}
}
