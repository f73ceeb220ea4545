package audit

import (
	"context"
	"testing"
	"time"

	"github.com/pxr-io/block-gateway/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore("sqlite", "")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testEntry() *model.AuditLog {
	now := time.Now().UTC()
	return &model.AuditLog{
		ID:               "0198f2f0-0000-7000-8000-000000000001",
		Type:             model.CallProxy,
		Method:           "GET",
		FromBlockCode:    10,
		FromBlockVersion: 1,
		FromURL:          "https://blockx-service-01/",
		ToBlockCode:      20,
		ToBlockVersion:   2,
		ToURL:            "https://blocky-service-01/gateway/reverse/api?path=%2Finfo-manage%2Flist",
		CreatedBy:        "alice",
		UpdatedBy:        "alice",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestStoreSave(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, testEntry()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM audit_log"); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}

	var got struct {
		Type          model.CallType `db:"type"`
		Method        string         `db:"method"`
		FromBlockCode int            `db:"from_block_code"`
		ToBlockCode   int            `db:"to_block_code"`
		CreatedBy     string         `db:"created_by"`
	}
	const q = "SELECT type, method, from_block_code, to_block_code, created_by FROM audit_log LIMIT 1"
	if err := s.db.GetContext(ctx, &got, q); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got.Method != "GET" || got.FromBlockCode != 10 || got.ToBlockCode != 20 || got.CreatedBy != "alice" {
		t.Errorf("unexpected row: %+v", got)
	}
	if got.Type != model.CallProxy {
		t.Errorf("type = %d", got.Type)
	}
}

func TestStoreSaveDuplicateID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	entry := testEntry()
	if err := s.Save(ctx, entry); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, entry); err == nil {
		t.Error("expected primary key violation on duplicate id")
	}
}

func TestStoreUnsupportedDriver(t *testing.T) {
	if _, err := NewStore("oracle", "dsn"); err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestStorePing(t *testing.T) {
	s := testStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestRecorderAssignsID(t *testing.T) {
	s := testStore(t)
	r := NewRecorder(s)

	entry := testEntry()
	entry.ID = ""
	if err := r.Record(context.Background(), entry); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if entry.ID == "" {
		t.Error("expected a generated id")
	}

	keep := testEntry()
	if err := r.Record(context.Background(), keep); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if keep.ID != testEntry().ID {
		t.Error("a preset id must be kept")
	}
}
