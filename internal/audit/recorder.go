package audit

import (
	"context"

	"github.com/google/uuid"

	"github.com/pxr-io/block-gateway/internal/model"
)

// Recorder assigns identity to audit entries and hands them to the store.
type Recorder struct {
	store *Store
}

// NewRecorder returns a recorder writing to store.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{store: store}
}

// Record persists one entry, assigning a fresh ID when none is set.
func (r *Recorder) Record(ctx context.Context, entry *model.AuditLog) error {
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		entry.ID = id.String()
	}
	return r.store.Save(ctx, entry)
}
