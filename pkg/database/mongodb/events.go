package mongodb

import (
	"context"
	"time"
)

// Operation names a repository operation in logs, metrics and change events.
type Operation string

const (
	OpGet            Operation = "get"
	OpFirstOrDefault Operation = "first_or_default"
	OpFindAll        Operation = "find_all"
	OpCount          Operation = "count"
	OpInsert         Operation = "insert"
	OpReplace        Operation = "replace"
	OpUpdateField    Operation = "update_field"
	OpUpdate         Operation = "update"
	OpDelete         Operation = "delete"
	OpDeleteBulk     Operation = "delete_bulk"
	OpBulkInsert     Operation = "bulk_insert"
	OpBulkUpsert     Operation = "bulk_upsert"
	OpDrop           Operation = "drop"
)

// ChangeEvent describes a write that has been applied.
type ChangeEvent struct {
	Database   string    `json:"database"`
	Collection string    `json:"collection"`
	Operation  Operation `json:"operation"`
	IDs        []string  `json:"ids,omitempty"`
	Count      int64     `json:"count"`
	Time       time.Time `json:"time"`
}

// ChangeListener is notified after every successful write.
// Implementations must not block for long; the write has already happened.
type ChangeListener interface {
	OnChange(ctx context.Context, event ChangeEvent)
}

// ChangeListenerFunc adapts a function to ChangeListener.
type ChangeListenerFunc func(ctx context.Context, event ChangeEvent)

// OnChange calls f.
func (f ChangeListenerFunc) OnChange(ctx context.Context, event ChangeEvent) {
	f(ctx, event)
}
