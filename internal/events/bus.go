// Package events is an in-process, at-most-once publish/subscribe bus for
// hierarchy mutations.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// Kind identifies a domain event
type Kind string

const (
	FileUploaded   Kind = "file.uploaded"
	FileDownloaded Kind = "file.downloaded"
	FileRenamed    Kind = "file.renamed"
	FileMoved      Kind = "file.moved"
	FileDeleted    Kind = "file.deleted"
	FolderCreated  Kind = "folder.created"
	FolderRenamed  Kind = "folder.renamed"
	FolderMoved    Kind = "folder.moved"
	FolderDeleted  Kind = "folder.deleted"
)

// Kinds lists every event kind
func Kinds() []Kind {
	return []Kind{
		FileUploaded, FileDownloaded, FileRenamed, FileMoved, FileDeleted,
		FolderCreated, FolderRenamed, FolderMoved, FolderDeleted,
	}
}

// Event is one mutation notification
type Event struct {
	Kind       Kind
	OwnerID    string
	ItemID     string
	Name       string
	ParentID   *string
	OldName    string  // renames
	OldParent  *string // moves
	Size       int64   // uploads
	OccurredAt time.Time
}

// Handler reacts to an event. Errors are logged by the bus and go no further.
type Handler func(ctx context.Context, evt Event) error

type subscription struct {
	id      uint64
	kind    Kind // empty = all kinds
	handler Handler
}

// Bus dispatches events synchronously to subscribers in registration order.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription
	nextID uint64
	logger *slog.Logger
}

// NewBus creates an empty bus
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Subscribe registers h for one kind and returns a function that removes it
func (b *Bus) Subscribe(kind Kind, h Handler) func() {
	return b.add(kind, h)
}

// SubscribeAll registers h for every kind
func (b *Bus) SubscribeAll(h Handler) func() {
	return b.add("", h)
}

func (b *Bus) add(kind Kind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription{id: id, kind: kind, handler: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subs {
		if s.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers evt to every matching subscriber. It never fails.
func (b *Bus) Publish(ctx context.Context, evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now()
	}

	b.mu.RLock()
	targets := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.kind == "" || s.kind == evt.Kind {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		b.deliver(ctx, s, evt)
	}
}

func (b *Bus) deliver(ctx context.Context, s subscription, evt Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event subscriber panicked",
				"kind", evt.Kind,
				"item_id", evt.ItemID,
				"subscription", s.id,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	if err := s.handler(ctx, evt); err != nil {
		b.logger.Warn("event subscriber failed",
			"kind", evt.Kind,
			"item_id", evt.ItemID,
			"subscription", s.id,
			"error", err,
		)
	}
}
