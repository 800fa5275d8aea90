package events

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) handle(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestBus() (*Bus, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	return NewBus(logger), &buf
}

func TestBus_DeliversByKind(t *testing.T) {
	bus, _ := newTestBus()
	var folders, files, all recorder

	bus.Subscribe(FolderCreated, folders.handle)
	bus.Subscribe(FileUploaded, files.handle)
	bus.SubscribeAll(all.handle)

	bus.Publish(context.Background(), Event{Kind: FolderCreated, ItemID: "f1"})
	bus.Publish(context.Background(), Event{Kind: FolderCreated, ItemID: "f2"})
	bus.Publish(context.Background(), Event{Kind: FileUploaded, ItemID: "x"})

	assert.Equal(t, 2, folders.count())
	assert.Equal(t, 1, files.count())
	assert.Equal(t, 3, all.count())
	assert.False(t, all.events[0].OccurredAt.IsZero())
}

func TestBus_FailingSubscribersAreIsolated(t *testing.T) {
	bus, logs := newTestBus()
	var after recorder

	bus.Subscribe(FileDeleted, func(context.Context, Event) error {
		panic("boom")
	})
	bus.Subscribe(FileDeleted, func(context.Context, Event) error {
		return errors.New("subscriber error")
	})
	bus.Subscribe(FileDeleted, after.handle)

	require.NotPanics(t, func() {
		bus.Publish(context.Background(), Event{Kind: FileDeleted, ItemID: "x"})
	})

	assert.Equal(t, 1, after.count())
	assert.Contains(t, logs.String(), "event subscriber panicked")
	assert.Contains(t, logs.String(), "subscriber error")
}

func TestBus_Unsubscribe(t *testing.T) {
	bus, _ := newTestBus()
	var r recorder

	unsubscribe := bus.Subscribe(FolderDeleted, r.handle)
	bus.Publish(context.Background(), Event{Kind: FolderDeleted})
	unsubscribe()
	unsubscribe()
	bus.Publish(context.Background(), Event{Kind: FolderDeleted})

	assert.Equal(t, 1, r.count())
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus, _ := newTestBus()
	var r recorder
	bus.SubscribeAll(r.handle)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(context.Background(), Event{Kind: FileMoved})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, r.count())
}

func TestAuditLogger(t *testing.T) {
	var buf bytes.Buffer
	h := AuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := h(context.Background(), Event{Kind: FolderRenamed, ItemID: "f1", Name: "new", OldName: "old"})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"kind":"folder.renamed"`)
	assert.Contains(t, out, `"old_name":"old"`)
}
