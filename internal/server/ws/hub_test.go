package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polydraft/polydraft/internal/ledger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBroadcastReachesOnlySubscribedClients(t *testing.T) {
	h := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	sub := &client{hub: h, send: make(chan []byte, 1), subs: map[string]bool{"pack-1": true}}
	other := &client{hub: h, send: make(chan []byte, 1), subs: map[string]bool{"pack-2": true}}
	h.register <- sub
	h.register <- other

	h.BroadcastPackUpdate("pack-1", ledger.Snapshot{TotalPoints: 3})

	select {
	case data := <-sub.send:
		var upd packUpdate
		require.NoError(t, json.Unmarshal(data, &upd))
		assert.Equal(t, "pack_update", upd.Type)
		assert.Equal(t, "pack-1", upd.PackID)
	case <-time.After(time.Second):
		t.Fatal("subscribed client did not receive the update")
	}

	select {
	case <-other.send:
		t.Fatal("unsubscribed client received the update")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDisconnectDoesNotBlockAfterShutdown(t *testing.T) {
	h := NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		_ = h.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("hub loop did not stop")
	}

	// A client tearing down after the loop exited must not hang on the
	// unregister handoff.
	finished := make(chan struct{})
	go func() {
		h.disconnect(&client{hub: h, send: make(chan []byte, 1)})
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("disconnect blocked after hub shutdown")
	}
}
