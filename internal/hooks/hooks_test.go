package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/modseek/internal/logging"
)

func testManager() *Manager {
	return NewManager(logging.New(nil, "silent"))
}

func TestEmitCallsHandlersInOrder(t *testing.T) {
	m := testManager()
	var calls []string

	m.On(EventSearch, "first", func(_ context.Context, p Payload) error {
		calls = append(calls, "first:"+p.Event)
		return nil
	})
	m.On(EventSearch, "second", func(_ context.Context, _ Payload) error {
		calls = append(calls, "second")
		return nil
	})

	m.Emit(context.Background(), EventSearch, map[string]any{"query": "sodium"})
	assert.Equal(t, []string{"first:search", "second"}, calls)
}

func TestEmitUnknownEventIsNoop(t *testing.T) {
	m := testManager()
	m.Emit(context.Background(), "unheard-of", nil)
}

func TestHandlerErrorDoesNotStopOthers(t *testing.T) {
	m := testManager()
	var ran bool

	m.On(EventDownload, "fails", func(_ context.Context, _ Payload) error {
		return errors.New("boom")
	})
	m.On(EventDownload, "runs", func(_ context.Context, _ Payload) error {
		ran = true
		return nil
	})

	m.Emit(context.Background(), EventDownload, nil)
	assert.True(t, ran)
}

func TestOnAnyReceivesEverything(t *testing.T) {
	m := testManager()
	var seen []string

	m.OnAny("feed", func(_ context.Context, p Payload) error {
		seen = append(seen, p.Event)
		return nil
	})

	m.Emit(context.Background(), EventSearch, nil)
	m.Emit(context.Background(), EventDownload, nil)
	assert.Equal(t, []string{EventSearch, EventDownload}, seen)
}

func TestOffRemovesHandler(t *testing.T) {
	m := testManager()
	m.On(EventSearch, "gone", func(_ context.Context, _ Payload) error {
		t.Fatal("removed handler ran")
		return nil
	})
	m.Off(EventSearch, "gone")

	require.Zero(t, m.Count(EventSearch))
	m.Emit(context.Background(), EventSearch, nil)
}
