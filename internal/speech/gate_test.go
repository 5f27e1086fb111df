package speech

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSynth struct {
	audio []byte
	mime  string
	err   error
}

func (f fakeSynth) Synthesize(ctx context.Context, text, voice string) ([]byte, string, error) {
	return f.audio, f.mime, f.err
}

func TestWatchdogFor_ClampedToMinAndMax(t *testing.T) {
	assert.Equal(t, minWatchdog, watchdogFor("hi", minWatchdog, maxWatchdog))
	assert.Equal(t, maxWatchdog, watchdogFor(strings.Repeat("x", 1000), minWatchdog, maxWatchdog))
}

func TestWatchdogFor_ScalesLinearlyBetweenBounds(t *testing.T) {
	text := strings.Repeat("x", 200) // 200 * 70ms = 14s, within bounds
	assert.Equal(t, 14*time.Second, watchdogFor(text, minWatchdog, maxWatchdog))
}

func TestWatchdogFor_HonorsInjectedBounds(t *testing.T) {
	assert.Equal(t, 2*time.Second, watchdogFor("hi", 2*time.Second, 5*time.Second))
	assert.Equal(t, 5*time.Second, watchdogFor(strings.Repeat("x", 1000), 2*time.Second, 5*time.Second))
}

func TestGate_Speak_ResolvesOnAck(t *testing.T) {
	var published Request
	g := NewGate(func(r Request) { published = r })

	resultCh := make(chan error, 1)
	go func() {
		_, err := g.Speak(context.Background(), fakeSynth{audio: []byte{1, 2}, mime: "audio/pcm;rate=24000"}, "hello", "")
		resultCh <- err
	}()

	require.Eventually(t, func() bool { return published.ID != "" }, time.Second, time.Millisecond)
	g.Ack(published.ID)

	select {
	case err := <-resultCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Speak did not resolve after Ack")
	}
}

func TestGate_Speak_OnlyOneOutstandingRequest(t *testing.T) {
	g := NewGate(func(r Request) {})

	first := &pending{id: "first", done: make(chan error, 1)}
	g.current = first

	resultCh := make(chan error, 1)
	go func() {
		_, err := g.Speak(context.Background(), fakeSynth{audio: []byte{1}, mime: "audio/pcm"}, "second request", "")
		resultCh <- err
	}()

	select {
	case err := <-first.done:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(time.Second):
		t.Fatal("first request was not superseded")
	}

	g.Ack(published(g))
	<-resultCh
}

func published(g *Gate) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.current == nil {
		return ""
	}
	return g.current.id
}

func TestGate_Ack_IgnoredForStaleID(t *testing.T) {
	g := NewGate(func(r Request) {})
	g.current = &pending{id: "real", done: make(chan error, 1)}
	g.Ack("not-real")
	select {
	case <-g.current.done:
		t.Fatal("ack for unrelated id should not resolve the current request")
	default:
	}
}
