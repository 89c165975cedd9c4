package signaling_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BioHazard786/warplink/internal/relay"
	"github.com/BioHazard786/warplink/internal/signaling"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRelay(t *testing.T) (string, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := relay.NewHub()
	go hub.Run(ctx)

	srv := httptest.NewServer(relay.NewMux(hub))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws", cancel
}

func connect(t *testing.T, url string) *signaling.Client {
	t.Helper()
	c := signaling.NewClient(url)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(c.Close)
	return c
}

func next(t *testing.T, c *signaling.Client) signaling.Event {
	t.Helper()
	select {
	case ev, ok := <-c.Events():
		require.True(t, ok, "event stream closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return signaling.Event{}
	}
}

func TestClientsNegotiateThroughRelay(t *testing.T) {
	url, _ := startRelay(t)
	a := connect(t, url)
	b := connect(t, url)

	require.NoError(t, a.Join("42"))
	require.NoError(t, b.Join("42"))

	assert.Equal(t, signaling.EventPeerJoined, next(t, a).Kind)
	assert.Equal(t, signaling.EventPeerJoined, next(t, b).Kind)

	require.NoError(t, a.SendOffer("42", []byte(`{"type":"offer","sdp":"v=0"}`)))
	ev := next(t, b)
	assert.Equal(t, signaling.EventOffer, ev.Kind)
	assert.Equal(t, "42", ev.Room)
	assert.JSONEq(t, `{"type":"offer","sdp":"v=0"}`, string(ev.Payload))

	require.NoError(t, b.SendAnswer("42", []byte(`{"type":"answer","sdp":"v=0"}`)))
	assert.Equal(t, signaling.EventAnswer, next(t, a).Kind)

	require.NoError(t, b.SendCandidate("42", []byte(`{"candidate":"c"}`)))
	ev = next(t, a)
	assert.Equal(t, signaling.EventCandidate, ev.Kind)
	assert.JSONEq(t, `{"candidate":"c"}`, string(ev.Payload))
}

func TestClientRejectsNonJSONPayload(t *testing.T) {
	url, _ := startRelay(t)
	a := connect(t, url)

	assert.ErrorIs(t, a.SendOffer("42", []byte("not json")), signaling.ErrInvalidPayload)
}

func TestClientRelayError(t *testing.T) {
	url, _ := startRelay(t)
	a := connect(t, url)

	require.NoError(t, a.SendAnswer("nowhere", []byte(`{}`)))
	ev := next(t, a)
	assert.Equal(t, signaling.EventError, ev.Kind)
	assert.ErrorIs(t, ev.Err, signaling.ErrRelay)
}

func TestClientDisconnected(t *testing.T) {
	url, stop := startRelay(t)
	a := connect(t, url)

	stop()

	ev := next(t, a)
	assert.Equal(t, signaling.EventDisconnected, ev.Kind)

	_, ok := <-a.Events()
	assert.False(t, ok)
	assert.Eventually(t, func() bool {
		return a.Join("42") == signaling.ErrClosed
	}, time.Second, 10*time.Millisecond)
}

func TestClientSendAfterClose(t *testing.T) {
	url, _ := startRelay(t)
	a := connect(t, url)

	a.Close()
	a.Close()
	assert.ErrorIs(t, a.Join("42"), signaling.ErrClosed)
}
