package dns

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func static(ips ...string) LookupFunc {
	return func(context.Context, string) ([]string, error) { return ips, nil }
}

func failing(context.Context, string) ([]string, error) {
	return nil, errors.New("SERVFAIL")
}

func TestLookupPrefersSystemAndIPv4(t *testing.T) {
	r := NewResolver().WithLookups(static("2001:db8::1", "192.0.2.10"), static("198.51.100.1"))

	ip, err := r.Lookup(context.Background(), "relay.example")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10", ip)
}

func TestLookupFallsBackToRace(t *testing.T) {
	slow := func(ctx context.Context, _ string) ([]string, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	r := NewResolver().WithLookups(failing, failing, slow, static("198.51.100.7"))

	ip, err := r.Lookup(context.Background(), "relay.example")
	require.NoError(t, err)
	assert.Equal(t, "198.51.100.7", ip)
}

func TestLookupAllFail(t *testing.T) {
	r := NewResolver().WithLookups(failing, failing, static())

	_, err := r.Lookup(context.Background(), "relay.example")
	assert.ErrorIs(t, err, ErrNoAddress)
}

func TestLookupTimesOut(t *testing.T) {
	hang := func(context.Context, string) ([]string, error) {
		time.Sleep(time.Second)
		return nil, errors.New("too late")
	}
	r := NewResolver().WithLookups(failing, hang)
	r.RemoteTimeout = 20 * time.Millisecond

	_, err := r.Lookup(context.Background(), "relay.example")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLookupLiteral(t *testing.T) {
	r := NewResolver().WithLookups(failing)

	ip, err := r.Lookup(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", ip)
}

func TestTrimBrackets(t *testing.T) {
	assert.Equal(t, "2620:fe::fe", trimBrackets("[2620:fe::fe]"))
	assert.Equal(t, "9.9.9.9", trimBrackets("9.9.9.9"))
}
