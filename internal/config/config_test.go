package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, name := range []string{
		"SERVER", "DOMAIN", "STUN_SERVER", "TURN_SERVER", "TURN_USERNAME", "TURN_PASSWORD",
		"FORCE_RELAY", "OUTPUT_DIR", "RELAY_ADDR", "CHUNK_SIZE", "MAX_PEERS",
		"HIGH_WATER_MARK", "LOW_WATER_MARK",
	} {
		t.Setenv(name, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(Options{})
	require.NoError(t, err)

	assert.Equal(t, DefaultDomain, cfg.Domain)
	assert.Equal(t, "wss://warpdrop.qzz.io/ws", cfg.WebSocketURL)
	assert.Equal(t, []string{DefaultSTUN}, cfg.GetSTUNServers())
	assert.Equal(t, 16*1024, cfg.ChunkSize)
	assert.Equal(t, uint64(8*1024*1024), cfg.HighWaterMark)
	assert.Equal(t, uint64(64*1024), cfg.LowWaterMark)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, ":8080", cfg.RelayAddr)
	assert.Equal(t, 2, cfg.MaxPeers)
	assert.False(t, cfg.ForceRelay)
}

func TestPrecedence(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOMAIN", "env.example.com")
	t.Setenv("STUN_SERVER", "stun:env")
	t.Setenv("CHUNK_SIZE", "4096")
	t.Setenv("FORCE_RELAY", "true")

	cfg, err := Load(Options{STUNServer: "stun:flag"})
	require.NoError(t, err)
	assert.Equal(t, "env.example.com", cfg.Domain)
	assert.Equal(t, "stun:flag", cfg.STUNServer)
	assert.Equal(t, 4096, cfg.ChunkSize)
	assert.True(t, cfg.ForceRelay)

	t.Setenv("SERVER", "server.example.com")
	cfg, err = Load(Options{ChunkSize: 1024})
	require.NoError(t, err)
	assert.Equal(t, "server.example.com", cfg.Domain)
	assert.Equal(t, 1024, cfg.ChunkSize)
}

func TestRelayURL(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		server string
		domain string
		url    string
	}{
		{"relay.example.com", "relay.example.com", "wss://relay.example.com/ws"},
		{"localhost:8080", "localhost:8080", "wss://localhost:8080/ws"},
		{"ws://localhost:8080", "localhost:8080", "ws://localhost:8080/ws"},
		{"http://127.0.0.1:9000/", "127.0.0.1:9000", "ws://127.0.0.1:9000/ws"},
		{"https://relay.example.com", "relay.example.com", "wss://relay.example.com/ws"},
		{"wss://relay.example.com/signal", "relay.example.com", "wss://relay.example.com/signal"},
	}
	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			cfg, err := Load(Options{Server: tt.server})
			require.NoError(t, err)
			assert.Equal(t, tt.domain, cfg.Domain)
			assert.Equal(t, tt.url, cfg.WebSocketURL)
		})
	}

	_, err := Load(Options{Server: "ftp://relay.example.com"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidation(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		opts Options
	}{
		{"negative chunk", Options{ChunkSize: -1}},
		{"low above high", Options{HighWaterMark: 1024, LowWaterMark: 2048}},
		{"low equals high", Options{HighWaterMark: 1024, LowWaterMark: 1024}},
		{"lonely room", Options{MaxPeers: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.opts)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	t.Setenv("CHUNK_SIZE", "lots")
	_, err := Load(Options{})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestTURNServers(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(Options{TURNServer: "turn:turn.example.com", TURNUser: "u", TURNPass: "p"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"turn:turn.example.com:3478?transport=udp",
		"turn:turn.example.com:3478?transport=tcp",
		"turns:turn.example.com:5349?transport=tcp",
	}, cfg.GetTURNServers())

	user, pass := cfg.GetTURNCredentials()
	assert.Equal(t, "u", user)
	assert.Equal(t, "p", pass)

	cfg, err = Load(Options{TURNServer: "none"})
	require.NoError(t, err)
	assert.Nil(t, cfg.GetTURNServers())
}
