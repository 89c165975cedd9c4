package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// Default configuration values (production)
const (
	DefaultDomain   = "warpdrop.qzz.io"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
	DefaultTURN     = "turn:warpdrop.qzz.io"
	DefaultTURNUser = "warpdrop"
	DefaultTURNPass = "warpdrop-secret"

	DefaultChunkSize     = 16 * 1024
	DefaultHighWaterMark = 8 * 1024 * 1024
	DefaultLowWaterMark  = 64 * 1024

	DefaultRelayAddr = ":8080"
	DefaultMaxPeers  = 2
)

var ErrInvalid = errors.New("invalid configuration")

// Config holds application configuration
type Config struct {
	// Domain is the relay host, possibly with a port
	Domain string

	// WebSocketURL is where the relay accepts websocket connections
	WebSocketURL string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	// OutputDir receives incoming files
	OutputDir string

	ChunkSize     int
	HighWaterMark uint64
	LowWaterMark  uint64

	// Relay server settings
	RelayAddr string
	MaxPeers  int
}

// Options for loading config with CLI flag overrides. Zero values fall
// through to the environment and then to the defaults.
type Options struct {
	// Server is a domain ("relay.example.com") or a full ws/wss/http/https URL.
	Server     string
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	OutputDir     string
	ChunkSize     int
	HighWaterMark uint64
	LowWaterMark  uint64

	RelayAddr string
	MaxPeers  int
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	server := first(opts.Server, os.Getenv("SERVER"), os.Getenv("DOMAIN"), DefaultDomain)
	domain, wsURL, err := relayURL(server)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Domain:       domain,
		WebSocketURL: wsURL,
		STUNServer:   first(opts.STUNServer, os.Getenv("STUN_SERVER"), DefaultSTUN),
		TURNServer:   first(opts.TURNServer, os.Getenv("TURN_SERVER"), DefaultTURN),
		TURNUser:     first(opts.TURNUser, os.Getenv("TURN_USERNAME"), DefaultTURNUser),
		TURNPass:     first(opts.TURNPass, os.Getenv("TURN_PASSWORD"), DefaultTURNPass),
		ForceRelay:   opts.ForceRelay || envBool("FORCE_RELAY"),
		OutputDir:    first(opts.OutputDir, os.Getenv("OUTPUT_DIR"), "."),
		RelayAddr:    first(opts.RelayAddr, os.Getenv("RELAY_ADDR"), DefaultRelayAddr),
	}

	// "none" switches TURN off entirely
	if strings.EqualFold(cfg.TURNServer, "none") {
		cfg.TURNServer = ""
	}

	if cfg.ChunkSize, err = intSetting(opts.ChunkSize, "CHUNK_SIZE", DefaultChunkSize); err != nil {
		return nil, err
	}
	if cfg.MaxPeers, err = intSetting(opts.MaxPeers, "MAX_PEERS", DefaultMaxPeers); err != nil {
		return nil, err
	}
	high, err := intSetting(int(opts.HighWaterMark), "HIGH_WATER_MARK", DefaultHighWaterMark)
	if err != nil {
		return nil, err
	}
	low, err := intSetting(int(opts.LowWaterMark), "LOW_WATER_MARK", DefaultLowWaterMark)
	if err != nil {
		return nil, err
	}
	cfg.HighWaterMark, cfg.LowWaterMark = uint64(high), uint64(low)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the numeric settings.
func (c *Config) Validate() error {
	switch {
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalid, c.ChunkSize)
	case c.LowWaterMark == 0:
		return fmt.Errorf("%w: low-water mark must be positive", ErrInvalid)
	case c.LowWaterMark >= c.HighWaterMark:
		return fmt.Errorf("%w: low-water mark %d must be below high-water mark %d", ErrInvalid, c.LowWaterMark, c.HighWaterMark)
	case c.MaxPeers < 2:
		return fmt.Errorf("%w: a room needs room for at least 2 peers, got %d", ErrInvalid, c.MaxPeers)
	}
	return nil
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	if c.STUNServer == "" {
		return nil
	}
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(strings.TrimPrefix(c.TURNServer, "turns:"), "turn:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}

// relayURL turns a domain or URL into the relay's host and websocket URL.
// Bare domains get wss; http and ws URLs stay plain.
func relayURL(server string) (string, string, error) {
	if !strings.Contains(server, "://") {
		server = "wss://" + server
	}
	u, err := url.Parse(server)
	if err != nil {
		return "", "", fmt.Errorf("%w: relay server %q: %v", ErrInvalid, server, err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", "", fmt.Errorf("%w: relay server scheme %q", ErrInvalid, u.Scheme)
	}
	if u.Host == "" {
		return "", "", fmt.Errorf("%w: relay server %q has no host", ErrInvalid, server)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.Host, u.String(), nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func intSetting(flag int, env string, def int) (int, error) {
	if flag != 0 {
		return flag, nil
	}
	if v := os.Getenv(env); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %s=%q", ErrInvalid, env, v)
		}
		return n, nil
	}
	return def, nil
}

func envBool(name string) bool {
	b, _ := strconv.ParseBool(os.Getenv(name))
	return b
}
