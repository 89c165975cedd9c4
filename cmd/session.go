package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BioHazard786/warplink/internal/config"
	"github.com/BioHazard786/warplink/internal/dns"
	"github.com/BioHazard786/warplink/internal/negotiation"
	"github.com/BioHazard786/warplink/internal/session"
	"github.com/BioHazard786/warplink/internal/signaling"
	"github.com/BioHazard786/warplink/internal/transfer"
	"github.com/BioHazard786/warplink/internal/ui"
	"github.com/BioHazard786/warplink/internal/webrtc"
	"github.com/spf13/cobra"
)

// peerFlags are shared by host and join.
type peerFlags struct {
	server    string
	stun      string
	turn      string
	turnUser  string
	turnPass  string
	relay     bool
	dir       string
	chunkSize int
}

func (f *peerFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.server, "server", "", "Relay domain or ws/wss URL")
	cmd.Flags().StringVarP(&f.stun, "stun", "s", "", "Custom STUN server")
	cmd.Flags().StringVarP(&f.turn, "turn", "t", "", `Custom TURN server ("none" disables TURN)`)
	cmd.Flags().StringVar(&f.turnUser, "turn-user", "", "TURN username")
	cmd.Flags().StringVar(&f.turnPass, "turn-pass", "", "TURN password")
	cmd.Flags().BoolVarP(&f.relay, "relay", "r", false, "Force relay mode")
	cmd.Flags().StringVarP(&f.dir, "dir", "d", "", "Directory to save received files")
	cmd.Flags().IntVar(&f.chunkSize, "chunk-size", 0, "Bytes per file chunk")
}

func (f *peerFlags) options() config.Options {
	return config.Options{
		Server:     f.server,
		STUNServer: f.stun,
		TURNServer: f.turn,
		TURNUser:   f.turnUser,
		TURNPass:   f.turnPass,
		ForceRelay: f.relay,
		OutputDir:  f.dir,
		ChunkSize:  f.chunkSize,
	}
}

func LoadConfig(opts config.Options) (*config.Config, error) {
	cfg, err := config.Load(opts)
	if err != nil {
		return nil, transfer.NewError("load config", err)
	}

	if cfg.ForceRelay && cfg.GetTURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}

	return cfg, nil
}

// runPeer connects to the relay, starts a session for room and runs the chat
// screen until the user leaves.
func runPeer(ctx context.Context, room string, role negotiation.Role, cfg *config.Config) error {
	log := slog.Default().With("room", room, "role", role)

	fmt.Println(ui.RoomInfo{RoomID: room, Host: role == negotiation.Initiator}.View())

	stopSpinner := ui.RunConnectionSpinner("Connecting to relay...")
	client := signaling.NewClient(cfg.WebSocketURL,
		signaling.WithResolver(dns.NewResolver()),
		signaling.WithLogger(log),
	)
	err := client.Connect(ctx)
	stopSpinner()
	if err != nil {
		return transfer.NewError("connect to relay", err)
	}
	defer client.Close()

	link, err := webrtc.NewLink(webrtc.Configuration(cfg), webrtc.WithLogger(log))
	if err != nil {
		return transfer.NewError("create peer connection", err)
	}

	bridge := ui.NewBridge()
	sess, err := session.New(room, role, client, link, bridge.Callbacks(), session.Config{
		ChunkSize:     cfg.ChunkSize,
		HighWaterMark: cfg.HighWaterMark,
		LowWaterMark:  cfg.LowWaterMark,
		Sink:          transfer.NewDiskSink(cfg.OutputDir),
	})
	if err != nil {
		link.Close()
		return err
	}

	sessions := session.NewRegistry()
	if err := sessions.Add(sess); err != nil {
		sess.Close()
		return err
	}
	defer sessions.CloseAll()

	go sessions.Run(ctx, client.Events())

	if err := sess.Start(ctx); err != nil {
		return err
	}

	model, err := ui.RunChat(ctx, sess, bridge)
	sessions.CloseAll()
	model.Close()
	if err != nil && ctx.Err() == nil {
		return err
	}

	fmt.Println(ui.SummaryView(model.Summary(), time.Now()))
	return nil
}

// parseRoomInput accepts a bare room id or a share URL ending in /r/<id>.
func parseRoomInput(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", errors.New("room ID cannot be empty")
	}

	if strings.Contains(input, "://") || strings.Contains(input, "/r/") {
		roomID, err := extractRoomIDFromURL(input)
		if err != nil {
			return "", err
		}
		return roomID, nil
	}

	return input, nil
}

func extractRoomIDFromURL(urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", transfer.NewError("parse URL", err)
	}

	path := strings.TrimSuffix(parsedURL.Path, "/")
	parts := strings.Split(path, "/")

	for i, part := range parts {
		if part == "r" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}

	return "", fmt.Errorf("could not extract room ID from URL: %s", urlStr)
}
