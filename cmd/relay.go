package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BioHazard786/warplink/internal/config"
	"github.com/BioHazard786/warplink/internal/relay"
	"github.com/BioHazard786/warplink/internal/ui"
	"github.com/spf13/cobra"
)

var (
	flagRelayAddr     string
	flagRelayMaxPeers int
)

const shutdownTimeout = 5 * time.Second

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the rendezvous relay server",
	Long: `Run the websocket relay that introduces peers to each other. Peers connect
to /ws; /health answers with 200 while the server is up.

Examples:
  warplink relay
  warplink relay --addr :9000 --max-peers 4`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Options{
			RelayAddr: flagRelayAddr,
			MaxPeers:  flagRelayMaxPeers,
		})
		if err != nil {
			return err
		}
		return serveRelay(cmd.Context(), cfg)
	},
}

func serveRelay(ctx context.Context, cfg *config.Config) error {
	log := slog.Default().With("addr", cfg.RelayAddr)

	hub := relay.NewHub(relay.WithMaxPeers(cfg.MaxPeers), relay.WithLogger(log))
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.RelayAddr,
		Handler:           relay.NewMux(hub),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	ui.PrintSuccessf("Relay listening on %s (max %d peers per room)", cfg.RelayAddr, cfg.MaxPeers)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	ui.PrintInfo("Shutting down relay...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		ui.PrintWarning(err.Error())
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func init() {
	rootCmd.AddCommand(relayCmd)

	relayCmd.Flags().StringVar(&flagRelayAddr, "addr", "", "Listen address (default "+config.DefaultRelayAddr+")")
	relayCmd.Flags().IntVar(&flagRelayMaxPeers, "max-peers", 0, "Peers allowed per room")
}
