package cmd

import (
	"context"

	"github.com/BioHazard786/warplink/internal/version"
	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "warplink",
	Short: "Peer-to-peer chat and file exchange over WebRTC",
	Long: `WarpLink connects two terminals directly over a WebRTC data channel.
A small relay introduces the peers; after that, chat messages and files flow
peer to peer. Run "warplink relay" to host your own relay.`,
	Version: version.Version,
}

// Execute runs the root command. It is called once by main.main; ctx is
// cancelled on interrupt.
func Execute(ctx context.Context) error {
	rootCmd.SilenceUsage = true
	return fang.Execute(ctx, rootCmd)
}
