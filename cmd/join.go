package cmd

import (
	"github.com/BioHazard786/warplink/internal/negotiation"
	"github.com/spf13/cobra"
)

var joinFlags peerFlags

var joinCmd = &cobra.Command{
	Use:     "join <room-id|url>",
	Aliases: []string{"j"},
	Short:   "Join a peer's room",
	Long: `Join a room opened with "warplink host".

Examples:
  warplink join kitten-waffle-stardust-happy
  warplink join https://relay.example.com/r/kitten-waffle-stardust-happy
  warplink join kitten-waffle-stardust-happy --relay`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		room, err := parseRoomInput(args[0])
		if err != nil {
			return err
		}

		cfg, err := LoadConfig(joinFlags.options())
		if err != nil {
			return err
		}
		return runPeer(cmd.Context(), room, negotiation.Joiner, cfg)
	},
}

func init() {
	rootCmd.AddCommand(joinCmd)
	joinFlags.register(joinCmd)
}
