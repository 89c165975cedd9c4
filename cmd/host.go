package cmd

import (
	"github.com/BioHazard786/warplink/internal/negotiation"
	"github.com/BioHazard786/warplink/internal/relay"
	"github.com/spf13/cobra"
)

var hostFlags peerFlags

var hostCmd = &cobra.Command{
	Use:     "host [room-id]",
	Aliases: []string{"h"},
	Short:   "Open a room and wait for a peer",
	Long: `Open a room as the initiating peer. Without a room ID a memorable one is
generated. Share it with your peer, who runs "warplink join <room-id>".

Examples:
  warplink host
  warplink host kitten-waffle-stardust-happy
  warplink host --server relay.example.com --dir ~/Downloads`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var room string
		if len(args) == 1 {
			r, err := parseRoomInput(args[0])
			if err != nil {
				return err
			}
			room = r
		} else {
			r, err := relay.GenerateRoomID()
			if err != nil {
				return err
			}
			room = r
		}

		cfg, err := LoadConfig(hostFlags.options())
		if err != nil {
			return err
		}
		return runPeer(cmd.Context(), room, negotiation.Initiator, cfg)
	},
}

func init() {
	rootCmd.AddCommand(hostCmd)
	hostFlags.register(hostCmd)
}
