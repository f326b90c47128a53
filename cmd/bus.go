package cmd

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/BioHazard786/Warpdraw/internal/bus"
	"github.com/BioHazard786/Warpdraw/internal/config"
	"github.com/BioHazard786/Warpdraw/internal/transport"
	"github.com/BioHazard786/Warpdraw/internal/ui"
	"github.com/BioHazard786/Warpdraw/internal/version"
	"github.com/spf13/cobra"
)

var flagAddr string

var busCmd = &cobra.Command{
	Use:   "bus",
	Short: "Run the signaling bus",
	Long: `Run the websocket signaling bus. Every text frame a client publishes is
relayed to all other clients on the same channel.

Examples:
  warpdraw bus
  warpdraw bus --addr :9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Options{
			ConfigFile: flagConfig,
			BusAddr:    flagAddr,
		})
		if err != nil {
			return transport.NewError("load config", err)
		}

		return bus.Serve(cmd.Context(), cfg.BusAddr, version.Version, slog.Default(), func(addr net.Addr) {
			fmt.Println(ui.BusInfo{Addr: cfg.BusAddr, Version: version.Version}.View())
		})
	},
}

func init() {
	rootCmd.AddCommand(busCmd)

	busCmd.Flags().StringVarP(&flagAddr, "addr", "a", "", "Listen address")
}
