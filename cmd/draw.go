package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BioHazard786/Warpdraw/internal/canvas"
	"github.com/BioHazard786/Warpdraw/internal/config"
	"github.com/BioHazard786/Warpdraw/internal/draw"
	"github.com/BioHazard786/Warpdraw/internal/handshake"
	"github.com/BioHazard786/Warpdraw/internal/logging"
	"github.com/BioHazard786/Warpdraw/internal/observability"
	"github.com/BioHazard786/Warpdraw/internal/signaling"
	"github.com/BioHazard786/Warpdraw/internal/transport"
	"github.com/BioHazard786/Warpdraw/internal/ui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	flagBusURL        string
	flagChannel       string
	flagSTUN          string
	flagTURN          string
	flagTURNUser      string
	flagTURNPass      string
	flagRelay         bool
	flagCodec         string
	flagTimeout       time.Duration
	flagReadyInterval time.Duration
	flagLogFile       string
)

var drawCmd = &cobra.Command{
	Use:     "draw",
	Aliases: []string{"d"},
	Short:   "Open the shared drawing surface",
	Long: `Join a channel on the signaling bus and draw with whoever else is there.

Press c to offer a connection; the other side confirms with y. Once connected,
drag with the left mouse button to draw.

Examples:
  warpdraw draw
  warpdraw draw --bus ws://draw.example.com/ws --channel sketch
  warpdraw draw --codec msgpack --log-file warpdraw.log`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDraw(cmd.Context())
	},
}

func runDraw(ctx context.Context) error {
	cfg, err := config.Load(config.Options{
		ConfigFile:    flagConfig,
		BusURL:        flagBusURL,
		Channel:       flagChannel,
		STUNServer:    flagSTUN,
		TURNServer:    flagTURN,
		TURNUser:      flagTURNUser,
		TURNPass:      flagTURNPass,
		ForceRelay:    flagRelay,
		Codec:         flagCodec,
		Timeout:       flagTimeout,
		ReadyInterval: flagReadyInterval,
	})
	if err != nil {
		return transport.NewError("load config", err)
	}

	codec, err := draw.NewCodec(cfg.Codec)
	if err != nil {
		return err
	}
	busURL, err := cfg.WebSocketURL()
	if err != nil {
		return err
	}

	// The full screen UI owns the terminal from here on.
	closeLog, err := logging.Redirect(flagLogFile)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer closeLog()
	logger := slog.Default()
	observability.RegisterMetrics()

	spin := ui.NewConnectionSpinner("Connecting to signaling bus...")
	spin.Start()
	client := signaling.NewClient(busURL, logger)
	if err := client.Connect(ctx); err != nil {
		spin.Error("Could not reach the signaling bus")
		return transport.NewError("connect to bus", err)
	}
	defer client.Close()
	spin.Success("Connected to " + cfg.BusURL)

	id := uuid.NewString()
	cv := canvas.New(80, 22)
	relay := draw.NewRelay(cv, codec, logger)
	notifier := ui.NewNotifier(logger)

	coord := handshake.New(client, transport.NewFactory(cfg, logger), handshake.Options{
		ID:                 id,
		OfferTimeout:       cfg.OfferTimeout,
		ConfirmTimeout:     cfg.ConfirmTimeout,
		AcknowledgeTimeout: cfg.AcknowledgeTimeout,
		ReadyInterval:      cfg.ReadyInterval,
		Listener:           handshake.Listeners{relay, notifier},
		Logger:             logger.With("participant", id),
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go coord.Run(runCtx)

	busErr := make(chan error, 1)
	go func() {
		err := signaling.Forward(runCtx, client.Incoming(), coord)
		if errors.Is(err, signaling.ErrBusClosed) {
			busErr <- err
			cancel()
		}
	}()

	model := ui.NewDrawModel(ui.Options{
		Controls:       coord,
		Pen:            relay,
		Canvas:         cv,
		Notifications:  notifier.Updates(),
		Done:           runCtx.Done(),
		ConfirmTimeout: cfg.ConfirmTimeout,
		Channel:        cfg.Channel,
	})

	started := time.Now()
	uiErr := ui.Run(runCtx, model)

	// Stop the coordinator first so a live session says bye before the bus
	// connection goes away.
	cancel()
	<-coord.Done()

	stats := relay.Stats()
	fmt.Println()
	ui.RenderSessionSummary(ui.SessionSummary{
		Participant: id,
		Channel:     cfg.Channel,
		Codec:       codec.Name(),
		Sessions:    stats.Sessions,
		Sent:        stats.Sent,
		Received:    stats.Received,
		Dropped:     stats.Dropped,
		Failed:      stats.Failed,
		LastOutcome: model.LastOutcome(),
		Duration:    time.Since(started),
	})

	if uiErr != nil {
		return uiErr
	}
	select {
	case err := <-busErr:
		return transport.WrapError("signaling", err, "connection to the bus was lost")
	default:
	}
	return nil
}

func init() {
	rootCmd.AddCommand(drawCmd)

	drawCmd.Flags().StringVarP(&flagBusURL, "bus", "b", "", "Signaling bus websocket URL")
	drawCmd.Flags().StringVarP(&flagChannel, "channel", "n", "", "Bus channel to join")
	drawCmd.Flags().StringVarP(&flagSTUN, "stun", "s", "", "Custom STUN server")
	drawCmd.Flags().StringVarP(&flagTURN, "turn", "t", "", "Custom TURN server")
	drawCmd.Flags().StringVarP(&flagTURNUser, "turn-user", "u", "", "TURN username")
	drawCmd.Flags().StringVarP(&flagTURNPass, "turn-pass", "p", "", "TURN password")
	drawCmd.Flags().BoolVarP(&flagRelay, "relay", "r", false, "Force relay mode")
	drawCmd.Flags().StringVar(&flagCodec, "codec", "", "Drawing instruction format (json or msgpack)")
	drawCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Offer, confirmation and acknowledge timeout")
	drawCmd.Flags().DurationVar(&flagReadyInterval, "ready-interval", 0, "Interval between ready announcements")
	drawCmd.Flags().StringVar(&flagLogFile, "log-file", "", "Write logs to this file while drawing")
}
