package dgcore

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/HPNChanel/data-guardian/internal/config"
	"github.com/HPNChanel/data-guardian/internal/daemon"
	"github.com/HPNChanel/data-guardian/internal/logstream"
	"github.com/HPNChanel/data-guardian/internal/transport"
)

var (
	flagTCPPort  int
	flagAllowTCP bool
	flagPolicy   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&flagTCPPort, "tcp-port", 0, "listen on loopback TCP instead of the native endpoint (requires --allow-tcp)")
	serveCmd.Flags().BoolVar(&flagAllowTCP, "allow-tcp", false, "permit the loopback TCP fallback")
	serveCmd.Flags().StringVar(&flagPolicy, "policy", "", "policy file to load at startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	applyServeFlags(cfg)

	endpoint, err := cfg.Endpoint()
	if err != nil {
		return err
	}

	logs := logstream.New(cfg.Limits.LogQueue)
	logger := logstream.NewLogger(os.Stderr, logLevel(cfg.Logging.Level), logs)
	slog.SetDefault(logger)

	srv, err := daemon.New(daemon.Options{
		Endpoint:        endpoint,
		Version:         version,
		MaxMessageBytes: cfg.Limits.MaxMessageBytes,
		ReadTimeout:     cfg.Limits.ReadTimeout(),
		LogQueue:        cfg.Limits.LogQueue,
		RatePerSec:      cfg.Limits.RatePerSec,
		RateBurst:       cfg.Limits.RateBurst,
		PolicyPath:      cfg.Policy,
		Logger:          logger,
	}, logs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Serve(ctx)
}

func applyServeFlags(cfg *config.Config) {
	if flagSocket != "" {
		cfg.IPC.Transport = string(transport.KindUnix)
		cfg.IPC.SocketPath = flagSocket
	}
	if flagPipe != "" {
		cfg.IPC.Transport = string(transport.KindPipe)
		cfg.IPC.NamedPipe = flagPipe
	}
	if flagTCPPort > 0 {
		cfg.IPC.Transport = string(transport.KindTCP)
		cfg.IPC.TCPPort = flagTCPPort
	}
	if flagAllowTCP {
		cfg.IPC.AllowTCP = true
	}
	if flagPolicy != "" {
		cfg.Policy = flagPolicy
	}
	if flagVerbose {
		cfg.Logging.Level = "debug"
	}
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
