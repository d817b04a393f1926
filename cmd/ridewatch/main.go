package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rideline/ridewatch"
	"github.com/rideline/ridewatch/internal/logger"
	"github.com/rideline/ridewatch/internal/notify"
	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the root command and wires all subcommands
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	createFlags := &CreateFlags{}
	statusFlags := &StatusFlags{}
	cancelFlags := &CancelFlags{}
	tokenFlags := &TokenFlags{}

	cli := command{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createServeCommand(globalFlags),
		createCreateCommand(cli, createFlags),
		createStatusCommand(cli, statusFlags),
		createCancelCommand(cli, cancelFlags),
		createTokenCommand(cli, tokenFlags),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "ridewatch",
		Short: "Ride-request status relay and monitor",
		Long: `Ridewatch watches ride requests on an upstream dispatch service and
relays status transitions to passengers as notifications.

Examples:
  ridewatch serve --config=config.toml
  ridewatch create --recipient=5531999990000 --origin="Rua A, 10" --destination="Av. B, 20"
  ridewatch status                       # All active monitors
  ridewatch status --id=12345            # One request
  ridewatch cancel --id=12345
  ridewatch status --api-url=http://remote:8080/api`,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

// createServeCommand creates the serve subcommand
func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{}

	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the ridewatch daemon",
		Long: `Start the ridewatch daemon. It exposes the HTTP API, polls the
upstream dispatch service for every monitored request, and relays
status notices to the configured channels.

Examples:
  ridewatch serve config.toml
  ridewatch serve --config=config.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			serveFlags.ConfigPath = globalFlags.ConfigPath
			return runServeCommand(serveFlags, args)
		},
	}
	return cmd
}

func runServeCommand(flags *ServeFlags, args []string) error {
	configPath := flags.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}
	if configPath == "" {
		return fmt.Errorf("config file required for serve command. Use --config=config.toml or provide as argument")
	}

	cfg, err := ridewatch.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	log := logger.Setup(cfg.LoggerConfig())

	dispatcher := ridewatch.NewDispatchClient(cfg.DispatchClientConfig())

	// Notification channels. The WhatsApp gateway is the primary channel;
	// AMQP and the websocket hub fan out the same notices.
	hub := notify.NewHub()
	notifiers := notify.Multi{hub}
	if cfg.Notify.WhatsApp != nil {
		notifiers = append(notifiers, notify.NewWhatsApp(cfg.WhatsAppClientConfig()))
	}
	var amqpNotifier *notify.AMQP
	if cfg.Notify.AMQP != nil {
		amqpNotifier, err = notify.NewAMQP(notify.AMQPConfig{
			URL:      cfg.Notify.AMQP.URL,
			Exchange: cfg.Notify.AMQP.Exchange,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to AMQP broker: %w", err)
		}
		notifiers = append(notifiers, amqpNotifier)
	}

	mgr := ridewatch.New(cfg.MonitorConfig(), ridewatch.Deps{
		Stager:   dispatcher,
		Creator:  dispatcher,
		Notifier: notify.Logging{Next: notifiers, Logger: log},
	})

	// Audit history sinks from DSNs.
	sinks := make([]ridewatch.HistorySink, 0, len(cfg.History.Sinks))
	for _, dsn := range cfg.History.Sinks {
		sink, err := ridewatch.NewSinkFromDSN(dsn)
		if err != nil {
			return fmt.Errorf("failed to open history sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	mgr.SetHistorySinks(sinks...)

	if cfg.Server.MetricsListen != "" {
		if err := ridewatch.RegisterMetricsDefault(); err != nil {
			log.Warn("failed to register metrics", "error", err)
		}
		go func() {
			if err := ridewatch.ServeMetrics(cfg.Server.MetricsListen); err != nil {
				log.Error("metrics server error", "error", err)
			}
		}()
	}

	server := ridewatch.NewHTTPServer(cfg.Server.Listen, cfg.Server.BasePath, mgr, dispatcher, hub, cfg.Auth.JWTSecret)
	go func() {
		if err := server.ListenAndServe(); err != nil {
			log.Error("http server stopped", "error", err)
		}
	}()

	fmt.Printf("Starting ridewatch server on %s%s\n", cfg.Server.Listen, cfg.Server.BasePath)

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	fmt.Println("Shutting down...")
	mgr.Shutdown(5 * time.Second)
	if amqpNotifier != nil {
		_ = amqpNotifier.Close()
	}
	for _, s := range sinks {
		if c, ok := s.(io.Closer); ok {
			_ = c.Close()
		}
	}
	return server.Close()
}

// createCreateCommand creates the create subcommand
func createCreateCommand(cli command, createFlags *CreateFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a ride and start monitoring it",
		Long: `Create a ride request on the upstream dispatch service via the daemon.
The daemon starts polling the new request immediately and notifies the
recipient on every status transition.

Examples:
  ridewatch create --recipient=5531999990000 --origin="Rua A, 10" --destination="Av. B, 20"
  ridewatch create --recipient=5531999990000 --origin="Rua A, 10" --destination="Av. B, 20" --fare="23,50"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Create(*createFlags)
		},
	}

	cmd.Flags().StringVar(&createFlags.Recipient, "recipient", "", "notification recipient (required)")
	cmd.Flags().StringVar(&createFlags.Origin, "origin", "", "pickup address (required)")
	cmd.Flags().StringVar(&createFlags.Destination, "destination", "", "dropoff address (required)")
	cmd.Flags().StringVar(&createFlags.Fare, "fare", "", "negotiated fare")
	cmd.Flags().StringVar(&createFlags.Note, "note", "", "note for the driver")
	cmd.Flags().StringVar(&createFlags.APIUrl, "api-url", "", "remote daemon URL (e.g. http://host:8080/api)")
	cmd.Flags().StringVar(&createFlags.APIToken, "api-token", "", "bearer token for the daemon API")
	cmd.Flags().DurationVar(&createFlags.APITimeout, "api-timeout", 30*time.Second, "request timeout")

	for _, name := range []string{"recipient", "origin", "destination"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	return cmd
}

// createStatusCommand creates the status subcommand
func createStatusCommand(cli command, statusFlags *StatusFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show monitor status",
		Long: `Show the status of requests monitored by the daemon.

Examples:
  ridewatch status                  # Show all active monitors
  ridewatch status --id=12345       # Show one request
  ridewatch status --api-url=http://remote:8080/api`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Status(*statusFlags)
		},
	}
	cmd.Flags().StringVar(&statusFlags.RequestID, "id", "", "request id (optional)")
	cmd.Flags().StringVar(&statusFlags.APIUrl, "api-url", "", "remote daemon URL (e.g. http://host:8080/api)")
	cmd.Flags().StringVar(&statusFlags.APIToken, "api-token", "", "bearer token for the daemon API")
	cmd.Flags().DurationVar(&statusFlags.APITimeout, "api-timeout", 30*time.Second, "request timeout")
	return cmd
}

// createCancelCommand creates the cancel subcommand
func createCancelCommand(cli command, cancelFlags *CancelFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a monitored ride",
		Long: `Cancel a ride request on the upstream dispatch service. The monitor
observes the cancellation on its next poll and stops.

Examples:
  ridewatch cancel --id=12345
  ridewatch cancel --id=12345 --api-url=http://remote:8080/api`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Cancel(*cancelFlags)
		},
	}
	cmd.Flags().StringVar(&cancelFlags.RequestID, "id", "", "request id (required)")
	cmd.Flags().StringVar(&cancelFlags.APIUrl, "api-url", "", "remote daemon URL (e.g. http://host:8080/api)")
	cmd.Flags().StringVar(&cancelFlags.APIToken, "api-token", "", "bearer token for the daemon API")
	cmd.Flags().DurationVar(&cancelFlags.APITimeout, "api-timeout", 30*time.Second, "request timeout")

	if err := cmd.MarkFlagRequired("id"); err != nil {
		panic(err)
	}
	return cmd
}

// createTokenCommand creates the token subcommand
func createTokenCommand(cli command, tokenFlags *TokenFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the daemon API",
		Long: `Mint a signed bearer token for the daemon's mutating endpoints.
The secret must match the daemon's [auth] jwt_secret.

Example:
  ridewatch token --secret=s3cr3t --subject=ops --ttl=24h`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Token(*tokenFlags)
		},
	}
	cmd.Flags().StringVar(&tokenFlags.Secret, "secret", "", "signing secret (required)")
	cmd.Flags().StringVar(&tokenFlags.Subject, "subject", "cli", "token subject")
	cmd.Flags().StringVar(&tokenFlags.Role, "role", "operator", "token role")
	cmd.Flags().DurationVar(&tokenFlags.TTL, "ttl", 24*time.Hour, "token lifetime")

	if err := cmd.MarkFlagRequired("secret"); err != nil {
		panic(err)
	}
	return cmd
}
