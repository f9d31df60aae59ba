package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/modseek/internal/bot"
	"github.com/soyeahso/modseek/internal/catalog"
	"github.com/soyeahso/modseek/internal/channel"
	"github.com/soyeahso/modseek/internal/channel/irc"
	"github.com/soyeahso/modseek/internal/config"
	"github.com/soyeahso/modseek/internal/files"
	"github.com/soyeahso/modseek/internal/gateway"
	"github.com/soyeahso/modseek/internal/hooks"
	"github.com/soyeahso/modseek/internal/logging"
	"github.com/soyeahso/modseek/internal/routing"
	"github.com/soyeahso/modseek/internal/session"
)

func newRunCmd() *cobra.Command {
	var (
		gatewayPort int
		noGateway   bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}
			if gatewayPort != 0 {
				cfg.Gateway.Port = gatewayPort
			}
			if noGateway {
				cfg.Gateway.Enabled = false
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			// Rebuild the logger with the configured level and style when
			// no flag overrides it.
			if logLevel == "" && cfg.Logging.Level != "" {
				if cfg.Logging.Style == "json" {
					log = logging.NewJSON(nil, cfg.Logging.Level)
				} else {
					log = logging.New(nil, cfg.Logging.Level)
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			hookMgr := hooks.NewManager(log)

			client := catalog.NewClient(cfg.Catalog, cfg.Search.Limits, log)

			tempDir := cfg.Cleanup.TempDir
			if tempDir == "" {
				tempDir = paths.Tmp
			}
			fileStore := files.NewStore(tempDir, cfg.Catalog.UserAgent, log)

			sessions := session.NewMemoryStore(time.Duration(cfg.Session.TimeoutMinutes) * time.Minute)

			channels := channel.NewRegistry(log)
			if cfg.Channels.IRC != nil {
				channels.Register(irc.New(*cfg.Channels.IRC, log))
			}
			if channels.Count() == 0 {
				return fmt.Errorf("no channels configured")
			}

			controller := bot.NewController(&cfg, sessions, client, client, fileStore, hookMgr, log)
			router := routing.NewRouter(channels, controller, cfg.Search.CommandPrefix, log)
			router.Wire()

			channels.StartAll(ctx)
			defer channels.StopAll(context.Background())

			log.Info().
				Int("channels", channels.Count()).
				Str("prefix", cfg.Search.CommandPrefix).
				Msg("modseek running")

			if cfg.Gateway.Enabled {
				srv := gateway.New(cfg.Gateway, channels, sessions, hookMgr, log)
				return srv.Start(ctx)
			}

			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().IntVar(&gatewayPort, "gateway-port", 0, "override gateway port")
	cmd.Flags().BoolVar(&noGateway, "no-gateway", false, "disable the status gateway")

	return cmd
}
