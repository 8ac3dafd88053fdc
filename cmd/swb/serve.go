package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/config"
	"github.com/zulandar/switchboard/internal/db"
	"github.com/zulandar/switchboard/internal/dispatch"
	"github.com/zulandar/switchboard/internal/notify"
	"github.com/zulandar/switchboard/internal/notify/discord"
	"github.com/zulandar/switchboard/internal/notify/slack"
	"github.com/zulandar/switchboard/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the Switchboard API server",
		Long:  "Starts the HTTP API, and, when enabled, the scheduled-message dispatcher with its chat notifications. Runs until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := db.AutoMigrate(gormDB); err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.HTTP.Port = port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if cfg.Dispatch.Enabled {
				fanout, err := buildFanout(ctx, cfg.Notify)
				if err != nil {
					return err
				}
				defer fanout.Close()

				d, err := dispatch.New(dispatch.Opts{
					DB:        gormDB,
					Announcer: fanout,
					Cron:      cfg.Dispatch.Cron,
				})
				if err != nil {
					return err
				}
				go d.Run(ctx)
				fmt.Fprintf(cmd.OutOrStdout(), "Dispatcher running (%s, %d platform(s))\n",
					cfg.Dispatch.Cron, len(fanout.Adapters()))
			}

			return server.Start(ctx, server.StartOpts{
				DB:   gormDB,
				Port: cfg.HTTP.Port,
				Out:  cmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "switchboard.yaml", "path to Switchboard config file")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "override the HTTP port from config")
	return cmd
}

// buildFanout assembles and connects the notification adapters that have
// credentials configured.
func buildFanout(ctx context.Context, cfg config.NotifyConfig) (*notify.Fanout, error) {
	var adapters []notify.Adapter

	if cfg.Discord.Token != "" {
		a, err := discord.New(discord.AdapterOpts{
			BotToken:  cfg.Discord.Token,
			ChannelID: cfg.Discord.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}
	if cfg.Slack.Token != "" {
		a, err := slack.New(slack.AdapterOpts{
			BotToken:  cfg.Slack.Token,
			ChannelID: cfg.Slack.ChannelID,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	fanout := notify.NewFanout(adapters...)
	if err := fanout.Connect(ctx); err != nil {
		return nil, err
	}
	return fanout, nil
}
