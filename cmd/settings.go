package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/pomodorox/internal/logging"
	"github.com/smazurov/pomodorox/internal/nats"
	"github.com/smazurov/pomodorox/internal/settings"
	"github.com/smazurov/pomodorox/internal/settings/store"
)

const requestTimeout = 5 * time.Second

// CreateSettingsCmd creates the settings command.
func CreateSettingsCmd() *cobra.Command {
	var backend, path string

	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change the persisted phase configuration",
		Long: `Reads and writes the configuration blob used by the device service. ` +
			`Changes made here are picked up by a running service through its file watcher ` +
			`(file backend) or on the next start (sqlite backend).`,
	}
	cmd.PersistentFlags().StringVar(&backend, "store", store.BackendFile, "Settings backend (file, sqlite)")
	cmd.PersistentFlags().StringVar(&path, "path", "", "Settings location (default depends on --store)")

	cmd.AddCommand(
		createSettingsShowCmd(&backend, &path),
		createSettingsSetCmd(&backend, &path),
		createSettingsPushCmd(),
	)
	return cmd
}

func createSettingsShowCmd(backend, path *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the persisted configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)

			s, err := store.Open(ctx, *backend, *path)
			if err != nil {
				return err
			}
			defer s.Close()

			data, err := s.Read(ctx)
			if errors.Is(err, settings.ErrNotFound) {
				fmt.Fprintln(cmd.ErrOrStderr(), "no persisted configuration, showing defaults")
				return printConfig(cmd.OutOrStdout(), settings.Default())
			}
			if err != nil {
				return err
			}
			cfg, err := settings.Decode(data)
			if err != nil {
				return fmt.Errorf("persisted configuration is unusable: %w", err)
			}
			return printConfig(cmd.OutOrStdout(), cfg)
		},
	}
}

func createSettingsSetCmd(backend, path *string) *cobra.Command {
	var debug, workDelay, restDelay string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Validate and persist a new configuration",
		Long:  `All three values are required, exactly as for the /settings endpoint. Delays are in milliseconds.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)

			s, err := store.Open(ctx, *backend, *path)
			if err != nil {
				return err
			}
			defer s.Close()

			controller := settings.NewController(s, settings.WithLogger(logging.GetLogger("settings")))
			controller.LoadOnBoot(ctx)

			req := requestFromFlags(cmd, debug, workDelay, restDelay)
			result, err := controller.ApplyUpdate(ctx, req, settings.SourceCLI)
			if err != nil {
				return err
			}
			if !result.Persisted {
				return result.PersistErr
			}
			return printConfig(cmd.OutOrStdout(), result.Config)
		},
	}
	cmd.Flags().StringVar(&debug, "debug", "", "Debug logging (true/false)")
	cmd.Flags().StringVar(&workDelay, "work-delay", "", "Work phase length in milliseconds")
	cmd.Flags().StringVar(&restDelay, "rest-delay", "", "Rest phase length in milliseconds")
	return cmd
}

func createSettingsPushCmd() *cobra.Command {
	var url, device, debug, workDelay, restDelay string

	cmd := &cobra.Command{
		Use:   "push",
		Short: "Send a configuration to a running device over NATS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(commandContext(cmd), requestTimeout)
			defer cancel()

			reply, err := nats.RequestSettings(ctx, url, device, nats.NewSettingsRequest(debug, workDelay, restDelay))
			if err != nil {
				return err
			}
			if !reply.OK {
				return fmt.Errorf("device rejected settings: %s", reply.Error)
			}
			cfg := settings.Config{
				Debug:     reply.Debug,
				WorkDelay: time.Duration(reply.WorkDelayMs) * time.Millisecond,
				RestDelay: time.Duration(reply.RestDelayMs) * time.Millisecond,
			}
			if !reply.Persisted {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: device applied the settings but could not persist them")
			}
			return printConfig(cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().StringVar(&url, "nats-url", "nats://127.0.0.1:4222", "NATS server URL")
	cmd.Flags().StringVar(&device, "device", "pomodorox", "Target device name")
	cmd.Flags().StringVar(&debug, "debug", "", "Debug logging (true/false)")
	cmd.Flags().StringVar(&workDelay, "work-delay", "", "Work phase length in milliseconds")
	cmd.Flags().StringVar(&restDelay, "rest-delay", "", "Rest phase length in milliseconds")
	for _, name := range []string{"debug", "work-delay", "rest-delay"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// requestFromFlags leaves unset flags nil so they are reported as missing.
func requestFromFlags(cmd *cobra.Command, debug, workDelay, restDelay string) settings.UpdateRequest {
	var req settings.UpdateRequest
	if cmd.Flags().Changed("debug") {
		req.Debug = &debug
	}
	if cmd.Flags().Changed("work-delay") {
		req.WorkDelay = &workDelay
	}
	if cmd.Flags().Changed("rest-delay") {
		req.RestDelay = &restDelay
	}
	return req
}

func printConfig(w io.Writer, cfg settings.Config) error {
	data, err := settings.Encode(cfg)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
