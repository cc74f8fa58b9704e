package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smazurov/pomodorox/internal/systemd"
)

// CreateServiceCmd creates the service command.
func CreateServiceCmd() *cobra.Command {
	var unit string
	var system bool

	cmd := &cobra.Command{
		Use:   "service",
		Short: "Query or restart the installed systemd unit",
	}
	cmd.PersistentFlags().StringVar(&unit, "unit", systemd.DefaultUnit, "systemd unit name")
	cmd.PersistentFlags().BoolVar(&system, "system", true, "Use the system bus instead of the user bus")

	connect := func(ctx context.Context) (*systemd.Manager, error) {
		return systemd.NewManager(ctx, system)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print the unit's active state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			m, err := connect(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			state, err := m.Status(ctx, unit)
			if err != nil {
				return fmt.Errorf("query %s: %w", unit, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", unit, state)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "restart",
		Short: "Restart the unit and wait for the job result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(commandContext(cmd), 3*requestTimeout)
			defer cancel()

			m, err := connect(ctx)
			if err != nil {
				return err
			}
			defer m.Close()

			result, err := m.Restart(ctx, unit)
			if err != nil {
				return fmt.Errorf("restart %s: %w", unit, err)
			}
			if result != "done" {
				return fmt.Errorf("restart %s: job %s", unit, result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s restarted\n", unit)
			return nil
		},
	})

	return cmd
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
