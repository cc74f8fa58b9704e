package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/smazurov/pomodorox/internal/systemd"
	"github.com/smazurov/pomodorox/internal/updater"
)

// CreateUpdateCmd creates the update command.
func CreateUpdateCmd() *cobra.Command {
	var repo string
	var prerelease, checkOnly, rollback, restart bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the binary to the latest release",
		Long: `Downloads the latest GitHub release for this platform and replaces the running binary. ` +
			`The previous binary is kept and can be restored with --rollback.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(commandContext(cmd), 5*time.Minute)
			defer cancel()

			u, err := updater.New(updater.Options{Repository: repo, Prerelease: prerelease})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch {
			case rollback:
				info, err := u.Rollback()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "restored %s\n", info.Version)
			case checkOnly:
				info, _, err := u.Check(ctx)
				if err != nil {
					return err
				}
				if info.UpdateAvailable {
					fmt.Fprintf(out, "update available: %s -> %s\n", info.CurrentVersion, info.LatestVersion)
				} else {
					fmt.Fprintf(out, "up to date (%s)\n", info.CurrentVersion)
				}
				return nil
			default:
				info, err := u.Apply(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "updated %s -> %s\n", info.CurrentVersion, info.LatestVersion)
			}

			if !restart {
				return nil
			}
			m, err := systemd.NewManager(ctx, true)
			if err != nil {
				return err
			}
			defer m.Close()
			if _, err := m.Restart(ctx, systemd.DefaultUnit); err != nil {
				return fmt.Errorf("restart %s: %w", systemd.DefaultUnit, err)
			}
			fmt.Fprintf(out, "%s restarted\n", systemd.DefaultUnit)
			return nil
		},
	}
	cmd.Flags().StringVar(&repo, "repo", updater.DefaultRepository, "GitHub repository slug")
	cmd.Flags().BoolVar(&prerelease, "prerelease", false, "Include prereleases")
	cmd.Flags().BoolVar(&checkOnly, "check", false, "Only report whether an update exists")
	cmd.Flags().BoolVar(&rollback, "rollback", false, "Restore the previous binary")
	cmd.Flags().BoolVar(&restart, "restart", false, "Restart the systemd unit afterwards")
	cmd.MarkFlagsMutuallyExclusive("check", "rollback")
	return cmd
}
