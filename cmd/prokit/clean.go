package main

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/prokit/internal/config"
	"github.com/ZebulonRouseFrantzich/prokit/internal/install"
	"github.com/ZebulonRouseFrantzich/prokit/internal/lock"
)

func newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Clear the download cache",
		Long: `Remove packages, partial downloads and extraction leftovers from the
download directory. Refuses to run while an install is in progress.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := withInterrupt(cmd.Context())
			defer stop()

			log := config.NewLogrusLogger(logrus.StandardLogger())

			lk, err := lock.Acquire(ctx, cfg.DownloadDir)
			if err != nil {
				if errors.Is(err, lock.ErrLockExists) {
					return fmt.Errorf("an install is running in %s: %w", cfg.DownloadDir, err)
				}
				return fmt.Errorf("acquire install lock: %w", err)
			}
			defer lk.Release()

			stats, err := install.Clean(cfg.DownloadDir, log)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if stats.Removed == 0 {
				fmt.Fprintln(out, infoStyle.Render("Download cache is already empty"))
				return nil
			}
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("Removed %d item(s), %s", stats.Removed, formatBytes(uint64(stats.Bytes)))))
			return nil
		},
	}
}
