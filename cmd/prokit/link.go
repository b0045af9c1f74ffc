package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/prokit/internal/auth"
	"github.com/ZebulonRouseFrantzich/prokit/internal/config"
)

func newLinkCmd() *cobra.Command {
	var (
		version string
		open    bool
	)

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Start a session and print its verification link",
		Long: `Create an authorization session and print the link where it can be
approved, without waiting for approval or downloading anything. Useful
for checking that the service is reachable.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := withInterrupt(cmd.Context())
			defer stop()

			if version == "" {
				version = cfg.Version
			}
			log := config.NewLogrusLogger(logrus.StandardLogger())
			client := auth.NewClient(cfg.APIBase,
				auth.WithUserAgent(userAgent(ctx, log)),
				auth.WithClientLogger(log),
			)

			session, err := client.Start(ctx, version)
			if err != nil {
				return err
			}

			link := auth.VerificationURL(cfg.WebBase, session.ID, version)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session: %s\n", session.ID)
			fmt.Fprintln(out, link)

			if open {
				return openBrowser(link)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&version, "version", "", "package version (default from config)")
	cmd.Flags().BoolVar(&open, "open", false, "also open the link in a browser")

	return cmd
}
