package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ZebulonRouseFrantzich/prokit/internal/config"
)

// Version will be set at build time via -ldflags
var Version = "v0.0.1-alpha"

var (
	configFile string
	verbose    bool

	cfg *config.Config
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "prokit",
		Short: "Install Poiyomi Pro into a Unity project",
		Long: `prokit authorizes this machine against your Patreon account in the
browser, downloads the Poiyomi Pro package and installs it into the
current Unity project.

Configuration is read from ./prokit.yaml or ~/.config/prokit/prokit.yaml,
a .env file in the working directory and PROKIT_* environment variables.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ./prokit.yaml)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newInstallCmd(), newLinkCmd(), newCleanCmd(), newVersionCmd())
	return root
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if err := config.SetupLogging(loaded.Log); err != nil {
		return err
	}
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	logrus.WithField("api", loaded.APIBase).Debugln("configuration loaded")
	cfg = loaded
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}
