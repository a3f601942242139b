package cmd

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/atelierhq/easel/internal/adapters/studioapi"
	"github.com/atelierhq/easel/internal/config"
	"github.com/atelierhq/easel/internal/ratelimiting"
	"github.com/spf13/cobra"
)

var api studioapi.StudioAPI

var rootCmd = &cobra.Command{
	Use:   "easelctl",
	Short: "Inspect and manage Atelier generation jobs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if api != nil {
			return nil
		}

		conf, err := config.ConfigFromEnv()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		httpClient := &http.Client{
			Timeout: 30 * time.Second,
		}

		api, err = studioapi.NewStudioAPIOrMock(conf, httpClient, ratelimiting.NewUnlimited())
		if err != nil {
			return fmt.Errorf("failed to create studio api client: %w", err)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
