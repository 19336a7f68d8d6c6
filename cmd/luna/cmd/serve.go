/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/lunadb/pkg/api"
	"github.com/ssargent/lunadb/pkg/config"
	"github.com/ssargent/lunadb/pkg/loader"
	"github.com/ssargent/lunadb/pkg/store"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the LunaDB REST API server over a fresh store.

The store starts empty unless --seed names an NDJSON file to load first.
Requests must carry the configured key in the X-API-Key header; with
api_key set to "auto" a key is generated and logged at startup.

Examples:
  luna serve --port 9300
  luna serve --api-key=mysecretkey --seed documents.ndjson`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := settingsFrom(cmd)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("port") {
			s.config.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			s.config.Bind, _ = cmd.Flags().GetString("bind")
		}
		if key, _ := cmd.Flags().GetString("api-key"); key != "" {
			s.config.Security.APIKey = key
		}
		seed, _ := cmd.Flags().GetString("seed")

		return runServe(cmd.Context(), s, seed)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 9300, "Port to listen on (overrides config)")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind (overrides config)")
	serveCmd.Flags().String("api-key", "", "API key for authentication (overrides config)")
	serveCmd.Flags().String("seed", "", "NDJSON file to load before serving")
}

func runServe(ctx context.Context, s *settings, seed string) error {
	c, err := requireContainer()
	if err != nil {
		return err
	}

	apiKey, err := resolveAPIKey(s)
	if err != nil {
		return err
	}

	st, err := store.Open(s.config.StoreConfig(s.logger))
	if err != nil {
		return err
	}
	defer st.Close()

	if seed != "" {
		if err := seedStore(ctx, st, seed); err != nil {
			return err
		}
		s.logger.Info("seeded store", "file", seed, "data_bytes", st.Stats().DataSize)
	}

	starter := c.GetServerFactory().CreateServerStarter(s.logger)
	return starter.StartServer(ctx, st, api.ServerConfig{
		Bind:   s.config.Bind,
		Port:   s.config.Port,
		APIKey: apiKey,
	})
}

// resolveAPIKey replaces an "auto" or empty key with a generated one
func resolveAPIKey(s *settings) (string, error) {
	key := s.config.Security.APIKey
	if key != "" && key != "auto" {
		return key, nil
	}

	key, err := config.GenerateSecureKey(32)
	if err != nil {
		return "", err
	}
	s.logger.Warn("generated ephemeral API key; run 'luna init' to persist one", "api_key", key)
	return key, nil
}

func seedStore(ctx context.Context, st *store.Store, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	if _, err := loader.Load(ctx, f, st.NewWriter()); err != nil {
		return fmt.Errorf("seed %s: %w", path, err)
	}
	return st.Flush()
}
