package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/dispatch/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show effective configuration",
	Long: `Display the effective Dispatch configuration.

Configuration is stored at ~/.config/dispatch/config.yaml
Project-specific overrides can be placed in .dispatch.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		displayConfig(cfg)
	},
}

func displayConfig(cfg *config.Config) {
	fmt.Printf("anthropic.api_key: %s\n", config.MaskAPIKey(cfg.Anthropic.APIKey))
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("admission.default: %d\n", cfg.Admission.Default)
	for model, limit := range cfg.Admission.Models {
		fmt.Printf("admission.models.%s: %d\n", model, limit)
	}
	for provider, limit := range cfg.Admission.Providers {
		fmt.Printf("admission.providers.%s: %d\n", provider, limit)
	}
	fmt.Printf("lifecycle.task_ttl: %s\n", cfg.Lifecycle.TaskTTL)
	fmt.Printf("lifecycle.sweep_interval: %s\n", cfg.Lifecycle.SweepInterval)
	fmt.Printf("lifecycle.reap_cooldown: %s\n", cfg.Lifecycle.ReapCooldown)
	fmt.Printf("lifecycle.settle_delay: %s\n", cfg.Lifecycle.SettleDelay)
	fmt.Printf("lifecycle.deliver_timeout: %s\n", cfg.Lifecycle.DeliverTimeout)
	fmt.Printf("quality.pass_threshold: %.2f\n", cfg.Quality.PassThreshold)
	fmt.Printf("quality.polish_threshold: %.2f\n", cfg.Quality.PolishThreshold)
	fmt.Printf("quality.max_rewrites: %d\n", cfg.Quality.MaxRewrites)
	fmt.Printf("quality.catalog_path: %s\n", cfg.Quality.CatalogPath)
	fmt.Printf("\nConfig file: %s\n", config.GetUserConfigPath())
}
