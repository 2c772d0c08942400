package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/iishyfishyy/tweak/internal/config"
	"github.com/iishyfishyy/tweak/internal/ui"
)

func runConfigure(cmd *cobra.Command, args []string) error {
	_, cfg, creds, err := setup(cmd)
	if err != nil {
		return err
	}

	ui.ShowSection("tweak configuration")

	for {
		displayProviderStatus(cfg)

		options := []string{
			"Set an API key",
			"Change the default provider",
			"Exit",
		}
		selected, err := ui.ShowMenu("What would you like to configure?", options)
		if err != nil {
			return cancelled(err)
		}

		switch selected {
		case 0:
			id, err := ui.SelectProvider(cfg.ProviderIDs(), cfg.DefaultProvider)
			if err != nil {
				return cancelled(err)
			}
			p, _ := cfg.Provider(id)
			if err := setupCredentials(creds, p); err != nil {
				return err
			}
		case 1:
			id, err := ui.SelectProvider(cfg.ProviderIDs(), cfg.DefaultProvider)
			if err != nil {
				return cancelled(err)
			}
			cfg.DefaultProvider = id
			path, err := resolvedConfigPath()
			if err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return fmt.Errorf("failed to save configuration: %w", err)
			}
			ui.ShowSuccess(fmt.Sprintf("Default provider set to %s (%s)", id, path))
		default:
			ui.ShowInfo("Configuration menu closed")
			return nil
		}
	}
}

// displayProviderStatus shows which providers have credentials
func displayProviderStatus(cfg *config.Config) {
	fmt.Println()
	green := color.New(color.FgGreen)
	gray := color.New(color.FgHiBlack)

	for _, id := range cfg.ProviderIDs() {
		p := cfg.Providers[id]
		marker := " "
		if id == cfg.DefaultProvider {
			marker = "*"
		}
		fmt.Printf(" %s %-12s ", marker, id)

		switch {
		case p.Family == config.FamilyOllama:
			green.Printf("local (%s)\n", p.BaseURL)
		case p.Token != "":
			green.Println("✓ key configured")
		default:
			gray.Printf("no key (set %s or run configure)\n", p.TokenEnv())
		}
	}
	fmt.Println()
}
