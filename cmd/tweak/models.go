package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iishyfishyy/tweak/internal/provider"
	"github.com/iishyfishyy/tweak/internal/ui"
)

type modelListing struct {
	models []string
	err    error
}

func runModels(cmd *cobra.Command, args []string) error {
	ctx, cfg, _, err := setup(cmd)
	if err != nil {
		return err
	}

	router := provider.NewRouter(cfg)
	ids := router.Providers()
	listings := listModels(ctx, router, ids)

	printModels(ids, cfg.DefaultProvider, listings)
	return nil
}

// listModels asks every provider at once. Errors are kept per provider so one
// failure does not hide the others; the group only fans out and waits.
func listModels(ctx context.Context, router *provider.Router, ids []string) map[string]modelListing {
	log := zerolog.Ctx(ctx)

	var (
		g        errgroup.Group
		mu       sync.Mutex
		listings = make(map[string]modelListing, len(ids))
	)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			models, err := router.ListModels(ctx, id)
			if err != nil {
				log.Debug().Err(err).Str("provider", id).Msg("list models failed")
			}
			mu.Lock()
			listings[id] = modelListing{models: models, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return listings
}

func printModels(ids []string, def string, listings map[string]modelListing) {
	cyan := color.New(color.FgCyan, color.Bold)
	gray := color.New(color.FgHiBlack)

	for _, id := range ids {
		l := listings[id]
		title := id
		if id == def {
			title += " (default)"
		}
		cyan.Println(title)

		switch {
		case provider.IsNotConfigured(l.err):
			gray.Println("  no API key configured")
		case l.err != nil:
			ui.ShowWarning(l.err.Error())
		case len(l.models) == 0:
			gray.Println("  no models")
		}
		for i, m := range l.models {
			if i == 0 {
				fmt.Printf("  %s (default)\n", m)
				continue
			}
			fmt.Printf("  %s\n", m)
		}
		fmt.Println()
	}
}
