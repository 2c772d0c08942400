package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iishyfishyy/tweak/internal/config"
	"github.com/iishyfishyy/tweak/internal/history"
	"github.com/iishyfishyy/tweak/internal/parser"
	"github.com/iishyfishyy/tweak/internal/patch"
	"github.com/iishyfishyy/tweak/internal/provider"
	"github.com/iishyfishyy/tweak/internal/session"
	"github.com/iishyfishyy/tweak/internal/ui"
)

func runEdit(cmd *cobra.Command, args []string) error {
	ctx, cfg, creds, err := setup(cmd)
	if err != nil {
		return err
	}
	log := zerolog.Ctx(ctx)

	id := providerID
	if useOpenRoute {
		id = "openrouter"
	}
	if id == "" {
		id = cfg.DefaultProvider
	}
	log.Debug().Str("provider", id).Str("file", filePath).Msg("starting edit")

	router := provider.NewRouter(cfg)
	if err := ensureProvider(router, cfg, creds, id); err != nil {
		return err
	}

	sel := provider.Selection{Mode: provider.Default}
	if chooseModel {
		models, err := router.ListModels(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list models: %w", err)
		}
		model, err := ui.SelectModel(id, models)
		if err != nil {
			return cancelled(err)
		}
		sel = provider.Selection{Mode: provider.Interactive, Model: model}
	}

	text := instruction
	if text == "" {
		if text, err = ui.PromptInstruction(filepath.Base(filePath)); err != nil {
			return cancelled(err)
		}
	}

	engine := patch.NewEngine()
	engine.BackupSuffix = cfg.BackupSuffix

	sess := session.New(router, ui.NewTerminalReviewer(autoApply), engine, session.Options{
		Path:        filePath,
		Instruction: text,
		ProviderID:  id,
		Selection:   sel,
		Retry:       cfg.Retry,
		OnState: func(s session.State) {
			if s == session.AwaitingCompletion {
				ui.ShowInfo("Thinking...")
			}
		},
	})

	out, runErr := sess.Run(ctx)
	if out == nil {
		return runErr
	}
	report(out)
	record(ctx, cfg, text, out)

	if out.State == session.Failed {
		return errSessionFailed
	}
	return nil
}

// ensureProvider builds the provider's client, running first-run credential
// setup and retrying once when no key is stored.
func ensureProvider(router *provider.Router, cfg *config.Config, creds *config.Credentials, id string) error {
	_, err := router.Client(id)
	if err == nil || !provider.IsNotConfigured(err) {
		return err
	}

	p, ok := cfg.Provider(id)
	if !ok {
		return fmt.Errorf("unknown provider %q (configured: %v)", id, cfg.ProviderIDs())
	}

	ui.ShowWarning(fmt.Sprintf("No API key found for %s.", id))
	if err := setupCredentials(creds, p); err != nil {
		return err
	}

	_, err = router.Client(id)
	return err
}

// setupCredentials prompts for a key and stores it in the key file.
func setupCredentials(creds *config.Credentials, p *config.Provider) error {
	key, err := ui.PromptAPIKey(p.ID)
	if err != nil {
		return cancelled(err)
	}
	if err := creds.Save(p.ID, key); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	p.Token = key
	ui.ShowSuccess(fmt.Sprintf("API key saved to %s", creds.KeyPath(p.ID)))
	return nil
}

func report(out *session.Outcome) {
	name := filepath.Base(filePath)
	switch out.State {
	case session.Applied:
		msg := fmt.Sprintf("Applied changes to %s", name)
		if out.Result != nil && out.Result.BackupPath != "" {
			msg += fmt.Sprintf(" (backup: %s)", out.Result.BackupPath)
		}
		ui.ShowSuccess(msg)
	case session.Discarded:
		ui.ShowInfo(fmt.Sprintf("Discarded. %s was not modified.", name))
	case session.Failed:
		ui.ShowError(describe(out.Err))
	}
}

// describe renders a failure for the user, keeping the error kind visible.
func describe(err error) string {
	var oor *patch.OutOfRangeError
	switch {
	case errors.Is(err, parser.ErrUnparseable):
		return err.Error()
	case errors.As(err, &oor):
		return fmt.Sprintf("OutOfRangeEdit: %v", err)
	case errors.Is(err, context.Canceled):
		return "Cancelled. The file was not modified."
	case errors.Is(err, patch.ErrWriteFailed):
		return fmt.Sprintf("%v. The original file is unchanged.", err)
	}
	return fmt.Sprintf("%s: %v", session.Kind(err), err)
}

// record appends the session to the history database. Failures only warn.
func record(ctx context.Context, cfg *config.Config, text string, out *session.Outcome) {
	if !cfg.HistoryEnabled() {
		return
	}
	log := zerolog.Ctx(ctx)

	path, err := cfg.HistoryPath()
	if err != nil {
		log.Warn().Err(err).Msg("history disabled")
		return
	}
	store, err := history.Open(path)
	if err != nil {
		log.Warn().Err(err).Msg("failed to open history")
		return
	}
	defer store.Close()

	abs, err := filepath.Abs(filePath)
	if err != nil {
		abs = filePath
	}
	entry := history.NewEntry(abs, text)
	entry.Provider = out.Provider
	entry.Model = out.Model
	entry.State = out.State.String()
	entry.Attempts = out.Attempts
	entry.Duration = out.Duration
	if out.Err != nil {
		entry.ErrorKind = session.Kind(out.Err)
		entry.Error = out.Err.Error()
	}
	if out.Diff != nil {
		entry.Added, entry.Deleted = out.Diff.Stats()
	}
	if out.Result != nil {
		entry.BackupPath = out.Result.BackupPath
	}

	// Recorded even when ctx was cancelled.
	if err := store.Add(context.WithoutCancel(ctx), entry); err != nil {
		log.Warn().Err(err).Msg("failed to save history")
	}
}

// cancelled turns a prompt interrupt into a quiet cancellation.
func cancelled(err error) error {
	if errors.Is(err, ui.ErrInterrupted) {
		return errCancelled
	}
	return err
}
