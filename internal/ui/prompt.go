package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/fatih/color"

	"github.com/iishyfishyy/tweak/internal/session"
)

// ErrInterrupted is returned when the user presses Ctrl-C at a prompt.
var ErrInterrupted = session.ErrInterrupted

// interrupted maps survey's interrupt to ErrInterrupted.
func interrupted(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return ErrInterrupted
	}
	return err
}

// ShowMenu shows a list of options and returns the selected index
func ShowMenu(message string, options []string) (int, error) {
	var choice string
	prompt := &survey.Select{
		Message: message,
		Options: options,
	}

	if err := survey.AskOne(prompt, &choice); err != nil {
		return -1, interrupted(err)
	}

	for i, opt := range options {
		if opt == choice {
			return i, nil
		}
	}
	return -1, fmt.Errorf("unknown option %q", choice)
}

// SelectModel asks the user to pick one of the provider's models
func SelectModel(providerID string, models []string) (string, error) {
	if len(models) == 0 {
		return "", fmt.Errorf("%s offers no models", providerID)
	}

	var model string
	prompt := &survey.Select{
		Message: fmt.Sprintf("Select a %s model:", providerID),
		Options: models,
		Default: models[0],
	}

	if err := survey.AskOne(prompt, &model); err != nil {
		return "", interrupted(err)
	}

	return model, nil
}

// SelectProvider asks the user to pick a provider
func SelectProvider(ids []string, current string) (string, error) {
	var id string
	prompt := &survey.Select{
		Message: "Select a provider:",
		Options: ids,
	}
	if current != "" {
		prompt.Default = current
	}

	if err := survey.AskOne(prompt, &id); err != nil {
		return "", interrupted(err)
	}

	return id, nil
}

// PromptInstruction asks what to change in the file
func PromptInstruction(file string) (string, error) {
	var instruction string
	prompt := &survey.Input{
		Message: fmt.Sprintf("What should change in %s?", file),
	}

	if err := survey.AskOne(prompt, &instruction, survey.WithValidator(survey.Required)); err != nil {
		return "", interrupted(err)
	}

	return strings.TrimSpace(instruction), nil
}

// PromptAPIKey asks for a provider token without echoing it
func PromptAPIKey(providerID string) (string, error) {
	var key string
	prompt := &survey.Password{
		Message: fmt.Sprintf("Enter your %s API key:", providerID),
	}

	if err := survey.AskOne(prompt, &key, survey.WithValidator(survey.Required)); err != nil {
		return "", interrupted(err)
	}

	return strings.TrimSpace(key), nil
}

// Confirm asks a yes/no question
func Confirm(message string, def bool) (bool, error) {
	answer := def
	prompt := &survey.Confirm{
		Message: message,
		Default: def,
	}

	if err := survey.AskOne(prompt, &answer); err != nil {
		return false, interrupted(err)
	}

	return answer, nil
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	green := color.New(color.FgGreen, color.Bold)
	green.Printf("✓ %s\n", message)
}

// ShowError displays an error message
func ShowError(message string) {
	red := color.New(color.FgRed, color.Bold)
	red.Printf("✗ %s\n", message)
}

// ShowWarning displays a warning message
func ShowWarning(message string) {
	yellow := color.New(color.FgYellow)
	yellow.Printf("! %s\n", message)
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	blue := color.New(color.FgBlue)
	blue.Println(message)
}

// ShowSection displays a section header
func ShowSection(title string) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Printf("\n%s\n%s\n", title, strings.Repeat("─", len([]rune(title))))
}
