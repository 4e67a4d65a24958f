package deploy

import (
	"fmt"

	"github.com/charmbracelet/huh"

	"github.com/bookernath/stencil-cli/internal/api"
)

// Prompter gathers the workflow's interactive decisions. The terminal
// implementation uses huh; tests substitute a stub.
type Prompter interface {
	// ConfirmApply asks whether to apply the newly uploaded theme.
	ConfirmApply() (bool, error)

	// SelectVariation asks which variation to activate.
	SelectVariation(names []string) (string, error)

	// SelectThemesForDeletion asks which themes to delete to clear the
	// theme-slot quota. At least one selection is required.
	SelectThemesForDeletion(themes []api.ThemeRecord) ([]string, error)
}

type terminalPrompter struct{}

// NewPrompter returns the interactive terminal prompter.
func NewPrompter() Prompter {
	return terminalPrompter{}
}

func (terminalPrompter) ConfirmApply() (bool, error) {
	var apply bool
	err := huh.NewConfirm().
		Title("Apply the uploaded theme?").
		Value(&apply).
		Run()
	return apply, err
}

func (terminalPrompter) SelectVariation(names []string) (string, error) {
	var chosen string
	err := huh.NewSelect[string]().
		Title("Which variation would you like to apply?").
		Options(huh.NewOptions(names...)...).
		Value(&chosen).
		Run()
	return chosen, err
}

func (terminalPrompter) SelectThemesForDeletion(themes []api.ThemeRecord) ([]string, error) {
	options := make([]huh.Option[string], 0, len(themes))
	for _, t := range themes {
		label := fmt.Sprintf("%s (updated %s)", t.Name, t.UpdatedAt.Format("2006-01-02"))
		options = append(options, huh.NewOption(label, t.UUID))
	}

	var selected []string
	err := huh.NewMultiSelect[string]().
		Title("The store's theme slots are full. Select themes to delete:").
		Options(options...).
		Validate(func(picked []string) error {
			if len(picked) == 0 {
				return fmt.Errorf("select at least one theme to delete")
			}
			return nil
		}).
		Value(&selected).
		Run()
	return selected, err
}
