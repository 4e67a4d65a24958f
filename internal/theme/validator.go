package theme

import (
	"fmt"
	"os"
	"path/filepath"
)

// ValidationError indicates the theme failed structural checks. Validation
// runs before any other build stage and is always fatal.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("theme validation failed: %d problem(s): %v", len(e.Problems), e.Problems)
}

// Validator checks a theme before it is built. The full settings-schema
// grammar lives with the remote platform; this validator covers the
// structural requirements a bundle must meet.
type Validator interface {
	Validate(t *Theme) error
}

type structuralValidator struct{}

// NewValidator returns the default bundle validator.
func NewValidator() Validator {
	return structuralValidator{}
}

func (structuralValidator) Validate(t *Theme) error {
	var problems []string

	if t.Name == "" {
		problems = append(problems, "config.json is missing a theme name")
	}
	if t.Version == "" {
		problems = append(problems, "config.json is missing a theme version")
	}
	if info, err := os.Stat(filepath.Join(t.Root, "templates")); err != nil || !info.IsDir() {
		problems = append(problems, "theme has no templates directory")
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
