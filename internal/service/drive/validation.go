package drive

import (
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"tgdrive/internal/config"
	"tgdrive/internal/domain"
)

var nameRules = []validation.Rule{
	validation.Required.Error("name is required"),
	validation.RuneLength(1, config.MaxNameLength),
	validation.Match(regexp.MustCompile(`^[^/\x00]+$`)).Error("name cannot contain slashes or NUL"),
	validation.NotIn(".", "..").Error("name cannot be . or .."),
}

// normalizeName trims and validates a file or folder name
func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := validation.Validate(name, nameRules...); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return name, nil
}

// normalizeParent treats an empty parent id as the root
func normalizeParent(parentID *string) *string {
	if parentID == nil {
		return nil
	}
	id := strings.TrimSpace(*parentID)
	if id == "" {
		return nil
	}
	return &id
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// conflictError builds the NameConflict for a collision
func conflictError(name string, c *collision) error {
	return &domain.ConflictError{
		Message:      fmt.Sprintf("a %s named %q already exists in this location", c.Kind, name),
		ResourceType: c.Kind,
		ResourceID:   c.ID,
	}
}
