package httputil

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// OptionalString is a PATCH field that tells an absent key from a null one.
// For parent_folder_id, absent keeps the item where it is while null (or an
// empty string) moves it to the owner's root.
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON only runs for keys present in the body.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true

	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("expected string or null: %w", err)
	}
	o.Value = &s
	return nil
}

// Get returns the value and whether the key was sent at all.
func (o OptionalString) Get() (*string, bool) {
	return o.Value, o.Present
}
