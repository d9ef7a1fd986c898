// File: api/schemas/saved.go
package schemas

import "time"

// ValidationStatus is the server-derived validity of a saved phishlet.
type ValidationStatus string

const (
	ValidationValid   ValidationStatus = "valid"
	ValidationInvalid ValidationStatus = "invalid"
	ValidationUnknown ValidationStatus = "unknown"
)

// SavedPhishlet is a library entry as persisted by the server. The ID is
// opaque and server-assigned.
type SavedPhishlet struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	Author           string           `json:"author"`
	TargetURL        string           `json:"target_url"`
	Description      string           `json:"description"`
	Tags             []string         `json:"tags"`
	YAMLContent      string           `json:"yaml_content"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
	ValidationStatus ValidationStatus `json:"validation_status"`
}

// SavedPhishletCreate is the payload for saving a phishlet to the library.
type SavedPhishletCreate struct {
	Name        string   `json:"name"`
	Author      string   `json:"author,omitempty"`
	TargetURL   string   `json:"target_url,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	YAMLContent string   `json:"yaml_content"`
}

// SavedPhishletList is the full library collection plus its count.
type SavedPhishletList struct {
	Phishlets []SavedPhishlet `json:"phishlets"`
	Total     int             `json:"total"`
}
