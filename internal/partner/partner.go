// Package partner holds the static directory of partner daycare facilities.
// The directory is read-only reference data: bookings point at facilities by
// slug, and the directory supplies display names and contact details.
package partner

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("facility not found")

type Facility struct {
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	Address      string   `json:"address"`
	Phone        string   `json:"phone"`
	Email        string   `json:"email"`
	TourHours    string   `json:"tourHours"`
	Description  string   `json:"description,omitempty"`
	BlockedDates []string `json:"blockedDates,omitempty"` // YYYY-MM-DD
}

// DateBlocked reports whether the facility does not offer tours on date.
func (f *Facility) DateBlocked(date string) bool {
	for _, d := range f.BlockedDates {
		if d == date {
			return true
		}
	}
	return false
}

type Directory struct {
	bySlug map[string]*Facility
}

//go:embed partners.json
var partnersFS embed.FS

// LoadDirectory parses the embedded facility data.
func LoadDirectory() (*Directory, error) {
	data, err := partnersFS.ReadFile("partners.json")
	if err != nil {
		return nil, fmt.Errorf("read partners data: %w", err)
	}
	return NewDirectory(data)
}

// NewDirectory builds a directory from raw JSON. Exposed so tests can supply
// their own fixture facilities.
func NewDirectory(data []byte) (*Directory, error) {
	var facilities []*Facility
	if err := json.Unmarshal(data, &facilities); err != nil {
		return nil, fmt.Errorf("parse partners data: %w", err)
	}

	bySlug := make(map[string]*Facility, len(facilities))
	for _, f := range facilities {
		if f.Slug == "" {
			return nil, fmt.Errorf("facility %q has no slug", f.Name)
		}
		if _, dup := bySlug[f.Slug]; dup {
			return nil, fmt.Errorf("duplicate facility slug %q", f.Slug)
		}
		bySlug[f.Slug] = f
	}

	return &Directory{bySlug: bySlug}, nil
}

func (d *Directory) BySlug(slug string) (*Facility, error) {
	f, ok := d.bySlug[slug]
	if !ok {
		return nil, ErrNotFound
	}
	return f, nil
}

func (d *Directory) All() []*Facility {
	out := make([]*Facility, 0, len(d.bySlug))
	for _, f := range d.bySlug {
		out = append(out, f)
	}
	return out
}
