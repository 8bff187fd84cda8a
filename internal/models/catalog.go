package models

import (
	"fmt"
	"strings"
)

// NoMatchLabel is displayed when a search resolved without a catalog entry.
const NoMatchLabel = "No song selected"

// CatalogEntry is one record of the dataset mapping document.
//
// Music identifies the entry; Img identifies it for cover search.
type CatalogEntry struct {
	Name   string `json:"name"`
	Singer string `json:"singer"`
	Img    string `json:"img"`
	Music  string `json:"music"`
}

// Title is the display line for the entry.
func (e CatalogEntry) Title() string {
	if e.Singer == "" {
		return e.Name
	}
	return fmt.Sprintf("%s - %s", e.Name, e.Singer)
}

// SameTrack reports whether e and other refer to the same audio file.
func (e CatalogEntry) SameTrack(other CatalogEntry) bool {
	return e.Music == other.Music
}

// FilterValue is the text fuzzy search runs against.
func (e CatalogEntry) FilterValue() string {
	return strings.TrimSpace(e.Name + " " + e.Singer)
}
