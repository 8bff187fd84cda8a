package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/simsa/internal/models"
)

var _ list.DefaultItem = entryItem{}

// entryItem wraps [models.CatalogEntry] to implement [list.Item].
type entryItem struct {
	entry   models.CatalogEntry
	playing bool
}

func (i entryItem) FilterValue() string { return i.entry.FilterValue() }

func (i entryItem) Title() string {
	if i.playing {
		return "♪ " + i.entry.Name
	}
	return i.entry.Name
}

func (i entryItem) Description() string {
	if i.entry.Singer == "" {
		return i.entry.Img
	}
	return i.entry.Singer + " • " + i.entry.Img
}

func entryItems(entries []models.CatalogEntry, isPlaying func(models.CatalogEntry) bool) []list.Item {
	items := make([]list.Item, len(entries))
	for i, e := range entries {
		items[i] = entryItem{entry: e, playing: isPlaying(e)}
	}
	return items
}
