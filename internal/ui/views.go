package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/playback"
	"github.com/desertthunder/simsa/internal/shared"
	"github.com/desertthunder/simsa/internal/tasks"
)

const progressWidth = 24

func (m Model) renderImport() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Upload Dataset"))
	b.WriteString("\n\n")

	for i := range m.inputs {
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")
	b.WriteString(m.renderHelp(m.keys.tab, m.keys.submit, m.keys.back))
	return b.String()
}

func (m Model) renderGallery() string {
	var b strings.Builder

	entries := m.opts.Cache.Len()
	switch {
	case !m.opts.Cache.Loaded() && m.err == nil:
		b.WriteString(styles.title.Render("Gallery"))
		b.WriteString("\n\nLoading catalog...\n")
	case entries == 0 && m.err == nil:
		b.WriteString(styles.title.Render("Gallery"))
		b.WriteString("\n\n" + styles.warn.Render("The catalog is empty. Press u to upload a dataset.") + "\n")
	default:
		b.WriteString(m.gallery.View())
		b.WriteString("\n")
		b.WriteString(styles.help.Render(fmt.Sprintf("Page %d of %d • %d songs", m.pager.Index(), max(m.pager.PageCount(), 1), entries)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(renderPlayer(m.player, m.opts.Cache.Entries()))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")
	b.WriteString(m.renderHelp(m.keys.play, m.keys.prevPage, m.keys.nextPage, m.keys.nextTrack, m.keys.prevTrack,
		m.keys.cover, m.keys.sound, m.keys.upload, m.keys.quit))
	return b.String()
}

func (m Model) renderSearch() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(searchTitle(m.flow)))
	b.WriteString("\n\n")
	b.WriteString(m.query.View())
	b.WriteString("\n\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n\n")
	b.WriteString(m.renderHelp(m.keys.submit, m.keys.back))
	return b.String()
}

func searchTitle(flow models.Flow) string {
	if flow == models.SoundFlow {
		return "Sound Search"
	}
	return "Cover Search"
}

func (m Model) renderResult() string {
	var b strings.Builder
	snap := m.snapshot
	b.WriteString(styles.title.Render(searchTitle(m.flow) + " Result"))
	b.WriteString("\n\n")

	switch snap.State {
	case tasks.Resolved:
		if snap.Match == nil {
			b.WriteString(styles.warn.Render(models.NoMatchLabel))
		} else {
			b.WriteString(styles.ok.Render(snap.Match.Title()))
		}
		b.WriteString("\n")
		if snap.Result != nil {
			fmt.Fprintf(&b, "Similarity: %.2f%%\n", snap.Result.Similarity)
			fmt.Fprintf(&b, "Search time: %.2fs\n", snap.Result.ElapsedSeconds())
		}
	case tasks.Failed:
		b.WriteString(styles.err.Render(snap.Message()))
		b.WriteString("\n")
	default:
		b.WriteString("Loading...\n")
	}

	if m.err != nil {
		b.WriteString(styles.err.Render(shared.UserMessage(m.err)))
		b.WriteString("\n")
	}

	if snap.Match != nil {
		b.WriteString("\n")
		b.WriteString(renderPlayer(m.player, m.opts.Cache.Entries()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	bindings := []key.Binding{m.keys.back}
	switch {
	case snap.State == tasks.Failed:
		bindings = append(bindings, m.keys.retry)
	case snap.Match != nil:
		bindings = append(bindings, m.keys.play, m.keys.stop)
	}
	b.WriteString(m.renderHelp(bindings...))
	return b.String()
}

// renderStatus shows the error if there is one, otherwise the last status line.
func (m Model) renderStatus() string {
	switch {
	case m.err != nil:
		return styles.err.Render(shared.UserMessage(m.err))
	case m.status != "":
		return styles.warn.Render(m.status)
	default:
		return ""
	}
}

func (m Model) renderHelp(bindings ...key.Binding) string {
	return m.help.ShortHelpView(bindings)
}

// renderPlayer draws the player box with the current track between its neighbours.
func renderPlayer(state playback.State, entries []models.CatalogEntry) string {
	if state.Track == nil {
		return styles.player.Render(models.NoMatchLabel)
	}

	prev, next := neighbours(entries, *state.Track)
	icon := "■"
	if state.Status == playback.Playing {
		icon = "▶"
	}

	lines := []string{
		fmt.Sprintf("%s %s", icon, state.Track.Title()),
		fmt.Sprintf("%s %3.0f%%", progressBar(state.Progress, progressWidth), state.Progress),
	}
	if prev != "" || next != "" {
		lines = append(lines, styles.help.Render(fmt.Sprintf("prev: %s • next: %s", prev, next)))
	}
	return styles.player.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// neighbours returns the titles around track in catalog order, wrapping at both ends.
func neighbours(entries []models.CatalogEntry, track models.CatalogEntry) (string, string) {
	n := len(entries)
	for i := range entries {
		if entries[i].SameTrack(track) {
			return entries[(i-1+n)%n].Title(), entries[(i+1)%n].Title()
		}
	}
	return "", ""
}

func progressBar(progress float64, width int) string {
	filled := int(progress / 100 * float64(width))
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
