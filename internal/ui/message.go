package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgCatalogFetched MsgKind = iota
	MsgProgressUpdate
	MsgImportComplete
	MsgQueryUploaded
	MsgSearchSettled
	MsgPlayback
	MsgPlayerTick
	MsgEngineLoaded
)

type catalogFetched struct {
	entries []models.CatalogEntry
	err     error
}

type queryUploaded struct {
	flow    models.Flow
	message string
	err     error
}

// catalogFetchedMsg is the constructor for [MsgCatalogFetched]
func catalogFetchedMsg(entries []models.CatalogEntry, err error) Msg {
	return Msg{kind: MsgCatalogFetched, data: catalogFetched{entries, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// importCompleteMsg is the constructor for [MsgImportComplete]
func importCompleteMsg(err error) Msg {
	return Msg{kind: MsgImportComplete, data: err}
}

// queryUploadedMsg is the constructor for [MsgQueryUploaded]
func queryUploadedMsg(flow models.Flow, message string, err error) Msg {
	return Msg{kind: MsgQueryUploaded, data: queryUploaded{flow, message, err}}
}

// searchSettledMsg is the constructor for [MsgSearchSettled]
func searchSettledMsg(snap tasks.Snapshot) Msg {
	return Msg{kind: MsgSearchSettled, data: snap}
}

// playbackMsg is the constructor for [MsgPlayback]; err is nil on success
func playbackMsg(err error) Msg {
	return Msg{kind: MsgPlayback, data: err}
}

func playerTickMsg() Msg {
	return Msg{kind: MsgPlayerTick}
}

// engineLoadedMsg is the constructor for [MsgEngineLoaded]
func engineLoadedMsg(err error) Msg {
	return Msg{kind: MsgEngineLoaded, data: err}
}

// asError extracts an optional error payload.
func (m Msg) asError() error {
	if err, ok := m.data.(error); ok {
		return err
	}
	return nil
}
