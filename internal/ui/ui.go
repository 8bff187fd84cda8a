package ui

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/simsa/internal/catalog"
	"github.com/desertthunder/simsa/internal/models"
	"github.com/desertthunder/simsa/internal/playback"
	"github.com/desertthunder/simsa/internal/services"
	"github.com/desertthunder/simsa/internal/shared"
	"github.com/desertthunder/simsa/internal/tasks"
)

// ViewState represents the current screen in the TUI.
type ViewState int

const (
	ImportView ViewState = iota
	GalleryView
	SearchView
	ResultView
)

// playerTickInterval is how often the player box re-reads the controller.
const playerTickInterval = 250 * time.Millisecond

var importKinds = []models.FileKind{models.AudioArchive, models.CoverArchive, models.CatalogDocument}

// Options wires the model to the application's services.
type Options struct {
	Coordinator *tasks.Coordinator
	Cache       *catalog.Cache
	Results     services.ResultFetcher
	Player      *playback.Controller
	Gate        *playback.Gate
	Loader      playback.Loader // loaded once on Init when set
	Recorder    tasks.Recorder
	CoverPrefix string
	PageSize    int
	Start       ViewState
	Logger      *log.Logger
}

// Model is the main bubbletea model for the TUI application
type Model struct {
	ctx  context.Context
	opts Options
	view ViewState

	width  int
	height int

	gallery list.Model
	pager   *catalog.Pager
	player  playback.State

	inputs []textinput.Model
	focus  int
	query  textinput.Model
	flow   models.Flow

	session  *tasks.Session
	snapshot tasks.Snapshot

	progressChan chan tasks.ProgressUpdate
	busy         bool
	status       string
	err          error

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model
func NewModel(ctx context.Context, opts Options) Model {
	if opts.Gate == nil {
		opts.Gate = playback.NewGate()
	}
	if opts.Cache == nil {
		opts.Cache = catalog.NewCache(nil, opts.Logger)
	}
	if opts.Player == nil {
		opts.Player = playback.NewController(playback.ControllerOpts{
			Gate:    opts.Gate,
			Entries: opts.Cache.Entries,
			Logger:  opts.Logger,
		})
	}

	delegate := list.NewDefaultDelegate()
	gallery := list.New([]list.Item{}, delegate, 0, 0)
	gallery.Title = "Gallery"
	gallery.SetShowStatusBar(false)
	gallery.SetFilteringEnabled(false)
	gallery.SetShowHelp(false)
	gallery.SetShowPagination(false)

	inputs := make([]textinput.Model, len(importKinds))
	for i, kind := range importKinds {
		ti := textinput.New()
		ti.Prompt = kind.Label() + ": "
		ti.Placeholder = "path/to/file." + kind.Extensions()[0]
		inputs[i] = ti
	}
	inputs[0].Focus()

	query := textinput.New()
	query.Focus()

	return Model{
		ctx:     ctx,
		opts:    opts,
		view:    opts.Start,
		gallery: gallery,
		pager:   catalog.NewPager(opts.Cache, opts.PageSize),
		inputs:  inputs,
		query:   query,
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// View returns the current view
func (m Model) View() string {
	switch m.view {
	case ImportView:
		return m.renderImport()
	case GalleryView:
		return m.renderGallery()
	case SearchView:
		return m.renderSearch()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink, playerTick()}
	if m.opts.Loader != nil {
		cmds = append(cmds, loadEngine(m.ctx, m.opts.Gate, m.opts.Loader))
	}
	if m.view == GalleryView {
		cmds = append(cmds, fetchCatalog(m.ctx, m.opts.Cache))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.gallery.SetSize(msg.Width, max(msg.Height-10, 6))
		return m, nil
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) && (msg.String() == "ctrl+c" || !m.typing()) {
			m.shutdown()
			return m, tea.Quit
		}
		switch m.view {
		case ImportView:
			return m.updateImport(msg)
		case GalleryView:
			return m.updateGallery(msg)
		case SearchView:
			return m.updateSearch(msg)
		case ResultView:
			return m.updateResult(msg)
		}
	case Msg:
		return m.handleMsg(msg)
	}
	return m, nil
}

// typing reports whether keystrokes belong to a text input.
func (m Model) typing() bool {
	return m.view == ImportView || m.view == SearchView
}

func (m *Model) shutdown() {
	if m.session != nil {
		m.session.Close()
	}
	if m.opts.Player != nil {
		m.opts.Player.Close()
	}
}

func (m Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlayerTick:
		m.player = m.opts.Player.State()
		if m.view == GalleryView {
			m.refreshGallery()
		}
		return m, playerTick()
	case MsgEngineLoaded:
		if err := msg.asError(); err != nil {
			m.logWarn("player unavailable", err)
			m.status = shared.UserMessage(err)
		}
		return m, nil
	case MsgCatalogFetched:
		data := msg.data.(catalogFetched)
		m.busy = false
		m.err = data.err
		if data.err == nil {
			m.status = ""
		}
		m.refreshGallery()
		return m, nil
	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.status = update.Message
		if m.progressChan == nil {
			return m, nil
		}
		return m, waitForProgress(m.progressChan)
	case MsgImportComplete:
		m.busy = false
		if err := msg.asError(); err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.view = GalleryView
		m.busy = true
		return m, fetchCatalog(m.ctx, m.opts.Cache)
	case MsgQueryUploaded:
		data := msg.data.(queryUploaded)
		if data.err != nil {
			m.busy = false
			m.err = data.err
			return m, nil
		}
		m.status = data.message
		return m.startSession(data.flow)
	case MsgSearchSettled:
		m.busy = false
		m.snapshot = msg.data.(tasks.Snapshot)
		return m, nil
	case MsgPlayback:
		m.player = m.opts.Player.State()
		if err := msg.asError(); err != nil {
			m.status = shared.UserMessage(err)
		} else {
			m.status = ""
		}
		if m.view == GalleryView {
			m.refreshGallery()
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) logWarn(message string, err error) {
	if m.opts.Logger != nil {
		m.opts.Logger.Warn(message, "error", err)
	}
}

// refreshGallery loads the pager's current page into the list.
func (m *Model) refreshGallery() {
	state := m.player
	selected := m.gallery.Index()
	m.gallery.SetItems(entryItems(m.pager.Current(), state.Active))
	m.gallery.Select(min(selected, max(len(m.gallery.Items())-1, 0)))
}

func (m Model) selectedEntry() (models.CatalogEntry, bool) {
	item, ok := m.gallery.SelectedItem().(entryItem)
	if !ok {
		return models.CatalogEntry{}, false
	}
	return item.entry, true
}

func (m Model) updateImport(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.back):
		if m.opts.Cache.Loaded() {
			m.view = GalleryView
			m.err = nil
			return m, nil
		}
		m.shutdown()
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		m.inputs[m.focus].Blur()
		if msg.String() == "shift+tab" {
			m.focus = (m.focus + len(m.inputs) - 1) % len(m.inputs)
		} else {
			m.focus = (m.focus + 1) % len(m.inputs)
		}
		return m, m.inputs[m.focus].Focus()
	case key.Matches(msg, m.keys.submit):
		jobs, err := m.importJobs()
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.busy = true
		m.progressChan = make(chan tasks.ProgressUpdate, 10)
		return m, tea.Batch(
			submitDataset(m.ctx, m.opts.Coordinator, jobs, m.progressChan),
			waitForProgress(m.progressChan),
		)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

// importJobs builds one job per slot; empty slots are left for the coordinator to reject.
func (m Model) importJobs() ([]models.UploadJob, error) {
	jobs := make([]models.UploadJob, len(importKinds))
	for i, kind := range importKinds {
		job, err := models.NewUploadJob(kind, m.inputs[i].Value())
		if err != nil {
			return nil, err
		}
		jobs[i] = *job
	}
	return jobs, nil
}

func (m Model) updateGallery(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	player := m.opts.Player

	switch {
	case key.Matches(msg, m.keys.nextPage):
		if m.pager.NextPage() {
			m.gallery.Select(0)
			m.refreshGallery()
		}
		return m, nil
	case key.Matches(msg, m.keys.prevPage):
		if m.pager.PreviousPage() {
			m.gallery.Select(0)
			m.refreshGallery()
		}
		return m, nil
	case key.Matches(msg, m.keys.play):
		entry, ok := m.selectedEntry()
		if !ok {
			return m, nil
		}
		return m, playbackCmd(func() error { return player.Toggle(m.ctx, entry) })
	case key.Matches(msg, m.keys.stop):
		return m, playbackCmd(player.Stop)
	case key.Matches(msg, m.keys.nextTrack):
		return m, playbackCmd(func() error { return player.Next(m.ctx) })
	case key.Matches(msg, m.keys.prevTrack):
		return m, playbackCmd(func() error { return player.Previous(m.ctx) })
	case key.Matches(msg, m.keys.cover):
		return m.openSearch(models.CoverFlow)
	case key.Matches(msg, m.keys.sound):
		return m.openSearch(models.SoundFlow)
	case key.Matches(msg, m.keys.upload):
		player.Stop()
		m.view = ImportView
		m.err = nil
		return m, m.inputs[m.focus].Focus()
	case key.Matches(msg, m.keys.retry):
		m.busy = true
		m.status = "Fetching catalog..."
		return m, fetchCatalog(m.ctx, m.opts.Cache)
	case key.Matches(msg, m.keys.back):
		m.shutdown()
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.gallery, cmd = m.gallery.Update(msg)
	return m, cmd
}

func (m Model) openSearch(flow models.Flow) (tea.Model, tea.Cmd) {
	m.opts.Player.Stop()
	m.flow = flow
	m.view = SearchView
	m.err = nil
	m.status = ""
	m.query.SetValue("")
	m.query.Prompt = flow.QueryKind().Label() + ": "
	m.query.Placeholder = "path/to/query." + flow.QueryKind().Extensions()[0]
	return m, m.query.Focus()
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.back):
		m.view = GalleryView
		m.err = nil
		m.refreshGallery()
		return m, nil
	case key.Matches(msg, m.keys.submit):
		job, err := models.NewUploadJob(m.flow.QueryKind(), m.query.Value())
		if err == nil {
			err = job.Validate()
		}
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		m.busy = true
		m.progressChan = make(chan tasks.ProgressUpdate, 10)
		return m, tea.Batch(
			submitQuery(m.ctx, m.opts.Coordinator, m.flow, *job, m.progressChan),
			waitForProgress(m.progressChan),
		)
	}

	var cmd tea.Cmd
	m.query, cmd = m.query.Update(msg)
	return m, cmd
}

// startSession replaces any previous session and begins resolving flow's result.
func (m Model) startSession(flow models.Flow) (tea.Model, tea.Cmd) {
	if m.session != nil {
		m.session.Close()
	}
	m.session = tasks.NewSession(tasks.SessionOpts{
		Flow:        flow,
		Cache:       m.opts.Cache,
		Results:     m.opts.Results,
		CoverPrefix: m.opts.CoverPrefix,
		Recorder:    m.opts.Recorder,
		Logger:      m.opts.Logger,
	})
	m.view = ResultView
	m.busy = true

	if err := m.session.Start(m.ctx); err != nil {
		m.busy = false
		m.err = err
		return m, nil
	}
	m.snapshot = m.session.Snapshot()
	return m, awaitSession(m.ctx, m.session)
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	player := m.opts.Player

	switch {
	case key.Matches(msg, m.keys.retry):
		if m.session == nil || m.snapshot.State != tasks.Failed {
			return m, nil
		}
		if err := m.session.Retry(m.ctx); err != nil {
			m.err = err
			return m, nil
		}
		m.busy = true
		m.snapshot = m.session.Snapshot()
		return m, awaitSession(m.ctx, m.session)
	case key.Matches(msg, m.keys.play):
		if m.snapshot.Match == nil {
			return m, nil
		}
		entry := *m.snapshot.Match
		return m, playbackCmd(func() error { return player.Toggle(m.ctx, entry) })
	case key.Matches(msg, m.keys.stop):
		return m, playbackCmd(player.Stop)
	case key.Matches(msg, m.keys.back):
		player.Stop()
		if m.session != nil {
			m.session.Close()
			m.session = nil
		}
		m.busy = false
		m.err = nil
		m.status = ""
		m.view = GalleryView
		m.refreshGallery()
		return m, nil
	}
	return m, nil
}

// isCanceled reports whether err is from the program shutting down.
func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, tasks.ErrSessionClosed)
}
