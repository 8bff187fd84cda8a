// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides the dataset workflow end to end:
//  1. [ImportView] : Select the audio archive, cover archive and mapper document and upload them
//  2. [GalleryView] : Browse the catalog page by page and play tracks
//  3. [SearchView] : Upload a cover image or MIDI file as a similarity query
//  4. [ResultView] : Show the matched track, its similarity and the time the lookup took
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Network work runs in tea.Cmds; upload progress flows through a channel from the tasks.Coordinator.
// The player box at the bottom of the gallery and result views polls the playback.Controller on a short tick.
//
// Keyboard navigation uses vim-style bindings (j/k, h/l, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
