// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand initializes local state
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the configuration file and local database",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config.toml populated with defaults",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize the search history database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// pingCommand checks the backend connection
func pingCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "ping",
		Usage:  "Test the connection to the similarity-search backend",
		Action: r.Ping,
	}
}

// datasetCommand handles dataset uploads
func datasetCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "dataset",
		Usage: "Dataset operations",
		Commands: []*cli.Command{
			{
				Name:  "import",
				Usage: "Upload the audio archive, cover archive and mapper document in order",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "audio",
						Usage: "Path to the .zip archive of MIDI files",
					},
					&cli.StringFlag{
						Name:  "cover",
						Usage: "Path to the .zip archive of cover images",
					},
					&cli.StringFlag{
						Name:  "mapper",
						Usage: "Path to the .json mapper document",
					},
				},
				Action: r.DatasetImport,
			},
		},
	}
}

// catalogCommand handles catalog browsing and playback
func catalogCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "catalog",
		Aliases: []string{"cat"},
		Usage:   "Browse and play the uploaded catalog",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List catalog entries, optionally one page at a time",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "page",
						Usage: "1-based page to show (0 shows every entry)",
					},
					&cli.IntFlag{
						Name:  "page-size",
						Usage: "Entries per page (defaults to gallery.page_size)",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.CatalogList,
			},
			{
				Name:  "find",
				Usage: "Fuzzy search the catalog by song name and singer",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of matches to show (0 shows all)",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CatalogFind,
			},
			{
				Name:  "play",
				Usage: "Play the best catalog match for a query",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Action: r.CatalogPlay,
			},
			{
				Name:  "export",
				Usage: "Export the catalog as CSV, Markdown or plain text",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: csv, markdown or text",
						Value:   "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file (directory for markdown)",
					},
					&cli.BoolFlag{
						Name:  "covers",
						Usage: "Download cover images alongside a markdown export",
					},
				},
				Action: r.CatalogExport,
			},
		},
	}
}

// searchCommand handles similarity searches
func searchCommand(r *Runner) *cli.Command {
	flags := func() []cli.Flag {
		return []cli.Flag{
			&cli.BoolFlag{
				Name:  "play",
				Usage: "Play the matched song once the result is in",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		}
	}

	return &cli.Command{
		Name:  "search",
		Usage: "Find the closest catalog song to a query file",
		Commands: []*cli.Command{
			{
				Name:  "cover",
				Usage: "Search by cover image (.jpg, .jpeg, .png)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "file"},
				},
				Flags:  flags(),
				Action: r.SearchCover,
			},
			{
				Name:  "sound",
				Usage: "Search by MIDI file (.mid)",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "file"},
				},
				Flags:  flags(),
				Action: r.SearchSound,
			},
		},
	}
}

// historyCommand handles the local search history
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show or clear recorded searches",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent searches",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of searches to show (0 shows all)",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: table or csv",
						Value: "table",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:   "clear",
				Usage:  "Remove all recorded searches",
				Action: r.HistoryClear,
			},
		},
	}
}

// galleryCommand launches the TUI
func galleryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "gallery",
		Aliases: []string{"tui"},
		Usage:   "Browse, search and play the catalog interactively",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "import",
				Usage: "Start on the dataset upload screen",
			},
		},
		Action: r.Gallery,
	}
}
