// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the dashboard HTTP server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the dashboard HTTP server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the sign-in page in the default browser",
			},
		},
		Action: r.Serve,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Prepare the session backend",
		Commands: []*cli.Command{
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent SQLite migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration file operations",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write an example configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Destination path (defaults to --config)",
					},
				},
				Action: r.ConfigInit,
			},
		},
	}
}

// sessionCommand handles stored session operations
func sessionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "session",
		Aliases: []string{"sessions"},
		Usage:   "Inspect and revoke sign-in sessions",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List stored sessions, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "user",
						Usage: "Only sessions of this user id",
					},
					&cli.BoolFlag{
						Name:  "active",
						Usage: "Only unrevoked, unexpired sessions",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of sessions to return",
						Value: 50,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
					},
				},
				Action: r.SessionList,
			},
			{
				Name:      "revoke",
				Usage:     "Revoke one session by id, or every session of a user",
				ArgsUsage: "[session-id]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "user",
						Usage: "Revoke all sessions of this user id",
					},
				},
				Action: r.SessionRevoke,
			},
			{
				Name:   "prune",
				Usage:  "Delete sessions that expired before now",
				Action: r.SessionPrune,
			},
		},
	}
}

// watchCommand follows a stored session in the terminal dashboard
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Follow a stored session in the terminal dashboard",
		ArgsUsage: "<session-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the dashboard is open",
				Value: "./tmp/ytdash-watch.log",
			},
		},
		Action: r.Watch,
	}
}
