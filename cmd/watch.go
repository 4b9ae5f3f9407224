package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytdash/internal/dashboard"
	"github.com/desertthunder/ytdash/internal/shared"
	"github.com/desertthunder/ytdash/internal/ui"
	"github.com/urfave/cli/v3"
)

// Watch mounts the provider tree for a stored session and renders it in the terminal.
//
// The session is read straight from the store, so no sign-in round trip is needed.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: session id is required", shared.ErrMissingArgument)
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	store, err := r.store(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	stored, err := store.GetSession(ctx, id)
	if err != nil {
		return err
	}

	tokens, err := r.tokens()
	if err != nil {
		return err
	}
	token, err := tokens.Sign(stored)
	if err != nil {
		return err
	}

	accessor := r.accessor(store, tokens)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tree := dashboard.NewTree(accessor, store, token, fileLogger)
	if err := tree.Mount(ctx); err != nil {
		return fmt.Errorf("failed to mount dashboard: %w", err)
	}
	defer tree.Close()

	model := ui.NewModel(tree, dashboard.NewShell())
	defer model.Close()

	p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
