package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/randomtoy/jokes-go/internal/domain"
	"github.com/randomtoy/jokes-go/internal/render"
)

var errFetchFailed = errors.New("fetch failed")

func fetchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Fetch one joke and print it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

			ctrl := newController(cfg, logger)
			defer ctrl.Close()

			ctrl.FetchResource(cmd.Context())

			state := ctrl.State()
			fmt.Fprint(cmd.OutOrStdout(), render.Render(state).String())
			if _, ok := state.(domain.Failure); ok {
				return errFetchFailed
			}
			return nil
		},
	}
}
