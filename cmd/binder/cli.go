package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/binder/internal/errors"
	"github.com/hpungsan/binder/internal/ops"
	"github.com/hpungsan/binder/internal/viewer"
	"github.com/hpungsan/binder/internal/web"
)

// newCLIApp creates the CLI application with all commands.
// rt is nil when only help or version output is needed.
func newCLIApp(rt *env) *cli.App {
	app := &cli.App{
		Name:    "binder",
		Usage:   "Pokémon card viewer and collection",
		Version: Version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Usage: "Log at debug level"},
		},
		Commands: []*cli.Command{
			searchCmd(rt),
			showCmd(rt),
			saveCmd(rt),
			savedCmd(rt),
			exportCmd(rt),
			serveCmd(rt),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// searchCmd creates the search command.
func searchCmd(rt *env) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search by card code or name and print the resulting view",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "pick", Aliases: []string{"p"}, Value: -1, Usage: "Select the candidate at this index"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one query is required (quote names with spaces)"))
			}

			sess := viewer.NewSession("cli", rt.search, rt.logger)
			defer sess.Close()

			out, err := ops.Search(c.Context, sess, rt.mgr, ops.SearchInput{Query: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			if pick := c.Int("pick"); pick >= 0 {
				out, err = ops.Select(sess, rt.mgr, ops.SelectInput{Index: &pick})
				if err != nil {
					return outputError(err)
				}
			}

			return outputJSON(c.App.Writer, out)
		},
	}
}

// showCmd creates the show command.
func showCmd(rt *env) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Print the full record of one card",
		ArgsUsage: "<code>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("exactly one card code is required"))
			}
			code := c.Args().First()

			sess := viewer.NewSession("cli", rt.search, rt.logger)
			defer sess.Close()

			out, err := ops.Search(c.Context, sess, rt.mgr, ops.SearchInput{Query: code})
			if err != nil {
				return outputError(err)
			}
			if out.Selected == nil {
				return outputError(unresolved(code, out))
			}

			return outputJSON(c.App.Writer, out.Selected)
		},
	}
}

// saveCmd creates the save command.
func saveCmd(rt *env) *cli.Command {
	return &cli.Command{
		Name:      "save",
		Usage:     "Look up card codes and save every card found",
		ArgsUsage: "<code> [code...]",
		Action: func(c *cli.Context) error {
			output, err := ops.SaveCodes(c.Context, rt.search, rt.mgr, ops.SaveCodesInput{Codes: c.Args().Slice()})
			if err != nil {
				return outputError(err)
			}

			if err := outputJSON(c.App.Writer, output); err != nil {
				return err
			}
			if len(output.Errors) > 0 {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}

// savedCmd creates the saved command.
func savedCmd(rt *env) *cli.Command {
	return &cli.Command{
		Name:  "saved",
		Usage: "List saved cards in the order they were saved",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name-prefix", Usage: "Filter by name prefix"},
			&cli.StringFlag{Name: "supertype", Usage: "Filter by supertype"},
			&cli.StringFlag{Name: "rarity", Usage: "Filter by rarity"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: 20, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
			&cli.BoolFlag{Name: "table", Aliases: []string{"t"}, Usage: "Print a table instead of JSON"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ListSavedInput{
				NamePrefix: c.String("name-prefix"),
				Supertype:  c.String("supertype"),
				Rarity:     c.String("rarity"),
				Limit:      c.Int("limit"),
				Offset:     c.Int("offset"),
			}

			output, err := ops.ListSaved(rt.mgr, input)
			if err != nil {
				return outputError(err)
			}

			if c.Bool("table") {
				renderSavedTable(c.App.Writer, output)
				return nil
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(rt *env) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export saved cards to a JSON file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.binder/exports/binder-<timestamp>.json)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, rt.mgr, rt.cfg, ops.ExportInput{Path: c.String("path")})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c.App.Writer, output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(rt *env) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8420, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			sessions := viewer.NewSessions(rt.search, rt.cfg.SessionIdle(), rt.logger)
			defer sessions.Close()

			srv, err := web.NewServer(web.Deps{
				Manager:  rt.mgr,
				Sessions: sessions,
				Logger:   rt.logger,
			}, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			return web.Run(srv, rt.logger)
		},
	}
}

// Helper functions

// unresolved explains why a lookup did not land on a single card.
func unresolved(code string, out *ops.ViewOutput) error {
	if out.View == viewer.ViewCandidates {
		return errors.NewInvalidRequest(fmt.Sprintf("%q matches %d cards; use search to pick one", code, len(out.Candidates)))
	}
	if out.Notice != nil && out.Notice.Code == errors.ErrServiceUnavailable {
		return errors.NewServiceUnavailable(code, nil)
	}
	return errors.NewNotFound(code)
}

// renderSavedTable prints saved cards as a table.
func renderSavedTable(w io.Writer, output *ops.ListSavedOutput) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "ID", "Name", "Supertype", "Rarity", "Set"})
	for i, item := range output.Items {
		t.AppendRow(table.Row{output.Pagination.Offset + i + 1, item.ID, item.Name, item.Supertype, item.Rarity, item.SetName})
	}
	t.AppendFooter(table.Row{"", "", "", "", "Total", output.Pagination.Total})
	t.Render()
}

// outputJSON marshals v to w as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var bErr *errors.BinderError
	if stderrors.As(err, &bErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", bErr.Code, bErr.Message), 1)
	}
	if stderrors.Is(err, context.Canceled) {
		return cli.Exit("interrupted", 130)
	}
	return cli.Exit(err.Error(), 1)
}
