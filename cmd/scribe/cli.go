package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/scribe/internal/assemble"
	"github.com/hpungsan/scribe/internal/docs"
	"github.com/hpungsan/scribe/internal/errors"
	"github.com/hpungsan/scribe/internal/ops"
)

// newCLIApp creates the CLI application with all commands.
// env may be nil when only help or version output is needed.
func newCLIApp(env *ops.Env) *cli.App {
	app := &cli.App{
		Name:    "scribe",
		Usage:   "Transcript chunking, topics and context assembly",
		Version: Version,
		Commands: []*cli.Command{
			splitCmd(env),
			topicsCmd(env),
			formatCmd(env),
			assembleCmd(env),
			askCmd(env),
			indexCmd(env),
			unindexCmd(env),
			searchCmd(env),
			docsCmd(env),
			importCmd(env),
			exportCmd(env),
		},
		// --item values carry commas between topic IDs
		DisableSliceFlagSeparator: true,
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// itemFlag selects documents for assemble, ask and export.
func itemFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:    "item",
		Aliases: []string{"i"},
		Usage:   "Document to include, optionally with topics: name or name#topic-id,topic-id (repeatable)",
	}
}

// splitCmd creates the split command.
func splitCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "split",
		Usage:     "Split a document into boundary-aware chunks (reads stdin when no document is given)",
		ArgsUsage: "[document]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "chunk-size", Aliases: []string{"s"}, Usage: "Target chunk size in bytes"},
			&cli.IntFlag{Name: "window", Usage: "Boundary search radius in bytes"},
			&cli.IntFlag{Name: "overlap", Usage: "Overlap context size in bytes"},
			&cli.BoolFlag{Name: "text", Usage: "Include chunk text"},
			&cli.BoolFlag{Name: "show-overlap", Usage: "Include overlap windows"},
		},
		Action: func(c *cli.Context) error {
			src, err := sourceFromArgs(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Split(c.Context, env, ops.SplitInput{
				Source:         src,
				ChunkSize:      c.Int("chunk-size"),
				BoundaryWindow: c.Int("window"),
				OverlapSize:    c.Int("overlap"),
				IncludeText:    c.Bool("text"),
				IncludeOverlap: c.Bool("show-overlap"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// topicsCmd creates the topics command.
func topicsCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "topics",
		Usage:     "List the topics of a formatted markdown document (reads stdin when no document is given)",
		ArgsUsage: "[document]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Only the topic with this ID"},
			&cli.BoolFlag{Name: "content", Aliases: []string{"c"}, Usage: "Include topic content"},
			&cli.BoolFlag{Name: "html", Usage: "Render topics to HTML"},
		},
		Action: func(c *cli.Context) error {
			src, err := sourceFromArgs(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Topics(c.Context, env, ops.TopicsInput{
				Source:         src,
				ID:             c.String("id"),
				IncludeContent: c.Bool("content"),
				HTML:           c.Bool("html"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// formatCmd creates the format command.
func formatCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "format",
		Usage:     "Format a transcript into markdown with the LLM (reads stdin when no document is given)",
		ArgsUsage: "[document]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "Prompt template containing {content}"},
			&cli.StringFlag{Name: "template-file", Usage: "Read the prompt template from a file"},
			&cli.IntFlag{Name: "chunk-size", Aliases: []string{"s"}, Usage: "Target chunk size in bytes"},
			&cli.IntFlag{Name: "concurrency", Aliases: []string{"j"}, Usage: "Chunks transformed at once"},
			&cli.StringFlag{Name: "model", Usage: "Model override"},
			&cli.BoolFlag{Name: "save", Usage: "Save as <document>.formatted.md"},
			&cli.StringFlag{Name: "save-as", Usage: "Save under this markdown name"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace"},
			&cli.BoolFlag{Name: "index", Usage: "Index the saved document"},
			&cli.BoolFlag{Name: "raw", Usage: "Print only the formatted text"},
		},
		Action: func(c *cli.Context) error {
			src, err := sourceFromArgs(c)
			if err != nil {
				return outputError(err)
			}

			template := c.String("template")
			if path := c.String("template-file"); path != "" {
				if template != "" {
					return outputError(errors.NewInvalidRequest("use either --template or --template-file"))
				}
				data, err := os.ReadFile(path)
				if err != nil {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("read template: %v", err)))
				}
				template = string(data)
			}

			output, err := ops.Format(c.Context, env, ops.FormatInput{
				Source:      src,
				Template:    template,
				ChunkSize:   c.Int("chunk-size"),
				Concurrency: c.Int("concurrency"),
				Model:       c.String("model"),
				Save:        c.Bool("save"),
				SaveAs:      c.String("save-as"),
				Mode:        docs.SaveMode(c.String("mode")),
				Index:       c.Bool("index"),
			})
			if err != nil {
				return outputError(err)
			}

			if c.Bool("raw") {
				for _, w := range output.Warnings {
					fmt.Fprintf(os.Stderr, "warning: %s\n", w)
				}
				_, err := fmt.Fprintln(os.Stdout, output.Text)
				return err
			}
			return outputJSON(output)
		},
	}
}

// assembleCmd creates the assemble command.
func assembleCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "assemble",
		Usage: "Assemble prompt context from passages and selected documents",
		Flags: []cli.Flag{
			itemFlag(),
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Retrieval query"},
			&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "Passages to retrieve"},
			&cli.BoolFlag{Name: "raw", Usage: "Print only the assembled text"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Assemble(c.Context, env, assembleInput(c))
			if err != nil {
				return outputError(err)
			}

			if c.Bool("raw") {
				for _, w := range output.Warnings {
					fmt.Fprintf(os.Stderr, "warning: %s\n", w)
				}
				_, err := fmt.Fprintln(os.Stdout, output.Text)
				return err
			}
			return outputJSON(output)
		},
	}
}

// askCmd creates the ask command.
func askCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "Answer a question with the LLM over assembled context",
		ArgsUsage: "<question>",
		Flags: []cli.Flag{
			itemFlag(),
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Retrieval query (default: the question)"},
			&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "Passages to retrieve"},
			&cli.BoolFlag{Name: "no-retrieval", Usage: "Skip passage search"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Ask(c.Context, env, ops.AskInput{
				Question:      strings.Join(c.Args().Slice(), " "),
				AssembleInput: assembleInput(c),
				NoRetrieval:   c.Bool("no-retrieval"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// indexCmd creates the index command.
func indexCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "index",
		Usage:     "Index documents into searchable passages",
		ArgsUsage: "[document...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "all", Aliases: []string{"a"}, Usage: "Index every stored document"},
			&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Reindex unchanged documents"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Index(c.Context, env, ops.IndexInput{
				Documents: c.Args().Slice(),
				All:       c.Bool("all"),
				Force:     c.Bool("force"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// unindexCmd creates the unindex command.
func unindexCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "unindex",
		Usage:     "Remove a document's passages from the index",
		ArgsUsage: "<document>",
		Action: func(c *cli.Context) error {
			output, err := ops.Unindex(c.Context, env, ops.UnindexInput{Document: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search indexed passages",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "Maximum passages"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Search(c.Context, env, ops.SearchInput{
				Query: strings.Join(c.Args().Slice(), " "),
				TopK:  c.Int("top-k"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// docsCmd creates the docs command.
func docsCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:  "docs",
		Usage: "List stored documents and their index state",
		Action: func(c *cli.Context) error {
			output, err := ops.ListDocuments(c.Context, env)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// importCmd creates the import command.
func importCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Copy a transcript file into the document store",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Stored name (default: file name)"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Collision mode: error|replace|rename"},
			&cli.BoolFlag{Name: "index", Usage: "Also index the document"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, env, ops.ImportInput{
				Path:  c.Args().First(),
				Name:  c.String("name"),
				Mode:  ops.ImportMode(c.String("mode")),
				Index: c.Bool("index"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *ops.Env) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write a stored document, or an assembled context, to a file",
		ArgsUsage: "[document]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Destination path (default: ~/.scribe/exports)"},
			itemFlag(),
			&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Retrieval query for an assembled export"},
			&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "Passages to retrieve"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ExportInput{Path: c.String("path")}
			if c.NArg() > 0 {
				input.Document = c.Args().First()
			} else {
				asm := assembleInput(c)
				input.Assemble = &asm
			}

			output, err := ops.Export(c.Context, env, input)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(output)
		},
	}
}

// Helper functions

// sourceFromArgs reads the document name from the first argument, or the
// text from stdin when no argument is given.
func sourceFromArgs(c *cli.Context) (ops.Source, error) {
	if c.NArg() > 0 {
		return ops.Source{Document: c.Args().First()}, nil
	}
	if !stdinHasData() {
		return ops.Source{}, errors.NewInvalidRequest("document argument or piped text is required")
	}
	text, err := readStdin()
	if err != nil {
		return ops.Source{}, errors.NewInternal(err)
	}
	return ops.Source{Text: text}, nil
}

// assembleInput builds an assemble request from the --item, --query and --top-k flags.
func assembleInput(c *cli.Context) ops.AssembleInput {
	return ops.AssembleInput{
		Items: parseItems(c.StringSlice("item")),
		Query: c.String("query"),
		TopK:  c.Int("top-k"),
	}
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if scribeErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", scribeErr.Code, scribeErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads all content from stdin. The text is kept byte-for-byte:
// chunk offsets refer to it.
func readStdin() (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, int64(ops.MaxInlineBytes)+1))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// parseItems parses "name" and "name#topic-a,topic-b" selections.
func parseItems(values []string) []assemble.Item {
	if len(values) == 0 {
		return nil
	}
	items := make([]assemble.Item, 0, len(values))
	for _, v := range values {
		name, topics, _ := strings.Cut(strings.TrimSpace(v), "#")
		items = append(items, assemble.Item{Document: name, Topics: parseList(topics)})
	}
	return items
}

// parseList splits a comma-separated string, dropping empty entries.
func parseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
