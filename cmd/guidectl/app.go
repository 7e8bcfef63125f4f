package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	mcpadapter "github.com/kirillkom/guideline-retrieval/internal/adapters/mcp"
	"github.com/kirillkom/guideline-retrieval/internal/bootstrap"
	"github.com/kirillkom/guideline-retrieval/internal/config"
	"github.com/kirillkom/guideline-retrieval/internal/core/domain"
	"github.com/kirillkom/guideline-retrieval/internal/core/heuristics"
	"github.com/kirillkom/guideline-retrieval/internal/core/tables"
	"github.com/kirillkom/guideline-retrieval/internal/infrastructure/attachments"
	"github.com/kirillkom/guideline-retrieval/internal/observability/logging"
)

const (
	serviceName = "guidectl"
	version     = "1.0.0"
)

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   serviceName,
		Usage:  "Inspect and query the TB guideline retrieval engine",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load configuration variables from this file",
				Value: ".env",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
			&cli.StringFlag{
				Name:  "rules",
				Usage: "Path to a retrieval rules YAML file (embedded defaults when empty)",
			},
		},
		Before: func(c *cli.Context) error {
			return config.LoadDotEnv(c.String("env-file"))
		},
		Commands: []*cli.Command{
			{
				Name:      "classify",
				Usage:     "Show intent flags and the resolved scope for a question",
				ArgsUsage: "<question>",
				Action:    classifyCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "scope", Usage: "Explicit scope"},
				},
			},
			{
				Name:      "search",
				Usage:     "Run a guideline search and print the response",
				ArgsUsage: "<question>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Usage: "Number of results (1-8)"},
					&cli.StringFlag{Name: "scope", Usage: "Explicit scope"},
					&cli.BoolFlag{Name: "rows", Usage: "Include structured table rows"},
					&cli.IntFlag{Name: "row-limit", Usage: "Maximum rows per table"},
					&cli.BoolFlag{Name: "no-log", Usage: "Drop the retrieval log from the output"},
				},
			},
			{
				Name:      "table",
				Usage:     "Normalize, classify and render one table attachment",
				ArgsUsage: "<attachment-path>",
				Action:    tableCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "root", Usage: "Tables root directory (TABLES_ROOT when empty)"},
					&cli.StringFlag{Name: "caption", Usage: "Table caption"},
					&cli.StringFlag{Name: "section", Usage: "Section path of the table chunk"},
				},
			},
			{
				Name:   "mcp",
				Usage:  "Serve the search tool over MCP stdio",
				Action: mcpCommand,
			},
		},
	}
}

// stderrLogger keeps stdout clean for command output and the stdio transport.
func stderrLogger(c *cli.Context) *slog.Logger {
	return logging.NewJSONLoggerTo(os.Stderr, serviceName, c.String("log-level"))
}

func loadConfig(c *cli.Context) config.Config {
	cfg := config.Load()
	if rules := c.String("rules"); rules != "" {
		cfg.RulesPath = rules
	}
	return cfg
}

func questionArg(c *cli.Context) (string, error) {
	q := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if q == "" {
		return "", fmt.Errorf("question is required")
	}
	return q, nil
}

func parseScopeFlag(c *cli.Context) (domain.Scope, error) {
	scope, ok := domain.ParseScope(c.String("scope"))
	if !ok {
		return domain.ScopeNone, fmt.Errorf("unknown scope %q", c.String("scope"))
	}
	return scope, nil
}

func classifyCommand(c *cli.Context) error {
	question, err := questionArg(c)
	if err != nil {
		return err
	}
	scope, err := parseScopeFlag(c)
	if err != nil {
		return err
	}
	rules, err := heuristics.Load(loadConfig(c).RulesPath)
	if err != nil {
		return err
	}

	flags := rules.Classify(question)
	return printJSON(c.App.Writer, map[string]any{
		"question": question,
		"flags":    flags.Sorted(),
		"scope":    rules.ResolveScope(question, flags, scope),
	})
}

func searchCommand(c *cli.Context) error {
	question, err := questionArg(c)
	if err != nil {
		return err
	}
	scope, err := parseScopeFlag(c)
	if err != nil {
		return err
	}

	cfg := loadConfig(c)
	cfg.WarmCorpus = false
	app, err := bootstrap.New(cfg, stderrLogger(c), serviceName)
	if err != nil {
		return err
	}

	resp, err := app.SearchUC.Search(c.Context, domain.SearchRequest{
		Question:         question,
		TopK:             c.Int("top-k"),
		Scope:            scope,
		IncludeTableRows: c.Bool("rows"),
		TableRowLimit:    c.Int("row-limit"),
	})
	if err != nil {
		return err
	}
	if c.Bool("no-log") {
		resp.RetrievalLog = nil
	}
	return printJSON(c.App.Writer, resp)
}

func tableCommand(c *cli.Context) error {
	path := strings.TrimSpace(c.Args().First())
	if path == "" {
		return fmt.Errorf("attachment path is required")
	}
	cfg := loadConfig(c)
	root := c.String("root")
	if root == "" {
		root = cfg.TablesRoot
	}
	rules, err := heuristics.Load(cfg.RulesPath)
	if err != nil {
		return err
	}
	store, err := attachments.New(root)
	if err != nil {
		return err
	}

	raw, err := store.ReadTable(c.Context, path)
	if err != nil {
		return err
	}
	chunk := domain.Chunk{
		ChunkID:        filepath.Base(path),
		SectionPath:    c.String("section"),
		Text:           c.String("caption"),
		ContentType:    domain.ContentTable,
		AttachmentPath: path,
	}
	table := tables.Normalize(raw)
	subtype := tables.Detect(rules.Tables, chunk.Text, chunk.SectionPath, table.Headers)
	rendering := tables.Render(subtype, chunk, table, rules.Tables)
	return printJSON(c.App.Writer, map[string]any{
		"table_subtype":   rendering.Subtype,
		"table_text":      rendering.Text,
		"table_row_count": len(table.Rows),
		"debug":           rendering.Debug,
	})
}

func mcpCommand(c *cli.Context) error {
	cfg := loadConfig(c)
	logger := stderrLogger(c)
	app, err := bootstrap.New(cfg, logger, serviceName)
	if err != nil {
		return err
	}
	go app.Warm(c.Context)
	return mcpadapter.NewServer(app.SearchUC, version, logger).ServeStdio()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
