// archviz CLI - Terraform state architecture visualizer engine.
//
// Usage:
//
//	archviz parse --state terraform.tfstate [--format json]
//	archviz summary --state terraform.tfstate
//	archviz insight --state terraform.tfstate [--offline]
//	archviz serve --port 8080
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"terraform-archviz/api"
	"terraform-archviz/internal/engine"
	"terraform-archviz/internal/history"
	"terraform-archviz/internal/insight"
	"terraform-archviz/internal/summary"
	"terraform-archviz/pkg/arch"
	"terraform-archviz/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// statePatterns are the file name patterns tried when --state points at
// a directory.
var statePatterns = []string{"*.tfstate", "terraform.tfstate*", "*.tfstateenv*"}

func main() {
	chDefaults := history.DefaultConfig()

	app := &cli.App{
		Name:    "archviz",
		Usage:   "Terraform state to architecture graph engine",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"ARCHVIZ_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:  "clickhouse-host",
				Value: chDefaults.Host,
				Usage: "ClickHouse host for the history store ($CLICKHOUSE_HOST)",
			},
			&cli.IntFlag{
				Name:  "clickhouse-port",
				Value: chDefaults.Port,
				Usage: "ClickHouse native port ($CLICKHOUSE_PORT)",
			},
			&cli.StringFlag{
				Name:  "clickhouse-database",
				Value: chDefaults.Database,
				Usage: "ClickHouse database ($CLICKHOUSE_DATABASE)",
			},
			&cli.StringFlag{
				Name:  "clickhouse-user",
				Value: chDefaults.Username,
				Usage: "ClickHouse user ($CLICKHOUSE_USER)",
			},
			&cli.StringFlag{
				Name:  "clickhouse-password",
				Value: chDefaults.Password,
				Usage: "ClickHouse password ($CLICKHOUSE_PASSWORD)",
			},
		},

		Before: func(c *cli.Context) error {
			platform.InitLogger(c.String("log-level"))
			return nil
		},

		Commands: []*cli.Command{
			parseCommand(),
			summaryCommand(),
			insightCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseCommand() *cli.Command {
	return &cli.Command{
		Name:  "parse",
		Usage: "Parse state files into architecture graphs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "state",
				Aliases:  []string{"s"},
				Usage:    "Path to a .tfstate file or a directory of state files",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format (text, json)",
			},
			&cli.BoolFlag{
				Name:  "save",
				Usage: "Record the parse run in the ClickHouse history store",
			},
		},
		Action: runParse,
	}
}

func summaryCommand() *cli.Command {
	return &cli.Command{
		Name:  "summary",
		Usage: "Print the resource summary of a state file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "state",
				Aliases:  []string{"s"},
				Usage:    "Path to a .tfstate file",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "text",
				Usage:   "Output format (text, json)",
			},
		},
		Action: runSummary,
	}
}

func insightCommand() *cli.Command {
	return &cli.Command{
		Name:  "insight",
		Usage: "Generate an infrastructure analysis from a state file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "state",
				Aliases:  []string{"s"},
				Usage:    "Path to a .tfstate file",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "offline",
				Usage: "Use the built-in offline analysis instead of the API",
			},
			&cli.StringFlag{
				Name:    "model",
				Usage:   "Chat completion model",
				EnvVars: []string{"ARCHVIZ_INSIGHT_MODEL"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key for the insight service",
				EnvVars: []string{"OPENAI_API_KEY"},
			},
		},
		Action: runInsight,
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Value: api.DefaultConfig().Port,
				Usage: "HTTP listen port ($ARCHVIZ_PORT)",
			},
			&cli.BoolFlag{
				Name:  "with-history",
				Usage: "Enable the ClickHouse history store",
			},
		},
		Action: runServe,
	}
}

func runParse(c *cli.Context) error {
	eng := engine.New()

	files, err := stateFiles(c.String("state"))
	if err != nil {
		return err
	}

	var store *history.Store
	if c.Bool("save") {
		store, err = openStore(c)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	for _, file := range files {
		a, err := eng.ParseFile(file)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		log.Info().
			Str("file", file).
			Str("provider", string(a.Provider)).
			Int("resources", len(a.Resources)).
			Int("edges", len(a.Edges)).
			Msg("Parsed state file")

		if store != nil {
			sum := summary.Build(a)
			if _, err := store.Record(c.Context, filepath.Base(file), a, sum); err != nil {
				return fmt.Errorf("failed to record snapshot for %s: %w", file, err)
			}
		}

		if c.String("format") == "json" {
			if err := outputJSON(a); err != nil {
				return err
			}
		} else {
			outputArchitecture(file, a)
		}
	}
	return nil
}

func runSummary(c *cli.Context) error {
	a, err := engine.New().ParseFile(c.String("state"))
	if err != nil {
		return err
	}
	sum := summary.Build(a)
	if c.String("format") == "json" {
		return outputJSON(sum)
	}
	fmt.Print(sum.Text())
	return nil
}

func runInsight(c *cli.Context) error {
	a, err := engine.New().ParseFile(c.String("state"))
	if err != nil {
		return err
	}
	sum := summary.Build(a)

	var gen insight.Generator
	if c.Bool("offline") || c.String("api-key") == "" {
		if !c.Bool("offline") {
			log.Warn().Msg("No API key configured, using offline analysis")
		}
		gen = insight.StaticGenerator{}
	} else {
		gen, err = insight.NewOpenAIGenerator(c.String("api-key"), c.String("model"))
		if err != nil {
			return err
		}
	}

	text, err := gen.Generate(c.Context, sum)
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func runServe(c *cli.Context) error {
	var store *history.Store
	if c.Bool("with-history") {
		var err error
		store, err = openStore(c)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	cfg := api.DefaultConfig()
	cfg.Port = c.Int("port")

	server := api.NewServer(engine.New(), store, cfg)
	return server.StartWithGracefulShutdown()
}

// openStore connects to ClickHouse using the global flags (defaulted
// from the CLICKHOUSE_* environment) and ensures the snapshot table
// exists.
func openStore(c *cli.Context) (*history.Store, error) {
	cfg := history.DefaultConfig()
	cfg.Host = c.String("clickhouse-host")
	cfg.Port = c.Int("clickhouse-port")
	cfg.Database = c.String("clickhouse-database")
	cfg.Username = c.String("clickhouse-user")
	cfg.Password = c.String("clickhouse-password")

	store, err := history.NewStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(context.Background()); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// stateFiles resolves --state to a list of files: the path itself, or
// every matching state file when it is a directory.
func stateFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	seen := make(map[string]bool)
	var files []string
	for _, pattern := range statePatterns {
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no state files found in %s", path)
	}
	return files, nil
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputArchitecture prints a readable rendering: the grouping tree
// depth-first, then the dependency edges.
func outputArchitecture(file string, a *arch.Architecture) {
	fmt.Printf("%s\n", file)
	fmt.Printf("  provider: %s, resources: %d, edges: %d\n\n",
		a.Provider, len(a.Resources), len(a.Edges))

	printGroup(a.Groups, 1)

	if len(a.Edges) > 0 {
		fmt.Printf("\n  edges:\n")
		for _, e := range a.Edges {
			fmt.Printf("    %s -> %s (%s)\n", e.From, e.To, e.Kind)
		}
	}
	fmt.Println()
}

func printGroup(n *arch.GroupNode, depth int) {
	if n == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	fmt.Printf("%s[%s]\n", indent, n.Label)
	for _, m := range n.Members {
		fmt.Printf("%s  - %s\n", indent, m)
	}
	for _, c := range n.Children {
		printGroup(c, depth+1)
	}
}
