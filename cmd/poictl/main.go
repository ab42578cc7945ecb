// Command poictl is an operator CLI for parsing, searching and loading places.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/app"
	"github.com/kailas-cloud/poisearch/internal/config"
	"github.com/kailas-cloud/poisearch/internal/domain/geo"
	"github.com/kailas-cloud/poisearch/internal/domain/place"
	"github.com/kailas-cloud/poisearch/internal/domain/search/query"
	"github.com/kailas-cloud/poisearch/internal/domain/search/request"
	"github.com/kailas-cloud/poisearch/internal/domain/search/sortby"
	logpkg "github.com/kailas-cloud/poisearch/internal/logger"
	"github.com/kailas-cloud/poisearch/internal/usecase/ingest"
	"github.com/kailas-cloud/poisearch/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "poictl",
		Usage:   "Operate the poisearch place index",
		Version: version.Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Config environment (config/<env>.yaml)",
				EnvVars: []string{"ENV"},
				Value:   "local",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "parse",
				Usage:     "Show how a query is interpreted",
				ArgsUsage: "<query>",
				Action:    parseCommand,
			},
			{
				Name:      "search",
				Usage:     "Run a search against the index",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: "lat", Usage: "User latitude"},
					&cli.Float64Flag{Name: "lng", Usage: "User longitude"},
					&cli.Float64Flag{Name: "radius", Usage: "Search radius in km", Value: request.DefaultRadiusKm},
					&cli.IntFlag{Name: "limit", Usage: "Maximum results", Value: request.DefaultLimit},
					&cli.StringFlag{Name: "category", Usage: "Exact category filter"},
					&cli.StringFlag{Name: "sort", Usage: "relevance, distance or rating", Value: string(sortby.Relevance)},
					&cli.BoolFlag{Name: "privileged", Usage: "Include unpublished places"},
				},
			},
			{
				Name:   "ingest",
				Usage:  "Bulk load places from a JSON Lines file",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "Path to a .jsonl file, one place per line (- for stdin)",
						Required: true,
					},
				},
			},
			{
				Name:   "stats",
				Usage:  "Show semantic index statistics",
				Action: statsCommand,
			},
		},
	}
}

func parseCommand(c *cli.Context) error {
	q := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if q == "" {
		return cli.Exit("query is required", 2)
	}
	return printJSON(c.App.Writer, query.Parse(q))
}

func searchCommand(c *cli.Context) error {
	q := strings.Join(c.Args().Slice(), " ")
	radius, limit := c.Float64("radius"), c.Int("limit")
	params := request.Params{
		Query:          q,
		RadiusKm:       &radius,
		Limit:          &limit,
		CategoryFilter: c.String("category"),
		SortBy:         sortby.SortBy(c.String("sort")),
	}
	if c.IsSet("lat") || c.IsSet("lng") {
		params.UserLocation = &geo.Point{Lat: c.Float64("lat"), Lng: c.Float64("lng")}
	}
	scope := place.ScopePublic
	if c.Bool("privileged") {
		scope = place.ScopePrivileged
	}

	return withApp(c, func(ctx context.Context, a *app.App) error {
		resp, err := a.Search.Search(ctx, params, scope)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, resp)
	})
}

func ingestCommand(c *cli.Context) error {
	in, closeIn, err := openInput(c.String("file"))
	if err != nil {
		return err
	}
	defer closeIn()

	return withApp(c, func(ctx context.Context, a *app.App) error {
		if err := a.EnsureIndexes(ctx); err != nil {
			return err
		}
		total := ingest.Response{Errors: []string{}}
		err := readPlaces(in, a.Ingest.MaxBatchSize(), func(batch []place.Place) error {
			resp, err := a.Ingest.BulkIngest(ctx, ingest.Request{Places: batch})
			total.SuccessCount += resp.SuccessCount
			total.ErrorCount += resp.ErrorCount
			total.Errors = append(total.Errors, resp.Errors...)
			total.ProcessingTimeMs += resp.ProcessingTimeMs
			return err
		})
		if perr := printJSON(c.App.Writer, total); perr != nil {
			return perr
		}
		return err
	})
}

func statsCommand(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		st, err := a.Semantic.Stats(ctx)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, st)
	})
}

// withApp loads config, wires services and runs fn.
func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	env := c.String("env")
	cfg, err := config.Load(env)
	if err != nil {
		return err
	}
	logger, err := logpkg.New(logpkg.Options{Env: env, Level: c.String("log-level"), Component: "poictl"})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := logpkg.ContextWithLogger(c.Context, logger.With(zap.String("command", c.Command.Name)))
	return fn(ctx, a)
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

// readPlaces decodes JSON Lines and hands them to flush in batches of at most size.
// Blank lines are skipped; a malformed line aborts with its line number.
func readPlaces(r io.Reader, size int, flush func([]place.Place) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4<<20)

	batch := make([]place.Place, 0, size)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var p place.Place
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		batch = append(batch, p)
		if len(batch) == size {
			if err := flush(batch); err != nil {
				return err
			}
			batch = make([]place.Place, 0, size)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	if len(batch) > 0 {
		return flush(batch)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
