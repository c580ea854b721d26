package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hanpama/graphkit/internal/compiler"
	"github.com/hanpama/graphkit/internal/engine"
	"github.com/hanpama/graphkit/internal/eventbus"
	"github.com/hanpama/graphkit/internal/logging"
	"github.com/hanpama/graphkit/internal/metrics"
	"github.com/hanpama/graphkit/internal/otel"
	"github.com/hanpama/graphkit/internal/schema"
	"github.com/hanpama/graphkit/internal/services"
	"github.com/hanpama/graphkit/internal/settings"
	"github.com/hanpama/graphkit/internal/shop"
)

const rootUsage = `graphkit - compile modeled types into a GraphQL schema and run queries

USAGE:
  graphkit <command> [flags]

COMMANDS:
  sdl              Print the SDL of the demo shop schema
  query            Run a GraphQL request against the demo shop
  help             Show help for any command
`

const sdlUsage = `sdl FLAGS:
  -out <file>                  Write the SDL to file (default: stdout)
  -config <file>               YAML settings file
  -log.level <level>           Log level (default: warn)
  -log.format <text|json>      Log format (default: text)
`

const queryUsage = `query FLAGS:
  -query <document>            GraphQL document to run
  -file <file>                 Read the document from file
  -operation <name>            Operation to run when the document has several
  -variables <json>            Variables as a JSON object
  -viewer <customer id>        Run as this customer
  -admin                       Run as an administrator
  -config <file>               YAML settings file
  -log.level <level>           Log level (default: warn)
  -log.format <text|json>      Log format (default: text)
  -loader.max-batch N          Max keys per batch fetch (default: 100)
  -loader.concurrency N        Max concurrent batch fetches (default: 8)
  -otel.endpoint <addr>        OTLP collector endpoint
  -otel.service <name>         OpenTelemetry service name (default: graphkit)
  -pretty                      Pretty-print the JSON result
  -metrics                     Print Prometheus metrics after the result
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, out io.Writer) error {
	global := flag.NewFlagSet("graphkit", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "sdl":
		return cmdSDL(cmdArgs, out)
	case "query":
		return cmdQuery(cmdArgs, out)
	case "help":
		return cmdHelp(cmdArgs, out)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, rootUsage)
		return nil
	}
	switch args[0] {
	case "sdl":
		fmt.Fprint(out, sdlUsage)
	case "query":
		fmt.Fprint(out, queryUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

func cmdSDL(args []string, out io.Writer) error {
	outFile := ""
	fs := flag.NewFlagSet("sdl", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&outFile, "out", outFile, "Write the SDL to file")
	cfg, err := settings.Parse(fs, args)
	if err != nil {
		fmt.Fprint(os.Stderr, sdlUsage)
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}

	s, _, err := compileShop(logger, shop.Demo())
	if err != nil {
		return err
	}
	sdl := schema.Render(s)
	if outFile == "" {
		fmt.Fprint(out, sdl)
		return nil
	}
	return os.WriteFile(outFile, []byte(sdl), 0644)
}

func cmdQuery(args []string, out io.Writer) error {
	query := ""
	file := ""
	operation := ""
	variables := ""
	viewer := shop.Viewer{}
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&query, "query", query, "GraphQL document to run")
	fs.StringVar(&file, "file", file, "Read the document from file")
	fs.StringVar(&operation, "operation", operation, "Operation to run")
	fs.StringVar(&variables, "variables", variables, "Variables as a JSON object")
	fs.StringVar(&viewer.CustomerID, "viewer", viewer.CustomerID, "Run as this customer")
	fs.BoolVar(&viewer.Admin, "admin", viewer.Admin, "Run as an administrator")
	cfg, err := settings.Parse(fs, args)
	if err != nil {
		fmt.Fprint(os.Stderr, queryUsage)
		return err
	}
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		query = string(b)
	}
	if query == "" {
		fmt.Fprint(os.Stderr, queryUsage)
		return fmt.Errorf("-query or -file is required")
	}
	req := engine.Request{Query: query, OperationName: operation}
	if variables != "" {
		if err := json.Unmarshal([]byte(variables), &req.Variables); err != nil {
			return fmt.Errorf("parse variables: %w", err)
		}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)
	promReg := prometheus.NewRegistry()
	collectors, err := metrics.New(promReg)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	collectors.Subscribe(eventbus.Current())
	defer collectors.Close()
	shutdown, err := otel.Setup(cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	s, reg, err := compileShop(logger, shop.Demo())
	if err != nil {
		return err
	}
	e, err := engine.New(s, reg,
		engine.WithLogger(logging.Component(logger, "engine")),
		engine.WithMaxBatch(cfg.Loader.MaxBatch),
		engine.WithConcurrency(cfg.Loader.Concurrency),
	)
	if err != nil {
		return err
	}

	ctx := shop.WithViewer(context.Background(), viewer)
	res := e.Execute(ctx, req)

	var body []byte
	if cfg.Output.Pretty {
		body, err = json.MarshalIndent(res, "", "  ")
	} else {
		body, err = json.Marshal(res)
	}
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Fprintln(out, string(body))

	if cfg.Output.Metrics {
		return metrics.Write(out, promReg)
	}
	return nil
}

func newLogger(cfg settings.Settings) (logging.Logger, error) {
	return logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
}

func compileShop(logger logging.Logger, store *shop.Store) (*schema.Schema, *services.Registry, error) {
	reg := services.NewRegistry()
	shop.Register(reg, store)
	s, err := compiler.Compile(shop.Schema(),
		compiler.WithServices(reg),
		compiler.WithLogger(logging.Component(logger, "compiler")),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("compile schema: %w", err)
	}
	return s, reg, nil
}
