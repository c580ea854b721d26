// Package settings holds the CLI configuration. Values come from defaults,
// then an optional YAML file, then command-line flags.
package settings

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	Log    Log    `yaml:"log"`
	Loader Loader `yaml:"loader"`
	Otel   Otel   `yaml:"otel"`
	Output Output `yaml:"output"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

type Loader struct {
	// MaxBatch splits fetches with more keys. Zero disables splitting.
	MaxBatch    int `yaml:"maxBatch"`
	Concurrency int `yaml:"concurrency"`
}

type Otel struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

type Output struct {
	Pretty bool `yaml:"pretty"`
	// Metrics prints the Prometheus metrics after the command ran.
	Metrics bool `yaml:"metrics"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		Log:    Log{Level: "warn", Format: "text"},
		Loader: Loader{MaxBatch: 100, Concurrency: 8},
		Otel:   Otel{Service: "graphkit"},
	}
}

// Decode reads YAML from r over s. Unknown keys are rejected.
func Decode(r io.Reader, s *Settings) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(s); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// LoadFile reads the YAML file at path over s.
func LoadFile(path string, s *Settings) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := Decode(f, s); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// Parse registers the settings flags and a -config flag on fs, then parses
// args. Flags given explicitly win over the file named by -config.
func Parse(fs *flag.FlagSet, args []string) (Settings, error) {
	s := Default()
	path := ""
	fs.StringVar(&path, "config", path, "YAML settings file")
	s.bind(fs)
	if err := fs.Parse(args); err != nil {
		return s, err
	}
	if path == "" {
		return s, s.Validate()
	}

	given := map[string]string{}
	fs.Visit(func(f *flag.Flag) { given[f.Name] = f.Value.String() })

	s = Default()
	if err := LoadFile(path, &s); err != nil {
		return s, err
	}
	over := flag.NewFlagSet(fs.Name(), flag.ContinueOnError)
	s.bind(over)
	for name, v := range given {
		if f := over.Lookup(name); f != nil {
			if err := f.Value.Set(v); err != nil {
				return s, err
			}
		}
	}
	return s, s.Validate()
}

func (s *Settings) bind(fs *flag.FlagSet) {
	fs.StringVar(&s.Log.Level, "log.level", s.Log.Level, "Log level")
	fs.StringVar(&s.Log.Format, "log.format", s.Log.Format, "Log format: text or json")
	fs.IntVar(&s.Loader.MaxBatch, "loader.max-batch", s.Loader.MaxBatch, "Max keys per batch fetch")
	fs.IntVar(&s.Loader.Concurrency, "loader.concurrency", s.Loader.Concurrency, "Max concurrent batch fetches")
	fs.StringVar(&s.Otel.Endpoint, "otel.endpoint", s.Otel.Endpoint, "OTLP collector endpoint")
	fs.StringVar(&s.Otel.Service, "otel.service", s.Otel.Service, "OpenTelemetry service name")
	fs.BoolVar(&s.Output.Pretty, "pretty", s.Output.Pretty, "Pretty-print JSON output")
	fs.BoolVar(&s.Output.Metrics, "metrics", s.Output.Metrics, "Print Prometheus metrics after running")
}

// Validate reports the first invalid value.
func (s Settings) Validate() error {
	if _, err := logrus.ParseLevel(s.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch s.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", s.Log.Format)
	}
	if s.Loader.MaxBatch < 0 {
		return fmt.Errorf("loader.max-batch: must not be negative")
	}
	if s.Loader.Concurrency < 0 {
		return fmt.Errorf("loader.concurrency: must not be negative")
	}
	return nil
}
