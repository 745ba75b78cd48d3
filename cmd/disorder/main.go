// Package main implements the disorder CLI.
//
// It resolves disorder identifiers against a vocabulary service and can
// serve a local vocabulary loaded from FHIR CodeSystem files.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gofhir/disorder"
	"github.com/gofhir/disorder/config"
	"github.com/gofhir/disorder/endpoint"
	"github.com/gofhir/disorder/pkg/logger"
	"github.com/gofhir/disorder/vocabulary"
)

const version = "0.1.0"

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath  string
	endpointURL string
	mode        string
	expression  string
	codeSystems []string
	verbose     bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "disorder",
		Short: "Resolve genetic disorder identifiers to display names",
		Long: `disorder resolves OMIM, MONDO and ORPHA identifiers to their display names
using a vocabulary REST service or a FHIR terminology server.

Bare integers are read as OMIM numbers. Identifiers that are neither coded
nor integers are free text and display as written.`,
		Version:      version,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "", "YAML config file")
	flags.StringVar(&g.endpointURL, "endpoint", "", "lookup URL template with {code}, or FHIR server base in fhir mode")
	flags.StringVar(&g.mode, "mode", "", "endpoint mode: template or fhir")
	flags.StringVar(&g.expression, "expression", "", "FHIRPath expression for the display in fhir mode")
	flags.StringSliceVar(&g.codeSystems, "codesystem", nil, "local CodeSystem or Bundle JSON file(s) to use as the vocabulary")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newResolveCmd(g), newServeCmd(g))
	return root
}

// loadConfig reads the config file and applies flag overrides.
func (g *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.endpointURL != "" {
		cfg.Endpoint.URL = g.endpointURL
	}
	if g.mode != "" {
		cfg.Endpoint.Mode = g.mode
	}
	if g.expression != "" {
		cfg.Endpoint.Expression = g.expression
	}
	if g.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (g *globalOptions) newLogger(cfg *config.Config, w io.Writer) *logger.Logger {
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logger.LevelInfo
	}
	return logger.New(w, level)
}

// loadVocabulary loads the --codesystem files, or returns nil when none
// were given.
func (g *globalOptions) loadVocabulary(log *logger.Logger) (*vocabulary.Service, error) {
	if len(g.codeSystems) == 0 {
		return nil, nil
	}
	vocab := vocabulary.NewService()
	for _, path := range g.codeSystems {
		stats, err := vocab.LoadFile(path)
		if err != nil {
			return nil, err
		}
		log.Info("loaded %d term(s) from %d code system(s) in %s", stats.TermsLoaded, stats.CodeSystemsLoaded, path)
		if stats.Errors > 0 {
			log.Warn("%d code system(s) in %s could not be loaded", stats.Errors, path)
		}
	}
	return vocab, nil
}

// newService builds the lookup service. A local vocabulary takes the place
// of the configured endpoint.
func (g *globalOptions) newService(cfg *config.Config, vocab *vocabulary.Service, log *logger.Logger) (*disorder.Service, error) {
	if vocab == nil {
		return cfg.NewService(disorder.WithLogger(log))
	}
	opts, err := cfg.ServiceOptions()
	if err != nil {
		return nil, err
	}
	opts = append(opts, disorder.WithDecoder(disorder.JSONDecoder{}), disorder.WithLogger(log))
	return disorder.NewService(endpoint.MustTemplate(vocabulary.LocalPattern), vocab.Client(), opts...), nil
}
