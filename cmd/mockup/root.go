package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"logo-mockup-studio/internal/config"
	"logo-mockup-studio/internal/gemini"
	"logo-mockup-studio/internal/httpclient"
	"logo-mockup-studio/internal/logging"
	"logo-mockup-studio/internal/mockup"
)

const (
	exitValidation = 1
	exitService    = 2
)

// generatorFactory builds the image service client from config.
type generatorFactory func(cfg config.Config, logger *slog.Logger) mockup.Generator

type appOption func(*app)

type app struct {
	root *cobra.Command

	loadConfig   func() (config.Config, error)
	newGenerator generatorFactory
	stdout       io.Writer
	stderr       io.Writer

	jsonOutput bool
	verbose    bool
}

func withIO(stdout, stderr io.Writer) appOption {
	return func(a *app) {
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

func withConfigLoader(load func() (config.Config, error)) appOption {
	return func(a *app) {
		if load != nil {
			a.loadConfig = load
		}
	}
}

func withGenerator(factory generatorFactory) appOption {
	return func(a *app) {
		if factory != nil {
			a.newGenerator = factory
		}
	}
}

func newApp(opts ...appOption) *app {
	a := &app{
		loadConfig:   config.Load,
		newGenerator: defaultGenerator,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.root = a.newRootCommand()
	return a
}

func (a *app) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "mockup",
		Short: "Logo mockup generator",
		Long: `mockup places a logo into photorealistic scenes with Gemini image models.

List the style catalog, preview the instruction document for a style, or
render a mockup from a local logo file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	root.PersistentFlags().BoolVar(&a.jsonOutput, "json", false, "emit JSON output")
	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "enable debug logging")

	root.AddCommand(a.newStylesCommand())
	root.AddCommand(a.newPromptCommand())
	root.AddCommand(a.newGenerateCommand())

	return root
}

func (a *app) Execute() error {
	return a.root.Execute()
}

func (a *app) executeArgs(args ...string) error {
	a.root.SetArgs(args)
	return a.root.Execute()
}

func (a *app) logger(cfg config.Config) *slog.Logger {
	level := cfg.LogLevel
	if a.verbose {
		level = "debug"
	}
	return logging.New(level, a.stderr)
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func defaultGenerator(cfg config.Config, logger *slog.Logger) mockup.Generator {
	return gemini.New(gemini.Options{
		APIKey:     cfg.GeminiAPIKey,
		BaseURL:    cfg.GeminiBaseURL,
		APIVersion: cfg.GeminiAPIVersion,
		HTTPClient: httpclient.New(httpclient.Options{
			PreferIPv4: cfg.PreferIPv4,
			Timeout:    cfg.HTTPTimeout(),
		}),
		Logger: logger,
	})
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func exitWithCode(code int, err error) error {
	return &exitError{code: code, err: err}
}
