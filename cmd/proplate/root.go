package proplate

import (
	"context"
	stderrors "errors"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yumet023/proplate/internal/version"
	"github.com/yumet023/proplate/pkg/config"
	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/generate"
	"github.com/yumet023/proplate/pkg/logging"
	"github.com/yumet023/proplate/pkg/paths"
	"github.com/yumet023/proplate/pkg/templates"
	"github.com/yumet023/proplate/pkg/types"
	"github.com/yumet023/proplate/pkg/ui"
	"github.com/yumet023/proplate/pkg/variables"
)

// Process exit codes
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitPartial = 2
)

// app carries global flags and the state PersistentPreRunE prepares for
// subcommands
type app struct {
	verbosity  int
	configFile string
	noColor    bool

	paths   *paths.Paths
	cfg     *config.Config
	printer *ui.Printer
}

// partialError marks a generation whose post hooks failed after commit
type partialError struct {
	err error
}

func (e *partialError) Error() string { return e.err.Error() }

func (e *partialError) Unwrap() error { return e.err }

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	root, _ := newRootCmd()
	return root
}

func newRootCmd() (*cobra.Command, *app) {
	initTemplateFormatting()
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "proplate",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logging.SetupLogger(a.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errors.New(errors.ErrInvalidInput, MsgErrNoCommand)
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVar(&a.configFile, "config", "", MsgFlagConfig)
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, MsgFlagNoColor)

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return errors.Wrap(err, errors.ErrInvalidInput, "invalid usage")
	})
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "COMMANDS:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "misc",
		Title: "MISC:",
	})
	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(newCreateCmd(a))
	rootCmd.AddCommand(newInitCmd(a))
	rootCmd.AddCommand(newListCmd(a))
	rootCmd.AddCommand(newShowCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd, a
}

// setup loads configuration and prepares the printer
func (a *app) setup(cmd *cobra.Command) error {
	a.paths = paths.New()

	var opts config.LoadOptions
	if cmd.Annotations[annotationDefaultsOnly] == "" {
		opts.File = a.userConfigFile()
		opts.Explicit = a.configFile != ""
	}
	if a.noColor {
		opts.Overrides = map[string]interface{}{"output.no_color": true}
	}
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}
	a.cfg = cfg

	format, err := ui.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}
	if cfg.Output.NoColor {
		format = ui.FormatText
	}
	a.printer = ui.NewPrinter(cmd.OutOrStdout(), cmd.ErrOrStderr(), format)
	return nil
}

// userConfigFile is --config when given, otherwise the XDG location
func (a *app) userConfigFile() string {
	if a.configFile != "" {
		return a.configFile
	}
	return a.paths.ConfigFile()
}

func (a *app) loader() (*templates.Loader, error) {
	catalog, err := templates.DefaultCatalog()
	if err != nil {
		return nil, err
	}
	return templates.NewLoader(catalog,
		templates.WithFetchers(
			templates.NewGitFetcher(a.cfg.Fetch.GitBinary, a.cfg.Fetch.Timeout),
			templates.NewArchiveFetcher(nil, a.cfg.Fetch.Timeout, a.cfg.Fetch.Retries),
		),
		templates.WithFetchDir(a.paths.FetchDir()),
		templates.WithVersion(version.Version),
	), nil
}

// prompter uses pterm's inputs on a styled terminal and line prompts otherwise
func (a *app) prompter(cmd *cobra.Command) variables.Prompter {
	if f, ok := cmd.InOrStdin().(*os.File); ok && ui.IsInteractive(f) && a.printer.Styled() {
		return ui.NewTerminalPrompter()
	}
	return variables.NewConsolePrompter(cmd.InOrStdin(), cmd.ErrOrStderr())
}

func (a *app) generator(cmd *cobra.Command) (*generate.Generator, error) {
	loader, err := a.loader()
	if err != nil {
		return nil, err
	}
	return generate.New(loader,
		generate.WithConfig(a.cfg),
		generate.WithPrompter(a.prompter(cmd)),
		generate.WithVersion(version.Version),
	), nil
}

// Run executes the command line args and returns the process exit code
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd, a := newRootCmd()
	if args == nil {
		// cobra falls back to os.Args for nil
		args = []string{}
	}
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	printer := a.printer
	if printer == nil {
		printer = ui.NewPrinter(stdout, stderr, ui.FormatAuto)
	}
	return report(printer, err)
}

// report prints err and maps it to an exit code
func report(p *ui.Printer, err error) int {
	var partial *partialError
	if stderrors.As(err, &partial) {
		p.Error(types.StageRunningPostHooks, partial.err)
		return ExitPartial
	}
	if errors.GetErrorCode(err) == errors.ErrUnknown {
		// cobra's own argument errors
		err = errors.Wrap(err, errors.ErrInvalidInput, "invalid usage")
	}
	p.Error(generate.StageOf(err), err)
	return ExitFailure
}
