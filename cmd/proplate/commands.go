package proplate

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/yumet023/proplate/internal/version"
	"github.com/yumet023/proplate/pkg/config"
	"github.com/yumet023/proplate/pkg/errors"
	"github.com/yumet023/proplate/pkg/generate"
	"github.com/yumet023/proplate/pkg/templates"
	"github.com/yumet023/proplate/pkg/templates/builtin"
	"github.com/yumet023/proplate/pkg/types"
)

// annotationDefaultsOnly makes setup ignore the user config file, for
// commands that must work when it is missing or broken
const annotationDefaultsOnly = "proplate/defaults-only"

func newCreateCmd(a *app) *cobra.Command {
	var (
		templateID  string
		dest        string
		vars        []string
		interactive bool
		overwrite   bool
		git         bool
		dryRun      bool
	)

	cmd := &cobra.Command{
		Use:     "create",
		Short:   MsgCreateShort,
		Long:    MsgCreateLong,
		Example: MsgCreateExample,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides, err := parseVars(vars)
			if err != nil {
				return err
			}
			return a.generate(cmd, generate.Request{
				TemplateID:  templateID,
				TargetDir:   dest,
				Variables:   overrides,
				Interactive: interactive,
				Overwrite:   overwrite,
				Git:         git,
				DryRun:      dryRun,
			})
		},
	}

	cmd.Flags().StringVarP(&templateID, "template", "t", "", MsgFlagTemplate)
	cmd.Flags().StringVarP(&dest, "dest", "d", "", MsgFlagDest)
	cmd.Flags().StringArrayVar(&vars, "var", nil, MsgFlagVar)
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, MsgFlagInteractive)
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, MsgFlagOverwrite)
	cmd.Flags().BoolVar(&git, "git", false, MsgFlagGit)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, MsgFlagDryRun)
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("dest")

	return cmd
}

func newInitCmd(a *app) *cobra.Command {
	var (
		vars      []string
		overwrite bool
		git       bool
	)

	cmd := &cobra.Command{
		Use:     "init [dir]",
		Short:   MsgInitShort,
		Long:    MsgInitLong,
		Example: MsgInitExample,
		GroupID: "core",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			target, err := filepath.Abs(dir)
			if err != nil {
				return errors.IO(err, "resolve", dir)
			}

			overrides, err := parseVars(vars)
			if err != nil {
				return err
			}
			if _, ok := overrides["name"]; !ok {
				overrides["name"] = filepath.Base(target)
			}

			return a.generate(cmd, generate.Request{
				TemplateID: builtin.InitTemplate,
				TargetDir:  target,
				Variables:  overrides,
				Overwrite:  overwrite,
				Git:        git,
			})
		},
	}

	cmd.Flags().StringArrayVar(&vars, "var", nil, MsgFlagVar)
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, MsgFlagOverwrite)
	cmd.Flags().BoolVar(&git, "git", false, MsgFlagGit)

	return cmd
}

// generate runs req and prints its result. A partial result becomes a
// partialError so Run can exit with ExitPartial.
func (a *app) generate(cmd *cobra.Command, req generate.Request) error {
	gen, err := a.generator(cmd)
	if err != nil {
		return err
	}

	res, err := gen.Generate(cmd.Context(), req)
	a.printer.Result(res)
	if err != nil {
		return err
	}
	if res.Status == types.StatusPartial {
		return &partialError{err: res.HookError}
	}
	return nil
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   MsgListShort,
		Long:    MsgListLong,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := templates.DefaultCatalog()
			if err != nil {
				return err
			}
			a.printer.Templates(catalog.Summaries())
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "show <template>",
		Short:   MsgShowShort,
		Long:    MsgShowLong,
		GroupID: "core",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := a.loader()
			if err != nil {
				return err
			}
			tmpl, err := loader.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer func() { _ = tmpl.Cleanup() }()

			a.printer.Template(tmpl)
			return nil
		},
	}
}

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:     "config",
		Short:   MsgConfigShort,
		Long:    MsgConfigLong,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: MsgConfigShowShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:         "init",
		Short:       MsgConfigInitShort,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationDefaultsOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.userConfigFile()
			if err := config.WriteUserConfig(path, force); err != nil {
				return err
			}
			a.printer.Success(MsgConfigWritten, path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, MsgFlagForce)
	configCmd.AddCommand(initCmd)

	configCmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       MsgConfigPathShort,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationDefaultsOnly: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), a.userConfigFile())
			return err
		},
	})

	return configCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), MsgVersionFormat, version.Version, version.Commit, version.Date)
			return err
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		Long:                  MsgCompletionLong,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		GroupID:               "misc",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}
