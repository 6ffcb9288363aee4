package proplate

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort       = "Generate projects from templates"
	MsgCreateShort     = "Create a project from a template"
	MsgInitShort       = "Create a minimal project in a directory"
	MsgListShort       = "List the built-in templates"
	MsgListLong        = "List displays every built-in template with its description."
	MsgShowShort       = "Describe a template"
	MsgConfigShort     = "Manage proplate configuration"
	MsgConfigShowShort = "Print the effective configuration"
	MsgConfigInitShort = "Write a commented config file"
	MsgConfigPathShort = "Print the user config file path"
	MsgVersionShort    = "Print version information"
	MsgCompletionShort = "Generate shell completion script"

	// Status messages
	MsgConfigWritten = "Wrote %s"
	MsgVersionFormat = "proplate %s (commit %s, built %s)\n"

	// Error messages
	MsgErrNoCommand   = "no command specified"
	MsgErrVarFormat   = "invalid --var %q, expected name=value"
	MsgErrVarEmpty    = "invalid --var %q, empty variable name"
	MsgErrVarRepeated = "variable %q given more than once"

	// Flag descriptions
	MsgFlagVerbose     = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagConfig      = "Config file to use instead of the default location"
	MsgFlagNoColor     = "Disable colored output"
	MsgFlagTemplate    = "Template name, directory, git repository or archive URL"
	MsgFlagDest        = "Directory to generate into"
	MsgFlagVar         = "Variable value as name=value (repeatable)"
	MsgFlagInteractive = "Prompt for variables without a value"
	MsgFlagOverwrite   = "Generate into a non-empty directory, replacing planned files"
	MsgFlagGit         = "Initialise a git repository and commit the result"
	MsgFlagDryRun      = "Print the plan without writing anything"
	MsgFlagForce       = "Replace an existing config file"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/create-long.txt
	msgCreateLongRaw string
	MsgCreateLong    = strings.TrimSpace(msgCreateLongRaw)

	//go:embed msgs/create-example.txt
	msgCreateExampleRaw string
	MsgCreateExample    = strings.TrimRight(msgCreateExampleRaw, "\n")

	//go:embed msgs/init-long.txt
	msgInitLongRaw string
	MsgInitLong    = strings.TrimSpace(msgInitLongRaw)

	//go:embed msgs/init-example.txt
	msgInitExampleRaw string
	MsgInitExample    = strings.TrimRight(msgInitExampleRaw, "\n")

	//go:embed msgs/show-long.txt
	msgShowLongRaw string
	MsgShowLong    = strings.TrimSpace(msgShowLongRaw)

	//go:embed msgs/config-long.txt
	msgConfigLongRaw string
	MsgConfigLong    = strings.TrimSpace(msgConfigLongRaw)

	//go:embed msgs/completion-long.txt
	msgCompletionLongRaw string
	MsgCompletionLong    = strings.TrimSpace(msgCompletionLongRaw)

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw) + "\n"
)
