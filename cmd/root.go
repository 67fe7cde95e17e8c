package cmd

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/josephlewis42/mpwsh/core/config"
	"github.com/josephlewis42/mpwsh/core/env"
	"github.com/josephlewis42/mpwsh/core/logger"
	"github.com/josephlewis42/mpwsh/core/redir"
	"github.com/josephlewis42/mpwsh/core/shell"
	"github.com/spf13/cobra"
)

// version is set at build time.
var version = "0.1.0"

var cfgPath string

type shellOptions struct {
	command   string
	defines   []string
	verbose   bool
	envFiles  []string
	noStartup bool
}

var (
	shellOpts  shellOptions
	exitStatus int
)

func defaultConfigPath() string {
	if dir := os.Getenv("MPWSH_CONFIG"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".mpwsh")
}

func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// loadShellConfig loads the configuration, using the built in defaults if
// none was written.
func loadShellConfig() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return configuration, err
}

// openEventLog returns the configured event log. Without one, events go to
// fallback, or nowhere if fallback is nil.
func openEventLog(configuration *config.Configuration, fallback io.Writer) (*logger.Logger, func() error, error) {
	fd, err := configuration.OpenEventLog()
	switch {
	case err != nil:
		return nil, nil, err
	case fd != nil:
		return logger.NewJSONLinesLogRecorder(fd), fd.Close, nil
	case fallback != nil:
		return logger.NewJSONLinesLogRecorder(fallback), func() error { return nil }, nil
	}
	return logger.Discard(), func() error { return nil }, nil
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mpwsh [script [parameters...]]",
	Short: "MPW command shell",
	Long: `An interpreter for the Macintosh Programmer's Workshop command language.

Without a script or -c, commands are read from standard input: interactively
if it is a terminal, otherwise as a script.`,
	Args:    cobra.ArbitraryArgs,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		configuration, err := loadShellConfig()
		if err != nil {
			return err
		}

		events, closeEvents, err := openEventLog(configuration, nil)
		if err != nil {
			return err
		}
		defer closeEvents()

		e, err := shellEnvironment(configuration, args)
		if err != nil {
			return err
		}

		sh := shell.New(e, redir.Fds{
			In:  cmd.InOrStdin(),
			Out: cmd.OutOrStdout(),
			Err: cmd.ErrOrStderr(),
		})
		sh.Dialect = configuration.Dialect.Table()
		sh.Printer = shell.Printer{Color: configuration.Color}
		sh.Events = events.NewSession()

		exitStatus = runShell(cmd, sh, configuration, args)
		return nil
	},
}

// shellEnvironment builds the variables in order of precedence: the
// configuration, the process environment, env files, -D definitions and the
// script parameters.
func shellEnvironment(configuration *config.Configuration, args []string) (*env.Environment, error) {
	e := configuration.NewEnvironment()

	for _, kv := range os.Environ() {
		if name, value, ok := strings.Cut(kv, "="); ok && name != "" {
			e.Set(name, value, true)
		}
	}

	for _, path := range shellOpts.envFiles {
		vars, err := godotenv.Read(path)
		if err != nil {
			return nil, err
		}
		for name, value := range vars {
			e.Set(name, value, true)
		}
	}

	for _, def := range shellOpts.defines {
		name, value, ok := strings.Cut(def, "=")
		if !ok {
			value = "1"
		}
		if name == "" {
			return nil, fmt.Errorf("invalid definition %q", def)
		}
		e.Set(name, value, false)
	}

	if shellOpts.verbose {
		e.Set(env.NameEcho, "1", false)
	}

	params := args
	if shellOpts.command != "" || len(args) == 0 {
		params = append([]string{"mpwsh"}, args...)
	}
	for i, p := range params {
		e.Set(strconv.Itoa(i), p, false)
	}
	e.Set("#", strconv.Itoa(len(params)-1), false)

	return e, nil
}

func runShell(cmd *cobra.Command, sh *shell.Shell, configuration *config.Configuration, args []string) int {
	mode := shell.Script
	if shellOpts.command == "" && len(args) == 0 && shell.IsTerminal(cmd.InOrStdin()) {
		mode = shell.Interactive
	}

	sh.Events.Record(logger.EventSessionStart, map[string]interface{}{
		"mode":    mode.String(),
		"command": shellOpts.command,
		"args":    logger.Strings(args),
	})

	if path := configuration.StartupPath(); path != "" && !shellOpts.noStartup {
		if _, err := os.Stat(path); err == nil {
			runScript(sh, func(r *shell.Runner) error {
				return r.RunFile(path)
			})
		}
	}

	var status int
	switch {
	case shellOpts.command != "":
		status = sh.NewRunner(shell.Script).RunString(shellOpts.command + "\n")

	case len(args) > 0:
		status = runScript(sh, func(r *shell.Runner) error {
			return r.RunFile(args[0])
		})

	case mode == shell.Interactive:
		status = runInteractive(cmd, sh, configuration)

	default:
		status = runScript(sh, func(r *shell.Runner) error {
			_, err := r.ReadFrom(cmd.InOrStdin())
			return err
		})
	}

	sh.Events.Record(logger.EventSessionEnd, map[string]interface{}{
		"status": status,
	})
	return status
}

func runScript(sh *shell.Shell, feed func(r *shell.Runner) error) int {
	r := sh.NewRunner(shell.Script)
	if err := feed(r); err != nil {
		sh.Printer.Fprintf(sh.IO.Stderr(), shell.ShellName, "%v", err)
		r.Finish()
		return 1
	}
	return r.Finish()
}

func runInteractive(cmd *cobra.Command, sh *shell.Shell, configuration *config.Configuration) int {
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", shell.ShellName, version)

	rl, err := shell.NewLineEditor(shell.EditorConfig{
		In:           cmd.InOrStdin(),
		Out:          cmd.OutOrStdout(),
		Err:          cmd.ErrOrStderr(),
		HistoryFile:  configuration.HistoryPath(),
		HistoryLimit: configuration.HistoryLimit,
	})
	if err != nil {
		sh.Printer.Fprintf(cmd.ErrOrStderr(), shell.ShellName, "%v", err)
		return 1
	}
	defer rl.Close()

	return sh.RunInteractive(rl, configuration.Prompt, "… ")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
// It returns the process exit status.
func Execute() int {
	exitStatus = 0
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return exitStatus
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "config path")

	flags := rootCmd.Flags()
	flags.SetInterspersed(false)
	flags.StringVarP(&shellOpts.command, "command", "c", "", "run the given commands instead of a script")
	flags.StringArrayVarP(&shellOpts.defines, "define", "D", nil, "define a variable, name[=value]")
	flags.BoolVarP(&shellOpts.verbose, "verbose", "v", false, "echo commands before running them")
	flags.StringArrayVar(&shellOpts.envFiles, "env-file", nil, "export the variables in a dotenv file")
	flags.BoolVar(&shellOpts.noStartup, "no-startup", false, "don't run the startup script")
}
