package commands

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tef/packrat"
	"github.com/tef/packrat/config"
	"github.com/tef/packrat/infix"
	"github.com/tef/packrat/json"
	"github.com/tef/packrat/log"
)

// grammars are the grammars commands can match with, by name.
var grammars = map[string]*packrat.Grammar{
	"infix": infix.Grammar,
	"json":  json.Grammar,
}

func grammarNames() []string {
	names := make([]string, 0, len(grammars))
	for name := range grammars {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupGrammar(name string) (*packrat.Grammar, error) {
	g, ok := grammars[name]
	if !ok {
		return nil, errors.Errorf("unknown grammar %q (known: %s)", name, strings.Join(grammarNames(), ", "))
	}
	return g, nil
}

func sessionOptions(conf *config.Config, logger log.Logger) []packrat.SessionOption {
	return []packrat.SessionOption{
		packrat.WithLogger(logger.With("module", "session")),
		packrat.WithTrace(conf.Trace),
	}
}

// RootCommand constructs the root command-line entry point for packrat.
func RootCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "packrat",
		Short:        "Match text against packrat parsing-expression grammars",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := BindFlagsLoadViper(cmd, args); err != nil {
				return err
			}

			pconf, err := config.ParseConfig(viper.GetViper(), conf)
			if err != nil {
				return err
			}
			*conf = *pconf
			return log.OverrideWithNewLogger(logger, conf.LogFormat, conf.LogLevel)
		},
	}
	cmd.PersistentFlags().StringP(HomeFlag, "", os.ExpandEnv(filepath.Join("$HOME", config.DefaultPackratDir)), "directory for config")
	cmd.PersistentFlags().Bool(TraceFlag, conf.Trace, "log every rule application at debug level")
	cmd.PersistentFlags().String("log-level", conf.LogLevel, "log level")
	cmd.PersistentFlags().String("log-format", conf.LogFormat, "log format: plain, text or json")
	cobra.OnInitialize(func() { InitEnv("PACKRAT") })
	return cmd
}

// AddCommands adds every packrat subcommand to root.
func AddCommands(root *cobra.Command, conf *config.Config, logger log.Logger) *cobra.Command {
	root.AddCommand(
		MakeMatchCommand(conf, logger),
		MakeEvalCommand(conf, logger),
		MakeCheckCommand(),
		MakeBenchCommand(conf, logger),
		MakeInitCommand(conf, logger),
	)
	return root
}
