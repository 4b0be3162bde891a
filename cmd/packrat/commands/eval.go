package commands

import (
	stdjson "encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tef/packrat/config"
	"github.com/tef/packrat/infix"
	"github.com/tef/packrat/json"
	"github.com/tef/packrat/log"
)

// MakeEvalCommand constructs the command that decodes or evaluates inputs
// with the built-in grammars.
func MakeEvalCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate inputs with a built-in grammar",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "infix <statement>...",
		Short: "Evaluate arithmetic statements; assignments carry over to later ones",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := infix.NewEvaluator(sessionOptions(conf, logger)...)
			for _, stmt := range args {
				v, err := e.Eval(stmt)
				if err != nil {
					return errors.Wrapf(err, "failed to evaluate %q", stmt)
				}
				fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatFloat(v, 'g', -1, 64))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "json <document>...",
		Short: "Decode JSON documents and print them compacted",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := json.NewParser(sessionOptions(conf, logger)...)
			for _, doc := range args {
				v, err := p.Parse(doc)
				if err != nil {
					return errors.Wrapf(err, "failed to decode %q", doc)
				}
				out, err := stdjson.Marshal(v)
				if err != nil {
					return errors.Wrap(err, "failed to encode")
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			}
			return nil
		},
	})

	return cmd
}
