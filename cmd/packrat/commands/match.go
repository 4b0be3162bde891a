package commands

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/tef/packrat"
	"github.com/tef/packrat/config"
	"github.com/tef/packrat/log"
)

// MakeMatchCommand constructs the command that matches one input against a
// grammar and prints its tree.
func MakeMatchCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var flat bool

	cmd := &cobra.Command{
		Use:   "match <grammar> [input]",
		Short: "Match input, or stdin, against a grammar and print the tree",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := lookupGrammar(args[0])
			if err != nil {
				return err
			}

			var input string
			if len(args) == 2 {
				input = args[1]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return errors.Wrap(err, "failed to read stdin")
				}
				input = string(data)
			}

			s := packrat.NewSession(g, sessionOptions(conf, logger)...)
			cst, err := s.Match(input)
			stats := s.Stats()
			logger.Debug("matched", "grammar", args[0], "stats", stats)
			if err != nil {
				return errors.Wrapf(err, "%s grammar rejected input (furthest failure at %d)", args[0], stats.FurthestFailure)
			}

			if flat {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), packrat.Flatten(cst))
				return err
			}
			out, err := packrat.FormatCST(cst)
			if err != nil {
				return errors.Wrap(err, "failed to format tree")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().BoolVar(&flat, "flat", false, "print the matched text instead of the tree")
	return cmd
}
