package commands

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// MakeCheckCommand constructs the command that reports grammar shapes that
// would make matching loop or recurse forever.
func MakeCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [grammar]...",
		Short: "Look for left recursion and empty repetitions in grammars",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = grammarNames()
			}

			var problems int
			for _, name := range args {
				g, err := lookupGrammar(name)
				if err != nil {
					return err
				}
				issues := g.Check()
				if len(issues) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d rules)\n", name, len(g.RuleNames()))
					continue
				}
				for _, issue := range issues {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", name, issue)
				}
				problems += len(issues)
			}

			if problems > 0 {
				return errors.Errorf("found %d problems", problems)
			}
			return nil
		},
	}
}
