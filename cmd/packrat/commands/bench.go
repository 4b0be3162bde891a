package commands

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tef/packrat"
	"github.com/tef/packrat/bench"
	"github.com/tef/packrat/config"
	"github.com/tef/packrat/log"
)

// readInputs returns the contents of each file, or of each line of each file
// when lines is set.
func readInputs(paths []string, lines bool) ([]string, error) {
	var inputs []string
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read input")
		}
		if !lines {
			inputs = append(inputs, string(data))
			continue
		}
		sc := bufio.NewScanner(bytes.NewReader(data))
		sc.Buffer(make([]byte, 64*1024), len(data)+1)
		for sc.Scan() {
			if sc.Text() != "" {
				inputs = append(inputs, sc.Text())
			}
		}
		if err := sc.Err(); err != nil {
			return nil, errors.Wrapf(err, "failed to split %s", path)
		}
	}
	return inputs, nil
}

// MakeBenchCommand constructs the command that matches files concurrently and
// reports the work done.
func MakeBenchCommand(conf *config.Config, logger log.Logger) *cobra.Command {
	var lines bool

	cmd := &cobra.Command{
		Use:   "bench <grammar> <file>...",
		Short: "Match files concurrently, one session per worker, and report totals",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := lookupGrammar(args[0])
			if err != nil {
				return err
			}
			inputs, err := readInputs(args[1:], lines)
			if err != nil {
				return err
			}

			metrics := packrat.NopMetrics()
			if conf.Metrics.Prometheus {
				metrics = packrat.PrometheusMetrics(conf.Metrics.Namespace)
			}
			runner := bench.NewRunner(g,
				bench.WithWorkers(conf.Bench.Workers),
				bench.WithRounds(conf.Bench.Rounds),
				bench.WithTrace(conf.Trace),
				bench.WithLogger(logger.With("module", "bench")),
				bench.WithMetrics(metrics),
			)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			eg, ctx := errgroup.WithContext(ctx)

			var report bench.Report
			eg.Go(func() error {
				var err error
				report, err = runner.Run(ctx, inputs)
				if !conf.Metrics.Prometheus {
					cancel()
				}
				return err
			})
			if conf.Metrics.Prometheus {
				// keep serving after the run until interrupted
				eg.Go(func() error {
					return bench.ServeMetrics(ctx, conf.Metrics.ListenAddr, logger.With("module", "metrics"))
				})
			}
			if err := eg.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "inputs: %d\n", report.Inputs)
			fmt.Fprintf(out, "matches: %d (accepted %d, rejected %d)\n", report.Matches, report.Accepted, report.Rejected)
			fmt.Fprintf(out, "characters: %d\n", report.Characters)
			fmt.Fprintf(out, "rule evaluations: %d\n", report.RuleEvaluations)
			fmt.Fprintf(out, "memo hits: %d\n", report.MemoHits)
			fmt.Fprintf(out, "elapsed: %v\n", report.Elapsed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&lines, "lines", false, "match every non-empty line as its own input")
	cmd.Flags().Int("bench.workers", conf.Bench.Workers, "number of concurrent sessions")
	cmd.Flags().Int("bench.rounds", conf.Bench.Rounds, "number of times every input is matched")
	cmd.Flags().Bool("metrics.prometheus", conf.Metrics.Prometheus, "serve Prometheus metrics until interrupted")
	cmd.Flags().String("metrics.listen-addr", conf.Metrics.ListenAddr, "address to serve Prometheus metrics on")
	return cmd
}
