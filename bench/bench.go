// Package bench matches many inputs against one grammar concurrently. Each
// worker owns a Session; the Grammar is shared read-only between them.
package bench

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tef/packrat"
	"github.com/tef/packrat/log"
)

// Report sums up a Run.
type Report struct {
	Inputs          int
	Matches         int
	Accepted        int
	Rejected        int
	Characters      int
	RuleEvaluations int
	MemoHits        int
	Elapsed         time.Duration

	// Results holds, per input, whether the grammar accepted it.
	Results []bool
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (r Report) MarshalZerologObject(e *zerolog.Event) {
	e.Int("inputs", r.Inputs)
	e.Int("matches", r.Matches)
	e.Int("accepted", r.Accepted)
	e.Int("rejected", r.Rejected)
	e.Int("characters", r.Characters)
	e.Int("rule_evaluations", r.RuleEvaluations)
	e.Int("memo_hits", r.MemoHits)
	e.Dur("elapsed", r.Elapsed)
}

func (r *Report) add(o Report) {
	r.Matches += o.Matches
	r.Accepted += o.Accepted
	r.Rejected += o.Rejected
	r.Characters += o.Characters
	r.RuleEvaluations += o.RuleEvaluations
	r.MemoHits += o.MemoHits
}

func (r *Report) addStats(st packrat.Stats) {
	r.Matches++
	if st.Accepted {
		r.Accepted++
	} else {
		r.Rejected++
	}
	r.Characters += st.InputLength
	r.RuleEvaluations += st.RuleEvaluations
	r.MemoHits += st.MemoHits
}

// Runner runs the workers.
type Runner struct {
	grammar *packrat.Grammar
	workers int
	rounds  int
	trace   bool
	logger  log.Logger
	metrics *packrat.Metrics
}

// Option sets an optional parameter on the Runner.
type Option func(*Runner)

// WithWorkers sets the number of goroutines matching inputs.
func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

// WithRounds sets how many times every input is matched.
func WithRounds(n int) Option {
	return func(r *Runner) { r.rounds = n }
}

// WithTrace makes every worker's session log its rule applications.
func WithTrace(trace bool) Option {
	return func(r *Runner) { r.trace = trace }
}

// WithLogger sets the logger of the runner and its sessions.
func WithLogger(logger log.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithMetrics sets the metrics all sessions record into.
func WithMetrics(metrics *packrat.Metrics) Option {
	return func(r *Runner) { r.metrics = metrics }
}

func NewRunner(g *packrat.Grammar, opts ...Option) *Runner {
	r := &Runner{
		grammar: g,
		workers: 1,
		rounds:  1,
		logger:  log.NewNopLogger(),
		metrics: packrat.NopMetrics(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.workers < 1 {
		r.workers = 1
	}
	if r.rounds < 1 {
		r.rounds = 1
	}
	return r
}

type job struct {
	index int
	round int
}

// Run matches every input rounds times, spread over the workers. It stops
// between matches once ctx is done and returns the report so far along with
// the context's error.
func (r *Runner) Run(ctx context.Context, inputs []string) (Report, error) {
	start := time.Now()
	report := Report{Inputs: len(inputs), Results: make([]bool, len(inputs))}

	var mtx sync.Mutex
	jobs := make(chan job)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for round := 0; round < r.rounds; round++ {
			for i := range inputs {
				select {
				case jobs <- job{index: i, round: round}:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
		}
		return nil
	})

	for w := 0; w < r.workers; w++ {
		logger := r.logger.With("worker", w)
		s := packrat.NewSession(r.grammar,
			packrat.WithLogger(logger),
			packrat.WithMetrics(r.metrics),
			packrat.WithTrace(r.trace),
		)
		g.Go(func() error {
			var local Report
			defer func() {
				mtx.Lock()
				report.add(local)
				mtx.Unlock()
			}()

			for j := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				_, err := s.Match(inputs[j.index])
				if err != nil && !errors.Is(err, packrat.ErrNoMatch) {
					return err
				}
				local.addStats(s.Stats())
				if j.round == 0 {
					report.Results[j.index] = err == nil
				}
			}
			return nil
		})
	}

	err := g.Wait()
	report.Elapsed = time.Since(start)
	r.logger.Info("bench finished", "report", report)
	return report, err
}

// ServeMetrics serves the default Prometheus registry under /metrics on
// addr until ctx is done.
func ServeMetrics(ctx context.Context, addr string, logger log.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return serveMetrics(ctx, ln, logger)
}

func serveMetrics(ctx context.Context, ln net.Listener, logger log.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Error("metrics server shutdown", "err", err)
		}
	}()

	logger.Info("serving metrics", "address", ln.Addr().String())
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
