package packrat

import (
	"errors"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/tef/packrat/log"
)

// ErrNoMatch is returned by Match when the input is rejected, whether the
// start rule failed or it left input unconsumed.
var ErrNoMatch = errors.New("no match")

type memoKey struct {
	pos  int
	rule string
}

type memoEntry struct {
	cst  CST
	next int
	ok   bool
}

// Stats describes the work done by the most recent Match of a Session.
type Stats struct {
	InputLength int
	// RuleEvaluations counts rule applications that missed the memo table.
	RuleEvaluations int
	MemoHits        int
	// FurthestFailure is the largest position at which a character
	// comparison failed, or -1.
	FurthestFailure int
	Accepted        bool
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler
func (st Stats) MarshalZerologObject(e *zerolog.Event) {
	e.Int("input_length", st.InputLength)
	e.Int("rule_evaluations", st.RuleEvaluations)
	e.Int("memo_hits", st.MemoHits)
	e.Int("furthest_failure", st.FurthestFailure)
	e.Bool("accepted", st.Accepted)
}

// Session holds the state of matching one input against a grammar: the
// input, a cursor into it and the memo table. A Session may be reused for
// any number of inputs, one at a time; it must not be used from more than
// one goroutine at once. Sessions sharing a Grammar are independent.
type Session struct {
	grammar *Grammar
	input   []rune
	pos     int
	memo    map[memoKey]memoEntry
	stats   Stats

	logger  log.Logger
	metrics *Metrics
	trace   bool
}

// SessionOption sets an optional parameter on a Session.
type SessionOption func(*Session)

// WithLogger sets the logger a session reports to.
func WithLogger(logger log.Logger) SessionOption {
	return func(s *Session) { s.logger = logger }
}

// WithMetrics sets the metrics a session records into. A nil value records
// nothing.
func WithMetrics(metrics *Metrics) SessionOption {
	return func(s *Session) {
		if metrics == nil {
			metrics = NopMetrics()
		}
		s.metrics = metrics
	}
}

// WithTrace logs every rule application at debug level.
func WithTrace(trace bool) SessionOption {
	return func(s *Session) { s.trace = trace }
}

// NewSession returns a Session for g.
func NewSession(g *Grammar, opts ...SessionOption) *Session {
	s := &Session{
		grammar: g,
		memo:    make(map[memoKey]memoEntry),
		logger:  log.NewNopLogger(),
		metrics: NopMetrics(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Grammar returns the grammar the session matches against.
func (s *Session) Grammar() *Grammar {
	return s.grammar
}

// Stats returns the counters of the most recent Match.
func (s *Session) Stats() Stats {
	return s.stats
}

// Match applies the start rule to input. The input is accepted only when the
// start rule matches all of it; otherwise Match returns ErrNoMatch.
func (s *Session) Match(input string) (CST, error) {
	s.reset(input)

	cst, ok := NewRuleApplication(StartRule).eval(s)
	s.stats.Accepted = ok && s.pos == len(s.input)
	s.record()

	if !s.stats.Accepted {
		return nil, ErrNoMatch
	}
	return cst, nil
}

// decodeChars splits text into the characters a Session compares. A byte
// that is not part of valid UTF-8 becomes a negative value of its own, so it
// only ever equals the same byte and never utf8.RuneError.
func decodeChars(text string) []rune {
	chars := make([]rune, 0, len(text))
	for i := 0; i < len(text); {
		r, size := decodeChar(text[i:])
		chars = append(chars, r)
		i += size
	}
	return chars
}

func decodeChar(text string) (rune, int) {
	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError && size == 1 {
		return -1 - rune(text[0]), 1
	}
	return r, size
}

func (s *Session) reset(input string) {
	s.input = decodeChars(input)
	s.pos = 0
	for k := range s.memo {
		delete(s.memo, k)
	}
	s.stats = Stats{InputLength: len(s.input), FurthestFailure: -1}
}

func (s *Session) record() {
	outcome := "rejected"
	if s.stats.Accepted {
		outcome = "accepted"
	}
	s.metrics.Matches.With("outcome", outcome).Add(1)
	s.metrics.RuleEvaluations.Add(float64(s.stats.RuleEvaluations))
	s.metrics.MemoHits.Add(float64(s.stats.MemoHits))
	s.metrics.InputLength.Observe(float64(s.stats.InputLength))

	s.logger.Debug("match finished", "stats", s.stats)
}

// consume advances the cursor past r if r is the next character.
func (s *Session) consume(r rune) bool {
	if s.pos < len(s.input) && s.input[s.pos] == r {
		s.pos++
		return true
	}
	if s.pos > s.stats.FurthestFailure {
		s.stats.FurthestFailure = s.pos
	}
	return false
}

func (s *Session) hasMemoizedResult(rule string) bool {
	_, ok := s.memo[memoKey{pos: s.pos, rule: rule}]
	return ok
}

// memoizeResult must be called while the cursor is still where the rule's
// evaluation left it: that is where a later successful hit resumes.
func (s *Session) memoizeResult(origin int, rule string, cst CST, ok bool) {
	entry := memoEntry{ok: ok}
	if ok {
		entry.cst = cst
		entry.next = s.pos
	}
	s.memo[memoKey{pos: origin, rule: rule}] = entry
}

func (s *Session) useMemoizedResult(rule string) (CST, bool) {
	s.stats.MemoHits++
	entry := s.memo[memoKey{pos: s.pos, rule: rule}]
	if !entry.ok {
		return nil, false
	}
	s.pos = entry.next
	return entry.cst, true
}

func (s *Session) enterRule(rule string, origin int) {
	s.stats.RuleEvaluations++
	if s.trace {
		s.logger.Debug("apply rule", "rule", rule, "pos", origin)
	}
}

func (s *Session) exitRule(rule string, origin int, ok bool) {
	if s.trace {
		s.logger.Debug("rule done", "rule", rule, "pos", origin, "next", s.pos, "ok", ok)
	}
}
