// Package session drives one edit from file read to apply or discard.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/iishyfishyy/tweak/internal/config"
	"github.com/iishyfishyy/tweak/internal/parser"
	"github.com/iishyfishyy/tweak/internal/patch"
	"github.com/iishyfishyy/tweak/internal/provider"
)

// State is a step of the session state machine.
type State int

const (
	Idle State = iota
	PromptBuilt
	AwaitingCompletion
	ProposalReady
	Applied
	Discarded
	Failed
)

var stateNames = [...]string{
	Idle:               "idle",
	PromptBuilt:        "prompt-built",
	AwaitingCompletion: "awaiting-completion",
	ProposalReady:      "proposal-ready",
	Applied:            "applied",
	Discarded:          "discarded",
	Failed:             "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == Applied || s == Discarded || s == Failed
}

// Decision is the reviewer's verdict on a proposal.
type Decision int

const (
	Reject Decision = iota
	Accept
)

// Review is everything a reviewer needs to decide.
type Review struct {
	Source   *patch.SourceFile
	Proposal *patch.Proposal
	Diff     *patch.DiffView
	Provider string
	Model    string
}

// Reviewer asks for an accept or reject decision. Returning ErrInterrupted
// (or any error once ctx is done) discards the proposal.
type Reviewer interface {
	Review(ctx context.Context, r *Review) (Decision, error)
}

// ReviewerFunc adapts a function to Reviewer.
type ReviewerFunc func(ctx context.Context, r *Review) (Decision, error)

func (f ReviewerFunc) Review(ctx context.Context, r *Review) (Decision, error) { return f(ctx, r) }

// Router picks the client and model for a provider.
type Router interface {
	Route(ctx context.Context, providerID string, sel provider.Selection) (*provider.Route, error)
}

// Applier writes an accepted proposal.
type Applier interface {
	Apply(src *patch.SourceFile, p *patch.Proposal) (*patch.ApplyResult, error)
}

// Options configures one session.
type Options struct {
	Path        string
	Instruction string
	ProviderID  string
	Selection   provider.Selection
	Retry       config.Retry

	// OnState, if set, is called after every transition.
	OnState func(State)
}

// Outcome reports how a session ended.
type Outcome struct {
	State    State
	Err      error
	Proposal *patch.Proposal
	Diff     *patch.DiffView
	Result   *patch.ApplyResult
	Response *provider.Response
	Provider string
	Model    string
	Attempts int
	Duration time.Duration
}

// Session is single-shot: Run may be called once.
type Session struct {
	router   Router
	reviewer Reviewer
	applier  Applier
	opts     Options

	state atomic.Int32
	used  atomic.Bool

	sleep func(context.Context, time.Duration) error
}

// New creates a session.
func New(router Router, reviewer Reviewer, applier Applier, opts Options) *Session {
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}
	return &Session{
		router:   router,
		reviewer: reviewer,
		applier:  applier,
		opts:     opts,
		sleep:    sleep,
	}
}

// State returns the current state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Run executes the session. The returned outcome is always set on the first
// call; err is non-nil exactly when the outcome state is Failed.
func (s *Session) Run(ctx context.Context) (*Outcome, error) {
	if !s.used.CompareAndSwap(false, true) {
		return nil, ErrSessionUsed
	}

	start := time.Now()
	out := &Outcome{Provider: s.opts.ProviderID}
	s.run(ctx, out)
	out.State = s.State()
	out.Duration = time.Since(start)

	log := zerolog.Ctx(ctx)
	ev := log.Debug()
	if out.Err != nil {
		ev = log.Warn().Err(out.Err).Str("kind", Kind(out.Err))
	}
	ev.Str("state", out.State.String()).Int("attempts", out.Attempts).Dur("elapsed", out.Duration).Msg("session finished")

	return out, out.Err
}

func (s *Session) run(ctx context.Context, out *Outcome) {
	log := zerolog.Ctx(ctx).With().Str("file", s.opts.Path).Str("provider", s.opts.ProviderID).Logger()

	src, err := patch.ReadSource(s.opts.Path)
	if err != nil {
		s.fail(out, err)
		return
	}

	req := buildRequest(src, s.opts.Instruction)
	s.transition(PromptBuilt)
	log.Debug().Int("lines", src.LineCount()).Msg("prompt built")

	route, err := s.router.Route(ctx, s.opts.ProviderID, s.opts.Selection)
	if err != nil {
		s.fail(out, err)
		return
	}
	out.Model = route.Model
	req.Model = route.Model

	s.transition(AwaitingCompletion)
	log.Debug().Str("model", route.Model).Msg("awaiting completion")
	resp, err := s.complete(ctx, route.Client, req, out)
	if err != nil {
		s.fail(out, err)
		return
	}
	out.Response = resp

	proposal, err := parser.Parse(resp, src)
	if err != nil {
		s.fail(out, err)
		return
	}
	out.Proposal = proposal

	diff, err := patch.Diff(src, proposal)
	if err != nil {
		s.fail(out, err)
		return
	}
	out.Diff = diff
	s.transition(ProposalReady)
	log.Debug().Stringer("kind", proposal.Kind).Int("hunks", len(proposal.Hunks)).Msg("proposal ready")

	decision, err := s.reviewer.Review(ctx, &Review{
		Source:   src,
		Proposal: proposal,
		Diff:     diff,
		Provider: route.Client.ID(),
		Model:    route.Model,
	})
	switch {
	case err != nil && (errors.Is(err, ErrInterrupted) || ctx.Err() != nil):
		log.Debug().Err(err).Msg("review interrupted")
		s.transition(Discarded)
		return
	case err != nil:
		s.fail(out, fmt.Errorf("review: %w", err))
		return
	case decision != Accept || ctx.Err() != nil:
		s.transition(Discarded)
		return
	}

	result, err := s.applier.Apply(src, proposal)
	out.Result = result
	if err != nil {
		s.fail(out, err)
		return
	}
	s.transition(Applied)
}

// complete calls the client, retrying transport errors with exponential
// backoff. Other errors are returned at once.
func (s *Session) complete(ctx context.Context, c provider.Client, req provider.Request, out *Outcome) (*provider.Response, error) {
	log := zerolog.Ctx(ctx)
	policy := s.opts.Retry

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		out.Attempts = attempt

		resp, err := c.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !provider.IsRetryable(err) {
			return nil, err
		}
		lastErr = err

		if attempt == policy.MaxAttempts {
			break
		}
		wait := backoff(policy, attempt)
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", wait).Msg("provider request failed, retrying")
		if err := s.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, &unavailableError{attempts: out.Attempts, last: lastErr}
}

func (s *Session) transition(to State) {
	s.state.Store(int32(to))
	if s.opts.OnState != nil {
		s.opts.OnState(to)
	}
}

func (s *Session) fail(out *Outcome, err error) {
	out.Err = err
	s.transition(Failed)
}
