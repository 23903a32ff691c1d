// Package escalate drives summarization attempts, shrinking the content each
// time the service rejects it as too large.
package escalate

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pagedigest/internal/budget"
	"github.com/hyperifyio/pagedigest/internal/reduce"
	"github.com/hyperifyio/pagedigest/internal/summarize"
)

// State is a controller state. Attempt states issue exactly one remote call;
// Succeeded, Failed and Exhausted are terminal.
type State int

const (
	Initial State = iota
	Prefiltered
	Level1
	Level2
	Level3
	Succeeded
	Failed
	Exhausted
)

func (s State) String() string {
	switch s {
	case Initial:
		return "initial"
	case Prefiltered:
		return "prefiltered"
	case Level1:
		return "level1"
	case Level2:
		return "level2"
	case Level3:
		return "level3"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Exhausted:
		return "exhausted"
	}
	return "unknown"
}

// Terminal reports whether no further call is made from s.
func (s State) Terminal() bool {
	return s == Succeeded || s == Failed || s == Exhausted
}

// Level is the reduction level applied in s, zero for the initial and
// pre-filtered attempts.
func (s State) Level() reduce.Level {
	switch s {
	case Level1:
		return reduce.LevelTruncate
	case Level2:
		return reduce.LevelImportance
	case Level3:
		return reduce.LevelHeadMiddleTail
	}
	return 0
}

type outcomeKind int

const (
	kindSuccess outcomeKind = iota
	kindSizeLimit
	kindFailure
)

type transitionKey struct {
	from State
	on   outcomeKind
}

// transitions is the complete transition table. Success and Failure are
// terminal from every attempt state; a size limit advances one step.
var transitions = map[transitionKey]State{
	{Initial, kindSuccess}:       Succeeded,
	{Initial, kindFailure}:       Failed,
	{Initial, kindSizeLimit}:     Prefiltered,
	{Prefiltered, kindSuccess}:   Succeeded,
	{Prefiltered, kindFailure}:   Failed,
	{Prefiltered, kindSizeLimit}: Level1,
	{Level1, kindSuccess}:        Succeeded,
	{Level1, kindFailure}:        Failed,
	{Level1, kindSizeLimit}:      Level2,
	{Level2, kindSuccess}:        Succeeded,
	{Level2, kindFailure}:        Failed,
	{Level2, kindSizeLimit}:      Level3,
	{Level3, kindSuccess}:        Succeeded,
	{Level3, kindFailure}:        Failed,
	{Level3, kindSizeLimit}:      Exhausted,
}

// MaxCalls is the number of attempt states, and so the most remote calls a
// single run can make.
const MaxCalls = 5

// Next returns the state reached from s after outcome o. Unknown outcomes are
// treated as failures.
func Next(s State, o summarize.Outcome) State {
	kind := kindFailure
	switch o.(type) {
	case summarize.Success:
		kind = kindSuccess
	case summarize.SizeLimitExceeded:
		kind = kindSizeLimit
	}
	if next, ok := transitions[transitionKey{s, kind}]; ok {
		return next
	}
	return Failed
}

// ContentTooLongMessage is returned when every reduction still exceeds the
// service's limit.
const ContentTooLongMessage = "# Summary failed\n\nThe page content is too long for the selected model even after reduction. Try a model with a larger context window or a lower maximum length."

// FormatFailure renders a terminal failure in the same Markdown shape as a
// summary.
func FormatFailure(msg string) string {
	return "# Summary failed\n\n" + msg
}

// Summarizer performs one remote summarization call.
type Summarizer interface {
	Summarize(ctx context.Context, req summarize.Request) summarize.Outcome
}

// Result is the outcome of a run.
type Result struct {
	// Text is the summary or a formatted failure message.
	Text string
	// State is the terminal state reached.
	State State
	// Level is the last reduction level attempted, zero if none.
	Level reduce.Level
	// Calls is the number of remote calls made.
	Calls int
	// Attempts records the state and content size of each call in order.
	Attempts []Attempt
}

// Attempt describes one remote call.
type Attempt struct {
	State   State
	Runes   int
	Outcome string
}

// Controller runs the escalation state machine.
type Controller struct {
	Client Summarizer
}

// New returns a controller calling client.
func New(client Summarizer) *Controller {
	return &Controller{Client: client}
}

// Run summarizes content, escalating through pre-filtering and the three
// reduction levels while the service reports a size limit. req supplies the
// provider, key, prompt and length; its Content field is replaced per
// attempt.
func (c *Controller) Run(ctx context.Context, content string, req summarize.Request) Result {
	var res Result
	state := Initial
	prefiltered := ""
	var last summarize.Outcome
	for !state.Terminal() {
		if err := ctx.Err(); err != nil {
			res.State = Failed
			res.Text = FormatFailure(err.Error())
			return res
		}
		var attempt string
		switch state {
		case Initial:
			attempt = content
		case Prefiltered:
			prefiltered = reduce.PreFilter(content)
			attempt = prefiltered
		default:
			res.Level = state.Level()
			attempt = reduce.Reduce(prefiltered, res.Level)
		}

		r := req
		r.Content = attempt
		size := len([]rune(attempt))
		ev := log.Debug().Str("state", state.String()).Int("runes", size)
		if r.Provider != nil {
			ev = ev.Str("model", r.Provider.ModelName()).Int("est_tokens", budget.EstimateTokens(summarize.UserMessage(r)))
		}
		ev.Msg("summary attempt")

		last = c.Client.Summarize(ctx, r)
		res.Calls++
		res.Attempts = append(res.Attempts, Attempt{State: state, Runes: size, Outcome: summarize.Kind(last)})
		next := Next(state, last)
		if next != Succeeded && next != Failed {
			log.Info().Str("from", state.String()).Str("to", next.String()).Msg("content too large; escalating")
		}
		state = next
	}

	res.State = state
	switch state {
	case Succeeded:
		res.Text = last.(summarize.Success).Text
	case Failed:
		msg := "unknown error"
		if f, ok := last.(summarize.Failure); ok {
			msg = f.Message
		}
		res.Text = FormatFailure(msg)
		log.Warn().Str("error", msg).Int("calls", res.Calls).Msg("summary failed")
	case Exhausted:
		res.Text = ContentTooLongMessage
		log.Warn().Int("calls", res.Calls).Msg("content still too long after all reductions")
	}
	return res
}
