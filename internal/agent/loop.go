package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/liminalbooks/liminal/internal/llm"
)

// ParseFailure selects what a loop does with a reply that holds no tool call.
type ParseFailure int

const (
	// CorrectAndContinue appends a corrective user turn and keeps iterating.
	CorrectAndContinue ParseFailure = iota
	// AnswerDirectly takes the raw reply as the final answer and stops.
	AnswerDirectly
)

// Policy parameterizes one Loop run.
type Policy struct {
	Mode           Mode
	MaxIterations  int
	Done           func(*State) bool
	OnParseFailure ParseFailure

	// CompleteMessage is emitted when Done fires.
	CompleteMessage string
	// Describe renders the status shown before a tool runs.
	Describe func(ToolCall) string
}

// GeneratePolicy stops on finish and corrects malformed replies.
func GeneratePolicy(maxIterations int) Policy {
	return Policy{
		Mode:            ModeGenerate,
		MaxIterations:   maxIterations,
		Done:            func(s *State) bool { return s.Finished },
		OnParseFailure:  CorrectAndContinue,
		CompleteMessage: "Content generation complete!",
		Describe:        describeTool,
	}
}

// EditPolicy stops on respond and treats a plain reply as the answer.
func EditPolicy(maxIterations int) Policy {
	return Policy{
		Mode:            ModeEdit,
		MaxIterations:   maxIterations,
		Done:            func(s *State) bool { return s.ResponseToUser != nil },
		OnParseFailure:  AnswerDirectly,
		CompleteMessage: "Done",
		Describe:        func(c ToolCall) string { return "Using " + c.Name },
	}
}

// Outcome summarizes a finished loop run.
type Outcome struct {
	Iterations   int
	Done         bool
	Reply        string
	ToolUsed     string
	PagesChanged bool
	Transcript   []llm.Message
}

// Loop alternates model calls and tool executions.
type Loop struct {
	client      llm.Client
	exec        *Executor
	sink        StatusSink
	logger      zerolog.Logger
	temperature float64
}

// NewLoop constructs a Loop. A nil sink discards notifications.
func NewLoop(client llm.Client, exec *Executor, sink StatusSink, temperature float64, logger zerolog.Logger) *Loop {
	if sink == nil {
		sink = NopSink{}
	}
	return &Loop{
		client:      client,
		exec:        exec,
		sink:        sink,
		logger:      logger.With().Str("component", "agent.loop").Logger(),
		temperature: temperature,
	}
}

// Run iterates until the policy's Done predicate holds, the iteration cap is
// reached or, under AnswerDirectly, the model replies without a tool call.
// Only model call failures are returned as errors.
func (l *Loop) Run(ctx context.Context, p Policy, state *State, transcript []llm.Message) (Outcome, error) {
	state.MaxIterations = p.MaxIterations
	out := Outcome{}

	for state.Iteration < p.MaxIterations && !p.Done(state) {
		state.Iteration++
		l.sink.Notify(Event{
			Kind:      EventIteration,
			Iteration: state.Iteration,
			Max:       p.MaxIterations,
			Message:   fmt.Sprintf("Iteration %d/%d", state.Iteration, p.MaxIterations),
		})

		reply, err := l.client.Complete(ctx, transcript, l.temperature)
		if err != nil {
			l.sink.Notify(Event{Kind: EventFailed, Iteration: state.Iteration, Message: err.Error()})
			out.Iterations = state.Iteration
			out.Transcript = transcript
			return out, fmt.Errorf("model call in iteration %d: %w", state.Iteration, err)
		}
		if status, ok := StatusLine(reply); ok {
			l.sink.Notify(Event{Kind: EventThinking, Iteration: state.Iteration, Message: status})
		}
		transcript = append(transcript, llm.Assistant(reply))

		call, err := ParseToolCall(reply)
		if err != nil {
			l.logger.Debug().Err(err).Int("iteration", state.Iteration).Msg("reply without tool call")
			if p.OnParseFailure == AnswerDirectly {
				out.Reply = reply
				break
			}
			transcript = append(transcript, llm.User(correctionPrompt(err)))
			continue
		}

		l.sink.Notify(Event{Kind: EventTool, Iteration: state.Iteration, Tool: call.Name, Message: p.Describe(call)})
		out.ToolUsed = call.Name
		if pageChanging(call.Name) {
			out.PagesChanged = true
		}

		res := l.exec.Execute(state, p.Mode, call)
		transcript = append(transcript, llm.User(res.Message()))
	}

	out.Iterations = state.Iteration
	out.Transcript = transcript
	out.Done = p.Done(state)
	if state.ResponseToUser != nil {
		out.Reply = *state.ResponseToUser
	}

	switch {
	case out.Done:
		l.sink.Notify(Event{Kind: EventComplete, Iteration: state.Iteration, Message: p.CompleteMessage})
	case out.Reply == "" && state.Iteration >= p.MaxIterations:
		l.logger.Info().Int("max_iterations", p.MaxIterations).Msg("iteration cap reached")
		l.sink.Notify(Event{Kind: EventWrapUp, Iteration: state.Iteration, Message: "Wrapping up..."})
	}
	return out, nil
}
