// Package bot decides the automated ChatBot reply for an inbound message.
//
// The engine is a two-state machine per identity. In StateMenu the content is
// matched against the script's greeting and option keys; in StateAwaitingQuery
// the content is taken verbatim as a support query and answered with a ticket.
// Evaluate has no side effects: callers persist replies and execute directives.
package bot

import (
	"math/rand"
	"strings"

	"github.com/zhouzirui/z-chatbot/backend/internal/model/chat"
)

// TicketRange is the exclusive upper bound of generated ticket numbers.
const TicketRange = 1_000_000

// State is the per-identity dialogue position.
type State int

const (
	StateMenu State = iota
	StateAwaitingQuery
)

func (s State) String() string {
	switch s {
	case StateAwaitingQuery:
		return "AWAITING_QUERY"
	default:
		return "MENU"
	}
}

// DirectiveKind names a side effect requested by the engine.
type DirectiveKind string

// DirectiveOpenQueryBox asks the caller's client to show the free-text query input.
const DirectiveOpenQueryBox DirectiveKind = "openQueryBox"

// Directive is addressed to Target, which is always the caller.
type Directive struct {
	Kind   DirectiveKind
	Target string
}

// Reply is an unsaved bot message.
type Reply struct {
	Sender   string
	Receiver string
	Content  string
}

// Outcome is the result of one dialogue step.
type Outcome struct {
	Replies    []Reply
	Directives []Directive
	Next       State
}

// Options configures an Engine.
type Options struct {
	// RepromptUnknown sends the menu back when MENU input matches nothing.
	// Off by default: unrecognised input gets no reply.
	RepromptUnknown bool
	// Ticket returns a number in [0, TicketRange). Defaults to math/rand.
	Ticket func() int
}

// Engine evaluates inbound content against a Script.
type Engine struct {
	script   Script
	reprompt bool
	ticket   func() int
}

// NewEngine builds an engine for script.
func NewEngine(script Script, opts Options) *Engine {
	ticket := opts.Ticket
	if ticket == nil {
		ticket = func() int { return rand.Intn(TicketRange) }
	}
	return &Engine{script: script, reprompt: opts.RepromptUnknown, ticket: ticket}
}

// Script returns the script the engine was built with.
func (e *Engine) Script() Script {
	return e.script
}

// Evaluate computes the replies, directives and next state for content sent by caller.
func (e *Engine) Evaluate(caller, content string, state State) Outcome {
	if state == StateAwaitingQuery {
		return e.reply(caller, StateMenu, e.script.Ticket(e.ticket()))
	}

	switch {
	case strings.EqualFold(content, e.script.Greeting):
		return e.reply(caller, StateMenu, e.script.WelcomeText())
	case e.script.QueryKey != "" && content == e.script.QueryKey:
		out := e.reply(caller, StateAwaitingQuery, e.script.QueryPrompt)
		out.Directives = []Directive{{Kind: DirectiveOpenQueryBox, Target: caller}}
		return out
	}

	if opt, ok := e.script.option(content); ok {
		return e.reply(caller, StateMenu, opt.Reply)
	}

	if e.reprompt {
		return e.reply(caller, StateMenu, e.script.Menu())
	}
	return Outcome{Next: StateMenu}
}

func (e *Engine) reply(caller string, next State, content string) Outcome {
	return Outcome{
		Replies: []Reply{{Sender: chat.BotIdentity, Receiver: caller, Content: content}},
		Next:    next,
	}
}
