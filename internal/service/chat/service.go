package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/zhouzirui/z-chatbot/backend/internal/model/chat"
	"github.com/zhouzirui/z-chatbot/backend/internal/service/bot"
	"github.com/zhouzirui/z-chatbot/backend/internal/service/delivery"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrStorage    = errors.New("storage failed")
)

// Pusher delivers events to the live channels of an identity.
type Pusher interface {
	Push(identity, event string, payload any) int
}

// Evaluator decides the bot reply for one inbound message.
type Evaluator interface {
	Evaluate(caller, content string, state bot.State) bot.Outcome
}

// session is the dialogue state of one identity. mu serializes that identity's sends.
type session struct {
	mu    sync.Mutex
	state bot.State
}

// Service persists messages, notifies recipients and runs the bot dialogue.
type Service struct {
	store  chat.Store
	pusher Pusher
	bot    Evaluator

	mu       sync.Mutex
	sessions map[string]*session
}

// NewService wires the message pipeline.
func NewService(store chat.Store, pusher Pusher, evaluator Evaluator) *Service {
	return &Service{
		store:    store,
		pusher:   pusher,
		bot:      evaluator,
		sessions: make(map[string]*session),
	}
}

// SendMessage stores content from caller to receiver, pushes it to the receiver
// and answers with the bot's reply. Only validation and the inbound insert can
// fail the call; later steps are logged and skipped.
func (s *Service) SendMessage(ctx context.Context, caller, receiver, content string) (chat.Message, error) {
	switch {
	case caller == "":
		return chat.Message{}, fmt.Errorf("%w: caller identity is required", ErrValidation)
	case receiver == "":
		return chat.Message{}, fmt.Errorf("%w: receiver is required", ErrValidation)
	case content == "":
		return chat.Message{}, fmt.Errorf("%w: content is required", ErrValidation)
	}

	// the pipeline runs to completion even if the caller goes away
	ctx = context.WithoutCancel(ctx)

	sess := s.session(caller)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	msg, err := s.store.Insert(ctx, caller, receiver, content)
	if err != nil {
		return chat.Message{}, fmt.Errorf("%w: save message: %v", ErrStorage, err)
	}

	s.pusher.Push(receiver, delivery.EventMessage, msg)

	outcome := s.bot.Evaluate(caller, content, sess.state)
	if outcome.Next != sess.state {
		log.Printf("[chat] dialogue state identity=%s %s -> %s", caller, sess.state, outcome.Next)
	}
	sess.state = outcome.Next

	for _, d := range outcome.Directives {
		switch d.Kind {
		case bot.DirectiveOpenQueryBox:
			s.pusher.Push(d.Target, delivery.EventOpenQueryBox, struct{}{})
		default:
			log.Printf("[chat] ignoring unknown directive %q", d.Kind)
		}
	}

	for _, reply := range outcome.Replies {
		botMsg, err := s.store.Insert(ctx, reply.Sender, reply.Receiver, reply.Content)
		if err != nil {
			log.Printf("[chat] save bot reply failed identity=%s: %v", caller, err)
			continue
		}
		s.pusher.Push(reply.Receiver, delivery.EventMessage, botMsg)
	}

	return msg, nil
}

// ListMessages returns every message caller sent or received, oldest first.
func (s *Service) ListMessages(ctx context.Context, caller string) ([]chat.Message, error) {
	if caller == "" {
		return nil, fmt.Errorf("%w: caller identity is required", ErrValidation)
	}

	messages, err := s.store.QueryByParticipant(ctx, caller)
	if err != nil {
		return nil, fmt.Errorf("%w: load messages: %v", ErrStorage, err)
	}
	return messages, nil
}

// SessionState reports the dialogue state of identity. Unknown identities are in StateMenu.
func (s *Service) SessionState(identity string) bot.State {
	s.mu.Lock()
	sess, ok := s.sessions[identity]
	s.mu.Unlock()
	if !ok {
		return bot.StateMenu
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state
}

func (s *Service) session(identity string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[identity]
	if !ok {
		sess = &session{state: bot.StateMenu}
		s.sessions[identity] = sess
	}
	return sess
}
