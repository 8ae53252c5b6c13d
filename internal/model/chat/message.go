package chat

import "time"

// BotIdentity is the sender identity of every automated reply.
const BotIdentity = "ChatBot"

// Message is a single persisted chat line between two identities.
// Once stored it is never modified.
type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Receiver  string    `json:"receiver"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Involves reports whether identity is the sender or the receiver.
func (m Message) Involves(identity string) bool {
	return m.Sender == identity || m.Receiver == identity
}
