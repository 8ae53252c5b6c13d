package bot

import (
	"fmt"
	"strings"
)

// Option is one numbered entry of the menu.
type Option struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Reply string `json:"reply,omitempty"`
}

// Script holds every text the engine can emit.
type Script struct {
	Greeting       string   `json:"greeting"`
	Welcome        string   `json:"welcome"`
	MenuHeader     string   `json:"menuHeader"`
	Options        []Option `json:"options"`
	QueryKey       string   `json:"queryKey"`
	QueryLabel     string   `json:"queryLabel"`
	QueryPrompt    string   `json:"queryPrompt"`
	TicketTemplate string   `json:"-"`
}

// DefaultScript returns the stock support menu.
func DefaultScript() Script {
	return Script{
		Greeting:   "hi",
		Welcome:    "Hi, welcome to Bot chatbot!",
		MenuHeader: "Choose a query:",
		Options: []Option{
			{Key: "1", Label: "Option a", Reply: "Thanks for selecting option a."},
			{Key: "2", Label: "Option b", Reply: "Thanks for selecting option b."},
			{Key: "3", Label: "Option c", Reply: "Thanks for selecting option c."},
			{Key: "4", Label: "Option d", Reply: "Thanks for selecting option d."},
		},
		QueryKey:       "5",
		QueryLabel:     "Raise your own query",
		QueryPrompt:    "Please enter your query:",
		TicketTemplate: "Thank you for your query. Your ticket number is %d. We will get back to you soon.",
	}
}

// Menu renders the header followed by one numbered line per option.
func (s Script) Menu() string {
	var sb strings.Builder
	sb.WriteString(s.MenuHeader)
	for _, opt := range s.Options {
		fmt.Fprintf(&sb, "\n%s. %s", opt.Key, opt.Label)
	}
	if s.QueryKey != "" {
		fmt.Fprintf(&sb, "\n%s. %s", s.QueryKey, s.QueryLabel)
	}
	return sb.String()
}

// WelcomeText is the greeting reply: welcome line plus the menu.
func (s Script) WelcomeText() string {
	return s.Welcome + "\n" + s.Menu()
}

// Ticket formats the query acknowledgment for ticket number n.
func (s Script) Ticket(n int) string {
	return fmt.Sprintf(s.TicketTemplate, n)
}

func (s Script) option(key string) (Option, bool) {
	for _, opt := range s.Options {
		if opt.Key == key {
			return opt, true
		}
	}
	return Option{}, false
}
