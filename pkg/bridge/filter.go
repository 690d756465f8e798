package bridge

import (
	"fmt"
	"strings"
)

// Policy decides whether an inbound event is forwarded to the webhook.
// Implementations are pure and must never forward bot-authored events,
// otherwise the bot's own replies feed back into the webhook.
type Policy interface {
	Name() string
	ShouldForward(ev InboundEvent) bool
}

// Keywords matched case-insensitively by KeywordPolicy, alongside "?".
var supportKeywords = []string{"error", "bug", "help", "fix", "fail", "broken"}

// AlwaysPolicy forwards every non-bot message. This is the gatekeeper
// deployment shape: the workflow on the other end decides what to answer.
type AlwaysPolicy struct{}

func (AlwaysPolicy) Name() string { return "always" }

func (AlwaysPolicy) ShouldForward(ev InboundEvent) bool {
	return !ev.Bot
}

// AttentionPolicy forwards messages that address the bot directly: a
// mention, a direct message, or a reply to one of the bot's own messages.
type AttentionPolicy struct {
	SelfID string
}

func (AttentionPolicy) Name() string { return "attention" }

func (p AttentionPolicy) ShouldForward(ev InboundEvent) bool {
	if ev.Bot {
		return false
	}
	return ev.Mentioned || ev.DM || (ev.ReferenceAuthorID != "" && ev.ReferenceAuthorID == p.SelfID)
}

// KeywordPolicy forwards messages that look like support questions.
type KeywordPolicy struct{}

func (KeywordPolicy) Name() string { return "keyword" }

func (KeywordPolicy) ShouldForward(ev InboundEvent) bool {
	if ev.Bot {
		return false
	}
	if strings.Contains(ev.Content, "?") {
		return true
	}
	lower := strings.ToLower(ev.Content)
	for _, kw := range supportKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// PolicyByName resolves the configured filter policy. The choice is a
// static deployment decision, resolved once at startup.
func PolicyByName(name, selfID string) (Policy, error) {
	switch name {
	case "", "always":
		return AlwaysPolicy{}, nil
	case "attention":
		return AttentionPolicy{SelfID: selfID}, nil
	case "keyword":
		return KeywordPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown filter policy %q", name)
	}
}
