// Package assist drafts replies to support emails, either from canned
// templates or through a Gemini model, with an optional cache in front.
package assist

import (
	"context"
	"strings"

	"github.com/harrisonrobin/dayboard/pkg/apperr"
	"github.com/harrisonrobin/dayboard/pkg/model"
)

type Tone string

const (
	ToneFriendly   Tone = "friendly"
	ToneFormal     Tone = "formal"
	ToneApologetic Tone = "apologetic"
)

// ParseTone accepts an empty string as friendly.
func ParseTone(s string) (Tone, error) {
	switch t := Tone(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return ToneFriendly, nil
	case ToneFriendly, ToneFormal, ToneApologetic:
		return t, nil
	}
	return "", apperr.Invalid("unknown tone %q", s)
}

// Drafter writes a reply body for email. customer may be nil.
type Drafter interface {
	Draft(ctx context.Context, email *model.Email, customer *model.CustomerProfile, tone Tone) (string, error)
}

// recipientName picks the best name to greet.
func recipientName(email *model.Email, customer *model.CustomerProfile) string {
	if customer != nil && strings.TrimSpace(customer.Name) != "" {
		return firstName(customer.Name)
	}
	if strings.TrimSpace(email.FromName) != "" {
		return firstName(email.FromName)
	}
	return ""
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
