package assist

import (
	"context"
	"fmt"
	"strings"

	"github.com/harrisonrobin/dayboard/pkg/model"
)

var categoryBodies = map[model.Category]string{
	model.CategoryBilling: "I've looked into the charges on your account regarding %q. " +
		"Our billing team will review the invoice and correct anything that is wrong within two business days.",
	model.CategoryTechnical: "Thanks for the details about %q. " +
		"Our engineers are investigating and I'll follow up as soon as we have a fix or a workaround.",
	model.CategoryAccount: "I can help with your account request about %q. " +
		"For your security, please confirm the change from the address registered on the account.",
	model.CategoryFeatureRequest: "Thank you for the suggestion in %q. " +
		"I've shared it with our product team, who review every request when planning the roadmap.",
	model.CategoryGeneral: "Thanks for reaching out about %q. " +
		"I've passed your message to the right person and we'll get back to you shortly.",
}

// TemplateDrafter builds replies from fixed per-category templates.
type TemplateDrafter struct {
	Signature string
}

func NewTemplateDrafter(signature string) *TemplateDrafter {
	if signature == "" {
		signature = "The Dayboard Team"
	}
	return &TemplateDrafter{Signature: signature}
}

func (d *TemplateDrafter) Draft(_ context.Context, email *model.Email, customer *model.CustomerProfile, tone Tone) (string, error) {
	body, ok := categoryBodies[email.Category]
	if !ok {
		body = categoryBodies[model.CategoryGeneral]
	}
	subject := strings.TrimSpace(email.Subject)
	if subject == "" {
		subject = "your message"
	}

	var b strings.Builder
	b.WriteString(greeting(tone, recipientName(email, customer)))
	b.WriteString("\n\n")
	if tone == ToneApologetic || email.Sentiment == model.SentimentNegative {
		b.WriteString("I'm sorry for the trouble this has caused. ")
	}
	fmt.Fprintf(&b, body, subject)
	b.WriteString("\n\n")
	b.WriteString(closing(tone))
	b.WriteString("\n")
	b.WriteString(d.Signature)
	return b.String(), nil
}

func greeting(tone Tone, name string) string {
	switch tone {
	case ToneFormal:
		if name == "" {
			return "Dear customer,"
		}
		return "Dear " + name + ","
	default:
		if name == "" {
			return "Hi there,"
		}
		return "Hi " + name + ","
	}
}

func closing(tone Tone) string {
	switch tone {
	case ToneFormal:
		return "Kind regards,"
	case ToneApologetic:
		return "Thank you for your patience,"
	default:
		return "Cheers,"
	}
}
