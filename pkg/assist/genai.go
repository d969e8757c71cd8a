package assist

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/harrisonrobin/dayboard/pkg/model"
)

const DefaultModel = "gemini-2.0-flash"

// generator is the subset of *genai.Models the drafter calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GenAIDrafter asks a Gemini model for the reply and falls back to another
// Drafter when the call fails or returns nothing.
type GenAIDrafter struct {
	gen      generator
	model    string
	fallback Drafter
	log      *logrus.Logger
}

func NewGenAIDrafter(ctx context.Context, apiKey, modelName string, fallback Drafter, log *logrus.Logger) (*GenAIDrafter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return newGenAIDrafter(client.Models, modelName, fallback, log), nil
}

func newGenAIDrafter(gen generator, modelName string, fallback Drafter, log *logrus.Logger) *GenAIDrafter {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &GenAIDrafter{gen: gen, model: modelName, fallback: fallback, log: log}
}

func (d *GenAIDrafter) Draft(ctx context.Context, email *model.Email, customer *model.CustomerProfile, tone Tone) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.4),
	}
	resp, err := d.gen.GenerateContent(ctx, d.model, genai.Text(prompt(email, customer, tone)), cfg)
	if err == nil {
		if text := strings.TrimSpace(resp.Text()); text != "" {
			return text, nil
		}
		err = fmt.Errorf("empty response")
	}
	if d.fallback == nil {
		return "", fmt.Errorf("GenAI draft failed: %w", err)
	}
	d.log.WithContext(ctx).WithError(err).WithField("email_id", email.ID).Warn("GenAI draft failed, using template")
	noteFallback(ctx)
	return d.fallback.Draft(ctx, email, customer, tone)
}

type fallbackKey struct{}

// fallbackNote is set when a Drafter answered with its fallback instead of
// the model.
type fallbackNote struct {
	used atomic.Bool
}

func withFallbackNote(ctx context.Context) (context.Context, *fallbackNote) {
	n := &fallbackNote{}
	return context.WithValue(ctx, fallbackKey{}, n), n
}

func noteFallback(ctx context.Context) {
	if n, ok := ctx.Value(fallbackKey{}).(*fallbackNote); ok {
		n.used.Store(true)
	}
}

const systemPrompt = "You are a customer support agent. Write only the body of a reply email: " +
	"no subject line, no placeholders. Keep it under 150 words."

func prompt(email *model.Email, customer *model.CustomerProfile, tone Tone) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tone: %s\n", tone)
	fmt.Fprintf(&b, "Category: %s\nSentiment: %s\n", email.Category, email.Sentiment)
	if name := recipientName(email, customer); name != "" {
		fmt.Fprintf(&b, "Customer first name: %s\n", name)
	}
	if customer != nil {
		if customer.Plan != "" {
			fmt.Fprintf(&b, "Plan: %s\n", customer.Plan)
		}
		fmt.Fprintf(&b, "Previous tickets: %d\n", customer.TicketCount)
	}
	fmt.Fprintf(&b, "\nSubject: %s\n\n%s\n", email.Subject, email.Body)
	return b.String()
}
