// Package triage classifies support emails with keyword heuristics.
package triage

import (
	"strings"
	"unicode"

	"github.com/harrisonrobin/dayboard/pkg/model"
)

// Result is the outcome of classifying one email.
type Result struct {
	Category  model.Category  `json:"category"`
	Sentiment model.Sentiment `json:"sentiment"`
	Score     int             `json:"score"`
	Priority  model.Priority  `json:"priority"`
}

type Classifier struct {
	rules     *Rules
	positive  map[string]bool
	negative  map[string]bool
	negations map[string]bool
}

func NewClassifier(rules *Rules) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{
		rules:     rules,
		positive:  lowerAll(rules.Positive),
		negative:  lowerAll(rules.Negative),
		negations: lowerAll(rules.Negations),
	}
}

// Classify runs category, sentiment and priority over subject and body.
func (c *Classifier) Classify(subject, body string) Result {
	text := subject + "\n" + body
	cat := c.Categorize(subject, body)
	sent, score := c.Sentiment(text)
	return Result{
		Category:  cat,
		Sentiment: sent,
		Score:     score,
		Priority:  c.Priority(cat, sent, text),
	}
}

// Categorize returns the category with the most keyword hits, general when
// nothing matches.
func (c *Classifier) Categorize(subject, body string) model.Category {
	norm := normalize(subject + "\n" + body)

	best, bestCount := model.CategoryGeneral, 0
	for _, cat := range categoryOrder {
		n := 0
		for _, kw := range c.rules.Categories[cat] {
			n += countPhrase(norm, kw)
		}
		if n > bestCount {
			best, bestCount = cat, n
		}
	}
	return best
}

// Sentiment counts positive minus negative words. A negation word flips the
// polarity of the word right after it.
func (c *Classifier) Sentiment(text string) (model.Sentiment, int) {
	score := 0
	negate := false
	for _, tok := range tokenize(text) {
		switch {
		case c.negations[tok]:
			negate = true
			continue
		case c.positive[tok]:
			if negate {
				score--
			} else {
				score++
			}
		case c.negative[tok]:
			if negate {
				score++
			} else {
				score--
			}
		}
		negate = false
	}

	switch {
	case score > 0:
		return model.SentimentPositive, score
	case score < 0:
		return model.SentimentNegative, score
	}
	return model.SentimentNeutral, 0
}

func (c *Classifier) Priority(cat model.Category, sent model.Sentiment, text string) model.Priority {
	norm := normalize(text)
	for _, kw := range c.rules.Urgent {
		if countPhrase(norm, kw) > 0 {
			return model.PriorityHigh
		}
	}
	if sent == model.SentimentNegative {
		if cat == model.CategoryBilling || cat == model.CategoryTechnical {
			return model.PriorityHigh
		}
		return model.PriorityMedium
	}
	return model.PriorityLow
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// normalize joins tokens with single spaces and pads both ends so phrases can
// be matched on word boundaries.
func normalize(text string) string {
	return " " + strings.Join(tokenize(text), " ") + " "
}

func countPhrase(norm, phrase string) int {
	p := strings.Join(tokenize(phrase), " ")
	if p == "" {
		return 0
	}
	return strings.Count(norm, " "+p+" ")
}
