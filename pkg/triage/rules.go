package triage

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/dayboard/pkg/model"
)

// categoryOrder breaks ties between categories with equal keyword counts.
var categoryOrder = []model.Category{
	model.CategoryBilling,
	model.CategoryTechnical,
	model.CategoryAccount,
	model.CategoryFeatureRequest,
}

// Rules are the keyword lists driving the classifier. Keywords may be phrases.
type Rules struct {
	Categories map[model.Category][]string `yaml:"categories"`
	Positive   []string                    `yaml:"positive"`
	Negative   []string                    `yaml:"negative"`
	Negations  []string                    `yaml:"negations"`
	Urgent     []string                    `yaml:"urgent"`
}

func DefaultRules() *Rules {
	return &Rules{
		Categories: map[model.Category][]string{
			model.CategoryBilling: {
				"invoice", "payment", "refund", "charge", "charged", "billing",
				"subscription", "price", "pricing", "receipt", "credit card",
			},
			model.CategoryTechnical: {
				"error", "bug", "crash", "crashes", "broken", "not working",
				"doesn't work", "slow", "timeout", "sync", "exception",
			},
			model.CategoryAccount: {
				"password", "account", "login", "log in", "sign in", "username",
				"delete my account", "two factor", "2fa", "email address",
			},
			model.CategoryFeatureRequest: {
				"feature", "suggestion", "would be nice", "would love",
				"add support", "request", "wish", "integration",
			},
		},
		Positive: []string{
			"thanks", "thank", "great", "love", "awesome", "appreciate",
			"happy", "excellent", "amazing", "helpful", "good",
		},
		Negative: []string{
			"angry", "frustrated", "terrible", "disappointed", "worst",
			"unacceptable", "annoyed", "hate", "awful", "bad", "useless",
		},
		Negations: []string{"not", "no", "never", "don't", "isn't", "wasn't"},
		Urgent: []string{
			"urgent", "asap", "immediately", "emergency", "critical",
			"right now", "as soon as possible",
		},
	}
}

// LoadRules reads YAML rules from path. Sections missing from the file keep
// their defaults.
func LoadRules(path string) (*Rules, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read triage rules %s: %w", path, err)
	}
	var fileRules Rules
	if err := yaml.Unmarshal(b, &fileRules); err != nil {
		return nil, fmt.Errorf("failed to parse triage rules %s: %w", path, err)
	}

	rules := DefaultRules()
	for cat, words := range fileRules.Categories {
		if !knownCategory(cat) {
			return nil, fmt.Errorf("triage rules %s: unknown category %q", path, cat)
		}
		rules.Categories[cat] = words
	}
	if len(fileRules.Positive) > 0 {
		rules.Positive = fileRules.Positive
	}
	if len(fileRules.Negative) > 0 {
		rules.Negative = fileRules.Negative
	}
	if len(fileRules.Negations) > 0 {
		rules.Negations = fileRules.Negations
	}
	if len(fileRules.Urgent) > 0 {
		rules.Urgent = fileRules.Urgent
	}
	return rules, nil
}

func knownCategory(c model.Category) bool {
	for _, k := range categoryOrder {
		if k == c {
			return true
		}
	}
	return false
}

func lowerAll(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[strings.ToLower(strings.TrimSpace(w))] = true
	}
	return set
}
