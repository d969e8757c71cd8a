package triage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/dayboard/pkg/model"
)

func TestCategorize(t *testing.T) {
	c := NewClassifier(nil)
	cases := []struct {
		subject, body string
		want          model.Category
	}{
		{"Refund request", "I was charged twice, please refund the payment.", model.CategoryBilling},
		{"App crash", "The app crashes on launch with an error.", model.CategoryTechnical},
		{"Can't log in", "I forgot my password and can't sign in to my account.", model.CategoryAccount},
		{"Idea", "It would be nice to have a calendar integration feature.", model.CategoryFeatureRequest},
		{"Hello", "Just saying hi.", model.CategoryGeneral},
		// "errors" is not the keyword "error", matching is on word boundaries.
		{"Question", "No errors here, just curious.", model.CategoryGeneral},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Categorize(tc.subject, tc.body), tc.subject)
	}
}

func TestCategorizeTieUsesFixedOrder(t *testing.T) {
	c := NewClassifier(nil)
	// one billing keyword, one technical keyword
	assert.Equal(t, model.CategoryBilling, c.Categorize("invoice bug", ""))
}

func TestSentiment(t *testing.T) {
	c := NewClassifier(nil)

	s, score := c.Sentiment("Thanks so much, the new planner is great!")
	assert.Equal(t, model.SentimentPositive, s)
	assert.Equal(t, 2, score)

	s, score = c.Sentiment("I am frustrated, this is unacceptable and terrible.")
	assert.Equal(t, model.SentimentNegative, s)
	assert.Equal(t, -3, score)

	s, _ = c.Sentiment("The export is not good.")
	assert.Equal(t, model.SentimentNegative, s)

	s, _ = c.Sentiment("Honestly not bad at all.")
	assert.Equal(t, model.SentimentPositive, s)

	s, score = c.Sentiment("Please update my address.")
	assert.Equal(t, model.SentimentNeutral, s)
	assert.Zero(t, score)
}

func TestPriority(t *testing.T) {
	c := NewClassifier(nil)

	assert.Equal(t, model.PriorityHigh, c.Priority(model.CategoryGeneral, model.SentimentNeutral, "Please help ASAP"))
	assert.Equal(t, model.PriorityHigh, c.Priority(model.CategoryBilling, model.SentimentNegative, "charged twice"))
	assert.Equal(t, model.PriorityMedium, c.Priority(model.CategoryAccount, model.SentimentNegative, "annoyed"))
	assert.Equal(t, model.PriorityLow, c.Priority(model.CategoryFeatureRequest, model.SentimentPositive, "love it"))
}

func TestClassify(t *testing.T) {
	c := NewClassifier(nil)
	r := c.Classify("Double charge", "I was charged twice for my subscription. This is unacceptable.")

	assert.Equal(t, model.CategoryBilling, r.Category)
	assert.Equal(t, model.SentimentNegative, r.Sentiment)
	assert.Equal(t, -1, r.Score)
	assert.Equal(t, model.PriorityHigh, r.Priority)
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := `
categories:
  billing: [invoice, "wire transfer"]
urgent: [blocker]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	rules, err := LoadRules(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"invoice", "wire transfer"}, rules.Categories[model.CategoryBilling])
	assert.NotEmpty(t, rules.Categories[model.CategoryTechnical], "untouched sections keep defaults")
	assert.Equal(t, []string{"blocker"}, rules.Urgent)

	c := NewClassifier(rules)
	assert.Equal(t, model.CategoryBilling, c.Categorize("", "sent a wire transfer"))
	assert.Equal(t, model.PriorityHigh, c.Priority(model.CategoryGeneral, model.SentimentNeutral, "this is a blocker"))
}

func TestLoadRulesUnknownCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("categories:\n  shipping: [parcel]\n"), 0600))

	_, err := LoadRules(path)
	assert.Error(t, err)
}
