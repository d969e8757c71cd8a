package assist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/harrisonrobin/dayboard/pkg/logger"
	"github.com/harrisonrobin/dayboard/pkg/model"
)

func billingEmail() *model.Email {
	return &model.Email{
		ID:        "m1",
		FromEmail: "ana@example.com",
		FromName:  "Ana Lima",
		Subject:   "Charged twice",
		Body:      "My card was charged twice this month.",
		Category:  model.CategoryBilling,
		Sentiment: model.SentimentNegative,
	}
}

func TestParseTone(t *testing.T) {
	tone, err := ParseTone("")
	require.NoError(t, err)
	assert.Equal(t, ToneFriendly, tone)

	tone, err = ParseTone(" Formal ")
	require.NoError(t, err)
	assert.Equal(t, ToneFormal, tone)

	_, err = ParseTone("sarcastic")
	assert.Error(t, err)
}

func TestTemplateDrafter(t *testing.T) {
	d := NewTemplateDrafter("")
	ctx := context.Background()

	draft, err := d.Draft(ctx, billingEmail(), &model.CustomerProfile{Name: "Ana Maria"}, ToneFormal)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(draft, "Dear Ana,"))
	assert.Contains(t, draft, "I'm sorry for the trouble")
	assert.Contains(t, draft, `"Charged twice"`)
	assert.Contains(t, draft, "billing team")
	assert.True(t, strings.HasSuffix(draft, "Kind regards,\nThe Dayboard Team"))

	email := billingEmail()
	email.FromName = ""
	email.Sentiment = model.SentimentPositive
	email.Category = model.CategoryFeatureRequest
	draft, err = d.Draft(ctx, email, nil, ToneFriendly)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(draft, "Hi there,"))
	assert.NotContains(t, draft, "sorry")
	assert.Contains(t, draft, "product team")
}

type fakeGenerator struct {
	text  string
	err   error
	calls int
	model string
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: genai.NewContentFromText(f.text, genai.RoleModel)}},
	}, nil
}

func TestGenAIDrafter(t *testing.T) {
	gen := &fakeGenerator{text: "  Hello Ana, we refunded the duplicate charge.  "}
	d := newGenAIDrafter(gen, "", NewTemplateDrafter(""), logger.Discard())

	draft, err := d.Draft(context.Background(), billingEmail(), nil, ToneFriendly)
	require.NoError(t, err)
	assert.Equal(t, "Hello Ana, we refunded the duplicate charge.", draft)
	assert.Equal(t, DefaultModel, gen.model)
}

func TestGenAIDrafterFallsBack(t *testing.T) {
	for name, gen := range map[string]*fakeGenerator{
		"error": {err: errors.New("quota exceeded")},
		"empty": {text: "   "},
	} {
		t.Run(name, func(t *testing.T) {
			d := newGenAIDrafter(gen, "gemini-test", NewTemplateDrafter(""), logger.Discard())
			draft, err := d.Draft(context.Background(), billingEmail(), nil, ToneFriendly)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(draft, "Hi Ana,"))
		})
	}

	d := newGenAIDrafter(&fakeGenerator{err: errors.New("down")}, "", nil, logger.Discard())
	_, err := d.Draft(context.Background(), billingEmail(), nil, ToneFriendly)
	assert.Error(t, err)
}

type countingDrafter struct{ calls int }

func (c *countingDrafter) Draft(ctx context.Context, email *model.Email, customer *model.CustomerProfile, tone Tone) (string, error) {
	c.calls++
	return "draft for " + email.ID + " " + string(tone), nil
}

func TestCachedDrafter(t *testing.T) {
	inner := &countingDrafter{}
	d := NewCachedDrafter(inner, NewMemoryCache(), time.Hour, logger.Discard())
	ctx := context.Background()

	first, err := d.Draft(ctx, billingEmail(), nil, ToneFriendly)
	require.NoError(t, err)
	second, err := d.Draft(ctx, billingEmail(), nil, ToneFriendly)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)

	_, err = d.Draft(ctx, billingEmail(), nil, ToneFormal)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedDrafterBypassesBrokenRedis(t *testing.T) {
	cache, err := NewRedisCache("redis://127.0.0.1:1/0")
	require.NoError(t, err)
	defer cache.Close()

	inner := &countingDrafter{}
	d := NewCachedDrafter(inner, cache, time.Hour, logger.Discard())
	draft, err := d.Draft(context.Background(), billingEmail(), nil, ToneFriendly)
	require.NoError(t, err)
	assert.Equal(t, "draft for m1 friendly", draft)
	assert.Equal(t, 1, inner.calls)
}

func TestMemoryCacheExpires(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	v, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	now = now.Add(time.Minute)
	_, ok, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCachedDrafterSkipsFallbackDrafts(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	d := NewCachedDrafter(newGenAIDrafter(gen, "", NewTemplateDrafter(""), logger.Discard()),
		NewMemoryCache(), time.Hour, logger.Discard())
	ctx := context.Background()

	draft, err := d.Draft(ctx, billingEmail(), nil, ToneFriendly)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(draft, "Hi Ana,"))

	gen.err = nil
	gen.text = "Hello Ana, the refund is on its way."
	draft, err = d.Draft(ctx, billingEmail(), nil, ToneFriendly)
	require.NoError(t, err)
	assert.Equal(t, "Hello Ana, the refund is on its way.", draft)

	gen.err = errors.New("quota exceeded")
	draft, err = d.Draft(ctx, billingEmail(), nil, ToneFriendly)
	require.NoError(t, err)
	assert.Equal(t, "Hello Ana, the refund is on its way.", draft)
}

func TestMemoryCacheSetDropsExpired(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "old", "v", time.Minute))
	require.NoError(t, c.Set(ctx, "kept", "v", 0))
	now = now.Add(2 * time.Minute)
	require.NoError(t, c.Set(ctx, "new", "v", time.Minute))

	assert.Len(t, c.entries, 2)
	assert.NotContains(t, c.entries, "old")
}
