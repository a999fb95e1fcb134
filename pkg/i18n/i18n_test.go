package i18n

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAcceptLanguage(t *testing.T) {
	assert.Equal(t, LocalePersian, ParseAcceptLanguage(""))
	assert.Equal(t, LocalePersian, ParseAcceptLanguage("fa-IR,fa;q=0.9"))
	assert.Equal(t, LocaleEnglish, ParseAcceptLanguage("en-US,en;q=0.9"))
	assert.Equal(t, LocalePersian, ParseAcceptLanguage("de-DE"))
}

func TestLocalizerTranslates(t *testing.T) {
	params := map[string]string{"product": "چرم گاوی", "shelf": "A1", "current": "5", "shortfall": "3"}

	fa := NewLocalizer(LocalePersian).T("errors.INSUFFICIENT_STOCK", params)
	assert.Contains(t, fa, "چرم گاوی")
	assert.Contains(t, fa, "A1")

	en := NewLocalizer(LocaleEnglish).T("errors.INSUFFICIENT_STOCK", params)
	assert.Equal(t, `insufficient stock of "چرم گاوی" on shelf "A1": have 5, short 3`, en)
}

func TestLocalizerUnknownKeyPassesThrough(t *testing.T) {
	l := NewLocalizer(LocalePersian)
	assert.Equal(t, "errors.NO_SUCH_KEY", l.T("errors.NO_SUCH_KEY"))
	assert.False(t, l.Has("errors.NO_SUCH_KEY"))
	assert.True(t, l.Has("errors.NOT_FOUND"))
}

func TestLocaleContextRoundTrip(t *testing.T) {
	ctx := WithLocale(context.Background(), LocaleEnglish)
	assert.Equal(t, LocaleEnglish, GetLocaleFromContext(ctx))
	assert.Equal(t, DefaultLocale, GetLocaleFromContext(context.Background()))

	loc := LocalizerFromContext(ctx)
	assert.Equal(t, LocaleEnglish, loc.GetLocale())
}
