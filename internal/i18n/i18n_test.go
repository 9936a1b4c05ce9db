package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestRegistry_TranslatesActiveLanguage(t *testing.T) {
	r, err := New("en")
	require.NoError(t, err)

	assert.Equal(t, "You have won!", r.T(KeyResultsYouWin))

	require.NoError(t, r.SetLang("uk"))
	assert.Equal(t, "Вітання, ви виграли!", r.T(KeyResultsYouWin))
	assert.Equal(t, "The other one won!", r.TIn(language.English, KeyResultsYouLose))
}

func TestRegistry_MissingKeyFallsBack(t *testing.T) {
	r, err := New("en")
	require.NoError(t, err)
	r.Register(language.Ukrainian, Dictionary{KeyResultsTitle: "Результати"})
	require.NoError(t, r.SetLang("uk"))

	assert.Equal(t, "Результати", r.T(KeyResultsTitle))
	assert.Equal(t, "You have won!", r.T(KeyResultsYouWin), "fallback dictionary")
	assert.Equal(t, "nope.key", r.T("nope.key"), "unknown keys echo back")
}

func TestRegistry_RegionalVariantSelectsBase(t *testing.T) {
	r, err := New("")
	require.NoError(t, err)

	require.NoError(t, r.SetLang("uk-UA"))
	assert.Equal(t, language.Ukrainian, r.Lang())
}

func TestRegistry_UnsupportedKeepsCurrent(t *testing.T) {
	r, err := New("uk")
	require.NoError(t, err)

	assert.ErrorIs(t, r.SetLang("fr"), ErrUnsupported)
	assert.ErrorIs(t, r.SetLang("!!"), ErrUnsupported)
	assert.Equal(t, language.Ukrainian, r.Lang())

	_, err = New("fr")
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestRegistry_SubscribeNotifiesOnChangeOnly(t *testing.T) {
	r, err := New("en")
	require.NoError(t, err)

	var got []language.Tag
	unsubscribe := r.Subscribe(func(tag language.Tag) { got = append(got, tag) })

	require.NoError(t, r.SetLang("en"))
	require.NoError(t, r.SetLang("uk"))
	require.NoError(t, r.SetLang("uk"))
	assert.Equal(t, []language.Tag{language.Ukrainian}, got)

	unsubscribe()
	unsubscribe()
	require.NoError(t, r.SetLang("en"))
	assert.Len(t, got, 1)
}
