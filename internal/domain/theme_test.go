package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupSection_SubstringResolvesToExactSection(t *testing.T) {
	header := map[string]any{"type": "header"}
	sections := map[string]any{
		"header-default": header,
		"footer":         map[string]any{"type": "footer"},
	}

	exact, exactKey, ok := LookupSection(sections, "header-default")
	require.True(t, ok)
	fuzzy, fuzzyKey, ok := LookupSection(sections, "header")
	require.True(t, ok)

	assert.Equal(t, "header-default", exactKey)
	assert.Equal(t, exactKey, fuzzyKey)
	assert.Equal(t, exact, fuzzy)
}

func TestLookupSection_CaseInsensitive(t *testing.T) {
	sections := map[string]any{"Announcement-Bar": map[string]any{}}

	_, key, ok := LookupSection(sections, "announcement")
	require.True(t, ok)
	assert.Equal(t, "Announcement-Bar", key)
}

func TestFindSection_MissingListsAvailableKeys(t *testing.T) {
	sections := map[string]any{
		"header-default": map[string]any{},
		"footer":         map[string]any{},
	}

	_, _, err := FindSection(sections, "nonexistent")
	require.Error(t, err)

	var notFound *SectionNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Contains(t, notFound.Available, "header-default")
	assert.Contains(t, err.Error(), "header-default")
	assert.Contains(t, err.Error(), "footer")
}

func TestSettingsSections_NestedAndFlat(t *testing.T) {
	nested := map[string]any{
		"current": map[string]any{
			"sections": map[string]any{"hero": map[string]any{}},
		},
	}
	flat := map[string]any{
		"sections": map[string]any{"hero": map[string]any{}},
	}

	for name, doc := range map[string]map[string]any{"nested": nested, "flat": flat} {
		t.Run(name, func(t *testing.T) {
			sections, err := SettingsSections(doc)
			require.NoError(t, err)
			assert.Contains(t, sections, "hero")
		})
	}

	_, err := SettingsSections(map[string]any{"current": "Default"})
	assert.Error(t, err)
}

func TestSetPath_ExistingIntermediate(t *testing.T) {
	doc := map[string]any{"settings": map[string]any{}}

	require.NoError(t, SetPath(doc, "settings.message_text", "Hi"))

	assert.Equal(t, map[string]any{"settings": map[string]any{"message_text": "Hi"}}, doc)
}

func TestSetPath_MissingIntermediate(t *testing.T) {
	doc := map[string]any{}

	require.NoError(t, SetPath(doc, "settings.message_text", "Hi"))

	assert.Equal(t, map[string]any{"settings": map[string]any{"message_text": "Hi"}}, doc)
}

func TestSetPath_OnlyLeafOverwritten(t *testing.T) {
	doc := map[string]any{"settings": map[string]any{"color": "red", "message_text": "old"}}

	require.NoError(t, SetPath(doc, "settings.message_text", "new"))

	assert.Equal(t, "red", doc["settings"].(map[string]any)["color"])
	assert.Equal(t, "new", doc["settings"].(map[string]any)["message_text"])
}

func TestSetPath_RejectsEmptySegment(t *testing.T) {
	assert.Error(t, SetPath(map[string]any{}, "settings..x", 1))
	assert.Error(t, SetPath(map[string]any{}, "", 1))
}

func TestApplySectionPatch(t *testing.T) {
	doc := map[string]any{
		"current": map[string]any{
			"sections": map[string]any{
				"announcement-bar": map[string]any{"type": "announcement-bar"},
			},
		},
	}

	key, err := ApplySectionPatch(doc, SectionPatch{SectionKey: "announcement", Field: "settings.text", Value: "Sale"})
	require.NoError(t, err)

	assert.Equal(t, "announcement-bar", key)
	section := doc["current"].(map[string]any)["sections"].(map[string]any)["announcement-bar"].(map[string]any)
	assert.Equal(t, "Sale", section["settings"].(map[string]any)["text"])
}

func TestParseThemeRole(t *testing.T) {
	role, err := ParseThemeRole("")
	require.NoError(t, err)
	assert.Equal(t, ThemeRoleUnpublished, role)

	role, err = ParseThemeRole("MAIN")
	require.NoError(t, err)
	assert.Equal(t, ThemeRoleMain, role)

	_, err = ParseThemeRole("demo")
	assert.Equal(t, 400, StatusOf(err))
}
