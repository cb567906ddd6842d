package domain

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultSettingsFile is the theme settings document patched by default
const DefaultSettingsFile = "config/settings_data.json"

// ThemeRole is the role a theme is uploaded with
type ThemeRole string

const (
	ThemeRoleMain        ThemeRole = "main"
	ThemeRoleUnpublished ThemeRole = "unpublished"
)

// ParseThemeRole validates a role, defaulting to unpublished when empty
func ParseThemeRole(v string) (ThemeRole, error) {
	switch ThemeRole(strings.ToLower(strings.TrimSpace(v))) {
	case "", ThemeRoleUnpublished:
		return ThemeRoleUnpublished, nil
	case ThemeRoleMain:
		return ThemeRoleMain, nil
	}
	return "", NewClientError(fmt.Sprintf("invalid theme role %q: expected main or unpublished", v))
}

// Workspace is an extracted theme tree on local disk
type Workspace struct {
	ThemeName   string `json:"themeName"`
	Root        string `json:"root"`
	ExtractPath string `json:"extractPath"`
}

// SectionPatch describes one settings change
type SectionPatch struct {
	JSONPath   string `json:"jsonFilePath"`
	SectionKey string `json:"sectionKey"`
	Field      string `json:"field"`
	Value      any    `json:"newValue"`
}

// SectionNotFoundError lists the keys that were available when a section
// lookup failed
type SectionNotFoundError struct {
	Key       string
	Available []string
}

func (e *SectionNotFoundError) Error() string {
	return fmt.Sprintf("section %q not found. Available keys: %s", e.Key, strings.Join(e.Available, ", "))
}

// SettingsSections returns the sections map of a settings document, checking
// current.sections and then the top-level sections key
func SettingsSections(doc map[string]any) (map[string]any, error) {
	if current, ok := doc["current"].(map[string]any); ok {
		if sections, ok := current["sections"].(map[string]any); ok {
			return sections, nil
		}
	}
	if sections, ok := doc["sections"].(map[string]any); ok {
		return sections, nil
	}
	return nil, fmt.Errorf("settings document has no sections map")
}

// LookupSection finds a section by exact key, then by case-insensitive
// substring of the key. Substring candidates are tried in sorted key order.
func LookupSection(sections map[string]any, key string) (section map[string]any, matched string, ok bool) {
	if s, found := sections[key].(map[string]any); found {
		return s, key, true
	}
	needle := strings.ToLower(key)
	if needle == "" {
		return nil, "", false
	}
	for _, k := range sortedKeys(sections) {
		if !strings.Contains(strings.ToLower(k), needle) {
			continue
		}
		if s, found := sections[k].(map[string]any); found {
			return s, k, true
		}
	}
	return nil, "", false
}

// FindSection is LookupSection failing with a SectionNotFoundError
func FindSection(sections map[string]any, key string) (map[string]any, string, error) {
	if s, k, ok := LookupSection(sections, key); ok {
		return s, k, nil
	}
	return nil, "", &SectionNotFoundError{Key: key, Available: sortedKeys(sections)}
}

// SetPath assigns value at a dotted path, creating intermediate objects.
// Non-object intermediates are replaced.
func SetPath(target map[string]any, path string, value any) error {
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return fmt.Errorf("invalid field path %q", path)
		}
	}
	node := target
	for _, p := range parts[:len(parts)-1] {
		next, ok := node[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[p] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = value
	return nil
}

// ApplySectionPatch locates the section in a parsed settings document and
// sets the patch field on it. It returns the key that matched.
func ApplySectionPatch(doc map[string]any, patch SectionPatch) (string, error) {
	sections, err := SettingsSections(doc)
	if err != nil {
		return "", err
	}
	section, key, err := FindSection(sections, patch.SectionKey)
	if err != nil {
		return "", err
	}
	if err := SetPath(section, patch.Field, patch.Value); err != nil {
		return "", err
	}
	return key, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
