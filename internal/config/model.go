package config

import (
	"fmt"
	"sort"
	"strings"
)

// Model is an LLM model identifier sent to the API
type Model string

const (
	Gemini3Flash  Model = "gemini-3-flash-preview"
	Gemini3Pro    Model = "gemini-3-pro-preview"
	Gemini25Flash Model = "gemini-2.5-flash"
	Gemini25Pro   Model = "gemini-2.5-pro"
)

// DefaultModel is used when GEMINI_MODEL is unset
const DefaultModel = Gemini3Flash

var modelsByName = map[string]Model{
	"GEMINI_3_FLASH":   Gemini3Flash,
	"GEMINI_3_PRO":     Gemini3Pro,
	"GEMINI_2_5_FLASH": Gemini25Flash,
	"GEMINI_2_5_PRO":   Gemini25Pro,
	// short aliases
	"FLASH": Gemini3Flash,
	"PRO":   Gemini3Pro,
}

// ResolveModel maps an enum-style name (case-insensitive) to a model id.
// A raw model id such as "gemini-2.5-pro" is accepted as is.
func ResolveModel(name string) (Model, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultModel, nil
	}
	if m, ok := modelsByName[strings.ToUpper(name)]; ok {
		return m, nil
	}
	for _, m := range modelsByName {
		if string(m) == name {
			return m, nil
		}
	}

	names := make([]string, 0, len(modelsByName))
	for n := range modelsByName {
		names = append(names, n)
	}
	sort.Strings(names)
	return "", fmt.Errorf("invalid model %q, available: %s", name, strings.Join(names, ", "))
}

// VideoQuality bounds the height of a downloaded source
type VideoQuality int

const (
	P480  VideoQuality = 480
	P720  VideoQuality = 720
	P1080 VideoQuality = 1080
	P1440 VideoQuality = 1440
	P2160 VideoQuality = 2160
)

// ParseVideoQuality accepts "1080", "1080p" or "P1080". Empty means P1080.
func ParseVideoQuality(s string) (VideoQuality, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "p"), "p")
	if s == "" {
		return P1080, nil
	}
	for _, q := range []VideoQuality{P480, P720, P1080, P1440, P2160} {
		if fmt.Sprint(int(q)) == s {
			return q, nil
		}
	}
	return 0, fmt.Errorf("unsupported video quality %q", s)
}

// MaxHeight returns the height bound in pixels
func (q VideoQuality) MaxHeight() int { return int(q) }
