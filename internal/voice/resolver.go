package voice

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/narges-rzv/Lingolou/pkg/types"
)

var (
	tagPattern      = regexp.MustCompile(`^\[([a-z_]+)\]\s*`)
	ellipsisPattern = regexp.MustCompile(`\.{3,}`)
)

// Resolver turns a speaker identifier and raw line text into concrete
// synthesis parameters. A leading bracketed emotion tag is stripped from
// the text; recognized tags select a fixed profile and unrecognized ones
// fall through to punctuation heuristics.
type Resolver struct {
	registry *Registry
}

// NewResolver creates a resolver backed by the given registry
func NewResolver(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Resolve computes voice parameters for one line and returns the text with
// any leading emotion tag removed
func (r *Resolver) Resolve(speaker, rawText string, base types.VoiceParameters) (types.VoiceParameters, string) {
	tag, cleanText := SplitEmotionTag(rawText)

	params := base
	if profile, ok := LookupEmotion(tag); ok {
		params.Stability = profile.Stability
		params.Style = profile.Style
	} else {
		params = applyPunctuationHeuristics(params, cleanText)
	}

	if adjust := r.registry.Adjustment(speaker); adjust != nil {
		params.Stability += adjust.StabilityDelta
		if adjust.StabilityCap > 0 && params.Stability > adjust.StabilityCap {
			params.Stability = adjust.StabilityCap
		}
		params.Style += adjust.StyleDelta
	}

	params.Stability = clamp01(params.Stability)
	params.Style = clamp01(params.Style)

	return params, cleanText
}

// SplitEmotionTag strips one leading bracketed tag from the text. The tag
// is returned lowercase with the remaining text; when no tag is present
// the text comes back unchanged with an empty tag.
func SplitEmotionTag(text string) (tag, rest string) {
	m := tagPattern.FindStringSubmatch(text)
	if m == nil {
		return "", text
	}
	return m[1], text[len(m[0]):]
}

// applyPunctuationHeuristics nudges parameters based on terminal
// punctuation and shouting when no recognized tag is present
func applyPunctuationHeuristics(params types.VoiceParameters, text string) types.VoiceParameters {
	if strings.Contains(text, "!") {
		params.Style += 0.15
		params.Stability -= 0.10
		if params.Stability < 0.30 {
			params.Stability = 0.30
		}
	}
	if strings.Contains(text, "?") {
		params.Style += 0.10
	}
	if strings.Contains(text, "...") {
		params.Stability += 0.10
		if params.Stability > 0.80 {
			params.Stability = 0.80
		}
		params.Style -= 0.10
	}
	if hasShoutedWord(text) {
		params.Style += 0.25
		params.Stability -= 0.15
		if params.Stability < 0.25 {
			params.Stability = 0.25
		}
	}
	return params
}

// hasShoutedWord reports whether the text contains a fully uppercase ASCII
// word of three or more letters
func hasShoutedWord(text string) bool {
	for _, word := range strings.Fields(text) {
		letters := 0
		upper := true
		for _, r := range word {
			if r > unicode.MaxASCII || !unicode.IsLetter(r) {
				continue
			}
			letters++
			if !unicode.IsUpper(r) {
				upper = false
				break
			}
		}
		if upper && letters >= 3 {
			return true
		}
	}
	return false
}

// QuantizeStability snaps stability to the nearest of 0.0, 0.5 and 1.0
// for models that only accept discrete values
func QuantizeStability(params types.VoiceParameters) types.VoiceParameters {
	switch {
	case params.Stability < 0.25:
		params.Stability = 0.0
	case params.Stability < 0.75:
		params.Stability = 0.5
	default:
		params.Stability = 1.0
	}
	return params
}

// NormalizeEllipses pads ellipses with spaces and collapses runs of
// whitespace so the synthesis model treats them as pauses
func NormalizeEllipses(text string) string {
	text = ellipsisPattern.ReplaceAllString(text, " ... ")
	return strings.Join(strings.Fields(text), " ")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
