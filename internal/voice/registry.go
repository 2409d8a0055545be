package voice

import (
	"errors"
	"sort"

	"github.com/narges-rzv/Lingolou/pkg/types"
)

// ErrNoVoicesConfigured is returned when a speaker cannot be resolved and
// no default narrator exists to fall back to
var ErrNoVoicesConfigured = errors.New("no voices configured")

// Registry maps script speaker identifiers to configured voices. Group
// aliases expand to an ordered list of member speakers. Unknown speakers
// fall back to the default narrator.
type Registry struct {
	speakers map[string]types.SpeakerConfig
	groups   map[string][]string
	narrator string
}

// NewRegistry builds a registry from the voices configuration
func NewRegistry(cfg types.VoicesConfig) *Registry {
	return &Registry{
		speakers: cfg.Speakers,
		groups:   cfg.Groups,
		narrator: cfg.DefaultNarrator,
	}
}

// WithVoiceOverrides returns a derived registry with the given speakers'
// voice ids replaced. Overrides for unconfigured speakers register them
// with the narrator's base parameters under the new voice id. The
// receiver is not modified.
func (r *Registry) WithVoiceOverrides(overrides map[string]string) *Registry {
	if len(overrides) == 0 {
		return r
	}

	speakers := make(map[string]types.SpeakerConfig, len(r.speakers))
	for name, sc := range r.speakers {
		speakers[name] = sc
	}
	for name, voiceID := range overrides {
		sc, ok := speakers[name]
		if !ok {
			sc = speakers[r.narrator]
			sc.Adjust = nil
		}
		sc.Voice = sc.Voice.WithVoiceID(voiceID)
		speakers[name] = sc
	}

	return &Registry{speakers: speakers, groups: r.groups, narrator: r.narrator}
}

// Has reports whether the speaker is directly configured
func (r *Registry) Has(speaker string) bool {
	_, ok := r.speakers[speaker]
	return ok
}

// IsGroup reports whether the identifier is a configured group alias
func (r *Registry) IsGroup(speaker string) bool {
	_, ok := r.groups[speaker]
	return ok
}

// GroupMembers returns the ordered member list for a group alias. The
// result is a copy; callers may mutate it freely.
func (r *Registry) GroupMembers(alias string) []string {
	members, ok := r.groups[alias]
	if !ok {
		return nil
	}
	out := make([]string, len(members))
	copy(out, members)
	return out
}

// Voice returns the base voice parameters for a speaker, falling back to
// the default narrator for unknown speakers
func (r *Registry) Voice(speaker string) (types.VoiceParameters, error) {
	if sc, ok := r.speakers[speaker]; ok {
		return sc.Voice, nil
	}
	return r.NarratorVoice()
}

// Adjustment returns the fixed per-speaker adjustment, or nil when none
// is configured
func (r *Registry) Adjustment(speaker string) *types.SpeakerAdjustment {
	if sc, ok := r.speakers[speaker]; ok {
		return sc.Adjust
	}
	return nil
}

// Narrator returns the default narrator identifier
func (r *Registry) Narrator() string {
	return r.narrator
}

// NarratorVoice returns the default narrator's voice parameters
func (r *Registry) NarratorVoice() (types.VoiceParameters, error) {
	if sc, ok := r.speakers[r.narrator]; ok {
		return sc.Voice, nil
	}
	return types.VoiceParameters{}, ErrNoVoicesConfigured
}

// Groups returns all configured group aliases sorted alphabetically
func (r *Registry) Groups() []string {
	out := make([]string, 0, len(r.groups))
	for name := range r.groups {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Speakers returns all configured speaker identifiers sorted alphabetically
func (r *Registry) Speakers() []string {
	out := make([]string, 0, len(r.speakers))
	for name := range r.speakers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
