package audio

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/narges-rzv/Lingolou/internal/provider"
	"github.com/narges-rzv/Lingolou/internal/voice"
	"github.com/narges-rzv/Lingolou/pkg/types"
	"golang.org/x/sync/errgroup"
)

// MixerOptions tunes the chatter mixer
type MixerOptions struct {
	// CallDelay staggers member synthesis call starts to stay under
	// provider rate limits
	CallDelay time.Duration
	// MaxGain caps the mix output gain
	MaxGain float64
	// DiscreteStability snaps stability to 0.0/0.5/1.0 before synthesis
	DiscreteStability bool
}

// Mixer synthesizes speech for individual speakers and for group aliases.
// A group line is rendered by synthesizing every member's voice separately
// and overlaying the clips into simultaneous chatter.
type Mixer struct {
	synth    provider.Synthesizer
	registry *voice.Registry
	resolver *voice.Resolver
	opts     MixerOptions
}

// NewMixer creates a mixer
func NewMixer(synth provider.Synthesizer, registry *voice.Registry, opts MixerOptions) *Mixer {
	if opts.MaxGain <= 0 {
		opts.MaxGain = 2.0
	}
	return &Mixer{
		synth:    synth,
		registry: registry,
		resolver: voice.NewResolver(registry),
		opts:     opts,
	}
}

// SynthesizeLine renders one line for a single speaker
func (m *Mixer) SynthesizeLine(ctx context.Context, speaker, text, prevText, nextText string) ([]byte, error) {
	base, err := m.registry.Voice(speaker)
	if err != nil {
		return nil, err
	}
	return m.synthesizeWith(ctx, speaker, text, prevText, nextText, base)
}

// SynthesizeGroup renders one line spoken by a group alias. Members
// without a configured voice are skipped; zero remaining members fall back
// to a single narrator clip; one member is rendered verbatim; several
// members are rendered concurrently and mixed.
func (m *Mixer) SynthesizeGroup(ctx context.Context, alias, text, prevText, nextText string) ([]byte, error) {
	var members []string
	for _, member := range m.registry.GroupMembers(alias) {
		if m.registry.Has(member) {
			members = append(members, member)
			continue
		}
		log.Printf("[Mixer] Group %s member %s has no configured voice, skipping", alias, member)
	}

	switch len(members) {
	case 0:
		log.Printf("[Mixer] Group %s has no configured members, falling back to narrator", alias)
		narrator := m.registry.Narrator()
		return m.SynthesizeLine(ctx, narrator, text, prevText, nextText)
	case 1:
		return m.SynthesizeLine(ctx, members[0], text, prevText, nextText)
	}

	log.Printf("[Mixer] Synthesizing group %s with %d voices", alias, len(members))

	clips := make([][]byte, len(members))
	g, gctx := errgroup.WithContext(ctx)

	for i, member := range members {
		i, member := i, member
		g.Go(func() error {
			// Stagger call starts to stay under the provider rate limit
			if delay := time.Duration(i) * m.opts.CallDelay; delay > 0 {
				select {
				case <-time.After(delay):
				case <-gctx.Done():
					return gctx.Err()
				}
			}

			base, err := m.registry.Voice(member)
			if err != nil {
				return fmt.Errorf("member %s: %w", member, err)
			}
			clip, err := m.synthesizeWith(gctx, member, text, prevText, nextText, base)
			if err != nil {
				return fmt.Errorf("member %s: %w", member, err)
			}
			clips[i] = clip
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	mixed, err := Mix(clips, m.opts.MaxGain)
	if err != nil {
		return nil, fmt.Errorf("failed to mix group %s: %w", alias, err)
	}
	return mixed, nil
}

// synthesizeWith resolves emotion and speaker parameters, then calls the
// synthesis provider
func (m *Mixer) synthesizeWith(ctx context.Context, speaker, text, prevText, nextText string, base types.VoiceParameters) ([]byte, error) {
	params, clean := m.resolver.Resolve(speaker, text, base)
	if m.opts.DiscreteStability {
		params = voice.QuantizeStability(params)
	}
	clean = voice.NormalizeEllipses(clean)

	return m.synth.Synthesize(ctx, provider.SynthesisRequest{
		Text:         clean,
		Voice:        params,
		PreviousText: prevText,
		NextText:     nextText,
	})
}
