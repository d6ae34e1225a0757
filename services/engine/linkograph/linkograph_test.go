// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package linkograph

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-research/mentor/services/engine/config"
	"github.com/atelier-research/mentor/services/engine/datatypes"
)

// fakeEmbedder returns a fixed vector per keyword family so semantic
// similarity is deterministic in tests.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "courtyard"):
		return []float32{1, 0, 0}, nil
	case strings.Contains(lower, "timber"):
		return []float32{0, 1, 0}, nil
	default:
		return []float32{0, 0, 1}, nil
	}
}

func testThresholds() config.Thresholds {
	return config.Thresholds{
		MilestonePass:  3.5,
		SemanticLink:   0.35,
		LinkCap:        8,
		SemanticWindow: 20,
		CritDegree:     5,
	}
}

func TestParseFiltersNonDesignContent(t *testing.T) {
	p := NewParser()
	moves := p.Parse("s1", "Hello there. I want to design a courtyard for the community. Thanks.", datatypes.SourceUserGenerated, datatypes.PhaseIdeation, 0)
	require.Len(t, moves, 1)
	assert.Contains(t, moves[0].Content, "courtyard")
}

func TestParseMoveTypes(t *testing.T) {
	p := NewParser()
	tests := []struct {
		name string
		text string
		want datatypes.MoveType
	}{
		{"synthesis", "I will create a new entry pavilion.", datatypes.MoveSynthesis},
		{"evaluation", "The second massing option works better for daylight.", datatypes.MoveEvaluation},
		{"transformation", "Rotate the structure and shift the entry instead.", datatypes.MoveTransformation},
		{"bare question is reflection", "The courtyard?", datatypes.MoveReflection},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			moves := p.Parse("s1", tt.text, datatypes.SourceUserGenerated, datatypes.PhaseIdeation, 0)
			require.NotEmpty(t, moves)
			assert.Equal(t, tt.want, moves[0].MoveType)
		})
	}
}

func TestParseDesignFocus(t *testing.T) {
	p := NewParser()
	moves := p.Parse("s1", "I want to use timber and concrete for the cladding.", datatypes.SourceUserGenerated, datatypes.PhaseMaterialization, 0)
	require.NotEmpty(t, moves)
	assert.Equal(t, datatypes.FocusMaterial, moves[0].DesignFocus)
}

func TestParseContentCap(t *testing.T) {
	p := NewParser()
	long := "I want to design " + strings.Repeat("a very long courtyard sequence ", 40) + "now"
	moves := p.Parse("s1", long, datatypes.SourceUserGenerated, datatypes.PhaseIdeation, 0)
	require.NotEmpty(t, moves)
	for _, m := range moves {
		assert.LessOrEqual(t, len(m.Content), datatypes.MoveContentMaxLen)
	}
}

func TestTruncateRunesKeepsBoundaries(t *testing.T) {
	// 3-byte runes; the cap falls mid-rune and must move back
	assert.Equal(t, "日", truncateRunes("日本語", 4))
	assert.Equal(t, "日本語", truncateRunes("日本語", 9))
	assert.Equal(t, "", truncateRunes("日本語", 2))

	long := strings.Repeat("日", datatypes.MoveContentMaxLen)
	got := truncateRunes(long, datatypes.MoveContentMaxLen)
	assert.LessOrEqual(t, len(got), datatypes.MoveContentMaxLen)
	assert.True(t, utf8.ValidString(got))
}

func TestParseSelfGenerationComplement(t *testing.T) {
	p := NewParser()
	moves := p.Parse("s1", "I will design the plan.", datatypes.SourceAIPrompted, datatypes.PhaseIdeation, 0.7)
	require.NotEmpty(t, moves)
	assert.InDelta(t, 0.3, moves[0].SelfGenerationStrength, 1e-9)
	assert.InDelta(t, 0.7, moves[0].AIInfluenceStrength, 1e-9)
}

func TestCognitiveLoadThresholds(t *testing.T) {
	assert.Equal(t, datatypes.LoadHigh, loadFromComplexity(0.71))
	assert.Equal(t, datatypes.LoadMedium, loadFromComplexity(0.7))
	assert.Equal(t, datatypes.LoadMedium, loadFromComplexity(0.41))
	assert.Equal(t, datatypes.LoadLow, loadFromComplexity(0.4))
	assert.Equal(t, datatypes.LoadLow, loadFromComplexity(0.1))
}

func appendMove(t *testing.T, b *Builder, content string, source datatypes.MoveSource) (datatypes.DesignMove, []datatypes.Link) {
	t.Helper()
	p := NewParser()
	moves := p.Parse("s1", content, source, datatypes.PhaseIdeation, 0)
	require.Len(t, moves, 1)
	return b.Append(context.Background(), moves[0])
}

func TestBuilderSequencesAreDense(t *testing.T) {
	b := NewBuilder("s1", datatypes.ConditionMentor, fakeEmbedder{}, testThresholds(), nil)
	appendMove(t, b, "I will design a courtyard.", datatypes.SourceUserGenerated)
	appendMove(t, b, "The timber structure spans the hall.", datatypes.SourceUserGenerated)
	appendMove(t, b, "Consider the entry sequence.", datatypes.SourceAIPrompted)

	moves := b.Moves()
	require.Len(t, moves, 3)
	for i, m := range moves {
		assert.Equal(t, i+1, m.Sequence)
	}
}

func TestBuilderCloneIsolatesState(t *testing.T) {
	b := NewBuilder("s1", datatypes.ConditionMentor, fakeEmbedder{}, testThresholds(), nil)
	appendMove(t, b, "I will design a courtyard.", datatypes.SourceUserGenerated)

	snapshot := b.Clone()
	appendMove(t, b, "The courtyard opens to the south.", datatypes.SourceUserGenerated)

	assert.Len(t, snapshot.Moves(), 1)
	assert.Empty(t, snapshot.Links())
	assert.Len(t, b.Moves(), 2)

	// appends against the clone resume from its own sequence
	m, _ := appendMove(t, snapshot, "The timber structure spans the hall.", datatypes.SourceUserGenerated)
	assert.Equal(t, 2, m.Sequence)
}

func TestBuilderTemporalLink(t *testing.T) {
	b := NewBuilder("s1", datatypes.ConditionMentor, fakeEmbedder{}, testThresholds(), nil)
	first, links := appendMove(t, b, "I will design a courtyard.", datatypes.SourceUserGenerated)
	assert.Empty(t, links, "first move has no predecessor")

	second, links := appendMove(t, b, "The timber structure spans the hall.", datatypes.SourceUserGenerated)
	require.NotEmpty(t, links)
	assert.Equal(t, first.ID, links[0].SourceMoveID)
	assert.Equal(t, second.ID, links[0].TargetMoveID)
	assert.Equal(t, 0.5, links[0].Strength)
	assert.Equal(t, datatypes.LinkTemporal, links[0].Kind)
}

func TestBuilderSemanticLinksSimilarMoves(t *testing.T) {
	b := NewBuilder("s1", datatypes.ConditionMentor, fakeEmbedder{}, testThresholds(), nil)
	first, _ := appendMove(t, b, "I will design a courtyard.", datatypes.SourceUserGenerated)
	appendMove(t, b, "The timber structure spans the hall.", datatypes.SourceUserGenerated)
	third, links := appendMove(t, b, "The courtyard opens to the south.", datatypes.SourceUserGenerated)

	var semantic []datatypes.Link
	for _, l := range links {
		if l.Kind == datatypes.LinkSemantic {
			semantic = append(semantic, l)
		}
	}
	require.Len(t, semantic, 1)
	assert.Equal(t, first.ID, semantic[0].SourceMoveID)
	assert.Equal(t, third.ID, semantic[0].TargetMoveID)
	assert.InDelta(t, 1.0, semantic[0].Strength, 1e-6)
}

func TestBuilderLinkInvariants(t *testing.T) {
	b := NewBuilder("s1", datatypes.ConditionMentor, fakeEmbedder{}, testThresholds(), nil)
	for i := 0; i < 6; i++ {
		appendMove(t, b, "The courtyard opens to the garden.", datatypes.SourceUserGenerated)
	}

	moves := b.Moves()
	seq := map[string]int{}
	for _, m := range moves {
		seq[m.ID] = m.Sequence
	}
	seen := map[[2]string]bool{}
	for _, l := range b.Links() {
		assert.Less(t, seq[l.SourceMoveID], seq[l.TargetMoveID], "links must point forward")
		key := [2]string{l.SourceMoveID, l.TargetMoveID}
		assert.False(t, seen[key], "duplicate link")
		seen[key] = true
	}
}

func TestBuilderSemanticCap(t *testing.T) {
	th := testThresholds()
	th.LinkCap = 2
	b := NewBuilder("s1", datatypes.ConditionMentor, fakeEmbedder{}, th, nil)
	for i := 0; i < 5; i++ {
		appendMove(t, b, "The courtyard opens to the garden.", datatypes.SourceUserGenerated)
	}
	_, links := appendMove(t, b, "The courtyard faces the street.", datatypes.SourceUserGenerated)

	semantic := 0
	for _, l := range links {
		if l.Kind == datatypes.LinkSemantic {
			semantic++
		}
	}
	assert.LessOrEqual(t, semantic, 2)
}

func TestControlConditionForcesSelfGeneratedAndSuppressesAILinks(t *testing.T) {
	b := NewBuilder("s1", datatypes.ConditionControl, fakeEmbedder{}, testThresholds(), nil)

	mv, _ := appendMove(t, b, "I will design a courtyard.", datatypes.SourceUserGenerated)
	assert.Equal(t, datatypes.SourceSelfGenerated, mv.Source)

	p := NewParser()
	aiMoves := p.Parse("s1", "Consider the courtyard proportions.", datatypes.SourceAIPrompted, datatypes.PhaseIdeation, 1)
	require.NotEmpty(t, aiMoves)
	stored, _ := b.Append(context.Background(), aiMoves[0])
	assert.Equal(t, datatypes.SourceSelfGenerated, stored.Source)
}

func TestMetricsAndReplayRoundTrip(t *testing.T) {
	b := NewBuilder("s1", datatypes.ConditionMentor, fakeEmbedder{}, testThresholds(), nil)
	inputs := []string{
		"I will design a courtyard.",
		"The courtyard opens to the garden.",
		"The timber structure spans the hall.",
		"Consider the courtyard proportions.",
		"The timber cladding wraps the volume.",
	}
	for _, in := range inputs {
		appendMove(t, b, in, datatypes.SourceUserGenerated)
	}

	live := b.Metrics()
	assert.Equal(t, 5, live.MoveCount)
	assert.Greater(t, live.LinkCount, 0)
	assert.Greater(t, live.LinkDensity, 0.0)
	assert.Equal(t, 0.0, live.OrphanRatio)
	assert.Greater(t, live.AvgLinkStrength, 0.0)
	assert.GreaterOrEqual(t, live.Entropy, 0.0)

	replayed := Replay(b.Moves(), b.Links(), testThresholds())
	assert.Equal(t, live, replayed)
}

func TestMetricsEmptyGraph(t *testing.T) {
	m := Replay(nil, nil, testThresholds())
	assert.Equal(t, 0, m.MoveCount)
	assert.Equal(t, 0.0, m.LinkDensity)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float32{1}, []float32{1, 0}))
	assert.Equal(t, 0.0, cosine(nil, nil))
}
