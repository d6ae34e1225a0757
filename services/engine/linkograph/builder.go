// Copyright (C) 2026 Atelier Research (eng@atelier-research.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package linkograph

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/atelier-research/mentor/services/engine/config"
	"github.com/atelier-research/mentor/services/engine/datatypes"
	"github.com/atelier-research/mentor/services/engine/llm"
)

// Metrics are the derived linkograph statistics.
type Metrics struct {
	MoveCount         int     `json:"move_count"`
	LinkCount         int     `json:"link_count"`
	LinkDensity       float64 `json:"link_density"`
	CriticalMoveRatio float64 `json:"critical_move_ratio"`
	Entropy           float64 `json:"entropy"`
	OrphanRatio       float64 `json:"orphan_ratio"`
	AvgLinkStrength   float64 `json:"avg_link_strength"`
	ChunkCount        int     `json:"chunk_count"`
	WebCount          int     `json:"web_count"`
	SawtoothCount     int     `json:"sawtooth_count"`
}

// Builder maintains one session's linkograph in real time.
//
// Thread Safety: all exported methods are safe for concurrent use. The
// embedder call happens outside the lock.
type Builder struct {
	mu sync.Mutex

	sessionID string
	condition datatypes.Condition
	embedder  llm.Embedder
	th        config.Thresholds
	logger    *slog.Logger

	moves   []datatypes.DesignMove
	links   []datatypes.Link
	vectors map[string][]float32
	degree  map[string]int
	linkSet map[[2]string]bool
	seqByID map[string]int
}

// NewBuilder builds an empty linkograph for a session.
//
// Inputs:
//
//	embedder - May be nil; semantic linking is then skipped.
func NewBuilder(sessionID string, condition datatypes.Condition, embedder llm.Embedder, th config.Thresholds, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		sessionID: sessionID,
		condition: condition,
		embedder:  embedder,
		th:        th,
		logger:    logger,
		vectors:   map[string][]float32{},
		degree:    map[string]int{},
		linkSet:   map[[2]string]bool{},
		seqByID:   map[string]int{},
	}
}

// Clone returns an independent copy of the builder's mutable state.
// Embedding vectors are shared; they are never mutated in place.
func (b *Builder) Clone() *Builder {
	b.mu.Lock()
	defer b.mu.Unlock()

	vectors := make(map[string][]float32, len(b.vectors))
	for id, v := range b.vectors {
		vectors[id] = v
	}
	degree := make(map[string]int, len(b.degree))
	for id, d := range b.degree {
		degree[id] = d
	}
	linkSet := make(map[[2]string]bool, len(b.linkSet))
	for k, ok := range b.linkSet {
		linkSet[k] = ok
	}
	seqByID := make(map[string]int, len(b.seqByID))
	for id, seq := range b.seqByID {
		seqByID[id] = seq
	}
	return &Builder{
		sessionID: b.sessionID,
		condition: b.condition,
		embedder:  b.embedder,
		th:        b.th,
		logger:    b.logger,
		moves:     append([]datatypes.DesignMove(nil), b.moves...),
		links:     append([]datatypes.Link(nil), b.links...),
		vectors:   vectors,
		degree:    degree,
		linkSet:   linkSet,
		seqByID:   seqByID,
	}
}

// Append adds one move, assigns its sequence number, and creates its
// temporal and semantic links.
//
// Description:
//
//	The previous move gets a temporal link of strength 0.5 to the new
//	one. Semantic links are computed against the trailing candidate
//	window by cosine similarity of content embeddings: similarities at
//	or above the threshold become links, capped at the K strongest.
//	Under the CONTROL condition the move's source is forced to
//	self_generated and links to or from AI-attributed moves are
//	suppressed. Embedding failure degrades to temporal-only linking.
//
// Outputs:
//
//	datatypes.DesignMove - The stored move with sequence assigned.
//	[]datatypes.Link - Links created by this append.
func (b *Builder) Append(ctx context.Context, move datatypes.DesignMove) (datatypes.DesignMove, []datatypes.Link) {
	tracer := otel.Tracer("mentor.linkograph")
	ctx, span := tracer.Start(ctx, "builder.append")
	defer span.End()

	if b.condition == datatypes.ConditionControl {
		move.Source = datatypes.SourceSelfGenerated
	}

	var vec []float32
	if b.embedder != nil {
		v, err := b.embedder.Embed(ctx, move.Content)
		if err != nil {
			b.logger.Warn("embedding failed, temporal links only", "error", err)
			span.RecordError(err)
		} else {
			vec = v
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	move.SessionID = b.sessionID
	move.Sequence = len(b.moves) + 1
	b.moves = append(b.moves, move)
	b.seqByID[move.ID] = move.Sequence
	if vec != nil {
		b.vectors[move.ID] = vec
	}

	var created []datatypes.Link

	if prev := b.previousLinkable(move); prev != nil {
		if l, ok := b.addLinkLocked(prev.ID, move.ID, 0.5, datatypes.LinkTemporal); ok {
			created = append(created, l)
		}
	}

	created = append(created, b.semanticLinksLocked(move, vec)...)

	span.SetAttributes(
		attribute.Int("move.sequence", move.Sequence),
		attribute.Int("links.created", len(created)),
	)
	return move, created
}

// previousLinkable returns the immediately previous move, skipping
// AI-attributed moves under CONTROL.
func (b *Builder) previousLinkable(move datatypes.DesignMove) *datatypes.DesignMove {
	for i := len(b.moves) - 2; i >= 0; i-- {
		prev := &b.moves[i]
		if b.condition == datatypes.ConditionControl && isAISource(prev.Source) {
			continue
		}
		return prev
	}
	return nil
}

func (b *Builder) semanticLinksLocked(move datatypes.DesignMove, vec []float32) []datatypes.Link {
	if vec == nil {
		return nil
	}
	if b.condition == datatypes.ConditionControl && isAISource(move.Source) {
		return nil
	}

	type scored struct {
		id  string
		sim float64
	}
	var candidates []scored

	start := len(b.moves) - 1 - b.th.SemanticWindow
	if start < 0 {
		start = 0
	}
	for i := start; i < len(b.moves)-1; i++ {
		prev := b.moves[i]
		if b.condition == datatypes.ConditionControl && isAISource(prev.Source) {
			continue
		}
		pv, ok := b.vectors[prev.ID]
		if !ok {
			continue
		}
		sim := cosine(pv, vec)
		if sim >= b.th.SemanticLink {
			candidates = append(candidates, scored{prev.ID, sim})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].sim != candidates[j].sim {
			return candidates[i].sim > candidates[j].sim
		}
		return b.seqByID[candidates[i].id] > b.seqByID[candidates[j].id]
	})
	if len(candidates) > b.th.LinkCap {
		candidates = candidates[:b.th.LinkCap]
	}

	var created []datatypes.Link
	for _, c := range candidates {
		if l, ok := b.addLinkLocked(c.id, move.ID, c.sim, datatypes.LinkSemantic); ok {
			created = append(created, l)
		}
	}
	return created
}

// addLinkLocked enforces ordering, self-link, and duplicate invariants.
func (b *Builder) addLinkLocked(sourceID, targetID string, strength float64, kind datatypes.LinkKind) (datatypes.Link, bool) {
	if sourceID == targetID {
		return datatypes.Link{}, false
	}
	if b.seqByID[sourceID] >= b.seqByID[targetID] {
		return datatypes.Link{}, false
	}
	key := [2]string{sourceID, targetID}
	if b.linkSet[key] {
		return datatypes.Link{}, false
	}
	l := datatypes.Link{SourceMoveID: sourceID, TargetMoveID: targetID, Strength: strength, Kind: kind}
	b.links = append(b.links, l)
	b.linkSet[key] = true
	b.degree[sourceID]++
	b.degree[targetID]++
	return l, true
}

func isAISource(s datatypes.MoveSource) bool {
	return s == datatypes.SourceAIProvided || s == datatypes.SourceAIPrompted
}

// Moves returns a copy of the move sequence.
func (b *Builder) Moves() []datatypes.DesignMove {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]datatypes.DesignMove, len(b.moves))
	copy(out, b.moves)
	return out
}

// Links returns a copy of the link list in creation order.
func (b *Builder) Links() []datatypes.Link {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]datatypes.Link, len(b.links))
	copy(out, b.links)
	return out
}

// Metrics computes the current derived statistics.
func (b *Builder) Metrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return computeMetrics(b.moves, b.links, b.th)
}

// Replay recomputes metrics from persisted moves and links. Given the
// same inputs it reproduces the live builder's metrics exactly.
func Replay(moves []datatypes.DesignMove, links []datatypes.Link, th config.Thresholds) Metrics {
	return computeMetrics(moves, links, th)
}

func computeMetrics(moves []datatypes.DesignMove, links []datatypes.Link, th config.Thresholds) Metrics {
	m := Metrics{MoveCount: len(moves), LinkCount: len(links)}
	if len(moves) == 0 {
		return m
	}

	degree := map[string]int{}
	adjacent := map[[2]string]bool{}
	strengthSum := 0.0
	for _, l := range links {
		degree[l.SourceMoveID]++
		degree[l.TargetMoveID]++
		adjacent[[2]string{l.SourceMoveID, l.TargetMoveID}] = true
		strengthSum += l.Strength
	}

	m.LinkDensity = float64(len(links)) / float64(len(moves))
	if len(links) > 0 {
		m.AvgLinkStrength = strengthSum / float64(len(links))
	}

	critical, orphans := 0, 0
	totalDegree := 0
	for _, mv := range moves {
		d := degree[mv.ID]
		totalDegree += d
		if d >= th.CritDegree {
			critical++
		}
		if d == 0 {
			orphans++
		}
	}
	m.CriticalMoveRatio = float64(critical) / float64(len(moves))
	m.OrphanRatio = float64(orphans) / float64(len(moves))

	// Shannon entropy over the per-move share of total link degree.
	if totalDegree > 0 {
		for _, mv := range moves {
			d := degree[mv.ID]
			if d == 0 {
				continue
			}
			p := float64(d) / float64(totalDegree)
			m.Entropy -= p * math.Log2(p)
		}
	}

	m.ChunkCount, m.WebCount, m.SawtoothCount = patternCounts(moves, degree, adjacent, th)
	return m
}

// patternCounts derives the three classical linkograph patterns.
//
// chunk: three consecutive moves pairwise linked. web: a move whose
// degree reaches the critical threshold with at least one link spanning
// three or more sequence positions. sawtooth: a maximal run of three or
// more moves connected only by consecutive links.
func patternCounts(moves []datatypes.DesignMove, degree map[string]int, adjacent map[[2]string]bool, th config.Thresholds) (chunks, webs, sawtooth int) {
	linked := func(a, b datatypes.DesignMove) bool {
		return adjacent[[2]string{a.ID, b.ID}] || adjacent[[2]string{b.ID, a.ID}]
	}

	for i := 0; i+2 < len(moves); i++ {
		if linked(moves[i], moves[i+1]) && linked(moves[i+1], moves[i+2]) && linked(moves[i], moves[i+2]) {
			chunks++
		}
	}

	for i, mv := range moves {
		if degree[mv.ID] < th.CritDegree {
			continue
		}
		spanning := false
		for j := range moves {
			if j == i {
				continue
			}
			if linked(mv, moves[j]) && abs(moves[i].Sequence-moves[j].Sequence) >= 3 {
				spanning = true
				break
			}
		}
		if spanning {
			webs++
		}
	}

	run := 0
	for i := 0; i+1 < len(moves); i++ {
		consecutiveOnly := linked(moves[i], moves[i+1]) &&
			degree[moves[i].ID] <= 2 && degree[moves[i+1].ID] <= 2
		if consecutiveOnly {
			run++
			continue
		}
		if run >= 2 {
			sawtooth++
		}
		run = 0
	}
	if run >= 2 {
		sawtooth++
	}
	return chunks, webs, sawtooth
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// cosine returns the cosine similarity of two vectors, 0 when either
// is empty or lengths differ.
func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
