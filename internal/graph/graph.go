package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sqlab/internal/ir"
)

// group collects the lines of one section of the description. A unique
// group drops repeated lines, the others keep them.
type group struct {
	unique bool
	seen   map[string]bool
	lines  []string
}

func newGroup(unique bool) *group {
	return &group{unique: unique, seen: make(map[string]bool)}
}

func (g *group) add(line string) {
	if g.unique {
		if g.seen[line] {
			return
		}
		g.seen[line] = true
	}
	g.lines = append(g.lines, line)
}

// String joins the sorted lines at the description's indentation.
func (g *group) String() string {
	lines := slices.Clone(g.lines)
	slices.Sort(lines)
	return strings.Join(lines, "\n    ")
}

// Graph is the navigation map of a set of records.
type Graph struct {
	exerciseEdges  *group
	exerciseStarts *group
	exerciseEnds   *group
	episodeEdges   *group
	episodeStarts  *group
	episodeEnds    *group
	epilogues      *group
	hintEdges      *group
	hintEnds       *group

	hasExercises bool
}

func newGraph() *Graph {
	return &Graph{
		exerciseEdges:  newGroup(false),
		exerciseStarts: newGroup(true),
		exerciseEnds:   newGroup(false),
		episodeEdges:   newGroup(false),
		episodeStarts:  newGroup(true),
		episodeEnds:    newGroup(true),
		epilogues:      newGroup(false),
		hintEdges:      newGroup(false),
		hintEnds:       newGroup(false),
	}
}

// Build walks the records in key order. Tokens reaching an already drawn
// record (aliases, exits) are skipped. The hint salts are consumed: they
// are cleared once the hint edges are drawn.
func Build(records *ir.Records) (*Graph, error) {
	g := newGraph()

	// The middle hint of each task carries the hint count.
	hintsBySalt := make(map[string][]string)
	for _, h := range records.Hints() {
		hintsBySalt[h.Hint.Salt] = append(hintsBySalt[h.Hint.Salt], h.Token)
	}
	middleHints := make(map[string]int, len(hintsBySalt))
	for _, tokens := range hintsBySalt {
		middleHints[tokens[len(tokens)/2]] = len(tokens)
	}

	seen := make(map[string]bool)
	for _, token := range records.Keys() {
		hash, err := ir.RecordHash(records, token)
		if err != nil {
			return nil, fmt.Errorf("graph: %w", err)
		}
		if seen[hash] {
			continue
		}
		seen[hash] = true

		rec, _ := records.Lookup(token)
		switch rec := rec.(type) {
		case *ir.Exercise:
			g.hasExercises = true
			g.addExercise(rec)
		case *ir.Episode:
			g.addEpisode(records, rec)
		case *ir.Hint:
			g.hintEdges.add(rec.Salt + " -> " + token)
			if n := middleHints[token]; n > 0 {
				g.hintEnds.add(fmt.Sprintf("%s [xlabel=%d]", token, n))
			} else {
				g.hintEnds.add(token)
			}
			rec.Salt = ""
		}
	}
	return g, nil
}

func (g *Graph) addExercise(ex *ir.Exercise) {
	for _, sol := range ex.Solutions.Solutions() {
		g.exerciseStarts.add(fmt.Sprintf("%s [xlabel=%d]", ex.Salt, ex.TaskNumber))
		g.exerciseEdges.add(ex.Salt + " -> " + sol.Token)
		g.exerciseEnds.add(sol.Token)
	}
}

func (g *Graph) addEpisode(records *ir.Records, ep *ir.Episode) {
	for _, sol := range ep.Solutions.Solutions() {
		if ep.TaskNumber == 1 {
			g.episodeStarts.add(ep.Salt + " [xlabel=1]")
		}
		next, ok := records.Resolve(sol.Token)
		if !ok {
			continue // query without redirection
		}
		base := next.Base()
		g.episodeEdges.add(ep.Salt + " -> " + base.Salt)
		g.episodeEnds.add(fmt.Sprintf("%s [xlabel=%d]", base.Salt, base.TaskNumber))
	}
	if ep.Terminal() {
		g.epilogues.add(ep.Salt)
	}
}

// Engine is the Graphviz layout: radial around the exercises, left to
// right for adventures only.
func (g *Graph) Engine() string {
	if g.hasExercises {
		return "twopi"
	}
	return "dot\n    rankdir=LR"
}
