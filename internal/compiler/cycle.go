package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/sqlab/internal/ir"
)

// CycleWarning reports episodes that redirect into each other in a loop.
// Such an adventure has no entry episode of its own.
type CycleWarning struct {
	Path    []string `json:"path"` // salts: ["002", "003", "002"]
	Message string   `json:"message"`
	Level   string   `json:"level"`
}

// AnalyzeCycles finds redirection loops between episodes.
//
// The algorithm:
//  1. Build the salt -> next salt graph from every episode solution
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1, or a self-loop, as a warning
func AnalyzeCycles(records *ir.Records) []CycleWarning {
	graph := buildRedirectGraph(records)
	if len(graph) == 0 {
		return []CycleWarning{}
	}

	var warnings []CycleWarning
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, cycleWarning(scc, graph))
		}
	}
	if warnings == nil {
		return []CycleWarning{}
	}
	return warnings
}

// redirectGraph maps an episode salt to the salts its solutions lead to.
type redirectGraph map[string][]string

func buildRedirectGraph(records *ir.Records) redirectGraph {
	graph := make(redirectGraph)
	for _, task := range records.Tasks() {
		ep, ok := task.(*ir.Episode)
		if !ok {
			continue
		}
		if graph[ep.Salt] == nil {
			graph[ep.Salt] = []string{}
		}
		for _, sol := range ep.Solutions.Solutions() {
			next, ok := records.Resolve(sol.Token)
			if !ok || next.Kind() != ir.KindEpisode {
				continue
			}
			salt := next.Base().Salt
			if !slices.Contains(graph[ep.Salt], salt) {
				graph[ep.Salt] = append(graph[ep.Salt], salt)
			}
		}
	}
	return graph
}

func hasSelfLoop(node string, graph redirectGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components. Nodes are visited in
// sorted order so that warnings are reproducible.
func tarjanSCC(graph redirectGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func cycleWarning(scc []string, graph redirectGraph) CycleWarning {
	if len(scc) == 1 {
		salt := scc[0]
		return CycleWarning{
			Path:    []string{salt, salt},
			Message: fmt.Sprintf("episode %s redirects to itself", salt),
			Level:   "warning",
		}
	}
	path := cyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("episodes redirect in a loop: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// cyclePath walks the SCC from its smallest salt until it comes back.
func cyclePath(scc []string, graph redirectGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)
	for {
		visited[current] = true
		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
