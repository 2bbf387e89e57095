package compiler

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/eventsheet/internal/ir"
)

// linkGraph maps an external events name to the external events its Link
// events include. Targets are sorted and unique.
type linkGraph map[string][]string

// buildLinkGraph collects the link edges between the project's external
// events. Disabled events and missing targets contribute no edges.
func buildLinkGraph(p *ir.Project) linkGraph {
	edges := make(map[string]map[string]bool, len(p.ExternalEvents))
	for _, ext := range p.ExternalEvents {
		seen, ok := edges[ext.Name]
		if !ok {
			seen = make(map[string]bool)
			edges[ext.Name] = seen
		}
		collectLinks(ext.Events, func(target string) {
			if _, ok := p.External(target); ok {
				seen[target] = true
			}
		})
	}

	graph := make(linkGraph, len(edges))
	for name, seen := range edges {
		graph[name] = sortedKeys(seen)
	}
	return graph
}

func collectLinks(events []ir.Event, visit func(string)) {
	for _, e := range events {
		if e.Disabled {
			continue
		}
		if e.Kind() == ir.EventLink {
			visit(e.Target)
		}
		collectLinks(e.Events, visit)
	}
}

// LinkCycles returns every cycle among the project's external events as
// a closed path, for example [A B A]. Cycles are ordered by their first
// name.
func LinkCycles(p *ir.Project) [][]string {
	graph := buildLinkGraph(p)
	var cycles [][]string
	for _, scc := range tarjanSCC(graph) {
		if len(scc) == 1 && !hasSelfLoop(scc[0], graph) {
			continue
		}
		cycles = append(cycles, cyclePath(scc, graph))
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0] < cycles[j][0]
	})
	return cycles
}

// tarjanSCC returns the strongly connected components of graph.
// Nodes are visited in sorted order so results are deterministic.
func tarjanSCC(graph linkGraph) [][]string {
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

		// v is the root of an SCC
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
			sccs = append(sccs, scc)
		}
	}

	for _, node := range sortedKeys(graph) {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}

func hasSelfLoop(node string, graph linkGraph) bool {
	return slices.Contains(graph[node], node)
}

// cyclePath walks the SCC from its smallest member along in-SCC edges
// until it returns to the start.
func cyclePath(scc []string, graph linkGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, n := range scc {
		members[n] = true
	}
	start := slices.Min(scc)
	if hasSelfLoop(start, graph) && len(scc) == 1 {
		return []string{start, start}
	}

	path := []string{start}
	visited := map[string]bool{start: true}
	current := start
	for {
		next := ""
		for _, w := range graph[current] {
			if w == start && len(path) > 1 {
				next = w
				break
			}
			if members[w] && !visited[w] && next == "" {
				next = w
			}
		}
		if next == "" {
			// Dead end inside the SCC; close the path anyway.
			return append(path, start)
		}
		path = append(path, next)
		if next == start {
			return path
		}
		visited[next] = true
		current = next
	}
}

func linkCycleErrors(p *ir.Project) []ValidationError {
	var errs []ValidationError
	for _, cycle := range LinkCycles(p) {
		errs = append(errs, ValidationError{
			Code:    ErrLinkCycle,
			Path:    fmt.Sprintf("externalEvents[%s]", cycle[0]),
			Message: "link cycle: " + strings.Join(cycle, " -> "),
		})
	}
	return errs
}
