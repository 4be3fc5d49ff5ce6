// Package network builds the simulated peer topology and implements
// gossip-style block propagation over it. Nodes are held in an
// adjacency-by-id arena; each broadcast walks the graph with a fresh BFS
// from its source.
package network

import (
	"sort"

	"chainsim/internal/chainmodel"
	"chainsim/internal/rngstream"
)

// Graph is an adjacency-by-id arena: edges are id pairs, never owning
// references.
type Graph struct {
	Nodes map[int]*chainmodel.Node
	order []int // stable iteration order, ascending id
}

// BuildTopology constructs an undirected graph of nodeCount nodes where each
// node has approximately neighborCount neighbors: for each node pick
// neighborCount distinct other nodes uniformly without replacement,
// symmetrize, then repair any isolated node by connecting it to its
// nearest-by-id neighbors until its degree is at least 1.
func BuildTopology(nodeCount, neighborCount int, rng *rngstream.Stream) *Graph {
	g := &Graph{Nodes: make(map[int]*chainmodel.Node, nodeCount)}
	for i := 0; i < nodeCount; i++ {
		g.Nodes[i] = chainmodel.NewNode(i)
		g.order = append(g.order, i)
	}

	for i := 0; i < nodeCount; i++ {
		if neighborCount >= nodeCount {
			neighborCount = nodeCount - 1
		}
		candidates := make([]int, 0, nodeCount-1)
		for j := 0; j < nodeCount; j++ {
			if j != i {
				candidates = append(candidates, j)
			}
		}
		rng.Shuffle(len(candidates), func(a, b int) { candidates[a], candidates[b] = candidates[b], candidates[a] })

		k := neighborCount
		if k > len(candidates) {
			k = len(candidates)
		}
		for _, peer := range candidates[:k] {
			g.connect(i, peer)
		}
	}

	g.repairIsolated()
	return g
}

func (g *Graph) connect(a, b int) {
	g.Nodes[a].Adjacency[b] = struct{}{}
	g.Nodes[b].Adjacency[a] = struct{}{}
}

// repairIsolated connects any node with zero honest-graph degree to its
// nearest-by-id neighbors until its degree is at least 1.
func (g *Graph) repairIsolated() {
	for _, id := range g.order {
		n := g.Nodes[id]
		if len(n.Adjacency) > 0 {
			continue
		}
		candidates := make([]int, 0, len(g.order)-1)
		for _, other := range g.order {
			if other != id {
				candidates = append(candidates, other)
			}
		}
		sort.Slice(candidates, func(i, j int) bool {
			return abs(candidates[i]-id) < abs(candidates[j]-id)
		})
		if len(candidates) > 0 {
			g.connect(id, candidates[0])
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
