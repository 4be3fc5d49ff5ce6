package network

import "sort"

// DelayFunc supplies the propagation delay in seconds for a single hop across
// edge (from, to). A nil DelayFunc is treated as zero latency; per-edge
// delay is opt-in.
type DelayFunc func(from, to int) float64

// Arrival is a single (node, time-offset-from-origin) propagation event,
// produced by walking the BFS tree rooted at sourceID and accumulating
// DelayFunc along each edge.
type Arrival struct {
	NodeID int
	Offset float64
	Hops   int
}

// Propagate computes, for a block originating at sourceID, every node's
// arrival offset relative to the origin's emission time. The source itself
// is included with offset 0. Visitation is BFS with ties within a layer
// broken by ascending id for determinism. Each node expands along its
// Peers(), so an eclipsed node forwards only to its ForcedPeers override; it
// is reached whenever a visited node still lists it as a peer.
func (g *Graph) Propagate(sourceID int, delay DelayFunc) []Arrival {
	if delay == nil {
		delay = func(int, int) float64 { return 0 }
	}

	arrivals := []Arrival{{NodeID: sourceID, Offset: 0, Hops: 0}}
	offsets := map[int]float64{sourceID: 0}
	hops := map[int]int{sourceID: 0}
	visited := map[int]struct{}{sourceID: {}}
	frontier := []int{sourceID}

	for len(frontier) > 0 {
		next := make([]int, 0)
		for _, id := range frontier {
			n, ok := g.Nodes[id]
			if !ok {
				continue
			}
			base := offsets[id]
			peers := make([]int, 0, len(n.Peers()))
			for peer := range n.Peers() {
				peers = append(peers, peer)
			}
			sortInts(peers)
			for _, peer := range peers {
				if _, seen := visited[peer]; seen {
					continue
				}
				visited[peer] = struct{}{}
				offset := base + delay(id, peer)
				offsets[peer] = offset
				hops[peer] = hops[id] + 1
				arrivals = append(arrivals, Arrival{NodeID: peer, Offset: offset, Hops: hops[peer]})
				next = append(next, peer)
			}
		}
		frontier = next
	}
	return arrivals
}

func sortInts(xs []int) { sort.Ints(xs) }
