package attacks

import "chainsim/internal/network"

// Eclipse implements the Heilman et al. eclipse attack: a victim node's
// adjacency is overridden so it only ever hears about blocks the attacker
// chooses to forward, isolating it from honest propagation. The takeover is
// expressed through the ForcedPeers override on chainmodel.Node.
type Eclipse struct {
	VictimIDs map[int]struct{}

	BlocksWithheld        int
	EclipseDurationBlocks int
	HonestChainLength     int
	VictimBlocksSeen      int
}

// NewEclipse isolates the given victim nodes in the graph by enabling
// Eclipsed mode, forcing their adjacency to the attacker nodes only, and
// removing the victim from every honest neighbor's adjacency so the honest
// BFS never lists the victim as reachable in the first place. Overriding only
// the victim's own view is not enough: a still-symmetric honest edge would
// let an honest neighbor's BFS step discover the victim regardless of what
// the victim itself reports as its peers.
func NewEclipse(graph *network.Graph, victimIDs []int, attackerIDs []int) *Eclipse {
	forced := make(map[int]struct{}, len(attackerIDs))
	for _, id := range attackerIDs {
		forced[id] = struct{}{}
	}

	victims := make(map[int]struct{}, len(victimIDs))
	for _, vid := range victimIDs {
		victims[vid] = struct{}{}
		n, ok := graph.Nodes[vid]
		if !ok {
			continue
		}
		for peer := range n.Adjacency {
			if honestPeer, ok := graph.Nodes[peer]; ok {
				delete(honestPeer.Adjacency, vid)
			}
		}
		n.Adjacency = make(map[int]struct{})
		n.Eclipsed = true
		n.ForcedPeers = forced
	}

	return &Eclipse{VictimIDs: victims}
}

// ShouldPropagateTo decides whether a block should reach nodeID: non-victims
// always receive it; victims only receive blocks the attacker approves.
func (e *Eclipse) ShouldPropagateTo(nodeID int, blockFromAttacker bool) bool {
	if _, isVictim := e.VictimIDs[nodeID]; !isVictim {
		return true
	}
	return blockFromAttacker
}

// RecordDelivery counts a block actually delivered to nodeID; deliveries to
// victims feed VictimSeenFraction. With the graph fully partitioned the
// victim count stays at zero, but the counter measures delivery, so a leak
// through a surviving edge would show up as a nonzero fraction.
func (e *Eclipse) RecordDelivery(nodeID int) {
	if _, isVictim := e.VictimIDs[nodeID]; isVictim {
		e.VictimBlocksSeen++
	}
}

// VictimSeenFraction returns the fraction of honest-block deliveries that
// reached eclipsed victims, out of the deliveries victims would have received
// unattacked (one per honest block per victim).
func (e *Eclipse) VictimSeenFraction() float64 {
	expected := e.HonestChainLength * len(e.VictimIDs)
	if expected == 0 {
		return 0
	}
	return float64(e.VictimBlocksSeen) / float64(expected)
}

func (e *Eclipse) Name() string { return "eclipse" }

func (e *Eclipse) AttackerFoundBlock(reward float64) (Action, float64) {
	return ActionContinue, reward
}

// HonestFoundBlock records an honest block withheld from the eclipsed
// victims; ShouldPropagateTo governs actual delivery in the propagation
// layer.
func (e *Eclipse) HonestFoundBlock(reward float64) (Action, float64) {
	e.HonestChainLength++
	e.BlocksWithheld++
	e.EclipseDurationBlocks++
	return ActionContinue, 0
}
