package attacks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chainsim/internal/network"
	"chainsim/internal/rngstream"
)

func TestSelfishMiningLeadStateMachine(t *testing.T) {
	s := NewSelfish(0.5)

	action, _ := s.AttackerFoundBlock(1)
	assert.Equal(t, ActionContinue, action)
	assert.Equal(t, 1, s.Lead)

	action, reward := s.HonestFoundBlock(1)
	assert.Equal(t, ActionPublishOne, action)
	assert.Equal(t, 1.0, reward)
	assert.Equal(t, 0, s.Lead)
}

func TestSelfishMiningLeadTwoPublishesAll(t *testing.T) {
	s := NewSelfish(0.5)
	s.AttackerFoundBlock(1)
	s.AttackerFoundBlock(1)
	action, reward := s.HonestFoundBlock(1)
	assert.Equal(t, ActionPublishAll, action)
	assert.Equal(t, 2.0, reward)
	assert.Equal(t, 2, s.AttackerBlocksWon)
}

func TestSelfishMiningNoLeadAdoptsHonest(t *testing.T) {
	s := NewSelfish(0.5)
	action, _ := s.HonestFoundBlock(1)
	assert.Equal(t, ActionAdoptHonest, action)
	assert.Equal(t, 1, s.HonestBlocksWon)
}

func TestDoubleSpendSucceedsWhenPrivateChainOvertakes(t *testing.T) {
	d := NewDoubleSpend(2)
	d.AttackerFoundBlock(1)
	d.AttackerFoundBlock(1)
	d.AttackerFoundBlock(1)

	d.HonestFoundBlock(1)
	action, _ := d.HonestFoundBlock(1) // honest reaches target_confirmations=2
	assert.Equal(t, ActionAttackSucceeded, action)
	assert.Equal(t, 1, d.SuccessfulAttacks)
}

func TestDoubleSpendFailsWhenHonestChainTooFarAhead(t *testing.T) {
	d := NewDoubleSpend(2)
	for i := 0; i < 5; i++ {
		d.HonestFoundBlock(1)
	}
	assert.Equal(t, 1, d.FailedAttacks)
}

func TestEclipseOnlyAttackerBlocksReachVictim(t *testing.T) {
	rng := rngstream.New(1)
	g := network.BuildTopology(5, 2, rng)
	e := NewEclipse(g, []int{0}, []int{1})

	assert.True(t, e.ShouldPropagateTo(0, true))
	assert.False(t, e.ShouldPropagateTo(0, false))
	assert.True(t, e.ShouldPropagateTo(2, false))

	victim := g.Nodes[0]
	assert.True(t, victim.Eclipsed)
	_, forced := victim.Peers()[1]
	assert.True(t, forced)
}

func TestEclipseVictimSeenFractionCountsDeliveries(t *testing.T) {
	rng := rngstream.New(2)
	g := network.BuildTopology(5, 2, rng)
	e := NewEclipse(g, []int{0}, []int{1})

	// Two honest blocks; one leaks through to the victim, one is withheld.
	e.HonestFoundBlock(1)
	e.HonestFoundBlock(1)
	e.RecordDelivery(0)
	e.RecordDelivery(3) // non-victim delivery, not counted

	assert.Equal(t, 1, e.VictimBlocksSeen)
	assert.Equal(t, 0.5, e.VictimSeenFraction())
}

func TestEclipseVictimSeenFractionZeroWithoutBlocks(t *testing.T) {
	rng := rngstream.New(2)
	g := network.BuildTopology(5, 2, rng)
	e := NewEclipse(g, []int{0}, []int{1})
	assert.Equal(t, 0.0, e.VictimSeenFraction())
}
