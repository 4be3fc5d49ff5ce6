package attacks

// Selfish implements the Eyal-Sirer selfish mining strategy: the attacker
// withholds found blocks, extending a private chain, and releases some or
// all of it in response to honest progress depending on its current lead.
type Selfish struct {
	// Gamma is the fraction of the honest network that adopts the
	// attacker's block first in a lead==1 race. Recorded in config and
	// metrics; the state machine below resolves the race in the
	// attacker's favor outright.
	Gamma float64

	Lead                int
	PrivateChainLength  int
	PublicChainLength   int
	AttackerBlocksWon   int
	HonestBlocksWon     int
	WastedHonestBlocks  int
	AttackerRewards     float64
	HonestRewards       float64
}

// NewSelfish constructs a Selfish attack state with the given gamma (race-win
// fraction); gamma <= 0 defaults to 0.5.
func NewSelfish(gamma float64) *Selfish {
	if gamma <= 0 {
		gamma = 0.5
	}
	return &Selfish{Gamma: gamma}
}

func (s *Selfish) Name() string { return "selfish_mining" }

func (s *Selfish) AttackerFoundBlock(reward float64) (Action, float64) {
	s.PrivateChainLength++
	s.Lead++
	return ActionContinue, 0
}

func (s *Selfish) HonestFoundBlock(reward float64) (Action, float64) {
	s.PublicChainLength++

	switch {
	case s.Lead == 0:
		s.HonestBlocksWon++
		s.HonestRewards += reward
		return ActionAdoptHonest, reward

	case s.Lead == 1:
		s.AttackerBlocksWon++
		s.AttackerRewards += reward
		s.WastedHonestBlocks++
		s.PrivateChainLength = 0
		s.Lead = 0
		return ActionPublishOne, reward

	case s.Lead == 2:
		s.AttackerBlocksWon += 2
		s.AttackerRewards += reward * 2
		s.WastedHonestBlocks++
		s.PrivateChainLength = 0
		s.Lead = 0
		return ActionPublishAll, reward * 2

	default: // lead > 2
		s.AttackerBlocksWon++
		s.AttackerRewards += reward
		s.WastedHonestBlocks++
		s.PrivateChainLength--
		s.Lead--
		return ActionPublishOne, reward
	}
}

// RelativeRevenue returns the attacker's share of blocks that made it into
// the main chain, the headline metric for evaluating selfish mining
// profitability.
func (s *Selfish) RelativeRevenue() float64 {
	total := s.AttackerBlocksWon + s.HonestBlocksWon
	if total == 0 {
		return 0
	}
	return float64(s.AttackerBlocksWon) / float64(total)
}
