package attacks

// DoubleSpend implements the 51%/Nakamoto double-spend race: the attacker
// mines a private chain while a victim waits for TargetConfirmations on the
// public chain before accepting a payment; if the private chain overtakes
// the public chain after that point the spend is reversed.
type DoubleSpend struct {
	TargetConfirmations int

	PrivateChainLength int
	HonestChainLength  int
	Phase              Phase

	AttackAttempts     int
	SuccessfulAttacks  int
	FailedAttacks      int
	AttackerRewards    float64
	HonestRewards      float64
	DoubleSpentValue   float64
}

// Phase mirrors the original's integer phase field: 0=not started,
// 1=mining privately, 2=succeeded, 3=failed.
type Phase int

const (
	PhaseNotStarted Phase = iota
	PhaseMiningPrivately
	PhaseSucceeded
	PhaseFailed
)

// NewDoubleSpend constructs a double-spend attack and immediately starts the
// first attempt, matching the original's constructor behavior.
func NewDoubleSpend(targetConfirmations int) *DoubleSpend {
	if targetConfirmations < 1 {
		targetConfirmations = 1
	}
	d := &DoubleSpend{TargetConfirmations: targetConfirmations}
	d.startAttack()
	return d
}

func (d *DoubleSpend) startAttack() {
	d.AttackAttempts++
	d.Phase = PhaseMiningPrivately
	d.PrivateChainLength = 0
	d.HonestChainLength = 0
}

func (d *DoubleSpend) Name() string { return "double_spend_51" }

func (d *DoubleSpend) AttackerFoundBlock(reward float64) (Action, float64) {
	d.PrivateChainLength++
	d.AttackerRewards += reward
	return ActionContinue, reward
}

func (d *DoubleSpend) HonestFoundBlock(reward float64) (Action, float64) {
	d.HonestChainLength++
	d.HonestRewards += reward

	if d.HonestChainLength > d.TargetConfirmations*2 {
		d.Phase = PhaseFailed
		d.FailedAttacks++
		result := ActionAttackFailed
		d.startAttack()
		return result, 0
	}

	if d.HonestChainLength >= d.TargetConfirmations && d.PrivateChainLength > d.HonestChainLength {
		d.Phase = PhaseSucceeded
		d.SuccessfulAttacks++
		d.DoubleSpentValue += reward * float64(d.TargetConfirmations)
		result := ActionAttackSucceeded
		d.startAttack()
		return result, 0
	}

	return ActionContinue, 0
}

// SuccessRate returns the fraction of attempted attacks that succeeded.
func (d *DoubleSpend) SuccessRate() float64 {
	if d.AttackAttempts == 0 {
		return 0
	}
	return float64(d.SuccessfulAttacks) / float64(d.AttackAttempts)
}
