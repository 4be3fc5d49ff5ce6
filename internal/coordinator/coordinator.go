// Package coordinator implements the top-level simulation loop: it owns the
// scheduler, mempool, and chain state, wires the consensus strategy and
// optional attack module into a single BlockCandidate hook, and reports
// progress through internal/logging and internal/metrics. The loop is an
// explicit struct whose only suspension point is Scheduler.Pop.
package coordinator

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"

	"chainsim/internal/attacks"
	"chainsim/internal/chainmodel"
	"chainsim/internal/chainstate"
	"chainsim/internal/config"
	"chainsim/internal/consensus"
	"chainsim/internal/logging"
	"chainsim/internal/mempool"
	"chainsim/internal/metrics"
	"chainsim/internal/network"
	"chainsim/internal/rngstream"
	"chainsim/internal/scheduler"
)

// Metrics accumulates the aggregate totals the export record needs: blocks,
// transactions, coins issued, mean block time, mean propagation hops,
// per-producer shares.
type Metrics struct {
	BlocksProduced      int
	TxIncluded          int
	TotalCoinsIssued    float64
	BlockTimes          []float64
	ProducerBlockCounts map[int]int
	PropagationHops     []int
	EmptyMempoolBlocks  int
	lastBlockTime       float64
	haveLastBlockTime   bool
}

func newMetrics() Metrics {
	return Metrics{ProducerBlockCounts: make(map[int]int)}
}

// Resume primes the inter-block-time cursor after a checkpoint restore, so
// the next appended block's delta is computed against the chain's true last
// timestamp instead of zero.
func (m *Metrics) Resume(lastTimestamp float64, have bool) {
	m.lastBlockTime = lastTimestamp
	m.haveLastBlockTime = have
}

// MeanBlockTime returns the arithmetic mean of recorded inter-block delays.
func (m Metrics) MeanBlockTime() float64 {
	if len(m.BlockTimes) == 0 {
		return 0
	}
	var sum float64
	for _, t := range m.BlockTimes {
		sum += t
	}
	return sum / float64(len(m.BlockTimes))
}

// MeanPropagationHops returns the arithmetic mean of the max BFS depth
// reached per produced block.
func (m Metrics) MeanPropagationHops() float64 {
	if len(m.PropagationHops) == 0 {
		return 0
	}
	var sum int
	for _, h := range m.PropagationHops {
		sum += h
	}
	return float64(sum) / float64(len(m.PropagationHops))
}

func (m *Metrics) recordBlock(b chainmodel.Block, minted float64, maxHops int) {
	m.BlocksProduced++
	m.TxIncluded += b.TxCount
	m.TotalCoinsIssued += minted
	m.ProducerBlockCounts[b.ProducerID]++
	m.PropagationHops = append(m.PropagationHops, maxHops)
	if b.TxCount == 0 {
		m.EmptyMempoolBlocks++
	}
	if m.haveLastBlockTime {
		m.BlockTimes = append(m.BlockTimes, b.Timestamp-m.lastBlockTime)
	}
	m.lastBlockTime = b.Timestamp
	m.haveLastBlockTime = true
}

// blockCandidatePayload is the scheduler.Event payload for a BlockCandidate
// event: the producer the consensus strategy selected and its proof share,
// both sampled at schedule time.
type blockCandidatePayload struct {
	ProducerID   int
	ProofWitness float64
}

// txEmitPayload identifies which wallet is emitting.
type txEmitPayload struct {
	WalletIndex int
}

// propagationArrivalPayload carries the block a node is about to learn about.
type propagationArrivalPayload struct {
	NodeID int
	Height uint64
}

// Result is what Run returns: the final metrics snapshot plus any installed
// attack's own metrics, left typed per-attack for the caller (CLI/export
// layer) to shape into the JSON record.
type Result struct {
	Metrics Metrics
	Chain   *chainstate.ChainState
	Attack  attacks.Attack
}

// Coordinator is the owner of every piece of mutable simulation state;
// strategies and attacks read shared state but mutate only through the
// operations exposed here.
type Coordinator struct {
	Cfg config.Config

	Scheduler *scheduler.Scheduler
	RNG       *rngstream.Stream
	Strategy  consensus.Strategy
	Graph     *network.Graph
	Chain     *chainstate.ChainState
	Mempool   *mempool.Mempool

	Producers []chainmodel.Producer
	Wallets   []chainmodel.Wallet

	Attack             attacks.Attack
	AdversaryProducer  int
	adversarySet       bool

	NodeHeights map[int]int64

	Logger  *logrus.Logger
	Metrics *metrics.Registry

	MetricsAcc Metrics
	NextTxID   uint64

	// OnPrintInterval, if set, fires after each print_interval-th block, once
	// the block is fully applied; the CLI uses it to write checkpoints.
	OnPrintInterval func(*Coordinator)

	seeded bool
}

// New validates cfg and builds a fully wired Coordinator: producers, peer
// topology, consensus strategy, chain state, mempool, wallets, and (if
// configured) an attack module. Consensus/propagation/mempool/attack
// sampling all draw from the same rng, in that fixed canonical order.
func New(cfg config.Config, logger *logrus.Logger, reg *metrics.Registry) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.New(cfg.Simulation.Debug)
	}

	rng := rngstream.New(cfg.Simulation.Seed)

	c := &Coordinator{
		Cfg:         cfg,
		Scheduler:   scheduler.New(),
		RNG:         rng,
		Graph:       network.BuildTopology(cfg.Network.Nodes, cfg.Network.Neighbors, rng),
		Mempool:     mempool.New(cfg.Transactions.Wallets * cfg.Transactions.TransactionsPerWallet),
		NodeHeights: make(map[int]int64),
		Logger:      logger,
		Metrics:     reg,
		MetricsAcc:  newMetrics(),
	}

	if err := c.buildProducers(); err != nil {
		return nil, err
	}
	c.buildStrategy()
	c.buildChainState()
	c.buildWallets()
	if err := c.buildAttack(); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Coordinator) buildProducers() error {
	n := c.Cfg.Mining.Miners
	attackNeedsAdversary := c.Cfg.Attack.Type == config.AttackSelfish || c.Cfg.Attack.Type == config.AttackDoubleSpend
	frac := c.Cfg.Attack.AttackerHashrate

	c.Producers = make([]chainmodel.Producer, 0, n)
	if attackNeedsAdversary && n >= 2 && frac > 0 && frac < 1 {
		c.Producers = append(c.Producers, chainmodel.Producer{ID: 0, Capacity: frac, Adversary: true})
		c.AdversaryProducer = 0
		c.adversarySet = true
		honestEach := (1 - frac) / float64(n-1)
		for i := 1; i < n; i++ {
			c.Producers = append(c.Producers, chainmodel.Producer{ID: i, Capacity: honestEach})
		}
	} else {
		for i := 0; i < n; i++ {
			c.Producers = append(c.Producers, chainmodel.Producer{ID: i, Capacity: c.Cfg.Mining.Capacity})
		}
	}

	var total float64
	for _, p := range c.Producers {
		total += p.Capacity
	}
	if total <= 0 {
		return &config.ConfigError{Field: "mining.capacity", Message: "all producer capacities are zero (producer-selection underflow)"}
	}
	return nil
}

func (c *Coordinator) buildStrategy() {
	switch c.Cfg.Consensus.Type {
	case config.ConsensusPoS:
		c.Strategy = consensus.PoS{}
	case config.ConsensusPoSpace:
		c.Strategy = consensus.PoSpace{}
	default:
		c.Strategy = consensus.PoW{}
	}
}

func (c *Coordinator) buildChainState() {
	difficulty := c.Cfg.Mining.Difficulty
	if difficulty <= 0 {
		// Derive so the expected first inter-block delay equals the target
		// blocktime: mean = difficulty / total capacity.
		var total float64
		for _, p := range c.Producers {
			total += p.Capacity
		}
		difficulty = c.Cfg.Mining.Blocktime * total
	}

	retargetInterval := 0
	fixedDifficulty := true
	if c.Cfg.Mining.RetargetInterval != nil {
		retargetInterval = *c.Cfg.Mining.RetargetInterval
		fixedDifficulty = false
	}

	halvingInterval := 0
	maxHalvings := math.Inf(1)
	if c.Cfg.Economics.HalvingInterval != nil {
		halvingInterval = *c.Cfg.Economics.HalvingInterval
	}
	if c.Cfg.Economics.MaxHalvings != nil {
		if *c.Cfg.Economics.MaxHalvings == 0 {
			// max_halvings == 0 means "disabled", i.e. constant reward, NOT
			// "zero halvings allowed" (which would zero every reward).
			halvingInterval = 0
		} else {
			maxHalvings = float64(*c.Cfg.Economics.MaxHalvings)
		}
	}

	c.Chain = chainstate.New(
		difficulty,
		retargetInterval,
		c.Cfg.Mining.Blocktime,
		fixedDifficulty,
		c.Cfg.Economics.InitialReward,
		halvingInterval,
		maxHalvings,
	)
}

func (c *Coordinator) buildWallets() {
	c.Wallets = make([]chainmodel.Wallet, c.Cfg.Transactions.Wallets)
	for i := range c.Wallets {
		c.Wallets[i] = chainmodel.Wallet{
			ID:              i,
			RemainingBudget: c.Cfg.Transactions.TransactionsPerWallet,
			NextEmit:        c.Cfg.Transactions.Interval,
		}
	}
}

func (c *Coordinator) buildAttack() error {
	switch c.Cfg.Attack.Type {
	case config.AttackSelfish:
		c.Attack = attacks.NewSelfish(c.Cfg.Attack.Gamma)
	case config.AttackDoubleSpend:
		c.Attack = attacks.NewDoubleSpend(c.Cfg.Attack.Confirmations)
	case config.AttackEclipse:
		if c.Cfg.Attack.VictimNodes <= 0 {
			return &config.ConfigError{Field: "attack.victim_nodes", Message: "must be > 0 for eclipse"}
		}
		// Victims are taken from the top of the id range (just below the
		// attacker's own node) so honest producers, whose home nodes are the
		// low ids, never originate a block at an eclipsed node.
		attackerNode := c.Cfg.Network.Nodes - 1
		victims := make([]int, 0, c.Cfg.Attack.VictimNodes)
		for i := 0; i < c.Cfg.Attack.VictimNodes; i++ {
			if id := attackerNode - 1 - i; id >= 0 {
				victims = append(victims, id)
			}
		}
		c.Attack = attacks.NewEclipse(c.Graph, victims, []int{attackerNode})
	}
	return nil
}

func (c *Coordinator) isAdversaryProducer(id int) bool {
	return c.adversarySet && id == c.AdversaryProducer
}

// Run drains the scheduler until a termination predicate holds: block count
// reaches cfg.Simulation.Blocks (if > 0), or simulated time reaches
// cfg.Simulation.Years converted to seconds (if > 0). ctx cancellation is
// checked between events only; there is no preemption mid-event.
func (c *Coordinator) Run(ctx context.Context) (Result, error) {
	c.seedInitialEvents()

	for {
		select {
		case <-ctx.Done():
			c.Scheduler.Drain()
			return c.result(), ctx.Err()
		default:
		}

		ev, ok := c.Scheduler.Pop()
		if !ok {
			break
		}
		if ev.Kind == scheduler.Terminate {
			break
		}

		if err := c.handle(ev); err != nil {
			return c.result(), err
		}

		if c.terminated() {
			c.Scheduler.Drain()
			break
		}
	}

	return c.result(), nil
}

func (c *Coordinator) result() Result {
	return Result{Metrics: c.MetricsAcc, Chain: c.Chain, Attack: c.Attack}
}

func (c *Coordinator) terminated() bool {
	if c.Cfg.Simulation.Blocks > 0 && int(c.Chain.Height()) >= c.Cfg.Simulation.Blocks {
		return true
	}
	if c.Cfg.Simulation.Years > 0 && c.Scheduler.Now() >= c.Cfg.Simulation.Years*365*24*3600 {
		return true
	}
	return false
}

// ResumeEvents re-derives pending deterministic events (wallet emissions and
// the next block candidate) from the coordinator's current state: a
// checkpoint need not serialize the event queue itself, only enough state to
// reconstruct it.
func (c *Coordinator) ResumeEvents() {
	c.seedInitialEvents()
}

func (c *Coordinator) seedInitialEvents() {
	if c.seeded {
		return
	}
	c.seeded = true
	for i, w := range c.Wallets {
		if w.RemainingBudget > 0 {
			c.Scheduler.Schedule(scheduler.TxEmit, w.NextEmit, txEmitPayload{WalletIndex: i})
		}
	}
	c.scheduleNextBlockCandidate()
}

func (c *Coordinator) scheduleNextBlockCandidate() {
	sample := consensus.Sample{Producers: c.Producers, Difficulty: c.Chain.Difficulty, Blocktime: c.Cfg.Mining.Blocktime}
	producerID, delay, ok := c.Strategy.NextBlock(c.RNG, sample)
	if !ok {
		// Producer-selection underflow mid-run: terminate rather than loop
		// forever scheduling nothing.
		c.Scheduler.Schedule(scheduler.Terminate, c.Scheduler.Now(), nil)
		return
	}
	share := producerShare(c.Producers, producerID)
	c.Scheduler.Schedule(scheduler.BlockCandidate, c.Scheduler.Now()+delay, blockCandidatePayload{ProducerID: producerID, ProofWitness: share})
}

func producerShare(producers []chainmodel.Producer, id int) float64 {
	var total, mine float64
	for _, p := range producers {
		total += p.Capacity
		if p.ID == id {
			mine = p.Capacity
		}
	}
	if total == 0 {
		return 0
	}
	return mine / total
}

func (c *Coordinator) handle(ev *scheduler.Event) error {
	switch ev.Kind {
	case scheduler.TxEmit:
		c.handleTxEmit(ev.Payload.(txEmitPayload))
	case scheduler.BlockCandidate:
		p := ev.Payload.(blockCandidatePayload)
		c.handleBlockCandidate(p.ProducerID, p.ProofWitness)
		// Skip sampling once the run is over: a resumed run must draw the
		// next candidate from the same RNG position the original would have,
		// so the final sample is left unconsumed.
		if !c.terminated() {
			c.scheduleNextBlockCandidate()
		}
	case scheduler.PropagationArrival:
		p := ev.Payload.(propagationArrivalPayload)
		c.handlePropagationArrival(p)
	}
	return nil
}

func (c *Coordinator) handleTxEmit(p txEmitPayload) {
	w := &c.Wallets[p.WalletIndex]
	if w.RemainingBudget <= 0 {
		return
	}
	tx := chainmodel.Transaction{ID: c.NextTxID, WalletID: w.ID, CreatedAt: c.Scheduler.Now(), Size: 1}
	c.NextTxID++
	c.Mempool.Enqueue(tx)

	w.RemainingBudget--
	if w.RemainingBudget > 0 {
		w.NextEmit = c.Scheduler.Now() + c.Cfg.Transactions.Interval
		c.Scheduler.Schedule(scheduler.TxEmit, w.NextEmit, p)
	}
}

// handleBlockCandidate resolves one BlockCandidate event into zero or more
// appended blocks, routed through the installed attack (if any). A win by
// the selfish or double-spend adversary is recorded by the attack and
// appends nothing. Selfish mining turns an honest win into one or two
// appended blocks (honest or released attacker blocks) depending on the
// attacker's current lead; under double-spend and eclipse an honest win
// appends the honest block.
func (c *Coordinator) handleBlockCandidate(producerID int, proofShare float64) {
	reward := c.Chain.Reward

	if c.isAdversaryProducer(producerID) {
		switch a := c.Attack.(type) {
		case *attacks.Selfish:
			a.AttackerFoundBlock(reward)
		case *attacks.DoubleSpend:
			a.AttackerFoundBlock(reward)
		}
		return
	}

	if selfish, ok := c.Attack.(*attacks.Selfish); ok {
		action, _ := selfish.HonestFoundBlock(reward)
		switch action {
		case attacks.ActionAdoptHonest:
			c.appendBlock(producerID, proofShare)
		case attacks.ActionPublishOne:
			c.appendBlock(c.AdversaryProducer, 0)
		case attacks.ActionPublishAll:
			c.appendBlock(c.AdversaryProducer, 0)
			c.appendBlock(c.AdversaryProducer, 0)
		}
		return
	}

	if ds, ok := c.Attack.(*attacks.DoubleSpend); ok {
		ds.HonestFoundBlock(reward)
	}
	if ec, ok := c.Attack.(*attacks.Eclipse); ok {
		ec.HonestFoundBlock(reward)
	}
	c.appendBlock(producerID, proofShare)
}

func (c *Coordinator) appendBlock(producerID int, proofShare float64) {
	txs := c.Mempool.Drain(c.Cfg.Mining.Blocksize)
	height := c.Chain.Height()
	b := chainmodel.Block{
		Height:       height,
		ProducerID:   producerID,
		ParentHeight: int64(height) - 1,
		Timestamp:    c.Scheduler.Now(),
		TxCount:      len(txs),
		Reward:       c.Chain.Reward,
		Difficulty:   c.Chain.Difficulty,
		Consensus:    c.Strategy.Kind(),
		ProofWitness: proofShare,
	}
	minted := c.Chain.Append(b)
	c.Chain.MaybeRetarget(c.Scheduler.Now())

	maxHops := c.propagate(producerID, b.Height)
	c.MetricsAcc.recordBlock(b, minted, maxHops)
	if c.Metrics != nil {
		delay := 0.0
		if len(c.MetricsAcc.BlockTimes) > 0 {
			delay = c.MetricsAcc.BlockTimes[len(c.MetricsAcc.BlockTimes)-1]
		}
		c.Metrics.ObserveBlock(producerID, delay, b.Difficulty, minted, c.Mempool.Len(), maxHops)
	}

	if c.Cfg.Simulation.PrintInterval > 0 && int(c.Chain.Height())%c.Cfg.Simulation.PrintInterval == 0 {
		if c.Logger != nil {
			logging.Summary(c.Logger, c.Scheduler.Now(), c.Chain.Height(), c.Chain.Difficulty, c.Chain.Reward, c.Mempool.Len())
		}
		if c.OnPrintInterval != nil {
			c.OnPrintInterval(c)
		}
	}
}

// propagate walks the peer graph from producerID's corresponding node and
// schedules a PropagationArrival event per reachable node, returning the max
// hop depth reached. Per-edge delay defaults to zero (instantaneous).
func (c *Coordinator) propagate(producerID int, height uint64) int {
	sourceNode := producerID % c.Cfg.Network.Nodes
	arrivals := c.Graph.Propagate(sourceNode, nil)

	maxHops := 0
	for _, a := range arrivals {
		c.Scheduler.Schedule(scheduler.PropagationArrival, c.Scheduler.Now()+a.Offset, propagationArrivalPayload{NodeID: a.NodeID, Height: height})
		if a.Hops > maxHops {
			maxHops = a.Hops
		}
	}
	return maxHops
}

func (c *Coordinator) handlePropagationArrival(p propagationArrivalPayload) {
	if ec, ok := c.Attack.(*attacks.Eclipse); ok {
		if !ec.ShouldPropagateTo(p.NodeID, false) {
			return
		}
		ec.RecordDelivery(p.NodeID)
	}
	if cur, ok := c.NodeHeights[p.NodeID]; !ok || int64(p.Height) > cur {
		c.NodeHeights[p.NodeID] = int64(p.Height)
	}
	if n, ok := c.Graph.Nodes[p.NodeID]; ok && int64(p.Height) > n.LastKnownHeight {
		n.LastKnownHeight = int64(p.Height)
	}
}
