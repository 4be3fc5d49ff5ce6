// Package mempool implements the FIFO transaction pool that feeds block
// assembly. Enqueue and Drain are both O(1) amortized, backed by a ring
// buffer rather than a slice that reslices from the front, so long-running
// simulations don't leak backing memory the way append-and-reslice would.
package mempool

import "chainsim/internal/chainmodel"

// Mempool is an insertion-ordered queue of pending transactions.
type Mempool struct {
	buf   []chainmodel.Transaction
	head  int
	count int
}

// New returns an empty mempool with the given initial capacity hint.
func New(capacityHint int) *Mempool {
	if capacityHint < 16 {
		capacityHint = 16
	}
	return &Mempool{buf: make([]chainmodel.Transaction, capacityHint)}
}

// Len returns the number of pending transactions.
func (m *Mempool) Len() int { return m.count }

// Enqueue appends a transaction to the tail. O(1) amortized.
func (m *Mempool) Enqueue(tx chainmodel.Transaction) {
	if m.count == len(m.buf) {
		m.grow()
	}
	tail := (m.head + m.count) % len(m.buf)
	m.buf[tail] = tx
	m.count++
}

// Drain removes up to n transactions from the head and returns them in
// insertion order. If the pool has fewer than n, it returns all of them.
func (m *Mempool) Drain(n int) []chainmodel.Transaction {
	if n > m.count {
		n = m.count
	}
	out := make([]chainmodel.Transaction, n)
	for i := 0; i < n; i++ {
		out[i] = m.buf[(m.head+i)%len(m.buf)]
	}
	m.head = (m.head + n) % len(m.buf)
	m.count -= n
	return out
}

func (m *Mempool) grow() {
	newBuf := make([]chainmodel.Transaction, len(m.buf)*2)
	for i := 0; i < m.count; i++ {
		newBuf[i] = m.buf[(m.head+i)%len(m.buf)]
	}
	m.buf = newBuf
	m.head = 0
}
