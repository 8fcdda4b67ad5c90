package memorystore

import "sync"

const DefaultCapacity = 100

// TradeStore keeps the most recent trades, newest first, up to a fixed
// capacity. Once full, each insert evicts the oldest trade.
type TradeStore struct {
	mu       sync.RWMutex
	buf      []Trade
	head     int // index of the newest trade
	count    int
	capacity int
}

func NewTradeStore(capacity int) *TradeStore {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &TradeStore{
		buf:      make([]Trade, capacity),
		capacity: capacity,
	}
}

// Insert puts t at the front.
func (s *TradeStore) Insert(t Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// walk head backwards so the newest slot is always buf[head]
	s.head = (s.head - 1 + s.capacity) % s.capacity
	s.buf[s.head] = t
	if s.count < s.capacity {
		s.count++
	}
}

// Snapshot returns a newest-first copy of the current contents.
func (s *TradeStore) Snapshot() []Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Trade, s.count)
	for i := 0; i < s.count; i++ {
		out[i] = s.buf[(s.head+i)%s.capacity]
	}
	return out
}

// Reset drops every stored trade.
func (s *TradeStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.buf)
	s.head = 0
	s.count = 0
}

func (s *TradeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

func (s *TradeStore) Capacity() int { return s.capacity }
