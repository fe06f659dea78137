package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"chocoLedger/internal/model"
)

type receiptKey struct {
	txSig    string
	logIndex uint64
}

type playerRoundKey struct {
	round  model.Address
	player model.Address
}

// MemoryStore is a mutex-guarded in-memory Store. It backs tests and the
// storageless dev mode; semantics match the Postgres store.
type MemoryStore struct {
	mu           sync.RWMutex
	rounds       map[model.Address]model.Round
	roundOrder   []model.Address
	playerRounds map[playerRoundKey]model.PlayerRound
	claims       map[receiptKey]model.Claim
	claimOrder   []receiptKey
	fees         map[receiptKey]model.TreasuryFee
	cursors      map[string]model.Cursor
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rounds:       make(map[model.Address]model.Round),
		playerRounds: make(map[playerRoundKey]model.PlayerRound),
		claims:       make(map[receiptKey]model.Claim),
		fees:         make(map[receiptKey]model.TreasuryFee),
		cursors:      make(map[string]model.Cursor),
	}
}

func (s *MemoryStore) GetRound(_ context.Context, id model.Address) (model.Round, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rounds[id]
	return r, ok, nil
}

func (s *MemoryStore) PutRound(_ context.Context, round model.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rounds[round.ID]; !ok {
		s.roundOrder = append(s.roundOrder, round.ID)
	}
	s.rounds[round.ID] = round
	return nil
}

func (s *MemoryStore) ListRounds(_ context.Context, limit int) ([]model.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Round, 0, len(s.roundOrder))
	// Most recently created first.
	for i := len(s.roundOrder) - 1; i >= 0; i-- {
		out = append(out, s.rounds[s.roundOrder[i]])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) ListSettledSince(_ context.Context, since int64) ([]model.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Round
	for _, id := range s.roundOrder {
		r := s.rounds[id]
		if r.Settled && r.SettledAt >= since {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetPlayerRound(_ context.Context, round, player model.Address) (model.PlayerRound, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pr, ok := s.playerRounds[playerRoundKey{round, player}]
	return pr, ok, nil
}

func (s *MemoryStore) PutPlayerRound(_ context.Context, pr model.PlayerRound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerRounds[playerRoundKey{pr.RoundID, pr.Player}] = pr
	return nil
}

func (s *MemoryStore) ListRoundEntries(_ context.Context, round model.Address) ([]model.PlayerRound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.PlayerRound
	for k, pr := range s.playerRounds {
		if k.round == round {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Player.String() < out[j].Player.String() })
	return out, nil
}

func (s *MemoryStore) ListPlayerRounds(_ context.Context, player model.Address, limit int) ([]model.PlayerRound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.PlayerRound
	for k, pr := range s.playerRounds {
		if k.player == player {
			out = append(out, pr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommittedAt > out[j].CommittedAt })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) InsertClaim(_ context.Context, claim model.Claim) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := receiptKey{claim.TxSig, claim.LogIndex}
	if _, ok := s.claims[key]; ok {
		return false, nil
	}
	s.claims[key] = claim
	s.claimOrder = append(s.claimOrder, key)
	return true, nil
}

func (s *MemoryStore) ListClaims(_ context.Context) ([]model.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Claim, 0, len(s.claimOrder))
	for _, key := range s.claimOrder {
		out = append(out, s.claims[key])
	}
	return out, nil
}

func (s *MemoryStore) InsertTreasuryFee(_ context.Context, fee model.TreasuryFee) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := receiptKey{fee.TxSig, fee.LogIndex}
	if _, ok := s.fees[key]; ok {
		return false, nil
	}
	s.fees[key] = fee
	return true, nil
}

func (s *MemoryStore) LoadCursor(_ context.Context, name string) (model.Cursor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.cursors[name]
	return cur, ok, nil
}

func (s *MemoryStore) SaveCursor(_ context.Context, name string, cur model.Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur.UpdatedAt = time.Now().UTC().Format(time.RFC3339Nano)
	s.cursors[name] = cur
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() {}
