package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"chocoLedger/internal/model"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func pageParams(r *http.Request) (limit, offset int) {
	limit = defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "storage unreachable"})
		return
	}
	if !s.live() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "feed not live"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleTopPayout(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	entries, err := s.boards.TopPayout(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("top payout query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleWeeklyWinRate(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	windowStart := time.Now().Add(-s.cfg.WinRateWindow).Unix()
	if raw := r.URL.Query().Get("from"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from timestamp")
			return
		}
		windowStart = n
	}
	entries, err := s.boards.WinRateSince(r.Context(), windowStart, limit, offset)
	if err != nil {
		s.logger.Error("win rate query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// roundView is the list representation of a round. Lamport amounts are JSON
// strings so web clients never round them through float64.
type roundView struct {
	ID             model.Address `json:"id"`
	Phase          string        `json:"phase"`
	CommitDeadline int64         `json:"commit_deadline"`
	RevealDeadline int64         `json:"reveal_deadline"`
	StakeLamports  uint64        `json:"stake_lamports,string"`
	FeeBps         uint16        `json:"fee_bps"`
	MilkCount      uint32        `json:"milk_count"`
	CacaoCount     uint32        `json:"cacao_count"`
	MilkPool       uint64        `json:"milk_pool,string"`
	CacaoPool      uint64        `json:"cacao_pool,string"`
	Winner         model.Tribe   `json:"winner"`
	Settled        bool          `json:"settled"`
	SettledAt      int64         `json:"settled_at,omitempty"`
	CreatedAt      int64         `json:"created_at"`
}

func toRoundView(r model.Round, now int64) roundView {
	return roundView{
		ID:             r.ID,
		Phase:          model.CurrentPhase(r, now).String(),
		CommitDeadline: r.CommitDeadline,
		RevealDeadline: r.RevealDeadline,
		StakeLamports:  r.StakeLamports,
		FeeBps:         r.FeeBps,
		MilkCount:      r.MilkCount,
		CacaoCount:     r.CacaoCount,
		MilkPool:       r.MilkPool,
		CacaoPool:      r.CacaoPool,
		Winner:         r.Winner,
		Settled:        r.Settled,
		SettledAt:      r.SettledAt,
		CreatedAt:      r.CreatedAt,
	}
}

func (s *Server) handleRounds(w http.ResponseWriter, r *http.Request) {
	limit, _ := pageParams(r)
	rounds, err := s.store.ListRounds(r.Context(), limit)
	if err != nil {
		s.logger.Error("list rounds failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	now := time.Now().Unix()
	views := make([]roundView, 0, len(rounds))
	for _, round := range rounds {
		views = append(views, toRoundView(round, now))
	}
	writeJSON(w, http.StatusOK, views)
}

// roundDetail extends the list view with per-round participation stats.
type roundDetail struct {
	roundView
	TotalPlayers    int    `json:"total_players"`
	RevealedPlayers int    `json:"revealed_players"`
	TotalPool       uint64 `json:"total_pool,string"`
}

func (s *Server) handleRound(w http.ResponseWriter, r *http.Request) {
	id, err := model.ParseAddress(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid round id")
		return
	}

	round, ok, err := s.store.GetRound(r.Context(), id)
	if err != nil {
		s.logger.Error("get round failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "round not found")
		return
	}

	entries, err := s.store.ListRoundEntries(r.Context(), id)
	if err != nil {
		s.logger.Error("list entries failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	detail := roundDetail{roundView: toRoundView(round, time.Now().Unix())}
	for _, pr := range entries {
		detail.TotalPlayers++
		detail.TotalPool += pr.StakeLamports
		if pr.Revealed {
			detail.RevealedPlayers++
		}
	}
	writeJSON(w, http.StatusOK, detail)
}

// playerRoundView is one player's participation in one round.
type playerRoundView struct {
	RoundID       model.Address `json:"round_id"`
	Tribe         model.Tribe   `json:"tribe"`
	StakeLamports uint64        `json:"stake_lamports,string"`
	Revealed      bool          `json:"revealed"`
	Claimed       bool          `json:"claimed"`
	CommittedAt   int64         `json:"committed_at"`
	RevealedAt    int64         `json:"revealed_at,omitempty"`
	ClaimedAt     int64         `json:"claimed_at,omitempty"`
}

func (s *Server) handlePlayerRounds(w http.ResponseWriter, r *http.Request) {
	player, err := model.ParseAddress(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid player id")
		return
	}
	limit, _ := pageParams(r)

	entries, err := s.store.ListPlayerRounds(r.Context(), player, limit)
	if err != nil {
		s.logger.Error("list player rounds failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}

	views := make([]playerRoundView, 0, len(entries))
	for _, pr := range entries {
		views = append(views, playerRoundView{
			RoundID:       pr.RoundID,
			Tribe:         pr.Tribe,
			StakeLamports: pr.StakeLamports,
			Revealed:      pr.Revealed,
			Claimed:       pr.Claimed,
			CommittedAt:   pr.CommittedAt,
			RevealedAt:    pr.RevealedAt,
			ClaimedAt:     pr.ClaimedAt,
		})
	}
	writeJSON(w, http.StatusOK, views)
}
