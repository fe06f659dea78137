package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"chocoLedger/internal/model"
	"chocoLedger/internal/storage"
)

func addr(b byte) model.Address {
	var a model.Address
	a[0] = b
	return a
}

func newTestServer(t *testing.T, live bool) (*Server, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	return NewServer(Config{Listen: ":0"}, store, func() bool { return live }, nil), store
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	s, _ := newTestServer(t, true)
	if rec := get(t, s, "/health"); rec.Code != http.StatusOK {
		t.Fatalf("health = %d", rec.Code)
	}
	if rec := get(t, s, "/ready"); rec.Code != http.StatusOK {
		t.Fatalf("ready = %d", rec.Code)
	}

	stale, _ := newTestServer(t, false)
	if rec := get(t, stale, "/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready with dead feed = %d", rec.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	s, _ := newTestServer(t, true)
	rec := get(t, s, "/health")
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatal("missing request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "fixed-id")
	echo := httptest.NewRecorder()
	s.Handler().ServeHTTP(echo, req)
	if got := echo.Header().Get("X-Request-Id"); got != "fixed-id" {
		t.Fatalf("request id not echoed: %q", got)
	}
}

func TestRoundsEmptyIsList(t *testing.T) {
	s, _ := newTestServer(t, true)
	rec := get(t, s, "/rounds")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := rec.Body.String(); body != "[]\n" {
		t.Fatalf("body = %q, want empty list", body)
	}
}

func TestRoundNotFoundAndBadID(t *testing.T) {
	s, _ := newTestServer(t, true)

	unknown := addr(7)
	if rec := get(t, s, "/rounds/"+unknown.String()); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown round = %d", rec.Code)
	}
	if rec := get(t, s, "/rounds/not-base58!"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id = %d", rec.Code)
	}
}

func TestRoundDetailStats(t *testing.T) {
	s, store := newTestServer(t, true)
	ctx := context.Background()

	round := model.Round{
		ID:             addr(1),
		CommitDeadline: 1_000,
		RevealDeadline: 2_000,
		StakeLamports:  5_000_000_000,
		FeeBps:         250,
	}
	if err := store.PutRound(ctx, round); err != nil {
		t.Fatalf("put round: %v", err)
	}
	for i, revealed := range []bool{true, true, false} {
		pr := model.PlayerRound{
			RoundID:       addr(1),
			Player:        addr(byte(10 + i)),
			StakeLamports: 5_000_000_000,
			Revealed:      revealed,
		}
		if err := store.PutPlayerRound(ctx, pr); err != nil {
			t.Fatalf("put player round: %v", err)
		}
	}

	rec := get(t, s, "/rounds/"+addr(1).String())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var detail struct {
		StakeLamports   string `json:"stake_lamports"`
		TotalPlayers    int    `json:"total_players"`
		RevealedPlayers int    `json:"revealed_players"`
		TotalPool       string `json:"total_pool"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.StakeLamports != "5000000000" {
		t.Fatalf("stake not string-encoded: %q", detail.StakeLamports)
	}
	if detail.TotalPlayers != 3 || detail.RevealedPlayers != 2 || detail.TotalPool != "15000000000" {
		t.Fatalf("stats: %+v", detail)
	}
}

func TestTopPayoutEndpoint(t *testing.T) {
	s, store := newTestServer(t, true)
	ctx := context.Background()

	claims := []model.Claim{
		{RoundID: addr(1), Player: addr(2), AmountLamports: 30, ClaimedAt: 100, TxSig: "a"},
		{RoundID: addr(1), Player: addr(3), AmountLamports: 10, ClaimedAt: 200, TxSig: "b"},
	}
	for _, c := range claims {
		if _, err := store.InsertClaim(ctx, c); err != nil {
			t.Fatalf("insert claim: %v", err)
		}
	}

	rec := get(t, s, "/leaderboard/top-payout?limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var entries []struct {
		Player        string `json:"player"`
		TotalLamports string `json:"total_lamports"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Player != addr(2).String() || entries[0].TotalLamports != "30" {
		t.Fatalf("entries: %+v", entries)
	}
}

func TestWinRateFromParam(t *testing.T) {
	s, store := newTestServer(t, true)
	ctx := context.Background()

	rounds := []model.Round{
		{ID: addr(1), Settled: true, SettledAt: 100, Winner: model.TribeMilk},
		{ID: addr(2), Settled: true, SettledAt: 200, Winner: model.TribeCacao},
	}
	for _, r := range rounds {
		if err := store.PutRound(ctx, r); err != nil {
			t.Fatalf("put round: %v", err)
		}
		pr := model.PlayerRound{RoundID: r.ID, Player: addr(9), Revealed: true, Tribe: model.TribeMilk}
		if err := store.PutPlayerRound(ctx, pr); err != nil {
			t.Fatalf("put player round: %v", err)
		}
	}

	decodeEntries := func(rec *httptest.ResponseRecorder) []struct {
		Wins   int `json:"wins"`
		Rounds int `json:"rounds"`
	} {
		t.Helper()
		var entries []struct {
			Wins   int `json:"wins"`
			Rounds int `json:"rounds"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return entries
	}

	// Explicit window start covers both rounds.
	rec := get(t, s, "/leaderboard/weekly-winrate?from=50")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	entries := decodeEntries(rec)
	if len(entries) != 1 || entries[0].Rounds != 2 || entries[0].Wins != 1 {
		t.Fatalf("from=50: %+v", entries)
	}

	// A later window start excludes the earlier settlement.
	rec = get(t, s, "/leaderboard/weekly-winrate?from=150")
	entries = decodeEntries(rec)
	if len(entries) != 1 || entries[0].Rounds != 1 || entries[0].Wins != 0 {
		t.Fatalf("from=150: %+v", entries)
	}

	if rec := get(t, s, "/leaderboard/weekly-winrate?from=yesterday"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad from = %d", rec.Code)
	}
}

func TestPlayerRoundsEndpoint(t *testing.T) {
	s, store := newTestServer(t, true)
	ctx := context.Background()

	pr := model.PlayerRound{
		RoundID:       addr(1),
		Player:        addr(2),
		Tribe:         model.TribeMilk,
		StakeLamports: 5,
		Revealed:      true,
		CommittedAt:   100,
	}
	if err := store.PutPlayerRound(ctx, pr); err != nil {
		t.Fatalf("put player round: %v", err)
	}

	rec := get(t, s, "/players/"+addr(2).String()+"/rounds")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var views []struct {
		RoundID string `json:"round_id"`
		Tribe   string `json:"tribe"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 1 || views[0].RoundID != addr(1).String() || views[0].Tribe != "milk" {
		t.Fatalf("views: %+v", views)
	}
}
