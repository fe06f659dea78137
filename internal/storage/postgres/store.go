// Package postgres implements the storage port on pgx. Lamport amounts live
// in BIGINT columns and round-trip through int64 casts; base58 addresses and
// hex commitments are stored as text.
package postgres

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chocoLedger/internal/model"
)

// Store provides Postgres persistence for the event mirror.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const roundColumns = `
	id, commit_deadline, reveal_deadline, stake_lamports, fee_bps,
	milk_count, cacao_count, milk_pool, cacao_pool,
	winner, settled, settled_at, created_at, slot, tx_sig`

func scanRound(row pgx.Row) (model.Round, error) {
	var (
		r                  model.Round
		id, txSig          string
		stake, milk, cacao int64
		slot               int64
		winner             int16
	)
	err := row.Scan(
		&id, &r.CommitDeadline, &r.RevealDeadline, &stake, &r.FeeBps,
		&r.MilkCount, &r.CacaoCount, &milk, &cacao,
		&winner, &r.Settled, &r.SettledAt, &r.CreatedAt, &slot, &txSig,
	)
	if err != nil {
		return model.Round{}, err
	}
	r.ID, err = model.ParseAddress(id)
	if err != nil {
		return model.Round{}, fmt.Errorf("round id %q: %w", id, err)
	}
	r.StakeLamports = uint64(stake)
	r.MilkPool = uint64(milk)
	r.CacaoPool = uint64(cacao)
	r.Winner = model.Tribe(winner)
	r.Slot = uint64(slot)
	r.TxSig = txSig
	return r, nil
}

func (s *Store) GetRound(ctx context.Context, id model.Address) (model.Round, bool, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+roundColumns+` FROM rounds WHERE id = $1`, id.String())
	r, err := scanRound(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Round{}, false, nil
	}
	if err != nil {
		return model.Round{}, false, err
	}
	return r, true, nil
}

func (s *Store) PutRound(ctx context.Context, r model.Round) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rounds (`+roundColumns+`, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now())
		ON CONFLICT (id)
		DO UPDATE SET
			milk_count = EXCLUDED.milk_count,
			cacao_count = EXCLUDED.cacao_count,
			milk_pool = EXCLUDED.milk_pool,
			cacao_pool = EXCLUDED.cacao_pool,
			winner = EXCLUDED.winner,
			settled = EXCLUDED.settled,
			settled_at = EXCLUDED.settled_at,
			updated_at = now()
	`,
		r.ID.String(), r.CommitDeadline, r.RevealDeadline, int64(r.StakeLamports), r.FeeBps,
		r.MilkCount, r.CacaoCount, int64(r.MilkPool), int64(r.CacaoPool),
		int16(r.Winner), r.Settled, r.SettledAt, r.CreatedAt, int64(r.Slot), r.TxSig,
	)
	return err
}

func (s *Store) listRounds(ctx context.Context, query string, args ...any) ([]model.Round, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ListRounds(ctx context.Context, limit int) ([]model.Round, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.listRounds(ctx, `SELECT`+roundColumns+` FROM rounds ORDER BY created_at DESC, id LIMIT $1`, limit)
}

func (s *Store) ListSettledSince(ctx context.Context, since int64) ([]model.Round, error) {
	return s.listRounds(ctx, `SELECT`+roundColumns+` FROM rounds WHERE settled AND settled_at >= $1 ORDER BY settled_at, id`, since)
}

const playerRoundColumns = `
	round_id, player, commitment, tribe, stake_lamports,
	revealed, claimed, committed_at, revealed_at, claimed_at, slot, tx_sig`

func (s *Store) GetPlayerRound(ctx context.Context, round, player model.Address) (model.PlayerRound, bool, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT`+playerRoundColumns+` FROM player_rounds WHERE round_id = $1 AND player = $2`,
		round.String(), player.String())
	pr, err := scanPlayerRoundRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.PlayerRound{}, false, nil
	}
	if err != nil {
		return model.PlayerRound{}, false, err
	}
	return pr, true, nil
}

func scanPlayerRoundRow(row pgx.Row) (model.PlayerRound, error) {
	var (
		pr                                    model.PlayerRound
		roundID, player, commitmentHex, txSig string
		stake, slot                           int64
		tribe                                 int16
	)
	err := row.Scan(
		&roundID, &player, &commitmentHex, &tribe, &stake,
		&pr.Revealed, &pr.Claimed, &pr.CommittedAt, &pr.RevealedAt, &pr.ClaimedAt, &slot, &txSig,
	)
	if err != nil {
		return model.PlayerRound{}, err
	}
	if pr.RoundID, err = model.ParseAddress(roundID); err != nil {
		return model.PlayerRound{}, fmt.Errorf("round id %q: %w", roundID, err)
	}
	if pr.Player, err = model.ParseAddress(player); err != nil {
		return model.PlayerRound{}, fmt.Errorf("player %q: %w", player, err)
	}
	raw, err := hex.DecodeString(commitmentHex)
	if err != nil || len(raw) != len(pr.Commitment) {
		return model.PlayerRound{}, fmt.Errorf("commitment %q is not a 32-byte hex string", commitmentHex)
	}
	copy(pr.Commitment[:], raw)
	pr.CommitmentHex = commitmentHex
	pr.Tribe = model.Tribe(tribe)
	pr.StakeLamports = uint64(stake)
	pr.Slot = uint64(slot)
	pr.TxSig = txSig
	return pr, nil
}

func (s *Store) PutPlayerRound(ctx context.Context, pr model.PlayerRound) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO player_rounds (`+playerRoundColumns+`, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now())
		ON CONFLICT (round_id, player)
		DO UPDATE SET
			tribe = EXCLUDED.tribe,
			revealed = EXCLUDED.revealed,
			claimed = EXCLUDED.claimed,
			revealed_at = EXCLUDED.revealed_at,
			claimed_at = EXCLUDED.claimed_at,
			updated_at = now()
	`,
		pr.RoundID.String(), pr.Player.String(), pr.CommitmentHex, int16(pr.Tribe), int64(pr.StakeLamports),
		pr.Revealed, pr.Claimed, pr.CommittedAt, pr.RevealedAt, pr.ClaimedAt, int64(pr.Slot), pr.TxSig,
	)
	return err
}

func (s *Store) listPlayerRounds(ctx context.Context, query string, args ...any) ([]model.PlayerRound, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PlayerRound
	for rows.Next() {
		pr, err := scanPlayerRoundRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (s *Store) ListRoundEntries(ctx context.Context, round model.Address) ([]model.PlayerRound, error) {
	return s.listPlayerRounds(ctx,
		`SELECT`+playerRoundColumns+` FROM player_rounds WHERE round_id = $1 ORDER BY player`,
		round.String())
}

func (s *Store) ListPlayerRounds(ctx context.Context, player model.Address, limit int) ([]model.PlayerRound, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.listPlayerRounds(ctx,
		`SELECT`+playerRoundColumns+` FROM player_rounds WHERE player = $1 ORDER BY committed_at DESC LIMIT $2`,
		player.String(), limit)
}

func (s *Store) InsertClaim(ctx context.Context, c model.Claim) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO claims (tx_sig, log_index, round_id, player, amount_lamports, claimed_at, slot)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (tx_sig, log_index) DO NOTHING
	`,
		c.TxSig, int64(c.LogIndex), c.RoundID.String(), c.Player.String(),
		int64(c.AmountLamports), c.ClaimedAt, int64(c.Slot),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListClaims(ctx context.Context) ([]model.Claim, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT tx_sig, log_index, round_id, player, amount_lamports, claimed_at, slot
		FROM claims ORDER BY slot, tx_sig, log_index`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Claim
	for rows.Next() {
		var (
			c                model.Claim
			roundID, player  string
			logIndex, amount int64
			slot             int64
		)
		if err := rows.Scan(&c.TxSig, &logIndex, &roundID, &player, &amount, &c.ClaimedAt, &slot); err != nil {
			return nil, err
		}
		if c.RoundID, err = model.ParseAddress(roundID); err != nil {
			return nil, fmt.Errorf("round id %q: %w", roundID, err)
		}
		if c.Player, err = model.ParseAddress(player); err != nil {
			return nil, fmt.Errorf("player %q: %w", player, err)
		}
		c.LogIndex = uint64(logIndex)
		c.AmountLamports = uint64(amount)
		c.Slot = uint64(slot)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) InsertTreasuryFee(ctx context.Context, f model.TreasuryFee) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO treasury_fees (tx_sig, log_index, round_id, amount_lamports, collected_at, slot)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (tx_sig, log_index) DO NOTHING
	`,
		f.TxSig, int64(f.LogIndex), f.RoundID.String(),
		int64(f.AmountLamports), f.CollectedAt, int64(f.Slot),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) LoadCursor(ctx context.Context, name string) (model.Cursor, bool, error) {
	if name == "" {
		return model.Cursor{}, false, fmt.Errorf("cursor name required")
	}
	var (
		cur  model.Cursor
		slot int64
	)
	row := s.pool.QueryRow(ctx, `SELECT slot, tx_sig, updated_at::text FROM indexer_cursor WHERE name = $1`, name)
	if err := row.Scan(&slot, &cur.TxSig, &cur.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Cursor{}, false, nil
		}
		return model.Cursor{}, false, err
	}
	cur.Slot = uint64(slot)
	return cur, true, nil
}

func (s *Store) SaveCursor(ctx context.Context, name string, cur model.Cursor) error {
	if name == "" {
		return fmt.Errorf("cursor name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexer_cursor (name, slot, tx_sig, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (name) DO UPDATE
		SET slot = EXCLUDED.slot, tx_sig = EXCLUDED.tx_sig, updated_at = now()
	`, name, int64(cur.Slot), cur.TxSig)
	return err
}
