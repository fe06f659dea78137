package decode

import (
	"encoding/base64"
	"encoding/binary"
	"reflect"
	"testing"

	"chocoLedger/internal/model"
)

func addr(b byte) model.Address {
	var a model.Address
	a[0] = b
	return a
}

// enc builds a Borsh event payload: discriminator, then little-endian fields.
type enc struct{ buf []byte }

func (e *enc) disc(name string) *enc {
	d := Discriminator(name)
	e.buf = append(e.buf, d[:]...)
	return e
}
func (e *enc) raw(b []byte) *enc { e.buf = append(e.buf, b...); return e }
func (e *enc) u8(v uint8) *enc   { e.buf = append(e.buf, v); return e }
func (e *enc) u16(v uint16) *enc { e.buf = binary.LittleEndian.AppendUint16(e.buf, v); return e }
func (e *enc) u32(v uint32) *enc { e.buf = binary.LittleEndian.AppendUint32(e.buf, v); return e }
func (e *enc) u64(v uint64) *enc { e.buf = binary.LittleEndian.AppendUint64(e.buf, v); return e }
func (e *enc) i64(v int64) *enc  { return e.u64(uint64(v)) }

func (e *enc) line() string {
	return "Program data: " + base64.StdEncoding.EncodeToString(e.buf)
}

func TestDecodeLogsRoundTrip(t *testing.T) {
	round, player := addr(1), addr(2)
	var hash [32]byte
	hash[31] = 9

	logs := []string{
		"Program ChoCo1111 invoke [1]",
		(&enc{}).disc("RoundCreated").raw(round[:]).u64(5_000_000_000).i64(1_700_000_000).i64(1_700_000_600).u16(250).line(),
		(&enc{}).disc("MeowCommitted").raw(round[:]).raw(player[:]).raw(hash[:]).u64(5_000_000_000).line(),
		(&enc{}).disc("MeowRevealed").raw(round[:]).raw(player[:]).u8(2).line(),
		(&enc{}).disc("RoundMeowed").raw(round[:]).u8(1).u8(1).u32(3).u32(5).u64(15).u64(25).line(),
		(&enc{}).disc("TreatClaimed").raw(round[:]).raw(player[:]).u64(15).line(),
		(&enc{}).disc("FeeCollected").raw(round[:]).u64(450).line(),
		"Program ChoCo1111 success",
	}

	events, failures := DecodeLogs(42, "sig-1", 1_700_000_700, logs)
	if len(failures) != 0 {
		t.Fatalf("failures: %+v", failures)
	}

	want := []model.Event{
		model.RoundCreated{RoundID: round, StakeLamports: 5_000_000_000, CommitDeadline: 1_700_000_000, RevealDeadline: 1_700_000_600, FeeBps: 250},
		model.MeowCommitted{RoundID: round, Player: player, Commitment: hash, StakeLamports: 5_000_000_000},
		model.MeowRevealed{RoundID: round, Player: player, Tribe: model.TribeCacao},
		model.RoundMeowed{RoundID: round, Winner: model.TribeMilk, MilkCount: 3, CacaoCount: 5, MilkPool: 15, CacaoPool: 25},
		model.TreatClaimed{RoundID: round, Player: player, AmountLamports: 15},
		model.FeeCollected{RoundID: round, AmountLamports: 450},
	}
	if len(events) != len(want) {
		t.Fatalf("decoded %d events, want %d", len(events), len(want))
	}
	for i, env := range events {
		if env.Slot != 42 || env.TxSig != "sig-1" || env.BlockTime != 1_700_000_700 {
			t.Fatalf("event %d coordinate: %+v", i, env)
		}
		if env.LogIndex != uint64(i) {
			t.Fatalf("event %d log index = %d", i, env.LogIndex)
		}
		if !reflect.DeepEqual(env.Event, want[i]) {
			t.Fatalf("event %d:\n got %+v\nwant %+v", i, env.Event, want[i])
		}
	}
}

func TestDecodeLogsTieWinner(t *testing.T) {
	round := addr(1)
	line := (&enc{}).disc("RoundMeowed").raw(round[:]).u8(0).u32(2).u32(2).u64(10).u64(10).line()

	events, failures := DecodeLogs(1, "sig", 0, []string{line})
	if len(failures) != 0 || len(events) != 1 {
		t.Fatalf("events=%d failures=%+v", len(events), failures)
	}
	ev := events[0].Event.(model.RoundMeowed)
	if ev.Winner != model.TribeNone {
		t.Fatalf("winner = %v, want none", ev.Winner)
	}
}

func TestDecodeLogsSkipsUnknownDiscriminator(t *testing.T) {
	line := (&enc{}).disc("SomeOtherEvent").u64(1).line()
	events, failures := DecodeLogs(1, "sig", 0, []string{line})
	if len(events) != 0 || len(failures) != 0 {
		t.Fatalf("unknown discriminator should be skipped silently: events=%d failures=%d", len(events), len(failures))
	}
}

func TestDecodeLogsMalformed(t *testing.T) {
	round := addr(1)
	cases := []struct {
		name string
		line string
	}{
		{"bad base64", "Program data: !!not-base64!!"},
		{"short payload", "Program data: " + base64.StdEncoding.EncodeToString([]byte{1, 2, 3})},
		{"truncated body", (&enc{}).disc("RoundCreated").raw(round[:8]).line()},
		{"trailing bytes", (&enc{}).disc("FeeCollected").raw(round[:]).u64(1).u8(0xff).line()},
		{"bad tribe tag", (&enc{}).disc("MeowRevealed").raw(round[:]).raw(round[:]).u8(7).line()},
		{"bad option flag", (&enc{}).disc("RoundMeowed").raw(round[:]).u8(9).u32(0).u32(0).u64(0).u64(0).line()},
	}
	for _, tc := range cases {
		events, failures := DecodeLogs(3, "sig-m", 0, []string{tc.line})
		if len(events) != 0 {
			t.Fatalf("%s: decoded %d events", tc.name, len(events))
		}
		if len(failures) != 1 {
			t.Fatalf("%s: failures = %+v", tc.name, failures)
		}
		if failures[0].TxSig != "sig-m" || failures[0].Slot != 3 {
			t.Fatalf("%s: bad coordinate %+v", tc.name, failures[0])
		}
	}
}

func TestDecodeLogsIndexCountsPayloadLinesOnly(t *testing.T) {
	round := addr(1)
	logs := []string{
		"Program log: meow",
		(&enc{}).disc("FeeCollected").raw(round[:]).u64(1).line(),
		"Program log: meow again",
		(&enc{}).disc("FeeCollected").raw(round[:]).u64(2).line(),
	}
	events, _ := DecodeLogs(1, "sig", 0, logs)
	if len(events) != 2 || events[0].LogIndex != 0 || events[1].LogIndex != 1 {
		t.Fatalf("log indexes: %+v", events)
	}
}
