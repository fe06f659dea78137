// Package decode turns raw transaction log lines into typed events. Anchor
// emits events as "Program data: <base64>" log lines whose payload starts
// with an 8-byte discriminator, sha256("event:" + Name)[:8], followed by the
// Borsh-encoded fields in little-endian order.
package decode

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"chocoLedger/internal/model"
)

const programDataPrefix = "Program data: "

// Discriminator returns the 8-byte event tag for an Anchor event name.
func Discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("event:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

var (
	discRoundCreated  = Discriminator("RoundCreated")
	discMeowCommitted = Discriminator("MeowCommitted")
	discMeowRevealed  = Discriminator("MeowRevealed")
	discRoundMeowed   = Discriminator("RoundMeowed")
	discTreatClaimed  = Discriminator("TreatClaimed")
	discFeeCollected  = Discriminator("FeeCollected")
)

// DecodeLogs scans a transaction's log lines for program events. Lines that
// are not event payloads and payloads with unknown discriminators are
// skipped; payloads that carry a known discriminator but fail to parse are
// reported as decode errors so the feed can keep moving.
func DecodeLogs(slot uint64, txSig string, blockTime int64, logs []string) ([]model.Envelope, []model.DecodeError) {
	var (
		events   []model.Envelope
		failures []model.DecodeError
		logIndex uint64
	)
	for _, line := range logs {
		payload, ok := strings.CutPrefix(line, programDataPrefix)
		if !ok {
			continue
		}
		idx := logIndex
		logIndex++

		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			failures = append(failures, model.DecodeError{
				Slot: slot, TxSig: txSig, LogIndex: idx,
				Error: fmt.Sprintf("base64: %v", err),
			})
			continue
		}
		if len(raw) < 8 {
			failures = append(failures, model.DecodeError{
				Slot: slot, TxSig: txSig, LogIndex: idx,
				Error: fmt.Sprintf("payload too short: %d bytes", len(raw)),
			})
			continue
		}

		var disc [8]byte
		copy(disc[:], raw[:8])
		event, err := decodeEvent(disc, raw[8:])
		if err == errUnknownDiscriminator {
			// Another program's event, or a version we do not track.
			continue
		}
		if err != nil {
			failures = append(failures, model.DecodeError{
				Slot: slot, TxSig: txSig, LogIndex: idx,
				Discriminator: hex.EncodeToString(disc[:]),
				Error:         err.Error(),
			})
			continue
		}

		events = append(events, model.Envelope{
			Slot:      slot,
			TxSig:     txSig,
			LogIndex:  idx,
			BlockTime: blockTime,
			Event:     event,
		})
	}
	return events, failures
}

var errUnknownDiscriminator = fmt.Errorf("unknown discriminator")

func decodeEvent(disc [8]byte, body []byte) (model.Event, error) {
	switch disc {
	case discRoundCreated:
		return decodeRoundCreated(body)
	case discMeowCommitted:
		return decodeMeowCommitted(body)
	case discMeowRevealed:
		return decodeMeowRevealed(body)
	case discRoundMeowed:
		return decodeRoundMeowed(body)
	case discTreatClaimed:
		return decodeTreatClaimed(body)
	case discFeeCollected:
		return decodeFeeCollected(body)
	default:
		return nil, errUnknownDiscriminator
	}
}

// reader is a cursor over a Borsh body. Reads past the end set fail; the
// caller checks it once at the end instead of after every field.
type reader struct {
	buf  []byte
	off  int
	fail bool
}

func (r *reader) bytes(n int) []byte {
	if r.fail || r.off+n > len(r.buf) {
		r.fail = true
		return make([]byte, n)
	}
	out := r.buf[r.off : r.off+n]
	r.off += n
	return out
}

func (r *reader) address() model.Address {
	var a model.Address
	copy(a[:], r.bytes(32))
	return a
}

func (r *reader) hash() [32]byte {
	var h [32]byte
	copy(h[:], r.bytes(32))
	return h
}

func (r *reader) u8() uint8   { return r.bytes(1)[0] }
func (r *reader) u16() uint16 { return binary.LittleEndian.Uint16(r.bytes(2)) }
func (r *reader) u32() uint32 { return binary.LittleEndian.Uint32(r.bytes(4)) }
func (r *reader) u64() uint64 { return binary.LittleEndian.Uint64(r.bytes(8)) }
func (r *reader) i64() int64  { return int64(r.u64()) }

// optionU8 reads a Borsh Option<u8>: a presence flag byte, then the value.
func (r *reader) optionU8() (uint8, bool) {
	switch flag := r.u8(); flag {
	case 0:
		return 0, false
	case 1:
		return r.u8(), true
	default:
		r.fail = true
		return 0, false
	}
}

func (r *reader) done(name string) error {
	if r.fail {
		return fmt.Errorf("%s: truncated body (%d bytes)", name, len(r.buf))
	}
	if r.off != len(r.buf) {
		return fmt.Errorf("%s: %d trailing bytes", name, len(r.buf)-r.off)
	}
	return nil
}

func decodeRoundCreated(body []byte) (model.Event, error) {
	r := &reader{buf: body}
	ev := model.RoundCreated{
		RoundID:        r.address(),
		StakeLamports:  r.u64(),
		CommitDeadline: r.i64(),
		RevealDeadline: r.i64(),
		FeeBps:         r.u16(),
	}
	if err := r.done("RoundCreated"); err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeMeowCommitted(body []byte) (model.Event, error) {
	r := &reader{buf: body}
	ev := model.MeowCommitted{
		RoundID:       r.address(),
		Player:        r.address(),
		Commitment:    r.hash(),
		StakeLamports: r.u64(),
	}
	if err := r.done("MeowCommitted"); err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeMeowRevealed(body []byte) (model.Event, error) {
	r := &reader{buf: body}
	ev := model.MeowRevealed{
		RoundID: r.address(),
		Player:  r.address(),
		Tribe:   model.Tribe(r.u8()),
	}
	if err := r.done("MeowRevealed"); err != nil {
		return nil, err
	}
	if ev.Tribe != model.TribeMilk && ev.Tribe != model.TribeCacao {
		return nil, fmt.Errorf("MeowRevealed: invalid tribe tag %d", ev.Tribe)
	}
	return ev, nil
}

func decodeRoundMeowed(body []byte) (model.Event, error) {
	r := &reader{buf: body}
	ev := model.RoundMeowed{RoundID: r.address()}
	if tag, ok := r.optionU8(); ok {
		ev.Winner = model.Tribe(tag)
	}
	ev.MilkCount = r.u32()
	ev.CacaoCount = r.u32()
	ev.MilkPool = r.u64()
	ev.CacaoPool = r.u64()
	if err := r.done("RoundMeowed"); err != nil {
		return nil, err
	}
	if ev.Winner != model.TribeNone && ev.Winner != model.TribeMilk && ev.Winner != model.TribeCacao {
		return nil, fmt.Errorf("RoundMeowed: invalid winner tag %d", ev.Winner)
	}
	return ev, nil
}

func decodeTreatClaimed(body []byte) (model.Event, error) {
	r := &reader{buf: body}
	ev := model.TreatClaimed{
		RoundID:        r.address(),
		Player:         r.address(),
		AmountLamports: r.u64(),
	}
	if err := r.done("TreatClaimed"); err != nil {
		return nil, err
	}
	return ev, nil
}

func decodeFeeCollected(body []byte) (model.Event, error) {
	r := &reader{buf: body}
	ev := model.FeeCollected{
		RoundID:        r.address(),
		AmountLamports: r.u64(),
	}
	if err := r.done("FeeCollected"); err != nil {
		return nil, err
	}
	return ev, nil
}
