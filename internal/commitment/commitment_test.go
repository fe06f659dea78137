package commitment

import (
	"testing"

	"chocoLedger/internal/model"
)

func testAddress(b byte) model.Address {
	var a model.Address
	for i := range a {
		a[i] = b
	}
	return a
}

func TestCommitDeterministic(t *testing.T) {
	salt := Salt{1, 2, 3}
	player := testAddress(0xAA)
	round := testAddress(0xBB)

	first := Commit(model.TribeMilk, salt, player, round)
	second := Commit(model.TribeMilk, salt, player, round)

	if first != second {
		t.Fatalf("same inputs produced different hashes")
	}
}

func TestCommitInputSensitivity(t *testing.T) {
	salt := Salt{1, 2, 3}
	player := testAddress(0xAA)
	round := testAddress(0xBB)
	base := Commit(model.TribeMilk, salt, player, round)

	otherSalt := salt
	otherSalt[0] ^= 1

	cases := []struct {
		name string
		hash [32]byte
	}{
		{"tribe", Commit(model.TribeCacao, salt, player, round)},
		{"salt", Commit(model.TribeMilk, otherSalt, player, round)},
		{"player", Commit(model.TribeMilk, salt, testAddress(0xAB), round)},
		{"round", Commit(model.TribeMilk, salt, player, testAddress(0xBC))},
	}

	for _, tc := range cases {
		if tc.hash == base {
			t.Fatalf("changing %s did not change the hash", tc.name)
		}
	}
}

func TestVerify(t *testing.T) {
	salt := Salt{9, 9, 9}
	player := testAddress(1)
	round := testAddress(2)
	hash := Commit(model.TribeCacao, salt, player, round)

	if !Verify(hash, model.TribeCacao, salt, player, round) {
		t.Fatalf("verify rejected a valid reveal")
	}
	if Verify(hash, model.TribeMilk, salt, player, round) {
		t.Fatalf("verify accepted the wrong tribe")
	}
	var badSalt Salt
	if Verify(hash, model.TribeCacao, badSalt, player, round) {
		t.Fatalf("verify accepted the wrong salt")
	}
}
