package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"

	"raffleworker/internal/blockchain"

	"github.com/tonkeeper/tonapi-go"
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/tlb"
	"github.com/tonkeeper/tongo/ton"
)

// AccountID derives a deterministic basechain account from seed.
func AccountID(seed string) ton.AccountID {
	return ton.AccountID{Workchain: 0, Address: sha256.Sum256([]byte(seed))}
}

func NumRecord(value uint64) tonapi.TvmStackRecord {
	return tonapi.TvmStackRecord{
		Type: tonapi.TvmStackRecordTypeNum,
		Num:  tonapi.NewOptString(fmt.Sprintf("0x%x", value)),
	}
}

func NullRecord() tonapi.TvmStackRecord {
	return tonapi.TvmStackRecord{Type: tonapi.TvmStackRecordTypeNull}
}

func CellRecord(t testing.TB, cell *boc.Cell) tonapi.TvmStackRecord {
	t.Helper()

	return tonapi.TvmStackRecord{
		Type: tonapi.TvmStackRecordTypeCell,
		Cell: tonapi.NewOptString(BocHex(t, cell)),
	}
}

func BocHex(t testing.TB, cell *boc.Cell) string {
	t.Helper()

	bytes, err := cell.ToBoc()
	if err != nil {
		t.Fatalf("failed to serialize cell: %v", err)
	}

	return hex.EncodeToString(bytes)
}

func ConditionsRecord(t testing.TB, conditions blockchain.RaffleConditions) tonapi.TvmStackRecord {
	t.Helper()

	cell, err := blockchain.EncodeConditions(conditions)
	if err != nil {
		t.Fatalf("failed to encode conditions: %v", err)
	}

	return CellRecord(t, cell)
}

func AddressRecord(t testing.TB, accountID ton.AccountID) tonapi.TvmStackRecord {
	t.Helper()

	cell := boc.NewCell()
	if err := tlb.Marshal(cell, accountID.ToMsgAddress()); err != nil {
		t.Fatalf("failed to marshal address: %v", err)
	}

	return CellRecord(t, cell)
}

// StateInit serializes a StateInit carrying only code and returns it with the code hash.
func StateInit(t testing.TB, codeSeed uint64) (stateInit string, codeHash string) {
	t.Helper()

	code := boc.NewCell()
	if err := code.WriteUint(codeSeed, 64); err != nil {
		t.Fatalf("failed to write code: %v", err)
	}

	hash, err := code.Hash()
	if err != nil {
		t.Fatalf("failed to hash code: %v", err)
	}

	root := boc.NewCell()
	for _, bit := range []bool{false, false, true, false, false} {
		if err := root.WriteBit(bit); err != nil {
			t.Fatalf("failed to write state init: %v", err)
		}
	}

	if err := root.AddRef(code); err != nil {
		t.Fatalf("failed to add code ref: %v", err)
	}

	return BocHex(t, root), hex.EncodeToString(hash)
}

type RaffleStack struct {
	MinCandidateQuantity        uint64
	ConditionsDuration          uint64
	Conditions                  blockchain.RaffleConditions
	MinCandidateReachedLt       uint64
	MinCandidateReachedUnixTime uint64
	CandidatesQuantity          uint64
	ParticipantsQuantity        uint64
	WinnersQuantity             uint64
}

// Records returns the full eight element raffleData stack.
func (s RaffleStack) Records(t testing.TB) []tonapi.TvmStackRecord {
	t.Helper()

	return []tonapi.TvmStackRecord{
		NumRecord(s.MinCandidateQuantity),
		NumRecord(s.ConditionsDuration),
		ConditionsRecord(t, s.Conditions),
		NumRecord(s.MinCandidateReachedLt),
		NumRecord(s.MinCandidateReachedUnixTime),
		NumRecord(s.CandidatesQuantity),
		NumRecord(s.ParticipantsQuantity),
		NumRecord(s.WinnersQuantity),
	}
}
