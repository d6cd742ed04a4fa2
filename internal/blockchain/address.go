package blockchain

import (
	"errors"
	"fmt"

	"github.com/tonkeeper/tonapi-go"
	"github.com/tonkeeper/tongo"
	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/tlb"
	"github.com/tonkeeper/tongo/ton"
)

var ErrNoAddress = errors.New("no address")

// NormalizeAddress parses a raw or user-friendly address and returns its raw form.
func NormalizeAddress(address string) (string, error) {
	accountID, err := ton.ParseAccountID(address)
	if err != nil {
		return "", err
	}

	return accountID.ToRaw(), nil
}

// ReadAddressCell reads a MsgAddress from the beginning of cell. addr_none yields ErrNoAddress.
func ReadAddressCell(cell *boc.Cell) (ton.AccountID, error) {
	var address tlb.MsgAddress
	if err := tlb.Unmarshal(cell, &address); err != nil {
		return ton.AccountID{}, err
	}

	accountID, err := tongo.AccountIDFromTlb(address)
	if err != nil {
		return ton.AccountID{}, err
	}

	if accountID == nil {
		return ton.AccountID{}, ErrNoAddress
	}

	return *accountID, nil
}

func (r *StackReader) ReadAddress() (ton.AccountID, error) {
	cell, err := r.ReadCell()
	if err != nil {
		return ton.AccountID{}, err
	}

	return ReadAddressCell(cell)
}

// DecodeLastAddress interprets the last element of a get-method stack as an address.
func DecodeLastAddress(stack []tonapi.TvmStackRecord) (ton.AccountID, error) {
	if len(stack) == 0 {
		return ton.AccountID{}, fmt.Errorf("%w: empty stack", ErrStackUnderrun)
	}

	return NewStackReader(stack[len(stack)-1:]).ReadAddress()
}
