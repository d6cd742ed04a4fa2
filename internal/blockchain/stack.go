package blockchain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/tonkeeper/tonapi-go"
	"github.com/tonkeeper/tongo/boc"
)

var (
	ErrStackUnderrun       = errors.New("stack underrun")
	ErrUnexpectedStackItem = errors.New("unexpected stack item")
	ErrNumberOutOfRange    = errors.New("number out of range")
)

// StackReader walks a get-method result stack in positional order.
type StackReader struct {
	records  []tonapi.TvmStackRecord
	position int
}

func NewStackReader(records []tonapi.TvmStackRecord) *StackReader {
	return &StackReader{records: records}
}

func (r *StackReader) Len() int {
	return len(r.records)
}

func (r *StackReader) Remaining() int {
	return len(r.records) - r.position
}

func (r *StackReader) next() (tonapi.TvmStackRecord, error) {
	if r.Remaining() <= 0 {
		return tonapi.TvmStackRecord{}, fmt.Errorf("%w: position %d, stack length %d", ErrStackUnderrun, r.position, len(r.records))
	}

	record := r.records[r.position]
	r.position++
	return record, nil
}

// optional reports whether an optional field is present and consumes a null record standing for it.
func (r *StackReader) optional() bool {
	if r.Remaining() <= 0 {
		return false
	}

	if r.records[r.position].Type == tonapi.TvmStackRecordTypeNull {
		r.position++
		return false
	}

	return true
}

func (r *StackReader) ReadNum() (*big.Int, error) {
	position := r.position
	record, err := r.next()
	if err != nil {
		return nil, err
	}

	value, ok := record.Num.Get()
	if !ok {
		return nil, fmt.Errorf("%w: position %d is %q, num expected", ErrUnexpectedStackItem, position, record.Type)
	}

	number, ok := new(big.Int).SetString(value, 0)
	if !ok {
		return nil, fmt.Errorf("%w: position %d holds malformed num %q", ErrUnexpectedStackItem, position, value)
	}

	return number, nil
}

func (r *StackReader) ReadUint64() (uint64, error) {
	number, err := r.ReadNum()
	if err != nil {
		return 0, err
	}

	if !number.IsUint64() {
		return 0, fmt.Errorf("%w: %s", ErrNumberOutOfRange, number)
	}

	return number.Uint64(), nil
}

func (r *StackReader) ReadInt64() (int64, error) {
	number, err := r.ReadNum()
	if err != nil {
		return 0, err
	}

	if !number.IsInt64() {
		return 0, fmt.Errorf("%w: %s", ErrNumberOutOfRange, number)
	}

	return number.Int64(), nil
}

// ReadOptionalUint64 returns ok == false when the stack ends before the field or the field is null.
func (r *StackReader) ReadOptionalUint64() (value uint64, ok bool, err error) {
	if !r.optional() {
		return 0, false, nil
	}

	value, err = r.ReadUint64()
	return value, err == nil, err
}

func (r *StackReader) ReadOptionalInt64() (value int64, ok bool, err error) {
	if !r.optional() {
		return 0, false, nil
	}

	value, err = r.ReadInt64()
	return value, err == nil, err
}

func (r *StackReader) ReadCell() (*boc.Cell, error) {
	position := r.position
	record, err := r.next()
	if err != nil {
		return nil, err
	}

	value, ok := record.Cell.Get()
	if !ok {
		return nil, fmt.Errorf("%w: position %d is %q, cell expected", ErrUnexpectedStackItem, position, record.Type)
	}

	cells, err := boc.DeserializeBocHex(value)
	if err != nil {
		return nil, fmt.Errorf("position %d: %w", position, err)
	}

	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: position %d holds an empty boc", ErrUnexpectedStackItem, position)
	}

	return cells[0], nil
}

func (r *StackReader) ReadOptionalCell() (*boc.Cell, bool, error) {
	if !r.optional() {
		return nil, false, nil
	}

	cell, err := r.ReadCell()
	return cell, err == nil, err
}
