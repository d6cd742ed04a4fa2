package blockchain

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/tonkeeper/tongo/boc"
	"github.com/tonkeeper/tongo/tlb"
)

var ErrNoCode = errors.New("state init has no code")

// StateInitCodeHash returns the lower case hex hash of the code cell carried by a serialized StateInit.
func StateInitCodeHash(stateInit string) (string, error) {
	cells, err := boc.DeserializeBocHex(stateInit)
	if err != nil {
		cells, err = boc.DeserializeBocBase64(stateInit)
		if err != nil {
			return "", fmt.Errorf("state init: %w", err)
		}
	}

	if len(cells) == 0 {
		return "", fmt.Errorf("state init: empty boc")
	}

	var parsed tlb.StateInit
	if err = tlb.Unmarshal(cells[0], &parsed); err != nil {
		return "", fmt.Errorf("state init: %w", err)
	}

	if !parsed.Code.Exists {
		return "", ErrNoCode
	}

	hash, err := parsed.Code.Value.Value.Hash()
	if err != nil {
		return "", fmt.Errorf("state init: code hash: %w", err)
	}

	return hex.EncodeToString(hash), nil
}
