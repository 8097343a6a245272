package core

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// TransactionHashVersion identifies the canonical record layout below. Any
// change to field keys, order or string rendering must bump it, since
// external verifiers recompute the digest independently.
const TransactionHashVersion = 1

var ErrCreatedAtTimeRequired = errors.New("core: created_at_time must be set before hashing")

const operationTransfer uint = 2

type TransactionHash [sha256.Size]byte

func (h TransactionHash) String() string {
	return hex.EncodeToString(h[:])
}

func (h TransactionHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *TransactionHash) UnmarshalText(text []byte) error {
	decoded, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("core: invalid transaction hash: %w", err)
	}
	if len(decoded) != len(h) {
		return fmt.Errorf("core: invalid transaction hash length %d", len(decoded))
	}
	copy(h[:], decoded)
	return nil
}

type hashTokens struct {
	E8s uint64 `cbor:"0,keyasint"`
}

type hashTimestamp struct {
	Nanos uint64 `cbor:"0,keyasint"`
}

type hashTransfer struct {
	From   string     `cbor:"0,keyasint"`
	To     string     `cbor:"1,keyasint"`
	Amount hashTokens `cbor:"2,keyasint"`
	Fee    hashTokens `cbor:"3,keyasint"`
}

// hashTransaction is the canonical record. The operation is a single entry
// map keyed by the variant index (burn=0, mint=1, transfer=2).
type hashTransaction struct {
	Operation     map[uint]hashTransfer `cbor:"0,keyasint"`
	Memo          uint64                `cbor:"1,keyasint"`
	CreatedAtTime hashTimestamp         `cbor:"2,keyasint"`
}

var hashEncMode = mustHashEncMode()

func mustHashEncMode() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("core: build transaction hash encoder: %v", err))
	}
	return mode
}

// CalculateTransactionHash digests the canonical encoding of a legacy transfer
// sent by sender. args.CreatedAtTime is required.
func CalculateTransactionHash(sender Principal, args LegacyTransferArgs) (TransactionHash, error) {
	encoded, err := canonicalTransaction(sender, args)
	if err != nil {
		return TransactionHash{}, err
	}
	return sha256.Sum256(encoded), nil
}

func canonicalTransaction(sender Principal, args LegacyTransferArgs) ([]byte, error) {
	if args.CreatedAtTime == nil {
		return nil, ErrCreatedAtTimeRequired
	}
	fromSubaccount := DefaultSubaccount
	if args.FromSubaccount != nil {
		fromSubaccount = *args.FromSubaccount
	}
	record := hashTransaction{
		Operation: map[uint]hashTransfer{
			operationTransfer: {
				From:   NewAccountIdentifier(sender, fromSubaccount).String(),
				To:     args.To.String(),
				Amount: hashTokens{E8s: uint64(args.Amount)},
				Fee:    hashTokens{E8s: uint64(args.Fee)},
			},
		},
		Memo:          uint64(args.Memo),
		CreatedAtTime: hashTimestamp{Nanos: uint64(*args.CreatedAtTime)},
	}
	encoded, err := hashEncMode.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("core: encode transaction: %w", err)
	}
	return encoded, nil
}
