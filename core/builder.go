package core

import (
	"errors"
	"fmt"
)

var ErrUnsupportedProtocol = errors.New("core: unsupported ledger protocol")

// CreatePendingTransaction builds the protocol specific transfer for token.
// Legacy tokens narrow amount to the ledger's 64-bit unit and leave fee and
// memo unset; all other tokens carry amount and fee as raw units. No I/O.
func CreatePendingTransaction(
	token Cryptocurrency,
	ledger CanisterID,
	amount Units,
	fee Units,
	recipient UserID,
	now TimestampNanos,
) (PendingTransaction, error) {
	switch token.Protocol() {
	case ProtocolLegacy:
		native, err := TokensFromUnits(amount)
		if err != nil {
			return nil, err
		}
		return LegacyPendingTransaction{
			Ledger:  ledger,
			Token:   token,
			Amount:  native,
			To:      ToUser(recipient),
			Created: now,
		}, nil
	case ProtocolTokenStandard:
		return TokenStandardPendingTransaction{
			Ledger:  ledger,
			Token:   token,
			Amount:  amount,
			Fee:     fee,
			To:      AccountOf(recipient),
			Created: now,
		}, nil
	default:
		return nil, fmt.Errorf("%w: token %q", ErrUnsupportedProtocol, string(token))
	}
}
