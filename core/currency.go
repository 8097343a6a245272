package core

import (
	"fmt"
	"strings"
)

type LedgerProtocol string

const (
	// ProtocolLegacy is the account-identifier ledger with a fixed fee.
	ProtocolLegacy LedgerProtocol = "legacy"
	// ProtocolTokenStandard is the structured-account ledger with caller supplied fees.
	ProtocolTokenStandard LedgerProtocol = "token_standard"
)

type Cryptocurrency string

const (
	InternetComputer Cryptocurrency = "ICP"
	SNS1             Cryptocurrency = "SNS1"
	CKBTC            Cryptocurrency = "ckBTC"
	CHAT             Cryptocurrency = "CHAT"
	KINIC            Cryptocurrency = "KINIC"
)

// DefaultLegacyFee is charged by the legacy ledger when a transfer leaves the fee unset.
const DefaultLegacyFee Tokens = 10_000

type tokenInfo struct {
	protocol LedgerProtocol
	decimals uint8
	fee      uint64
}

var tokenCatalogue = map[Cryptocurrency]tokenInfo{
	InternetComputer: {protocol: ProtocolLegacy, decimals: 8, fee: uint64(DefaultLegacyFee)},
	SNS1:             {protocol: ProtocolTokenStandard, decimals: 8, fee: 1_000},
	CKBTC:            {protocol: ProtocolTokenStandard, decimals: 8, fee: 10},
	CHAT:             {protocol: ProtocolTokenStandard, decimals: 8, fee: 100_000},
	KINIC:            {protocol: ProtocolTokenStandard, decimals: 8, fee: 100_000},
}

// Cryptocurrencies lists the supported tokens in a stable order.
func Cryptocurrencies() []Cryptocurrency {
	return []Cryptocurrency{InternetComputer, SNS1, CKBTC, CHAT, KINIC}
}

func ParseCryptocurrency(value string) (Cryptocurrency, error) {
	trimmed := strings.TrimSpace(value)
	for _, token := range Cryptocurrencies() {
		if strings.EqualFold(string(token), trimmed) {
			return token, nil
		}
	}
	if strings.EqualFold(trimmed, "internet_computer") || strings.EqualFold(trimmed, "internetcomputer") {
		return InternetComputer, nil
	}
	return "", fmt.Errorf("core: unsupported cryptocurrency %q", value)
}

func (c Cryptocurrency) Valid() bool {
	_, ok := tokenCatalogue[c]
	return ok
}

func (c Cryptocurrency) Symbol() string {
	return string(c)
}

func (c Cryptocurrency) Decimals() uint8 {
	return tokenCatalogue[c].decimals
}

// Protocol reports the token's native ledger protocol. Unknown tokens report
// the empty protocol and are rejected by the builder.
func (c Cryptocurrency) Protocol() LedgerProtocol {
	return tokenCatalogue[c].protocol
}

func (c Cryptocurrency) Fee() Units {
	return NewUnits(tokenCatalogue[c].fee)
}
