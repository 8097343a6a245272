package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"strings"
)

const accountDomainSeparator = "\x0Aaccount-id"

type Subaccount [32]byte

var DefaultSubaccount Subaccount

func (s Subaccount) IsDefault() bool {
	return s == DefaultSubaccount
}

func (s Subaccount) MarshalText() ([]byte, error) {
	return []byte(hex.EncodeToString(s[:])), nil
}

func (s *Subaccount) UnmarshalText(text []byte) error {
	decoded, err := hex.DecodeString(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("core: invalid subaccount: %w", err)
	}
	if len(decoded) != len(Subaccount{}) {
		return fmt.Errorf("core: invalid subaccount length %d", len(decoded))
	}
	copy(s[:], decoded)
	return nil
}

// ConvertToSubaccount embeds a principal into a subaccount: byte 0 holds the
// principal length, the principal bytes follow, the rest is zero.
func ConvertToSubaccount(principal Principal) Subaccount {
	var subaccount Subaccount
	raw := principal.Bytes()
	subaccount[0] = byte(len(raw))
	copy(subaccount[1:], raw)
	return subaccount
}

// AccountIdentifier is the legacy ledger address: a CRC32 checksum followed
// by SHA-224(domain separator, principal, subaccount).
type AccountIdentifier [32]byte

func NewAccountIdentifier(owner Principal, subaccount Subaccount) AccountIdentifier {
	hasher := sha256.New224()
	hasher.Write([]byte(accountDomainSeparator))
	hasher.Write(owner.Bytes())
	hasher.Write(subaccount[:])
	digest := hasher.Sum(nil)

	var id AccountIdentifier
	binary.BigEndian.PutUint32(id[:4], crc32.ChecksumIEEE(digest))
	copy(id[4:], digest)
	return id
}

func DefaultLedgerAccount(principal Principal) AccountIdentifier {
	return NewAccountIdentifier(principal, DefaultSubaccount)
}

func ParseAccountIdentifier(text string) (AccountIdentifier, error) {
	decoded, err := hex.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return AccountIdentifier{}, fmt.Errorf("core: invalid account identifier: %w", err)
	}
	if len(decoded) != len(AccountIdentifier{}) {
		return AccountIdentifier{}, fmt.Errorf("core: invalid account identifier length %d", len(decoded))
	}
	if binary.BigEndian.Uint32(decoded[:4]) != crc32.ChecksumIEEE(decoded[4:]) {
		return AccountIdentifier{}, fmt.Errorf("core: account identifier checksum mismatch")
	}
	var id AccountIdentifier
	copy(id[:], decoded)
	return id, nil
}

// String renders the lowercase hex form used by ledgers and the transaction hash.
func (a AccountIdentifier) String() string {
	return hex.EncodeToString(a[:])
}

func (a AccountIdentifier) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *AccountIdentifier) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountIdentifier(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Account is the structured token-standard address.
type Account struct {
	Owner      Principal   `json:"owner"`
	Subaccount *Subaccount `json:"subaccount,omitempty"`
}

func AccountOf(owner Principal) Account {
	return Account{Owner: owner}
}

// String follows the token-standard textual encoding: the owner alone for the
// default subaccount, otherwise owner-checksum.subaccount-hex.
func (a Account) String() string {
	if a.Subaccount == nil || a.Subaccount.IsDefault() {
		return a.Owner.String()
	}
	sub := a.Subaccount[:]
	checksumInput := append(append([]byte{}, a.Owner.Bytes()...), sub...)
	var checksum [4]byte
	binary.BigEndian.PutUint32(checksum[:], crc32.ChecksumIEEE(checksumInput))
	encodedChecksum := strings.ToLower(principalEncoding.EncodeToString(checksum[:]))
	subHex := strings.TrimLeft(hex.EncodeToString(sub), "0")
	return a.Owner.String() + "-" + encodedChecksum + "." + subHex
}

type recipientKind uint8

const (
	recipientUser recipientKind = iota + 1
	recipientAccount
)

// UserOrAccount is the legacy recipient union: either a user whose default
// ledger account receives the funds or an explicit account identifier.
type UserOrAccount struct {
	kind    recipientKind
	user    UserID
	account AccountIdentifier
}

func ToUser(user UserID) UserOrAccount {
	return UserOrAccount{kind: recipientUser, user: user}
}

func ToAccountIdentifier(account AccountIdentifier) UserOrAccount {
	return UserOrAccount{kind: recipientAccount, account: account}
}

func (r UserOrAccount) User() (UserID, bool) {
	return r.user, r.kind == recipientUser
}

func (r UserOrAccount) IsZero() bool {
	return r.kind == 0
}

// AccountIdentifier resolves the recipient to the address the ledger credits.
func (r UserOrAccount) AccountIdentifier() AccountIdentifier {
	if r.kind == recipientUser {
		return DefaultLedgerAccount(r.user)
	}
	return r.account
}
