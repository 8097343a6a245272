package core

import (
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"strings"
)

const maxPrincipalLength = 29

var ErrInvalidPrincipal = errors.New("core: invalid principal")

var principalEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Principal is an opaque ledger identity. The zero value is the empty
// principal and is rejected wherever an identity is required.
type Principal struct {
	raw string
}

// CanisterID identifies a remote service (ledger, governance, bot).
type CanisterID = Principal

// UserID identifies the acting user account.
type UserID = Principal

func PrincipalFromBytes(raw []byte) (Principal, error) {
	if len(raw) > maxPrincipalLength {
		return Principal{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidPrincipal, len(raw), maxPrincipalLength)
	}
	return Principal{raw: string(raw)}, nil
}

func ParsePrincipal(text string) (Principal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Principal{}, fmt.Errorf("%w: empty text", ErrInvalidPrincipal)
	}
	compact := strings.ToUpper(strings.ReplaceAll(text, "-", ""))
	decoded, err := principalEncoding.DecodeString(compact)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidPrincipal, err)
	}
	if len(decoded) < 4 {
		return Principal{}, fmt.Errorf("%w: missing checksum", ErrInvalidPrincipal)
	}
	principal, err := PrincipalFromBytes(decoded[4:])
	if err != nil {
		return Principal{}, err
	}
	if binary.BigEndian.Uint32(decoded[:4]) != crc32.ChecksumIEEE(decoded[4:]) {
		return Principal{}, fmt.Errorf("%w: checksum mismatch", ErrInvalidPrincipal)
	}
	if principal.String() != strings.ToLower(text) {
		return Principal{}, fmt.Errorf("%w: %q is not in canonical form", ErrInvalidPrincipal, text)
	}
	return principal, nil
}

// MustParsePrincipal panics on malformed input; intended for constants.
func MustParsePrincipal(text string) Principal {
	principal, err := ParsePrincipal(text)
	if err != nil {
		panic(err)
	}
	return principal
}

func (p Principal) Bytes() []byte {
	return []byte(p.raw)
}

func (p Principal) IsZero() bool {
	return p.raw == ""
}

// String renders the dash grouped, checksummed base32 form.
func (p Principal) String() string {
	payload := make([]byte, 4, 4+len(p.raw))
	binary.BigEndian.PutUint32(payload, crc32.ChecksumIEEE([]byte(p.raw)))
	payload = append(payload, p.raw...)
	encoded := strings.ToLower(principalEncoding.EncodeToString(payload))

	var out strings.Builder
	for i := 0; i < len(encoded); i += 5 {
		if i > 0 {
			out.WriteByte('-')
		}
		end := min(i+5, len(encoded))
		out.WriteString(encoded[i:end])
	}
	return out.String()
}

func (p Principal) MarshalText() ([]byte, error) {
	if p.IsZero() {
		return []byte{}, nil
	}
	return []byte(p.String()), nil
}

func (p *Principal) UnmarshalText(text []byte) error {
	if len(strings.TrimSpace(string(text))) == 0 {
		*p = Principal{}
		return nil
	}
	parsed, err := ParsePrincipal(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
