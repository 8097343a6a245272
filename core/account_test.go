package core

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
)

func TestPrincipal_TextVectors(t *testing.T) {
	cases := map[string]string{
		"2jvtu-yqaaa-aaaaq-aaama-cai": "00000000020000180101",
		"2ouva-viaaa-aaaaq-aaamq-cai": "00000000020000190101",
		"iywa7-ayaaa-aaaaf-aemga-cai": "0000000000a0230c0101",
		"ryjl3-tyaaa-aaaaa-aaaba-cai": "00000000000000020101",
		"rrkah-fqaaa-aaaaa-aaaaq-cai": "00000000000000010101",
		"2vxsx-fae":                   "04",
	}
	for text, rawHex := range cases {
		principal, err := ParsePrincipal(text)
		if err != nil {
			t.Fatalf("parse %s: %v", text, err)
		}
		if got := hex.EncodeToString(principal.Bytes()); got != rawHex {
			t.Fatalf("%s: expected bytes %s, got %s", text, rawHex, got)
		}
		raw, _ := hex.DecodeString(rawHex)
		fromBytes, err := PrincipalFromBytes(raw)
		if err != nil {
			t.Fatalf("%s: from bytes: %v", text, err)
		}
		if fromBytes.String() != text {
			t.Fatalf("expected %s, got %s", text, fromBytes.String())
		}
	}
}

func TestParsePrincipal_Rejects(t *testing.T) {
	for _, text := range []string{"", "not-a-principal", "2jvtu-yqaaa-aaaaq-aaama-caa", "2JVTU-YQAAA-AAAAQ-AAAMA-CAI-"} {
		if _, err := ParsePrincipal(text); !errors.Is(err, ErrInvalidPrincipal) {
			t.Fatalf("expected ErrInvalidPrincipal for %q, got %v", text, err)
		}
	}
	if _, err := PrincipalFromBytes(make([]byte, 30)); !errors.Is(err, ErrInvalidPrincipal) {
		t.Fatalf("expected oversize principal to be rejected, got %v", err)
	}
}

func TestPrincipal_JSON(t *testing.T) {
	payload, err := json.Marshal(struct {
		ID Principal `json:"id"`
	}{ID: testBot})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(payload) != `{"id":"iywa7-ayaaa-aaaaf-aemga-cai"}` {
		t.Fatalf("unexpected json %s", payload)
	}
	var decoded struct {
		ID Principal `json:"id"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ID != testBot {
		t.Fatalf("expected round trip to %s, got %s", testBot, decoded.ID)
	}
}

func TestDefaultLedgerAccount_Vectors(t *testing.T) {
	anonymous := MustParsePrincipal("2vxsx-fae")
	if got := DefaultLedgerAccount(anonymous).String(); got != "1c7a48ba6a562aa9eaa2481a9049cdf0433b9738c992d698c31d8abf89cadc79" {
		t.Fatalf("unexpected anonymous account id %s", got)
	}
	if got := DefaultLedgerAccount(testOther).String(); got != "883eef7c44be51afe4a4420d4df4beff708f3cf2f5de5efcc9f58680bb0f3690" {
		t.Fatalf("unexpected account id %s", got)
	}
	if got := DefaultLedgerAccount(testGovernance).String(); got != "a2200978cf15fa0d19b7c7eb75cc5d6d3ebabbacaec64a2a9a3f811277619c57" {
		t.Fatalf("unexpected account id %s", got)
	}
}

func TestParseAccountIdentifier(t *testing.T) {
	id := DefaultLedgerAccount(testGovernance)
	parsed, err := ParseAccountIdentifier(id.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed != id {
		t.Fatalf("expected %s, got %s", id, parsed)
	}
	corrupted := []byte(id.String())
	corrupted[0] = 'f'
	if corrupted[0] == id.String()[0] {
		corrupted[0] = '0'
	}
	if _, err := ParseAccountIdentifier(string(corrupted)); err == nil {
		t.Fatalf("expected checksum mismatch to be rejected")
	}
}

func TestConvertToSubaccount(t *testing.T) {
	sub := ConvertToSubaccount(testBot)
	if sub[0] != byte(len(testBot.Bytes())) {
		t.Fatalf("expected length prefix %d, got %d", len(testBot.Bytes()), sub[0])
	}
	if hex.EncodeToString(sub[1:11]) != "0000000000a0230c0101" {
		t.Fatalf("expected principal bytes after prefix, got %x", sub[1:11])
	}
	for _, b := range sub[11:] {
		if b != 0 {
			t.Fatalf("expected zero padding, got %x", sub)
		}
	}
}

func TestUserOrAccount(t *testing.T) {
	user := ToUser(testCaller)
	if got, ok := user.User(); !ok || got != testCaller {
		t.Fatalf("expected user recipient")
	}
	if user.AccountIdentifier() != DefaultLedgerAccount(testCaller) {
		t.Fatalf("expected user to resolve to its default account")
	}
	explicit := ToAccountIdentifier(DefaultLedgerAccount(testBot))
	if _, ok := explicit.User(); ok {
		t.Fatalf("expected account recipient")
	}
	if explicit.AccountIdentifier() != DefaultLedgerAccount(testBot) {
		t.Fatalf("expected explicit account to pass through")
	}
	if !(UserOrAccount{}).IsZero() {
		t.Fatalf("expected zero recipient")
	}
}

func TestAccount_String(t *testing.T) {
	if got := AccountOf(testBot).String(); got != testBot.String() {
		t.Fatalf("expected default account to render as owner, got %s", got)
	}
	sub := Subaccount{}
	sub[31] = 1
	account := Account{Owner: testBot, Subaccount: &sub}
	rendered := account.String()
	if len(rendered) <= len(testBot.String()) || rendered[len(rendered)-2:] != ".1" {
		t.Fatalf("expected checksum and trimmed subaccount suffix, got %s", rendered)
	}
}
