package gateway

import (
	"strings"
	"testing"
)

func TestCanonicalizeSortsAndEncodes(t *testing.T) {
	p := Params{
		"m_payment_id": "ORD-1",
		"amount":       "100.00",
		"item_name":    "Gift Card 50",
	}
	got := Canonicalize(p, "")
	want := "amount=100.00&item_name=Gift+Card+50&m_payment_id=ORD-1"
	if got != want {
		t.Fatalf("Canonicalize got %q want %q", got, want)
	}
}

func TestCanonicalizeDropsEmptyFields(t *testing.T) {
	p := Params{
		"a": "1",
		"b": "",
		"c": "2",
	}
	got := Canonicalize(p, "")
	want := "a=1&c=2"
	if got != want {
		t.Fatalf("Canonicalize got %q want %q", got, want)
	}
}

func TestCanonicalizePassphrase(t *testing.T) {
	p := Params{"a": "1"}

	if got := Canonicalize(p, "  secret pass  "); got != "a=1&passphrase=secret+pass" {
		t.Fatalf("trimmed passphrase: got %q", got)
	}
	// Whitespace-only passphrase is treated as unset.
	if got := Canonicalize(p, "   "); got != "a=1" {
		t.Fatalf("blank passphrase: got %q", got)
	}
	if got := Canonicalize(Params{}, "x"); got != "passphrase=x" {
		t.Fatalf("empty params with passphrase: got %q", got)
	}
}

func TestCanonicalizeEncodesReservedCharacters(t *testing.T) {
	p := Params{"note": "a=b&c d"}
	got := Canonicalize(p, "")
	want := "note=a%3Db%26c+d"
	if got != want {
		t.Fatalf("Canonicalize got %q want %q", got, want)
	}
	// Spaces become "+", never "%20".
	if strings.Contains(got, "%20") {
		t.Fatalf("encoded space must be +, got %q", got)
	}
}

func TestSignRoundTrip(t *testing.T) {
	p := Params{
		"merchant_id":  "10000100",
		"m_payment_id": "ORD-42",
		"amount":       "100.00",
	}
	sig := Sign(p, "secret")
	if len(sig) != 32 || sig != strings.ToLower(sig) {
		t.Fatalf("signature must be 32 lowercase hex chars, got %q", sig)
	}
	if !VerifySignature(p, "secret", sig) {
		t.Fatal("signature did not verify against its own input")
	}
}

func TestSignInsensitiveToInsertionOrder(t *testing.T) {
	a := Params{}
	a["z_last"] = "1"
	a["a_first"] = "2"
	b := Params{}
	b["a_first"] = "2"
	b["z_last"] = "1"

	if Sign(a, "s") != Sign(b, "s") {
		t.Fatal("signature must not depend on insertion order")
	}
}

func TestSignSensitiveToValues(t *testing.T) {
	base := Params{"amount": "100.00", "m_payment_id": "ORD-1"}
	sig := Sign(base, "s")

	cases := []Params{
		{"amount": "100.01", "m_payment_id": "ORD-1"},
		{"amount": "100.00", "m_payment_id": "ORD-2"},
		{"amount": "100.00", "m_payment_id": "ORD-1", "extra": "x"},
	}
	for i, p := range cases {
		if Sign(p, "s") == sig {
			t.Fatalf("case %d: changed params produced identical signature", i)
		}
	}

	if Sign(base, "other") == sig {
		t.Fatal("changed passphrase produced identical signature")
	}
}

func TestVerifySignatureNegatives(t *testing.T) {
	p := Params{"a": "1"}
	sig := Sign(p, "s")

	if VerifySignature(p, "s", "") {
		t.Fatal("empty claimed signature must not verify")
	}
	if VerifySignature(p, "s", strings.ToUpper(sig)) {
		t.Fatal("hex comparison is case-sensitive")
	}
	if VerifySignature(p, "s", sig+"0") {
		t.Fatal("longer digest must not verify")
	}
	if VerifySignature(Params{"a": "2"}, "s", sig) {
		t.Fatal("tampered value must not verify")
	}
}

func TestSpaceEncodesToPlus(t *testing.T) {
	got := Canonicalize(Params{"a": "a b"}, "")
	if got != "a=a+b" {
		t.Fatalf("got %q want %q", got, "a=a+b")
	}
}
