package gateway

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Params is a flat field-name to value mapping as sent to or received from
// the gateway. A field holding an empty string is treated as absent.
type Params map[string]string

// Canonicalize builds the signable string for a parameter set: empty fields
// are dropped, the rest are sorted by field name (byte order), values are
// encoded with the gateway's rule, and the trimmed passphrase is appended
// last when configured. Checkout and notification verification both go
// through this function; the two directions must stay byte-identical or no
// signature ever matches.
func Canonicalize(p Params, passphrase string) string {
	keys := make([]string, 0, len(p))
	for k, v := range p {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(encodeValue(p[k]))
	}

	if pass := strings.TrimSpace(passphrase); pass != "" {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString("passphrase=")
		b.WriteString(encodeValue(pass))
	}

	return b.String()
}

// encodeValue applies the gateway's encoding rule: reserved characters
// (including & and =) become %XX and spaces become "+". QueryEscape already
// produces exactly that, "+" for spaces and uppercase hex for the rest.
func encodeValue(v string) string {
	return url.QueryEscape(v)
}

// Sign computes the gateway signature for a parameter set: an MD5 digest of
// the canonical string, rendered as lowercase hex. The signature field
// itself must never be part of the input.
func Sign(p Params, passphrase string) string {
	sum := md5.Sum([]byte(Canonicalize(p, passphrase)))
	return hex.EncodeToString(sum[:])
}

// VerifySignature recomputes the signature and compares it to the claimed
// one. It never fails with an error; malformed input is simply not verified.
func VerifySignature(p Params, passphrase, claimed string) bool {
	if claimed == "" {
		return false
	}
	return Sign(p, passphrase) == claimed
}
