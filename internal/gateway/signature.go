package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// CanonicalString joins parameters as key1=value1&key2=value2&... with keys
// sorted byte-wise ascending. Empty values are kept, never omitted, so both
// sides of the gateway boundary produce the identical byte string.
func CanonicalString(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
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
		b.WriteString(params[k])
	}
	return b.String()
}

// Sign computes the hex HMAC-SHA256 signature of the canonical parameter string.
func Sign(params map[string]string, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(CanonicalString(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a received signature in constant time.
func VerifySignature(params map[string]string, secret, signature string) bool {
	return hmac.Equal([]byte(Sign(params, secret)), []byte(signature))
}
