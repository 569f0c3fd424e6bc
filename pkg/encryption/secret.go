package encryption

import (
	"encoding/base64"
	"strings"
)

// SecretBytes attempts to base64 decode the secret, if that fails it treats
// the secret as binary
func SecretBytes(secret string) []byte {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(secret, "="))
	if err == nil {
		// Only return the decoded form for common key lengths.
		// Unintentional decoding of a passphrase that merely looks like
		// base64 would otherwise hand back a key the user never chose.
		for _, i := range []int{16, 24, 32, 64} {
			if len(b) == i {
				return b
			}
		}
	}
	return []byte(secret)
}
