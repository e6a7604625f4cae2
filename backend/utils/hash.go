package utils

import (
	"crypto/md5"
	"encoding/hex"
)

// HashPassword returns the hex-encoded MD5 digest of password. KOReader
// clients send md5(password) in the x-auth-key header and authentication
// compares stored digests for equality, so the server-side digest has to be
// the same function.
func HashPassword(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}
