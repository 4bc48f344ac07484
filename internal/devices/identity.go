package devices

import (
	"crypto/sha256"
	"encoding/base64"
)

// Identity derives the stable device identity from the credentials a
// device presents at authentication. The digest is order sensitive and
// URL-safe so the identity can appear in paths.
func Identity(deviceID, userKey string) string {
	digest := sha256.Sum256([]byte(deviceID + userKey))
	return base64.URLEncoding.EncodeToString(digest[:])
}
