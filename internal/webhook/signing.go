package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// SignatureHeader and TimestampHeader are set on every outbound webhook
// request when the hook carries an HMAC secret.
const (
	SignatureHeader = "X-Mycelium-Signature"
	TimestampHeader = "X-Mycelium-Timestamp"
)

// SignPayload signs "timestamp.payload" and renders "sha256=<hex>",
// matching spec.md §4.8's request-signing header.
func SignPayload(secret []byte, timestamp int64, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}

// VerifySignature recomputes the signature and compares it to sig in
// constant time.
func VerifySignature(secret []byte, timestamp int64, payload []byte, sig string) bool {
	const prefix = "sha256="
	if !strings.HasPrefix(sig, prefix) {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(sig, prefix))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}
