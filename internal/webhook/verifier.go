package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// maxTimestampSkew bounds how old a signed request may be; anything
// older is treated as a possible replay.
const maxTimestampSkew = 5 * time.Minute

const signaturePrefix = "v0="

// Verifier checks the HMAC signature the chat platform attaches to
// every callback: HMAC-SHA256 over "v0:<timestamp>:<body>" keyed with
// the signing secret, compared in constant time.
type Verifier struct {
	signingSecret string
	logger        *zap.Logger
}

// NewVerifier creates a signature verifier.
func NewVerifier(signingSecret string, logger *zap.Logger) *Verifier {
	return &Verifier{signingSecret: signingSecret, logger: logger}
}

// Verify validates the signature and timestamp of a request body.
func (v *Verifier) Verify(timestamp, signature string, body []byte) bool {
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		v.logger.Warn("Malformed signature timestamp", zap.String("timestamp", timestamp))
		return false
	}
	if skew := time.Since(time.Unix(ts, 0)); skew > maxTimestampSkew || skew < -maxTimestampSkew {
		v.logger.Warn("Signature timestamp outside accepted window",
			zap.String("timestamp", timestamp))
		return false
	}

	mac := hmac.New(sha256.New, []byte(v.signingSecret))
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(body)
	expected := signaturePrefix + hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}
