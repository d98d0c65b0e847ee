package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// L1 header names carry the EOA attestation used to derive API credentials;
// L2 headers carry the HMAC over each authenticated request.
const (
	HeaderAddress    = "POLY_ADDRESS"
	HeaderSignature  = "POLY_SIGNATURE"
	HeaderTimestamp  = "POLY_TIMESTAMP"
	HeaderNonce      = "POLY_NONCE"
	HeaderAPIKey     = "POLY_API_KEY"
	HeaderPassphrase = "POLY_PASSPHRASE"
)

const attestation = "This message attests that I control the given wallet"

// L1Headers signs the credential-derivation attestation with the EOA key.
func L1Headers(signer Signer, nonce int64) (http.Header, error) {
	if signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	msg := fmt.Sprintf("%s\nnonce: %d\ntimestamp: %s", attestation, nonce, ts)
	sig, err := signer.Sign(HashEIP191([]byte(msg)))
	if err != nil {
		return nil, fmt.Errorf("sign attestation: %w", err)
	}

	h := http.Header{}
	h.Set(HeaderAddress, signer.Address().Hex())
	h.Set(HeaderSignature, "0x"+fmt.Sprintf("%x", sig))
	h.Set(HeaderTimestamp, ts)
	h.Set(HeaderNonce, strconv.FormatInt(nonce, 10))
	return h, nil
}

// L2Headers builds the HMAC-signed headers for an authenticated API request.
func L2Headers(signer Signer, apiKey *APIKey, method, path string, body []byte) (http.Header, error) {
	if signer == nil {
		return nil, fmt.Errorf("signer is required")
	}
	if !apiKey.Valid() {
		return nil, fmt.Errorf("api credentials are required")
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	message := ts + method + path
	if len(body) > 0 {
		message += string(body)
	}

	secret, err := base64.URLEncoding.DecodeString(apiKey.Secret)
	if err != nil {
		return nil, fmt.Errorf("decode api secret: %w", err)
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(message))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	h := http.Header{}
	h.Set(HeaderAddress, signer.Address().Hex())
	h.Set(HeaderSignature, sig)
	h.Set(HeaderTimestamp, ts)
	h.Set(HeaderAPIKey, apiKey.Key)
	h.Set(HeaderPassphrase, apiKey.Passphrase)
	return h, nil
}
