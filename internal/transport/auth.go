package transport

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"github.com/ginjaninja78/ifirma-client/internal/types"
)

const (
	// AuthHeader carries the IAPIS signature.
	AuthHeader = "Authentication"

	// InvoicesKeyName is the ifirma name of the key that signs invoice calls.
	InvoicesKeyName = "faktura"
)

// Signer computes IAPIS request signatures.
//
// The MAC is HMAC-SHA1 keyed with the hex-decoded account key over
// requestURL + user + keyName + body, where requestURL excludes the query
// string.
type Signer struct {
	user    string
	keyName string
	key     []byte
}

// NewSigner validates the credentials. hexKey is the key as shown in the
// ifirma panel.
func NewSigner(user, keyName, hexKey string) (*Signer, error) {
	if strings.TrimSpace(user) == "" {
		return nil, &types.ConfigurationError{Field: "username", Reason: "must be set"}
	}
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return nil, &types.ConfigurationError{Field: "invoices_key", Reason: "must be set"}
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, &types.ConfigurationError{Field: "invoices_key", Reason: "must be a hexadecimal string"}
	}
	if keyName == "" {
		keyName = InvoicesKeyName
	}
	return &Signer{user: user, keyName: keyName, key: key}, nil
}

// Sign returns the hex MAC of one request.
func (s *Signer) Sign(requestURL string, body []byte) string {
	mac := hmac.New(sha1.New, s.key)
	mac.Write([]byte(requestURL))
	mac.Write([]byte(s.user))
	mac.Write([]byte(s.keyName))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Apply sets the Authentication header on req.
func (s *Signer) Apply(req *http.Request, body []byte) {
	u := *req.URL
	u.RawQuery = ""
	u.Fragment = ""
	req.Header.Set(AuthHeader, fmt.Sprintf("IAPIS user=%s, hmac-sha1=%s", s.user, s.Sign(u.String(), body)))
}
