// Package signing implements the HMAC-SHA1 request signing scheme used to
// authenticate uploads to the originating system: a canonical string of
// METHOD, Content-Type, Content-MD5, Date, and path, HMAC-SHA1'd with a
// shared secret and base64-encoded into an "AuthHMAC access_id:signature"
// Authorization header.
package signing

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"
)

// Credentials identifies a signing key pair.
type Credentials struct {
	AccessID  string
	SecretKey string
}

// Valid reports whether both fields of the credentials are populated.
func (c Credentials) Valid() bool {
	return c.AccessID != "" && c.SecretKey != ""
}

// canonicalString builds "METHOD\nContent-Type\nContent-MD5\nDate\nPath",
// where the header lines are empty (bare newline) if the header is unset.
func canonicalString(method, path string, header http.Header) string {
	return method + "\n" +
		header.Get("Content-Type") + "\n" +
		header.Get("Content-MD5") + "\n" +
		header.Get("Date") + "\n" +
		path
}

// Sign computes the base64-encoded HMAC-SHA1 signature for a request with
// the given method, URL path, and headers, under creds.SecretKey.
func Sign(method, path string, header http.Header, creds Credentials) string {
	mac := hmac.New(sha1.New, []byte(creds.SecretKey))
	mac.Write([]byte(canonicalString(method, path, header)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ApplyHeaders sets the Date header (if absent) and the Authorization
// header on req, signing it under creds. It is a no-op if creds is not
// Valid, matching the original's "no credentials, no signing" behavior.
func ApplyHeaders(req *http.Request, creds Credentials) {
	if !creds.Valid() {
		return
	}

	if req.Header.Get("Date") == "" {
		req.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))
	}

	signature := Sign(req.Method, req.URL.Path, req.Header, creds)
	req.Header.Set("Authorization", fmt.Sprintf("AuthHMAC %s:%s", creds.AccessID, signature))
}
