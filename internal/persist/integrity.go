// internal/persist/integrity.go
//
// Tamper evidence for persisted documents.
//
//   - checksum  = hex(SHA-256(canonical content))
//   - signature = base64(HMAC-SHA-256(macKey, canonical content ‖ 0x00 ‖ changeCount))
//
// The checksum catches accidental corruption. The signature catches edits made
// without the secret, including a rolled-back changeCount. It is best-effort
// only: when no deployment secret is configured the secret lives in the same
// storage as the document, so anyone with script access to that storage can
// re-sign. It is not a security boundary.
//
// Both keys are derived from the state secret with HKDF so the MAC and the
// AES-GCM key are never the same bytes.

package persist

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"strconv"

	"golang.org/x/crypto/hkdf"
)

// ErrIntegrity marks a document whose checksum or signature does not match.
var ErrIntegrity = errors.New("persist: integrity check failed")

// keyring holds the keys derived from one state secret.
type keyring struct {
	mac []byte // HMAC-SHA-256 key
	aes []byte // AES-256-GCM key
}

const (
	macInfo = "guess-the-entry/state-mac"
	aesInfo = "guess-the-entry/state-aes"
)

// deriveKeys expands secret into independent MAC and AES keys.
func deriveKeys(secret []byte) (*keyring, error) {
	mac := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(macInfo)), mac); err != nil {
		return nil, err
	}
	aes := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(aesInfo)), aes); err != nil {
		return nil, err
	}
	return &keyring{mac: mac, aes: aes}, nil
}

// canonical returns the canonical encoding of d's content fields.
func canonical(d *Document) ([]byte, error) {
	return json.Marshal(d.content())
}

// checksum returns the hex SHA-256 of body.
func checksum(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// sign returns the base64 HMAC over body and changeCount.
func (k *keyring) sign(body []byte, changeCount int) string {
	h := hmac.New(sha256.New, k.mac)
	h.Write(body)
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(changeCount)))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// seal recomputes d.Integrity for the current content and change count.
func (k *keyring) seal(d *Document) error {
	body, err := canonical(d)
	if err != nil {
		return err
	}
	d.Integrity.Checksum = checksum(body)
	d.Integrity.Signature = k.sign(body, d.Integrity.ChangeCount)
	return nil
}

// verify recomputes checksum and signature and compares them to the stored ones.
func (k *keyring) verify(d *Document) error {
	body, err := canonical(d)
	if err != nil {
		return err
	}
	if d.Integrity.Checksum != checksum(body) {
		return errors.Join(ErrIntegrity, errors.New("checksum mismatch"))
	}
	want := k.sign(body, d.Integrity.ChangeCount)
	if !hmac.Equal([]byte(d.Integrity.Signature), []byte(want)) {
		return errors.Join(ErrIntegrity, errors.New("signature mismatch"))
	}
	return nil
}
