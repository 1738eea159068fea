// internal/persist/codec.go
//
// Optional payload transforms applied after serialization:
//
//	JSON ─(compress)→ base64(gzip(JSON)) ─(encrypt)→ {"iv":…,"data":…}
//
// Reading tries each step in reverse and falls back to the input when a step
// does not apply, so documents written with any combination of options stay
// readable after the options change.

package persist

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"

	"github.com/klauspost/compress/gzip"
)

// envelope is the stored shape of an encrypted payload.
type envelope struct {
	IV   string `json:"iv"`
	Data string `json:"data"`
}

// compress gzips plain and base64-encodes the result.
func compress(plain []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(plain); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	out := make([]byte, base64.StdEncoding.EncodedLen(buf.Len()))
	base64.StdEncoding.Encode(out, buf.Bytes())
	return out, nil
}

// decompress reverses compress. ok is false when payload is not a
// base64 gzip stream, in which case the caller keeps the payload as-is.
func decompress(payload []byte) (out []byte, ok bool, err error) {
	raw := make([]byte, base64.StdEncoding.DecodedLen(len(payload)))
	n, derr := base64.StdEncoding.Decode(raw, payload)
	if derr != nil {
		return nil, false, nil
	}
	zr, zerr := gzip.NewReader(bytes.NewReader(raw[:n]))
	if zerr != nil {
		return nil, false, nil
	}
	defer zr.Close()
	out, err = io.ReadAll(zr)
	if err != nil {
		return nil, true, err
	}
	// gzip ignores header fields and trailing bits that do not affect the
	// content; require the stream compress would write.
	again, err := compress(out)
	if err != nil {
		return nil, true, err
	}
	if !bytes.Equal(again, payload) {
		return nil, true, errors.New("persist: non-canonical compressed payload")
	}
	return out, true, nil
}

// encrypt seals plain with AES-256-GCM under a fresh 12-byte nonce.
func encrypt(key, plain []byte) ([]byte, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	iv := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	sealed := gcm.Seal(nil, iv, plain, nil)
	return json.Marshal(envelope{
		IV:   base64.StdEncoding.EncodeToString(iv),
		Data: base64.StdEncoding.EncodeToString(sealed),
	})
}

// decrypt reverses encrypt. ok is false when payload is not an envelope.
func decrypt(key, payload []byte) (out []byte, ok bool, err error) {
	var env envelope
	if json.Unmarshal(payload, &env) != nil || env.IV == "" || env.Data == "" {
		return nil, false, nil
	}
	iv, err := base64.StdEncoding.DecodeString(env.IV)
	if err != nil {
		return nil, true, err
	}
	data, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, true, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, true, err
	}
	if len(iv) != gcm.NonceSize() {
		return nil, true, errors.New("persist: bad nonce length")
	}
	if canon, _ := json.Marshal(env); !bytes.Equal(canon, payload) {
		return nil, true, errors.New("persist: non-canonical envelope")
	}
	out, err = gcm.Open(nil, iv, data, nil)
	return out, true, err
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
