package gib

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/xml"
	"fmt"

	"github.com/ucarion/c14n"
)

// Fingerprint computes the content fingerprint of a canonical document: the
// bytes are XML-canonicalized first, then hashed, so logically identical
// serializations always fingerprint equally. The digest is MD5 because that
// is what the legacy document-exchange protocol transmits alongside the
// base64 payload; it serves integrity checking and idempotency detection,
// not tamper proofing.
func Fingerprint(xmlBytes []byte) (string, error) {
	canonical, err := canonicalize(xmlBytes)
	if err != nil {
		return "", fmt.Errorf("gib: canonicalize: %w", err)
	}
	sum := md5.Sum(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalize(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}
