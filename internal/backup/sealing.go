// tenantvault - Tenant Data Protection Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantvault

/*
sealing.go - Snapshot Sealing

Transforms exported snapshot bytes into the bytes that are stored, and back.

Layers, applied in order:
  - gzip compression (optional)
  - AES-256-GCM encryption (optional), key derived with HKDF-SHA256

The applied layers are recorded in Backup.Format as "+"-separated suffixes on
the exporter's base format, e.g. "json+gzip+aes256gcm". Open reads the suffixes
back and peels the layers in reverse.

Ciphertext layout: nonce (12 bytes) || ciphertext || tag.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const (
	snapshotKeySalt = "tenantvault-snapshot-sealing"
	snapshotKeyInfo = "snapshot-encryption-v1"

	sealKeySize   = 32
	sealNonceSize = 12

	formatGzip   = "gzip"
	formatAESGCM = "aes256gcm"
)

var (
	// ErrNoEncryptionKey is returned when encryption is requested without a key.
	ErrNoEncryptionKey = errors.New("snapshot encryption requested but no encryption key is configured")

	// ErrSealedTooShort is returned when ciphertext is shorter than nonce + tag.
	ErrSealedTooShort = errors.New("sealed snapshot too short")

	// ErrUnsealFailed is returned when GCM authentication fails.
	ErrUnsealFailed = errors.New("snapshot decryption failed: invalid ciphertext or authentication tag")
)

// Sealer compresses and encrypts snapshot bytes.
// A zero-key Sealer can still compress; Encrypt requests fail.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer creates a Sealer. An empty secret disables encryption.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return &Sealer{}, nil
	}

	key := make([]byte, sealKeySize)
	kdf := hkdf.New(sha256.New, []byte(secret), []byte(snapshotKeySalt), []byte(snapshotKeyInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("failed to derive snapshot key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &Sealer{aead: gcm}, nil
}

// CanEncrypt reports whether an encryption key is configured.
func (s *Sealer) CanEncrypt() bool {
	return s != nil && s.aead != nil
}

// Seal applies the requested layers and returns the stored bytes and format.
func (s *Sealer) Seal(data []byte, baseFormat string, compress, encrypt bool) ([]byte, string, error) {
	format := baseFormat
	if format == "" {
		format = "bin"
	}
	out := data

	if compress {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(out); err != nil {
			return nil, "", fmt.Errorf("gzip snapshot: %w", err)
		}
		if err := zw.Close(); err != nil {
			return nil, "", fmt.Errorf("gzip snapshot: %w", err)
		}
		out = buf.Bytes()
		format += "+" + formatGzip
	}

	if encrypt {
		if !s.CanEncrypt() {
			return nil, "", ErrNoEncryptionKey
		}
		nonce := make([]byte, sealNonceSize)
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return nil, "", fmt.Errorf("failed to generate nonce: %w", err)
		}
		out = s.aead.Seal(nonce, nonce, out, nil)
		format += "+" + formatAESGCM
	}

	return out, format, nil
}

// Open reverses Seal using the layers named in format.
func (s *Sealer) Open(data []byte, format string) ([]byte, error) {
	layers := strings.Split(format, "+")
	out := data

	for i := len(layers) - 1; i >= 1; i-- {
		switch layers[i] {
		case formatAESGCM:
			if !s.CanEncrypt() {
				return nil, ErrNoEncryptionKey
			}
			if len(out) < sealNonceSize+s.aead.Overhead() {
				return nil, ErrSealedTooShort
			}
			plain, err := s.aead.Open(nil, out[:sealNonceSize], out[sealNonceSize:], nil)
			if err != nil {
				return nil, ErrUnsealFailed
			}
			out = plain
		case formatGzip:
			zr, err := gzip.NewReader(bytes.NewReader(out))
			if err != nil {
				return nil, fmt.Errorf("gunzip snapshot: %w", err)
			}
			plain, err := io.ReadAll(zr)
			_ = zr.Close()
			if err != nil {
				return nil, fmt.Errorf("gunzip snapshot: %w", err)
			}
			out = plain
		default:
			return nil, fmt.Errorf("unknown snapshot layer %q in format %q", layers[i], format)
		}
	}
	return out, nil
}

// BaseFormat strips sealing layers from a stored format.
func BaseFormat(format string) string {
	if i := strings.IndexByte(format, '+'); i >= 0 {
		return format[:i]
	}
	return format
}

// fileExtension maps a sealed format to a filename suffix.
func fileExtension(format string) string {
	layers := strings.Split(format, "+")
	ext := "." + layers[0]
	for _, l := range layers[1:] {
		switch l {
		case formatGzip:
			ext += ".gz"
		case formatAESGCM:
			ext += ".enc"
		}
	}
	return ext
}
