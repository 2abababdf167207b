/*
Copyright 2026 Altaira Labs.

SPDX-License-Identifier: Apache-2.0

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package securelog seals audit payloads with AES-256-GCM so that log
// records can be stored without exposing the text they describe.
package securelog

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// Sizes of the sealed record components.
const (
	KeySize   = 32
	NonceSize = 12
	TagSize   = 16
)

// Sentinel errors for codec operations.
var (
	// ErrInvalidKey indicates key material that is not exactly KeySize bytes.
	ErrInvalidKey = errors.New("invalid encryption key")
	// ErrEncryptionKeyMissing indicates no key was configured. Callers treat
	// it as fatal at startup.
	ErrEncryptionKeyMissing = errors.New("encryption key missing")
	// ErrAuthenticationFailed indicates a sealed record failed verification:
	// it was tampered with, corrupted, or sealed under another key.
	ErrAuthenticationFailed = errors.New("sealed record authentication failed")
	// ErrMalformedRecord indicates a record whose nonce or tag has the wrong length.
	ErrMalformedRecord = errors.New("malformed sealed record")
	// ErrSealFailed indicates the random source or cipher failed while sealing.
	ErrSealFailed = errors.New("seal failed")
)

// SealedRecord is one encrypted payload. The authentication tag is kept
// separate from the ciphertext.
type SealedRecord struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	Tag        []byte `json:"tag"`
}

// IsZero reports whether the record carries no sealed data at all.
func (r SealedRecord) IsZero() bool {
	return len(r.Ciphertext) == 0 && len(r.Nonce) == 0 && len(r.Tag) == 0
}

// Codec seals and opens records under a single symmetric key. It is safe
// for concurrent use.
type Codec struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewCodec creates a codec for a 256-bit key.
func NewCodec(key []byte) (*Codec, error) {
	if len(key) == 0 {
		return nil, ErrEncryptionKeyMissing
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: AES cipher creation failed: %v", ErrInvalidKey, err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: GCM creation failed: %v", ErrInvalidKey, err)
	}
	return &Codec{aead: aead, rand: rand.Reader}, nil
}

// GenerateKey returns a fresh random key suitable for NewCodec.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("%w: failed to generate key: %v", ErrSealFailed, err)
	}
	return key, nil
}

// Seal encrypts plaintext under a fresh random nonce.
func (c *Codec) Seal(plaintext []byte) (SealedRecord, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return SealedRecord{}, fmt.Errorf("%w: failed to generate nonce: %v", ErrSealFailed, err)
	}

	sealed := c.aead.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - TagSize
	return SealedRecord{
		Ciphertext: sealed[:split:split],
		Nonce:      nonce,
		Tag:        sealed[split:],
	}, nil
}

// Open verifies and decrypts a record. No plaintext is returned unless the
// tag verifies.
func (c *Codec) Open(rec SealedRecord) ([]byte, error) {
	if len(rec.Nonce) != NonceSize {
		return nil, fmt.Errorf("%w: nonce is %d bytes", ErrMalformedRecord, len(rec.Nonce))
	}
	if len(rec.Tag) != TagSize {
		return nil, fmt.Errorf("%w: tag is %d bytes", ErrMalformedRecord, len(rec.Tag))
	}

	sealed := make([]byte, 0, len(rec.Ciphertext)+TagSize)
	sealed = append(sealed, rec.Ciphertext...)
	sealed = append(sealed, rec.Tag...)

	plaintext, err := c.aead.Open(nil, rec.Nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

// SealString is Seal for text payloads.
func (c *Codec) SealString(s string) (SealedRecord, error) {
	return c.Seal([]byte(s))
}

// OpenString is Open for text payloads.
func (c *Codec) OpenString(rec SealedRecord) (string, error) {
	b, err := c.Open(rec)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
