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

package securelog

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
)

// ProviderType identifies where the codec key comes from.
type ProviderType string

const (
	// ProviderEnv reads a base64 key directly from configuration.
	ProviderEnv ProviderType = "env"
	// ProviderAWSKMS unwraps a data key with AWS Key Management Service.
	ProviderAWSKMS ProviderType = "aws-kms"
	// ProviderGCPKMS unwraps a data key with Google Cloud KMS.
	ProviderGCPKMS ProviderType = "gcp-kms"
	// ProviderAzureKeyVault unwraps a data key with Azure Key Vault.
	ProviderAzureKeyVault ProviderType = "azure-keyvault"
)

// KeyConfig describes the single configured secret.
type KeyConfig struct {
	// Provider selects the key source. Empty means ProviderEnv.
	Provider ProviderType
	// Key is the base64 key for ProviderEnv, or the base64 wrapped data key
	// for the KMS providers.
	Key string
	// KeyID is the KMS key identifier (ARN, resource name or key name).
	KeyID string
	// VaultURL is the Azure Key Vault URL.
	VaultURL string
	// Credentials holds provider-specific values such as "region",
	// "access-key-id", "secret-access-key", "credentials-json",
	// "tenant-id", "client-id" and "client-secret".
	Credentials map[string]string
}

// keyUnwrapper decrypts a wrapped data key using a remote KMS.
type keyUnwrapper interface {
	Unwrap(ctx context.Context, wrapped []byte) ([]byte, error)
	Close() error
}

// LoadKey resolves the configured key material. Any failure is meant to
// stop the process before it serves traffic.
func LoadKey(ctx context.Context, cfg KeyConfig) ([]byte, error) {
	if strings.TrimSpace(cfg.Key) == "" {
		return nil, ErrEncryptionKeyMissing
	}

	switch cfg.Provider {
	case "", ProviderEnv:
		return DecodeKey(cfg.Key)
	case ProviderAWSKMS:
		u, err := newAWSKMSUnwrapper(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return unwrapKey(ctx, u, cfg.Key)
	case ProviderGCPKMS:
		u, err := newGCPKMSUnwrapper(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return unwrapKey(ctx, u, cfg.Key)
	case ProviderAzureKeyVault:
		u, err := newAzureKeyVaultUnwrapper(cfg)
		if err != nil {
			return nil, err
		}
		return unwrapKey(ctx, u, cfg.Key)
	default:
		return nil, fmt.Errorf("%w: unknown key provider %q", ErrInvalidKey, cfg.Provider)
	}
}

// LoadCodec is LoadKey followed by NewCodec.
func LoadCodec(ctx context.Context, cfg KeyConfig) (*Codec, error) {
	key, err := LoadKey(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewCodec(key)
}

// DecodeKey decodes a standard base64 key and checks its length.
func DecodeKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, ErrEncryptionKeyMissing
	}
	key, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: not valid base64", ErrInvalidKey)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, KeySize, len(key))
	}
	return key, nil
}

// EncodeKey renders a key in the form DecodeKey accepts.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}

func unwrapKey(ctx context.Context, u keyUnwrapper, wrappedB64 string) ([]byte, error) {
	defer func() { _ = u.Close() }()

	wrapped, err := base64.StdEncoding.DecodeString(strings.TrimSpace(wrappedB64))
	if err != nil {
		return nil, fmt.Errorf("%w: wrapped key is not valid base64", ErrInvalidKey)
	}
	key, err := u.Unwrap(ctx, wrapped)
	if err != nil {
		return nil, fmt.Errorf("%w: unwrap failed: %v", ErrInvalidKey, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: unwrapped key is %d bytes", ErrInvalidKey, len(key))
	}
	return key, nil
}
