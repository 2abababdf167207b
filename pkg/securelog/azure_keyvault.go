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
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azkeys"
)

// azkeysClient abstracts the Key Vault unwrap operation.
type azkeysClient interface {
	UnwrapKey(
		ctx context.Context, keyName string, keyVersion string,
		parameters azkeys.KeyOperationParameters, options *azkeys.UnwrapKeyOptions,
	) (azkeys.UnwrapKeyResponse, error)
}

const azureWrapAlgorithm = azkeys.EncryptionAlgorithmRSAOAEP256

type azureKeyVaultUnwrapper struct {
	client     azkeysClient
	keyName    string
	keyVersion string
}

func newAzureKeyVaultUnwrapper(cfg KeyConfig) (*azureKeyVaultUnwrapper, error) {
	if cfg.VaultURL == "" {
		return nil, fmt.Errorf("azure-keyvault: vault URL is required")
	}
	if cfg.KeyID == "" {
		return nil, fmt.Errorf("azure-keyvault: key ID is required")
	}

	cred, err := azureCredential(cfg)
	if err != nil {
		return nil, fmt.Errorf("azure-keyvault: credential error: %w", err)
	}
	client, err := azkeys.NewClient(cfg.VaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("azure-keyvault: client creation error: %w", err)
	}
	return newAzureKeyVaultUnwrapperWithClient(client, cfg.KeyID, cfg.Credentials["key-version"]), nil
}

func newAzureKeyVaultUnwrapperWithClient(client azkeysClient, keyName, keyVersion string) *azureKeyVaultUnwrapper {
	return &azureKeyVaultUnwrapper{client: client, keyName: keyName, keyVersion: keyVersion}
}

func azureCredential(cfg KeyConfig) (azcore.TokenCredential, error) {
	tenantID := cfg.Credentials["tenant-id"]
	clientID := cfg.Credentials["client-id"]
	clientSecret := cfg.Credentials["client-secret"]
	if tenantID != "" && clientID != "" && clientSecret != "" {
		return azidentity.NewClientSecretCredential(tenantID, clientID, clientSecret, nil)
	}
	// Workload identity, managed identity and the CLI login.
	return azidentity.NewDefaultAzureCredential(nil)
}

func (u *azureKeyVaultUnwrapper) Unwrap(ctx context.Context, wrapped []byte) ([]byte, error) {
	algo := azureWrapAlgorithm
	resp, err := u.client.UnwrapKey(ctx, u.keyName, u.keyVersion, azkeys.KeyOperationParameters{
		Algorithm: &algo,
		Value:     wrapped,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("azure-keyvault: unwrap failed: %w", err)
	}
	return resp.Result, nil
}

func (u *azureKeyVaultUnwrapper) Close() error {
	return nil
}
