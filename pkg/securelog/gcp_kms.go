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

	kms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	"google.golang.org/api/option"
)

// gcpKMSClient abstracts the Cloud KMS operations used to unwrap the data key.
type gcpKMSClient interface {
	Decrypt(ctx context.Context, req *kmspb.DecryptRequest) (*kmspb.DecryptResponse, error)
	Close() error
}

// gcpKMSClientWrapper drops the variadic call options of the generated client.
type gcpKMSClientWrapper struct {
	client *kms.KeyManagementClient
}

func (w *gcpKMSClientWrapper) Decrypt(ctx context.Context, req *kmspb.DecryptRequest) (*kmspb.DecryptResponse, error) {
	return w.client.Decrypt(ctx, req)
}

func (w *gcpKMSClientWrapper) Close() error {
	return w.client.Close()
}

type gcpKMSUnwrapper struct {
	client gcpKMSClient
	keyID  string
}

func newGCPKMSUnwrapper(ctx context.Context, cfg KeyConfig) (*gcpKMSUnwrapper, error) {
	if cfg.KeyID == "" {
		return nil, fmt.Errorf("gcp-kms: key ID is required")
	}

	var opts []option.ClientOption
	if creds := cfg.Credentials["credentials-json"]; creds != "" {
		//nolint:staticcheck // explicit service account JSON is a supported deployment mode
		opts = append(opts, option.WithCredentialsJSON([]byte(creds)))
	}

	client, err := kms.NewKeyManagementClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcp-kms: failed to create client: %w", err)
	}
	return newGCPKMSUnwrapperWithClient(&gcpKMSClientWrapper{client: client}, cfg.KeyID), nil
}

func newGCPKMSUnwrapperWithClient(client gcpKMSClient, keyID string) *gcpKMSUnwrapper {
	return &gcpKMSUnwrapper{client: client, keyID: keyID}
}

func (u *gcpKMSUnwrapper) Unwrap(ctx context.Context, wrapped []byte) ([]byte, error) {
	resp, err := u.client.Decrypt(ctx, &kmspb.DecryptRequest{
		Name:       u.keyID,
		Ciphertext: wrapped,
	})
	if err != nil {
		return nil, fmt.Errorf("gcp-kms: decrypt failed: %w", err)
	}
	return resp.Plaintext, nil
}

func (u *gcpKMSUnwrapper) Close() error {
	return u.client.Close()
}
