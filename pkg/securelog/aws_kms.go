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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// kmsClient abstracts the AWS KMS operations used to unwrap the data key.
type kmsClient interface {
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

type awsKMSUnwrapper struct {
	client kmsClient
	keyID  string
}

func newAWSKMSUnwrapper(ctx context.Context, cfg KeyConfig) (*awsKMSUnwrapper, error) {
	if cfg.KeyID == "" {
		return nil, fmt.Errorf("aws-kms: key ID is required")
	}

	region := cfg.Credentials["region"]
	if region == "" {
		return nil, fmt.Errorf("aws-kms: region is required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(region),
	}
	accessKeyID := cfg.Credentials["access-key-id"]
	secretAccessKey := cfg.Credentials["secret-access-key"]
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws-kms: failed to load AWS config: %w", err)
	}
	return newAWSKMSUnwrapperWithClient(kms.NewFromConfig(awsCfg), cfg.KeyID), nil
}

func newAWSKMSUnwrapperWithClient(client kmsClient, keyID string) *awsKMSUnwrapper {
	return &awsKMSUnwrapper{client: client, keyID: keyID}
}

func (u *awsKMSUnwrapper) Unwrap(ctx context.Context, wrapped []byte) ([]byte, error) {
	out, err := u.client.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: wrapped,
		KeyId:          aws.String(u.keyID),
	})
	if err != nil {
		return nil, fmt.Errorf("aws-kms: decrypt failed: %w", err)
	}
	return out.Plaintext, nil
}

func (u *awsKMSUnwrapper) Close() error {
	return nil
}
