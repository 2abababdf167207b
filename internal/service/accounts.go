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

package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/altairalabs/secureflow/internal/auth"
	"github.com/altairalabs/secureflow/internal/store"
)

// Session is an issued bearer token.
type Session struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
	Username  string    `json:"username"`
}

// Register creates an account and signs the new user in.
func (s *Scanner) Register(ctx context.Context, username, password string) (*Session, error) {
	username = auth.NormalizeUsername(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, MinPasswordLength)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, &store.User{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}); err != nil {
		return nil, err
	}
	s.log.Info("user registered", "username", username)
	return s.issue(username)
}

// Login verifies credentials. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (s *Scanner) Login(ctx context.Context, username, password string) (*Session, error) {
	username = auth.NormalizeUsername(username)
	if username == "" || password == "" {
		return nil, auth.ErrInvalidCredentials
	}

	u, err := s.store.GetUser(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, auth.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := auth.CheckPassword(u.PasswordHash, password); err != nil {
		return nil, err
	}
	return s.issue(username)
}

func (s *Scanner) issue(username string) (*Session, error) {
	token, exp, err := s.issuer.Issue(username)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, TokenType: "bearer", ExpiresAt: exp, Username: username}, nil
}
