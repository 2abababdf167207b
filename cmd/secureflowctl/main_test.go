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

package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altairalabs/secureflow/pkg/securelog"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func useKey(t *testing.T) []byte {
	t.Helper()
	key, err := securelog.GenerateKey()
	require.NoError(t, err)
	t.Setenv("ENCRYPTION_KEY_PROVIDER", "env")
	t.Setenv("ENCRYPTION_KEY", securelog.EncodeKey(key))
	return key
}

func TestKeygen(t *testing.T) {
	out, err := execute(t, "", "keygen")
	require.NoError(t, err)
	key, err := securelog.DecodeKey(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Len(t, key, securelog.KeySize)

	out, err = execute(t, "", "keygen", "--env")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "ENCRYPTION_KEY="))
}

func TestScan_Text(t *testing.T) {
	out, err := execute(t, "", "scan", "--text", "mail a@b.io now")
	require.NoError(t, err)
	assert.Equal(t, "mail [EMAIL] now\n", out)
}

func TestScan_StdinAndLevel(t *testing.T) {
	out, err := execute(t, "call 9876543210 or a@b.io", "scan", "--level", "10")
	require.NoError(t, err)
	assert.Contains(t, out, "9876543210")
	assert.Contains(t, out, "[EMAIL]")
}

func TestScan_FileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.txt")
	require.NoError(t, os.WriteFile(path, []byte("password: hunter22"), 0o600))

	out, err := execute(t, "", "scan", "--json", path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Contains(t, got["categoriesFound"], "PASSWORD")
	assert.EqualValues(t, 100, got["maskLevel"])
	assert.NotContains(t, got, "summary")
}

func TestScan_SealedThenOpen(t *testing.T) {
	useKey(t)

	out, err := execute(t, "", "scan", "--sealed", "--text", "mail a@b.io")
	require.NoError(t, err)

	var got struct {
		SanitizedText string                  `json:"sanitizedText"`
		Summary       securelog.SealedRecord  `json:"summary"`
		Categories    securelog.SealedRecord  `json:"categories"`
		Original      *securelog.SealedRecord `json:"original"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.NotNil(t, got.Original)

	summary, err := json.Marshal(got.Summary)
	require.NoError(t, err)
	out, err = execute(t, string(summary), "open")
	require.NoError(t, err)
	assert.Equal(t, got.SanitizedText+"\n", out)

	cats, err := json.Marshal(got.Categories)
	require.NoError(t, err)
	out, err = execute(t, string(cats), "open", "--categories")
	require.NoError(t, err)
	assert.Equal(t, "EMAIL\n", out)

	original, err := json.Marshal(got.Original)
	require.NoError(t, err)
	out, err = execute(t, string(original), "open")
	require.NoError(t, err)
	assert.Equal(t, "mail a@b.io\n", out)
}

func TestOpen_Errors(t *testing.T) {
	useKey(t)

	_, err := execute(t, "not json", "open")
	assert.ErrorIs(t, err, securelog.ErrMalformedRecord)

	other, err := securelog.GenerateKey()
	require.NoError(t, err)
	codec, err := securelog.NewCodec(other)
	require.NoError(t, err)
	rec, err := codec.SealString("secret")
	require.NoError(t, err)
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	_, err = execute(t, string(data), "open")
	assert.ErrorIs(t, err, securelog.ErrAuthenticationFailed)

	t.Setenv("ENCRYPTION_KEY", "")
	_, err = execute(t, string(data), "open")
	assert.ErrorIs(t, err, securelog.ErrEncryptionKeyMissing)
}

func TestCategories(t *testing.T) {
	out, err := execute(t, "", "categories")
	require.NoError(t, err)
	assert.Contains(t, out, "DETECTOR")
	assert.Contains(t, out, "EMAIL")

	out, err = execute(t, "", "categories", "--level", "25")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "# level 20", lines[0])
	assert.Contains(t, lines, "EMAIL")
	assert.Contains(t, lines, "PASSWORD")
	assert.NotContains(t, lines, "PHONE")
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	t.Setenv("POSTGRES_CONN", "")
	for _, args := range [][]string{
		{"migrate", "up"},
		{"migrate", "version"},
		{"migrate", "force", "1"},
	} {
		_, err := execute(t, "", args...)
		assert.ErrorIs(t, err, errNoDatabase, args)
	}

	_, err := execute(t, "", "migrate", "force", "nope")
	assert.ErrorContains(t, err, "invalid version")
}
