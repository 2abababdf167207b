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

// Package pgutil provides shared PostgreSQL helpers: a parameterized query
// builder and error-code classification.
package pgutil

import (
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the stores react to.
const (
	CodeUniqueViolation           = "23505"
	CodeInvalidTextRepresentation = "22P02"
)

// HasCode reports whether err wraps a PostgreSQL error with the given SQLSTATE.
func HasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return HasCode(err, CodeUniqueViolation)
}

// IsInvalidText reports whether a parameter could not be parsed, such as a
// malformed UUID.
func IsInvalidText(err error) bool {
	return HasCode(err, CodeInvalidTextRepresentation)
}

// QueryBuilder accumulates a parameterized statement. Use "$?" as a
// placeholder; it is replaced with the next positional parameter number.
type QueryBuilder struct {
	sb   strings.Builder
	args []any
}

// NewQuery starts a statement with base, which must not contain placeholders.
func NewQuery(base string) *QueryBuilder {
	qb := &QueryBuilder{}
	qb.sb.WriteString(base)
	return qb
}

// Add appends a fragment with one argument per "$?".
func (qb *QueryBuilder) Add(fragment string, args ...any) *QueryBuilder {
	for _, arg := range args {
		qb.args = append(qb.args, arg)
		fragment = strings.Replace(fragment, "$?", "$"+strconv.Itoa(len(qb.args)), 1)
	}
	qb.sb.WriteString(fragment)
	return qb
}

// Paginate appends LIMIT and OFFSET when the respective values are positive.
func (qb *QueryBuilder) Paginate(limit, offset int) *QueryBuilder {
	if limit > 0 {
		qb.Add(" LIMIT $?", limit)
	}
	if offset > 0 {
		qb.Add(" OFFSET $?", offset)
	}
	return qb
}

// SQL returns the statement text.
func (qb *QueryBuilder) SQL() string {
	return qb.sb.String()
}

// Args returns the accumulated query arguments.
func (qb *QueryBuilder) Args() []any {
	return qb.args
}
