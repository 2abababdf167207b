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
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/altairalabs/secureflow/internal/config"
	"github.com/altairalabs/secureflow/internal/store/postgres"
)

var errNoDatabase = errors.New("no database: set --postgres-conn or POSTGRES_CONN")

func newMigrateCmd() *cobra.Command {
	var conn string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres audit schema",
	}
	cmd.PersistentFlags().StringVar(&conn, "postgres-conn", "", "Postgres connection string (defaults to POSTGRES_CONN)")

	open := func() (*postgres.Migrator, func(), error) {
		if conn == "" {
			opts := config.DefaultOptions()
			opts.ApplyEnvFallbacks()
			conn = opts.PostgresConn
		}
		if conn == "" {
			return nil, nil, errNoDatabase
		}
		log, sync := cliLogger()
		mg, err := postgres.NewMigrator(conn, log)
		if err != nil {
			sync()
			return nil, nil, err
		}
		return mg, func() { _ = mg.Close(); sync() }, nil
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mg, done, err := open()
			if err != nil {
				return err
			}
			defer done()
			v, err := mg.Up()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema at version %d\n", v)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mg, done, err := open()
			if err != nil {
				return err
			}
			defer done()
			v, dirty, err := mg.Version()
			if err != nil {
				return err
			}
			state := "clean"
			if dirty {
				state = "dirty"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d (%s)\n", v, state)
			return err
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark VERSION as applied and clear the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.Atoi(args[0])
			if err != nil || v < 0 {
				return fmt.Errorf("invalid version %q", args[0])
			}
			mg, done, err := open()
			if err != nil {
				return err
			}
			defer done()
			return mg.Force(v)
		},
	})
	return cmd
}
