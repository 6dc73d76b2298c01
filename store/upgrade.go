// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type upgradeFunc func(context.Context, pgx.Tx, *Container) error

// Upgrades is a list of functions that will upgrade a database to the latest version.
//
// This may be of use if you want to manage the database fully manually, but in most cases you
// should just call Container.Upgrade to let the library handle everything.
var Upgrades = [...]upgradeFunc{upgradeV1}

func (c *Container) getVersion(ctx context.Context) (int, error) {
	_, err := c.db.Exec(ctx, "CREATE TABLE IF NOT EXISTS tgbridge_version (version INTEGER)")
	if err != nil {
		return -1, err
	}

	version := 0
	row := c.db.QueryRow(ctx, "SELECT version FROM tgbridge_version LIMIT 1")
	if row != nil {
		_ = row.Scan(&version)
	}
	return version, nil
}

func (c *Container) setVersion(ctx context.Context, tx pgx.Tx, version int) error {
	_, err := tx.Exec(ctx, "DELETE FROM tgbridge_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, "INSERT INTO tgbridge_version (version) VALUES ($1)", version)
	return err
}

// Upgrade upgrades the database from the current to the latest version available.
func (c *Container) Upgrade(ctx context.Context) error {
	version, err := c.getVersion(ctx)
	if err != nil {
		return err
	}

	for ; version < len(Upgrades); version++ {
		var tx pgx.Tx
		tx, err = c.db.Begin(ctx)
		if err != nil {
			return err
		}

		migrateFunc := Upgrades[version]
		c.log.Infof("Upgrading database to v%d", version+1)
		err = migrateFunc(ctx, tx, c)
		if err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		if err = c.setVersion(ctx, tx, version+1); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}

		if err = tx.Commit(ctx); err != nil {
			return err
		}
	}
	return nil
}

func upgradeV1(ctx context.Context, tx pgx.Tx, _ *Container) error {
	_, err := tx.Exec(ctx, `CREATE TABLE tgbridge_chat_info (
		network    TEXT NOT NULL,
		chat_id    TEXT NOT NULL,
		group_id   TEXT NOT NULL DEFAULT '',
		name       TEXT NOT NULL DEFAULT '',
		alias      TEXT NOT NULL DEFAULT '',
		chat_type  TEXT NOT NULL DEFAULT 'unknown',
		is_self    BOOLEAN NOT NULL DEFAULT false,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),

		PRIMARY KEY (network, chat_id, group_id)
	)`)
	return err
}
