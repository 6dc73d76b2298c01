// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package store contains a Postgres-backed implementation of the chat
// directory and task queue interfaces in the tgbridge package.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go.mau.fi/tgbridge"
	"go.mau.fi/tgbridge/types"
	waLog "go.mau.fi/tgbridge/util/log"
)

// Container is a chat directory backed by a Postgres table with an
// in-memory cache in front. Cached objects are shared: repeated lookups
// of the same key return the same pointer, which is what gives
// deserialized messages their identity-sharing behavior.
type Container struct {
	db  *pgxpool.Pool
	log waLog.Logger

	cache     map[types.ChatKey]*types.ChatInfo
	cacheLock sync.RWMutex
}

var (
	_ tgbridge.ChatDirectory = (*Container)(nil)
	_ tgbridge.ChatInfoStore = (*Container)(nil)
)

// NewContainer wraps an existing connection pool.
func NewContainer(db *pgxpool.Pool, log waLog.Logger) *Container {
	if log == nil {
		log = waLog.Noop
	}
	return &Container{
		db:    db,
		log:   log,
		cache: make(map[types.ChatKey]*types.ChatInfo),
	}
}

// NewMemoryContainer creates a cache-only container with no database
// behind it. Lookups only hit the cache and dummy fabrication; PutChat
// only updates the cache.
func NewMemoryContainer(log waLog.Logger) *Container {
	return NewContainer(nil, log)
}

// New connects to the given Postgres database and upgrades its schema
// to the latest version.
func New(ctx context.Context, dsn string, log waLog.Logger) (*Container, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	container := NewContainer(pool, log)
	if err = container.Upgrade(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to upgrade database: %w", err)
	}
	return container, nil
}

// Close releases the underlying connection pool, if any.
func (c *Container) Close() {
	if c.db != nil {
		c.db.Close()
	}
}

const (
	getChatQuery = `
		SELECT name, alias, chat_type, is_self
		FROM tgbridge_chat_info WHERE network=$1 AND chat_id=$2 AND group_id=$3
	`
	putChatQuery = `
		INSERT INTO tgbridge_chat_info (network, chat_id, group_id, name, alias, chat_type, is_self)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (network, chat_id, group_id) DO UPDATE
			SET name=excluded.name, alias=excluded.alias, chat_type=excluded.chat_type, is_self=excluded.is_self
	`
)

// GetChat implements tgbridge.ChatDirectory. Misses fall through from
// the cache to the database; when the chat is unknown and buildDummy is
// set, a placeholder is fabricated (and cached so identity stays stable
// within this container).
func (c *Container) GetChat(ctx context.Context, network, chatID, groupID string, buildDummy bool) (*types.ChatInfo, error) {
	key := types.ChatKey{Network: network, Chat: chatID, Group: groupID}
	c.cacheLock.RLock()
	cached, ok := c.cache[key]
	c.cacheLock.RUnlock()
	if ok {
		return cached, nil
	}

	c.cacheLock.Lock()
	defer c.cacheLock.Unlock()
	if cached, ok = c.cache[key]; ok {
		return cached, nil
	}
	if c.db != nil {
		info := &types.ChatInfo{ChatKey: key}
		err := c.db.QueryRow(ctx, getChatQuery, key.Network, key.Chat, key.Group).
			Scan(&info.Name, &info.Alias, &info.Type, &info.IsSelf)
		if err == nil {
			c.cache[key] = info
			return info, nil
		} else if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("failed to query chat info: %w", err)
		}
	}
	if !buildDummy {
		return nil, fmt.Errorf("%w: %s", tgbridge.ErrChatNotFound, key)
	}
	dummy := &types.ChatInfo{
		ChatKey: key,
		Name:    "Unknown chat",
		Type:    types.ChatUnknown,
		Dummy:   true,
	}
	if len(groupID) > 0 {
		dummy.Name = "Unknown member"
	}
	c.log.Debugf("Fabricated dummy chat for %s", key)
	c.cache[key] = dummy
	return dummy, nil
}

// PutChat implements tgbridge.ChatInfoStore: it upserts the chat's
// metadata and refreshes the cache entry in place, so objects already
// handed out observe the update.
func (c *Container) PutChat(ctx context.Context, chat *types.ChatInfo) error {
	if chat == nil {
		return nil
	}
	if c.db != nil {
		_, err := c.db.Exec(ctx, putChatQuery,
			chat.Network, chat.Chat, chat.Group, chat.Name, chat.Alias, chat.Type, chat.IsSelf)
		if err != nil {
			return fmt.Errorf("failed to store chat info: %w", err)
		}
	}
	c.cacheLock.Lock()
	if cached, ok := c.cache[chat.ChatKey]; ok && cached != chat {
		cached.Name = chat.Name
		cached.Alias = chat.Alias
		cached.Type = chat.Type
		cached.IsSelf = chat.IsSelf
		cached.Dummy = false
	} else {
		c.cache[chat.ChatKey] = chat
	}
	c.cacheLock.Unlock()
	return nil
}
