// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tgbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"go.mau.fi/tgbridge/types"
)

// Codec converts messages to and from their persisted record form.
//
// Serialization substitutes chat and author objects with their stable
// string keys and never includes resolved media; deserialization
// re-resolves those keys into live chat objects through the directory.
type Codec struct {
	Directory ChatDirectory
	// Store is the target of opportunistic metadata-refresh tasks
	// emitted on serialization. Optional, as is Queue: with either
	// unset, serialization skips the refresh side effect.
	Store ChatInfoStore
	Queue TaskQueue
	// Resolver is attached to messages produced by Deserialize and
	// Adapt so their media can be materialized lazily.
	Resolver *MediaResolver
}

// serializedMessage is the wire record. Chat references are stored as
// "<network>.<chat>[.<group>]" keys; resolved media has no fields here
// at all, so it can never leak into storage.
type serializedMessage struct {
	ID            string              `json:"id,omitempty"`
	Type          types.MsgType       `json:"type"`
	TelegramType  types.TelegramType  `json:"type_telegram,omitempty"`
	Text          string              `json:"text,omitempty"`
	FileID        string              `json:"file_id,omitempty"`
	MIME          string              `json:"mime,omitempty"`
	Filename      string              `json:"filename,omitempty"`
	TargetChannel string              `json:"target_channel,omitempty"`
	Chat          string              `json:"chat,omitempty"`
	Author        string              `json:"author,omitempty"`
	Reactions     map[string][]string `json:"reactions,omitempty"`
}

// Serialize produces the persisted byte form of the message and emits
// opportunistic metadata-refresh tasks for its chat and author. The
// tasks are fire-and-forget: they run on the background queue and their
// outcome never affects this call.
func (c *Codec) Serialize(msg *Message) ([]byte, error) {
	c.enqueueRefresh(msg)
	record := serializedMessage{
		ID:            msg.ID,
		Type:          msg.Type,
		TelegramType:  msg.TelegramType,
		Text:          msg.Text,
		FileID:        msg.FileID,
		MIME:          msg.MIME,
		Filename:      msg.Filename,
		TargetChannel: msg.TargetChannel,
	}
	if msg.Chat != nil {
		record.Chat = msg.Chat.ChatKey.String()
	}
	if msg.Author != nil {
		record.Author = msg.Author.ChatKey.String()
	}
	if len(msg.Reactions) > 0 {
		record.Reactions = make(map[string][]string, len(msg.Reactions))
		for reaction, reactors := range msg.Reactions {
			keys := make([]string, len(reactors))
			for i, reactor := range reactors {
				keys[i] = reactor.ChatKey.String()
			}
			record.Reactions[reaction] = keys
		}
	}
	return json.Marshal(&record)
}

func (c *Codec) enqueueRefresh(msg *Message) {
	if c.Queue == nil || c.Store == nil {
		return
	}
	if chat := msg.Chat; chat != nil {
		c.Queue.Enqueue(func(ctx context.Context) error {
			return c.Store.PutChat(ctx, chat)
		})
	}
	if author := msg.Author; author != nil && !author.IsSelf &&
		(msg.Chat == nil || author.ChatKey != msg.Chat.ChatKey) {
		c.Queue.Enqueue(func(ctx context.Context) error {
			return c.Store.PutChat(ctx, author)
		})
	}
}

// Deserialize decodes a persisted record back into a live message,
// resolving chat keys through the directory. Author resolution shares
// identity with the chat for self-messages and goes through the
// group-parent-aware lookup when the chat is a group.
func (c *Codec) Deserialize(ctx context.Context, data []byte) (*Message, error) {
	if c.Directory == nil {
		return nil, ErrDirectoryRequired
	}
	var record serializedMessage
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	msg := &Message{
		ID:            record.ID,
		Type:          record.Type,
		TelegramType:  record.TelegramType,
		Text:          record.Text,
		FileID:        record.FileID,
		MIME:          record.MIME,
		Filename:      record.Filename,
		TargetChannel: record.TargetChannel,
		resolver:      c.Resolver,
	}

	var chatKey types.ChatKey
	if len(record.Chat) > 0 {
		var err error
		chatKey, err = types.ParseChatKey(record.Chat)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		msg.Chat, err = c.Directory.GetChat(ctx, chatKey.Network, chatKey.Chat, "", true)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve chat %s: %w", chatKey, err)
		}
	}
	if len(record.Author) > 0 {
		authorKey, err := types.ParseChatKey(record.Author)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		switch {
		case msg.Chat != nil && authorKey.SameChat(chatKey):
			// Message from the chat itself: the author is the chat, not a copy.
			msg.Author = msg.Chat
		case msg.Chat != nil && msg.Chat.Type == types.ChatGroup:
			msg.Author, err = c.Directory.GetChat(ctx, authorKey.Network, authorKey.Chat, chatKey.Chat, true)
		default:
			msg.Author, err = c.Directory.GetChat(ctx, authorKey.Network, authorKey.Chat, "", true)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to resolve author %s: %w", authorKey, err)
		}
	}
	if len(record.Reactions) > 0 {
		msg.Reactions = make(map[string][]*types.ChatInfo, len(record.Reactions))
		for reaction, keys := range record.Reactions {
			reactors := make([]*types.ChatInfo, len(keys))
			for i, raw := range keys {
				key, err := types.ParseChatKey(raw)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
				}
				reactors[i], err = c.Directory.GetChat(ctx, key.Network, key.Chat, "", true)
				if err != nil {
					return nil, fmt.Errorf("failed to resolve reactor %s: %w", key, err)
				}
			}
			msg.Reactions[reaction] = reactors
		}
	}
	return msg, nil
}

// GenericMessage is a freshly received message whose chat references may
// still be raw identities instead of resolved chat objects.
type GenericMessage struct {
	ID            string
	Type          types.MsgType
	TelegramType  types.TelegramType
	Text          string
	FileID        string
	MIME          string
	Filename      string
	TargetChannel string
	Chat          types.ChatRef
	Author        types.ChatRef
	Reactions     map[string][]types.ChatRef
}

// Adapt upgrades a generic message into the rich message type, wrapping
// every chat reference that is not already a resolved chat object
// through the directory. This is the construction path for freshly
// received messages, distinct from Deserialize.
func (c *Codec) Adapt(ctx context.Context, src *GenericMessage) (*Message, error) {
	if c.Directory == nil {
		return nil, ErrDirectoryRequired
	}
	msg := &Message{
		ID:            src.ID,
		Type:          src.Type,
		TelegramType:  src.TelegramType,
		Text:          src.Text,
		FileID:        src.FileID,
		MIME:          src.MIME,
		Filename:      src.Filename,
		TargetChannel: src.TargetChannel,
		resolver:      c.Resolver,
	}
	var err error
	if msg.Chat, err = c.resolveRef(ctx, src.Chat); err != nil {
		return nil, err
	}
	if msg.Author, err = c.resolveRef(ctx, src.Author); err != nil {
		return nil, err
	}
	if len(src.Reactions) > 0 {
		msg.Reactions = make(map[string][]*types.ChatInfo, len(src.Reactions))
		for reaction, reactors := range src.Reactions {
			resolved := make([]*types.ChatInfo, len(reactors))
			for i, reactor := range reactors {
				if resolved[i], err = c.resolveRef(ctx, reactor); err != nil {
					return nil, err
				}
			}
			msg.Reactions[reaction] = resolved
		}
	}
	return msg, nil
}

func (c *Codec) resolveRef(ctx context.Context, ref types.ChatRef) (*types.ChatInfo, error) {
	switch typed := ref.(type) {
	case nil:
		return nil, nil
	case *types.ChatInfo:
		// Already rich, keep the shared object.
		return typed, nil
	default:
		key := ref.Key()
		info, err := c.Directory.GetChat(ctx, key.Network, key.Chat, key.Group, true)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve chat reference %s: %w", key, err)
		}
		return info, nil
	}
}
