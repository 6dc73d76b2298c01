// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tgbridge

import (
	"context"
	"io"

	"go.mau.fi/tgbridge/types"
)

// ChatDirectory maps stable chat identities to live chat objects.
//
// groupID gives the parent group context when resolving a member of a
// group chat and is empty otherwise. When buildDummy is set, the
// directory must fabricate a placeholder instead of signaling absence;
// with it unset, a missing chat is reported as an error wrapping
// ErrChatNotFound.
type ChatDirectory interface {
	GetChat(ctx context.Context, network, chatID, groupID string, buildDummy bool) (*types.ChatInfo, error)
}

// ChatInfoStore persists authoritative chat metadata. The codec uses it
// as the target of opportunistic refresh tasks emitted on serialization.
type ChatInfoStore interface {
	PutChat(ctx context.Context, chat *types.ChatInfo) error
}

// Task is a unit of fire-and-forget background work.
type Task func(ctx context.Context) error

// TaskQueue accepts background tasks. Enqueue must not block and must
// not report task failures to the caller.
type TaskQueue interface {
	Enqueue(task Task)
}

// Downloader fetches the binary content behind a remote content handle.
//
// reportedPath is the network-reported file path (used for extension
// guessing), size the reported content length or -1 if unknown. The
// caller owns closing data.
type Downloader interface {
	Download(ctx context.Context, fileID string) (reportedPath string, size int64, data io.ReadCloser, err error)
}
