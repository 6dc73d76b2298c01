// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package tgbridge implements the message normalization layer of a
// Telegram chat-relay bridge: a uniform message type with lazy,
// memoized media materialization and a compact persistence codec that
// stores chat references as stable string keys.
package tgbridge

import (
	"context"
	"os"

	"go.mau.fi/tgbridge/types"
)

// MIME types produced and consumed by the media resolver.
const (
	// MIMETelegramSticker marks the gzipped Lottie payload of an
	// animated sticker before (or instead of) conversion.
	MIMETelegramSticker = "application/json+tgs"
	// MIMERawSticker is the declared type of an animated sticker payload
	// delivered unconverted after a failed conversion.
	MIMERawSticker = "application/json"
	// MIMEAnimatedImage is the target type of animation and animated
	// sticker normalization.
	MIMEAnimatedImage = "image/gif"
	// MIMEStickerImage is the target type of static sticker normalization.
	MIMEStickerImage = "image/png"
)

// Message is a single bridged chat message.
//
// Chat and Author are shared references whose canonical lifetime belongs
// to the chat directory; Author may be the same object as Chat for
// messages sent by the chat itself.
//
// A Message is not safe for concurrent use. Callers sharing one across
// goroutines must serialize access themselves, otherwise the lazy
// resolution guard admits a duplicate download.
type Message struct {
	ID   string
	Type types.MsgType
	// TelegramType is the Bot API classification, finer-grained than Type.
	TelegramType types.TelegramType
	Text         string

	// FileID is the Bot API content handle of the attachment, empty for
	// messages without media.
	FileID string
	// MIME is the declared attachment type; resolution may replace it
	// with the sniffed or normalized type.
	MIME string
	// Filename is built progressively: synthesized for audio at
	// classification time, defaulted from the downloaded file otherwise.
	Filename string

	// TargetChannel identifies the destination channel the message will
	// be delivered to; used by per-destination media policies.
	TargetChannel string

	Chat      *types.ChatInfo
	Author    *types.ChatInfo
	Reactions map[string][]*types.ChatInfo

	resolver *MediaResolver

	// resolved is the once-only guard of the lazy resolver: set after a
	// successful resolution, and immediately by SetFile/SetPath to
	// suppress automatic resolution entirely.
	resolved  bool
	media     resolvedMedia
	ownsMedia bool
}

// resolvedMedia is the transient materialized attachment. It is never
// serialized; a deserialized message starts unresolved again.
type resolvedMedia struct {
	file File
	path string
}

// NewMessage creates an empty message bound to the given resolver.
func NewMessage(resolver *MediaResolver) *Message {
	return &Message{resolver: resolver}
}

// AttachResolver binds the resolver used for lazy media materialization.
func (msg *Message) AttachResolver(resolver *MediaResolver) {
	msg.resolver = resolver
}

// GetFile returns the materialized attachment, downloading and
// normalizing it on first call. Messages without a content handle
// return nil without any network access.
func (msg *Message) GetFile(ctx context.Context) (File, error) {
	if !msg.resolved {
		if err := msg.resolve(ctx); err != nil {
			return nil, err
		}
	}
	return msg.media.file, nil
}

// SetFile overrides the attachment and suppresses automatic resolution.
func (msg *Message) SetFile(file File) {
	msg.resolved = true
	msg.ownsMedia = false
	msg.media.file = file
}

// GetPath returns the filesystem path of the materialized attachment,
// resolving it first if needed.
func (msg *Message) GetPath(ctx context.Context) (string, error) {
	if !msg.resolved {
		if err := msg.resolve(ctx); err != nil {
			return "", err
		}
	}
	return msg.media.path, nil
}

// SetPath overrides the attachment path and suppresses automatic
// resolution.
func (msg *Message) SetPath(path string) {
	msg.resolved = true
	msg.ownsMedia = false
	msg.media.path = path
}

// GetFilename returns the attachment filename, resolving the media
// first if needed.
func (msg *Message) GetFilename(ctx context.Context) (string, error) {
	if !msg.resolved {
		if err := msg.resolve(ctx); err != nil {
			return "", err
		}
	}
	return msg.Filename, nil
}

// SetFilename overrides the filename. Unlike SetFile and SetPath this
// does not affect the resolution guard: the file itself can still be
// materialized lazily afterwards.
func (msg *Message) SetFilename(name string) {
	msg.Filename = name
}

// Close releases the materialized temp file, if the resolver created
// one. Messages with caller-supplied files are left untouched.
func (msg *Message) Close() error {
	if !msg.ownsMedia {
		return nil
	}
	msg.ownsMedia = false
	var err error
	if msg.media.file != nil {
		err = msg.media.file.Close()
	}
	if len(msg.media.path) > 0 {
		if rmErr := os.Remove(msg.media.path); rmErr != nil && err == nil && !os.IsNotExist(rmErr) {
			err = rmErr
		}
	}
	msg.media = resolvedMedia{}
	return err
}
