// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tgbridge

import (
	"errors"
)

// Miscellaneous errors
var (
	ErrNoResolver = errors.New("no media resolver attached to message")
)

// Some errors that the media resolver can return
var (
	ErrDownloadFailed   = errors.New("failed to download media")
	ErrTranscodeFailed  = errors.New("failed to transcode media")
	ErrWidthProbeFailed = errors.New("failed to probe animation width")
)

// Some errors that the message reference codec can return
var (
	ErrChatNotFound      = errors.New("chat directory could not resolve chat")
	ErrInvalidRecord     = errors.New("invalid serialized message record")
	ErrDirectoryRequired = errors.New("codec has no chat directory")
)
