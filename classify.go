// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package tgbridge

import (
	"fmt"

	"github.com/mymmrac/telego"
	"go.mau.fi/util/exmime"

	"go.mau.fi/tgbridge/types"
)

// ClassifyMessage maps a raw Bot API message to its Telegram sub-kind.
//
// The common file attachments are checked first in a fixed priority
// order, matching how the Bot API populates at most one of them.
func ClassifyMessage(src *telego.Message) types.TelegramType {
	switch {
	case src.Animation != nil:
		return types.TelegramAnimation
	case src.Document != nil:
		return types.TelegramDocument
	case src.Video != nil:
		return types.TelegramVideo
	case src.Voice != nil:
		return types.TelegramVoice
	case src.VideoNote != nil:
		return types.TelegramVideoNote
	case src.Audio != nil:
		return types.TelegramAudio
	case src.Sticker != nil:
		if src.Sticker.IsAnimated || src.Sticker.IsVideo {
			return types.TelegramAnimatedSticker
		}
		return types.TelegramSticker
	case len(src.Photo) > 0:
		return types.TelegramPhoto
	default:
		return types.TelegramText
	}
}

// PutTelegramFile classifies the given Bot API message and stores its
// content handle, declared MIME type and best-effort filename on the
// message. The binary payload is not fetched here; that happens lazily
// on first file access.
func (msg *Message) PutTelegramFile(src *telego.Message) {
	msg.TelegramType = ClassifyMessage(src)
	msg.Type = msg.TelegramType.MsgType()

	switch msg.TelegramType {
	case types.TelegramAnimation:
		msg.FileID = src.Animation.FileID
		msg.MIME = src.Animation.MimeType
	case types.TelegramDocument:
		msg.FileID = src.Document.FileID
		msg.MIME = src.Document.MimeType
	case types.TelegramVideo:
		msg.FileID = src.Video.FileID
		msg.MIME = src.Video.MimeType
	case types.TelegramVoice:
		msg.FileID = src.Voice.FileID
		msg.MIME = src.Voice.MimeType
	case types.TelegramVideoNote:
		// Video notes carry no declared MIME, it gets sniffed after download.
		msg.FileID = src.VideoNote.FileID
	case types.TelegramAudio:
		msg.FileID = src.Audio.FileID
		msg.MIME = src.Audio.MimeType
		msg.Filename = fmt.Sprintf("%s - %s%s", src.Audio.Title, src.Audio.Performer, exmime.ExtensionFromMimetype(msg.MIME))
	case types.TelegramSticker:
		msg.FileID = src.Sticker.FileID
		msg.MIME = "image/webp"
	case types.TelegramAnimatedSticker:
		msg.FileID = src.Sticker.FileID
		msg.MIME = MIMETelegramSticker
	case types.TelegramPhoto:
		// The last photo size is the largest one.
		msg.FileID = src.Photo[len(src.Photo)-1].FileID
		msg.MIME = "image/jpeg"
	}
}
