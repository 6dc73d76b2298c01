// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package types

// MsgType is the logical type of a bridged message, independent of which
// network produced it.
type MsgType string

const (
	MsgText        MsgType = "text"
	MsgImage       MsgType = "image"
	MsgSticker     MsgType = "sticker"
	MsgAnimation   MsgType = "animation"
	MsgAudio       MsgType = "audio"
	MsgVoice       MsgType = "voice"
	MsgVideo       MsgType = "video"
	MsgFile        MsgType = "file"
	MsgUnsupported MsgType = "unsupported"
)

// TelegramType is the Telegram-specific classification of a message,
// finer-grained than MsgType.
type TelegramType string

const (
	TelegramText            TelegramType = "text"
	TelegramAnimation       TelegramType = "animation"
	TelegramDocument        TelegramType = "document"
	TelegramVideo           TelegramType = "video"
	TelegramVoice           TelegramType = "voice"
	TelegramVideoNote       TelegramType = "video_note"
	TelegramAudio           TelegramType = "audio"
	TelegramSticker         TelegramType = "sticker"
	TelegramAnimatedSticker TelegramType = "animated_sticker"
	TelegramPhoto           TelegramType = "photo"
)

// MsgType maps the Telegram classification to the logical message type.
func (tt TelegramType) MsgType() MsgType {
	switch tt {
	case TelegramText:
		return MsgText
	case TelegramAnimation, TelegramAnimatedSticker:
		return MsgAnimation
	case TelegramDocument:
		return MsgFile
	case TelegramVideo, TelegramVideoNote:
		return MsgVideo
	case TelegramVoice:
		return MsgVoice
	case TelegramAudio:
		return MsgAudio
	case TelegramSticker:
		return MsgSticker
	case TelegramPhoto:
		return MsgImage
	default:
		return MsgUnsupported
	}
}

// HasMedia returns true if messages of this classification carry a
// downloadable attachment.
func (tt TelegramType) HasMedia() bool {
	return tt != TelegramText && tt != ""
}
