// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package types

// ChatType tells what kind of conversation a ChatInfo describes.
type ChatType string

const (
	ChatPrivate ChatType = "private"
	ChatGroup   ChatType = "group"
	ChatSystem  ChatType = "system"
	ChatUnknown ChatType = "unknown"
)

// ChatInfo is a live chat object resolved through a chat directory.
//
// Instances are shared: a message holds references into the directory's
// cache rather than owning copies, and the directory may hand out the
// same pointer for repeated lookups of the same key.
type ChatInfo struct {
	ChatKey

	Name  string
	Alias string
	Type  ChatType

	// IsSelf marks the identity representing the bridge user themselves.
	IsSelf bool
	// Dummy marks a placeholder fabricated without authoritative metadata.
	Dummy bool
}

// Key returns the stable identity of the chat. It also makes *ChatInfo
// satisfy ChatRef.
func (ci *ChatInfo) Key() ChatKey {
	return ci.ChatKey
}

// DisplayName returns the alias if one is set, otherwise the name.
func (ci *ChatInfo) DisplayName() string {
	if len(ci.Alias) > 0 {
		return ci.Alias
	}
	return ci.Name
}

// ChatRef is either a raw chat identity (ChatKey) or an already-resolved
// rich chat object (*ChatInfo). Freshly received messages may carry
// either variant; Codec.Adapt upgrades the raw one through the directory.
type ChatRef interface {
	Key() ChatKey
}

// Key makes the raw ChatKey itself satisfy ChatRef.
func (key ChatKey) Key() ChatKey {
	return key
}

var (
	_ ChatRef = ChatKey{}
	_ ChatRef = (*ChatInfo)(nil)
)
