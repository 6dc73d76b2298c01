// Copyright (c) 2025 Tulir Asokan
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package types contains various structs and other types used by tgbridge.
package types

import (
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"
)

// Separator joins the components of the textual chat key form.
// Component values must not contain it, except the group id, which is
// always the last component and may therefore hold anything.
const Separator = "."

// EmptyChatKey is the zero value of ChatKey.
var EmptyChatKey = ChatKey{}

// ChatKey is the stable identity of a chat or a group member on a remote
// network.
//
// A key without a group id refers to a chat (a private conversation or a
// whole group). A key with a group id refers to a member: Chat holds the
// member's own id and Group the id of the group chat they belong to.
type ChatKey struct {
	Network string
	Chat    string
	Group   string
}

// NewChatKey creates a key for a whole chat.
func NewChatKey(network, chat string) ChatKey {
	return ChatKey{
		Network: network,
		Chat:    chat,
	}
}

// NewMemberKey creates a key for a single member of a group chat.
func NewMemberKey(network, member, group string) ChatKey {
	return ChatKey{
		Network: network,
		Chat:    member,
		Group:   group,
	}
}

// ToChat returns a version of the key without the group component.
func (key ChatKey) ToChat() ChatKey {
	return ChatKey{
		Network: key.Network,
		Chat:    key.Chat,
	}
}

// SameChat returns true if the two keys have the same network and chat
// ids, ignoring any group components.
func (key ChatKey) SameChat(other ChatKey) bool {
	return key.Network == other.Network && key.Chat == other.Chat
}

// IsEmpty returns true if the key has no network (which is required for all keys).
func (key ChatKey) IsEmpty() bool {
	return len(key.Network) == 0
}

// ParseChatKey parses the textual form produced by String.
//
// The split is greedy from the left, so a group id may contain the
// separator, but network and chat ids must not.
func ParseChatKey(raw string) (ChatKey, error) {
	parts := strings.SplitN(raw, Separator, 3)
	if len(parts) < 2 {
		return EmptyChatKey, fmt.Errorf("invalid chat key %q: expected at least two components", raw)
	}
	key := ChatKey{Network: parts[0], Chat: parts[1]}
	if len(parts) == 3 {
		key.Group = parts[2]
	}
	if len(key.Network) == 0 || len(key.Chat) == 0 {
		return EmptyChatKey, fmt.Errorf("invalid chat key %q: empty component", raw)
	}
	return key, nil
}

// String converts the key to its textual form,
// <network>.<chat> or <network>.<chat>.<group>.
// The output can be parsed back with ParseChatKey.
func (key ChatKey) String() string {
	if len(key.Group) > 0 {
		return key.Network + Separator + key.Chat + Separator + key.Group
	} else if len(key.Chat) > 0 {
		return key.Network + Separator + key.Chat
	}
	return key.Network
}

// MarshalText implements encoding.TextMarshaler for ChatKey
func (key ChatKey) MarshalText() ([]byte, error) {
	return []byte(key.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for ChatKey
func (key *ChatKey) UnmarshalText(val []byte) error {
	out, err := ParseChatKey(string(val))
	if err != nil {
		return err
	}
	*key = out
	return nil
}

var _ sql.Scanner = (*ChatKey)(nil)

// Scan scans the given SQL value into this ChatKey.
func (key *ChatKey) Scan(src interface{}) error {
	if src == nil {
		return nil
	}
	var out ChatKey
	var err error
	switch val := src.(type) {
	case string:
		out, err = ParseChatKey(val)
	case []byte:
		out, err = ParseChatKey(string(val))
	default:
		err = fmt.Errorf("unsupported type %T for scanning ChatKey", val)
	}
	if err != nil {
		return err
	}
	*key = out
	return nil
}

// Value returns the string representation of the key as a value that the SQL package can use.
func (key ChatKey) Value() (driver.Value, error) {
	if len(key.Network) == 0 {
		return nil, nil
	}
	return key.String(), nil
}
