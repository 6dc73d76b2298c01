package tgbridge

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mau.fi/tgbridge/types"
)

type dirCall struct {
	network, chatID, groupID string
	buildDummy               bool
}

type mockDirectory struct {
	calls []dirCall
	chats map[types.ChatKey]*types.ChatInfo
}

func newMockDirectory(preset ...*types.ChatInfo) *mockDirectory {
	dir := &mockDirectory{chats: make(map[types.ChatKey]*types.ChatInfo)}
	for _, chat := range preset {
		dir.chats[chat.ChatKey] = chat
	}
	return dir
}

func (d *mockDirectory) GetChat(_ context.Context, network, chatID, groupID string, buildDummy bool) (*types.ChatInfo, error) {
	d.calls = append(d.calls, dirCall{network, chatID, groupID, buildDummy})
	key := types.ChatKey{Network: network, Chat: chatID, Group: groupID}
	if chat, ok := d.chats[key]; ok {
		return chat, nil
	}
	chat := &types.ChatInfo{ChatKey: key, Type: types.ChatPrivate, Dummy: buildDummy}
	d.chats[key] = chat
	return chat, nil
}

type recordingQueue struct {
	tasks []Task
}

func (q *recordingQueue) Enqueue(task Task) {
	q.tasks = append(q.tasks, task)
}

func (q *recordingQueue) runAll(t *testing.T) {
	t.Helper()
	for _, task := range q.tasks {
		require.NoError(t, task(context.Background()))
	}
}

type recordingStore struct {
	puts []*types.ChatInfo
}

func (s *recordingStore) PutChat(_ context.Context, chat *types.ChatInfo) error {
	s.puts = append(s.puts, chat)
	return nil
}

func TestCodec_RoundTripSelfMessage(t *testing.T) {
	chat := &types.ChatInfo{ChatKey: types.NewChatKey("a", "1"), Name: "Alice", Type: types.ChatPrivate}
	src := &Message{
		ID:     "msg1",
		Type:   types.MsgText,
		Text:   "hello",
		Chat:   chat,
		Author: chat,
	}
	codec := &Codec{Directory: newMockDirectory()}

	data, err := codec.Serialize(src)
	require.NoError(t, err)

	out, err := codec.Deserialize(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, src.ID, out.ID)
	assert.Equal(t, src.Type, out.Type)
	assert.Equal(t, src.Text, out.Text)
	require.NotNil(t, out.Chat)
	assert.Equal(t, types.NewChatKey("a", "1"), out.Chat.ChatKey)
	// Self-message: the author must be the same object, not a copy.
	assert.Same(t, out.Chat, out.Author)
}

func TestCodec_DeserializeGroupAuthor(t *testing.T) {
	group := &types.ChatInfo{ChatKey: types.NewChatKey("a", "1"), Name: "Group", Type: types.ChatGroup}
	author := &types.ChatInfo{ChatKey: types.NewChatKey("a", "2"), Name: "Bob", Type: types.ChatPrivate}
	src := &Message{Type: types.MsgText, Chat: group, Author: author}
	dir := newMockDirectory(group)
	codec := &Codec{Directory: dir}

	data, err := codec.Serialize(src)
	require.NoError(t, err)

	out, err := codec.Deserialize(context.Background(), data)
	require.NoError(t, err)
	require.NotNil(t, out.Author)
	assert.NotSame(t, out.Chat, out.Author)

	// The author lookup must have gone through the group-parent-aware path.
	require.Len(t, dir.calls, 2)
	assert.Equal(t, dirCall{"a", "2", "1", true}, dir.calls[1])
}

func TestCodec_DeserializePrivateChatAuthor(t *testing.T) {
	chat := &types.ChatInfo{ChatKey: types.NewChatKey("a", "1"), Type: types.ChatPrivate}
	author := &types.ChatInfo{ChatKey: types.NewChatKey("a", "2"), Type: types.ChatPrivate}
	dir := newMockDirectory(chat)
	codec := &Codec{Directory: dir}

	data, err := codec.Serialize(&Message{Chat: chat, Author: author})
	require.NoError(t, err)
	_, err = codec.Deserialize(context.Background(), data)
	require.NoError(t, err)

	require.Len(t, dir.calls, 2)
	// Not a group, so no parent context on the author lookup.
	assert.Equal(t, dirCall{"a", "2", "", true}, dir.calls[1])
}

func TestCodec_RoundTripReactions(t *testing.T) {
	chat := &types.ChatInfo{ChatKey: types.NewChatKey("a", "1")}
	reactor := &types.ChatInfo{ChatKey: types.NewChatKey("a", "3")}
	src := &Message{
		Chat:      chat,
		Author:    chat,
		Reactions: map[string][]*types.ChatInfo{"👍": {reactor}},
	}
	codec := &Codec{Directory: newMockDirectory()}

	data, err := codec.Serialize(src)
	require.NoError(t, err)
	out, err := codec.Deserialize(context.Background(), data)
	require.NoError(t, err)
	require.Len(t, out.Reactions["👍"], 1)
	assert.Equal(t, types.NewChatKey("a", "3"), out.Reactions["👍"][0].ChatKey)
}

func TestCodec_SerializedBytesExcludeResolvedMedia(t *testing.T) {
	dl := &mockDownloader{reportedPath: "documents/file_1.bin", data: []byte("payload")}
	msg := NewMessage(newTestResolver(dl))
	msg.TelegramType = types.TelegramDocument
	msg.Type = types.MsgFile
	msg.FileID = "file1"
	msg.MIME = "application/octet-stream"
	msg.Chat = &types.ChatInfo{ChatKey: types.NewChatKey("a", "1")}
	msg.Author = msg.Chat
	t.Cleanup(func() { _ = msg.Close() })

	path, err := msg.GetPath(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, path)

	codec := &Codec{Directory: newMockDirectory()}
	data, err := codec.Serialize(msg)
	require.NoError(t, err)
	assert.NotContains(t, string(data), path)
	assert.NotContains(t, string(data), `"path"`)
	assert.NotContains(t, string(data), `"file"`)
	// The content handle itself is part of the logical message and stays.
	assert.Contains(t, string(data), `"file_id":"file1"`)

	// A deserialized message starts unresolved again.
	out, err := codec.Deserialize(context.Background(), data)
	require.NoError(t, err)
	assert.False(t, out.resolved)
	assert.Empty(t, out.media.path)
}

func TestCodec_SerializeEnqueuesRefreshTasks(t *testing.T) {
	chat := &types.ChatInfo{ChatKey: types.NewChatKey("a", "1")}
	author := &types.ChatInfo{ChatKey: types.NewChatKey("a", "2")}
	self := &types.ChatInfo{ChatKey: types.NewChatKey("a", "me"), IsSelf: true}

	for _, tc := range []struct {
		name          string
		msg           *Message
		expectedTasks int
		expectedPuts  []*types.ChatInfo
	}{
		{"DistinctAuthor", &Message{Chat: chat, Author: author}, 2, []*types.ChatInfo{chat, author}},
		{"SelfAuthor", &Message{Chat: chat, Author: self}, 1, []*types.ChatInfo{chat}},
		{"AuthorIsChat", &Message{Chat: chat, Author: chat}, 1, []*types.ChatInfo{chat}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			queue := &recordingQueue{}
			store := &recordingStore{}
			codec := &Codec{Directory: newMockDirectory(), Store: store, Queue: queue}
			_, err := codec.Serialize(tc.msg)
			require.NoError(t, err)
			require.Len(t, queue.tasks, tc.expectedTasks)
			queue.runAll(t)
			assert.Equal(t, tc.expectedPuts, store.puts)
		})
	}
}

func TestCodec_SerializeWithoutQueue(t *testing.T) {
	codec := &Codec{Directory: newMockDirectory()}
	data, err := codec.Serialize(&Message{Chat: &types.ChatInfo{ChatKey: types.NewChatKey("a", "1")}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{"))
}

func TestCodec_Adapt(t *testing.T) {
	rich := &types.ChatInfo{ChatKey: types.NewChatKey("a", "1"), Name: "Known"}
	dir := newMockDirectory()
	codec := &Codec{Directory: dir}

	out, err := codec.Adapt(context.Background(), &GenericMessage{
		ID:     "m1",
		Type:   types.MsgText,
		Text:   "hi",
		Chat:   rich,
		Author: types.NewChatKey("a", "2"),
		Reactions: map[string][]types.ChatRef{
			"👍": {rich, types.NewChatKey("a", "3")},
		},
	})
	require.NoError(t, err)
	// The rich reference is kept as the same shared object.
	assert.Same(t, rich, out.Chat)
	require.NotNil(t, out.Author)
	assert.Equal(t, types.NewChatKey("a", "2"), out.Author.ChatKey)
	require.Len(t, out.Reactions["👍"], 2)
	assert.Same(t, rich, out.Reactions["👍"][0])
	assert.Equal(t, types.NewChatKey("a", "3"), out.Reactions["👍"][1].ChatKey)

	// Only the raw identities went through the directory.
	require.Len(t, dir.calls, 2)
	assert.Equal(t, dirCall{"a", "2", "", true}, dir.calls[0])
	assert.Equal(t, dirCall{"a", "3", "", true}, dir.calls[1])
}

func TestCodec_DeserializeInvalidRecord(t *testing.T) {
	codec := &Codec{Directory: newMockDirectory()}
	_, err := codec.Deserialize(context.Background(), []byte("not json"))
	assert.ErrorIs(t, err, ErrInvalidRecord)

	_, err = codec.Deserialize(context.Background(), []byte(`{"chat":"nodots"}`))
	assert.ErrorIs(t, err, ErrInvalidRecord)
}
