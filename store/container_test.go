package store_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.mau.fi/tgbridge"
	"go.mau.fi/tgbridge/store"
	"go.mau.fi/tgbridge/types"
)

func TestContainer_DummyFabrication(t *testing.T) {
	c := store.NewMemoryContainer(nil)
	ctx := context.Background()

	chat, err := c.GetChat(ctx, "telegram", "12345", "", true)
	require.NoError(t, err)
	assert.Equal(t, types.NewChatKey("telegram", "12345"), chat.ChatKey)
	assert.Equal(t, "Unknown chat", chat.Name)
	assert.Equal(t, types.ChatUnknown, chat.Type)
	assert.True(t, chat.Dummy)

	member, err := c.GetChat(ctx, "wechat", "member1", "group1", true)
	require.NoError(t, err)
	assert.Equal(t, "Unknown member", member.Name)
	assert.True(t, member.Dummy)
}

func TestContainer_StableIdentity(t *testing.T) {
	c := store.NewMemoryContainer(nil)
	ctx := context.Background()

	first, err := c.GetChat(ctx, "telegram", "12345", "", true)
	require.NoError(t, err)
	second, err := c.GetChat(ctx, "telegram", "12345", "", true)
	require.NoError(t, err)
	assert.Same(t, first, second)

	other, err := c.GetChat(ctx, "telegram", "6789", "", true)
	require.NoError(t, err)
	assert.NotSame(t, first, other)
}

func TestContainer_NotFoundWithoutDummy(t *testing.T) {
	c := store.NewMemoryContainer(nil)
	_, err := c.GetChat(context.Background(), "telegram", "12345", "", false)
	assert.ErrorIs(t, err, tgbridge.ErrChatNotFound)
}

func TestContainer_PutChatUpdatesCacheInPlace(t *testing.T) {
	c := store.NewMemoryContainer(nil)
	ctx := context.Background()

	dummy, err := c.GetChat(ctx, "telegram", "12345", "", true)
	require.NoError(t, err)
	require.True(t, dummy.Dummy)

	err = c.PutChat(ctx, &types.ChatInfo{
		ChatKey: types.NewChatKey("telegram", "12345"),
		Name:    "Alice",
		Alias:   "al",
		Type:    types.ChatPrivate,
	})
	require.NoError(t, err)

	// The object handed out before the update observes the new metadata.
	assert.Equal(t, "Alice", dummy.Name)
	assert.Equal(t, "al", dummy.Alias)
	assert.Equal(t, types.ChatPrivate, dummy.Type)
	assert.False(t, dummy.Dummy)

	again, err := c.GetChat(ctx, "telegram", "12345", "", false)
	require.NoError(t, err)
	assert.Same(t, dummy, again)
}

func TestContainer_PutChatSeedsCache(t *testing.T) {
	c := store.NewMemoryContainer(nil)
	ctx := context.Background()
	chat := &types.ChatInfo{ChatKey: types.NewChatKey("telegram", "12345"), Name: "Alice"}
	require.NoError(t, c.PutChat(ctx, chat))

	out, err := c.GetChat(ctx, "telegram", "12345", "", false)
	require.NoError(t, err)
	assert.Same(t, chat, out)

	assert.NoError(t, c.PutChat(ctx, nil))
}

func TestContainer_Postgres(t *testing.T) {
	dsn := os.Getenv("TEST_DB_URL")
	if dsn == "" {
		t.Skip("TEST_DB_URL not set")
	}
	ctx := context.Background()
	c, err := store.New(ctx, dsn, nil)
	require.NoError(t, err)
	defer c.Close()

	chat := &types.ChatInfo{
		ChatKey: types.NewChatKey("telegram", "pgtest"),
		Name:    "Persisted",
		Type:    types.ChatPrivate,
	}
	require.NoError(t, c.PutChat(ctx, chat))

	// A fresh container must read it back from the database.
	fresh, err := store.New(ctx, dsn, nil)
	require.NoError(t, err)
	defer fresh.Close()
	out, err := fresh.GetChat(ctx, "telegram", "pgtest", "", false)
	require.NoError(t, err)
	assert.Equal(t, "Persisted", out.Name)
	assert.Equal(t, types.ChatPrivate, out.Type)
	assert.False(t, out.Dummy)
}
