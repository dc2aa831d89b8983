package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCommentThread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")
	ravi := f.user(t, "ravi@example.com", "ravi")
	post := f.post(t, asha, "Monsoon", time.Now())
	postHex := post.ID.Hex()

	root, err := f.comments.Create(ctx, ravi.Email, postHex, "  Beautiful imagery  ", "")
	require.NoError(t, err)
	assert.Equal(t, "Beautiful imagery", root.Content)
	assert.Nil(t, root.ParentComment)
	require.NotNil(t, root.AuthorInfo)
	assert.Equal(t, "ravi", root.AuthorInfo.Username)

	reply, err := f.comments.Create(ctx, asha.Email, postHex, "Thank you!", root.ID.Hex())
	require.NoError(t, err)
	require.NotNil(t, reply.ParentComment)
	assert.Equal(t, root.ID, *reply.ParentComment)

	_, err = f.comments.Create(ctx, ravi.Email, postHex, "Second thought", "")
	require.NoError(t, err)

	tree, err := f.comments.Tree(ctx, postHex)
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, root.ID, tree[0].ID)
	require.Len(t, tree[0].Replies, 1)
	assert.Equal(t, reply.ID, tree[0].Replies[0].ID)
	assert.Equal(t, "asha", tree[0].Replies[0].AuthorInfo.Username)
	assert.Empty(t, tree[1].Replies)

	stored, err := f.store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{root.ID, reply.ID, tree[1].ID}, stored.Comments)
}

func TestCommentParentValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")
	first := f.post(t, asha, "First", time.Now())
	second := f.post(t, asha, "Second", time.Now())

	other, err := f.comments.Create(ctx, asha.Email, second.ID.Hex(), "On the second post", "")
	require.NoError(t, err)

	_, err = f.comments.Create(ctx, asha.Email, first.ID.Hex(), "Cross-post reply", other.ID.Hex())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.comments.Create(ctx, asha.Email, first.ID.Hex(), "Reply to nothing", primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.comments.Create(ctx, asha.Email, first.ID.Hex(), "Bad parent", "xyz")
	assert.ErrorIs(t, err, ErrValidation)

	tree, err := f.comments.Tree(ctx, first.ID.Hex())
	require.NoError(t, err)
	assert.Empty(t, tree)
}

func TestCommentInputValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")
	post := f.post(t, asha, "Monsoon", time.Now())

	_, err := f.comments.Create(ctx, asha.Email, post.ID.Hex(), "   ", "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.comments.Create(ctx, asha.Email, post.ID.Hex(), strings.Repeat("a", maxCommentLength+1), "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.comments.Create(ctx, asha.Email, primitive.NewObjectID().Hex(), "Hello", "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.comments.Tree(ctx, primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}
