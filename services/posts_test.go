package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")

	view, err := f.posts.Create(ctx, asha.Email, PostInput{
		Title:   "  Monsoon  ",
		Content: "<p>Rain on tin roofs</p>",
		Tags:    []string{"Haiku", " #monsoon", "haiku", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "Monsoon", view.Title)
	assert.Equal(t, []string{"haiku", "monsoon"}, view.Tags)
	assert.Equal(t, 0, view.Likes)
	require.NotNil(t, view.Author)
	assert.Equal(t, "asha", view.Author.Username)

	assert.Equal(t, view.ID, f.reload(t, asha.Email).Posts[0])

	root, err := f.comments.Create(ctx, asha.Email, view.ID.Hex(), "first", "")
	require.NoError(t, err)
	_, err = f.comments.Create(ctx, asha.Email, view.ID.Hex(), "reply", root.ID.Hex())
	require.NoError(t, err)

	detail, err := f.posts.Get(ctx, view.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Monsoon", detail.Post.Title)
	assert.Equal(t, "asha", detail.Post.Author.Username)
	require.Len(t, detail.Comments, 1)
	assert.Len(t, detail.Comments[0].Replies, 1)
	assert.Equal(t, 2, detail.Post.CommentCount)
}

func TestCreatePostValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")

	tests := []struct {
		name string
		in   PostInput
	}{
		{"missing title", PostInput{Content: "x"}},
		{"long title", PostInput{Title: strings.Repeat("t", maxTitleLength+1), Content: "x"}},
		{"blank content", PostInput{Title: "t", Content: "  "}},
		{"too many tags", PostInput{Title: "t", Content: "x", Tags: strings.Split("a,b,c,d,e,f,g,h,i,j,k", ",")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.posts.Create(ctx, asha.Email, tt.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	_, err := f.posts.Create(ctx, "ghost@example.com", PostInput{Title: "t", Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")
	ravi := f.user(t, "ravi@example.com", "ravi")
	post := f.post(t, asha, "Draft", time.Now())

	title := "Final"
	_, err := f.posts.Update(ctx, ravi.Email, post.ID.Hex(), PostEdit{Title: &title})
	assert.ErrorIs(t, err, ErrForbidden)

	oldCover, oldID := "https://img/old.jpg", "covers/"+asha.ID.Hex()+"_20261001090000"
	_, err = f.posts.Update(ctx, asha.Email, post.ID.Hex(), PostEdit{CoverImage: &oldCover, CoverImageID: &oldID})
	require.NoError(t, err)

	newCover, newID := "https://img/new.jpg", "covers/"+asha.ID.Hex()+"_20261002090000"
	view, err := f.posts.Update(ctx, asha.Email, post.ID.Hex(), PostEdit{
		Title:        &title,
		Tags:         []string{"Ghazal"},
		CoverImage:   &newCover,
		CoverImageID: &newID,
	})
	require.NoError(t, err)
	assert.Equal(t, "Final", view.Title)
	assert.Equal(t, []string{"ghazal"}, view.Tags)
	assert.Equal(t, newCover, view.CoverImage)
	assert.Equal(t, []string{oldID}, f.uploader.destroyed)

	empty := " "
	_, err = f.posts.Update(ctx, asha.Email, post.ID.Hex(), PostEdit{Content: &empty})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeletePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")
	ravi := f.user(t, "ravi@example.com", "ravi")

	cover, coverID := "https://img/c.jpg", "covers/"+asha.ID.Hex()+"_20261001090000"
	view, err := f.posts.Create(ctx, asha.Email, PostInput{
		Title: "Monsoon", Content: "x", CoverImage: cover, CoverImageID: coverID,
	})
	require.NoError(t, err)
	postHex := view.ID.Hex()
	_, err = f.comments.Create(ctx, ravi.Email, postHex, "Lovely", "")
	require.NoError(t, err)
	_, err = f.interactions.ToggleBookmark(ctx, ravi.Email, postHex)
	require.NoError(t, err)

	assert.ErrorIs(t, f.posts.Delete(ctx, ravi.Email, postHex), ErrForbidden)
	require.NoError(t, f.posts.Delete(ctx, asha.Email, postHex))

	_, err = f.posts.Get(ctx, postHex)
	assert.ErrorIs(t, err, ErrNotFound)
	comments, err := f.store.ListComments(ctx, view.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
	assert.Empty(t, f.reload(t, asha.Email).Posts)
	assert.Equal(t, []string{coverID}, f.uploader.destroyed)

	// Other users' bookmarks are left alone.
	assert.Len(t, f.reload(t, ravi.Email).Bookmarks, 1)

	assert.ErrorIs(t, f.posts.Delete(ctx, asha.Email, postHex), ErrNotFound)
}

func TestUploadCover(t *testing.T) {
	f := newFixture(t)
	asha := f.user(t, "asha@example.com", "asha")

	asset, err := f.posts.UploadCover(context.Background(), asha.Email, strings.NewReader("jpeg bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(asset.PublicID, "covers/"+asha.ID.Hex()+"_"))
	assert.NotEmpty(t, asset.URL)
}

func TestCoverImageMustBelongToAuthor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	asha := f.user(t, "asha@example.com", "asha")
	ravi := f.user(t, "ravi@example.com", "ravi")

	asset, err := f.posts.UploadCover(ctx, asha.Email, strings.NewReader("jpeg"))
	require.NoError(t, err)

	_, err = f.posts.Create(ctx, ravi.Email, PostInput{
		Title: "Borrowed", Content: "x", CoverImage: asset.URL, CoverImageID: asset.PublicID,
	})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Empty(t, f.reload(t, ravi.Email).Posts)

	own := f.post(t, ravi, "Mine", time.Now())
	_, err = f.posts.Update(ctx, ravi.Email, own.ID.Hex(), PostEdit{CoverImageID: &asset.PublicID})
	assert.ErrorIs(t, err, ErrValidation)
	require.NoError(t, f.posts.Delete(ctx, ravi.Email, own.ID.Hex()))
	assert.Empty(t, f.uploader.destroyed)

	view, err := f.posts.Create(ctx, asha.Email, PostInput{
		Title: "Monsoon", Content: "x", CoverImage: asset.URL, CoverImageID: asset.PublicID,
	})
	require.NoError(t, err)
	require.NoError(t, f.posts.Delete(ctx, asha.Email, view.ID.Hex()))
	assert.Equal(t, []string{asset.PublicID}, f.uploader.destroyed)
}
