package links

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// flakyStore wraps a memory store and fails List on demand.
type flakyStore struct {
	Store
	failList bool
}

func (f *flakyStore) List(ctx context.Context) ([]*Link, error) {
	if f.failList {
		return nil, errors.New("db down")
	}
	return f.Store.List(ctx)
}

func TestCreateAndSnapshot(t *testing.T) {
	svc := NewService(NewMemoryStore(), testLogger())
	ctx := context.Background()

	link, err := svc.Create(ctx, CreateLinkRequest{Title: "Sponsor", URL: "https://example.com/offer"})
	require.NoError(t, err)
	assert.True(t, link.Active)
	assert.Contains(t, link.ID, "lnk_")

	active := svc.Active()
	require.Len(t, active, 1)
	assert.Equal(t, link.ID, active[0].ID)

	got, err := svc.Get(link.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sponsor", got.Title)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(NewMemoryStore(), testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateLinkRequest{Title: "  ", URL: "https://example.com"})
	assert.ErrorIs(t, err, ErrEmptyTitle)

	_, err = svc.Create(ctx, CreateLinkRequest{Title: "a", URL: "ftp://example.com"})
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = svc.Create(ctx, CreateLinkRequest{Title: "a", URL: "not a url"})
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestRefreshKeepsPreviousSnapshotOnError(t *testing.T) {
	store := &flakyStore{Store: NewMemoryStore()}
	svc := NewService(store, testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateLinkRequest{Title: "Keep me", URL: "https://example.com"})
	require.NoError(t, err)
	require.Len(t, svc.Active(), 1)

	store.failList = true
	err = svc.Refresh(ctx)
	require.Error(t, err)

	// The serving snapshot is untouched by the failed refresh.
	assert.Len(t, svc.Active(), 1)

	store.failList = false
	require.NoError(t, svc.Refresh(ctx))
	assert.Len(t, svc.Active(), 1)
}

func TestUpdateMergesPointerFields(t *testing.T) {
	svc := NewService(NewMemoryStore(), testLogger())
	ctx := context.Background()

	link, err := svc.Create(ctx, CreateLinkRequest{Title: "Old", URL: "https://old.example.com", Icon: "star"})
	require.NoError(t, err)

	title := "New"
	inactive := false
	updated, err := svc.Update(ctx, link.ID, UpdateLinkRequest{Title: &title, Active: &inactive})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, "https://old.example.com", updated.URL)
	assert.Equal(t, "star", updated.Icon)
	assert.False(t, updated.Active)

	// Inactive links drop out of the serving set.
	assert.Empty(t, svc.Active())
}

func TestUpdateUnknown(t *testing.T) {
	svc := NewService(NewMemoryStore(), testLogger())
	title := "x"
	_, err := svc.Update(context.Background(), "lnk_missing", UpdateLinkRequest{Title: &title})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	svc := NewService(NewMemoryStore(), testLogger())
	ctx := context.Background()

	link, err := svc.Create(ctx, CreateLinkRequest{Title: "Gone soon", URL: "https://example.com"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, link.ID))
	_, err = svc.Get(link.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, link.ID), ErrNotFound)
}

func TestMemoryStoreCloneSemantics(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	link := &Link{ID: "lnk_1", Title: "t", URL: "https://e.com", Active: true}
	require.NoError(t, store.Create(ctx, link))

	got, err := store.Get(ctx, "lnk_1")
	require.NoError(t, err)
	got.Title = "mutated"

	again, err := store.Get(ctx, "lnk_1")
	require.NoError(t, err)
	assert.Equal(t, "t", again.Title)
}
