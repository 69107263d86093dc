package history

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/research-camera/internal/domain/analysis"
	domain "github.com/bryanwahyu/research-camera/internal/domain/history"
	"github.com/bryanwahyu/research-camera/internal/domain/kv"
	"github.com/bryanwahyu/research-camera/internal/infra/storage"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

type fakeThumbs struct {
	calls []string
	err   error
}

func (f *fakeThumbs) Thumbnail(_ context.Context, data []byte) (string, error) {
	f.calls = append(f.calls, string(data))
	if f.err != nil {
		return "", f.err
	}
	return "data:image/jpeg;base64,dGh1bWI=", nil
}

// failingStore fails every Set.
type failingStore struct{ kv.Store }

func (failingStore) Set(context.Context, string, []byte) error { return errors.New("quota exceeded") }

func newTestService(store kv.Store) (*Service, *fakeThumbs) {
	th := &fakeThumbs{}
	svc := NewService(store, th, nil)
	svc.Clock = &stepClock{now: time.UnixMilli(1_700_000_000_000)}
	return svc, th
}

func result(title string) analysis.Result {
	return analysis.Result{Sections: []analysis.Section{{Title: title, Content: "body"}}}
}

func images(names ...string) []analysis.Image {
	out := make([]analysis.Image, 0, len(names))
	for _, n := range names {
		out = append(out, analysis.Image{Name: n, MimeType: "image/png", Data: []byte(n)})
	}
	return out
}

func TestSave_PrependsAndUsesFirstImageOnly(t *testing.T) {
	ctx := context.Background()
	svc, th := newTestService(storage.NewMemory())

	first, ok := svc.Save(ctx, "u1", result("one"), analysis.ModeExplain, analysis.AudienceStudent, images("a"))
	require.True(t, ok)
	second, ok := svc.Save(ctx, "u1", result("two"), analysis.ModeResearch, analysis.AudienceExpert, images("b", "c"))
	require.True(t, ok)

	assert.Equal(t, []string{"a", "b"}, th.calls)
	assert.Equal(t, 2, second.ImageCount)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Greater(t, second.Timestamp, first.Timestamp)

	list := svc.List(ctx, "u1")
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.Equal(t, "data:image/jpeg;base64,dGh1bWI=", list[0].ThumbnailURL)
}

func TestSave_CapsAtTenPerUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(storage.NewMemory())

	_, ok := svc.Save(ctx, "other", result("keep me"), analysis.ModeExplain, analysis.AudienceStudent, images("x"))
	require.True(t, ok)

	var saved []domain.Item
	for i := 0; i < 11; i++ {
		it, ok := svc.Save(ctx, "u1", result(fmt.Sprint(i)), analysis.ModeExplain, analysis.AudienceStudent, images("a"))
		require.True(t, ok)
		saved = append(saved, it)
	}

	list := svc.List(ctx, "u1")
	require.Len(t, list, domain.MaxItemsPerUser)
	assert.Equal(t, saved[10].ID, list[0].ID)
	assert.Equal(t, saved[1].ID, list[9].ID)
	for _, it := range list {
		assert.NotEqual(t, saved[0].ID, it.ID)
	}

	assert.Len(t, svc.List(ctx, "other"), 1)
}

func TestSave_CapKeepsNewItemWhenClockStepsBack(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(storage.NewMemory())
	clock := svc.Clock.(*stepClock)

	var saved []domain.Item
	for i := 0; i < domain.MaxItemsPerUser; i++ {
		it, ok := svc.Save(ctx, "u1", result(fmt.Sprint(i)), analysis.ModeExplain, analysis.AudienceStudent, images("a"))
		require.True(t, ok)
		saved = append(saved, it)
	}

	clock.now = clock.now.Add(-time.Hour)
	latest, ok := svc.Save(ctx, "u1", result("late"), analysis.ModeExplain, analysis.AudienceStudent, images("a"))
	require.True(t, ok)

	got, err := svc.Get(ctx, "u1", latest.ID)
	require.NoError(t, err)
	assert.Equal(t, "late", got.Result.Sections[0].Title)

	list := svc.List(ctx, "u1")
	require.Len(t, list, domain.MaxItemsPerUser)
	for _, it := range list {
		assert.NotEqual(t, saved[0].ID, it.ID)
	}
}

func TestSave_WriteFailureIsSwallowed(t *testing.T) {
	svc, _ := newTestService(failingStore{storage.NewMemory()})

	_, ok := svc.Save(context.Background(), "u1", result("x"), analysis.ModeExplain, analysis.AudienceStudent, images("a"))
	assert.False(t, ok)
}

func TestSave_ThumbnailFailureStillSaves(t *testing.T) {
	svc, th := newTestService(storage.NewMemory())
	th.err = errors.New("decode: unknown format")

	it, ok := svc.Save(context.Background(), "u1", result("x"), analysis.ModeExplain, analysis.AudienceStudent, images("a"))
	require.True(t, ok)
	assert.Empty(t, it.ThumbnailURL)
	assert.Len(t, svc.List(context.Background(), "u1"), 1)
}

func TestList_MalformedIsEmpty(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, kv.KeyHistory, []byte(`{"not":"a list"}`)))
	svc, _ := newTestService(store)

	assert.Empty(t, svc.List(ctx, "u1"))

	_, ok := svc.Save(ctx, "u1", result("x"), analysis.ModeExplain, analysis.AudienceStudent, images("a"))
	require.True(t, ok)
	assert.Len(t, svc.List(ctx, "u1"), 1)
}

func TestList_SortsByTimestamp(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory()
	require.NoError(t, store.Set(ctx, kv.KeyHistory, []byte(`[
		{"id":"old","userId":"u1","timestamp":1},
		{"id":"new","userId":"u1","timestamp":3},
		{"id":"mid","userId":"u1","timestamp":2}
	]`)))
	svc, _ := newTestService(store)

	list := svc.List(ctx, "u1")
	require.Len(t, list, 3)
	assert.Equal(t, domain.ItemID("new"), list[0].ID)
	assert.Equal(t, domain.ItemID("old"), list[2].ID)
}

func TestDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(storage.NewMemory())

	a, _ := svc.Save(ctx, "u1", result("a"), analysis.ModeExplain, analysis.AudienceStudent, images("a"))
	_, _ = svc.Save(ctx, "u1", result("b"), analysis.ModeExplain, analysis.AudienceStudent, images("b"))
	_, _ = svc.Save(ctx, "u2", result("c"), analysis.ModeExplain, analysis.AudienceStudent, images("c"))

	assert.ErrorIs(t, svc.Delete(ctx, "u2", a.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, "u1", a.ID))
	_, err := svc.Get(ctx, "u1", a.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := svc.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, svc.List(ctx, "u1"))
	assert.Len(t, svc.List(ctx, "u2"), 1)
}
