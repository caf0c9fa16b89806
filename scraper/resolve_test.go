package scraper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"colorwall/wallpaper"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolvable(ids ...string) []wallpaper.Item {
	items := make([]wallpaper.Item, 0, len(ids))
	for _, id := range ids {
		items = append(items, wallpaper.Item{
			ID:       id,
			ImageURL: "https://thumbs/" + id,
			Metadata: wallpaper.Metadata{DetailURL: "https://detail/" + id},
		})
	}
	return items
}

func TestResolveAllKeepsOrderAndBoundsConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	resolve := func(_ context.Context, detailURL string) (*Asset, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return &Asset{ImageURL: detailURL + "/full", Size: Size{1920, 1080}}, nil
	}

	items := resolvable("a", "b", "c", "d", "e", "f")
	r := newResolver(2, nil, nil)
	out := r.resolveAll(context.Background(), items, resolve)

	require.Len(t, out, len(items))
	for i, it := range out {
		assert.Equal(t, items[i].ID, it.ID)
		assert.Equal(t, items[i].Metadata.DetailURL+"/full", it.ImageURL)
		assert.Equal(t, items[i].Metadata.DetailURL, it.Metadata.ResolvedFrom)
		assert.Equal(t, 1920, it.Width)
	}
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, "https://thumbs/a", items[0].ImageURL, "input slice is not modified")
}

func TestResolveAllFailuresKeepListingImage(t *testing.T) {
	resolve := func(_ context.Context, detailURL string) (*Asset, error) {
		switch detailURL {
		case "https://detail/err":
			return nil, errors.New("boom")
		case "https://detail/nil":
			return nil, nil
		default:
			return &Asset{ImageURL: "https://full/ok"}, nil
		}
	}

	items := resolvable("err", "nil", "ok")
	items = append(items, wallpaper.Item{ID: "nodetail", ImageURL: "https://thumbs/nodetail"})

	out := newResolver(3, nil, nil).resolveAll(context.Background(), items, resolve)
	require.Len(t, out, 4)
	assert.Equal(t, "https://thumbs/err", out[0].ImageURL)
	assert.Equal(t, "https://thumbs/nil", out[1].ImageURL)
	assert.Equal(t, "https://full/ok", out[2].ImageURL)
	assert.Equal(t, "https://thumbs/nodetail", out[3].ImageURL)
	assert.Empty(t, out[0].Metadata.ResolvedFrom)
}

func TestResolveOneErrors(t *testing.T) {
	r := newResolver(1, nil, nil)

	_, err := r.resolveOne(context.Background(), "https://detail/x", func(context.Context, string) (*Asset, error) {
		return nil, context.DeadlineExceeded
	})
	var resolution *ResolutionError
	require.ErrorAs(t, err, &resolution)
	assert.Equal(t, "https://detail/x", resolution.DetailURL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = r.resolveOne(context.Background(), "https://detail/y", func(context.Context, string) (*Asset, error) {
		return &Asset{}, nil
	})
	assert.ErrorIs(t, err, errNoCandidates)
}

func TestResolveCache(t *testing.T) {
	assert.Nil(t, NewResolveCache(0, time.Minute))

	var disabled *ResolveCache
	disabled.Set("k", &Asset{ImageURL: "x"})
	_, ok := disabled.Get("k")
	assert.False(t, ok)

	c := NewResolveCache(4, time.Minute)
	_, ok = c.Get("https://detail/a")
	assert.False(t, ok)

	c.Set("https://detail/a", &Asset{ImageURL: "https://full/a", Size: Size{800, 600}})
	got, ok := c.Get("https://detail/a")
	require.True(t, ok)
	assert.Equal(t, &Asset{ImageURL: "https://full/a", Size: Size{800, 600}}, got)
}

func TestResolverUsesMemo(t *testing.T) {
	var calls atomic.Int32
	resolve := func(_ context.Context, detailURL string) (*Asset, error) {
		calls.Add(1)
		return &Asset{ImageURL: detailURL + "/full"}, nil
	}
	r := newResolver(2, NewResolveCache(8, time.Minute), nil)

	first := r.resolveAll(context.Background(), resolvable("a", "b"), resolve)
	second := r.resolveAll(context.Background(), resolvable("a", "b"), resolve)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), calls.Load())
}
