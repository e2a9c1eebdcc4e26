package optimistic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string
	Name string
}

func itemKey(i item) string { return i.ID }

func ids(items []item) []string {
	out := make([]string, 0, len(items))
	for _, i := range items {
		out = append(out, i.ID)
	}
	return out
}

func seeded() *List[item] {
	return New(itemKey, item{ID: "a", Name: "A"}, item{ID: "b", Name: "B"}, item{ID: "c", Name: "C"})
}

var errServer = errors.New("server said no")

func TestCreateSuccessReplacesTemporaryID(t *testing.T) {
	l := seeded()
	var duringCommit []string

	saved, err := l.Create(context.Background(), item{ID: "tmp-1", Name: "new"}, func(ctx context.Context) (item, error) {
		duringCommit = ids(l.Snapshot())
		return item{ID: "srv-9", Name: "new"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "srv-9", saved.ID)
	assert.Equal(t, []string{"a", "b", "c", "tmp-1"}, duringCommit, "draft is visible while the request is in flight")
	assert.Equal(t, []string{"a", "b", "c", "srv-9"}, ids(l.Snapshot()))
}

func TestCreateSuccessDropsDuplicateFromRefetch(t *testing.T) {
	l := seeded()
	_, err := l.Create(context.Background(), item{ID: "tmp-1"}, func(ctx context.Context) (item, error) {
		// a refetch landed first and already contains the new row
		l.Replace(append(l.Snapshot(), item{ID: "srv-9"}))
		return item{ID: "srv-9", Name: "fresh"}, nil
	})
	require.NoError(t, err)

	got := l.Snapshot()
	assert.Equal(t, []string{"a", "b", "c", "srv-9"}, ids(got))
	assert.Equal(t, "fresh", got[3].Name)
}

func TestCreateFailureRestoresListExactly(t *testing.T) {
	l := seeded()
	before := l.Snapshot()

	_, err := l.Create(context.Background(), item{ID: "tmp-1"}, func(ctx context.Context) (item, error) {
		return item{}, errServer
	})
	assert.ErrorIs(t, err, errServer)
	assert.Equal(t, before, l.Snapshot())
	assert.False(t, l.Pending("tmp-1"))
}

func TestCreateRejectsEmptyKey(t *testing.T) {
	l := seeded()
	_, err := l.Create(context.Background(), item{}, func(ctx context.Context) (item, error) {
		t.Fatal("commit must not run")
		return item{}, nil
	})
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestUpdateAppliesImmediatelyAndRollsBack(t *testing.T) {
	l := seeded()
	rename := func(i item) item { i.Name = "renamed"; return i }

	_, err := l.Update(context.Background(), "b", rename, func(ctx context.Context, patched item) (item, error) {
		assert.Equal(t, "renamed", l.Snapshot()[1].Name)
		return item{}, errServer
	})
	assert.ErrorIs(t, err, errServer)
	assert.Equal(t, "B", l.Snapshot()[1].Name)

	saved, err := l.Update(context.Background(), "b", rename, func(ctx context.Context, patched item) (item, error) {
		patched.Name = "server-name"
		return patched, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "server-name", saved.Name)
	assert.Equal(t, "server-name", l.Snapshot()[1].Name)

	_, err = l.Update(context.Background(), "zzz", rename, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRestoresAtOriginalIndex(t *testing.T) {
	l := seeded()
	err := l.Delete(context.Background(), "b", func(ctx context.Context) error {
		assert.Equal(t, []string{"a", "c"}, ids(l.Snapshot()))
		return errServer
	})
	assert.ErrorIs(t, err, errServer)
	assert.Equal(t, []string{"a", "b", "c"}, ids(l.Snapshot()))

	require.NoError(t, l.Delete(context.Background(), "b", func(ctx context.Context) error { return nil }))
	assert.Equal(t, []string{"a", "c"}, ids(l.Snapshot()))
}

func TestOneMutationInFlightPerKey(t *testing.T) {
	l := seeded()
	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		_, err := l.Update(context.Background(), "a", func(i item) item { return i }, func(ctx context.Context, patched item) (item, error) {
			close(started)
			<-release
			return patched, nil
		})
		done <- err
	}()
	<-started

	assert.True(t, l.Pending("a"))
	err := l.Delete(context.Background(), "a", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrMutationInFlight)

	err = l.Delete(context.Background(), "c", func(ctx context.Context) error { return nil })
	assert.NoError(t, err, "other keys are not blocked")

	close(release)
	require.NoError(t, <-done)
	assert.False(t, l.Pending("a"))
	assert.Equal(t, []string{"a", "b"}, ids(l.Snapshot()))
}

func TestSnapshotIsACopy(t *testing.T) {
	l := seeded()
	snap := l.Snapshot()
	snap[0].Name = "mutated"
	assert.Equal(t, "A", l.Snapshot()[0].Name)
	assert.Equal(t, 3, l.Len())
}
