package async

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoResolvesValue(t *testing.T) {
	f := Go(context.Background(), func(context.Context) (int, error) { return 42, nil })
	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	select {
	case <-f.Done():
	default:
		t.Fatal("done channel not closed after result")
	}
}

func TestGoResolvesError(t *testing.T) {
	errBoom := errors.New("boom")
	_, err := Go(context.Background(), func(context.Context) (string, error) { return "", errBoom }).Get()
	assert.ErrorIs(t, err, errBoom)
}

func TestGoRecoversPanics(t *testing.T) {
	_, err := Go(context.Background(), func(context.Context) (int, error) { panic("kaboom") }).Get()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestAwaitGivesUpWithoutStoppingWork(t *testing.T) {
	release := make(chan struct{})
	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		<-release
		return 1, ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	v, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestCancelStopsWork(t *testing.T) {
	f := Go(context.Background(), func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	})
	f.Cancel()
	_, err := f.Get()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCompletedAndFailed(t *testing.T) {
	v, err := Completed("done").Get()
	require.NoError(t, err)
	assert.Equal(t, "done", v)

	errBoom := errors.New("boom")
	_, err = Failed[int](errBoom).Get()
	assert.ErrorIs(t, err, errBoom)
}
