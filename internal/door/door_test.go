package door

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/face-whitelist/internal/recognizer"
)

type stubRecognizer struct {
	names []string
	err   error
}

func (s stubRecognizer) RecognizeFaces(ctx context.Context, imagePath string) ([]string, error) {
	return s.names, s.err
}

type failingLock struct{}

func (failingLock) Unlock(ctx context.Context, d time.Duration) error {
	return errors.New("relay stuck")
}

func TestRing_Recognized(t *testing.T) {
	lock := NewLogLock(nil)
	bell := New(stubRecognizer{names: []string{"Alice", "Bob"}}, lock, 0, nil)

	visit, err := bell.Ring(context.Background(), "/tmp/door.jpg")
	require.NoError(t, err)
	assert.True(t, visit.Unlocked)
	assert.Equal(t, "Alice", visit.Visitor)
	assert.Equal(t, []string{"Alice", "Bob"}, visit.Recognized)
	assert.Equal(t, "Welcome to the Facial Recognition Door Alice! I will open the door for you.", visit.Message)

	assert.Equal(t, 1, lock.Unlocks())
	assert.False(t, lock.Locked(time.Now()))
	assert.True(t, lock.Locked(time.Now().Add(DefaultUnlockDuration+time.Second)))
}

func TestRing_NotRecognized(t *testing.T) {
	tests := []struct {
		name string
		rec  stubRecognizer
	}{
		{"stranger", stubRecognizer{names: []string{}}},
		{"no face", stubRecognizer{err: fmt.Errorf("%w: door.jpg", recognizer.ErrNoFaceDetected)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lock := NewLogLock(nil)
			visit, err := New(tt.rec, lock, time.Second, nil).Ring(context.Background(), "door.jpg")
			require.NoError(t, err)
			assert.False(t, visit.Unlocked)
			assert.Empty(t, visit.Visitor)
			assert.Equal(t, NotRecognizedMessage, visit.Message)
			assert.Zero(t, lock.Unlocks())
		})
	}
}

func TestRing_RecognitionError(t *testing.T) {
	lock := NewLogLock(nil)
	bell := New(stubRecognizer{err: recognizer.ErrNoWhitelist}, lock, time.Second, nil)

	visit, err := bell.Ring(context.Background(), "door.jpg")
	require.ErrorIs(t, err, recognizer.ErrNoWhitelist)
	require.NotNil(t, visit)
	assert.False(t, visit.Unlocked)
	assert.Equal(t, NotRecognizedMessage, visit.Message)
	assert.Zero(t, lock.Unlocks())
}

func TestRing_LockFailure(t *testing.T) {
	bell := New(stubRecognizer{names: []string{"Alice"}}, failingLock{}, time.Second, nil)

	visit, err := bell.Ring(context.Background(), "door.jpg")
	require.Error(t, err)
	assert.False(t, visit.Unlocked)
	assert.Equal(t, "Alice", visit.Visitor)
	assert.Equal(t, NotRecognizedMessage, visit.Message)
}

func TestLogLock_CanceledContext(t *testing.T) {
	lock := NewLogLock(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, lock.Unlock(ctx, time.Second), context.Canceled)
	assert.True(t, lock.Locked(time.Now()))
}
