// Package door implements the doorbell: recognise the visitor in a captured
// image and unlock the door for whitelisted persons.
package door

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kozaktomas/face-whitelist/internal/recognizer"
)

// Messages spoken or shown to the visitor.
const (
	NotRecognizedMessage = "Sorry! I don't recognize you, so I cannot open the door."
	greetingFormat       = "Welcome to the Facial Recognition Door %s! I will open the door for you."
)

// DefaultUnlockDuration is how long the door stays unlocked.
const DefaultUnlockDuration = 10 * time.Second

// Greeting returns the message for a recognised visitor.
func Greeting(name string) string {
	return fmt.Sprintf(greetingFormat, name)
}

// FaceRecognizer resolves the whitelisted persons visible in an image.
type FaceRecognizer interface {
	RecognizeFaces(ctx context.Context, imagePath string) ([]string, error)
}

// Lock opens the door for a limited time.
type Lock interface {
	Unlock(ctx context.Context, d time.Duration) error
}

// Visit is the outcome of one doorbell press.
type Visit struct {
	ImagePath  string    `json:"image_path"`
	Recognized []string  `json:"recognized"`
	Visitor    string    `json:"visitor,omitempty"`
	Unlocked   bool      `json:"unlocked"`
	Message    string    `json:"message"`
	At         time.Time `json:"at"`
}

// Doorbell ties recognition to the lock.
type Doorbell struct {
	faces     FaceRecognizer
	lock      Lock
	unlockFor time.Duration
	log       *zap.Logger
	now       func() time.Time
}

// New creates a Doorbell. A non-positive unlockFor uses DefaultUnlockDuration.
func New(faces FaceRecognizer, lock Lock, unlockFor time.Duration, log *zap.Logger) *Doorbell {
	if unlockFor <= 0 {
		unlockFor = DefaultUnlockDuration
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Doorbell{faces: faces, lock: lock, unlockFor: unlockFor, log: log, now: time.Now}
}

// Ring handles a doorbell press with the captured image. The first recognised
// visitor is greeted and the door unlocked. An image without a face is a
// normal "not recognised" visit. Other failures also keep the door locked and
// are returned alongside the visit.
func (d *Doorbell) Ring(ctx context.Context, imagePath string) (*Visit, error) {
	visit := &Visit{ImagePath: imagePath, Recognized: []string{}, Message: NotRecognizedMessage, At: d.now()}

	names, err := d.faces.RecognizeFaces(ctx, imagePath)
	switch {
	case errors.Is(err, recognizer.ErrNoFaceDetected):
		d.log.Info("no face at the door", zap.String("image", imagePath))
		return visit, nil
	case err != nil:
		d.log.Warn("recognition failed", zap.String("image", imagePath), zap.Error(err))
		return visit, fmt.Errorf("recognize visitor: %w", err)
	}

	visit.Recognized = names
	if len(names) == 0 {
		d.log.Info("visitor not recognized", zap.String("image", imagePath))
		return visit, nil
	}

	visit.Visitor = names[0]
	if err := d.lock.Unlock(ctx, d.unlockFor); err != nil {
		d.log.Error("failed to unlock door", zap.String("visitor", visit.Visitor), zap.Error(err))
		return visit, fmt.Errorf("unlock door: %w", err)
	}
	visit.Unlocked = true
	visit.Message = Greeting(visit.Visitor)
	d.log.Info("door unlocked", zap.String("visitor", visit.Visitor), zap.Duration("for", d.unlockFor))
	return visit, nil
}

// LogLock is a Lock without hardware: it only logs and tracks the state.
type LogLock struct {
	log *zap.Logger

	mu       sync.Mutex
	until    time.Time
	unlocked int
}

// NewLogLock creates a LogLock.
func NewLogLock(log *zap.Logger) *LogLock {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogLock{log: log}
}

// Unlock records the door as unlocked for d.
func (l *LogLock) Unlock(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.until = time.Now().Add(d)
	l.unlocked++
	l.log.Info("lock released", zap.Time("relock_at", l.until))
	return nil
}

// Locked reports whether the door is locked at t.
func (l *LogLock) Locked(t time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !t.Before(l.until)
}

// Unlocks returns how many times the door was unlocked.
func (l *LogLock) Unlocks() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unlocked
}
