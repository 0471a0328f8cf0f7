// Package recognizer keeps a remote face-recognition person-group and the
// local whitelist index in sync. Every mutating workflow ends by retraining
// the person-group and waiting for the training to finish.
package recognizer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-whitelist/internal/database"
	"github.com/kozaktomas/face-whitelist/internal/faceapi"
	"github.com/kozaktomas/face-whitelist/internal/whitelist"
)

// FaceService is the subset of the Face API the recognizer needs.
// *faceapi.Client implements it.
type FaceService interface {
	GetPersonGroup(ctx context.Context, groupID string) (*faceapi.PersonGroup, error)
	CreatePersonGroup(ctx context.Context, groupID, name string) error
	DeletePersonGroup(ctx context.Context, groupID string) error
	CreatePerson(ctx context.Context, groupID, name string) (string, error)
	DeletePerson(ctx context.Context, groupID, personID string) error
	AddPersonFace(ctx context.Context, groupID, personID string, image []byte) (string, error)
	DeletePersonFace(ctx context.Context, groupID, personID, faceID string) error
	Detect(ctx context.Context, image []byte) ([]faceapi.DetectedFace, error)
	Train(ctx context.Context, groupID string) error
	TrainingStatus(ctx context.Context, groupID string) (*faceapi.TrainingStatus, error)
	Identify(ctx context.Context, groupID string, faceIDs []string) ([]faceapi.IdentifyResult, error)
}

var _ FaceService = (*faceapi.Client)(nil)

// Defaults used when no option overrides them.
const (
	DefaultPollInterval    = time.Second
	DefaultTrainingTimeout = 10 * time.Minute
	DefaultGroupName       = "White List"
)

// Recognizer owns one whitelist: its remote person-group and local index.
// Workflows are serialised; recognition may run alongside other reads.
type Recognizer struct {
	mu     sync.RWMutex
	client FaceService
	index  *whitelist.Index
	state  TrainingState

	tree              FileTree
	store             database.WhitelistStore
	log               *zap.Logger
	newBackOff        func() backoff.BackOff
	trainingTimeout   time.Duration
	detectConcurrency int
	defaultFolder     string
	extensions        []string
	groupName         string
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(r *Recognizer) {
		if log != nil {
			r.log = log
		}
	}
}

// WithFileTree replaces the local file system.
func WithFileTree(tree FileTree) Option {
	return func(r *Recognizer) { r.tree = tree }
}

// WithStore persists the index after every change and enables Restore.
func WithStore(store database.WhitelistStore) Option {
	return func(r *Recognizer) { r.store = store }
}

// WithPollInterval polls training status at a fixed interval.
func WithPollInterval(d time.Duration) Option {
	return func(r *Recognizer) {
		r.newBackOff = func() backoff.BackOff { return backoff.NewConstantBackOff(d) }
	}
}

// WithExponentialPoll polls training status with exponential backoff
// between initial and maxInterval.
func WithExponentialPoll(initial, maxInterval time.Duration) Option {
	return func(r *Recognizer) {
		r.newBackOff = func() backoff.BackOff {
			return backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(initial),
				backoff.WithMaxInterval(maxInterval),
				backoff.WithMaxElapsedTime(0),
			)
		}
	}
}

// WithTrainingTimeout bounds the wait for training. Zero waits until ctx is done.
func WithTrainingTimeout(d time.Duration) Option {
	return func(r *Recognizer) { r.trainingTimeout = d }
}

// WithDetectConcurrency sets how many images of one folder are sent to
// detection at the same time.
func WithDetectConcurrency(n int) Option {
	return func(r *Recognizer) {
		if n > 0 {
			r.detectConcurrency = n
		}
	}
}

// WithDefaultFolder is used when CreateWhitelistFromFolder gets no folder.
func WithDefaultFolder(folder string) Option {
	return func(r *Recognizer) { r.defaultFolder = folder }
}

// WithImageExtensions replaces the allowed lower-case extensions, dot included.
func WithImageExtensions(exts []string) Option {
	return func(r *Recognizer) {
		if len(exts) > 0 {
			r.extensions = exts
		}
	}
}

// New creates a Recognizer without a whitelist. Call CreateWhitelistFromFolder
// or Restore before any other workflow.
func New(client FaceService, opts ...Option) *Recognizer {
	r := &Recognizer{
		client:            client,
		tree:              LocalTree{},
		log:               zap.NewNop(),
		trainingTimeout:   DefaultTrainingTimeout,
		detectConcurrency: 1,
		extensions:        DefaultImageExtensions,
		groupName:         DefaultGroupName,
	}
	WithPollInterval(DefaultPollInterval)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WhitelistID returns the id of the loaded whitelist or "".
func (r *Recognizer) WhitelistID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.index == nil {
		return ""
	}
	return r.index.WhitelistID()
}

// State returns the state of the last training.
func (r *Recognizer) State() TrainingState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// PersonSummary is a whitelisted person with the number of registered faces.
type PersonSummary struct {
	whitelist.Person
	FaceCount int `json:"face_count"`
}

// Persons lists the whitelist sorted by name.
func (r *Recognizer) Persons() ([]PersonSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.index == nil {
		return nil, ErrNoWhitelist
	}
	persons := r.index.Persons()
	out := make([]PersonSummary, len(persons))
	for i, p := range persons {
		out[i] = PersonSummary{Person: p, FaceCount: len(r.index.FaceIDsForPerson(p.ID))}
	}
	return out, nil
}

// Snapshot copies the loaded index.
func (r *Recognizer) Snapshot() (whitelist.Snapshot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.index == nil {
		return whitelist.Snapshot{}, ErrNoWhitelist
	}
	return r.index.Snapshot(), nil
}

// Restore loads a previously persisted index instead of rebuilding the
// whitelist. The remote person-group must still exist.
func (r *Recognizer) Restore(ctx context.Context, whitelistID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.store == nil {
		return fmt.Errorf("restore whitelist %s: no store configured", whitelistID)
	}
	snap, err := r.store.LoadWhitelist(ctx, whitelistID)
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%w: no stored snapshot for %s", ErrNoWhitelist, whitelistID)
	}
	if err != nil {
		return fmt.Errorf("load whitelist %s: %w", whitelistID, err)
	}

	if _, err := r.client.GetPersonGroup(ctx, whitelistID); err != nil {
		if faceapi.IsNotFound(err) {
			return fmt.Errorf("%w: person group %s no longer exists", ErrNoWhitelist, whitelistID)
		}
		return fmt.Errorf("get person group %s: %w", whitelistID, err)
	}

	idx, dropped := whitelist.FromSnapshot(*snap)
	if dropped > 0 {
		r.log.Warn("dropped inconsistent snapshot entries",
			zap.String("whitelist", whitelistID), zap.Int("dropped", dropped))
	}
	r.index = idx
	r.state = TrainingSucceeded
	persons, faces := idx.Len()
	r.log.Info("restored whitelist",
		zap.String("whitelist", whitelistID), zap.Int("persons", persons), zap.Int("faces", faces))
	return nil
}

// persist saves the index. Failures are logged; the remote state is already
// changed and the next successful save catches up.
func (r *Recognizer) persist(ctx context.Context) {
	if r.store == nil || r.index == nil {
		return
	}
	snap := r.index.Snapshot()
	if err := r.store.SaveWhitelist(ctx, &snap); err != nil {
		r.log.Warn("failed to persist whitelist", zap.String("whitelist", snap.WhitelistID), zap.Error(err))
	}
}

func (r *Recognizer) groupID() string {
	return r.index.WhitelistID()
}
