package recognizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/kozaktomas/face-whitelist/internal/faceapi"
)

// TrainingState is the state of the remote training of a person-group.
type TrainingState int

const (
	TrainingIdle TrainingState = iota
	TrainingRunning
	TrainingSucceeded
	TrainingFailed
)

func (s TrainingState) String() string {
	switch s {
	case TrainingRunning:
		return "running"
	case TrainingSucceeded:
		return "succeeded"
	case TrainingFailed:
		return "failed"
	default:
		return "idle"
	}
}

var errTrainingPending = errors.New("training pending")

// train starts training the person-group and polls until the service reports
// a terminal status, the training timeout expires or ctx is done.
func (r *Recognizer) train(ctx context.Context) error {
	groupID := r.groupID()
	r.state = TrainingIdle

	if err := r.client.Train(ctx, groupID); err != nil {
		r.state = TrainingFailed
		return fmt.Errorf("start training %s: %w", groupID, err)
	}
	r.state = TrainingRunning
	started := time.Now()

	pollCtx := ctx
	if r.trainingTimeout > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, r.trainingTimeout)
		defer cancel()
	}

	poll := func() (*faceapi.TrainingStatus, error) {
		status, err := r.client.TrainingStatus(pollCtx, groupID)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("get training status %s: %w", groupID, err))
		}
		switch status.Status {
		case faceapi.TrainingSucceeded:
			return status, nil
		case faceapi.TrainingFailed:
			return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrTrainingFailed, status.Message))
		default:
			// notstarted and running are both still pending
			return nil, errTrainingPending
		}
	}
	notify := func(_ error, next time.Duration) {
		r.log.Debug("training pending", zap.String("whitelist", groupID), zap.Duration("next_poll", next))
	}

	_, err := backoff.RetryNotifyWithData(poll, backoff.WithContext(r.newBackOff(), pollCtx), notify)
	if err != nil {
		r.state = TrainingFailed
		if ctx.Err() == nil && pollCtx.Err() != nil {
			return fmt.Errorf("%w: %s after %s", ErrTrainingTimeout, groupID, r.trainingTimeout)
		}
		return err
	}

	r.state = TrainingSucceeded
	r.log.Info("training succeeded", zap.String("whitelist", groupID), zap.Duration("took", time.Since(started)))
	return nil
}
