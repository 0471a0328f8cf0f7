package recognizer

import (
	"context"
	"errors"

	"github.com/kozaktomas/face-whitelist/internal/faceapi"
)

var (
	ErrInvalidFilePath       = errors.New("invalid file path")
	ErrInvalidImage          = errors.New("invalid image")
	ErrNoFaceDetected        = errors.New("no face detected")
	ErrMultipleFacesDetected = errors.New("multiple faces detected")
	ErrNotFound              = errors.New("not found in whitelist")
	ErrTrainingFailed        = errors.New("whitelist training failed")
	ErrTrainingTimeout       = errors.New("whitelist training timed out")
	ErrNoWhitelist           = errors.New("no whitelist loaded")
)

// ErrorKind classifies workflow errors for callers that only need to branch
// on the category, such as HTTP status mapping.
type ErrorKind int

const (
	KindOther ErrorKind = iota
	KindInvalidFilePath
	KindInvalidImage
	KindNoFaceDetected
	KindMultipleFacesDetected
	KindNotFound
	KindRemoteService
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidFilePath:
		return "invalid_file_path"
	case KindInvalidImage:
		return "invalid_image"
	case KindNoFaceDetected:
		return "no_face_detected"
	case KindMultipleFacesDetected:
		return "multiple_faces_detected"
	case KindNotFound:
		return "not_found"
	case KindRemoteService:
		return "remote_service"
	case KindTimeout:
		return "timeout"
	default:
		return "other"
	}
}

// KindOf folds err into an ErrorKind. Training failures reported by the
// service count as KindRemoteService. A nil error is KindOther.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindOther
	}
	var apiErr *faceapi.APIError
	switch {
	case errors.Is(err, ErrInvalidFilePath):
		return KindInvalidFilePath
	case errors.Is(err, ErrInvalidImage):
		return KindInvalidImage
	case errors.Is(err, ErrNoFaceDetected):
		return KindNoFaceDetected
	case errors.Is(err, ErrMultipleFacesDetected):
		return KindMultipleFacesDetected
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoWhitelist):
		return KindNotFound
	case errors.Is(err, ErrTrainingTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrTrainingFailed), errors.As(err, &apiErr):
		return KindRemoteService
	default:
		return KindOther
	}
}

// skippable reports whether a per-file error is logged and skipped during
// folder walks instead of aborting the workflow.
func skippable(err error) bool {
	return errors.Is(err, ErrInvalidFilePath) ||
		errors.Is(err, ErrInvalidImage) ||
		errors.Is(err, ErrNoFaceDetected) ||
		errors.Is(err, ErrMultipleFacesDetected)
}
