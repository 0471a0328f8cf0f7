package recognizer

import (
	"context"
	"fmt"
)

// DetectSingleFace returns the transient face id of the only face in an
// image. Zero faces yield ErrNoFaceDetected, more than one
// ErrMultipleFacesDetected.
func (r *Recognizer) DetectSingleFace(ctx context.Context, path string) (string, error) {
	data, err := r.readImage(path)
	if err != nil {
		return "", err
	}
	return r.detectSingle(ctx, path, data)
}

// DetectAllFaces returns the transient ids of all faces in an image in the
// order the service reported them. Zero faces yield ErrNoFaceDetected.
func (r *Recognizer) DetectAllFaces(ctx context.Context, path string) ([]string, error) {
	data, err := r.readImage(path)
	if err != nil {
		return nil, err
	}
	return r.detectAll(ctx, path, data)
}

func (r *Recognizer) detectAll(ctx context.Context, path string, data []byte) ([]string, error) {
	faces, err := r.client.Detect(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("detect faces in %s: %w", path, err)
	}
	if len(faces) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoFaceDetected, path)
	}
	ids := make([]string, len(faces))
	for i, f := range faces {
		ids[i] = f.FaceID
	}
	return ids, nil
}

func (r *Recognizer) detectSingle(ctx context.Context, path string, data []byte) (string, error) {
	ids, err := r.detectAll(ctx, path, data)
	if err != nil {
		return "", err
	}
	if len(ids) > 1 {
		return "", fmt.Errorf("%w: %s has %d faces", ErrMultipleFacesDetected, path, len(ids))
	}
	return ids[0], nil
}
