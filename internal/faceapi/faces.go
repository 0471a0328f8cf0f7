package faceapi

import (
	"context"
	"fmt"
)

// MaxIdentifyFaces is the largest number of face ids the service accepts in
// one identify call.
const MaxIdentifyFaces = 10

// Detect finds faces in an image. The result may be empty.
func (c *Client) Detect(ctx context.Context, image []byte) ([]DetectedFace, error) {
	faces, err := doPostJSON[[]DetectedFace](ctx, c, "detect?returnFaceId=true", rawBody(image))
	if err != nil {
		return nil, err
	}
	return *faces, nil
}

// Identify matches detected faces against a trained person-group. Results are
// returned in the order of faceIDs; more than MaxIdentifyFaces ids are split
// into several requests.
func (c *Client) Identify(ctx context.Context, groupID string, faceIDs []string) ([]IdentifyResult, error) {
	results := make([]IdentifyResult, 0, len(faceIDs))
	for start := 0; start < len(faceIDs); start += MaxIdentifyFaces {
		end := min(start+MaxIdentifyFaces, len(faceIDs))
		batch, err := c.identifyBatch(ctx, groupID, faceIDs[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, batch...)
	}
	return results, nil
}

func (c *Client) identifyBatch(ctx context.Context, groupID string, faceIDs []string) ([]IdentifyResult, error) {
	req := identifyRequest{
		PersonGroupID:              groupID,
		FaceIDs:                    faceIDs,
		MaxNumOfCandidatesReturned: 1,
	}
	batch, err := doPostJSON[[]IdentifyResult](ctx, c, "identify", req)
	if err != nil {
		return nil, err
	}

	// results are keyed by faceId; emit them in request order
	byID := make(map[string]IdentifyResult, len(*batch))
	for _, r := range *batch {
		byID[r.FaceID] = r
	}
	ordered := make([]IdentifyResult, 0, len(faceIDs))
	for _, id := range faceIDs {
		r, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("identify response is missing face %s", id)
		}
		ordered = append(ordered, r)
	}
	return ordered, nil
}
