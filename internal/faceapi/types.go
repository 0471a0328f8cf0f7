package faceapi

import "time"

// PersonGroup is a container of persons that can be trained and identified against.
type PersonGroup struct {
	PersonGroupID string `json:"personGroupId"`
	Name          string `json:"name"`
	UserData      string `json:"userData,omitempty"`
}

// Person is a person inside a person-group.
type Person struct {
	PersonID         string   `json:"personId"`
	Name             string   `json:"name,omitempty"`
	PersistedFaceIDs []string `json:"persistedFaceIds,omitempty"`
}

// PersistedFace is the result of adding a face image to a person.
type PersistedFace struct {
	PersistedFaceID string `json:"persistedFaceId"`
}

// FaceRectangle locates a detected face in pixels.
type FaceRectangle struct {
	Top    int `json:"top"`
	Left   int `json:"left"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DetectedFace is a face found by Detect. FaceID is transient and only valid
// for identification within the service's retention window.
type DetectedFace struct {
	FaceID        string        `json:"faceId"`
	FaceRectangle FaceRectangle `json:"faceRectangle"`
}

// Training states reported by TrainingStatus.
const (
	TrainingNotStarted = "notstarted"
	TrainingRunning    = "running"
	TrainingSucceeded  = "succeeded"
	TrainingFailed     = "failed"
)

// TrainingStatus is the state of the last training of a person-group.
type TrainingStatus struct {
	Status             string    `json:"status"`
	Message            string    `json:"message,omitempty"`
	CreatedDateTime    time.Time `json:"createdDateTime"`
	LastActionDateTime time.Time `json:"lastActionDateTime"`
}

// Candidate is a person an identified face may belong to.
type Candidate struct {
	PersonID   string  `json:"personId"`
	Confidence float64 `json:"confidence"`
}

// IdentifyResult holds the candidates for one query face, ordered by
// decreasing confidence.
type IdentifyResult struct {
	FaceID     string      `json:"faceId"`
	Candidates []Candidate `json:"candidates"`
}

type identifyRequest struct {
	PersonGroupID              string   `json:"personGroupId"`
	FaceIDs                    []string `json:"faceIds"`
	MaxNumOfCandidatesReturned int      `json:"maxNumOfCandidatesReturned"`
}

type nameRequest struct {
	Name string `json:"name"`
}
