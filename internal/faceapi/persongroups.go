package faceapi

import (
	"context"
	"net/http"
)

// GetPersonGroup retrieves a person-group. A missing group yields an error
// for which IsNotFound is true.
func (c *Client) GetPersonGroup(ctx context.Context, groupID string) (*PersonGroup, error) {
	return doGetJSON[PersonGroup](ctx, c, "persongroups/"+groupID)
}

// CreatePersonGroup creates an empty person-group with the given display name.
func (c *Client) CreatePersonGroup(ctx context.Context, groupID, name string) error {
	return c.doNoContent(ctx, http.MethodPut, "persongroups/"+groupID, nameRequest{Name: name})
}

// DeletePersonGroup deletes a person-group with all its persons and faces.
func (c *Client) DeletePersonGroup(ctx context.Context, groupID string) error {
	return c.doNoContent(ctx, http.MethodDelete, "persongroups/"+groupID, nil)
}

// CreatePerson adds a person to a group and returns the new person id.
func (c *Client) CreatePerson(ctx context.Context, groupID, name string) (string, error) {
	person, err := doPostJSON[Person](ctx, c, "persongroups/"+groupID+"/persons", nameRequest{Name: name})
	if err != nil {
		return "", err
	}
	return person.PersonID, nil
}

// DeletePerson removes a person and all their persisted faces.
func (c *Client) DeletePerson(ctx context.Context, groupID, personID string) error {
	return c.doNoContent(ctx, http.MethodDelete, "persongroups/"+groupID+"/persons/"+personID, nil)
}

// AddPersonFace uploads a face image for a person and returns the persisted face id.
// The image must contain exactly one face.
func (c *Client) AddPersonFace(ctx context.Context, groupID, personID string, image []byte) (string, error) {
	endpoint := "persongroups/" + groupID + "/persons/" + personID + "/persistedFaces"
	face, err := doPostJSON[PersistedFace](ctx, c, endpoint, rawBody(image))
	if err != nil {
		return "", err
	}
	return face.PersistedFaceID, nil
}

// DeletePersonFace removes one persisted face of a person.
func (c *Client) DeletePersonFace(ctx context.Context, groupID, personID, faceID string) error {
	endpoint := "persongroups/" + groupID + "/persons/" + personID + "/persistedFaces/" + faceID
	return c.doNoContent(ctx, http.MethodDelete, endpoint, nil)
}

// Train starts training a person-group. The call returns as soon as the
// service accepted the request; use TrainingStatus to follow progress.
func (c *Client) Train(ctx context.Context, groupID string) error {
	return c.doNoContent(ctx, http.MethodPost, "persongroups/"+groupID+"/train", nil, http.StatusOK, http.StatusAccepted)
}

// TrainingStatus returns the state of the latest training of a person-group.
func (c *Client) TrainingStatus(ctx context.Context, groupID string) (*TrainingStatus, error) {
	return doGetJSON[TrainingStatus](ctx, c, "persongroups/"+groupID+"/training")
}
