package recognizer

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kozaktomas/face-whitelist/internal/faceapi"
)

type fakePerson struct {
	name  string
	faces []string
}

// fakeFaceService is an in-memory Face API. By default an image has
// (width-40)/20 faces, so writeImage controls detection results.
type fakeFaceService struct {
	mu sync.Mutex

	groups  map[string]map[string]*fakePerson
	trained map[string]bool
	calls   []string
	nextID  int

	// TrainingSequence is returned by consecutive TrainingStatus calls;
	// the last entry repeats.
	TrainingSequence []string
	statusCalls      int

	DetectFunc   func(data []byte) ([]faceapi.DetectedFace, error)
	IdentifyFunc func(groupID string, faceIDs []string) ([]faceapi.IdentifyResult, error)

	// Errors injected per method name.
	Errors map[string]error
}

func newFakeFaceService() *fakeFaceService {
	return &fakeFaceService{
		groups:           make(map[string]map[string]*fakePerson),
		trained:          make(map[string]bool),
		TrainingSequence: []string{faceapi.TrainingNotStarted, faceapi.TrainingRunning, faceapi.TrainingSucceeded},
		Errors:           make(map[string]error),
	}
}

func notFound(code string) error {
	return &faceapi.APIError{Status: http.StatusNotFound, Code: code, Message: "not found"}
}

func (f *fakeFaceService) enter(method string) error {
	f.calls = append(f.calls, method)
	return f.Errors[method]
}

func (f *fakeFaceService) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeFaceService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeFaceService) count(method string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == method {
			n++
		}
	}
	return n
}

// RemoteFaces returns the persisted faces of a person by name.
func (f *fakeFaceService) RemoteFaces(groupID, name string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.groups[groupID] {
		if p.name == name {
			return append([]string(nil), p.faces...)
		}
	}
	return nil
}

func (f *fakeFaceService) RemotePersons(groupID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.groups[groupID])
}

func (f *fakeFaceService) GetPersonGroup(ctx context.Context, groupID string) (*faceapi.PersonGroup, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetPersonGroup"); err != nil {
		return nil, err
	}
	if _, ok := f.groups[groupID]; !ok {
		return nil, notFound(faceapi.CodePersonGroupNotFound)
	}
	return &faceapi.PersonGroup{PersonGroupID: groupID, Name: DefaultGroupName}, nil
}

func (f *fakeFaceService) CreatePersonGroup(ctx context.Context, groupID, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreatePersonGroup"); err != nil {
		return err
	}
	if _, ok := f.groups[groupID]; ok {
		return &faceapi.APIError{Status: http.StatusConflict, Code: "PersonGroupExists"}
	}
	f.groups[groupID] = make(map[string]*fakePerson)
	return nil
}

func (f *fakeFaceService) DeletePersonGroup(ctx context.Context, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeletePersonGroup"); err != nil {
		return err
	}
	if _, ok := f.groups[groupID]; !ok {
		return notFound(faceapi.CodePersonGroupNotFound)
	}
	delete(f.groups, groupID)
	delete(f.trained, groupID)
	return nil
}

func (f *fakeFaceService) CreatePerson(ctx context.Context, groupID, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CreatePerson"); err != nil {
		return "", err
	}
	g, ok := f.groups[groupID]
	if !ok {
		return "", notFound(faceapi.CodePersonGroupNotFound)
	}
	id := f.id("person")
	g[id] = &fakePerson{name: name}
	return id, nil
}

func (f *fakeFaceService) DeletePerson(ctx context.Context, groupID, personID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeletePerson"); err != nil {
		return err
	}
	g := f.groups[groupID]
	if _, ok := g[personID]; !ok {
		return notFound(faceapi.CodePersonNotFound)
	}
	delete(g, personID)
	return nil
}

func (f *fakeFaceService) AddPersonFace(ctx context.Context, groupID, personID string, image []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("AddPersonFace"); err != nil {
		return "", err
	}
	p, ok := f.groups[groupID][personID]
	if !ok {
		return "", notFound(faceapi.CodePersonNotFound)
	}
	id := f.id("persisted")
	p.faces = append(p.faces, id)
	return id, nil
}

func (f *fakeFaceService) DeletePersonFace(ctx context.Context, groupID, personID, faceID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeletePersonFace"); err != nil {
		return err
	}
	p, ok := f.groups[groupID][personID]
	if !ok {
		return notFound(faceapi.CodePersonNotFound)
	}
	for i, id := range p.faces {
		if id == faceID {
			p.faces = append(p.faces[:i], p.faces[i+1:]...)
			return nil
		}
	}
	return notFound(faceapi.CodePersistedFaceNotFound)
}

func (f *fakeFaceService) Detect(ctx context.Context, data []byte) ([]faceapi.DetectedFace, error) {
	f.mu.Lock()
	if err := f.enter("Detect"); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	detect := f.DetectFunc
	f.mu.Unlock()
	if detect != nil {
		return detect(data)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, &faceapi.APIError{Status: http.StatusBadRequest, Code: "InvalidImage"}
	}
	n := (cfg.Width - 40) / 20
	faces := make([]faceapi.DetectedFace, n)
	f.mu.Lock()
	for i := range faces {
		faces[i] = faceapi.DetectedFace{FaceID: f.id("detected")}
	}
	f.mu.Unlock()
	return faces, nil
}

func (f *fakeFaceService) Train(ctx context.Context, groupID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Train"); err != nil {
		return err
	}
	if _, ok := f.groups[groupID]; !ok {
		return notFound(faceapi.CodePersonGroupNotFound)
	}
	f.statusCalls = 0
	return nil
}

func (f *fakeFaceService) TrainingStatus(ctx context.Context, groupID string) (*faceapi.TrainingStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("TrainingStatus"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := min(f.statusCalls, len(f.TrainingSequence)-1)
	f.statusCalls++
	status := f.TrainingSequence[i]
	if status == faceapi.TrainingSucceeded {
		f.trained[groupID] = true
	}
	return &faceapi.TrainingStatus{Status: status, Message: "fake " + status}, nil
}

func (f *fakeFaceService) Identify(ctx context.Context, groupID string, faceIDs []string) ([]faceapi.IdentifyResult, error) {
	f.mu.Lock()
	if err := f.enter("Identify"); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	identify := f.IdentifyFunc
	f.mu.Unlock()
	if identify != nil {
		return identify(groupID, faceIDs)
	}
	results := make([]faceapi.IdentifyResult, len(faceIDs))
	for i, id := range faceIDs {
		results[i] = faceapi.IdentifyResult{FaceID: id}
	}
	return results, nil
}

// writeImage writes a noise PNG with the given number of faces as far as
// fakeFaceService is concerned and returns its path.
func writeImage(t *testing.T, path string, faces int) string {
	t.Helper()
	width := 40 + 20*faces
	writeNoisePNG(t, path, width, 40)
	return path
}

func writeNoisePNG(t *testing.T, path string, width, height int) {
	t.Helper()
	h := fnv.New64a()
	h.Write([]byte(path))
	rng := rand.New(rand.NewPCG(h.Sum64(), 7))

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(rng.IntN(256)), G: uint8(rng.IntN(256)), B: uint8(rng.IntN(256)), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0600))
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func newTestRecognizer(t *testing.T, client FaceService, opts ...Option) *Recognizer {
	t.Helper()
	base := []Option{WithPollInterval(time.Millisecond), WithTrainingTimeout(5 * time.Second)}
	return New(client, append(base, opts...)...)
}
