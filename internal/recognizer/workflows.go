package recognizer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/face-whitelist/internal/faceapi"
	"github.com/kozaktomas/face-whitelist/internal/whitelist"
)

// BuildReport summarises a folder walk.
type BuildReport struct {
	Persons    int           `json:"persons"`
	Registered int           `json:"registered"`
	Skipped    []SkippedFile `json:"skipped,omitempty"`
}

// SkippedFile is an image left out of the whitelist.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
	Kind   string `json:"kind"`
}

// CreateWhitelistFromFolder rebuilds the whitelist from root, one subfolder
// per person. Any existing person-group with the same id is deleted first.
// Images that are invalid or do not contain exactly one face are skipped.
// progress may be nil.
func (r *Recognizer) CreateWhitelistFromFolder(ctx context.Context, whitelistID, root string, progress ProgressFunc) (*BuildReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := newProgressTracker(progress)
	defer p.finish()

	if whitelistID == "" {
		return nil, errors.New("whitelist id is required")
	}
	if root == "" {
		root = r.defaultFolder
	}
	root, err := cleanPath(root)
	if err != nil {
		return nil, fmt.Errorf("%w: no whitelist folder", ErrInvalidFilePath)
	}
	folders, filesByFolder, err := r.listPersonFolders(root)
	if err != nil {
		return nil, err
	}

	log := r.log.With(zap.String("whitelist", whitelistID))
	log.Info("building whitelist", zap.String("folder", root))

	if err := r.deleteGroupIfExists(ctx, whitelistID, p); err != nil {
		return nil, err
	}
	// the remote group is gone, so is everything a previous index refers to
	if r.index != nil && r.index.WhitelistID() == whitelistID {
		r.index = nil
	}
	r.dropSnapshot(ctx, whitelistID)

	if err := r.client.CreatePersonGroup(ctx, whitelistID, r.groupName); err != nil {
		return nil, fmt.Errorf("create person group %s: %w", whitelistID, err)
	}
	p.advance(1)
	r.index = whitelist.New(whitelistID)
	r.state = TrainingIdle
	r.persist(ctx)

	report, err := r.registerFolders(ctx, folders, filesByFolder, p)
	r.persist(ctx)
	if err != nil {
		return report, err
	}

	if err := r.train(ctx); err != nil {
		return report, err
	}
	log.Info("whitelist built",
		zap.Int("persons", report.Persons),
		zap.Int("registered", report.Registered),
		zap.Int("skipped", len(report.Skipped)))
	return report, nil
}

// listPersonFolders lists the person subfolders of root and their files.
func (r *Recognizer) listPersonFolders(root string) ([]string, [][]string, error) {
	folders, err := r.tree.Subfolders(root)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidFilePath, err)
	}
	filesByFolder := make([][]string, len(folders))
	for i, folder := range folders {
		files, err := r.tree.Files(folder)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: list %s: %w", ErrInvalidFilePath, folder, err)
		}
		filesByFolder[i] = files
	}
	return folders, filesByFolder, nil
}

// registerFolders creates one person per folder and registers its images.
func (r *Recognizer) registerFolders(ctx context.Context, folders []string, filesByFolder [][]string, p *progressTracker) (*BuildReport, error) {
	total := 0
	for _, files := range filesByFolder {
		total += len(files)
	}
	step := 0.0
	if total > 0 {
		step = p.remaining() / float64(total)
	}

	report := &BuildReport{}
	for i, folder := range folders {
		name := whitelist.NormalizeName(filepath.Base(folder))
		personID, err := r.ensurePerson(ctx, name, folder)
		if err != nil {
			return report, err
		}
		report.Persons++
		if err := r.registerFiles(ctx, personID, filesByFolder[i], report, func() { p.advance(step) }); err != nil {
			return report, err
		}
	}
	return report, nil
}

// dropSnapshot removes the stored index of a whitelist whose remote group
// was deleted.
func (r *Recognizer) dropSnapshot(ctx context.Context, whitelistID string) {
	if r.store == nil {
		return
	}
	if err := r.store.DeleteWhitelist(ctx, whitelistID); err != nil {
		r.log.Warn("failed to delete stored whitelist", zap.String("whitelist", whitelistID), zap.Error(err))
	}
}

// deleteGroupIfExists removes a previous person-group. A group that does not
// exist, or disappears between the lookup and the delete, is not an error.
func (r *Recognizer) deleteGroupIfExists(ctx context.Context, groupID string, p *progressTracker) error {
	if _, err := r.client.GetPersonGroup(ctx, groupID); err != nil {
		if faceapi.IsNotFound(err) {
			r.log.Debug("person group does not exist", zap.String("whitelist", groupID))
			return nil
		}
		return fmt.Errorf("get person group %s: %w", groupID, err)
	}
	p.advance(1)

	if err := r.client.DeletePersonGroup(ctx, groupID); err != nil && !faceapi.IsNotFound(err) {
		return fmt.Errorf("delete person group %s: %w", groupID, err)
	}
	p.advance(1)
	r.log.Info("deleted old person group", zap.String("whitelist", groupID))
	return nil
}

// ensurePerson returns the id of the named person, creating it remotely and
// locally when it is not whitelisted yet.
func (r *Recognizer) ensurePerson(ctx context.Context, name, folder string) (string, error) {
	if id := r.index.PersonIDByName(name); id != "" {
		return id, nil
	}
	id, err := r.client.CreatePerson(ctx, r.groupID(), name)
	if err != nil {
		return "", fmt.Errorf("create person %s: %w", name, err)
	}
	if !r.index.AddPerson(id, name, folder) {
		return "", fmt.Errorf("person id %s for %s is already whitelisted", id, name)
	}
	r.log.Debug("created person", zap.String("name", name), zap.String("person_id", id))
	return id, nil
}

// registerFiles detects faces in files, possibly concurrently, then registers
// the single-face images in file order. Files already in the whitelist are
// left alone. Skippable per-file errors are recorded in report; anything else
// aborts. onFile runs once per file.
func (r *Recognizer) registerFiles(ctx context.Context, personID string, files []string, report *BuildReport, onFile func()) error {
	files = slices.DeleteFunc(slices.Clone(files), func(path string) bool {
		if r.index.FaceIDByPath(path) == "" {
			return false
		}
		onFile()
		return true
	})
	detected := make([]error, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.detectConcurrency)
	for i, path := range files {
		g.Go(func() error {
			data, err := r.readImage(path)
			if err == nil {
				_, err = r.detectSingle(gctx, path, data)
			}
			if err != nil && !skippable(err) {
				return err
			}
			detected[i] = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, path := range files {
		err := detected[i]
		var data []byte
		if err == nil {
			// detection keeps no image data; read the file again for the upload
			data, err = r.readImage(path)
		}
		if err != nil {
			if !skippable(err) {
				return err
			}
			r.log.Warn("skipping image", zap.String("path", path), zap.Stringer("kind", KindOf(err)), zap.Error(err))
			report.Skipped = append(report.Skipped, SkippedFile{Path: path, Reason: err.Error(), Kind: KindOf(err).String()})
			onFile()
			continue
		}
		if err := r.registerFace(ctx, personID, path, data); err != nil {
			return err
		}
		report.Registered++
		onFile()
	}
	return nil
}

// registerFace uploads an image for a person and records the persisted face id.
func (r *Recognizer) registerFace(ctx context.Context, personID, path string, data []byte) error {
	faceID, err := r.client.AddPersonFace(ctx, r.groupID(), personID, data)
	if err != nil {
		return fmt.Errorf("add face %s: %w", path, err)
	}
	if !r.index.AddFace(personID, faceID, path) {
		return fmt.Errorf("face %s (%s) conflicts with the whitelist", faceID, path)
	}
	r.log.Debug("registered face", zap.String("path", path), zap.String("face_id", faceID))
	return nil
}

// AddImageToWhitelist registers one image. personName defaults to the name of
// the image's folder; an unknown person is created first. Unlike folder walks,
// an image without exactly one face is an error and leaves the whitelist untouched.
func (r *Recognizer) AddImageToWhitelist(ctx context.Context, imagePath, personName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index == nil {
		return ErrNoWhitelist
	}
	imagePath, err := cleanPath(imagePath)
	if err != nil {
		return err
	}
	data, err := r.readImage(imagePath)
	if err != nil {
		return err
	}
	if personName == "" {
		personName = parentName(imagePath)
	}
	personName = whitelist.NormalizeName(personName)

	if r.index.FaceIDByPath(imagePath) != "" {
		r.log.Info("image already whitelisted", zap.String("path", imagePath))
		return nil
	}
	if _, err := r.detectSingle(ctx, imagePath, data); err != nil {
		return err
	}

	personID, err := r.ensurePerson(ctx, personName, filepath.Dir(imagePath))
	if err != nil {
		return err
	}
	if err := r.registerFace(ctx, personID, imagePath, data); err != nil {
		r.persist(ctx)
		return err
	}
	r.persist(ctx)
	return r.train(ctx)
}

// RemoveImageFromWhitelist removes the face registered for imagePath. The
// image file itself may already be gone.
func (r *Recognizer) RemoveImageFromWhitelist(ctx context.Context, imagePath, personName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index == nil {
		return ErrNoWhitelist
	}
	imagePath, err := cleanPath(imagePath)
	if err != nil {
		return err
	}
	if personName == "" {
		personName = parentName(imagePath)
	}
	personName = whitelist.NormalizeName(personName)

	personID := r.index.PersonIDByName(personName)
	if personID == "" {
		return fmt.Errorf("%w: person %s", ErrNotFound, personName)
	}
	faceID := r.index.FaceIDByPath(imagePath)
	if faceID == "" || !slices.Contains(r.index.FaceIDsForPerson(personID), faceID) {
		return fmt.Errorf("%w: image %s of %s", ErrNotFound, imagePath, personName)
	}

	if err := r.removeFace(ctx, personID, faceID); err != nil {
		return err
	}
	r.persist(ctx)
	return r.train(ctx)
}

func (r *Recognizer) removeFace(ctx context.Context, personID, faceID string) error {
	err := r.client.DeletePersonFace(ctx, r.groupID(), personID, faceID)
	if err != nil && !faceapi.IsNotFound(err) {
		return fmt.Errorf("delete face %s: %w", faceID, err)
	}
	r.index.RemoveFace(personID, faceID)
	return nil
}

// AddPersonToWhitelist registers every image in folder for one person.
// personName defaults to the folder name. Images are skipped the same way as
// in CreateWhitelistFromFolder.
func (r *Recognizer) AddPersonToWhitelist(ctx context.Context, folder, personName string) (*BuildReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index == nil {
		return nil, ErrNoWhitelist
	}
	folder, err := cleanPath(folder)
	if err != nil {
		return nil, err
	}
	if personName == "" {
		personName = filepath.Base(folder)
	}
	personName = whitelist.NormalizeName(personName)

	files, err := r.tree.Files(folder)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilePath, err)
	}

	personID, err := r.ensurePerson(ctx, personName, folder)
	if err != nil {
		return nil, err
	}
	report := &BuildReport{Persons: 1}
	if err := r.registerFiles(ctx, personID, files, report, func() {}); err != nil {
		r.persist(ctx)
		return report, err
	}
	r.persist(ctx)

	if err := r.train(ctx); err != nil {
		return report, err
	}
	return report, nil
}

// RemovePersonFromWhitelist deletes all faces of a person in registration
// order, then the person.
func (r *Recognizer) RemovePersonFromWhitelist(ctx context.Context, personName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index == nil {
		return ErrNoWhitelist
	}
	personName = whitelist.NormalizeName(personName)
	personID := r.index.PersonIDByName(personName)
	if personID == "" {
		return fmt.Errorf("%w: person %s", ErrNotFound, personName)
	}

	for _, faceID := range r.index.FaceIDsForPerson(personID) {
		if err := r.removeFace(ctx, personID, faceID); err != nil {
			r.persist(ctx)
			return err
		}
	}
	err := r.client.DeletePerson(ctx, r.groupID(), personID)
	if err != nil && !faceapi.IsNotFound(err) {
		r.persist(ctx)
		return fmt.Errorf("delete person %s: %w", personName, err)
	}
	r.index.RemovePerson(personID)
	r.persist(ctx)
	r.log.Info("removed person", zap.String("name", personName))

	return r.train(ctx)
}

// RecognizeFaces returns the names of whitelisted persons found in an image,
// in the order the faces were detected. Faces without a match are left out.
func (r *Recognizer) RecognizeFaces(ctx context.Context, imagePath string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.index == nil {
		return nil, ErrNoWhitelist
	}
	faceIDs, err := r.DetectAllFaces(ctx, imagePath)
	if err != nil {
		return nil, err
	}
	results, err := r.client.Identify(ctx, r.groupID(), faceIDs)
	if err != nil {
		var apiErr *faceapi.APIError
		if errors.As(err, &apiErr) && apiErr.Code == faceapi.CodePersonGroupNotTrained {
			return nil, fmt.Errorf("%w: %w", ErrNoWhitelist, err)
		}
		return nil, fmt.Errorf("identify faces in %s: %w", imagePath, err)
	}

	names := make([]string, 0, len(results))
	for _, res := range results {
		if len(res.Candidates) == 0 {
			continue
		}
		name := r.index.PersonNameByID(res.Candidates[0].PersonID)
		if name == "" {
			r.log.Warn("identified person is not in the local whitelist",
				zap.String("person_id", res.Candidates[0].PersonID))
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
