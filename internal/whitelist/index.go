// Package whitelist holds the local person/face index of a door whitelist.
//
// The index mirrors a remote person-group: every person and face carries the
// opaque identifier assigned by the remote service, plus the local folder or
// image file it came from. Mutators never fail loudly. They report whether
// the index changed and leave it untouched on any constraint violation, which
// keeps retried synchronisation steps harmless.
//
// An Index is not safe for concurrent use.
package whitelist

import (
	"slices"
	"strings"
)

// Person is a whitelisted person.
type Person struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	SourceFolder string `json:"source_folder"`
}

// Face is a registered face image owned by a person.
type Face struct {
	ID        string `json:"id"`
	ImagePath string `json:"image_path"`
	PersonID  string `json:"person_id"`
}

type handle uint64

type personEntry struct {
	person Person
	faces  []handle // membership list in insertion order
}

type faceEntry struct {
	face  Face
	owner handle
}

// Index is the arena-backed person/face store. Entities live in the
// persons/faces maps keyed by an internal handle; the remaining maps are
// secondary lookups from external keys to those handles.
type Index struct {
	whitelistID string
	next        handle

	persons map[handle]*personEntry
	faces   map[handle]*faceEntry

	personByID   map[string]handle
	personByName map[string]handle
	faceByID     map[string]handle
	faceByPath   map[string]handle
}

// New creates an empty index for the given whitelist.
func New(whitelistID string) *Index {
	return &Index{
		whitelistID:  whitelistID,
		persons:      make(map[handle]*personEntry),
		faces:        make(map[handle]*faceEntry),
		personByID:   make(map[string]handle),
		personByName: make(map[string]handle),
		faceByID:     make(map[string]handle),
		faceByPath:   make(map[string]handle),
	}
}

// WhitelistID returns the identifier of the remote person-group this index mirrors.
func (x *Index) WhitelistID() string {
	return x.whitelistID
}

func (x *Index) alloc() handle {
	x.next++
	return x.next
}

// AddPerson inserts a person. It is a no-op returning false when any argument
// is empty or when the id or the name is already taken.
func (x *Index) AddPerson(id, name, folder string) bool {
	if id == "" || name == "" || folder == "" {
		return false
	}
	if _, ok := x.personByID[id]; ok {
		return false
	}
	if _, ok := x.personByName[name]; ok {
		return false
	}

	h := x.alloc()
	x.persons[h] = &personEntry{person: Person{ID: id, Name: name, SourceFolder: folder}}
	x.personByID[id] = h
	x.personByName[name] = h
	return true
}

// RemovePerson removes the person with the given id together with all of
// their faces.
func (x *Index) RemovePerson(id string) bool {
	h, ok := x.personByID[id]
	if !ok {
		return false
	}
	x.removePerson(h)
	return true
}

// RemovePersonByName is RemovePerson keyed by name.
func (x *Index) RemovePersonByName(name string) bool {
	h, ok := x.personByName[name]
	if !ok {
		return false
	}
	x.removePerson(h)
	return true
}

func (x *Index) removePerson(h handle) {
	p := x.persons[h]
	for _, fh := range p.faces {
		f := x.faces[fh]
		delete(x.faceByID, f.face.ID)
		delete(x.faceByPath, f.face.ImagePath)
		delete(x.faces, fh)
	}
	delete(x.personByID, p.person.ID)
	delete(x.personByName, p.person.Name)
	delete(x.persons, h)
}

// AddFace registers a face for the person with the given id. It is a no-op
// returning false when the person is unknown, an argument is empty, or the
// face id or image path is already registered.
func (x *Index) AddFace(personID, faceID, imagePath string) bool {
	h, ok := x.personByID[personID]
	if !ok {
		return false
	}
	return x.addFace(h, faceID, imagePath)
}

// AddFaceByName is AddFace keyed by the owner's name.
func (x *Index) AddFaceByName(personName, faceID, imagePath string) bool {
	h, ok := x.personByName[personName]
	if !ok {
		return false
	}
	return x.addFace(h, faceID, imagePath)
}

func (x *Index) addFace(owner handle, faceID, imagePath string) bool {
	if faceID == "" || imagePath == "" {
		return false
	}
	if _, ok := x.faceByID[faceID]; ok {
		return false
	}
	if _, ok := x.faceByPath[imagePath]; ok {
		return false
	}

	p := x.persons[owner]
	fh := x.alloc()
	x.faces[fh] = &faceEntry{
		face:  Face{ID: faceID, ImagePath: imagePath, PersonID: p.person.ID},
		owner: owner,
	}
	x.faceByID[faceID] = fh
	x.faceByPath[imagePath] = fh
	p.faces = append(p.faces, fh)
	return true
}

// RemoveFace removes a face owned by the given person.
func (x *Index) RemoveFace(personID, faceID string) bool {
	ph, ok := x.personByID[personID]
	if !ok {
		return false
	}
	fh, ok := x.faceByID[faceID]
	if !ok {
		return false
	}
	return x.removeFace(ph, fh)
}

// RemoveFaceByPath removes the face registered for imagePath if it belongs to
// the named person.
func (x *Index) RemoveFaceByPath(personName, imagePath string) bool {
	ph, ok := x.personByName[personName]
	if !ok {
		return false
	}
	fh, ok := x.faceByPath[imagePath]
	if !ok {
		return false
	}
	return x.removeFace(ph, fh)
}

func (x *Index) removeFace(ph, fh handle) bool {
	f := x.faces[fh]
	if f.owner != ph {
		return false
	}
	p := x.persons[ph]
	p.faces = slices.DeleteFunc(p.faces, func(h handle) bool { return h == fh })
	delete(x.faceByID, f.face.ID)
	delete(x.faceByPath, f.face.ImagePath)
	delete(x.faces, fh)
	return true
}

// PersonIDByName returns "" when no such person exists.
func (x *Index) PersonIDByName(name string) string {
	if h, ok := x.personByName[name]; ok {
		return x.persons[h].person.ID
	}
	return ""
}

// PersonNameByID returns "" when no such person exists.
func (x *Index) PersonNameByID(id string) string {
	if h, ok := x.personByID[id]; ok {
		return x.persons[h].person.Name
	}
	return ""
}

// Person looks up a person by id.
func (x *Index) Person(id string) (Person, bool) {
	if h, ok := x.personByID[id]; ok {
		return x.persons[h].person, true
	}
	return Person{}, false
}

// FaceIDByPath returns "" when the image is not registered.
func (x *Index) FaceIDByPath(imagePath string) string {
	if h, ok := x.faceByPath[imagePath]; ok {
		return x.faces[h].face.ID
	}
	return ""
}

// FacePathByID returns "" when the face is not registered.
func (x *Index) FacePathByID(faceID string) string {
	if h, ok := x.faceByID[faceID]; ok {
		return x.faces[h].face.ImagePath
	}
	return ""
}

// FaceIDsForPerson returns the person's face ids in registration order, or
// nil when the person is unknown. The returned slice is a copy.
func (x *Index) FaceIDsForPerson(personID string) []string {
	h, ok := x.personByID[personID]
	if !ok {
		return nil
	}
	p := x.persons[h]
	ids := make([]string, 0, len(p.faces))
	for _, fh := range p.faces {
		ids = append(ids, x.faces[fh].face.ID)
	}
	return ids
}

// Faces returns the faces of a person in registration order.
func (x *Index) Faces(personID string) []Face {
	h, ok := x.personByID[personID]
	if !ok {
		return nil
	}
	p := x.persons[h]
	faces := make([]Face, 0, len(p.faces))
	for _, fh := range p.faces {
		faces = append(faces, x.faces[fh].face)
	}
	return faces
}

// Persons returns all persons sorted by name.
func (x *Index) Persons() []Person {
	persons := make([]Person, 0, len(x.persons))
	for _, p := range x.persons {
		persons = append(persons, p.person)
	}
	slices.SortFunc(persons, func(a, b Person) int { return strings.Compare(a.Name, b.Name) })
	return persons
}

// Len returns the number of persons and faces in the index.
func (x *Index) Len() (persons, faces int) {
	return len(x.persons), len(x.faces)
}
