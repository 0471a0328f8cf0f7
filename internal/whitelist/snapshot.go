package whitelist

import (
	"errors"
	"fmt"
	"slices"
)

// Snapshot is a serialisable copy of an index. Persons appear in insertion
// order and faces in each person's registration order, so two indexes built
// by the same sequence of mutations produce equal snapshots.
type Snapshot struct {
	WhitelistID string           `json:"whitelist_id"`
	Persons     []PersonSnapshot `json:"persons"`
}

// PersonSnapshot is a person with its faces.
type PersonSnapshot struct {
	Person
	Faces []Face `json:"faces"`
}

// Snapshot copies the index.
func (x *Index) Snapshot() Snapshot {
	handles := make([]handle, 0, len(x.persons))
	for h := range x.persons {
		handles = append(handles, h)
	}
	slices.Sort(handles)

	snap := Snapshot{WhitelistID: x.whitelistID, Persons: make([]PersonSnapshot, 0, len(handles))}
	for _, h := range handles {
		p := x.persons[h]
		ps := PersonSnapshot{Person: p.person, Faces: make([]Face, 0, len(p.faces))}
		for _, fh := range p.faces {
			ps.Faces = append(ps.Faces, x.faces[fh].face)
		}
		snap.Persons = append(snap.Persons, ps)
	}
	return snap
}

// FromSnapshot rebuilds an index through the regular mutators. Entries that
// would violate an invariant are dropped; the second return value counts them.
func FromSnapshot(snap Snapshot) (*Index, int) {
	x := New(snap.WhitelistID)
	dropped := 0
	for _, p := range snap.Persons {
		if !x.AddPerson(p.ID, p.Name, p.SourceFolder) {
			dropped += 1 + len(p.Faces)
			continue
		}
		for _, f := range p.Faces {
			if !x.AddFace(p.ID, f.ID, f.ImagePath) {
				dropped++
			}
		}
	}
	return x, dropped
}

// ErrCorrupt is wrapped by Validate failures.
var ErrCorrupt = errors.New("whitelist index corrupt")

// Validate checks every index invariant and returns the first violation.
func (x *Index) Validate() error {
	if len(x.personByID) != len(x.persons) || len(x.personByName) != len(x.persons) {
		return fmt.Errorf("%w: person lookup sizes %d/%d for %d persons",
			ErrCorrupt, len(x.personByID), len(x.personByName), len(x.persons))
	}
	if len(x.faceByID) != len(x.faces) || len(x.faceByPath) != len(x.faces) {
		return fmt.Errorf("%w: face lookup sizes %d/%d for %d faces",
			ErrCorrupt, len(x.faceByID), len(x.faceByPath), len(x.faces))
	}

	members := 0
	for h, p := range x.persons {
		if x.personByID[p.person.ID] != h || x.personByName[p.person.Name] != h {
			return fmt.Errorf("%w: person %q not reachable by its keys", ErrCorrupt, p.person.ID)
		}
		for _, fh := range p.faces {
			f, ok := x.faces[fh]
			if !ok {
				return fmt.Errorf("%w: person %q lists a missing face", ErrCorrupt, p.person.ID)
			}
			if f.owner != h || f.face.PersonID != p.person.ID {
				return fmt.Errorf("%w: face %q listed by %q but owned by %q",
					ErrCorrupt, f.face.ID, p.person.ID, f.face.PersonID)
			}
		}
		members += len(p.faces)
	}
	if members != len(x.faces) {
		return fmt.Errorf("%w: %d faces listed by persons, %d stored", ErrCorrupt, members, len(x.faces))
	}

	for h, f := range x.faces {
		if x.faceByID[f.face.ID] != h || x.faceByPath[f.face.ImagePath] != h {
			return fmt.Errorf("%w: face %q not reachable by its keys", ErrCorrupt, f.face.ID)
		}
		if _, ok := x.persons[f.owner]; !ok {
			return fmt.Errorf("%w: face %q is orphaned", ErrCorrupt, f.face.ID)
		}
	}
	return nil
}
