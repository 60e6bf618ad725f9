package repo

import (
	"errors"
	"fmt"

	"github.com/grit-vcs/grit/pkg/object"
)

// FsckReport describes the problems an integrity check found. A repository
// with an empty report is internally consistent.
type FsckReport struct {
	Checked  int
	Corrupt  []object.Hash
	Dangling []DanglingRef
}

// DanglingRef is a reference from one object (or a ref file) to an object
// hash that is not present in the store.
type DanglingRef struct {
	From   string
	Target object.Hash
}

// OK reports whether the check found nothing wrong.
func (rep *FsckReport) OK() bool {
	return len(rep.Corrupt) == 0 && len(rep.Dangling) == 0
}

// Fsck reads back every loose object, verifying that stored content still
// hashes to its name, and checks that every object and ref reference
// resolves. Corruption is reported, never repaired.
func (r *Repo) Fsck() (*FsckReport, error) {
	loose, err := r.Store.ListLoose()
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}

	rep := &FsckReport{}
	present := make(map[object.Hash]struct{}, len(loose))

	type objRefs struct {
		from    object.Hash
		targets []object.Hash
	}
	var outgoing []objRefs

	for _, h := range loose {
		rep.Checked++
		objType, data, err := r.Store.Read(h)
		if err != nil {
			if errors.Is(err, object.ErrIntegrity) {
				rep.Corrupt = append(rep.Corrupt, h)
				continue
			}
			return nil, fmt.Errorf("fsck read %s: %w", h, err)
		}
		present[h] = struct{}{}

		targets, err := object.ReferencedHashes(objType, data)
		if err != nil {
			rep.Corrupt = append(rep.Corrupt, h)
			continue
		}
		outgoing = append(outgoing, objRefs{from: h, targets: targets})
	}

	for _, o := range outgoing {
		for _, t := range o.targets {
			if t == "" {
				continue
			}
			if _, ok := present[t]; !ok {
				rep.Dangling = append(rep.Dangling, DanglingRef{From: string(o.from), Target: t})
			}
		}
	}

	refs, err := r.ListRefs("")
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}
	for name, h := range refs {
		if h == "" {
			continue
		}
		if _, ok := present[h]; !ok {
			rep.Dangling = append(rep.Dangling, DanglingRef{From: name, Target: h})
		}
	}

	return rep, nil
}
