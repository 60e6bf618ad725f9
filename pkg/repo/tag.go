package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/grit-vcs/grit/pkg/object"
)

// CreateTag creates or updates a lightweight tag ref under refs/tags/.
func (r *Repo) CreateTag(name string, target object.Hash, force bool) error {
	name = strings.TrimSpace(name)
	if err := validateTagName(name); err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	if strings.TrimSpace(string(target)) == "" {
		return fmt.Errorf("create tag: target hash is required")
	}

	refName := "refs/tags/" + name
	if !force {
		if _, err := r.ResolveRef(refName); err == nil {
			return fmt.Errorf("create tag: tag %q already exists", name)
		}
	}
	if err := r.UpdateRef(refName, target); err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	return nil
}

// CreateAnnotatedTag creates or updates an annotated tag ref under
// refs/tags/. The ref points at a stored tag object, which in turn points
// at target.
func (r *Repo) CreateAnnotatedTag(name string, target object.Hash, tagger, message string, force bool) (object.Hash, error) {
	name = strings.TrimSpace(name)
	if err := validateTagName(name); err != nil {
		return "", fmt.Errorf("create annotated tag: %w", err)
	}
	if strings.TrimSpace(string(target)) == "" {
		return "", fmt.Errorf("create annotated tag: target hash is required")
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("create annotated tag: message is required")
	}
	tagger = strings.TrimSpace(tagger)
	if tagger == "" {
		tagger = r.defaultAuthor()
	}

	targetType, _, err := r.Store.Read(target)
	if err != nil {
		return "", fmt.Errorf("create annotated tag: read target %s: %w", target, err)
	}

	refName := "refs/tags/" + name
	if !force {
		if _, err := r.ResolveRef(refName); err == nil {
			return "", fmt.Errorf("create annotated tag: tag %q already exists", name)
		}
	}

	tagHash, err := r.Store.WriteTag(&object.TagObj{
		TargetHash: target,
		TargetType: targetType,
		Name:       name,
		Tagger:     tagger,
		Timestamp:  time.Now().Unix(),
		Message:    message,
	})
	if err != nil {
		return "", fmt.Errorf("create annotated tag: write tag object: %w", err)
	}

	if err := r.UpdateRef(refName, tagHash); err != nil {
		return "", fmt.Errorf("create annotated tag: %w", err)
	}
	return tagHash, nil
}

// DeleteTag removes a tag ref from refs/tags/. The deletion is journaled
// (old target → zero) so the tagged hash stays recoverable afterward.
func (r *Repo) DeleteTag(name string) error {
	name = strings.TrimSpace(name)
	if err := validateTagName(name); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}
	refName := "refs/tags/" + name
	refPath := filepath.Join(r.GritDir, "refs", "tags", name)
	oldHash, err := readRefHash(refPath)
	if err != nil {
		return fmt.Errorf("delete tag %q: %w", name, err)
	}
	if err := os.Remove(refPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("delete tag: tag %q does not exist", name)
		}
		return fmt.Errorf("delete tag %q: %w", name, err)
	}
	if err := r.appendReflog(refName, oldHash, "", "delete"); err != nil {
		return &RefUpdateReflogError{Ref: refName, OldHash: oldHash, Err: err}
	}
	return nil
}

// ListTags returns tag names sorted alphabetically.
func (r *Repo) ListTags() ([]string, error) {
	refs, err := r.ListRefs("tags")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, strings.TrimPrefix(name, "tags/"))
	}
	sort.Strings(names)
	return names, nil
}

// PeelTag resolves a tag ref down to the commit it ultimately points at,
// unwrapping annotated tag objects.
func (r *Repo) PeelTag(name string) (object.Hash, error) {
	h, err := r.ResolveRef("refs/tags/" + name)
	if err != nil {
		return "", err
	}
	for {
		objType, data, err := r.Store.Read(h)
		if err != nil {
			return "", fmt.Errorf("peel tag %q: %w", name, err)
		}
		if objType != object.TypeTag {
			return h, nil
		}
		tag, err := object.UnmarshalTag(data)
		if err != nil {
			return "", fmt.Errorf("peel tag %q: %w", name, err)
		}
		h = tag.TargetHash
	}
}

func validateTagName(name string) error {
	if name == "" {
		return fmt.Errorf("tag name is required")
	}
	if strings.ContainsAny(name, "/\\ \t\n") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".lock") {
		return fmt.Errorf("invalid tag name %q", name)
	}
	return nil
}
