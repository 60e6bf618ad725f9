package repo

import (
	"reflect"
	"testing"

	"github.com/grit-vcs/grit/pkg/object"
)

func TestLightweightTagLifecycle(t *testing.T) {
	r := newTestRepo(t)
	c1 := testCommit(t, r, map[string]string{"a": "1"}, "one")
	c2 := testCommit(t, r, map[string]string{"a": "2"}, "two", c1)

	if err := r.CreateTag("v1.0", c1, false); err != nil {
		t.Fatalf("CreateTag: %v", err)
	}
	if got, err := r.PeelTag("v1.0"); err != nil || got != c1 {
		t.Fatalf("PeelTag = %s, %v, want %s", got, err, c1)
	}

	// A second create without force is rejected; force overwrites.
	if err := r.CreateTag("v1.0", c2, false); err == nil {
		t.Fatalf("duplicate tag accepted without force")
	}
	if err := r.CreateTag("v1.0", c2, true); err != nil {
		t.Fatalf("CreateTag(force): %v", err)
	}
	if got, _ := r.PeelTag("v1.0"); got != c2 {
		t.Fatalf("forced tag points at %s, want %s", got, c2)
	}

	if err := r.DeleteTag("v1.0"); err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	if err := r.DeleteTag("v1.0"); err == nil {
		t.Fatalf("deleting a missing tag succeeded")
	}
	if _, err := r.PeelTag("v1.0"); err == nil {
		t.Fatalf("deleted tag still resolves")
	}
}

func TestAnnotatedTag(t *testing.T) {
	r := newTestRepo(t)
	c := testCommit(t, r, map[string]string{"a": "1"}, "one")

	tagHash, err := r.CreateAnnotatedTag("v2.0", c, "tagger <t@example.com>", "release two", false)
	if err != nil {
		t.Fatalf("CreateAnnotatedTag: %v", err)
	}

	// The ref points at the tag object, not the commit.
	ref, err := r.ResolveRef("refs/tags/v2.0")
	if err != nil {
		t.Fatalf("ResolveRef: %v", err)
	}
	if ref != tagHash {
		t.Fatalf("ref = %s, want tag object %s", ref, tagHash)
	}

	objType, data, err := r.Store.Read(tagHash)
	if err != nil {
		t.Fatalf("Read(tag): %v", err)
	}
	if objType != object.TypeTag {
		t.Fatalf("object type = %s, want tag", objType)
	}
	tag, err := object.UnmarshalTag(data)
	if err != nil {
		t.Fatalf("UnmarshalTag: %v", err)
	}
	if tag.TargetHash != c || tag.TargetType != object.TypeCommit {
		t.Fatalf("tag target = %s (%s), want %s (commit)", tag.TargetHash, tag.TargetType, c)
	}
	if tag.Name != "v2.0" || tag.Message != "release two" || tag.Tagger != "tagger <t@example.com>" {
		t.Fatalf("tag fields = %+v", tag)
	}

	// Peeling unwraps down to the commit.
	if got, err := r.PeelTag("v2.0"); err != nil || got != c {
		t.Fatalf("PeelTag = %s, %v, want %s", got, err, c)
	}
}

func TestAnnotatedTagRequiresMessage(t *testing.T) {
	r := newTestRepo(t)
	c := testCommit(t, r, map[string]string{"a": "1"}, "one")

	if _, err := r.CreateAnnotatedTag("v1", c, "", "   ", false); err == nil {
		t.Fatalf("blank message accepted")
	}
	if _, err := r.CreateAnnotatedTag("v1", "deadbeef", "", "msg", false); err == nil {
		t.Fatalf("unknown target accepted")
	}
}

func TestListTagsSorted(t *testing.T) {
	r := newTestRepo(t)
	c := testCommit(t, r, map[string]string{"a": "1"}, "one")

	for _, name := range []string{"v2.0", "v0.9", "v1.0"} {
		if err := r.CreateTag(name, c, false); err != nil {
			t.Fatalf("CreateTag(%s): %v", name, err)
		}
	}
	got, err := r.ListTags()
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	want := []string{"v0.9", "v1.0", "v2.0"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ListTags = %v, want %v", got, want)
	}
}

func TestTagNameValidation(t *testing.T) {
	r := newTestRepo(t)
	c := testCommit(t, r, map[string]string{"a": "1"}, "one")

	for _, name := range []string{"", "has space", "nested/name", ".hidden", "v1.lock", "a\tb"} {
		if err := r.CreateTag(name, c, false); err == nil {
			t.Fatalf("tag name %q accepted", name)
		}
	}
}
