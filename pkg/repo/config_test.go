package repo

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/grit-vcs/grit/pkg/object"
)

func TestReadConfigMissingFile(t *testing.T) {
	r := newTestRepo(t)
	cfg, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if diff := cmp.Diff(&Config{}, cfg); diff != "" {
		t.Fatalf("missing config not zero (-want +got):\n%s", diff)
	}
}

func TestConfigRoundtrip(t *testing.T) {
	r := newTestRepo(t)
	want := &Config{
		User:  UserConfig{Name: "Ada", Email: "ada@example.com"},
		Store: StoreConfig{DisableCompression: true},
		Sign:  SignConfig{KeyPath: "~/.ssh/id_ed25519"},
	}
	if err := r.WriteConfig(want); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	got, err := r.ReadConfig()
	if err != nil {
		t.Fatalf("ReadConfig: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("config roundtrip (-want +got):\n%s", diff)
	}

	// The file is TOML under .grit/.
	data, err := os.ReadFile(filepath.Join(r.GritDir, "config.toml"))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "[user]") || !strings.Contains(string(data), `name = "Ada"`) {
		t.Fatalf("unexpected config contents:\n%s", data)
	}
}

func TestConfigAuthorString(t *testing.T) {
	cases := []struct {
		name, email, want string
	}{
		{"Ada", "ada@example.com", "Ada <ada@example.com>"},
		{"Ada", "", "Ada"},
		{"", "ada@example.com", "<ada@example.com>"},
		{"", "", ""},
		{"  Ada  ", " ada@example.com ", "Ada <ada@example.com>"},
	}
	for _, c := range cases {
		cfg := &Config{User: UserConfig{Name: c.name, Email: c.email}}
		if got := cfg.AuthorString(); got != c.want {
			t.Errorf("AuthorString(%q, %q) = %q, want %q", c.name, c.email, got, c.want)
		}
	}
}

func TestConfiguredAuthorUsedForCommits(t *testing.T) {
	r := newTestRepo(t)
	err := r.WriteConfig(&Config{User: UserConfig{Name: "Ada", Email: "ada@example.com"}})
	if err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	tree, err := r.BuildTree(testManifest(t, r, map[string]string{"a": "1"}))
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	h, err := r.CommitTree(tree, nil, CommitMeta{Message: "configured author"})
	if err != nil {
		t.Fatalf("CommitTree: %v", err)
	}
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if c.Author != "Ada <ada@example.com>" {
		t.Fatalf("author = %q, want configured identity", c.Author)
	}
}

func TestDisableCompressionApplied(t *testing.T) {
	r := newTestRepo(t)
	err := r.WriteConfig(&Config{Store: StoreConfig{DisableCompression: true}})
	if err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}

	content := []byte(strings.Repeat("uncompressed payload\n", 64))
	h, err := r.Store.WriteBlob(&object.Blob{Data: content})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}

	raw := readLooseObject(t, r, h)
	zstdMagic := []byte{0x28, 0xb5, 0x2f, 0xfd}
	if bytes.HasPrefix(raw, zstdMagic) {
		t.Fatalf("object stored compressed despite disable_compression")
	}

	// Flipping the setting back re-enables compression for new writes.
	if err := r.WriteConfig(&Config{}); err != nil {
		t.Fatalf("WriteConfig: %v", err)
	}
	h2, err := r.Store.WriteBlob(&object.Blob{Data: append(content, '!')})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if raw := readLooseObject(t, r, h2); !bytes.HasPrefix(raw, zstdMagic) {
		t.Fatalf("object stored uncompressed after re-enabling compression")
	}
}

// looseObjectPath returns the on-disk path of a loose object.
func looseObjectPath(r *Repo, h object.Hash) string {
	return filepath.Join(r.GritDir, "objects", string(h[:2]), string(h[2:]))
}

// readLooseObject returns the on-disk bytes of a loose object.
func readLooseObject(t *testing.T, r *Repo, h object.Hash) []byte {
	t.Helper()
	data, err := os.ReadFile(looseObjectPath(r, h))
	if err != nil {
		t.Fatalf("read loose object %s: %v", h, err)
	}
	return data
}
