package repo

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func testSSHSigner(t *testing.T) ssh.Signer {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("NewSignerFromKey: %v", err)
	}
	return signer
}

func TestSignedCommitRoundtrip(t *testing.T) {
	r := newTestRepo(t)
	signer := testSSHSigner(t)

	tree, err := r.BuildTree(testManifest(t, r, map[string]string{"a": "1"}))
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	h, err := r.CommitTreeWithSigner(tree, nil, CommitMeta{
		Author:    testAuthor,
		Timestamp: 100,
		Message:   "signed",
	}, SignerFromSSH(signer))
	if err != nil {
		t.Fatalf("CommitTreeWithSigner: %v", err)
	}

	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if !strings.HasPrefix(c.Signature, "sshsig-v1:") {
		t.Fatalf("signature = %q, want sshsig-v1 envelope", c.Signature)
	}

	pub, err := VerifyCommitSignature(c)
	if err != nil {
		t.Fatalf("VerifyCommitSignature: %v", err)
	}
	want := signer.PublicKey().Marshal()
	if string(pub.Marshal()) != string(want) {
		t.Fatalf("verified key differs from signing key")
	}
}

func TestVerifyRejectsTamperedCommit(t *testing.T) {
	r := newTestRepo(t)
	signer := testSSHSigner(t)

	tree, err := r.BuildTree(testManifest(t, r, map[string]string{"a": "1"}))
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	h, err := r.CommitTreeWithSigner(tree, nil, CommitMeta{
		Author:    testAuthor,
		Timestamp: 100,
		Message:   "signed",
	}, SignerFromSSH(signer))
	if err != nil {
		t.Fatalf("CommitTreeWithSigner: %v", err)
	}
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}

	// Any change to the signed fields must invalidate the signature.
	c.Message = "rewritten"
	if _, err := VerifyCommitSignature(c); err == nil {
		t.Fatalf("tampered commit verified")
	}

	// A signature swapped in from another key fails too.
	c.Message = "signed"
	other := testSSHSigner(t)
	forged, err := SignerFromSSH(other)(nil)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	c.Signature = forged
	if _, err := VerifyCommitSignature(c); err == nil {
		t.Fatalf("foreign signature verified")
	}
}

func TestVerifyRejectsMalformedSignatures(t *testing.T) {
	r := newTestRepo(t)
	h := testCommit(t, r, map[string]string{"a": "1"}, "unsigned")
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}

	if _, err := VerifyCommitSignature(c); err == nil {
		t.Fatalf("unsigned commit verified")
	}
	for _, sig := range []string{
		"not-a-signature",
		"sshsig-v1:too:few",
		"other-v1:a:b:c",
		"sshsig-v1:ssh-ed25519:!!!:!!!",
	} {
		c.Signature = sig
		if _, err := VerifyCommitSignature(c); err == nil {
			t.Fatalf("signature %q verified", sig)
		}
	}
}

func TestNewSSHSignerFromKeyFile(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	block, err := ssh.MarshalPrivateKey(priv, "")
	if err != nil {
		t.Fatalf("MarshalPrivateKey: %v", err)
	}
	keyPath := filepath.Join(t.TempDir(), "id_ed25519")
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	signer, resolved, err := NewSSHSigner(keyPath)
	if err != nil {
		t.Fatalf("NewSSHSigner: %v", err)
	}
	if resolved != keyPath {
		t.Fatalf("resolved path = %q, want %q", resolved, keyPath)
	}

	r := newTestRepo(t)
	h, err := r.CommitWithSigner(testManifest(t, r, map[string]string{"a": "1"}),
		CommitMeta{Author: testAuthor, Message: "signed from file"}, signer)
	if err != nil {
		t.Fatalf("CommitWithSigner: %v", err)
	}
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if _, err := VerifyCommitSignature(c); err != nil {
		t.Fatalf("VerifyCommitSignature: %v", err)
	}
}

func TestNewSSHSignerMissingKey(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "no-such-key")
	if _, _, err := NewSSHSigner(missing); err == nil {
		t.Fatalf("missing key accepted")
	}
}
