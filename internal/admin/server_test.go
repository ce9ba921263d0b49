package admin

import (
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gossh "golang.org/x/crypto/ssh"
)

func TestRenderIncludesStats(t *testing.T) {
	out := render(Stats{
		Backend:      "dmabuf",
		OutputWidth:  1920,
		OutputHeight: 1080,
		FPS:          29.7,
		LastDamage:   3,
		ViewerAddr:   "10.0.0.5:54321",
		ViewerActive: true,
		Uptime:       90 * time.Second,
	})

	for _, want := range []string{"dmabuf", "1920", "1080", "29.7", "10.0.0.5:54321", "1m30s"} {
		if !strings.Contains(out, want) {
			t.Errorf("render() missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderShowsIdleWhenNoViewer(t *testing.T) {
	out := render(Stats{Backend: "shm", ViewerActive: false})
	if !strings.Contains(out, "no viewer connected") {
		t.Errorf("render() = %q, want idle viewer text", out)
	}
}

// newTestPublicKey generates a fresh ed25519 key and returns its
// gossh.PublicKey form, the same type an SSH client would present.
func newTestPublicKey(t *testing.T) gossh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generating test key: %v", err)
	}
	sshPub, err := gossh.NewPublicKey(pub)
	if err != nil {
		t.Fatalf("NewPublicKey: %v", err)
	}
	return sshPub
}

// TestAuthorizedKeysRoundTrip exercises the same parse loop
// publicKeyAuth runs, without needing a live ssh.Context (Server's auth
// callback takes ssh.Context, which has no lightweight test double in
// the charmbracelet/ssh package).
func TestAuthorizedKeysRoundTrip(t *testing.T) {
	allowedKey := newTestPublicKey(t)
	otherKey := newTestPublicKey(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "authorized_keys")
	if err := os.WriteFile(path, gossh.MarshalAuthorizedKey(allowedKey), 0600); err != nil {
		t.Fatalf("writing authorized_keys: %v", err)
	}

	if !keyListedIn(t, path, allowedKey) {
		t.Error("expected allowedKey to be listed")
	}
	if keyListedIn(t, path, otherKey) {
		t.Error("did not expect otherKey to be listed")
	}
}

func keyListedIn(t *testing.T, path string, key gossh.PublicKey) bool {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading authorized_keys: %v", err)
	}
	for len(data) > 0 {
		allowed, _, _, rest, err := gossh.ParseAuthorizedKey(data)
		if err != nil {
			break
		}
		if allowed.Type() == key.Type() && string(allowed.Marshal()) == string(key.Marshal()) {
			return true
		}
		data = rest
	}
	return false
}

func TestPublicKeyAuthRejectsMissingFile(t *testing.T) {
	s := &Server{authorizedKeysPath: filepath.Join(t.TempDir(), "missing")}
	if _, err := os.ReadFile(s.authorizedKeysPath); err == nil {
		t.Fatal("expected missing file")
	}
	if s.publicKeyAuth(nil, nil) {
		t.Fatal("publicKeyAuth accepted a key although authorized_keys is missing")
	}
}
