package auth

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestFileStore_LoadMissing(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), ".hh_credentials.json"))

	if _, err := store.Load(); !errors.Is(err, ErrNoCredentials) {
		t.Errorf("Load() error = %v, want ErrNoCredentials", err)
	}
}

func TestFileStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".hh_credentials.json")
	store := NewFileStore(path)

	creds := &Credentials{AccessToken: "A", RefreshToken: "R", ExpiresAt: 1700000000}
	if err := store.Save(creds); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.AccessToken != "A" || got.RefreshToken != "R" || got.ExpiresAt != 1700000000 {
		t.Errorf("Load() = %+v", got)
	}
	if store.Path() != path {
		t.Errorf("Path() = %q, want %q", store.Path(), path)
	}
}

func TestFileStore_Permissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions only")
	}

	path := filepath.Join(t.TempDir(), ".hh_credentials.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	store := NewFileStore(path)
	if err := store.Save(&Credentials{AccessToken: "A"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if mode := info.Mode().Perm(); mode != FileMode {
		t.Errorf("mode = %o, want %o", mode, FileMode)
	}
}

func TestFileStore_Overwrite(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(filepath.Join(dir, "creds.json"))

	for _, token := range []string{"first", "second"} {
		if err := store.Save(&Credentials{AccessToken: token}); err != nil {
			t.Fatalf("Save(%s) error = %v", token, err)
		}
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.AccessToken != "second" {
		t.Errorf("AccessToken = %q, want second", got.AccessToken)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the credentials file", len(entries))
	}
}

func TestFileStore_LoadCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	_, err := NewFileStore(path).Load()
	if err == nil || errors.Is(err, ErrNoCredentials) {
		t.Errorf("Load() error = %v, want decode error", err)
	}
}
