package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveWritesFile(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	name, err := store.Save([]byte("datos"), "comprobante.jpg")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if name != "comprobante.jpg" {
		t.Fatalf("expected original name, got %q", name)
	}
	got, err := os.ReadFile(filepath.Join(store.dir, name))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(got) != "datos" {
		t.Fatalf("unexpected contents %q", got)
	}
}

func TestSaveCollisionGetsSuffix(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	first, err := store.Save([]byte("uno"), "foto.png")
	if err != nil {
		t.Fatalf("save first: %v", err)
	}
	second, err := store.Save([]byte("dos"), "foto.png")
	if err != nil {
		t.Fatalf("save second: %v", err)
	}
	if second == first {
		t.Fatalf("expected suffixed name, got duplicate %q", second)
	}
	if !strings.HasPrefix(second, "foto_") || !strings.HasSuffix(second, ".png") {
		t.Fatalf("unexpected suffixed name %q", second)
	}
	got, err := os.ReadFile(filepath.Join(store.dir, first))
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	if string(got) != "uno" {
		t.Fatalf("first file was overwritten: %q", got)
	}
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"photos/file_123.jpg", "file_123.jpg"},
		{"../../etc/passwd", "passwd"},
		{"recibo pago.pdf", "recibo_pago.pdf"},
	}
	for _, c := range cases {
		if got := sanitizeName(c.in); got != c.want {
			t.Fatalf("sanitizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
