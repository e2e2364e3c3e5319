package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// EvidenceStore persiste los bytes de una evidencia bajo un nombre local.
type EvidenceStore interface {
	// Save escribe data y devuelve el nombre final. Si suggestedName ya existe
	// se agrega un sufijo aleatorio: nunca se sobreescribe un archivo.
	Save(data []byte, suggestedName string) (string, error)
}

type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create evidence dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

func (s *LocalStore) Save(data []byte, suggestedName string) (string, error) {
	name := sanitizeName(suggestedName)
	dest := filepath.Join(s.dir, name)
	if _, err := os.Stat(dest); err == nil {
		ext := filepath.Ext(name)
		base := strings.TrimSuffix(name, ext)
		name = fmt.Sprintf("%s_%s%s", base, uuid.NewString()[:8], ext)
		dest = filepath.Join(s.dir, name)
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", fmt.Errorf("write evidence: %w", err)
	}
	return name, nil
}

// sanitizeName reduce un path remoto a un nombre de archivo plano y seguro.
func sanitizeName(raw string) string {
	name := filepath.Base(strings.ReplaceAll(raw, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		out = uuid.NewString()[:8]
	}
	return out
}
