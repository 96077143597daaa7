package media

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"whatsapp-ai-cs/internal/domain/model"
)

// Store writes inbound base64 attachments to disk and hands back the public
// path they are served from.
type Store struct {
	dir    string
	prefix string // URL prefix, e.g. /media
}

func NewStore(dir, prefix string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("media dir: %w", err)
	}
	return &Store{dir: dir, prefix: strings.TrimRight(prefix, "/")}, nil
}

// Dir returns the on-disk root, for static file serving.
func (s *Store) Dir() string { return s.dir }

// Sniff classifies a base64 payload by its leading characters, the way the
// gateway delivers them: JPEG, PNG, and PDF are recognized, everything else
// is an opaque binary.
func Sniff(b64 string) (model.MediaKind, string) {
	switch {
	case strings.HasPrefix(b64, "/9j/4"):
		return model.MediaImage, "jpg"
	case strings.HasPrefix(b64, "iVBORw"):
		return model.MediaImage, "png"
	case strings.HasPrefix(b64, "JVBERi"):
		return model.MediaDocument, "pdf"
	}
	return model.MediaDocument, "bin"
}

// SaveBase64 decodes and stores one attachment, returning its public URL and
// classified kind.
func (s *Store) SaveBase64(phone, b64 string) (publicURL string, kind model.MediaKind, err error) {
	kind, ext := Sniff(b64)
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", "", fmt.Errorf("decode media: %w", err)
	}
	filename := fmt.Sprintf("wa_%s_%s.%s", phone, uuid.NewString(), ext)
	if err := os.WriteFile(filepath.Join(s.dir, filename), data, 0o644); err != nil {
		return "", "", fmt.Errorf("write media: %w", err)
	}
	return s.prefix + "/" + filename, kind, nil
}
