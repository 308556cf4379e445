package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/HeliosCommand/server/internal/agent/model"
	logx "github.com/HeliosCommand/server/pkg/logger"
)

// FileSessionRepository stores one JSON document per conversation under dir.
type FileSessionRepository struct {
	dir string
}

func NewFileSessionRepository(dir string) *FileSessionRepository {
	return &FileSessionRepository{dir: dir}
}

func (f *FileSessionRepository) path(conversationID string) string {
	return filepath.Join(f.dir, conversationID+".json")
}

func (f *FileSessionRepository) Load(ctx context.Context, conversationID string) (*model.Session, error) {
	if err := validateID(conversationID); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(f.path(conversationID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return model.NewSession(conversationID), nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var doc sessionDocument
	if err := json.Unmarshal(b, &doc); err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to unmarshal session file")
		return nil, fmt.Errorf("unmarshal session %s: %w", conversationID, err)
	}
	s, err := doc.toSession(conversationID)
	if err != nil {
		return nil, fmt.Errorf("invalid session %s: %w", conversationID, err)
	}
	return s, nil
}

// Save writes to a temp file in the same directory and renames it into place.
func (f *FileSessionRepository) Save(ctx context.Context, s *model.Session) error {
	if s == nil {
		return fmt.Errorf("invalid session")
	}
	if err := validateID(s.ConversationID); err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	b, err := json.MarshalIndent(toDocument(s), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmp, err := os.CreateTemp(f.dir, s.ConversationID+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write session: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close session file: %w", err)
	}
	if err := os.Rename(tmpName, f.path(s.ConversationID)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace session file: %w", err)
	}
	return nil
}

func (f *FileSessionRepository) Delete(ctx context.Context, conversationID string) error {
	if err := validateID(conversationID); err != nil {
		return err
	}
	if err := os.Remove(f.path(conversationID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

var _ model.SessionRepository = (*FileSessionRepository)(nil)
