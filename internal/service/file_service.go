package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/parisxmas/sangha/internal/forms"
	"github.com/parisxmas/sangha/internal/models"
	"github.com/parisxmas/sangha/internal/storage"
)

// MaxUploadSize bounds a single uploaded file.
const MaxUploadSize = 10 << 20

type FileService struct {
	store storage.Store
	forms *FormService
}

func NewFileService(store storage.Store, forms *FormService) *FileService {
	return &FileService{store: store, forms: forms}
}

type UploadResult struct {
	Key         string `json:"key"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// uploadTag prefixes the keys of files uploaded for one form question, so a
// submission can only reference uploads made for that question.
func uploadTag(formID, questionID string) string {
	sum := sha256.Sum256([]byte(formID + "\x00" + questionID))
	return hex.EncodeToString(sum[:6]) + "_"
}

// Upload stores a file answer for a form's file question and returns the
// key to submit as that question's answer. Uploads are public like
// submissions; the key is unguessable and only valid for that question.
func (s *FileService) Upload(ctx context.Context, slug, questionID, fileName string, data []byte) (*UploadResult, error) {
	if len(data) == 0 {
		return nil, invalidf("file is empty")
	}
	if len(data) > MaxUploadSize {
		return nil, invalidf("file exceeds %d bytes", MaxUploadSize)
	}
	form, err := s.forms.Published(ctx, slug)
	if err != nil {
		return nil, err
	}
	q := form.Question(questionID)
	if q == nil || q.QuestionType != models.QuestionFile {
		return nil, invalidf("question %s is not a file question", questionID)
	}
	if err := forms.CheckFileType(*q, fileName); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalid)
	}

	key := uploadTag(form.ID, q.ID) + storage.NewKey(fileName)
	contentType := storage.ContentType(fileName)
	if err := s.store.Put(ctx, key, data, contentType); err != nil {
		return nil, fmt.Errorf("upload %s: %w", fileName, err)
	}
	return &UploadResult{Key: key, FileName: fileName, ContentType: contentType, Size: len(data)}, nil
}

// Attached checks that key is a stored upload made for question q of form.
func (s *FileService) Attached(ctx context.Context, form *models.FormTemplate, q models.FormQuestion, key string) error {
	if !strings.HasPrefix(key, uploadTag(form.ID, q.ID)) {
		return invalidf("%s: file %s was not uploaded for this question", q.ID, key)
	}
	if err := forms.CheckFileType(q, key); err != nil {
		return fmt.Errorf("%s: %v: %w", q.ID, err, ErrInvalid)
	}
	ok, err := s.store.Exists(ctx, key)
	switch {
	case errors.Is(err, storage.ErrInvalidKey):
		return invalidf("%s: file key %s", q.ID, key)
	case err != nil:
		return err
	case !ok:
		return invalidf("%s: file %s not found", q.ID, key)
	}
	return nil
}

// Download returns a stored file and its content type.
func (s *FileService) Download(ctx context.Context, key string) ([]byte, string, error) {
	data, err := s.store.Get(ctx, key)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, "", notFoundf("file %s", key)
	case errors.Is(err, storage.ErrInvalidKey):
		return nil, "", invalidf("file key %s", key)
	case err != nil:
		return nil, "", err
	}
	return data, storage.ContentType(key), nil
}
