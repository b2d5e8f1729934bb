package services

import (
	"context"
	"path"
	"regexp"
	"strings"

	"github.com/duckieducksrgood/winchpoint/pkg/storage"

	"github.com/google/uuid"
)

var uploadFolders = map[string]bool{
	"product_images":   true,
	"proof_of_payment": true,
	"qr_codes":         true,
	"refund_proofs":    true,
}

// adminFolders can only be written by admins.
var adminFolders = map[string]bool{
	"product_images": true,
	"qr_codes":       true,
	"refund_proofs":  true,
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type UploadService struct {
	Store storage.Presigner
}

func NewUploadService(store storage.Presigner) *UploadService {
	return &UploadService{Store: store}
}

type UploadIn struct {
	Folder      string `json:"folder" binding:"required"`
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType"`
}

type UploadOut struct {
	*storage.PresignedUpload
	ObjectURL string `json:"objectUrl"`
}

func (s *UploadService) Presign(ctx context.Context, actor Actor, in *UploadIn) (*UploadOut, error) {
	folder := strings.TrimSpace(in.Folder)
	if !uploadFolders[folder] {
		return nil, Validation("unknown upload folder", "folder")
	}
	if adminFolders[folder] && !actor.IsAdmin() {
		return nil, Forbidden("only admins may upload to " + folder)
	}
	name := sanitizeFilename(in.Filename)
	if name == "" {
		return nil, Validation("filename is required", "filename")
	}

	key := folder + "/" + uuid.NewString() + "-" + name
	up, err := s.Store.PresignUpload(ctx, key, strings.TrimSpace(in.ContentType))
	if err != nil {
		return nil, err
	}
	return &UploadOut{PresignedUpload: up, ObjectURL: s.Store.ObjectURL(key)}, nil
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" {
		return ""
	}
	name = unsafeName.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	return name
}
