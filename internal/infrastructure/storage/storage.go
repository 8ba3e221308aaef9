package storage

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/erp/bridge/internal/application/syncer"
	infraconfig "github.com/erp/bridge/internal/infrastructure/config"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// sniffLength is the number of leading bytes used to detect a content type
const sniffLength = 3072

const octetStream = "application/octet-stream"

// NewMediaStore creates the media store selected by cfg.Type
func NewMediaStore(ctx context.Context, cfg *infraconfig.StorageConfig, logger *zap.Logger) (syncer.MediaStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Type {
	case "", "local":
		return NewLocalMediaStore(cfg.LocalPath)
	case "s3":
		return NewS3MediaStore(ctx, &cfg.S3, WithLogger(logger.Named("s3")))
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// DetectContentType returns the MIME type of a file from its leading bytes,
// falling back to the file extension when the content is not recognized.
func DetectContentType(name string, head []byte) string {
	if len(head) > 0 {
		detected := mimetype.Detect(head)
		if !detected.Is(octetStream) && !detected.Is("text/plain") {
			return stripParams(detected.String())
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		return stripParams(byExt)
	}
	if len(head) > 0 {
		return stripParams(mimetype.Detect(head).String())
	}
	return octetStream
}

func isGenericContentType(contentType string) bool {
	ct := stripParams(contentType)
	return ct == "" || ct == octetStream || ct == "binary/octet-stream"
}

func stripParams(contentType string) string {
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(contentType)
}
