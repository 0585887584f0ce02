// Package media ingests uploads: validate, stage, transcode, store.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/citywatch-app/citywatch/internal/errs"
	"github.com/citywatch-app/citywatch/internal/model"
	"github.com/citywatch-app/citywatch/internal/repository"
	"github.com/citywatch-app/citywatch/internal/storage"
)

var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

var allowedVideoTypes = map[string]bool{
	"video/mp4":       true,
	"video/webm":      true,
	"video/quicktime": true,
	"video/x-msvideo": true,
}

// Config bounds the pipeline.
type Config struct {
	MaxFileSize  int64
	VideoTimeout time.Duration
	TempDir      string
	BaseURL      string
}

// Pipeline turns raw uploads into durable, transcoded, unlinked media
// assets. Every temporary file it creates is removed before Ingest
// returns, on the success path and every failure path alike.
type Pipeline struct {
	cfg        Config
	transcoder Transcoder
	store      storage.ObjectStore
	media      repository.MediaRepository
	logger     *zap.Logger
}

// NewPipeline constructs the pipeline.
func NewPipeline(cfg Config, t Transcoder, store storage.ObjectStore, media repository.MediaRepository, logger *zap.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, transcoder: t, store: store, media: media, logger: logger}
}

// classify maps a declared content type to its media class.
func classify(contentType string) (model.MediaType, error) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case allowedImageTypes[ct]:
		return model.MediaImage, nil
	case allowedVideoTypes[ct]:
		return model.MediaVideo, nil
	default:
		return "", errs.ErrInvalidType
	}
}

// Ingest validates, stages, transcodes and durably stores one upload,
// returning the unlinked asset row and its public URL.
func (p *Pipeline) Ingest(ctx context.Context, r io.Reader, size int64, declaredType, filename string) (*model.MediaAsset, string, error) {
	class, err := classify(declaredType)
	if err != nil {
		return nil, "", err
	}
	if size > p.cfg.MaxFileSize {
		return nil, "", errs.ErrTooLarge
	}

	stage, err := newStaging(p.cfg.TempDir)
	if err != nil {
		return nil, "", fmt.Errorf("stage upload: %w", err)
	}
	// Cleanup must run on every exit path, including caller cancellation.
	defer func() {
		if err := stage.Close(); err != nil {
			p.logger.Warn("temp cleanup failed", zap.Error(err))
		}
	}()

	id, err := uuid.NewV4()
	if err != nil {
		return nil, "", err
	}

	inExt := inputExt(filename, class)
	outExt, outType := "jpg", "image/jpeg"
	if class == model.MediaVideo {
		outExt, outType = "mp4", "video/mp4"
	}
	inPath := stage.path(id.String() + "-input." + inExt)
	outPath := stage.path(id.String() + "-output." + outExt)

	if err := p.spool(inPath, r); err != nil {
		return nil, "", err
	}

	if err := p.transcode(ctx, class, inPath, outPath); err != nil {
		return nil, "", err
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, "", fmt.Errorf("read transcoded output: %w", err)
	}

	storagePath := "uploads/" + id.String() + "." + outExt
	if err := p.persist(ctx, storagePath, out, outType); err != nil {
		return nil, "", err
	}

	asset := &model.MediaAsset{
		ID:               id,
		StoragePath:      storagePath,
		MediaType:        class,
		OriginalFilename: filepath.Base(filename),
		CreatedAt:        time.Now().UTC(),
	}
	if err := p.media.Create(ctx, asset); err != nil {
		// The object is already durable; drop it rather than leak it.
		if derr := p.store.Delete(context.WithoutCancel(ctx), storagePath); derr != nil {
			p.logger.Warn("orphan object cleanup failed",
				zap.String("path", storagePath), zap.Error(derr))
		}
		return nil, "", fmt.Errorf("create media row: %w", err)
	}

	return asset, p.PublicURL(storagePath), nil
}

// spool copies the upload into the staging file, enforcing the byte
// limit while reading so a lying Content-Length cannot oversize us.
func (p *Pipeline) spool(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("stage upload: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(r, p.cfg.MaxFileSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("stage upload: %w", err)
	}
	if n > p.cfg.MaxFileSize {
		return errs.ErrTooLarge
	}
	return nil
}

// transcode runs the external tool under the class's wall-clock bound.
func (p *Pipeline) transcode(ctx context.Context, class model.MediaType, inPath, outPath string) error {
	tctx, cancel := context.WithTimeout(ctx, p.cfg.VideoTimeout)
	defer cancel()

	if err := p.transcoder.Transcode(tctx, class, inPath, outPath); err != nil {
		if tctx.Err() == context.DeadlineExceeded {
			p.logger.Warn("transcode timed out", zap.String("class", string(class)))
			return errs.ErrTranscodeTimeout
		}
		p.logger.Warn("transcode failed", zap.String("class", string(class)), zap.Error(err))
		return errs.ErrTranscodeFailed
	}
	return nil
}

// persist uploads the normalized output with bounded retries.
func (p *Pipeline) persist(ctx context.Context, path string, data []byte, contentType string) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := p.store.Put(ctx, path, data, contentType); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		p.logger.Error("durable upload failed", zap.String("path", path), zap.Error(err))
		return errs.ErrStorageFailed
	}
	return nil
}

// PublicURL returns the externally reachable URL for a storage path.
func (p *Pipeline) PublicURL(storagePath string) string {
	return strings.TrimSuffix(p.cfg.BaseURL, "/") + "/" + storagePath
}

// inputExt picks a staging extension from the uploaded filename, falling
// back to the class default. Transcoders sniff the real container anyway.
func inputExt(filename string, class model.MediaType) string {
	if ext := strings.TrimPrefix(filepath.Ext(filename), "."); ext != "" && len(ext) <= 5 {
		return ext
	}
	if class == model.MediaVideo {
		return "mp4"
	}
	return "jpg"
}

// IsIngestError reports whether err belongs to the pipeline's caller-facing
// failure taxonomy rather than an internal fault.
func IsIngestError(err error) bool {
	return errors.Is(err, errs.ErrInvalidType) ||
		errors.Is(err, errs.ErrTooLarge) ||
		errors.Is(err, errs.ErrTranscodeFailed) ||
		errors.Is(err, errs.ErrTranscodeTimeout) ||
		errors.Is(err, errs.ErrStorageFailed)
}
