package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"souviens_toi/internal/auth"
	"souviens_toi/internal/bucketurl"
	"souviens_toi/internal/config"
	"souviens_toi/internal/domain"
	"souviens_toi/internal/download"
	"souviens_toi/internal/notify"
)

type UploadInput struct {
	Title       string
	FileName    string
	ContentType string
	Size        int64
	EventID     *string
	Body        io.Reader
}

type MediaService struct {
	media    MediaStore
	objects  ObjectStore
	fetcher  Fetcher
	resolver *bucketurl.Resolver
	tx       TransactionManager
	notifier notify.Notifier
	logger   *slog.Logger
	config   config.StorageConfig
	now      func() time.Time
}

func NewMediaService(
	media MediaStore,
	objects ObjectStore,
	fetcher Fetcher,
	resolver *bucketurl.Resolver,
	txManager TransactionManager,
	notifier notify.Notifier,
	logger *slog.Logger,
	cfg config.StorageConfig,
) *MediaService {
	return &MediaService{
		media:    media,
		objects:  objects,
		fetcher:  fetcher,
		resolver: resolver,
		tx:       txManager,
		notifier: notifier,
		logger:   logger.With("component", "media"),
		config:   cfg,
		now:      time.Now,
	}
}

// List returns the current user's media, newest first, with canonical URLs.
func (s *MediaService) List(ctx context.Context, term string) ([]domain.Media, error) {
	var items []domain.Media
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		items, err = s.media.ListNewestFirst(txCtx)
		return err
	})
	if err != nil {
		s.fail(ctx, "Failed to load media", err)
		return []domain.Media{}, fmt.Errorf("list media: %w", err)
	}

	for i := range items {
		items[i].URL = s.resolver.ResolveCanonicalURL(items[i].URL)
	}
	return nonNil(domain.FilterMedia(items, term)), nil
}

func (s *MediaService) Upload(ctx context.Context, in UploadInput) (*domain.Media, error) {
	m, err := s.upload(ctx, in)
	if err != nil {
		s.fail(ctx, "Failed to upload "+displayName(in), err)
		return nil, err
	}
	s.notifier.Notify(ctx, notify.Success, "Media uploaded")
	return m, nil
}

// UploadBatch uploads inputs concurrently. Only the first failure is
// reported; files uploaded before it are kept.
func (s *MediaService) UploadBatch(ctx context.Context, inputs []UploadInput) ([]domain.Media, error) {
	results := make([]domain.Media, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, s.config.UploadConcurrency))
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			m, err := s.upload(gctx, in)
			if err != nil {
				return fmt.Errorf("%s: %w", displayName(in), err)
			}
			results[i] = *m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		s.fail(ctx, "Failed to upload media", err)
		return nil, err
	}

	s.notifier.Notify(ctx, notify.Success, "Media uploaded")
	return results, nil
}

func (s *MediaService) upload(ctx context.Context, in UploadInput) (*domain.Media, error) {
	userID := auth.CurrentUserID(ctx)
	if userID == "" {
		return nil, domain.ErrUnauthenticated
	}

	kind, err := domain.MediaKindFor(in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, in.ContentType)
	}
	if s.config.MaxFileSize > 0 && in.Size > s.config.MaxFileSize {
		return nil, domain.ErrFileTooLarge
	}

	var eventID *string
	if in.EventID != nil && !domain.IsPlaceholderID(*in.EventID) {
		eventID = in.EventID
	}

	path := ObjectPath(eventID, in.FileName, s.now())
	if err := s.objects.Upload(ctx, path, in.ContentType, in.Body); err != nil {
		return nil, fmt.Errorf("upload object: %w", err)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = in.FileName
	}

	m := &domain.Media{
		Title:    title,
		URL:      s.objects.PublicURL(path),
		Kind:     kind,
		FileSize: in.Size,
		EventID:  eventID,
		UserID:   userID,
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.media.Create(txCtx, m)
	})
	if err != nil {
		s.removeOrphan(ctx, path)
		return nil, fmt.Errorf("create media: %w", err)
	}

	s.logger.Info("media uploaded", "media_id", m.ID, "path", path, "size", in.Size)
	return m, nil
}

// removeOrphan deletes an object whose row could not be written. It outlives
// ctx: the insert may have failed precisely because ctx was cancelled.
func (s *MediaService) removeOrphan(ctx context.Context, path string) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), orphanCleanupTimeout)
	defer cancel()

	if err := s.objects.Remove(cleanupCtx, []string{path}); err != nil {
		s.logger.Error("failed to remove orphaned object", "path", path, "error", err)
	}
}

// Delete removes the stored object and the media row. When the object path
// cannot be recovered from the stored URL only the row is removed.
func (s *MediaService) Delete(ctx context.Context, id string) error {
	if domain.IsPlaceholderID(id) {
		s.logger.Warn("delete skipped: no media selected", "media_id", id)
		return nil
	}

	m, err := s.get(ctx, id)
	if err != nil {
		s.fail(ctx, "Failed to delete media", err, "media_id", id)
		return err
	}

	path := s.RelativePath(m.URL)
	if path != "" {
		if err := s.objects.Remove(ctx, []string{path}); err != nil {
			s.fail(ctx, "Failed to delete media", err, "media_id", id, "path", path)
			return fmt.Errorf("remove object: %w", err)
		}
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.media.Delete(txCtx, id)
	})
	if err != nil {
		s.fail(ctx, "Failed to delete media", err, "media_id", id)
		return fmt.Errorf("delete media: %w", err)
	}

	if path == "" {
		s.logger.Warn("media deleted without its file: path not resolvable", "media_id", id, "url", m.URL)
		s.notifier.Notify(ctx, notify.Warning, "Media deleted, but its file could not be located in storage")
		return nil
	}
	s.notifier.Notify(ctx, notify.Success, "Media deleted")
	return nil
}

// SignedURL returns a time-limited URL for the media file, or the canonical
// stored URL when no object path can be recovered from it.
func (s *MediaService) SignedURL(ctx context.Context, id string) (string, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		s.fail(ctx, "Failed to create a link to this file", err, "media_id", id)
		return "", err
	}

	u, err := s.signedURL(ctx, m)
	if err != nil {
		s.fail(ctx, "Failed to create a link to this file", err, "media_id", id)
		return "", err
	}
	return u, nil
}

// Download fetches the media file. The caller must close the returned body.
func (s *MediaService) Download(ctx context.Context, id string) (*domain.Media, *download.Object, error) {
	m, err := s.get(ctx, id)
	if err != nil {
		s.fail(ctx, "Failed to download file", err, "media_id", id)
		return nil, nil, err
	}

	u, err := s.signedURL(ctx, m)
	if err != nil {
		s.fail(ctx, "Failed to download file", err, "media_id", id)
		return nil, nil, err
	}

	obj, err := s.fetcher.Fetch(ctx, u)
	if err != nil {
		s.fail(ctx, "Failed to download file", err, "media_id", id)
		return nil, nil, fmt.Errorf("fetch media: %w", err)
	}
	return m, obj, nil
}

// RelativePath canonicalizes storedURL and extracts its bucket-relative path.
func (s *MediaService) RelativePath(storedURL string) string {
	return s.resolver.ExtractRelativePath(s.resolver.ResolveCanonicalURL(storedURL))
}

func (s *MediaService) signedURL(ctx context.Context, m *domain.Media) (string, error) {
	canonical := s.resolver.ResolveCanonicalURL(m.URL)
	path := s.resolver.ExtractRelativePath(canonical)
	if path == "" {
		s.logger.Warn("path not resolvable, using stored url", "media_id", m.ID, "url", m.URL)
		return canonical, nil
	}

	u, err := s.objects.SignedURL(ctx, path, s.config.SignedURLTTL)
	if err != nil {
		return "", fmt.Errorf("sign url: %w", err)
	}
	return u, nil
}

func (s *MediaService) get(ctx context.Context, id string) (*domain.Media, error) {
	if domain.IsPlaceholderID(id) {
		return nil, domain.ErrInvalidReference
	}

	var m *domain.Media
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		m, err = s.media.Get(txCtx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}
	return m, nil
}

func (s *MediaService) fail(ctx context.Context, message string, err error, attrs ...any) {
	s.logger.Error(message, append(attrs, "error", err)...)
	s.notifier.Notify(ctx, notify.Error, message)
}

const orphanCleanupTimeout = 30 * time.Second

var unsafePathChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectPath builds "<eventID|general>/<unix millis>-<file name>".
func ObjectPath(eventID *string, fileName string, now time.Time) string {
	folder := "general"
	if eventID != nil && *eventID != "" {
		folder = *eventID
	}

	name := unsafePathChars.ReplaceAllString(strings.TrimSpace(download.SafeFileName(fileName)), "-")
	name = strings.Trim(name, "-")
	if name == "" {
		name = "file"
	}
	return fmt.Sprintf("%s/%d-%s", folder, now.UnixMilli(), name)
}

func displayName(in UploadInput) string {
	if in.FileName != "" {
		return in.FileName
	}
	return "file"
}
