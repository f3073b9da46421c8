// Package downloader turns direct links and Telegram files into local media files.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/set-night/vcplayer/internal/domain"
	"github.com/set-night/vcplayer/internal/service"
)

var _ service.Downloader = (*Downloader)(nil)

// TelegramPrefix marks a ref that is a Telegram file id.
const TelegramPrefix = "tg:"

const maxPageSize = 2 << 20

// ErrNoResolver is returned when Telegram refs are used without a resolver.
var ErrNoResolver = errors.New("no telegram file resolver")

// FileResolver turns a Telegram file id into a download URL.
type FileResolver interface {
	FileURL(ctx context.Context, fileID string) (string, error)
}

type Downloader struct {
	dir        string
	httpClient *http.Client
	files      FileResolver
	slots      chan struct{}
}

func New(dir string, files FileResolver, maxConcurrent int) (*Downloader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create downloads dir: %w", err)
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Downloader{
		dir:        dir,
		httpClient: &http.Client{Timeout: 10 * time.Minute},
		files:      files,
		slots:      make(chan struct{}, maxConcurrent),
	}, nil
}

// IsValid accepts http(s) links and Telegram file refs.
func (d *Downloader) IsValid(ref string) bool {
	if id, ok := strings.CutPrefix(ref, TelegramPrefix); ok {
		return id != ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// GetTrack describes ref without downloading the media itself.
func (d *Downloader) GetTrack(ctx context.Context, ref string) (*domain.Track, error) {
	if !d.IsValid(ref) {
		return nil, domain.ErrInvalidSource
	}
	if strings.HasPrefix(ref, TelegramPrefix) {
		return &domain.Track{
			ID:       uuid.NewString(),
			URL:      ref,
			Title:    "Telegram file",
			Platform: domain.PlatformTelegram,
		}, nil
	}

	contentType, err := d.head(ctx, ref)
	if err != nil {
		slog.Debug("head media link", "url", ref, "error", err)
	}
	if isMedia(contentType) {
		return &domain.Track{
			ID:       uuid.NewString(),
			URL:      ref,
			Title:    titleFromURL(ref),
			IsVideo:  strings.HasPrefix(contentType, "video/"),
			Platform: domain.PlatformDirect,
		}, nil
	}
	return d.trackFromPage(ctx, ref)
}

func (d *Downloader) head(ctx context.Context, ref string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, ref, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("head %s: status %d", ref, resp.StatusCode)
	}
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	return mediaType, nil
}

// trackFromPage reads Open Graph tags from an HTML page that embeds media.
func (d *Downloader) trackFromPage(ctx context.Context, ref string) (*domain.Track, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch page: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	meta := func(property string) string {
		v, _ := doc.Find(fmt.Sprintf(`meta[property="%s"]`, property)).First().Attr("content")
		return strings.TrimSpace(v)
	}

	track := &domain.Track{
		ID:        uuid.NewString(),
		Title:     meta("og:title"),
		Thumbnail: meta("og:image"),
		Platform:  domain.PlatformDirect,
	}
	if media := meta("og:audio"); media != "" {
		track.URL = media
	} else if media := meta("og:video"); media != "" {
		track.URL = media
		track.IsVideo = true
	} else {
		return nil, domain.ErrInvalidSource
	}
	track.URL = resolveRef(ref, track.URL)

	for _, key := range []string{"music:duration", "video:duration", "og:audio:duration"} {
		if n, err := strconv.Atoi(meta(key)); err == nil && n > 0 {
			track.Duration = n
			break
		}
	}
	if track.Title == "" {
		track.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if track.Title == "" {
		track.Title = titleFromURL(track.URL)
	}
	return track, nil
}

// DownloadTrack saves the track's media under the downloads dir and returns the path.
func (d *Downloader) DownloadTrack(ctx context.Context, track *domain.Track, isVideo bool) (string, error) {
	select {
	case d.slots <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-d.slots }()

	src := track.URL
	if fileID, ok := strings.CutPrefix(src, TelegramPrefix); ok {
		if d.files == nil {
			return "", ErrNoResolver
		}
		resolved, err := d.files.FileURL(ctx, fileID)
		if err != nil {
			return "", fmt.Errorf("resolve telegram file: %w", err)
		}
		src = resolved
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("download: status %d", resp.StatusCode)
	}

	name := track.ID
	if name == "" {
		name = uuid.NewString()
	}
	dest := filepath.Join(d.dir, name+extension(src, resp.Header.Get("Content-Type"), isVideo))

	tmp, err := os.CreateTemp(d.dir, name+"-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write media: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close media: %w", err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("move media: %w", err)
	}

	slog.Info("track downloaded", "track_id", track.ID, "path", dest)
	return dest, nil
}

func isMedia(contentType string) bool {
	return strings.HasPrefix(contentType, "audio/") || strings.HasPrefix(contentType, "video/")
}

func resolveRef(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

func titleFromURL(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." || base == "" {
		return u.Host
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		base = unescaped
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

func extension(src, contentType string, isVideo bool) string {
	if u, err := url.Parse(src); err == nil {
		if ext := path.Ext(u.Path); ext != "" && len(ext) <= 5 {
			return ext
		}
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		if exts, err := mime.ExtensionsByType(mediaType); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	if isVideo {
		return ".mp4"
	}
	return ".mp3"
}
