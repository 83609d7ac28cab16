// Package drive streams large files into cloud storage with resumable
// uploads, find-or-create destination folders, throttled progress snapshots,
// and a public share link on completion.
package drive

import (
	"context"
	"fmt"
	"io"
	"time"

	"log/slog"

	driveapi "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// progressInterval is the minimum spacing between progress snapshots. The
// transport reports every chunk; observers only need a human-perceptible rate.
const progressInterval = 500 * time.Millisecond

const folderMimeType = "application/vnd.google-apps.folder"

type Uploader struct {
	auth     *Auth
	registry *Registry
	logger   *slog.Logger
}

func NewUploader(auth *Auth, registry *Registry, logger *slog.Logger) *Uploader {
	return &Uploader{auth: auth, registry: registry, logger: logger}
}

// Registry exposes the job registry for handlers that poll progress.
func (u *Uploader) Registry() *Registry {
	return u.registry
}

// Auth exposes the credential resolver so handlers can check for a token
// before accepting a file.
func (u *Uploader) Auth() *Auth {
	return u.auth
}

// Upload runs the whole orchestration for one job: resolve folder, start a
// resumable session, stream with progress, set the share permission. Any
// step's failure leaves the job in a terminal error state; there is no
// automatic retry.
func (u *Uploader) Upload(ctx context.Context, job *Job, content io.Reader) error {
	snap := job.Snapshot()

	ts, err := u.auth.TokenSource(ctx)
	if err != nil {
		return u.fail(job, err)
	}

	svc, err := driveapi.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return u.fail(job, fmt.Errorf("failed to create drive service: %w", err))
	}

	folderID, err := u.ensureFolder(ctx, svc, snap.Folder)
	if err != nil {
		return u.fail(job, err)
	}

	job.update(func(s *Snapshot) { s.Status = StatusUploading })

	reader := newProgressReader(content, snap.Total, job)
	file := &driveapi.File{
		Name:    snap.Filename,
		Parents: []string{folderID},
	}
	created, err := svc.Files.Create(file).
		Media(reader, googleapi.ChunkSize(googleapi.DefaultUploadChunkSize)).
		Context(ctx).
		Fields("id, webViewLink").
		Do()
	if err != nil {
		return u.fail(job, fmt.Errorf("failed to upload file: %w", err))
	}

	// Public read so the share link works without a Google account.
	_, err = svc.Permissions.Create(created.Id, &driveapi.Permission{
		Type: "anyone",
		Role: "reader",
	}).Context(ctx).Do()
	if err != nil {
		return u.fail(job, fmt.Errorf("failed to set file permission: %w", err))
	}

	link := created.WebViewLink
	if link == "" {
		link = fmt.Sprintf("https://drive.google.com/file/d/%s/view", created.Id)
	}

	job.update(func(s *Snapshot) {
		s.Status = StatusComplete
		s.Sent = s.Total
		s.Percent = 100
		s.ShareLink = link
	})
	u.logger.Info("upload complete",
		slog.String("job", snap.JobID),
		slog.String("file", snap.Filename),
		slog.String("link", link))
	return nil
}

func (u *Uploader) fail(job *Job, err error) error {
	job.update(func(s *Snapshot) {
		s.Status = StatusError
		s.Error = err.Error()
	})
	u.logger.Error("upload failed",
		slog.String("job", job.Snapshot().JobID),
		slog.Any("error", err))
	return err
}

// ensureFolder resolves the destination folder by exact name, creating it
// when absent.
func (u *Uploader) ensureFolder(ctx context.Context, svc *driveapi.Service, name string) (string, error) {
	query := fmt.Sprintf("mimeType='%s' and name='%s' and trashed=false", folderMimeType, escapeQuery(name))
	list, err := svc.Files.List().Q(query).Fields("files(id, name)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to look up folder: %w", err)
	}
	if len(list.Files) > 0 {
		return list.Files[0].Id, nil
	}

	folder, err := svc.Files.Create(&driveapi.File{
		Name:     name,
		MimeType: folderMimeType,
	}).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder: %w", err)
	}
	return folder.Id, nil
}

func escapeQuery(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\'' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

// progressReader counts bytes as the transport drains them and publishes
// coalesced snapshots: at most one per progressInterval, with the rate
// derived from delta bytes over delta time.
type progressReader struct {
	inner io.Reader
	total int64
	job   *Job

	sent      int64
	lastEmit  time.Time
	lastBytes int64
}

func newProgressReader(inner io.Reader, total int64, job *Job) *progressReader {
	return &progressReader{inner: inner, total: total, job: job, lastEmit: time.Now()}
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.inner.Read(buf)
	if n > 0 {
		p.sent += int64(n)
		p.maybeEmit()
	}
	return n, err
}

func (p *progressReader) maybeEmit() {
	now := time.Now()
	elapsed := now.Sub(p.lastEmit)
	if elapsed < progressInterval {
		return
	}

	rate := float64(p.sent-p.lastBytes) / elapsed.Seconds()
	sent := p.sent
	percent := 0.0
	if p.total > 0 {
		percent = float64(sent) / float64(p.total) * 100
	}

	p.job.update(func(s *Snapshot) {
		s.Sent = sent
		if percent > s.Percent { // progress never moves backwards
			s.Percent = percent
		}
		s.Rate = rate
	})

	p.lastEmit = now
	p.lastBytes = sent
}
