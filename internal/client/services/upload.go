package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/gfsdash/internal/client/client"
	"github.com/dmitrijs2005/gfsdash/internal/client/metrics"
	"github.com/dmitrijs2005/gfsdash/internal/client/models"
	"github.com/dmitrijs2005/gfsdash/internal/client/view"
	"github.com/dmitrijs2005/gfsdash/internal/logging"
	"github.com/google/uuid"
)

var (
	ErrEmptyFilename = client.NewValidationError("Please enter a filename")
	ErrEmptyContent  = client.NewValidationError("Please enter file content")
	ErrCanceled      = errors.New("canceled")
	ErrUnreadable    = errors.New("file could not be read")
)

// GatewayUnreachableMessage is reported for upload transport failures.
const GatewayUnreachableMessage = "Connection error. Please ensure the client service is running."

// Refresher runs an out-of-band refresh for the current session.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// UploadJob is one file or text payload queued for the gateway. Build it
// with TextJob, FileJob, ReaderJob or DataURLJob.
type UploadJob struct {
	Filename string

	text *string
	b64  *string
	open func() (io.ReadCloser, error)
}

// TextJob is the manual filename + text form. The text is sent verbatim.
func TextJob(filename, text string) (UploadJob, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return UploadJob{}, ErrEmptyFilename
	}
	if text == "" {
		return UploadJob{}, ErrEmptyContent
	}
	return UploadJob{Filename: filename, text: &text}, nil
}

// Text returns the payload of a text job.
func (j UploadJob) Text() (string, bool) {
	if j.text == nil {
		return "", false
	}
	return *j.text, true
}

// FileJob uploads a local file under its base name. The file is read only
// when the job's turn comes.
func FileJob(path string) UploadJob {
	return ReaderJob(filepath.Base(path), func() (io.ReadCloser, error) {
		return os.Open(path)
	})
}

// ReaderJob uploads whatever open yields, base64-encoded.
func ReaderJob(filename string, open func() (io.ReadCloser, error)) UploadJob {
	return UploadJob{Filename: filename, open: open}
}

// DataURLJob takes a payload that is already base64, with or without a
// "data:<mime>;base64," prefix.
func DataURLJob(filename, dataURL string) UploadJob {
	payload := StripDataURL(dataURL)
	return UploadJob{Filename: filename, b64: &payload}
}

// StripDataURL drops everything up to and including the first comma of a
// data URL. Other input is returned unchanged.
func StripDataURL(s string) string {
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if _, payload, ok := strings.Cut(s, ","); ok {
		return payload
	}
	return s
}

func (j UploadJob) request(encrypt bool) (models.UploadRequest, error) {
	req := models.UploadRequest{Filename: j.Filename, Encrypt: encrypt}
	if strings.TrimSpace(j.Filename) == "" {
		return req, ErrEmptyFilename
	}

	switch {
	case j.text != nil:
		req.Content = j.text
	case j.b64 != nil:
		req.ContentBase64 = j.b64
	case j.open != nil:
		rc, err := j.open()
		if err != nil {
			return req, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		defer rc.Close()

		raw, err := io.ReadAll(rc)
		if err != nil {
			return req, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		enc := base64.StdEncoding.EncodeToString(raw)
		req.ContentBase64 = &enc
	default:
		return req, ErrEmptyContent
	}
	return req, nil
}

// UploadOutcome is the terminal state of one job.
type UploadOutcome struct {
	Filename string
	Result   models.UploadResult
	Err      error
}

// UploadService submits upload batches to the gateway one job at a time.
type UploadService struct {
	gateway   client.Gateway
	refresher Refresher
	reporter  view.UploadReporter
	log       logging.Logger

	pacing       time.Duration
	refreshDelay time.Duration

	sleep func(ctx context.Context, d time.Duration) error
	after func(d time.Duration, f func())
}

func NewUploadService(gw client.Gateway, refresher Refresher, reporter view.UploadReporter,
	pacing, refreshDelay time.Duration, log logging.Logger) *UploadService {
	return &UploadService{
		gateway:      gw,
		refresher:    refresher,
		reporter:     reporter,
		log:          log.With("component", "upload"),
		pacing:       pacing,
		refreshDelay: refreshDelay,
		sleep:        sleepCtx,
		after:        func(d time.Duration, f func()) { time.AfterFunc(d, f) },
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run submits jobs strictly in order, pausing between jobs (not before the
// first or after the last). A failed job never stops the batch. encrypt
// applies to every job. Once the batch is over a single delayed refresh is
// scheduled. Jobs not started because ctx ended are reported as canceled.
func (s *UploadService) Run(ctx context.Context, jobs []UploadJob, encrypt bool) []UploadOutcome {
	total := len(jobs)
	outcomes := make([]UploadOutcome, 0, total)
	if total == 0 {
		return outcomes
	}

	batch := uuid.NewString()
	log := s.log.With("batch", batch)
	log.Info(ctx, "upload batch started", "jobs", total, "encrypt", encrypt)

	submitted := 0
	for i, job := range jobs {
		if i > 0 {
			if err := s.sleep(ctx, s.pacing); err != nil {
				for k, rest := range jobs[i:] {
					s.reporter.UploadFailed(i+k+1, total, rest.Filename, "Upload canceled")
					metrics.UploadJob(metrics.ResultCanceled, encrypt)
					outcomes = append(outcomes, UploadOutcome{Filename: rest.Filename, Err: fmt.Errorf("%w: %w", ErrCanceled, err)})
				}
				break
			}
		}

		submitted++
		outcomes = append(outcomes, s.runOne(ctx, log, i+1, total, job, encrypt))
	}

	if submitted > 0 && s.refresher != nil {
		refreshCtx := context.WithoutCancel(ctx)
		s.after(s.refreshDelay, func() {
			if err := s.refresher.Refresh(refreshCtx); err != nil {
				log.Debug(refreshCtx, "post-upload refresh skipped", "error", err)
			}
		})
	}

	log.Info(ctx, "upload batch finished", "submitted", submitted)
	return outcomes
}

func (s *UploadService) runOne(ctx context.Context, log logging.Logger, idx, total int, job UploadJob, encrypt bool) UploadOutcome {
	s.reporter.UploadStarted(idx, total, job.Filename)

	req, err := job.request(encrypt)
	if err == nil {
		var res models.UploadResult
		res, err = s.gateway.Upload(ctx, req)
		if err == nil {
			metrics.UploadJob(metrics.ResultOK, encrypt)
			log.Info(ctx, "upload succeeded", "filename", res.Filename, "encrypted", res.Encrypted, "size", res.Size)
			s.reporter.UploadSucceeded(idx, total, res)
			return UploadOutcome{Filename: job.Filename, Result: res}
		}
	}

	msg := client.Message(err, "Upload failed")
	switch {
	case errors.Is(err, client.ErrUnavailable):
		msg = GatewayUnreachableMessage
	case errors.Is(err, ErrUnreadable):
		msg = fmt.Sprintf("Could not read %s", job.Filename)
	}

	metrics.UploadJob(metrics.ResultError, encrypt)
	log.Warn(ctx, "upload failed", "filename", job.Filename, "error", err)
	s.reporter.UploadFailed(idx, total, job.Filename, msg)
	return UploadOutcome{Filename: job.Filename, Err: err}
}
