package services

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gfsdash/internal/client/client"
	"github.com/dmitrijs2005/gfsdash/internal/client/models"
	"github.com/dmitrijs2005/gfsdash/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pacingRecorder struct {
	mu     sync.Mutex
	sleeps []time.Duration
	err    error
}

func (p *pacingRecorder) sleep(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sleeps = append(p.sleeps, d)
	return p.err
}

type deferred struct {
	mu     sync.Mutex
	delays []time.Duration
	fns    []func()
}

func (d *deferred) after(delay time.Duration, f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delays = append(d.delays, delay)
	d.fns = append(d.fns, f)
}

func (d *deferred) fire() {
	d.mu.Lock()
	fns := d.fns
	d.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

func newUploader(gw *fakeGateway) (*UploadService, *recordingReporter, *countingRefresher, *pacingRecorder, *deferred) {
	rep := &recordingReporter{}
	ref := &countingRefresher{}
	pace := &pacingRecorder{}
	def := &deferred{}

	s := NewUploadService(gw, ref, rep, time.Second, 2*time.Second, logging.Discard())
	s.sleep = pace.sleep
	s.after = def.after
	return s, rep, ref, pace, def
}

func mustText(t *testing.T, name, text string) UploadJob {
	t.Helper()
	j, err := TextJob(name, text)
	require.NoError(t, err)
	return j
}

func TestRun_ThreeJobsStrictlySequential(t *testing.T) {
	gw := &fakeGateway{}
	s, rep, _, pace, _ := newUploader(gw)

	jobs := []UploadJob{mustText(t, "a.txt", "1"), mustText(t, "b.txt", "2"), mustText(t, "c.txt", "3")}
	out := s.Run(context.Background(), jobs, false)

	require.Len(t, out, 3)
	reqs := gw.requests()
	require.Len(t, reqs, 3)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, []string{reqs[0].Filename, reqs[1].Filename, reqs[2].Filename})
	assert.EqualValues(t, 1, gw.maxInFlight.Load(), "no two uploads in flight")

	assert.Equal(t, []time.Duration{time.Second, time.Second}, pace.sleeps, "pacing only between jobs")
	assert.Equal(t, []string{
		"started:a.txt", "succeeded:a.txt",
		"started:b.txt", "succeeded:b.txt",
		"started:c.txt", "succeeded:c.txt",
	}, rep.kinds())
}

func TestRun_RealPacingSeparatesRequests(t *testing.T) {
	var (
		mu    sync.Mutex
		times []time.Time
	)
	gw := &fakeGateway{respond: func(req models.UploadRequest) (models.UploadResult, error) {
		mu.Lock()
		times = append(times, time.Now())
		mu.Unlock()
		return models.UploadResult{Filename: req.Filename}, nil
	}}
	s := NewUploadService(gw, nil, &recordingReporter{}, 30*time.Millisecond, time.Hour, logging.Discard())

	s.Run(context.Background(), []UploadJob{mustText(t, "a", "1"), mustText(t, "b", "2")}, false)

	require.Len(t, times, 2)
	assert.GreaterOrEqual(t, times[1].Sub(times[0]), 30*time.Millisecond)
}

func TestRun_FailureDoesNotAbortSiblings(t *testing.T) {
	gw := &fakeGateway{respond: func(req models.UploadRequest) (models.UploadResult, error) {
		if req.Filename == "b.txt" {
			return models.UploadResult{}, &client.RejectedError{Status: 500, Reason: "No active servers"}
		}
		return models.UploadResult{Filename: req.Filename}, nil
	}}
	s, rep, _, _, _ := newUploader(gw)

	out := s.Run(context.Background(), []UploadJob{mustText(t, "a.txt", "1"), mustText(t, "b.txt", "2"), mustText(t, "c.txt", "3")}, false)

	require.Len(t, gw.requests(), 3)
	assert.NoError(t, out[0].Err)
	assert.ErrorIs(t, out[1].Err, client.ErrRejected)
	assert.NoError(t, out[2].Err)

	var failed reportEvent
	for _, e := range rep.events {
		if e.kind == "failed" {
			failed = e
		}
	}
	assert.Equal(t, "No active servers", failed.msg)
	assert.Equal(t, 2, failed.index)
	assert.Equal(t, 3, failed.total)
}

func TestRun_TransportFailureMessage(t *testing.T) {
	gw := &fakeGateway{respond: func(models.UploadRequest) (models.UploadResult, error) {
		return models.UploadResult{}, client.ErrUnavailable
	}}
	s, rep, _, _, _ := newUploader(gw)

	s.Run(context.Background(), []UploadJob{mustText(t, "a.txt", "x")}, false)
	require.Len(t, rep.events, 2)
	assert.Equal(t, GatewayUnreachableMessage, rep.events[1].msg)
}

func TestRun_SingleDeferredRefreshPerBatch(t *testing.T) {
	gw := &fakeGateway{}
	s, _, ref, _, def := newUploader(gw)

	s.Run(context.Background(), []UploadJob{mustText(t, "a", "1"), mustText(t, "b", "2"), mustText(t, "c", "3")}, false)

	require.Equal(t, []time.Duration{2 * time.Second}, def.delays)
	assert.Zero(t, ref.n.Load(), "refresh is deferred")
	def.fire()
	assert.EqualValues(t, 1, ref.n.Load())
}

func TestRun_EmptyBatchDoesNothing(t *testing.T) {
	gw := &fakeGateway{}
	s, rep, _, _, def := newUploader(gw)

	assert.Empty(t, s.Run(context.Background(), nil, true))
	assert.Empty(t, gw.requests())
	assert.Empty(t, rep.events)
	assert.Empty(t, def.delays)
}

func TestRun_EncodingPerPayloadKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "photo.bin")
	raw := []byte{0x00, 0xff, 0x10, 0x80}
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	gw := &fakeGateway{}
	s, _, _, _, _ := newUploader(gw)

	jobs := []UploadJob{
		mustText(t, "note.txt", "hello"),
		FileJob(path),
		DataURLJob("img.png", "data:image/png;base64,aGVsbG8="),
		ReaderJob("r.bin", func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader("hi")), nil }),
	}
	s.Run(context.Background(), jobs, true)

	reqs := gw.requests()
	require.Len(t, reqs, 4)

	require.NotNil(t, reqs[0].Content)
	assert.Equal(t, "hello", *reqs[0].Content)
	assert.Nil(t, reqs[0].ContentBase64)

	assert.Equal(t, "photo.bin", reqs[1].Filename)
	require.NotNil(t, reqs[1].ContentBase64)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), *reqs[1].ContentBase64)
	assert.Nil(t, reqs[1].Content)

	require.NotNil(t, reqs[2].ContentBase64)
	assert.Equal(t, "aGVsbG8=", *reqs[2].ContentBase64)

	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hi")), *reqs[3].ContentBase64)

	for _, r := range reqs {
		assert.True(t, r.Encrypt, r.Filename)
	}
}

func TestRun_FileReadLazilyAtItsTurn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "late.txt")

	gw := &fakeGateway{respond: func(req models.UploadRequest) (models.UploadResult, error) {
		if req.Filename == "first.txt" {
			// the second job's file only appears once the first is done
			require.NoError(t, os.WriteFile(path, []byte("late"), 0o600))
		}
		return models.UploadResult{Filename: req.Filename}, nil
	}}
	s, _, _, _, _ := newUploader(gw)

	out := s.Run(context.Background(), []UploadJob{mustText(t, "first.txt", "x"), FileJob(path)}, false)
	require.NoError(t, out[1].Err)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("late")), *gw.requests()[1].ContentBase64)
}

func TestRun_UnreadableFileFailsOnlyThatJob(t *testing.T) {
	gw := &fakeGateway{}
	s, rep, _, _, _ := newUploader(gw)

	out := s.Run(context.Background(), []UploadJob{FileJob(filepath.Join(t.TempDir(), "missing.bin")), mustText(t, "ok.txt", "x")}, false)

	require.ErrorIs(t, out[0].Err, ErrUnreadable)
	require.NoError(t, out[1].Err)
	assert.Len(t, gw.requests(), 1)
	assert.Equal(t, "Could not read missing.bin", rep.events[1].msg)
}

func TestRun_EncryptedMarkerComesFromGateway(t *testing.T) {
	gw := &fakeGateway{respond: func(req models.UploadRequest) (models.UploadResult, error) {
		return models.UploadResult{Filename: req.Filename, Encrypted: req.Encrypt, Size: 5}, nil
	}}
	s, rep, _, _, _ := newUploader(gw)

	s.Run(context.Background(), []UploadJob{mustText(t, "a.txt", "hello")}, false)
	s.Run(context.Background(), []UploadJob{mustText(t, "b.txt", "hello")}, true)

	var succeeded []models.UploadResult
	for _, e := range rep.events {
		if e.kind == "succeeded" {
			succeeded = append(succeeded, e.result)
		}
	}
	require.Len(t, succeeded, 2)
	assert.False(t, succeeded[0].Encrypted)
	assert.True(t, succeeded[1].Encrypted)
	assert.EqualValues(t, 5, succeeded[1].Size)
}

func TestRun_CancelDuringPacingCancelsRest(t *testing.T) {
	gw := &fakeGateway{}
	s, rep, _, pace, def := newUploader(gw)
	pace.err = context.Canceled

	out := s.Run(context.Background(), []UploadJob{mustText(t, "a", "1"), mustText(t, "b", "2"), mustText(t, "c", "3")}, false)

	require.Len(t, out, 3)
	assert.Len(t, gw.requests(), 1)
	assert.NoError(t, out[0].Err)
	assert.ErrorIs(t, out[1].Err, ErrCanceled)
	assert.ErrorIs(t, out[2].Err, ErrCanceled)
	assert.True(t, errors.Is(out[2].Err, context.Canceled))
	assert.Equal(t, 3, rep.events[len(rep.events)-1].index)
	assert.Len(t, def.delays, 1, "the submitted job still earns a refresh")
}

func TestTextJob_Validation(t *testing.T) {
	_, err := TextJob("   ", "content")
	require.ErrorIs(t, err, ErrEmptyFilename)
	assert.Equal(t, "Please enter a filename", client.Message(err, ""))

	_, err = TextJob("a.txt", "")
	require.ErrorIs(t, err, ErrEmptyContent)
	assert.Equal(t, "Please enter file content", client.Message(err, ""))

	j, err := TextJob("  a.txt ", "x")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", j.Filename)
}

func TestStripDataURL(t *testing.T) {
	cases := map[string]string{
		"data:text/plain;base64,aGk=":           "aGk=",
		"data:application/octet-stream;base64,": "",
		"aGk=":                                  "aGk=",
		"data:broken":                           "data:broken",
	}
	for in, want := range cases {
		assert.Equal(t, want, StripDataURL(in), in)
	}
}
