package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/tinoosan/stealth/internal/data"
	"github.com/tinoosan/stealth/internal/downloadcfg"
	"github.com/tinoosan/stealth/internal/downloader"
	"github.com/tinoosan/stealth/internal/metrics"
	"github.com/tinoosan/stealth/internal/reqid"
)

// ChunkSize is the unit in which retrieved media is read and written.
const ChunkSize = 1 << 20

// Retrieval fetches remote media into a per-request scratch directory.
// A successful Open hands the caller a Job that owns that directory; the
// caller must Close it.
type Retrieval interface {
	Open(ctx context.Context, sourceURL string) (*Job, error)
}

// RetrievalConfig carries the pipeline's tunables.
type RetrievalConfig struct {
	ScratchRoot string
	Hosts       *downloadcfg.HostPattern
	Policy      downloadcfg.FormatPolicy
	// FetchTimeout bounds the engine run. Zero means no bound.
	FetchTimeout time.Duration
}

type fsOps interface {
	Remove(string) error
	RemoveAll(string) error
}

type osFS struct{}

func (osFS) Remove(p string) error    { return os.Remove(p) }
func (osFS) RemoveAll(p string) error { return os.RemoveAll(p) }

type retrieval struct {
	engine downloader.Engine
	cfg    RetrievalConfig
	fs     fsOps
	log    *slog.Logger
}

func NewRetrieval(engine downloader.Engine, cfg RetrievalConfig, log *slog.Logger) Retrieval {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Hosts == nil {
		cfg.Hosts = downloadcfg.NewHostPattern(nil)
	}
	if cfg.Policy.Container == "" {
		cfg.Policy = downloadcfg.NewFormatPolicy("", "")
	}
	if cfg.ScratchRoot == "" {
		cfg.ScratchRoot = os.TempDir()
	}
	return &retrieval{engine: engine, cfg: cfg, fs: osFS{}, log: log}
}

func (r *retrieval) Open(ctx context.Context, sourceURL string) (*Job, error) {
	log := reqid.Logger(ctx, r.log)

	if !r.cfg.Hosts.Match(sourceURL) {
		metrics.RetrievalJobs.WithLabelValues("rejected").Inc()
		return nil, data.ErrRejected
	}

	if err := r.engine.Available(ctx); err != nil {
		metrics.RetrievalJobs.WithLabelValues("engine_unavailable").Inc()
		log.Error("retrieval engine unavailable", "err", err)
		if errors.Is(err, data.ErrEngineUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", data.ErrEngineUnavailable, err)
	}

	dir, err := os.MkdirTemp(r.cfg.ScratchRoot, "yt_")
	if err != nil {
		metrics.RetrievalJobs.WithLabelValues("scratch_unavailable").Inc()
		log.Error("scratch create failed", "root", r.cfg.ScratchRoot, "err", err)
		return nil, fmt.Errorf("%w: %v", data.ErrScratchUnavailable, err)
	}
	metrics.ActiveRetrievals.Inc()

	job := &Job{
		RetrievalJob: data.RetrievalJob{SourceURL: sourceURL, ScratchDir: dir},
		fs:           r.fs,
		log:          log,
	}

	fetchCtx := ctx
	if r.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, r.cfg.FetchTimeout)
		defer cancel()
	}

	path, err := r.engine.Fetch(fetchCtx, downloader.Request{URL: sourceURL, Dir: dir, Policy: r.cfg.Policy})
	if err != nil {
		job.Close()
		if ctx.Err() == nil && errors.Is(fetchCtx.Err(), context.DeadlineExceeded) {
			err = &data.FetchError{Detail: fmt.Sprintf("timed out after %s", r.cfg.FetchTimeout)}
		}
		metrics.RetrievalJobs.WithLabelValues(failureOutcome(err)).Inc()
		log.Warn("fetch failed", "url", sourceURL, "err", err)
		return nil, err
	}

	path, err = resolveResult(path, r.cfg.Policy.Ext())
	if err == nil {
		job.ResultPath = path
		err = job.open()
	}
	if err != nil {
		job.Close()
		metrics.RetrievalJobs.WithLabelValues("inconsistent").Inc()
		log.Error("engine reported success without output", "url", sourceURL, "err", err)
		return nil, err
	}
	return job, nil
}

func failureOutcome(err error) string {
	var fe *data.FetchError
	switch {
	case errors.As(err, &fe) && fe.Inconsistent:
		return "inconsistent"
	case errors.As(err, &fe):
		return "fetch_failed"
	case errors.Is(err, data.ErrEngineUnavailable):
		return "engine_unavailable"
	default:
		return "aborted"
	}
}

// resolveResult prefers a merged sibling carrying the container extension
// and confirms the file exists.
func resolveResult(path, ext string) (string, error) {
	if path == "" {
		return "", &data.FetchError{Detail: "engine reported no output", Inconsistent: true}
	}
	if cur := filepath.Ext(path); !strings.EqualFold(cur, ext) {
		sibling := strings.TrimSuffix(path, cur) + ext
		if fi, err := os.Stat(sibling); err == nil && fi.Mode().IsRegular() {
			path = sibling
		}
	}
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return "", &data.FetchError{Detail: "output file not found", Inconsistent: true}
	}
	return path, nil
}

// Job is one retrieval that has produced a file. It owns its scratch
// directory until Close.
type Job struct {
	data.RetrievalJob

	file *os.File
	size int64

	fs   fsOps
	log  *slog.Logger
	once sync.Once
}

func (j *Job) open() error {
	f, err := os.Open(j.ResultPath)
	if err != nil {
		return &data.FetchError{Detail: "output file unreadable", Inconsistent: true}
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return &data.FetchError{Detail: "output file unreadable", Inconsistent: true}
	}
	j.file, j.size = f, fi.Size()
	return nil
}

// Filename is the base name presented to the client.
func (j *Job) Filename() string { return filepath.Base(j.ResultPath) }

// Size is the result file size in bytes.
func (j *Job) Size() int64 { return j.size }

// Stream copies the result to w in ChunkSize pieces. After each chunk it
// flushes w when w supports it, and it stops between chunks once ctx is
// done.
func (j *Job) Stream(ctx context.Context, w io.Writer) (int64, error) {
	if j.file == nil {
		return 0, errors.New("job has no open result")
	}
	buf := make([]byte, ChunkSize)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			j.finish("aborted", total, err)
			return total, err
		}
		n, rerr := j.file.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			total += int64(wn)
			metrics.StreamedBytes.Add(float64(wn))
			if werr == nil {
				werr = flush(w)
			}
			if werr != nil {
				j.finish("aborted", total, werr)
				return total, werr
			}
		}
		if errors.Is(rerr, io.EOF) {
			j.finish("streamed", total, nil)
			return total, nil
		}
		if rerr != nil {
			j.finish("aborted", total, rerr)
			return total, rerr
		}
	}
}

func (j *Job) finish(outcome string, n int64, err error) {
	metrics.RetrievalJobs.WithLabelValues(outcome).Inc()
	if err != nil {
		j.log.Info("stream ended early", "file", j.Filename(), "bytes", n, "err", err)
		return
	}
	j.log.Debug("stream complete", "file", j.Filename(), "bytes", n)
}

func flush(w io.Writer) error {
	switch f := w.(type) {
	case interface{ Flush() error }:
		return f.Flush()
	case http.Flusher:
		f.Flush()
	}
	return nil
}

// Close removes the result file and then the scratch directory. Failures
// are logged and counted, never returned. Only the first call has effect.
func (j *Job) Close() {
	j.once.Do(func() {
		if j.file != nil {
			_ = j.file.Close()
		}
		if j.ResultPath != "" {
			if err := j.fs.Remove(j.ResultPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				metrics.CleanupFailures.Inc()
				j.log.Warn("remove result failed", "path", j.ResultPath, "err", err)
			}
		}
		if err := j.fs.RemoveAll(j.ScratchDir); err != nil {
			metrics.CleanupFailures.Inc()
			j.log.Warn("remove scratch dir failed", "dir", j.ScratchDir, "err", err)
		}
		metrics.ActiveRetrievals.Dec()
	})
}
