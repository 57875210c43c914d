package ytdlp

import (
    "bytes"
    "context"
    "errors"
    "fmt"
    "log/slog"
    "os/exec"
    "path/filepath"
    "strings"
    "time"

    "github.com/prometheus/client_golang/prometheus"
    "github.com/tinoosan/stealth/internal/data"
    "github.com/tinoosan/stealth/internal/downloadcfg"
    "github.com/tinoosan/stealth/internal/downloader"
    "github.com/tinoosan/stealth/internal/metrics"
)

const (
    DefaultBinary = "yt-dlp"

    probeTimeout = 15 * time.Second
    // waitDelay bounds how long Wait blocks on pipes held open by children
    // (ffmpeg) after the engine process is killed.
    waitDelay = 5 * time.Second
)

// runner executes the engine binary and returns its captured output.
type runner func(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
    var stdout, stderr bytes.Buffer
    cmd := exec.CommandContext(ctx, name, args...)
    cmd.Stdout = &stdout
    cmd.Stderr = &stderr
    cmd.WaitDelay = waitDelay
    err := cmd.Run()
    return stdout.Bytes(), stderr.Bytes(), err
}

// Adapter implements downloader.Engine by invoking the yt-dlp command line.
type Adapter struct {
    binary string
    run    runner
    probe  *downloader.Probe
    log    *slog.Logger
}

var _ downloader.Engine = (*Adapter)(nil)

// NewAdapter creates an adapter for the given binary name or path.
func NewAdapter(binary string) *Adapter {
    if strings.TrimSpace(binary) == "" {
        binary = DefaultBinary
    }
    a := &Adapter{binary: binary, run: execRunner, log: slog.Default()}
    a.probe = downloader.NewProbe(a.checkBinary)
    return a
}

// SetLogger allows wiring a shared application logger into the adapter.
func (a *Adapter) SetLogger(l *slog.Logger) {
    if l != nil {
        a.log = l
    }
}

// Available resolves the binary and asks it for its version, once per
// process. Any failure means the engine is unavailable.
func (a *Adapter) Available(ctx context.Context) error {
    if err := a.probe.Check(); err != nil {
        return fmt.Errorf("%w: %v", data.ErrEngineUnavailable, err)
    }
    return nil
}

func (a *Adapter) checkBinary() error {
    path, err := exec.LookPath(a.binary)
    if err != nil {
        return err
    }
    ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
    defer cancel()
    out, _, err := a.run(ctx, path, "--version")
    if err != nil {
        return fmt.Errorf("%s --version: %w", a.binary, err)
    }
    a.log.Info("retrieval engine available", "binary", path, "version", strings.TrimSpace(string(out)))
    return nil
}

// Fetch downloads req.URL into req.Dir and returns the final file path as
// reported by the engine after post-processing.
func (a *Adapter) Fetch(ctx context.Context, req downloader.Request) (string, error) {
    timer := prometheus.NewTimer(metrics.EngineLatency.WithLabelValues(DefaultBinary))
    defer timer.ObserveDuration()

    stdout, stderr, err := a.run(ctx, a.binary, buildArgs(req)...)
    if err != nil {
        if ctx.Err() != nil {
            return "", ctx.Err()
        }
        return "", classify(err, stderr)
    }
    p := reportedPath(stdout)
    if p == "" {
        return "", &data.FetchError{Detail: "engine reported no output file", Inconsistent: true}
    }
    return p, nil
}

func buildArgs(req downloader.Request) []string {
    return []string{
        "--quiet",
        "--no-progress",
        "--no-playlist",
        "--restrict-filenames",
        "--format", req.Policy.Format,
        "--merge-output-format", req.Policy.Container,
        "--output", filepath.Join(req.Dir, downloadcfg.OutputTemplate),
        "--print", "after_move:filepath",
        "--no-simulate",
        "--",
        req.URL,
    }
}

// reportedPath returns the last non-empty line of the engine's stdout.
func reportedPath(stdout []byte) string {
    lines := strings.Split(strings.TrimSpace(string(stdout)), "\n")
    for i := len(lines) - 1; i >= 0; i-- {
        if l := strings.TrimSpace(lines[i]); l != "" {
            return l
        }
    }
    return ""
}

// classify maps a failed run onto the error taxonomy: a missing binary is an
// unavailable engine, a non-zero exit is a fetch failure carrying the
// engine's own message.
func classify(err error, stderr []byte) error {
    if errors.Is(err, exec.ErrNotFound) {
        return fmt.Errorf("%w: %v", data.ErrEngineUnavailable, err)
    }
    var exitErr *exec.ExitError
    if errors.As(err, &exitErr) {
        msg := engineMessage(stderr)
        if msg == "" {
            msg = exitErr.Error()
        }
        return &data.FetchError{Detail: msg}
    }
    // fork/exec failures: permissions, bad interpreter
    return fmt.Errorf("%w: %v", data.ErrEngineUnavailable, err)
}

// engineMessage extracts the last "ERROR:" line from stderr, falling back
// to the last non-empty line.
func engineMessage(stderr []byte) string {
    var last string
    lines := strings.Split(string(stderr), "\n")
    for i := len(lines) - 1; i >= 0; i-- {
        l := strings.TrimSpace(lines[i])
        if l == "" {
            continue
        }
        if strings.HasPrefix(l, "ERROR:") {
            return strings.TrimSpace(strings.TrimPrefix(l, "ERROR:"))
        }
        if last == "" {
            last = l
        }
    }
    return last
}
