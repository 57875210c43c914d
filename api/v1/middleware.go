package v1

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/tinoosan/stealth/internal/data"
	"github.com/tinoosan/stealth/internal/reqid"
)

const maxScoreBody = 1 << 20

type rwLogger struct {
	http.ResponseWriter
	status int
	bytes  int
	err    error
}

func (w *rwLogger) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *rwLogger) SetErr(err error) {
	w.err = err
}

func (w *rwLogger) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *rwLogger) Flush() {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	_ = http.NewResponseController(w.ResponseWriter).Flush()
}

// Hijack lets the live feed upgrade through the logging wrapper.
func (w *rwLogger) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	conn, rw, err := http.NewResponseController(w.ResponseWriter).Hijack()
	if err == nil && w.status == 0 {
		w.status = http.StatusSwitchingProtocols
	}
	return conn, rw, err
}

func (w *rwLogger) Unwrap() http.ResponseWriter { return w.ResponseWriter }

type errorSetter interface {
	SetErr(error)
}

func markErr(w http.ResponseWriter, err error) {
	if es, ok := w.(errorSetter); ok {
		es.SetErr(err)
	}
}

type ctxKeyScore struct{}

// scoreRequest is the wire shape of a submission. Pointers distinguish
// absent fields from zero values.
type scoreRequest struct {
	Name       *string `json:"name"`
	Points     *int    `json:"points"`
	Level      *int    `json:"level"`
	DurationMS *int    `json:"duration_ms"`
}

func (s *scoreRequest) record() (*data.ScoreRecord, error) {
	switch {
	case s.Name == nil:
		return nil, &data.ValidationError{Field: "name", Reason: "is required"}
	case s.Points == nil:
		return nil, &data.ValidationError{Field: "points", Reason: "is required"}
	case s.DurationMS == nil:
		return nil, &data.ValidationError{Field: "duration_ms", Reason: "is required"}
	}
	rec := &data.ScoreRecord{Name: *s.Name, Points: *s.Points, Level: 1, DurationMS: *s.DurationMS}
	if s.Level != nil {
		rec.Level = *s.Level
	}
	return rec, nil
}

// MiddlewareScoreValidation decodes a score submission and places the
// record in the request context. Bounds are checked by the service.
func MiddlewareScoreValidation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body scoreRequest
		if err := decodeJSONStrict(w, r, &body, maxScoreBody, "application/json"); err != nil {
			var ute *json.UnmarshalTypeError
			switch {
			case errors.Is(err, ErrContentType):
				writeError(w, err)
			case errors.As(err, &ute) && ute.Field != "":
				writeError(w, &data.ValidationError{Field: ute.Field, Reason: "must be " + wireType(ute.Type.Kind().String())})
			default:
				writeBadRequest(w, err)
			}
			return
		}

		rec, err := body.record()
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyScore{}, rec)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func wireType(kind string) string {
	switch kind {
	case "int", "int64", "int32":
		return "an integer"
	case "string":
		return "a string"
	}
	return "a " + kind
}

// Log records one line per request. Errors marked by handlers are logged
// at error level.
func (h *Handler) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		rw := &rwLogger{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		if rw.status == 0 {
			rw.status = http.StatusOK
		}
		timeElapsed := time.Since(startTime)
		l := reqid.Logger(r.Context(), h.l)
		attrs := []any{
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.status,
			"remote", r.RemoteAddr,
			"ua", r.UserAgent(),
			"dur_ms", timeElapsed.Milliseconds(),
			"bytes", rw.bytes,
		}
		if rw.err != nil {
			l.Error(rw.err.Error(), attrs...)
			return
		}
		l.Info("", attrs...)
	})
}
