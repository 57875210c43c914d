package v1

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tinoosan/stealth/internal/data"
	"github.com/tinoosan/stealth/internal/reqid"
	"github.com/tinoosan/stealth/internal/service"
)

// Services groups the collaborators the handlers call into.
type Services struct {
	Leaderboard service.Leaderboard
	Retrieval   service.Retrieval
	Diagnostics service.Diagnostics
}

type Handler struct {
	l            *slog.Logger
	svc          Services
	defaultLimit int
}

func NewHandler(l *slog.Logger, svc Services, defaultLimit int) *Handler {
	if l == nil {
		l = slog.Default()
	}
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	return &Handler{l: l, svc: svc, defaultLimit: defaultLimit}
}

type message struct {
	Message string `json:"message"`
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, message{Message: "Assassin Stealth API running"})
}

func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, message{Message: "Hello from the backend API!"})
}

func (h *Handler) Diagnostics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Diagnostics.Report(r.Context()))
}

type submitResponse struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

func (h *Handler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	rec, ok := r.Context().Value(ctxKeyScore{}).(*data.ScoreRecord)
	if !ok || rec == nil {
		markErr(w, ErrScoreCtx)
		writeJSON(w, http.StatusInternalServerError, errorBody{Detail: ErrScoreCtx.Error()})
		return
	}
	id, err := h.svc.Leaderboard.Submit(r.Context(), rec)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitResponse{OK: true, ID: id})
}

type leaderboardResponse struct {
	OK    bool                    `json:"ok"`
	Items []data.LeaderboardEntry `json:"items"`
}

func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			writeError(w, &data.ValidationError{Field: "limit", Reason: "must be an integer"})
			return
		}
		limit = n
	}
	items, err := h.svc.Leaderboard.Top(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []data.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, leaderboardResponse{OK: true, Items: items})
}

// flushWriter flushes the response after every chunk the job writes.
type flushWriter struct {
	io.Writer
	rc *http.ResponseController
}

func (f flushWriter) Flush() error { return f.rc.Flush() }

// Download fetches the video at ?url= and streams it back. The job's
// scratch directory is removed however the stream ends.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	src := strings.TrimSpace(r.URL.Query().Get("url"))
	if src == "" {
		writeError(w, ErrURLRequired)
		return
	}

	rc := http.NewResponseController(w)
	// Fetch plus transfer may outlive the server's write timeout.
	if err := rc.SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		reqid.Logger(r.Context(), h.l).Warn("clear write deadline failed", "err", err)
	}

	job, err := h.svc.Retrieval.Open(r.Context(), src)
	if err != nil {
		writeError(w, err)
		return
	}
	defer job.Close()

	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(job.Filename(), `"`, "")+`"`)
	w.WriteHeader(http.StatusOK)

	if _, err := job.Stream(r.Context(), flushWriter{Writer: w, rc: rc}); err != nil {
		markErr(w, err)
	}
}
