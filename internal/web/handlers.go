package web

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"notelink/internal/autolink"
	"notelink/internal/index"
	"notelink/internal/storage/fs"
)

type autolinkRequest struct {
	Markdown        string `json:"markdown"`
	CaseInsensitive *bool  `json:"case_insensitive,omitempty"`
}

func (r autolinkRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Markdown, validation.Required.Error("markdown is required")),
	)
}

type autolinkResponse struct {
	Markdown  string `json:"markdown"`
	Linked    int    `json:"linked"`
	Rewritten int    `json:"rewritten"`
	Truncated bool   `json:"truncated"`
}

type previewResponse struct {
	HTML      string `json:"html"`
	Linked    int    `json:"linked"`
	Truncated bool   `json:"truncated"`
}

type nameResponse struct {
	Name  string `json:"name"`
	Kind  string `json:"kind,omitempty"`
	Count int    `json:"count,omitempty"`
}

type noteAutolinkResponse struct {
	Path      string `json:"path"`
	Linked    int    `json:"linked"`
	Rewritten int    `json:"rewritten"`
	Changed   bool   `json:"changed"`
	Truncated bool   `json:"truncated"`
}

var nameKinds = []any{
	string(index.KindTitle),
	string(index.KindAlias),
	string(index.KindTag),
	string(index.KindMention),
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAutolink handles POST /api/autolink.
func (s *Server) handleAutolink(w http.ResponseWriter, r *http.Request) {
	var req autolinkRequest
	if !s.readRequest(w, r, &req) {
		return
	}
	out, res, err := s.linker(req.CaseInsensitive).ProcessText(r.Context(), req.Markdown)
	if err != nil {
		s.writeProcessError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, autolinkResponse{
		Markdown:  out,
		Linked:    res.Linked,
		Rewritten: res.Rewritten,
		Truncated: res.Truncated,
	})
}

// handlePreview handles POST /api/preview: autolink, then render HTML.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req autolinkRequest
	if !s.readRequest(w, r, &req) {
		return
	}
	out, res, err := s.linker(req.CaseInsensitive).ProcessText(r.Context(), req.Markdown)
	if err != nil {
		s.writeProcessError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := s.html.Render(&buf, []byte(out)); err != nil {
		s.logger.Error("render preview", "err", err, "request_id", RequestID(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{HTML: buf.String(), Linked: res.Linked, Truncated: res.Truncated})
}

// handleNames handles GET /api/names?kind=.
func (s *Server) handleNames(w http.ResponseWriter, r *http.Request) {
	kind := strings.TrimSpace(r.URL.Query().Get("kind"))
	if err := validation.Validate(kind, validation.In(nameKinds...).Error("kind must be one of title, alias, tag, mention")); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	out := []nameResponse{}
	if s.idx != nil {
		names, err := s.idx.ListNames(r.Context(), index.NameKind(kind))
		if err != nil {
			s.logger.Error("list names", "err", err, "request_id", RequestID(r.Context()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		for _, n := range names {
			out = append(out, nameResponse{Name: n.Name, Kind: string(n.Kind), Count: n.Count})
		}
	} else {
		if kind != "" {
			writeJSON(w, http.StatusBadRequest, errorBody("kind filter needs the note index"))
			return
		}
		names, err := s.dict.EntityNames(r.Context())
		if err != nil {
			s.logger.Error("list names", "err", err, "request_id", RequestID(r.Context()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
			return
		}
		for _, n := range names {
			out = append(out, nameResponse{Name: n})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"names": out})
}

// handleNoteAutolink handles POST /api/notes/{path}/autolink. The note is
// rewritten in place under its path lock and re-indexed when it changed.
func (s *Server) handleNoteAutolink(w http.ResponseWriter, r *http.Request) {
	raw, ok := strings.CutSuffix(chi.URLParam(r, "*"), "/autolink")
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
		return
	}
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	notePath, err := fs.NormalizeNotePath(raw)
	if err == nil && fs.IsHidden(notePath) {
		err = fs.ErrUnsafePath
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note path"))
		return
	}
	notePath = fs.EnsureMDExt(notePath)
	full, err := fs.NoteFilePath(s.cfg.RepoPath, notePath)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note path"))
		return
	}

	unlock := s.locker.Lock(full)
	defer unlock()

	var res *autolink.Result
	changed, err := fs.RewriteFile(full, func(data []byte) ([]byte, error) {
		out, r2, err := s.linker(nil).ProcessText(r.Context(), string(data))
		if err != nil {
			return nil, err
		}
		res = r2
		return []byte(out), nil
	})
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			writeJSON(w, http.StatusNotFound, errorBody("note not found"))
			return
		}
		s.writeProcessError(w, r, err)
		return
	}
	if changed {
		s.reindex(r.Context(), notePath)
	}
	attrs := []any{"path", notePath, "linked", res.Linked, "changed", changed, "request_id", RequestID(r.Context())}
	if c, ok := CurrentCaller(r.Context()); ok {
		attrs = append(attrs, "caller", c.Alias)
	}
	s.logger.Info("note autolinked", attrs...)
	writeJSON(w, http.StatusOK, noteAutolinkResponse{
		Path:      notePath,
		Linked:    res.Linked,
		Rewritten: res.Rewritten,
		Changed:   changed,
		Truncated: res.Truncated,
	})
}

func (s *Server) reindex(ctx context.Context, notePath string) {
	if s.idx == nil {
		return
	}
	if err := s.idx.IndexFile(ctx, s.cfg.RepoPath, notePath); err != nil {
		s.logger.Warn("reindex note", "path", notePath, "err", err)
	}
}

func (s *Server) readRequest(w http.ResponseWriter, r *http.Request, req validation.Validatable) bool {
	if err := decodeJSON(w, r, req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}

func (s *Server) writeProcessError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, autolink.ErrNoDictionary) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
		return
	}
	s.logger.Error("autolink failed", "err", err, "request_id", RequestID(r.Context()))
	writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
}
