package api

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/berkana/internal/block"
	"github.com/starford/berkana/internal/docservice"
	"github.com/starford/berkana/internal/editor"
	"github.com/starford/berkana/internal/parser"
)

// Snapshot is the session state returned by every session route.
type Snapshot = docservice.Snapshot

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

// reply writes the snapshot or maps the error.
func reply(w http.ResponseWriter, r *http.Request, op string, snap *Snapshot, err error) {
	if err != nil {
		writeError(w, err, op, slog.String("session", sessionID(r)))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// ListSessions handles GET /api/sessions.
//
//	@Summary		List open editing sessions
//	@Tags			sessions
//	@Produce		json
//	@Success		200	{array}	docservice.SessionInfo
//	@Security		BearerAuth
//	@Router			/sessions [get]
func (h *Handler) ListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Sessions(r.Context()))
}

// OpenSession handles POST /api/sessions.
//
//	@Summary		Open an editing session on a document
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenSessionRequest	false	"Document to open; omit for a scratch session"
//	@Success		201		{object}	Snapshot
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions [post]
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	snap, err := h.svc.OpenSession(r.Context(), req.Path)
	if err != nil {
		writeError(w, err, "open session", slog.String("path", req.Path))
		return
	}
	w.Header().Set("Location", "/api/sessions/"+snap.ID)
	writeJSON(w, http.StatusCreated, snap)
}

// GetSession handles GET /api/sessions/{id}.
//
//	@Summary		Get the current state of a session
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	Snapshot
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Snapshot(r.Context(), sessionID(r))
	reply(w, r, "get session", snap, err)
}

// GetSessionContent handles GET /api/sessions/{id}/content?format=.
// It writes the raw Markdown or HTML of the session.
func (h *Handler) GetSessionContent(w http.ResponseWriter, r *http.Request) {
	f := parser.FormatMarkdown
	if v := r.URL.Query().Get("format"); v != "" {
		var err error
		if f, err = parser.ParseFormat(v); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
	}
	snap, err := h.svc.Snapshot(r.Context(), sessionID(r))
	if err != nil {
		writeError(w, err, "session content", slog.String("session", sessionID(r)))
		return
	}
	if f == parser.FormatHTML {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, snap.HTML)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = io.WriteString(w, snap.Markdown)
}

// ReplaceContent handles PUT /api/sessions/{id}/content.
//
//	@Summary		Replace the session content
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			body	body		ContentRequest	true	"New content"
//	@Success		200		{object}	Snapshot
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/content [put]
func (h *Handler) ReplaceContent(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !decode(w, r, &req) {
		return
	}
	f, _ := parser.ParseFormat(req.Format)
	snap, err := h.svc.Replace(r.Context(), sessionID(r), req.Text, f)
	reply(w, r, "replace content", snap, err)
}

// CloseSession handles DELETE /api/sessions/{id}.
//
//	@Summary		Close a session without saving
//	@Tags			sessions
//	@Param			id	path	string	true	"Session ID"
//	@Success		204	"Session closed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id} [delete]
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseSession(r.Context(), sessionID(r)); err != nil {
		writeError(w, err, "close session", slog.String("session", sessionID(r)))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Type handles POST /api/sessions/{id}/type.
//
//	@Summary		Type text at the cursor
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session ID"
//	@Param			body	body		TypeRequest	true	"Text; newline is Enter"
//	@Success		200		{object}	Snapshot
//	@Security		BearerAuth
//	@Router			/sessions/{id}/type [post]
func (h *Handler) Type(w http.ResponseWriter, r *http.Request) {
	var req TypeRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.svc.Type(r.Context(), sessionID(r), req.Text)
	reply(w, r, "type", snap, err)
}

// Keys handles POST /api/sessions/{id}/keys.
//
//	@Summary		Deliver keydowns with modifiers
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session ID"
//	@Param			body	body		KeysRequest	true	"Keys in order"
//	@Success		200		{object}	Snapshot
//	@Security		BearerAuth
//	@Router			/sessions/{id}/keys [post]
func (h *Handler) Keys(w http.ResponseWriter, r *http.Request) {
	var req KeysRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.svc.Keys(r.Context(), sessionID(r), req.Keys)
	reply(w, r, "keys", snap, err)
}

// Select handles POST /api/sessions/{id}/select.
//
//	@Summary		Set the selection
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			body	body		SelectRequest	true	"All, a block span or a text range"
//	@Success		200		{object}	Snapshot
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/select [post]
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decode(w, r, &req) {
		return
	}
	var (
		snap *Snapshot
		err  error
	)
	switch {
	case req.All:
		snap, err = h.svc.SelectAll(r.Context(), sessionID(r))
	case req.Range != nil:
		snap, err = h.svc.Select(r.Context(), sessionID(r), *req.Range)
	default:
		snap, err = h.svc.SelectBlocks(r.Context(), sessionID(r), *req.From, *req.To)
	}
	reply(w, r, "select", snap, err)
}

// Paste handles POST /api/sessions/{id}/paste.
//
//	@Summary		Paste clipboard content
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			body	body		PasteRequest	true	"Clipboard"
//	@Success		200		{object}	Snapshot
//	@Security		BearerAuth
//	@Router			/sessions/{id}/paste [post]
func (h *Handler) Paste(w http.ResponseWriter, r *http.Request) {
	var req PasteRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.svc.Paste(r.Context(), sessionID(r), editor.Clipboard{HTML: req.HTML, Text: req.Text})
	reply(w, r, "paste", snap, err)
}

// Toolbar handles POST /api/sessions/{id}/toolbar.
//
//	@Summary		Click a toolbar button
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			body	body		ToolbarRequest	true	"Action"
//	@Success		200		{object}	Snapshot
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/toolbar [post]
func (h *Handler) Toolbar(w http.ResponseWriter, r *http.Request) {
	var req ToolbarRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.svc.Toolbar(r.Context(), sessionID(r), req.Action)
	reply(w, r, "toolbar", snap, err)
}

// ConvertBlock handles POST /api/sessions/{id}/convert.
//
//	@Summary		Convert the current block
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Session ID"
//	@Param			body	body		ConvertBlockRequest	true	"Target type"
//	@Success		200		{object}	Snapshot
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/convert [post]
func (h *Handler) ConvertBlock(w http.ResponseWriter, r *http.Request) {
	var req ConvertBlockRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.svc.Convert(r.Context(), sessionID(r), block.Type(req.Type))
	reply(w, r, "convert block", snap, err)
}

// InsertImage handles POST /api/sessions/{id}/image.
//
//	@Summary		Insert an image block
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			body	body		ImageRequest	true	"Image"
//	@Success		200		{object}	Snapshot
//	@Security		BearerAuth
//	@Router			/sessions/{id}/image [post]
func (h *Handler) InsertImage(w http.ResponseWriter, r *http.Request) {
	var req ImageRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.svc.InsertImage(r.Context(), sessionID(r), req.Src, req.Alt)
	reply(w, r, "insert image", snap, err)
}

// ToggleTask handles POST /api/sessions/{id}/task.
//
//	@Summary		Toggle a task list item
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session ID"
//	@Param			body	body		TaskRequest	true	"Block and item index"
//	@Success		200		{object}	Snapshot
//	@Security		BearerAuth
//	@Router			/sessions/{id}/task [post]
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	var req TaskRequest
	if !decode(w, r, &req) {
		return
	}
	snap, err := h.svc.ToggleTask(r.Context(), sessionID(r), req.Block, req.Item)
	reply(w, r, "toggle task", snap, err)
}

// Save handles POST /api/sessions/{id}/save.
//
//	@Summary		Write the session back to its document
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	Snapshot
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/sessions/{id}/save [post]
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	snap, err := h.svc.Save(r.Context(), sessionID(r))
	reply(w, r, "save", snap, err)
}
