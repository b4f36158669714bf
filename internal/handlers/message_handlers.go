package handlers

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sa/gopherlist/internal/archive"
	"github.com/sa/gopherlist/internal/patch"
	"github.com/sa/gopherlist/internal/util"
)

// messageIDParam returns the message id route parameter. Ids are path
// escaped in generated links, so the parameter may arrive encoded.
func messageIDParam(r *http.Request) string {
	id := chi.URLParam(r, "messageID")
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	return id
}

// buildMessageView splits a message body around its folded patch span and
// renders each piece. The fold bounds are inclusive line indexes; a message
// without one renders as a single block. Prose before and after the fold
// stays visible, only the span itself collapses.
func (s *Server) buildMessageView(msg *archive.Message) MessageView {
	mv := MessageView{Message: msg}
	body := msg.Body()

	fold := msg.Fold()
	if fold == nil {
		mv.Body = s.Renderer.Body(msg.List, body)
		return mv
	}

	lines := patch.Lines(body)
	folded := fold.End - fold.Start + 1

	mv.HasFold = true
	mv.Prefix = s.Renderer.Body(msg.List, strings.Join(lines[:fold.Start], "\n"))
	mv.Folded = s.Renderer.Body(msg.List, strings.Join(lines[fold.Start:fold.End+1], "\n"))
	if fold.End+1 < len(lines) {
		mv.Suffix = s.Renderer.Body(msg.List, strings.Join(lines[fold.End+1:], "\n"))
	}
	mv.FoldLabel = fmt.Sprintf("%d %s of patch content", folded, util.Pluralize(folded, "lines", "line"))
	return mv
}

// handleMessageView handles the single message view.
func (s *Server) handleMessageView(w http.ResponseWriter, r *http.Request) {
	listName := chi.URLParam(r, "list")
	messageID := messageIDParam(r)

	list, err := s.Archive.List(r.Context(), listName)
	if err != nil {
		s.renderArchiveError(w, r, err)
		return
	}

	msg, err := s.Archive.Message(r.Context(), list.Name, messageID)
	if err != nil {
		s.renderArchiveError(w, r, err)
		return
	}

	data := NewMessageData(list, s.buildMessageView(msg))
	s.renderTemplate(w, r, "message.html", data)
}

// handleMessageRaw serves the stored RFC 822 message verbatim.
func (s *Server) handleMessageRaw(w http.ResponseWriter, r *http.Request) {
	listName := chi.URLParam(r, "list")
	messageID := messageIDParam(r)

	msg, err := s.Archive.Message(r.Context(), listName, messageID)
	if err != nil {
		s.renderArchiveError(w, r, err)
		return
	}

	raw, err := msg.Raw()
	if err != nil {
		s.renderError(w, r, http.StatusInternalServerError, "Failed to load the raw message: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(raw)
}

// handleMessagePatch serves the extracted patch of one message as plain
// text.
func (s *Server) handleMessagePatch(w http.ResponseWriter, r *http.Request) {
	listName := chi.URLParam(r, "list")
	messageID := messageIDParam(r)

	msg, err := s.Archive.Message(r.Context(), listName, messageID)
	if err != nil {
		s.renderArchiveError(w, r, err)
		return
	}

	text := msg.Extract()
	if text == "" {
		s.renderError(w, r, http.StatusNotFound, "This message carries no patch content.")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", messageID+".patch"))
	fmt.Fprintln(w, text)
}

// handleMessageHide hides a message from readers. The stored blob is
// untouched; only the index row is flagged.
func (s *Server) handleMessageHide(w http.ResponseWriter, r *http.Request) {
	s.setMessageHidden(w, r, true)
}

// handleMessageUnhide makes a hidden message visible again.
func (s *Server) handleMessageUnhide(w http.ResponseWriter, r *http.Request) {
	s.setMessageHidden(w, r, false)
}

func (s *Server) setMessageHidden(w http.ResponseWriter, r *http.Request, hidden bool) {
	listName := chi.URLParam(r, "list")
	messageID := messageIDParam(r)

	if err := s.Archive.HideMessage(r.Context(), listName, messageID, hidden); err != nil {
		s.renderArchiveError(w, r, err)
		return
	}

	if hidden {
		s.SessionManager.AddFlashMessage(w, r, "success", "Message hidden.")
	} else {
		s.SessionManager.AddFlashMessage(w, r, "success", "Message visible again.")
	}
	http.Redirect(w, r, "/"+listName+"/m/"+url.PathEscape(messageID), http.StatusFound)
}
