package handlers

import (
	"html/template"

	"github.com/sa/gopherlist/internal/archive"
	"github.com/sa/gopherlist/internal/db"
)

// MessageView is the per-message payload handed to message templates. The
// body arrives pre-split around the folded diff span, so templates only
// decide how to wrap the pieces.
type MessageView struct {
	Message   *archive.Message
	Body      template.HTML // full rendered body when there is no fold
	Prefix    template.HTML // rendered lines before the folded span
	Folded    template.HTML // rendered folded span
	Suffix    template.HTML // rendered lines after the folded span
	HasFold   bool
	FoldLabel string // summary line for the collapsed span
}

// NewGenericData creates template data for generic pages.
// Callers add handler-specific fields to the returned map.
func NewGenericData(title string) map[string]interface{} {
	return map[string]interface{}{
		"templateType": "generic",
		"title":        title,
	}
}

// NewListData creates standard data for list-scoped views
// (thread index, list search, list feed).
func NewListData(title string, list db.List) map[string]interface{} {
	return map[string]interface{}{
		"templateType": "list",
		"title":        title,
		"list":         list,
	}
}

// NewThreadData creates template data for the thread view.
func NewThreadData(view *archive.ThreadView, messages []MessageView) map[string]interface{} {
	return map[string]interface{}{
		"templateType": "thread",
		"title":        view.Thread.Subject.String,
		"list":         view.List,
		"thread":       view.Thread,
		"messages":     messages,
	}
}

// NewMessageData creates template data for the single message view.
func NewMessageData(list db.List, mv MessageView) map[string]interface{} {
	title := mv.Message.Row.Subject.String
	if title == "" {
		title = mv.Message.Row.MessageID
	}
	return map[string]interface{}{
		"templateType": "message",
		"title":        title,
		"list":         list,
		"message":      mv,
	}
}
