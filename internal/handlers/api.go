package handlers

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/sa/gopherlist/internal/archive"
	"github.com/sa/gopherlist/internal/db"
	"github.com/sa/gopherlist/internal/mail"
	"github.com/sa/gopherlist/internal/patch"
	"github.com/sa/gopherlist/internal/storage"
)

// --- Response envelope ---

type apiResponse struct {
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Data: data})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiResponse{Error: message})
}

func decodeJSON(r *http.Request, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

// handleHealthCheck reports whether the server is up.
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"version": s.Version,
	})
}

// --- API data structs ---

// APIList is the JSON representation of a mailing list.
type APIList struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	Description  string `json:"description,omitempty"`
	MessageCount int64  `json:"message_count"`
	LastActivity string `json:"last_activity,omitempty"`
}

// APIThread is the JSON representation of a thread index entry.
type APIThread struct {
	ID            int64  `json:"id"`
	Subject       string `json:"subject"`
	RootMessageID string `json:"root_message_id"`
	MessageCount  int64  `json:"message_count"`
	HasPatch      bool   `json:"has_patch"`
	CreatedAt     string `json:"created_at,omitempty"`
	LastActivity  string `json:"last_activity,omitempty"`
}

// APIThreadPage is one page of a list's thread index.
type APIThreadPage struct {
	List    string      `json:"list"`
	Page    int         `json:"page"`
	Total   int64       `json:"total"`
	Threads []APIThread `json:"threads"`
}

// APIMessage is the JSON representation of an archived message together
// with its patch artifacts. Body and Patch are only populated on the
// single message endpoint.
type APIMessage struct {
	MessageID string          `json:"message_id"`
	List      string          `json:"list"`
	ThreadID  int64           `json:"thread_id"`
	Subject   string          `json:"subject"`
	FromName  string          `json:"from_name,omitempty"`
	FromEmail string          `json:"from_email,omitempty"`
	Date      string          `json:"date,omitempty"`
	InReplyTo string          `json:"in_reply_to,omitempty"`
	HasPatch  bool            `json:"has_patch"`
	Preview   string          `json:"preview,omitempty"`
	Body      string          `json:"body,omitempty"`
	Patch     string          `json:"patch,omitempty"`
	Fold      *patch.Section  `json:"fold,omitempty"`
	Trailers  []APITrailer    `json:"trailers,omitempty"`
	Metadata  *patch.Metadata `json:"metadata,omitempty"`
}

// APITrailer is one git-style trailer of a message.
type APITrailer struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Email string `json:"email,omitempty"`
}

// APIPatchset is the aggregated patch content of a thread.
type APIPatchset struct {
	CombinedText string   `json:"combined_text"`
	Contributing []string `json:"contributing"`
}

// APISeries describes one posted revision of a patch series.
type APISeries struct {
	Revision int      `json:"revision"`
	Total    int      `json:"total"`
	Complete bool     `json:"complete"`
	Cover    string   `json:"cover,omitempty"`
	Patches  []string `json:"patches"`
}

// APIThreadDetail is the full JSON representation of a thread.
type APIThreadDetail struct {
	Thread   APIThread    `json:"thread"`
	List     string       `json:"list"`
	Messages []APIMessage `json:"messages"`
	Patchset *APIPatchset `json:"patchset,omitempty"`
	Series   []APISeries  `json:"series,omitempty"`
}

// APICommit is the JSON representation of an archive commit.
type APICommit struct {
	Revision     string   `json:"revision"`
	RevisionFull string   `json:"revision_full"`
	Datetime     string   `json:"datetime"`
	AuthorName   string   `json:"author_name"`
	AuthorEmail  string   `json:"author_email"`
	Message      string   `json:"message"`
	Files        []string `json:"files,omitempty"`
}

// APIExtractRequest is the JSON request body for stateless patch
// extraction: a message body plus optional classifier metadata.
type APIExtractRequest struct {
	Body         string          `json:"body"`
	Metadata     *patch.Metadata `json:"metadata,omitempty"`
	PreviewLines int             `json:"preview_lines,omitempty"`
}

// APIExtractResponse carries every artifact the extractor produces for
// one body.
type APIExtractResponse struct {
	Patch    string         `json:"patch"`
	HasPatch bool           `json:"has_patch"`
	Fold     *patch.Section `json:"fold,omitempty"`
	Preview  string         `json:"preview"`
}

// --- Conversion helpers ---

func nullTimeToString(t sql.NullTime) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(time.RFC3339)
}

func listSummaryToAPI(ls archive.ListSummary) APIList {
	return APIList{
		Name:         ls.List.Name,
		Address:      ls.List.Address,
		Description:  ls.List.Description.String,
		MessageCount: ls.MessageCount,
		LastActivity: nullTimeToString(ls.LastActivity),
	}
}

func threadToAPI(t db.Thread) APIThread {
	return APIThread{
		ID:            t.ID,
		Subject:       t.Subject.String,
		RootMessageID: t.RootMessageID,
		MessageCount:  t.MessageCount.Int64,
		HasPatch:      t.HasPatch.Bool,
		CreatedAt:     nullTimeToString(t.CreatedAt),
		LastActivity:  nullTimeToString(t.LastActivity),
	}
}

func trailersToAPI(trailers []mail.Trailer) []APITrailer {
	if len(trailers) == 0 {
		return nil
	}
	result := make([]APITrailer, 0, len(trailers))
	for _, t := range trailers {
		result = append(result, APITrailer{Name: t.Name, Value: t.Value, Email: t.Email})
	}
	return result
}

// messageToAPI converts a message. withBody selects the expensive fields:
// the full body, the extracted patch, the fold range and the classifier
// metadata.
func messageToAPI(msg *archive.Message, withBody bool) APIMessage {
	m := APIMessage{
		MessageID: msg.Row.MessageID,
		List:      msg.List,
		ThreadID:  msg.Row.ThreadID,
		Subject:   msg.Row.Subject.String,
		FromName:  msg.Row.FromName.String,
		FromEmail: msg.Row.FromEmail.String,
		Date:      nullTimeToString(msg.Row.Date),
		InReplyTo: msg.Row.ParentID.String,
		HasPatch:  msg.HasPatch(),
		Preview:   msg.Preview(),
	}
	if withBody {
		m.Body = msg.Body()
		m.Patch = msg.Extract()
		m.Fold = msg.Fold()
		m.Trailers = trailersToAPI(msg.Trailers())
		m.Metadata = msg.Metadata()
	}
	return m
}

func messagesToAPI(msgs []*archive.Message) []APIMessage {
	result := make([]APIMessage, 0, len(msgs))
	for _, msg := range msgs {
		result = append(result, messageToAPI(msg, false))
	}
	return result
}

func commitToAPI(c *storage.CommitMetadata) *APICommit {
	if c == nil {
		return nil
	}
	return &APICommit{
		Revision:     c.Revision,
		RevisionFull: c.RevisionFull,
		Datetime:     c.Datetime.Format(time.RFC3339),
		AuthorName:   c.AuthorName,
		AuthorEmail:  c.AuthorEmail,
		Message:      c.Message,
		Files:        c.Files,
	}
}

func commitsToAPI(commits []storage.CommitMetadata) []APICommit {
	result := make([]APICommit, 0, len(commits))
	for i := range commits {
		result = append(result, *commitToAPI(&commits[i]))
	}
	return result
}
