package db

import (
	"database/sql"
	"time"
)

// User is a row of the user table.
type User struct {
	ID             int64
	Name           string
	Email          string
	PasswordHash   sql.NullString
	FirstSeen      sql.NullTime
	LastSeen       sql.NullTime
	IsApproved     sql.NullBool
	IsAdmin        sql.NullBool
	EmailConfirmed sql.NullBool
	AllowRead      sql.NullBool
	AllowModerate  sql.NullBool
	AllowImport    sql.NullBool
}

// List is a row of the lists table: one archived mailing list.
type List struct {
	ID          int64
	Name        string
	Address     string
	Description sql.NullString
	IsHidden    sql.NullBool
	CreatedAt   sql.NullTime
}

// Thread is a row of the threads table. RootMessageID is the Message-ID of
// the first message; SubjectKey groups loose replies that lost their
// References headers.
type Thread struct {
	ID            int64
	ListID        int64
	RootMessageID string
	Subject       sql.NullString
	SubjectKey    sql.NullString
	MessageCount  sql.NullInt64
	HasPatch      sql.NullBool
	CreatedAt     sql.NullTime
	LastActivity  sql.NullTime
}

// Message is a row of the messages table: the searchable index entry for
// one archived mail. The canonical raw message lives in git at BlobPath;
// Body here is the decoded text kept for display and full-text search.
type Message struct {
	ID        int64
	ListID    int64
	ThreadID  int64
	MessageID string
	ParentID  sql.NullString
	Subject   sql.NullString
	FromName  sql.NullString
	FromEmail sql.NullString
	Date      sql.NullTime
	Body      sql.NullString
	IsPatch   sql.NullBool
	IsHidden  sql.NullBool
	BlobPath  string
	CreatedAt sql.NullTime
}

// Preference is a row of the preferences table.
type Preference struct {
	Name  string
	Value sql.NullString
}

// NullString wraps s, treating the empty string as NULL.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullTime wraps t, treating the zero time as NULL.
func NullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// NullBool wraps b.
func NullBool(b bool) sql.NullBool {
	return sql.NullBool{Bool: b, Valid: true}
}

// NullInt64 wraps n.
func NullInt64(n int64) sql.NullInt64 {
	return sql.NullInt64{Int64: n, Valid: true}
}
