package db

import (
	"context"
	"database/sql"
)

const countUsers = `-- name: CountUsers :one
SELECT COUNT(*) FROM user
`

func (q *Queries) CountUsers(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countUsers)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const createUser = `-- name: CreateUser :one
INSERT INTO user (
    name, email, password_hash, first_seen, last_seen,
    is_approved, is_admin, email_confirmed,
    allow_read, allow_moderate, allow_import
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, name, email, password_hash, first_seen, last_seen, is_approved, is_admin, email_confirmed, allow_read, allow_moderate, allow_import
`

type CreateUserParams struct {
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

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Name,
		arg.Email,
		arg.PasswordHash,
		arg.FirstSeen,
		arg.LastSeen,
		arg.IsApproved,
		arg.IsAdmin,
		arg.EmailConfirmed,
		arg.AllowRead,
		arg.AllowModerate,
		arg.AllowImport,
	)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.PasswordHash,
		&i.FirstSeen,
		&i.LastSeen,
		&i.IsApproved,
		&i.IsAdmin,
		&i.EmailConfirmed,
		&i.AllowRead,
		&i.AllowModerate,
		&i.AllowImport,
	)
	return i, err
}

const getUserByEmail = `-- name: GetUserByEmail :one
SELECT id, name, email, password_hash, first_seen, last_seen, is_approved, is_admin, email_confirmed, allow_read, allow_moderate, allow_import
FROM user WHERE email = ?
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByEmail, email)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.PasswordHash,
		&i.FirstSeen,
		&i.LastSeen,
		&i.IsApproved,
		&i.IsAdmin,
		&i.EmailConfirmed,
		&i.AllowRead,
		&i.AllowModerate,
		&i.AllowImport,
	)
	return i, err
}

const getUserByID = `-- name: GetUserByID :one
SELECT id, name, email, password_hash, first_seen, last_seen, is_approved, is_admin, email_confirmed, allow_read, allow_moderate, allow_import
FROM user WHERE id = ?
`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Email,
		&i.PasswordHash,
		&i.FirstSeen,
		&i.LastSeen,
		&i.IsApproved,
		&i.IsAdmin,
		&i.EmailConfirmed,
		&i.AllowRead,
		&i.AllowModerate,
		&i.AllowImport,
	)
	return i, err
}

const listUsers = `-- name: ListUsers :many
SELECT id, name, email, password_hash, first_seen, last_seen, is_approved, is_admin, email_confirmed, allow_read, allow_moderate, allow_import
FROM user ORDER BY id
`

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []User
	for rows.Next() {
		var i User
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Email,
			&i.PasswordHash,
			&i.FirstSeen,
			&i.LastSeen,
			&i.IsApproved,
			&i.IsAdmin,
			&i.EmailConfirmed,
			&i.AllowRead,
			&i.AllowModerate,
			&i.AllowImport,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateUser = `-- name: UpdateUser :exec
UPDATE user SET
    name = ?,
    is_approved = ?,
    is_admin = ?,
    email_confirmed = ?,
    allow_read = ?,
    allow_moderate = ?,
    allow_import = ?
WHERE id = ?
`

type UpdateUserParams struct {
	Name           string
	IsApproved     sql.NullBool
	IsAdmin        sql.NullBool
	EmailConfirmed sql.NullBool
	AllowRead      sql.NullBool
	AllowModerate  sql.NullBool
	AllowImport    sql.NullBool
	ID             int64
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) error {
	_, err := q.db.ExecContext(ctx, updateUser,
		arg.Name,
		arg.IsApproved,
		arg.IsAdmin,
		arg.EmailConfirmed,
		arg.AllowRead,
		arg.AllowModerate,
		arg.AllowImport,
		arg.ID,
	)
	return err
}

const updateUserPassword = `-- name: UpdateUserPassword :exec
UPDATE user SET password_hash = ? WHERE id = ?
`

type UpdateUserPasswordParams struct {
	PasswordHash sql.NullString
	ID           int64
}

func (q *Queries) UpdateUserPassword(ctx context.Context, arg UpdateUserPasswordParams) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, arg.PasswordHash, arg.ID)
	return err
}

const updateUserLastSeen = `-- name: UpdateUserLastSeen :exec
UPDATE user SET last_seen = ? WHERE id = ?
`

type UpdateUserLastSeenParams struct {
	LastSeen sql.NullTime
	ID       int64
}

func (q *Queries) UpdateUserLastSeen(ctx context.Context, arg UpdateUserLastSeenParams) error {
	_, err := q.db.ExecContext(ctx, updateUserLastSeen, arg.LastSeen, arg.ID)
	return err
}

const deleteUser = `-- name: DeleteUser :exec
DELETE FROM user WHERE id = ?
`

func (q *Queries) DeleteUser(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, deleteUser, id)
	return err
}

const getPreference = `-- name: GetPreference :one
SELECT name, value FROM preferences WHERE name = ?
`

func (q *Queries) GetPreference(ctx context.Context, name string) (Preference, error) {
	row := q.db.QueryRowContext(ctx, getPreference, name)
	var i Preference
	err := row.Scan(&i.Name, &i.Value)
	return i, err
}

const upsertPreference = `-- name: UpsertPreference :exec
INSERT INTO preferences (name, value) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET value = excluded.value
`

type UpsertPreferenceParams struct {
	Name  string
	Value sql.NullString
}

func (q *Queries) UpsertPreference(ctx context.Context, arg UpsertPreferenceParams) error {
	_, err := q.db.ExecContext(ctx, upsertPreference, arg.Name, arg.Value)
	return err
}

const listPreferences = `-- name: ListPreferences :many
SELECT name, value FROM preferences ORDER BY name
`

func (q *Queries) ListPreferences(ctx context.Context) ([]Preference, error) {
	rows, err := q.db.QueryContext(ctx, listPreferences)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Preference
	for rows.Next() {
		var i Preference
		if err := rows.Scan(&i.Name, &i.Value); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createList = `-- name: CreateList :one
INSERT INTO lists (name, address, description, is_hidden)
VALUES (?, ?, ?, ?)
RETURNING id, name, address, description, is_hidden, created_at
`

type CreateListParams struct {
	Name        string
	Address     string
	Description sql.NullString
	IsHidden    sql.NullBool
}

func (q *Queries) CreateList(ctx context.Context, arg CreateListParams) (List, error) {
	row := q.db.QueryRowContext(ctx, createList,
		arg.Name,
		arg.Address,
		arg.Description,
		arg.IsHidden,
	)
	var i List
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Address,
		&i.Description,
		&i.IsHidden,
		&i.CreatedAt,
	)
	return i, err
}

const getListByName = `-- name: GetListByName :one
SELECT id, name, address, description, is_hidden, created_at
FROM lists WHERE name = ?
`

func (q *Queries) GetListByName(ctx context.Context, name string) (List, error) {
	row := q.db.QueryRowContext(ctx, getListByName, name)
	var i List
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Address,
		&i.Description,
		&i.IsHidden,
		&i.CreatedAt,
	)
	return i, err
}

const getListByID = `-- name: GetListByID :one
SELECT id, name, address, description, is_hidden, created_at
FROM lists WHERE id = ?
`

func (q *Queries) GetListByID(ctx context.Context, id int64) (List, error) {
	row := q.db.QueryRowContext(ctx, getListByID, id)
	var i List
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Address,
		&i.Description,
		&i.IsHidden,
		&i.CreatedAt,
	)
	return i, err
}

const listLists = `-- name: ListLists :many
SELECT id, name, address, description, is_hidden, created_at
FROM lists WHERE COALESCE(is_hidden, 0) = 0 ORDER BY name
`

func (q *Queries) ListLists(ctx context.Context) ([]List, error) {
	rows, err := q.db.QueryContext(ctx, listLists)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []List
	for rows.Next() {
		var i List
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Address,
			&i.Description,
			&i.IsHidden,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listAllLists = `-- name: ListAllLists :many
SELECT id, name, address, description, is_hidden, created_at
FROM lists ORDER BY name
`

func (q *Queries) ListAllLists(ctx context.Context) ([]List, error) {
	rows, err := q.db.QueryContext(ctx, listAllLists)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []List
	for rows.Next() {
		var i List
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Address,
			&i.Description,
			&i.IsHidden,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateList = `-- name: UpdateList :exec
UPDATE lists SET address = ?, description = ?, is_hidden = ? WHERE id = ?
`

type UpdateListParams struct {
	Address     string
	Description sql.NullString
	IsHidden    sql.NullBool
	ID          int64
}

func (q *Queries) UpdateList(ctx context.Context, arg UpdateListParams) error {
	_, err := q.db.ExecContext(ctx, updateList,
		arg.Address,
		arg.Description,
		arg.IsHidden,
		arg.ID,
	)
	return err
}

const listListsWithStats = `-- name: ListListsWithStats :many
SELECT l.id, l.name, l.address, l.description, l.is_hidden, l.created_at,
       COUNT(m.id) AS message_count,
       MAX(m.date) AS last_activity
FROM lists l
LEFT JOIN messages m ON m.list_id = l.id AND COALESCE(m.is_hidden, 0) = 0
WHERE COALESCE(l.is_hidden, 0) = 0
GROUP BY l.id
ORDER BY l.name
`

type ListListsWithStatsRow struct {
	ID           int64
	Name         string
	Address      string
	Description  sql.NullString
	IsHidden     sql.NullBool
	CreatedAt    sql.NullTime
	MessageCount int64
	LastActivity sql.NullTime
}

func (q *Queries) ListListsWithStats(ctx context.Context) ([]ListListsWithStatsRow, error) {
	rows, err := q.db.QueryContext(ctx, listListsWithStats)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ListListsWithStatsRow
	for rows.Next() {
		var i ListListsWithStatsRow
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.Address,
			&i.Description,
			&i.IsHidden,
			&i.CreatedAt,
			&i.MessageCount,
			&i.LastActivity,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createThread = `-- name: CreateThread :one
INSERT INTO threads (list_id, root_message_id, subject, subject_key, message_count, has_patch, created_at, last_activity)
VALUES (?, ?, ?, ?, 0, ?, ?, ?)
RETURNING id, list_id, root_message_id, subject, subject_key, message_count, has_patch, created_at, last_activity
`

type CreateThreadParams struct {
	ListID        int64
	RootMessageID string
	Subject       sql.NullString
	SubjectKey    sql.NullString
	HasPatch      sql.NullBool
	CreatedAt     sql.NullTime
	LastActivity  sql.NullTime
}

func (q *Queries) CreateThread(ctx context.Context, arg CreateThreadParams) (Thread, error) {
	row := q.db.QueryRowContext(ctx, createThread,
		arg.ListID,
		arg.RootMessageID,
		arg.Subject,
		arg.SubjectKey,
		arg.HasPatch,
		arg.CreatedAt,
		arg.LastActivity,
	)
	var i Thread
	err := row.Scan(
		&i.ID,
		&i.ListID,
		&i.RootMessageID,
		&i.Subject,
		&i.SubjectKey,
		&i.MessageCount,
		&i.HasPatch,
		&i.CreatedAt,
		&i.LastActivity,
	)
	return i, err
}

const getThread = `-- name: GetThread :one
SELECT id, list_id, root_message_id, subject, subject_key, message_count, has_patch, created_at, last_activity
FROM threads WHERE id = ?
`

func (q *Queries) GetThread(ctx context.Context, id int64) (Thread, error) {
	row := q.db.QueryRowContext(ctx, getThread, id)
	var i Thread
	err := row.Scan(
		&i.ID,
		&i.ListID,
		&i.RootMessageID,
		&i.Subject,
		&i.SubjectKey,
		&i.MessageCount,
		&i.HasPatch,
		&i.CreatedAt,
		&i.LastActivity,
	)
	return i, err
}

const getThreadByRoot = `-- name: GetThreadByRoot :one
SELECT id, list_id, root_message_id, subject, subject_key, message_count, has_patch, created_at, last_activity
FROM threads WHERE list_id = ? AND root_message_id = ?
`

type GetThreadByRootParams struct {
	ListID        int64
	RootMessageID string
}

func (q *Queries) GetThreadByRoot(ctx context.Context, arg GetThreadByRootParams) (Thread, error) {
	row := q.db.QueryRowContext(ctx, getThreadByRoot, arg.ListID, arg.RootMessageID)
	var i Thread
	err := row.Scan(
		&i.ID,
		&i.ListID,
		&i.RootMessageID,
		&i.Subject,
		&i.SubjectKey,
		&i.MessageCount,
		&i.HasPatch,
		&i.CreatedAt,
		&i.LastActivity,
	)
	return i, err
}

const getThreadBySubjectKey = `-- name: GetThreadBySubjectKey :one
SELECT id, list_id, root_message_id, subject, subject_key, message_count, has_patch, created_at, last_activity
FROM threads WHERE list_id = ? AND subject_key = ?
ORDER BY last_activity DESC LIMIT 1
`

type GetThreadBySubjectKeyParams struct {
	ListID     int64
	SubjectKey sql.NullString
}

func (q *Queries) GetThreadBySubjectKey(ctx context.Context, arg GetThreadBySubjectKeyParams) (Thread, error) {
	row := q.db.QueryRowContext(ctx, getThreadBySubjectKey, arg.ListID, arg.SubjectKey)
	var i Thread
	err := row.Scan(
		&i.ID,
		&i.ListID,
		&i.RootMessageID,
		&i.Subject,
		&i.SubjectKey,
		&i.MessageCount,
		&i.HasPatch,
		&i.CreatedAt,
		&i.LastActivity,
	)
	return i, err
}

const listThreads = `-- name: ListThreads :many
SELECT id, list_id, root_message_id, subject, subject_key, message_count, has_patch, created_at, last_activity
FROM threads WHERE list_id = ?
ORDER BY last_activity DESC
LIMIT ? OFFSET ?
`

type ListThreadsParams struct {
	ListID int64
	Limit  int64
	Offset int64
}

func (q *Queries) ListThreads(ctx context.Context, arg ListThreadsParams) ([]Thread, error) {
	rows, err := q.db.QueryContext(ctx, listThreads, arg.ListID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Thread
	for rows.Next() {
		var i Thread
		if err := rows.Scan(
			&i.ID,
			&i.ListID,
			&i.RootMessageID,
			&i.Subject,
			&i.SubjectKey,
			&i.MessageCount,
			&i.HasPatch,
			&i.CreatedAt,
			&i.LastActivity,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countThreadsByList = `-- name: CountThreadsByList :one
SELECT COUNT(*) FROM threads WHERE list_id = ?
`

func (q *Queries) CountThreadsByList(ctx context.Context, listID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countThreadsByList, listID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const touchThread = `-- name: TouchThread :exec
UPDATE threads SET
    message_count = COALESCE(message_count, 0) + 1,
    last_activity = CASE
        WHEN COALESCE(?, '') > COALESCE(last_activity, '') THEN ?
        ELSE last_activity
    END,
    has_patch = COALESCE(has_patch, 0) OR ?
WHERE id = ?
`

type TouchThreadParams struct {
	LastActivity sql.NullTime
	HasPatch     sql.NullBool
	ID           int64
}

// TouchThread records one more message on a thread: bumps the count,
// advances last_activity, and latches has_patch. A message without a
// parseable date never moves last_activity backwards or nulls it out.
func (q *Queries) TouchThread(ctx context.Context, arg TouchThreadParams) error {
	_, err := q.db.ExecContext(ctx, touchThread,
		arg.LastActivity,
		arg.LastActivity,
		arg.HasPatch,
		arg.ID,
	)
	return err
}

const deleteThreadsByList = `-- name: DeleteThreadsByList :exec
DELETE FROM threads WHERE list_id = ?
`

func (q *Queries) DeleteThreadsByList(ctx context.Context, listID int64) error {
	_, err := q.db.ExecContext(ctx, deleteThreadsByList, listID)
	return err
}

const createMessage = `-- name: CreateMessage :one
INSERT INTO messages (
    list_id, thread_id, message_id, parent_id, subject,
    from_name, from_email, date, body, is_patch, is_hidden, blob_path
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?)
RETURNING id, list_id, thread_id, message_id, parent_id, subject, from_name, from_email, date, body, is_patch, is_hidden, blob_path, created_at
`

type CreateMessageParams struct {
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
	BlobPath  string
}

func (q *Queries) CreateMessage(ctx context.Context, arg CreateMessageParams) (Message, error) {
	row := q.db.QueryRowContext(ctx, createMessage,
		arg.ListID,
		arg.ThreadID,
		arg.MessageID,
		arg.ParentID,
		arg.Subject,
		arg.FromName,
		arg.FromEmail,
		arg.Date,
		arg.Body,
		arg.IsPatch,
		arg.BlobPath,
	)
	var i Message
	err := row.Scan(
		&i.ID,
		&i.ListID,
		&i.ThreadID,
		&i.MessageID,
		&i.ParentID,
		&i.Subject,
		&i.FromName,
		&i.FromEmail,
		&i.Date,
		&i.Body,
		&i.IsPatch,
		&i.IsHidden,
		&i.BlobPath,
		&i.CreatedAt,
	)
	return i, err
}

const getMessage = `-- name: GetMessage :one
SELECT id, list_id, thread_id, message_id, parent_id, subject, from_name, from_email, date, body, is_patch, is_hidden, blob_path, created_at
FROM messages WHERE id = ?
`

func (q *Queries) GetMessage(ctx context.Context, id int64) (Message, error) {
	row := q.db.QueryRowContext(ctx, getMessage, id)
	var i Message
	err := row.Scan(
		&i.ID,
		&i.ListID,
		&i.ThreadID,
		&i.MessageID,
		&i.ParentID,
		&i.Subject,
		&i.FromName,
		&i.FromEmail,
		&i.Date,
		&i.Body,
		&i.IsPatch,
		&i.IsHidden,
		&i.BlobPath,
		&i.CreatedAt,
	)
	return i, err
}

const getMessageByMessageID = `-- name: GetMessageByMessageID :one
SELECT id, list_id, thread_id, message_id, parent_id, subject, from_name, from_email, date, body, is_patch, is_hidden, blob_path, created_at
FROM messages WHERE list_id = ? AND message_id = ?
`

type GetMessageByMessageIDParams struct {
	ListID    int64
	MessageID string
}

func (q *Queries) GetMessageByMessageID(ctx context.Context, arg GetMessageByMessageIDParams) (Message, error) {
	row := q.db.QueryRowContext(ctx, getMessageByMessageID, arg.ListID, arg.MessageID)
	var i Message
	err := row.Scan(
		&i.ID,
		&i.ListID,
		&i.ThreadID,
		&i.MessageID,
		&i.ParentID,
		&i.Subject,
		&i.FromName,
		&i.FromEmail,
		&i.Date,
		&i.Body,
		&i.IsPatch,
		&i.IsHidden,
		&i.BlobPath,
		&i.CreatedAt,
	)
	return i, err
}

const messageExists = `-- name: MessageExists :one
SELECT COUNT(*) FROM messages WHERE list_id = ? AND message_id = ?
`

type MessageExistsParams struct {
	ListID    int64
	MessageID string
}

func (q *Queries) MessageExists(ctx context.Context, arg MessageExistsParams) (bool, error) {
	row := q.db.QueryRowContext(ctx, messageExists, arg.ListID, arg.MessageID)
	var count int64
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

const listThreadMessages = `-- name: ListThreadMessages :many
SELECT id, list_id, thread_id, message_id, parent_id, subject, from_name, from_email, date, body, is_patch, is_hidden, blob_path, created_at
FROM messages WHERE thread_id = ?
ORDER BY date, id
`

func (q *Queries) ListThreadMessages(ctx context.Context, threadID int64) ([]Message, error) {
	rows, err := q.db.QueryContext(ctx, listThreadMessages, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Message
	for rows.Next() {
		var i Message
		if err := rows.Scan(
			&i.ID,
			&i.ListID,
			&i.ThreadID,
			&i.MessageID,
			&i.ParentID,
			&i.Subject,
			&i.FromName,
			&i.FromEmail,
			&i.Date,
			&i.Body,
			&i.IsPatch,
			&i.IsHidden,
			&i.BlobPath,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRecentMessages = `-- name: ListRecentMessages :many
SELECT id, list_id, thread_id, message_id, parent_id, subject, from_name, from_email, date, body, is_patch, is_hidden, blob_path, created_at
FROM messages WHERE list_id = ? AND COALESCE(is_hidden, 0) = 0
ORDER BY date DESC
LIMIT ? OFFSET ?
`

type ListRecentMessagesParams struct {
	ListID int64
	Limit  int64
	Offset int64
}

func (q *Queries) ListRecentMessages(ctx context.Context, arg ListRecentMessagesParams) ([]Message, error) {
	rows, err := q.db.QueryContext(ctx, listRecentMessages, arg.ListID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Message
	for rows.Next() {
		var i Message
		if err := rows.Scan(
			&i.ID,
			&i.ListID,
			&i.ThreadID,
			&i.MessageID,
			&i.ParentID,
			&i.Subject,
			&i.FromName,
			&i.FromEmail,
			&i.Date,
			&i.Body,
			&i.IsPatch,
			&i.IsHidden,
			&i.BlobPath,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRecentMessagesAll = `-- name: ListRecentMessagesAll :many
SELECT m.id, m.list_id, m.thread_id, m.message_id, m.parent_id, m.subject, m.from_name, m.from_email, m.date, m.body, m.is_patch, m.is_hidden, m.blob_path, m.created_at
FROM messages m
JOIN lists l ON l.id = m.list_id
WHERE COALESCE(m.is_hidden, 0) = 0 AND COALESCE(l.is_hidden, 0) = 0
ORDER BY m.date DESC
LIMIT ?
`

func (q *Queries) ListRecentMessagesAll(ctx context.Context, limit int64) ([]Message, error) {
	rows, err := q.db.QueryContext(ctx, listRecentMessagesAll, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Message
	for rows.Next() {
		var i Message
		if err := rows.Scan(
			&i.ID,
			&i.ListID,
			&i.ThreadID,
			&i.MessageID,
			&i.ParentID,
			&i.Subject,
			&i.FromName,
			&i.FromEmail,
			&i.Date,
			&i.Body,
			&i.IsPatch,
			&i.IsHidden,
			&i.BlobPath,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countMessages = `-- name: CountMessages :one
SELECT COUNT(*) FROM messages
`

func (q *Queries) CountMessages(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countMessages)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countMessagesByList = `-- name: CountMessagesByList :one
SELECT COUNT(*) FROM messages WHERE list_id = ?
`

func (q *Queries) CountMessagesByList(ctx context.Context, listID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, countMessagesByList, listID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const setMessageHidden = `-- name: SetMessageHidden :exec
UPDATE messages SET is_hidden = ? WHERE id = ?
`

type SetMessageHiddenParams struct {
	IsHidden sql.NullBool
	ID       int64
}

func (q *Queries) SetMessageHidden(ctx context.Context, arg SetMessageHiddenParams) error {
	_, err := q.db.ExecContext(ctx, setMessageHidden, arg.IsHidden, arg.ID)
	return err
}

const deleteMessagesByList = `-- name: DeleteMessagesByList :exec
DELETE FROM messages WHERE list_id = ?
`

func (q *Queries) DeleteMessagesByList(ctx context.Context, listID int64) error {
	_, err := q.db.ExecContext(ctx, deleteMessagesByList, listID)
	return err
}

const searchMessages = `-- name: SearchMessages :many
SELECT m.id, m.list_id, m.thread_id, m.message_id, m.parent_id, m.subject, m.from_name, m.from_email, m.date, m.body, m.is_patch, m.is_hidden, m.blob_path, m.created_at
FROM messages_fts
JOIN messages m ON m.id = messages_fts.rowid
WHERE messages_fts MATCH ? AND m.list_id = ? AND COALESCE(m.is_hidden, 0) = 0
ORDER BY messages_fts.rank
LIMIT ?
`

type SearchMessagesParams struct {
	Query  string
	ListID int64
	Limit  int64
}

func (q *Queries) SearchMessages(ctx context.Context, arg SearchMessagesParams) ([]Message, error) {
	rows, err := q.db.QueryContext(ctx, searchMessages, arg.Query, arg.ListID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Message
	for rows.Next() {
		var i Message
		if err := rows.Scan(
			&i.ID,
			&i.ListID,
			&i.ThreadID,
			&i.MessageID,
			&i.ParentID,
			&i.Subject,
			&i.FromName,
			&i.FromEmail,
			&i.Date,
			&i.Body,
			&i.IsPatch,
			&i.IsHidden,
			&i.BlobPath,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const searchMessagesAll = `-- name: SearchMessagesAll :many
SELECT m.id, m.list_id, m.thread_id, m.message_id, m.parent_id, m.subject, m.from_name, m.from_email, m.date, m.body, m.is_patch, m.is_hidden, m.blob_path, m.created_at
FROM messages_fts
JOIN messages m ON m.id = messages_fts.rowid
WHERE messages_fts MATCH ? AND COALESCE(m.is_hidden, 0) = 0
ORDER BY messages_fts.rank
LIMIT ?
`

type SearchMessagesAllParams struct {
	Query string
	Limit int64
}

func (q *Queries) SearchMessagesAll(ctx context.Context, arg SearchMessagesAllParams) ([]Message, error) {
	rows, err := q.db.QueryContext(ctx, searchMessagesAll, arg.Query, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Message
	for rows.Next() {
		var i Message
		if err := rows.Scan(
			&i.ID,
			&i.ListID,
			&i.ThreadID,
			&i.MessageID,
			&i.ParentID,
			&i.Subject,
			&i.FromName,
			&i.FromEmail,
			&i.Date,
			&i.Body,
			&i.IsPatch,
			&i.IsHidden,
			&i.BlobPath,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const searchMessagesLike = `-- name: SearchMessagesLike :many
SELECT id, list_id, thread_id, message_id, parent_id, subject, from_name, from_email, date, body, is_patch, is_hidden, blob_path, created_at
FROM messages
WHERE list_id = ? AND COALESCE(is_hidden, 0) = 0
  AND (subject LIKE ? OR body LIKE ? OR from_name LIKE ? OR from_email LIKE ?)
ORDER BY date DESC
LIMIT ?
`

type SearchMessagesLikeParams struct {
	ListID  int64
	Pattern string
	Limit   int64
}

func (q *Queries) SearchMessagesLike(ctx context.Context, arg SearchMessagesLikeParams) ([]Message, error) {
	rows, err := q.db.QueryContext(ctx, searchMessagesLike,
		arg.ListID, arg.Pattern, arg.Pattern, arg.Pattern, arg.Pattern, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Message
	for rows.Next() {
		var i Message
		if err := rows.Scan(
			&i.ID,
			&i.ListID,
			&i.ThreadID,
			&i.MessageID,
			&i.ParentID,
			&i.Subject,
			&i.FromName,
			&i.FromEmail,
			&i.Date,
			&i.Body,
			&i.IsPatch,
			&i.IsHidden,
			&i.BlobPath,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const searchMessagesLikeAll = `-- name: SearchMessagesLikeAll :many
SELECT m.id, m.list_id, m.thread_id, m.message_id, m.parent_id, m.subject, m.from_name, m.from_email, m.date, m.body, m.is_patch, m.is_hidden, m.blob_path, m.created_at
FROM messages m
JOIN lists l ON l.id = m.list_id
WHERE COALESCE(m.is_hidden, 0) = 0 AND COALESCE(l.is_hidden, 0) = 0
  AND (m.subject LIKE ? OR m.body LIKE ? OR m.from_name LIKE ? OR m.from_email LIKE ?)
ORDER BY m.date DESC
LIMIT ?
`

type SearchMessagesLikeAllParams struct {
	Pattern string
	Limit   int64
}

func (q *Queries) SearchMessagesLikeAll(ctx context.Context, arg SearchMessagesLikeAllParams) ([]Message, error) {
	rows, err := q.db.QueryContext(ctx, searchMessagesLikeAll,
		arg.Pattern, arg.Pattern, arg.Pattern, arg.Pattern, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Message
	for rows.Next() {
		var i Message
		if err := rows.Scan(
			&i.ID,
			&i.ListID,
			&i.ThreadID,
			&i.MessageID,
			&i.ParentID,
			&i.Subject,
			&i.FromName,
			&i.FromEmail,
			&i.Date,
			&i.Body,
			&i.IsPatch,
			&i.IsHidden,
			&i.BlobPath,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
