package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type DBStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewDBStore(db *sqlx.DB) *DBStore {
	return &DBStore{db: db, now: time.Now}
}

type recordRow struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	ProfileID   string    `db:"profile_id"`
	Type        string    `db:"type"`
	Title       string    `db:"title"`
	ContentData []byte    `db:"content_data"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (row recordRow) toRecord() Record {
	return Record{
		ID:          row.ID,
		UserID:      row.UserID,
		ProfileID:   row.ProfileID,
		Type:        Type(row.Type),
		Title:       row.Title,
		ContentData: row.ContentData,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
}

const selectColumns = "SELECT id, user_id, COALESCE(profile_id, '') AS profile_id, type, title, content_data, created_at, updated_at FROM content_records"

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *DBStore) Upsert(ctx context.Context, draft Draft) (string, error) {
	if !draft.Type.Valid() {
		return "", fmt.Errorf("unknown content type %q", draft.Type)
	}
	if draft.OwnerID == "" {
		return "", errors.New("content owner is required")
	}
	now := s.now().UTC()

	if draft.ID != "" {
		result, err := s.db.ExecContext(ctx,
			s.db.Rebind("UPDATE content_records SET profile_id = ?, title = ?, content_data = ?, updated_at = ? WHERE id = ? AND user_id = ? AND type = ?"),
			nullable(draft.ProfileID), draft.Title, string(draft.Data), now, draft.ID, draft.OwnerID, string(draft.Type),
		)
		if err != nil {
			return "", fmt.Errorf("update content %s: %w", draft.ID, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return "", fmt.Errorf("update content %s: %w", draft.ID, err)
		}
		if affected > 0 {
			return draft.ID, nil
		}
	} else {
		draft.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO content_records (id, user_id, profile_id, type, title, content_data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"),
		draft.ID, draft.OwnerID, nullable(draft.ProfileID), string(draft.Type), draft.Title, string(draft.Data), now, now,
	)
	if err != nil {
		return "", fmt.Errorf("insert content %s: %w", draft.ID, err)
	}
	return draft.ID, nil
}

func (s *DBStore) Load(ctx context.Context, id, ownerID string) (*Record, error) {
	var row recordRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(selectColumns+" WHERE id = ? AND user_id = ?"), id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("select content %s: %w", id, err)
	}
	record := row.toRecord()
	return &record, nil
}

func (s *DBStore) List(ctx context.Context, ownerID string, filter Filter) ([]Record, error) {
	conditions := []string{"user_id = ?"}
	args := []any{ownerID}
	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.ProfileID != "" {
		conditions = append(conditions, "profile_id = ?")
		args = append(args, filter.ProfileID)
	}
	query := selectColumns + " WHERE " + strings.Join(conditions, " AND ") + " ORDER BY updated_at DESC"

	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select content list: %w", err)
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}
