package content

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recordColumns = []string{"id", "user_id", "profile_id", "type", "title", "content_data", "created_at", "updated_at"}

func newMockStore(t *testing.T) (*DBStore, sqlmock.Sqlmock, time.Time) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewDBStore(sqlx.NewDb(db, "mysql"))
	store.now = func() time.Time { return now }
	return store, mock, now
}

func TestDBStore_Upsert(t *testing.T) {
	updateQuery := regexp.QuoteMeta("UPDATE content_records SET profile_id = ?, title = ?, content_data = ?, updated_at = ? WHERE id = ? AND user_id = ? AND type = ?")
	insertQuery := regexp.QuoteMeta("INSERT INTO content_records (id, user_id, profile_id, type, title, content_data, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)")
	data := []byte(`{"parts":[]}`)

	tests := []struct {
		name      string
		draft     Draft
		setupMock func(mock sqlmock.Sqlmock, now time.Time)
		want      string
		wantErr   string
	}{
		{
			name:  "updates an existing record",
			draft: Draft{ID: "story-1", OwnerID: "user-1", ProfileID: "child-1", Type: TypeStory, Title: "החתול בחלל", Data: data},
			setupMock: func(mock sqlmock.Sqlmock, now time.Time) {
				mock.ExpectExec(updateQuery).
					WithArgs("child-1", "החתול בחלל", string(data), now, "story-1", "user-1", "story").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			want: "story-1",
		},
		{
			name:  "inserts with the given id when nothing was updated",
			draft: Draft{ID: "story-1", OwnerID: "user-1", Type: TypeStory, Title: "החתול בחלל", Data: data},
			setupMock: func(mock sqlmock.Sqlmock, now time.Time) {
				mock.ExpectExec(updateQuery).
					WithArgs(nil, "החתול בחלל", string(data), now, "story-1", "user-1", "story").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(insertQuery).
					WithArgs("story-1", "user-1", nil, "story", "החתול בחלל", string(data), now, now).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			want: "story-1",
		},
		{
			name:    "rejects an unknown type",
			draft:   Draft{ID: "x", OwnerID: "user-1", Type: "poem", Data: data},
			wantErr: `unknown content type "poem"`,
		},
		{
			name:    "requires an owner",
			draft:   Draft{ID: "x", Type: TypeStory, Data: data},
			wantErr: "content owner is required",
		},
		{
			name:  "insert failure",
			draft: Draft{ID: "story-1", OwnerID: "user-1", Type: TypeStory, Data: data},
			setupMock: func(mock sqlmock.Sqlmock, now time.Time) {
				mock.ExpectExec(updateQuery).WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectExec(insertQuery).WillReturnError(errors.New("duplicate entry"))
			},
			wantErr: "insert content story-1: duplicate entry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock, now := newMockStore(t)
			if tt.setupMock != nil {
				tt.setupMock(mock, now)
			}

			got, err := store.Upsert(context.Background(), tt.draft)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBStore_Upsert_NewID(t *testing.T) {
	store, mock, _ := newMockStore(t)
	mock.ExpectExec("INSERT INTO content_records").WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := store.Upsert(context.Background(), Draft{OwnerID: "user-1", Type: TypeWorkbook, Data: []byte(`{}`)})
	require.NoError(t, err)
	assert.Len(t, got, 36)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBStore_Load(t *testing.T) {
	query := regexp.QuoteMeta(selectColumns + " WHERE id = ? AND user_id = ?")

	t.Run("found", func(t *testing.T) {
		store, mock, now := newMockStore(t)
		mock.ExpectQuery(query).WithArgs("story-1", "user-1").
			WillReturnRows(sqlmock.NewRows(recordColumns).
				AddRow("story-1", "user-1", "child-1", "story", "החתול בחלל", []byte(`{"parts":[]}`), now, now))

		got, err := store.Load(context.Background(), "story-1", "user-1")
		require.NoError(t, err)
		assert.Equal(t, &Record{
			ID:          "story-1",
			UserID:      "user-1",
			ProfileID:   "child-1",
			Type:        TypeStory,
			Title:       "החתול בחלל",
			ContentData: []byte(`{"parts":[]}`),
			CreatedAt:   now,
			UpdatedAt:   now,
		}, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other owner", func(t *testing.T) {
		store, mock, _ := newMockStore(t)
		mock.ExpectQuery(query).WithArgs("story-1", "user-2").
			WillReturnRows(sqlmock.NewRows(recordColumns))

		_, err := store.Load(context.Background(), "story-1", "user-2")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDBStore_List(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		query  string
		args   []driver.Value
	}{
		{
			name:  "all records",
			query: selectColumns + " WHERE user_id = ? ORDER BY updated_at DESC",
			args:  []driver.Value{"user-1"},
		},
		{
			name:   "by type and profile",
			filter: Filter{Type: TypeLearningPlan, ProfileID: "child-1"},
			query:  selectColumns + " WHERE user_id = ? AND type = ? AND profile_id = ? ORDER BY updated_at DESC",
			args:   []driver.Value{"user-1", "learning_plan", "child-1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, mock, now := newMockStore(t)
			mock.ExpectQuery(regexp.QuoteMeta(tt.query)).WithArgs(tt.args...).
				WillReturnRows(sqlmock.NewRows(recordColumns).
					AddRow("plan-1", "user-1", "child-1", "learning_plan", "שברים", []byte(`{}`), now, now))

			got, err := store.List(context.Background(), "user-1", tt.filter)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, TypeLearningPlan, got[0].Type)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
