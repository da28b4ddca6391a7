package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/fixitlabs/fixit-backend/pkg/db/models"
	"github.com/fixitlabs/fixit-backend/pkg/enums"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  user_role TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  link TEXT,
  read_at DATETIME,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)

	return db
}

func seedNotification(t *testing.T, db *gorm.DB, userID uuid.UUID, createdAt time.Time, readAt *time.Time) models.Notification {
	t.Helper()

	n := models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		UserRole:  enums.ActorRoleCustomer,
		Type:      enums.NotificationTypeOrderAlert,
		Title:     "Order update",
		Message:   "Your order moved forward",
		ReadAt:    readAt,
		CreatedAt: createdAt,
	}
	require.NoError(t, db.Create(&n).Error)
	return n
}

func TestRepositoryListPaginates(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	base := time.Now().UTC().Truncate(time.Second)
	oldest := seedNotification(t, db, userID, base.Add(-3*time.Minute), nil)
	middle := seedNotification(t, db, userID, base.Add(-2*time.Minute), nil)
	newest := seedNotification(t, db, userID, base.Add(-1*time.Minute), nil)

	page, cursor, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotNil(t, cursor)
	assert.Equal(t, newest.ID, page[0].ID)
	assert.Equal(t, middle.ID, page[1].ID)

	rest, next, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 2, Cursor: cursor})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, oldest.ID, rest[0].ID)
	assert.Nil(t, next)
}

func TestRepositoryListUnreadOnly(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	now := time.Now().UTC()
	readAt := now.Add(-time.Minute)
	seedNotification(t, db, userID, now.Add(-2*time.Minute), &readAt)
	unread := seedNotification(t, db, userID, now.Add(-1*time.Minute), nil)

	page, cursor, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 10, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, unread.ID, page[0].ID)
	assert.Nil(t, cursor)
}

func TestRepositoryListScopedToUser(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	seedNotification(t, db, uuid.New(), time.Now().UTC(), nil)
	mine := seedNotification(t, db, userID, time.Now().UTC(), nil)

	page, _, err := repo.List(ctx, listNotificationsParams{UserID: userID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, mine.ID, page[0].ID)
}

func TestRepositoryMarkRead(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	n := seedNotification(t, db, userID, time.Now().UTC(), nil)
	now := time.Now().UTC()

	found, err := repo.MarkRead(ctx, userID, n.ID, now)
	require.NoError(t, err)
	assert.True(t, found)

	var stored models.Notification
	require.NoError(t, db.First(&stored, "id = ?", n.ID).Error)
	require.NotNil(t, stored.ReadAt)

	// marking again is a no-op but still reports the row as found
	found, err = repo.MarkRead(ctx, userID, n.ID, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.MarkRead(ctx, uuid.New(), n.ID, now)
	require.NoError(t, err)
	assert.False(t, found)
}
