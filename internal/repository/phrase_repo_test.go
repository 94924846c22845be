package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"phrasedesk/internal/model"
	"phrasedesk/internal/repository"
	"phrasedesk/internal/testdb"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPhraseRepository_ListAllOrdersByUsage(t *testing.T) {
	db := testdb.New(t)
	repo := repository.NewPhraseRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateBatch(ctx, []model.Phrase{
		{Content: "a", UsageCount: 1},
		{Content: "b", UsageCount: 5},
		{Content: "c", UsageCount: 5},
	}))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{all[0].Content, all[1].Content, all[2].Content})
}

func TestPhraseRepository_RecordUsage(t *testing.T) {
	db := testdb.New(t)
	repo := repository.NewPhraseRepository(db)
	ctx := context.Background()

	p := &model.Phrase{Content: "Olá"}
	require.NoError(t, repo.Create(ctx, p))

	at := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.RecordUsage(ctx, p.ID, at))
	}

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.UsageCount)
	require.NotNil(t, got.LastUsedAt)
	assert.True(t, got.LastUsedAt.Equal(at))

	err = repo.RecordUsage(ctx, 9999, at)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestTransactionManager_Rollback(t *testing.T) {
	db := testdb.New(t)
	tx := repository.NewTransactionManager(db)
	phrases := repository.NewPhraseRepository(db)
	logs := repository.NewActivityRepository(db)
	ctx := context.Background()

	err := tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := logs.Log(txCtx, &model.LogEntry{Username: "ana", Action: model.ActionCopy, Detail: "42"}); err != nil {
			return err
		}
		return phrases.RecordUsage(txCtx, 42, time.Now())
	})
	require.Error(t, err)

	copies, err := logs.ListSince(ctx, time.Time{}, model.ActionCopy)
	require.NoError(t, err)
	assert.Empty(t, copies)
}

func TestActivityRepository_ListRecentResolvesNames(t *testing.T) {
	db := testdb.New(t)
	users := repository.NewUserRepository(db)
	logs := repository.NewActivityRepository(db)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &model.User{Username: "ana", Password: "x", DisplayName: "Ana Souza", Role: model.RoleAdmin, Active: true}))

	base := time.Now().Add(-time.Hour)
	require.NoError(t, logs.Log(ctx, &model.LogEntry{Username: "ana", Action: model.ActionLogin, CreatedAt: base}))
	require.NoError(t, logs.Log(ctx, &model.LogEntry{Username: "ghost", Action: model.ActionCopy, Detail: "1", CreatedAt: base.Add(time.Minute)}))

	rows, err := logs.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "ghost", rows[0].Username)
	assert.Equal(t, "", rows[0].DisplayName)
	assert.Equal(t, "Ana Souza", rows[1].DisplayName)
	assert.Equal(t, model.RoleAdmin, rows[1].Role)

	since, err := logs.ListSince(ctx, base.Add(30*time.Second), model.ActionCopy)
	require.NoError(t, err)
	require.Len(t, since, 1)
	assert.Equal(t, model.ActionCopy, since[0].Action)
}

func TestUserRepository_ListOrdersByDisplayName(t *testing.T) {
	db := testdb.New(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	for _, u := range []model.User{
		{Username: "zed", DisplayName: "Beatriz", Role: model.RoleCollaborator, Password: "x", Active: true},
		{Username: "carl", Role: model.RoleCollaborator, Password: "x", Active: false},
		{Username: "bob", DisplayName: "Ana", Role: model.RoleAdmin, Password: "x", Active: true},
	} {
		u := u
		require.NoError(t, repo.Create(ctx, &u))
	}

	page, total, err := repo.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "bob", page[0].Username)
	assert.Equal(t, "zed", page[1].Username)

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestChatRepository_ListLatestIsOldestFirst(t *testing.T) {
	db := testdb.New(t)
	repo := repository.NewChatRepository(db)
	ctx := context.Background()

	for _, body := range []string{"1", "2", "3"} {
		require.NoError(t, repo.Create(ctx, &model.ChatMessage{Username: "ana", Body: body, Type: model.MessageTypeText}))
	}

	latest, err := repo.ListLatest(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "2", latest[0].Body)
	assert.Equal(t, "3", latest[1].Body)

	after, err := repo.ListAfter(ctx, latest[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, "3", after[0].Body)
}
