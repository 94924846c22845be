package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"phrasedesk/internal/model"
	"phrasedesk/internal/spreadsheet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupService_RoundTrip(t *testing.T) {
	src := newFixture(t)
	ctx := context.Background()
	require.NoError(t, src.phrases.CreateBatch(ctx, []model.Phrase{
		{Company: "Acme", Reason: "Entrega", DocumentType: "Nota", Content: "Seu pedido saiu", UsageCount: 9},
		{Company: "Gupy", Reason: "Vaga", DocumentType: "Email", Content: "Recebemos seu currículo", UsageCount: 2},
		{Company: "Acme", Reason: "Pagamento", DocumentType: "Boleto", Content: "Boleto em anexo"},
	}))

	backup, err := NewBackupService(src.phrases, src.logs, src.tx, src.pub).Backup(ctx)
	require.NoError(t, err)
	raw, err := json.Marshal(backup)
	require.NoError(t, err)

	var records []model.Phrase
	require.NoError(t, json.Unmarshal(raw, &records))

	dst := newFixture(t)
	svc := NewBackupService(dst.phrases, dst.logs, dst.tx, dst.pub)
	res, err := svc.Restore(ctx, actor("root", model.RoleAdmin), records)
	require.NoError(t, err)
	assert.Equal(t, &BulkResult{Inserted: 3}, res)

	restored, err := dst.phrases.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, restored, 3)
	byContent := map[string]model.Phrase{}
	for _, p := range restored {
		byContent[p.Content] = p
		assert.Equal(t, 0, p.UsageCount)
		assert.Nil(t, p.LastUsedAt)
	}
	for _, p := range backup {
		got, ok := byContent[p.Content]
		require.True(t, ok, p.Content)
		assert.Equal(t, p.Company, got.Company)
		assert.Equal(t, p.Reason, got.Reason)
		assert.Equal(t, p.DocumentType, got.DocumentType)
	}
	assert.Equal(t, 1, dst.logCount(t, model.ActionCleanup))

	// restoring again only finds duplicates
	res, err = svc.Restore(ctx, actor("root", model.RoleAdmin), records)
	require.NoError(t, err)
	assert.Equal(t, &BulkResult{Inserted: 0, Skipped: 3}, res)
}

func TestBackupService_RestoreSkipsDuplicatesWithinUpload(t *testing.T) {
	f := newFixture(t)
	svc := NewBackupService(f.phrases, f.logs, f.tx, f.pub)

	res, err := svc.Restore(context.Background(), nil, []model.Phrase{
		{Content: "Bom dia!"},
		{Content: "bom dia"},
		{Content: ""},
		{Content: "Boa tarde"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Equal(t, 2, res.Skipped)
}

func TestBackupService_SpreadsheetImport(t *testing.T) {
	f := newFixture(t)
	svc := NewBackupService(f.phrases, f.logs, f.tx, f.pub)
	ctx := context.Background()
	require.NoError(t, f.phrases.Create(ctx, &model.Phrase{Content: "Já existe"}))

	var buf bytes.Buffer
	require.NoError(t, spreadsheet.Write(&buf, "Frases", []spreadsheet.Row{
		{Company: "acme", Reason: "entrega", Document: "nota", Content: "pedido enviado"},
		{Content: "sem categoria"},
		{Company: "x", Content: "ja existe"},
	}))

	res, err := svc.ImportSheet(ctx, actor("root", model.RoleAdmin), &buf)
	require.NoError(t, err)
	assert.Equal(t, &BulkResult{Inserted: 2, Skipped: 1}, res)

	all, err := f.phrases.ListAll(ctx)
	require.NoError(t, err)
	byContent := map[string]model.Phrase{}
	for _, p := range all {
		byContent[p.Content] = p
	}
	assert.Equal(t, "Acme", byContent["Pedido enviado"].Company)
	assert.Equal(t, "Geral", byContent["Sem categoria"].Company)
	assert.Equal(t, "Geral", byContent["Sem categoria"].DocumentType)
	assert.Equal(t, 1, f.logCount(t, model.ActionCreate))

	_, err = svc.ImportSheet(ctx, nil, bytes.NewReader([]byte("not a spreadsheet")))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestBackupService_ExportReadsBack(t *testing.T) {
	f := newFixture(t)
	svc := NewBackupService(f.phrases, f.logs, f.tx, f.pub)
	ctx := context.Background()
	require.NoError(t, f.phrases.Create(ctx, &model.Phrase{Company: "Acme", Reason: "Entrega", DocumentType: "Nota", Content: "Saiu para entrega"}))

	var buf bytes.Buffer
	require.NoError(t, svc.ExportSheet(ctx, &buf))
	rows, err := spreadsheet.Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, []spreadsheet.Row{{Company: "Acme", Reason: "Entrega", Document: "Nota", Content: "Saiu para entrega"}}, rows)
}
