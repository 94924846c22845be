package service

import (
	"context"
	"fmt"
	"io"

	"phrasedesk/internal/library"
	"phrasedesk/internal/model"
	"phrasedesk/internal/realtime"
	"phrasedesk/internal/repository"
	"phrasedesk/internal/session"
	"phrasedesk/internal/spreadsheet"

	"github.com/rs/zerolog/log"
)

const (
	batchSize       = 50
	defaultCategory = "Geral"
)

// BulkResult summarises a restore or an import
type BulkResult struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}

type BackupService interface {
	Backup(ctx context.Context) ([]model.Phrase, error)
	Restore(ctx context.Context, actor *session.Session, records []model.Phrase) (*BulkResult, error)
	ExportSheet(ctx context.Context, w io.Writer) error
	Template(w io.Writer) error
	ImportSheet(ctx context.Context, actor *session.Session, r io.Reader) (*BulkResult, error)
}

type backupService struct {
	phrases repository.PhraseRepository
	tx      repository.TransactionManager
	journal journal
}

func NewBackupService(phrases repository.PhraseRepository, logs repository.ActivityRepository, tx repository.TransactionManager, pub realtime.Publisher) BackupService {
	return &backupService{phrases: phrases, tx: tx, journal: newJournal(logs, pub)}
}

func (s *backupService) Backup(ctx context.Context) ([]model.Phrase, error) {
	all, err := s.phrases.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list phrases: %w", err)
	}
	return all, nil
}

// dedup tracks fingerprints already present or accepted earlier in the upload
type dedup map[string]struct{}

func (s *backupService) existing(ctx context.Context) (dedup, error) {
	all, err := s.phrases.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list phrases: %w", err)
	}
	seen := make(dedup, len(all))
	for _, p := range all {
		seen[library.Fingerprint(p.Content)] = struct{}{}
	}
	return seen, nil
}

// admit reports whether content is new and remembers it
func (d dedup) admit(content string) bool {
	fp := library.Fingerprint(content)
	if _, dup := d[fp]; dup {
		return false
	}
	d[fp] = struct{}{}
	return true
}

// Restore inserts a backup as new rows: ids dropped, usage reset, duplicates
// skipped. The whole restore is one transaction.
func (s *backupService) Restore(ctx context.Context, actor *session.Session, records []model.Phrase) (*BulkResult, error) {
	seen, err := s.existing(ctx)
	if err != nil {
		return nil, err
	}

	res := &BulkResult{}
	fresh := make([]model.Phrase, 0, len(records))
	for _, rec := range records {
		req, err := format(PhraseRequest{Company: rec.Company, Reason: rec.Reason, DocumentType: rec.DocumentType, Content: rec.Content})
		if err != nil || !seen.admit(req.Content) {
			res.Skipped++
			continue
		}
		fresh = append(fresh, model.Phrase{
			Company:      req.Company,
			Reason:       req.Reason,
			DocumentType: req.DocumentType,
			Content:      req.Content,
			ReviewedBy:   rec.ReviewedBy,
		})
	}

	b := s.journal.begin()
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		for start := 0; start < len(fresh); start += batchSize {
			end := min(start+batchSize, len(fresh))
			if err := s.phrases.CreateBatch(txCtx, fresh[start:end]); err != nil {
				return err
			}
		}
		return b.log(txCtx, actorName(actor), model.ActionCleanup, fmt.Sprintf("Restaurou backup (%d itens)", len(fresh)))
	})
	if err != nil {
		return nil, fmt.Errorf("restore backup: %w", err)
	}
	res.Inserted = len(fresh)

	for i := range fresh {
		b.add(realtime.TablePhrases, realtime.Insert, &fresh[i])
	}
	b.publish()
	return res, nil
}

func (s *backupService) ExportSheet(ctx context.Context, w io.Writer) error {
	all, err := s.phrases.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list phrases: %w", err)
	}
	rows := make([]spreadsheet.Row, 0, len(all))
	for _, p := range all {
		rows = append(rows, spreadsheet.Row{Company: p.Company, Reason: p.Reason, Document: p.DocumentType, Content: p.Content})
	}
	return spreadsheet.Write(w, "Frases", rows)
}

func (s *backupService) Template(w io.Writer) error {
	return spreadsheet.Template(w)
}

// ImportSheet loads the first sheet. A failing batch is logged and skipped;
// the rest of the import continues.
func (s *backupService) ImportSheet(ctx context.Context, actor *session.Session, r io.Reader) (*BulkResult, error) {
	rows, err := spreadsheet.Read(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidPayload, err.Error())
	}
	seen, err := s.existing(ctx)
	if err != nil {
		return nil, err
	}

	res := &BulkResult{}
	fresh := make([]model.Phrase, 0, len(rows))
	for _, row := range rows {
		content := library.CleanContent(row.Content)
		if content == "" || !seen.admit(content) {
			res.Skipped++
			continue
		}
		fresh = append(fresh, model.Phrase{
			Company:      library.CategoryOr(row.Company, defaultCategory),
			Reason:       library.CategoryOr(row.Reason, defaultCategory),
			DocumentType: library.CategoryOr(row.Document, defaultCategory),
			Content:      content,
			ReviewedBy:   actorName(actor),
		})
	}

	b := s.journal.begin()
	for start := 0; start < len(fresh); start += batchSize {
		chunk := fresh[start:min(start+batchSize, len(fresh))]
		if err := s.phrases.CreateBatch(ctx, chunk); err != nil {
			log.Warn().Err(err).Int("offset", start).Int("size", len(chunk)).Msg("spreadsheet batch failed, skipping")
			res.Skipped += len(chunk)
			continue
		}
		res.Inserted += len(chunk)
		for i := range chunk {
			b.add(realtime.TablePhrases, realtime.Insert, &chunk[i])
		}
	}

	if res.Inserted > 0 {
		if err := b.log(ctx, actorName(actor), model.ActionCreate, fmt.Sprintf("Importação em massa: %d frases", res.Inserted)); err != nil {
			log.Warn().Err(err).Msg("failed to log spreadsheet import")
		}
	}
	b.publish()
	return res, nil
}
