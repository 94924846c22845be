package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"phrasedesk/internal/library"
	"phrasedesk/internal/model"
	"phrasedesk/internal/realtime"
	"phrasedesk/internal/repository"
	"phrasedesk/internal/session"
	"phrasedesk/internal/usage"

	"gorm.io/gorm"
)

type PhraseRequest struct {
	Company      string `json:"company"`
	Reason       string `json:"reason"`
	DocumentType string `json:"document_type"`
	Content      string `json:"content"`
}

// CopyResult is returned before the usage write lands
type CopyResult struct {
	ID         uint   `json:"id"`
	Content    string `json:"content"`
	UsageCount int    `json:"usage_count"` // optimistic, current + 1
	Recorded   bool   `json:"recorded"`    // false when the event was dropped
}

// UsageRecorder accepts copy events for background accounting
type UsageRecorder interface {
	Record(ev usage.Event) bool
}

type PhraseService interface {
	Browse(ctx context.Context, q library.Query) (*library.Result, error)
	Get(ctx context.Context, id uint) (*model.Phrase, error)
	Create(ctx context.Context, actor *session.Session, req PhraseRequest) (*model.Phrase, error)
	Update(ctx context.Context, actor *session.Session, id uint, req PhraseRequest) (*model.Phrase, error)
	Delete(ctx context.Context, actor *session.Session, id uint) error
	Copy(ctx context.Context, actor *session.Session, id uint) (*CopyResult, error)
}

type phraseService struct {
	phrases  repository.PhraseRepository
	tx       repository.TransactionManager
	recorder UsageRecorder
	journal  journal
	topK     int
}

func NewPhraseService(phrases repository.PhraseRepository, logs repository.ActivityRepository, tx repository.TransactionManager, recorder UsageRecorder, pub realtime.Publisher, topK int) PhraseService {
	return &phraseService{
		phrases:  phrases,
		tx:       tx,
		recorder: recorder,
		journal:  newJournal(logs, pub),
		topK:     topK,
	}
}

func (s *phraseService) Browse(ctx context.Context, q library.Query) (*library.Result, error) {
	all, err := s.phrases.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list phrases: %w", err)
	}
	res := library.NewIndex(all).Apply(q, s.topK)
	return &res, nil
}

func (s *phraseService) Get(ctx context.Context, id uint) (*model.Phrase, error) {
	p, err := s.phrases.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPhraseNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load phrase: %w", err)
	}
	return p, nil
}

// format applies the stored casing rules to a request
func format(req PhraseRequest) (PhraseRequest, error) {
	out := PhraseRequest{
		Company:      library.TitleCase(req.Company),
		Reason:       library.TitleCase(req.Reason),
		DocumentType: library.TitleCase(req.DocumentType),
		Content:      library.CleanContent(req.Content),
	}
	if out.Content == "" {
		return out, ErrContentRequired
	}
	return out, nil
}

// ensureUnique rejects content whose fingerprint matches another phrase.
// exceptID is the phrase being edited, 0 on create.
func (s *phraseService) ensureUnique(ctx context.Context, content string, exceptID uint) error {
	all, err := s.phrases.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("list phrases: %w", err)
	}
	fp := library.Fingerprint(content)
	for _, p := range all {
		if p.ID != exceptID && library.Fingerprint(p.Content) == fp {
			return ErrDuplicatePhrase
		}
	}
	return nil
}

func (s *phraseService) Create(ctx context.Context, actor *session.Session, req PhraseRequest) (*model.Phrase, error) {
	req, err := format(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, req.Content, 0); err != nil {
		return nil, err
	}

	phrase := &model.Phrase{
		Company:      req.Company,
		Reason:       req.Reason,
		DocumentType: req.DocumentType,
		Content:      req.Content,
		ReviewedBy:   actorName(actor),
	}
	b := s.journal.begin()
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.phrases.Create(txCtx, phrase); err != nil {
			return err
		}
		return b.log(txCtx, actorName(actor), model.ActionCreate, phraseDetail(phrase.ID))
	})
	if err != nil {
		return nil, fmt.Errorf("create phrase: %w", err)
	}
	b.add(realtime.TablePhrases, realtime.Insert, phrase)
	b.publish()
	return phrase, nil
}

func (s *phraseService) Update(ctx context.Context, actor *session.Session, id uint, req PhraseRequest) (*model.Phrase, error) {
	phrase, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	req, err = format(req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, req.Content, id); err != nil {
		return nil, err
	}

	phrase.Company = req.Company
	phrase.Reason = req.Reason
	phrase.DocumentType = req.DocumentType
	phrase.Content = req.Content
	phrase.ReviewedBy = actorName(actor)

	b := s.journal.begin()
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.phrases.Update(txCtx, phrase); err != nil {
			return err
		}
		return b.log(txCtx, actorName(actor), model.ActionEdit, phraseDetail(id))
	})
	if err != nil {
		return nil, fmt.Errorf("update phrase: %w", err)
	}
	b.add(realtime.TablePhrases, realtime.Update, phrase)
	b.publish()
	return phrase, nil
}

func (s *phraseService) Delete(ctx context.Context, actor *session.Session, id uint) error {
	return s.remove(ctx, actor, id, model.ActionDelete)
}

// remove deletes a phrase and logs action in one transaction
func (s *phraseService) remove(ctx context.Context, actor *session.Session, id uint, action model.Action) error {
	b := s.journal.begin()
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.phrases.Delete(txCtx, id); err != nil {
			return err
		}
		return b.log(txCtx, actorName(actor), action, phraseDetail(id))
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrPhraseNotFound
	}
	if err != nil {
		return fmt.Errorf("delete phrase: %w", err)
	}
	b.add(realtime.TablePhrases, realtime.Delete, map[string]uint{"id": id})
	b.publish()
	return nil
}

// Copy is called after the client's clipboard write succeeded. The count
// returned is optimistic; the write itself is best-effort.
func (s *phraseService) Copy(ctx context.Context, actor *session.Session, id uint) (*CopyResult, error) {
	phrase, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	recorded := s.recorder.Record(usage.Event{PhraseID: id, Username: actorName(actor), At: time.Now()})
	return &CopyResult{
		ID:         phrase.ID,
		Content:    phrase.Content,
		UsageCount: phrase.UsageCount + 1,
		Recorded:   recorded,
	}, nil
}

func phraseDetail(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
