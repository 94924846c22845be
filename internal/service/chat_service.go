package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"phrasedesk/internal/model"
	"phrasedesk/internal/realtime"
	"phrasedesk/internal/repository"
	"phrasedesk/internal/session"
	"phrasedesk/internal/storage"
)

const (
	defaultChatPage = 50
	maxChatPage     = 200
)

type SendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// Attachment is an uploaded blob; Kind is file or audio
type Attachment struct {
	Name        string
	ContentType string
	Size        int64
	Kind        string
	Caption     string
	Body        io.Reader
}

type ChatService interface {
	// List returns messages above afterID ascending, or the latest page when afterID is 0
	List(ctx context.Context, afterID uint, limit int) ([]model.ChatMessage, error)
	Send(ctx context.Context, actor *session.Session, req SendMessageRequest) (*model.ChatMessage, error)
	Attach(ctx context.Context, actor *session.Session, att Attachment) (*model.ChatMessage, error)
}

type chatService struct {
	messages repository.ChatRepository
	store    storage.ObjectStore
	pub      realtime.Publisher
	maxBytes int64
	now      func() time.Time
}

func NewChatService(messages repository.ChatRepository, store storage.ObjectStore, pub realtime.Publisher, maxBytes int64) ChatService {
	if pub == nil {
		pub = realtime.Discard{}
	}
	return &chatService{messages: messages, store: store, pub: pub, maxBytes: maxBytes, now: time.Now}
}

func (s *chatService) List(ctx context.Context, afterID uint, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = defaultChatPage
	}
	if limit > maxChatPage {
		limit = maxChatPage
	}
	var (
		msgs []model.ChatMessage
		err  error
	)
	if afterID > 0 {
		msgs, err = s.messages.ListAfter(ctx, afterID, limit)
	} else {
		msgs, err = s.messages.ListLatest(ctx, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	if msgs == nil {
		msgs = []model.ChatMessage{}
	}
	return msgs, nil
}

func (s *chatService) Send(ctx context.Context, actor *session.Session, req SendMessageRequest) (*model.ChatMessage, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, ErrMessageEmpty
	}
	return s.insert(ctx, actor, &model.ChatMessage{Body: body, Type: model.MessageTypeText})
}

// Attach uploads the blob first; the message row is written only after the
// upload succeeded.
func (s *chatService) Attach(ctx context.Context, actor *session.Session, att Attachment) (*model.ChatMessage, error) {
	kind := strings.ToLower(strings.TrimSpace(att.Kind))
	if kind == "" {
		kind = model.MessageTypeFile
	}
	if kind != model.MessageTypeFile && kind != model.MessageTypeAudio {
		return nil, ErrInvalidPayload
	}
	if att.Body == nil {
		return nil, ErrInvalidPayload
	}
	if s.maxBytes > 0 && att.Size > s.maxBytes {
		return nil, ErrAttachmentTooLarge
	}

	body := att.Body
	if s.maxBytes > 0 {
		body = io.LimitReader(att.Body, s.maxBytes)
	}
	name := att.Name
	if name == "" {
		name = kind
	}
	url, err := s.store.Upload(ctx, storage.ObjectPath("chat", name, s.now()), body, att.ContentType)
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}

	return s.insert(ctx, actor, &model.ChatMessage{
		Body:           strings.TrimSpace(att.Caption),
		Type:           kind,
		AttachmentURL:  url,
		AttachmentName: name,
	})
}

func (s *chatService) insert(ctx context.Context, actor *session.Session, msg *model.ChatMessage) (*model.ChatMessage, error) {
	msg.Username = actorName(actor)
	if actor != nil {
		msg.Role = actor.Role
	}
	msg.CreatedAt = s.now()
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}
	s.pub.Publish(realtime.Event{Table: realtime.TableChat, Type: realtime.Insert, Record: msg, At: msg.CreatedAt})
	return msg, nil
}
