package contacts

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/inkstudio-platform/internal/apperr"
	"github.com/wolfman30/inkstudio-platform/internal/events"
	"github.com/wolfman30/inkstudio-platform/internal/notify"
	"github.com/wolfman30/inkstudio-platform/pkg/logging"
)

// EventPublisher receives ContactReceived events.
type EventPublisher interface {
	Dispatch(ctx context.Context, evt events.Event) error
}

// Service handles contact form submissions and admin replies.
type Service struct {
	repo   Repository
	email  notify.EmailSender
	events EventPublisher
	studio string
	logger *logging.Logger
	now    func() time.Time
}

func NewService(repo Repository, email notify.EmailSender, logger *logging.Logger) *Service {
	if repo == nil {
		panic("contacts: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = notify.NewStubEmailSender(logger)
	}
	return &Service{
		repo:   repo,
		email:  email,
		studio: "Ink Studio",
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) WithEvents(pub EventPublisher) *Service {
	s.events = pub
	return s
}

func (s *Service) WithStudioName(name string) *Service {
	if strings.TrimSpace(name) != "" {
		s.studio = strings.TrimSpace(name)
	}
	return s
}

// Create stores a contact form submission and notifies the studio.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Contact, error) {
	req.normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	c, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("contact received", "id", c.ID)

	if s.events != nil {
		evt, err := events.New(c.ID, events.ContactReceivedV1{
			ContactID: c.ID,
			Name:      c.Name,
			Email:     c.Email,
			Subject:   c.Subject,
			Message:   c.Message,
		})
		if err == nil {
			err = s.events.Dispatch(ctx, evt)
		}
		if err != nil {
			s.logger.Error("contact notification dispatch failed", "error", err, "contact_id", c.ID)
		}
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Contact, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// Reply emails replyMessage to the contact. The send is synchronous so the
// admin sees delivery failures immediately.
func (s *Service) Reply(ctx context.Context, req ReplyRequest) error {
	id := strings.TrimSpace(req.ContactID)
	message := strings.TrimSpace(req.ReplyMessage)
	if id == "" || message == "" {
		return ErrMissingFields
	}
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	subject := "Re: your message to " + s.studio
	if c.Subject != "" {
		subject = "Re: " + c.Subject
	}
	body := fmt.Sprintf("Hi %s,\n\n%s\n\n%s\n\n> %s", c.Name, message, s.studio, strings.ReplaceAll(c.Message, "\n", "\n> "))
	err = s.email.Send(ctx, notify.EmailMessage{
		To:      c.Email,
		ToName:  c.Name,
		Subject: subject,
		Body:    body,
		HTML: fmt.Sprintf("<p>Hi %s,</p><p>%s</p><p>%s</p><blockquote>%s</blockquote>",
			html.EscapeString(c.Name),
			strings.ReplaceAll(html.EscapeString(message), "\n", "<br>"),
			html.EscapeString(s.studio),
			strings.ReplaceAll(html.EscapeString(c.Message), "\n", "<br>")),
	})
	if err != nil {
		return apperr.Wrap(ErrReplyFailed, err)
	}

	if err := s.repo.MarkReplied(ctx, c.ID, s.now()); err != nil {
		s.logger.Warn("failed to record contact reply", "error", err, "contact_id", c.ID)
	}
	s.logger.Info("contact reply sent", "contact_id", c.ID)
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidID
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("contact deleted", "id", id)
	return nil
}
