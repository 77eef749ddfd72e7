package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/delegation"
	"github.com/Freeeeeet/telemed_bot/internal/documents"
	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/Freeeeeet/telemed_bot/internal/policy"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// ViewLink выданная ссылка на просмотр документа
type ViewLink struct {
	URL       string
	ExpiresAt time.Time
}

// linkKey последняя ссылка хранится на пару (зритель, документ)
type linkKey struct {
	viewerID   int64
	documentID uuid.UUID
}

// maxCachedLinks после этого порога из кеша выбрасываются истёкшие ссылки
const maxCachedLinks = 1024

type DocumentService struct {
	appointments AppointmentStore
	users        UserStore
	grants       GrantStore
	policy       *policy.Policy
	linker       *documents.Linker
	locator      *documents.Locator
	retries      uint64
	backoff      time.Duration
	logger       *zap.Logger

	mu    sync.Mutex
	links map[linkKey]ViewLink
}

func NewDocumentService(
	appointments AppointmentStore,
	users UserStore,
	grants GrantStore,
	pol *policy.Policy,
	linker *documents.Linker,
	locator *documents.Locator,
	retries int,
	logger *zap.Logger,
) *DocumentService {
	if retries < 0 {
		retries = 0
	}
	return &DocumentService{
		appointments: appointments,
		users:        users,
		grants:       grants,
		policy:       pol,
		linker:       linker,
		locator:      locator,
		retries:      uint64(retries),
		backoff:      100 * time.Millisecond,
		logger:       logger,
		links:        make(map[linkKey]ViewLink),
	}
}

// Attached документы записи, которые актор может открыть
func (s *DocumentService) Attached(ctx context.Context, actor policy.Actor, appointmentID uuid.UUID) ([]model.DocumentRef, error) {
	a, err := s.viewable(ctx, actor, appointmentID)
	if err != nil {
		return nil, err
	}
	return a.Documents, nil
}

// Open отдаёт ссылку на документ. Повторное открытие возвращает ранее выданную ссылку,
// пока она действует. Истёкшая ссылка перевыпускается не больше retries раз,
// после чего возвращается постоянная ResourceExpiredError
func (s *DocumentService) Open(ctx context.Context, actor policy.Actor, appointmentID, documentID uuid.UUID) (ViewLink, error) {
	a, err := s.viewable(ctx, actor, appointmentID)
	if err != nil {
		return ViewLink{}, err
	}
	if !hasDocument(a, documentID) {
		return ViewLink{}, fmt.Errorf("document %s: %w", documentID, model.ErrNotFound)
	}

	key := linkKey{viewerID: actor.ID(), documentID: documentID}
	link, cached := s.cachedLink(key)

	attempt := 0
	b := retry.WithMaxRetries(s.retries, retry.NewConstant(s.backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if !cached {
			token, expiresAt, err := s.linker.Issue(appointmentID, documentID, actor.ID())
			if err != nil {
				return err
			}
			link = ViewLink{URL: s.locator.ViewURL(token), ExpiresAt: expiresAt}
		}

		if _, _, err := s.locator.Locate(tokenOf(link.URL)); err != nil {
			if errors.Is(err, model.ErrResourceExpired) {
				s.logger.Debug("Document link expired, reissuing",
					zap.String("document_id", documentID.String()),
					zap.Int("attempt", attempt))
				s.forgetLink(key)
				cached = false
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrResourceExpired) {
			return ViewLink{}, &model.ResourceExpiredError{Resource: "document_link", ID: documentID.String(), Permanent: true}
		}
		return ViewLink{}, fmt.Errorf("issue document link: %w", err)
	}

	if !cached {
		s.rememberLink(key, link)
		s.logger.Info("Document link issued",
			zap.String("appointment_id", appointmentID.String()),
			zap.String("document_id", documentID.String()),
			zap.Int64("actor_id", actor.ID()),
			zap.Int("attempts", attempt),
			zap.Time("expires_at", link.ExpiresAt))
	}
	return link, nil
}

// Resolve проверяет токен из ссылки и заново применяет правило видимости документов:
// ссылка, выданная до отмены или завершения записи, больше не открывается
func (s *DocumentService) Resolve(ctx context.Context, token string) (string, error) {
	location, claims, err := s.locator.Locate(token)
	if err != nil {
		return "", err
	}

	viewer, err := s.viewerActor(ctx, claims.ViewerID)
	if err != nil {
		return "", err
	}
	a, err := s.viewable(ctx, viewer, claims.AppointmentID)
	if err != nil {
		return "", err
	}
	if !hasDocument(a, claims.DocumentID) {
		return "", fmt.Errorf("document %s: %w", claims.DocumentID, model.ErrNotFound)
	}

	s.logger.Debug("Document link redeemed",
		zap.String("document_id", claims.DocumentID.String()),
		zap.Int64("viewer_id", claims.ViewerID))
	return location, nil
}

// viewerActor актор владельца ссылки с его текущими грантами и ролью
func (s *DocumentService) viewerActor(ctx context.Context, accountID int64) (policy.Actor, error) {
	user, err := s.users.GetByID(ctx, accountID)
	if err != nil {
		return policy.Actor{}, fmt.Errorf("get viewer: %w", err)
	}
	if user == nil {
		return policy.Actor{}, &model.PermissionDeniedError{ActorID: accountID, Capability: "view_records"}
	}
	grants, err := s.grants.ListForMember(ctx, accountID)
	if err != nil {
		return policy.Actor{}, fmt.Errorf("list viewer grants: %w", err)
	}
	role := model.RolePatient
	if user.IsDoctor() {
		role = model.RoleDoctor
	}
	return policy.Actor{Resolver: delegation.NewResolver(accountID, grants), Role: role}, nil
}

func (s *DocumentService) cachedLink(key linkKey) (ViewLink, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	link, ok := s.links[key]
	return link, ok
}

func (s *DocumentService) rememberLink(key linkKey, link ViewLink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.links) >= maxCachedLinks {
		now := time.Now()
		for k, l := range s.links {
			if !l.ExpiresAt.After(now) {
				delete(s.links, k)
			}
		}
	}
	s.links[key] = link
}

func (s *DocumentService) forgetLink(key linkKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.links, key)
}

// tokenOf достаёт токен из публичной ссылки
func tokenOf(viewURL string) string {
	u, err := url.Parse(viewURL)
	if err != nil {
		return ""
	}
	return u.Query().Get("token")
}

func (s *DocumentService) viewable(ctx context.Context, actor policy.Actor, appointmentID uuid.UUID) (*model.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("appointment %s: %w", appointmentID, model.ErrNotFound)
	}
	if !s.policy.CanViewDocuments(*a, actor) {
		return nil, &model.PermissionDeniedError{ActorID: actor.ID(), PatientID: a.PatientID, Capability: "view_records"}
	}
	return a, nil
}

func hasDocument(a *model.Appointment, documentID uuid.UUID) bool {
	for _, d := range a.Documents {
		if d.DocumentID == documentID {
			return true
		}
	}
	return false
}
