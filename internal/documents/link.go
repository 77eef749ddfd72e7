package documents

import (
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultTTL = 10 * time.Minute

var ErrInvalidLink = errors.New("invalid document link")

// ViewClaims содержимое токена ссылки
type ViewClaims struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	DocumentID    uuid.UUID `json:"document_id"`
	ViewerID      int64     `json:"viewer_id"`
	jwt.RegisteredClaims
}

// Linker подписывает и проверяет ссылки на просмотр документов
type Linker struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewLinker(secret string, ttl time.Duration) *Linker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Linker{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock для тестов
func (l *Linker) WithClock(now func() time.Time) *Linker {
	l.now = now
	return l
}

func (l *Linker) TTL() time.Duration { return l.ttl }

// Issue выпускает токен, действующий ttl с текущего момента
func (l *Linker) Issue(appointmentID, documentID uuid.UUID, viewerID int64) (string, time.Time, error) {
	issuedAt := l.now()
	expiresAt := issuedAt.Add(l.ttl)

	claims := &ViewClaims{
		AppointmentID: appointmentID,
		DocumentID:    documentID,
		ViewerID:      viewerID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   documentID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign document link: %w", err)
	}
	return token, expiresAt, nil
}

// Verify проверяет подпись и срок. Просроченный токен даёт ResourceExpiredError
func (l *Linker) Verify(token string) (*ViewClaims, error) {
	claims := &ViewClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return l.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(l.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, &model.ResourceExpiredError{Resource: "document_link", ID: claims.DocumentID.String()}
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidLink
	}
	return claims, nil
}
