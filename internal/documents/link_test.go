package documents

import (
	"testing"
	"time"

	"github.com/Freeeeeet/telemed_bot/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndVerify(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	l := NewLinker("secret", 10*time.Minute).WithClock(func() time.Time { return now })
	appt, doc := uuid.New(), uuid.New()

	token, expiresAt, err := l.Issue(appt, doc, 42)
	require.NoError(t, err)
	assert.Equal(t, now.Add(10*time.Minute), expiresAt)

	claims, err := l.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, appt, claims.AppointmentID)
	assert.Equal(t, doc, claims.DocumentID)
	assert.Equal(t, int64(42), claims.ViewerID)
}

func TestVerifyExpiredIsRetryable(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	l := NewLinker("secret", 10*time.Minute).WithClock(func() time.Time { return now })
	doc := uuid.New()

	token, _, err := l.Issue(uuid.New(), doc, 1)
	require.NoError(t, err)

	now = now.Add(11 * time.Minute)
	_, err = l.Verify(token)

	var expired *model.ResourceExpiredError
	require.ErrorAs(t, err, &expired)
	assert.Equal(t, doc.String(), expired.ID)
	assert.True(t, model.IsRetryable(err))
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	token, _, err := NewLinker("one", time.Minute).Issue(uuid.New(), uuid.New(), 1)
	require.NoError(t, err)

	_, err = NewLinker("two", time.Minute).Verify(token)
	assert.ErrorIs(t, err, ErrInvalidLink)
	assert.NotErrorIs(t, err, model.ErrResourceExpired)
}

func TestVerifyGarbage(t *testing.T) {
	_, err := NewLinker("secret", 0).Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidLink)
}

func TestLocatorResolvesStoreURL(t *testing.T) {
	l := NewLinker("secret", time.Minute)
	loc := NewLocator(l, "https://store.example/api/", "https://bot.example")
	doc := uuid.New()

	token, _, err := l.Issue(uuid.New(), doc, 3)
	require.NoError(t, err)

	assert.Contains(t, loc.ViewURL(token), "https://bot.example/documents/view?token=")

	location, claims, err := loc.Locate(token)
	require.NoError(t, err)
	assert.Equal(t, "https://store.example/api/documents/"+doc.String(), location)
	assert.Equal(t, int64(3), claims.ViewerID)
}
