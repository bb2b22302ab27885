package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_AdminRoundTrip(t *testing.T) {
	j := NewJWT("s3cret")

	tok, err := j.Sign(12)
	require.NoError(t, err)

	id, err := j.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)

	_, err = NewJWT("other").Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_LinkTokenIsNotASession(t *testing.T) {
	j := NewJWT("s3cret")

	tok, err := j.SignLink(LinkClaims{Purpose: PurposeUnsubscribe, SubscriberID: 5, AudienceType: "newsletter"}, 0)
	require.NoError(t, err)

	_, err = j.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	c, err := j.VerifyLink(tok, PurposeUnsubscribe)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), c.SubscriberID)
	assert.Equal(t, "newsletter", c.AudienceType)

	_, err = j.VerifyLink(tok, PurposePreferences)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWT_LinkExpiry(t *testing.T) {
	j := NewJWT("s3cret")
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	j.now = func() time.Time { return issued }

	tok, err := j.SignLink(LinkClaims{Purpose: PurposeVerify, SubscriberID: 1}, time.Hour)
	require.NoError(t, err)

	j.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = j.VerifyLink(tok, PurposeVerify)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.True(t, ComparePassword(h, "correct horse"))
	assert.False(t, ComparePassword(h, "wrong"))
}

func TestRequireAdmin(t *testing.T) {
	j := NewJWT("s3cret")
	tok, err := j.Sign(3)
	require.NoError(t, err)

	var seen uint64
	h := RequireAdmin(j)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = AdminIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(3), seen)
}
