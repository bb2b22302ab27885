package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const adminAudience = "admin"

// Link token purposes.
const (
	PurposeUnsubscribe = "unsubscribe"
	PurposeVerify      = "verify"
	PurposePreferences = "preferences"
)

var ErrInvalidToken = errors.New("invalid token")

type JWT struct {
	secret []byte
	now    func() time.Time
}

func NewJWT(secret string) *JWT {
	return &JWT{secret: []byte(secret), now: time.Now}
}

// Sign issues a dashboard session token for an admin user.
func (j *JWT) Sign(adminID uint64) (string, error) {
	now := j.now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(adminID, 10),
		Audience:  jwt.ClaimStrings{adminAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(7 * 24 * time.Hour)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
}

func (j *JWT) Verify(tokenStr string) (uint64, error) {
	var claims jwt.RegisteredClaims
	if _, err := j.parse(tokenStr, &claims, jwt.WithAudience(adminAudience)); err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return id, nil
}

// LinkClaims back the signed links placed in subscriber e-mail.
type LinkClaims struct {
	Purpose        string `json:"purpose"`
	SubscriberID   uint64 `json:"subscriber_id"`
	SubscriptionID uint64 `json:"subscription_id,omitempty"`
	AudienceType   string `json:"audience_type,omitempty"`
	CampaignID     uint64 `json:"campaign_id,omitempty"`
	jwt.RegisteredClaims
}

// SignLink issues a link token. A zero ttl never expires.
func (j *JWT) SignLink(c LinkClaims, ttl time.Duration) (string, error) {
	if c.Purpose == "" || c.SubscriberID == 0 {
		return "", errors.New("link token needs a purpose and a subscriber")
	}
	now := j.now()
	c.IssuedAt = jwt.NewNumericDate(now)
	if ttl > 0 {
		c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(j.secret)
}

// VerifyLink checks the signature and that the token was issued for purpose.
func (j *JWT) VerifyLink(tokenStr, purpose string) (LinkClaims, error) {
	var c LinkClaims
	if _, err := j.parse(tokenStr, &c); err != nil {
		return LinkClaims{}, err
	}
	if c.Purpose != purpose {
		return LinkClaims{}, fmt.Errorf("%w: wrong purpose", ErrInvalidToken)
	}
	return c, nil
}

func (j *JWT) parse(tokenStr string, claims jwt.Claims, opts ...jwt.ParserOption) (*jwt.Token, error) {
	opts = append(opts,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
	)
	t, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	}, opts...)
	if err != nil || !t.Valid {
		return nil, ErrInvalidToken
	}
	return t, nil
}
