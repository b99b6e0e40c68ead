package security

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sandeepkv93/account-lifecycle-service/internal/domain"
)

const passwordResetPurpose = "password_reset"

var ErrInvalidUID = errors.New("invalid uid")

type resetClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// ResetTokenCodec produces password-reset tokens bound to a user's current
// password hash. Changing the password changes the signing key, so every token
// minted before the change stops verifying.
type ResetTokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewResetTokenCodec(secret string, ttl time.Duration) *ResetTokenCodec {
	return &ResetTokenCodec{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (c *ResetTokenCodec) Make(user *domain.User) (string, error) {
	now := c.now()
	claims := resetClaims{
		Purpose: passwordResetPurpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.keyFor(user))
	if err != nil {
		return "", fmt.Errorf("sign reset token: %w", err)
	}
	return signed, nil
}

func (c *ResetTokenCodec) Check(user *domain.User, token string) bool {
	if user == nil || token == "" {
		return false
	}
	claims := &resetClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.keyFor(user), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil || !parsed.Valid {
		return false
	}
	return claims.Purpose == passwordResetPurpose && claims.Subject == user.ID
}

func (c *ResetTokenCodec) keyFor(user *domain.User) []byte {
	h := sha256.New()
	h.Write(c.secret)
	h.Write([]byte{0})
	h.Write([]byte(user.ID))
	h.Write([]byte{0})
	h.Write([]byte(user.PasswordHash))
	return h.Sum(nil)
}

// EncodeUID is the reversible, non-secret user identifier carried in reset links.
func EncodeUID(userID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(userID))
}

func DecodeUID(uidb64 string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uidb64)
	if err != nil || len(raw) == 0 {
		return "", ErrInvalidUID
	}
	return string(raw), nil
}
