package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
)

// Claims — содержимое JWT. Имена полей совпадают с токенами,
// которые уже используются клиентами: id, nombre, rol.
type Claims struct {
	AccountID int64  `json:"id"`
	Name      string `json:"nombre"`
	Role      string `json:"rol"`
	jwt.RegisteredClaims
}

// Signer подписывает и проверяет JWT общим секретом (HS256).
type Signer struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// NewSigner создаёт Signer. now — источник времени; nil означает time.Now.
func NewSigner(secret string, now func() time.Time) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("секрет подписи JWT не задан")
	}
	if now == nil {
		now = time.Now
	}

	return &Signer{
		secret: []byte(secret),
		now:    now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(now),
		),
	}, nil
}

// Sign формирует подписанный JWT с exp = now + ttl.
func (s *Signer) Sign(identity *model.Identity, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("некорректное время жизни токена: %s", ttl)
	}

	now := s.now()
	claims := Claims{
		AccountID: identity.AccountID,
		Name:      identity.Name,
		Role:      identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("ошибка подписи JWT: %w", err)
	}
	return signed, nil
}

// Verify проверяет подпись и срок действия JWT.
func (s *Signer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	return claims, nil
}
