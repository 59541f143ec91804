package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/F-Elotlan-M/API-ETL/internal/domain/model"
)

// ErrInvalidToken — токен не прошёл расшифровку, проверку подписи
// или истёк. Причины наружу не различаются.
var ErrInvalidToken = errors.New("токен недействителен или истёк")

// Pipeline выпускает и проверяет непрозрачные токены:
// выпуск = подпись + шифрование, проверка = расшифровка + проверка подписи.
// Не обращается к хранилищу и не блокируется.
type Pipeline struct {
	codec  *Codec
	signer *Signer
}

// NewPipeline объединяет Codec и Signer.
func NewPipeline(codec *Codec, signer *Signer) *Pipeline {
	return &Pipeline{codec: codec, signer: signer}
}

// Issue выпускает токен для identity со сроком ttl.
// Для nil identity возвращается зашифрованный EmptyPayload.
func (p *Pipeline) Issue(identity *model.Identity, ttl time.Duration) (string, error) {
	if identity == nil {
		return p.codec.Encrypt(nil)
	}

	signed, err := p.signer.Sign(identity, ttl)
	if err != nil {
		return "", err
	}

	token, err := p.codec.Encrypt([]byte(signed))
	if err != nil {
		return "", fmt.Errorf("ошибка шифрования токена: %w", err)
	}
	return token, nil
}

// Verify восстанавливает личность из токена.
// Для токена без содержимого возвращает nil, nil.
// Любая ошибка оборачивает ErrInvalidToken; исходная причина
// сохраняется в тексте только для журнала.
func (p *Pipeline) Verify(token string) (*model.Identity, error) {
	payload, err := p.codec.Decrypt(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if payload == nil {
		return nil, nil
	}

	claims, err := p.signer.Verify(string(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	identity := &model.Identity{
		AccountID: claims.AccountID,
		Name:      claims.Name,
		Role:      claims.Role,
	}
	if claims.IssuedAt != nil {
		identity.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}
