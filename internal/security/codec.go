// Пакет security — выпуск и проверка токенов API-ETL.
// Токен — подписанный JWT (HS256), зашифрованный AES-128-CBC
// и дважды закодированный в base64.
package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

// EmptyPayload — строка, которая шифруется вместо отсутствующего содержимого.
const EmptyPayload = "Vacio"

// ErrMalformedCiphertext — токен не удалось декодировать или расшифровать.
var ErrMalformedCiphertext = errors.New("некорректный шифротекст токена")

// strictBase64 отвергает неканонические представления (ненулевые хвостовые биты).
var strictBase64 = base64.StdEncoding.Strict()

// Codec — симметричное шифрование содержимого токена.
// Ключ и IV выводятся один раз при создании и больше не меняются,
// поэтому Codec безопасен для конкурентного использования.
type Codec struct {
	block cipher.Block
	iv    [aes.BlockSize]byte
}

// NewCodec выводит ключ и IV из двух секретных строк:
// первые 16 байт SHA-256 от каждой.
func NewCodec(keySecret, ivSecret string) (*Codec, error) {
	if keySecret == "" || ivSecret == "" {
		return nil, errors.New("секреты шифрования токена не заданы")
	}

	block, err := aes.NewCipher(deriveBlock(keySecret))
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}

	c := &Codec{block: block}
	copy(c.iv[:], deriveBlock(ivSecret))
	return c, nil
}

// Encrypt шифрует plaintext и возвращает base64(base64(ciphertext)).
// nil шифруется как EmptyPayload.
func (c *Codec) Encrypt(plaintext []byte) (string, error) {
	if plaintext == nil {
		plaintext = []byte(EmptyPayload)
	}

	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv[:]).CryptBlocks(ciphertext, padded)

	inner := base64.StdEncoding.EncodeToString(ciphertext)
	return base64.StdEncoding.EncodeToString([]byte(inner)), nil
}

// Decrypt снимает оба слоя base64 и расшифровывает содержимое.
// Для EmptyPayload возвращает nil, nil.
func (c *Codec) Decrypt(token string) ([]byte, error) {
	inner, err := strictBase64.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: внешний base64: %v", ErrMalformedCiphertext, err)
	}

	ciphertext, err := strictBase64.DecodeString(string(inner))
	if err != nil {
		return nil, fmt.Errorf("%w: внутренний base64: %v", ErrMalformedCiphertext, err)
	}

	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: длина %d не кратна блоку", ErrMalformedCiphertext, len(ciphertext))
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(c.block, c.iv[:]).CryptBlocks(plaintext, ciphertext)

	plaintext, err = pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return nil, err
	}

	if string(plaintext) == EmptyPayload {
		return nil, nil
	}
	return plaintext, nil
}

// deriveBlock возвращает первые 16 байт SHA-256 от секрета.
func deriveBlock(secret string) []byte {
	h := sha256.Sum256([]byte(secret))
	return h[:aes.BlockSize]
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(bytes.Clone(data), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("%w: некорректное дополнение", ErrMalformedCiphertext)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("%w: некорректное дополнение", ErrMalformedCiphertext)
		}
	}
	return data[:len(data)-n], nil
}
