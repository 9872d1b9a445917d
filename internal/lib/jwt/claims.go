// Package jwt реализует генерацию и парсинг сессионных JWT токенов.
//
// Сессионный токен несёт email аккаунта: маршруты подписки извлекают
// идентичность только из проверенного токена и никогда из тела запроса,
// поэтому подделать чужой аккаунт со стороны клиента нельзя.
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims данные, хранящиеся в сессионном токене.
type SessionClaims struct {
	Email                string `json:"email"` // Email аккаунта
	jwt.RegisteredClaims        // Стандартные claims (ExpiresAt, IssuedAt и пр.)
}

// Maker описывает интерфейс генерации и парсинга сессионных токенов.
type Maker interface {
	// GenerateToken создает токен для аккаунта с указанным email.
	GenerateToken(email string) (string, error)
	// ParseToken возвращает *SessionClaims, если токен корректен.
	ParseToken(tokenStr string) (*SessionClaims, error)
}

// MakerImpl реализует Maker на секретном ключе и времени жизни токена.
type MakerImpl struct {
	secretKey string        // Секретный ключ для подписи токенов
	tokenTTL  time.Duration // Время жизни токена
}

// NewMaker создаёт новый MakerImpl.
func NewMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		tokenTTL:  ttl,
	}
}
