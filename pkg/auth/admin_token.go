package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// AdminRole - роль, дающая доступ к административным маршрутам
const AdminRole = "admin"

const adminAudience = "examsim-admin"

var (
	// ErrAdminDisabled возвращается, если секрет подписи не настроен
	ErrAdminDisabled = errors.New("admin tokens are not configured")
	// ErrTokenInvalid - токен поврежден, подписан другим ключом или выдан для другой аудитории
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired - срок действия токена истек
	ErrTokenExpired = errors.New("token expired")
)

// AdminClaims содержит поля административного токена
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminTokens выпускает и проверяет административные токены (HS256)
type AdminTokens struct {
	secret []byte
}

// NewAdminTokens создает сервис токенов. Пустой секрет отключает административный доступ.
func NewAdminTokens(secret string) *AdminTokens {
	return &AdminTokens{secret: []byte(secret)}
}

// Enabled сообщает, настроен ли секрет подписи
func (t *AdminTokens) Enabled() bool {
	return t != nil && len(t.secret) > 0
}

// Generate выпускает токен с ролью admin для subject
func (t *AdminTokens) Generate(subject string, ttl time.Duration) (string, error) {
	if !t.Enabled() {
		return "", ErrAdminDisabled
	}
	if ttl <= 0 {
		return "", fmt.Errorf("token ttl must be positive, got %v", ttl)
	}

	now := time.Now()
	claims := &AdminClaims{
		Role: AdminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Audience:  jwt.ClaimStrings{adminAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}
	return signed, nil
}

// Parse проверяет подпись, срок действия и аудиторию токена.
// Роль не проверяется: это делает middleware, чтобы отличать 401 от 403.
func (t *AdminTokens) Parse(tokenString string) (*AdminClaims, error) {
	if !t.Enabled() {
		return nil, ErrAdminDisabled
	}

	claims := &AdminClaims{}
	keyFunc := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, keyFunc)
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) && ve.Errors&jwt.ValidationErrorExpired != 0 {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if !claims.VerifyAudience(adminAudience, true) {
		return nil, fmt.Errorf("%w: unexpected audience", ErrTokenInvalid)
	}
	return claims, nil
}
