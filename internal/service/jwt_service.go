package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrJWTInvalid = errors.New("jwt invalid")
	ErrJWTExpired = errors.New("jwt expired")
)

// JWTService emite y valida los tokens de acceso del panel de
// administración. Solo access tokens: el panel no maneja refresh.
type JWTService struct {
	secret    []byte
	accessTTL time.Duration
	issuer    string
}

type AdminClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func NewJWTService(secret string, accessTTL time.Duration) *JWTService {
	if accessTTL <= 0 {
		accessTTL = time.Hour
	}
	return &JWTService{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		issuer:    "career-engine",
	}
}

// GenerateAccessToken firma un token HS256 para el usuario admin.
func (s *JWTService) GenerateAccessToken(username string) (string, int64, error) {
	if len(s.secret) == 0 {
		return "", 0, ErrJWTInvalid
	}
	now := time.Now().UTC()
	claims := AdminClaims{
		Username: username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(s.accessTTL.Seconds()), nil
}

// ParseAccessToken valida firma, método, expiración e issuer.
func (s *JWTService) ParseAccessToken(tokenString string) (AdminClaims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return AdminClaims{}, ErrJWTInvalid
	}

	var claims AdminClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return AdminClaims{}, ErrJWTExpired
		}
		return AdminClaims{}, ErrJWTInvalid
	}

	if strings.TrimSpace(claims.Subject) == "" || claims.Subject != claims.Username {
		return AdminClaims{}, ErrJWTInvalid
	}
	if strings.TrimSpace(claims.Issuer) != s.issuer {
		return AdminClaims{}, ErrJWTInvalid
	}
	return claims, nil
}
