package utils

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

type JWTUtil struct {
	secret string
	ttl    time.Duration
}

func NewJWTUtil(secret string, ttl time.Duration) *JWTUtil {
	return &JWTUtil{secret: secret, ttl: ttl}
}

func (j *JWTUtil) GenerateToken(userID, role string) (string, error) {
	expirationTime := time.Now().Add(j.ttl)
	claims := jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     expirationTime.Unix(),
		"iat":     time.Now().Unix(),
		"jti":     GenerateCode(10),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(j.secret))
}

func (j *JWTUtil) ValidateToken(tokenString string) (*jwt.Token, error) {
	return jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unauthorized")
		}
		return []byte(j.secret), nil
	})
}

func (j *JWTUtil) IsTokenBlacklisted(ctx context.Context, tokenString string, redis *RedisClient) bool {
	return redis.Exists(ctx, fmt.Sprintf("blacklist:%s", tokenString))
}

// BlacklistToken keeps the token on the blacklist for the rest of its lifetime.
func (j *JWTUtil) BlacklistToken(ctx context.Context, tokenString string, redis *RedisClient) error {
	token, err := j.ValidateToken(tokenString)
	if err != nil || !token.Valid {
		return errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("invalid claims")
	}
	ttl := j.ttl
	if exp, ok := claims["exp"].(float64); ok {
		ttl = time.Until(time.Unix(int64(exp), 0))
	}
	if ttl <= 0 {
		return nil
	}
	return redis.Set(ctx, fmt.Sprintf("blacklist:%s", tokenString), true, ttl)
}

func GenerateCode(length int) string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))
	b := make([]byte, length)
	for i := range b {
		b[i] = charset[seededRand.Intn(len(charset))]
	}
	return string(b)
}
