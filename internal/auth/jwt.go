package auth

import (
	"errors"
	"time"

	"foodorder/internal/config"
	"foodorder/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("无效的登录凭证")
)

// Claims 登录态的 JWT 载荷
// 两套身份二选一：老账号会话携带 uid；外部身份登录携带标准 sub + email
// （外部身份提供方的 token 由网关侧换发成这里的内部 token，本服务只消费结果）
type Claims struct {
	AccountID int64  `json:"uid,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenResolver 把 bearer token 解析成身份凭证
type TokenResolver struct {
	secret []byte
}

func NewTokenResolver(cfg *config.AuthConfig) *TokenResolver {
	return &TokenResolver{secret: []byte(cfg.JWTSecret)}
}

// ResolveCredential 校验 token 并产出 Credential
// 校验失败或两套身份都缺失都算认证失败，调用方应直接拒绝，不碰账本
func (r *TokenResolver) ResolveCredential(tokenString string) (model.Credential, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return model.Credential{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return model.Credential{}, ErrInvalidToken
	}

	cred := model.Credential{
		AccountID: claims.AccountID,
		SubjectID: claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
	}
	if !cred.IsLegacy() && !cred.IsExternal() {
		return model.Credential{}, ErrInvalidToken
	}
	return cred, nil
}

// IssueToken 给登录协作方签发内部 token
func (r *TokenResolver) IssueToken(cred model.Credential, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		AccountID: cred.AccountID,
		Email:     cred.Email,
		Role:      cred.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   cred.SubjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(r.secret)
}
