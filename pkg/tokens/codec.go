package tokens

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken covers every decode failure: bad signature, malformed
// input, unexpected algorithm, missing or past expiry.
var ErrInvalidToken = errors.New("invalid token")

var supported = map[string]jwt.SigningMethod{
	jwt.SigningMethodHS256.Alg(): jwt.SigningMethodHS256,
	jwt.SigningMethodHS384.Alg(): jwt.SigningMethodHS384,
	jwt.SigningMethodHS512.Alg(): jwt.SigningMethodHS512,
}

type Config struct {
	Secret     []byte
	Algorithm  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Claims is the payload of both token kinds. Access tokens carry Role and
// TokenVersion, refresh tokens carry an ID (jti).
type Claims struct {
	Role         string `json:"role,omitempty"`
	TokenVersion *int   `json:"tv,omitempty"`
	jwt.RegisteredClaims
}

type Codec struct {
	secret     []byte
	method     jwt.SigningMethod
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("tokens: empty secret")
	}
	alg := strings.ToUpper(strings.TrimSpace(cfg.Algorithm))
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := supported[alg]
	if !ok {
		return nil, fmt.Errorf("tokens: unsupported algorithm %q", cfg.Algorithm)
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("tokens: lifetimes must be positive")
	}

	c := &Codec{
		secret:     append([]byte(nil), cfg.Secret...),
		method:     method,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
	c.parser = c.newParser()
	return c, nil
}

// WithClock replaces the time source. Used by tests.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	cp.parser = cp.newParser()
	return &cp
}

func (c *Codec) newParser() *jwt.Parser {
	now := c.now
	return jwt.NewParser(
		jwt.WithValidMethods([]string{c.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(now),
	)
}

func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *Codec) IssueAccess(userID, role string, tokenVersion int) (string, error) {
	iat := c.now().Truncate(time.Second)
	tv := tokenVersion
	claims := Claims{
		Role:         role,
		TokenVersion: &tv,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(c.accessTTL)),
		},
	}
	return c.sign(claims)
}

// IssueRefresh returns the signed token and its freshly generated jti.
func (c *Codec) IssueRefresh(userID string) (string, string, error) {
	iat := c.now().Truncate(time.Second)
	jti := uuid.NewString()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(c.refreshTTL)),
		},
	}
	token, err := c.sign(claims)
	if err != nil {
		return "", "", err
	}
	return token, jti, nil
}

func (c *Codec) Decode(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	var claims Claims
	tkn, err := c.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !tkn.Valid {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

func (c *Codec) sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(c.method, claims)
	s, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}
