package auth

import (
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const queryHashAlg = "SHA512"

// Credentials are loaded once at startup and never change afterwards.
type Credentials struct {
	AccessKey string
	SecretKey string
}

// Param is one request parameter. Parameters are carried as an ordered
// slice, not a map: the exchange reconstructs the query hash from the
// parameters in the order they were sent.
type Param struct {
	Key   string
	Value string
}

type Signer struct {
	creds Credentials
}

func NewSigner(creds Credentials) (*Signer, error) {
	if strings.TrimSpace(creds.AccessKey) == "" {
		return nil, errors.New("access key is required")
	}
	if strings.TrimSpace(creds.SecretKey) == "" {
		return nil, errors.New("secret key is required")
	}
	return &Signer{creds: creds}, nil
}

// QueryString serializes params as key=value pairs joined by & in the
// given order.
func QueryString(params []Param) string {
	if len(params) == 0 {
		return ""
	}
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.Key+"="+p.Value)
	}
	return strings.Join(parts, "&")
}

// Token builds the bearer token for a single request. Each call embeds a
// fresh nonce; tokens are never reused.
func (s *Signer) Token(method string, params []Param) (string, error) {
	claims := jwt.MapClaims{
		"access_key": s.creds.AccessKey,
		"nonce":      uuid.NewString(),
		"timestamp":  strconv.FormatInt(time.Now().UnixMilli(), 10),
	}
	query := QueryString(params)
	if method == http.MethodPost || query != "" {
		sum := sha512.Sum512([]byte(query))
		claims["query_hash"] = hex.EncodeToString(sum[:])
		claims["query_hash_alg"] = queryHashAlg
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.creds.SecretKey))
}

// AuthorizationHeader returns the value for the Authorization header.
func (s *Signer) AuthorizationHeader(method string, params []Param) (string, error) {
	token, err := s.Token(method, params)
	if err != nil {
		return "", err
	}
	return "Bearer " + token, nil
}

func (s *Signer) AccessKey() string {
	return s.creds.AccessKey
}
