package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

const tokenIssuer = "snaildle"

// AuthConfig configures the client-credentials exchange.
type AuthConfig struct {
	ClientID   string
	SecretHash string // bcrypt hash of the client secret; empty disables auth
	JWTSecret  string
	Expiry     time.Duration
}

// Enabled reports whether API routes require a bearer token.
func (a AuthConfig) Enabled() bool { return a.SecretHash != "" }

// HashSecret returns the bcrypt hash to put in API_CLIENT_SECRET_HASH.
func HashSecret(secret string) (string, error) {
	if len(secret) < 12 {
		return "", errors.New("client secret must be at least 12 characters")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

type tokenReq struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type tokenRes struct {
	Token     string    `json:"token"`
	TokenType string    `json:"tokenType"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// handleToken verifies client credentials and issues a JWT.
func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var body tokenReq
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be JSON")
		return
	}
	idOK := subtle.ConstantTimeCompare([]byte(body.ClientID), []byte(s.auth.ClientID)) == 1
	secretOK := bcrypt.CompareHashAndPassword([]byte(s.auth.SecretHash), []byte(body.ClientSecret)) == nil
	if !idOK || !secretOK {
		log.Warn().Str("client_id", body.ClientID).Msg("rejected client credentials")
		writeError(w, http.StatusUnauthorized, "invalid_client", "invalid client credentials")
		return
	}
	tok, exp, err := s.signJWT(body.ClientID)
	if err != nil {
		log.Error().Err(err).Msg("sign token")
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, tokenRes{Token: tok, TokenType: "Bearer", ExpiresAt: exp})
}

// signJWT creates an HS256 JWT for clientID.
func (s *Server) signJWT(clientID string) (string, time.Time, error) {
	expiry := s.auth.Expiry
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	now := time.Now()
	exp := now.Add(expiry)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   clientID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	ss, err := t.SignedString([]byte(s.auth.JWTSecret))
	return ss, exp, err
}

// bearerToken extracts a bearer token from the Authorization header.
func bearerToken(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}

// ctxClientKey is the context key type for the authenticated client id.
type ctxClientKey struct{}

// clientFrom returns the authenticated client id, if any.
func clientFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxClientKey{}).(string)
	return id
}

// requireAuth enforces a valid JWT when auth is enabled and injects the client id.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !s.auth.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			tokenStr := bearerToken(r)
			if tokenStr == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(s.auth.JWTSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
			if err != nil || !token.Valid || claims.Subject != s.auth.ClientID {
				writeError(w, http.StatusUnauthorized, "invalid_token", "invalid token")
				return
			}
			ctx := context.WithValue(r.Context(), ctxClientKey{}, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
