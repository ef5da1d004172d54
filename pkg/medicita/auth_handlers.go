package medicita

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/medicita/medicita/pkg/apperrors"
	"github.com/medicita/medicita/pkg/models"
)

type contextKey string

const userIDKey contextKey = "user_id"

// tokenTTL bounds how long an issued API token stays valid.
const tokenTTL = 24 * time.Hour

type tokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (a *App) issueToken(user *models.User) (string, error) {
	claims := tokenClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.config.JWTSecret))
}

func (a *App) parseToken(tokenString string) (models.UserID, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.New(apperrors.CodeInvalidToken, "auth", "unexpected signing method", http.StatusUnauthorized)
		}
		return []byte(a.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return models.UserID{}, apperrors.New(apperrors.CodeInvalidToken, "auth", "invalid or expired token", http.StatusUnauthorized)
	}
	return models.ParseUserID(claims.Subject)
}

// requireAuth guards a handler with bearer token authentication and puts the
// caller's user ID into the request context.
func (a *App) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		userID, err := a.parseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			a.respondAppError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx))
	}
}

// currentUserID returns the authenticated caller's ID from the request
// context. Only valid inside requireAuth-wrapped handlers.
func currentUserID(r *http.Request) models.UserID {
	id, _ := r.Context().Value(userIDKey).(models.UserID)
	return id
}

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (a *App) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.FullName == "" || req.Email == "" || len(req.Password) < 6 {
		respondError(w, http.StatusBadRequest, "full name, email and a password of at least 6 characters are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user := &models.User{
		FullName:     req.FullName,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
	}
	ctx := r.Context()
	if err := a.store.CreateUser(ctx, user); err != nil {
		a.respondAppError(w, err)
		return
	}

	if err := a.session.SaveUser(user.ID, user.FullName, user.Email, a.servingRemote()); err != nil {
		a.log.Error().Err(err).Msg("failed to persist session")
	}

	token, err := a.issueToken(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	ctx := r.Context()
	user, err := a.authenticator().AuthenticateUser(ctx,
		strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		a.respondAppError(w, err)
		return
	}

	if err := a.session.SaveUser(user.ID, user.FullName, user.Email, a.servingRemote()); err != nil {
		a.log.Error().Err(err).Msg("failed to persist session")
	}

	token, err := a.issueToken(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := a.session.Clear(); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to clear session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

func (a *App) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := a.store.GetUser(ctx, currentUserID(r))
	if err != nil {
		a.respondAppError(w, err)
		return
	}
	if user == nil {
		respondError(w, http.StatusNotFound, "user not found")
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// servingRemote reports whether API traffic is currently served by the
// remote store. The store is chosen once at startup, so a migration that
// completes mid-flight does not flip this until the next start.
func (a *App) servingRemote() bool {
	return a.remoteActive
}
