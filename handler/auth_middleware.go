package handler

import (
	"context"
	"net/http"
	"strings"

	"go-ledger-api/common"
	"go-ledger-api/config"
	"go-ledger-api/model"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	UserEmailKey contextKey = "userEmail"
	UserRoleKey  contextKey = "userRole"
)

// AuthMiddleware validates the bearer token and stores the caller's email and
// role in the request context.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			err := common.NewAppError(http.StatusUnauthorized, "Authorization header is required", nil)
			err.Send(w)
			return
		}

		headerParts := strings.Split(authHeader, " ")
		if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" {
			err := common.NewAppError(http.StatusUnauthorized, "Invalid authorization header format", nil)
			err.Send(w)
			return
		}

		tokenString := headerParts[1]
		claims := &model.AppClaims{}

		jwtKey := []byte(config.AppConfig.JWT.SecretKey)

		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return jwtKey, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

		if err != nil || !token.Valid {
			appErr := common.NewAppError(http.StatusUnauthorized, "Invalid or expired token", err)
			appErr.Send(w)
			return
		}

		ctx := context.WithValue(r.Context(), UserEmailKey, claims.Email)
		ctx = context.WithValue(ctx, UserRoleKey, claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// PrivilegedMiddleware only lets agent and super admin callers through.
func PrivilegedMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role, ok := r.Context().Value(UserRoleKey).(model.Role)

		if !ok || !role.IsPrivileged() {
			err := common.NewAppError(http.StatusForbidden, "Access denied. Agent privileges required.", nil)
			err.Send(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// callerFrom returns the role and identity stored by AuthMiddleware.
func callerFrom(ctx context.Context) (model.Role, string, *common.AppError) {
	role, ok := ctx.Value(UserRoleKey).(model.Role)
	if !ok {
		return "", "", common.NewAppError(http.StatusUnauthorized, "Invalid user role in token", nil)
	}
	email, ok := ctx.Value(UserEmailKey).(string)
	if !ok {
		return "", "", common.NewAppError(http.StatusUnauthorized, "Invalid user email in token", nil)
	}
	return role, email, nil
}
