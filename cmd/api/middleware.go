package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"souk/internal/domain/carts"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type ctxKey string

const (
	userIDCtx ctxKey = "userID"
	ownerCtx  ctxKey = "cartOwner"
)

const guestTokenHeader = "X-Guest-Token"

func (app *application) BasicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// read the auth header
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is missing"))
				return
			}

			// parse it -> get the base64
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Basic" {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("authorization header is malformed"))
				return
			}

			// decode it
			decoded, err := base64.StdEncoding.DecodeString(parts[1])
			if err != nil {
				app.unauthorizedBasicErrorResponse(w, r, err)
				return
			}

			// check the credentials
			username := app.config.auth.basic.user
			pass := app.config.auth.basic.pass

			creds := strings.SplitN(string(decoded), ":", 2)
			if len(creds) != 2 || creds[0] != username || creds[1] != pass {
				app.unauthorizedBasicErrorResponse(w, r, fmt.Errorf("invalid credentials"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (app *application) AuthTokenMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			app.unauthorizedErrorResponse(w, r, fmt.Errorf("authorization header is missing"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			app.unauthorizedErrorResponse(w, r, fmt.Errorf("authorization header is malformed"))
			return
		}

		userID, err := app.userIDFromToken(parts[1])
		if err != nil {
			app.unauthorizedErrorResponse(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), userIDCtx, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CartOwnerMiddleware resolves who the cart belongs to. A valid Bearer
// token wins; otherwise the guest token header is used, and a fresh guest
// token is minted (and echoed back) when the client has neither.
func (app *application) CartOwnerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var owner carts.Owner

		authHeader := r.Header.Get("Authorization")
		if parts := strings.Split(authHeader, " "); len(parts) == 2 && parts[0] == "Bearer" {
			userID, err := app.userIDFromToken(parts[1])
			if err != nil {
				app.unauthorizedErrorResponse(w, r, err)
				return
			}
			owner = carts.UserOwner(userID)
		} else if token := strings.TrimSpace(r.Header.Get(guestTokenHeader)); token != "" {
			owner = carts.GuestOwner(token)
		} else {
			token := uuid.NewString()
			w.Header().Set(guestTokenHeader, token)
			owner = carts.GuestOwner(token)
		}

		ctx := context.WithValue(r.Context(), ownerCtx, owner)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (app *application) RateLimiterMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.config.rateLimiter.Enabled {
			allow, retryAfter := app.rateLimiter.Allow(r.RemoteAddr)
			if !allow {
				app.rateLimitExceededResponse(w, r, retryAfter.String())
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (app *application) userIDFromToken(token string) (int64, error) {
	jwtToken, err := app.authenticator.ValidateAccessToken(token)
	if err != nil {
		return 0, err
	}

	claims, _ := jwtToken.Claims.(jwt.MapClaims)

	return strconv.ParseInt(fmt.Sprintf("%.f", claims["sub"]), 10, 64)
}

func getOwnerFromContext(r *http.Request) carts.Owner {
	owner, _ := r.Context().Value(ownerCtx).(carts.Owner)
	return owner
}

func getUserIDFromContext(r *http.Request) int64 {
	userID, _ := r.Context().Value(userIDCtx).(int64)
	return userID
}
