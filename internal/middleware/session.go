package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bakery-storefront/internal/remote"
)

type contextKey string

const (
	SessionIDKey          contextKey = "session_id"
	AnonymousSessionIDKey contextKey = "anonymous_session_id"
	UserIDKey             contextKey = "user_id"
	UserRoleKey           contextKey = "user_role"
)

// SessionHeader carries the browser's persistent session id
const SessionHeader = "X-Session-ID"

// Session keys derived from credentials. Browser supplied ids in these
// namespaces are never accepted.
const (
	userSessionPrefix  = "user-"
	tokenSessionPrefix = "token-"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

var timeNow = time.Now

// identity is what a bearer token proves about its holder
type identity struct {
	session  string
	userID   string
	role     string
	verified bool
}

// SessionMiddleware identifies the shopper and forwards any bearer token to
// the storefront API.
//
// When jwtSecret is set, JWTs are verified here and an authenticated session
// is keyed by the token subject, whose role is then trusted. Without a secret,
// or for opaque tokens, the session is keyed by a digest of the token and no
// role is granted. An authenticated request never takes its key from
// X-Session-ID; a valid anonymous id sent alongside is kept in the context so
// the cart handler can merge it on request. Anonymous requests use the header
// when it is a valid id outside the reserved namespaces, otherwise a fresh id
// echoed back in the header.
func SessionMiddleware(jwtSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var who identity
			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				parts := strings.Split(authHeader, " ")
				if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
					logger.Debug("Invalid authorization header format")
					RespondWithError(w, http.StatusUnauthorized, "invalid authorization header format")
					return
				}

				tokenString := parts[1]
				var err error
				who, err = identify(tokenString, jwtSecret)
				if err != nil {
					logger.Debug("Token rejected", zap.Error(err))
					if errors.Is(err, jwt.ErrTokenExpired) {
						RespondWithError(w, http.StatusUnauthorized, "token expired")
					} else {
						RespondWithError(w, http.StatusUnauthorized, "invalid token")
					}
					return
				}

				ctx = remote.WithToken(ctx, tokenString)
				if who.verified {
					ctx = context.WithValue(ctx, UserIDKey, who.userID)
				}
				if who.role != "" {
					ctx = context.WithValue(ctx, UserRoleKey, who.role)
				}
			}

			header := r.Header.Get(SessionHeader)
			anonymous := ""
			if isAnonymousID(header) {
				anonymous = header
			}

			sessionID := who.session
			switch {
			case sessionID != "":
				if anonymous != "" {
					ctx = context.WithValue(ctx, AnonymousSessionIDKey, anonymous)
				}
			case anonymous != "":
				sessionID = anonymous
			default:
				sessionID = uuid.NewString()
			}
			w.Header().Set(SessionHeader, sessionID)
			ctx = context.WithValue(ctx, SessionIDKey, sessionID)

			logger.Debug("Session identified",
				zap.String("session_id", sessionID),
				zap.Bool("authenticated", who.session != ""),
				zap.Bool("verified", who.verified),
				zap.String("role", who.role),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isAnonymousID(id string) bool {
	return sessionIDPattern.MatchString(id) &&
		!strings.HasPrefix(id, userSessionPrefix) &&
		!strings.HasPrefix(id, tokenSessionPrefix)
}

// identify derives the session key for a bearer token. With a secret, JWTs
// must carry a valid HMAC signature. Without one, a JWT is only checked for
// expiry and is treated like an opaque token.
func identify(tokenString, jwtSecret string) (identity, error) {
	digest := func() identity {
		sum := sha256.Sum256([]byte(tokenString))
		return identity{session: tokenSessionPrefix + hex.EncodeToString(sum[:8])}
	}

	if strings.Count(tokenString, ".") != 2 {
		return digest(), nil
	}

	claims := jwt.MapClaims{}
	if jwtSecret == "" {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return identity{}, err
		}
		if exp, err := claims.GetExpirationTime(); err != nil {
			return identity{}, err
		} else if exp != nil && exp.Before(timeNow()) {
			return identity{}, jwt.ErrTokenExpired
		}
		return digest(), nil
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	}, jwt.WithTimeFunc(timeNow))
	if err != nil {
		return identity{}, err
	}
	if !token.Valid {
		return identity{}, jwt.ErrTokenSignatureInvalid
	}

	userID := ""
	for _, key := range []string{"sub", "user_id", "userId", "email"} {
		if v, ok := claims[key]; ok {
			if s := stringClaim(v); s != "" {
				userID = s
				break
			}
		}
	}
	if userID == "" {
		return identity{}, jwt.ErrTokenInvalidClaims
	}

	return identity{
		session:  userSessionPrefix + userID,
		userID:   userID,
		role:     roleFromClaims(claims),
		verified: true,
	}, nil
}

func stringClaim(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return ""
}

// roleFromClaims accepts "role", "rol" or a "roles"/"authorities" list. Spring
// style ROLE_ prefixes are dropped and the result is lower case.
func roleFromClaims(claims jwt.MapClaims) string {
	var candidates []string
	for _, key := range []string{"role", "rol"} {
		if s, ok := claims[key].(string); ok {
			candidates = append(candidates, s)
		}
	}
	for _, key := range []string{"roles", "authorities"} {
		if list, ok := claims[key].([]any); ok {
			for _, item := range list {
				switch v := item.(type) {
				case string:
					candidates = append(candidates, v)
				case map[string]any:
					if s, ok := v["authority"].(string); ok {
						candidates = append(candidates, s)
					}
				}
			}
		}
	}

	role := ""
	for _, c := range candidates {
		c = strings.ToLower(strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(c)), "ROLE_"))
		if c == RoleAdmin {
			return RoleAdmin
		}
		if role == "" {
			role = c
		}
	}
	return role
}

// GetSessionID extracts the session key from request context
func GetSessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(SessionIDKey).(string)
	return id, ok
}

// GetAnonymousSessionID returns the anonymous session id an authenticated
// request arrived with, if any
func GetAnonymousSessionID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AnonymousSessionIDKey).(string)
	return id, ok
}

// GetUserID extracts the verified subject from request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}
