package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/portier-acs/portier/server/internal/portier/service"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

// TokenVerifier turns a bearer token into a Caller.  Login and token
// minting belong to the external session collaborator; the engine only
// verifies.
type TokenVerifier interface {
	Verify(token string) (service.Caller, error)
}

var errInvalidToken = errors.New("invalid token")

// accessClaims is the claim shape the session collaborator mints: the user
// id in "uid" and the role name in "role".
type accessClaims struct {
	UserID int64  `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HMAC-signed bearer tokens.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(token string) (service.Caller, error) {
	parsed, err := jwt.ParseWithClaims(token, &accessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !parsed.Valid {
		return service.Caller{}, errInvalidToken
	}

	claims, ok := parsed.Claims.(*accessClaims)
	if !ok {
		return service.Caller{}, errInvalidToken
	}

	role := types.Role(claims.Role)
	if claims.UserID <= 0 || !role.Valid() {
		return service.Caller{}, errInvalidToken
	}

	return service.Caller{UserID: claims.UserID, Role: role}, nil
}

// caller authenticates the request, writing a 401 and returning ok=false
// on failure.
func (s *Server) caller(w http.ResponseWriter, r *http.Request) (service.Caller, bool) {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		writeError(w, http.StatusUnauthorized, "missing_token", "bearer token required")
		return service.Caller{}, false
	}

	c, err := s.verifier.Verify(strings.TrimSpace(token))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token", "bearer token invalid")
		return service.Caller{}, false
	}
	return c, true
}

// adminCaller additionally requires the administrator role.
func (s *Server) adminCaller(w http.ResponseWriter, r *http.Request) (service.Caller, bool) {
	c, ok := s.caller(w, r)
	if !ok {
		return service.Caller{}, false
	}
	if c.Role != types.RoleAdministrator {
		writeError(w, http.StatusForbidden, "forbidden", "administrator role required")
		return service.Caller{}, false
	}
	return c, true
}
