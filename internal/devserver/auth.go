package devserver

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/wolfeidau/raclient/internal/protocol"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
	issuer      = "raclient-devserver"
)

var (
	errInvalidToken = errors.New("invalid token")
	errRevoked      = errors.New("token revoked")
)

// Claims are carried by the access and refresh tokens the server issues.
type Claims struct {
	jwt.RegisteredClaims
	Kind  string   `json:"kind"`
	Roles []string `json:"roles,omitempty"`
}

type tokenIssuer struct {
	secret []byte
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

func newIssuer(secret []byte, now func() time.Time) *tokenIssuer {
	return &tokenIssuer{
		secret:  secret,
		now:     now,
		revoked: make(map[string]time.Time),
	}
}

// issue creates a signed HS256 token for subject.
func (k *tokenIssuer) issue(kind, subject string, roles []string, ttl time.Duration) (string, error) {
	now := k.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    issuer,
		},
		Kind:  kind,
		Roles: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(k.secret)
}

// verify parses token and checks its signature, kind, expiry and revocation.
func (k *tokenIssuer) verify(token, kind string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("invalid signing method")
		}
		return k.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(k.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidToken, err)
	}

	if claims.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token", errInvalidToken, kind)
	}

	k.mu.Lock()
	_, revoked := k.revoked[claims.ID]
	k.mu.Unlock()
	if revoked {
		return nil, errRevoked
	}

	return claims, nil
}

// revoke rejects the token with claims from now on.
func (k *tokenIssuer) revoke(claims *Claims) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.revoked[claims.ID] = claims.ExpiresAt.Time
}

// role names mirror the roles the client checks.
const (
	roleAdmin     = "admin"
	roleDeveloper = "developer"
	rolePlayer    = "player"
)

// requiredRoles lists, for the actions that need more than a valid access
// token, the roles any one of which grants the action.
var requiredRoles = map[protocol.Action][]string{
	protocol.ActionCreateGameProject: {roleDeveloper, roleAdmin},
	protocol.ActionSaveGameProject:   {roleDeveloper, roleAdmin},
	protocol.ActionAddAsset:          {roleDeveloper, roleAdmin},
	protocol.ActionSyncAssets:        {roleDeveloper, roleAdmin},
	protocol.ActionLaunchGame:        {rolePlayer},
	protocol.ActionStopGame:          {rolePlayer},
	protocol.ActionDownloadGame:      {rolePlayer},
}

// authorized reports whether roles grant action.
func authorized(action protocol.Action, roles []string) bool {
	required, ok := requiredRoles[action]
	if !ok {
		return true
	}
	for _, r := range required {
		if slices.Contains(roles, r) {
			return true
		}
	}
	return false
}
