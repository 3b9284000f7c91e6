package jwt

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/academy-portal/internal/utils"
)

// Payload holds the claims read from the middle segment of a JWT-shaped access token.
// The signature is never checked: the backend that issued the token is trusted and these
// claims only let the portal notice an expired or foreign token early.
// Every field is optional.
type Payload struct {
	Sub  *string // Subject, the backend user id
	Role *string // Role tag of the token holder
	Exp  *int64  // Expiry in Unix seconds
}

// Decode extracts the payload from rawToken. ok is false when the token is not three
// dot-separated segments or the middle segment is not a base64url JSON object. Claims with
// an unexpected type are left unset rather than failing the decode.
func Decode(rawToken string) (payload *Payload, ok bool) {
	parts := strings.Split(rawToken, ".")
	if len(parts) != 3 || parts[1] == "" {
		return nil, false
	}

	segment, err := jwtlib.NewParser(jwtlib.WithPaddingAllowed()).DecodeSegment(parts[1])
	if err != nil {
		return nil, false
	}

	claims := jwtlib.MapClaims{}
	dec := json.NewDecoder(bytes.NewReader(segment))
	dec.UseNumber()
	if err := dec.Decode(&claims); err != nil || claims == nil {
		return nil, false
	}

	payload = &Payload{}
	if sub, ok := claims["sub"].(string); ok {
		payload.Sub = &sub
	} else if sub, ok := claims["sub"].(json.Number); ok {
		payload.Sub = utils.Ptr(sub.String())
	}
	payload.Role = roleClaim(claims)
	payload.Exp = expClaim(claims["exp"])
	return payload, true
}

// Expired reports whether the exp claim lies before now. Tokens without exp never expire
// by this check.
func (p *Payload) Expired(now time.Time) bool {
	if p == nil || p.Exp == nil {
		return false
	}
	switch {
	case *p.Exp > math.MaxInt64/1000:
		return false
	case *p.Exp < math.MinInt64/1000:
		return true
	}
	return *p.Exp*1000 < now.UnixMilli()
}

func roleClaim(claims jwtlib.MapClaims) *string {
	if role, ok := claims["role"].(string); ok && role != "" {
		return &role
	}
	// Tokens minted with a roles list carry the primary role first
	if roles, ok := claims["roles"].([]any); ok {
		if list := utils.ToStringSlice(roles); len(list) > 0 && list[0] != "" {
			return &list[0]
		}
	}
	return nil
}

func expClaim(v any) *int64 {
	n, ok := v.(json.Number)
	if !ok {
		return nil
	}
	if i, err := n.Int64(); err == nil {
		return &i
	}
	// Values outside the int64 range count as no exp at all
	if f, err := n.Float64(); err == nil && f >= math.MinInt64 && f < math.MaxInt64 {
		return utils.Ptr(int64(f))
	}
	return nil
}
