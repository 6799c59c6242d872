package authz

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"sort"
	"strings"

	"github.com/appliedpolicy/project-explorer/internal/apperr"
)

// Claim types that carry group memberships.
const (
	ClaimGroups       = "groups"
	ClaimGroupsLegacy = "http://schemas.microsoft.com/ws/2008/06/identity/claims/groups"
)

// Claim is one entry of the identity assertion's claims list. Val is a string
// or a list, depending on the identity provider.
type Claim struct {
	Typ string `json:"typ"`
	Val any    `json:"val"`
}

// Principal is the decoded identity of the caller.
type Principal struct {
	UserID           string
	DisplayName      string
	IdentityProvider string
	Groups           map[string]struct{}
	RawClaims        []Claim
}

type clientPrincipal struct {
	IdentityProvider string  `json:"identityProvider"`
	UserID           string  `json:"userId"`
	UserDetails      string  `json:"userDetails"`
	Claims           []Claim `json:"claims"`
}

// ExtractPrincipal decodes the base64 JSON identity assertion set by the
// hosting platform.
func ExtractPrincipal(header string) (Principal, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Principal{}, apperr.Unauthenticated("Authentication required. Please log in to download files.").
			With("loginUrl", "/.auth/login/aad")
	}
	raw, err := decodeBase64(header)
	if err != nil {
		return Principal{}, apperr.Wrap(apperr.KindUnauthenticated, "Invalid authentication token", err)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(raw), []byte("{")) {
		return Principal{}, apperr.Unauthenticated("Invalid authentication token")
	}
	var cp clientPrincipal
	if err := json.Unmarshal(raw, &cp); err != nil {
		return Principal{}, apperr.Wrap(apperr.KindUnauthenticated, "Invalid authentication token", err)
	}

	p := Principal{
		UserID:           cp.UserID,
		DisplayName:      cp.UserDetails,
		IdentityProvider: cp.IdentityProvider,
		Groups:           map[string]struct{}{},
		RawClaims:        cp.Claims,
	}
	for _, c := range cp.Claims {
		if c.Typ != ClaimGroups && c.Typ != ClaimGroupsLegacy {
			continue
		}
		for _, g := range claimValues(c.Val) {
			p.Groups[g] = struct{}{}
		}
	}
	return p, nil
}

// Subject names the principal in logs and responses.
func (p Principal) Subject() string {
	switch {
	case p.DisplayName != "":
		return p.DisplayName
	case p.UserID != "":
		return p.UserID
	default:
		return "unknown"
	}
}

// GroupList returns the group set in sorted order.
func (p Principal) GroupList() []string {
	out := make([]string, 0, len(p.Groups))
	for g := range p.Groups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// MemberOf reports whether any group equals or contains id.
func (p Principal) MemberOf(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := p.Groups[id]; ok {
		return true
	}
	for g := range p.Groups {
		if strings.Contains(g, id) {
			return true
		}
	}
	return false
}

// claimValues flattens a claim value into group names. Only strings count;
// objects, numbers and booleans are ignored.
func claimValues(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			out = append(out, claimValues(e)...)
		}
		return out
	default:
		return nil
	}
}

// decodeBase64 accepts padded and unpadded, standard and URL alphabets.
func decodeBase64(s string) ([]byte, error) {
	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding,
	} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}
