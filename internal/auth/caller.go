// Package auth derives the caller's submitter role from the bearer token the
// caller already holds. The token is not verified here; the Submissions
// service verifies it on every request.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// IndividualOrganization is the organization-id header value a caller
// sends to act as an individual security official even when the token also
// lists organizations.
const IndividualOrganization = "individual"

// Organization types that submit on behalf of others.
const (
	OrgTypeRegistry = "registry"
	OrgTypeQCDR     = "qcdr"
)

// ErrUnknownOrganization is returned when the requested organization is not
// one the token grants.
var ErrUnknownOrganization = errors.New("auth: organization not present in token")

// CallerRole says who is submitting. A registry-type caller owns the
// measurement sets stamped with one of its OrganizationIDs; anyone else
// owns only the sets stamped with the security-official marker.
type CallerRole struct {
	Registry        bool
	OrganizationIDs []string
}

// SecurityOfficial is the role of an individual, non-registry caller.
func SecurityOfficial() CallerRole {
	return CallerRole{}
}

// RegistryCaller is the role of a caller acting for the given organizations.
func RegistryCaller(orgIDs ...string) CallerRole {
	return CallerRole{Registry: true, OrganizationIDs: orgIDs}
}

// Owns reports whether a stored measurement set stamped with submitterID
// belongs to this caller.
func (r CallerRole) Owns(submitterID, securityOfficialMarker string) bool {
	if !r.Registry {
		return submitterID == securityOfficialMarker
	}
	return slices.Contains(r.OrganizationIDs, submitterID)
}

// String renders the role for logs.
func (r CallerRole) String() string {
	if !r.Registry {
		return "security-official"
	}
	return "registry(" + strings.Join(r.OrganizationIDs, ",") + ")"
}

// Organization is one organization membership granted by the token.
type Organization struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// IsRegistry reports whether the organization submits for others.
func (o Organization) IsRegistry() bool {
	switch strings.ToLower(o.Type) {
	case OrgTypeRegistry, OrgTypeQCDR:
		return true
	}
	return false
}

// Claims is the subset of the token payload this package reads.
type Claims struct {
	Data struct {
		Organizations []Organization `json:"organizations"`
	} `json:"data"`
	jwt.RegisteredClaims
}

// CallerFromToken derives the role from token. orgID, when set, selects one
// organization the caller is acting for; IndividualOrganization forces the
// security-official role.
func CallerFromToken(token, orgID string) (CallerRole, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return CallerRole{}, errors.New("auth: empty token")
	}

	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return CallerRole{}, fmt.Errorf("auth: parse token: %w", err)
	}
	return RoleFromOrganizations(claims.Data.Organizations, orgID)
}

// RoleFromOrganizations applies the selection rules of CallerFromToken to an
// already-decoded organization list.
func RoleFromOrganizations(orgs []Organization, orgID string) (CallerRole, error) {
	switch orgID {
	case IndividualOrganization:
		return SecurityOfficial(), nil
	case "":
		var ids []string
		for _, org := range orgs {
			if org.IsRegistry() {
				ids = append(ids, org.ID)
			}
		}
		if len(ids) == 0 {
			return SecurityOfficial(), nil
		}
		return RegistryCaller(ids...), nil
	}

	for _, org := range orgs {
		if org.ID != orgID {
			continue
		}
		if org.IsRegistry() {
			return RegistryCaller(org.ID), nil
		}
		return SecurityOfficial(), nil
	}
	return CallerRole{}, fmt.Errorf("%w: %s", ErrUnknownOrganization, orgID)
}
