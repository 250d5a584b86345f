package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signToken builds an HS256 token carrying orgs. The secret is irrelevant to
// CallerFromToken, which never verifies signatures.
func signToken(t *testing.T, orgs ...Organization) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	claims.Data.Organizations = orgs
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestCallerFromToken(t *testing.T) {
	tests := []struct {
		name    string
		orgs    []Organization
		orgID   string
		want    CallerRole
		wantErr error
	}{
		{
			name: "no organizations is a security official",
			want: SecurityOfficial(),
		},
		{
			name: "practice membership is a security official",
			orgs: []Organization{{ID: "p-1", Type: "practice"}},
			want: SecurityOfficial(),
		},
		{
			name: "registry and qcdr memberships are collected",
			orgs: []Organization{{ID: "r-1", Type: "registry"}, {ID: "p-1", Type: "practice"}, {ID: "q-1", Type: "QCDR"}},
			want: RegistryCaller("r-1", "q-1"),
		},
		{
			name:  "explicit organization narrows the role",
			orgs:  []Organization{{ID: "r-1", Type: "registry"}, {ID: "r-2", Type: "registry"}},
			orgID: "r-2",
			want:  RegistryCaller("r-2"),
		},
		{
			name:  "individual header overrides memberships",
			orgs:  []Organization{{ID: "r-1", Type: "registry"}},
			orgID: IndividualOrganization,
			want:  SecurityOfficial(),
		},
		{
			name:    "unknown organization is rejected",
			orgs:    []Organization{{ID: "r-1", Type: "registry"}},
			orgID:   "r-9",
			wantErr: ErrUnknownOrganization,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CallerFromToken("Bearer "+signToken(t, tt.orgs...), tt.orgID)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCallerFromToken_Malformed(t *testing.T) {
	_, err := CallerFromToken("not-a-jwt", "")
	require.Error(t, err)

	_, err = CallerFromToken("  ", "")
	require.Error(t, err)
}

func TestCallerRole_Owns(t *testing.T) {
	so := SecurityOfficial()
	assert.True(t, so.Owns("securityOfficial", "securityOfficial"))
	assert.False(t, so.Owns("r-1", "securityOfficial"))
	assert.False(t, so.Owns("", "securityOfficial"))

	reg := RegistryCaller("r-1", "q-1")
	assert.True(t, reg.Owns("q-1", "securityOfficial"))
	assert.False(t, reg.Owns("securityOfficial", "securityOfficial"))
	assert.Equal(t, "registry(r-1,q-1)", reg.String())
}
