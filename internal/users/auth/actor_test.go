// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zaffranfoods/zaffran/internal/platform/sec"
	"github.com/zaffranfoods/zaffran/internal/users/auth"
)

/*
TestResolveActor exercises the credential precedence used by best-effort
endpoints like logout.
*/
func TestResolveActor(t *testing.T) {
	verify := func(token string) (string, error) {
		if token == "good-refresh" {
			return "user-from-refresh", nil
		}
		return "", sec.ErrTokenInvalid
	}

	tests := []struct {
		name         string
		claims       *sec.AccessClaims
		refreshToken string
		wantUserID   string
		wantOK       bool
	}{
		{"access_claims_win", &sec.AccessClaims{UserID: "user-from-claims"}, "good-refresh", "user-from-claims", true},
		{"refresh_fallback", nil, "good-refresh", "user-from-refresh", true},
		{"empty_claims_fall_through", &sec.AccessClaims{}, "good-refresh", "user-from-refresh", true},
		{"bad_refresh", nil, "tampered", "", false},
		{"nothing_presented", nil, "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, ok := auth.ResolveActor(tt.claims, tt.refreshToken, verify)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantUserID, userID)
		})
	}
}

/*
TestResolveActor_NilVerifier ensures a missing verifier cannot panic.
*/
func TestResolveActor_NilVerifier(t *testing.T) {
	userID, ok := auth.ResolveActor(nil, "good-refresh", nil)
	assert.False(t, ok)
	assert.Empty(t, userID)
}
