// Copyright (c) 2026 Zaffran Foods. All rights reserved.
// Author: platform@zaffran.shop

package auth

import (
	"github.com/zaffranfoods/zaffran/internal/platform/sec"
)

/*
ResolveActor determines which user a best-effort request (such as logout)
belongs to, using whatever credentials happen to be present.

Description: Pure resolution with a fixed precedence — verified access claims
first, then a verifiable refresh token. No side effects; callers decide what
to do when no actor can be resolved.

Parameters:
  - claims: *sec.AccessClaims (nil when the request carried no valid access token)
  - refreshToken: string (raw cookie/body value, possibly empty)
  - verifyRefresh: func(string) (string, error) (signature+expiry check returning the user ID)

Returns:
  - string: Resolved user ID
  - bool: false when neither credential resolves
*/
func ResolveActor(claims *sec.AccessClaims, refreshToken string, verifyRefresh func(string) (string, error)) (string, bool) {
	if claims != nil && claims.UserID != "" {
		return claims.UserID, true
	}

	if refreshToken != "" && verifyRefresh != nil {
		if userID, err := verifyRefresh(refreshToken); err == nil && userID != "" {
			return userID, true
		}
	}

	return "", false
}
