/*
Package authsdk is the client side of the session authentication service.

# SDKClient vs Session

  - SDKClient: unauthenticated calls (login, refresh, JWKS, health) and the
    admin key endpoints guarded by an operator token.
  - Session: calls made with a user's access token. It refreshes the token
    pair when the access token is about to expire.

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.AuthenticateWithPassword(ctx, authsdk.LoginRequest{
		Email:    "u@example.com",
		Password: "pw123456",
	})

	sessions, err := session.ListSessions(ctx)
	_, err = session.Logout(ctx, false)

# Refresh tokens are single use

Every refresh returns a new refresh token and invalidates the one that was
presented. A Session serializes refreshes, so sharing one Session between
goroutines is safe; sharing the raw refresh token between two Sessions is
not, and the loser of that race is told to log in again.

# Error Handling

Failed calls return *APIError. When the server sets requiresReauth
(unknown signing key, revoked or expired session, reused refresh token)
the Session drops its tokens and returns an error wrapping
ErrReauthRequired:

	if authsdk.RequiresReauth(err) {
		// send the user to the login screen
	}

Logout always clears local tokens, even when the server is unreachable.

# Verifying tokens in other services

JWKSVerifier checks access tokens offline against the published key set
and follows key rotations:

	v, err := authsdk.NewJWKSVerifier("https://auth.example.com/.well-known/jwks.json",
		authsdk.VerifierOptions{Issuer: "sessiond", Audience: "portal"})
	defer v.Close()
	claims, err := v.Verify(token)
*/
package authsdk
