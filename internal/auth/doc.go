// Package auth provides bearer token authentication for the development backend.
//
// # Tokens
//
// Tokens are HS256 JWTs whose "sub" claim is the username:
//
//	verifier, err := NewJWTVerifier(secret)
//	token, err := verifier.Generate("alice", 24*time.Hour)
//	subject, err := verifier.Verify(token)
//
// Expired tokens fail with ErrExpiredToken; anything else malformed or
// mis-signed wraps ErrInvalidToken.
//
// # Middleware
//
// HTTPAuthMiddleware resolves the subject through an IdentityLookup on every
// request, so admin changes take effect without reissuing tokens.
// RequireAdminHTTP chains after it for admin-only routes.
package auth
