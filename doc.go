// Package auth implements user accounts behind bearer token authentication.
//
// Login:
//   - Auther verifies a username and password against the UserStore with
//     bcrypt. Unknown usernames and wrong passwords fail the same way and
//     cost the same bcrypt compare. Inactive accounts are refused a token.
//   - Tokens are HS256 JWTs carrying sub, role, iat, exp, iss and jti. They
//     are stateless and are never revoked before exp.
//
// Sessions:
//   - SessionResolver decodes the token and re-reads the subject on every
//     request. Deleting or deactivating an account rejects its outstanding
//     tokens immediately, and the stored role wins over the role in the token.
//   - PermissionGuard orders roles as user < admin.
//
// HTTP:
//   - RegisterUserRoutes mounts the fiber routes. RouteAuthenticator wraps
//     middleware/jwtware with the resolver and the guard, and ErrorHandler
//     renders go-errors values as JSON with their HTTP status.
package auth
