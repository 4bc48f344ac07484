// Package auth gates device requests.
//
// Devices present a bearer session token minted at /v1/auth/device. The
// token is an HS256 JWT carrying the device id, wrapped in standard base64.
// A request is authorized in a fixed order:
//
//  1. a credential is present (ErrUnauthenticated)
//  2. the header is well formed (ErrInvalidAuthHeader)
//  3. the token verifies and is not expired (ErrInvalidToken, ErrExpiredToken)
//  4. the device is linked to an API key (ErrNotLinked)
//  5. the key's capability set contains the route's capability (ErrForbidden)
//
// Steps 1 to 4 run in the middleware. Step 5 runs when the handler calls
// Authorized, after it has validated the request.
//
// # Usage
//
//	authorizer := auth.NewAuthorizer(sessions, deviceService, auth.AllCapabilities{})
//	router.GET("/v1/library/sync", authorizer.RequireCapability(auth.Read), handler)
//
// Confirm the capability in handlers once the input is valid:
//
//	identity, err := auth.Authorized(c)
package auth
