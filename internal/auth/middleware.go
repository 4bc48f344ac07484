package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
)

// ContextKeyIdentity is the gin context key holding the authorized Identity.
const ContextKeyIdentity = "auth_identity"

const contextKeyRequired = "auth_required_capability"

// Identity is a device that passed authorization.
type Identity struct {
	DeviceID     string
	APIKey       string
	Capabilities CapabilitySet
}

// KeyLookup resolves the API key a device is currently linked with.
// Implementations return ErrNotLinked for devices without a link.
type KeyLookup interface {
	LinkedKey(deviceID string) (string, error)
}

// Authorizer evaluates session tokens against the link relation and the
// capability policy.
type Authorizer struct {
	sessions *SessionTokens
	links    KeyLookup
	resolver CapabilityResolver
}

// NewAuthorizer creates an Authorizer. A nil resolver grants all capabilities.
func NewAuthorizer(sessions *SessionTokens, links KeyLookup, resolver CapabilityResolver) *Authorizer {
	if resolver == nil {
		resolver = AllCapabilities{}
	}
	return &Authorizer{sessions: sessions, links: links, resolver: resolver}
}

// Authenticate resolves the identity behind an Authorization header
// without checking a capability.
func (a *Authorizer) Authenticate(header string) (*Identity, error) {
	if header == "" {
		return nil, ErrUnauthenticated
	}

	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "bearer") {
		return nil, ErrInvalidAuthHeader
	}

	deviceID, err := a.sessions.Verify(fields[1])
	if err != nil {
		return nil, err
	}

	apiKey, err := a.links.LinkedKey(deviceID)
	if err != nil {
		return nil, err
	}

	return &Identity{
		DeviceID:     deviceID,
		APIKey:       apiKey,
		Capabilities: a.resolver.Resolve(apiKey),
	}, nil
}

// Authorize resolves the identity and checks it holds the required capability.
func (a *Authorizer) Authorize(header string, required Capability) (*Identity, error) {
	identity, err := a.Authenticate(header)
	if err != nil {
		return nil, err
	}
	if !identity.Capabilities.Has(required) {
		return nil, ErrForbidden
	}
	return identity, nil
}

// RequireLink returns a middleware that only requires an authenticated,
// linked device.
func (a *Authorizer) RequireLink() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := a.Authenticate(c.GetHeader("Authorization"))
		a.handle(c, identity, err)
	}
}

// RequireCapability returns a middleware that authenticates the request and
// records the capability the route needs. Handlers confirm it with
// Authorized after validating their input, so a malformed request is
// rejected before a missing capability. Failures are attached to the context
// with c.Error and rendered by the router's error handler.
func (a *Authorizer) RequireCapability(required Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := a.Authenticate(c.GetHeader("Authorization"))
		if err == nil {
			c.Set(contextKeyRequired, required)
		}
		a.handle(c, identity, err)
	}
}

// Authorized returns the caller if it holds the capability recorded by
// RequireCapability. Routes guarded by RequireLink need none.
func Authorized(c *gin.Context) (*Identity, error) {
	identity := GetIdentity(c)
	if identity == nil {
		return nil, ErrUnauthenticated
	}
	if value, ok := c.Get(contextKeyRequired); ok {
		if required, _ := value.(Capability); !identity.Capabilities.Has(required) {
			return nil, ErrForbidden
		}
	}
	return identity, nil
}

func (a *Authorizer) handle(c *gin.Context, identity *Identity, err error) {
	if err != nil {
		_ = c.Error(err)
		c.Abort()
		return
	}
	c.Set(ContextKeyIdentity, identity)
	c.Next()
}

// GetIdentity returns the identity stored by the middleware, or nil.
func GetIdentity(c *gin.Context) *Identity {
	value, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return nil
	}
	identity, _ := value.(*Identity)
	return identity
}

// IsAuthError reports whether err belongs to the authorization taxonomy.
func IsAuthError(err error) bool {
	for _, target := range []error{
		ErrUnauthenticated, ErrInvalidAuthHeader, ErrInvalidToken,
		ErrExpiredToken, ErrNotLinked, ErrForbidden,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
