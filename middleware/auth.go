package middleware

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/tailoring-orders-api/config"
)

// CallerRole is the workshop role carried in the access token
type CallerRole string

const (
	CallerAdmin      CallerRole = "admin"
	CallerConsultant CallerRole = "consultant"
	CallerTailor     CallerRole = "tailor"
	CallerBeader     CallerRole = "beader"
	CallerFitter     CallerRole = "fitter"
	CallerQC         CallerRole = "qc"
)

// RoleClaim is the namespaced custom claim an Auth0 action adds to access tokens
const RoleClaim = "https://tailoring-orders-api/role"

// Validate returns an error for roles the API does not know
func (r CallerRole) Validate() error {
	switch r {
	case CallerAdmin, CallerConsultant, CallerTailor, CallerBeader, CallerFitter, CallerQC:
		return nil
	default:
		return fmt.Errorf("unknown caller role %q", string(r))
	}
}

// CustomClaims contains custom data we want from the token.
type CustomClaims struct {
	Scope string     `json:"scope"`
	Role  CallerRole `json:"https://tailoring-orders-api/role"`
}

// Validate rejects tokens carrying an unknown role. A missing role is allowed;
// RequireRole turns it away from gated routes.
func (c CustomClaims) Validate(ctx context.Context) error {
	if c.Role == "" {
		return nil
	}
	return c.Role.Validate()
}

// HasScope checks whether our claims have a specific scope.
func (c CustomClaims) HasScope(expectedScope string) bool {
	result := strings.Split(c.Scope, " ")
	for i := range result {
		if result[i] == expectedScope {
			return true
		}
	}

	return false
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
func EnsureValidToken(cfg *config.Config) gin.HandlerFunc {
	issuerURL, err := url.Parse("https://" + cfg.Auth0Domain + "/")
	if err != nil {
		log.Fatalf("Failed to parse the issuer url: %v", err)
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Auth0Audience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		log.Fatalf("Failed to set up the jwt validator")
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("Encountered error while validating JWT: %v", err)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Failed to validate JWT."}}`)); writeErr != nil {
			log.Printf("Failed to write error response: %v", writeErr)
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		validated := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			validated = true
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
			c.Request = r
			SetCaller(c, token)
			c.Next()
		}

		// Use the JWT middleware to check the token
		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)

		// The error handler has already written the 401
		if !validated {
			c.Abort()
		}
	}
}

// SetCaller stores the validated token's subject, claims and role in the Gin context
func SetCaller(c *gin.Context, token *validator.ValidatedClaims) {
	c.Set("user_id", token.RegisteredClaims.Subject)
	c.Set("validated_claims", token)
	if custom, ok := token.CustomClaims.(*CustomClaims); ok && custom.Role != "" {
		c.Set("caller_role", custom.Role)
	}
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userIDStr, ok := userID.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}

	return userIDStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get("validated_claims")
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// GetCallerRole extracts the caller's workshop role from the Gin context
func GetCallerRole(c *gin.Context) (CallerRole, error) {
	value, exists := c.Get("caller_role")
	if !exists {
		return "", &AuthError{Code: "MISSING_ROLE", Message: "Caller role not found in token"}
	}

	role, ok := value.(CallerRole)
	if !ok {
		return "", &AuthError{Code: "INVALID_ROLE", Message: "Caller role is not in the expected format"}
	}

	return role, nil
}

// RequireScope is a middleware that checks if the token has a specific scope
func RequireScope(scope string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := GetClaims(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MISSING_CLAIMS",
					"message": "Could not retrieve token claims",
				},
			})
			c.Abort()
			return
		}

		customClaims, ok := claims.CustomClaims.(*CustomClaims)
		if !ok || !customClaims.HasScope(scope) {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INSUFFICIENT_SCOPE",
					"message": "Insufficient permissions to access this resource",
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRole lets the request through only when the caller holds one of roles.
// The workflow engine never checks roles itself; routes are gated here.
func RequireRole(roles ...CallerRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, err := GetCallerRole(c)
		if err != nil {
			c.JSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MISSING_ROLE",
					"message": "No workshop role found in token",
				},
			})
			c.Abort()
			return
		}

		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		c.JSON(http.StatusForbidden, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INSUFFICIENT_ROLE",
				"message": fmt.Sprintf("Role %s may not perform this action", role),
			},
		})
		c.Abort()
	}
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}
