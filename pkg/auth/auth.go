package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	kms "cloud.google.com/go/kms/apiv1"
	"cloud.google.com/go/kms/apiv1/kmspb"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/ranorsolutions/svc-controller-go/pkg/controller"
)

// ClaimsKey is the gin context key holding the verified jwt.MapClaims.
const ClaimsKey = "claims"

const defaultCookie = "auth-cookie"

var (
	errMissingCredentials = errors.New("missing Authorization header or session cookie")
	errInvalidFormat      = errors.New("invalid Authorization format")
)

// Decrypter decrypts an encrypted session cookie.
type Decrypter interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// KMSDecrypter decrypts session cookies with a Cloud KMS key.
type KMSDecrypter struct {
	Client  *kms.KeyManagementClient
	KeyName string
}

// NewKMSDecrypter connects to Cloud KMS using ambient credentials.
func NewKMSDecrypter(ctx context.Context, keyName string) (*KMSDecrypter, error) {
	client, err := kms.NewKeyManagementClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create kms client: %w", err)
	}
	return &KMSDecrypter{Client: client, KeyName: keyName}, nil
}

// Decrypt implements Decrypter.
func (k *KMSDecrypter) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	result, err := k.Client.Decrypt(ctx, &kmspb.DecryptRequest{
		Name:       k.KeyName,
		Ciphertext: ciphertext,
	})
	if err != nil {
		return nil, err
	}
	return result.Plaintext, nil
}

// Session is the decrypted content of the session cookie.
type Session struct {
	RefreshToken string `json:"refreshToken"`
	IDToken      string `json:"idToken"`
	SessionID    string `json:"sessionId"`
	AccessToken  string `json:"accessToken"`
}

// Config configures the JWT middleware.
type Config struct {
	Secret []byte
	// Cookie carries the encrypted session when no Authorization header is sent.
	Cookie    string
	Decrypter Decrypter
	Now       func() time.Time
}

// ConfigFromEnv reads AUTH_SECRET. The decrypter is left for the caller.
func ConfigFromEnv() Config {
	return Config{
		Secret: []byte(os.Getenv("AUTH_SECRET")),
		Cookie: defaultCookie,
	}
}

// Register exposes the middleware to descriptor files as "auth" and
// "auth:perm1,perm2".
func Register(h *controller.Handlers, cfg Config) {
	h.Register("auth", Required(cfg))
	h.Prefix("auth", func(arg string) (gin.HandlerFunc, bool) {
		perms := splitPermissions(arg)
		if len(perms) == 0 {
			return nil, false
		}
		return Required(cfg, perms...), true
	})
}

// BearerToken extracts the token from an "Authorization: Bearer x" header.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingCredentials
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", errInvalidFormat
	}
	return parts[1], nil
}

// Required verifies the access token and checks that the account is
// enabled, verified, licensed and holds every permission listed.
func Required(cfg Config, permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := cfg.token(c)
		if err != nil {
			abort(c, err.Error())
			return
		}

		accessToken, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return cfg.Secret, nil
		})
		if err != nil {
			abort(c, fmt.Sprintf("error parsing token: %s", err.Error()))
			return
		}

		claims, ok := accessToken.Claims.(jwt.MapClaims)
		if !ok {
			abort(c, "unexpected token claims")
			return
		}
		if err := cfg.check(claims, permissions); err != nil {
			abort(c, err.Error())
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// Claims returns the claims stored by Required.
func Claims(c *gin.Context) jwt.MapClaims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(jwt.MapClaims); ok {
			return claims
		}
	}
	return nil
}

func (cfg Config) token(c *gin.Context) (string, error) {
	if header := c.GetHeader("Authorization"); header != "" {
		return BearerToken(header)
	}
	if cfg.Decrypter == nil {
		return "", errMissingCredentials
	}
	session, err := DecodeSession(c, cfg.cookie(), cfg.Decrypter)
	if err != nil {
		return "", err
	}
	return session.AccessToken, nil
}

func (cfg Config) cookie() string {
	if cfg.Cookie == "" {
		return defaultCookie
	}
	return cfg.Cookie
}

func (cfg Config) now() time.Time {
	if cfg.Now != nil {
		return cfg.Now()
	}
	return time.Now()
}

func (cfg Config) check(claims jwt.MapClaims, required []string) error {
	uid := claims["uid"]
	if claims["disabled"] == true {
		return fmt.Errorf("user account %s is disabled", uid)
	}
	if claims["emailVerified"] == false {
		return fmt.Errorf("email for account %s is not verified", uid)
	}

	license, ok := claims["license"].(map[string]interface{})
	if !ok {
		return fmt.Errorf("user %s does not have a valid license", uid)
	}
	startDate, err := licenseDate(license, "startDate")
	if err != nil {
		return fmt.Errorf("user %s does not have a valid license: %s", uid, err.Error())
	}
	endDate, err := licenseDate(license, "endDate")
	if err != nil {
		return fmt.Errorf("user %s does not have a valid license: %s", uid, err.Error())
	}

	today := cfg.now()
	if today.Before(startDate) {
		return fmt.Errorf("license has not started for user %s", uid)
	}
	if !endDate.IsZero() && today.After(endDate) {
		return fmt.Errorf("license has expired for user %s", uid)
	}

	if len(required) == 0 {
		return nil
	}
	granted, ok := claims["permissions"].([]interface{})
	if !ok {
		return fmt.Errorf("user %s does not have any permissions", uid)
	}
	held := map[string]bool{}
	for _, p := range granted {
		s, ok := p.(string)
		if !ok {
			return fmt.Errorf("error getting permissions for account %s", uid)
		}
		held[s] = true
	}
	for _, p := range required {
		if !held[p] {
			return errors.New("missing required permissions to access this endpoint")
		}
	}
	return nil
}

// licenseDate parses an RFC 3339 date; an empty value is the zero time.
func licenseDate(license map[string]interface{}, key string) (time.Time, error) {
	raw, _ := license[key].(string)
	if raw == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, raw)
}

// DecodeSession decrypts the session cookie.
func DecodeSession(c *gin.Context, cookieName string, d Decrypter) (*Session, error) {
	cookie, err := c.Request.Cookie(cookieName)
	if err != nil {
		return nil, fmt.Errorf("missing cookie")
	}

	decodedCookie, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil, err
	}

	plaintext, err := d.Decrypt(c, []byte(decodedCookie))
	if err != nil {
		return nil, err
	}

	session := &Session{}
	if err := json.Unmarshal(plaintext, session); err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}
	return session, nil
}

func splitPermissions(arg string) []string {
	var perms []string
	for _, p := range strings.Split(arg, ",") {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, p)
		}
	}
	return perms
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
