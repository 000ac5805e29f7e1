package firebase

import (
	"context"
	"fmt"
	"net/http"
	"os"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	apiauth "github.com/ranorsolutions/svc-controller-go/pkg/auth"
	"github.com/ranorsolutions/svc-controller-go/pkg/controller"
	"github.com/ranorsolutions/svc-controller-go/pkg/service"
	"google.golang.org/api/option"
)

// HandlerName is the descriptor-file name of the Firebase middleware.
const HandlerName = "firebase"

const userKey = "firebaseUser"

// AuthAPI defines the subset of Firebase Auth methods we use.
// This makes it mockable in tests.
type AuthAPI interface {
	VerifyIDToken(ctx context.Context, token string) (*auth.Token, error)
}

// FirebaseService wraps a base service with Firebase integration.
type FirebaseService struct {
	Base   *service.Service
	App    *fb.App
	Auth   AuthAPI
	Config *FirebaseConfig
}

// FirebaseConfig defines the Firebase configuration.
type FirebaseConfig struct {
	CredentialsPath string
	ProjectID       string
}

// NewFirebaseService creates a Firebase-integrated service and makes its
// middleware available to controller descriptors as "firebase".
func NewFirebaseService(base *service.Service, cfg *FirebaseConfig) (*FirebaseService, error) {
	if base == nil {
		return nil, fmt.Errorf("base service is required")
	}

	if cfg == nil {
		cfg = getConfigFromEnv()
	}

	opts := []option.ClientOption{}
	if cfg.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}

	var appCfg *fb.Config
	if cfg.ProjectID != "" {
		appCfg = &fb.Config{ProjectID: cfg.ProjectID}
	}

	app, err := fb.NewApp(context.Background(), appCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	authClient, err := app.Auth(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase Auth: %w", err)
	}

	base.Logger.Info("Firebase initialized for project %s", cfg.ProjectID)

	fs := &FirebaseService{
		Base:   base,
		App:    app,
		Auth:   authClient,
		Config: cfg,
	}
	fs.RegisterHandlers(base.Handlers)
	return fs, nil
}

func getConfigFromEnv() *FirebaseConfig {
	return &FirebaseConfig{
		CredentialsPath: os.Getenv("FIREBASE_CREDENTIALS"),
		ProjectID:       os.Getenv("FIREBASE_PROJECT_ID"),
	}
}

// RegisterHandlers binds the middleware to HandlerName in h.
func (fs *FirebaseService) RegisterHandlers(h *controller.Handlers) {
	if h == nil {
		return
	}
	h.Register(HandlerName, fs.Middleware())
}

// VerifyToken verifies and decodes a Firebase ID token.
func (fs *FirebaseService) VerifyToken(ctx context.Context, token string) (*auth.Token, error) {
	tok, err := fs.Auth.VerifyIDToken(ctx, token)
	if err != nil {
		fs.Base.Logger.Error(fmt.Sprintf("failed to verify Firebase token: %v", err))
		return nil, fmt.Errorf("invalid Firebase token: %w", err)
	}
	return tok, nil
}

// Middleware returns a Gin middleware that validates Firebase ID tokens
// and stores the decoded token for GetFirebaseUser.
func (fs *FirebaseService) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, err := apiauth.BearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		tok, err := fs.VerifyToken(c.Request.Context(), tokenStr)
		if err != nil {
			fs.Base.Logger.Warn("unauthorized request: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(userKey, tok)
		c.Next()
	}
}

// GetFirebaseUser retrieves the authenticated Firebase user from the Gin context.
func GetFirebaseUser(c *gin.Context) *auth.Token {
	if v, ok := c.Get(userKey); ok {
		if tok, ok := v.(*auth.Token); ok {
			return tok
		}
	}
	return nil
}
