package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nightspite/sol-pos/internal/pkg/jwthelper"
)

const (
	signingKey = "test-key"
	userAgent  = "pos-terminal/1.0"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", NewAuthenticator(signingKey).VerifyJWT(), func(ctx *gin.Context) {
		ctx.String(http.StatusOK, ctx.GetString(ContextUserIDKey))
	})

	return r
}

func TestAuthenticator_VerifyJWT(t *testing.T) {
	token, err := jwthelper.GenerateToken([]byte(signingKey), "user-1", userAgent)
	require.NoError(t, err)

	tests := []struct {
		name       string
		url        string
		header     string
		userAgent  string
		wantStatus int
		wantBody   string
	}{
		{name: "header token", url: "/me", header: "Bearer " + token, userAgent: userAgent, wantStatus: http.StatusOK, wantBody: "user-1"},
		{name: "query token", url: "/me?token=" + token, userAgent: userAgent, wantStatus: http.StatusOK, wantBody: "user-1"},
		{name: "missing token", url: "/me", userAgent: userAgent, wantStatus: http.StatusUnauthorized},
		{name: "garbage token", url: "/me", header: "Bearer nope", userAgent: userAgent, wantStatus: http.StatusUnauthorized},
		{name: "other user agent", url: "/me", header: "Bearer " + token, userAgent: "curl/8.0", wantStatus: http.StatusUnauthorized},
	}

	r := newRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			req.Header.Set("User-Agent", tt.userAgent)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, w.Body.String())
			}
		})
	}
}
