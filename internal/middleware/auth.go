package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zhouzirui/z-chatbot/backend/pkg/utils"
)

// TokenHeader carries the login token on every authenticated request.
const TokenHeader = "x-auth-token"

type identityKey struct{}

// TokenVerifier resolves a token into the caller identity.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Auth 校验请求令牌，并把调用者身份写入 context。
// 浏览器无法为 WebSocket/EventSource 设置请求头，因此也接受 token 查询参数。
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := strings.TrimSpace(r.Header.Get(TokenHeader))
			if token == "" {
				token = strings.TrimSpace(r.URL.Query().Get("token"))
			}
			if token == "" {
				utils.RespondError(w, http.StatusUnauthorized, "access denied, no token provided")
				return
			}

			identity, err := verifier.Verify(token)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// IdentityFrom returns the caller identity stored by Auth.
func IdentityFrom(ctx context.Context) (string, bool) {
	identity, ok := ctx.Value(identityKey{}).(string)
	return identity, ok && identity != ""
}
