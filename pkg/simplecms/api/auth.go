package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/jwtauth"
	"github.com/tendant/simple-cms/pkg/simplecms/entity"
)

type accountCtxKey struct{}

// WithAccount stores the acting account in ctx.
func WithAccount(ctx context.Context, account entity.Account) context.Context {
	return context.WithValue(ctx, accountCtxKey{}, account)
}

// AccountFromContext returns the acting account, anonymous when none is set.
func AccountFromContext(ctx context.Context) entity.Account {
	if account, ok := ctx.Value(accountCtxKey{}).(entity.Account); ok && account != nil {
		return account
	}
	return entity.AnonymousAccount()
}

// Authenticate verifies a bearer JWT when one is sent and exposes its
// "uid" and "permissions" claims as the acting account. Requests without a
// token act as the anonymous account; invalid tokens are rejected.
func Authenticate(ja *jwtauth.JWTAuth) func(http.Handler) http.Handler {
	verify := jwtauth.Verifier(ja)
	return func(next http.Handler) http.Handler {
		return verify(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, claims, err := jwtauth.FromContext(r.Context())
			switch {
			case errors.Is(err, jwtauth.ErrNoTokenFound):
				next.ServeHTTP(w, r)
				return
			case err != nil || token == nil:
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), AccountFromClaims(claims))))
		}))
	}
}

// AccountFromClaims maps JWT claims onto an account.
func AccountFromClaims(claims map[string]interface{}) *entity.StaticAccount {
	account := &entity.StaticAccount{UID: "0"}
	if uid, ok := claims["uid"]; ok && uid != nil {
		account.UID = fmt.Sprint(uid)
	}
	switch perms := claims["permissions"].(type) {
	case []string:
		account.Permissions = append(account.Permissions, perms...)
	case []interface{}:
		for _, p := range perms {
			if s, ok := p.(string); ok {
				account.Permissions = append(account.Permissions, s)
			}
		}
	}
	return account
}
