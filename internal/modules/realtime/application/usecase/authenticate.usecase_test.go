package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"chatWs/internal/modules/realtime/domain"
	"chatWs/internal/shared/auth"
	"chatWs/internal/test/fakes"
)

func TestAuthenticator_Authenticate(t *testing.T) {
	t.Parallel()

	const secret = "unit-secret"
	validator, err := auth.NewJWTValidator(secret, "")
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	store := fakes.NewStore()
	store.AddUser(7, "alice", true)
	store.AddUser(8, "mallory", false)
	authenticator := NewAuthenticator(validator, store)

	sign := func(name string) string {
		token, err := auth.SignHS256(secret, name, time.Minute)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}

	cases := []struct {
		name    string
		token   string
		want    domain.Identity
		wantErr error
	}{
		{name: "active user", token: sign("alice"), want: domain.Identity{UserID: 7, Username: "alice"}},
		{name: "inactive user", token: sign("mallory"), wantErr: ErrUserInactive},
		{name: "unknown user", token: sign("ghost"), wantErr: ErrUserInactive},
		{name: "missing token", token: "", wantErr: auth.ErrMissingToken},
		{name: "bad token", token: "abc.def.ghi", wantErr: auth.ErrInvalidToken},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := authenticator.Authenticate(context.Background(), tc.token)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("identity mismatch: %+v", got)
			}
		})
	}
}
