package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ptr(s string) *string { return &s }

func TestDisplayNameFallbackChain(t *testing.T) {
	cases := []struct {
		name string
		user User
		want string
	}{
		{"explicit name", User{Name: ptr("Ana"), FullName: ptr("Ana Ruiz"), Email: "a@x.io"}, "Ana"},
		{"full name", User{Name: ptr("  "), FullName: ptr("Ana Ruiz"), Email: "a@x.io"}, "Ana Ruiz"},
		{"nombre", User{Nombre: ptr("Ana María"), Email: "a@x.io"}, "Ana María"},
		{"email", User{Email: "a@x.io"}, "a@x.io"},
		{"literal", User{}, DefaultDisplayName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.user.DisplayName())
		})
	}
}
