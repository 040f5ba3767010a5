package auth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestMapUniqueViolation(t *testing.T) {
	other := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "case-insensitive email index",
			err:  &pq.Error{Code: pqUniqueViolation, Constraint: "users_email_lower_key"},
			want: ErrEmailTaken,
		},
		{
			name: "legacy email constraint",
			err:  &pq.Error{Code: pqUniqueViolation, Constraint: "users_email_key"},
			want: ErrEmailTaken,
		},
		{
			name: "username constraint",
			err:  fmt.Errorf("insert user_public: %w", &pq.Error{Code: pqUniqueViolation, Constraint: "user_public_username_key"}),
			want: ErrUsernameTaken,
		},
		{
			name: "unrelated constraint",
			err:  &pq.Error{Code: pqUniqueViolation, Constraint: "users_pkey"},
		},
		{
			name: "other postgres error",
			err:  &pq.Error{Code: "23503", Constraint: "users_email_lower_key"},
		},
		{
			name: "not a postgres error",
			err:  other,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapUniqueViolation(tt.err)
			if tt.want != nil {
				assert.ErrorIs(t, got, tt.want)
				return
			}
			assert.Same(t, tt.err, got)
		})
	}
}
