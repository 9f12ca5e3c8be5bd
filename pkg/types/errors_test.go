package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPartialFailure(t *testing.T) {
	pf := &PartialFailureError{Op: "replace", App: "Billing", Step: "create application", ApplicationDeleted: true, Err: ErrApplicationExists}
	wrapped := fmt.Errorf("service: %w", pf)

	assert.True(t, IsPartialFailure(pf))
	assert.True(t, IsPartialFailure(wrapped))
	assert.False(t, IsPartialFailure(ErrNotFound))
	assert.True(t, errors.Is(wrapped, ErrApplicationExists), "cause stays reachable")
	assert.Contains(t, pf.Error(), "deleted and not recreated")
}

func TestStoreErrorMessage(t *testing.T) {
	cause := errors.New("disk full")
	tests := []struct {
		name string
		err  *StoreError
		want string
	}{
		{
			name: "with code",
			err:  &StoreError{Op: "SetConfigInfo", App: "Billing", Code: "13", Message: "database or disk is full", Err: cause},
			want: "SetConfigInfo(Billing): store error 13: database or disk is full",
		},
		{
			name: "falls back to cause",
			err:  &StoreError{Op: "DeleteApplication", App: "Billing", Err: cause},
			want: "DeleteApplication(Billing): store error: disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
			assert.True(t, IsStoreFailure(fmt.Errorf("wrap: %w", tt.err)))
			assert.ErrorIs(t, tt.err, cause)
		})
	}
}
