package tenant_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/opsapi-io/opsapi/internal/tenant"
)

func TestNormalizeOwnerFlag(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want bool
	}{
		{"bool true", true, true},
		{"bool false", false, false},
		{"postgres char t", "t", true},
		{"postgres char f", "f", false},
		{"word true", "true", false},
		{"byte t", []byte{'t'}, true},
		{"byte f", []byte{'f'}, false},
		{"int one", 1, true},
		{"int zero", 0, false},
		{"int64 one", int64(1), true},
		{"int64 two", int64(2), false},
		{"float one", float64(1), true},
		{"nil", nil, false},
		{"unrelated type", struct{}{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tenant.NormalizeOwnerFlag(tt.raw))
		})
	}
}

func TestValidateSlug(t *testing.T) {
	assert.NoError(t, tenant.ValidateSlug("acme"))
	assert.NoError(t, tenant.ValidateSlug("acme-corp-2"))

	assert.ErrorIs(t, tenant.ValidateSlug("Acme"), tenant.ErrInvalidSlug)
	assert.ErrorIs(t, tenant.ValidateSlug("-acme"), tenant.ErrInvalidSlug)
	assert.ErrorIs(t, tenant.ValidateSlug("ab"), tenant.ErrInvalidSlug)
	assert.ErrorIs(t, tenant.ValidateSlug("www"), tenant.ErrInvalidSlug)
	assert.ErrorIs(t, tenant.ValidateSlug("api"), tenant.ErrInvalidSlug)
}
