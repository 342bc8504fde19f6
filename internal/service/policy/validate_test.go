package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzalewski/secadmin-api/internal/model"
)

func policyWith(mutate func(*model.PasswordPolicy)) *model.PasswordPolicy {
	p := model.DefaultPasswordPolicy()
	p.Enabled = true
	if mutate != nil {
		mutate(p)
	}
	return p
}

func TestValidateDisabledPolicyPassesEverything(t *testing.T) {
	p := model.DefaultPasswordPolicy()
	require.False(t, p.Enabled)

	assert.Nil(t, Validate("", p))
	assert.Nil(t, Validate("x", p))
}

func TestValidateMinimumLength(t *testing.T) {
	p := policyWith(nil)

	v := Validate("short1A", p)
	require.NotNil(t, v)
	assert.Equal(t, RuleMinimumLength, v.Rule)

	assert.Nil(t, Validate("longenough", p))
}

func TestValidateMinimumLengthCountsRunes(t *testing.T) {
	p := policyWith(nil)

	// Five multibyte characters span more than eight bytes but are still
	// five characters.
	v := Validate("żżżżż", p)
	require.NotNil(t, v)
	assert.Equal(t, RuleMinimumLength, v.Rule)

	assert.Nil(t, Validate("żżżżżżżż", p))
}

func TestValidateNilMinimumLength(t *testing.T) {
	p := policyWith(func(p *model.PasswordPolicy) { p.MinimumLength = nil })

	assert.Nil(t, Validate("", p))
}

func TestValidateRequireDigit(t *testing.T) {
	p := policyWith(func(p *model.PasswordPolicy) { p.RequireDigit = true })

	v := Validate("abcdefgh", p)
	require.NotNil(t, v)
	assert.Equal(t, RuleDigit, v.Rule)

	assert.Nil(t, Validate("abcdefg1", p))
}

func TestValidateRequireUppercase(t *testing.T) {
	p := policyWith(func(p *model.PasswordPolicy) { p.RequireUppercase = true })

	v := Validate("abcdefgh", p)
	require.NotNil(t, v)
	assert.Equal(t, RuleUppercase, v.Rule)

	assert.Nil(t, Validate("Abcdefgh", p))
}

func TestValidateRequireSpecial(t *testing.T) {
	p := policyWith(func(p *model.PasswordPolicy) { p.RequireSpecial = true })

	v := Validate("abcdefg1", p)
	require.NotNil(t, v)
	assert.Equal(t, RuleSpecial, v.Rule)

	assert.Nil(t, Validate("abcdefg!", p))
	// Underscore counts as special.
	assert.Nil(t, Validate("abcdefg_", p))
}

func TestValidateCheckOrder(t *testing.T) {
	p := policyWith(func(p *model.PasswordPolicy) {
		p.RequireDigit = true
		p.RequireUppercase = true
		p.RequireSpecial = true
	})

	// Fails everything; length is reported first.
	v := Validate("abc", p)
	require.NotNil(t, v)
	assert.Equal(t, RuleMinimumLength, v.Rule)

	// Long enough, still no digit; digit comes before uppercase.
	v = Validate("abcdefgh", p)
	require.NotNil(t, v)
	assert.Equal(t, RuleDigit, v.Rule)
}
