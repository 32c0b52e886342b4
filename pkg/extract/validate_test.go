package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	valid := []string{
		"a@test.com",
		"first.last+tag@sub.example.co.uk",
		"UPPER@CASE.ORG",
		"x@y.z",
	}
	invalid := []string{
		"",
		"plainaddress",
		"@missing-local.com",
		"missing-at.com",
		"no-dot@domain",
		"two@@at.com",
		"a b@space.com",
		"trailing@space.com ",
		"a@b@c.com",
	}

	for _, v := range valid {
		assert.True(t, Validate(v), "expected %q to be valid", v)
	}
	for _, v := range invalid {
		assert.False(t, Validate(v), "expected %q to be invalid", v)
	}
}

func TestInvalid(t *testing.T) {
	assert.Nil(t, Invalid([]string{"a@b.com", "c@d.org"}))
	assert.Nil(t, Invalid(nil))
	assert.Equal(t,
		[]string{"bad", "also bad@x.com"},
		Invalid([]string{"ok@x.com", "bad", "fine@y.org", "also bad@x.com"}),
	)
}
