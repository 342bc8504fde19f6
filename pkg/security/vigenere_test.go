package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVigenereRoundTrip(t *testing.T) {
	c := NewVigenereCipher()

	encrypted := c.Encrypt("ATTACKATDAWN", "LEMON")
	assert.Equal(t, "LXFOPVEFRNHR", encrypted)
	assert.Equal(t, "ATTACKATDAWN", c.Decrypt(encrypted, "LEMON"))
}

func TestVigenereNormalizesInput(t *testing.T) {
	c := NewVigenereCipher()

	// Case, spaces and punctuation are stripped before processing.
	assert.Equal(t, "LXFOPVEFRNHR", c.Encrypt("attack at dawn!", "lemon"))
	assert.Equal(t, "ATTACKATDAWN", c.Decrypt("lxfop vefrn hr", "LEMON"))
}

func TestVigenereEmptyKeyPassesThrough(t *testing.T) {
	c := NewVigenereCipher()

	assert.Equal(t, "hello", c.Encrypt("hello", ""))
	assert.Equal(t, "hello", c.Encrypt("hello", "123 !@#"))
}

func TestIsCipherText(t *testing.T) {
	assert.True(t, IsCipherText("LXFOPVEFRNHR"))
	assert.True(t, IsCipherText("LXFOP VEFRN HR"))
	assert.False(t, IsCipherText("LXFOP1"))
	assert.False(t, IsCipherText("LXFOP!"))
}
