package security

import (
	"strings"
	"unicode"
)

// VigenereCipher implements the classic A-Z Vigenère cipher used for the
// protected content archive. Input and key are normalized to uppercase
// letters before processing; anything else is stripped.
type VigenereCipher struct{}

func NewVigenereCipher() *VigenereCipher {
	return &VigenereCipher{}
}

func normalizeLetters(text string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(text) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func shiftChar(c, key byte, decrypt bool) byte {
	offset := int(key - 'A')
	if decrypt {
		offset = -offset
	}
	return byte((int(c-'A')+offset+26)%26 + 'A')
}

func (v *VigenereCipher) transform(text, key string, decrypt bool) string {
	normKey := normalizeLetters(key)
	if normKey == "" {
		return text
	}
	normText := normalizeLetters(text)

	out := make([]byte, len(normText))
	for i := 0; i < len(normText); i++ {
		out[i] = shiftChar(normText[i], normKey[i%len(normKey)], decrypt)
	}
	return string(out)
}

func (v *VigenereCipher) Encrypt(plaintext, key string) string {
	return v.transform(plaintext, key, false)
}

func (v *VigenereCipher) Decrypt(ciphertext, key string) string {
	return v.transform(ciphertext, key, true)
}

// IsCipherText reports whether text consists only of letters and whitespace,
// the shape produced by Encrypt plus optional grouping.
func IsCipherText(text string) bool {
	for _, r := range text {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}
