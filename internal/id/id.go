// Package id generates the server-internal identifiers for users, sessions
// and stored records. Clients never see these; they address records by uuid.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Kind prefixes an identifier with what it names.
type Kind string

const (
	User    Kind = "user"
	Session Kind = "session"
	Token   Kind = "token"
	Tag     Kind = "tag"
	Note    Kind = "note"
)

const nanoLength = 21

// Generate returns "<kind>-<nanoid>", e.g. "note-V1StGXR8_Z5jdHi6B-myT".
func Generate(kind Kind) (string, error) {
	n, err := gonanoid.New(nanoLength)
	if err != nil {
		return "", fmt.Errorf("generate %s id: %w", kind, err)
	}
	return string(kind) + "-" + n, nil
}

// MustGenerate panics when the system runs out of entropy.
func MustGenerate(kind Kind) string {
	v, err := Generate(kind)
	if err != nil {
		panic(err)
	}
	return v
}

// KindOf reports the prefix of an identifier produced by Generate.
func KindOf(v string) (Kind, bool) {
	prefix, rest, ok := strings.Cut(v, "-")
	if !ok || len(rest) != nanoLength {
		return "", false
	}
	switch k := Kind(prefix); k {
	case User, Session, Token, Tag, Note:
		return k, true
	}
	return "", false
}
