// Package github talks to GitHub on behalf of the graduate listing: it turns a
// stored profile URL into a login and fetches that login's public profile over
// the GraphQL API.
package github

import (
	"strings"
	"unicode"
)

// ProfileURLPrefix is the only URL shape we know how to turn into a login.
const ProfileURLPrefix = "https://github.com/"

// ExtractUsername derives a GitHub login from a stored profile URL.
//
// Everything after ProfileURLPrefix is kept only if it is a letter or a number
// (any Unicode number, so "²" and "½" are kept as well as 0-9).
// "https://github.com/Foo-Bar123" yields "FooBar123" and trailing path
// segments are folded in rather than cut off. Case is left alone.
//
// The second return value is false when the URL does not start with the prefix.
// A bare prefix yields ("", true).
func ExtractUsername(url string) (string, bool) {
	rest, ok := strings.CutPrefix(url, ProfileURLPrefix)
	if !ok {
		return "", false
	}

	var b strings.Builder
	for _, r := range rest {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), true
}
