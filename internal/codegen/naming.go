package codegen

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	wordSplitRe  = regexp.MustCompile(`[^A-Za-z0-9]+`)
	enumMemberRe = regexp.MustCompile(`[^A-Za-z0-9_]`)
	unitNameRe   = regexp.MustCompile(`[^A-Za-z0-9_-]`)
	identRe      = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)
)

// PascalCase splits s on every run of characters outside [A-Za-z0-9],
// lowercases each word, uppercases its first letter and joins the words.
//
// Words are lowercased before capitalising, so existing camel case is not
// preserved: "CamelCaseAlready" becomes "Camelcasealready". Empty or
// all-delimiter input yields "".
func PascalCase(s string) string {
	var b strings.Builder
	for _, w := range wordSplitRe.Split(s, -1) {
		if w == "" {
			continue
		}
		w = strings.ToLower(w)
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return b.String()
}

// EnumMember turns an enum value into a member identifier: every character
// outside [A-Za-z0-9_] becomes "_" and a leading digit gets a "_" prefix.
func EnumMember(value string) string {
	id := enumMemberRe.ReplaceAllString(value, "_")
	if id == "" {
		return "_"
	}
	if startsWithDigit(id) {
		id = "_" + id
	}
	return id
}

// UnitName is the module name a schema is generated into, without extension.
func UnitName(schemaName string) string {
	n := unitNameRe.ReplaceAllString(schemaName, "_")
	if n == "" {
		return "_"
	}
	return n
}

// declName joins a PascalCased base with a suffix and keeps the result a
// valid identifier.
func declName(base, suffix string) string {
	n := PascalCase(base) + suffix
	switch {
	case n == "":
		return "_"
	case startsWithDigit(n):
		return "_" + n
	}
	return n
}

// propName renders a property key, quoting names that are not identifiers.
func propName(name string) string {
	if identRe.MatchString(name) {
		return name
	}
	return quote(name)
}

// quote renders s as a double-quoted string literal.
func quote(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}

// commentText keeps text from closing a /** */ block early.
func commentText(s string) string {
	return strings.ReplaceAll(s, "*/", "* /")
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}
