// Package typemap maps SQL column types to TypeScript type names.
//
// Mapping is a pure, total function: any input string produces a type name,
// and types it does not recognise become Unknown so a whole-schema run never
// aborts because of one exotic column.
package typemap

import (
	"regexp"
	"strings"
)

// Target type names.
const (
	Number  = "number"
	String  = "string"
	Boolean = "boolean"
	JSON    = "Record<string, any>"
	Unknown = "unknown"
)

type rule struct {
	pattern *regexp.Regexp
	target  string
}

// rules are tried in order; the first match wins. The catch-all must stay last.
var rules = []rule{
	{regexp.MustCompile(`^(smallint|integer|int|int2|int4|int8|bigint|tinyint|mediumint|decimal|numeric|real|double precision|double|float|float4|float8|smallserial|serial|serial2|serial4|serial8|bigserial|money)( unsigned)?( zerofill)?$`), Number},
	{regexp.MustCompile(`^(char|character|varchar|character varying|nchar|nvarchar|text|citext|name|tinytext|mediumtext|longtext|bpchar)$`), String},
	{regexp.MustCompile(`^(boolean|bool)$`), Boolean},
	{regexp.MustCompile(`^(timestamp|timestamp with time zone|timestamp without time zone|timestamptz|date|datetime|time|time with time zone|time without time zone|timetz|interval|year)$`), String},
	{regexp.MustCompile(`^uuid$`), String},
	{regexp.MustCompile(`^(bytea|blob|tinyblob|mediumblob|longblob|binary|varbinary)$`), String},
	{regexp.MustCompile(`^(inet|cidr|macaddr|macaddr8)$`), String},
	{regexp.MustCompile(`^(point|line|lseg|box|path|polygon|circle)$`), String},
	{regexp.MustCompile(`^(enum|user-defined)$`), String},
	{regexp.MustCompile(`.*`), Unknown},
}

var (
	precisionRe  = regexp.MustCompile(`\([^)]*\)`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize lowercases and trims raw, removes parenthesized precision or
// length groups and collapses whitespace. Array brackets are kept.
//
//	Normalize("NUMERIC(10, 2)")              == "numeric"
//	Normalize("timestamp(3) with time zone") == "timestamp with time zone"
//	Normalize("varchar(64)[]")               == "varchar[]"
func Normalize(raw string) string {
	s := strings.ToLower(raw)
	s = precisionRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, " []", "[]")
}

// Mapper maps SQL types to TypeScript types. The zero value has no
// overrides and behaves like Default.
type Mapper struct {
	overrides map[string]string
}

// Default is the mapper with the built-in rules only.
var Default = &Mapper{}

// New returns a Mapper whose overrides take precedence over the built-in
// rules. Override keys are normalized like column types, so "NUMERIC(12,2)"
// and "numeric" name the same entry.
func New(overrides map[string]string) *Mapper {
	m := &Mapper{overrides: make(map[string]string, len(overrides))}
	for k, v := range overrides {
		m.overrides[Normalize(k)] = v
	}
	return m
}

// Map returns the TypeScript type for the raw SQL type.
func (m *Mapper) Map(raw string) string {
	return m.mapNormalized(Normalize(raw))
}

func (m *Mapper) mapNormalized(t string) string {
	if base, ok := strings.CutSuffix(t, "[]"); ok {
		return m.mapNormalized(base) + "[]"
	}
	if target, ok := m.override(t); ok {
		return target
	}
	if isJSON(t) {
		return JSON
	}
	for _, r := range rules {
		if r.pattern.MatchString(t) {
			return r.target
		}
	}
	return Unknown
}

func (m *Mapper) override(t string) (string, bool) {
	if m == nil {
		return "", false
	}
	target, ok := m.overrides[t]
	return target, ok
}

func isJSON(t string) bool {
	return t == "json" || t == "jsonb"
}

// Map maps raw with the Default mapper.
func Map(raw string) string {
	return Default.Map(raw)
}

// MapSample maps raw with the Default mapper, refining JSON types from sample.
func MapSample(raw string, sample any) string {
	return Default.MapSample(raw, sample)
}
