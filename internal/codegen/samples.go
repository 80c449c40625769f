package codegen

// Samples holds one decoded JSON value per json/jsonb column, keyed by
// SampleKey. Values are whatever encoding/json produces for an `any`.
type Samples map[string]any

// SampleKey is the Samples key of a column.
func SampleKey(schemaName, table, column string) string {
	return schemaName + "." + table + "." + column
}

// Set records the sample of a column, replacing any previous one.
func (s Samples) Set(schemaName, table, column string, v any) {
	s[SampleKey(schemaName, table, column)] = v
}

// Lookup returns the sample of a column. A nil Samples has none.
func (s Samples) Lookup(schemaName, table, column string) (any, bool) {
	v, ok := s[SampleKey(schemaName, table, column)]
	return v, ok
}

// Merge copies every sample of other into s.
func (s Samples) Merge(other Samples) {
	for k, v := range other {
		s[k] = v
	}
}
