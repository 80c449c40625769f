package crud

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/koustreak/datrigen/internal/errs"
)

// Order directions accepted by the list endpoint.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Reserved query parameter names. Filters may not use them.
const (
	ParamLimit    = "limit"
	ParamOffset   = "offset"
	ParamOrderBy  = "order_by"
	ParamOrderDir = "order_dir"
)

// QueryParams mirrors the generated <Table>QueryParams interface.
type QueryParams struct {
	Limit    *int
	Offset   *int
	OrderBy  string
	OrderDir string

	// Filters are equality filters keyed by column name. A nil value is
	// sent as the literal "null".
	Filters map[string]any
}

// Values validates p and renders it as a query string. Filters are emitted
// in column name order so identical params produce identical URLs.
func (p QueryParams) Values() (url.Values, error) {
	v := url.Values{}

	if p.Limit != nil {
		if *p.Limit < 0 {
			return nil, errs.New(errs.ErrKindInvalidInput, "limit must not be negative")
		}
		v.Set(ParamLimit, strconv.Itoa(*p.Limit))
	}
	if p.Offset != nil {
		if *p.Offset < 0 {
			return nil, errs.New(errs.ErrKindInvalidInput, "offset must not be negative")
		}
		v.Set(ParamOffset, strconv.Itoa(*p.Offset))
	}
	if p.OrderBy != "" {
		v.Set(ParamOrderBy, p.OrderBy)
	}
	if p.OrderDir != "" {
		dir := strings.ToLower(p.OrderDir)
		if dir != OrderAsc && dir != OrderDesc {
			return nil, errs.New(errs.ErrKindInvalidInput, "order_dir must be asc or desc, got "+p.OrderDir)
		}
		v.Set(ParamOrderDir, dir)
	}

	cols := make([]string, 0, len(p.Filters))
	for col := range p.Filters {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		switch col {
		case ParamLimit, ParamOffset, ParamOrderBy, ParamOrderDir:
			return nil, errs.New(errs.ErrKindInvalidInput, "filter column collides with a reserved parameter: "+col)
		}
		v.Set(col, formatValue(p.Filters[col]))
	}
	return v, nil
}

func formatValue(val any) string {
	switch x := val.(type) {
	case nil:
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// Int returns a pointer to n, for QueryParams.Limit and Offset.
func Int(n int) *int {
	return &n
}
