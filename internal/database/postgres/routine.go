package postgres

import (
	"fmt"

	"github.com/koustreak/datrigen/internal/schema"
)

// pg_proc.proargmodes values.
const (
	argModeIn       = "i"
	argModeOut      = "o"
	argModeInOut    = "b"
	argModeVariadic = "v"
	argModeTable    = "t"
)

// routineRow is one pg_proc row as loadRoutines reads it.
type routineRow struct {
	schema     string
	name       string
	procedure  bool
	returnsSet bool
	returnType *string // NULL for procedures
	argNames   []string
	argModes   []string // empty when every argument is IN
	argTypes   []string
	defaults   int16 // the last N input arguments have defaults
}

// build turns the catalog row into a FunctionInfo.
func (r routineRow) build() *schema.FunctionInfo {
	fn := &schema.FunctionInfo{
		Name:       r.name,
		Schema:     r.schema,
		Kind:       schema.KindScalar,
		ObjectKind: schema.ObjectFunction,
		Parameters: []schema.ParameterInfo{},
	}

	var (
		inputs  []int
		outputs []schema.ReturnColumn
	)
	for i, typ := range r.argTypes {
		mode := argModeIn
		if i < len(r.argModes) {
			mode = r.argModes[i]
		}
		name := fmt.Sprintf("arg%d", i+1)
		if i < len(r.argNames) && r.argNames[i] != "" {
			name = r.argNames[i]
		}

		if mode == argModeTable {
			fn.ReturnColumns = append(fn.ReturnColumns, schema.ReturnColumn{Name: name, Type: typ})
			continue
		}

		p := schema.ParameterInfo{Name: name, Type: typ, Mode: paramMode(mode)}
		// pronargdefaults counts over every non-OUT argument, VARIADIC included
		if p.Mode != schema.ModeOut {
			inputs = append(inputs, len(fn.Parameters))
		}
		if p.Mode.IsOutput() {
			outputs = append(outputs, schema.ReturnColumn{Name: name, Type: typ})
		}
		fn.Parameters = append(fn.Parameters, p)
	}

	for i := len(inputs) - int(r.defaults); i >= 0 && i < len(inputs); i++ {
		fn.Parameters[inputs[i]].HasDefault = true
	}

	rt := ""
	if r.returnType != nil {
		rt = *r.returnType
	}

	switch {
	case r.procedure:
		fn.ObjectKind = schema.ObjectProcedure
	case rt == "trigger" || rt == "event_trigger":
		fn.ObjectKind = schema.ObjectTrigger
	}

	switch {
	case len(fn.ReturnColumns) > 0:
		fn.Kind = schema.KindTable
	case r.returnsSet:
		fn.Kind = schema.KindSet
	}

	switch {
	case fn.ObjectKind == schema.ObjectProcedure, rt == "", rt == "void", rt == "-":
		// no return type
	case rt == "record" && len(fn.ReturnColumns) == 0 && len(outputs) > 0:
		// the OUT parameters describe the row
		if r.returnsSet {
			fn.ReturnColumns = outputs
		}
	case rt == "record" && len(fn.ReturnColumns) > 0:
		// RETURNS TABLE: the columns describe the row
	default:
		fn.ReturnType = schema.Ptr(rt)
	}
	return fn
}

func paramMode(m string) schema.ParamMode {
	switch m {
	case argModeOut:
		return schema.ModeOut
	case argModeInOut:
		return schema.ModeInOut
	case argModeVariadic:
		return schema.ModeVariadic
	default:
		return schema.ModeIn
	}
}
