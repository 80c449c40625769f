package codegen

import (
	"strings"

	"github.com/koustreak/datrigen/internal/schema"
)

// procedureSuffix keeps procedure declarations apart from functions of the
// same name in one module.
const procedureSuffix = "Procedure"

// FunctionDecls renders the declarations of one routine: a header comment,
// a <Name>Params interface when it has input parameters and the
// <Name>Result type. suffix is appended to the PascalCased name.
//
// The result shape is chosen in order:
//   - return columns: a <Name>ResultRow interface, returned as an array for
//     set and table kinds and as a nullable row otherwise;
//   - a non-void return type: its mapping, as an array for the set kind and
//     nullable otherwise;
//   - output parameters: a <Name>Result interface of the outputs;
//   - nothing: void.
func (g *Generator) FunctionDecls(fn *schema.FunctionInfo, suffix string) string {
	name := declName(fn.Name, suffix)

	var inputs, outputs []field
	for _, p := range fn.Parameters {
		// an INOUT parameter lands in both lists
		if p.Mode.IsInput() {
			inputs = append(inputs, field{
				name:     p.Name,
				typ:      g.mapper.Map(p.Type),
				optional: p.HasDefault,
			})
		}
		if p.Mode.IsOutput() {
			outputs = append(outputs, field{name: p.Name, typ: g.mapper.Map(p.Type)})
		}
	}

	var blocks []string
	if len(inputs) > 0 {
		var b strings.Builder
		writeInterface(&b, name+"Params", inputs)
		blocks = append(blocks, b.String())
	}

	result := name + "Result"
	switch {
	case len(fn.ReturnColumns) > 0:
		row := name + "ResultRow"
		cols := make([]field, 0, len(fn.ReturnColumns))
		for _, c := range fn.ReturnColumns {
			cols = append(cols, field{name: c.Name, typ: g.mapper.Map(c.Type)})
		}
		var b strings.Builder
		writeInterface(&b, row, cols)
		blocks = append(blocks, b.String())

		if fn.Kind == schema.KindSet || fn.Kind == schema.KindTable {
			blocks = append(blocks, typeAlias(result, row+"[]"))
		} else {
			blocks = append(blocks, typeAlias(result, row+" | null"))
		}

	case !fn.IsVoid():
		t := g.mapper.Map(*fn.ReturnType)
		if fn.Kind == schema.KindSet {
			blocks = append(blocks, typeAlias(result, t+"[]"))
		} else {
			blocks = append(blocks, typeAlias(result, t+" | null"))
		}

	case len(outputs) > 0:
		var b strings.Builder
		writeInterface(&b, result, outputs)
		blocks = append(blocks, b.String())

	default:
		blocks = append(blocks, typeAlias(result, "void"))
	}

	return functionHeader(fn) + strings.Join(blocks, "\n")
}

func functionHeader(fn *schema.FunctionInfo) string {
	objectKind := fn.ObjectKind
	if objectKind == "" {
		objectKind = schema.ObjectFunction
	}
	kind := fn.Kind
	if kind == "" {
		kind = schema.KindScalar
	}

	qualified := fn.Name
	if fn.Schema != "" {
		qualified = fn.Schema + "." + fn.Name
	}
	return "/** " + commentText(qualified+" ("+string(objectKind)+", "+string(kind)+")") + " */\n"
}
