package toolserver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Definitions renders every operation in the bundle as a function-calling
// tool definition a model can be handed: operationId as the name, the
// declared parameters and JSON request-body properties as one flat object
// schema. Output is ordered by path then method so it is stable across calls.
func (b *Bundle) Definitions() []map[string]any {
	if b.Doc == nil || b.Doc.Paths == nil {
		return nil
	}
	pathMap := b.Doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for p := range pathMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var defs []map[string]any
	for _, p := range paths {
		ops := pathMap[p].Operations()
		methods := make([]string, 0, len(ops))
		for m := range ops {
			methods = append(methods, m)
		}
		sort.Strings(methods)
		for _, m := range methods {
			op := ops[m]
			if op == nil || op.OperationID == "" {
				continue
			}
			description := op.Description
			if description == "" {
				description = op.Summary
			}
			if description == "" {
				description = "No description available."
			}
			defs = append(defs, map[string]any{
				"type":        "function",
				"name":        op.OperationID,
				"description": description,
				"parameters":  parametersSchema(op),
			})
		}
	}
	return defs
}

// parametersSchema flattens an operation's path/query parameters and its
// application/json body properties into one object schema.
func parametersSchema(op *openapi3.Operation) map[string]any {
	properties := map[string]any{}
	required := []string{}

	for _, ref := range op.Parameters {
		if ref == nil || ref.Value == nil {
			continue
		}
		p := ref.Value
		prop := map[string]any{"type": "string"}
		description := p.Description
		if p.Schema != nil && p.Schema.Value != nil {
			s := p.Schema.Value
			if s.Type != "" {
				prop["type"] = s.Type
			}
			if s.Description != "" {
				description = s.Description
			}
			if len(s.Enum) > 0 {
				description += ". Possible values: " + joinEnum(s.Enum)
			}
		}
		if description != "" {
			prop["description"] = description
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if media, ok := op.RequestBody.Value.Content["application/json"]; ok && media.Schema != nil && media.Schema.Value != nil {
			s := media.Schema.Value
			for name, propRef := range s.Properties {
				if propRef == nil || propRef.Value == nil {
					continue
				}
				prop := map[string]any{}
				if propRef.Value.Type != "" {
					prop["type"] = propRef.Value.Type
				}
				if propRef.Value.Description != "" {
					prop["description"] = propRef.Value.Description
				}
				properties[name] = prop
			}
			required = append(required, s.Required...)
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

func joinEnum(values []any) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, fmt.Sprint(v))
	}
	return strings.Join(parts, ", ")
}
