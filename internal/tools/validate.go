package tools

import (
	"fmt"
	"math"
)

// validateArgs checks args against the tool's JSON schema: required
// properties, enum membership, and primitive types. Unknown properties
// are dropped rather than rejected since models sometimes add extras.
func validateArgs(schema map[string]any, args map[string]any) (Result, bool) {
	props, _ := schema["properties"].(map[string]any)

	if required, ok := schema["required"].([]string); ok {
		for _, name := range required {
			if v, present := args[name]; !present || v == nil || v == "" {
				return failure(CodeInvalidArgument,
					fmt.Sprintf("Missing required argument %q.", name)), false
			}
		}
	}

	for name, value := range args {
		propSchema, known := props[name].(map[string]any)
		if !known {
			delete(args, name)
			continue
		}
		if value == nil {
			continue
		}

		switch propSchema["type"] {
		case "string":
			s, ok := value.(string)
			if !ok {
				return failure(CodeInvalidArgument,
					fmt.Sprintf("Argument %q must be a string.", name)), false
			}
			if enum, hasEnum := propSchema["enum"].([]string); hasEnum {
				if !contains(enum, s) {
					return failure(CodeInvalidArgument,
						fmt.Sprintf("Argument %q must be one of %v.", name, enum)), false
				}
			}
		case "integer":
			// JSON numbers decode as float64
			f, ok := value.(float64)
			if !ok {
				if _, isInt := value.(int); !isInt {
					return failure(CodeInvalidArgument,
						fmt.Sprintf("Argument %q must be an integer.", name)), false
				}
				break
			}
			if f != math.Trunc(f) {
				return failure(CodeInvalidArgument,
					fmt.Sprintf("Argument %q must be an integer.", name)), false
			}
		}
	}

	return Result{}, true
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// intArg reads an integer argument, tolerating float64 decoding.
func intArg(args map[string]any, name string, fallback int) int {
	switch v := args[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

// strArg reads a string argument, returning "" when absent.
func strArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}
