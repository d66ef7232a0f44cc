package mcp

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"reflect"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/binder/internal/errors"
)

// decode reads a tool call's arguments into T. Arguments of the wrong JSON
// type come back as INVALID_REQUEST naming the field, e.g. an index sent as
// a string.
func decode[T any](req mcp.CallToolRequest) (T, error) {
	var result T
	b, err := json.Marshal(req.GetArguments())
	if err != nil {
		return result, invalidArgs(req, fmt.Sprintf("arguments are not JSON: %v", err))
	}
	if err := json.Unmarshal(b, &result); err != nil {
		var typeErr *json.UnmarshalTypeError
		if stderrors.As(err, &typeErr) && typeErr.Field != "" {
			return result, invalidArgs(req, fmt.Sprintf("%s must be %s", typeErr.Field, jsonKind(typeErr.Type)))
		}
		return result, invalidArgs(req, err.Error())
	}
	return result, nil
}

func invalidArgs(req mcp.CallToolRequest, msg string) *errors.BinderError {
	if name := req.Params.Name; name != "" {
		msg = name + ": " + msg
	}
	return errors.NewInvalidRequest(msg)
}

// jsonKind names the JSON type a Go field expects.
func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "a number"
	case reflect.String:
		return "a string"
	case reflect.Slice, reflect.Array:
		return "a list"
	case reflect.Bool:
		return "true or false"
	default:
		return "an object"
	}
}
