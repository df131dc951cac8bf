package shell

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// builtinInvoker is the default method-dispatch capability. It knows the
// shell's own container types; anything else fails with HostInvokeError
// until the embedder installs a richer Invoker.
type builtinInvoker struct{}

var _ Invoker = builtinInvoker{}

func (builtinInvoker) Invoke(_ context.Context, _ *Session, target interface{}, method string, args []interface{}) (interface{}, error) {
	switch t := target.(type) {
	case *Dict:
		switch method {
		case "get":
			if len(args) == 1 {
				return t.Get(toText(args[0])), nil
			}
		case "put":
			if len(args) == 2 {
				t.Put(toText(args[0]), args[1])
				return args[1], nil
			}
		case "remove":
			if len(args) == 1 {
				return t.Remove(toText(args[0])), nil
			}
		case "keys":
			if len(args) == 0 {
				keys := t.Keys()
				out := make([]interface{}, len(keys))
				for i, k := range keys {
					out[i] = k
				}
				return out, nil
			}
		case "size", "length":
			if len(args) == 0 {
				return int64(t.Len()), nil
			}
		}

	case []interface{}:
		switch method {
		case "get":
			if len(args) == 1 {
				i, err := strconv.Atoi(toText(args[0]))
				if err != nil || i < 0 || i >= len(t) {
					return nil, nil
				}
				return t[i], nil
			}
		case "contains":
			if len(args) == 1 {
				want := toText(args[0])
				for _, v := range t {
					if toText(v) == want {
						return true, nil
					}
				}
				return false, nil
			}
		case "size", "length":
			if len(args) == 0 {
				return int64(len(t)), nil
			}
		}

	case *ArgList:
		switch method {
		case "get":
			if len(args) == 1 {
				i, err := strconv.Atoi(toText(args[0]))
				if err != nil {
					return nil, nil
				}
				return t.Get(i), nil
			}
		case "size", "length":
			if len(args) == 0 {
				return int64(t.Len()), nil
			}
		}

	case string:
		switch method {
		case "length":
			if len(args) == 0 {
				return int64(len(t)), nil
			}
		case "contains":
			if len(args) == 1 {
				return strings.Contains(t, toText(args[0])), nil
			}
		case "startsWith":
			if len(args) == 1 {
				return strings.HasPrefix(t, toText(args[0])), nil
			}
		case "endsWith":
			if len(args) == 1 {
				return strings.HasSuffix(t, toText(args[0])), nil
			}
		case "toUpperCase":
			if len(args) == 0 {
				return strings.ToUpper(t), nil
			}
		case "toLowerCase":
			if len(args) == 0 {
				return strings.ToLower(t), nil
			}
		case "split":
			if len(args) == 1 {
				parts := strings.Split(t, toText(args[0]))
				out := make([]interface{}, len(parts))
				for i, p := range parts {
					out[i] = p
				}
				return out, nil
			}
		}
	}

	return nil, &HostInvokeError{
		Method: method,
		Err:    fmt.Errorf("no applicable method on %T", target),
	}
}
