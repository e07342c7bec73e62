// Package port provides the native function libraries installed into Betic
// modules: the foundational system port and the os port.
package port

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"betic-lang/internal/runtime"
	"betic-lang/internal/types"
)

// Registry returns every port known to the runtime, by name.
func Registry() map[string]*runtime.Port {
	return map[string]*runtime.Port{
		runtime.FoundationPort: System(),
		"os":                   OS(),
	}
}

// System is the foundational port present in every module.
func System() *runtime.Port {
	return &runtime.Port{
		Name: runtime.FoundationPort,
		Members: []runtime.Member{
			{Name: "make", Group: []runtime.Member{
				{Name: "int", New: makeInt},
				{Name: "double", New: makeDouble},
				{Name: "string", New: makeString},
				{Name: "byte_array", New: makeByteArray},
			}},
			{Name: "console", Group: []runtime.Member{
				{Name: "write", New: consoleWrite},
				{Name: "read", New: consoleRead},
			}},
			{Name: "json", Group: []runtime.Member{
				{Name: "parse", New: jsonParse},
				{Name: "parse_bytes", New: jsonParseBytes},
			}},
			{Name: "typeof", New: typeOf},
			{Name: "len", New: length},
			{Name: "split_str", New: splitStr},
		},
	}
}

func field(base, name string, optional bool) types.Field {
	return types.Field{Type: types.Named(base), Name: name, Optional: optional}
}

func ret(t types.Type) *types.Type {
	return &t
}

// arg returns the i-th argument or an error naming the function.
func arg(fn string, args []*runtime.Value, i int) (*runtime.Value, error) {
	if i >= len(args) {
		return nil, fmt.Errorf("%s() expects at least %d argument(s), got %d", fn, i+1, len(args))
	}
	return args[i], nil
}

// ---- make ----

func makeInt() runtime.Native {
	return runtime.Native{
		Impl: func(ctx context.Context, host *runtime.Host, args []*runtime.Value) (*runtime.Value, error) {
			v, err := arg("make.int", args, 0)
			if err != nil {
				return nil, err
			}
			s := strings.TrimSpace(v.String())
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return runtime.NewInt(n), nil
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return runtime.NewInt(int64(f)), nil
			}
			return nil, errors.New("type cast failed")
		},
		Return: ret(types.Named(types.Int)),
	}
}

func makeDouble() runtime.Native {
	return runtime.Native{
		Impl: func(ctx context.Context, host *runtime.Host, args []*runtime.Value) (*runtime.Value, error) {
			v, err := arg("make.double", args, 0)
			if err != nil {
				return nil, err
			}
			if n, ok := v.Number(); ok {
				return runtime.NewDouble(n), nil
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(v.String()), 64)
			if err != nil {
				return nil, errors.New("type cast failed")
			}
			return runtime.NewDouble(f), nil
		},
		Return: ret(types.Named(types.Double)),
	}
}

func makeString() runtime.Native {
	return runtime.Native{
		Impl: func(ctx context.Context, host *runtime.Host, args []*runtime.Value) (*runtime.Value, error) {
			v, err := arg("make.string", args, 0)
			if err != nil {
				return nil, err
			}
			if v.Type.Is(types.List) {
				b, err := ListBytes(v)
				if err != nil {
					return nil, err
				}
				if !utf8.Valid(b) {
					return nil, errors.New("byte list is not valid UTF-8")
				}
				return runtime.NewString(string(b)), nil
			}
			return runtime.NewString(v.String()), nil
		},
		Return: ret(types.Named(types.String)),
	}
}

func makeByteArray() runtime.Native {
	return runtime.Native{
		Impl: func(ctx context.Context, host *runtime.Host, args []*runtime.Value) (*runtime.Value, error) {
			return BytesList(types.Named(types.Int), []byte(args[0].Str)), nil
		},
		Params: []types.Field{field(types.String, "data", false)},
		Return: ret(types.Of(types.List, types.Named(types.Int))),
	}
}

// ---- console ----

func consoleWrite() runtime.Native {
	return runtime.Native{
		Impl: func(ctx context.Context, host *runtime.Host, args []*runtime.Value) (*runtime.Value, error) {
			_, err := fmt.Fprintln(host.Stdout, runtime.ValuesString(args, " "))
			return nil, err
		},
		Params: []types.Field{field(types.Occult, "data", true)},
		Return: ret(types.Named(types.Void)),
	}
}

func consoleRead() runtime.Native {
	return runtime.Native{
		Impl: func(ctx context.Context, host *runtime.Host, args []*runtime.Value) (*runtime.Value, error) {
			if len(args) > 0 {
				if _, err := fmt.Fprintln(host.Stdout, runtime.ValuesString(args, " ")); err != nil {
					return nil, err
				}
			}
			line, err := host.Stdin.ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, err
			}
			return runtime.NewString(strings.TrimSpace(line)), nil
		},
		Params: []types.Field{field(types.Occult, "data", true)},
		Return: ret(types.Named(types.String)),
	}
}

// ---- json ----

func jsonParse() runtime.Native {
	return runtime.Native{
		Impl: func(ctx context.Context, host *runtime.Host, args []*runtime.Value) (*runtime.Value, error) {
			return ParseJSON([]byte(args[0].Str))
		},
		Params: []types.Field{field(types.String, "data", false)},
	}
}

func jsonParseBytes() runtime.Native {
	return runtime.Native{
		Impl: func(ctx context.Context, host *runtime.Host, args []*runtime.Value) (*runtime.Value, error) {
			b, err := ListBytes(args[0])
			if err != nil {
				return nil, err
			}
			return ParseJSON(b)
		},
		Params: []types.Field{{Type: types.Of(types.List, types.Named(types.Occult)), Name: "data"}},
	}
}

// ---- inspection ----

func typeOf() runtime.Native {
	return runtime.Native{
		Impl: func(ctx context.Context, host *runtime.Host, args []*runtime.Value) (*runtime.Value, error) {
			return runtime.NewString(args[0].Type.String()), nil
		},
		Params: []types.Field{field(types.Occult, "value", false)},
		Return: ret(types.Named(types.String)),
	}
}

func length() runtime.Native {
	return runtime.Native{
		Impl: func(ctx context.Context, host *runtime.Host, args []*runtime.Value) (*runtime.Value, error) {
			v := args[0]
			switch v.Type.Base {
			case types.List:
				return runtime.NewInt(int64(len(v.Items))), nil
			case types.String:
				return runtime.NewInt(int64(utf8.RuneCountInString(v.Str))), nil
			case types.Map:
				return runtime.NewInt(int64(len(v.Pairs))), nil
			}
			return nil, fmt.Errorf("len() not supported for type %s", v.Type)
		},
		Params: []types.Field{field(types.Occult, "list", false)},
		Return: ret(types.Named(types.Int)),
	}
}

func splitStr() runtime.Native {
	return runtime.Native{
		Impl: func(ctx context.Context, host *runtime.Host, args []*runtime.Value) (*runtime.Value, error) {
			runes := []rune(args[0].Str)
			items := make([]*runtime.Value, len(runes))
			for i, r := range runes {
				items[i] = runtime.NewString(string(r))
			}
			return runtime.NewList(types.Named(types.String), items), nil
		},
		Params: []types.Field{field(types.String, "string", false)},
		Return: ret(types.Of(types.List, types.Named(types.String))),
	}
}
