package port

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"betic-lang/internal/runtime"
	"betic-lang/internal/types"
)

// OS is the file system port, imported with `os.port`. Its functions are
// grouped under the name os: os.read_file, os.write_file.
func OS() *runtime.Port {
	return &runtime.Port{
		Name: "os",
		Members: []runtime.Member{
			{Name: "os", Group: []runtime.Member{
				{Name: "read_file", New: readFile},
				{Name: "write_file", New: writeFile},
			}},
		},
	}
}

func readFile() runtime.Native {
	return runtime.Native{
		Impl: func(ctx context.Context, host *runtime.Host, args []*runtime.Value) (*runtime.Value, error) {
			path := args[0].Str
			if !filepath.IsAbs(path) {
				return nil, errors.New("path must be an absolute path")
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			host.Log.Debug("Read ", len(data), " bytes from ", path)
			return BytesList(types.Named(types.Byte), data), nil
		},
		Params: []types.Field{field(types.String, "path", false)},
		Return: ret(types.Of(types.List, types.Named(types.Byte))),
	}
}

func writeFile() runtime.Native {
	return runtime.Native{
		Impl: func(ctx context.Context, host *runtime.Host, args []*runtime.Value) (*runtime.Value, error) {
			path, data := args[0].Str, args[1]

			var b []byte
			switch data.Type.Base {
			case types.String:
				b = []byte(data.Str)
			case types.List:
				var err error
				if b, err = ListBytes(data); err != nil {
					return nil, err
				}
			default:
				return nil, errors.New("data must be a String or a byte list")
			}

			host.Log.Debug("Writing ", len(b), " bytes to ", path)
			return nil, os.WriteFile(path, b, 0644)
		},
		Params: []types.Field{
			field(types.String, "path", false),
			field(types.Occult, "data", false),
		},
		Return: ret(types.Named(types.Void)),
	}
}
