package limpet

import (
	"fmt"
	"reflect"

	"github.com/zoobzio/sentinel"
)

func init() {
	sentinel.Tag("upload")
}

// OverwritePolicy selects collision handling when the destination path is
// already occupied.
type OverwritePolicy int

const (
	// Reject fails processing with ErrFileExists. The default.
	Reject OverwritePolicy = iota

	// Overwrite removes the existing file before placement.
	Overwrite

	// AppendCounter probes stem-1.ext, stem-2.ext, and so on until a free
	// path is found. The first suffix is 1.
	AppendCounter
)

// Config holds the upload policy for one entity type. Built by Configure,
// cached on the listener, and read-only at runtime.
type Config struct {
	Dir       string          // explicit storage directory, "" resolves dynamically
	MaxSize   int64           // size ceiling in bytes, 0 = unlimited
	Allowed   []string        // content type allow list, empty = no restriction
	Denied    []string        // content type deny list
	Namer     Namer           // nil keeps the original name
	Overwrite OverwritePolicy // collision handling

	typeName  string // package-qualified entity type name
	pathField string // bound field names, "" when unbound
	nameField string
	typeField string
	sizeField string
}

// Configure registers the upload configuration for entity type T on the
// listener. Field bindings are declared with `upload` struct tags (path,
// name, type, size); each declared binding requires *T to implement the
// matching capability interface. Calling Configure again for the same type
// replaces the earlier configuration.
func Configure[T any](l *Listener, opts ...ConfigOption) (*Config, error) {
	meta := sentinel.Inspect[T]()

	cfg := &Config{
		typeName: meta.PackageName + "." + meta.TypeName,
	}

	probe := any(new(T))
	for _, field := range meta.Fields {
		binding := field.Tags["upload"]
		if binding == "" {
			continue
		}
		switch binding {
		case "path":
			if cfg.pathField != "" {
				return nil, fmt.Errorf("limpet: duplicate path binding on %s", cfg.typeName)
			}
			if _, ok := probe.(PathField); !ok {
				return nil, fmt.Errorf("limpet: %s binds %s as path but *%s does not implement PathField", cfg.typeName, field.Name, meta.TypeName)
			}
			cfg.pathField = field.Name
		case "name":
			if cfg.nameField != "" {
				return nil, fmt.Errorf("limpet: duplicate name binding on %s", cfg.typeName)
			}
			if _, ok := probe.(NameField); !ok {
				return nil, fmt.Errorf("limpet: %s binds %s as name but *%s does not implement NameField", cfg.typeName, field.Name, meta.TypeName)
			}
			cfg.nameField = field.Name
		case "type":
			if cfg.typeField != "" {
				return nil, fmt.Errorf("limpet: duplicate type binding on %s", cfg.typeName)
			}
			if _, ok := probe.(TypeField); !ok {
				return nil, fmt.Errorf("limpet: %s binds %s as type but *%s does not implement TypeField", cfg.typeName, field.Name, meta.TypeName)
			}
			cfg.typeField = field.Name
		case "size":
			if cfg.sizeField != "" {
				return nil, fmt.Errorf("limpet: duplicate size binding on %s", cfg.typeName)
			}
			if _, ok := probe.(SizeField); !ok {
				return nil, fmt.Errorf("limpet: %s binds %s as size but *%s does not implement SizeField", cfg.typeName, field.Name, meta.TypeName)
			}
			cfg.sizeField = field.Name
		default:
			return nil, fmt.Errorf("limpet: unknown upload binding %q on %s.%s", binding, cfg.typeName, field.Name)
		}
	}

	for _, opt := range opts {
		opt(cfg)
	}

	l.configure(reflect.TypeOf((*T)(nil)), cfg)
	return cfg, nil
}
