package catalog

import (
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Kind tags the shape a Field was decoded from.
type Kind int

const (
	KindNone Kind = iota
	KindString
	KindNumber
	KindBool
	KindObject
	KindList
)

// Field is a polymorphic upstream value (singer, album and friends arrive as
// a string, an object or a list depending on the endpoint). Exactly one of
// the payload members is meaningful for a given Kind.
type Field struct {
	Kind   Kind
	Str    string
	Num    float64
	Bool   bool
	Object map[string]Field
	List   []Field
}

// FromJSON converts a gjson result into a Field. Nested values are
// converted recursively.
func FromJSON(r gjson.Result) Field {
	switch {
	case !r.Exists() || r.Type == gjson.Null:
		return Field{Kind: KindNone}
	case r.IsArray():
		items := r.Array()
		list := make([]Field, 0, len(items))
		for _, item := range items {
			list = append(list, FromJSON(item))
		}
		return Field{Kind: KindList, List: list}
	case r.IsObject():
		obj := make(map[string]Field)
		r.ForEach(func(key, value gjson.Result) bool {
			obj[key.String()] = FromJSON(value)
			return true
		})
		return Field{Kind: KindObject, Object: obj}
	case r.Type == gjson.Number:
		return Field{Kind: KindNumber, Num: r.Float(), Str: r.Raw}
	case r.Type == gjson.True || r.Type == gjson.False:
		return Field{Kind: KindBool, Bool: r.Bool()}
	default:
		return Field{Kind: KindString, Str: r.String()}
	}
}

// String returns the scalar form of the field. Objects, lists and missing
// values stringify to "".
func (f Field) String() string {
	switch f.Kind {
	case KindString:
		return f.Str
	case KindNumber:
		if f.Str != "" {
			return f.Str
		}
		return strconv.FormatFloat(f.Num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(f.Bool)
	default:
		return ""
	}
}

// IsScalar reports whether the field holds a string, number or bool.
func (f Field) IsScalar() bool {
	return f.Kind == KindString || f.Kind == KindNumber || f.Kind == KindBool
}

// Lookup returns the first alias whose value stringifies to a non-empty
// string. Only meaningful for objects.
func (f Field) Lookup(aliases ...string) string {
	if f.Kind != KindObject {
		return ""
	}
	for _, alias := range aliases {
		if v, ok := f.Object[alias]; ok {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

var (
	artistAliases = []string{"name", "title", "singer_name"}
	albumAliases  = []string{"name", "title"}
)

// ArtistNames flattens a singer field into one display string. List entries
// are joined with ", " and entries without a usable name are skipped.
func ArtistNames(f Field) string {
	switch f.Kind {
	case KindList:
		names := make([]string, 0, len(f.List))
		for _, item := range f.List {
			var name string
			if item.IsScalar() {
				name = strings.TrimSpace(item.String())
			} else {
				name = item.Lookup(artistAliases...)
			}
			if name != "" {
				names = append(names, name)
			}
		}
		return strings.Join(names, ", ")
	case KindObject:
		return f.Lookup(artistAliases...)
	default:
		return strings.TrimSpace(f.String())
	}
}

// AlbumName flattens an album field into a display string.
func AlbumName(f Field) string {
	switch f.Kind {
	case KindObject:
		return f.Lookup(albumAliases...)
	case KindList:
		for _, item := range f.List {
			if name := AlbumName(item); name != "" {
				return name
			}
		}
		return ""
	default:
		return strings.TrimSpace(f.String())
	}
}
