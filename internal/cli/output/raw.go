package output

import (
	"fmt"
	"io"
	"reflect"
	"strconv"
)

// RawFormatter prints replies the way redis-cli does: bulk strings as-is,
// integers as "(integer) n", null as "(nil)" and arrays as numbered lines.
// Maps and structs are rendered as a table.
type RawFormatter struct{}

// Format writes data followed by a newline.
func (f *RawFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		_, err := fmt.Fprintln(w, "(nil)")
		return err
	case string:
		_, err := fmt.Fprintln(w, v)
		return err
	case []byte:
		_, err := fmt.Fprintln(w, string(v))
		return err
	case int64:
		_, err := fmt.Fprintf(w, "(integer) %d\n", v)
		return err
	case int:
		_, err := fmt.Fprintf(w, "(integer) %d\n", v)
		return err
	case bool:
		_, err := fmt.Fprintln(w, strconv.FormatBool(v))
		return err
	case error:
		_, err := fmt.Fprintf(w, "(error) %s\n", v.Error())
		return err
	case []any:
		if len(v) == 0 {
			_, err := fmt.Fprintln(w, "(empty array)")
			return err
		}
		for i, item := range v {
			if _, err := fmt.Fprintf(w, "%d) ", i+1); err != nil {
				return err
			}
			if err := f.Format(w, item); err != nil {
				return err
			}
		}
		return nil
	case fmt.Stringer:
		_, err := fmt.Fprintln(w, v.String())
		return err
	}

	rv := reflect.ValueOf(data)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Map || rv.Kind() == reflect.Struct {
		return (&TableFormatter{}).Format(w, data)
	}
	_, err := fmt.Fprintln(w, data)
	return err
}
