package message

import (
	"errors"
	"fmt"
	"reflect"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned by Canonical when a string reachable from the
// Signed block is not valid UTF-8. encoding/json would otherwise replace the
// bad bytes with U+FFFD, so two different values would sign the same.
var ErrInvalidUTF8 = errors.New("string is not valid UTF-8")

// checkUTF8 walks the exported fields, elements and map entries of v.
func checkUTF8(v reflect.Value, path string) error {
	switch v.Kind() {
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return fmt.Errorf("%w: %s", ErrInvalidUTF8, path)
		}
	case reflect.Ptr, reflect.Interface:
		if !v.IsNil() {
			return checkUTF8(v.Elem(), path)
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			if err := checkUTF8(v.Field(i), path+"."+f.Name); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		// byte slices are encoded, not copied
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return nil
		}
		for i := 0; i < v.Len(); i++ {
			if err := checkUTF8(v.Index(i), fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := checkUTF8(iter.Key(), path+"{key}"); err != nil {
				return err
			}
			if err := checkUTF8(iter.Value(), fmt.Sprintf("%s[%v]", path, iter.Key())); err != nil {
				return err
			}
		}
	}
	return nil
}
