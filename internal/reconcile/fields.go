package reconcile

import (
	"reflect"
	"strings"
)

// FieldChange is one field whose incoming value differs from the stored one.
type FieldChange struct {
	Field string `json:"field"`
	From  any    `json:"from,omitempty"`
	To    any    `json:"to"`
}

// identity-bearing fields are never rewritten by a merge
var frozenFields = map[string]bool{"id": true}

type fieldRef struct {
	name  string
	index []int
}

func fieldsOf(t reflect.Type) []fieldRef {
	var out []fieldRef
	var walk func(t reflect.Type, prefix []int)
	walk = func(t reflect.Type, prefix []int) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			idx := append(append([]int(nil), prefix...), i)
			if f.Anonymous && f.Type.Kind() == reflect.Struct {
				walk(f.Type, idx)
				continue
			}
			if !f.IsExported() {
				continue
			}
			out = append(out, fieldRef{name: jsonName(f), index: idx})
		}
	}
	walk(t, nil)
	return out
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
		return name
	}
	return f.Name
}

func isEmpty(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	}
	return v.IsZero()
}

// union appends the elements of b missing from a.
func union(a, b reflect.Value) reflect.Value {
	out := reflect.MakeSlice(a.Type(), 0, a.Len()+b.Len())
	out = reflect.AppendSlice(out, a)
	for i := 0; i < b.Len(); i++ {
		found := false
		for j := 0; j < out.Len(); j++ {
			if reflect.DeepEqual(out.Index(j).Interface(), b.Index(i).Interface()) {
				found = true
				break
			}
		}
		if !found {
			out = reflect.Append(out, b.Index(i))
		}
	}
	return out
}

// Diff lists the fields of incoming that are populated and differ from
// existing. Empty incoming values never count as a change. Slice fields
// change only when incoming carries elements existing lacks; the new value
// is then the union of both.
func Diff[T any](existing, incoming T) []FieldChange {
	ev := reflect.ValueOf(existing)
	iv := reflect.ValueOf(incoming)

	var changes []FieldChange
	for _, f := range fieldsOf(ev.Type()) {
		if frozenFields[f.name] {
			continue
		}
		in := iv.FieldByIndex(f.index)
		if isEmpty(in) {
			continue
		}
		cur := ev.FieldByIndex(f.index)
		if in.Kind() == reflect.Slice {
			merged := union(cur, in)
			if merged.Len() == cur.Len() {
				continue
			}
			changes = append(changes, FieldChange{Field: f.name, From: nilIfEmpty(cur), To: merged.Interface()})
			continue
		}
		if reflect.DeepEqual(cur.Interface(), in.Interface()) {
			continue
		}
		changes = append(changes, FieldChange{Field: f.name, From: nilIfEmpty(cur), To: in.Interface()})
	}
	return changes
}

// Merge returns existing with changes applied. Fields not named in changes
// are left untouched.
func Merge[T any](existing T, changes []FieldChange) T {
	out := existing
	ov := reflect.ValueOf(&out).Elem()
	byName := make(map[string]fieldRef)
	for _, f := range fieldsOf(ov.Type()) {
		byName[f.name] = f
	}
	for _, ch := range changes {
		f, ok := byName[ch.Field]
		if !ok || frozenFields[ch.Field] {
			continue
		}
		dst := ov.FieldByIndex(f.index)
		src := reflect.ValueOf(ch.To)
		if !src.IsValid() || !src.Type().AssignableTo(dst.Type()) {
			continue
		}
		dst.Set(src)
	}
	return out
}

// fill copies every populated field of incoming into the empty fields of
// base and unions slices. Used to collapse duplicate keys within a batch.
func fill[T any](base, incoming T) T {
	out := base
	ov := reflect.ValueOf(&out).Elem()
	iv := reflect.ValueOf(incoming)
	for _, f := range fieldsOf(ov.Type()) {
		dst := ov.FieldByIndex(f.index)
		src := iv.FieldByIndex(f.index)
		if isEmpty(src) {
			continue
		}
		switch {
		case src.Kind() == reflect.Slice:
			dst.Set(union(dst, src))
		case isEmpty(dst):
			dst.Set(src)
		}
	}
	return out
}

func nilIfEmpty(v reflect.Value) any {
	if isEmpty(v) {
		return nil
	}
	return v.Interface()
}
