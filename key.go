// key.go: canonical key normalization
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package memo

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Sentinel tag bytes prefixing each normalized fragment, so that a map
// `{a: 1}` and a sequence `[(a, 1)]` can never collide on their
// canonical string form even though their flattened contents look alike.
const (
	tagScalar byte = 's'
	tagSeq    byte = 'q'
	tagMap    byte = 'm'
	tagTuple  byte = 't'
	tagNil    byte = 'n'
)

// Tuple is a fixed-width composite key component (spec.md §3: "composite
// fixed-width tuples remain composite with children normalized"). Use it
// to combine several sub-keys into one without them collapsing into an
// ordinary sequence.
type Tuple []interface{}

// Normalized is the canonical, comparable form of an arbitrary key tree.
// Two keys that are value-equal normalize to an identical Normalized
// (spec.md §8 "Normalization idempotence"). Normalized is itself
// comparable and usable directly as a Go map key.
type Normalized struct {
	canon string
}

// String returns the canonical form, useful for logging and as a
// backing-store key.
func (n Normalized) String() string { return n.canon }

// Normalize turns an arbitrary key into its canonical form. Normalizing
// an already-Normalized value returns it unchanged, which is what makes
// idempotence hold by construction rather than by recursing into the
// already-flattened string.
func Normalize(key interface{}) Normalized {
	if n, ok := key.(Normalized); ok {
		return n
	}
	var b strings.Builder
	writeCanonical(&b, key)
	return Normalized{canon: b.String()}
}

func writeCanonical(b *strings.Builder, v interface{}) {
	if v == nil {
		b.WriteByte(tagNil)
		return
	}

	switch x := v.(type) {
	case Tuple:
		writeTuple(b, x)
		return
	case map[string]interface{}:
		writeStringMap(b, x)
		return
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		writeSeq(b, rv)
	case reflect.Map:
		writeGenericMap(b, rv)
	default:
		writeScalar(b, v)
	}
}

func writeScalar(b *strings.Builder, v interface{}) {
	b.WriteByte(tagScalar)
	b.WriteByte(':')
	// Type-tag the literal so int64(1), "1" and float64(1) never collide.
	switch x := v.(type) {
	case string:
		b.WriteString("str=")
		b.WriteString(strconv.Quote(x))
	case bool:
		b.WriteString("bool=")
		b.WriteString(strconv.FormatBool(x))
	case int:
		b.WriteString("int=")
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case int8:
		b.WriteString("int=")
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case int16:
		b.WriteString("int=")
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case int32:
		b.WriteString("int=")
		b.WriteString(strconv.FormatInt(int64(x), 10))
	case int64:
		b.WriteString("int=")
		b.WriteString(strconv.FormatInt(x, 10))
	case uint:
		b.WriteString("uint=")
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint8:
		b.WriteString("uint=")
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint16:
		b.WriteString("uint=")
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint32:
		b.WriteString("uint=")
		b.WriteString(strconv.FormatUint(uint64(x), 10))
	case uint64:
		b.WriteString("uint=")
		b.WriteString(strconv.FormatUint(x, 10))
	case float32:
		b.WriteString("float=")
		b.WriteString(strconv.FormatFloat(float64(x), 'g', -1, 64))
	case float64:
		b.WriteString("float=")
		b.WriteString(strconv.FormatFloat(x, 'g', -1, 64))
	default:
		b.WriteString("any=")
		b.WriteString(fmt.Sprintf("%#v", x))
	}
}

func writeSeq(b *strings.Builder, rv reflect.Value) {
	b.WriteByte(tagSeq)
	b.WriteByte('[')
	for i := 0; i < rv.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		writeCanonical(b, rv.Index(i).Interface())
	}
	b.WriteByte(']')
}

func writeTuple(b *strings.Builder, t Tuple) {
	b.WriteByte(tagTuple)
	b.WriteByte('(')
	for i, el := range t {
		if i > 0 {
			b.WriteByte(',')
		}
		writeCanonical(b, el)
	}
	b.WriteByte(')')
}

// writeStringMap and writeGenericMap both produce a sentinel-prefixed
// ordered sequence of (normalized-key, normalized-value) pairs (spec.md
// §3: "maps become a sentinel-prefixed ordered sequence of (nk, nv)"),
// sorted so iteration order never affects the result: writeStringMap
// sorts by the raw string key, writeGenericMap by the normalized key's
// canonical string.
func writeStringMap(b *strings.Builder, m map[string]interface{}) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteByte(tagMap)
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		writeCanonical(b, k)
		b.WriteByte('=')
		writeCanonical(b, m[k])
	}
	b.WriteByte('}')
}

func writeGenericMap(b *strings.Builder, rv reflect.Value) {
	type pair struct {
		nk, nv string
	}
	pairs := make([]pair, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		var kb, vb strings.Builder
		writeCanonical(&kb, iter.Key().Interface())
		writeCanonical(&vb, iter.Value().Interface())
		pairs = append(pairs, pair{nk: kb.String(), nv: vb.String()})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].nk < pairs[j].nk })

	b.WriteByte(tagMap)
	b.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.nk)
		b.WriteByte('=')
		b.WriteString(p.nv)
	}
	b.WriteByte('}')
}
