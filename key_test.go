// key_test.go: unit tests for canonical key normalization
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package memo

import "testing"

func TestNormalize_ScalarEquality(t *testing.T) {
	if Normalize("user:123") != Normalize("user:123") {
		t.Error("equal strings must normalize identically")
	}
	if Normalize(int64(1)) == Normalize("1") {
		t.Error("int64(1) and string \"1\" must not collide")
	}
	if Normalize(int64(1)) == Normalize(float64(1)) {
		t.Error("int64(1) and float64(1) must not collide")
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	keys := []interface{}{
		"plain",
		42,
		[]interface{}{1, 2, 3},
		map[string]interface{}{"b": 2, "a": 1},
		Tuple{1, "x", true},
	}
	for _, k := range keys {
		n1 := Normalize(k)
		n2 := Normalize(n1)
		if n1 != n2 {
			t.Errorf("Normalize(Normalize(%v)) != Normalize(%v): %q vs %q", k, k, n2.String(), n1.String())
		}
	}
}

func TestNormalize_MapKeyOrderIndependent(t *testing.T) {
	a := map[string]interface{}{"a": 1, "b": 2, "c": 3}
	b := map[string]interface{}{"c": 3, "a": 1, "b": 2}
	if Normalize(a) != Normalize(b) {
		t.Error("maps with the same pairs in different insertion order must normalize identically")
	}
}

func TestNormalize_MapSequenceNoCollision(t *testing.T) {
	m := map[string]interface{}{"a": 1}
	seq := []interface{}{Tuple{"a", 1}}
	if Normalize(m) == Normalize(seq) {
		t.Error("a normalized map must never collide with a normalized sequence of pairs")
	}
}

func TestNormalize_SequenceElementsOrderMatters(t *testing.T) {
	a := []interface{}{1, 2, 3}
	b := []interface{}{3, 2, 1}
	if Normalize(a) == Normalize(b) {
		t.Error("sequences differing in element order must not normalize identically")
	}
}

func TestNormalize_TupleArityDistinguishesFromSlice(t *testing.T) {
	tup := Tuple{1, 2}
	slice := []interface{}{1, 2}
	if Normalize(tup) == Normalize(slice) {
		t.Error("a Tuple and a same-length slice must not collide")
	}
}

func TestNormalize_NestedStructures(t *testing.T) {
	a := map[string]interface{}{
		"users": []interface{}{
			map[string]interface{}{"id": 1, "name": "alice"},
			map[string]interface{}{"id": 2, "name": "bob"},
		},
	}
	b := map[string]interface{}{
		"users": []interface{}{
			map[string]interface{}{"name": "alice", "id": 1},
			map[string]interface{}{"id": 2, "name": "bob"},
		},
	}
	if Normalize(a) != Normalize(b) {
		t.Error("nested maps differing only in key insertion order must normalize identically")
	}
}

func TestNormalize_Nil(t *testing.T) {
	if Normalize(nil) != Normalize(nil) {
		t.Error("nil must normalize identically to itself")
	}
}

func TestNormalize_AsMapKey(t *testing.T) {
	m := map[Normalized]int{}
	m[Normalize("x")] = 1
	m[Normalize("x")] = 2
	if len(m) != 1 {
		t.Errorf("Normalized must be directly usable as a Go map key, expected 1 entry, got %d", len(m))
	}
}
