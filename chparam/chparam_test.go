package chparam

import (
	"math"
	"testing"

	"chnative/chtype"
	"chnative/chvalue"
)

func TestExtractHints(t *testing.T) {
	sql := "SELECT {a:UInt64}, {b:String} /* {c:Int32} */ -- {d:Date}\nFROM t"
	_, hints, err := Extract(sql)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := map[string]string{"a": "UInt64", "b": "String"}
	if len(hints) != len(want) {
		t.Fatalf("hints = %v, want %v", hints, want)
	}
	for k, v := range want {
		if hints[k] != v {
			t.Fatalf("hints[%q] = %q, want %q", k, hints[k], v)
		}
	}
}

func TestExtractConflictingHint(t *testing.T) {
	sql := "SELECT {x:UInt8}, {x:UInt16}"
	_, _, err := Extract(sql)
	if err == nil {
		t.Fatal("expected ConflictingTypeHint")
	}
	if _, ok := err.(*ConflictingTypeHint); !ok {
		t.Fatalf("got %T, want *ConflictingTypeHint", err)
	}
}

func TestRenderArrayFloat32(t *testing.T) {
	typ, err := chtype.Parse("Array(Float32)")
	if err != nil {
		t.Fatal(err)
	}
	v := chvalue.Array([]chvalue.Value{chvalue.Float(1.0), chvalue.Float(2.0), chvalue.Float(3.0)})
	got, err := Render(typ, v)
	if err != nil {
		t.Fatal(err)
	}
	if got != "[1,2,3]" {
		t.Fatalf("got %q, want [1,2,3]", got)
	}
}

func TestSubstituteMissingParameter(t *testing.T) {
	reg := chtype.NewRegistry()
	_, err := Substitute("SELECT {a:UInt64}", Bag{}, reg)
	if _, ok := err.(*MissingParameter); !ok {
		t.Fatalf("got %T (%v), want *MissingParameter", err, err)
	}
}

func TestSubstituteUntypedParameter(t *testing.T) {
	reg := chtype.NewRegistry()
	bag := Bag{"a": {Value: chvalue.Int(1)}}
	_, err := Substitute("SELECT {a}", bag, reg)
	if _, ok := err.(*UntypedParameter); !ok {
		t.Fatalf("got %T (%v), want *UntypedParameter", err, err)
	}
}

func TestSubstituteUsesDeclaredTypeOverHint(t *testing.T) {
	reg := chtype.NewRegistry()
	declared, err := reg.Parse("Int32")
	if err != nil {
		t.Fatal(err)
	}
	bag := Bag{"a": {Value: chvalue.Int(-5), DeclaredType: declared}}
	got, err := Substitute("SELECT {a:UInt64}", bag, reg)
	if err != nil {
		t.Fatal(err)
	}
	if got != "SELECT -5" {
		t.Fatalf("got %q, want %q", got, "SELECT -5")
	}
}

func TestRenderStringEscaping(t *testing.T) {
	typ, _ := chtype.Parse("String")
	got, err := Render(typ, chvalue.Str("ab\ncd\t'\\"))
	if err != nil {
		t.Fatal(err)
	}
	want := `'ab\ncd\t\'\\'`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderStringNFCNormalization(t *testing.T) {
	typ, _ := chtype.Parse("String")
	// "e" + combining acute accent (U+0065 U+0301), decomposed NFD form.
	decomposed := "école"
	got, err := Render(typ, chvalue.Str(decomposed))
	if err != nil {
		t.Fatal(err)
	}
	// NFC composes them into a single U+00E9 ("é").
	want := "'école'"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRenderNullableNull(t *testing.T) {
	typ, _ := chtype.Parse("Nullable(Int32)")
	got, err := Render(typ, chvalue.Null())
	if err != nil {
		t.Fatal(err)
	}
	if got != "NULL" {
		t.Fatalf("got %q, want NULL", got)
	}
}

func TestRenderFloatSpecials(t *testing.T) {
	typ, _ := chtype.Parse("Float64")
	cases := map[string]chvalue.Value{
		"nan":  chvalue.Float(math.NaN()),
		"inf":  chvalue.Float(math.Inf(1)),
		"-inf": chvalue.Float(math.Inf(-1)),
	}
	for want, v := range cases {
		got, err := Render(typ, v)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Fatalf("got %q, want %q", got, want)
		}
	}
}
