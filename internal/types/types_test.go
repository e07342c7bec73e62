package types

import "testing"

func TestCompatibleReflexive(t *testing.T) {
	cases := []Type{
		Named(Int),
		Named(String),
		Of(List, Named(Int)),
		Of(Map, Of(List, Named(String))),
		Named("Person"),
		Of(Function, Named(Void)),
	}
	for _, c := range cases {
		if !Compatible(c, c) {
			t.Errorf("expected %s to be compatible with itself", c)
		}
	}
}

func TestCompatibleOccult(t *testing.T) {
	occult := Named(Occult)
	cases := []Type{
		Named(Int),
		Of(List, Named(Byte)),
		Of(Occult, Named(Int)),
		Named("Person"),
	}
	for _, c := range cases {
		if !Compatible(occult, c) || !Compatible(c, occult) {
			t.Errorf("expected Occult to match %s both ways", c)
		}
	}
	if !Compatible(Of(List, Named(Int)), Of(List, Named(Occult))) {
		t.Error("expected []Int to be accepted by []Occult")
	}
}

func TestCompatibleMismatch(t *testing.T) {
	tests := []struct {
		a, b Type
	}{
		{Named(Int), Named(Double)},
		{Of(List, Named(Int)), Of(List, Named(String))},
		{Of(List, Named(Int)), Named(List)},
		{Named(List), Of(List, Named(Int))},
		{Of(Map, Of(List, Named(Int))), Of(Map, Of(List, Named(Double)))},
	}
	for _, tt := range tests {
		if Compatible(tt.a, tt.b) {
			t.Errorf("expected %s and %s to be incompatible", tt.a, tt.b)
		}
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{Named(Int), "Int"},
		{Of(List, Named(String)), "[]String"},
		{Of(Map, Of(List, Named(Int))), "Map<[]Int>"},
		{Of(Function, Named(Void)), "Function<Void>"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFieldsString(t *testing.T) {
	got := FieldsString([]Field{
		{Type: Named(Int), Name: "a"},
		{Type: Of(List, Named(Byte)), Name: "data", Optional: true},
	})
	if got != "Int a, []Byte data?" {
		t.Errorf("unexpected signature: %q", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	orig := Of(List, Named(Int))
	c := orig.Clone()
	c.Of.Base = Double
	if orig.Of.Base != Int {
		t.Error("Clone shared the element descriptor")
	}
}
