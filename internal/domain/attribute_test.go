package domain

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"
	"time"
)

func TestParseAttributeType(t *testing.T) {
	tests := []struct {
		in        string
		primitive bool
		kind      Kind
		listClass string
	}{
		{"", true, KindString, ""},
		{"Integer", true, KindInteger, ""},
		{"Timestamp", true, KindTimestamp, ""},
		{"EquipmentVendor", false, "", "EquipmentVendor"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			typ := ParseAttributeType(tt.in)
			if typ.IsPrimitive() != tt.primitive {
				t.Errorf("IsPrimitive() = %v, want %v", typ.IsPrimitive(), tt.primitive)
			}
			if typ.IsListType() == tt.primitive {
				t.Errorf("IsListType() = %v, want %v", typ.IsListType(), !tt.primitive)
			}
			if typ.Kind() != tt.kind {
				t.Errorf("Kind() = %s, want %s", typ.Kind(), tt.kind)
			}
			if typ.ListClass() != tt.listClass {
				t.Errorf("ListClass() = %s, want %s", typ.ListClass(), tt.listClass)
			}
		})
	}
}

func TestAttributeTypeZeroValue(t *testing.T) {
	var typ AttributeType
	if typ.Kind() != KindString {
		t.Errorf("expected zero value to be String, got %s", typ.Kind())
	}
	if typ.String() != "String" {
		t.Errorf("expected String(), got %s", typ.String())
	}
}

func TestAttributeTypeCanBeUnique(t *testing.T) {
	tests := []struct {
		typ  AttributeType
		want bool
	}{
		{Primitive(KindString), true},
		{Primitive(KindInteger), true},
		{Primitive(KindFloat), true},
		{Primitive(KindLong), true},
		{Primitive(KindBoolean), false},
		{Primitive(KindDate), false},
		{ListType("EquipmentVendor"), false},
	}
	for _, tt := range tests {
		if got := tt.typ.CanBeUnique(); got != tt.want {
			t.Errorf("%s.CanBeUnique() = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestAttributeTypeJSON(t *testing.T) {
	attr := AttributeDefinition{Name: "vendor", Type: ListType("EquipmentVendor")}
	data, err := json.Marshal(attr)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded AttributeDefinition
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Type.ListClass() != "EquipmentVendor" {
		t.Errorf("expected list type to survive, got %s", decoded.Type)
	}

	var typ AttributeType
	if err := json.Unmarshal([]byte(`"Float"`), &typ); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if typ.Kind() != KindFloat {
		t.Errorf("expected Float, got %s", typ)
	}
}

func TestValidateNames(t *testing.T) {
	t.Run("class names", func(t *testing.T) {
		if err := ValidateClassName("Router-2_x"); err != nil {
			t.Errorf("expected valid class name, got %v", err)
		}
		for _, name := range []string{"", "bad name", "Router!"} {
			if err := ValidateClassName(name); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("ValidateClassName(%q) = %v, want invalid argument", name, err)
			}
		}
	})

	t.Run("attribute names", func(t *testing.T) {
		if err := ValidateAttributeName("serial_number2"); err != nil {
			t.Errorf("expected valid attribute name, got %v", err)
		}
		if err := ValidateAttributeName("serial-number"); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected dash to be rejected, got %v", err)
		}
	})

	t.Run("relationship names", func(t *testing.T) {
		if err := ValidateRelationshipName("hasContact"); err != nil {
			t.Errorf("expected valid relationship name, got %v", err)
		}
		for _, name := range []string{"", "Mirror", "has_contact", "2links"} {
			if err := ValidateRelationshipName(name); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("ValidateRelationshipName(%q) = %v, want invalid argument", name, err)
			}
		}
	})
}

func TestParseValue(t *testing.T) {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).UnixMilli()

	tests := []struct {
		kind    Kind
		raw     string
		want    any
		wantErr bool
	}{
		{KindString, " keep spaces ", " keep spaces ", false},
		{KindInteger, " 12 ", int64(12), false},
		{KindLong, "9000000000", int64(9000000000), false},
		{KindFloat, "1.5", 1.5, false},
		{KindBoolean, "true", true, false},
		{KindDate, "2024-01-02", day, false},
		{KindTimestamp, "2024-01-02T00:00:00Z", day, false},
		{KindDate, "1700000000000", int64(1700000000000), false},
		{KindInteger, "twelve", nil, true},
		{KindBoolean, "yes please", nil, true},
		{KindDate, "next tuesday", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseValue(tt.kind, tt.raw)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseValue(%s, %q) expected error, got %v", tt.kind, tt.raw, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseValue(%s, %q) unexpected error: %v", tt.kind, tt.raw, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseValue(%s, %q) = %v (%T), want %v (%T)", tt.kind, tt.raw, got, got, tt.want, tt.want)
		}
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		kind Kind
		v    any
		want string
	}{
		{KindString, "abc", "abc"},
		{KindInteger, int64(3), "3"},
		{KindInteger, json.Number("4"), "4"},
		{KindFloat, 1.5, "1.5"},
		{KindFloat, json.Number("2.25"), "2.25"},
		{KindBoolean, true, "true"},
		{KindDate, float64(1700000000000), "1700000000000"},
		{KindString, nil, ""},
	}
	for _, tt := range tests {
		if got := FormatValue(tt.kind, tt.v); got != tt.want {
			t.Errorf("FormatValue(%s, %v) = %q, want %q", tt.kind, tt.v, got, tt.want)
		}
	}
}

func TestIsEmptyValue(t *testing.T) {
	if !IsEmptyValue(nil) || !IsEmptyValue("") {
		t.Error("expected nil and empty string to be empty")
	}
	if IsEmptyValue(int64(0)) || IsEmptyValue(false) || IsEmptyValue("x") {
		t.Error("expected zero numbers, false and text to count as values")
	}
}

func TestSplitListValue(t *testing.T) {
	got := SplitListValue("a; b;;c ")
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("unexpected split: %v", got)
	}
	if SplitListValue(" ; ") != nil {
		t.Error("expected no ids from blank parts")
	}
}
