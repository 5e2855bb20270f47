package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Kind is a primitive attribute type tag
type Kind string

const (
	KindString    Kind = "String"
	KindInteger   Kind = "Integer"
	KindFloat     Kind = "Float"
	KindLong      Kind = "Long"
	KindBoolean   Kind = "Boolean"
	KindDate      Kind = "Date"
	KindTimestamp Kind = "Timestamp"
)

var primitiveKinds = map[Kind]bool{
	KindString:    true,
	KindInteger:   true,
	KindFloat:     true,
	KindLong:      true,
	KindBoolean:   true,
	KindDate:      true,
	KindTimestamp: true,
}

// IsPrimitiveKind reports whether s names a primitive kind
func IsPrimitiveKind(s string) bool {
	return primitiveKinds[Kind(s)]
}

// AttributeType is either a primitive kind or a reference to a list-type
// class. The zero value is the String kind.
type AttributeType struct {
	kind     Kind
	listType string
}

// Primitive builds a primitive attribute type
func Primitive(k Kind) AttributeType {
	return AttributeType{kind: k}
}

// ListType builds an attribute type referencing instances of className
func ListType(className string) AttributeType {
	return AttributeType{listType: className}
}

// ParseAttributeType resolves a stored type name. Unknown names are list
// types.
func ParseAttributeType(s string) AttributeType {
	if s == "" {
		return Primitive(KindString)
	}
	if IsPrimitiveKind(s) {
		return Primitive(Kind(s))
	}
	return ListType(s)
}

// IsPrimitive reports whether the type is a primitive kind
func (t AttributeType) IsPrimitive() bool {
	return t.listType == ""
}

// IsListType reports whether the type references a list-type class
func (t AttributeType) IsListType() bool {
	return t.listType != ""
}

// Kind returns the primitive kind; empty for list types
func (t AttributeType) Kind() Kind {
	if t.listType != "" {
		return ""
	}
	if t.kind == "" {
		return KindString
	}
	return t.kind
}

// ListClass returns the referenced list-type class; empty for primitives
func (t AttributeType) ListClass() string {
	return t.listType
}

// String returns the stored type name
func (t AttributeType) String() string {
	if t.listType != "" {
		return t.listType
	}
	return string(t.Kind())
}

// CanBeUnique reports whether values of this type may be indexed for
// uniqueness
func (t AttributeType) CanBeUnique() bool {
	switch t.Kind() {
	case KindString, KindInteger, KindFloat, KindLong:
		return t.IsPrimitive()
	}
	return false
}

func (t AttributeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *AttributeType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = ParseAttributeType(s)
	return nil
}

func (t AttributeType) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

func (t *AttributeType) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*t = ParseAttributeType(s)
	return nil
}

// AttributeDefinition describes one attribute of a class
type AttributeDefinition struct {
	ID          string        `json:"id,omitempty" yaml:"-"`
	Name        string        `json:"name" yaml:"name"`
	DisplayName string        `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Type        AttributeType `json:"type" yaml:"type"`
	Mandatory   bool          `json:"mandatory,omitempty" yaml:"mandatory,omitempty"`
	Unique      bool          `json:"unique,omitempty" yaml:"unique,omitempty"`
	Multiple    bool          `json:"multiple,omitempty" yaml:"multiple,omitempty"`
	ReadOnly    bool          `json:"read_only,omitempty" yaml:"read_only,omitempty"`
	Visible     bool          `json:"visible" yaml:"visible"`
	NoCopy      bool          `json:"no_copy,omitempty" yaml:"no_copy,omitempty"`
	Order       int           `json:"order" yaml:"order,omitempty"`

	// ClassName is the class that declares the attribute
	ClassName string `json:"class_name,omitempty" yaml:"-"`
}

// DefaultAttributeOrder is used when an attribute declares no order
const DefaultAttributeOrder = 1000

// AttributePatch is a partial update of an attribute definition. Nil
// fields are left untouched.
type AttributePatch struct {
	Name        *string        `json:"name,omitempty"`
	DisplayName *string        `json:"display_name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Type        *AttributeType `json:"type,omitempty"`
	Mandatory   *bool          `json:"mandatory,omitempty"`
	Unique      *bool          `json:"unique,omitempty"`
	Multiple    *bool          `json:"multiple,omitempty"`
	ReadOnly    *bool          `json:"read_only,omitempty"`
	Visible     *bool          `json:"visible,omitempty"`
	NoCopy      *bool          `json:"no_copy,omitempty"`
	Order       *int           `json:"order,omitempty"`
}

var (
	classNamePattern        = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	attributeNamePattern    = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	relationshipNamePattern = regexp.MustCompile(`^[a-z][a-zA-Z0-9]*$`)
)

// ValidateClassName checks a class name's characters
func ValidateClassName(name string) error {
	if name == "" {
		return InvalidArgumentf("class name cannot be empty")
	}
	if !classNamePattern.MatchString(name) {
		return InvalidArgumentf("class name %q contains invalid characters", name).WithClass(name)
	}
	return nil
}

// ValidateAttributeName checks an attribute name's characters
func ValidateAttributeName(name string) error {
	if name == "" {
		return InvalidArgumentf("attribute name cannot be empty")
	}
	if !attributeNamePattern.MatchString(name) {
		return InvalidArgumentf("attribute name %q contains invalid characters", name).WithAttribute(name)
	}
	return nil
}

// ValidateRelationshipName checks a special relationship name
func ValidateRelationshipName(name string) error {
	if !relationshipNamePattern.MatchString(name) {
		return InvalidArgumentf("relationship name %q must start with a lowercase letter and contain only letters and digits", name)
	}
	return nil
}

// ParseValue converts a raw attribute value to its stored form
func ParseValue(k Kind, raw string) (any, error) {
	switch k {
	case KindString, "":
		return raw, nil
	case KindInteger, KindLong:
		v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid %s", raw, k)
		}
		return v, nil
	case KindFloat:
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid %s", raw, k)
		}
		return v, nil
	case KindBoolean:
		v, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%q is not a valid %s", raw, k)
		}
		return v, nil
	case KindDate, KindTimestamp:
		raw = strings.TrimSpace(raw)
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return ms, nil
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			if t, err = time.Parse(time.DateOnly, raw); err != nil {
				return nil, fmt.Errorf("%q is not a valid %s", raw, k)
			}
		}
		return t.UnixMilli(), nil
	}
	return nil, fmt.Errorf("unknown attribute kind %s", k)
}

// FormatValue renders a stored attribute value in its canonical string form
func FormatValue(k Kind, v any) string {
	if v == nil {
		return ""
	}
	switch k {
	case KindInteger, KindLong, KindDate, KindTimestamp:
		if i, ok := toInt64(v); ok {
			return strconv.FormatInt(i, 10)
		}
	case KindFloat:
		switch f := v.(type) {
		case float64:
			return strconv.FormatFloat(f, 'f', -1, 64)
		case json.Number:
			if parsed, err := f.Float64(); err == nil {
				return strconv.FormatFloat(parsed, 'f', -1, 64)
			}
		}
	case KindBoolean:
		return strconv.FormatBool(toBool(v))
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// IsEmptyValue reports whether a stored value counts as "no value"
func IsEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return s == ""
	}
	return false
}

// SplitListValue splits a multi-valued list-type reference on ";"
func SplitListValue(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ";") {
		if part = strings.TrimSpace(part); part != "" {
			ids = append(ids, part)
		}
	}
	return ids
}
