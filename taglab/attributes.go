package taglab

import (
	"github.com/pkg/errors"
)

// AttributeType is for the declared type of a region attribute
type AttributeType string

const (
	AttributeInteger AttributeType = "integer"
	AttributeNumber  AttributeType = "number"
	AttributeString  AttributeType = "string"
	AttributeBoolean AttributeType = "boolean"
	AttributeDate    AttributeType = "date"
	AttributeKeyword AttributeType = "keyword"
)

// AttributeField declares one attribute allowed on regions
type AttributeField struct {
	Name      string        `json:"name"`
	Type      AttributeType `json:"type"`
	Mandatory bool          `json:"mandatory,omitempty"`
	// Keywords lists accepted values for AttributeKeyword fields
	Keywords []string `json:"keywords,omitempty"`
}

// AttributeSchema is the externally supplied declaration of region attributes
type AttributeSchema struct {
	Fields []AttributeField `json:"data"`
}

// Attributes is the open key-value side table attached to a blob or an image
type Attributes map[string]any

// Copy returns shallow copy of attributes
func (a Attributes) Copy() Attributes {
	if a == nil {
		return nil
	}
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Field returns declaration for name
func (s *AttributeSchema) Field(name string) (AttributeField, bool) {
	if s == nil {
		return AttributeField{}, false
	}
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return AttributeField{}, false
}

// ValidateValue checks a single value against the declared field type.
// A nil schema accepts anything.
func (s *AttributeSchema) ValidateValue(name string, value any) error {
	if s == nil {
		return nil
	}
	field, ok := s.Field(name)
	if !ok {
		return errors.Wrapf(ErrAttribute, "undeclared attribute '%s'", name)
	}
	if value == nil {
		if field.Mandatory {
			return errors.Wrapf(ErrAttribute, "attribute '%s' is mandatory", name)
		}
		return nil
	}
	switch field.Type {
	case AttributeInteger:
		switch v := value.(type) {
		case int, int32, int64:
		case float64:
			// JSON numbers decode as float64
			if v != float64(int64(v)) {
				return errors.Wrapf(ErrAttribute, "attribute '%s' expects integer, got %v", name, value)
			}
		default:
			return errors.Wrapf(ErrAttribute, "attribute '%s' expects integer, got %T", name, value)
		}
	case AttributeNumber:
		switch value.(type) {
		case int, int32, int64, float32, float64:
		default:
			return errors.Wrapf(ErrAttribute, "attribute '%s' expects number, got %T", name, value)
		}
	case AttributeString:
		if _, ok := value.(string); !ok {
			return errors.Wrapf(ErrAttribute, "attribute '%s' expects string, got %T", name, value)
		}
	case AttributeBoolean:
		if _, ok := value.(bool); !ok {
			return errors.Wrapf(ErrAttribute, "attribute '%s' expects boolean, got %T", name, value)
		}
	case AttributeDate:
		txt, ok := value.(string)
		if !ok || !IsValidDate(txt) {
			return errors.Wrapf(ErrAttribute, "attribute '%s' expects YYYY-MM-DD date, got %v", name, value)
		}
	case AttributeKeyword:
		txt, ok := value.(string)
		if !ok {
			return errors.Wrapf(ErrAttribute, "attribute '%s' expects keyword, got %T", name, value)
		}
		for _, kw := range field.Keywords {
			if kw == txt {
				return nil
			}
		}
		return errors.Wrapf(ErrAttribute, "attribute '%s' does not accept keyword '%s'", name, txt)
	default:
		return errors.Wrapf(ErrAttribute, "attribute '%s' has unknown type '%s'", name, field.Type)
	}
	return nil
}

// Validate checks every value and the presence of mandatory fields
func (s *AttributeSchema) Validate(attrs Attributes) error {
	if s == nil {
		return nil
	}
	for name, value := range attrs {
		if err := s.ValidateValue(name, value); err != nil {
			return err
		}
	}
	for _, f := range s.Fields {
		if !f.Mandatory {
			continue
		}
		if _, ok := attrs[f.Name]; !ok {
			return errors.Wrapf(ErrAttribute, "attribute '%s' is mandatory", f.Name)
		}
	}
	return nil
}
