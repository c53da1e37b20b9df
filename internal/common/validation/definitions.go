package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"payment-workers/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// definitionsSchema describes the gateway's field definition document. Unknown
// validators are rejected so that a rule kind this engine cannot evaluate never
// passes silently.
const definitionsSchema = `{
  "type": "object",
  "required": ["fields"],
  "properties": {
    "fields": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "dataRestrictions": {
            "type": "object",
            "properties": {
              "isRequired": {"type": "boolean"},
              "validators": {
                "type": "object",
                "additionalProperties": false,
                "properties": {
                  "length": {
                    "type": "object",
                    "properties": {
                      "minLength": {"type": "integer"},
                      "maxLength": {"type": "integer"}
                    }
                  },
                  "range": {
                    "type": "object",
                    "properties": {
                      "minValue": {"type": "integer"},
                      "maxValue": {"type": "integer"}
                    }
                  },
                  "luhn": {"type": "object"},
                  "regularExpression": {
                    "type": "object",
                    "required": ["regularExpression"],
                    "properties": {"regularExpression": {"type": "string"}}
                  },
                  "fixedList": {
                    "type": "object",
                    "required": ["allowedValues"],
                    "properties": {
                      "allowedValues": {"type": "array", "items": {"type": "string"}}
                    }
                  },
                  "emailAddress": {"type": "object"},
                  "iban": {"type": "object"},
                  "expirationDate": {"type": "object"},
                  "termsAndConditions": {"type": "object"}
                }
              }
            }
          }
        }
      }
    }
  }
}`

var definitionsSchemaLoader = gojsonschema.NewStringLoader(definitionsSchema)

type fieldDefinitions struct {
	Fields []fieldDefinition `json:"fields"`
}

type fieldDefinition struct {
	ID               string `json:"id"`
	DataRestrictions struct {
		IsRequired bool       `json:"isRequired"`
		Validators validators `json:"validators"`
	} `json:"dataRestrictions"`
}

type validators struct {
	Length *struct {
		MinLength *int64 `json:"minLength"`
		MaxLength *int64 `json:"maxLength"`
	} `json:"length"`
	Range *struct {
		MinValue *int64 `json:"minValue"`
		MaxValue *int64 `json:"maxValue"`
	} `json:"range"`
	Luhn              *struct{} `json:"luhn"`
	RegularExpression *struct {
		RegularExpression string `json:"regularExpression"`
	} `json:"regularExpression"`
	FixedList *struct {
		AllowedValues []string `json:"allowedValues"`
	} `json:"fixedList"`
	EmailAddress       *struct{} `json:"emailAddress"`
	Iban               *struct{} `json:"iban"`
	ExpirationDate     *struct{} `json:"expirationDate"`
	TermsAndConditions *struct{} `json:"termsAndConditions"`
}

// ParseRuleSet turns a field definition document into a RuleSet. Per field,
// Required comes first, followed by the remaining rules in a fixed order.
// Structural problems are configuration errors; semantic ones such as
// min > max are left for Validate to report.
func ParseRuleSet(doc []byte) (RuleSet, error) {
	result, err := gojsonschema.Validate(definitionsSchemaLoader, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return nil, errors.NewConfigurationError("*", fmt.Sprintf("field definitions are not valid JSON: %v", err))
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return nil, errors.NewConfigurationError("*", fmt.Sprintf("field definitions failed schema validation: %s", strings.Join(errs, "; ")))
	}

	var defs fieldDefinitions
	if err := json.Unmarshal(doc, &defs); err != nil {
		return nil, errors.NewConfigurationError("*", fmt.Sprintf("decode field definitions: %v", err))
	}

	rs := make(RuleSet, len(defs.Fields))
	for _, f := range defs.Fields {
		if _, dup := rs[f.ID]; dup {
			return nil, errors.NewConfigurationError(f.ID, "field declared more than once")
		}
		rs[f.ID] = f.rules()
	}
	return rs, nil
}

func (f fieldDefinition) rules() []Rule {
	v := f.DataRestrictions.Validators
	rules := []Rule{}

	if f.DataRestrictions.IsRequired {
		rules = append(rules, Required())
	}
	if v.Length != nil {
		rules = append(rules, Length(v.Length.MinLength, v.Length.MaxLength))
	}
	if v.Range != nil {
		rules = append(rules, Range(v.Range.MinValue, v.Range.MaxValue))
	}
	if v.Luhn != nil {
		rules = append(rules, Luhn())
	}
	if v.RegularExpression != nil {
		rules = append(rules, RegularExpression(v.RegularExpression.RegularExpression))
	}
	if v.FixedList != nil {
		rules = append(rules, FixedList(v.FixedList.AllowedValues...))
	}
	if v.EmailAddress != nil {
		rules = append(rules, EmailAddress())
	}
	if v.Iban != nil {
		rules = append(rules, Iban())
	}
	if v.ExpirationDate != nil {
		rules = append(rules, ExpirationDate())
	}
	if v.TermsAndConditions != nil {
		rules = append(rules, TermsAndConditions())
	}
	return rules
}
