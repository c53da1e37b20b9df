package validation

// RuleType identifies a payment field rule. The set is closed; evaluate
// switches over every value.
type RuleType string

const (
	RuleRequired           RuleType = "required"
	RuleLength             RuleType = "length"
	RuleRange              RuleType = "range"
	RuleLuhn               RuleType = "luhn"
	RuleRegularExpression  RuleType = "regularExpression"
	RuleFixedList          RuleType = "fixedList"
	RuleEmailAddress       RuleType = "emailAddress"
	RuleIban               RuleType = "iban"
	RuleExpirationDate     RuleType = "expirationDate"
	RuleTermsAndConditions RuleType = "termsAndConditions"
)

// Rule is a stateless predicate over a field value. Type selects the variant;
// Min/Max apply to Length and Range (nil means unbounded), Pattern to
// RegularExpression and AllowedValues to FixedList.
type Rule struct {
	Type          RuleType `json:"type"`
	Min           *int64   `json:"min,omitempty"`
	Max           *int64   `json:"max,omitempty"`
	Pattern       string   `json:"pattern,omitempty"`
	AllowedValues []string `json:"allowedValues,omitempty"`
}

// Bound returns a pointer for use as a Length or Range bound.
func Bound(n int64) *int64 {
	return &n
}

func Required() Rule { return Rule{Type: RuleRequired} }

func Length(min, max *int64) Rule { return Rule{Type: RuleLength, Min: min, Max: max} }

func Range(min, max *int64) Rule { return Rule{Type: RuleRange, Min: min, Max: max} }

func Luhn() Rule { return Rule{Type: RuleLuhn} }

func RegularExpression(pattern string) Rule {
	return Rule{Type: RuleRegularExpression, Pattern: pattern}
}

func FixedList(allowed ...string) Rule {
	return Rule{Type: RuleFixedList, AllowedValues: append([]string(nil), allowed...)}
}

func EmailAddress() Rule { return Rule{Type: RuleEmailAddress} }

func Iban() Rule { return Rule{Type: RuleIban} }

func ExpirationDate() Rule { return Rule{Type: RuleExpirationDate} }

func TermsAndConditions() Rule { return Rule{Type: RuleTermsAndConditions} }

// RuleSet maps field ids to their ordered rules. Treat it as immutable once built.
type RuleSet map[string][]Rule

// NewRuleSet copies fields so later changes to the source map do not leak in.
func NewRuleSet(fields map[string][]Rule) RuleSet {
	rs := make(RuleSet, len(fields))
	for id, rules := range fields {
		copied := make([]Rule, len(rules))
		for i, r := range rules {
			copied[i] = r
			if r.AllowedValues != nil {
				copied[i].AllowedValues = append([]string(nil), r.AllowedValues...)
			}
		}
		rs[id] = copied
	}
	return rs
}

// IsRequired reports whether a field carries the Required rule.
func (rs RuleSet) IsRequired(fieldID string) bool {
	return hasRequired(rs[fieldID])
}

func hasRequired(rules []Rule) bool {
	for _, r := range rules {
		if r.Type == RuleRequired {
			return true
		}
	}
	return false
}
