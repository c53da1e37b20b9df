// Package validation evaluates server-declared payment field rules against
// user-entered values.
package validation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"payment-workers/internal/common/errors"
)

// maxExpiryYears bounds how far in the future an expiration date may lie.
const maxExpiryYears = 25

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	ibanRegex  = regexp.MustCompile(`^[A-Z]{2}[0-9]{2}[A-Z0-9]{1,30}$`)
)

// ErrorMessage describes one violated rule.
type ErrorMessage struct {
	ErrorMessage string   `json:"errorMessage"`
	FieldID      string   `json:"fieldId"`
	RuleType     RuleType `json:"ruleType"`
}

// Result is the outcome of validating one field. It is valid exactly when it
// holds no errors.
type Result struct {
	errors []ErrorMessage
}

// IsValid reports whether no rule was violated.
func (r *Result) IsValid() bool {
	return len(r.errors) == 0
}

// Errors returns the violations in rule declaration order.
func (r *Result) Errors() []ErrorMessage {
	return append([]ErrorMessage(nil), r.errors...)
}

func (r *Result) MarshalJSON() ([]byte, error) {
	errs := r.errors
	if errs == nil {
		errs = []ErrorMessage{}
	}
	return json.Marshal(struct {
		IsValid bool           `json:"isValid"`
		Errors  []ErrorMessage `json:"errors"`
	}{r.IsValid(), errs})
}

// Engine evaluates rules. It is safe for concurrent use.
type Engine struct {
	now      func() time.Time
	patterns sync.Map // anchored pattern -> *regexp.Regexp
}

type Option func(*Engine)

// WithClock overrides the clock used by the expiration date rule.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Validate evaluates rules for one field. values is the full submission, made
// available to rules that look across fields. A malformed rule returns a
// CONFIGURATION_ERROR instead of a result.
//
// An empty value yields only the Required violation when the field is
// required, and is valid otherwise. A non-empty value is checked against every
// rule and all violations are collected.
func (e *Engine) Validate(fieldID, value string, rules []Rule, values map[string]string) (*Result, error) {
	for _, r := range rules {
		if err := e.checkRule(fieldID, r); err != nil {
			return nil, err
		}
	}

	result := &Result{}
	if isEmpty(value) {
		if hasRequired(rules) {
			result.errors = append(result.errors, ErrorMessage{
				ErrorMessage: "field is required",
				FieldID:      fieldID,
				RuleType:     RuleRequired,
			})
		}
		return result, nil
	}

	for _, r := range rules {
		if msg, ok := e.evaluate(r, value, values); !ok {
			result.errors = append(result.errors, ErrorMessage{
				ErrorMessage: msg,
				FieldID:      fieldID,
				RuleType:     r.Type,
			})
		}
	}
	return result, nil
}

// ValidateAll validates every field declared in rs. Values for undeclared
// fields are ignored.
func (e *Engine) ValidateAll(rs RuleSet, values map[string]string) (map[string]*Result, error) {
	ids := make([]string, 0, len(rs))
	for id := range rs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := make(map[string]*Result, len(rs))
	for _, id := range ids {
		res, err := e.Validate(id, values[id], rs[id], values)
		if err != nil {
			return nil, err
		}
		results[id] = res
	}
	return results, nil
}

// AllValid reports whether every result is valid.
func AllValid(results map[string]*Result) bool {
	for _, r := range results {
		if !r.IsValid() {
			return false
		}
	}
	return true
}

// Flatten returns every violation ordered by field id.
func Flatten(results map[string]*Result) []ErrorMessage {
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []ErrorMessage
	for _, id := range ids {
		out = append(out, results[id].errors...)
	}
	return out
}

func isEmpty(value string) bool {
	return strings.TrimSpace(value) == ""
}

func (e *Engine) checkRule(fieldID string, r Rule) error {
	switch r.Type {
	case RuleRequired, RuleLuhn, RuleEmailAddress, RuleIban, RuleExpirationDate, RuleTermsAndConditions:
		return nil
	case RuleLength:
		if (r.Min != nil && *r.Min < 0) || (r.Max != nil && *r.Max < 0) {
			return errors.NewConfigurationError(fieldID, "length bounds must not be negative")
		}
		return checkBounds(fieldID, r)
	case RuleRange:
		return checkBounds(fieldID, r)
	case RuleRegularExpression:
		if r.Pattern == "" {
			return errors.NewConfigurationError(fieldID, "regularExpression pattern is empty")
		}
		if _, err := e.compile(r.Pattern); err != nil {
			return errors.NewConfigurationError(fieldID, fmt.Sprintf("invalid regularExpression: %v", err))
		}
		return nil
	case RuleFixedList:
		if len(r.AllowedValues) == 0 {
			return errors.NewConfigurationError(fieldID, "fixedList has no allowed values")
		}
		return nil
	default:
		return errors.NewConfigurationError(fieldID, fmt.Sprintf("unknown rule type %q", r.Type))
	}
}

func checkBounds(fieldID string, r Rule) error {
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return errors.NewConfigurationError(fieldID, fmt.Sprintf("%s min %d is greater than max %d", r.Type, *r.Min, *r.Max))
	}
	return nil
}

// evaluate returns a message and false when value violates r. Rule
// definitions have already passed checkRule.
func (e *Engine) evaluate(r Rule, value string, values map[string]string) (string, bool) {
	switch r.Type {
	case RuleRequired:
		return "", true
	case RuleLength:
		n := int64(utf8.RuneCountInString(value))
		if !within(n, r.Min, r.Max) {
			return "length " + describeBounds(r.Min, r.Max), false
		}
		return "", true
	case RuleRange:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return "value must be a whole number", false
		}
		if !within(n, r.Min, r.Max) {
			return "value " + describeBounds(r.Min, r.Max), false
		}
		return "", true
	case RuleLuhn:
		if !luhnValid(value) {
			return "card number checksum is invalid", false
		}
		return "", true
	case RuleRegularExpression:
		re, _ := e.compile(r.Pattern)
		if !re.MatchString(value) {
			return "value does not match the required format", false
		}
		return "", true
	case RuleFixedList:
		for _, allowed := range r.AllowedValues {
			if value == allowed {
				return "", true
			}
		}
		return "value is not an allowed option", false
	case RuleEmailAddress:
		if !emailRegex.MatchString(value) {
			return "value is not a valid email address", false
		}
		return "", true
	case RuleIban:
		if !ibanValid(value) {
			return "value is not a valid IBAN", false
		}
		return "", true
	case RuleExpirationDate:
		if !e.expirationValid(value) {
			return "expiration date is invalid or in the past", false
		}
		return "", true
	case RuleTermsAndConditions:
		if value != "true" {
			return "terms and conditions must be accepted", false
		}
		return "", true
	default:
		return fmt.Sprintf("unknown rule type %q", r.Type), false
	}
}

// compile anchors pattern so that it must match the whole value.
func (e *Engine) compile(pattern string) (*regexp.Regexp, error) {
	anchored := `^(?:` + pattern + `)$`
	if cached, ok := e.patterns.Load(anchored); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(anchored)
	if err != nil {
		return nil, err
	}
	actual, _ := e.patterns.LoadOrStore(anchored, re)
	return actual.(*regexp.Regexp), nil
}

func within(n int64, min, max *int64) bool {
	if min != nil && n < *min {
		return false
	}
	if max != nil && n > *max {
		return false
	}
	return true
}

func describeBounds(min, max *int64) string {
	switch {
	case min != nil && max != nil:
		return fmt.Sprintf("must be between %d and %d", *min, *max)
	case min != nil:
		return fmt.Sprintf("must be at least %d", *min)
	case max != nil:
		return fmt.Sprintf("must be at most %d", *max)
	default:
		return "is out of bounds"
	}
}

// luhnValid runs the mod-10 checksum. Any non-digit fails.
func luhnValid(s string) bool {
	if s == "" {
		return false
	}
	sum := 0
	double := false
	for i := len(s) - 1; i >= 0; i-- {
		c := s[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ibanValid checks the ISO 13616 shape and the mod-97 check digits.
func ibanValid(s string) bool {
	iban := strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	if !ibanRegex.MatchString(iban) {
		return false
	}
	rearranged := iban[4:] + iban[:4]

	rem := 0
	for _, c := range rearranged {
		switch {
		case c >= '0' && c <= '9':
			rem = (rem*10 + int(c-'0')) % 97
		case c >= 'A' && c <= 'Z':
			v := int(c-'A') + 10
			rem = (rem*100 + v) % 97
		default:
			return false
		}
	}
	return rem == 1
}

// expirationValid accepts MMYY not before the current month and at most
// maxExpiryYears ahead.
func (e *Engine) expirationValid(value string) bool {
	if len(value) != 4 {
		return false
	}
	for i := 0; i < 4; i++ {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	month, _ := strconv.Atoi(value[:2])
	yy, _ := strconv.Atoi(value[2:])
	if month < 1 || month > 12 {
		return false
	}

	now := e.now()
	entered := (2000+yy)*12 + month
	current := now.Year()*12 + int(now.Month())
	latest := (now.Year()+maxExpiryYears)*12 + int(now.Month())
	return entered >= current && entered <= latest
}
