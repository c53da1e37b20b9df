// cmd/tools/registry-lint/main.go
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"payment-workers/internal/common/validation"
	"payment-workers/pkg/registry"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, out io.Writer) int {
	validateCmd := flag.NewFlagSet("validate", flag.ContinueOnError)
	validatePath := validateCmd.String("path", "configs/products.json", "Path to registry file")

	listCmd := flag.NewFlagSet("list", flag.ContinueOnError)
	listPath := listCmd.String("path", "configs/products.json", "Path to registry file")

	checkCmd := flag.NewFlagSet("check", flag.ContinueOnError)
	checkPath := checkCmd.String("path", "configs/products.json", "Path to registry file")
	checkID := checkCmd.String("id", "", "Payment product ID")
	country := checkCmd.String("country", registry.Wildcard, "Country code")
	currency := checkCmd.String("currency", registry.Wildcard, "Currency code")
	amount := checkCmd.Int64("amount", 0, "Amount in minor units")
	recurring := checkCmd.Bool("recurring", false, "Recurring payment")

	if len(args) < 1 {
		help(out)
		return 1
	}

	switch args[0] {
	case "validate":
		if err := validateCmd.Parse(args[1:]); err != nil {
			return 1
		}
		if err := validateRegistry(*validatePath, out); err != nil {
			fmt.Fprintf(out, "Registry validation failed: %v\n", err)
			return 1
		}
		fmt.Fprintln(out, "Registry validation passed.")

	case "list":
		if err := listCmd.Parse(args[1:]); err != nil {
			return 1
		}
		if err := listProducts(*listPath, out); err != nil {
			fmt.Fprintf(out, "Error listing products: %v\n", err)
			return 1
		}

	case "check":
		if err := checkCmd.Parse(args[1:]); err != nil {
			return 1
		}
		if *checkID == "" {
			fmt.Fprintln(out, "Error: id is required for check.")
			return 1
		}
		values, err := parseValues(checkCmd.Args())
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
			return 1
		}
		valid, err := checkValues(*checkPath, *checkID, *country, *currency, *amount, *recurring, values, out)
		if err != nil {
			fmt.Fprintf(out, "Error checking values: %v\n", err)
			return 1
		}
		if !valid {
			return 2
		}

	default:
		help(out)
	}
	return 0
}

// validateRegistry parses every product's field definitions and runs each rule
// once so that malformed parameters surface here rather than at job time.
func validateRegistry(path string, out io.Writer) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return err
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	engine := validation.NewEngine()
	var problems []string
	for _, p := range reg.Products {
		rules, err := validation.ParseRuleSet(p.Fields)
		if err != nil {
			problems = append(problems, fmt.Sprintf("product %s: %v", p.ID, err))
			continue
		}
		if _, err := engine.ValidateAll(rules, map[string]string{}); err != nil {
			problems = append(problems, fmt.Sprintf("product %s: %v", p.ID, err))
			continue
		}
		fmt.Fprintf(out, "  %s (%s): %d fields ok\n", p.ID, p.DisplayName, len(rules))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

func listProducts(path string, out io.Writer) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Registry version %s (updated %s)\n", reg.Version, reg.LastUpdated)
	for _, p := range reg.Products {
		fields := "<invalid definitions>"
		if rules, err := validation.ParseRuleSet(p.Fields); err == nil {
			fields = strings.Join(fieldIDs(rules), ", ")
		}
		fmt.Fprintf(out, "%-6s %-24s countries=%s currencies=%s fields=[%s]\n",
			p.ID, p.DisplayName, joinOrAny(p.Countries), joinOrAny(p.Currencies), fields)
	}
	return nil
}

func checkValues(path, id, country, currency string, amount int64, recurring bool, values map[string]string, out io.Writer) (bool, error) {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return false, err
	}
	product, ok := reg.Find(id, country, currency, amount, recurring)
	if !ok {
		return false, fmt.Errorf("product %s is not offered for %s/%s amount=%d recurring=%t", id, country, currency, amount, recurring)
	}
	rules, err := validation.ParseRuleSet(product.Fields)
	if err != nil {
		return false, err
	}

	results, err := validation.NewEngine().ValidateAll(rules, values)
	if err != nil {
		return false, err
	}
	if validation.AllValid(results) {
		fmt.Fprintln(out, "All values valid.")
		return true, nil
	}
	for _, msg := range validation.Flatten(results) {
		fmt.Fprintf(out, "  %s: %s\n", msg.FieldID, msg.RuleType)
	}
	return false, nil
}

func parseValues(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("value %q must be key=value", arg)
		}
		values[k] = v
	}
	return values, nil
}

func fieldIDs(rules validation.RuleSet) []string {
	ids := make([]string, 0, len(rules))
	for id := range rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func joinOrAny(codes []string) string {
	if len(codes) == 0 {
		return registry.Wildcard
	}
	return strings.Join(codes, ",")
}

func help(out io.Writer) {
	fmt.Fprintln(out, "Usage: registry-lint <command> [flags]")
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  validate  Parse and exercise every product's field rules")
	fmt.Fprintln(out, "  list      List products and their fields")
	fmt.Fprintln(out, "  check     Validate key=value pairs against a product's rules")
	fmt.Fprintln(out, "Flags:")
	fmt.Fprintln(out, "  -path     Path to registry file (default: configs/products.json)")
}
