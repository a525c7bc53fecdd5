package importer

import (
	"strings"

	"famledger-server/src/models"
)

// RuleOutcome is what a set of import rules decided for one transaction.
type RuleOutcome struct {
	IsTransfer bool
	Category   string
}

// ApplicableRules keeps the rules that are unscoped or scoped to accountTypeName.
func ApplicableRules(rules []models.ImportRule, accountTypeName string) []models.ImportRule {
	var out []models.ImportRule
	for _, r := range rules {
		if r.AccountType == nil || *r.AccountType == accountTypeName {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether the rule's pattern is a plain, case-sensitive substring
// of the field it inspects. Any field name other than "description" means category.
func Matches(rule models.ImportRule, description, category string) bool {
	value := category
	if strings.EqualFold(rule.FieldToMatch, models.MatchFieldDescription) {
		value = description
	}
	return strings.Contains(value, rule.MatchPattern)
}

// ApplyRules folds the rules in order over a transaction. Transfer is combined with
// OR so once set it stays set; the category is replaced by every matching override,
// so the last match wins. Later category rules see the replaced value.
func ApplyRules(rules []models.ImportRule, description, category string) RuleOutcome {
	out := RuleOutcome{Category: category}
	for _, r := range rules {
		out = combine(out, r, description)
	}
	return out
}

func combine(acc RuleOutcome, r models.ImportRule, description string) RuleOutcome {
	if !Matches(r, description, acc.Category) {
		return acc
	}
	acc.IsTransfer = acc.IsTransfer || r.IsTransfer
	if r.OverrideCategoryID != nil && r.OverrideCategoryName != "" {
		acc.Category = r.OverrideCategoryName
	}
	return acc
}

// annotate applies the rule outcome to each candidate in place.
func annotate(cands []models.Candidate, rules []models.ImportRule) {
	for i := range cands {
		out := ApplyRules(rules, cands[i].Description, cands[i].Category)
		cands[i].IsTransfer = out.IsTransfer
		cands[i].Category = out.Category
	}
}
