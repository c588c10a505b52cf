package services

import (
	"sort"
	"strings"

	"github.com/LovationAdmin/ledger-api/models"
)

const (
	defaultExpenseCategory = "other-expense"
	defaultIncomeCategory  = "other-income"
)

// --- STATIC DICTIONARY ---
var expenseRules = map[string]string{
	// UTILITIES
	"electric": "utilities", "water bill": "utilities", "gas bill": "utilities", "internet": "utilities",
	"comcast": "utilities", "verizon": "utilities", "at&t": "utilities", "t-mobile": "utilities",

	// HOUSING
	"rent": "housing", "mortgage": "housing", "hoa": "housing",

	// INSURANCE
	"insurance": "insurance", "geico": "insurance", "allstate": "insurance", "progressive": "insurance",

	// ENTERTAINMENT
	"netflix": "entertainment", "spotify": "entertainment", "disney": "entertainment",
	"prime video": "entertainment", "hulu": "entertainment", "cinema": "entertainment",

	// GROCERIES / FOOD
	"walmart": "groceries", "costco": "groceries", "kroger": "groceries", "whole foods": "groceries",
	"aldi": "groceries", "trader joe": "groceries",
	"restaurant": "food", "uber eats": "food", "doordash": "food", "starbucks": "food",

	// TRANSPORTATION
	"uber": "transportation", "lyft": "transportation", "shell": "transportation",
	"chevron": "transportation", "parking": "transportation", "fuel": "transportation",

	// HEALTHCARE
	"pharmacy": "healthcare", "cvs": "healthcare", "walgreens": "healthcare", "dentist": "healthcare",

	// EDUCATION
	"tuition": "education", "udemy": "education", "coursera": "education",

	// TRAVEL
	"airbnb": "travel", "hotel": "travel", "airline": "travel", "expedia": "travel",

	// SHOPPING
	"amazon": "shopping", "target": "shopping", "ebay": "shopping",
}

var incomeRules = map[string]string{
	"salary": "salary", "payroll": "salary", "paycheck": "salary",
	"invoice": "freelance", "freelance": "freelance", "upwork": "freelance",
	"dividend": "investments", "interest": "investments",
	"rent from": "rental", "tenant": "rental",
}

// expenseKeys and incomeKeys list the dictionary keys longest first, so "uber eats" wins
// over "uber".
var (
	expenseKeys = sortedKeys(expenseRules)
	incomeKeys  = sortedKeys(incomeRules)
)

func sortedKeys(rules map[string]string) []string {
	keys := make([]string, 0, len(rules))
	for k := range rules {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// SuggestCategory picks a category for an entry that was posted without one,
// from keywords in its description.
func SuggestCategory(typ models.TransactionType, description string) string {
	rules, keys, fallback := expenseRules, expenseKeys, defaultExpenseCategory
	if typ == models.Income {
		rules, keys, fallback = incomeRules, incomeKeys, defaultIncomeCategory
	}

	normalized := strings.ToLower(strings.TrimSpace(description))
	if normalized == "" {
		return fallback
	}
	if category, exists := rules[normalized]; exists {
		return category
	}
	for _, key := range keys {
		if strings.Contains(normalized, key) {
			return rules[key]
		}
	}
	return fallback
}
