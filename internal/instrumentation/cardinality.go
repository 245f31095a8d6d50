package instrumentation

import (
	"sort"
	"strings"
)

// Cardinality helpers reduce label values that carry user identifiers.
// Use them whenever a metric or non-audit log line would otherwise include
// an email address.

// ExtractUserDomain extracts the domain part from an email address.
//
//	ExtractUserDomain("jane@example.com")  // "example.com"
//	ExtractUserDomain("invalid")           // "unknown"
func ExtractUserDomain(email string) string {
	if email == "" {
		return "unknown"
	}

	parts := strings.Split(email, "@")
	if len(parts) == 2 && parts[1] != "" {
		return strings.ToLower(strings.TrimSuffix(parts[1], ">"))
	}

	return "unknown"
}

// RecipientDomains returns the sorted distinct domains of the given addresses.
func RecipientDomains(addresses []string) []string {
	seen := make(map[string]bool, len(addresses))
	var domains []string
	for _, a := range addresses {
		d := ExtractUserDomain(strings.TrimSpace(a))
		if !seen[d] {
			seen[d] = true
			domains = append(domains, d)
		}
	}
	sort.Strings(domains)
	return domains
}

// Operation types for Google API metrics and spans.
const (
	OperationList     = "list"
	OperationCreate   = "create"
	OperationSend     = "send"
	OperationFreeBusy = "freebusy"
)
