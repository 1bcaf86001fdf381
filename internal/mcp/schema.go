package mcp

import "github.com/google/jsonschema-go/jsonschema"

// Tool input schemas are written by hand: money fields are decimals and accept
// either a JSON number or a numeric string.

func object(required []string, props map[string]*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Required: required, Properties: props}
}

func str(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func amount(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Types: []string{"number", "string"}, Description: desc}
}

func integer(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Description: desc}
}

func array(desc string, items *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Description: desc, Items: items}
}

func planSchema() *jsonschema.Schema {
	return object([]string{"coverageFraction"}, map[string]*jsonschema.Schema{
		"name":             str("Plan name"),
		"coverageFraction": amount("Covered fraction after deductible, 0 to 1"),
		"copay":            amount("Fixed copay added to the patient share"),
		"deductible":       amount("Amount the patient pays before coverage applies"),
	})
}

func estimateSchema() *jsonschema.Schema {
	return object([]string{"components", "complexity", "urgency", "category"}, map[string]*jsonschema.Schema{
		"requestId": str("Optional caller reference recorded in the ledger"),
		"components": array("Service line items that make up the procedure", object(
			[]string{"name", "baseAmount"},
			map[string]*jsonschema.Schema{
				"name":       str("Line item name"),
				"baseAmount": amount("Base price of the line item"),
				"isRequired": {Type: "boolean"},
			},
		)),
		"complexity":    str("Complexity tier: Standard, Moderate or High"),
		"urgency":       str("Urgency tier: Routine, Urgent or Emergency"),
		"category":      str("Patient category: General, SeniorCitizen, Employee, Corporate, Insurance or Emergency"),
		"insurancePlan": str("Optional insurance plan name from the catalog"),
	})
}

func adjudicateSchema() *jsonschema.Schema {
	return object([]string{"preInsuranceTotal"}, map[string]*jsonschema.Schema{
		"requestId":         str("Optional caller reference"),
		"preInsuranceTotal": amount("Total before insurance"),
		"insurancePlan":     str("Plan name from the catalog; overrides an inline plan"),
		"plan":              planSchema(),
	})
}

func reconcileSchema() *jsonschema.Schema {
	return object([]string{"servicesUsed"}, map[string]*jsonschema.Schema{
		"requestId":   str("Optional caller reference"),
		"packageName": str("Package name from the catalog"),
		"package": object([]string{"totalAmount", "discountedAmount"}, map[string]*jsonschema.Schema{
			"name":             str("Package name"),
			"type":             str("Package type"),
			"totalAmount":      amount("Itemized value of the package"),
			"discountedAmount": amount("Price the patient pays for the package"),
		}),
		"servicesUsed": array("Services consumed during the episode", object(
			[]string{"name", "individualRate", "quantity"},
			map[string]*jsonschema.Schema{
				"name":           str("Service name"),
				"individualRate": amount("Itemized rate per unit"),
				"quantity":       integer("Units consumed"),
			},
		)),
	})
}

func incentiveSchema() *jsonschema.Schema {
	return object([]string{"revenue", "procedureCount", "qualityScore", "targetAchievementPercent"}, map[string]*jsonschema.Schema{
		"requestId":                str("Optional caller reference"),
		"providerName":             str("Provider name"),
		"department":               str("Department"),
		"revenue":                  amount("Revenue generated in the period"),
		"procedureCount":           integer("Procedures performed in the period"),
		"qualityScore":             amount("Quality score, 0 to 10"),
		"targetAchievementPercent": amount("Percentage of target achieved"),
		"ruleKey":                  str("Department rule key from the catalog; overrides an inline rule"),
		"rule": object(nil, map[string]*jsonschema.Schema{
			"basePercentage":       amount("Fraction of revenue paid as base incentive"),
			"procedureBonus":       amount("Bonus per procedure"),
			"qualityMultiplier":    amount("Quality multiplier, at least 1"),
			"targetBonusThreshold": amount("Target percentage above which the target bonus applies"),
		}),
	})
}

func splitSchema() *jsonschema.Schema {
	return object([]string{"total", "shares"}, map[string]*jsonschema.Schema{
		"requestId": str("Optional caller reference"),
		"total":     amount("Total payable amount"),
		"shares": array("Parties and their fractions; fractions sum to 1", object(
			[]string{"party", "fraction"},
			map[string]*jsonschema.Schema{
				"party":    str("Paying party"),
				"fraction": amount("Fraction of the total"),
			},
		)),
	})
}

func emptySchema() *jsonschema.Schema {
	return object(nil, map[string]*jsonschema.Schema{})
}
