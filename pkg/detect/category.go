/*
Copyright 2026 Altaira Labs.

SPDX-License-Identifier: Apache-2.0

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package detect

// Category labels a class of sensitive information. The set of built-in
// categories is closed, but registries may introduce new ones through
// custom patterns.
type Category string

// Identifier and contact categories.
const (
	CategoryEmail      Category = "EMAIL"
	CategoryPhone      Category = "PHONE"
	CategoryAadhaar    Category = "AADHAAR"
	CategoryPAN        Category = "PAN"
	CategoryPassport   Category = "PASSPORT"
	CategoryCreditCard Category = "CREDIT_CARD"
	CategoryIFSC       Category = "IFSC"
	CategoryPassword   Category = "PASSWORD"
	CategoryDate       Category = "DATE"
	CategoryPersonName Category = "PERSON_NAME"
	CategoryOrgName    Category = "ORG_NAME"
	CategoryIPAddress  Category = "IP_ADDRESS"
	CategoryURL        Category = "URL"
	CategoryAddress    Category = "ADDRESS"
)

// Personal attribute categories.
const (
	CategoryLayoff            Category = "LAYOFF"
	CategoryMedicalCondition  Category = "MEDICAL_CONDITION"
	CategoryPoliticalOpinion  Category = "POLITICAL_OPINION"
	CategoryReligion          Category = "RELIGION"
	CategorySexualOrientation Category = "SEXUAL_ORIENTATION"
	CategoryFinancialStatus   Category = "FINANCIAL_STATUS"
	CategoryEmploymentProblem Category = "EMPLOYMENT_PROBLEM"
)

// Corporate and confidential categories.
const (
	CategoryCorporateConfidential Category = "CORPORATE_CONFIDENTIAL"
	CategoryMeeting               Category = "MEETING"
	CategoryProjectName           Category = "PROJECT_NAME"
	CategoryRoadmap               Category = "ROADMAP"
	CategoryCodeSnippet           Category = "CODE_SNIPPET"
	CategorySecurityVuln          Category = "SECURITY_VULN"
	CategoryInternalMetric        Category = "INTERNAL_METRIC"
	CategoryDefenseInfo           Category = "DEFENSE_INFO"
)

// Inferential risk categories.
const (
	CategoryInferHealth      Category = "INFER_HEALTH"
	CategoryInferFraud       Category = "INFER_FRAUD"
	CategoryInferSupplyChain Category = "INFER_SUPPLY_CHAIN"
	CategoryInferInsider     Category = "INFER_INSIDER"
)

// CategoryCustom is assigned to ad-hoc "custom:<regex>" detectors.
const CategoryCustom Category = "CUSTOM"

// DefaultCustomPriority is used for categories absent from the priority table.
const DefaultCustomPriority = 50

// priorities ranks categories for overlap resolution. Identifiers and
// credentials rank highest; the capitalized-word name heuristic ranks lowest.
var priorities = map[Category]int{
	CategoryEmail:                 100,
	CategoryPassword:              95,
	CategoryAadhaar:               95,
	CategoryPAN:                   95,
	CategoryCreditCard:            95,
	CategorySecurityVuln:          93,
	CategoryCodeSnippet:           92,
	CategoryCorporateConfidential: 91,
	CategoryIFSC:                  90,
	CategoryPassport:              90,
	CategoryProjectName:           90,
	CategoryRoadmap:               90,
	CategoryIPAddress:             90,
	CategoryInternalMetric:        89,
	CategoryDefenseInfo:           89,
	CategoryMeeting:               88,
	CategoryMedicalCondition:      88,
	CategoryReligion:              88,
	CategorySexualOrientation:     88,
	CategoryPoliticalOpinion:      87,
	CategoryFinancialStatus:       87,
	CategoryEmploymentProblem:     87,
	CategoryURL:                   85,
	CategoryLayoff:                82,
	CategoryDate:                  80,
	CategoryOrgName:               75,
	CategoryInferHealth:           70,
	CategoryInferFraud:            70,
	CategoryInferSupplyChain:      70,
	CategoryInferInsider:          70,
	CategoryAddress:               70,
	CategoryPhone:                 70,
	CategoryPersonName:            10,
}

// Priority returns the built-in overlap priority of c.
func Priority(c Category) int {
	if p, ok := priorities[c]; ok {
		return p
	}
	return DefaultCustomPriority
}

// IsBuiltin reports whether c is one of the built-in categories.
func IsBuiltin(c Category) bool {
	_, ok := priorities[c]
	return ok
}

// String implements fmt.Stringer.
func (c Category) String() string {
	return string(c)
}

// Placeholder returns the bracketed redaction token for c, e.g. "[EMAIL]".
func (c Category) Placeholder() string {
	return "[" + string(c) + "]"
}
