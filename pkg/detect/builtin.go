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

import "regexp"

// Compiled patterns for the built-in detectors. Go's RE2 engine has no
// lookaround, so post-match checks (Luhn, stop words) live in Go code.
var (
	emailRegex   = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
	phoneRegex   = regexp.MustCompile(`(?:\+91[-\s]?)?\b[6-9]\d{9}\b`)
	aadhaarRegex = regexp.MustCompile(`\b\d{4}\s?\d{4}\s?\d{4}\b`)
	panRegex     = regexp.MustCompile(`\b[A-Z]{5}[0-9]{4}[A-Z]\b`)
	passportRe   = regexp.MustCompile(`\b[A-PR-WYa-pr-wy][0-9]{7}\b`)
	cardRegex    = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
	ifscRegex    = regexp.MustCompile(`(?i)\b[A-Z]{4}0[A-Z0-9]{6}\b`)

	// Quoted values are preferred; the keyword itself is never reported.
	passwordRegex = regexp.MustCompile(
		`(?i)\b(?:password|pwd|pass|key)\b\s*(?:is|was|:=|:|=|->|-)?\s*` +
			`(?:"([^"]{3,100})"|'([^']{3,100})'|([^\s,;]{3,100}))`)

	dateRegex = regexp.MustCompile(
		`\b(?:[0-3]?\d[/\-.](?:0?[1-9]|1[0-2])[/\-.](?:19|20)\d{2}|(?:19|20)\d{2}[/\-.](?:0?[1-9]|1[0-2])[/\-.][0-3]?\d)\b`)

	// Name words must be capitalized; only the legal suffix is case-insensitive.
	orgRegex = regexp.MustCompile(
		`\b[A-Z][A-Za-z&.]+(?:\s[A-Z][A-Za-z&.]+)*\s(?i:Inc\.?|Ltd\.?|LLC|Corporation|Corp\.?|Technologies|Labs|Systems|University|Institute|Enterprises|Solutions)\b`)

	layoffRegex = regexp.MustCompile(
		`(?i)\b(?:layoffs?|laidoff|laid\s*off|layed\s*off|downsizing|retrenchment|termination|terminated|redundancy|let\s*go|fired)\b`)

	medicalRegex = regexp.MustCompile(
		`(?i)\b(?:diabetes|hiv|cancer|depression|depressed|anxiety|asthma|bipolar|autism|adhd|migraine|hypertension|blood\s*pressure|cholesterol|tuberculosis|glucose|blood\s*sugar|insulin|therapist)\b`)
	politicalRegex = regexp.MustCompile(
		`(?i)\b(?:vote\s*for|support\s*(?:the\s*)?party|left[- ]?wing|right[- ]?wing|liberal|conservative|socialist|communist|democrat|republican|election\s+opinion|political\s+opinion)\b`)
	religionRegex = regexp.MustCompile(
		`(?i)\b(?:hindu(?:ism)?|muslim|islam|christian(?:ity)?|sikh(?:ism)?|buddhist|buddhism|jain(?:ism)?|jew(?:ish)?|atheist|agnostic)\b`)
	orientationRegex = regexp.MustCompile(
		`(?i)\b(?:gay|lesbian|bisexual|queer|lgbtq\+?|transgender|non[- ]?binary|straight|sexual\s+orientation)\b`)
	financialRegex = regexp.MustCompile(
		`(?i)\b(?:bankruptcy|insolvent|loan\s+default|defaults|overdue\s+loan|debt|credit\s+score|poor\s+credit|mortgage\s+arrears|foreclosure)\b`)
	employmentRegex = regexp.MustCompile(
		`(?i)\b(?:PIP|performance\s+improvement\s+plan|warning\s+letter|disciplinary\s+action)\b`)

	confidentialRegex = regexp.MustCompile(
		`(?i)\b(?:strictly\s+confidential|confidential|internal\s+use\s+only|proprietary|under\s+nda|do\s+not\s+share)\b`)
	meetingRegex = regexp.MustCompile(
		`(?i)\b(?:all[- ]hands|stand[- ]?up|townhall|roadmap\s+review|meeting\s+at|zoom\s+link|google\s+meet|calendar\s+invite|agenda)\b`)
	projectRegex = regexp.MustCompile(
		`\b(?:[Pp]roject|[Cc]odename|[Ii]nitiative)\s+[A-Z][A-Za-z0-9_-]{2,}\b`)
	roadmapRegex = regexp.MustCompile(
		`(?i)\b(?:roadmap|release\s+plan|launch\s+plan|milestone\s+plan|gtm|go[- ]to[- ]market)\b`)
	// Only a fenced block may span lines. The SQL operand between select
	// and from is confined to one line.
	codeRegex = regexp.MustCompile(
		"(?i)(?s:```.*?```)|#include\\b|\\b(?:function|class|def|import|package|console\\.log|select\\s+[^\\n]+?\\s+from|using\\s+namespace)\\b")
	vulnRegex = regexp.MustCompile(
		`(?i)\b(?:sql\s+injection|xss|buffer\s+overflow|cve-\d{4}-\d{4,7}|rce|remote\s+code\s+execution|privilege\s+escalation|csrf|directory\s+traversal|vulnerability|exploit)\b`)
	metricRegex = regexp.MustCompile(
		`(?i)\b(?:arr|mrr|revenue|gross\s+margin|retention|churn|dau|mau|burn\s+rate|runway|pipeline)\b|\bgrowth\s*%`)
	defenseRegex = regexp.MustCompile(
		`(?i)\b(?:top\s+secret|classified|secret|eyes\s+only|military|defen[cs]e|weapon\s+system|missile|drone|security\s+clearance|nato)\b`)

	inferHealthRegex = regexp.MustCompile(
		`(?i)\b(?:pattern|indicator|likely|suggests|tends\s+to)\b[^.\n]{0,40}\b(?:health|medical|disease|condition)\b`)
	inferFraudRegex = regexp.MustCompile(
		`(?i)\b(?:pattern|indicator|anomaly|suspicious)\b[^.\n]{0,40}\b(?:fraud|scam|money\s+laundering)\b`)
	inferSupplyRegex = regexp.MustCompile(
		`(?i)\b(?:pattern|risk|indicator)\b[^.\n]{0,40}\b(?:supply\s+chain|logistics|shortage)\b`)
	inferInsiderRegex = regexp.MustCompile(
		`(?i)\b(?:pattern|hint|suspicion)\b[^.\n]{0,40}\b(?:insider\s+trading|non[- ]public\s+info)\b`)

	ipRegex = regexp.MustCompile(
		`\b(?:(?:25[0-5]|2[0-4]\d|[01]?\d\d?)\.){3}(?:25[0-5]|2[0-4]\d|[01]?\d\d?)\b`)
	urlRegex = regexp.MustCompile(
		`(?i)\bhttps?://(?:www\.)?[-a-z0-9@:%._+~#=]{2,256}\.[a-z]{2,6}\b[-a-z0-9@:%_+.~#?&/=]*`)
	addressRegex = regexp.MustCompile(
		`(?i)\b\d{1,4}\s+(?:street|st|road|rd|avenue|ave|block|sector|lane)\b`)
)

func direct(name string, c Category, re *regexp.Regexp) Detector {
	return Detector{Name: name, Category: c, Priority: Priority(c), Matcher: NewRegexMatcher(re)}
}

// builtinDetectors returns the canonical detector set in registry order.
// The person-name heuristic is not part of this list; it runs as a separate
// pass configured on the Registry.
func builtinDetectors() []Detector {
	return []Detector{
		direct("email", CategoryEmail, emailRegex),
		direct("phone", CategoryPhone, phoneRegex),
		direct("aadhaar", CategoryAadhaar, aadhaarRegex),
		direct("pan", CategoryPAN, panRegex),
		direct("passport", CategoryPassport, passportRe),
		{
			Name:     "credit_card",
			Category: CategoryCreditCard,
			Priority: Priority(CategoryCreditCard),
			Matcher:  NewValidatedMatcher(NewRegexMatcher(cardRegex), LuhnValid),
		},
		direct("ifsc", CategoryIFSC, ifscRegex),
		{
			Name:     "password",
			Category: CategoryPassword,
			Priority: Priority(CategoryPassword),
			Matcher:  NewKeywordValueMatcher(passwordRegex),
		},
		direct("date", CategoryDate, dateRegex),
		direct("org_name", CategoryOrgName, orgRegex),
		direct("layoff", CategoryLayoff, layoffRegex),
		direct("medical_condition", CategoryMedicalCondition, medicalRegex),
		direct("political_opinion", CategoryPoliticalOpinion, politicalRegex),
		direct("religion", CategoryReligion, religionRegex),
		direct("sexual_orientation", CategorySexualOrientation, orientationRegex),
		direct("financial_status", CategoryFinancialStatus, financialRegex),
		direct("employment_problem", CategoryEmploymentProblem, employmentRegex),
		direct("corporate_confidential", CategoryCorporateConfidential, confidentialRegex),
		direct("meeting", CategoryMeeting, meetingRegex),
		direct("project_name", CategoryProjectName, projectRegex),
		direct("roadmap", CategoryRoadmap, roadmapRegex),
		direct("code_snippet", CategoryCodeSnippet, codeRegex),
		direct("security_vuln", CategorySecurityVuln, vulnRegex),
		direct("internal_metric", CategoryInternalMetric, metricRegex),
		direct("defense_info", CategoryDefenseInfo, defenseRegex),
		direct("infer_health", CategoryInferHealth, inferHealthRegex),
		direct("infer_fraud", CategoryInferFraud, inferFraudRegex),
		direct("infer_supply_chain", CategoryInferSupplyChain, inferSupplyRegex),
		direct("infer_insider", CategoryInferInsider, inferInsiderRegex),
		direct("ip_address", CategoryIPAddress, ipRegex),
		direct("url", CategoryURL, urlRegex),
		direct("address", CategoryAddress, addressRegex),
	}
}
