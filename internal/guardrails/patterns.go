package guardrails

import "regexp"

// Pattern categories reported as flags when an injection pattern matches.
const (
	CategoryInstructionOverride = "injection_instruction_override"
	CategoryRoleHijack          = "injection_role_hijack"
	CategoryPromptExtraction    = "injection_prompt_extraction"
	CategoryJailbreak           = "injection_jailbreak"
	CategoryDelimiterInjection  = "injection_delimiter"
)

// InjectionPattern pairs a category with a compiled matcher. The catalog is
// data so patterns can be added and tested independently.
type InjectionPattern struct {
	Category string
	Matcher  *regexp.Regexp
}

// injectionCatalog is the fixed prompt-injection catalog, matched against
// inputs in order. Any match blocks the input.
var injectionCatalog = []InjectionPattern{
	{CategoryInstructionOverride, regexp.MustCompile(`(?i)ignore\s+(all\s+)?previous\s+instructions`)},
	{CategoryInstructionOverride, regexp.MustCompile(`(?i)ignore\s+(all\s+)?(the\s+)?above`)},
	{CategoryInstructionOverride, regexp.MustCompile(`(?i)disregard\s+(all\s+)?(the\s+)?(previous|above)`)},
	{CategoryInstructionOverride, regexp.MustCompile(`(?i)forget\s+(all\s+)?previous`)},
	{CategoryInstructionOverride, regexp.MustCompile(`(?i)override\s+(your\s+)?instructions`)},
	{CategoryRoleHijack, regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an)\b`)},
	{CategoryRoleHijack, regexp.MustCompile(`(?i)act\s+as\s+(if|a|an)\b`)},
	{CategoryRoleHijack, regexp.MustCompile(`(?i)pretend\s+(you|that)\b`)},
	{CategoryPromptExtraction, regexp.MustCompile(`(?i)reveal\s+your\s+(instructions|prompt|system)`)},
	{CategoryPromptExtraction, regexp.MustCompile(`(?i)(print|show|repeat|output)\s+(the\s+)?system\s+prompt`)},
	{CategoryPromptExtraction, regexp.MustCompile(`(?i)what\s+are\s+your\s+instructions`)},
	{CategoryJailbreak, regexp.MustCompile(`(?i)\bdo\s+anything\s+now\b|\bdan\s+mode\b|\bjailbreak\b`)},
	{CategoryDelimiterInjection, regexp.MustCompile(`(?i)<\|im_(start|end)\|>|\[/?(INST|SYS)\]|` + "```" + `\s*system\b`)},
}

// PII flags. Detection flags without blocking; the caller decides whether to
// redact or warn.
const (
	FlagPIIEmail      = "pii_email"
	FlagPIIPhone      = "pii_phone"
	FlagPIISSN        = "pii_ssn"
	FlagPIICreditCard = "pii_credit_card"
)

// piiPattern pairs a PII flag with its matcher.
type piiPattern struct {
	Flag    string
	Matcher *regexp.Regexp
}

var piiCatalog = []piiPattern{
	{FlagPIIEmail, regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)},
	{FlagPIIPhone, regexp.MustCompile(`(\+\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`)},
	{FlagPIISSN, regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{FlagPIICreditCard, regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)},
}

// base64Run matches long runs of base64 alphabet, an evasion heuristic for
// smuggled payloads.
var base64Run = regexp.MustCompile(`[A-Za-z0-9+/]{40,}={0,2}`)

// hallucinationPhrases are output-side indicators that the model answered
// from its own knowledge instead of the supplied documents.
var hallucinationPhrases = []string{
	"as an ai",
	"i don't have access",
	"i cannot browse",
	"as of my training",
	"i'm not sure but",
	"based on my knowledge",
}
