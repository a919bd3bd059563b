package ai

import (
	"strings"

	"cvstudio/internal/config"
)

// DefaultSystemPrompt is the system instruction shared by every suggestion type.
const DefaultSystemPrompt = `You are an elite professional CV and resume writer.
Your responses are always:
- Direct and actionable (no preamble or explanation)
- Specific with numbers and metrics when possible
- Using industry-standard terminology
- Optimized for ATS (Applicant Tracking Systems)
- Following modern CV best practices

Never use quotes around your response. Never explain what you did.`

// promptTemplate is a user prompt with {{text}} and {{context}} placeholders.
// The fallbacks replace blank inputs.
type promptTemplate struct {
	body            string
	textFallback    string
	contextFallback string
}

// defaultTemplates are the built-in user prompts per type.
var defaultTemplates = map[SuggestionType]promptTemplate{
	TypeSummary: {
		body: `You are a senior professional CV writer with 15+ years of experience.
Rewrite this professional summary to be:
- Compelling and confident (avoiding clichés like "passionate" or "team player")
- Achievement-focused with specific value propositions
- ATS-optimized with relevant keywords
- 2-3 sentences maximum, under 50 words

Current summary: {{text}}
Target role: {{context}}

Return ONLY the improved summary. No quotes, no explanation.`,
		textFallback:    "No summary provided",
		contextFallback: "General professional",
	},
	TypeHeadline: {
		body: `You are a LinkedIn profile optimization expert.
Create a powerful, concise professional headline for:
Name: {{text}}
Current/Target Role: {{context}}

Requirements:
- 5-10 words maximum
- Include specialty or unique value
- No generic terms like "seeking opportunities"

Examples of great headlines:
- "ML Engineer | Ex-Google | NeurIPS Author"
- "Full-Stack Developer | React & Node.js | Startup Builder"
- "Product Manager | B2B SaaS | 10x Revenue Growth"

Return ONLY the headline. No quotes.`,
		contextFallback: "Professional",
	},
	TypeBullet: {
		body: `You are an expert CV writer specializing in tech and business roles.
Transform this bullet point using the STAR method (Situation-Task-Action-Result):

Current: {{text}}
Role: {{context}}

Requirements:
- Start with a powerful action verb (Led, Architected, Spearheaded, Drove, Optimized)
- Include quantifiable metrics if possible (%, $, time saved, users impacted)
- Be specific about technologies, methodologies, or approaches used
- Maximum 20 words, one complete sentence

Return ONLY the improved bullet point. No quotes, no bullet symbol.`,
	},
	TypeEducation: {
		body: `You are an academic CV specialist.
Enhance this education highlight:

Current: {{text}}
Degree and field of study: {{context}}

Make it:
- Quantify achievements (GPA, percentile, ranking)
- Highlight honors, awards, or distinctions
- Mention relevant coursework or thesis if applicable
- Concise: 10-15 words maximum

Return ONLY the improved highlight. No quotes.`,
	},
	TypeProjectSummary: {
		body: `You are a technical portfolio curator.
Rewrite this project summary:

Project: {{context}}
Current summary: {{text}}

Requirements:
- Lead with the problem solved or value delivered
- Mention key technologies used
- Include metrics if available (users, performance, stars)
- 15-25 words maximum

Return ONLY the improved summary. No quotes.`,
		contextFallback: "Software Project",
	},
	TypeProjectHighlight: {
		body: `You are a technical writer for developer portfolios.
Enhance this project achievement:

Project: {{context}}
Current: {{text}}

- Use technical specifics (algorithms, frameworks, patterns)
- Quantify impact (performance gains, adoption metrics)
- Maximum 15 words

Return ONLY the improved highlight.`,
	},
	TypeSkills: {
		body: `You are a tech recruiter who knows exactly what skills are in demand.
Suggest 5 additional in-demand skills for a {{context}} role.

Current skills: {{text}}

Focus on:
- Technical skills that complement existing ones
- Tools and frameworks currently trending
- Soft skills relevant to the role

Return ONLY comma-separated skill names, no explanations.
Example format: Python, AWS Lambda, Agile, System Design, Technical Writing`,
		textFallback:    "None listed",
		contextFallback: "Professional",
	},
	TypeGenerate: {
		body: `You are a career coach who has helped 1000+ professionals land top jobs.
Write a compelling professional summary for:

Name: {{text}}
Target Role: {{context}}

Requirements:
- 2-3 impactful sentences
- Focus on value delivery, not self-description
- Include industry-specific terminology
- Avoid: "passionate", "driven", "dedicated", "team player"
- Include: specific expertise, industries, and achievements

Return ONLY the summary. No quotes, no labels.`,
		contextFallback: "Professional",
	},
	TypeHonor: {
		body: `You are formatting an honor or award for a CV.
Given this context: {{text}}

Format it as a single, professional bullet point that includes:
- Award name
- Granting organization (if applicable)
- Year (if mentioned)
- Brief significance (if notable)

Example formats:
- "Forbes 30 Under 30 in Technology (2024)"
- "NSF Graduate Research Fellowship (2020–2023, $138,000)"
- "Best Paper Award, NeurIPS 2023"

Return ONLY the formatted honor. Maximum 15 words.`,
	},
}

// Prompts resolves the system instruction and per-type user prompts.
// Configured prompts (inline or loaded from files) take precedence over
// the built-in ones.
type Prompts struct {
	system    string
	overrides map[string]string
}

// NewPrompts builds a resolver from the prompt configuration.
func NewPrompts(cfg config.PromptConfig) Prompts {
	return Prompts{system: cfg.System, overrides: cfg.Types}
}

// System returns the system instruction.
func (p Prompts) System() string {
	return resolvePrompt(p.system, DefaultSystemPrompt)
}

// User renders the user prompt for typ.
func (p Prompts) User(typ SuggestionType, text, hint string) string {
	tmpl := defaultTemplates[typ]
	body := resolvePrompt(p.overrides[string(typ)], tmpl.body)
	return strings.NewReplacer(
		"{{text}}", orDefault(text, tmpl.textFallback),
		"{{context}}", orDefault(hint, tmpl.contextFallback),
	).Replace(body)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// resolvePrompt picks the configured prompt when set, the default otherwise.
func resolvePrompt(configured, fallback string) string {
	if strings.TrimSpace(configured) != "" {
		return configured
	}
	return fallback
}
