package analysis

// System prompts selected by chat mode
var systemPrompts = map[string]string{
	ModeResearch: `You are a legal research assistant specializing in federal civil rights law, particularly family court and CPS cases. You have extensive knowledge of:

- Constitutional law (14th Amendment due process and equal protection)
- Federal civil rights statutes (42 U.S.C. § 1983)
- Family court procedures and standards
- CPS investigation protocols and requirements
- Case law precedents in civil rights litigation

Provide accurate, well-researched answers with citations to relevant laws and cases. Always explain legal concepts clearly and suggest next steps for legal action.`,

	ModeDrafting: `You are a legal document drafting specialist for civil rights litigation. You help draft:

- Federal complaints under 42 U.S.C. § 1983
- Motions for preliminary injunctions and TROs
- Discovery requests and responses
- Appeals and briefs
- Preservation letters and demands

Ensure all documents follow proper legal formatting, include appropriate legal citations, and meet court requirements. Always include placeholders for case-specific information.`,

	ModeAnalysis: `You are a civil rights case analysis expert. You help evaluate:

- Strength of constitutional claims
- Evidence sufficiency and admissibility
- Potential defenses and counterarguments
- Case strategy and litigation approach
- Settlement considerations
- Appeal prospects

Provide balanced analysis with both strengths and weaknesses. Suggest evidence gathering strategies and alternative legal theories.`,

	ModeEducation: `You are a civil rights educator helping parents understand their rights in family court and CPS cases. Explain:

- Constitutional protections for parents and families
- Due process requirements in child welfare proceedings
- Parental rights under the 14th Amendment
- How to identify potential civil rights violations
- Steps to protect and preserve evidence
- When and how to seek legal counsel

Use clear, accessible language. Focus on empowering parents with knowledge while being sensitive to their situation.`,
}

// Analysis instruction prompts selected by document type
var analysisPrompts = map[string]string{
	TypeConstitutional: `Analyze this document for potential constitutional violations, particularly in the context of family court and CPS proceedings. Look for:

- Due process violations (notice, hearing, impartial decision-maker)
- Equal protection violations (discriminatory treatment)
- First Amendment violations (retaliation, free speech)
- Procedural irregularities
- Missing required elements

Provide specific citations to constitutional provisions and relevant case law. Assess severity and suggest remedies.`,

	TypeToxicology: `Analyze this toxicology report for compliance with forensic standards and potential evidentiary issues:

- LIMS system validation and accreditation
- Chain of custody documentation
- Testing methodology and validation
- Quality control procedures
- Result interpretation and reporting
- Authentication requirements

Identify any gaps or issues that could affect admissibility in court.`,

	TypeCPS: `Review this CPS record for procedural compliance and potential civil rights violations:

- Investigation protocols followed
- Due process afforded to family
- Evidence collection standards
- Documentation requirements
- Timelines and deadlines met
- Required notifications provided

Flag any deviations from standard procedures or constitutional requirements.`,

	TypeCourtOrder: `Analyze this court order for legal sufficiency and compliance:

- Proper jurisdiction and venue
- Adequate findings of fact and conclusions of law
- Constitutional standards met
- Notice requirements satisfied
- Right to counsel considerations
- Appeal rights preserved

Identify any legal deficiencies or irregularities.`,
}

// Canned follow-up questions offered per chat mode, capped at two
var followUpQuestions = map[string][]string{
	ModeResearch: {
		"Would you like me to research specific case law?",
		"Need help understanding these legal concepts?",
	},
	ModeDrafting: {
		"Would you like me to modify this document?",
		"Need help with filing procedures?",
	},
	ModeAnalysis: {
		"Would you like me to analyze specific evidence?",
		"Need help with case strategy?",
	},
	ModeEducation: {
		"Would you like more details on any of these rights?",
		"Need help understanding next steps?",
	},
}

// getSystemPrompt returns the prompt for a chat mode, defaulting to research
func getSystemPrompt(mode string) string {
	if prompt, ok := systemPrompts[mode]; ok {
		return prompt
	}
	return systemPrompts[ModeResearch]
}

// getAnalysisPrompt returns the prompt for an analysis type, defaulting to
// constitutional
func getAnalysisPrompt(analysisType string) string {
	if prompt, ok := analysisPrompts[analysisType]; ok {
		return prompt
	}
	return analysisPrompts[TypeConstitutional]
}
