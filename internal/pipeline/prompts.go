// -----------------------------------------------------------------------
// Prompts - language model prompt templates for the research pipeline
// -----------------------------------------------------------------------

package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/indago/internal/models"
)

// categoryInstruction returns the research focus appended to the query
// generation prompt for each analyst.
func categoryInstruction(category models.ResearchCategory) string {
	switch category {
	case models.CategoryFinancial:
		return `Focus on financial aspects such as:
- Revenue and growth
- Market valuation
- Funding rounds
- Key financial metrics
- Recent financial news
- Investor information`
	case models.CategoryNews:
		return `Focus on news and media coverage such as:
- General news about the company
- Major announcements and developments
- Media coverage and public perception
- Partnerships or deals
- Executive interviews and statements`
	case models.CategoryIndustry:
		return `Focus on industry analysis such as:
- Market position and share
- Competitive landscape
- Industry trends and challenges
- Key competitors
- Regulatory environment
- Market size and growth`
	case models.CategoryCompany:
		return `Focus on company fundamentals such as:
- Core products and services
- Company history and milestones
- Leadership and management team
- Business model and strategy
- Technology and innovation
- Customer base and target market`
	}
	return "Focus on information about the company."
}

// queryGenerationPrompt builds the streamed query generation request. The
// response format is one query per line so complete queries can be recognized
// at newline boundaries while the stream is still in flight.
func queryGenerationPrompt(state *models.ResearchState, category models.ResearchCategory, now time.Time) string {
	var context strings.Builder
	fmt.Fprintf(&context, "Company: %s", state.Company)
	if state.Industry != "" {
		fmt.Fprintf(&context, "\nIndustry: %s", state.Industry)
	}
	if state.HQLocation != "" {
		fmt.Fprintf(&context, "\nHeadquarters: %s", state.HQLocation)
	}

	return fmt.Sprintf(`You are conducting research on the following company on %s.

%s

Generate 4 specific search queries to gather information about the company.
Focus your queries on recent and current information.

%s

Return ONLY the search queries, one per line, with no numbering, bullets, or commentary.
Include the company name and year in each query.
Each query must be at least 3 words long.

Example format:
Apple revenue growth 2025
Apple market share in smartphone industry 2025
Apple recent product announcements 2025
Apple financial performance Q1 2025`,
		now.Format("January 2, 2006"), context.String(), categoryInstruction(category))
}

// defaultQueries is the fallback when the model responds but yields no valid
// queries.
func defaultQueries(company string, category models.ResearchCategory, now time.Time) []string {
	year := now.Year()
	return []string{
		fmt.Sprintf("%s overview %d", company, year),
		fmt.Sprintf("%s recent news %d", company, year),
		fmt.Sprintf("%s %s %d", company, category, year),
		fmt.Sprintf("%s industry analysis %d", company, year),
	}
}

// seedQuery is the synthetic query recorded on the company-website document.
func seedQuery(company string, category models.ResearchCategory) string {
	switch category {
	case models.CategoryFinancial:
		return fmt.Sprintf("%s financial overview", company)
	case models.CategoryNews:
		return fmt.Sprintf("%s recent news", company)
	case models.CategoryIndustry:
		return fmt.Sprintf("%s industry position", company)
	default:
		return fmt.Sprintf("%s company overview", company)
	}
}

// rerankQuery is the relevance query used when re-scoring a category's
// documents with the reranker.
func rerankQuery(state *models.ResearchState, category models.ResearchCategory) string {
	industry := state.Industry
	if industry == "" {
		industry = "Unknown"
	}
	switch category {
	case models.CategoryFinancial:
		return fmt.Sprintf("Relevant financial information about %s in %s industry", state.Company, industry)
	case models.CategoryNews:
		return fmt.Sprintf("Recent and important news about %s in %s industry", state.Company, industry)
	case models.CategoryIndustry:
		return fmt.Sprintf("Industry analysis and market position of %s in %s industry", state.Company, industry)
	case models.CategoryCompany:
		return fmt.Sprintf("Core business information and company details about %s in %s industry", state.Company, industry)
	}
	return fmt.Sprintf("Information about %s in %s industry", state.Company, industry)
}

// briefingInstruction returns the category-specific briefing request.
func briefingInstruction(company, industry string, category models.ResearchCategory) string {
	if industry == "" {
		industry = "Unknown"
	}
	switch category {
	case models.CategoryFinancial:
		return fmt.Sprintf(`You are analyzing financial information about %s in the %s industry.
Based on the provided documents, create a concise financial briefing that covers:
- Key financial metrics and performance
- Market valuation and growth
- Funding and investment status
- Notable financial developments`, company, industry)
	case models.CategoryNews:
		return fmt.Sprintf(`You are analyzing recent news about %s in the %s industry.
Based on the provided documents, create a concise news briefing that covers:
- Major recent developments
- Key announcements
- Notable partnerships or deals
- Public perception and media coverage`, company, industry)
	case models.CategoryIndustry:
		return fmt.Sprintf(`You are analyzing %s's position in the %s industry.
Based on the provided documents, create a concise industry briefing that covers:
- Market position and share
- Competitive landscape
- Industry trends and challenges
- Regulatory environment`, company, industry)
	case models.CategoryCompany:
		return fmt.Sprintf(`You are analyzing core information about %s in the %s industry.
Based on the provided documents, create a concise company briefing that covers:
- Core products and services
- Business model and strategy
- Leadership and management
- Technology and innovation
- Market presence and expansion`, company, industry)
	}
	return "Create a concise briefing based on the provided documents."
}

// briefingPrompt assembles the full briefing request around the prepared
// document texts.
func briefingPrompt(instruction string, docTexts []string) string {
	separator := "\n" + strings.Repeat("-", 40) + "\n"
	return fmt.Sprintf(`%s

Documents to analyze:
%s%s%s

Create a clear, well-organized briefing that extracts and synthesizes the key information.
Focus on factual, verifiable information.
Use bullet points where appropriate for clarity.`,
		instruction, separator, strings.Join(docTexts, separator), separator)
}

// editorCompilePrompt is the first editor pass: merge the four briefings into
// one cohesive report.
func editorCompilePrompt(company string, sections string, now time.Time) string {
	return fmt.Sprintf(`You are compiling a comprehensive research report about %s.
I will provide you with sections of research that have already been prepared.

Here are the sections:

%s

Please compile these into a single cohesive report that:
- Maintains the distinct sections with their original headers
- Removes repetitive or redundant information between sections
- Ensures consistent style and formatting throughout
- Improves clarity and readability
- Uses bullet points for key information
- Preserves all important facts and insights
- Ensures information is up to date and recent (%s)

Return the edited report in markdown. No explanation.`,
		company, sections, now.Format("2006-01-02"))
}

// editorPolishPrompt is the second editor pass: deduplicate and normalize the
// compiled report to the expected markdown conventions.
func editorPolishPrompt(company string, report string) string {
	return fmt.Sprintf(`You are polishing a research report about %s.

Here is the report:

%s

Rewrite the report applying these rules exactly:
- Remove any remaining duplicated facts across sections
- Use a single '#' heading for the report title
- Use '##' headings for top-level sections
- Use '###' headings for subsections
- Use '*' for all bullet points (never '-' or the bullet character)
- Use markdown link form [text](url) for any links
- One blank line between structural elements
- Do not add a references section; it is appended separately

Return only the polished markdown report. No explanation.`, company, report)
}
