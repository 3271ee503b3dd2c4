package anthropic

import (
	"fmt"
	"strings"

	"github.com/sandeepAGI/ai-story-repo-sub000/internal/story"
)

const truncatedMarker = "... [content truncated]"

const systemPrompt = "You analyze published AI customer stories and answer with a single JSON object. Never add prose outside the object."

const extractionPrompt = `Analyze this AI customer story and extract structured information.
Return a valid JSON object with this structure:

{
  "customer_name": "Company name",
  "industry": "healthcare, finance, technology, retail, manufacturing, ...",
  "company_size": "startup, mid-market, enterprise, or government",
  "summary": "2-3 sentence summary of the story",
  "problem_statement": "What challenge did the customer face?",
  "solution_description": "How did AI solve the problem?",
  "technologies_used": ["specific AI services, models, or technologies"],
  "business_outcomes": [
    {
      "type": "cost_reduction|time_savings|revenue_increase|productivity_gain|efficiency_improvement|accuracy_improvement|other",
      "value": numeric_value_if_available,
      "unit": "percent|dollars|hours|minutes|days|x_times_faster|other",
      "description": "Detailed description of the outcome"
    }
  ],
  "use_cases": ["customer_service, document_processing, automation, analytics, ..."],
  "key_quote": "Most impactful customer quote, or null",
  "content_quality_score": 0.0-1.0,
  "estimated_publish_date": "YYYY-MM-DD or null",
  "gen_ai_superpowers": ["code, create_content, automate_with_agents, find_data_insights, research, brainstorm, natural_language"],
  "business_impacts": ["innovation, efficiency, speed, quality, client_satisfaction, risk_reduction"],
  "adoption_enablers": ["data_and_digital, innovation_culture, ecosystem_partners, policy_and_governance, risk_management"],
  "business_function": "marketing, sales, production, distribution, service, or finance_and_accounting",
  "gen_ai_classification": {
    "category": "GenAI, Traditional, or Unclear",
    "confidence": 0.0-1.0,
    "reasoning": "One or two sentences",
    "key_indicators": ["phrases from the story that decided the category"]
  }
}

Guidelines:
1. Extract specific, quantified business outcomes ("50% reduction", "$2M savings").
2. Use lowercase with underscores for categorical values.
3. Use null or empty arrays when information is not available.
4. GenAI means the story uses generative models: LLMs, chat assistants, content or code generation, named foundation models.
5. Traditional means predictive or analytical AI without generative models: forecasting, classic ML, computer vision, recommendation engines.
6. Use Unclear only when the story gives no usable signal either way.

%s
Story content to analyze:

%s

Return only the JSON object.`

// buildPrompt renders the user prompt for req, truncating the story text to maxChars runes.
func buildPrompt(req story.ExtractionRequest, maxChars int) string {
	var hints strings.Builder
	if req.Title != "" {
		fmt.Fprintf(&hints, "Title: %s\n", req.Title)
	}
	if req.URL != "" {
		fmt.Fprintf(&hints, "URL: %s\n", req.URL)
	}
	if req.CustomerName != "" {
		fmt.Fprintf(&hints, "Likely customer: %s\n", req.CustomerName)
	}
	return fmt.Sprintf(extractionPrompt, hints.String(), truncate(req.Text, maxChars))
}

func truncate(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars]) + truncatedMarker
}
