package classify

var defaultScoring = Scoring{
	GenAIConfidence:       1.0,
	TraditionalConfidence: 0.9,
	UnclearConfidence:     0.5,
	ContextThreshold:      2.0,
	ContextFloor:          0.6,
	ContextScale:          0.1,
	ContextCap:            0.85,
}

var navigationSections = []string{
	"customer stories home all stories",
	"stories by product ai & microsoft copilot",
	"explore solutions follow microsoft",
	"surface pro surface laptop",
	"stay organized with collections",
	"save and categorize content",
	"skip to main content",
	"microsoft customer stories",
	"this is the trace id",
}

var navigationIndicators = []string{
	"microsoft.com/", "customer stories", "all stories", "stories by product",
	"home customers", "explore solutions", "follow microsoft", "surface pro",
	"surface laptop", "what's new", "stay organized", "save and categorize",
	"learn more about", "skip to main", "trace id", "dynamics 365",
	"microsoft 365", "azure", "windows", "xbox",
}

var traditionalTier = []TermGroup{
	{Category: "classic_ml_explicit", Terms: []string{
		"automl tables", "automl vision classic", "automl translate classic",
		"supervised learning model", "classification model only",
		"regression analysis", "clustering algorithm",
		"decision tree model", "random forest model", "svm model",
	}},
	{Category: "traditional_analytics", Terms: []string{
		"bigquery analytics only", "data warehouse reporting",
		"business intelligence dashboard", "sql-based analysis",
		"statistical analysis", "descriptive analytics",
	}},
	{Category: "rule_based_systems", Terms: []string{
		"rule-based system", "decision tree logic",
		"if-then rules", "expert system",
		"scripted responses", "keyword matching",
		"deterministic algorithm", "finite state machine",
	}},
	{Category: "traditional_cloud_services", Terms: []string{
		"compute engine only", "cloud storage migration",
		"cloud sql database", "kubernetes deployment",
		"load balancer", "networking configuration",
		"basic ocr", "simple speech-to-text",
	}},
}

var traditionalContext = []TermGroup{
	{Category: "traditional_evidence", Weight: 1.0, Terms: []string{
		"rule-based logic", "predefined responses",
		"decision tree", "classification only",
		"pattern matching", "statistical model",
		"supervised learning", "feature engineering",
		"basic ocr", "simple classification",
	}},
	{Category: "traditional_limitations", Weight: 0.6, Terms: []string{
		"limited responses", "scripted interactions",
		"predefined workflows", "structured data only",
		"keyword-based", "template responses",
	}},
	{Category: "traditional_timeframe", Weight: 0.3, Terms: []string{
		"2019", "2020", "2021", "established ai",
		"proven ai techniques", "traditional ml",
		"conventional approach", "standard ai methods",
	}},
}

var ambiguousProcessing = []TermGroup{
	{Category: "processing_capabilities", Terms: []string{
		"document processing", "form processing", "text processing",
		"speech recognition", "speech-to-text", "language processing",
		"natural language processing", "nlp",
	}},
	{Category: "automation_terms", Terms: []string{
		"intelligent automation", "process automation",
		"workflow automation", "ai-powered automation",
		"smart automation", "cognitive automation",
	}},
	{Category: "ai_applications", Terms: []string{
		"recommendation system", "personalization engine",
		"search optimization", "content optimization",
		"customer insights", "predictive analytics",
	}},
}

var ambiguousAssistants = TermGroup{Category: "ambiguous_ai_terms", Terms: []string{
	"virtual assistant", "ai assistant", "chatbot", "conversational ai",
	"intelligent agent", "dialogue system", "voice interface",
}}

// legacyRules reproduces the first production term lists.
func legacyRules() RuleSetSpec {
	return RuleSetSpec{
		Version: "v1",
		GenAI: []TermGroup{
			{Category: "llm_models", Terms: []string{
				"gpt", "gpt-4", "gpt-3.5", "gpt-3", "chatgpt", "davinci", "curie",
				"gemini", "bard", "palm", "pathways",
				"claude", "claude-3", "claude-2", "claude instant",
				"llama", "llama-2", "llama-3", "code llama",
				"mistral", "mixtral", "mistral-7b",
				"copilot", "microsoft copilot", "github copilot", "copilot for microsoft 365", "microsoft 365 copilot",
				"cohere", "command",
			}},
			{Category: "genai_technologies", Terms: []string{
				"large language model", "llm", "foundation model",
				"transformer model", "generative ai", "gen ai", "genai",
				"generative artificial intelligence",
			}},
			{Category: "generative_capabilities", Terms: []string{
				"content generation", "text generation", "code generation",
				"natural language generation", "image generation",
				"creative writing", "automated writing", "content creation",
				"prompt engineering", "few-shot learning", "zero-shot learning",
			}},
			{Category: "specific_genai_services", Terms: []string{
				"vertex ai search", "document ai generation",
				"dialogflow cx", "contact center ai with generative",
				"gemini api", "palm api", "bard api",
				"azure openai", "azure openai service", "openai service",
			}},
		},
		Traditional: traditionalTier,
		Ambiguous: append([]TermGroup{
			ambiguousAssistants,
			{Category: "ambiguous_platforms", Terms: []string{
				"vertex ai", "bedrock", "azure openai", "hugging face",
				"sagemaker", "databricks",
			}},
		}, ambiguousProcessing...),
		GenAIContext: []TermGroup{
			{Category: "strong_genai_evidence", Weight: 1.0, Terms: []string{
				"using llm", "powered by gpt", "gemini integration",
				"foundation model", "transformer architecture",
				"prompt-based", "generative model", "large language",
				"conversational ai with generative", "ai-generated content",
				"creates content", "generates responses", "writes content",
			}},
			{Category: "genai_capabilities", Weight: 0.7, Terms: []string{
				"understands context", "natural conversation",
				"creative responses", "generates new content",
				"adaptive responses", "contextual understanding",
				"human-like interaction", "reasoning capabilities",
			}},
			{Category: "genai_timeframe", Weight: 0.3, Terms: []string{
				"2023", "2024", "2025", "recent breakthrough",
				"latest ai advancement", "next-generation ai",
				"modern ai capabilities", "cutting-edge ai",
			}},
		},
		TraditionalContext: traditionalContext,
		Scoring:            defaultScoring,
		Navigation: Navigation{
			Sections:           navigationSections,
			Indicators:         navigationIndicators,
			MinSentenceChars:   30,
			ShortSentenceChars: 100,
			MaxSentences:       8,
			MaxChars:           800,
		},
	}
}

// refinedRules moves phrases that also describe non-generative systems out of
// tier 1 and drops single words that collide with ordinary English.
func refinedRules() RuleSetSpec {
	return RuleSetSpec{
		Version: "v2",
		GenAI: []TermGroup{
			{Category: "llm_models", Terms: []string{
				"gpt", "gpt-4", "gpt-4o", "gpt-3.5", "gpt-3", "chatgpt",
				"gemini", "bard",
				"claude", "claude 3", "claude 2", "claude instant", "anthropic claude",
				"llama", "llama 2", "llama 3", "code llama",
				"mistral", "mixtral",
				"copilot", "microsoft copilot", "github copilot", "copilot for microsoft 365", "microsoft 365 copilot",
				"cohere", "dall-e", "stable diffusion", "amazon titan", "amazon nova",
			}},
			{Category: "genai_technologies", Terms: []string{
				"large language model", "large language models", "llm", "llms",
				"transformer model", "generative ai", "gen ai", "genai",
				"generative artificial intelligence", "retrieval-augmented generation",
			}},
			{Category: "generative_capabilities", Terms: []string{
				"content generation", "text generation", "code generation",
				"natural language generation", "image generation",
				"creative writing", "automated writing", "content creation",
				"prompt engineering", "few-shot learning", "zero-shot learning",
			}},
			{Category: "specific_genai_services", Terms: []string{
				"vertex ai search", "document ai generation",
				"contact center ai with generative",
				"gemini api", "palm api", "bard api",
				"azure openai", "azure openai service", "openai service", "amazon bedrock",
			}},
		},
		Traditional: traditionalTier,
		Ambiguous: append([]TermGroup{
			ambiguousAssistants,
			{Category: "ambiguous_platforms", Terms: []string{
				"vertex ai", "bedrock", "hugging face", "dialogflow", "dialogflow cx",
				"sagemaker", "databricks", "watson",
			}},
		}, ambiguousProcessing...),
		GenAIContext: []TermGroup{
			{Category: "strong_genai_evidence", Weight: 1.0, Terms: []string{
				"using llm", "powered by gpt", "gemini integration",
				"foundation model", "foundation models", "transformer architecture",
				"prompt-based", "generative model", "large language",
				"conversational ai with generative", "ai-generated content",
				"creates content", "creative content", "generates responses", "writes content",
				"generates content", "drafts responses",
			}},
			{Category: "genai_capabilities", Weight: 0.7, Terms: []string{
				"understands context", "natural conversation",
				"creative responses", "generates new content",
				"adaptive responses", "contextual understanding",
				"human-like interaction", "reasoning capabilities",
				"summarizes documents", "answers questions in natural language",
			}},
			{Category: "genai_timeframe", Weight: 0.3, Terms: []string{
				"2023", "2024", "2025", "recent breakthrough",
				"latest ai advancement", "next-generation ai",
				"modern ai capabilities", "cutting-edge ai",
			}},
		},
		TraditionalContext: traditionalContext,
		Scoring:            defaultScoring,
		Navigation: Navigation{
			Sections:           navigationSections,
			Indicators:         navigationIndicators,
			MinSentenceChars:   30,
			ShortSentenceChars: 100,
			MaxSentences:       20,
			MaxChars:           3000,
		},
	}
}
