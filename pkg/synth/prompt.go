package synth

import "strings"

// Categories is the closed set the model must pick from. Anything else is
// coerced to "Other" during parsing.
var Categories = []string{
	"Recipe",
	"Tech",
	"Travel",
	"Fitness",
	"Finance",
	"Home",
	"Fashion",
	"Entertainment",
	"Education",
	"Inspiration",
	"Other",
}

// TagVocabulary is the fixed tag list the model draws 2-3 values from.
var TagVocabulary = []string{
	"Recipe", "Cooking", "Baking", "Tech", "AI", "Gadgets", "Travel",
	"Destination", "Fitness", "Workout", "Health", "Finance", "Investing",
	"Home", "DIY", "Fashion", "Style", "Entertainment", "Music", "Film",
	"Education", "Tutorial", "How-To", "Inspiration", "Quote", "Article",
	"Video", "Photo", "Shopping", "Product",
}

const systemInstruction = `You are a content librarian. You receive raw evidence about a piece of
online content (scraped fields, a transcript, or an image) and produce a
single JSON object describing it. Respond with ONLY that JSON object, no
prose, no code fences.

The object has exactly these keys:
- "title": a clean, human-readable title for the content.
- "category": exactly one of: %CATEGORIES%.
- "tags": an array of 2 or 3 values drawn from: %TAGS%. The first tag is
  the primary one.
- "summary": a markdown summary. Use "##" for headers. For recipe or
  how-to content you MUST reproduce the complete enumerated steps, never
  abbreviate them. For recipes include an "## Ingredients" section listing
  every ingredient and a "## Preparation" section with the numbered steps.
- "smart_data": an object of useful extras when present: "ingredients"
  (array of strings), "prep_time", "extracted_text" (text visible in an
  image), "video_insights", or anything else concrete you can pull out.
  Use {} when nothing applies.

Never invent facts that are not supported by the evidence.`

const imageInstruction = `Describe and catalog the attached image. If it contains text (a screenshot,
a recipe card, a note), extract the text verbatim into smart_data.extracted_text.`

// SystemPrompt returns the fixed system instruction with the category and
// tag vocabularies substituted in.
func SystemPrompt() string {
	s := strings.ReplaceAll(systemInstruction, "%CATEGORIES%", quoteList(Categories))
	return strings.ReplaceAll(s, "%TAGS%", quoteList(TagVocabulary))
}

func quoteList(vals []string) string {
	quoted := make([]string, len(vals))
	for i, v := range vals {
		quoted[i] = `"` + v + `"`
	}
	return strings.Join(quoted, ", ")
}

// ValidCategory reports whether c is in the closed category set.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if strings.EqualFold(v, c) {
			return true
		}
	}
	return false
}
