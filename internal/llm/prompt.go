package llm

import (
	"fmt"
	"strings"
)

// DefaultSubject is used when a request does not name a subject.
const DefaultSubject = "academic content"

const subSectionPromptTemplate = `I have several academic texts related to %[1]s.

Your role is to act as an AI assistant that excels in understanding and summarizing academic content. Please generate a concise summary, or abstract, of each text. The summary should encapsulate the main points, arguments, and findings of the text, ideally not exceeding 200 words for each. Ensure that the summaries maintain the original text's tone and academic integrity while being accessible for quick review.

SUBJECT: %[1]s
TITLE: %[2]s
CONTENT: %[3]s

%[4]s, adhering to the following guidelines:

1. Retain the key arguments and findings of the original text.
2. Ensure the summaries are free from personal interpretations or biases.
3. Maintain an objective and neutral language.
4. Each summary should be self-contained, understandable without the original text.
5. Preserve important concepts and technical terms.
6. Organize the summary in a clear and structured way.
7. **IMPORTANT: Format your response using Markdown syntax** (use ### for headings, **bold**, *italic*, numbered lists, bullet points, etc.).

Start by signaling the structure with headings for each main point or argument in the original text, followed by a brief paragraph explaining each.

I aim to use these summaries to efficiently review and prepare for an upcoming exam, so clarity and accuracy are paramount.`

const textPromptTemplate = `Your role is to act as an AI assistant that excels in understanding and summarizing content. Please generate a concise summary of the content below. The summary should encapsulate the main points, arguments, and findings, ideally not exceeding 200 words. Ensure that the summary maintains the original content's tone while being accessible for quick review.

CONTENT: %[1]s

%[2]s, adhering to the following guidelines:

1. Retain the key arguments and findings of the original content.
2. Ensure the summary is free from personal interpretations or biases.
3. Maintain an objective and neutral language.
4. The summary should be self-contained, understandable without the original content.
5. Preserve important concepts and technical terms.
6. Organize the summary in a clear and structured way.
7. **IMPORTANT: Format your response using Markdown syntax** (use ### for headings, **bold**, *italic*, numbered lists, bullet points, etc.).

I aim to use this summary to efficiently review content, so clarity and accuracy are paramount.`

// SummaryRequest carries one subsection to summarize.
type SummaryRequest struct {
	Title    string
	Content  string
	Subject  string
	Language string // Empty means answer in the language of the content
}

// BuildSubSectionPrompt renders the academic summary prompt for a subsection.
func BuildSubSectionPrompt(req SummaryRequest) string {
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = DefaultSubject
	}
	return fmt.Sprintf(subSectionPromptTemplate, subject, req.Title, req.Content, languageInstruction(req.Language))
}

// BuildTextPrompt renders the single-text summary prompt.
func BuildTextPrompt(content, language string) string {
	return fmt.Sprintf(textPromptTemplate, content, languageInstruction(language))
}

// BuildProbePrompt is the short prompt used to check the endpoint is alive.
func BuildProbePrompt(language string) string {
	if strings.TrimSpace(language) == "" {
		language = "English"
	}
	return fmt.Sprintf("Answer in %s: Hello!", language)
}

func languageInstruction(language string) string {
	if strings.TrimSpace(language) == "" {
		return "Please respond in the same language as the content"
	}
	return "Please respond in " + language
}
