package contextual

import (
	"fmt"

	"github.com/poiesic/crawlindex/core"
)

const (
	// MaxDocumentChars bounds how much of the source document is sent with each chunk.
	MaxDocumentChars = 25000

	// MaxTokens bounds the length of the generated preamble.
	MaxTokens = 200

	// Separator joins the preamble and the original chunk.
	Separator = "\n---\n"

	systemPrompt = "You are a helpful assistant that provides concise contextual information."

	userPromptTemplate = `<document> 
%s 
</document>
Here is the chunk we want to situate within the whole document 
<chunk> 
%s
</chunk> 
Please give a short succinct context to situate this chunk within the overall document for the purposes of improving search retrieval of the chunk. Answer only with the succinct context and nothing else.`
)

func buildUserPrompt(document, chunk string) string {
	return fmt.Sprintf(userPromptTemplate, core.Head(document, MaxDocumentChars), chunk)
}
