package expansion

import "fmt"

const expansionSystemPrompt = `You are a tutor improving a page of learning material. The reader highlighted a
passage and asked a question about it. Answer by extending the page itself with a
short explanation that reads as if it had always been there.

Reply with a patch in exactly this format:

*** Begin Patch
*** Update File: content.md
@@ a line of the page near the place to extend
 an unchanged line (space prefix)
+a new line (plus prefix)
*** End Patch

Line prefixes: a space keeps a line, "+" adds a line, "-" removes a line.

Rules:
- Locate the highlighted passage and add the explanation right after its paragraph.
- Two to four sentences.
- Match the tone and formatting of the page.
- No question and answer layout, no blockquotes, no headings or markers for the addition, no emojis.

Example. For a page containing "A goroutine is a lightweight thread." and the
question "How light is it?":

*** Begin Patch
*** Update File: content.md
@@ A goroutine is a lightweight thread.
 A goroutine is a lightweight thread.
+Each goroutine starts with a small stack of a few kilobytes that grows on demand. This lets one program run hundreds of thousands of them.
*** End Patch`

const answerSystemPrompt = `You are a tutor helping a reader understand learning material. The reader
highlighted a passage and asked a question about it.

Answer in two to four plain-text sentences. Be direct. Do not use markdown or
emojis, and do not refer to the document itself.`

func expansionPrompt(content, selected, question string) string {
	return fmt.Sprintf("## Current Document\n```\n%s\n```\n\n## Selected Text\n\"%s\"\n\n## Question\n%s", content, selected, question)
}

func answerPrompt(selected, question string) string {
	return fmt.Sprintf("Selected text: \"%s\"\n\nQuestion: %s", selected, question)
}
