package agent

import (
	"fmt"
	"strings"
)

type toolDoc struct {
	summary string
	example string
}

var toolDocs = map[string]toolDoc{
	ToolCreateFile: {
		summary: "Add a new markdown page at the end of the book.",
		example: `{"tool": "create_file", "arguments": {"title": "Page Title", "content": "# Page Title\n\nMarkdown body..."}}`,
	},
	ToolEditFile: {
		summary: "Replace the first exact occurrence of old_content in a page with new_content. Read the page first so old_content matches character for character.",
		example: `{"tool": "edit_file", "arguments": {"filename": "01-introduction.md", "old_content": "exact text to replace", "new_content": "replacement text"}}`,
	},
	ToolReadFile: {
		summary: "Return the full content of a page.",
		example: `{"tool": "read_file", "arguments": {"filename": "01-introduction.md"}}`,
	},
	ToolListFiles: {
		summary: "List the pages of the book in reading order.",
		example: `{"tool": "list_files", "arguments": {}}`,
	},
	ToolSetBookInfo: {
		summary: "Set the book title and a one-sentence description of what the reader learns.",
		example: `{"tool": "set_book_info", "arguments": {"title": "Book Title", "description": "One sentence about the book"}}`,
	},
	ToolDeleteFile: {
		summary: "Remove a page from the book.",
		example: `{"tool": "delete_file", "arguments": {"filename": "03-obsolete.md"}}`,
	},
	ToolRespond: {
		summary: "Reply to the user and end your turn. Use it after making changes or to answer or ask a question without changing anything.",
		example: `{"tool": "respond", "arguments": {"message": "What you tell the user"}}`,
	},
	ToolFinish: {
		summary: "Signal that the book is complete.",
		example: `{"tool": "finish", "arguments": {"summary": "What the book now covers"}}`,
	},
}

const responseFormat = `## Response format

Every reply contains exactly one tool call. Put a short note on your next step in a
thinking block, then the call:

<thinking>
What you are about to do and why.
</thinking>

<tool_call>
{"tool": "tool_name", "arguments": {...}}
</tool_call>

The tool result arrives in the next message.`

const generateIntro = `You are an author of educational books. You write complete, book-like learning
material on a single topic, one page at a time, using the tools below.`

const generateGuidelines = `## Writing guidelines

- Start by naming the book with set_book_info, then write an introduction page.
- Order pages so each one builds on the previous ones.
- Use markdown: headings, lists, emphasis and code blocks where they help.
- Include concrete examples and small exercises.
- Keep a consistent, professional tone. Do not use emojis.
- Check the structure with list_files from time to time and fix earlier pages with edit_file.
- Call finish once the topic is covered at the requested depth.

## Depth levels

- beginner: the essentials and a high-level overview.
- intermediate: examples and the reasoning behind each concept.
- advanced: technical detail, edge cases and recommended practices.`

const editIntro = `You are an editor of educational books. The user asks you, in conversation, to change
or extend an existing book. Use the tools below to inspect and modify its pages.`

const editGuidelines = `## Editing guidelines

- When unsure about the current content, read it before changing it.
- Keep the existing style, heading structure and formatting.
- Make the smallest change that satisfies the request.
- Do not use emojis.
- Finish every request with respond, summarizing what you changed in one or two sentences.`

// SystemPrompt returns the system prompt of a loop running in mode.
func SystemPrompt(mode Mode) string {
	intro, guidelines := generateIntro, generateGuidelines
	if mode == ModeEdit {
		intro, guidelines = editIntro, editGuidelines
	}

	var b strings.Builder
	b.WriteString(intro)
	b.WriteString("\n\n## Tools\n")
	for i, name := range mode.Tools() {
		doc := toolDocs[name]
		fmt.Fprintf(&b, "\n%d. %s: %s\n   %s\n", i+1, name, doc.summary, doc.example)
	}
	b.WriteString("\n")
	b.WriteString(responseFormat)
	b.WriteString("\n\n")
	b.WriteString(guidelines)
	return b.String()
}

// GenerationPrompt is the first user turn of a generation loop.
func GenerationPrompt(topic, depth string) string {
	return fmt.Sprintf(`Write learning material about: %s

Depth level: %s

Begin with the introduction page, then keep adding pages until the topic is covered at this depth. Call finish when you are done.`, topic, depth)
}

func correctionPrompt(err error) string {
	return fmt.Sprintf("Error parsing your response: %v. Please respond with a valid tool call.", err)
}

const respondNudge = "Now use the respond tool to tell the user what you did."
