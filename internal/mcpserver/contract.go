package mcpserver

// BlockFormatContract describes the Markdown dialect the block editor reads
// and writes. LLM consumers should follow it when creating or updating
// documents so that every paragraph maps to exactly one block.
const BlockFormatContract = `# Berkana Block Format Contract

A document is an ordered list of blocks. Each block is written as one
Markdown construct, and blocks are separated by a blank line.

## Block types

| Type        | Markdown                                   |
|-------------|--------------------------------------------|
| p           | plain text; a line ending in two spaces or ` + "`\\`" + ` continues the paragraph |
| h1 ... h6   | ` + "`# Title`" + ` through ` + "`###### Title`" + `                  |
| ul          | ` + "`- item`" + ` or ` + "`* item`" + `, one item per line           |
| ol          | ` + "`1. item`" + `, one item per line                     |
| sq          | ` + "`- [ ] open`" + ` / ` + "`- [x] done`" + ` (task list)            |
| quote       | ` + "`> text`" + `, consecutive lines form one quote       |
| code        | fenced with three backticks and an optional language |
| delimiter   | ` + "`---`" + ` on its own line                            |
| table       | pipe table with a ` + "`|---|`" + ` separator row           |
| image       | ` + "`![alt](src)`" + ` on its own line                    |

## Inline formatting

- ` + "`**bold**`" + `, ` + "`*italic*`" + `, ` + "`~~strikethrough~~`" + `, ` + "`<u>underline</u>`" + `
- Backslash escapes a literal marker: ` + "`\\*`" + `.
- Code blocks keep their text verbatim; no inline formatting applies.

## Rules

1. **One construct per block.** Do not mix list items and paragraphs
   without a blank line between them.
2. **Frontmatter is optional.** A leading YAML block fenced by ` + "`---`" + ` is
   kept as document metadata; a ` + "`title`" + ` field overrides the first heading.
3. **File paths** end with ` + "`.md`" + ` and use forward slashes.
4. **Encoding** is UTF-8 with a trailing newline.
5. **Images** must point at an uploaded asset. Use the ` + "`upload_image`" + `
   tool; it returns a ` + "`markdownImage`" + ` line ready to paste.
6. **No raw HTML** other than ` + "`<u>`" + `. Use ` + "`convert`" + ` to turn HTML into
   this format.

## Example

` + "```" + `markdown
---
title: Release checklist
---

# Release checklist

Steps for the **next** release.

- [x] Tag the build
- [ ] Publish notes

> Ship on Thursday.

![Dashboard](/assets/dashboard.png)
` + "```" + `
`
