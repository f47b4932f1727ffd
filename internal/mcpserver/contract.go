package mcpserver

// NoteFormatContract describes the canonical Markdown note format that
// LLM consumers should follow when creating notes.
const NoteFormatContract = `# Ansuz Note Format Contract

Every Markdown note stored in the vault SHOULD follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # OPTIONAL – falls back to the first H1, then the filename stem
tags:                               # OPTIONAL – YAML list; also extractable inline as #tag
  - tag-one
  - tag-two
type: note                          # OPTIONAL – groups notes in vault statistics
created: 2025-01-15                 # OPTIONAL – ISO-8601 date or datetime
---

Body text in standard Markdown.

Use [[wikilinks]] to reference other notes (without .md extension).
Use [[target|alias]] for display text that differs from the target.
Use [[target#heading]] to point at a section; the heading part is ignored
for graph purposes.
` + "```" + `

## Rules

1. **Frontmatter is optional.** When present, the ` + "```" + `---` + "```" + ` fences must be the
   first thing in the file. Invalid YAML is tolerated: the whole file is then
   treated as body.
2. **Tags** are lowercase, kebab-case (e.g. ` + "`" + `project-x` + "`" + `, ` + "`" + `meeting-notes` + "`" + `).
   Inline ` + "`" + `#tag` + "`" + ` markers in the body count too; ` + "`" + `#` + "`" + ` inside URLs and at line
   starts (headings) does not.
3. **Wikilinks** use double brackets: ` + "`" + `[[other-note]]` + "`" + `. The target is the
   filename stem (no ` + "`" + `.md` + "`" + ` extension). Links may point at notes that do not
   exist yet; they show up as missing nodes in the graph.
4. **Note identity is the filename stem**, matched case-sensitively. Two files
   with the same stem in different folders collide; the collision policy
   decides which one wins.
5. **File paths** end with ` + "`" + `.md` + "`" + ` and use forward slashes.
6. **Encoding** is UTF-8 with a trailing newline.

## Template variables

Content passed to ` + "`" + `create_vault_note` + "`" + ` may contain placeholders that are
substituted at creation time:

| Variable | Value |
|---|---|
| ` + "`" + `{{date}}` + "`" + ` | current date, ` + "`" + `2006-01-02` + "`" + ` |
| ` + "`" + `{{time}}` + "`" + ` | current time, ` + "`" + `15:04` + "`" + ` |
| ` + "`" + `{{datetime}}` + "`" + ` | ` + "`" + `2006-01-02 15:04` + "`" + ` |
| ` + "`" + `{{title}}` + "`" + ` | the ` + "`" + `title` + "`" + ` argument, or ` + "`" + `Untitled` + "`" + ` |

Unknown placeholders are left in the text untouched.

## Example

` + "```" + `markdown
---
title: Weekly standup 2025-01-20
tags:
  - meeting-notes
  - project-x
created: 2025-01-20
---

# Weekly standup 2025-01-20

Attendees: Alice, Bob.

## Action items

- [[alice]] to review the [[design-doc]]
- Bob to update [[project-x-roadmap|the roadmap]]
` + "```" + `
`
