package parser

import (
	"regexp"
	"strings"

	"github.com/runevault/ansuz/internal/models"
)

var (
	listItemRe     = regexp.MustCompile(`^\s*[-*+]\s`)
	numberedItemRe = regexp.MustCompile(`^\s*\d+\.\s`)
	quoteLineRe    = regexp.MustCompile(`^\s*>\s`)
	headingLineRe  = regexp.MustCompile(`^#{1,6}\s`)
)

// extractBlocks segments the body into typed blocks: fenced code runs,
// then blank-line separated runs classified by their line shape. A change
// of shape mid-run closes the current block.
func extractBlocks(body string) []models.Block {
	if strings.TrimSpace(body) == "" {
		return nil
	}

	lines := strings.Split(body, "\n")
	var blocks []models.Block
	var current []string
	currentType := ""
	inCode := false
	codeLang := ""

	flush := func(endLine int) {
		if len(current) == 0 {
			return
		}
		bt := currentType
		if bt == "" {
			bt = models.BlockParagraph
		}
		blocks = append(blocks, models.Block{
			Type:      bt,
			Content:   strings.Join(current, "\n"),
			StartLine: endLine - len(current) + 1,
			EndLine:   endLine,
		})
		current = nil
		currentType = ""
	}

	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if !inCode {
				flush(i)
				inCode = true
				codeLang = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```"))
				if codeLang == "" {
					codeLang = "text"
				}
			} else {
				blocks = append(blocks, models.Block{
					Type:      models.BlockCode,
					Content:   strings.Join(current, "\n"),
					Language:  codeLang,
					StartLine: i - len(current),
					EndLine:   i + 1,
				})
				current = nil
				inCode = false
			}
			continue
		}

		if inCode {
			current = append(current, line)
			continue
		}

		if strings.TrimSpace(line) == "" {
			flush(i)
			continue
		}

		bt := classifyLine(line)
		if currentType != "" && currentType != bt {
			flush(i)
		}
		currentType = bt
		current = append(current, line)
	}

	if inCode {
		// Unterminated fence: keep what was collected as a code block.
		blocks = append(blocks, models.Block{
			Type:      models.BlockCode,
			Content:   strings.Join(current, "\n"),
			Language:  codeLang,
			StartLine: len(lines) - len(current) + 1,
			EndLine:   len(lines),
		})
	} else {
		flush(len(lines))
	}

	return blocks
}

func classifyLine(line string) string {
	switch {
	case listItemRe.MatchString(line):
		return models.BlockList
	case numberedItemRe.MatchString(line):
		return models.BlockNumberedList
	case quoteLineRe.MatchString(line):
		return models.BlockQuote
	case headingLineRe.MatchString(line):
		return models.BlockHeading
	default:
		return models.BlockParagraph
	}
}
