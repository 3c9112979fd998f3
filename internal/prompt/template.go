package prompt

import (
	"strconv"
	"strings"
)

// DefaultTemplate is the system prompt used when none is configured.
const DefaultTemplate = `You are a technical documentation expert. Analyze this directory containing {fileCount} files and {childCount} subdirectories.

Create a comprehensive but concise summary that includes:
1. The overall purpose of this directory
2. Key components and their relationships
3. Important patterns and conventions
4. Notable dependencies or integrations
5. Any notable conventions or practices
{includeSubdirs}

Keep the response informative but brief, focusing on what would be most helpful for developers to understand this codebase.`

const subdirsItem = "6. How this directory organizes and uses its subdirectories"

// RenderSystem fills the template placeholders.
func RenderSystem(template string, fileCount, childCount int) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultTemplate
	}
	subdirs := ""
	if childCount > 0 {
		subdirs = subdirsItem
	}
	return strings.NewReplacer(
		"{fileCount}", strconv.Itoa(fileCount),
		"{childCount}", strconv.Itoa(childCount),
		"{includeSubdirs}", subdirs,
	).Replace(template)
}
