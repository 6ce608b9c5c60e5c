package transcript

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// maxStatusTextLen bounds the display string; Bash commands in particular
// can be arbitrarily long.
const maxStatusTextLen = 60

// StatusText builds a short human-readable description of a tool invocation
// for the status display, e.g. "Reading b.py" or "Running npm test".
func StatusText(toolName string, input map[string]any) string {
	switch toolName {
	case ToolRead:
		if base := inputFileBase(input); base != "" {
			return "Reading " + base
		}
		return "Reading a file"
	case ToolWrite:
		if base := inputFileBase(input); base != "" {
			return "Writing " + base
		}
		return "Writing a file"
	case ToolEdit, ToolNotebookEdit:
		if base := inputFileBase(input); base != "" {
			return "Editing " + base
		}
		return "Editing a file"
	case ToolBash:
		if cmd, ok := input["command"].(string); ok && cmd != "" {
			return truncateStatus("Running " + firstLine(cmd))
		}
		return "Running a command"
	case ToolGrep:
		if pattern, ok := input["pattern"].(string); ok && pattern != "" {
			return truncateStatus(fmt.Sprintf("Searching for %q", pattern))
		}
		return "Searching"
	case ToolGlob:
		if pattern, ok := input["pattern"].(string); ok && pattern != "" {
			return truncateStatus("Listing " + pattern)
		}
		return "Listing files"
	case ToolWebFetch:
		if host := inputURLHost(input); host != "" {
			return "Fetching " + host
		}
		return "Fetching a page"
	case ToolWebSearch:
		return "Searching the web"
	case ToolTask:
		if desc, ok := input["description"].(string); ok && desc != "" {
			return truncateStatus("Delegating: " + desc)
		}
		return "Delegating a task"
	case ToolAskUser:
		return "Asking a question"
	default:
		if toolName == "" {
			return "Working"
		}
		return truncateStatus("Using " + toolName)
	}
}

// inputFileBase returns the basename of the file_path input, if present.
func inputFileBase(input map[string]any) string {
	path, ok := input["file_path"].(string)
	if !ok || path == "" {
		return ""
	}
	return filepath.Base(path)
}

// inputURLHost returns the host of the url input, if present.
func inputURLHost(input map[string]any) string {
	raw, ok := input["url"].(string)
	if !ok || raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncateStatus(s string) string {
	if len(s) <= maxStatusTextLen {
		return s
	}
	return s[:maxStatusTextLen-3] + "..."
}
