// Package language maps file names to the language tag used in review prompts.
package language

import (
	"path"
	"strings"
)

// extensions maps a file extension (without the dot) to a language tag.
// Lookup is case-sensitive: "main.GO" is not Go.
var extensions = map[string]string{
	"js":     "javascript",
	"jsx":    "jsx",
	"ts":     "typescript",
	"tsx":    "tsx",
	"py":     "python",
	"go":     "go",
	"rb":     "ruby",
	"cs":     "csharp",
	"java":   "java",
	"php":    "php",
	"rs":     "rust",
	"swift":  "swift",
	"c":      "c",
	"h":      "c",
	"cpp":    "cpp",
	"cc":     "cpp",
	"cxx":    "cpp",
	"hpp":    "cpp",
	"hxx":    "cpp",
	"hh":     "cpp",
	"m":      "objective-c",
	"mm":     "objective-cpp",
	"html":   "html",
	"css":    "css",
	"scss":   "scss",
	"less":   "less",
	"sass":   "sass",
	"styl":   "stylus",
	"vue":    "vue",
	"svelte": "svelte",
	"md":     "markdown",
	"json":   "json",
	"yaml":   "yaml",
	"yml":    "yaml",
	"xml":    "xml",
	"toml":   "toml",
	"sh":     "shell",
	"clj":    "clojure",
	"cljs":   "clojure",
	"cljc":   "clojure",
	"edn":    "clojure",
	"lua":    "lua",
	"sql":    "sql",
	"r":      "r",
	"kt":     "kotlin",
	"kts":    "kotlin",
	"ktm":    "kotlin",
	"ktx":    "kotlin",
	"gradle": "groovy",
	"tf":     "terraform",
	"scala":  "scala",
	"sc":     "scala",
}

// Detector resolves language tags from file names. The zero value is not
// usable; use New.
type Detector struct {
	table map[string]string
}

// New returns a Detector backed by the built-in extension table. Extra
// entries override or extend it.
func New(extra map[string]string) *Detector {
	table := make(map[string]string, len(extensions)+len(extra))
	for ext, tag := range extensions {
		table[ext] = tag
	}
	for ext, tag := range extra {
		table[strings.TrimPrefix(ext, ".")] = tag
	}
	return &Detector{table: table}
}

// Detect returns the language tag for filename, or false if the extension is unknown.
func (d *Detector) Detect(filename string) (string, bool) {
	tag, ok := d.table[Extension(filename)]
	return tag, ok
}

var defaultDetector = New(nil)

// Detect resolves filename with the built-in table.
func Detect(filename string) (string, bool) {
	return defaultDetector.Detect(filename)
}

// Extension returns the text after the last '.' of the file's base name.
// A name without a dot has no extension.
func Extension(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	idx := strings.LastIndex(base, ".")
	if idx < 0 {
		return ""
	}
	return base[idx+1:]
}
