package provider

import (
	"os"
	"regexp"
)

// RsyncSizePattern matches the "Total file size" line of rsync --stats
var RsyncSizePattern = regexp.MustCompile(`(?m)^Total file size: ([0-9\.]+[KMGTP]?) bytes`)

// ExtractSize returns the first capture group of the last match of re in the
// log file. Read errors, /dev/null and no match all give "".
func ExtractSize(logFile string, re *regexp.Regexp) string {
	if logFile == "" || logFile == os.DevNull || re == nil {
		return ""
	}

	content, err := os.ReadFile(logFile)
	if err != nil {
		return ""
	}

	matches := re.FindAllSubmatch(content, -1)
	if len(matches) == 0 {
		return ""
	}
	last := matches[len(matches)-1]
	if len(last) < 2 {
		return ""
	}
	return string(last[1])
}

// countMatches reports how many times re matches in the log file
func countMatches(logFile string, re *regexp.Regexp) (int, error) {
	content, err := os.ReadFile(logFile)
	if err != nil {
		return 0, err
	}
	return len(re.FindAllIndex(content, -1)), nil
}
