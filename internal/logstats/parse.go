package logstats

import (
	"regexp"
	"strconv"
	"strings"
)

// Request lines are emitted by the proxy's gin access logger:
//
//	[2026-01-17 05:21:09] [--------] [info ] [gin_logger.go:92] 200 |  0s |  127.0.0.1 | GET  "/v1/models"
var (
	requestLinePattern = regexp.MustCompile(`\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\].*\[gin_logger\.go:\d+\]\s+(\d+)\s+\|\s+(\S+)\s+\|([\d\s.]+)\|\s+(\w+)\s+"([^"]+)"`)
	timestampPattern   = regexp.MustCompile(`\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\]`)
	statusPattern      = regexp.MustCompile(`\s(\d{3})\s`)
)

// TimestampLayout is the fixed in-log timestamp format.
const TimestampLayout = "2006-01-02 15:04:05"

// excludedPaths lists quoted request paths that are management or
// self-introspection traffic, never counted as proxied requests.
var excludedPaths = []string{
	`"/v0/management/usage"`,
	`"/v0/management/`,
	`"/v1/models"`,
}

// IsRequestLine reports whether a log line is an access-log request line.
func IsRequestLine(line string) bool {
	if !strings.Contains(line, "[gin_logger.go") {
		return false
	}
	return strings.Contains(line, "POST") || strings.Contains(line, "GET")
}

// IsExcludedPath reports whether the line's request path is administrative
// traffic that must not count toward proxied totals.
func IsExcludedPath(line string) bool {
	for _, p := range excludedPaths {
		if strings.Contains(line, p) {
			return true
		}
	}
	return false
}

// ExtractTimestamp returns the bracketed timestamp string, or "" when the
// line carries none.
func ExtractTimestamp(line string) string {
	if m := timestampPattern.FindStringSubmatch(line); m != nil {
		return m[1]
	}
	return ""
}

// ExtractStatus returns the embedded 3-digit status code, or 0 when absent.
func ExtractStatus(line string) int {
	if m := statusPattern.FindStringSubmatch(line); m != nil {
		code, err := strconv.Atoi(m[1])
		if err == nil {
			return code
		}
	}
	return 0
}

// RequestLine is a fully parsed access-log line for the request-log view.
type RequestLine struct {
	Time     string `json:"time"`
	Status   int    `json:"status"`
	Duration string `json:"duration"`
	Client   string `json:"client"`
	Method   string `json:"method"`
	Path     string `json:"path"`
	Message  string `json:"message"`
}

// ParseRequestLine decodes a full access-log line. It reports false for
// lines that are not request lines or do not match the access-log shape.
func ParseRequestLine(line string) (RequestLine, bool) {
	m := requestLinePattern.FindStringSubmatch(line)
	if m == nil {
		return RequestLine{}, false
	}
	status, err := strconv.Atoi(m[2])
	if err != nil {
		return RequestLine{}, false
	}
	client := strings.TrimSpace(m[4])
	parsed := RequestLine{
		Time:     m[1],
		Status:   status,
		Duration: m[3],
		Client:   client,
		Method:   m[5],
		Path:     m[6],
	}
	parsed.Message = parsed.Method + " " + parsed.Path + " - " + m[2] + " (" + parsed.Duration + ")"
	return parsed, true
}
