package logging

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

// patternFormatter renders a log entry by substituting %time, %level,
// %field, %msg tokens into pattern, matching internal/log/formatter.go's
// approach (caller/function/goroutine tokens are dropped here — nothing
// in this daemon's logging needs them).
type patternFormatter struct {
	pattern string
	time    string
}

func (f *patternFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	out := f.pattern
	out = strings.Replace(out, "%time", entry.Time.Format(f.time), 1)
	out = strings.Replace(out, "%level", entry.Level.String(), 1)
	out = strings.Replace(out, "%field", formatFields(entry), 1)
	out = strings.Replace(out, "%msg", entry.Message, 1)
	return []byte(out + "\n"), nil
}

func formatFields(entry *logrus.Entry) string {
	if len(entry.Data) == 0 {
		return ""
	}
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, entry.Data[k]))
	}
	return strings.Join(parts, " ") + " "
}
