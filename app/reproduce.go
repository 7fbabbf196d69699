package app

import (
	"sort"
	"strings"

	"github.com/alessio/shellescape"
)

type commandBuilder []string

func (b *commandBuilder) add(args ...string) {
	for _, a := range args {
		*b = append(*b, shellescape.Quote(a))
	}
}

func (b commandBuilder) String() string {
	return strings.Join(b, " ")
}

// CurlCommand renders a shell command that sends the same request as a probe.
func CurlCommand(r ProbeRequest, globalHeaders HeaderKV) string {
	var b commandBuilder
	b.add("curl", "-i", "-X", r.Method)

	headers := globalHeaders.Merge(r.Headers)
	if r.ContentType != "" {
		headers["Content-Type"] = r.ContentType
	}
	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.add("-H", key+": "+headers[key])
	}

	if r.BodyFile != "" {
		b.add("--data-binary", "@"+r.BodyFile)
	}
	b.add(r.URL)

	return b.String()
}
