package restyutil

import (
	"fmt"
	"io"
	"net/http"
	"slices"
	"strings"

	"github.com/go-resty/resty/v2"
)

// bodies past this size are cut when dumped, scraped pages are large
const maxDumpedBody = 64 << 10

var redactedHeaders = map[string]bool{
	"Authorization":       true,
	"Cookie":              true,
	"Set-Cookie":          true,
	"Proxy-Authorization": true,
}

func writeHeaders(out *strings.Builder, headers http.Header) {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		for _, v := range headers[k] {
			if redactedHeaders[http.CanonicalHeaderKey(k)] {
				v = "<redacted>"
			}
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
	}
}

func writeBody(out *strings.Builder, body string) {
	if len(body) > maxDumpedBody {
		fmt.Fprintf(out, "%s\n... (%d bytes omitted)\n", body[:maxDumpedBody], len(body)-maxDumpedBody)
		return
	}
	out.WriteString(body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		out.WriteByte('\n')
	}
}

func requestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return "(unreadable request body: " + err.Error() + ")"
	}
	// bodyless requests hand back a nil reader
	if body == nil {
		return ""
	}
	defer body.Close()
	buf, err := io.ReadAll(io.LimitReader(body, maxDumpedBody+1))
	if err != nil {
		return "(unreadable request body: " + err.Error() + ")"
	}
	return string(buf)
}

// formatHttpMessage renders a request/response exchange as plain text
// for the filesystem output.
func formatHttpMessage(res *resty.Response) string {
	var out strings.Builder

	req := res.Request
	out.WriteString("> ")
	out.WriteString(req.Method)
	out.WriteByte(' ')
	out.WriteString(req.URL)
	out.WriteByte('\n')
	if req.RawRequest != nil {
		writeHeaders(&out, req.RawRequest.Header)
	}
	out.WriteByte('\n')
	writeBody(&out, requestBody(req.RawRequest))

	finalUrl := req.URL
	if res.RawResponse != nil {
		location, err := res.RawResponse.Location()
		if err == nil {
			finalUrl = location.String()
		}
	}
	fmt.Fprintf(&out, "\n< %d %s (%s)\n", res.StatusCode(), finalUrl, res.Time())
	writeHeaders(&out, res.Header())
	out.WriteByte('\n')
	writeBody(&out, res.String())

	return out.String()
}
