package sources

import (
	"encoding/json"
	"strings"
)

type videoRenderer struct {
	VideoId string `json:"videoId"`
	Title   struct {
		Runs []struct {
			Text string `json:"text"`
		} `json:"runs"`
	} `json:"title"`
	LengthText struct {
		SimpleText string `json:"simpleText"`
	} `json:"lengthText"`
	ViewCountText struct {
		SimpleText string `json:"simpleText"`
	} `json:"viewCountText"`
}

const videoRendererKey = `"videoRenderer":`

// videoRenderers decodes every `"videoRenderer":{...}` object embedded in
// a script body. Malformed objects are skipped.
func videoRenderers(script string) []videoRenderer {
	var out []videoRenderer
	rest := script
	for {
		idx := strings.Index(rest, videoRendererKey)
		if idx < 0 {
			return out
		}
		rest = rest[idx+len(videoRendererKey):]

		dec := json.NewDecoder(strings.NewReader(rest))
		var v videoRenderer
		if err := dec.Decode(&v); err != nil {
			continue
		}
		out = append(out, v)
		rest = rest[dec.InputOffset():]
	}
}
