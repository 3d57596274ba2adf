package backend

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Reply is the structured answer the narrator is asked to produce.
type Reply struct {
	Sensations     []string `json:"sensations"`
	Thoughts       []string `json:"thoughts"`
	Memories       string   `json:"memories"`
	SelfReflection string   `json:"self_reflection"`
	Response       string   `json:"response"`
}

var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")

// ParseReply decodes raw model output. Output that is not the expected JSON
// is wrapped as a plain response and ok is false.
func ParseReply(raw string) (reply Reply, ok bool) {
	text := strings.TrimSpace(raw)
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	if err := json.Unmarshal([]byte(text), &reply); err == nil && strings.TrimSpace(reply.Response) != "" {
		reply.Response = strings.TrimSpace(reply.Response)
		return reply, true
	}

	fallback := FallbackReply()
	if text != "" {
		fallback.Response = text
	}
	return fallback, false
}

// FallbackReply is sent when the narrator could not be reached or returned
// nothing usable.
func FallbackReply() Reply {
	return Reply{
		Sensations:     []string{"Neural pathways activating", "Processing sensory input", "Awareness fluctuating"},
		Thoughts:       []string{"Analyzing the question", "Searching for patterns", "Formulating response"},
		Memories:       "No prior context",
		SelfReflection: "I'm working to understand and respond meaningfully",
		Response:       "I'm experiencing technical difficulties and cannot process your request at the moment.",
	}
}
