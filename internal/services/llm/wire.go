package llm

import (
	"fmt"
	"strings"
)

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatReply struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatChoice struct {
	FinishReason string `json:"finish_reason"`
	Text         string `json:"text"`
	Message      struct {
		Content   string `json:"content"`
		Refusal   string `json:"refusal"`
		ToolCalls []struct {
			Function struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			} `json:"function"`
		} `json:"tool_calls"`
	} `json:"message"`
}

// emptyReplyError marks a well-formed reply without usable text. It is retried.
type emptyReplyError struct {
	finishReason string
	refusal      string
	snippet      string
}

func (e *emptyReplyError) Error() string {
	return fmt.Sprintf("empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.finishReason, e.refusal, e.snippet)
}

// text returns the first non-empty reply body: message content, then tool call
// arguments, then legacy completion text.
func (r chatReply) text(raw []byte) (string, error) {
	if len(r.Choices) == 0 {
		return "", &emptyReplyError{snippet: snippet(string(raw))}
	}
	empty := &emptyReplyError{snippet: snippet(string(raw))}
	for _, choice := range r.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
		for _, call := range choice.Message.ToolCalls {
			if args := strings.TrimSpace(call.Function.Arguments); args != "" {
				return args, nil
			}
		}
		if text := strings.TrimSpace(choice.Text); text != "" {
			return text, nil
		}
		if empty.finishReason == "" {
			empty.finishReason = strings.TrimSpace(choice.FinishReason)
		}
		if empty.refusal == "" {
			empty.refusal = strings.TrimSpace(choice.Message.Refusal)
		}
	}
	return "", empty
}

func snippet(body string) string {
	clean := strings.Join(strings.Fields(body), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	if runes := []rune(clean); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}
