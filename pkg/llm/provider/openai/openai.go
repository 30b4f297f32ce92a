// Package openai encodes and decodes the OpenAI chat-completions wire format
// spoken by the LLM gateway and by the promptsmith proxy.
package openai

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/papercomputeco/promptsmith/pkg/llm"
)

// StreamDeltaPath is the gjson path of the incremental assistant text in a
// streamed chat-completions chunk.
const StreamDeltaPath = "choices.0.delta.content"

// EncodeRequest converts a ChatRequest into an OpenAI request body. The
// system prompt, when set, is sent as the leading "system" message.
func EncodeRequest(req *llm.ChatRequest) ([]byte, error) {
	if req == nil {
		return nil, fmt.Errorf("nil chat request")
	}

	out := openaiRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      req.Stream,
		Messages:    make([]openaiMessage, 0, len(req.Messages)+1),

		ConversationID: req.ConversationID,
	}

	if req.System != "" {
		out.Messages = append(out.Messages, openaiMessage{Role: llm.RoleSystem, Content: req.System})
	}

	for _, msg := range req.Messages {
		out.Messages = append(out.Messages, encodeMessage(msg))
	}

	return json.Marshal(out)
}

// encodeMessage sends plain text messages as a string and anything carrying
// an image as a list of content parts. Documents travel as text.
func encodeMessage(msg llm.Message) openaiMessage {
	multimodal := false
	for _, block := range msg.Content {
		if block.Type == llm.BlockImage {
			multimodal = true
			break
		}
	}

	if !multimodal {
		text := ""
		for _, block := range msg.Content {
			switch block.Type {
			case llm.BlockText:
				text += block.Text
			case llm.BlockDocument:
				text += documentText(block)
			}
		}
		return openaiMessage{Role: msg.Role, Content: text}
	}

	parts := make([]openaiContentPart, 0, len(msg.Content))
	for _, block := range msg.Content {
		switch block.Type {
		case llm.BlockText:
			parts = append(parts, openaiContentPart{Type: "text", Text: block.Text})
		case llm.BlockImage:
			parts = append(parts, openaiContentPart{
				Type:     "image_url",
				ImageURL: &openaiImageURL{URL: block.ImageURL},
			})
		case llm.BlockDocument:
			parts = append(parts, openaiContentPart{Type: "text", Text: documentText(block)})
		}
	}
	return openaiMessage{Role: msg.Role, Content: parts}
}

func documentText(block llm.ContentBlock) string {
	if block.DocumentName == "" {
		return block.DocumentText
	}
	return fmt.Sprintf("\n\n[Document: %s]\n%s", block.DocumentName, block.DocumentText)
}

// ParseRequest decodes an OpenAI request body. A leading system message is
// lifted into ChatRequest.System.
func ParseRequest(payload []byte) (*llm.ChatRequest, error) {
	var req openaiRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, err
	}

	var system string
	messages := make([]llm.Message, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Role == llm.RoleSystem {
			if system != "" {
				system += "\n"
			}
			system += contentText(msg.Content)
			continue
		}
		messages = append(messages, llm.Message{
			Role:    msg.Role,
			Content: decodeContent(msg.Content),
		})
	}

	return &llm.ChatRequest{
		Model:       req.Model,
		Messages:    messages,
		System:      system,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      req.Stream,
		RawRequest:  payload,

		ConversationID: req.ConversationID,
	}, nil
}

// ParseResponse decodes a non-streaming OpenAI response body.
func ParseResponse(payload []byte) (*llm.ChatResponse, error) {
	var resp openaiResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, err
	}

	var (
		message    llm.Message
		stopReason string
	)
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		message = llm.Message{
			Role:    choice.Message.Role,
			Content: decodeContent(choice.Message.Content),
		}
		stopReason = choice.FinishReason
	}
	if message.Role == "" {
		message.Role = llm.RoleAssistant
	}

	var usage *llm.Usage
	if resp.Usage != nil {
		usage = &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}
	}

	var createdAt time.Time
	if resp.Created > 0 {
		createdAt = time.Unix(resp.Created, 0)
	}

	return &llm.ChatResponse{
		Model:       resp.Model,
		CreatedAt:   createdAt,
		Message:     message,
		StopReason:  stopReason,
		Usage:       usage,
		RawResponse: payload,
	}, nil
}

// decodeContent handles both the string and the content-parts encoding.
func decodeContent(content any) []llm.ContentBlock {
	switch v := content.(type) {
	case string:
		return []llm.ContentBlock{{Type: llm.BlockText, Text: v}}
	case []any:
		var blocks []llm.ContentBlock
		for _, item := range v {
			part, ok := item.(map[string]any)
			if !ok {
				continue
			}
			partType, _ := part["type"].(string)
			switch partType {
			case "text":
				text, _ := part["text"].(string)
				blocks = append(blocks, llm.ContentBlock{Type: llm.BlockText, Text: text})
			case "image_url":
				if imgURL, ok := part["image_url"].(map[string]any); ok {
					url, _ := imgURL["url"].(string)
					blocks = append(blocks, llm.ImageBlock(url, ""))
				}
			}
		}
		return blocks
	}
	return nil
}

func contentText(content any) string {
	msg := llm.Message{Content: decodeContent(content)}
	return msg.GetText()
}
