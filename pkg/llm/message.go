// Package llm holds the provider-agnostic chat types shared by the streaming
// pipeline, the gateway client and the proxy.
package llm

import "strings"

// Message roles understood by the chat pipeline.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content block types.
const (
	BlockText     = "text"
	BlockImage    = "image"
	BlockDocument = "document"
)

// Message represents a single message in a conversation.
// Content is an ordered list of typed blocks so a user turn can carry text
// alongside image and document references.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock represents a single piece of content within a message.
// The Type field determines which other fields are populated.
type ContentBlock struct {
	Type string `json:"type"` // "text", "image", "document"

	// Text content (type="text")
	Text string `json:"text,omitempty"`

	// Image reference (type="image")
	ImageURL  string `json:"image_url,omitempty"`
	MediaType string `json:"media_type,omitempty"`

	// Document reference (type="document"). DocumentText carries the
	// extracted text that is sent upstream.
	DocumentName string `json:"document_name,omitempty"`
	DocumentURL  string `json:"document_url,omitempty"`
	DocumentText string `json:"document_text,omitempty"`
}

// NewTextMessage creates a simple text message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{
		Role: role,
		Content: []ContentBlock{
			{Type: BlockText, Text: text},
		},
	}
}

// ImageBlock returns an image reference block.
func ImageBlock(url, mediaType string) ContentBlock {
	return ContentBlock{Type: BlockImage, ImageURL: url, MediaType: mediaType}
}

// DocumentBlock returns a document reference block.
func DocumentBlock(name, url, text string) ContentBlock {
	return ContentBlock{Type: BlockDocument, DocumentName: name, DocumentURL: url, DocumentText: text}
}

// GetText returns the concatenated text content from all text blocks in the message.
func (m *Message) GetText() string {
	var sb strings.Builder
	for _, block := range m.Content {
		if block.Type == BlockText {
			sb.WriteString(block.Text)
		}
	}
	return sb.String()
}

// AppendText grows the trailing text block, adding one if the message does
// not end in text.
func (m *Message) AppendText(delta string) {
	if n := len(m.Content); n > 0 && m.Content[n-1].Type == BlockText {
		m.Content[n-1].Text += delta
		return
	}
	m.Content = append(m.Content, ContentBlock{Type: BlockText, Text: delta})
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := Message{Role: m.Role}
	if m.Content != nil {
		out.Content = make([]ContentBlock, len(m.Content))
		copy(out.Content, m.Content)
	}
	return out
}
