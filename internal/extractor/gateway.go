package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/bidradar/rfp-discovery-bot/internal/models"
)

const systemPrompt = `You extract RFP/bid opportunity listings from web content. ` +
	`For each RFP found, return: title, agency, description, deadline (ISO format or null), ` +
	`value_estimate (number or null). Only return results through the extract_rfps tool.`

// GatewayExtractor extracts candidate listings by calling an
// OpenAI-compatible chat-completions gateway with a forced tool call.
type GatewayExtractor struct {
	apiKey   string
	baseURL  string
	model    string
	maxChars int
	client   *resty.Client
}

// Ensure GatewayExtractor implements ListingExtractor
var _ ListingExtractor = (*GatewayExtractor)(nil)

// NewGatewayExtractor creates an AI-gateway-backed extractor. Page
// content longer than maxChars is truncated before being sent.
func NewGatewayExtractor(apiKey, baseURL, model string, maxChars int) *GatewayExtractor {
	if maxChars <= 0 {
		maxChars = 8000
	}
	return &GatewayExtractor{
		apiKey:   apiKey,
		baseURL:  baseURL,
		model:    model,
		maxChars: maxChars,
		client:   resty.New().SetTimeout(60 * time.Second),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model      string        `json:"model,omitempty"`
	Messages   []chatMessage `json:"messages"`
	Tools      []chatTool    `json:"tools"`
	ToolChoice toolChoice    `json:"tool_choice"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type toolChoice struct {
	Type     string             `json:"type"`
	Function toolChoiceFunction `json:"function"`
}

type toolChoiceFunction struct {
	Name string `json:"name"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			ToolCalls []struct {
				Function struct {
					Name      string `json:"name"`
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// extractedListing is the wire shape the gateway returns per listing.
// Deadline arrives as an ISO string and value_estimate as a number.
type extractedListing struct {
	Title         string   `json:"title"`
	Agency        string   `json:"agency"`
	Description   string   `json:"description"`
	Deadline      string   `json:"deadline"`
	ValueEstimate *float64 `json:"value_estimate"`
}

var extractionSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"rfps": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"title": {"type": "string"},
					"agency": {"type": "string"},
					"description": {"type": "string"},
					"deadline": {"type": "string"},
					"value_estimate": {"type": "number"}
				},
				"required": ["title"]
			}
		}
	},
	"required": ["rfps"]
}`)

// Extract sends the page content and keyword hints to the gateway and
// parses the forced tool call back into candidates.
func (g *GatewayExtractor) Extract(ctx context.Context, content string, keywordHints []string) ([]models.Candidate, error) {
	truncated := truncate(content, g.maxChars)

	req := chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{
				Role: "user",
				Content: fmt.Sprintf(
					"Extract RFP listings from this procurement page content. Keywords to match: %s.\n\n%s",
					strings.Join(keywordHints, ", "), truncated),
			},
		},
		Tools: []chatTool{
			{
				Type: "function",
				Function: toolFunction{
					Name:        "extract_rfps",
					Description: "Extract RFP listings from content",
					Parameters:  extractionSchema,
				},
			},
		},
		ToolChoice: toolChoice{
			Type:     "function",
			Function: toolChoiceFunction{Name: "extract_rfps"},
		},
	}

	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+g.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(g.baseURL + "/v1/chat/completions")

	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("extraction gateway returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(resp.Body(), &chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	if len(chatResp.Choices) == 0 || len(chatResp.Choices[0].Message.ToolCalls) == 0 {
		return nil, fmt.Errorf("extraction response contained no tool call")
	}

	var parsed struct {
		RFPs []extractedListing `json:"rfps"`
	}
	arguments := chatResp.Choices[0].Message.ToolCalls[0].Function.Arguments
	if err := json.Unmarshal([]byte(arguments), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse extracted listings: %w", err)
	}

	candidates := make([]models.Candidate, 0, len(parsed.RFPs))
	for _, listing := range parsed.RFPs {
		if listing.Title == "" {
			continue
		}

		candidate := models.Candidate{
			Title:         listing.Title,
			Agency:        listing.Agency,
			Description:   listing.Description,
			ValueEstimate: listing.ValueEstimate,
		}

		if listing.Deadline != "" {
			if deadline, err := parseDeadline(listing.Deadline); err == nil {
				candidate.Deadline = &deadline
			} else {
				logrus.Debugf("Dropping unparseable deadline %q for %q", listing.Deadline, listing.Title)
			}
		}

		candidates = append(candidates, candidate)
	}

	return candidates, nil
}

// truncate cuts content to at most max bytes without splitting a
// multi-byte rune at the boundary.
func truncate(content string, max int) string {
	if len(content) <= max {
		return content
	}
	for max > 0 && !utf8.RuneStart(content[max]) {
		max--
	}
	return content[:max]
}

func parseDeadline(value string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized deadline format: %s", value)
}
