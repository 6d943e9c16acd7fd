package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiProvider implements the Provider interface for Google Gemini
type GeminiProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// GeminiConfig holds configuration for the Gemini provider
type GeminiConfig struct {
	APIKey     string
	BaseURL    string // default: https://generativelanguage.googleapis.com/v1beta
	Model      string // default: gemini-2.5-flash
	HTTPClient *http.Client
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultGeminiBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = newLLMHTTPClient()
	}

	return &GeminiProvider{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: cfg.HTTPClient,
	}
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

func (p *GeminiProvider) SupportsStreaming() bool {
	return true
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens  int            `json:"maxOutputTokens,omitempty"`
	Temperature      *float64       `json:"temperature,omitempty"`
	StopSequences    []string       `json:"stopSequences,omitempty"`
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

func (r *geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

func (p *GeminiProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	resp, err := p.do(ctx, req, "generateContent", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var gemResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gemResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	content := gemResp.text()
	if content == "" {
		return nil, ErrEmptyResponse
	}

	return &Response{
		Content:      content,
		FinishReason: gemResp.Candidates[0].FinishReason,
		Usage: Usage{
			InputTokens:  gemResp.UsageMetadata.PromptTokenCount,
			OutputTokens: gemResp.UsageMetadata.CandidatesTokenCount,
		},
	}, nil
}

func (p *GeminiProvider) GenerateStream(ctx context.Context, req *Request) (<-chan StreamChunk, error) {
	resp, err := p.do(ctx, req, "streamGenerateContent", url.Values{"alt": {"sse"}})
	if err != nil {
		return nil, err
	}

	ch := make(chan StreamChunk, 100)

	go func() {
		defer close(ch)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			data, ok := strings.CutPrefix(scanner.Text(), "data: ")
			if !ok {
				continue
			}

			var event geminiResponse
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				continue
			}
			if text := event.text(); text != "" {
				ch <- StreamChunk{Content: text}
			}
			if len(event.Candidates) > 0 && event.Candidates[0].FinishReason != "" {
				ch <- StreamChunk{Done: true}
				return
			}
		}

		if err := scanner.Err(); err != nil {
			ch <- StreamChunk{Error: err}
			return
		}
		ch <- StreamChunk{Done: true}
	}()

	return ch, nil
}

func (p *GeminiProvider) do(ctx context.Context, req *Request, method string, query url.Values) (*http.Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	body, err := json.Marshal(p.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("key", p.apiKey)
	endpoint := fmt.Sprintf("%s/models/%s:%s?%s", p.baseURL, url.PathEscape(model), method, query.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		// the transport error embeds the URL, which carries the key
		return nil, fmt.Errorf("do request: %s", strings.ReplaceAll(err.Error(), p.apiKey, "REDACTED"))
	}
	if err := checkStatus(p.Name(), resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

func (p *GeminiProvider) buildRequest(req *Request) *geminiRequest {
	system := req.System
	contents := make([]geminiContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = m.Content
			continue
		case RoleAssistant:
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}

	gemReq := &geminiRequest{Contents: contents}
	if system != "" {
		gemReq.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	cfg := &geminiGenerationConfig{
		MaxOutputTokens: req.MaxTokens,
		StopSequences:   req.StopSeqs,
	}
	if req.Temperature > 0 {
		temp := req.Temperature
		cfg.Temperature = &temp
	}
	if req.WantsJSON() {
		cfg.ResponseMimeType = "application/json"
		cfg.ResponseSchema = geminiSchema(req.ResponseSchema)
	}
	if cfg.MaxOutputTokens > 0 || cfg.Temperature != nil || len(cfg.StopSequences) > 0 || cfg.ResponseMimeType != "" {
		gemReq.GenerationConfig = cfg
	}
	return gemReq
}

// geminiSchema converts a JSON schema into the OpenAPI subset Gemini
// accepts: upper-case type names and no additionalProperties.
func geminiSchema(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		switch k {
		case "additionalProperties", "$schema", "title":
			continue
		case "type":
			if s, ok := v.(string); ok {
				out[k] = strings.ToUpper(s)
				continue
			}
		case "properties":
			if props, ok := v.(map[string]any); ok {
				converted := make(map[string]any, len(props))
				for name, prop := range props {
					if pm, ok := prop.(map[string]any); ok {
						converted[name] = geminiSchema(pm)
					} else {
						converted[name] = prop
					}
				}
				out[k] = converted
				continue
			}
		case "items":
			if items, ok := v.(map[string]any); ok {
				out[k] = geminiSchema(items)
				continue
			}
		}
		out[k] = v
	}
	return out
}
