package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"google.golang.org/genai"

	"chelouizer/internal/domain"
)

const (
	DefaultAnalysisModel = "gemini-3-flash-preview"
	DefaultSpeechModel   = "gemini-2.5-flash-preview-tts"

	defaultSpeechSampleRate = 24000
	expectedVariations      = 3
)

// ErrNoSpeechAudio is returned when a speech response carries no inline audio.
var ErrNoSpeechAudio = errors.New("could not generate speech")

// Config controls the Gemini client.
type Config struct {
	APIKey        string
	APIBaseURL    string
	AnalysisModel string
	SpeechModel   string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// contentGenerator is the slice of genai.Models used by the client.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type modelsGenerator struct {
	client *genai.Client
}

func (g modelsGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return g.client.Models.GenerateContent(ctx, model, contents, config)
}

// Client implements ports.Analyzer and ports.Speaker on top of the Gemini API.
type Client struct {
	cfg       Config
	generator contentGenerator
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("GEMINI_API_KEY is not configured")
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.APIBaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.APIBaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newClient(cfg, modelsGenerator{client: client}), nil
}

func newClient(cfg Config, generator contentGenerator) *Client {
	if cfg.AnalysisModel == "" {
		cfg.AnalysisModel = DefaultAnalysisModel
	}
	if cfg.SpeechModel == "" {
		cfg.SpeechModel = DefaultSpeechModel
	}
	return &Client{cfg: cfg, generator: generator}
}

func (c *Client) AnalyzeAudio(ctx context.Context, clip domain.AudioClip) (domain.AnalysisResult, error) {
	mimeType := clip.MIMEType
	if mimeType == "" {
		mimeType = "audio/wav"
	}
	parts := []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: clip.Data}},
		{Text: audioInstruction()},
	}
	return c.analyze(ctx, parts)
}

func (c *Client) AnalyzeText(ctx context.Context, text string) (domain.AnalysisResult, error) {
	result, err := c.analyze(ctx, []*genai.Part{{Text: textInstruction(text)}})
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	result.Original = text
	return result, nil
}

func (c *Client) analyze(ctx context.Context, parts []*genai.Part) (domain.AnalysisResult, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.generator.GenerateContent(ctx, c.cfg.AnalysisModel, userContent(parts), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisSchema(),
	})
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	return parseAnalysis(responseText(resp))
}

func (c *Client) Speak(ctx context.Context, text string, voice domain.Voice) (domain.SpeechAudio, error) {
	if voice == "" {
		voice = domain.DefaultVoice
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.generator.GenerateContent(ctx, c.cfg.SpeechModel, userContent([]*genai.Part{{Text: speechInstruction(text)}}), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: string(voice)},
			},
		},
	})
	if err != nil {
		return domain.SpeechAudio{}, err
	}

	blob := firstInlineData(resp)
	if blob == nil || len(blob.Data) == 0 {
		return domain.SpeechAudio{}, ErrNoSpeechAudio
	}
	return domain.SpeechAudio{
		PCM:        blob.Data,
		SampleRate: sampleRateFromMIME(blob.MIMEType),
		Channels:   1,
	}, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

func userContent(parts []*genai.Part) []*genai.Content {
	return []*genai.Content{{Role: "user", Parts: parts}}
}

func analysisSchema() *genai.Schema {
	str := func() *genai.Schema { return &genai.Schema{Type: genai.TypeString} }
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"original": str(),
			"variations": {
				Type: genai.TypeArray,
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"id":          str(),
						"text":        str(),
						"label":       str(),
						"description": str(),
						"mood":        str(),
					},
					Required: []string{"id", "text", "label", "description", "mood"},
				},
			},
		},
		Required: []string{"original", "variations"},
	}
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

func firstInlineData(resp *genai.GenerateContentResponse) *genai.Blob {
	if resp == nil {
		return nil
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData
			}
		}
	}
	return nil
}

// parseAnalysis decodes the JSON body into a result with exactly three
// non-empty variations. Missing or duplicated ids get the first free vN.
func parseAnalysis(body string) (domain.AnalysisResult, error) {
	body = strings.TrimSpace(body)
	body = strings.TrimPrefix(body, "```json")
	body = strings.TrimPrefix(body, "```")
	body = strings.TrimSuffix(body, "```")
	body = strings.TrimSpace(body)
	if body == "" {
		return domain.AnalysisResult{}, errors.New("malformed analysis response: empty body")
	}

	var result domain.AnalysisResult
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("malformed analysis response: %w", err)
	}
	if len(result.Variations) != expectedVariations {
		return domain.AnalysisResult{}, fmt.Errorf("malformed analysis response: expected %d variations, got %d", expectedVariations, len(result.Variations))
	}

	seen := make(map[string]bool, len(result.Variations))
	for i := range result.Variations {
		v := &result.Variations[i]
		if strings.TrimSpace(v.Text) == "" {
			return domain.AnalysisResult{}, fmt.Errorf("malformed analysis response: variation %d has no text", i+1)
		}
		v.ID = strings.TrimSpace(v.ID)
		if v.ID == "" || seen[v.ID] {
			v.ID = freeID(seen)
		}
		seen[v.ID] = true
	}
	return result, nil
}

func freeID(seen map[string]bool) string {
	for n := 1; ; n++ {
		id := "v" + strconv.Itoa(n)
		if !seen[id] {
			return id
		}
	}
}

func sampleRateFromMIME(mimeType string) int {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return defaultSpeechSampleRate
	}
	rate, err := strconv.Atoi(params["rate"])
	if err != nil || rate <= 0 {
		return defaultSpeechSampleRate
	}
	return rate
}
