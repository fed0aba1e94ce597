package gemini

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"google.golang.org/genai"

	"chelouizer/internal/domain"
)

type fakeGenerator struct {
	resp *genai.GenerateContentResponse
	err  error

	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	deadline bool
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	_, f.deadline = ctx.Deadline()
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: "model"}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

const threeVariations = `{"original":"bonjour","variations":[
{"id":"v1","text":"bon-bon-jour","label":"Le Glitch","description":"robot","mood":"cassé"},
{"id":"v2","text":"je téléporte mon fromage","label":"Le Surréaliste","description":"lunaire","mood":"rêveur"},
{"id":"v3","text":"le jour, tu vois, c'est comme un fromage","label":"Le Philosophe Bourré","description":"confus","mood":"pompette"}]}`

func TestAnalyzeAudioSendsInlineAudioAndSchema(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{resp: textResponse(threeVariations)}
	client := newClient(Config{Timeout: time.Second}, gen)

	clip := domain.AudioClip{Data: []byte("RIFF"), MIMEType: "audio/wav"}
	result, err := client.AnalyzeAudio(context.Background(), clip)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if result.Original != "bonjour" || len(result.Variations) != 3 || result.Variations[1].ID != "v2" {
		t.Fatalf("unexpected result: %+v", result)
	}

	if gen.model != DefaultAnalysisModel {
		t.Fatalf("unexpected model %q", gen.model)
	}
	if !gen.deadline {
		t.Fatalf("expected the configured timeout on the request context")
	}
	parts := gen.contents[0].Parts
	if len(parts) != 2 || parts[0].InlineData == nil || string(parts[0].InlineData.Data) != "RIFF" || parts[0].InlineData.MIMEType != "audio/wav" {
		t.Fatalf("expected inline audio first, got %+v", parts)
	}
	if !strings.HasPrefix(parts[1].Text, "Analyse cet audio. 1. Transcris exactement") {
		t.Fatalf("unexpected instruction: %q", parts[1].Text)
	}
	if gen.config.ResponseMIMEType != "application/json" || gen.config.ResponseSchema == nil {
		t.Fatalf("expected json response mode with schema")
	}
	items := gen.config.ResponseSchema.Properties["variations"].Items
	if items == nil || len(items.Required) != 5 {
		t.Fatalf("unexpected variation schema: %+v", items)
	}
}

func TestAnalyzeAudioForwardsEmptyClip(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{resp: textResponse(threeVariations)}
	if _, err := newClient(Config{}, gen).AnalyzeAudio(context.Background(), domain.AudioClip{}); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	blob := gen.contents[0].Parts[0].InlineData
	if blob == nil || len(blob.Data) != 0 || blob.MIMEType != "audio/wav" {
		t.Fatalf("expected empty wav payload, got %+v", blob)
	}
	if gen.deadline {
		t.Fatalf("expected no deadline without a timeout")
	}
}

func TestAnalyzeTextForcesOriginal(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{resp: textResponse(threeVariations)}
	result, err := newClient(Config{AnalysisModel: "custom"}, gen).AnalyzeText(context.Background(), "salut les amis")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if result.Original != "salut les amis" {
		t.Fatalf("expected submitted text as original, got %q", result.Original)
	}
	if gen.model != "custom" {
		t.Fatalf("unexpected model %q", gen.model)
	}
	if !strings.HasPrefix(gen.contents[0].Parts[0].Text, `Voici un texte : "salut les amis".`) {
		t.Fatalf("unexpected instruction: %q", gen.contents[0].Parts[0].Text)
	}
}

func TestAnalyzeTextKeepsUserTextUnescaped(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{resp: textResponse(threeVariations)}
	text := "il a dit \"non\"\npuis é"
	if _, err := newClient(Config{}, gen).AnalyzeText(context.Background(), text); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	prompt := gen.contents[0].Parts[0].Text
	if !strings.HasPrefix(prompt, "Voici un texte : \"il a dit \"non\"\npuis é\".") {
		t.Fatalf("expected the text verbatim, got %q", prompt)
	}
	if strings.Contains(prompt, `\n`) || strings.Contains(prompt, `\"`) {
		t.Fatalf("expected no escape sequences in the prompt, got %q", prompt)
	}
}

func TestAnalyzeReturnsServiceError(t *testing.T) {
	t.Parallel()

	serviceErr := errors.New("quota exceeded")
	_, err := newClient(Config{}, &fakeGenerator{err: serviceErr}).AnalyzeText(context.Background(), "x")
	if !errors.Is(err, serviceErr) {
		t.Fatalf("expected service error, got %v", err)
	}
}

func TestAnalyzeRejectsMalformedBodies(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"empty":      "",
		"not json":   "je ne suis pas du json",
		"two":        `{"original":"a","variations":[{"id":"v1","text":"x"},{"id":"v2","text":"y"}]}`,
		"blank text": `{"original":"a","variations":[{"id":"v1","text":"x"},{"id":"v2","text":" "},{"id":"v3","text":"z"}]}`,
	}
	for name, body := range cases {
		gen := &fakeGenerator{resp: textResponse(body)}
		if _, err := newClient(Config{}, gen).AnalyzeText(context.Background(), "a"); err == nil {
			t.Fatalf("%s: expected malformed response error", name)
		}
	}

	if _, err := newClient(Config{}, &fakeGenerator{resp: &genai.GenerateContentResponse{}}).AnalyzeText(context.Background(), "a"); err == nil {
		t.Fatalf("expected error without candidates")
	}
}

func TestParseAnalysisNormalizesIDsAndFences(t *testing.T) {
	t.Parallel()

	body := "```json\n" + `{"original":"o","variations":[{"text":"a"},{"id":"v1","text":"b"},{"id":"v1","text":"c"}]}` + "\n```"
	result, err := parseAnalysis(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	got := []string{result.Variations[0].ID, result.Variations[1].ID, result.Variations[2].ID}
	if got[0] != "v1" || got[1] != "v2" || got[2] != "v3" {
		t.Fatalf("unexpected ids: %v", got)
	}
}

func TestResponseTextSkipsThoughtsAndJoinsParts(t *testing.T) {
	t.Parallel()

	resp := textResponse(`{"original":`, `"x"}`)
	resp.Candidates[0].Content.Parts = append([]*genai.Part{{Text: "hmm", Thought: true}}, resp.Candidates[0].Content.Parts...)
	if got := responseText(resp); got != `{"original":"x"}` {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestSpeakReturnsInlinePCM(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{
			{Text: "voilà"},
			{InlineData: &genai.Blob{MIMEType: "audio/L16;codec=pcm;rate=22050", Data: []byte{1, 0, 2, 0}}},
		}},
	}}}}

	speech, err := newClient(Config{}, gen).Speak(context.Background(), "bon-bon-jour", domain.VoiceKore)
	if err != nil {
		t.Fatalf("speak failed: %v", err)
	}
	if speech.SampleRate != 22050 || speech.Channels != 1 || len(speech.PCM) != 4 {
		t.Fatalf("unexpected speech: %+v", speech)
	}
	if gen.model != DefaultSpeechModel {
		t.Fatalf("unexpected model %q", gen.model)
	}
	if len(gen.config.ResponseModalities) != 1 || gen.config.ResponseModalities[0] != "AUDIO" {
		t.Fatalf("expected audio modality, got %v", gen.config.ResponseModalities)
	}
	if gen.config.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Kore" {
		t.Fatalf("expected Kore voice")
	}
	if !strings.HasSuffix(gen.contents[0].Parts[0].Text, ": bon-bon-jour") {
		t.Fatalf("unexpected speech prompt: %q", gen.contents[0].Parts[0].Text)
	}
}

func TestSpeakWithoutAudioFails(t *testing.T) {
	t.Parallel()

	_, err := newClient(Config{}, &fakeGenerator{resp: textResponse("désolé")}).Speak(context.Background(), "x", "")
	if !errors.Is(err, ErrNoSpeechAudio) {
		t.Fatalf("expected ErrNoSpeechAudio, got %v", err)
	}
}

func TestSampleRateFromMIME(t *testing.T) {
	t.Parallel()

	cases := map[string]int{
		"audio/L16;codec=pcm;rate=24000": 24000,
		"audio/L16;rate=16000":           16000,
		"audio/L16":                      24000,
		"":                               24000,
		"audio/L16;rate=abc":             24000,
	}
	for mimeType, want := range cases {
		if got := sampleRateFromMIME(mimeType); got != want {
			t.Fatalf("%q: expected %d, got %d", mimeType, want, got)
		}
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(context.Background(), Config{APIKey: "  "}); err == nil {
		t.Fatalf("expected missing api key error")
	}
}
