package agent

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"google.golang.org/adk/model"
	"google.golang.org/genai"
)

type fakeLLM struct {
	replies []string
	err     error
	last    *model.LLMRequest
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) GenerateContent(_ context.Context, req *model.LLMRequest, _ bool) iter.Seq2[*model.LLMResponse, error] {
	f.last = req
	return func(yield func(*model.LLMResponse, error) bool) {
		if f.err != nil {
			yield(nil, f.err)
			return
		}
		for _, reply := range f.replies {
			if !yield(&model.LLMResponse{Content: genai.NewContentFromText(reply, genai.RoleModel)}, nil) {
				return
			}
		}
	}
}

func TestGatewayCompleteBuildsRequest(t *testing.T) {
	llm := &fakeLLM{replies: []string{"Hello ", "there"}}
	gw := NewGateway(llm)

	got, err := gw.Complete(context.Background(), CompletionRequest{
		SystemPrompt: "be helpful",
		History: []Turn{
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "hello, how can I help?"},
			{Role: RoleUser, Content: "   "},
		},
		UserText: "my item broke",
		Image:    &Image{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hello there" {
		t.Fatalf("expected concatenated reply, got %q", got)
	}

	req := llm.last
	if req.Config == nil || req.Config.SystemInstruction == nil {
		t.Fatalf("expected system instruction to be set")
	}
	if len(req.Contents) != 3 {
		t.Fatalf("expected 2 history turns plus the user turn, got %d", len(req.Contents))
	}
	if req.Contents[1].Role != "model" {
		t.Fatalf("assistant turns should map to the model role, got %q", req.Contents[1].Role)
	}
	final := req.Contents[2]
	if len(final.Parts) != 2 || final.Parts[0].InlineData == nil || final.Parts[1].Text != "my item broke" {
		t.Fatalf("expected image part followed by text part, got %+v", final.Parts)
	}
}

func TestGatewayCompleteErrors(t *testing.T) {
	gw := NewGateway(&fakeLLM{err: errors.New("quota exceeded")})
	if _, err := gw.Complete(context.Background(), CompletionRequest{UserText: "x"}); err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected wrapped model error, got %v", err)
	}

	gw = NewGateway(&fakeLLM{replies: []string{"  "}})
	if _, err := gw.Complete(context.Background(), CompletionRequest{UserText: "x"}); !errors.Is(err, ErrEmptyCompletion) {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

func TestGatewayOmitsEmptySystemPrompt(t *testing.T) {
	llm := &fakeLLM{replies: []string{"ok"}}
	if _, err := NewGateway(llm).Complete(context.Background(), CompletionRequest{UserText: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.last.Config.SystemInstruction != nil {
		t.Fatalf("expected no system instruction")
	}
}

type recordingGateway struct {
	reply string
	err   error
	reqs  []CompletionRequest
}

func (g *recordingGateway) Complete(_ context.Context, req CompletionRequest) (string, error) {
	g.reqs = append(g.reqs, req)
	return g.reply, g.err
}

func TestImageAnalyzerAddsCameraHint(t *testing.T) {
	prompts, err := LoadPrompts()
	if err != nil {
		t.Fatalf("load prompts: %v", err)
	}
	gw := &recordingGateway{reply: "Verification Failed: screenshot"}
	analyzer := NewImageAnalyzer(gw, prompts)

	got, err := analyzer.Analyze(context.Background(), Image{MIMEType: "image/png", Data: []byte("not-a-jpeg")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !VerificationFailed(got) {
		t.Fatalf("expected verification failure to be detected in %q", got)
	}
	sent := gw.reqs[0]
	if !strings.HasPrefix(sent.UserText, "Analyze this image.") || !strings.Contains(sent.UserText, "Camera metadata: none found") {
		t.Fatalf("unexpected analysis prompt %q", sent.UserText)
	}
	if sent.Image == nil || sent.Image.MIMEType != "image/png" {
		t.Fatalf("expected image to be attached")
	}
}

func TestImageAnalyzerRejectsEmptyImage(t *testing.T) {
	prompts, _ := LoadPrompts()
	if _, err := NewImageAnalyzer(&recordingGateway{}, prompts).Analyze(context.Background(), Image{}); err == nil {
		t.Fatalf("expected error for empty image")
	}
}

func TestPrompts(t *testing.T) {
	prompts, err := LoadPrompts()
	if err != nil {
		t.Fatalf("load prompts: %v", err)
	}

	system := prompts.SystemPrompt("30 day returns")
	if !strings.Contains(system, "Support Assistant") || !strings.HasSuffix(system, "CURRENT POLICY:\n30 day returns") {
		t.Fatalf("unexpected system prompt %q", system)
	}

	refine, err := prompts.Refinement(RefinementInput{CurrentPolicy: "P", IssueContext: "C", Feedback: "F"})
	if err != nil {
		t.Fatalf("render refinement: %v", err)
	}
	for _, want := range []string{"Current Policy: P", "Issue Context: C", "Feedback: F", "Output NEW POLICY text only."} {
		if !strings.Contains(refine, want) {
			t.Fatalf("refinement prompt missing %q: %q", want, refine)
		}
	}

	if _, err := parsePrompts([]byte("support_assistant: hi\n")); err == nil {
		t.Fatalf("expected missing prompts to fail")
	}
}
