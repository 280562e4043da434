package agent

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

// Prompts holds the instruction texts sent to the language service.
type Prompts struct {
	SupportAssistant string `yaml:"support_assistant"`
	ImageAnalysis    string `yaml:"image_analysis"`
	PolicyRefinement string `yaml:"policy_refinement"`
	FallbackReply    string `yaml:"fallback_reply"`

	refinement *template.Template
}

// RefinementInput fills the policy refinement prompt.
type RefinementInput struct {
	CurrentPolicy string
	IssueContext  string
	Feedback      string
}

// LoadPrompts parses the embedded prompt set.
func LoadPrompts() (*Prompts, error) {
	return parsePrompts(promptsYAML)
}

func parsePrompts(raw []byte) (*Prompts, error) {
	var p Prompts
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	for name, text := range map[string]string{
		"support_assistant": p.SupportAssistant,
		"image_analysis":    p.ImageAnalysis,
		"policy_refinement": p.PolicyRefinement,
		"fallback_reply":    p.FallbackReply,
	} {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("prompt %q is empty", name)
		}
	}

	tmpl, err := template.New("policy_refinement").Option("missingkey=error").Parse(p.PolicyRefinement)
	if err != nil {
		return nil, fmt.Errorf("parse policy refinement template: %w", err)
	}
	p.refinement = tmpl
	return &p, nil
}

// SystemPrompt combines the assistant instructions with the company policy.
func (p *Prompts) SystemPrompt(policy string) string {
	return strings.TrimSpace(p.SupportAssistant) + "\n\nCURRENT POLICY:\n" + policy
}

// Refinement renders the policy rewrite instruction.
func (p *Prompts) Refinement(in RefinementInput) (string, error) {
	var b strings.Builder
	if err := p.refinement.Execute(&b, in); err != nil {
		return "", fmt.Errorf("render policy refinement: %w", err)
	}
	return b.String(), nil
}
