// Package insight turns a resource summary into a human-readable
// infrastructure analysis. The engine core only produces the summary;
// generators here own the outbound call (or none, for the offline one).
package insight

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"

	"terraform-archviz/internal/summary"
)

// Generator produces an insight text for a summary.
type Generator interface {
	Generate(ctx context.Context, s *summary.Summary) (string, error)
}

const systemPrompt = "You are an infrastructure architect reviewing a " +
	"parsed Terraform state. Comment on the architecture, security " +
	"posture, cost optimization, and best practices. Be concrete and brief."

// OpenAIGenerator calls a chat-completion API with the summary text.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator builds a generator for the given API key and model.
func NewOpenAIGenerator(apiKey, model string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("insight: API key is required")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIGenerator{client: openai.NewClient(apiKey), model: model}, nil
}

func (g *OpenAIGenerator) Generate(ctx context.Context, s *summary.Summary) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: s.Text()},
		},
	}

	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("insight generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("insight generation returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// StaticGenerator produces a deterministic offline analysis from the
// summary alone. Used when no API key is configured.
type StaticGenerator struct{}

func (StaticGenerator) Generate(_ context.Context, s *summary.Summary) (string, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "## Infrastructure Analysis\n\n")
	fmt.Fprintf(&b, "**Provider**: %s\n", strings.ToUpper(string(s.Provider)))
	fmt.Fprintf(&b, "**Total Resources**: %d\n\n", s.TotalResources)

	fmt.Fprintf(&b, "### Resource Breakdown\n")
	types := make([]string, 0, len(s.ResourceCounts))
	for t := range s.ResourceCounts {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(&b, "- **%s**: %d\n", t, s.ResourceCounts[t])
	}

	b.WriteString(`
### Security Recommendations
- Ensure network security groups allow only the required access
- Keep backend resources on private subnets
- Enable encryption for storage accounts and buckets
- Review IAM roles and permissions regularly

### Cost Optimization
- Consider reserved capacity for long-running compute
- Right-size instances against observed utilization
- Enable cost monitoring and alerts

### Best Practices
- Tag all resources for ownership and environment
- Keep state under version-controlled infrastructure as code
- Back up critical data stores
`)

	return b.String(), nil
}
