package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/raphaelgruber/campusdesk/internal/models"
)

// converseAPI is the subset of the Bedrock runtime client the adapter uses.
type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockClient adapts the AWS Bedrock Converse API. Messages carry lists of
// content blocks and consecutive turns of the same role must be merged.
type BedrockClient struct {
	api     converseAPI
	modelID string
}

// Compile-time check that BedrockClient implements Provider.
var _ Provider = (*BedrockClient)(nil)

// NewBedrock creates a Bedrock adapter using the default AWS credential chain.
func NewBedrock(ctx context.Context, region, modelID string) (*BedrockClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewBedrockWithClient(bedrockruntime.NewFromConfig(awsCfg), modelID), nil
}

// NewBedrockWithClient wraps an existing Converse client.
func NewBedrockWithClient(api converseAPI, modelID string) *BedrockClient {
	return &BedrockClient{api: api, modelID: modelID}
}

// Name returns the backend name.
func (c *BedrockClient) Name() string {
	return "bedrock"
}

// Complete sends the conversation through Converse.
func (c *BedrockClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	out, err := c.api.Converse(ctx, bedrockInput(c.modelID, req))
	if err != nil {
		return nil, Classify(fmt.Errorf("bedrock converse: %w", err))
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return nil, Classify(fmt.Errorf("bedrock converse: unexpected output type %T", out.Output))
	}

	var text strings.Builder
	for _, block := range msg.Value.Content {
		if tb, ok := block.(*types.ContentBlockMemberText); ok {
			text.WriteString(tb.Value)
		}
	}

	completion := &Completion{Text: text.String()}
	if u := out.Usage; u != nil {
		completion.Usage = &models.Usage{
			PromptTokens:     int(aws.ToInt32(u.InputTokens)),
			CompletionTokens: int(aws.ToInt32(u.OutputTokens)),
			TotalTokens:      int(aws.ToInt32(u.TotalTokens)),
		}
	}
	return completion, nil
}

// bedrockInput builds the Converse request, merging consecutive same-role
// turns into one message with several text blocks.
func bedrockInput(modelID string, req Request) *bedrockruntime.ConverseInput {
	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(modelID),
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(int32(req.MaxTokens)),
			Temperature: aws.Float32(float32(req.Temperature)),
		},
	}
	if req.System != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		}
	}

	for _, t := range req.Turns {
		role := types.ConversationRoleUser
		if t.Role == models.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		block := &types.ContentBlockMemberText{Value: t.Content}

		if n := len(input.Messages); n > 0 && input.Messages[n-1].Role == role {
			input.Messages[n-1].Content = append(input.Messages[n-1].Content, block)
			continue
		}
		input.Messages = append(input.Messages, types.Message{
			Role:    role,
			Content: []types.ContentBlock{block},
		})
	}
	return input
}
