package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/memento/internal/domain"
	"github.com/kailas-cloud/memento/internal/logger"
	"github.com/kailas-cloud/memento/internal/metrics"
)

const describePrompt = "You are a highly accurate image description model. " +
	"Your goal is to provide an extremely detailed, vivid description of the image to be indexed in a " +
	"vector database and searched to recall the image. Respond in bullet points to each of the following " +
	"aspects of the image, in order, without prefixing the points with labels.\n\n" +
	"- Describe the objects, people, and scenery in the image, including their positions, colors, shapes, " +
	"textures, and spatial relations.\n" +
	"- Identify any context or actions occurring in the image. Mention interactions between objects or people, if applicable.\n" +
	"- Describe any discernible emotions, expressions, or interactions of people or animals in the image.\n" +
	"- Extract and transcribe any visible text present in the image.\n" +
	"- Provide information on the location, time of day, or any other relevant context based on visual cues, if possible.\n\n" +
	"Be as comprehensive and specific as possible. If any information is not available, clearly state so."

// noText is the reply the OCR prompt asks for when the image has no text.
const noText = "NO_TEXT"

const ocrPrompt = "Transcribe all text visible in the image exactly as written, preserving line breaks. " +
	"Do not describe the image or add commentary. If there is no legible text, reply with " + noText + " only."

// Vision captions images and transcribes their text with a vision-capable chat model.
type Vision struct {
	client    *openai.Client
	model     string
	maxTokens int
	width     int
	height    int
	timeout   time.Duration
	logger    *zap.Logger
}

// VisionConfig holds the vision model settings.
type VisionConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	// Images are resized to Width x Height before upload.
	Width  int
	Height int
	// Timeout bounds each completion; zero leaves it to the caller's context.
	Timeout time.Duration
	Logger  *zap.Logger
}

// NewVision creates a vision client.
func NewVision(cfg *VisionConfig) *Vision {
	l := cfg.Logger
	if l == nil {
		l = zap.NewNop()
	}
	return &Vision{
		client:    newClient(cfg.APIKey, cfg.BaseURL),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		width:     cfg.Width,
		height:    cfg.Height,
		timeout:   cfg.Timeout,
		logger:    l,
	}
}

// Describe returns a natural-language description of the image.
func (v *Vision) Describe(ctx context.Context, image []byte) (string, error) {
	return v.complete(ctx, "caption", describePrompt, image)
}

// ExtractText returns the text visible in the image, or "" when there is none.
func (v *Vision) ExtractText(ctx context.Context, image []byte) (string, error) {
	text, err := v.complete(ctx, "ocr", ocrPrompt, image)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(strings.TrimSpace(text), noText) {
		return "", nil
	}
	return text, nil
}

func (v *Vision) complete(ctx context.Context, task, prompt string, image []byte) (_ string, err error) {
	dataURL, err := v.encode(image)
	if err != nil {
		return "", err
	}

	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() { metrics.ObserveProvider(providerName, task, start, err) }()
	resp, err := v.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     v.model,
		MaxTokens: v.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: dataURL, Detail: openai.ImageURLDetailAuto},
				}},
			},
		},
	})
	if err != nil {
		return "", parseAPIError(task, err, domain.ErrCaptionProviderError)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices returned: %w", task, domain.ErrCaptionProviderError)
	}

	logger.FromContext(ctx, v.logger).Debug("vision completion",
		zap.String("task", task),
		zap.String("model", v.model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("duration", time.Since(start)),
	)
	return resp.Choices[0].Message.Content, nil
}

// encode resizes the image and returns it as a JPEG data URL.
func (v *Vision) encode(image []byte) (string, error) {
	img, err := imaging.Decode(bytes.NewReader(image), imaging.AutoOrientation(true))
	if err != nil {
		return "", domain.NewValidationError("image", fmt.Sprintf("cannot decode: %v", err))
	}
	if v.width > 0 && v.height > 0 {
		img = imaging.Resize(img, v.width, v.height, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
