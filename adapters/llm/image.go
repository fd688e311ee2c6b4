package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/satriahrh/cocoa-fruit/storybook/domain"
	"github.com/satriahrh/cocoa-fruit/storybook/utils/log"
	"go.uber.org/zap"
)

const (
	imageStyle    = "Style: 3D render, bright colors, cute, pixar style, high quality, detailed, 8k resolution, cinematic lighting."
	imageMIMEType = "image/jpeg"
)

// GenerateImage draws one square illustration. Backend failures are logged and
// answered with the fallback image; only cancellation of ctx is returned as an error.
func (g *GeminiClient) GenerateImage(ctx context.Context, prompt string, quality domain.Quality) (domain.ImageRef, error) {
	img, err := g.generateImage(ctx, prompt, quality)
	if err == nil {
		return img, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	log.WithCtx(ctx).Warn("Image generation failed, using fallback image",
		zap.Bool("quota", isQuotaError(err)),
		zap.Error(err))
	return g.fallback, nil
}

func (g *GeminiClient) generateImage(ctx context.Context, prompt string, quality domain.Quality) (domain.ImageRef, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for image quota: %w", err)
	}

	resp, err := g.images.GenerateImages(ctx, g.opts.ImageModel, enhancePrompt(prompt, quality), &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: imageMIMEType,
		AspectRatio:    "1:1",
	})
	if err != nil {
		return nil, fmt.Errorf("generate images: %w", err)
	}

	if resp == nil || len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil ||
		len(resp.GeneratedImages[0].Image.ImageBytes) == 0 {
		return nil, errors.New("no image generated")
	}

	out := resp.GeneratedImages[0].Image
	mimeType := out.MIMEType
	if mimeType == "" {
		mimeType = imageMIMEType
	}
	log.WithCtx(ctx).Debug("🖼️ Image generated", zap.Int("bytes", len(out.ImageBytes)), zap.String("quality", string(quality)))
	return &domain.Image{Data: out.ImageBytes, MIMEType: mimeType}, nil
}

func enhancePrompt(prompt string, quality domain.Quality) string {
	return fmt.Sprintf("%s. %s Quality level: %s", prompt, imageStyle, quality.Resolution())
}
