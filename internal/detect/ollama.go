package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jmorganca/ollama/api"

	"box-labeler/pkg/geometry"
)

// visionPrompt asks the model for machine-readable boxes only. The
// normalized coordinate contract matches the label format, so parsing
// reuses no model-specific conventions.
const visionPrompt = `You are an object detector.

Return JSON only, in this exact shape:
{"objects":[{"label":"string","confidence":0.0,"box":{"x":0.0,"y":0.0,"w":0.0,"h":0.0}}]}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels).
- box.x and box.y are the top-left corner; box.w and box.h are the extent.
- One entry per distinct object. Tight boxes.
- If nothing is found, return {"objects":[]}.
- JSON only. No markdown, no code fences, no comments.`

const defaultVisionTimeout = 300 * time.Second

// VisionModel proposes boxes by asking an ollama-hosted vision model to
// describe objects as JSON. Every proposal gets the configured class;
// mapping model labels to dataset classes stays with the reviewer.
type VisionModel struct {
	client *api.Client
	model  string
	Class  int
}

// NewVisionModel builds a proposer against an ollama server. Any path on
// the host URL is ignored; only scheme and host are used.
func NewVisionModel(host, model string) (*VisionModel, error) {
	parsed, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host: %w", err)
	}
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return &VisionModel{
		client: api.NewClient(base, http.DefaultClient),
		model:  model,
	}, nil
}

func (d *VisionModel) Name() string {
	return "vision:" + d.model
}

func (d *VisionModel) Propose(ctx context.Context, img image.Image) ([]Proposal, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultVisionTimeout)
		defer cancel()
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for model: %w", err)
	}

	stream := false
	req := &api.ChatRequest{
		Model: d.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: visionPrompt,
				Images:  []api.ImageData{api.ImageData(buf.Bytes())},
			},
		},
		Stream: &stream,
	}

	var content string
	err := d.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content = resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}
	if content == "" {
		return nil, fmt.Errorf("empty response from model %s", d.model)
	}

	bounds := img.Bounds()
	return parseVisionResponse(content, d.Class,
		float64(bounds.Dx()), float64(bounds.Dy()))
}

type visionResponse struct {
	Objects []struct {
		Label      string  `json:"label"`
		Confidence float64 `json:"confidence"`
		Box        struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
			W float64 `json:"w"`
			H float64 `json:"h"`
		} `json:"box"`
	} `json:"objects"`
}

// parseVisionResponse extracts proposals from the model reply. Models
// wrap JSON in fences or prose often enough that the parser slices out
// the outermost object before unmarshalling.
func parseVisionResponse(raw string, class int, imgW, imgH float64) ([]Proposal, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	var resp visionResponse
	if err := json.Unmarshal([]byte(raw[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	out := make([]Proposal, 0, len(resp.Objects))
	for _, obj := range resp.Objects {
		x := obj.Box.X * imgW
		y := obj.Box.Y * imgH
		out = append(out, Proposal{
			Class:      class,
			Rect:       geometry.NewBox(x, y, x+obj.Box.W*imgW, y+obj.Box.H*imgH),
			Confidence: clampConf(obj.Confidence),
			HasConf:    true,
		})
	}
	return out, nil
}

func clampConf(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
