package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"wasteboz/api/internal/ewc"
	"wasteboz/api/internal/util"
)

var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is empty")

const DefaultTimeout = 60 * time.Second

// Gateway classifies waste through the Gemini API. One call to a Classify
// method is exactly one GenerateContent request; there are no retries.
type Gateway struct {
	Model   string
	Timeout time.Duration
	System  string

	gen generator
	log *logrus.Entry
}

type Option func(*Gateway)

func WithTimeout(d time.Duration) Option { return func(g *Gateway) { g.Timeout = d } }

func WithSystemInstruction(s string) Option {
	return func(g *Gateway) {
		if s = strings.TrimSpace(s); s != "" {
			g.System = s
		}
	}
}

func WithLogger(l *logrus.Entry) Option { return func(g *Gateway) { g.log = l } }

// New validates the credential up front: a gateway without a key is a
// configuration error, not a classification failure.
func New(apiKey, model string, opts ...Option) (*Gateway, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	g := &Gateway{
		Model:   strings.TrimSpace(model),
		Timeout: DefaultTimeout,
		System:  SystemInstruction,
		gen:     &clientGenerator{opts: []option.ClientOption{option.WithAPIKey(apiKey)}},
		log:     logrus.WithField("component", "gemini"),
	}
	for _, o := range opts {
		o(g)
	}
	if g.Model == "" {
		return nil, fmt.Errorf("gemini: model is empty")
	}
	return g, nil
}

func (g *Gateway) GetModel() string { return g.Model }

// ClassifyByText asks for codes matching a free-text description.
func (g *Gateway) ClassifyByText(ctx context.Context, query string) ([]ewc.WasteCode, error) {
	req := g.request(textTemperature, genai.Text(fmt.Sprintf(textPromptFmt, query)))
	return g.classify(ctx, ewc.OpText, req)
}

// ClassifyByImage accepts raw base64 or a data URL; the header is stripped and
// its MIME type kept for the blob.
func (g *Gateway) ClassifyByImage(ctx context.Context, imageData string) ([]ewc.WasteCode, error) {
	data, hint, err := util.DecodeBase64MaybeDataURL(imageData)
	if err != nil {
		g.log.WithError(err).WithField("op", ewc.OpImage).Warn("gemini: image payload rejected")
		return nil, ewc.NewClassificationError(ewc.OpImage, ewc.ErrInvalidInput)
	}
	blob := genai.Blob{MIMEType: util.PickMIME("", hint, data), Data: data}
	req := g.request(imageTemperature, blob, genai.Text(imagePrompt))
	return g.classify(ctx, ewc.OpImage, req)
}

func (g *Gateway) request(temperature float32, parts ...genai.Part) request {
	return request{
		Model: g.Model,
		System: &genai.Content{
			Parts: []genai.Part{genai.Text(g.System)},
		},
		Config: genai.GenerationConfig{
			Temperature:      ptrFloat32(temperature),
			ResponseMIMEType: "application/json",
			ResponseSchema:   ResponseSchema(),
		},
		Parts: parts,
	}
}

func (g *Gateway) classify(ctx context.Context, op ewc.Op, req request) ([]ewc.WasteCode, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}
	log := g.log.WithFields(logrus.Fields{"op": op, "model": req.Model})

	start := time.Now()
	resp, err := g.gen.generate(ctx, req)
	if err != nil {
		log.WithError(err).Error("gemini: request failed")
		return nil, ewc.NewClassificationError(op, ewc.ErrTransport)
	}
	codes, err := ParseCodes(firstText(resp))
	if err != nil {
		log.WithError(err).Warn("gemini: unusable payload")
		return nil, ewc.NewClassificationError(op, ewc.ErrSchemaViolation)
	}
	log.WithFields(logrus.Fields{
		"results": len(codes),
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Debug("gemini: classified")
	return codes, nil
}

// ParseCodes decodes the model text into normalized codes. Empty text is an
// empty result; anything that is not an array of complete objects is an error.
func ParseCodes(txt string) ([]ewc.WasteCode, error) {
	txt = util.StripCodeFences(txt)
	if txt == "" {
		return []ewc.WasteCode{}, nil
	}
	if !strings.HasPrefix(txt, "[") {
		return nil, fmt.Errorf("want JSON array, got %q", util.Truncate(txt, 40))
	}
	var raw []ewc.RawCode
	if err := json.Unmarshal([]byte(txt), &raw); err != nil {
		return nil, fmt.Errorf("bad JSON: %w", err)
	}
	codes := make([]ewc.WasteCode, 0, len(raw))
	for i, r := range raw {
		if missing := r.Missing(); len(missing) > 0 {
			return nil, fmt.Errorf("item %d: missing %s", i, strings.Join(missing, ", "))
		}
		codes = append(codes, r.WasteCode())
	}
	return ewc.NormalizeAll(codes), nil
}

// --------------------------- transport ---------------------------

type request struct {
	Model  string
	System *genai.Content
	Config genai.GenerationConfig
	Parts  []genai.Part
}

type generator interface {
	generate(ctx context.Context, req request) (*genai.GenerateContentResponse, error)
}

type clientGenerator struct {
	opts []option.ClientOption
}

func (c *clientGenerator) generate(ctx context.Context, req request) (*genai.GenerateContentResponse, error) {
	cl, err := genai.NewClient(ctx, c.opts...)
	if err != nil {
		return nil, err
	}
	defer cl.Close()

	m := cl.GenerativeModel(req.Model)
	if m == nil {
		return nil, fmt.Errorf("gemini: model is nil")
	}
	m.GenerationConfig = req.Config
	m.SystemInstruction = req.System
	return m.GenerateContent(ctx, req.Parts...)
}

// --------------------------- helpers ---------------------------

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
