package gemini

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wasteboz/api/internal/ewc"
)

type fakeGen struct {
	calls []request
	resp  *genai.GenerateContentResponse
	err   error

	hadDeadline bool
}

func (f *fakeGen) generate(ctx context.Context, req request) (*genai.GenerateContentResponse, error) {
	f.calls = append(f.calls, req)
	_, f.hadDeadline = ctx.Deadline()
	return f.resp, f.err
}

func textResponse(s string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(s)}},
		}},
	}
}

func newTestGateway(t *testing.T, f *fakeGen) (*Gateway, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	g, err := New("test-key", "gemini-2.5-flash", WithLogger(logrus.NewEntry(logger)))
	require.NoError(t, err)
	g.gen = f
	return g, hook
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New("  ", "gemini-2.5-flash")
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	_, err = New("key", "")
	assert.Error(t, err)
}

func TestClassifyByText_BuildsSchemaConstrainedRequest(t *testing.T) {
	f := &fakeGen{resp: textResponse(`[]`)}
	g, _ := newTestGateway(t, f)

	_, err := g.ClassifyByText(context.Background(), "paint cans")
	require.NoError(t, err)
	require.Len(t, f.calls, 1)

	req := f.calls[0]
	assert.Equal(t, "gemini-2.5-flash", req.Model)
	require.NotNil(t, req.Config.Temperature)
	assert.Equal(t, float32(0.3), *req.Config.Temperature)
	assert.Equal(t, "application/json", req.Config.ResponseMIMEType)

	schema := req.Config.ResponseSchema
	require.NotNil(t, schema)
	assert.Equal(t, genai.TypeArray, schema.Type)
	require.NotNil(t, schema.Items)
	assert.ElementsMatch(t, []string{"code", "description", "category", "hazardous"}, schema.Items.Required)
	assert.Contains(t, schema.Items.Properties, "confidence")

	require.NotNil(t, req.System)
	require.Len(t, req.System.Parts, 1)
	assert.Contains(t, string(req.System.Parts[0].(genai.Text)), "asterisk (*)")
	assert.Contains(t, string(req.System.Parts[0].(genai.Text)), "'XX XX XX'")

	require.Len(t, req.Parts, 1)
	assert.Equal(t, genai.Text(`Find relevant EWC codes for: "paint cans".`), req.Parts[0])
	assert.True(t, f.hadDeadline, "call is bounded by a timeout")
}

func TestClassifyByImage_StripsDataURLAndUsesBlob(t *testing.T) {
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	f := &fakeGen{resp: textResponse(`[]`)}
	g, _ := newTestGateway(t, f)

	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	_, err := g.ClassifyByImage(context.Background(), dataURL)
	require.NoError(t, err)
	require.Len(t, f.calls, 1)

	req := f.calls[0]
	assert.Equal(t, float32(0.4), *req.Config.Temperature)
	require.Len(t, req.Parts, 2)
	blob, ok := req.Parts[0].(genai.Blob)
	require.True(t, ok, "first part is the image blob")
	assert.Equal(t, "image/png", blob.MIMEType)
	assert.Equal(t, png, blob.Data)
	assert.Contains(t, string(req.Parts[1].(genai.Text)), "Analyze this image of waste")
}

func TestClassifyByImage_RawBase64DefaultsToSniffedMIME(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	f := &fakeGen{resp: textResponse(``)}
	g, _ := newTestGateway(t, f)

	_, err := g.ClassifyByImage(context.Background(), base64.StdEncoding.EncodeToString(jpeg))
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", f.calls[0].Parts[0].(genai.Blob).MIMEType)
}

func TestClassifyByImage_BadPayloadMakesNoCall(t *testing.T) {
	f := &fakeGen{}
	g, _ := newTestGateway(t, f)

	_, err := g.ClassifyByImage(context.Background(), "data:image/jpeg;base64,@@@")
	var ce *ewc.ClassificationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ewc.MsgImageFailure, err.Error())
	assert.ErrorIs(t, err, ewc.ErrInvalidInput)
	assert.Empty(t, f.calls)
}

func TestClassify_ParsesAndNormalizes(t *testing.T) {
	f := &fakeGen{resp: textResponse("```json\n" + `[
		{"code":"20 01 27*","description":"Paint, inks...","category":"Household waste","hazardous":false,"confidence":92},
		{"code":"080112","description":"Waste paint","category":"Chapter 08","hazardous":false}
	]` + "\n```")}
	g, _ := newTestGateway(t, f)

	got, err := g.ClassifyByText(context.Background(), "paint cans")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "20 01 27*", got[0].Code)
	assert.True(t, got[0].Hazardous, "asterisk overrides hazardous=false")
	require.NotNil(t, got[0].Confidence)
	assert.Equal(t, 92.0, *got[0].Confidence)

	assert.Equal(t, "08 01 12", got[1].Code)
	assert.False(t, got[1].Hazardous)
	assert.Nil(t, got[1].Confidence)
}

func TestClassify_EmptyResponseIsEmptyResult(t *testing.T) {
	for name, resp := range map[string]*genai.GenerateContentResponse{
		"nil":           nil,
		"no candidates": {},
		"empty text":    textResponse(""),
		"no content":    {Candidates: []*genai.Candidate{{}}},
	} {
		t.Run(name, func(t *testing.T) {
			g, _ := newTestGateway(t, &fakeGen{resp: resp})
			got, err := g.ClassifyByText(context.Background(), "glass")
			require.NoError(t, err)
			assert.NotNil(t, got)
			assert.Empty(t, got)
		})
	}
}

func TestClassify_TransportFailureIsGeneric(t *testing.T) {
	f := &fakeGen{err: errors.New("dial tcp: lookup generativelanguage.googleapis.com: no such host")}
	g, hook := newTestGateway(t, f)

	_, err := g.ClassifyByText(context.Background(), "solvent")
	require.Error(t, err)
	assert.Equal(t, ewc.MsgTextFailure, err.Error())
	assert.NotContains(t, err.Error(), "no such host")
	assert.ErrorIs(t, err, ewc.ErrTransport)
	assert.Len(t, f.calls, 1, "no retry")

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Contains(t, entry.Data[logrus.ErrorKey].(error).Error(), "no such host")
}

func TestClassify_SchemaViolations(t *testing.T) {
	for name, body := range map[string]string{
		"not json":       `the code is 20 01 27*`,
		"object":         `{"code":"20 01 01"}`,
		"missing field":  `[{"code":"20 01 01","description":"x","hazardous":false}]`,
		"wrong type":     `[{"code":"20 01 01","description":"x","category":"y","hazardous":"no"}]`,
		"null item":      `[null]`,
		"truncated json": `[{"code":"20 01 01",`,
	} {
		t.Run(name, func(t *testing.T) {
			g, _ := newTestGateway(t, &fakeGen{resp: textResponse(body)})
			_, err := g.ClassifyByImage(context.Background(), base64.StdEncoding.EncodeToString([]byte{0xFF, 0xD8}))
			require.Error(t, err)
			assert.Equal(t, ewc.MsgImageFailure, err.Error())
			assert.ErrorIs(t, err, ewc.ErrSchemaViolation)
		})
	}
}

func TestWithOptions(t *testing.T) {
	g, err := New("k", "m", WithTimeout(5*time.Second), WithSystemInstruction("  custom rules "))
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, g.Timeout)
	assert.Equal(t, "custom rules", g.System)
	assert.Equal(t, "m", g.GetModel())

	g, err = New("k", "m", WithSystemInstruction(" "))
	require.NoError(t, err)
	assert.Equal(t, SystemInstruction, g.System)
}

func TestLoadSystemInstruction(t *testing.T) {
	s, err := LoadSystemInstruction("")
	require.NoError(t, err)
	assert.Equal(t, SystemInstruction, s)

	dir := t.TempDir()
	s, err = LoadSystemInstruction(dir)
	require.NoError(t, err)
	assert.Equal(t, SystemInstruction, s, "absent override falls back")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ewc.system.txt"), []byte("  Custom rules.\n"), 0o644))
	s, err = LoadSystemInstruction(dir)
	require.NoError(t, err)
	assert.Equal(t, "Custom rules.", s)
}
