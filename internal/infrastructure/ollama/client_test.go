package ollama

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pillscan/backend/internal/domain"
)

const validReply = `{
  "shape": "round",
  "color": "white",
  "sizeMm": 11.5,
  "thicknessMm": 4.0,
  "frontImprint": "L484",
  "backImprint": "unclear",
  "scoring": "no score",
  "coating": "film",
  "notes": "slightly worn edge",
  "confidence": 0.85
}`

func TestNewClient(t *testing.T) {
	client, err := NewClient("http://localhost:11434", "llama3.2-vision", 0)
	require.NoError(t, err)
	assert.Equal(t, "llama3.2-vision", client.model)
	assert.NotZero(t, client.timeout)
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient("://bad", "m", 0)
	assert.Error(t, err)
}

func TestDecodeAttributes_Valid(t *testing.T) {
	attrs, err := decodeAttributes(validReply)
	require.NoError(t, err)

	assert.Equal(t, "round", attrs.Shape)
	assert.Equal(t, "white", attrs.Color)
	assert.Equal(t, 11.5, attrs.SizeMm)
	assert.Equal(t, "L484", attrs.FrontImprint)
	assert.Equal(t, "unclear", attrs.BackImprint)
	assert.Equal(t, 0.85, attrs.Confidence)
}

func TestDecodeAttributes_StripsFences(t *testing.T) {
	fenced := "```json\n" + validReply + "\n```"
	attrs, err := decodeAttributes(fenced)
	require.NoError(t, err)
	assert.Equal(t, "round", attrs.Shape)
}

func TestDecodeAttributes_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "the pill looks round and white"},
		{"unknown field", `{"shape":"round","color":"white","sizeMm":0,"thicknessMm":0,"frontImprint":"","backImprint":"","scoring":"no score","coating":"","notes":"","confidence":0.5,"databaseMatch":"aspirin"}`},
		{"missing confidence", `{"shape":"round","color":"white","sizeMm":0,"thicknessMm":0,"frontImprint":"","backImprint":"","scoring":"no score","coating":"","notes":""}`},
		{"confidence above one", `{"shape":"round","color":"white","sizeMm":0,"thicknessMm":0,"frontImprint":"","backImprint":"","scoring":"no score","coating":"","notes":"","confidence":1.5}`},
		{"negative size", `{"shape":"round","color":"white","sizeMm":-3,"thicknessMm":0,"frontImprint":"","backImprint":"","scoring":"no score","coating":"","notes":"","confidence":0.5}`},
		{"trailing data", validReply + `{"another":"object"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeAttributes(tt.raw)
			assert.ErrorIs(t, err, domain.ErrMalformedExtraction)
		})
	}
}

func TestDecodeAttributes_ZeroSizeMeansNotEstimated(t *testing.T) {
	raw := `{"shape":"round","color":"white","sizeMm":0,"thicknessMm":0,"frontImprint":"","backImprint":"","scoring":"no score","coating":"","notes":"","confidence":0.4}`
	attrs, err := decodeAttributes(raw)
	require.NoError(t, err)
	assert.Zero(t, attrs.SizeMm)
	assert.Zero(t, attrs.ThicknessMm)
}
