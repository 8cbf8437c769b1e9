package genai

import "maps"

// Task is the operation mode of an adapter, fixed at construction.
type Task string

const (
	TaskTextGeneration Task = "text_generation"
	TaskSummarize      Task = "summary_text"

	// taskEmbedding labels embedding requests in diagnostics and metrics.
	taskEmbedding Task = "embedding"
)

// Length is the approximate length of a summary.
type Length string

const (
	LengthShort  Length = "SHORT"
	LengthMedium Length = "MEDIUM"
	LengthLong   Length = "LONG"
	LengthAuto   Length = "AUTO"
)

// Format is the style a summary is delivered in.
type Format string

const (
	FormatParagraph Format = "PARAGRAPH"
	FormatBullets   Format = "BULLETS"
	FormatAuto      Format = "AUTO"
)

// Extractiveness controls how close a summary stays to the original text.
type Extractiveness string

const (
	ExtractivenessLow    Extractiveness = "LOW"
	ExtractivenessMedium Extractiveness = "MEDIUM"
	ExtractivenessHigh   Extractiveness = "HIGH"
	ExtractivenessAuto   Extractiveness = "AUTO"
)

// Truncation modes accepted by the cloud service.
const (
	TruncateNone  = "NONE"
	TruncateStart = "START"
	TruncateEnd   = "END"
)

// Shared generation defaults.
const (
	DefaultMaxTokens   = 256
	DefaultTemperature = 0.1
	DefaultTopK        = 0
	DefaultTopP        = 0.9
)

// Params is a merged parameter set sent to a backend.
type Params map[string]any

// Clone returns a shallow copy of p.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	return out
}

// Merge returns a copy of p with overrides applied; override keys win.
func (p Params) Merge(overrides map[string]any) Params {
	out := p.Clone()
	maps.Copy(out, overrides)
	return out
}

// GenerationConfig holds the generation parameters shared by every adapter.
// Zero values are replaced by defaults in withDefaults, except TopK where zero
// is meaningful.
type GenerationConfig struct {
	MaxTokens   int
	Temperature *float64
	TopK        int
	TopP        *float64
	// Stop words; construction-time and call-time stops are mutually exclusive.
	Stop []string
}

func (g GenerationConfig) withDefaults() GenerationConfig {
	if g.MaxTokens == 0 {
		g.MaxTokens = DefaultMaxTokens
	}
	if g.Temperature == nil {
		g.Temperature = Float(DefaultTemperature)
	}
	if g.TopP == nil {
		g.TopP = Float(DefaultTopP)
	}
	if g.Stop != nil {
		g.Stop = append([]string(nil), g.Stop...)
	}
	return g
}

func (g GenerationConfig) validate() error {
	if g.MaxTokens < 1 {
		return invalidParam("max_tokens must be >= 1, got %d", g.MaxTokens)
	}
	if *g.Temperature < 0 {
		return invalidParam("temperature must be non-negative, got %v", *g.Temperature)
	}
	if *g.TopP < 0 || *g.TopP > 1 {
		return invalidParam("top_p must be within [0, 1], got %v", *g.TopP)
	}
	if g.TopK < 0 {
		return invalidParam("top_k must be non-negative, got %d", g.TopK)
	}
	return nil
}

// Float returns a pointer to v, for optional float fields.
func Float(v float64) *float64 { return &v }

func validatePenalty(name string, v *float64) error {
	if v != nil && (*v < 0 || *v > 1) {
		return invalidParam("%s must be within [0, 1], got %v", name, *v)
	}
	return nil
}

// resolveStop applies the stop-word exclusivity rule.
func resolveStop(configured, call []string) ([]string, error) {
	switch {
	case configured != nil && call != nil:
		return nil, invalidParam("stop found in both the input and default params")
	case configured != nil:
		return configured, nil
	default:
		return call, nil
	}
}

func validTask(t Task) bool {
	return t == TaskTextGeneration || t == TaskSummarize
}

func validLength(v Length) bool {
	switch v {
	case LengthShort, LengthMedium, LengthLong, LengthAuto:
		return true
	}
	return false
}

func validFormat(v Format) bool {
	switch v {
	case FormatParagraph, FormatBullets, FormatAuto:
		return true
	}
	return false
}

func validExtractiveness(v Extractiveness) bool {
	switch v {
	case ExtractivenessLow, ExtractivenessMedium, ExtractivenessHigh, ExtractivenessAuto:
		return true
	}
	return false
}

func validTruncate(v string) bool {
	switch v {
	case "", TruncateNone, TruncateStart, TruncateEnd:
		return true
	}
	return false
}
