package profile

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/spigell/prospectiq/internal/ai"
	"github.com/spigell/prospectiq/internal/prospect"
	"github.com/spigell/prospectiq/internal/utils"
)

const (
	defaultName  = "Profil sans nom"
	defaultNotes = "Profil compilé"

	maxNameLength    = 100
	maxSummaryLength = 200

	schemaResource = "profile.schema.json"
)

// ErrUnparseable is returned when the model output holds no JSON at all.
var ErrUnparseable = errors.New("profile output is not parseable")

// ValidationError reports a profile document that is JSON but not a usable profile.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid compiled profile: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

//go:embed profile.schema.json
var schemaDocument string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaResource, strings.NewReader(schemaDocument)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = compiler.Compile(schemaResource)
	})
	return schema, schemaErr
}

// Normalize turns raw model output into a complete profile.
// Missing lists become empty, numbers are coerced, and defaults fill name, notes and weights.
// Normalizing the JSON encoding of a result yields the same result.
func Normalize(raw string) (prospect.CompiledResult, error) {
	obj, err := ai.DecodeObject(raw)
	if err != nil {
		return prospect.CompiledResult{}, fmt.Errorf("%w: %w", ErrUnparseable, err)
	}

	return normalizeObject(obj)
}

// NormalizeCompiled applies the same coercions and defaults to a bare compiled profile,
// such as one sent by a client or read from a file.
func NormalizeCompiled(compiled map[string]any) (prospect.CompiledProfile, error) {
	if compiled == nil {
		compiled = map[string]any{}
	}
	result, err := normalizeObject(map[string]any{"compiled": compiled})
	if err != nil {
		return prospect.CompiledProfile{}, err
	}
	return result.Compiled, nil
}

func normalizeObject(obj map[string]any) (prospect.CompiledResult, error) {
	doc := coerceDocument(obj)

	s, err := compiledSchema()
	if err != nil {
		return prospect.CompiledResult{}, fmt.Errorf("compile profile schema: %w", err)
	}
	if err := s.Validate(doc); err != nil {
		return prospect.CompiledResult{}, &ValidationError{Err: err}
	}

	return decodeDocument(doc)
}

// coerceDocument applies the loose coercions to the decoded output and
// returns a document shaped like the schema expects.
func coerceDocument(obj map[string]any) map[string]any {
	name := defaultName
	if ai.Truthy(obj["name"]) {
		name = ai.CoerceString(obj["name"])
	}

	summary := ""
	if ai.Truthy(obj["summary"]) {
		summary = ai.CoerceString(obj["summary"])
	}

	src, ok := obj["compiled"].(map[string]any)
	if !ok {
		src = map[string]any{}
	}

	compiled := map[string]any{
		"country":      coerceOptionalString(src["country"]),
		"sectors":      coerceList(src["sectors"]),
		"roles":        coerceList(src["roles"]),
		"technologies": coerceList(src["technologies"]),
		"exclusions":   coerceList(src["exclusions"]),
		"sizeMin":      coerceOptionalNumber(src["sizeMin"]),
		"sizeMax":      coerceOptionalNumber(src["sizeMax"]),
		"ratingMax":    coerceOptionalNumber(src["ratingMax"]),
		"weights":      coerceWeights(src["weights"]),
		"notes":        defaultNotes,
	}
	if ai.Truthy(src["notes"]) {
		compiled["notes"] = ai.CoerceString(src["notes"])
	}

	return map[string]any{
		"name":     utils.TruncateRunes(name, maxNameLength),
		"compiled": compiled,
		"summary":  utils.TruncateRunes(summary, maxSummaryLength),
	}
}

func coerceOptionalString(v any) any {
	if v == nil {
		return nil
	}
	return ai.CoerceString(v)
}

func coerceOptionalNumber(v any) any {
	if v == nil {
		return nil
	}
	n, ok := ai.CoerceNumber(v)
	if !ok || math.IsInf(n, 0) {
		return nil
	}
	return n
}

func coerceList(v any) []any {
	values, ok := ai.CoerceStrings(v)
	if !ok {
		return []any{}
	}
	out := make([]any, len(values))
	for i, value := range values {
		out[i] = value
	}
	return out
}

// coerceWeights fills the defaults when weights are absent, turns numeric strings into numbers
// and null weights into 0. Anything else is left for the schema to reject.
func coerceWeights(v any) any {
	if !ai.Truthy(v) {
		var out map[string]any
		_ = mapstructure.Decode(prospect.DefaultWeights(), &out)
		return out
	}

	src, ok := v.(map[string]any)
	if !ok {
		return v
	}

	out := make(map[string]any, len(src))
	for key, value := range src {
		if value == nil {
			out[key] = 0.0
			continue
		}
		if s, isString := value.(string); isString {
			if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				out[key] = n
				continue
			}
		}
		out[key] = value
	}
	return out
}

func decodeDocument(doc map[string]any) (prospect.CompiledResult, error) {
	compiled := doc["compiled"].(map[string]any)

	var weights prospect.Weights
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &weights,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return prospect.CompiledResult{}, err
	}
	if err := decoder.Decode(compiled["weights"]); err != nil {
		return prospect.CompiledResult{}, &ValidationError{Err: fmt.Errorf("weights: %w", err)}
	}

	profile := prospect.CompiledProfile{
		Sectors:      stringList(compiled["sectors"]),
		Roles:        stringList(compiled["roles"]),
		Technologies: stringList(compiled["technologies"]),
		Exclusions:   stringList(compiled["exclusions"]),
		SizeMin:      numberPtr(compiled["sizeMin"]),
		SizeMax:      numberPtr(compiled["sizeMax"]),
		RatingMax:    numberPtr(compiled["ratingMax"]),
		Weights:      weights,
		Notes:        compiled["notes"].(string),
	}
	if country, ok := compiled["country"].(string); ok {
		profile.Country = &country
	}

	return prospect.CompiledResult{
		Name:     doc["name"].(string),
		Compiled: profile,
		Summary:  doc["summary"].(string),
	}, nil
}

func stringList(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.(string))
	}
	return out
}

func numberPtr(v any) *float64 {
	n, ok := v.(float64)
	if !ok {
		return nil
	}
	return &n
}
