package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Carmen-Shannon/oxy-ssgi/common"
	"github.com/pelletier/go-toml/v2"
)

// ErrUnsupportedFormat is returned when a settings file extension is neither .json nor .toml.
var ErrUnsupportedFormat = errors.New("settings: unsupported file format")

// versionKey is the document key carrying the schema version. It is optional on load.
const versionKey = "Version"

// document is the persisted shape: the schema version followed by the flattened settings.
type document struct {
	Version int
	EffectSettings
}

// field decodes one persisted settings value into its struct field.
type field struct {
	name   string
	decode func(s *EffectSettings, raw json.RawMessage) error
}

// errOutOfRange marks a value that decoded but lies outside its field's range.
var errOutOfRange = errors.New("settings: value out of range")

// bind builds a field decoder for a typed struct field. The value is decoded into a
// temporary so a malformed or out-of-range value never leaves the field half-written.
func bind[T any](name string, get func(s *EffectSettings) *T) field {
	return field{
		name: name,
		decode: func(s *EffectSettings, raw json.RawMessage) error {
			var v T
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			if !inRange(name, v) {
				return fmt.Errorf("%s: %w", name, errOutOfRange)
			}
			*get(s) = v
			return nil
		},
	}
}

// inRange reports whether every component of a decoded value lies inside the field's entry
// in Ranges. Fields without a range, such as the toggles, always pass.
func inRange(name string, v any) bool {
	r, ok := Ranges[name]
	if !ok {
		return true
	}
	var values []float32
	switch x := v.(type) {
	case float32:
		values = []float32{x}
	case uint32:
		values = []float32{float32(x)}
	case DebugView:
		values = []float32{float32(x)}
	case common.Float2:
		values = x[:]
	}
	for _, f := range values {
		if f != f || f < r.Min || f > r.Max {
			return false
		}
	}
	return true
}

var fields = []field{
	bind("Enabled", func(s *EffectSettings) *bool { return &s.Enabled }),
	bind("EnableGI", func(s *EffectSettings) *bool { return &s.EnableGI }),
	bind("UseBitmask", func(s *EffectSettings) *bool { return &s.UseBitmask }),
	bind("CheckBackface", func(s *EffectSettings) *bool { return &s.CheckBackface }),
	bind("SliceCount", func(s *EffectSettings) *uint32 { return &s.SliceCount }),
	bind("StepsPerSlice", func(s *EffectSettings) *uint32 { return &s.StepsPerSlice }),
	bind("EffectRadius", func(s *EffectSettings) *float32 { return &s.EffectRadius }),
	bind("EffectFalloffRange", func(s *EffectSettings) *float32 { return &s.EffectFalloffRange }),
	bind("SampleDistributionPower", func(s *EffectSettings) *float32 { return &s.SampleDistributionPower }),
	bind("ThinOccluderCompensation", func(s *EffectSettings) *float32 { return &s.ThinOccluderCompensation }),
	bind("DepthMIPSamplingOffset", func(s *EffectSettings) *float32 { return &s.DepthMIPSamplingOffset }),
	bind("Thickness", func(s *EffectSettings) *float32 { return &s.Thickness }),
	bind("AmbientSource", func(s *EffectSettings) *float32 { return &s.AmbientSource }),
	bind("BackfaceStrength", func(s *EffectSettings) *float32 { return &s.BackfaceStrength }),
	bind("GIBounceFade", func(s *EffectSettings) *float32 { return &s.GIBounceFade }),
	bind("GIDistanceCompensation", func(s *EffectSettings) *float32 { return &s.GIDistanceCompensation }),
	bind("GICompensationMaxDist", func(s *EffectSettings) *float32 { return &s.GICompensationMaxDist }),
	bind("AOClamp", func(s *EffectSettings) *common.Float2 { return &s.AOClamp }),
	bind("AOPower", func(s *EffectSettings) *float32 { return &s.AOPower }),
	bind("AORemap", func(s *EffectSettings) *common.Float2 { return &s.AORemap }),
	bind("DirectLightAO", func(s *EffectSettings) *float32 { return &s.DirectLightAO }),
	bind("GIStrength", func(s *EffectSettings) *float32 { return &s.GIStrength }),
	bind("DenoisePasses", func(s *EffectSettings) *uint32 { return &s.DenoisePasses }),
	bind("DebugView", func(s *EffectSettings) *DebugView { return &s.DebugView }),
}

// DecodeObject builds settings from a decoded JSON object. Every field starts at its default;
// present fields that fail to decode or fall outside their range keep the default and are
// reported in fallbacks. Unknown keys are ignored. An explicit version 1 document starts from
// the reduced AO-only defaults.
//
// Parameters:
//   - obj: the settings object keyed by persisted field name
//
// Returns:
//   - EffectSettings: the decoded settings
//   - []string: names of fields that were present but malformed
func DecodeObject(obj map[string]json.RawMessage) (EffectSettings, []string) {
	s := Defaults()
	if raw, ok := obj[versionKey]; ok {
		var v int
		if err := json.Unmarshal(raw, &v); err == nil && v < SchemaVersion {
			s.EnableGI = false
		}
	}

	var fallbacks []string
	for _, f := range fields {
		raw, ok := obj[f.name]
		if !ok {
			continue
		}
		if err := f.decode(&s, raw); err != nil {
			fallbacks = append(fallbacks, f.name)
		}
	}
	return s, fallbacks
}

// DecodeJSON decodes a JSON settings object with per-field default fallback.
//
// Parameters:
//   - data: the JSON document, which must be an object
//
// Returns:
//   - EffectSettings: the decoded settings
//   - []string: names of fields that were present but malformed
//   - error: an error if data is not a JSON object
func DecodeJSON(data []byte) (EffectSettings, []string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return Defaults(), nil, fmt.Errorf("settings: decode json: %w", err)
	}
	s, fallbacks := DecodeObject(obj)
	return s, fallbacks, nil
}

// DecodeTOML decodes a TOML settings table. Values are bridged through JSON so the same
// per-field fallback rules apply as for DecodeJSON.
//
// Parameters:
//   - data: the TOML document
//
// Returns:
//   - EffectSettings: the decoded settings
//   - []string: names of fields that were present but malformed
//   - error: an error if data is not valid TOML
func DecodeTOML(data []byte) (EffectSettings, []string, error) {
	var table map[string]any
	if err := toml.Unmarshal(data, &table); err != nil {
		return Defaults(), nil, fmt.Errorf("settings: decode toml: %w", err)
	}
	obj := make(map[string]json.RawMessage, len(table))
	for k, v := range table {
		raw, err := json.Marshal(v)
		if err != nil {
			continue
		}
		obj[k] = raw
	}
	s, fallbacks := DecodeObject(obj)
	return s, fallbacks, nil
}

// EncodeJSON serializes settings with the current schema version.
//
// Parameters:
//   - s: the settings to encode
//
// Returns:
//   - []byte: the indented JSON object
//   - error: an error if encoding fails
func EncodeJSON(s EffectSettings) ([]byte, error) {
	data, err := json.MarshalIndent(document{Version: SchemaVersion, EffectSettings: s}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("settings: encode json: %w", err)
	}
	return data, nil
}

// EncodeTOML serializes settings as a flat TOML table with the current schema version.
//
// Parameters:
//   - s: the settings to encode
//
// Returns:
//   - []byte: the TOML document
//   - error: an error if encoding fails
func EncodeTOML(s EffectSettings) ([]byte, error) {
	data, err := json.Marshal(document{Version: SchemaVersion, EffectSettings: s})
	if err != nil {
		return nil, fmt.Errorf("settings: encode toml: %w", err)
	}
	var table map[string]any
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("settings: encode toml: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(table); err != nil {
		return nil, fmt.Errorf("settings: encode toml: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeFile picks the codec from the file extension.
func decodeFile(path string, data []byte) (EffectSettings, []string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return DecodeJSON(data)
	case ".toml":
		return DecodeTOML(data)
	default:
		return Defaults(), nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}

// encodeFile picks the codec from the file extension.
func encodeFile(path string, s EffectSettings) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return EncodeJSON(s)
	case ".toml":
		return EncodeTOML(s)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
	}
}
