// Package sigmf reads and writes the SigMF sidecar convention used to
// describe an I/Q recording: a JSON ".sigmf-meta" document paired with
// a raw ".sigmf-data" sample file.
package sigmf

import (
	"encoding/json"
	"math"
	"os"
)

// Annotation describes one labeled region of a recording.
type Annotation struct {
	SampleStart   uint64  `json:"core:sample_start"`
	SampleCount   uint64  `json:"core:sample_count"`
	FreqLowerEdge float64 `json:"core:freq_lower_edge,omitempty"`
	FreqUpperEdge float64 `json:"core:freq_upper_edge,omitempty"`
	Label         string  `json:"core:label,omitempty"`
	Comment       string  `json:"core:comment,omitempty"`
}

// Metadata is the subset of a SigMF document this engine consumes.
type Metadata struct {
	Datatype        string
	SampleRate      float64
	CenterFrequency float64
	Description     string
	Author          string
	Annotations     []Annotation
}

// document mirrors the on-disk JSON shape (global/captures/annotations).
type document struct {
	Global struct {
		Datatype    string  `json:"core:datatype"`
		SampleRate  float64 `json:"core:sample_rate"`
		Description string  `json:"core:description"`
		Author      string  `json:"core:author"`
		Version     string  `json:"core:version"`
	} `json:"global"`
	Captures []struct {
		SampleStart uint64  `json:"core:sample_start"`
		Frequency   float64 `json:"core:frequency"`
	} `json:"captures"`
	Annotations []Annotation `json:"annotations"`
}

// Parse decodes a SigMF meta document. Malformed JSON is non-fatal: it
// returns a zero Metadata so the caller opens with defaults rather
// than failing the whole Open call.
func Parse(content []byte) Metadata {
	var doc document
	if err := json.Unmarshal(content, &doc); err != nil {
		return Metadata{}
	}

	meta := Metadata{
		Datatype:    doc.Global.Datatype,
		SampleRate:  doc.Global.SampleRate,
		Description: doc.Global.Description,
		Author:      doc.Global.Author,
		Annotations: doc.Annotations,
	}
	if len(doc.Captures) > 0 {
		meta.CenterFrequency = doc.Captures[0].Frequency
	}
	return meta
}

// ParseFile reads and parses a .sigmf-meta file. A missing or
// unreadable file is non-fatal: it returns a zero Metadata.
func ParseFile(path string) Metadata {
	content, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}
	}
	return Parse(content)
}

// WriteConfig configures SigMF export. OutputPath is the base path
// without the .sigmf-data/.sigmf-meta extensions.
type WriteConfig struct {
	OutputPath      string
	Datatype        string // defaults to "cf32_le"
	SampleRate      float64
	CenterFrequency float64
	Description     string
	Author           string
	SampleStart      uint64
	SampleCount      uint64
	ExtraAnnotations []Annotation // appended after the auto-generated one
}

// Write emits "<OutputPath>.sigmf-data" (the interleaved complex-f32
// sample stream) and "<OutputPath>.sigmf-meta" (pretty-printed JSON,
// indent 2).
func Write(cfg WriteConfig, samples []complex64) error {
	if err := writeData(cfg.OutputPath+".sigmf-data", samples); err != nil {
		return err
	}
	return writeMeta(cfg.OutputPath+".sigmf-meta", cfg)
}

func writeData(path string, samples []complex64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, len(samples)*8)
	for i, s := range samples {
		off := i * 8
		putFloat32LE(buf[off:], real(s))
		putFloat32LE(buf[off+4:], imag(s))
	}
	_, err = f.Write(buf)
	return err
}

func writeMeta(path string, cfg WriteConfig) error {
	datatype := cfg.Datatype
	if datatype == "" {
		datatype = "cf32_le"
	}

	doc := document{}
	doc.Global.Datatype = datatype
	doc.Global.Version = "1.0.0"
	if cfg.SampleRate > 0 {
		doc.Global.SampleRate = cfg.SampleRate
	}
	doc.Global.Description = cfg.Description
	doc.Global.Author = cfg.Author

	capture := struct {
		SampleStart uint64  `json:"core:sample_start"`
		Frequency   float64 `json:"core:frequency"`
	}{SampleStart: 0, Frequency: cfg.CenterFrequency}
	doc.Captures = []struct {
		SampleStart uint64  `json:"core:sample_start"`
		Frequency   float64 `json:"core:frequency"`
	}{capture}

	doc.Annotations = []Annotation{}
	if cfg.SampleCount > 0 {
		doc.Annotations = append(doc.Annotations, Annotation{
			SampleStart: cfg.SampleStart,
			SampleCount: cfg.SampleCount,
		})
	}
	doc.Annotations = append(doc.Annotations, cfg.ExtraAnnotations...)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(marshalDoc(doc, cfg))
}

// marshalDoc builds the map form so optional global fields are omitted
// entirely when empty/zero rather than emitting "core:sample_rate": 0.
func marshalDoc(doc document, cfg WriteConfig) map[string]any {
	global := map[string]any{
		"core:datatype": doc.Global.Datatype,
		"core:version":  doc.Global.Version,
	}
	if doc.Global.SampleRate > 0 {
		global["core:sample_rate"] = doc.Global.SampleRate
	}
	if doc.Global.Description != "" {
		global["core:description"] = doc.Global.Description
	}
	if doc.Global.Author != "" {
		global["core:author"] = doc.Global.Author
	}

	capture := map[string]any{"core:sample_start": 0}
	if cfg.CenterFrequency != 0 {
		capture["core:frequency"] = cfg.CenterFrequency
	}

	annotations := make([]map[string]any, 0, len(doc.Annotations))
	for _, a := range doc.Annotations {
		entry := map[string]any{
			"core:sample_start": a.SampleStart,
			"core:sample_count": a.SampleCount,
		}
		if a.FreqLowerEdge != 0 {
			entry["core:freq_lower_edge"] = a.FreqLowerEdge
		}
		if a.FreqUpperEdge != 0 {
			entry["core:freq_upper_edge"] = a.FreqUpperEdge
		}
		if a.Label != "" {
			entry["core:label"] = a.Label
		}
		if a.Comment != "" {
			entry["core:comment"] = a.Comment
		}
		annotations = append(annotations, entry)
	}

	return map[string]any{
		"global":      global,
		"captures":    []map[string]any{capture},
		"annotations": annotations,
	}
}

func putFloat32LE(b []byte, f float32) {
	bits := math.Float32bits(f)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}
