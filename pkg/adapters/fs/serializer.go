package fs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/mulch/pkg/core"
	"gopkg.in/yaml.v3"
)

// Serializer defines how to read and write a specific file format.
type Serializer interface {
	// Parse reads from r and returns a Post (without ID; the caller sets it).
	Parse(r io.Reader) (*core.Post, error)
	// Serialize converts the Post to bytes.
	Serialize(p core.Post) ([]byte, error)
}

// DefaultSerializers returns the standard set of serializers.
func DefaultSerializers(strict bool) map[string]Serializer {
	md := NewFrontMatterSerializer(strict)
	return map[string]Serializer{
		".md":       md,
		".markdown": md,
	}
}

// FrontMatterSerializer handles Markdown files with a YAML front matter fence.
type FrontMatterSerializer struct {
	// Strict enables strict number parsing (as json.Number) to avoid
	// precision loss on large integers.
	Strict bool
}

// NewFrontMatterSerializer creates a new front matter serializer.
func NewFrontMatterSerializer(strict bool) *FrontMatterSerializer {
	return &FrontMatterSerializer{Strict: strict}
}

// Parse splits the `---` fenced YAML header from the Markdown body.
// Files without a fence are treated as pure content.
func (s *FrontMatterSerializer) Parse(r io.Reader) (*core.Post, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	p := &core.Post{Metadata: make(core.Metadata)}

	if !bytes.HasPrefix(data, []byte("---\n")) && !bytes.HasPrefix(data, []byte("---\r\n")) {
		p.Content = string(data)
		return p, nil
	}

	rest := data[3:]
	parts := bytes.SplitN(rest, []byte("---"), 2)
	if len(parts) == 1 {
		return nil, errors.New("front matter started but no closing delimiter found")
	}

	yamlData := parts[0]
	contentData := parts[1]

	if err := yaml.Unmarshal(yamlData, &p.Metadata); err != nil {
		return nil, fmt.Errorf("failed to parse front matter: %w", err)
	}

	p.Content = strings.TrimPrefix(string(contentData), "\n")
	p.Content = strings.TrimPrefix(p.Content, "\r\n")

	if s.Strict {
		p.Metadata = recursiveNormalize(p.Metadata).(core.Metadata)
	}

	return p, nil
}

// Serialize writes the front matter fence (when metadata exists) followed by
// the body.
func (s *FrontMatterSerializer) Serialize(p core.Post) ([]byte, error) {
	var buf bytes.Buffer
	if len(p.Metadata) > 0 {
		buf.WriteString("---\n")
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(p.Metadata); err != nil {
			return nil, err
		}
		encoder.Close()
		buf.WriteString("---\n")
	}
	buf.WriteString(p.Content)
	return buf.Bytes(), nil
}

// recursiveNormalize traverses the map/slice and converts numeric types to
// json.Number for consistency with strict JSON handling.
func recursiveNormalize(val any) any {
	switch v := val.(type) {
	case core.Metadata:
		m := make(core.Metadata)
		for k, item := range v {
			m[k] = recursiveNormalize(item)
		}
		return m
	case map[string]any:
		m := make(map[string]any)
		for k, item := range v {
			m[k] = recursiveNormalize(item)
		}
		return m
	case []any:
		l := make([]any, len(v))
		for i, item := range v {
			l[i] = recursiveNormalize(item)
		}
		return l
	case int:
		return json.Number(fmt.Sprintf("%d", v))
	case int32:
		return json.Number(fmt.Sprintf("%d", v))
	case int64:
		return json.Number(fmt.Sprintf("%d", v))
	case float64:
		return json.Number(fmt.Sprintf("%v", v))
	default:
		return v
	}
}
