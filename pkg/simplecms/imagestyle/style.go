// Package imagestyle applies named chains of image effects to source images
// and stores the resulting derivatives.
package imagestyle

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/google/uuid"
	simage "github.com/tendant/simple-cms/pkg/simplecms/image"
)

// ConfigPrefix prefixes the config names styles are stored under.
const ConfigPrefix = "image.style."

// ErrStyleNotFound is returned for unknown styles.
var ErrStyleNotFound = errors.New("image style not found")

// Effect is one operation of a style. ID names the toolkit operation and
// Data holds its arguments.
type Effect struct {
	UUID   string         `json:"uuid" yaml:"uuid"`
	ID     string         `json:"id" yaml:"id"`
	Weight int            `json:"weight" yaml:"weight"`
	Data   map[string]any `json:"data" yaml:"data"`
}

// Style is a named, ordered list of effects.
type Style struct {
	Name    string   `json:"name" yaml:"name"`
	Label   string   `json:"label" yaml:"label"`
	Effects []Effect `json:"effects" yaml:"effects"`
}

// NewStyle returns an empty style.
func NewStyle(name, label string) *Style {
	return &Style{Name: name, Label: label}
}

// AddEffect appends an effect with the next weight and a fresh UUID.
func (s *Style) AddEffect(id string, data map[string]any) *Style {
	weight := 0
	if n := len(s.Effects); n > 0 {
		weight = s.Effects[n-1].Weight + 1
	}
	if data == nil {
		data = map[string]any{}
	}
	s.Effects = append(s.Effects, Effect{UUID: uuid.New().String(), ID: id, Weight: weight, Data: data})
	return s
}

// SortedEffects returns the effects ordered by weight.
func (s *Style) SortedEffects() []Effect {
	effects := append([]Effect(nil), s.Effects...)
	sort.SliceStable(effects, func(i, j int) bool { return effects[i].Weight < effects[j].Weight })
	return effects
}

// ConfigName returns the config object name of the style.
func (s *Style) ConfigName() string {
	return ConfigPrefix + s.Name
}

// DerivativeExtension returns the extension derivatives of a source with
// extension ext end up with, following any convert effect.
func (s *Style) DerivativeExtension(ext string) string {
	for _, e := range s.SortedEffects() {
		if e.ID == "convert" {
			if converted := simage.String(e.Data["extension"]); converted != "" {
				ext = converted
			}
		}
	}
	return strings.TrimPrefix(ext, ".")
}

// DerivativeURI returns where the derivative of sourceURI is stored:
// "public://styles/<style>/<scheme>/<target>", with the converted extension
// appended when the style changes the format.
func (s *Style) DerivativeURI(sourceURI string) (string, error) {
	scheme, target, ok := strings.Cut(sourceURI, "://")
	if !ok || scheme == "" || target == "" {
		return "", fmt.Errorf("invalid source URI %q", sourceURI)
	}
	uri := "public://" + path.Join("styles", s.Name, scheme, target)
	srcExt := strings.TrimPrefix(path.Ext(target), ".")
	if ext := s.DerivativeExtension(srcExt); ext != srcExt {
		uri += "." + ext
	}
	return uri, nil
}

// ToConfig converts the style to raw config data.
func (s *Style) ToConfig() map[string]any {
	effects := make([]any, 0, len(s.Effects))
	for _, e := range s.SortedEffects() {
		effects = append(effects, map[string]any{
			"uuid":   e.UUID,
			"id":     e.ID,
			"weight": e.Weight,
			"data":   e.Data,
		})
	}
	return map[string]any{
		"langcode": "en",
		"status":   true,
		"name":     s.Name,
		"label":    s.Label,
		"effects":  effects,
	}
}

// FromConfig builds a style from raw config data.
func FromConfig(data map[string]any) (*Style, error) {
	name, _ := data["name"].(string)
	if name == "" {
		return nil, errors.New("image style name is required")
	}
	s := &Style{Name: name}
	s.Label, _ = data["label"].(string)

	raw, _ := data["effects"].([]any)
	for i, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("image style %s: effect %d is not a mapping", name, i)
		}
		e := Effect{Weight: simage.Int(m["weight"])}
		e.UUID, _ = m["uuid"].(string)
		e.ID, _ = m["id"].(string)
		if e.ID == "" {
			return nil, fmt.Errorf("image style %s: effect %d has no id", name, i)
		}
		e.Data, _ = m["data"].(map[string]any)
		if e.Data == nil {
			e.Data = map[string]any{}
		}
		s.Effects = append(s.Effects, e)
	}
	return s, nil
}
