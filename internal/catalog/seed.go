package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/searchqa/eval-engine/internal/models"
)

//go:embed seed/items.yaml
var defaultSeedYAML []byte

type seedFile struct {
	Items []seedItem `yaml:"items"`
}

type seedItem struct {
	Query       string          `yaml:"query"`
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	Category    string          `yaml:"category"`
	Attributes  []seedAttribute `yaml:"attributes"`
}

type seedAttribute struct {
	Name  string    `yaml:"name"`
	Value yaml.Node `yaml:"value"`
}

// DefaultSeed parses the embedded canonical sample set
func DefaultSeed() ([]models.Item, error) {
	return parseSeed(defaultSeedYAML)
}

// LoadSeedFile reads a replacement sample set from a YAML file
func LoadSeedFile(path string) ([]models.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	items, err := parseSeed(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse seed file %s: %w", path, err)
	}
	return items, nil
}

func parseSeed(data []byte) ([]models.Item, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(f.Items) == 0 {
		return nil, fmt.Errorf("seed contains no items")
	}

	items := make([]models.Item, 0, len(f.Items))
	for i, si := range f.Items {
		if si.Query == "" {
			return nil, fmt.Errorf("item %d: query is required", i)
		}
		if si.Title == "" {
			return nil, fmt.Errorf("item %d: title is required", i)
		}
		if si.Description == "" {
			return nil, fmt.Errorf("item %d: description is required", i)
		}
		if si.Category == "" {
			return nil, fmt.Errorf("item %d: category is required", i)
		}

		attrs := make([]models.Attribute, 0, len(si.Attributes))
		for _, sa := range si.Attributes {
			if sa.Name == "" {
				return nil, fmt.Errorf("item %d: attribute name is required", i)
			}
			value, err := attributeValue(sa.Value)
			if err != nil {
				return nil, fmt.Errorf("item %d, attribute %s: %w", i, sa.Name, err)
			}
			attrs = append(attrs, models.Attribute{Name: sa.Name, Value: value})
		}

		items = append(items, models.Item{
			ID:          uuid.New().String()[:12],
			Query:       si.Query,
			Title:       si.Title,
			Description: si.Description,
			Category:    si.Category,
			Attributes:  attrs,
		})
	}

	return items, nil
}

// attributeValue tags the union from the YAML node type
func attributeValue(node yaml.Node) (models.AttributeValue, error) {
	switch node.Tag {
	case "!!bool":
		b, err := strconv.ParseBool(node.Value)
		if err != nil {
			return models.AttributeValue{}, fmt.Errorf("invalid bool %q", node.Value)
		}
		return models.BoolValue(b), nil
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(node.Value, 64)
		if err != nil {
			return models.AttributeValue{}, fmt.Errorf("invalid number %q", node.Value)
		}
		return models.NumberValue(f), nil
	case "!!str":
		return models.StringValue(node.Value), nil
	default:
		return models.AttributeValue{}, fmt.Errorf("attribute values must be scalar, got %s", node.Tag)
	}
}
