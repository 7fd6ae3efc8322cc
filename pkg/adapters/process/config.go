package process

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ImageConfig describes an external program image, as found in images.yaml.
type ImageConfig struct {
	Name        string            `yaml:"name" json:"name"`
	Command     string            `yaml:"command" json:"command"`
	Args        []string          `yaml:"args" json:"args"`
	Environment map[string]string `yaml:"env" json:"env"`
	Dir         string            `yaml:"dir" json:"dir"`
	Description string            `yaml:"description" json:"description"`
}

// Image converts the config into a spawnable image.
func (c ImageConfig) Image() Image {
	img := Image{
		Command: c.Command,
		Args:    c.Args,
		Dir:     c.Dir,
	}
	for k, v := range c.Environment {
		img.Env = append(img.Env, k+"="+v)
	}
	return img
}

// ConfigFile represents the structure of images.yaml.
type ConfigFile struct {
	Images []ImageConfig `yaml:"images" json:"images"`
}

// LoadImages reads a configuration file (YAML or JSON) and returns the images by name.
// A missing file means no external images are configured.
func LoadImages(path string) (map[string]ImageConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]ImageConfig{}, nil
		}
		return nil, fmt.Errorf("failed to read images config: %w", err)
	}

	var cfg ConfigFile
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	images := make(map[string]ImageConfig)
	for _, img := range cfg.Images {
		if img.Name == "" || img.Command == "" {
			continue
		}
		images[img.Name] = img
	}
	return images, nil
}
