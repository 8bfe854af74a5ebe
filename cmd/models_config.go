package cmd

import (
	"bytes"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/carbonfit/carbonfit/fit/carbon"
)

// BoxConfig describes one reservoir in models.yaml.
type BoxConfig struct {
	Name      string  `yaml:"name"`
	Reservoir float64 `yaml:"reservoir"`
}

// FluxConfig describes one directed carbon flow in models.yaml.
type FluxConfig struct {
	From string  `yaml:"from"`
	To   string  `yaml:"to"`
	Rate float64 `yaml:"rate"`
}

// ModelConfig is one named box-model preset.
type ModelConfig struct {
	ID              string       `yaml:"id"`
	Atmosphere      string       `yaml:"atmosphere"`
	ProductionScale float64      `yaml:"production_scale"` // 0 = default atoms/cm^2/s conversion
	Boxes           []BoxConfig  `yaml:"boxes"`
	Fluxes          []FluxConfig `yaml:"fluxes"`
}

// Config represents the full models.yaml structure. All top-level
// sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Version string        `yaml:"version"`
	Models  []ModelConfig `yaml:"models"`
}

// loadModelsConfig parses a models file with strict field checking so
// typos cause errors instead of silently-zero presets.
func loadModelsConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// buildModel resolves a preset name to an uncompiled carbon model.
// An empty name selects the built-in default model.
func buildModel(name, modelsFile string) *carbon.Model {
	if name == "" {
		return carbon.Default()
	}
	cfg, err := loadModelsConfig(modelsFile)
	if err != nil {
		logrus.Fatalf("Failed to load models file %s: %v", modelsFile, err)
	}
	for _, mc := range cfg.Models {
		if mc.ID != name {
			continue
		}
		boxes := make([]carbon.Box, len(mc.Boxes))
		for i, b := range mc.Boxes {
			boxes[i] = carbon.Box{Name: b.Name, Reservoir: b.Reservoir}
		}
		fluxes := make([]carbon.Flux, len(mc.Fluxes))
		for i, f := range mc.Fluxes {
			fluxes[i] = carbon.Flux{From: f.From, To: f.To, Rate: f.Rate}
		}
		return carbon.New(boxes, fluxes, mc.Atmosphere, mc.ProductionScale)
	}
	logrus.Fatalf("Unknown box model %q (not in %s)", name, modelsFile)
	return nil
}
