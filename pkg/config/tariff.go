package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tariff holds the package delivery pricing inputs.
type Tariff struct {
	BaseFare         float64 `yaml:"base_fare"`
	PerKmRate        float64 `yaml:"per_km_rate"`
	PerKgRate        float64 `yaml:"per_kg_rate"`
	GSTRate          float64 `yaml:"gst_rate"`
	FallbackMinKm    int     `yaml:"fallback_min_km"`
	FallbackMaxKm    int     `yaml:"fallback_max_km"`
	FallbackSpeedKmh float64 `yaml:"fallback_speed_kmh"`
	Currency         string  `yaml:"currency"`
}

func DefaultTariff() Tariff {
	return Tariff{
		BaseFare:         DefaultBaseFare,
		PerKmRate:        DefaultPerKmRate,
		PerKgRate:        DefaultPerKgRate,
		GSTRate:          DefaultGSTRate,
		FallbackMinKm:    DefaultFallbackMinKm,
		FallbackMaxKm:    DefaultFallbackMaxKm,
		FallbackSpeedKmh: DefaultFallbackSpeedKmh,
		Currency:         DefaultCurrency,
	}
}

// LoadTariff reads a YAML tariff file on top of the defaults.
// Environment variables in the file are expanded before parsing.
func LoadTariff(path string) (Tariff, error) {
	tariff := DefaultTariff()
	if path == "" {
		return tariff, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return tariff, fmt.Errorf("failed to read tariff file %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), &tariff); err != nil {
		return tariff, fmt.Errorf("failed to parse tariff file %s: %w", path, err)
	}
	return tariff, nil
}

func (t Tariff) validate() []string {
	var errors []string
	if t.BaseFare < 0 {
		errors = append(errors, fmt.Sprintf("Tariff.BaseFare cannot be negative, got: %v", t.BaseFare))
	}
	if t.PerKmRate < 0 || t.PerKgRate < 0 {
		errors = append(errors, "Tariff rates cannot be negative")
	}
	if t.GSTRate < 0 || t.GSTRate > 1 {
		errors = append(errors, fmt.Sprintf("Tariff.GSTRate must be between 0 and 1, got: %v", t.GSTRate))
	}
	if t.FallbackMinKm <= 0 || t.FallbackMaxKm <= t.FallbackMinKm {
		errors = append(errors, fmt.Sprintf("Tariff fallback range must satisfy 0 < min < max, got: [%d, %d)", t.FallbackMinKm, t.FallbackMaxKm))
	}
	if t.FallbackSpeedKmh <= 0 {
		errors = append(errors, fmt.Sprintf("Tariff.FallbackSpeedKmh must be positive, got: %v", t.FallbackSpeedKmh))
	}
	if t.Currency == "" {
		errors = append(errors, "Tariff.Currency cannot be empty")
	}
	return errors
}
