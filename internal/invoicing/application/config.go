package application

import (
	"os"

	"gopkg.in/yaml.v3"
)

// BusinessConfig identifies the billing entity printed on invoices.
type BusinessConfig struct {
	Name         string `yaml:"name"`
	AddressLine1 string `yaml:"address_line1"`
	AddressLine2 string `yaml:"address_line2"`
	ContactPhone string `yaml:"contact_phone"`
	ContactEmail string `yaml:"contact_email"`
}

// PaymentInstruction is the remittance line printed under the contact email.
func (c BusinessConfig) PaymentInstruction() string {
	if c.ContactEmail == "" {
		return ""
	}
	return "Or Zelle to " + c.ContactEmail
}

// LoadBusinessConfig loads the business identity from yaml or env. A yaml
// file named by BUSINESS_CONFIG wins over the env variables.
func LoadBusinessConfig() (BusinessConfig, error) {
	cfg := BusinessConfig{
		Name:         getenvDefault("BUSINESS_NAME", "Property Billing"),
		AddressLine1: os.Getenv("BUSINESS_ADDRESS_1"),
		AddressLine2: os.Getenv("BUSINESS_ADDRESS_2"),
		ContactPhone: os.Getenv("BUSINESS_CONTACT_PHONE"),
		ContactEmail: os.Getenv("BUSINESS_CONTACT_EMAIL"),
	}

	if path := os.Getenv("BUSINESS_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}
