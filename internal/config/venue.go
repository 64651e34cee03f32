package config

import (
	"strings"
	"time"
	_ "time/tzdata" // venue timezones resolve on images without zoneinfo

	"github.com/spf13/viper"
)

// VenueConfig holds the business knobs of the venue backend.
type VenueConfig struct {
	DefaultPaymentMode string
	PaymentModes       []string
	QRCodeTTL          time.Duration
	QRCodeSize         int
	DefaultPageSize    int
	MaxPageSize        int
	ExportTimezone     string
}

func LoadVenueConfig() *VenueConfig {
	viper.SetDefault("venue.default_payment_mode", "CASH")
	viper.SetDefault("venue.payment_modes", "CASH,CARD,UPI")
	viper.SetDefault("venue.qr_code_ttl", 5*time.Minute)
	viper.SetDefault("venue.qr_code_size", 475)
	viper.SetDefault("venue.default_page_size", 10)
	viper.SetDefault("venue.max_page_size", 100)
	viper.SetDefault("venue.export_timezone", "Asia/Kolkata")

	return &VenueConfig{
		DefaultPaymentMode: strings.ToUpper(viper.GetString("venue.default_payment_mode")),
		PaymentModes:       splitModes(viper.GetString("venue.payment_modes")),
		QRCodeTTL:          viper.GetDuration("venue.qr_code_ttl"),
		QRCodeSize:         viper.GetInt("venue.qr_code_size"),
		DefaultPageSize:    viper.GetInt("venue.default_page_size"),
		MaxPageSize:        viper.GetInt("venue.max_page_size"),
		ExportTimezone:     viper.GetString("venue.export_timezone"),
	}
}

// IsPaymentModeAllowed reports whether mode is one of the configured modes.
// An empty configuration accepts any non-empty mode.
func (c *VenueConfig) IsPaymentModeAllowed(mode string) bool {
	if mode == "" {
		return false
	}
	if len(c.PaymentModes) == 0 {
		return true
	}
	for _, m := range c.PaymentModes {
		if strings.EqualFold(m, mode) {
			return true
		}
	}
	return false
}

// LoadLocation resolves the export timezone.
func (c *VenueConfig) LoadLocation() (*time.Location, error) {
	return time.LoadLocation(c.ExportTimezone)
}

// Location returns the export timezone, or UTC when it cannot be loaded.
func (c *VenueConfig) Location() *time.Location {
	loc, err := c.LoadLocation()
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitModes(raw string) []string {
	var modes []string
	for _, part := range strings.Split(raw, ",") {
		if m := strings.ToUpper(strings.TrimSpace(part)); m != "" {
			modes = append(modes, m)
		}
	}
	return modes
}
