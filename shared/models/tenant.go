package models

import (
	"time"
)

// TenantConfig describes one couple's invitation site. On the file backend
// it is the content of <data>/<slug>/config.json.
type TenantConfig struct {
	ID          string    `json:"id"`
	BrideName   string    `json:"brideName"`
	GroomName   string    `json:"groomName"`
	WeddingDate string    `json:"weddingDate"`
	Venue       Venue     `json:"venue"`
	Theme       *Theme    `json:"theme,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Venue is where the wedding takes place
type Venue struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	MapLink string `json:"mapLink,omitempty"`
}

// Theme holds the optional site colors
type Theme struct {
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
}

// MissingFields returns the json names of required fields that are empty
func (c *TenantConfig) MissingFields() []string {
	var missing []string
	if c.ID == "" {
		missing = append(missing, "id")
	}
	if c.BrideName == "" {
		missing = append(missing, "brideName")
	}
	if c.GroomName == "" {
		missing = append(missing, "groomName")
	}
	if c.WeddingDate == "" {
		missing = append(missing, "weddingDate")
	}
	return missing
}

// Tenant is the relational row for a TenantConfig
type Tenant struct {
	ID                  uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Slug                string    `json:"slug" gorm:"type:varchar(50);uniqueIndex;not null"`
	BrideName           string    `json:"bride_name" gorm:"type:varchar(255);not null"`
	GroomName           string    `json:"groom_name" gorm:"type:varchar(255);not null"`
	WeddingDate         string    `json:"wedding_date" gorm:"type:varchar(32);not null"`
	VenueName           string    `json:"venue_name" gorm:"type:varchar(255)"`
	VenueAddress        string    `json:"venue_address" gorm:"type:varchar(500)"`
	VenueMapLink        string    `json:"venue_map_link" gorm:"type:varchar(1000)"`
	ThemePrimaryColor   string    `json:"theme_primary_color" gorm:"type:varchar(32)"`
	ThemeSecondaryColor string    `json:"theme_secondary_color" gorm:"type:varchar(32)"`
	IsActive            bool      `json:"is_active" gorm:"not null"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// TableName returns the table name for the Tenant model
func (Tenant) TableName() string {
	return "tenants"
}

// ToConfig converts the row into the shape the rest of the system reads
func (t *Tenant) ToConfig() *TenantConfig {
	cfg := &TenantConfig{
		ID:          t.Slug,
		BrideName:   t.BrideName,
		GroomName:   t.GroomName,
		WeddingDate: t.WeddingDate,
		Venue: Venue{
			Name:    t.VenueName,
			Address: t.VenueAddress,
			MapLink: t.VenueMapLink,
		},
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
	if t.ThemePrimaryColor != "" || t.ThemeSecondaryColor != "" {
		cfg.Theme = &Theme{
			PrimaryColor:   t.ThemePrimaryColor,
			SecondaryColor: t.ThemeSecondaryColor,
		}
	}
	return cfg
}

// TenantFromConfig builds a row from a config. The surrogate ID is left zero.
func TenantFromConfig(cfg *TenantConfig) *Tenant {
	t := &Tenant{
		Slug:         cfg.ID,
		BrideName:    cfg.BrideName,
		GroomName:    cfg.GroomName,
		WeddingDate:  cfg.WeddingDate,
		VenueName:    cfg.Venue.Name,
		VenueAddress: cfg.Venue.Address,
		VenueMapLink: cfg.Venue.MapLink,
		IsActive:     cfg.IsActive,
		CreatedAt:    cfg.CreatedAt,
		UpdatedAt:    cfg.UpdatedAt,
	}
	if cfg.Theme != nil {
		t.ThemePrimaryColor = cfg.Theme.PrimaryColor
		t.ThemeSecondaryColor = cfg.Theme.SecondaryColor
	}
	return t
}
