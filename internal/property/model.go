// Package property provides the property listing model, data access and
// the card view model used by listings and dashboards.
package property

import (
	"fmt"
	"time"

	"github.com/evcraddock/smartrent/internal/format"
	"github.com/evcraddock/smartrent/internal/profile"
)

// Sort orders accepted by Filters.SortBy.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
)

// PlaceholderImage is shown for listings without photos.
const PlaceholderImage = "https://images.unsplash.com/photo-1560448204-e02f11c3d0e2?ixlib=rb-4.0.3&auto=format&fit=crop&w=1000&q=80"

// Property is a rental listing.
type Property struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Address      string    `json:"address"`
	Price        float64   `json:"price"`
	Bedrooms     int       `json:"bedrooms"`
	Bathrooms    int       `json:"bathrooms"`
	AreaSqft     int       `json:"area_sqft"`
	PropertyType string    `json:"property_type"`
	Amenities    []string  `json:"amenities"`
	IsVerified   bool      `json:"is_verified"`
	IsAvailable  bool      `json:"is_available"`
	AgentID      string    `json:"agent_id,omitempty"`
	LandlordID   string    `json:"landlord_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Attached by the service, not stored on the row.
	Images []Image          `json:"property_images,omitempty"`
	Agent  *profile.Profile `json:"agent,omitempty"`
}

// Image is one listing photo. Lower positions sort first.
type Image struct {
	ID         string `json:"id"`
	PropertyID string `json:"property_id"`
	ImageURL   string `json:"image_url"`
	Position   int    `json:"position"`
}

// PrimaryImage returns the first photo, or PlaceholderImage.
func (p Property) PrimaryImage() string {
	if len(p.Images) > 0 && p.Images[0].ImageURL != "" {
		return p.Images[0].ImageURL
	}
	return PlaceholderImage
}

// NewProperty is the listing form.
type NewProperty struct {
	Title        string   `json:"title" validate:"required,min=5,max=200"`
	Description  string   `json:"description" validate:"max=5000"`
	Address      string   `json:"address" validate:"required,min=5"`
	Price        float64  `json:"price" validate:"gt=0"`
	Bedrooms     int      `json:"bedrooms" validate:"gte=0,lte=50"`
	Bathrooms    int      `json:"bathrooms" validate:"gte=0,lte=50"`
	AreaSqft     int      `json:"area_sqft" validate:"gte=0"`
	PropertyType string   `json:"property_type" validate:"required,property_type"`
	Amenities    []string `json:"amenities" validate:"dive,amenity"`
	// AgentID and LandlordID are only honoured for admins; otherwise the
	// creator fills the slot matching their role.
	AgentID    string   `json:"agent_id,omitempty"`
	LandlordID string   `json:"landlord_id,omitempty"`
	Images     []string `json:"images" validate:"dive,url"`
}

// Filters narrow a property search. Zero values mean "any".
type Filters struct {
	Location     string   `json:"location,omitempty"`
	PropertyType string   `json:"property_type,omitempty"`
	MinPrice     float64  `json:"min_price,omitempty"`
	MaxPrice     float64  `json:"max_price,omitempty"`
	Bedrooms     int      `json:"bedrooms,omitempty"`
	Bathrooms    int      `json:"bathrooms,omitempty"`
	Amenities    []string `json:"amenities,omitempty"`
	SortBy       string   `json:"sort_by,omitempty"`
}

// Card is the listing tile view model.
type Card struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Address   string   `json:"address"`
	Image     string   `json:"image"`
	Price     string   `json:"price"`
	Bedrooms  int      `json:"bedrooms"`
	Bathrooms int      `json:"bathrooms"`
	AreaSqft  int      `json:"area_sqft"`
	TypeLabel string   `json:"type_label"`
	Badges    []string `json:"badges,omitempty"`
	AgentID   string   `json:"agent_id,omitempty"`
	AgentName string   `json:"agent_name,omitempty"`
}

// NewCard builds the card for p.
func NewCard(p Property) Card {
	c := Card{
		ID:        p.ID,
		Title:     p.Title,
		Address:   p.Address,
		Image:     p.PrimaryImage(),
		Price:     format.Naira(p.Price) + "/month",
		Bedrooms:  p.Bedrooms,
		Bathrooms: p.Bathrooms,
		AreaSqft:  p.AreaSqft,
		TypeLabel: format.Title(p.PropertyType),
		AgentID:   p.AgentID,
	}
	if p.IsVerified {
		c.Badges = append(c.Badges, "Verified")
	}
	if !p.IsAvailable {
		c.Badges = append(c.Badges, "Unavailable")
	}
	if p.Agent != nil {
		c.AgentName = p.Agent.FullName
	}
	return c
}

// Cards builds cards for a list of properties.
func Cards(list []Property) []Card {
	cards := make([]Card, len(list))
	for i, p := range list {
		cards[i] = NewCard(p)
	}
	return cards
}

// Features renders "3 beds · 2 baths · 1200 sqft".
func (c Card) Features() string {
	return fmt.Sprintf("%d beds · %d baths · %d sqft", c.Bedrooms, c.Bathrooms, c.AreaSqft)
}
