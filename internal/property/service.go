package property

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/evcraddock/smartrent/internal/access"
	"github.com/evcraddock/smartrent/internal/backend"
	"github.com/evcraddock/smartrent/internal/notification"
	"github.com/evcraddock/smartrent/internal/notify"
	"github.com/evcraddock/smartrent/internal/profile"
	"github.com/evcraddock/smartrent/internal/validate"
)

const (
	table       = "properties"
	imagesTable = "property_images"
	viewsTable  = "property_views"
	favTable    = "favorites"
)

// DefaultFeaturedLimit is how many listings Featured returns by default.
const DefaultFeaturedLimit = 6

// Service provides property business logic.
type Service struct {
	b      backend.Backend
	access *access.Checker
	notes  *notification.Service
	sink   notify.Sink
	log    *slog.Logger
	now    func() time.Time
}

// NewService creates a property service.
func NewService(b backend.Backend, notes *notification.Service, sink notify.Sink, log *slog.Logger) *Service {
	if sink == nil {
		sink = notify.Discard
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		b:      b,
		access: access.NewChecker(b),
		notes:  notes,
		sink:   sink,
		log:    log,
		now:    time.Now,
	}
}

// Featured returns verified, available listings, newest first, with
// photos and agent attached. Failures are logged and yield an empty list.
func (s *Service) Featured(ctx context.Context, limit int) []Property {
	if limit <= 0 {
		limit = DefaultFeaturedLimit
	}
	q := backend.From(table).
		Eq("is_verified", true).
		Eq("is_available", true).
		Order("created_at", false).
		Limit(limit)
	list, err := s.list(ctx, q)
	if err != nil {
		s.log.Error("fetching featured properties", "error", err)
		return []Property{}
	}
	return list
}

// Search returns available listings matching f.
func (s *Service) Search(ctx context.Context, f Filters) ([]Property, error) {
	q := backend.From(table).Eq("is_available", true)
	if loc := strings.TrimSpace(f.Location); loc != "" {
		pattern := "%" + loc + "%"
		q.Or(
			backend.And(backend.ILike("address", pattern)),
			backend.And(backend.ILike("title", pattern)),
		)
	}
	if f.PropertyType != "" {
		q.Eq("property_type", f.PropertyType)
	}
	if f.MinPrice > 0 {
		q.Gte("price", f.MinPrice)
	}
	if f.MaxPrice > 0 {
		q.Where(backend.Lte("price", f.MaxPrice))
	}
	if f.Bedrooms > 0 {
		q.Gte("bedrooms", f.Bedrooms)
	}
	if f.Bathrooms > 0 {
		q.Gte("bathrooms", f.Bathrooms)
	}
	if len(f.Amenities) > 0 {
		q.Where(backend.Contains("amenities", f.Amenities))
	}
	switch f.SortBy {
	case SortPriceAsc:
		q.Order("price", true)
	case SortPriceDesc:
		q.Order("price", false)
	default:
		q.Order("created_at", false)
	}

	list, err := s.list(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("searching properties: %w", err)
	}
	return list, nil
}

// ByAgent returns the agent's listings, newest first.
func (s *Service) ByAgent(ctx context.Context, agentID string) ([]Property, error) {
	list, err := s.list(ctx, backend.From(table).Eq("agent_id", agentID).Order("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("listing agent properties: %w", err)
	}
	return list, nil
}

// ByLandlord returns the landlord's listings, newest first.
func (s *Service) ByLandlord(ctx context.Context, landlordID string) ([]Property, error) {
	list, err := s.list(ctx, backend.From(table).Eq("landlord_id", landlordID).Order("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("listing landlord properties: %w", err)
	}
	return list, nil
}

// Pending returns unverified listings awaiting admin review, oldest first.
func (s *Service) Pending(ctx context.Context) ([]Property, error) {
	list, err := s.list(ctx, backend.From(table).Eq("is_verified", false).Order("created_at", true))
	if err != nil {
		return nil, fmt.Errorf("listing unverified properties: %w", err)
	}
	return list, nil
}

// Get returns one listing with photos and agent attached.
func (s *Service) Get(ctx context.Context, id string) (*Property, error) {
	row, err := backend.One(ctx, s.b, backend.From(table).Eq("id", id))
	if err != nil {
		return nil, fmt.Errorf("property %s: %w", id, err)
	}
	list, err := s.attach(ctx, []backend.Row{row})
	if err != nil {
		return nil, err
	}
	return &list[0], nil
}

// ByIDs returns the listings with the given ids keyed by id, without
// photos or agent.
func ByIDs(ctx context.Context, b backend.Backend, ids []string) (map[string]Property, error) {
	out := make(map[string]Property, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := b.Select(ctx, backend.From(table).In("id", ids))
	if err != nil {
		return nil, fmt.Errorf("loading properties: %w", err)
	}
	var list []Property
	if err := backend.Decode(rows, &list); err != nil {
		return nil, err
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

// Create validates and stores a new listing owned by creatorID. Agents
// become the listing agent and landlords the landlord; admins may set
// either.
func (s *Service) Create(ctx context.Context, creatorID string, in NewProperty) (*Property, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if err := s.access.Require(ctx, creatorID, "properties", "create"); err != nil {
		return nil, err
	}

	agentID, landlordID := in.AgentID, in.LandlordID
	switch s.access.Role(ctx, creatorID) {
	case access.Agent:
		agentID, landlordID = creatorID, ""
	case access.Landlord:
		agentID, landlordID = "", creatorID
	}

	amenities := in.Amenities
	if amenities == nil {
		amenities = []string{}
	}
	row, err := s.b.Insert(ctx, table, backend.Row{
		"title":         in.Title,
		"description":   in.Description,
		"address":       in.Address,
		"price":         in.Price,
		"bedrooms":      in.Bedrooms,
		"bathrooms":     in.Bathrooms,
		"area_sqft":     in.AreaSqft,
		"property_type": in.PropertyType,
		"amenities":     amenities,
		"is_verified":   false,
		"is_available":  true,
		"agent_id":      nullable(agentID),
		"landlord_id":   nullable(landlordID),
	})
	if err != nil {
		s.sink.Notify("Error creating property", notify.Error)
		return nil, fmt.Errorf("creating property: %w", err)
	}

	id := row.String("id")
	for i, url := range in.Images {
		if _, err := s.b.Insert(ctx, imagesTable, backend.Row{
			"property_id": id,
			"image_url":   url,
			"position":    i,
		}); err != nil {
			return nil, fmt.Errorf("adding image %d: %w", i, err)
		}
	}

	s.log.Info("property created", "id", id, "creator", creatorID)
	s.sink.Notify("Property listed successfully!", notify.Success)
	return s.Get(ctx, id)
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Verify approves or rejects a listing. Only admins may verify; the
// listing's owner is notified either way.
func (s *Service) Verify(ctx context.Context, adminID, propertyID string, approved bool) error {
	if err := s.access.Require(ctx, adminID, "properties", "verify"); err != nil {
		return err
	}
	p, err := s.Get(ctx, propertyID)
	if err != nil {
		return err
	}
	if _, err := s.b.Update(ctx, backend.From(table).Eq("id", propertyID), backend.Row{
		"is_verified": approved,
		"updated_at":  s.now().UTC(),
	}); err != nil {
		return fmt.Errorf("verifying property: %w", err)
	}

	owner := p.AgentID
	if owner == "" {
		owner = p.LandlordID
	}
	if owner != "" && s.notes != nil {
		if _, err := s.notes.PropertyVerification(ctx, propertyID, owner, approved); err != nil {
			s.log.Warn("notifying property owner", "property_id", propertyID, "error", err)
		}
	}
	return nil
}

// SetAvailable marks a listing available or rented. Only its owner or an
// admin may change it.
func (s *Service) SetAvailable(ctx context.Context, userID, propertyID string, available bool) error {
	if !s.access.IsPropertyOwner(ctx, propertyID, userID) && !s.access.IsAdmin(ctx, userID) {
		return fmt.Errorf("update property: %w", access.ErrForbidden)
	}
	n, err := s.b.Update(ctx, backend.From(table).Eq("id", propertyID), backend.Row{
		"is_available": available,
		"updated_at":   s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("updating availability: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("property %s: %w", propertyID, backend.ErrNotFound)
	}
	return nil
}

// Delete removes a listing. Owners with delete permission and admins may
// delete.
func (s *Service) Delete(ctx context.Context, userID, propertyID string) error {
	if err := s.access.Require(ctx, userID, "properties", "delete"); err != nil {
		return err
	}
	if !s.access.IsAdmin(ctx, userID) && !s.access.IsPropertyOwner(ctx, propertyID, userID) {
		return fmt.Errorf("delete property: %w", access.ErrForbidden)
	}
	n, err := s.b.Delete(ctx, backend.From(table).Eq("id", propertyID))
	if err != nil {
		return fmt.Errorf("deleting property: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("property %s: %w", propertyID, backend.ErrNotFound)
	}
	s.sink.Notify("Property deleted successfully!", notify.Success)
	return nil
}

// Favorites returns the user's saved listings, most recently saved first.
func (s *Service) Favorites(ctx context.Context, userID string) ([]Property, error) {
	rows, err := s.b.Select(ctx, backend.From(favTable).Eq("user_id", userID).Order("created_at", false))
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	ids := backend.IDs(rows, "property_id")
	if len(ids) == 0 {
		return []Property{}, nil
	}
	found, err := s.list(ctx, backend.From(table).In("id", ids))
	if err != nil {
		return nil, fmt.Errorf("listing favorites: %w", err)
	}
	byID := make(map[string]Property, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	list := make([]Property, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			list = append(list, p)
		}
	}
	return list, nil
}

// IsFavorite reports whether the user saved the listing.
func (s *Service) IsFavorite(ctx context.Context, userID, propertyID string) bool {
	n, err := s.b.Count(ctx, backend.From(favTable).Eq("user_id", userID).Eq("property_id", propertyID))
	return err == nil && n > 0
}

// AddFavorite saves a listing for the user. Saving twice is a no-op.
func (s *Service) AddFavorite(ctx context.Context, userID, propertyID string) error {
	if err := s.access.Require(ctx, userID, "properties", "favorite"); err != nil {
		return err
	}
	if s.IsFavorite(ctx, userID, propertyID) {
		return nil
	}
	if _, err := s.b.Insert(ctx, favTable, backend.Row{
		"user_id":     userID,
		"property_id": propertyID,
	}); err != nil {
		return fmt.Errorf("adding favorite: %w", err)
	}
	s.sink.Notify("Added to favorites", notify.Success)
	return nil
}

// RemoveFavorite removes a saved listing.
func (s *Service) RemoveFavorite(ctx context.Context, userID, propertyID string) error {
	if _, err := s.b.Delete(ctx, backend.From(favTable).Eq("user_id", userID).Eq("property_id", propertyID)); err != nil {
		return fmt.Errorf("removing favorite: %w", err)
	}
	s.sink.Notify("Removed from favorites", notify.Info)
	return nil
}

// RecordView logs that viewerID (may be empty for anonymous visitors)
// opened the listing.
func (s *Service) RecordView(ctx context.Context, propertyID, viewerID string) error {
	if _, err := s.b.Insert(ctx, viewsTable, backend.Row{
		"property_id": propertyID,
		"viewer_id":   nullable(viewerID),
		"viewed_at":   s.now().UTC(),
	}); err != nil {
		return fmt.Errorf("recording view: %w", err)
	}
	return nil
}

// list runs q and attaches photos and agents.
func (s *Service) list(ctx context.Context, q *backend.Query) ([]Property, error) {
	rows, err := s.b.Select(ctx, q)
	if err != nil {
		return nil, err
	}
	return s.attach(ctx, rows)
}

func (s *Service) attach(ctx context.Context, rows []backend.Row) ([]Property, error) {
	var list []Property
	if err := backend.Decode(rows, &list); err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return list, nil
	}

	ids := backend.IDs(rows, "id")
	imgRows, err := s.b.Select(ctx, backend.From(imagesTable).In("property_id", ids).Order("position", true))
	if err != nil {
		return nil, fmt.Errorf("loading images: %w", err)
	}
	var images []Image
	if err := backend.Decode(imgRows, &images); err != nil {
		return nil, err
	}
	byProperty := make(map[string][]Image)
	for _, img := range images {
		byProperty[img.PropertyID] = append(byProperty[img.PropertyID], img)
	}

	agents, err := profile.ByIDs(ctx, s.b, backend.IDs(rows, "agent_id"))
	if err != nil {
		return nil, err
	}

	for i := range list {
		list[i].Images = byProperty[list[i].ID]
		if a, ok := agents[list[i].AgentID]; ok {
			list[i].Agent = &a
		}
	}
	return list, nil
}
