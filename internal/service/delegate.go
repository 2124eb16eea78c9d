package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/backend/internal/db"
	"github.com/bookline/backend/internal/geo"
	"github.com/bookline/backend/internal/models"
)

var ErrShopNotFound = errors.New("shop not found")

const greetingServiceLimit = 3

type SessionStore interface {
	InsertSession(ctx context.Context, session models.DelegationSession) error
}

// ServiceView is a bookable service as presented to the client, price in
// minor units plus a formatted display string.
type ServiceView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DurationMins int    `json:"duration_mins"`
	PriceCents   int    `json:"price_cents"`
	PriceDisplay string `json:"price_display"`
}

type DelegateResult struct {
	Session  models.DelegationSession
	ShopName string
	Greeting string
	Services []ServiceView
}

// Delegator hands a discovered business plus customer context off to that
// business's booking conversation. The session identifier it returns is the
// sole correlation token downstream turns must echo.
type Delegator struct {
	directory Directory
	sessions  SessionStore
	analytics *Analytics
	now       func() time.Time
	newID     func() string
}

func NewDelegator(directory Directory, sessions SessionStore, analytics *Analytics) *Delegator {
	return &Delegator{
		directory: directory,
		sessions:  sessions,
		analytics: analytics,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

func (d *Delegator) Delegate(ctx context.Context, shopSlug string, customerCtx models.CustomerContext) (DelegateResult, error) {
	business, err := d.directory.GetBySlug(ctx, shopSlug)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return DelegateResult{}, fmt.Errorf("shop %q: %w", shopSlug, ErrShopNotFound)
		}
		return DelegateResult{}, err
	}

	session := models.DelegationSession{
		ID:        d.newID(),
		ShopSlug:  business.Slug,
		Context:   customerCtx,
		CreatedAt: d.now().UTC(),
	}
	if err := d.sessions.InsertSession(ctx, session); err != nil {
		return DelegateResult{}, err
	}

	result := DelegateResult{
		Session:  session,
		ShopName: business.Name,
		Greeting: composeGreeting(business, customerCtx.Intent),
		Services: serviceViews(business.Services),
	}

	event := models.AnalyticsEvent{
		Type:      models.EventDelegate,
		SessionID: session.ID,
		ShopSlug:  business.Slug,
		Intent:    customerCtx.Intent,
	}
	if customerCtx.Coord != nil && business.Coord != nil {
		dist := geo.Distance(*customerCtx.Coord, *business.Coord)
		event.DistMiles = &dist
	}
	d.analytics.Record(event)

	return result, nil
}

func composeGreeting(b models.Business, intent string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi, you're chatting with %s!", b.Name)

	intent = strings.TrimSpace(intent)
	if intent == "" {
		sb.WriteString(" How can we help you today?")
		return sb.String()
	}

	fmt.Fprintf(&sb, " Happy to help with %s.", intent)
	if names := greetingServices(b.Services, intent); len(names) > 0 {
		fmt.Fprintf(&sb, " We offer %s.", joinNatural(names))
	}
	sb.WriteString(" Would you like to book a time?")
	return sb.String()
}

// greetingServices picks services matching the intent, falling back to the
// first few as representatives, capped at greetingServiceLimit.
func greetingServices(services []models.BookableService, intent string) []string {
	var matched []string
	lowered := strings.ToLower(intent)
	for _, sv := range services {
		if strings.Contains(strings.ToLower(sv.Name), lowered) || strings.Contains(lowered, strings.ToLower(sv.Name)) {
			matched = append(matched, sv.Name)
		}
	}
	if len(matched) == 0 {
		for _, sv := range services {
			matched = append(matched, sv.Name)
		}
	}
	if len(matched) > greetingServiceLimit {
		matched = matched[:greetingServiceLimit]
	}
	return matched
}

func joinNatural(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

func serviceViews(services []models.BookableService) []ServiceView {
	out := make([]ServiceView, 0, len(services))
	for _, sv := range services {
		out = append(out, ServiceView{
			ID:           sv.ID,
			Name:         sv.Name,
			DurationMins: sv.DurationMins,
			PriceCents:   sv.PriceCents,
			PriceDisplay: FormatPrice(sv.PriceCents),
		})
	}
	return out
}

func FormatPrice(cents int) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
