package main

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/event-portal/internal/application"
	"github.com/example/event-portal/internal/persistence"
)

// The adapters below translate between the persistence models and the
// application layer's domain types so that both storage backends plug into
// the services unchanged.

type eventRepositoryAdapter struct {
	repo persistence.EventRepository
}

func newEventRepositoryAdapter(repo persistence.EventRepository) *eventRepositoryAdapter {
	return &eventRepositoryAdapter{repo: repo}
}

func (a *eventRepositoryAdapter) CreateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.CreateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, err
	}
	stored, err := a.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) GetEvent(ctx context.Context, id string) (application.Event, error) {
	stored, err := a.repo.GetEvent(ctx, id)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) UpdateEvent(ctx context.Context, event application.Event) (application.Event, error) {
	if err := a.repo.UpdateEvent(ctx, toPersistenceEvent(event)); err != nil {
		return application.Event{}, err
	}
	stored, err := a.repo.GetEvent(ctx, event.ID)
	if err != nil {
		return application.Event{}, err
	}
	return toApplicationEvent(stored), nil
}

func (a *eventRepositoryAdapter) DeleteEvent(ctx context.Context, id string) error {
	return a.repo.DeleteEvent(ctx, id)
}

func (a *eventRepositoryAdapter) ListEvents(ctx context.Context, filter application.EventRepositoryFilter) ([]application.Event, error) {
	models, err := a.repo.ListEvents(ctx, persistence.EventFilter{
		Status:      string(filter.Status),
		Category:    filter.Category,
		OrganizerID: filter.OrganizerID,
		Offset:      filter.Offset,
		Limit:       filter.Limit,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	events := make([]application.Event, 0, len(models))
	for _, model := range models {
		events = append(events, toApplicationEvent(model))
	}
	return events, nil
}

type ticketRepositoryAdapter struct {
	repo persistence.TicketTypeRepository
}

func newTicketRepositoryAdapter(repo persistence.TicketTypeRepository) *ticketRepositoryAdapter {
	return &ticketRepositoryAdapter{repo: repo}
}

func (a *ticketRepositoryAdapter) CreateTicketType(ctx context.Context, tt application.TicketType) (application.TicketType, error) {
	if err := a.repo.CreateTicketType(ctx, toPersistenceTicketType(tt)); err != nil {
		return application.TicketType{}, err
	}
	stored, err := a.repo.GetTicketType(ctx, tt.ID)
	if err != nil {
		return application.TicketType{}, err
	}
	return toApplicationTicketType(stored), nil
}

func (a *ticketRepositoryAdapter) GetTicketType(ctx context.Context, id string) (application.TicketType, error) {
	stored, err := a.repo.GetTicketType(ctx, id)
	if err != nil {
		return application.TicketType{}, err
	}
	return toApplicationTicketType(stored), nil
}

func (a *ticketRepositoryAdapter) UpdateTicketType(ctx context.Context, tt application.TicketType) (application.TicketType, error) {
	if err := a.repo.UpdateTicketType(ctx, toPersistenceTicketType(tt)); err != nil {
		return application.TicketType{}, err
	}
	stored, err := a.repo.GetTicketType(ctx, tt.ID)
	if err != nil {
		return application.TicketType{}, err
	}
	return toApplicationTicketType(stored), nil
}

func (a *ticketRepositoryAdapter) ClaimTicket(ctx context.Context, id string, now time.Time) (application.TicketType, error) {
	claimed, err := a.repo.ClaimTicket(ctx, id, now)
	if err != nil {
		return application.TicketType{}, err
	}
	return toApplicationTicketType(claimed), nil
}

func (a *ticketRepositoryAdapter) DeleteTicketType(ctx context.Context, id string) error {
	return a.repo.DeleteTicketType(ctx, id)
}

func (a *ticketRepositoryAdapter) ListTicketTypes(ctx context.Context, eventID string) ([]application.TicketType, error) {
	models, err := a.repo.ListTicketTypes(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	tiers := make([]application.TicketType, 0, len(models))
	for _, model := range models {
		tiers = append(tiers, toApplicationTicketType(model))
	}
	return tiers, nil
}

type attendeeRepositoryAdapter struct {
	repo persistence.AttendeeRepository
}

func newAttendeeRepositoryAdapter(repo persistence.AttendeeRepository) *attendeeRepositoryAdapter {
	return &attendeeRepositoryAdapter{repo: repo}
}

func (a *attendeeRepositoryAdapter) CreateAttendee(ctx context.Context, attendee application.Attendee) (application.Attendee, error) {
	if err := a.repo.CreateAttendee(ctx, toPersistenceAttendee(attendee)); err != nil {
		return application.Attendee{}, err
	}
	stored, err := a.repo.GetAttendee(ctx, attendee.ID)
	if err != nil {
		return application.Attendee{}, err
	}
	return toApplicationAttendee(stored), nil
}

func (a *attendeeRepositoryAdapter) GetAttendee(ctx context.Context, id string) (application.Attendee, error) {
	stored, err := a.repo.GetAttendee(ctx, id)
	if err != nil {
		return application.Attendee{}, err
	}
	return toApplicationAttendee(stored), nil
}

func (a *attendeeRepositoryAdapter) UpdateAttendee(ctx context.Context, attendee application.Attendee) (application.Attendee, error) {
	if err := a.repo.UpdateAttendee(ctx, toPersistenceAttendee(attendee)); err != nil {
		return application.Attendee{}, err
	}
	stored, err := a.repo.GetAttendee(ctx, attendee.ID)
	if err != nil {
		return application.Attendee{}, err
	}
	return toApplicationAttendee(stored), nil
}

func (a *attendeeRepositoryAdapter) ListAttendees(ctx context.Context, eventID string) ([]application.Attendee, error) {
	models, err := a.repo.ListAttendees(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	attendees := make([]application.Attendee, 0, len(models))
	for _, model := range models {
		attendees = append(attendees, toApplicationAttendee(model))
	}
	return attendees, nil
}

type analyticsRepositoryAdapter struct {
	repo persistence.AnalyticsRepository
}

func newAnalyticsRepositoryAdapter(repo persistence.AnalyticsRepository) *analyticsRepositoryAdapter {
	return &analyticsRepositoryAdapter{repo: repo}
}

func (a *analyticsRepositoryAdapter) CreateSnapshot(ctx context.Context, snapshot application.AnalyticsSnapshot) error {
	return a.repo.CreateSnapshot(ctx, toPersistenceSnapshot(snapshot))
}

func (a *analyticsRepositoryAdapter) GetSnapshot(ctx context.Context, eventID string) (application.AnalyticsSnapshot, error) {
	stored, err := a.repo.GetSnapshot(ctx, eventID)
	if err != nil {
		return application.AnalyticsSnapshot{}, err
	}
	return toApplicationSnapshot(stored), nil
}

func (a *analyticsRepositoryAdapter) ApplySnapshotDelta(ctx context.Context, eventID string, delta application.SnapshotDelta) (application.AnalyticsSnapshot, error) {
	stored, err := a.repo.ApplySnapshotDelta(ctx, eventID, persistence.SnapshotDelta{
		Views:         delta.Views,
		Registrations: delta.Registrations,
		Referrer:      delta.Referrer,
		Revenue:       delta.Revenue,
		OccurredAt:    delta.OccurredAt,
	})
	if err != nil {
		return application.AnalyticsSnapshot{}, err
	}
	return toApplicationSnapshot(stored), nil
}

type campaignRepositoryAdapter struct {
	repo persistence.CampaignRepository
}

func newCampaignRepositoryAdapter(repo persistence.CampaignRepository) *campaignRepositoryAdapter {
	return &campaignRepositoryAdapter{repo: repo}
}

func (a *campaignRepositoryAdapter) CreateCampaign(ctx context.Context, campaign application.Campaign) (application.Campaign, error) {
	if err := a.repo.CreateCampaign(ctx, toPersistenceCampaign(campaign)); err != nil {
		return application.Campaign{}, err
	}
	stored, err := a.repo.GetCampaign(ctx, campaign.ID)
	if err != nil {
		return application.Campaign{}, err
	}
	return toApplicationCampaign(stored), nil
}

func (a *campaignRepositoryAdapter) GetCampaign(ctx context.Context, id string) (application.Campaign, error) {
	stored, err := a.repo.GetCampaign(ctx, id)
	if err != nil {
		return application.Campaign{}, err
	}
	return toApplicationCampaign(stored), nil
}

func (a *campaignRepositoryAdapter) UpdateCampaign(ctx context.Context, campaign application.Campaign) (application.Campaign, error) {
	if err := a.repo.UpdateCampaign(ctx, toPersistenceCampaign(campaign)); err != nil {
		return application.Campaign{}, err
	}
	stored, err := a.repo.GetCampaign(ctx, campaign.ID)
	if err != nil {
		return application.Campaign{}, err
	}
	return toApplicationCampaign(stored), nil
}

func (a *campaignRepositoryAdapter) DeleteCampaign(ctx context.Context, id string) error {
	return a.repo.DeleteCampaign(ctx, id)
}

func (a *campaignRepositoryAdapter) ListCampaigns(ctx context.Context, eventID string) ([]application.Campaign, error) {
	models, err := a.repo.ListCampaigns(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	campaigns := make([]application.Campaign, 0, len(models))
	for _, model := range models {
		campaigns = append(campaigns, toApplicationCampaign(model))
	}
	return campaigns, nil
}

type credentialStoreAdapter struct {
	repo persistence.UserRepository
}

func newCredentialStoreAdapter(repo persistence.UserRepository) *credentialStoreAdapter {
	return &credentialStoreAdapter{repo: repo}
}

func (a *credentialStoreAdapter) GetUserCredentialsByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return application.UserCredentials{
		User:         toApplicationUser(stored),
		PasswordHash: stored.PasswordHash,
		Disabled:     stored.Disabled,
	}, nil
}

func (a *credentialStoreAdapter) GetUser(ctx context.Context, id string) (application.User, error) {
	stored, err := a.repo.GetUser(ctx, id)
	if err != nil {
		return application.User{}, err
	}
	return toApplicationUser(stored), nil
}

type sessionRepositoryAdapter struct {
	repo persistence.SessionRepository
}

func newSessionRepositoryAdapter(repo persistence.SessionRepository) *sessionRepositoryAdapter {
	return &sessionRepositoryAdapter{repo: repo}
}

func (a *sessionRepositoryAdapter) CreateSession(ctx context.Context, session application.Session) (application.Session, error) {
	stored, err := a.repo.CreateSession(ctx, toPersistenceSession(session))
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) GetSession(ctx context.Context, token string) (application.Session, error) {
	stored, err := a.repo.GetSession(ctx, token)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) RevokeSession(ctx context.Context, token string, revokedAt time.Time) (application.Session, error) {
	stored, err := a.repo.RevokeSession(ctx, token, revokedAt)
	if err != nil {
		return application.Session{}, err
	}
	return toApplicationSession(stored), nil
}

func (a *sessionRepositoryAdapter) DeleteExpiredSessions(ctx context.Context, reference time.Time) error {
	return a.repo.DeleteExpiredSessions(ctx, reference)
}

type securityLogAdapter struct {
	repo persistence.SecurityLogRepository
}

func newSecurityLogAdapter(repo persistence.SecurityLogRepository) *securityLogAdapter {
	return &securityLogAdapter{repo: repo}
}

func (a *securityLogAdapter) AppendSecurityLog(ctx context.Context, entry application.SecurityLogEntry) error {
	return a.repo.AppendSecurityLog(ctx, persistence.SecurityLogEntry{
		ID:         entry.ID,
		Actor:      entry.Actor,
		Action:     entry.Action,
		Detail:     entry.Detail,
		OccurredAt: entry.OccurredAt,
	})
}

func toApplicationEvent(model persistence.Event) application.Event {
	return application.Event{
		ID:          model.ID,
		OrganizerID: model.OrganizerID,
		Title:       model.Title,
		Description: model.Description,
		Category:    model.Category,
		StartsAt:    model.StartsAt,
		Venue: application.Venue{
			Name:     model.Venue.Name,
			Address:  model.Venue.Address,
			Capacity: model.Venue.Capacity,
		},
		CoverImage: model.CoverImage,
		Status:     application.EventStatus(model.Status),
		Visibility: application.Visibility(model.Visibility),
		Price:      cloneDecimal(model.Price),
		Currency:   model.Currency,
		CreatedAt:  model.CreatedAt,
		UpdatedAt:  model.UpdatedAt,
	}
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:          event.ID,
		OrganizerID: event.OrganizerID,
		Title:       event.Title,
		Description: event.Description,
		Category:    event.Category,
		StartsAt:    event.StartsAt,
		Venue: persistence.Venue{
			Name:     event.Venue.Name,
			Address:  event.Venue.Address,
			Capacity: event.Venue.Capacity,
		},
		CoverImage: event.CoverImage,
		Status:     string(event.Status),
		Visibility: string(event.Visibility),
		Price:      cloneDecimal(event.Price),
		Currency:   event.Currency,
		CreatedAt:  event.CreatedAt,
		UpdatedAt:  event.UpdatedAt,
	}
}

func toApplicationTicketType(model persistence.TicketType) application.TicketType {
	return application.TicketType{
		ID:           model.ID,
		EventID:      model.EventID,
		Name:         model.Name,
		Description:  model.Description,
		Price:        model.Price,
		Currency:     model.Currency,
		Quantity:     model.Quantity,
		Sold:         model.Sold,
		SaleStart:    model.SaleStart,
		SaleEnd:      model.SaleEnd,
		Active:       model.Active,
		Benefits:     append([]string(nil), model.Benefits...),
		Restrictions: append([]string(nil), model.Restrictions...),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func toPersistenceTicketType(tt application.TicketType) persistence.TicketType {
	return persistence.TicketType{
		ID:           tt.ID,
		EventID:      tt.EventID,
		Name:         tt.Name,
		Description:  tt.Description,
		Price:        tt.Price,
		Currency:     tt.Currency,
		Quantity:     tt.Quantity,
		Sold:         tt.Sold,
		SaleStart:    tt.SaleStart,
		SaleEnd:      tt.SaleEnd,
		Active:       tt.Active,
		Benefits:     append([]string(nil), tt.Benefits...),
		Restrictions: append([]string(nil), tt.Restrictions...),
		CreatedAt:    tt.CreatedAt,
		UpdatedAt:    tt.UpdatedAt,
	}
}

func toApplicationAttendee(model persistence.Attendee) application.Attendee {
	return application.Attendee{
		ID:            model.ID,
		EventID:       model.EventID,
		TicketTypeID:  cloneString(model.TicketTypeID),
		UserID:        model.UserID,
		RegisteredAt:  model.RegisteredAt,
		CheckInStatus: application.CheckInStatus(model.CheckInStatus),
		PaymentStatus: application.PaymentStatus(model.PaymentStatus),
		UpdatedAt:     model.UpdatedAt,
	}
}

func toPersistenceAttendee(attendee application.Attendee) persistence.Attendee {
	return persistence.Attendee{
		ID:            attendee.ID,
		EventID:       attendee.EventID,
		TicketTypeID:  cloneString(attendee.TicketTypeID),
		UserID:        attendee.UserID,
		RegisteredAt:  attendee.RegisteredAt,
		CheckInStatus: string(attendee.CheckInStatus),
		PaymentStatus: string(attendee.PaymentStatus),
		UpdatedAt:     attendee.UpdatedAt,
	}
}

func toApplicationSnapshot(model persistence.AnalyticsSnapshot) application.AnalyticsSnapshot {
	referrers := make([]application.ReferrerCount, 0, len(model.Referrers))
	for _, referrer := range model.Referrers {
		referrers = append(referrers, application.ReferrerCount{Source: referrer.Source, Count: referrer.Count})
	}
	if len(referrers) == 0 {
		referrers = nil
	}
	return application.AnalyticsSnapshot{
		EventID:       model.EventID,
		Views:         model.Views,
		Registrations: model.Registrations,
		Revenue:       model.Revenue,
		Referrers:     referrers,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func toPersistenceSnapshot(snapshot application.AnalyticsSnapshot) persistence.AnalyticsSnapshot {
	referrers := make([]persistence.ReferrerCount, 0, len(snapshot.Referrers))
	for _, referrer := range snapshot.Referrers {
		referrers = append(referrers, persistence.ReferrerCount{Source: referrer.Source, Count: referrer.Count})
	}
	if len(referrers) == 0 {
		referrers = nil
	}
	return persistence.AnalyticsSnapshot{
		EventID:       snapshot.EventID,
		Views:         snapshot.Views,
		Registrations: snapshot.Registrations,
		Revenue:       snapshot.Revenue,
		Referrers:     referrers,
		CreatedAt:     snapshot.CreatedAt,
		UpdatedAt:     snapshot.UpdatedAt,
	}
}

func toApplicationCampaign(model persistence.Campaign) application.Campaign {
	return application.Campaign{
		ID:        model.ID,
		EventID:   model.EventID,
		Name:      model.Name,
		Channel:   application.CampaignChannel(model.Channel),
		Subject:   model.Subject,
		Content:   model.Content,
		Audience:  model.Audience,
		Status:    application.CampaignStatus(model.Status),
		SentAt:    cloneTime(model.SentAt),
		OpenRate:  model.OpenRate,
		ClickRate: model.ClickRate,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

func toPersistenceCampaign(campaign application.Campaign) persistence.Campaign {
	return persistence.Campaign{
		ID:        campaign.ID,
		EventID:   campaign.EventID,
		Name:      campaign.Name,
		Channel:   string(campaign.Channel),
		Subject:   campaign.Subject,
		Content:   campaign.Content,
		Audience:  campaign.Audience,
		Status:    string(campaign.Status),
		SentAt:    cloneTime(campaign.SentAt),
		OpenRate:  campaign.OpenRate,
		ClickRate: campaign.ClickRate,
		CreatedAt: campaign.CreatedAt,
		UpdatedAt: campaign.UpdatedAt,
	}
}

func toApplicationUser(model persistence.User) application.User {
	return application.User{
		ID:          model.ID,
		Email:       model.Email,
		DisplayName: model.DisplayName,
		IsAdmin:     model.IsAdmin,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func toApplicationSession(model persistence.Session) application.Session {
	return application.Session{
		ID:        model.ID,
		UserID:    model.UserID,
		Token:     model.Token,
		ExpiresAt: model.ExpiresAt,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
		RevokedAt: cloneTime(model.RevokedAt),
	}
}

func toPersistenceSession(session application.Session) persistence.Session {
	return persistence.Session{
		ID:        session.ID,
		UserID:    session.UserID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: session.CreatedAt,
		UpdatedAt: session.UpdatedAt,
		RevokedAt: cloneTime(session.RevokedAt),
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}

func cloneDecimal(value *decimal.Decimal) *decimal.Decimal {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
