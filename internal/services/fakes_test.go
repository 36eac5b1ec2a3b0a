package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"entrepreneur-connect-backend/internal/apperrors"
	"entrepreneur-connect-backend/internal/geo"
	"entrepreneur-connect-backend/internal/models"
	"entrepreneur-connect-backend/internal/push"
	"entrepreneur-connect-backend/internal/realtime"
)

// stepClock returns a strictly increasing time on every call
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*models.Profile
	views    []string
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: make(map[string]*models.Profile)}
}

func (f *fakeProfiles) add(p models.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := p
	f.profiles[p.ID] = &cp
}

// requireProfiles mirrors the REFERENCES profiles (id) foreign keys
func (f *fakeProfiles) requireProfiles(ids ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if _, ok := f.profiles[id]; !ok {
			return fmt.Errorf("foreign key violation: no profile %q", id)
		}
	}
	return nil
}

func (f *fakeProfiles) Get(ctx context.Context, id string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) CreateDefault(ctx context.Context, p *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[p.ID]; ok {
		return nil
	}
	cp := *p
	f.profiles[p.ID] = &cp
	return nil
}

func (f *fakeProfiles) Update(ctx context.Context, p *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[p.ID]; !ok {
		return apperrors.ErrNotFound
	}
	cp := *p
	f.profiles[p.ID] = &cp
	return nil
}

func (f *fakeProfiles) Exists(ctx context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.profiles[id]
	return ok, nil
}

func (f *fakeProfiles) Summaries(ctx context.Context, ids []string) (map[string]models.ProfileSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]models.ProfileSummary)
	for _, id := range ids {
		if p, ok := f.profiles[id]; ok {
			out[id] = p.Summary()
		}
	}
	return out, nil
}

func (f *fakeProfiles) Discover(ctx context.Context, viewerID string, filter models.DiscoverFilter) ([]*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Profile
	for _, p := range f.profiles {
		if p.ID == viewerID {
			continue
		}
		if filter.Sector != "" && p.Sector != filter.Sector {
			continue
		}
		if filter.City != "" && !strings.Contains(strings.ToLower(p.City), strings.ToLower(filter.City)) {
			continue
		}
		if filter.Query != "" {
			haystack := strings.ToLower(strings.Join(append([]string{
				p.FirstName, p.LastName, p.FullName(), p.Company, p.Position, p.Bio,
			}, p.Skills...), " "))
			if !strings.Contains(haystack, strings.ToLower(filter.Query)) {
				continue
			}
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeProfiles) SetPushToken(ctx context.Context, id string, token *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.PushToken = token
	return nil
}

func (f *fakeProfiles) SetAvatarURL(ctx context.Context, id, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.AvatarURL = url
	return nil
}

func (f *fakeProfiles) SetCoverURL(ctx context.Context, id, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	p.CoverURL = url
	return nil
}

func (f *fakeProfiles) RecordView(ctx context.Context, profileID, viewerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, profileID+"<-"+viewerID)
	return nil
}

func (f *fakeProfiles) CountViews(ctx context.Context, profileID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, v := range f.views {
		if strings.HasPrefix(v, profileID+"<-") {
			n++
		}
	}
	return n, nil
}

// fakeConnections enforces one row per unordered pair, the pending-only
// transition and the profile references, like the SQL schema
type fakeConnections struct {
	mu       sync.Mutex
	conns    []*models.Connection
	clock    func() time.Time
	profiles *fakeProfiles
}

func newFakeConnections(clock func() time.Time, profiles *fakeProfiles) *fakeConnections {
	return &fakeConnections{clock: clock, profiles: profiles}
}

func (f *fakeConnections) Create(ctx context.Context, c *models.Connection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.profiles.requireProfiles(c.UserID, c.ConnectedUserID); err != nil {
		return err
	}
	for _, existing := range f.conns {
		if existing.Involves(c.UserID) && existing.Involves(c.ConnectedUserID) {
			return apperrors.ErrConnectionExists
		}
	}
	cp := *c
	f.conns = append(f.conns, &cp)
	return nil
}

func (f *fakeConnections) GetByID(ctx context.Context, id string) (*models.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conns {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperrors.ErrConnectionNotFound
}

func (f *fakeConnections) FindBetween(ctx context.Context, a, b string) (*models.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conns {
		if c.Involves(a) && c.Involves(b) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperrors.ErrConnectionNotFound
}

func (f *fakeConnections) Transition(ctx context.Context, id, recipientID string, status models.ConnectionStatus) (*models.Connection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conns {
		if c.ID == id && c.ConnectedUserID == recipientID && c.Status == models.StatusPending {
			c.Status = status
			now := f.clock()
			c.UpdatedAt = &now
			cp := *c
			return &cp, nil
		}
	}
	return nil, apperrors.ErrInvalidTransition
}

func (f *fakeConnections) filter(keep func(c *models.Connection) bool) []models.Connection {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Connection
	for _, c := range f.conns {
		if keep(c) {
			out = append(out, *c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortTime().After(out[j].SortTime()) })
	return out
}

func (f *fakeConnections) ListReceived(ctx context.Context, userID string) ([]models.Connection, error) {
	return f.filter(func(c *models.Connection) bool {
		return c.ConnectedUserID == userID && c.Status == models.StatusPending
	}), nil
}

func (f *fakeConnections) ListSent(ctx context.Context, userID string) ([]models.Connection, error) {
	return f.filter(func(c *models.Connection) bool { return c.UserID == userID }), nil
}

func (f *fakeConnections) ListAccepted(ctx context.Context, userID string) ([]models.Connection, error) {
	return f.filter(func(c *models.Connection) bool {
		return c.Involves(userID) && c.Status == models.StatusAccepted
	}), nil
}

func (f *fakeConnections) ListForUser(ctx context.Context, userID string) ([]models.Connection, error) {
	return f.filter(func(c *models.Connection) bool { return c.Involves(userID) }), nil
}

func (f *fakeConnections) CountPending(ctx context.Context, userID string) (int, error) {
	list, _ := f.ListReceived(ctx, userID)
	return len(list), nil
}

func (f *fakeConnections) CountAccepted(ctx context.Context, userID string) (int, error) {
	list, _ := f.ListAccepted(ctx, userID)
	return len(list), nil
}

type fakeNotifications struct {
	mu    sync.Mutex
	items []models.Notification
}

func (f *fakeNotifications) Create(ctx context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, *n)
	return nil
}

func (f *fakeNotifications) forUser(userID string) []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for i := len(f.items) - 1; i >= 0; i-- {
		if f.items[i].UserID == userID {
			out = append(out, f.items[i])
		}
	}
	return out
}

func (f *fakeNotifications) List(ctx context.Context, userID string, limit, offset int) ([]models.Notification, int, error) {
	all := f.forUser(userID)
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (f *fakeNotifications) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var n int64
	for i := range f.items {
		if f.items[i].UserID == userID && wanted[f.items[i].ID] && !f.items[i].IsRead {
			f.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.items {
		if f.items[i].UserID == userID && !f.items[i].IsRead {
			f.items[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) CountUnread(ctx context.Context, userID string) (int, error) {
	n := 0
	for _, item := range f.forUser(userID) {
		if !item.IsRead {
			n++
		}
	}
	return n, nil
}

type fakeMessages struct {
	mu       sync.Mutex
	msgs     []models.Message
	profiles *fakeProfiles
}

func (f *fakeMessages) Create(ctx context.Context, m *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.profiles.requireProfiles(m.SenderID, m.ReceiverID); err != nil {
		return err
	}
	f.msgs = append(f.msgs, *m)
	return nil
}

func (f *fakeMessages) filter(keep func(m models.Message) bool) []models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Message
	for _, m := range f.msgs {
		if keep(m) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (f *fakeMessages) ListForUser(ctx context.Context, userID string) ([]models.Message, error) {
	return f.filter(func(m models.Message) bool { return m.SenderID == userID || m.ReceiverID == userID }), nil
}

func (f *fakeMessages) ListBetween(ctx context.Context, a, b string) ([]models.Message, error) {
	return f.filter(func(m models.Message) bool {
		return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
	}), nil
}

func (f *fakeMessages) RecentReceived(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	all := f.filter(func(m models.Message) bool { return m.ReceiverID == userID })
	out := make([]models.Message, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (f *fakeMessages) CountUnread(ctx context.Context, userID string) (int, error) {
	return len(f.filter(func(m models.Message) bool { return m.ReceiverID == userID && !m.IsRead })), nil
}

func (f *fakeMessages) CountReceived(ctx context.Context, userID string) (int, error) {
	return len(f.filter(func(m models.Message) bool { return m.ReceiverID == userID })), nil
}

func (f *fakeMessages) MarkConversationRead(ctx context.Context, receiverID, senderID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.msgs {
		if f.msgs[i].ReceiverID == receiverID && f.msgs[i].SenderID == senderID && !f.msgs[i].IsRead {
			f.msgs[i].IsRead = true
			n++
		}
	}
	return n, nil
}

// fakeEvents enforces unique slugs, one participant row per (event, user),
// the capacity check and the profile references
type fakeEvents struct {
	mu           sync.Mutex
	events       []*models.Event
	participants []models.EventParticipant
	takenSlugs   map[string]bool
	profiles     *fakeProfiles
}

func newFakeEvents(profiles *fakeProfiles) *fakeEvents {
	return &fakeEvents{takenSlugs: make(map[string]bool), profiles: profiles}
}

func (f *fakeEvents) Create(ctx context.Context, e *models.Event, organizer *models.EventParticipant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.profiles.requireProfiles(e.OrganizerID, organizer.UserID); err != nil {
		return err
	}
	if f.takenSlugs[e.Slug] {
		return apperrors.NewConflictError("event slug already taken")
	}
	for _, existing := range f.events {
		if existing.Slug == e.Slug {
			return apperrors.NewConflictError("event slug already taken")
		}
	}
	cp := *e
	f.events = append(f.events, &cp)
	f.participants = append(f.participants, *organizer)
	return nil
}

func (f *fakeEvents) find(id string) *models.Event {
	for _, e := range f.events {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func (f *fakeEvents) GetByID(ctx context.Context, id string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e := f.find(id); e != nil {
		cp := *e
		return &cp, nil
	}
	return nil, apperrors.ErrEventNotFound
}

func (f *fakeEvents) GetBySlug(ctx context.Context, slug string) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.Slug == slug {
			cp := *e
			return &cp, nil
		}
	}
	return nil, apperrors.ErrEventNotFound
}

func (f *fakeEvents) List(ctx context.Context, filter models.EventFilter, dates models.DateRange) ([]models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, e := range f.events {
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		if dates.From != "" && e.StartDate < dates.From {
			continue
		}
		if dates.To != "" && e.StartDate > dates.To {
			continue
		}
		if filter.Query != "" {
			q := strings.ToLower(filter.Query)
			text := strings.ToLower(e.Title + " " + e.Description + " " + e.Location)
			if !strings.Contains(text, q) {
				continue
			}
		}
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate+out[i].StartTime < out[j].StartDate+out[j].StartTime
	})
	return out, nil
}

func (f *fakeEvents) Upcoming(ctx context.Context, userID, from string, limit int) ([]models.Event, error) {
	all, _ := f.List(ctx, models.EventFilter{}, models.DateRange{From: from})
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Event
	for _, e := range all {
		for _, p := range f.participants {
			if p.EventID == e.ID && p.UserID == userID {
				out = append(out, e)
				break
			}
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeEvents) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range f.events {
		if e.ID == id {
			f.events = append(f.events[:i], f.events[i+1:]...)
			kept := f.participants[:0]
			for _, p := range f.participants {
				if p.EventID != id {
					kept = append(kept, p)
				}
			}
			f.participants = kept
			return nil
		}
	}
	return apperrors.ErrEventNotFound
}

func (f *fakeEvents) SetCoverURL(ctx context.Context, id, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e := f.find(id); e != nil {
		e.CoverURL = url
		return nil
	}
	return apperrors.ErrEventNotFound
}

func (f *fakeEvents) Register(ctx context.Context, p *models.EventParticipant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.find(p.EventID)
	if e == nil {
		return apperrors.ErrEventNotFound
	}
	if err := f.profiles.requireProfiles(p.UserID); err != nil {
		return err
	}
	count := 0
	for _, existing := range f.participants {
		if existing.EventID != p.EventID {
			continue
		}
		if existing.UserID == p.UserID {
			return apperrors.ErrAlreadyRegistered
		}
		count++
	}
	if e.IsFull(count) {
		return apperrors.ErrEventFull
	}
	f.participants = append(f.participants, *p)
	return nil
}

func (f *fakeEvents) Unregister(ctx context.Context, eventID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.participants {
		if p.EventID == eventID && p.UserID == userID {
			f.participants = append(f.participants[:i], f.participants[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeEvents) Participants(ctx context.Context, eventID string) ([]models.EventParticipant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.EventParticipant
	for _, p := range f.participants {
		if p.EventID == eventID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeEvents) CountParticipants(ctx context.Context, eventIDs []string) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int)
	for _, id := range eventIDs {
		for _, p := range f.participants {
			if p.EventID == id {
				out[id]++
			}
		}
	}
	return out, nil
}

func (f *fakeEvents) RegisteredEventIDs(ctx context.Context, userID string, eventIDs []string) (map[string]bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool)
	for _, id := range eventIDs {
		for _, p := range f.participants {
			if p.EventID == id && p.UserID == userID {
				out[id] = true
			}
		}
	}
	return out, nil
}

func (f *fakeEvents) CountRegistrations(ctx context.Context, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.participants {
		if p.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeEvents) Categories(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	out := []string{}
	for _, e := range f.events {
		if e.Category != "" && !seen[e.Category] {
			seen[e.Category] = true
			out = append(out, e.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event realtime.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) ofType(eventType string) []realtime.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []realtime.Event
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []push.Notification
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, n push.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, n)
	return nil
}

type fakeResolver struct {
	points map[string]geo.Point
	calls  []string
}

func (r *fakeResolver) Resolve(ctx context.Context, city string) (geo.Point, bool) {
	r.calls = append(r.calls, city)
	p, ok := r.points[city]
	return p, ok
}

// env wires every service over shared fakes
type env struct {
	clock         *stepClock
	profiles      *fakeProfiles
	connections   *fakeConnections
	notifications *fakeNotifications
	messages      *fakeMessages
	events        *fakeEvents
	publisher     *recordingPublisher
	dispatcher    *recordingDispatcher
	resolver      *fakeResolver

	profileSvc      *ProfileService
	relationshipSvc *RelationshipService
	discoverySvc    *DiscoveryService
	messagingSvc    *MessagingService
	eventSvc        *EventService
	notificationSvc *NotificationService
	dashboardSvc    *DashboardService
}

func newEnv() *env {
	profiles := newFakeProfiles()
	e := &env{
		clock:         newStepClock(),
		profiles:      profiles,
		notifications: &fakeNotifications{},
		messages:      &fakeMessages{profiles: profiles},
		events:        newFakeEvents(profiles),
		publisher:     &recordingPublisher{},
		dispatcher:    &recordingDispatcher{},
		resolver: &fakeResolver{points: map[string]geo.Point{
			"Paris": {Lat: 48.8566, Lon: 2.3522},
			"Lyon":  {Lat: 45.7640, Lon: 4.8357},
		}},
	}
	e.connections = newFakeConnections(e.clock.Now, e.profiles)

	e.notificationSvc = NewNotificationService(e.notifications, e.connections, e.messages, e.profiles, e.publisher, e.dispatcher)
	e.notificationSvc.now = e.clock.Now

	e.profileSvc = NewProfileService(e.profiles, e.connections, e.resolver)
	e.profileSvc.now = e.clock.Now

	e.relationshipSvc = NewRelationshipService(e.connections, e.profiles, e.notificationSvc, e.publisher)
	e.relationshipSvc.now = e.clock.Now

	e.discoverySvc = NewDiscoveryService(e.profiles, e.connections)

	e.messagingSvc = NewMessagingService(e.messages, e.profiles, e.notificationSvc, e.publisher)
	e.messagingSvc.now = e.clock.Now

	e.eventSvc = NewEventService(e.events, e.profiles, e.publisher, time.UTC)
	e.eventSvc.now = e.clock.Now

	e.dashboardSvc = NewDashboardService(e.profiles, e.connections, e.messages, e.events, e.notifications, time.UTC)
	e.dashboardSvc.now = e.clock.Now

	return e
}

// addProfile stores a profile created at the next clock tick
func (e *env) addProfile(id, first, last string, lat, lon *float64) {
	now := e.clock.Now()
	e.profiles.add(models.Profile{
		ID:        id,
		FirstName: first,
		LastName:  last,
		Latitude:  lat,
		Longitude: lon,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func ptr[T any](v T) *T {
	return &v
}
