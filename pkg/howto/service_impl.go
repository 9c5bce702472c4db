package howto

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// service implements the Service interface
type service struct {
	store    ContentStore
	uploader MediaUploader
	search   *SearchEngine
	events   EventSink
	now      func() time.Time

	collection liveCollection
	collSub    CollectionSubscription
	collDone   chan struct{}

	// active item and its stats subscription are one logical unit,
	// replaced together under mu.
	mu        sync.Mutex
	active    *Howto
	stats     *HowtoStats
	statsSub  StatsSubscription
	statsDone chan struct{}
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithStore sets the content store for the service
func WithStore(store ContentStore) Option {
	return func(s *service) {
		s.store = store
	}
}

// WithUploader sets the media uploader for the service
func WithUploader(u MediaUploader) Option {
	return func(s *service) {
		s.uploader = u
	}
}

// WithTagMatcher overrides the default tag intersection rule
func WithTagMatcher(m TagMatcher) Option {
	return func(s *service) {
		s.search = NewSearchEngine(m)
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.events = sink
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		search: NewSearchEngine(nil),
		events: NoopEventSink{},
		now:    time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if s.store == nil {
		return nil, fmt.Errorf("content store is required")
	}
	if s.uploader == nil {
		return nil, fmt.Errorf("media uploader is required")
	}

	return s, nil
}

// Start attaches the live full-collection stream.
func (s *service) Start(ctx context.Context) error {
	if s.collSub != nil {
		return errors.New("service already started")
	}

	sub, err := s.store.StreamAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to open collection stream: %w", err)
	}
	s.collSub = sub
	s.collDone = make(chan struct{})

	go func() {
		defer close(s.collDone)
		for snapshot := range sub.Snapshots() {
			s.collection.replace(snapshot)
		}
	}()

	return nil
}

// Close detaches the collection stream and the active stats subscription.
func (s *service) Close() error {
	if s.collSub != nil {
		s.collSub.Unsubscribe()
		<-s.collDone
		s.collSub = nil
	}
	s.ClearActiveHowto()
	return nil
}

// Submission pipeline

func (s *service) SubmitHowto(ctx context.Context, req SubmitHowtoRequest) (*Howto, UploadProgress, error) {
	// A fresh progress value per submission; milestones are never reset.
	progress := UploadProgress{}
	mark := func(m Milestone) {
		progress.mark(m)
		if req.OnProgress != nil {
			req.OnProgress(progress)
		}
	}
	fail := func(id uuid.UUID, stage Milestone, err error) (*Howto, UploadProgress, error) {
		return nil, progress, &UploadError{HowtoID: id, Stage: stage, Err: err}
	}

	if err := validateSubmission(req); err != nil {
		return nil, progress, err
	}

	user, err := actingUser(ctx)
	if err != nil {
		return nil, progress, err
	}

	// Start: mint a record id, or reuse the existing one when editing.
	id := req.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	mark(MilestoneStart)

	// Cover: an already-stored ref passes through untouched.
	cover := req.CoverImage
	if !cover.Stored() {
		cover, err = s.uploader.UploadOne(ctx, req.CoverImage, CollectionHowtos, id)
		if err != nil {
			return fail(id, MilestoneCover, err)
		}
	}
	mark(MilestoneCover)

	// Steps: sequential across steps so progress stays meaningful; image
	// uploads within one step run as a batch.
	steps, err := s.processSteps(ctx, req.Steps, id)
	if err != nil {
		return fail(id, MilestoneStepImages, err)
	}
	mark(MilestoneStepImages)

	// Files: top-level attachments as one batch.
	files, err := s.uploader.UploadBatch(ctx, req.Files, CollectionHowtos, id)
	if err != nil {
		return fail(id, MilestoneFiles, err)
	}
	mark(MilestoneFiles)

	// Assemble the final record.
	record := s.assemble(req, id, user, cover, steps, files)

	// Database: one atomic write of the full record.
	if err := s.store.SetHowto(ctx, record); err != nil {
		return fail(id, MilestoneDatabase, err)
	}
	mark(MilestoneDatabase)

	// Re-read the committed record as the new active item.
	committed, err := s.store.GetHowto(ctx, id)
	if err != nil {
		return fail(id, MilestoneComplete, err)
	}
	s.setActive(ctx, committed)
	mark(MilestoneComplete)

	if err := s.events.HowtoSubmitted(ctx, committed); err != nil {
		// Events are advisory; the submission already committed.
		_ = err
	}

	return committed, progress, nil
}

func validateSubmission(req SubmitHowtoRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidSubmission)
	}
	if strings.TrimSpace(req.Slug) == "" {
		return fmt.Errorf("%w: slug is required", ErrInvalidSubmission)
	}
	return nil
}

// processSteps uploads each step's images in submitted order, preserving
// positional image slots. A slot whose upload produced nothing stays an
// explicit nil, never dropped.
func (s *service) processSteps(ctx context.Context, steps []Step, id uuid.UUID) ([]Step, error) {
	out := make([]Step, 0, len(steps))
	for _, step := range steps {
		images, err := s.uploader.UploadBatch(ctx, step.Images, CollectionHowtos, id)
		if err != nil {
			return nil, err
		}
		out = append(out, Step{
			Title:  step.Title,
			Text:   step.Text,
			Images: images,
		})
	}
	return out, nil
}

func (s *service) assemble(req SubmitHowtoRequest, id uuid.UUID, user *User, cover *MediaRef, steps []Step, files []*MediaRef) *Howto {
	createdBy := req.CreatedBy
	if createdBy == "" {
		createdBy = user.UserName
	}

	moderation := req.Moderation
	if moderation == "" {
		moderation = ModerationAwaiting
	}

	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}

	// creatorCountry is recomputed only when the acting user is the
	// original author or no author was recorded; an admin edit on someone
	// else's record keeps the author's country.
	country := req.CreatorCountry
	if req.CreatedBy == "" || req.CreatedBy == user.UserName {
		country = creatorCountry(user)
	}

	return &Howto{
		ID:             id,
		Title:          req.Title,
		Description:    req.Description,
		Slug:           req.Slug,
		CreatedBy:      createdBy,
		CreatedAt:      createdAt,
		CoverImage:     cover,
		Steps:          steps,
		Files:          files,
		Tags:           req.Tags,
		Moderation:     moderation,
		CreatorCountry: country,
	}
}

// creatorCountry derives a country code from the user's profile. A
// structured location wins over the freeform country field.
func creatorCountry(u *User) string {
	if u.Location != nil && u.Location.CountryCode != "" {
		return u.Location.CountryCode
	}
	if u.Country != "" {
		return strings.ToLower(u.Country)
	}
	return ""
}

// Moderation

func (s *service) ModerateHowto(ctx context.Context, h *Howto, viewer *User) (bool, error) {
	if !HasAdminRights(viewer) {
		return false, nil
	}

	if err := s.store.SetHowto(ctx, h); err != nil {
		return false, &StoreError{Collection: CollectionHowtos, Key: h.ID.String(), Op: "moderate", Err: err}
	}

	if err := s.events.HowtoModerated(ctx, h, viewer); err != nil {
		_ = err
	}
	return true, nil
}

func (s *service) NeedsModeration(h *Howto, viewer *User) bool {
	return NeedsModeration(h, viewer)
}

// Active item and stats subscription

func (s *service) GetHowtoBySlug(ctx context.Context, slug string) (*Howto, error) {
	matches, err := s.store.QueryEqual(ctx, "slug", slug)
	if err != nil {
		return nil, &StoreError{Collection: CollectionHowtos, Key: slug, Op: "query_slug", Err: err}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return matches[0], nil
}

func (s *service) SetActiveHowtoBySlug(ctx context.Context, slug string) (*Howto, error) {
	matches, err := s.store.QueryEqual(ctx, "slug", slug)
	if err != nil {
		return nil, &StoreError{Collection: CollectionHowtos, Key: slug, Op: "query_slug", Err: err}
	}

	if len(matches) == 0 {
		s.ClearActiveHowto()
		return nil, nil
	}

	active := matches[0]
	s.setActive(ctx, active)
	return active, nil
}

// setActive swaps the active item and its stats subscription as one unit:
// the old subscription is torn down before the new one attaches.
func (s *service) setActive(ctx context.Context, h *Howto) {
	s.mu.Lock()
	s.teardownStatsLocked()
	s.active = h

	if h != nil {
		sub, err := s.store.SubscribeStats(ctx, h.ID)
		if err == nil {
			s.statsSub = sub
			done := make(chan struct{})
			s.statsDone = done
			go func() {
				defer close(done)
				for stats := range sub.Updates() {
					s.mu.Lock()
					// Drop updates that arrive after this
					// subscription was replaced.
					if s.statsDone == done {
						s.stats = stats
					}
					s.mu.Unlock()
				}
			}()
		}
	}
	s.mu.Unlock()

	if err := s.events.ActiveHowtoChanged(ctx, h); err != nil {
		_ = err
	}
}

// teardownStatsLocked must be called with s.mu held.
func (s *service) teardownStatsLocked() {
	if s.statsSub != nil {
		s.statsSub.Unsubscribe()
		s.statsSub = nil
		s.statsDone = nil
	}
	s.stats = nil
}

func (s *service) ClearActiveHowto() {
	s.mu.Lock()
	s.teardownStatsLocked()
	s.active = nil
	s.mu.Unlock()
}

func (s *service) ActiveHowto() *Howto {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *service) ActiveStats() *HowtoStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *service) IsActiveHowtoUseful(viewer *User) bool {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()

	if active == nil || viewer == nil {
		return false
	}
	return viewer.VotedUsefulHowtos[active.ID]
}

// Read-side filtering

func (s *service) AllHowtos() []*Howto {
	return s.collection.snapshot()
}

func (s *service) FilteredHowtos(viewer *User, f ListFilter) []*Howto {
	all := s.collection.snapshot()

	visible := make([]*Howto, 0, len(all))
	for _, h := range all {
		if IsVisible(h, viewer) {
			visible = append(visible, h)
		}
	}

	return s.search.Filter(visible, f)
}
