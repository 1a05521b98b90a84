package registrations

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightpath-foundation/backend/internal/forms"
	"github.com/brightpath-foundation/backend/internal/models"
	"github.com/brightpath-foundation/backend/pkg/queue"
	"github.com/brightpath-foundation/backend/pkg/response"
)

type fakeEventStore struct {
	event *models.Event
}

func (f *fakeEventStore) GetBySlug(_ context.Context, slug string) (*models.Event, error) {
	if f.event == nil || f.event.Slug != slug {
		return nil, forms.ErrNotFound
	}
	return f.event, nil
}

func (f *fakeEventStore) GetByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	if f.event == nil || f.event.ID != id {
		return nil, forms.ErrNotFound
	}
	return f.event, nil
}

type fakeFormStore struct {
	form *models.RegistrationForm
}

func (f *fakeFormStore) GetFormByEventID(context.Context, uuid.UUID) (*models.RegistrationForm, error) {
	return f.form, nil
}

type fakeStore struct {
	mu        sync.Mutex
	createErr error
	subs      []models.Submission
	legacy    []models.LegacyRegistration
	capacity  int // 0 = unlimited
}

func (f *fakeStore) CreateGuarded(_ context.Context, sub *models.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.capacity > 0 && len(f.subs)+len(f.legacy) >= f.capacity {
		return forms.ErrCapacityExceeded
	}
	sub.ID = uuid.New()
	sub.CreatedAt = time.Now()
	f.subs = append(f.subs, *sub)
	return nil
}

func (f *fakeStore) CreateLegacyGuarded(_ context.Context, reg *models.LegacyRegistration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if f.capacity > 0 && len(f.subs)+len(f.legacy) >= f.capacity {
		return forms.ErrCapacityExceeded
	}
	reg.ID = uuid.New()
	reg.CreatedAt = time.Now()
	f.legacy = append(f.legacy, *reg)
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.subs {
		if f.subs[i].ID == id {
			return &f.subs[i], nil
		}
	}
	return nil, forms.ErrNotFound
}

func (f *fakeStore) ListByEvent(context.Context, uuid.UUID) ([]models.Submission, error) {
	return f.subs, nil
}

func (f *fakeStore) ListLegacyByEvent(context.Context, uuid.UUID) ([]models.LegacyRegistration, error) {
	return f.legacy, nil
}

type fakeUploader struct {
	objects map[string][]byte
}

func (f *fakeUploader) Upload(_ context.Context, key, _ string, body io.Reader, _ int64, _ bool) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if f.objects == nil {
		f.objects = map[string][]byte{}
	}
	f.objects[key] = data
	return f.PublicObjectURL(key), nil
}

func (f *fakeUploader) PublicObjectURL(key string) string {
	return "https://media.test/" + key
}

func (f *fakeUploader) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://media.test/" + key + "?signed=1", nil
}

func (f *fakeUploader) PresignExpire() time.Duration { return 15 * time.Minute }

func (f *fakeUploader) GetObjectStream(_ context.Context, key string) (io.ReadCloser, string, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, "", forms.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), "application/pdf", nil
}

type fakeMailer struct {
	sent []queue.EmailPayload
}

func (f *fakeMailer) EnqueueEmail(_ context.Context, p queue.EmailPayload) error {
	f.sent = append(f.sent, p)
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	signals []models.AnalyticsEvent
}

func (r *recordingSink) Record(_ context.Context, e models.AnalyticsEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, e)
}

func (r *recordingSink) bySignal(name string) []models.AnalyticsEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AnalyticsEvent
	for _, s := range r.signals {
		if s.Signal == name {
			out = append(out, s)
		}
	}
	return out
}

type fixture struct {
	handler *Handler
	events  *fakeEventStore
	formSt  *fakeFormStore
	store   *fakeStore
	mailer  *fakeMailer
	sink    *recordingSink

	emailField models.FieldDefinition
	nameField  models.FieldDefinition
	dietField  models.FieldDefinition
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	eventID := uuid.New()
	formID := uuid.New()
	nameField := models.FieldDefinition{ID: uuid.New(), FormID: formID, Label: "Full Name", Type: models.FieldText, Required: true, Step: 1}
	emailField := models.FieldDefinition{ID: uuid.New(), FormID: formID, Label: "Email", Type: models.FieldEmail, Required: true, Step: 1}
	dietField := models.FieldDefinition{
		ID: uuid.New(), FormID: formID, Label: "Dietary Needs", Type: models.FieldText, Required: true, Step: 2,
		Conditional: &models.ConditionalRule{DependsOnFieldID: nameField.ID.String(), Operator: models.OpEquals, Value: "show-diet"},
	}

	f := &fixture{
		events: &fakeEventStore{event: &models.Event{
			ID: eventID, Title: "Spring Gala", Slug: "spring-gala",
			StartsAt: time.Now().Add(48 * time.Hour), AllowRegistration: true,
		}},
		formSt: &fakeFormStore{form: &models.RegistrationForm{
			ID: formID, EventID: eventID, IsActive: true, TotalSteps: 2,
			Fields: []models.FieldDefinition{nameField, emailField, dietField},
		}},
		store:      &fakeStore{},
		mailer:     &fakeMailer{},
		sink:       &recordingSink{},
		emailField: emailField,
		nameField:  nameField,
		dietField:  dietField,
	}
	f.handler = NewHandler(f.store, f.events, f.formSt, f.mailer, nil, f.sink, "Brightpath Foundation", nil)
	return f
}

func (f *fixture) submit(t *testing.T, responses map[string]any) (*httptest.ResponseRecorder, response.Body) {
	t.Helper()
	router := gin.New()
	router.POST("/public/events/:slug/register", f.handler.Submit)

	body, err := json.Marshal(SubmitRequest{Responses: responses})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/public/events/spring-gala/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var parsed response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return w, parsed
}

func TestSubmit_HappyPath(t *testing.T) {
	f := newFixture(t)
	w, body := f.submit(t, map[string]any{
		f.nameField.ID.String():  "Ada Lovelace",
		f.emailField.ID.String(): "ada@example.org",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, body.Success)
	require.Len(t, f.store.subs, 1)
	assert.Equal(t, "ada@example.org", f.store.subs[0].Email)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "ada@example.org", f.mailer.sent[0].RecipientEmail)
	assert.Contains(t, f.mailer.sent[0].Subject, "Spring Gala")

	assert.Len(t, f.sink.bySignal(models.SignalFormCompleted), 1)
}

func TestSubmit_ValidationFailureReportsFieldsAndStep(t *testing.T) {
	f := newFixture(t)
	w, body := f.submit(t, map[string]any{
		f.nameField.ID.String(): "Ada Lovelace",
		// email missing
	})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", body.Code)
	assert.NotNil(t, body.Fields)
	assert.Empty(t, f.store.subs, "nothing persisted on validation failure")

	failed := f.sink.bySignal(models.SignalFormFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, 1, failed[0].Step)
}

func TestSubmit_HiddenRequiredFieldDoesNotBlock(t *testing.T) {
	f := newFixture(t)
	// nameField != "show-diet", so the required dietField stays hidden and
	// its absence must not fail the submission.
	w, _ := f.submit(t, map[string]any{
		f.nameField.ID.String():  "Ada Lovelace",
		f.emailField.ID.String(): "ada@example.org",
	})
	require.Equal(t, http.StatusCreated, w.Code)
}

func TestSubmit_VisibleConditionalFieldIsEnforced(t *testing.T) {
	f := newFixture(t)
	w, body := f.submit(t, map[string]any{
		f.nameField.ID.String():  "show-diet",
		f.emailField.ID.String(): "ada@example.org",
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "VALIDATION_FAILED", body.Code)
}

func TestSubmit_CapacityExceeded(t *testing.T) {
	f := newFixture(t)
	f.store.createErr = forms.ErrCapacityExceeded

	w, body := f.submit(t, map[string]any{
		f.nameField.ID.String():  "Ada Lovelace",
		f.emailField.ID.String(): "ada@example.org",
	})

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CAPACITY_EXCEEDED", body.Code)
	assert.Equal(t, "This event is fully booked.", body.Error)
	assert.Empty(t, f.mailer.sent)
}

func TestSubmit_InactiveForm(t *testing.T) {
	f := newFixture(t)
	f.formSt.form.IsActive = false

	w, body := f.submit(t, map[string]any{
		f.nameField.ID.String():  "Ada Lovelace",
		f.emailField.ID.String(): "ada@example.org",
	})

	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "FORM_INACTIVE", body.Code)
}

func TestSubmit_UnknownEvent(t *testing.T) {
	f := newFixture(t)
	router := gin.New()
	router.POST("/public/events/:slug/register", f.handler.Submit)

	body, _ := json.Marshal(SubmitRequest{Responses: map[string]any{}})
	req := httptest.NewRequest(http.MethodPost, "/public/events/no-such-event/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmit_FileConstraintRecheckedServerSide(t *testing.T) {
	f := newFixture(t)
	fileField := models.FieldDefinition{
		ID: uuid.New(), FormID: f.formSt.form.ID, Label: "Resume", Type: models.FieldFile,
		Step: 1, MaxFileSize: 1024, AcceptedTypes: "application/pdf",
	}
	f.formSt.form.Fields = append(f.formSt.form.Fields, fileField)

	w, body := f.submit(t, map[string]any{
		f.nameField.ID.String():  "Ada Lovelace",
		f.emailField.ID.String(): "ada@example.org",
		fileField.ID.String(): map[string]any{
			"name": "huge.pdf", "size": float64(10 * 1024 * 1024), "content_type": "application/pdf",
		},
	})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "FILE_TOO_LARGE", body.Code)
}

func TestSubmitLegacy_CountsAgainstSameCapacity(t *testing.T) {
	f := newFixture(t)
	f.store.capacity = 1
	require.NoError(t, f.store.CreateGuarded(context.Background(), &models.Submission{EventID: f.events.event.ID}))

	router := gin.New()
	router.POST("/public/events/:slug/register-legacy", f.handler.SubmitLegacy)

	body, _ := json.Marshal(LegacyRequest{FullName: "Sam Chen", Email: "sam@example.org"})
	req := httptest.NewRequest(http.MethodPost, "/public/events/spring-gala/register-legacy", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	var parsed response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	assert.Equal(t, "CAPACITY_EXCEEDED", parsed.Code)
}

func TestTrack_RejectsUnknownSignals(t *testing.T) {
	f := newFixture(t)
	router := gin.New()
	router.POST("/public/events/:slug/track", f.handler.Track)

	body, _ := json.Marshal(TrackRequest{Signal: "made_up_signal"})
	req := httptest.NewRequest(http.MethodPost, "/public/events/spring-gala/track", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, f.sink.signals)
}

func TestTrack_RecordsStartedSignal(t *testing.T) {
	f := newFixture(t)
	router := gin.New()
	router.POST("/public/events/:slug/track", f.handler.Track)

	body, _ := json.Marshal(TrackRequest{Signal: models.SignalFormStarted, Step: 1})
	req := httptest.NewRequest(http.MethodPost, "/public/events/spring-gala/track", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.sink.bySignal(models.SignalFormStarted), 1)
	assert.Equal(t, "spring-gala", f.sink.signals[0].EventSlug)
}

func TestExportCSV_SetsAttachmentHeaders(t *testing.T) {
	f := newFixture(t)
	f.store.subs = []models.Submission{{
		ID: uuid.New(), EventID: f.events.event.ID, Email: "ada@example.org",
		Responses: map[string]any{f.nameField.ID.String(): "Ada Lovelace"},
		CreatedAt: time.Now(),
	}}

	router := gin.New()
	router.GET("/events/:id/registrations/export", f.handler.ExportCSV)

	req := httptest.NewRequest(http.MethodGet, "/events/"+f.events.event.ID.String()+"/registrations/export", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "registrations-spring-gala.csv")
	assert.Contains(t, w.Body.String(), "Ada Lovelace")
	assert.Contains(t, w.Body.String(), "Full Name")
}

func TestAttachmentURL_PresignsAndProxies(t *testing.T) {
	f := newFixture(t)
	uploader := &fakeUploader{objects: map[string][]byte{
		"attachments/ev/fd/cv.pdf": []byte("%PDF-1.4 fake"),
	}}
	f.handler.uploader = uploader

	fieldID := uuid.New()
	sub := models.Submission{
		ID: uuid.New(), EventID: f.events.event.ID, CreatedAt: time.Now(),
		Responses: map[string]any{
			fieldID.String(): map[string]any{
				"name": "cv.pdf", "size": float64(13),
				"content_type": "application/pdf", "storage_key": "attachments/ev/fd/cv.pdf",
			},
		},
	}
	f.store.subs = append(f.store.subs, sub)

	router := gin.New()
	router.GET("/registrations/:subID/files/:fieldID", f.handler.AttachmentURL)

	req := httptest.NewRequest(http.MethodGet, "/registrations/"+sub.ID.String()+"/files/"+fieldID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var parsed response.Body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	data := parsed.Data.(map[string]any)
	assert.Contains(t, data["url"], "signed=1")
	assert.Equal(t, "cv.pdf", data["filename"])

	req = httptest.NewRequest(http.MethodGet, "/registrations/"+sub.ID.String()+"/files/"+fieldID.String()+"?download=true", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "cv.pdf")
	assert.Equal(t, "%PDF-1.4 fake", w.Body.String())
}

func TestConcurrentRegistrationsNeverOverfill(t *testing.T) {
	f := newFixture(t)
	f.store.capacity = 3

	var wg sync.WaitGroup
	successes := make(chan struct{}, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := &models.Submission{EventID: f.events.event.ID}
			if err := f.store.CreateGuarded(context.Background(), sub); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	assert.Equal(t, 3, count, "exactly capacity registrations may succeed")
	assert.Len(t, f.store.subs, 3)
}
