package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"souviens_toi/internal/auth"
	"souviens_toi/internal/bucketurl"
	"souviens_toi/internal/config"
	"souviens_toi/internal/domain"
	"souviens_toi/internal/download"
	"souviens_toi/internal/notify"
	"souviens_toi/internal/service"
	"souviens_toi/internal/storage/memory"
)

const (
	testSecret  = "super-secret-jwt-token-with-at-least-32-characters"
	testProject = "https://proj.supabase.co"
	testUserID  = "0b6a4f0e-8a2c-4f59-9f4a-3d3b0f6d1a03"
	longStory   = "Grand-mère racontait cette histoire chaque hiver, près du poêle."
)

type fakeObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeObjects) Upload(_ context.Context, path, _ string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[path] = data
	return nil
}

func (f *fakeObjects) Remove(_ context.Context, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range paths {
		delete(f.objects, p)
	}
	return nil
}

func (f *fakeObjects) PublicURL(path string) string {
	return bucketurl.PublicURL(testProject, "myfamily", path)
}

func (f *fakeObjects) SignedURL(_ context.Context, path string, _ time.Duration) (string, error) {
	return testProject + "/storage/v1/object/sign/myfamily/" + path + "?token=signed", nil
}

func (f *fakeObjects) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects)
}

// fakeFetcher serves objects from fakeObjects by signed URL.
type fakeFetcher struct {
	objects *fakeObjects
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*download.Object, error) {
	path := strings.TrimPrefix(url, testProject+"/storage/v1/object/sign/myfamily/")
	path = strings.TrimSuffix(path, "?token=signed")

	f.objects.mu.Lock()
	data, ok := f.objects.objects[path]
	f.objects.mu.Unlock()
	if !ok {
		return nil, download.ErrDownloadFailed
	}
	return &download.Object{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentType:   "image/png",
		ContentLength: int64(len(data)),
	}, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
	Notifications []notify.Notification `json:"notifications"`
}

type APITestSuite struct {
	suite.Suite
	router  *gin.Engine
	objects *fakeObjects
	token   string
}

func TestAPITestSuite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(APITestSuite))
}

func (s *APITestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := memory.NewStore()
	tx := memory.TxManager{}
	notifier := notify.NewDispatcher(logger)
	s.objects = &fakeObjects{objects: make(map[string][]byte)}

	storageCfg := config.StorageConfig{
		Bucket:            "myfamily",
		LegacyBuckets:     []string{"media"},
		SignedURLTTL:      time.Hour,
		MaxFileSize:       domain.MaxUploadSize,
		UploadConcurrency: 2,
		ProjectURL:        testProject,
	}
	resolver := bucketurl.New(storageCfg.ResolverConfig())

	handler := NewHandler(
		service.NewEventService(store.Events(), tx, notifier, logger),
		service.NewStoryService(store.Stories(), tx, notifier, logger),
		service.NewMediaService(store.Media(), s.objects, &fakeFetcher{objects: s.objects}, resolver, tx, notifier, logger, storageCfg),
		service.NewRelationshipManager(store.Stories(), store.EventStories(), store.Media(), tx, notifier, logger, resolver.ResolveCanonicalURL),
		service.NewStatsService(store.Events(), store.Stories(), store.Media(), tx, notifier, logger),
		logger,
	)

	s.router = NewRouter(RouterConfig{
		Handler:  handler,
		Verifier: auth.NewVerifier(testSecret, "authenticated"),
		Logger:   logger,
	})
	s.token = s.signToken(testUserID)
}

func (s *APITestSuite) signToken(sub string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Email: "marie@example.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	s.Require().NoError(err)
	return signed
}

func (s *APITestSuite) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *APITestSuite) doJSON(method, path string, payload any) (*httptest.ResponseRecorder, envelope) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		s.Require().NoError(err)
		body = bytes.NewReader(b)
	}
	w := s.do(method, path, body, "application/json")

	var env envelope
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func (s *APITestSuite) createEvent(title, date string) string {
	w, env := s.doJSON(http.MethodPost, "/api/v1/events", map[string]any{"title": title, "date": date})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var e domain.Event
	s.Require().NoError(json.Unmarshal(env.Data, &e))
	return e.ID
}

func (s *APITestSuite) createStory(title string) string {
	w, env := s.doJSON(http.MethodPost, "/api/v1/stories", map[string]any{"title": title, "content": longStory})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	var st domain.Story
	s.Require().NoError(json.Unmarshal(env.Data, &st))
	return st.ID
}

func (s *APITestSuite) upload(eventID string, files map[string]string) (*httptest.ResponseRecorder, []domain.Media) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if eventID != "" {
		s.Require().NoError(mw.WriteField("event_id", eventID))
	}
	for name, contentType := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		s.Require().NoError(err)
		_, err = part.Write([]byte("content of " + name))
		s.Require().NoError(err)
	}
	s.Require().NoError(mw.Close())

	w := s.do(http.MethodPost, "/api/v1/media", &buf, mw.FormDataContentType())
	var env envelope
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	var media []domain.Media
	if len(env.Data) > 0 {
		s.Require().NoError(json.Unmarshal(env.Data, &media))
	}
	return w, media
}

func messages(env envelope) []string {
	out := make([]string, 0, len(env.Notifications))
	for _, n := range env.Notifications {
		out = append(out, n.Message)
	}
	return out
}

func (s *APITestSuite) TestHealthz() {
	s.token = ""
	w := s.do(http.MethodGet, "/healthz", nil, "")
	s.Equal(http.StatusOK, w.Code)
}

func (s *APITestSuite) TestRequiresToken() {
	s.token = ""
	w, env := s.doJSON(http.MethodGet, "/api/v1/events", nil)

	s.Equal(http.StatusUnauthorized, w.Code)
	s.Require().NotNil(env.Error)
	s.Equal("unauthenticated", env.Error.Code)
}

func (s *APITestSuite) TestRejectsForeignSignature() {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: testUserID})
	signed, err := token.SignedString([]byte("another-secret-another-secret-another"))
	s.Require().NoError(err)
	s.token = signed

	w, _ := s.doJSON(http.MethodGet, "/api/v1/stories", nil)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestEvents_CreateYearOnlyAndList() {
	w, env := s.doJSON(http.MethodPost, "/api/v1/events", map[string]any{
		"title": "Mariage de Louise",
		"date":  "1954",
	})
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Contains(messages(env), "Event created")

	var created eventView
	s.Require().NoError(json.Unmarshal(env.Data, &created))
	s.False(created.PreciseDate)
	s.Equal("1954", created.DisplayDate)

	s.createEvent("Naissance de Paul", "1950-03-12")

	w, env = s.doJSON(http.MethodGet, "/api/v1/events", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var events []eventView
	s.Require().NoError(json.Unmarshal(env.Data, &events))
	s.Require().Len(events, 2)
	s.Equal("Naissance de Paul", events[0].Title)
	s.Equal("12 March 1950", events[0].DisplayDate)

	w, env = s.doJSON(http.MethodGet, "/api/v1/events?q=louise", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().NoError(json.Unmarshal(env.Data, &events))
	s.Len(events, 1)
}

func (s *APITestSuite) TestEvents_InvalidDate() {
	w, env := s.doJSON(http.MethodPost, "/api/v1/events", map[string]any{"title": "x", "date": "last summer"})

	s.Equal(http.StatusBadRequest, w.Code)
	s.Equal("bad_request", env.Error.Code)
}

func (s *APITestSuite) TestEvents_GetUnknown() {
	w, env := s.doJSON(http.MethodGet, "/api/v1/events/9d7c0c1e-5a7e-4b8a-8f1e-000000000000", nil)

	s.Equal(http.StatusNotFound, w.Code)
	s.Contains(messages(env), "Failed to load event")
}

func (s *APITestSuite) TestStories_TooShort() {
	w, env := s.doJSON(http.MethodPost, "/api/v1/stories", map[string]any{"title": "Court", "content": "trop court"})

	s.Equal(http.StatusUnprocessableEntity, w.Code)
	s.Contains(messages(env), "A story must contain at least 50 characters")
}

func (s *APITestSuite) TestStoryLinks_RoundTrip() {
	eventID := s.createEvent("Vendanges", "1962-09-20")
	storyID := s.createStory("La cuve")

	w, env := s.doJSON(http.MethodGet, "/api/v1/events/"+eventID+"/stories/linkable", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var stories []domain.Story
	s.Require().NoError(json.Unmarshal(env.Data, &stories))
	s.Require().Len(stories, 1)

	w, env = s.doJSON(http.MethodPost, "/api/v1/events/"+eventID+"/stories/"+storyID, nil)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal([]string{"Story linked"}, messages(env))
	var linked linkResult
	s.Require().NoError(json.Unmarshal(env.Data, &linked))
	s.True(linked.Applied)

	w, env = s.doJSON(http.MethodPost, "/api/v1/events/"+eventID+"/stories/"+storyID, nil)
	s.Equal(http.StatusConflict, w.Code)
	s.Equal([]string{"Failed to link story"}, messages(env))

	w, env = s.doJSON(http.MethodGet, "/api/v1/events/"+eventID+"/stories", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Require().NoError(json.Unmarshal(env.Data, &stories))
	s.Require().Len(stories, 1)
	s.Equal(storyID, stories[0].ID)

	w, env = s.doJSON(http.MethodGet, "/api/v1/events/"+eventID+"/stories/linkable", nil)
	s.Require().NoError(json.Unmarshal(env.Data, &stories))
	s.Empty(stories)

	w, env = s.doJSON(http.MethodDelete, "/api/v1/events/"+eventID+"/stories/"+storyID, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Equal([]string{"Story unlinked"}, messages(env))
}

func (s *APITestSuite) TestLinks_PlaceholderEvent() {
	storyID := s.createStory("Sans événement")

	w, env := s.doJSON(http.MethodPost, "/api/v1/events/undefined/stories/"+storyID, nil)
	s.Equal(http.StatusOK, w.Code)
	s.Require().Len(env.Notifications, 1)
	s.Equal(notify.Warning, env.Notifications[0].Level)
	var skipped linkResult
	s.Require().NoError(json.Unmarshal(env.Data, &skipped))
	s.False(skipped.Applied)

	w, env = s.doJSON(http.MethodGet, "/api/v1/events/null/stories", nil)
	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`[]`, string(env.Data))
}

func (s *APITestSuite) TestMedia_UploadLinkDownloadDelete() {
	eventID := s.createEvent("Communion", "1958")

	w, media := s.upload("", map[string]string{"photo de classe.png": "image/png"})
	s.Require().Equal(http.StatusCreated, w.Code)
	s.Require().Len(media, 1)
	s.Nil(media[0].EventID)
	s.Contains(media[0].URL, "/storage/v1/object/public/myfamily/general/")
	s.Equal(1, s.objects.count())
	mediaID := media[0].ID

	w, env := s.doJSON(http.MethodPost, "/api/v1/events/"+eventID+"/media/"+mediaID, nil)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Equal([]string{"Media linked"}, messages(env))

	w, env = s.doJSON(http.MethodGet, "/api/v1/events/"+eventID+"/media", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	var linked []domain.Media
	s.Require().NoError(json.Unmarshal(env.Data, &linked))
	s.Require().Len(linked, 1)
	s.Equal(eventID, *linked[0].EventID)

	w, env = s.doJSON(http.MethodGet, "/api/v1/media/"+mediaID+"/signed-url", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Contains(string(env.Data), "token=signed")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media/"+mediaID+"/download?token="+s.token, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal("content of photo de classe.png", rec.Body.String())
	s.Contains(rec.Header().Get("Content-Disposition"), "attachment")
	s.Contains(rec.Header().Get("Content-Disposition"), "photo de classe.png")

	w, env = s.doJSON(http.MethodDelete, "/api/v1/media/"+mediaID, nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.Equal([]string{"Media deleted"}, messages(env))
	s.Equal(0, s.objects.count())

	w, _ = s.doJSON(http.MethodGet, "/api/v1/media/"+mediaID+"/signed-url", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestMedia_UploadBatchIntoEvent() {
	eventID := s.createEvent("Déménagement", "1971-06-01")

	w, media := s.upload(eventID, map[string]string{
		"a.png": "image/png",
		"b.pdf": "application/pdf",
	})
	s.Require().Equal(http.StatusCreated, w.Code)
	s.Require().Len(media, 2)
	for _, m := range media {
		s.Require().NotNil(m.EventID)
		s.Equal(eventID, *m.EventID)
	}
}

func (s *APITestSuite) TestMedia_UnsupportedType() {
	w, _ := s.upload("", map[string]string{"notes.txt": "text/plain"})

	s.Equal(http.StatusUnsupportedMediaType, w.Code)
	s.Equal(0, s.objects.count())
}

func (s *APITestSuite) TestMedia_DeletePlaceholderIsNoop() {
	w, env := s.doJSON(http.MethodDelete, "/api/v1/media/undefined", nil)

	s.Equal(http.StatusOK, w.Code)
	s.Empty(env.Notifications)
}

func (s *APITestSuite) TestStats() {
	s.createEvent("Un", "1900")
	s.createStory("Une histoire")
	s.upload("", map[string]string{"x.png": "image/png"})

	w, env := s.doJSON(http.MethodGet, "/api/v1/stats", nil)
	s.Require().Equal(http.StatusOK, w.Code)

	var stats domain.Stats
	s.Require().NoError(json.Unmarshal(env.Data, &stats))
	s.Equal(1, stats.Events)
	s.Equal(1, stats.Stories)
	s.Equal(1, stats.Media)
	s.Equal(int64(len("content of x.png")), stats.MediaBytes)
}

func (s *APITestSuite) TestDataIsScopedPerUser() {
	s.createStory("Secret de famille")

	s.token = s.signToken("0b6a4f0e-8a2c-4f59-9f4a-3d3b0f6d1a04")
	w, env := s.doJSON(http.MethodGet, "/api/v1/stories", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	s.JSONEq(`[]`, string(env.Data))
}
