package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"testing"
	"time"

	"github.com/pillow12360/eureka-ssul/internal/auth"
	"github.com/pillow12360/eureka-ssul/internal/cache"
	"github.com/pillow12360/eureka-ssul/internal/config"
	"github.com/pillow12360/eureka-ssul/internal/imaging"
	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/notifications"
	"github.com/pillow12360/eureka-ssul/internal/repository"
	"github.com/pillow12360/eureka-ssul/internal/service"
	"github.com/pillow12360/eureka-ssul/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	user *auth.ProviderUser
	err  error
}

func (p *fakeProvider) Name() string { return "kakao" }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://kauth.example/authorize?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(context.Context, string) (*auth.ProviderUser, error) {
	return p.user, p.err
}

type testServer struct {
	srv      *Server
	app      *fiber.App
	svcs     *service.Services
	admins   repository.AdminRepository
	provider *fakeProvider
	bucket   *testutil.MemoryBucket
}

func newTestServer(t *testing.T, flags string) *testServer {
	t.Helper()
	cache.SetClient(nil)

	db := testutil.NewSQLiteDB(t)
	procs := repository.NewProcedures()
	notifier := notifications.NewNotifier(nil)
	bucket := testutil.NewMemoryBucket()
	provider := &fakeProvider{}
	admins := repository.NewAdminRepository(db)
	authn := auth.NewAuthenticator(provider, repository.NewUserRepository(db), admins,
		auth.NewTokenIssuer("test-secret-test-secret-test-secret", time.Minute, time.Hour), nil, notifier)

	svcs := service.New(service.Deps{
		Profiles: repository.NewProfileRepository(db, bucket),
		Comments: repository.NewCommentRepository(db, procs),
		Likes:    repository.NewProfileLikeRepository(db, procs),
		Auth:     authn,
		Images:   imaging.NewProcessor(5),
		Events:   notifier,
	})

	cfg := &config.Config{
		Port:             "0",
		FeatureFlags:     flags,
		ImageMaxUploadMB: 5,
		AllowedOrigins:   "http://localhost:5173",
	}
	srv, err := NewServerWithDeps(cfg, Deps{DB: db, Services: svcs, Notifier: notifier})
	require.NoError(t, err)
	t.Cleanup(func() {
		srv.shutdownFn()
		srv.appCtx.Close()
	})

	return &testServer{
		srv:      srv,
		app:      srv.NewApp(),
		svcs:     svcs,
		admins:   admins,
		provider: provider,
		bucket:   bucket,
	}
}

// browser replays cookies across requests like a single browser tab.
type browser struct {
	t       *testing.T
	app     *fiber.App
	cookies map[string]string
}

func (ts *testServer) browser(t *testing.T) *browser {
	return &browser{t: t, app: ts.app, cookies: map[string]string{}}
}

func (b *browser) do(req *http.Request) (*http.Response, []byte) {
	b.t.Helper()
	for name, value := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	resp, err := b.app.Test(req, -1)
	require.NoError(b.t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	for _, c := range resp.Cookies() {
		if c.Value == "" {
			delete(b.cookies, c.Name)
		} else {
			b.cookies[c.Name] = c.Value
		}
	}
	return resp, body
}

func (b *browser) get(path string) (*http.Response, []byte) {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) send(method, path string, body any) (*http.Response, []byte) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(b.t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return b.do(req)
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v), string(body))
	return v
}

// signIn runs the OAuth round trip for a provider account and leaves b holding the session cookie.
func (ts *testServer) signIn(t *testing.T, b *browser, providerID string) {
	t.Helper()
	ts.provider.user = &auth.ProviderUser{
		Provider:   "kakao",
		ProviderID: providerID,
		Email:      providerID + "@example.com",
		Nickname:   providerID,
	}

	resp, _ := b.get("/login?provider=kakao&next=/profiles")
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	resp, _ = b.get("/auth/callback?code=ok&state=" + url.QueryEscape(state))
	require.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/profiles", resp.Header.Get("Location"))
	require.NotEmpty(t, b.cookies[middleware.AccessCookie])
}

func (ts *testServer) createProfile(t *testing.T, b *browser, name string) models.Profile {
	t.Helper()
	resp, body := b.send(http.MethodPost, "/api/profiles", map[string]string{
		"name": name, "features": "a,b,c", "bio": "0123456789 bio",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	return decode[models.Profile](t, body)
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, "")
	b := ts.browser(t)

	resp, _ := b.get("/health/live")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body := b.get("/health/ready")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	ready := decode[struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}](t, body)
	assert.Equal(t, "healthy", ready.Status)
	assert.Equal(t, "healthy", ready.Checks["database"])
	assert.Equal(t, "disabled", ready.Checks["redis"])
}

func TestMapServiceError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err  error
		want int
	}{
		{models.NewValidationError("bad"), fiber.StatusBadRequest},
		{models.NewNotFoundError("Profile", "x"), fiber.StatusNotFound},
		{models.NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{models.NewForbiddenError("no"), fiber.StatusForbidden},
		{models.NewConflictError("dup", nil), fiber.StatusConflict},
		{fmt.Errorf("wrapped: %w", models.NewNotFoundError("Comment", "y")), fiber.StatusNotFound},
		{errors.New("boom"), fiber.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, mapServiceError(tt.err), tt.err.Error())
	}
}

func TestHumanizeParam(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "comment ID", humanizeParam("commentId"))
	assert.Equal(t, "profile ID", humanizeParam("profileId"))
}

func TestGetProfile_InvalidAndMissingID(t *testing.T) {
	ts := newTestServer(t, "")
	b := ts.browser(t)

	resp, body := b.get("/api/profiles/not-a-uuid")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Invalid ID", decode[models.ErrorResponse](t, body).Error)

	resp, body = b.get("/api/profiles/7f1c2a4e-3b9d-4c61-8f0a-2d5e6b7c8a90")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, decode[models.ErrorResponse](t, body).Code)
}

func TestCreateProfile_ValidationFieldErrors(t *testing.T) {
	ts := newTestServer(t, "")
	b := ts.browser(t)

	resp, body := b.send(http.MethodPost, "/api/profiles", map[string]string{
		"name": "A", "features": "a,b,c", "bio": "0123456789",
	})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	errResp := decode[models.ErrorResponse](t, body)
	assert.Equal(t, models.CodeValidation, errResp.Code)
	assert.Equal(t, "이름은 최소 2자 이상이어야 합니다.", errResp.Fields["name"])

	_, body = b.get("/api/profiles")
	assert.Empty(t, decode[[]models.Profile](t, body))
}

func profileForm(t *testing.T, fields map[string]string, image []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if image != nil {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="image"; filename="me.png"`)
		h.Set("Content-Type", "image/png")
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestEndToEnd_CreateListExpandComment(t *testing.T) {
	ts := newTestServer(t, "likes=true")
	b := ts.browser(t)

	form, contentType := profileForm(t, map[string]string{
		"name":     "김유레카",
		"features": "개발자, 디자인 좋아함, 맛집 탐방",
		"bio":      "안녕하세요! 잘 부탁드립니다.",
	}, testutil.TinyPNG(t, 40, 30))
	req := httptest.NewRequest(http.MethodPost, "/profile/create", form)
	req.Header.Set("Content-Type", contentType)
	resp, body := b.do(req)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	created := decode[struct {
		Profile  models.Profile `json:"profile"`
		Redirect string         `json:"redirect"`
	}](t, body)
	assert.Equal(t, "/", created.Redirect)
	assert.Equal(t, []string{"개발자", "디자인 좋아함", "맛집 탐방"}, created.Profile.FeatureList())
	require.NotNil(t, created.Profile.ImageURL)
	assert.Contains(t, *created.Profile.ImageURL, "profile-images/")
	assert.Equal(t, 2, ts.bucket.Len(), "jpeg and webp variants")
	profileID := created.Profile.ID

	// list
	resp, body = b.get("/")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	list := decode[struct {
		Cards []struct {
			Profile models.Profile `json:"profile"`
			State   string         `json:"state"`
		} `json:"cards"`
	}](t, body)
	require.Len(t, list.Cards, 1)
	assert.Equal(t, "collapsed", list.Cards[0].State)
	assert.Equal(t, 0, list.Cards[0].Profile.Comments)

	// expand
	resp, body = b.get("/profiles/" + profileID + "/card?expanded=true")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	card := decode[struct {
		State    string             `json:"state"`
		Comments []*models.Comment  `json:"comments"`
		Like     *models.LikeStatus `json:"like"`
	}](t, body)
	assert.Equal(t, "expanded_ready", card.State)
	assert.Empty(t, card.Comments)
	require.NotNil(t, card.Like)
	assert.Equal(t, 0, card.Like.LikeCount)

	// comment and reply
	resp, body = b.send(http.MethodPost, "/api/profiles/"+profileID+"/comments", map[string]string{
		"author": "익명", "content": "반가워요",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	root := decode[models.Comment](t, body)

	resp, body = b.send(http.MethodPost, "/api/profiles/"+profileID+"/comments", map[string]any{
		"author": "대댓글러", "content": "저도요", "parent_id": root.ID,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))

	resp, body = b.send(http.MethodPost, "/api/profiles/"+profileID+"/comments", map[string]string{
		"author": "익명", "content": "   ",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "댓글 내용을 입력해주세요.", decode[models.ErrorResponse](t, body).Fields["content"])

	// detail
	resp, body = b.get("/profile/" + profileID)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	detail := decode[struct {
		Found    bool              `json:"found"`
		Profile  models.Profile    `json:"profile"`
		Comments []*models.Comment `json:"comments"`
	}](t, body)
	assert.True(t, detail.Found)
	assert.Equal(t, 2, detail.Profile.Comments)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "반가워요", detail.Comments[0].Content)
	require.Len(t, detail.Comments[0].Replies, 1)
	assert.Equal(t, "저도요", detail.Comments[0].Replies[0].Content)

	resp, body = b.get("/api/profiles/" + profileID + "/comments")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Comment](t, body), 2)
}

func TestSubmitProfilePage_ShortNameUploadsNothing(t *testing.T) {
	ts := newTestServer(t, "")
	b := ts.browser(t)

	form, contentType := profileForm(t, map[string]string{
		"name": "A", "features": "a,b,c", "bio": "0123456789",
	}, testutil.TinyPNG(t, 10, 10))
	req := httptest.NewRequest(http.MethodPost, "/profile/create", form)
	req.Header.Set("Content-Type", contentType)
	resp, body := b.do(req)

	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	res := decode[struct {
		FieldErrors map[string]string `json:"field_errors"`
	}](t, body)
	assert.Contains(t, res.FieldErrors, "name")
	assert.Zero(t, ts.bucket.Len())
}

func TestProfilePage_NotFound(t *testing.T) {
	ts := newTestServer(t, "")
	resp, body := ts.browser(t).get("/profile/7f1c2a4e-3b9d-4c61-8f0a-2d5e6b7c8a90")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "프로필을 찾을 수 없습니다.")
}

func TestLikes_SignInRequiredAndToggle(t *testing.T) {
	ts := newTestServer(t, "likes=true")
	b := ts.browser(t)
	p := ts.createProfile(t, b, "Liked")
	base := "/api/profiles/" + p.ID

	resp, _ := b.send(http.MethodPost, base+"/like/toggle", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	ts.signIn(t, b, "1001")

	resp, body := b.send(http.MethodPost, base+"/like/toggle", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	st := decode[models.LikeStatus](t, body)
	assert.True(t, st.UserLiked)
	assert.Equal(t, 1, st.LikeCount)

	resp, body = b.send(http.MethodPost, base+"/like/toggle", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	st = decode[models.LikeStatus](t, body)
	assert.False(t, st.UserLiked)
	assert.Equal(t, 0, st.LikeCount)

	resp, _ = b.send(http.MethodPost, base+"/like", nil)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	resp, _ = b.send(http.MethodPost, base+"/like", nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, body = b.get(base + "/likes")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	likes := decode[struct {
		LikeCount int                  `json:"like_count"`
		UserLiked bool                 `json:"user_liked"`
		Likes     []models.ProfileLike `json:"likes"`
	}](t, body)
	assert.Equal(t, 1, likes.LikeCount)
	assert.True(t, likes.UserLiked)
	assert.Len(t, likes.Likes, 1)

	resp, _ = b.send(http.MethodDelete, base+"/like", nil)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	_, body = b.get(base)
	assert.Equal(t, 0, decode[models.Profile](t, body).LikeCount)
}

func TestCardActions_CommentAndLike(t *testing.T) {
	ts := newTestServer(t, "likes=true")
	b := ts.browser(t)
	p := ts.createProfile(t, b, "Carded")
	base := "/profiles/" + p.ID + "/card"

	type cardResult struct {
		OK          bool               `json:"ok"`
		State       string             `json:"state"`
		Profile     models.Profile     `json:"profile"`
		Comments    []*models.Comment  `json:"comments"`
		Like        *models.LikeStatus `json:"like"`
		FieldErrors map[string]string  `json:"field_errors"`
	}

	resp, body := b.send(http.MethodPost, base+"/comments", map[string]string{"author": "익명", "content": "카드에서 남김"})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(body))
	res := decode[cardResult](t, body)
	assert.True(t, res.OK)
	assert.Equal(t, "expanded_ready", res.State)
	assert.Equal(t, 1, res.Profile.Comments)
	require.Len(t, res.Comments, 1)
	assert.Equal(t, "카드에서 남김", res.Comments[0].Content)

	resp, body = b.send(http.MethodPost, base+"/comments", map[string]string{"author": "익명", "content": "  "})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	res = decode[cardResult](t, body)
	assert.False(t, res.OK)
	assert.Equal(t, "댓글 내용을 입력해주세요.", res.FieldErrors["content"])
	assert.Len(t, res.Comments, 1, "nothing posted")

	resp, _ = b.send(http.MethodPost, base+"/like", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	ts.signIn(t, b, "6006")
	resp, body = b.send(http.MethodPost, base+"/like", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	res = decode[cardResult](t, body)
	assert.True(t, res.OK)
	require.NotNil(t, res.Like)
	assert.True(t, res.Like.UserLiked)
	assert.Equal(t, 1, res.Profile.LikeCount)

	resp, _ = b.send(http.MethodPost, "/profiles/"+uuid.NewString()+"/card/comments", map[string]string{"author": "a", "content": "b"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestLikes_FeatureFlagOff(t *testing.T) {
	ts := newTestServer(t, "likes=false")
	b := ts.browser(t)
	p := ts.createProfile(t, b, "NoLikes")

	resp, _ := b.get("/api/profiles/" + p.ID + "/likes")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUpdateComment_FeatureGated(t *testing.T) {
	for _, tt := range []struct {
		flags string
		want  int
	}{
		{"comment_edit=false", fiber.StatusNotFound},
		{"comment_edit=true", fiber.StatusOK},
	} {
		t.Run(tt.flags, func(t *testing.T) {
			ts := newTestServer(t, tt.flags)
			b := ts.browser(t)
			p := ts.createProfile(t, b, "Edited")
			_, body := b.send(http.MethodPost, "/api/profiles/"+p.ID+"/comments", map[string]string{
				"author": "me", "content": "first",
			})
			c := decode[models.Comment](t, body)
			ts.signIn(t, b, "2002")

			resp, body := b.send(http.MethodPut, "/api/profiles/"+p.ID+"/comments/"+c.ID, map[string]string{"content": "second"})
			require.Equal(t, tt.want, resp.StatusCode, string(body))
			if tt.want == fiber.StatusOK {
				assert.Equal(t, "second", decode[models.Comment](t, body).Content)
			}
		})
	}
}

func TestProfileOwnershipAndDeleteDialog(t *testing.T) {
	ts := newTestServer(t, "")
	owner := ts.browser(t)
	other := ts.browser(t)
	ts.signIn(t, owner, "owner")
	p := ts.createProfile(t, owner, "Owned")
	require.NotNil(t, p.UserID)
	ts.signIn(t, other, "other")

	resp, _ := other.send(http.MethodPut, "/api/profiles/"+p.ID, map[string]string{"bio": "taken over by someone"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	resp, _ = other.send(http.MethodPost, "/api/dialogs", map[string]string{"action": "delete_profile", "profile_id": p.ID})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, body := owner.send(http.MethodPut, "/api/profiles/"+p.ID, map[string]string{"features": "x, y ,z"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.Equal(t, "x,y,z", decode[models.Profile](t, body).Features)

	resp, _ = owner.send(http.MethodPut, "/api/profiles/"+p.ID, map[string]string{"name": "A"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// cancel keeps the profile
	resp, body = owner.send(http.MethodPost, "/api/dialogs", map[string]string{"action": "delete_profile", "profile_id": p.ID})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	state := decode[map[string]any](t, body)
	assert.Equal(t, true, state["open"])
	assert.Equal(t, "프로필 삭제", state["title"])
	assert.Equal(t, "취소", state["cancel_text"])

	_, body = other.get("/api/dialogs")
	assert.Equal(t, false, decode[map[string]any](t, body)["open"], "dialogs are per client")

	resp, _ = owner.send(http.MethodPost, "/api/dialogs/cancel", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = owner.get("/api/profiles/" + p.ID)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// confirm deletes it
	resp, _ = owner.send(http.MethodPost, "/api/dialogs", map[string]string{"action": "delete_profile", "profile_id": p.ID})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = owner.send(http.MethodPost, "/api/dialogs/confirm", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = owner.get("/api/profiles/" + p.ID)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = owner.send(http.MethodPost, "/api/dialogs/confirm", nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestDialog_PlainConfirmation(t *testing.T) {
	ts := newTestServer(t, "")
	b := ts.browser(t)

	resp, _ := b.send(http.MethodPost, "/api/dialogs", map[string]string{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, body := b.send(http.MethodPost, "/api/dialogs", map[string]string{"title": "알림", "confirm_text": "좋아요"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "좋아요", decode[map[string]any](t, body)["confirm_text"])

	resp, body = b.send(http.MethodPost, "/api/dialogs/confirm", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decode[map[string]any](t, body)["confirmed"])
}

func TestAuth_SessionAndLogout(t *testing.T) {
	ts := newTestServer(t, "")
	b := ts.browser(t)

	_, body := b.get("/api/auth/session")
	assert.JSONEq(t, `{"session":null,"user":null}`, string(body))

	ts.signIn(t, b, "3003")
	_, body = b.get("/api/auth/session")
	sess := decode[struct {
		Session *models.Session `json:"session"`
		User    *models.User    `json:"user"`
	}](t, body)
	require.NotNil(t, sess.Session)
	require.NotNil(t, sess.User)
	assert.Equal(t, sess.User.ID, sess.Session.UserID)

	_, body = b.get("/login")
	login := decode[map[string]any](t, body)
	assert.Equal(t, true, login["is_authenticated"])
	assert.Equal(t, "/", login["redirect"])

	resp, _ := b.send(http.MethodPost, "/api/auth/logout", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Empty(t, b.cookies[middleware.AccessCookie])

	_, body = b.get("/api/auth/session")
	assert.JSONEq(t, `{"session":null,"user":null}`, string(body))
}

func TestAuth_Refresh(t *testing.T) {
	ts := newTestServer(t, "")
	b := ts.browser(t)
	ts.signIn(t, b, "4004")

	_, body := b.get("/api/auth/session")
	sess := decode[struct {
		Session models.Session `json:"session"`
	}](t, body)

	resp, body := b.send(http.MethodPost, "/api/auth/refresh", RefreshRequest{RefreshToken: sess.Session.RefreshToken})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.NotEqual(t, sess.Session.RefreshToken, decode[models.Session](t, body).RefreshToken)

	resp, _ = b.send(http.MethodPost, "/api/auth/refresh", RefreshRequest{})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAuthCallback_ProviderErrorGoesToErrorPage(t *testing.T) {
	ts := newTestServer(t, "")
	b := ts.browser(t)

	resp, _ := b.get("/auth/callback?error=access_denied")
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/auth/auth-code-error", resp.Header.Get("Location"))

	resp, _ = b.get("/auth/callback?state=unknown&code=abc")
	assert.Equal(t, "/auth/auth-code-error", resp.Header.Get("Location"))

	_, body := b.get("/auth/auth-code-error")
	page := decode[struct {
		Title   string   `json:"title"`
		Reasons []string `json:"reasons"`
	}](t, body)
	assert.Equal(t, "인증 오류", page.Title)
	assert.Len(t, page.Reasons, 4)
}

func TestLoginPage_UnknownProvider(t *testing.T) {
	ts := newTestServer(t, "")
	resp, body := ts.browser(t).get("/login?provider=github")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, decode[map[string]any](t, body)["error"])
}

func TestLoginPage_AnonymousVisitsRegisterNothing(t *testing.T) {
	ts := newTestServer(t, "")

	// 50 cookie-less visits, half of them starting a sign-in
	for i := 0; i < 25; i++ {
		resp, err := ts.app.Test(httptest.NewRequest(http.MethodGet, "/login", nil), -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		resp, err = ts.app.Test(httptest.NewRequest(http.MethodGet, "/login?provider=kakao", nil), -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusFound, resp.StatusCode)
		_ = resp.Body.Close()
	}
	_, stores := ts.srv.appCtx.Len()
	assert.Zero(t, stores)

	// completing a sign-in registers the client's store
	b := ts.browser(t)
	ts.signIn(t, b, "5005")
	_, stores = ts.srv.appCtx.Len()
	assert.Equal(t, 1, stores)
}

func TestDialog_AfterShutdownIsUnavailable(t *testing.T) {
	ts := newTestServer(t, "")
	b := ts.browser(t)

	resp, _ := b.get("/api/dialogs")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	ts.srv.appCtx.Close()
	resp, _ = b.get("/api/dialogs")
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	resp, _ = b.send(http.MethodPost, "/api/dialogs", OpenDialogRequest{Title: "late"})
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	dialogs, _ := ts.srv.appCtx.Len()
	assert.Zero(t, dialogs)
}

func TestAdminLoginAndRecount(t *testing.T) {
	ts := newTestServer(t, "")
	ctx := context.Background()
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	_, err = ts.admins.Create(ctx, "admin@example.com", hash)
	require.NoError(t, err)

	b := ts.browser(t)

	resp, body := b.send(http.MethodPost, "/api/admin/login", map[string]string{
		"email": "nobody@example.com", "password": "whatever",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	res := decode[service.AdminSignInResult](t, body)
	assert.False(t, res.Success)
	assert.Equal(t, auth.NotAdminMessage, res.Error)

	resp, _ = b.send(http.MethodPost, "/api/admin/login", map[string]string{
		"email": "admin@example.com", "password": "wrong",
	})
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, body = b.send(http.MethodPost, "/api/admin/login", map[string]string{
		"email": "admin@example.com", "password": "correct horse",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.True(t, decode[service.AdminSignInResult](t, body).Success)

	_, body = b.get("/api/admin/check")
	assert.JSONEq(t, `{"is_admin":true}`, string(body))

	resp, body = b.send(http.MethodPost, "/api/admin/recount", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(body))
	assert.JSONEq(t, `{"repaired":[]}`, string(body))

	user := ts.browser(t)
	ts.signIn(t, user, "5005")
	resp, _ = user.send(http.MethodPost, "/api/admin/recount", nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestFeatureFlagsEndpoint(t *testing.T) {
	ts := newTestServer(t, "likes=true,comment_edit=false")
	_, body := ts.browser(t).get("/api/feature-flags")
	flags := decode[struct {
		Evaluated map[string]bool `json:"evaluated"`
	}](t, body)
	assert.True(t, flags.Evaluated["likes"])
	assert.False(t, flags.Evaluated["comment_edit"])
}

func TestTestAPIPage(t *testing.T) {
	ts := newTestServer(t, "")
	b := ts.browser(t)

	_, body := b.get("/test-api")
	assert.JSONEq(t, `{"suites":["profiles","comments","admin"]}`, string(body))

	_, body = b.get("/test-api?suite=profiles")
	report := decode[struct {
		OK    bool     `json:"ok"`
		Lines []string `json:"lines"`
	}](t, body)
	assert.True(t, report.OK, report.Lines)

	_, body = b.get("/test-api?suite=comments")
	assert.True(t, decode[struct {
		OK bool `json:"ok"`
	}](t, body).OK)
}

func TestWebSocketRoute_RequiresUpgrade(t *testing.T) {
	ts := newTestServer(t, "")
	resp, _ := ts.browser(t).get("/api/ws")
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestWebSocket_ReceivesProfileEvents(t *testing.T) {
	ts := newTestServer(t, "")
	require.NoError(t, ts.srv.hub.StartWiring(ts.srv.shutdownCtx, ts.srv.notifier))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = ts.app.Listener(ln) }()
	t.Cleanup(func() {
		_ = ts.srv.hub.Shutdown(context.Background())
		_ = ts.app.Shutdown()
	})

	conn, _, err := gorillaws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/ws", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.Eventually(t, func() bool { return ts.srv.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	p := ts.createProfile(t, ts.browser(t), "Broadcast")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev notifications.ProfileEvent
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, notifications.ProfileCreated, ev.Type)
	assert.Equal(t, p.ID, ev.ProfileID)
}

func TestWebSocket_ShutdownSendsGoingAway(t *testing.T) {
	ts := newTestServer(t, "")
	require.NoError(t, ts.srv.hub.StartWiring(ts.srv.shutdownCtx, ts.srv.notifier))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = ts.app.Listener(ln) }()
	t.Cleanup(func() { _ = ts.app.Shutdown() })

	conn, _, err := gorillaws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/ws", nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	require.Eventually(t, func() bool { return ts.srv.hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	// events in flight while the hub shuts down
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			ts.srv.hub.BroadcastAll(`{"type":"profile_updated"}`)
		}
	}()
	require.NoError(t, ts.srv.hub.Shutdown(context.Background()))
	<-done

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		_, _, err = conn.ReadMessage()
		if err != nil {
			break
		}
	}
	assert.True(t, gorillaws.IsCloseError(err, gorillaws.CloseGoingAway), "got %v", err)
}
