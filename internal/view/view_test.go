package view

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/pillow12360/eureka-ssul/internal/auth"
	"github.com/pillow12360/eureka-ssul/internal/cache"
	"github.com/pillow12360/eureka-ssul/internal/imaging"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/repository"
	"github.com/pillow12360/eureka-ssul/internal/service"
	"github.com/pillow12360/eureka-ssul/internal/store"
	"github.com/pillow12360/eureka-ssul/internal/testutil"
	"github.com/pillow12360/eureka-ssul/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProfiles records every call that reaches the profile repository.
type countingProfiles struct {
	repository.ProfileRepository
	calls atomic.Int32
}

func (c *countingProfiles) Create(ctx context.Context, in models.NewProfile) (*models.Profile, error) {
	c.calls.Add(1)
	return c.ProfileRepository.Create(ctx, in)
}

func (c *countingProfiles) UploadImage(ctx context.Context, in repository.ImageUpload) (string, error) {
	c.calls.Add(1)
	return c.ProfileRepository.UploadImage(ctx, in)
}

type fixture struct {
	svcs     *service.Services
	profiles *countingProfiles
	bucket   *testutil.MemoryBucket
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cache.SetClient(nil)
	db := testutil.NewSQLiteDB(t)
	procs := repository.NewProcedures()
	bucket := testutil.NewMemoryBucket()
	profiles := &countingProfiles{ProfileRepository: repository.NewProfileRepository(db, bucket)}
	return fixture{
		svcs: service.New(service.Deps{
			Profiles: profiles,
			Comments: repository.NewCommentRepository(db, procs),
			Likes:    repository.NewProfileLikeRepository(db, procs),
			Images:   imaging.NewProcessor(5),
		}),
		profiles: profiles,
		bucket:   bucket,
	}
}

func validForm() validation.ProfileForm {
	return validation.ProfileForm{Name: "Tester", Features: "a,b,c", Bio: "0123456789"}
}

func TestProfileForm_ShortNameMakesNoRemoteCall(t *testing.T) {
	f := newFixture(t)
	form := validForm()
	form.Name = "A"
	image := &imaging.Input{Filename: "me.png", ContentType: "image/png", Content: testutil.TinyPNG(t, 8, 8)}

	res := NewProfileForm(f.svcs).Submit(context.Background(), form, image, "")

	assert.Nil(t, res.Profile)
	assert.Equal(t, validation.SummaryMessage, res.Error)
	assert.Equal(t, "이름은 최소 2자 이상이어야 합니다.", res.FieldErrors["name"])
	assert.Zero(t, f.profiles.calls.Load())
	assert.Zero(t, f.bucket.Len())
}

func TestProfileForm_SubmitUploadsImageAndCreates(t *testing.T) {
	f := newFixture(t)
	form := validForm()
	form.Features = " a, b ,c,d,e,f "
	image := &imaging.Input{Filename: "me.png", ContentType: "image/png", Content: testutil.TinyPNG(t, 30, 20)}

	res := NewProfileForm(f.svcs).Submit(context.Background(), form, image, "user-1")

	require.NotNil(t, res.Profile, res.Error)
	assert.Equal(t, "/", res.Redirect)
	assert.Equal(t, "a,b,c,d,e", res.Profile.Features)
	require.NotNil(t, res.Profile.ImageURL)
	assert.Contains(t, *res.Profile.ImageURL, "profile-images/")
	require.NotNil(t, res.Profile.UserID)
	assert.Equal(t, "user-1", *res.Profile.UserID)
	assert.Equal(t, 2, f.bucket.Len(), "jpeg and webp")
	require.Len(t, res.Toasts, 1)
	assert.Equal(t, ToastSuccess, res.Toasts[0].Kind)
}

func TestProfileForm_BadImageNoProfile(t *testing.T) {
	f := newFixture(t)
	image := &imaging.Input{Filename: "notes.txt", ContentType: "text/plain", Content: []byte("not an image")}

	res := NewProfileForm(f.svcs).Submit(context.Background(), validForm(), image, "")

	assert.Nil(t, res.Profile)
	assert.NotEmpty(t, res.FieldErrors["image"])
	require.Len(t, res.Toasts, 1)
	assert.Equal(t, ToastError, res.Toasts[0].Kind)

	all, err := f.svcs.Profiles.GetProfiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestProfileCard_StateMachine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svcs.Profiles.CreateProfile(ctx, models.NewProfile{Name: "Tester", Features: "a,b,c", Bio: "0123456789"})
	require.NoError(t, err)

	card := NewProfileCard(f.svcs, *p, "user-1")
	v := card.View()
	assert.Equal(t, CardCollapsed, v.State)
	assert.Nil(t, v.Comments)
	assert.Nil(t, v.Like)
	assert.False(t, card.SubmitComment(ctx, validation.CommentForm{AuthorName: "X", Content: "hi"}), "collapsed cards take no comments")

	assert.Equal(t, CardExpandedReady, card.Toggle(ctx))
	v = card.View()
	assert.NotNil(t, v.Comments)
	require.NotNil(t, v.Like)
	assert.False(t, v.Like.UserLiked)

	assert.Equal(t, CardCollapsed, card.Toggle(ctx))
	assert.Nil(t, card.View().Comments)
}

func TestProfileCard_SubmitComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svcs.Profiles.CreateProfile(ctx, models.NewProfile{Name: "Tester", Features: "a,b,c", Bio: "0123456789"})
	require.NoError(t, err)

	card := NewProfileCard(f.svcs, *p, "")
	card.Toggle(ctx)

	assert.False(t, card.SubmitComment(ctx, validation.CommentForm{AuthorName: "X", Content: "  "}))
	assert.Equal(t, "댓글 내용을 입력해주세요.", card.View().FieldErrors["content"])

	require.True(t, card.SubmitComment(ctx, validation.CommentForm{AuthorName: "X", Content: "hi"}))
	v := card.View()
	assert.Empty(t, v.FieldErrors)
	assert.Equal(t, 1, v.Profile.Comments)
	require.Len(t, v.Comments, 1)
	assert.Equal(t, "hi", v.Comments[0].Content)

	rootID := v.Comments[0].ID
	require.True(t, card.SubmitComment(ctx, validation.CommentForm{AuthorName: "Y", Content: "reply", ParentID: &rootID}))
	v = card.View()
	require.Len(t, v.Comments, 1)
	require.Len(t, v.Comments[0].Replies, 1)
	assert.Equal(t, 2, v.Profile.Comments)

	stored, err := f.svcs.Profiles.GetProfileByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Comments)
}

func TestProfileCard_ToggleLike(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.svcs.Profiles.CreateProfile(ctx, models.NewProfile{Name: "Tester", Features: "a,b,c", Bio: "0123456789"})
	require.NoError(t, err)

	anon := NewProfileCard(f.svcs, *p, "")
	anon.Toggle(ctx)
	assert.False(t, anon.ToggleLike(ctx))

	card := NewProfileCard(f.svcs, *p, "user-1")
	card.Toggle(ctx)
	require.True(t, card.ToggleLike(ctx))
	v := card.View()
	assert.True(t, v.Like.UserLiked)
	assert.Equal(t, 1, v.Profile.LikeCount)

	require.True(t, card.ToggleLike(ctx))
	v = card.View()
	assert.False(t, v.Like.UserLiked)
	assert.Equal(t, 0, v.Profile.LikeCount)
}

func TestProfileList_Load(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty := NewProfileList(f.svcs).Load(ctx, "")
	assert.NotNil(t, empty.Cards)
	assert.Empty(t, empty.Cards)

	_, err := f.svcs.Profiles.CreateProfile(ctx, models.NewProfile{Name: "One", Features: "a,b,c", Bio: "0123456789"})
	require.NoError(t, err)
	second, err := f.svcs.Profiles.CreateProfile(ctx, models.NewProfile{Name: "Two", Features: "x,y", Bio: "0123456789"})
	require.NoError(t, err)

	v := NewProfileList(f.svcs).Load(ctx, "")
	require.Len(t, v.Cards, 2)
	assert.Equal(t, second.ID, v.Cards[0].Profile.ID)
	assert.Equal(t, []string{"x", "y"}, v.Cards[0].Features)
	for _, c := range v.Cards {
		assert.Equal(t, CardCollapsed, c.State)
	}

	card, found := NewProfileList(f.svcs).Card(ctx, second.ID, "", true)
	require.True(t, found)
	assert.Equal(t, CardExpandedReady, card.State)

	_, found = NewProfileList(f.svcs).Card(ctx, "missing", "", false)
	assert.False(t, found)
}

func TestProfileDetail_Load(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missing := NewProfileDetail(f.svcs).Load(ctx, "missing", "")
	assert.False(t, missing.Found)
	assert.Equal(t, NotFoundMessage, missing.Message)
	assert.Empty(t, missing.Toasts)

	p, err := f.svcs.Profiles.CreateProfile(ctx, models.NewProfile{Name: "Tester", Features: "a,b,c", Bio: "0123456789"})
	require.NoError(t, err)
	_, err = f.svcs.Comments.CreateComment(ctx, models.NewComment{ProfileID: p.ID, AuthorName: "X", Content: "hi"})
	require.NoError(t, err)

	v := NewProfileDetail(f.svcs).Load(ctx, p.ID, "user-1")
	require.True(t, v.Found)
	assert.Equal(t, []string{"a", "b", "c"}, v.Features)
	require.Len(t, v.Comments, 1)
	require.NotNil(t, v.Like)
	assert.Zero(t, v.Like.LikeCount)
}

type callbackStub struct {
	res *auth.SignInResult
	err error
}

func (c callbackStub) HandleCallback(context.Context, string, string) (*auth.SignInResult, error) {
	return c.res, c.err
}

func TestAuthCallback(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("provider error", func(t *testing.T) {
		t.Parallel()
		res := AuthCallback(ctx, callbackStub{}, nil, "state", "", "access_denied")
		assert.Equal(t, AuthCodeErrorPath, res.Redirect)
		assert.Equal(t, "access_denied", res.Error)
	})

	t.Run("exchange fails", func(t *testing.T) {
		t.Parallel()
		res := AuthCallback(ctx, callbackStub{err: models.NewUnauthorizedError("Invalid or expired sign-in state")}, nil, "state", "code", "")
		assert.Equal(t, AuthCodeErrorPath, res.Redirect)
		assert.Equal(t, "Invalid or expired sign-in state", res.Error)
	})

	t.Run("success keeps local next", func(t *testing.T) {
		t.Parallel()
		stub := callbackStub{res: &auth.SignInResult{ClientID: "c1", Next: "/profile/create", Session: &models.Session{ID: "s1"}}}
		res := AuthCallback(ctx, stub, nil, "state", "code", "")
		assert.Equal(t, "/profile/create", res.Redirect)
		assert.Equal(t, "c1", res.ClientID)
	})

	t.Run("offsite next goes home", func(t *testing.T) {
		t.Parallel()
		stub := callbackStub{res: &auth.SignInResult{ClientID: "c1", Next: "//evil.example"}}
		assert.Equal(t, "/", AuthCallback(ctx, stub, nil, "state", "code", "").Redirect)
	})
}

type loginAPI struct {
	store.AuthAPI
	err error
}

func (l loginAPI) SignInWithKakao(_ context.Context, clientID, next string) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	return "https://kauth.example/authorize?next=" + next, nil
}

func (l loginAPI) OnAuthStateChange(context.Context, string, func(models.AuthEvent)) (func(), error) {
	return func() {}, nil
}

func TestLogin(t *testing.T) {
	cache.SetClient(nil)
	ctx := context.Background()

	s, err := store.NewAuthStore(ctx, loginAPI{}, "c1")
	require.NoError(t, err)
	url, v := StartLogin(ctx, s, store.ProviderKakao, "https://evil.example")
	assert.Equal(t, "https://kauth.example/authorize?next=/", url)
	assert.Equal(t, url, v.Redirect)

	failing, err := store.NewAuthStore(ctx, loginAPI{err: errors.New("provider down")}, "c2")
	require.NoError(t, err)
	url, v = StartLogin(ctx, failing, store.ProviderKakao, "/")
	assert.Empty(t, url)
	assert.Equal(t, "provider down", v.Error)
	assert.Empty(t, Login(failing).Error, "errors are shown once")
}

func TestAuthCodeError(t *testing.T) {
	t.Parallel()
	page := AuthCodeError()
	assert.Equal(t, "인증 오류", page.Title)
	assert.Len(t, page.Reasons, 4)
	assert.Equal(t, LoginPath, page.Links[0].Href)
}

func TestTestAPI_Suites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	api := NewTestAPI(f.svcs)

	comments := api.Run(ctx, SuiteComments, "")
	assert.False(t, comments.OK, "no profile to comment on yet")

	profiles := api.Run(ctx, SuiteProfiles, "")
	assert.True(t, profiles.OK, profiles.Lines)
	assert.Len(t, profiles.Checks, 3)

	comments = api.Run(ctx, SuiteComments, "")
	assert.True(t, comments.OK, comments.Lines)
	assert.Contains(t, comments.Lines, "  └ 대댓글: 대댓글 테스트입니다. (작성자: 대댓글 작성자)")

	admin := api.Run(ctx, SuiteAdmin, "c1")
	assert.False(t, admin.OK, "auth is not configured in this fixture")

	unknown := api.Run(ctx, "bogus", "")
	assert.False(t, unknown.OK)
}
