package view

import (
	"context"
	"fmt"

	"github.com/pillow12360/eureka-ssul/internal/imaging"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/service"
	"github.com/pillow12360/eureka-ssul/internal/store"
	"github.com/pillow12360/eureka-ssul/internal/validation"
)

// ListView is the home page: every profile as a collapsed card.
type ListView struct {
	Cards   []CardView `json:"cards"`
	Loading bool       `json:"loading"`
	Toasts  []Toast    `json:"toasts,omitempty"`
}

type ProfileList struct {
	svcs *service.Services
}

func NewProfileList(svcs *service.Services) *ProfileList {
	return &ProfileList{svcs: svcs}
}

// Load fetches the profiles, newest first.
func (l *ProfileList) Load(ctx context.Context, userID string) ListView {
	profiles := store.NewProfileStore(l.svcs.Profiles)
	v := ListView{Cards: []CardView{}}
	if !profiles.Fetch(ctx) {
		v.Toasts = append(v.Toasts, errorToast("프로필 불러오기 실패", profiles.Err()))
		return v
	}
	for _, p := range profiles.Items() {
		v.Cards = append(v.Cards, NewProfileCard(l.svcs, p, userID).View())
	}
	return v
}

// Card returns one profile's card, expanded when asked.
func (l *ProfileList) Card(ctx context.Context, profileID, userID string, expanded bool) (CardView, bool) {
	card, failed, found := l.openCard(ctx, profileID, userID, expanded)
	if card == nil {
		return failed, found
	}
	return card.View(), true
}

// openCard loads profileID into a card. card is nil when the profile could not
// be loaded; failed then holds the view to show, unless found is false.
func (l *ProfileList) openCard(ctx context.Context, profileID, userID string, expanded bool) (card *ProfileCard, failed CardView, found bool) {
	p, err := l.svcs.Profiles.GetProfileByID(ctx, profileID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, CardView{}, false
		}
		return nil, CardView{State: CardCollapsed, Toasts: []Toast{errorToast("프로필 불러오기 실패", err)}}, true
	}
	card = NewProfileCard(l.svcs, *p, userID)
	if expanded {
		card.Toggle(ctx)
	}
	return card, CardView{}, true
}

// CardResult is a card rendered after an action on it.
type CardResult struct {
	CardView
	OK bool `json:"ok"`
}

// CommentOnCard posts form from profileID's expanded card.
func (l *ProfileList) CommentOnCard(ctx context.Context, profileID, userID string, form validation.CommentForm) (CardResult, bool) {
	card, failed, found := l.openCard(ctx, profileID, userID, true)
	if card == nil {
		return CardResult{CardView: failed}, found
	}
	ok := card.SubmitComment(ctx, form)
	return CardResult{CardView: card.View(), OK: ok}, true
}

// LikeOnCard toggles userID's like from profileID's expanded card.
func (l *ProfileList) LikeOnCard(ctx context.Context, profileID, userID string) (CardResult, bool) {
	card, failed, found := l.openCard(ctx, profileID, userID, true)
	if card == nil {
		return CardResult{CardView: failed}, found
	}
	ok := card.ToggleLike(ctx)
	return CardResult{CardView: card.View(), OK: ok}, true
}

// FormResult is the outcome of a profile form submission.
type FormResult struct {
	Profile     *models.Profile   `json:"profile,omitempty"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
	Error       string            `json:"error,omitempty"`
	Redirect    string            `json:"redirect,omitempty"`
	Toasts      []Toast           `json:"toasts,omitempty"`
}

// ProfileForm creates profiles. The avatar is uploaded only once the form is valid.
type ProfileForm struct {
	svcs *service.Services
}

func NewProfileForm(svcs *service.Services) *ProfileForm {
	return &ProfileForm{svcs: svcs}
}

// Submit validates input, uploads image when present and creates the profile.
func (f *ProfileForm) Submit(ctx context.Context, input validation.ProfileForm, image *imaging.Input, userID string) FormResult {
	if err := input.Validate(); err != nil {
		return FormResult{FieldErrors: fieldErrors(err), Error: validation.SummaryMessage}
	}

	in := models.NewProfile{
		Name:     input.Name,
		Features: models.FeaturesToString(models.FeaturesFromString(input.Features)),
		Bio:      input.Bio,
	}
	if userID != "" {
		in.UserID = &userID
	}
	if image != nil && len(image.Content) > 0 {
		url, err := f.svcs.Profiles.UploadProfileImage(ctx, *image)
		if err != nil {
			return FormResult{
				Error:       err.Error(),
				FieldErrors: map[string]string{"image": toastMessage(err)},
				Toasts:      []Toast{errorToast("이미지 업로드 실패", err)},
			}
		}
		in.ImageURL = &url
	}

	profiles := store.NewProfileStore(f.svcs.Profiles)
	p, ok := profiles.Create(ctx, in)
	if !ok {
		return FormResult{Error: profiles.Err().Error(), Toasts: []Toast{errorToast("프로필 등록 실패", profiles.Err())}}
	}
	return FormResult{
		Profile:  p,
		Redirect: "/",
		Toasts:   []Toast{successToast("프로필 등록 완료", fmt.Sprintf("%s 님의 프로필이 등록되었습니다.", p.Name))},
	}
}

func toastMessage(err error) string {
	return errorToast("", err).Message
}

// DetailView is a single profile page.
type DetailView struct {
	Found    bool               `json:"found"`
	Profile  *models.Profile    `json:"profile,omitempty"`
	Features []string           `json:"features,omitempty"`
	Comments []*models.Comment  `json:"comments"`
	Like     *models.LikeStatus `json:"like,omitempty"`
	Message  string             `json:"message,omitempty"`
	Toasts   []Toast            `json:"toasts,omitempty"`
}

// NotFoundMessage is shown for a missing profile.
const NotFoundMessage = "프로필을 찾을 수 없습니다."

type ProfileDetail struct {
	svcs *service.Services
}

func NewProfileDetail(svcs *service.Services) *ProfileDetail {
	return &ProfileDetail{svcs: svcs}
}

// Load returns the profile with its grouped comments and like status.
func (d *ProfileDetail) Load(ctx context.Context, id, userID string) DetailView {
	p, err := d.svcs.Profiles.GetProfileByID(ctx, id)
	if err != nil {
		v := DetailView{Comments: []*models.Comment{}, Message: NotFoundMessage}
		if !models.HasCode(err, models.CodeNotFound) {
			v.Toasts = append(v.Toasts, errorToast("프로필 불러오기 실패", err))
		}
		return v
	}

	v := DetailView{Found: true, Profile: p, Features: p.FeatureList(), Comments: []*models.Comment{}}
	tree, err := d.svcs.Comments.GetCommentTree(ctx, id)
	if err != nil {
		v.Toasts = append(v.Toasts, errorToast("댓글 불러오기 실패", err))
	} else {
		v.Comments = tree
	}
	likes := store.NewLikeState(d.svcs.Likes)
	if likes.FetchLikeStatus(ctx, id, userID) {
		st := likes.Status(id)
		v.Like = &st
	} else {
		v.Toasts = append(v.Toasts, errorToast("좋아요 불러오기 실패", likes.Err()))
	}
	return v
}
