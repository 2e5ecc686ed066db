package view

import (
	"context"
	"sync"

	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/service"
	"github.com/pillow12360/eureka-ssul/internal/store"
	"github.com/pillow12360/eureka-ssul/internal/validation"
)

// CardState is where a profile card is in its expand cycle.
type CardState string

const (
	CardCollapsed       CardState = "collapsed"
	CardExpandedLoading CardState = "expanded_loading"
	CardExpandedReady   CardState = "expanded_ready"
)

// CardView is the rendered state of a profile card.
type CardView struct {
	Profile     models.Profile     `json:"profile"`
	Features    []string           `json:"features"`
	State       CardState          `json:"state"`
	Comments    []*models.Comment  `json:"comments,omitempty"`
	Like        *models.LikeStatus `json:"like,omitempty"`
	FieldErrors map[string]string  `json:"field_errors,omitempty"`
	Toasts      []Toast            `json:"toasts,omitempty"`
}

// ProfileCard owns one profile's card. Comments and like status load only when it expands.
type ProfileCard struct {
	svcs   *service.Services
	userID string

	mu          sync.Mutex
	profile     models.Profile
	state       CardState
	comments    *store.CommentStore
	likes       *store.LikeState
	fieldErrors map[string]string
	toasts      []Toast
}

func NewProfileCard(svcs *service.Services, profile models.Profile, userID string) *ProfileCard {
	return &ProfileCard{svcs: svcs, profile: profile, userID: userID, state: CardCollapsed}
}

// Toggle expands a collapsed card, loading its details, or collapses an expanded one.
func (c *ProfileCard) Toggle(ctx context.Context) CardState {
	c.mu.Lock()
	if c.state != CardCollapsed {
		c.state = CardCollapsed
		c.comments, c.likes = nil, nil
		c.mu.Unlock()
		return CardCollapsed
	}
	c.state = CardExpandedLoading
	profileID := c.profile.ID
	c.mu.Unlock()

	comments := store.NewCommentStore(c.svcs.Comments, profileID)
	likes := store.NewLikeState(c.svcs.Likes)
	var toasts []Toast
	if !comments.Fetch(ctx) {
		toasts = append(toasts, errorToast("댓글 불러오기 실패", comments.Err()))
	}
	if !likes.FetchLikeStatus(ctx, profileID, c.userID) {
		toasts = append(toasts, errorToast("좋아요 불러오기 실패", likes.Err()))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != CardExpandedLoading {
		// collapsed while loading
		return c.state
	}
	c.comments, c.likes = comments, likes
	c.toasts = append(c.toasts, toasts...)
	c.state = CardExpandedReady
	return c.state
}

// SubmitComment validates and posts a comment. The card must be expanded.
func (c *ProfileCard) SubmitComment(ctx context.Context, form validation.CommentForm) bool {
	c.mu.Lock()
	comments := c.comments
	c.fieldErrors = nil
	c.mu.Unlock()
	if comments == nil {
		return false
	}

	if err := form.Validate(); err != nil {
		c.mu.Lock()
		c.fieldErrors = fieldErrors(err)
		c.mu.Unlock()
		return false
	}
	_, ok := comments.Create(ctx, models.NewComment{
		AuthorName: form.AuthorName,
		Content:    form.Content,
		ParentID:   form.ParentID,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if !ok {
		c.toasts = append(c.toasts, errorToast("댓글 작성 실패", comments.Err()))
		return false
	}
	c.profile.Comments++
	return true
}

// ToggleLike likes or unlikes the profile for the card's user.
func (c *ProfileCard) ToggleLike(ctx context.Context) bool {
	c.mu.Lock()
	likes := c.likes
	c.mu.Unlock()
	if likes == nil || c.userID == "" {
		return false
	}
	if !likes.ToggleLike(ctx, c.profile.ID, c.userID) {
		c.mu.Lock()
		c.toasts = append(c.toasts, errorToast("좋아요 실패", likes.Err()))
		c.mu.Unlock()
		return false
	}
	c.mu.Lock()
	c.profile.LikeCount = likes.Status(c.profile.ID).LikeCount
	c.mu.Unlock()
	return true
}

func (c *ProfileCard) State() CardState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View renders the card and drains its toasts.
func (c *ProfileCard) View() CardView {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := CardView{
		Profile:     c.profile,
		Features:    c.profile.FeatureList(),
		State:       c.state,
		FieldErrors: c.fieldErrors,
		Toasts:      c.toasts,
	}
	c.toasts = nil
	if c.comments != nil {
		v.Comments = store.Tree(c.comments)
	}
	if c.likes != nil {
		st := c.likes.Status(c.profile.ID)
		v.Like = &st
	}
	return v
}
