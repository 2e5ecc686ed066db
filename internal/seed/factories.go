// Package seed provides helpers to create demo profiles and comments.
// These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/pillow12360/eureka-ssul/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Options tunes generated data.
type Options struct {
	Profiles          int
	MaxComments       int
	ReplyRatio        float64
	DryRun            bool
	DeterministicSeed int64
}

// Factory builds profile and comment inputs. It never touches storage.
type Factory struct {
	opts  Options
	faker *gofakeit.Faker
	rnd   *rand.Rand
}

func NewFactory(opts Options) *Factory {
	seed := opts.DeterministicSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.MaxComments <= 0 {
		opts.MaxComments = 4
	}
	if opts.ReplyRatio <= 0 {
		opts.ReplyRatio = 0.3
	}
	return &Factory{
		opts:  opts,
		faker: gofakeit.New(seed),
		rnd:   rand.New(rand.NewSource(seed)),
	}
}

// BuildProfile returns a profile that passes the profile form rules.
func (f *Factory) BuildProfile(overrides ...func(*models.NewProfile)) models.NewProfile {
	n := 3 + f.rnd.Intn(models.MaxFeatures-2)
	tags := make([]string, 0, n)
	for len(tags) < n {
		tags = append(tags, strings.ReplaceAll(f.feature(), ",", " "))
	}
	p := models.NewProfile{
		Name:     f.faker.Name(),
		Features: models.FeaturesToString(tags),
		Bio:      truncate(f.faker.Sentence(12), 500),
	}
	if f.rnd.Intn(2) == 0 {
		url := fmt.Sprintf("https://picsum.photos/seed/%s/300/300", f.faker.UUID())
		p.ImageURL = &url
	}
	for _, o := range overrides {
		o(&p)
	}
	return p
}

func (f *Factory) feature() string {
	switch f.rnd.Intn(4) {
	case 0:
		return f.faker.Hobby()
	case 1:
		return f.faker.JobTitle()
	case 2:
		return f.faker.Language()
	default:
		return f.faker.HackerNoun()
	}
}

// BuildComment returns a comment on profileID, replying to parentID when it is set.
func (f *Factory) BuildComment(profileID string, parentID *string) models.NewComment {
	return models.NewComment{
		ProfileID:  profileID,
		AuthorName: truncate(f.faker.Username(), 50),
		Content:    truncate(f.faker.Sentence(8), 1000),
		ParentID:   parentID,
	}
}

// CommentCount picks how many root comments a generated profile gets.
func (f *Factory) CommentCount() int {
	return f.rnd.Intn(f.opts.MaxComments + 1)
}

// WantsReply reports whether the next generated comment should be a reply.
func (f *Factory) WantsReply() bool {
	return f.rnd.Float64() < f.opts.ReplyRatio
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
