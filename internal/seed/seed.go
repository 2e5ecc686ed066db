package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/pillow12360/eureka-ssul/internal/middleware"
	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/service"
	"github.com/pillow12360/eureka-ssul/internal/validation"

	"gopkg.in/yaml.v3"
)

// Fixtures is the YAML seed file format.
//
//	profiles:
//	  - name: 김유레카
//	    features: [개발자, 맛집 탐방, 고양이]
//	    bio: 안녕하세요! 잘 부탁드립니다.
//	    comments:
//	      - author: 익명
//	        content: 반가워요
//	        replies:
//	          - {author: 김유레카, content: 감사합니다}
type Fixtures struct {
	Profiles []FixtureProfile `yaml:"profiles"`
}

type FixtureProfile struct {
	Name     string           `yaml:"name"`
	Features []string         `yaml:"features"`
	Bio      string           `yaml:"bio"`
	ImageURL string           `yaml:"image_url"`
	Comments []FixtureComment `yaml:"comments"`
}

type FixtureComment struct {
	Author  string           `yaml:"author"`
	Content string           `yaml:"content"`
	Replies []FixtureComment `yaml:"replies"`
}

// ParseFixtures decodes and validates a fixture document. Unknown keys are rejected.
func ParseFixtures(r io.Reader) (*Fixtures, error) {
	var fx Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}
	for i, p := range fx.Profiles {
		form := validation.ProfileForm{Name: p.Name, Features: models.FeaturesToString(p.Features), Bio: p.Bio}
		if err := form.Validate(); err != nil {
			return nil, fmt.Errorf("profile %d (%q): %w", i, p.Name, err)
		}
		if err := validateComments(p.Comments); err != nil {
			return nil, fmt.Errorf("profile %d (%q): %w", i, p.Name, err)
		}
	}
	return &fx, nil
}

func validateComments(comments []FixtureComment) error {
	for _, c := range comments {
		form := validation.CommentForm{AuthorName: c.Author, Content: c.Content}
		if err := form.Validate(); err != nil {
			return err
		}
		if err := validateComments(c.Replies); err != nil {
			return err
		}
	}
	return nil
}

// LoadFixtures reads a fixture file from disk.
func LoadFixtures(path string) (*Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ParseFixtures(f)
}

// Report counts what a seeding run created.
type Report struct {
	Profiles int
	Comments int
}

// Seeder writes through the services so counters and events stay consistent.
type Seeder struct {
	svcs    *service.Services
	factory *Factory
	opts    Options
}

func NewSeeder(svcs *service.Services, opts Options) *Seeder {
	return &Seeder{svcs: svcs, factory: NewFactory(opts), opts: opts}
}

// Generate creates opts.Profiles random profiles with a handful of comments each.
func (s *Seeder) Generate(ctx context.Context) (Report, error) {
	var rep Report
	for i := 0; i < s.opts.Profiles; i++ {
		p, err := s.createProfile(ctx, s.factory.BuildProfile())
		if err != nil {
			return rep, err
		}
		rep.Profiles++

		var roots []string
		for n := s.factory.CommentCount(); n > 0; n-- {
			var parent *string
			if len(roots) > 0 && s.factory.WantsReply() {
				parent = &roots[len(roots)-1]
			}
			c, err := s.createComment(ctx, s.factory.BuildComment(p.ID, parent))
			if err != nil {
				return rep, err
			}
			rep.Comments++
			if parent == nil {
				roots = append(roots, c.ID)
			}
		}
	}
	middleware.Logger.Info("seeded random profiles",
		slog.Int("profiles", rep.Profiles),
		slog.Int("comments", rep.Comments),
		slog.Bool("dry_run", s.opts.DryRun),
	)
	return rep, nil
}

// Apply creates every profile and comment in fx, in file order.
func (s *Seeder) Apply(ctx context.Context, fx *Fixtures) (Report, error) {
	var rep Report
	for _, fp := range fx.Profiles {
		in := models.NewProfile{
			Name:     fp.Name,
			Features: models.FeaturesToString(fp.Features),
			Bio:      fp.Bio,
		}
		if fp.ImageURL != "" {
			url := fp.ImageURL
			in.ImageURL = &url
		}
		p, err := s.createProfile(ctx, in)
		if err != nil {
			return rep, err
		}
		rep.Profiles++
		n, err := s.applyComments(ctx, p.ID, nil, fp.Comments)
		rep.Comments += n
		if err != nil {
			return rep, err
		}
	}
	middleware.Logger.Info("applied seed fixtures",
		slog.Int("profiles", rep.Profiles),
		slog.Int("comments", rep.Comments),
		slog.Bool("dry_run", s.opts.DryRun),
	)
	return rep, nil
}

func (s *Seeder) applyComments(ctx context.Context, profileID string, parent *string, comments []FixtureComment) (int, error) {
	created := 0
	for _, fc := range comments {
		c, err := s.createComment(ctx, models.NewComment{
			ProfileID:  profileID,
			AuthorName: fc.Author,
			Content:    fc.Content,
			ParentID:   parent,
		})
		if err != nil {
			return created, err
		}
		created++
		id := c.ID
		n, err := s.applyComments(ctx, profileID, &id, fc.Replies)
		created += n
		if err != nil {
			return created, err
		}
	}
	return created, nil
}

func (s *Seeder) createProfile(ctx context.Context, in models.NewProfile) (*models.Profile, error) {
	if s.opts.DryRun {
		return &models.Profile{ID: fmt.Sprintf("dry-run-profile-%s", in.Name), Name: in.Name}, nil
	}
	p, err := s.svcs.Profiles.CreateProfile(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create profile %q: %w", in.Name, err)
	}
	return p, nil
}

func (s *Seeder) createComment(ctx context.Context, in models.NewComment) (*models.Comment, error) {
	if s.opts.DryRun {
		return &models.Comment{ID: "dry-run-comment", ProfileID: in.ProfileID}, nil
	}
	c, err := s.svcs.Comments.CreateComment(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("create comment on %s: %w", in.ProfileID, err)
	}
	return c, nil
}
