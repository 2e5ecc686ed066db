package view

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pillow12360/eureka-ssul/internal/models"
	"github.com/pillow12360/eureka-ssul/internal/service"
)

// Smoke suites run by the API test page.
const (
	SuiteProfiles = "profiles"
	SuiteComments = "comments"
	SuiteAdmin    = "admin"
)

// Check is one step of a smoke suite.
type Check struct {
	Name     string        `json:"name"`
	OK       bool          `json:"ok"`
	Detail   string        `json:"detail"`
	Duration time.Duration `json:"duration"`
}

// TestAPIReport collects the checks and log lines of a run.
type TestAPIReport struct {
	Suite  string   `json:"suite"`
	Checks []Check  `json:"checks"`
	Lines  []string `json:"lines"`
	OK     bool     `json:"ok"`
}

func (r *TestAPIReport) line(format string, args ...any) {
	r.Lines = append(r.Lines, fmt.Sprintf(format, args...))
}

func (r *TestAPIReport) check(name string, fn func() (string, error)) bool {
	start := time.Now()
	detail, err := fn()
	c := Check{Name: name, OK: err == nil, Detail: detail, Duration: time.Since(start)}
	if err != nil {
		c.Detail = err.Error()
		r.line("%s 실패: %s", name, err.Error())
	} else {
		r.line("%s 성공! %s", name, detail)
	}
	r.Checks = append(r.Checks, c)
	return err == nil
}

// TestAPI exercises the services the way the pages use them.
type TestAPI struct {
	svcs *service.Services
}

func NewTestAPI(svcs *service.Services) *TestAPI {
	return &TestAPI{svcs: svcs}
}

// Suites lists the suites Run accepts.
func (t *TestAPI) Suites() []string {
	return []string{SuiteProfiles, SuiteComments, SuiteAdmin}
}

// Run executes suite. clientID is used by the admin suite.
func (t *TestAPI) Run(ctx context.Context, suite, clientID string) TestAPIReport {
	r := TestAPIReport{Suite: suite}
	switch suite {
	case SuiteProfiles:
		r.line("===== 프로필 API 테스트 시작 =====")
		t.profiles(ctx, &r)
		r.line("===== 프로필 API 테스트 종료 =====")
	case SuiteComments:
		r.line("===== 댓글 API 테스트 시작 =====")
		t.comments(ctx, &r)
		r.line("===== 댓글 API 테스트 종료 =====")
	case SuiteAdmin:
		r.line("===== 관리자 API 테스트 시작 =====")
		t.admin(ctx, &r, clientID)
		r.line("===== 관리자 API 테스트 종료 =====")
	default:
		r.check("테스트 선택", func() (string, error) {
			return "", models.NewValidationError(fmt.Sprintf("unknown suite %q", suite))
		})
	}
	r.OK = len(r.Checks) > 0
	for _, c := range r.Checks {
		r.OK = r.OK && c.OK
	}
	return r
}

func (t *TestAPI) profiles(ctx context.Context, r *TestAPIReport) {
	var created *models.Profile
	r.check("프로필 생성", func() (string, error) {
		p, err := t.svcs.Profiles.CreateProfile(ctx, models.NewProfile{
			Name:     "테스트 사용자",
			Features: models.FeaturesToString([]string{"개발자", "디자인 좋아함", "맛집 탐방"}),
			Bio:      "안녕하세요! 저는 테스트 사용자입니다. 잘 부탁드립니다.",
		})
		if err != nil {
			return "", err
		}
		created = p
		return "ID: " + p.ID, nil
	})
	if created != nil {
		r.check("프로필 조회", func() (string, error) {
			p, err := t.svcs.Profiles.GetProfileByID(ctx, created.ID)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("이름: %s, 특징: %s", p.Name, strings.Join(p.FeatureList(), ", ")), nil
		})
	}
	r.check("모든 프로필 조회", func() (string, error) {
		all, err := t.svcs.Profiles.GetProfiles(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("프로필 수: %d", len(all)), nil
	})
}

func (t *TestAPI) comments(ctx context.Context, r *TestAPIReport) {
	all, err := t.svcs.Profiles.GetProfiles(ctx)
	if err != nil || len(all) == 0 {
		r.check("테스트 프로필 확인", func() (string, error) {
			if err != nil {
				return "", err
			}
			return "", models.NewNotFoundError("Profile", "")
		})
		r.line("테스트할 프로필이 없습니다. 먼저 프로필을 생성해주세요.")
		return
	}
	profileID := all[0].ID
	r.line("테스트에 사용할 프로필 ID: %s", profileID)

	var root *models.Comment
	r.check("댓글 생성", func() (string, error) {
		c, err := t.svcs.Comments.CreateComment(ctx, models.NewComment{
			ProfileID: profileID, AuthorName: "익명 댓글러", Content: "안녕하세요! 테스트 댓글입니다.",
		})
		if err != nil {
			return "", err
		}
		root = c
		return "ID: " + c.ID, nil
	})
	if root == nil {
		return
	}
	r.check("대댓글 생성", func() (string, error) {
		c, err := t.svcs.Comments.CreateComment(ctx, models.NewComment{
			ProfileID: profileID, AuthorName: "대댓글 작성자", Content: "대댓글 테스트입니다.", ParentID: &root.ID,
		})
		if err != nil {
			return "", err
		}
		return "ID: " + c.ID, nil
	})
	r.check("댓글 조회", func() (string, error) {
		tree, err := t.svcs.Comments.GetCommentTree(ctx, profileID)
		if err != nil {
			return "", err
		}
		for _, c := range tree {
			r.line("댓글: %s (작성자: %s)", c.Content, c.AuthorName)
			for _, reply := range c.Replies {
				r.line("  └ 대댓글: %s (작성자: %s)", reply.Content, reply.AuthorName)
			}
		}
		return fmt.Sprintf("댓글 수: %d", len(tree)), nil
	})
}

func (t *TestAPI) admin(ctx context.Context, r *TestAPIReport, clientID string) {
	r.check("관리자 권한 확인", func() (string, error) {
		if t.svcs.Auth == nil {
			return "", models.NewInternalError(fmt.Errorf("auth is not configured"))
		}
		isAdmin, err := t.svcs.Auth.CheckIsAdmin(ctx, clientID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("관리자 여부: %t", isAdmin), nil
	})
}
