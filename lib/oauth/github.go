package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubApiBase = "https://api.github.com"

type githubUser struct {
	Id    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

type GitHub struct {
	Config  oauth2.Config
	ApiBase string
	client  *resty.Client
}

func NewGitHub(clientId, clientSecret string, client *resty.Client) GitHub {
	return GitHub{
		Config: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		ApiBase: githubApiBase,
		client:  client,
	}
}

func (g GitHub) Configured() bool {
	return configured(g.Config.ClientID, g.Config.ClientSecret)
}

// exchangeCode trades a code for an access token using the resty client's
// transport.
func exchangeCode(ctx context.Context, config oauth2.Config, client *resty.Client, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, client.GetClient())
	token, err := config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNoAccessToken, err.Error())
	}
	if token.AccessToken == "" {
		return "", ErrNoAccessToken
	}
	return token.AccessToken, nil
}

func (g GitHub) get(ctx context.Context, accessToken, path string, out any) error {
	res, err := g.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("Accept", "application/vnd.github.v3+json").
		SetResult(out).
		Get(g.ApiBase + path)
	if err != nil {
		return err
	}
	if res.StatusCode() == http.StatusNotFound {
		return ErrInvalidCode
	}
	if res.IsError() {
		return fmt.Errorf("github %s responded %s", path, res.Status())
	}
	return nil
}

func (g GitHub) Exchange(ctx context.Context, code string) (Profile, error) {
	ctx, span := tracer.Start(ctx, "github:Exchange")
	defer span.End()

	if !g.Configured() {
		return Profile{}, ErrNotConfigured
	}

	accessToken, err := exchangeCode(ctx, g.Config, g.client, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to exchange code")
		return Profile{}, err
	}

	var user githubUser
	err = g.get(ctx, accessToken, "/user", &user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read github user")
		return Profile{}, err
	}

	email := user.Email
	if email == "" {
		var emails []githubEmail
		err = g.get(ctx, accessToken, "/user/emails", &emails)
		if err != nil && !errors.Is(err, ErrInvalidCode) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to read github emails")
			return Profile{}, err
		}
		for _, e := range emails {
			if e.Primary {
				email = e.Email
				break
			}
		}
	}
	if email == "" {
		span.SetStatus(codes.Error, "github account has no email")
		return Profile{}, ErrEmailRequired
	}

	first, last, _ := strings.Cut(strings.TrimSpace(user.Name), " ")

	return Profile{
		Provider:  "github",
		ID:        strconv.FormatInt(user.Id, 10),
		Email:     email,
		FirstName: first,
		LastName:  strings.TrimSpace(last),
		Username:  user.Login,
	}, nil
}
