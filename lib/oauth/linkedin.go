package oauth

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

const linkedinApiBase = "https://api.linkedin.com"

type linkedinMe struct {
	Id                 string `json:"id"`
	LocalizedFirstName string `json:"localizedFirstName"`
	LocalizedLastName  string `json:"localizedLastName"`
}

type linkedinEmails struct {
	Elements []struct {
		Handle struct {
			EmailAddress string `json:"emailAddress"`
		} `json:"handle~"`
	} `json:"elements"`
}

type LinkedIn struct {
	Config  oauth2.Config
	ApiBase string
	client  *resty.Client
}

func NewLinkedIn(clientId, clientSecret, redirectUri string, client *resty.Client) LinkedIn {
	endpoint := linkedin.Endpoint
	endpoint.AuthStyle = oauth2.AuthStyleInParams
	return LinkedIn{
		Config: oauth2.Config{
			ClientID:     clientId,
			ClientSecret: clientSecret,
			RedirectURL:  redirectUri,
			Endpoint:     endpoint,
			Scopes:       []string{"r_liteprofile", "r_emailaddress"},
		},
		ApiBase: linkedinApiBase,
		client:  client,
	}
}

func (l LinkedIn) Configured() bool {
	return configured(l.Config.ClientID, l.Config.ClientSecret)
}

func (l LinkedIn) get(ctx context.Context, accessToken, path string, out any) error {
	res, err := l.client.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetHeader("X-Restli-Protocol-Version", "2.0.0").
		SetResult(out).
		Get(l.ApiBase + path)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("linkedin %s responded %s", path, res.Status())
	}
	return nil
}

func (l LinkedIn) Exchange(ctx context.Context, code string) (Profile, error) {
	ctx, span := tracer.Start(ctx, "linkedin:Exchange")
	defer span.End()

	if !l.Configured() {
		return Profile{}, ErrNotConfigured
	}

	accessToken, err := exchangeCode(ctx, l.Config, l.client, code)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to exchange code")
		return Profile{}, err
	}

	var me linkedinMe
	err = l.get(ctx, accessToken, "/v2/me", &me)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read linkedin profile")
		return Profile{}, err
	}

	var emails linkedinEmails
	err = l.get(ctx, accessToken, "/v2/emailAddress?q=members&projection=(elements*(handle~))", &emails)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read linkedin email")
		return Profile{}, err
	}
	email := ""
	if len(emails.Elements) > 0 {
		email = emails.Elements[0].Handle.EmailAddress
	}
	if email == "" {
		span.SetStatus(codes.Error, "linkedin account has no email")
		return Profile{}, ErrEmailRequired
	}

	return Profile{
		Provider:  "linkedin",
		ID:        me.Id,
		Email:     email,
		FirstName: me.LocalizedFirstName,
		LastName:  me.LocalizedLastName,
	}, nil
}
