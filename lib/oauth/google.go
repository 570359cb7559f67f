package oauth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const googleTokenInfoUrl = "https://oauth2.googleapis.com/tokeninfo"

type googleTokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Exp           string `json:"exp"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
}

// Google verifies ID tokens issued to the web client.
type Google struct {
	ClientId     string
	TokenInfoUrl string
	client       *resty.Client
}

func NewGoogle(clientId string, client *resty.Client) Google {
	return Google{
		ClientId:     clientId,
		TokenInfoUrl: googleTokenInfoUrl,
		client:       client,
	}
}

func (g Google) Configured() bool {
	return configured(g.ClientId)
}

func (g Google) Verify(ctx context.Context, idToken string) (Profile, error) {
	ctx, span := tracer.Start(ctx, "google:Verify")
	defer span.End()

	if !g.Configured() {
		return Profile{}, ErrNotConfigured
	}

	var info googleTokenInfo
	res, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("id_token", idToken).
		SetResult(&info).
		Get(g.TokenInfoUrl)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to call tokeninfo")
		return Profile{}, err
	}
	if res.StatusCode() >= 400 && res.StatusCode() < 500 {
		span.SetStatus(codes.Error, "token rejected by tokeninfo")
		return Profile{}, ErrInvalidToken
	}
	if res.IsError() {
		err := fmt.Errorf("tokeninfo responded %s", res.Status())
		span.RecordError(err)
		span.SetStatus(codes.Error, "tokeninfo failed")
		return Profile{}, err
	}

	if info.Aud != g.ClientId {
		span.SetAttributes(attribute.String("aud", info.Aud))
		span.SetStatus(codes.Error, "wrong audience")
		return Profile{}, ErrWrongRecipient
	}
	if info.EmailVerified == "false" {
		span.SetStatus(codes.Error, "email not verified")
		return Profile{}, ErrInvalidToken
	}
	exp, err := strconv.ParseInt(info.Exp, 10, 64)
	if err != nil || time.Unix(exp, 0).Before(time.Now()) {
		span.SetStatus(codes.Error, "token expired")
		return Profile{}, ErrInvalidToken
	}

	return Profile{
		Provider:  "google",
		ID:        info.Sub,
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
	}, nil
}
