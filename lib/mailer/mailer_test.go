package mailer

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupSmtp(t *testing.T) (smtpPort int, webPort string, cleanup func()) {
	// suppress logging
	testcontainers.Logger = log.New(io.Discard, "", 0)
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(
		ctx,
		testcontainers.GenericContainerRequest{
			Started: true,
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "haravich/fake-smtp-server",
				ExposedPorts: []string{"1025/tcp", "1080/tcp"},
				WaitingFor:   wait.ForLog("smtp://0.0.0.0:1025"),
			},
		},
	)
	if err != nil {
		t.Fatal(err)
	}

	smtpMapped, err := container.MappedPort(ctx, "1025/tcp")
	require.NoError(t, err)
	webMapped, err := container.MappedPort(ctx, "1080/tcp")
	require.NoError(t, err)

	return smtpMapped.Int(), webMapped.Port(), func() {
		err := container.Terminate(context.Background())
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestSendWelcome(t *testing.T) {
	smtpPort, webPort, cleanup := setupSmtp(t)
	defer cleanup()

	m := New(Config{
		Server:       "localhost",
		Port:         smtpPort,
		EmailAddress: "noreply@pathwise.com",
		Password:     "default",
	})
	err := m.SendWelcome(context.Background(), "ada@example.com", "Ada")
	require.NoError(t, err)

	client := resty.New()
	var body string
	require.Eventually(t, func() bool {
		res, err := client.R().Get("http://127.0.0.1:" + webPort + "/messages/1.plain")
		if err != nil || res.IsError() {
			return false
		}
		body = res.String()
		return true
	}, 10*time.Second, 200*time.Millisecond)
	require.True(t, strings.Contains(body, "Hi Ada"))
}

func TestConfigured(t *testing.T) {
	require.False(t, Config{}.Configured())
	require.True(t, Config{Server: "smtp.test", Port: 25, EmailAddress: "a@b.c"}.Configured())
}
