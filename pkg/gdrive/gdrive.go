package gdrive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	configx "github.com/tanpawarit/Chative-Account-Request/pkg/config"
)

const (
	component      = "google_drive"
	defaultTimeout = 30 * time.Second
)

type Config struct {
	FileID                string        `envconfig:"DRIVE_FILE_ID"`
	ServiceAccountJSON    string        `envconfig:"SERVICE_ACCOUNT_JSON"`
	Endpoint              string        `envconfig:"DRIVE_ENDPOINT"`
	SendNotificationEmail bool          `envconfig:"DRIVE_SEND_NOTIFICATION_EMAIL" default:"true"`
	Timeout               time.Duration `envconfig:"DRIVE_TIMEOUT" default:"30s"`
}

// Client grants permissions on one fixed Drive file.
type Client struct {
	service *drive.Service
	fileID  string
	notify  bool
	timeout time.Duration
}

// NewClient checks cfg, reads the service account key and builds a Drive v3
// service scoped to full drive access.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	fileID := strings.TrimSpace(cfg.FileID)
	if fileID == "" {
		return nil, configx.Missing(component, "GOOGLE_DRIVE_FILE_ID")
	}
	keyPath := strings.TrimSpace(cfg.ServiceAccountJSON)
	if keyPath == "" {
		return nil, configx.Missing(component, "GOOGLE_SERVICE_ACCOUNT_JSON")
	}

	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, &configx.Error{
			Component: component,
			Field:     "GOOGLE_SERVICE_ACCOUNT_JSON",
			Err:       fmt.Errorf("service account file not readable: %w", err),
		}
	}

	creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveScope)
	if err != nil {
		return nil, &configx.Error{
			Component: component,
			Field:     "GOOGLE_SERVICE_ACCOUNT_JSON",
			Err:       fmt.Errorf("parse service account credentials: %w", err),
		}
	}

	opts := []option.ClientOption{option.WithCredentials(creds)}
	if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google drive: create service: %w", err)
	}
	return newClient(service, cfg), nil
}

// NewClientWithHTTP builds a client on a caller-provided HTTP client and
// endpoint, skipping credential loading.
func NewClientWithHTTP(ctx context.Context, cfg Config, httpClient *http.Client, endpoint string) (*Client, error) {
	if strings.TrimSpace(cfg.FileID) == "" {
		return nil, configx.Missing(component, "GOOGLE_DRIVE_FILE_ID")
	}
	service, err := drive.NewService(ctx,
		option.WithHTTPClient(httpClient),
		option.WithEndpoint(endpoint),
	)
	if err != nil {
		return nil, fmt.Errorf("google drive: create service: %w", err)
	}
	return newClient(service, cfg), nil
}

func newClient(service *drive.Service, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		service: service,
		fileID:  strings.TrimSpace(cfg.FileID),
		notify:  cfg.SendNotificationEmail,
		timeout: timeout,
	}
}

// GrantPermission shares the configured file with email under role
// (reader, commenter or writer) and returns the new permission id.
func (c *Client) GrantPermission(ctx context.Context, email string, role string) (string, error) {
	email = strings.TrimSpace(email)
	role = strings.TrimSpace(role)
	if email == "" || role == "" {
		return "", fmt.Errorf("google drive: email and role are required")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	perm := &drive.Permission{
		Type:         "user",
		Role:         role,
		EmailAddress: email,
	}
	created, err := c.service.Permissions.Create(c.fileID, perm).
		SendNotificationEmail(c.notify).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", describeError(err)
	}
	return created.Id, nil
}

func describeError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("google drive api error: %w", err)
	}
	switch apiErr.Code {
	case http.StatusNotFound:
		return fmt.Errorf("google drive api error: %w\nfile not found; check GOOGLE_DRIVE_FILE_ID", err)
	case http.StatusForbidden:
		return fmt.Errorf("google drive api error: %w\npermission denied; check the service account's access to the file", err)
	default:
		return fmt.Errorf("google drive api error: %w", err)
	}
}
