package client

import (
	"context"

	"github.com/dmitrijs2005/joboost/internal/client/models"
)

// AuthResponse is returned by every call that opens a session.
type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Client is the Gateway contract consumed by the client services.
type Client interface {
	Login(ctx context.Context, email, password string) (*AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*AuthResponse, error)
	Me(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context) error
	ExchangeSession(ctx context.Context, sessionID string) (*AuthResponse, error)

	ListApplications(ctx context.Context) ([]models.Application, error)
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	CreateApplication(ctx context.Context, fields models.ApplicationFields) (*models.Application, error)
	UpdateApplication(ctx context.Context, id string, fields models.ApplicationFields) (*models.Application, error)
	UpdateApplicationStatus(ctx context.Context, id string, status models.Status) error
	DeleteApplication(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.Stats, error)

	CreateCheckout(ctx context.Context, plan models.CheckoutPlan, originURL string) (*models.CheckoutSession, error)
	PaymentStatus(ctx context.Context, sessionID string) (*models.PaymentStatus, error)

	GetProfile(ctx context.Context) (*models.Profile, error)
	SaveProfile(ctx context.Context, p models.Profile) (*models.Profile, error)
	GenerateDocument(ctx context.Context, applicationID string, kind models.GenerationKind) (*models.Generation, error)
}
